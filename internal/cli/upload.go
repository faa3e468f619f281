package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"voxnote/internal/pipeline"
	"voxnote/internal/storage"
	"voxnote/internal/tui"
	"voxnote/models"
)

func newUploadCommand(opts *rootOptions) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "upload <file>",
		Short: "Transcribe and summarize an existing audio file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			contentType := detectContentType(path)
			if err := pipeline.ValidateAudioFile(filepath.Base(path), contentType); err != nil {
				return err
			}
			processing, err := processingOptions(opts.language)
			if err != nil {
				return err
			}

			f, err := os.Open(path)
			if err != nil {
				return err
			}
			defer f.Close()

			env, err := setup(cmd, opts, false)
			if err != nil {
				return err
			}
			defer env.close()

			ctx := cmd.Context()
			session, err := env.ensureSession(ctx, cmd.ErrOrStderr(), tui.PromptLogin)
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.ErrOrStderr(), "Uploading audio file...")
			res, err := env.services.Pipeline.UploadAndProcess(ctx, storage.File{
				Name:        filepath.Base(path),
				ContentType: contentType,
				Body:        f,
			}, session.UserID, processing)
			if err != nil {
				return err
			}
			return writeResult(cmd.OutOrStdout(), *res, asJSON)
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print the result as JSON")
	return cmd
}

var audioContentTypes = map[string]string{
	".webm": "audio/webm",
	".mp3":  "audio/mpeg",
	".wav":  "audio/wav",
	".ogg":  "audio/ogg",
	".m4a":  "audio/mp4",
}

// detectContentType guesses the media type from the file extension.
// Parameters such as codecs are dropped.
func detectContentType(path string) string {
	ext := strings.ToLower(filepath.Ext(path))
	if ct, ok := audioContentTypes[ext]; ok {
		return ct
	}
	ct := mime.TypeByExtension(ext)
	if ct == "" {
		return "application/octet-stream"
	}
	if mediaType, _, err := mime.ParseMediaType(ct); err == nil {
		return mediaType
	}
	return ct
}

func writeResult(w io.Writer, res models.ProcessingResult, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	}
	_, err := fmt.Fprint(w, tui.RenderResult(tui.DefaultStyles(), res))
	return err
}
