package cli

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"voxnote/internal/capture"
	"voxnote/internal/tui"
)

func runInteractive(cmd *cobra.Command, opts *rootOptions) error {
	if _, err := processingOptions(opts.language); err != nil {
		return err
	}

	env, err := setup(cmd, opts, true)
	if err != nil {
		return err
	}
	defer env.close()

	ctx := cmd.Context()
	session, err := env.ensureSession(ctx, cmd.OutOrStdout(), tui.PromptLogin)
	if err != nil {
		return err
	}

	recorder := capture.NewRecorder(capture.DefaultFFmpegDevice(), env.logger.WithField("component", "recorder"))
	defer recorder.Close()

	model := tui.NewModel(ctx, *session, recorder, env.services.Pipeline, env.services.History).
		WithLanguage(opts.language)

	_, err = tea.NewProgram(model, tea.WithContext(ctx)).Run()
	return err
}
