package cli

import (
	"context"

	"github.com/spf13/cobra"
)

type rootOptions struct {
	configFile  string
	sessionFile string
	logFile     string
	language    string
}

// NewRootCommand builds the recorder command tree.
func NewRootCommand() *cobra.Command {
	opts := &rootOptions{}

	rootCmd := &cobra.Command{
		Use:   "recorder",
		Short: "Record, transcribe and summarize audio",
		Long: `recorder captures audio from the microphone, uploads it for transcription
and summarization, and keeps a history of your transcripts.

Run without a subcommand to open the interactive recorder.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInteractive(cmd, opts)
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&opts.configFile, "config", "", "YAML config file (overrides CONFIG_FILE)")
	flags.StringVar(&opts.sessionFile, "session-file", "", "where the signed-in session is kept (default <config dir>/voxnote/session.json)")
	flags.StringVar(&opts.logFile, "log-file", "", "write logs to this file instead of stderr")
	flags.StringVar(&opts.language, "language", "auto", "output language: auto, te or en")

	rootCmd.AddCommand(
		newUploadCommand(opts),
		newHistoryCommand(opts),
		newLogoutCommand(opts),
		newConfigCommand(opts),
	)
	return rootCmd
}

// Execute runs the root command with ctx.
func Execute(ctx context.Context) error {
	return NewRootCommand().ExecuteContext(ctx)
}
