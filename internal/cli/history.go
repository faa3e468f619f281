package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"voxnote/internal/tui"
	"voxnote/models"
)

func newHistoryCommand(opts *rootOptions) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List your transcripts, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
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

			transcripts, err := env.services.History.List(ctx, session.UserID)
			if err != nil {
				return err
			}
			if asJSON {
				if transcripts == nil {
					transcripts = []models.Transcript{}
				}
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(transcripts)
			}
			return writeHistoryTable(cmd.OutOrStdout(), transcripts)
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print transcripts as JSON")
	cmd.AddCommand(newHistoryShowCommand(opts), newHistoryDeleteCommand(opts))
	return cmd
}

func newHistoryShowCommand(opts *rootOptions) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show one transcript and its summary",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
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

			res, err := env.services.History.Result(ctx, args[0], session.UserID)
			if err != nil {
				return err
			}
			return writeResult(cmd.OutOrStdout(), *res, asJSON)
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print the result as JSON")
	return cmd
}

func newHistoryDeleteCommand(opts *rootOptions) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a transcript and its summaries",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
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

			if !yes {
				ok, err := tui.ConfirmDelete(fmt.Sprintf("Delete transcript %s?", args[0]))
				if err != nil {
					return err
				}
				if !ok {
					fmt.Fprintln(cmd.ErrOrStderr(), "Cancelled")
					return nil
				}
			}

			if err := env.services.History.Delete(ctx, args[0], session.UserID); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Transcript deleted")
			return nil
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "skip the confirmation prompt")
	return cmd
}

func writeHistoryTable(w io.Writer, transcripts []models.Transcript) error {
	if len(transcripts) == 0 {
		_, err := fmt.Fprintln(w, "No transcripts yet")
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tCREATED\tLANGUAGE\tTRANSCRIPT")
	for _, t := range transcripts {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n",
			t.ID,
			t.CreatedAt.Local().Format("2006-01-02 15:04"),
			t.Language,
			tui.Preview(t.TranscriptText, 48),
		)
	}
	return tw.Flush()
}
