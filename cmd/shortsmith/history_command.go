package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"shortsmith/internal/journal"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent status transitions from the local run journal",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			j, err := journal.Open(cfg.JournalPath())
			if err != nil {
				return fmt.Errorf("open journal: %w", err)
			}
			defer j.Close()

			transitions, err := j.RecentTransitions(cmd.Context(), limit)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(transitions) == 0 {
				fmt.Fprintln(out, "No transitions recorded")
				return nil
			}
			rows := make([][]string, 0, len(transitions))
			for _, t := range transitions {
				rows = append(rows, []string{
					formatTime(t.CreatedAt),
					t.RecordID,
					t.Title,
					fmt.Sprintf("%s → %s", t.From, t.To),
					dash(t.Reason),
				})
			}
			fmt.Fprintln(out, renderTable([]string{"When", "Record", "Title", "Status", "Reason"}, rows, nil))
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Number of transitions to show")
	return cmd
}

func dash(value string) string {
	if strings.TrimSpace(value) == "" {
		return "-"
	}
	return value
}
