package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newScriptsCommand(ctx *commandContext) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "scripts",
		Short: "List the most recently created records",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if err := cfg.RequireStore(); err != nil {
				return err
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}
			summaries, err := newStore(cfg, logger, nil).RetrieveLatest(cmd.Context(), limit)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(summaries) == 0 {
				fmt.Fprintln(out, "No records found")
				return nil
			}
			rows := make([][]string, 0, len(summaries))
			for _, s := range summaries {
				rows = append(rows, []string{s.ID, s.Title, string(s.Status), joinOrDash(s.Compositions), formatTime(s.CreatedAt)})
			}
			fmt.Fprintln(out, renderTable([]string{"ID", "Title", "Status", "Compositions", "Created"}, rows, nil))
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 10, "Number of records to list")
	return cmd
}

func newOutputsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "outputs",
		Short: "Download rendered outputs of Done records into the output directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if err := cfg.RequireStore(); err != nil {
				return err
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}
			written, err := newStore(cfg, logger, nil).DownloadOutputs(cmd.Context())
			out := cmd.OutOrStdout()
			for _, path := range written {
				fmt.Fprintln(out, path)
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "Downloaded %d files to %s\n", len(written), cfg.Paths.OutputDir)
			return nil
		},
	}
}
