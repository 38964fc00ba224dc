package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"shortsmith/internal/logs"
)

func newLogsCommand(ctx *commandContext) *cobra.Command {
	var (
		lines    int
		follow   bool
		recordID string
	)

	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Show the shortsmith log file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			path := cfg.LogPath()
			if path == "" {
				return fmt.Errorf("paths.log_dir is not set; logs only go to stderr")
			}

			keep := logs.MatchRecord(recordID)
			out := cmd.OutOrStdout()
			tail, offset, err := logs.Last(path, lines, keep)
			if err != nil {
				return err
			}
			for _, line := range tail {
				fmt.Fprintln(out, line)
			}
			if !follow {
				return nil
			}
			err = logs.Follow(cmd.Context(), path, offset, 500*time.Millisecond, keep, func(line string) {
				fmt.Fprintln(out, line)
			})
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		},
	}

	cmd.Flags().IntVarP(&lines, "lines", "n", 50, "Number of trailing lines to show")
	cmd.Flags().BoolVarP(&follow, "follow", "f", false, "Keep printing lines as they are written")
	cmd.Flags().StringVar(&recordID, "record", "", "Only show lines mentioning this record id")
	return cmd
}
