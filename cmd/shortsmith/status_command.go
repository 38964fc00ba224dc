package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"shortsmith/internal/deps"
	"shortsmith/internal/preflight"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Check external binaries, services, and working directories",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			seen := make(map[string]bool)
			var rows [][]string
			requirements := append(deps.RenderRequirements(cfg.Render), deps.ProducerRequirements(cfg)...)
			for _, s := range deps.CheckBinaries(requirements) {
				if seen[s.Name] {
					continue
				}
				seen[s.Name] = true
				detail := s.Description
				if !s.Available {
					detail = s.Detail
				}
				rows = append(rows, []string{s.Name, statusLabel(s.Available, s.Optional), detail})
			}
			for _, r := range preflight.RunAll(cmd.Context(), cfg) {
				rows = append(rows, []string{r.Name, statusLabel(r.Passed, false), r.Detail})
			}
			rows = append(rows, []string{"Publishing", enabledLabel(cfg.PublishEnabled()), "YouTube credentials"})
			rows = append(rows, []string{"Newsletter", enabledLabel(cfg.GmailEnabled()), "Gmail credentials"})
			rows = append(rows, []string{"Notifications", enabledLabel(cfg.Notifications.NtfyTopic != ""), "ntfy topic"})

			fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"Check", "State", "Detail"}, rows, nil))
			return nil
		},
	}
}

func statusLabel(ok, optional bool) string {
	switch {
	case ok:
		return "ok"
	case optional:
		return "missing (optional)"
	default:
		return "failed"
	}
}
