package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/gofrs/flock"
	"github.com/spf13/cobra"

	"shortsmith/internal/config"
	"shortsmith/internal/deps"
	"shortsmith/internal/logging"
	"shortsmith/internal/preflight"
	"shortsmith/internal/services"
	"shortsmith/internal/staging"
	"shortsmith/internal/workflow"
)

func newRenderCommand(ctx *commandContext) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "render",
		Short: "Render every Not started record and publish it to configured channels",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if err := cfg.RequireRender(); err != nil {
				return err
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}

			lock := flock.New(cfg.LockPath())
			ok, err := lock.TryLock()
			if err != nil {
				return fmt.Errorf("acquire render lock: %w", err)
			}
			if !ok {
				return fmt.Errorf("another render pass is already running (lock %s)", cfg.LockPath())
			}
			defer func() {
				if err := lock.Unlock(); err != nil {
					logging.WarnWithContext(logger, "failed to release render lock", "render_lock_release_failed",
						logging.String("lock", cfg.LockPath()),
						logging.Error(err),
						logging.String(logging.FieldImpact, "the next render pass may report a held lock"),
					)
				}
			}()

			if err := deps.Verify(deps.CheckBinaries(deps.RenderRequirements(cfg.Render))); err != nil {
				return err
			}
			if failed := preflight.Failed(preflight.RunAll(cmd.Context(), cfg)); len(failed) > 0 {
				return preflightError(failed)
			}
			cleanStaleScratch(cmd.Context(), cfg, logger)

			pass, err := newRenderPass(cmd.Context(), cfg, logger, cmd.ErrOrStderr(), limit)
			if err != nil {
				return err
			}
			defer pass.Close()

			summary, err := pass.manager.Run(cmd.Context())
			printRunSummary(cmd.OutOrStdout(), summary)
			return err
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 0, "Maximum number of records to render (0 renders all)")
	return cmd
}

// cleanStaleScratch removes props files and upload part directories left by
// interrupted runs. Callers hold the render lock.
func cleanStaleScratch(ctx context.Context, cfg *config.Config, logger *slog.Logger) {
	maxAge := time.Duration(cfg.Render.StaleScratchHours) * time.Hour
	if maxAge <= 0 {
		return
	}
	staging.CleanStale(ctx, cfg.Paths.PublicDir, []string{staging.ScratchPattern}, maxAge, logger)
	staging.CleanStale(ctx, cfg.Paths.StateDir, []string{staging.UploadPartsPattern}, maxAge, logger)
}

func printRunSummary(w io.Writer, s workflow.RunSummary) {
	if s.Processed == 0 && s.Failed == 0 && s.Skipped == 0 {
		fmt.Fprintln(w, "No records ready to render")
		return
	}
	rows := [][]string{
		{"Rendered", fmt.Sprint(s.Processed)},
		{"Failed", fmt.Sprint(s.Failed)},
		{"Skipped", fmt.Sprint(s.Skipped)},
		{"Published", fmt.Sprint(s.Published)},
		{"Duration", s.Duration.Round(time.Second).String()},
	}
	fmt.Fprintln(w, renderTable([]string{"Render pass", "Count"}, rows, []columnAlignment{alignLeft, alignRight}))
}

func preflightError(failed []preflight.Result) error {
	parts := make([]string, len(failed))
	for i, r := range failed {
		parts[i] = r.Name + ": " + r.Detail
	}
	return services.Wrap(services.ErrConfiguration, "preflight", "services", strings.Join(parts, "; "), nil)
}
