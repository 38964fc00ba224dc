package preflight

import (
	"context"
	"strings"

	"shortsmith/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll executes every applicable check for cfg. Optional services are only
// checked when configured.
func RunAll(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	results := []Result{
		CheckDirectoryAccess("Public directory", cfg.Paths.PublicDir),
		CheckDirectoryAccess("Output directory", cfg.Paths.OutputDir),
		CheckDirectoryAccess("State directory", cfg.Paths.StateDir),
	}

	if strings.TrimSpace(cfg.Notion.Token) != "" {
		results = append(results, CheckNotion(ctx, cfg.Notion.BaseURL, cfg.Notion.Version, cfg.Notion.Token))
	}
	if strings.TrimSpace(cfg.LLM.APIKey) != "" {
		results = append(results, CheckLLM(ctx, "LLM", cfg.LLM))
	}
	if strings.TrimSpace(cfg.Aligner.WordsBaseURL) != "" {
		results = append(results, CheckEndpoint(ctx, "Word aligner", cfg.Aligner.WordsBaseURL))
	}
	if strings.TrimSpace(cfg.Aligner.VisemesBaseURL) != "" {
		results = append(results, CheckEndpoint(ctx, "Viseme aligner", cfg.Aligner.VisemesBaseURL))
	}

	return results
}

// Failed returns the results that did not pass.
func Failed(results []Result) []Result {
	var failed []Result
	for _, r := range results {
		if !r.Passed {
			failed = append(failed, r)
		}
	}
	return failed
}
