package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/schollz/progressbar/v3"

	"shortsmith/internal/config"
	"shortsmith/internal/docstore"
	"shortsmith/internal/journal"
	"shortsmith/internal/notifications"
	"shortsmith/internal/notion"
	"shortsmith/internal/services/aligner"
	"shortsmith/internal/services/ffmpeg"
	"shortsmith/internal/services/llm"
	"shortsmith/internal/services/openai"
	"shortsmith/internal/services/renderer"
	"shortsmith/internal/services/youtube"
	"shortsmith/internal/workflow"
)

func newNotionClient(cfg *config.Config) *notion.Client {
	return notion.NewClient(notion.Config{
		Token:          cfg.Notion.Token,
		BaseURL:        cfg.Notion.BaseURL,
		Version:        cfg.Notion.Version,
		TimeoutSeconds: cfg.Notion.TimeoutSeconds,
	})
}

// newStore builds the document store. Multi-part progress is written to
// progress when it is a terminal.
func newStore(cfg *config.Config, logger *slog.Logger, progress io.Writer) *docstore.Store {
	client := newNotionClient(cfg)
	opts := []docstore.UploaderOption{
		docstore.WithPartLimits(cfg.SinglePartLimitBytes(), cfg.PartSizeBytes()),
		docstore.WithPartAttempts(cfg.Notion.UploadAttempts),
		docstore.WithTempDir(cfg.Paths.StateDir),
	}
	if progress != nil && isTerminal(progress) {
		opts = append(opts, docstore.WithProgress(uploadProgress(progress)))
	}
	uploader := docstore.NewUploader(client, logger, opts...)
	return docstore.NewStore(client, client, uploader, docstore.StoreConfig{
		DatabaseIDs: cfg.Notion.DatabaseIDs,
		PublicDir:   cfg.Paths.PublicDir,
		OutputDir:   cfg.Paths.OutputDir,
	}, logger)
}

// uploadProgress draws one progress bar per multi-part upload.
func uploadProgress(w io.Writer) docstore.ProgressFunc {
	var (
		mu   sync.Mutex
		bars = make(map[string]*progressbar.ProgressBar)
	)
	return func(filename string, sent, total int) {
		mu.Lock()
		defer mu.Unlock()
		bar, ok := bars[filename]
		if !ok {
			bar = progressbar.NewOptions(total,
				progressbar.OptionSetWriter(w),
				progressbar.OptionSetDescription("Uploading "+filename),
				progressbar.OptionShowCount(),
				progressbar.OptionOnCompletion(func() { fmt.Fprintln(w) }),
			)
			bars[filename] = bar
		}
		_ = bar.Set(sent)
		if sent >= total {
			delete(bars, filename)
		}
	}
}

func newLLMClient(cfg *config.Config) (*llm.Client, error) {
	catalog, err := llm.LoadCatalog(cfg.LLM.AgentsFile)
	if err != nil {
		return nil, err
	}
	return llm.NewClient(llm.Config{
		APIKey:         cfg.LLM.APIKey,
		BaseURL:        cfg.LLM.BaseURL,
		Model:          cfg.LLM.Model,
		Referer:        cfg.LLM.Referer,
		Title:          cfg.LLM.Title,
		TimeoutSeconds: cfg.LLM.TimeoutSeconds,
	}, llm.WithAgents(catalog)), nil
}

func openAIConfig(cfg *config.Config) openai.Config {
	return openai.Config{
		APIKey:     cfg.OpenAI.APIKey,
		BaseURL:    cfg.OpenAI.BaseURL,
		TTSModel:   cfg.OpenAI.TTSModel,
		ImageModel: cfg.OpenAI.ImageModel,
		ImageSize:  cfg.OpenAI.ImageSize,
	}
}

// renderPass holds a wired Manager and the resources to release after it.
type renderPass struct {
	manager *workflow.Manager
	journal *journal.Journal
}

func (r *renderPass) Close() error {
	if r.journal == nil {
		return nil
	}
	return r.journal.Close()
}

func newRenderPass(ctx context.Context, cfg *config.Config, logger *slog.Logger, progress io.Writer, limit int) (*renderPass, error) {
	runJournal, err := journal.Open(cfg.JournalPath())
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}
	pass := &renderPass{journal: runJournal}

	llmClient, err := newLLMClient(cfg)
	if err != nil {
		_ = pass.Close()
		return nil, err
	}
	compositor, err := renderer.New(cfg.Render.Command, cfg.Render.Args, cfg.Paths.OutputDir, logger)
	if err != nil {
		_ = pass.Close()
		return nil, err
	}

	timeout := time.Duration(cfg.Aligner.TimeoutSeconds) * time.Second
	collaborators := workflow.Collaborators{
		Store: newStore(cfg, logger, progress),
		Words: aligner.NewWords(aligner.Config{
			BaseURL: cfg.Aligner.WordsBaseURL,
			APIKey:  cfg.Aligner.WordsAPIKey,
			Timeout: timeout,
		}),
		Renderer: compositor,
		Retimer:  ffmpeg.NewEditor(cfg.Render.FFmpegBinary),
		Prober:   ffmpeg.NewProber(cfg.Render.FFprobeBinary, nil),
		LLM:      llmClient,
		Journal:  runJournal,
	}
	if strings.TrimSpace(cfg.Aligner.VisemesBaseURL) != "" {
		collaborators.Visemes = aligner.NewVisemes(aligner.Config{
			BaseURL: cfg.Aligner.VisemesBaseURL,
			APIKey:  cfg.Aligner.VisemesAPIKey,
			Timeout: timeout,
		})
	}
	if cfg.PublishEnabled() {
		uploader, err := youtube.New(ctx, youtube.Config{
			ClientID:     cfg.Publish.ClientID,
			ClientSecret: cfg.Publish.ClientSecret,
			RefreshToken: cfg.Publish.RefreshToken,
			CategoryID:   cfg.Publish.CategoryID,
			Privacy:      cfg.Publish.Privacy,
		}, logger)
		if err != nil {
			_ = pass.Close()
			return nil, err
		}
		collaborators.Publisher = uploader
	}

	pass.manager, err = workflow.NewManager(cfg, collaborators, logger,
		workflow.WithNotifier(notifications.NewService(cfg)),
		workflow.WithLimit(limit),
	)
	if err != nil {
		_ = pass.Close()
		return nil, err
	}
	return pass, nil
}
