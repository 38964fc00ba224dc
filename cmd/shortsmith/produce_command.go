package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"shortsmith/internal/config"
	"shortsmith/internal/deps"
	"shortsmith/internal/lifecycle"
	"shortsmith/internal/logging"
	"shortsmith/internal/producer"
	"shortsmith/internal/script"
	"shortsmith/internal/services"
	"shortsmith/internal/services/ffmpeg"
	"shortsmith/internal/services/gmail"
	"shortsmith/internal/services/openai"
)

func newProduceCommand(ctx *commandContext) *cobra.Command {
	var (
		singleTake   bool
		maxSeconds   float64
		statusFlag   string
		compositions []string
		debate       bool
		roast        bool
		newsletter   bool
		news         bool
	)

	cmd := &cobra.Command{
		Use:   "produce <topic>",
		Short: "Research, write, and narrate scripts for a topic and save them as records",
		Long: `Research, write, and narrate scripts for a topic and save them as records.

With --debate every argument is a separate debate topic. With --roast the
arguments name the dating-profile archetype to roast. With --newsletter the
optional argument is a newsletter file; without it the latest issue is read
from Gmail. --news researches the day's headlines instead. News scripts are
saved to the news database.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			modes := 0
			for _, on := range []bool{debate, roast, newsletter, news} {
				if on {
					modes++
				}
			}
			if modes > 1 {
				return fmt.Errorf("--debate, --roast, --newsletter and --news are mutually exclusive")
			}
			topic := strings.TrimSpace(strings.Join(args, " "))
			switch {
			case news && len(args) > 0:
				return fmt.Errorf("--news takes no arguments")
			case newsletter && len(args) > 1:
				return fmt.Errorf("--newsletter takes at most one file")
			case !news && !newsletter && topic == "":
				return fmt.Errorf("a topic is required")
			}
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if err := cfg.RequireProducer(); err != nil {
				return err
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}

			statuses := deps.CheckBinaries(deps.ProducerRequirements(cfg))
			available := deps.Availability(statuses)
			for _, status := range statuses {
				if !status.Available {
					logging.WarnWithContext(logger, "optional binary unavailable", "producer_binary_missing",
						logging.String("binary", status.Name),
						logging.String("detail", status.Detail),
						logging.String(logging.FieldImpact, status.Description+" is disabled"),
					)
				}
			}

			llmClient, err := newLLMClient(cfg)
			if err != nil {
				return err
			}
			editor := ffmpeg.NewEditor(cfg.Render.FFmpegBinary)
			var prober openai.Prober
			if available[deps.FFprobe] {
				prober = ffmpeg.NewProber(cfg.Render.FFprobeBinary, nil)
			}
			var concat openai.Concatenator
			if available[deps.FFmpeg] {
				concat = editor
			}

			opts := []producer.Option{producer.WithSingleTake(singleTake)}
			if available[deps.FFmpeg] {
				opts = append(opts, producer.WithRetimer(editor))
			}
			if singleTake && maxSeconds > 0 {
				if !available[deps.FFmpeg] {
					return services.Wrap(services.ErrConfiguration, "producer", "init", "--max-seconds needs ffmpeg", nil)
				}
				opts = append(opts, producer.WithMaxTakeSeconds(editor, maxSeconds))
			}
			if statusFlag != "" {
				status, ok := lifecycle.Parse(statusFlag)
				if !ok {
					return fmt.Errorf("unknown status %q", statusFlag)
				}
				opts = append(opts, producer.WithStatus(status))
			}
			if len(compositions) > 0 {
				comps := make([]script.Composition, 0, len(compositions))
				for _, name := range compositions {
					comp, ok := script.ParseComposition(name)
					if !ok {
						return fmt.Errorf("unknown composition %q", name)
					}
					comps = append(comps, comp)
				}
				opts = append(opts, producer.WithCompositions(comps...))
			}
			if available[deps.MermaidCLI] {
				opts = append(opts, producer.WithIllustrator(script.IllustrationMermaid,
					producer.NewMermaid(llmClient, cfg.Producer.MermaidBinary, cfg.Paths.PublicDir, nil)))
			}

			p, err := producer.New(cfg, producer.Collaborators{
				LLM:    llmClient,
				Speech: openai.NewSpeech(openAIConfig(cfg), cfg.Paths.PublicDir, prober, concat, logger),
				Images: openai.NewImages(openAIConfig(cfg), cfg.Paths.PublicDir, cfg.Paths.OutputDir, logger),
				Store:  newStore(cfg, logger, cmd.ErrOrStderr()),
			}, logger, opts...)
			if err != nil {
				return err
			}

			var results []producer.Result
			switch {
			case debate:
				results, err = p.Debate(cmd.Context(), args)
			case roast:
				var res producer.Result
				if res, err = p.Roast(cmd.Context(), topic); err == nil {
					results = []producer.Result{res}
				}
			case news:
				results, err = p.News(cmd.Context())
			case newsletter:
				var issue producer.Issue
				if issue, err = loadIssue(cmd.Context(), cfg, args, logger); err != nil {
					return err
				}
				results, err = p.Newsletter(cmd.Context(), issue)
			default:
				results, err = p.Produce(cmd.Context(), topic)
			}
			if len(results) > 0 {
				rows := make([][]string, 0, len(results))
				for _, r := range results {
					rows = append(rows, []string{r.ID, r.Title})
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"ID", "Title"}, rows, nil))
			}
			return err
		},
	}

	cmd.Flags().BoolVar(&singleTake, "single-take", false, "Narrate the whole script as one audio take")
	cmd.Flags().Float64Var(&maxSeconds, "max-seconds", 0, "Speed up a single take longer than this many seconds (at most 2x)")
	cmd.Flags().StringVar(&statusFlag, "status", "", "Status new records are created in (default Not ready)")
	cmd.Flags().BoolVar(&debate, "debate", false, "Stage a debate between AI models, one topic per argument")
	cmd.Flags().BoolVar(&roast, "roast", false, "Roast a dating profile for the archetype given as argument")
	cmd.Flags().BoolVar(&newsletter, "newsletter", false, "Produce news scripts from a newsletter file, or the latest issue in Gmail")
	cmd.Flags().BoolVar(&news, "news", false, "Research the latest headlines and produce news scripts")
	cmd.Flags().StringSliceVar(&compositions, "composition", nil, "Compositions to render (repeatable; default from config)")
	return cmd
}

// loadIssue reads the newsletter file in args, or fetches the latest issue
// from Gmail when none is given. A file's title is its base name.
func loadIssue(ctx context.Context, cfg *config.Config, args []string, logger *slog.Logger) (producer.Issue, error) {
	if len(args) == 1 {
		path := strings.TrimSpace(args[0])
		content, err := os.ReadFile(path)
		if err != nil {
			return producer.Issue{}, fmt.Errorf("read newsletter: %w", err)
		}
		title := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
		return producer.Issue{Title: title, Content: string(content)}, nil
	}
	if !cfg.GmailEnabled() {
		return producer.Issue{}, services.Wrap(services.ErrConfiguration, "producer", "newsletter",
			"pass a newsletter file or configure publish.client_id, publish.client_secret and producer.gmail_refresh_token", nil)
	}
	fetcher, err := gmail.New(ctx, gmail.Config{
		ClientID:     cfg.Publish.ClientID,
		ClientSecret: cfg.Publish.ClientSecret,
		RefreshToken: cfg.Producer.GmailRefreshToken,
		Sender:       cfg.Producer.NewsletterSender,
		MaxAge:       time.Duration(cfg.Producer.NewsletterMaxAgeHours) * time.Hour,
	}, logger)
	if err != nil {
		return producer.Issue{}, err
	}
	latest, err := fetcher.Latest(ctx)
	if err != nil {
		return producer.Issue{}, err
	}
	return producer.Issue{Title: latest.Subject, Content: latest.Content}, nil
}
