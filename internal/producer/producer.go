package producer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"shortsmith/internal/config"
	"shortsmith/internal/docstore"
	"shortsmith/internal/lifecycle"
	"shortsmith/internal/logging"
	"shortsmith/internal/script"
	"shortsmith/internal/services"
	"shortsmith/internal/services/llm"
	"shortsmith/internal/services/openai"
	"shortsmith/internal/staging"
)

// Completer runs a named language-model agent.
type Completer interface {
	Complete(ctx context.Context, agent, prompt string) (string, error)
}

// Speech synthesizes narration takes into the public directory.
type Speech interface {
	Synthesize(ctx context.Context, speaker script.Speaker, text, id string) (openai.Take, error)
	SynthesizeScript(ctx context.Context, segments []script.Segment, id string) (openai.Take, error)
}

// Images generates segment illustrations and cover images.
type Images interface {
	Generate(ctx context.Context, prompt, id string) (string, error)
	GenerateThumbnail(ctx context.Context, title string, orientation script.Orientation) (string, error)
}

// Illustrator produces a segment illustration of one type and returns the
// file name it wrote in the public directory.
type Illustrator interface {
	Illustrate(ctx context.Context, ill script.Illustration, segmentText, id string) (string, error)
}

// AudioRetimer speeds up a narration take.
type AudioRetimer interface {
	SpeedUpAudio(ctx context.Context, path string, factor float64) (string, error)
}

// Saver persists a finished record.
type Saver interface {
	SaveScript(ctx context.Context, req docstore.SaveRequest) (string, error)
}

// Collaborators bundles the services a Producer drives.
type Collaborators struct {
	LLM    Completer
	Speech Speech
	Images Images
	Store  Saver
}

// Result identifies one record created by Produce.
type Result struct {
	ID    string
	Title string
}

// Producer turns a topic into saved records ready for the render pass.
type Producer struct {
	cfg          *config.Config
	deps         Collaborators
	logger       *slog.Logger
	illustrators map[script.IllustrationType]Illustrator

	compositions []script.Composition
	channels     []script.Channel
	status       lifecycle.Status
	singleTake   bool
	concurrency  int
	retimer      AudioRetimer
	maxTake      float64
	newID        func() string
}

// Option configures optional Producer behavior.
type Option func(*Producer)

// WithIllustrator routes illustrations of type t to ill instead of image
// generation.
func WithIllustrator(t script.IllustrationType, ill Illustrator) Option {
	return func(p *Producer) {
		if ill != nil {
			p.illustrators[t] = ill
		}
	}
}

// WithSingleTake narrates the whole script as one take instead of one take
// per segment.
func WithSingleTake(enabled bool) Option {
	return func(p *Producer) { p.singleTake = enabled }
}

// WithMaxTakeSeconds speeds up a whole-script take longer than seconds so
// it fits, by at most 2x.
func WithMaxTakeSeconds(retimer AudioRetimer, seconds float64) Option {
	return func(p *Producer) {
		p.retimer = retimer
		p.maxTake = seconds
	}
}

// WithRetimer sets the retimer used to fit long takes without changing the
// topic flow's maximum. News takes always fit their configured maximum.
func WithRetimer(retimer AudioRetimer) Option {
	return func(p *Producer) {
		if retimer != nil {
			p.retimer = retimer
		}
	}
}

// WithStatus sets the status new records are created in.
func WithStatus(status lifecycle.Status) Option {
	return func(p *Producer) {
		if status != "" {
			p.status = status
		}
	}
}

// WithCompositions overrides the configured compositions.
func WithCompositions(comps ...script.Composition) Option {
	return func(p *Producer) {
		if len(comps) > 0 {
			p.compositions = append([]script.Composition(nil), comps...)
		}
	}
}

// WithIDSource overrides the generator used for asset ids.
func WithIDSource(fn func() string) Option {
	return func(p *Producer) {
		if fn != nil {
			p.newID = fn
		}
	}
}

// New constructs a Producer. Every collaborator is required.
func New(cfg *config.Config, deps Collaborators, logger *slog.Logger, opts ...Option) (*Producer, error) {
	if cfg == nil {
		return nil, services.Wrap(services.ErrConfiguration, "producer", "init", "configuration is required", nil)
	}
	if deps.LLM == nil || deps.Speech == nil || deps.Images == nil || deps.Store == nil {
		return nil, services.Wrap(services.ErrConfiguration, "producer", "init", "llm, speech, images and store are required", nil)
	}
	p := &Producer{
		cfg:          cfg,
		deps:         deps,
		logger:       logging.NewComponentLogger(logger, "producer"),
		illustrators: make(map[script.IllustrationType]Illustrator),
		status:       lifecycle.NotReady,
		concurrency:  cfg.Producer.IllustrationConcurrency,
		newID:        uuid.NewString,
	}
	for _, name := range cfg.Producer.Compositions {
		comp, ok := script.ParseComposition(name)
		if !ok {
			return nil, services.Wrap(services.ErrConfiguration, "producer", "init", fmt.Sprintf("unknown composition %q", name), nil)
		}
		p.compositions = append(p.compositions, comp)
	}
	for _, ch := range cfg.Producer.Channels {
		p.channels = append(p.channels, script.Channel(ch))
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.concurrency <= 0 {
		p.concurrency = 1
	}
	if len(p.compositions) == 0 {
		p.compositions = []script.Composition{script.Portrait}
	}
	return p, nil
}

// Produce researches topic, writes and reviews a script, and saves one
// record per reviewed script. A failure on one script does not stop the
// others; the returned error joins every failure.
func (p *Producer) Produce(ctx context.Context, topic string) ([]Result, error) {
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return nil, services.Wrap(services.ErrValidation, "producer", "topic", "a topic is required", nil)
	}
	ctx = services.WithRequestID(ctx, p.newID())
	logger := logging.WithContext(ctx, p.logger)

	logger.Info("research started", logging.String("topic", topic), logging.String(logging.FieldEventType, "research_started"))
	research, err := p.deps.LLM.Complete(ctx, llm.AgentResearcher, "Tópico: "+topic)
	if err != nil {
		return nil, err
	}

	logger.Info("writing script", logging.Int("research_length", len(research)), logging.String(logging.FieldEventType, "script_writing"))
	draft, err := p.deps.LLM.Complete(ctx, llm.AgentScriptWriter, writerPrompt(topic, research))
	if err != nil {
		return nil, err
	}

	logger.Info("reviewing script", logging.String(logging.FieldEventType, "script_review"))
	review, err := p.deps.LLM.Complete(ctx, llm.AgentScriptReviewer, draft)
	if err != nil {
		return nil, err
	}
	drafts, err := decodeDrafts(review)
	if err != nil {
		return nil, services.Wrap(services.ErrValidation, "producer", "decode review", "", err)
	}
	return p.produceDrafts(ctx, drafts, p.topicRun())
}

// run holds the per-flow production settings.
type run struct {
	compositions []script.Composition
	singleTake   bool
	maxTake      float64
	// maxFactor caps the speed-up; zero leaves it uncapped.
	maxFactor  float64
	databaseID string
}

func (p *Producer) topicRun() run {
	return run{
		compositions: p.compositions,
		singleTake:   p.singleTake,
		maxTake:      p.maxTake,
		maxFactor:    maxTopicSpeedUp,
	}
}

// produceDrafts produces every draft, logging and collecting failures.
func (p *Producer) produceDrafts(ctx context.Context, drafts []draft, r run) ([]Result, error) {
	logger := logging.WithContext(ctx, p.logger)
	var (
		results []Result
		errs    []error
	)
	for _, d := range drafts {
		res, err := p.produceOne(ctx, d, r)
		if err != nil {
			details := services.Details(err)
			logging.ErrorWithContext(logger, "script production failed", "script_failed",
				logging.String("title", d.Title),
				logging.String("error_kind", details.Kind),
				logging.String(logging.FieldErrorHint, details.Hint),
				logging.Error(err),
			)
			errs = append(errs, fmt.Errorf("%s: %w", d.Title, err))
			continue
		}
		results = append(results, res)
	}
	return results, errors.Join(errs...)
}

func writerPrompt(topic, research string) string {
	return fmt.Sprintf("Tópico: %s\n\nUtilize o seguinte contexto para escrever um roteiro de vídeo:\n\n%s", topic, research)
}

// produceOne narrates, illustrates and saves a single reviewed script.
// Narration takes and segment media are released once the record is saved
// or the attempt fails; the transcript and thumbnails stay in the output
// directory.
func (p *Producer) produceOne(ctx context.Context, d draft, r run) (Result, error) {
	rec, err := d.record(p.logger)
	if err != nil {
		return Result{}, err
	}
	rec.Compositions = append([]script.Composition(nil), r.compositions...)
	rec.Channels = append([]script.Channel(nil), p.channels...)

	logger := p.logger.With(logging.String("title", rec.Title))
	tracker := staging.NewTracker(p.cfg.Paths.PublicDir, logger)
	defer tracker.Release()

	transcript, err := writeTranscript(p.cfg.Paths.OutputDir, rec)
	if err != nil {
		return Result{}, err
	}

	id := p.newID()
	if err := p.narrate(ctx, &rec, id, r, tracker); err != nil {
		return Result{}, err
	}
	if err := p.illustrate(ctx, &rec, id, tracker); err != nil {
		return Result{}, err
	}

	logger.Info("generating seo", logging.String(logging.FieldEventType, "seo_started"))
	seoText, err := p.deps.LLM.Complete(ctx, llm.AgentSEOWriter, rec.RawText("\n"))
	if err != nil {
		return Result{}, err
	}
	seo, err := llm.DecodeSEO(seoText)
	if err != nil {
		return Result{}, services.Wrap(services.ErrValidation, "producer", "decode seo", rec.Title, err)
	}
	rec.SEO = seo.Text()

	thumbnails, err := p.thumbnails(ctx, rec.Title, rec.Compositions)
	if err != nil {
		return Result{}, err
	}

	pageID, err := p.deps.Store.SaveScript(ctx, docstore.SaveRequest{
		Record:     rec,
		Status:     p.status,
		ScriptFile: transcript,
		Thumbnails: thumbnails,
		DatabaseID: r.databaseID,
	})
	if err != nil {
		return Result{}, err
	}
	logger.Info("script produced",
		logging.String(logging.FieldRecordID, pageID),
		logging.Int("segments", len(rec.Segments)),
		logging.Int("takes", len(rec.Audio)),
		logging.Int("thumbnails", len(thumbnails)),
		logging.String(logging.FieldEventType, "script_produced"))
	return Result{ID: pageID, Title: rec.Title}, nil
}
