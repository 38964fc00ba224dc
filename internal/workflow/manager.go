package workflow

import (
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"shortsmith/internal/config"
	"shortsmith/internal/logging"
	"shortsmith/internal/notifications"
	"shortsmith/internal/script"
	"shortsmith/internal/services"
)

// Manager coordinates the render pass using injected collaborators.
type Manager struct {
	cfg      *config.Config
	deps     Collaborators
	logger   *slog.Logger
	notifier notifications.Service

	publishing []script.Channel
	stagger    time.Duration
	limit      int

	now     func() time.Time
	newSeed func() string
}

// ManagerOption configures optional Manager behavior.
type ManagerOption func(*Manager)

// WithNotifier replaces the notifier built from configuration.
func WithNotifier(n notifications.Service) ManagerOption {
	return func(m *Manager) {
		if n != nil {
			m.notifier = n
		}
	}
}

// WithClock overrides the time source used for publish scheduling.
func WithClock(now func() time.Time) ManagerOption {
	return func(m *Manager) {
		if now != nil {
			m.now = now
		}
	}
}

// WithSeedSource overrides the per-record background seed generator.
func WithSeedSource(fn func() string) ManagerOption {
	return func(m *Manager) {
		if fn != nil {
			m.newSeed = fn
		}
	}
}

// WithLimit caps how many records one pass pulls. Zero means no limit.
func WithLimit(limit int) ManagerOption {
	return func(m *Manager) {
		if limit > 0 {
			m.limit = limit
		}
	}
}

// NewManager constructs a render-pass manager. Store, Words, Renderer,
// Prober, and LLM are required.
func NewManager(cfg *config.Config, deps Collaborators, logger *slog.Logger, opts ...ManagerOption) (*Manager, error) {
	if cfg == nil {
		return nil, services.Wrap(services.ErrConfiguration, "workflow", "init", "configuration is required", nil)
	}
	missing := make([]string, 0, 5)
	if deps.Store == nil {
		missing = append(missing, "store")
	}
	if deps.Words == nil {
		missing = append(missing, "word aligner")
	}
	if deps.Renderer == nil {
		missing = append(missing, "renderer")
	}
	if deps.Prober == nil {
		missing = append(missing, "prober")
	}
	if deps.LLM == nil {
		missing = append(missing, "llm")
	}
	if len(missing) > 0 {
		return nil, services.Wrap(services.ErrConfiguration, "workflow", "init",
			"missing collaborators: "+strings.Join(missing, ", "), nil)
	}

	publishing := make([]script.Channel, 0, len(cfg.Publish.Channels))
	for _, ch := range cfg.Publish.Channels {
		publishing = append(publishing, script.Channel(ch))
	}
	stagger := time.Duration(cfg.Publish.StaggerMinutes) * time.Minute
	if stagger <= 0 {
		stagger = time.Hour
	}

	m := &Manager{
		cfg:        cfg,
		deps:       deps,
		logger:     logging.NewComponentLogger(logger, "workflow"),
		notifier:   notifications.NewService(cfg),
		publishing: publishing,
		stagger:    stagger,
		now:        time.Now,
		newSeed:    func() string { return uuid.NewString() },
	}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}
