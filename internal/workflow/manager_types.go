package workflow

import (
	"context"
	"time"

	"shortsmith/internal/journal"
	"shortsmith/internal/lifecycle"
	"shortsmith/internal/script"
	"shortsmith/internal/services/youtube"
)

// Store is the document store surface the render pass needs.
type Store interface {
	RetrieveScripts(ctx context.Context, status lifecycle.Status, limit int) ([]script.Record, error)
	CurrentStatus(ctx context.Context, id string) (lifecycle.Status, error)
	UpdateStatus(ctx context.Context, id string, status lifecycle.Status) error
	DownloadAssets(ctx context.Context, rec *script.Record) ([]string, error)
	SaveOutput(ctx context.Context, id string, paths []string) error
	SetSEO(ctx context.Context, id, text string) error
}

// WordAligner produces word timings for an audio take.
type WordAligner interface {
	Align(ctx context.Context, audioPath, text string) ([]script.WordSpan, float64, error)
}

// VisemeAligner produces mouth-shape timings for an audio take.
type VisemeAligner interface {
	Align(ctx context.Context, audioPath, text string) ([]script.VisemeSpan, error)
}

// Renderer turns a props file into a video for one composition.
type Renderer interface {
	Render(ctx context.Context, title, propsPath string, composition script.Composition) (string, error)
}

// Retimer speeds up a rendered video.
type Retimer interface {
	SpeedUpVideo(ctx context.Context, path string, factor float64) (string, error)
}

// Prober measures media duration in seconds.
type Prober interface {
	Duration(ctx context.Context, path string) (float64, error)
}

// Completer runs a named language-model agent.
type Completer interface {
	Complete(ctx context.Context, agent, prompt string) (string, error)
}

// Publisher uploads a video and returns its public URL.
type Publisher interface {
	Publish(ctx context.Context, video youtube.Video) (string, error)
}

// Journal mirrors transitions and publications into the local run ledger.
type Journal interface {
	RecordTransition(ctx context.Context, t journal.Transition) error
	RecordPublication(ctx context.Context, p journal.Publication) error
	PublishedURL(ctx context.Context, recordID, composition string) (string, bool, error)
}

// Collaborators bundles the services a Manager drives. Publisher, Journal,
// Visemes, and Notifier are optional.
type Collaborators struct {
	Store     Store
	Words     WordAligner
	Visemes   VisemeAligner
	Renderer  Renderer
	Retimer   Retimer
	Prober    Prober
	LLM       Completer
	Publisher Publisher
	Journal   Journal
}

// RunSummary reports the outcome of one render pass.
type RunSummary struct {
	Processed int
	Failed    int
	Skipped   int
	Published int
	Duration  time.Duration
}

// renderedVideo is one composition's final output.
type renderedVideo struct {
	composition script.Composition
	path        string
	duration    float64
	retimed     bool
}
