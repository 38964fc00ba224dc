package workflow

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"shortsmith/internal/config"
	"shortsmith/internal/journal"
	"shortsmith/internal/lifecycle"
	"shortsmith/internal/logging"
	"shortsmith/internal/notifications"
	"shortsmith/internal/script"
	"shortsmith/internal/services/youtube"
	"shortsmith/internal/testsupport"
	"shortsmith/internal/textutil"
)

type statusUpdate struct {
	id     string
	status lifecycle.Status
}

type fakeStore struct {
	mu       sync.Mutex
	cfg      *config.Config
	records  []script.Record
	statuses map[string]lifecycle.Status
	updates  []statusUpdate
	outputs  map[string][]string
	seo      map[string]string
	written  map[string][]string
}

func newFakeStore(cfg *config.Config, records ...script.Record) *fakeStore {
	s := &fakeStore{
		cfg:      cfg,
		statuses: make(map[string]lifecycle.Status),
		outputs:  make(map[string][]string),
		seo:      make(map[string]string),
		written:  make(map[string][]string),
	}
	for _, rec := range records {
		s.records = append(s.records, rec)
		s.statuses[rec.ID] = rec.Status
	}
	return s
}

func (s *fakeStore) RetrieveScripts(_ context.Context, status lifecycle.Status, _ int) ([]script.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []script.Record
	for _, rec := range s.records {
		if rec.Status == status {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (s *fakeStore) CurrentStatus(_ context.Context, id string) (lifecycle.Status, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	status, ok := s.statuses[id]
	if !ok {
		return "", fmt.Errorf("record %s not found", id)
	}
	return status, nil
}

func (s *fakeStore) UpdateStatus(_ context.Context, id string, status lifecycle.Status) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.statuses[id] = status
	s.updates = append(s.updates, statusUpdate{id: id, status: status})
	return nil
}

// DownloadAssets simulates fetching remote audio into the public directory.
func (s *fakeStore) DownloadAssets(_ context.Context, rec *script.Record) ([]string, error) {
	var written []string
	for i := range rec.Audio {
		if !script.IsRemote(rec.Audio[i].Src) {
			continue
		}
		name := fmt.Sprintf("%s-take-%d.mp3", rec.ID, i)
		path := filepath.Join(s.cfg.Paths.PublicDir, name)
		if err := os.WriteFile(path, []byte("mp3"), 0o644); err != nil {
			return written, err
		}
		written = append(written, path)
		rec.Audio[i].Src = name
	}
	s.mu.Lock()
	s.written[rec.ID] = append(s.written[rec.ID], written...)
	s.mu.Unlock()
	return written, nil
}

func (s *fakeStore) SaveOutput(_ context.Context, id string, paths []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.outputs[id] = append(s.outputs[id], paths...)
	return nil
}

func (s *fakeStore) SetSEO(_ context.Context, id, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seo[id] = text
	return nil
}

func (s *fakeStore) history(id string) []lifecycle.Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []lifecycle.Status
	for _, u := range s.updates {
		if u.id == id {
			out = append(out, u.status)
		}
	}
	return out
}

// fakeWords returns one half-second span per word in text.
type fakeWords struct {
	calls []string
}

func (f *fakeWords) Align(_ context.Context, audioPath, text string) ([]script.WordSpan, float64, error) {
	if _, err := os.Stat(audioPath); err != nil {
		return nil, 0, err
	}
	f.calls = append(f.calls, text)
	words := strings.Fields(text)
	spans := make([]script.WordSpan, 0, len(words))
	for i, w := range words {
		spans = append(spans, script.WordSpan{Start: float64(i) * 0.5, End: float64(i+1) * 0.5, Text: w})
	}
	return spans, float64(len(words)) * 0.5, nil
}

type fakeVisemes struct {
	calls int
}

func (f *fakeVisemes) Align(context.Context, string, string) ([]script.VisemeSpan, error) {
	f.calls++
	return []script.VisemeSpan{{Start: 0, End: 0.5, Viseme: "A"}}, nil
}

type fakeRenderer struct {
	dir    string
	failOn map[string]bool
	props  []string
}

func (f *fakeRenderer) Render(_ context.Context, title, propsPath string, comp script.Composition) (string, error) {
	if f.failOn[title] {
		return "", errors.New("renderer exited with status 1")
	}
	if _, err := os.Stat(propsPath); err != nil {
		return "", err
	}
	f.props = append(f.props, propsPath)
	path := filepath.Join(f.dir, textutil.Slug(title)+"-"+string(comp)+".mp4")
	if err := os.WriteFile(path, []byte("mp4"), 0o644); err != nil {
		return "", err
	}
	return path, nil
}

type fakeProber struct {
	duration float64
}

func (f *fakeProber) Duration(context.Context, string) (float64, error) {
	return f.duration, nil
}

type fakeRetimer struct {
	factors []float64
}

func (f *fakeRetimer) SpeedUpVideo(_ context.Context, path string, factor float64) (string, error) {
	f.factors = append(f.factors, factor)
	ext := filepath.Ext(path)
	out := strings.TrimSuffix(path, ext) + "-SpeedUp" + ext
	return out, os.WriteFile(out, []byte("fast"), 0o644)
}

type fakeLLM struct {
	response string
	err      error
	prompts  []string
}

func (f *fakeLLM) Complete(_ context.Context, agent, prompt string) (string, error) {
	f.prompts = append(f.prompts, agent+":"+prompt)
	if f.err != nil {
		return "", f.err
	}
	return f.response, nil
}

type fakePublisher struct {
	videos []youtube.Video
	err    error
}

func (f *fakePublisher) Publish(_ context.Context, v youtube.Video) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.videos = append(f.videos, v)
	return fmt.Sprintf("https://www.youtube.com/watch?v=vid%d", len(f.videos)), nil
}

type fakeJournal struct {
	transitions  []journal.Transition
	publications []journal.Publication
}

func (f *fakeJournal) RecordTransition(_ context.Context, t journal.Transition) error {
	f.transitions = append(f.transitions, t)
	return nil
}

func (f *fakeJournal) RecordPublication(_ context.Context, p journal.Publication) error {
	f.publications = append(f.publications, p)
	return nil
}

func (f *fakeJournal) PublishedURL(_ context.Context, recordID, composition string) (string, bool, error) {
	for _, p := range f.publications {
		if p.RecordID == recordID && p.Composition == composition {
			return p.URL, true, nil
		}
	}
	return "", false, nil
}

type recordingNotifier struct {
	events []notifications.Event
}

func (r *recordingNotifier) Publish(_ context.Context, event notifications.Event, _ notifications.Payload) error {
	r.events = append(r.events, event)
	return nil
}

func (r *recordingNotifier) count(event notifications.Event) int {
	n := 0
	for _, e := range r.events {
		if e == event {
			n++
		}
	}
	return n
}

const seoResponse = `{"title":"Goroutines em 60s","description":"Concorrencia sem medo","tags":["go"],"hashtags":["#go","#shorts"]}`

type harness struct {
	cfg       *config.Config
	store     *fakeStore
	words     *fakeWords
	visemes   *fakeVisemes
	renderer  *fakeRenderer
	prober    *fakeProber
	retimer   *fakeRetimer
	llm       *fakeLLM
	publisher *fakePublisher
	journal   *fakeJournal
	notifier  *recordingNotifier
	now       time.Time
}

func newHarness(t *testing.T, records ...script.Record) *harness {
	t.Helper()
	cfg := testsupport.NewConfig(t, testsupport.WithDirectories(), testsupport.WithPublishChannels("CodeStack"))
	return &harness{
		cfg:       cfg,
		store:     newFakeStore(cfg, records...),
		words:     &fakeWords{},
		visemes:   &fakeVisemes{},
		renderer:  &fakeRenderer{dir: cfg.Paths.OutputDir, failOn: map[string]bool{}},
		prober:    &fakeProber{duration: 60},
		retimer:   &fakeRetimer{},
		llm:       &fakeLLM{response: seoResponse},
		publisher: &fakePublisher{},
		journal:   &fakeJournal{},
		notifier:  &recordingNotifier{},
		now:       time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
}

func (h *harness) manager(t *testing.T) *Manager {
	t.Helper()
	m, err := NewManager(h.cfg, Collaborators{
		Store:     h.store,
		Words:     h.words,
		Visemes:   h.visemes,
		Renderer:  h.renderer,
		Retimer:   h.retimer,
		Prober:    h.prober,
		LLM:       h.llm,
		Publisher: h.publisher,
		Journal:   h.journal,
	}, logging.NewNop(),
		WithNotifier(h.notifier),
		WithClock(func() time.Time { return h.now }),
		WithSeedSource(func() string { return "seed" }),
	)
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	return m
}

func newRecord(id, title string, comps ...script.Composition) script.Record {
	if len(comps) == 0 {
		comps = []script.Composition{script.Portrait}
	}
	return script.Record{
		ID:     id,
		Title:  title,
		Status: lifecycle.NotStarted,
		Segments: []script.Segment{
			{Speaker: script.Cody, Text: "Goroutines são leves."},
			{Speaker: script.Felippe, Text: "E <b>channels</b> conectam tudo."},
		},
		Audio:        []script.AudioTrack{{Src: "https://files.example.com/" + id + ".mp3", Name: id + ".mp3"}},
		Compositions: comps,
		Channels:     []script.Channel{script.CodeStack},
	}
}
