package workflow

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"shortsmith/internal/journal"
	"shortsmith/internal/lifecycle"
	"shortsmith/internal/logging"
	"shortsmith/internal/notifications"
	"shortsmith/internal/script"
	"shortsmith/internal/services"
	"shortsmith/internal/staging"
	"shortsmith/internal/textutil"
)

// errClaimLost marks a record another process already moved on.
var errClaimLost = errors.New("record no longer in initial status")

// Run performs one render pass over every record in the initial status.
// Per-record failures are contained; the returned error is reserved for
// failures that stop the pass itself.
func (m *Manager) Run(ctx context.Context) (RunSummary, error) {
	started := m.now()
	summary := RunSummary{}

	records, err := m.deps.Store.RetrieveScripts(ctx, lifecycle.NotStarted, m.limit)
	if err != nil {
		return summary, services.Wrap(services.ErrExternalTool, "workflow", "retrieve scripts", "", err)
	}
	if len(records) == 0 {
		m.logger.Info("no scripts to process", logging.String(logging.FieldEventType, "render_pass_empty"))
		return summary, nil
	}
	m.logger.Info("render pass started",
		logging.Int("records", len(records)),
		logging.String(logging.FieldEventType, "render_pass_started"))

	slot := 0
	for i := range records {
		if err := ctx.Err(); err != nil {
			summary.Duration = m.now().Sub(started)
			return summary, err
		}
		rec := &records[i]
		if reason := skipReason(rec); reason != "" {
			summary.Skipped++
			logging.WarnWithContext(m.logger, "skipping record", "record_skipped",
				logging.String(logging.FieldRecordID, rec.ID),
				logging.String("title", rec.Title),
				logging.String("reason", reason),
				logging.String(logging.FieldImpact, "record stays in its current status"),
			)
			continue
		}
		published, err := m.process(ctx, rec, &slot)
		switch {
		case errors.Is(err, errClaimLost):
			summary.Skipped++
		case err != nil:
			summary.Failed++
		default:
			summary.Processed++
			summary.Published += published
		}
	}

	summary.Duration = m.now().Sub(started)
	m.logger.Info("render pass completed",
		logging.Int("processed", summary.Processed),
		logging.Int("failed", summary.Failed),
		logging.Int("skipped", summary.Skipped),
		logging.Int("published", summary.Published),
		logging.Duration("duration", summary.Duration),
		logging.String(logging.FieldEventType, "render_pass_completed"))
	m.notify(ctx, notifications.EventBatchCompleted, notifications.Payload{
		"processed": summary.Processed,
		"failed":    summary.Failed,
		"duration":  summary.Duration,
	})
	return summary, nil
}

func skipReason(rec *script.Record) string {
	switch {
	case rec.ID == "":
		return "record has no id"
	case len(rec.Segments) == 0:
		return "record has no segments"
	case len(rec.Audio) == 0:
		return "record has no audio"
	case len(rec.Compositions) == 0:
		return "record has no compositions"
	case len(rec.Audio) != 1 && len(rec.Audio) != len(rec.Segments):
		return fmt.Sprintf("record has %d audio takes for %d segments", len(rec.Audio), len(rec.Segments))
	}
	return ""
}

// process runs one record to Done (and Published when required). It returns
// how many videos were published.
func (m *Manager) process(ctx context.Context, rec *script.Record, slot *int) (int, error) {
	ctx = services.WithRecordID(ctx, rec.ID)
	logger := logging.WithContext(ctx, m.logger)

	if err := m.claim(ctx, rec); err != nil {
		if errors.Is(err, errClaimLost) {
			logger.Info("record claimed elsewhere",
				logging.String("title", rec.Title),
				logging.String(logging.FieldEventType, "claim_lost"))
			return 0, err
		}
		m.handleFailure(ctx, rec, "claim", err)
		return 0, err
	}

	tracker := staging.NewTracker(m.cfg.Paths.PublicDir, logger)
	defer tracker.Release()

	videos, stage, err := m.renderRecord(ctx, rec, tracker)
	if err != nil {
		m.handleFailure(ctx, rec, stage, err)
		return 0, err
	}

	outputs := make([]string, 0, len(videos))
	for _, v := range videos {
		outputs = append(outputs, v.path)
	}
	if err := m.deps.Store.SaveOutput(ctx, rec.ID, outputs); err != nil {
		m.handleFailure(ctx, rec, "output", err)
		return 0, err
	}
	if err := m.transition(ctx, rec, lifecycle.Done, "rendered"); err != nil {
		m.handleFailure(ctx, rec, "status", err)
		return 0, err
	}
	logger.Info("record rendered",
		logging.String("title", rec.Title),
		logging.Int("outputs", len(outputs)),
		logging.String(logging.FieldEventType, "record_done"))
	m.notify(ctx, notifications.EventRecordDone, notifications.Payload{
		"title":   rec.Title,
		"outputs": len(outputs),
	})

	seo, err := m.generateSEO(ctx, rec)
	if err != nil {
		m.reportAfterDone(ctx, rec, "seo", err)
		return 0, nil
	}
	return m.publish(ctx, rec, videos, seo, slot), nil
}

// claim re-reads the record status and moves it to InProgress only when it
// is still in the initial status.
func (m *Manager) claim(ctx context.Context, rec *script.Record) error {
	current, err := m.deps.Store.CurrentStatus(ctx, rec.ID)
	if err != nil {
		return services.Wrap(services.ErrExternalTool, "claim", "current status", rec.ID, err)
	}
	if !lifecycle.Eligible(current) {
		rec.Status = current
		return errClaimLost
	}
	rec.Status = current
	return m.transition(ctx, rec, lifecycle.InProgress, "claimed")
}

// renderRecord runs everything between the claim and attaching outputs. It
// returns the stage that failed alongside any error.
func (m *Manager) renderRecord(ctx context.Context, rec *script.Record, tracker *staging.Tracker) ([]renderedVideo, string, error) {
	written, err := m.deps.Store.DownloadAssets(ctx, rec)
	tracker.Track(written...)
	if err != nil {
		return nil, "assets", err
	}
	for _, track := range rec.Audio {
		tracker.Track(track.Src)
	}
	for _, seg := range rec.Segments {
		tracker.Track(seg.MediaSrc)
	}

	rec.Background = m.pickBackground(m.newSeed())
	for i := range rec.Segments {
		rec.Segments[i].Text = textutil.SanitizeCaption(rec.Segments[i].Text)
	}

	if err := m.align(ctx, rec); err != nil {
		return nil, "align", err
	}

	propsPath, err := m.writeProps(rec)
	tracker.Track(propsPath)
	if err != nil {
		return nil, "props", err
	}

	videos := make([]renderedVideo, 0, len(rec.Compositions))
	for _, comp := range rec.Compositions {
		video, err := m.renderComposition(ctx, rec, propsPath, comp)
		if err != nil {
			return nil, "render", err
		}
		videos = append(videos, video)
	}
	return videos, "", nil
}

// align fills word timings (and visemes when a composition animates mouths)
// for every take, then spreads them across segments.
func (m *Manager) align(ctx context.Context, rec *script.Record) error {
	wantVisemes := rec.NeedsVisemes()
	if wantVisemes && m.deps.Visemes == nil {
		return services.Wrap(services.ErrConfiguration, "align", "visemes",
			"a lip-synced composition was requested but no viseme aligner is configured", nil)
	}
	single := len(rec.Audio) == 1
	for i := range rec.Audio {
		text := rec.Segments[min(i, len(rec.Segments)-1)].Text
		if single {
			text = rec.SpokenText(" ")
		}
		path := m.localPath(rec.Audio[i].Src)
		spans, duration, err := m.deps.Words.Align(ctx, path, text)
		if err != nil {
			return err
		}
		rec.Audio[i].Alignment = spans
		rec.Audio[i].Duration = duration
		if wantVisemes {
			visemes, err := m.deps.Visemes.Align(ctx, path, text)
			if err != nil {
				return err
			}
			rec.Audio[i].Visemes = visemes
		}
	}
	if single {
		if err := script.PartitionAlignment(rec.Segments, rec.Audio[0].Alignment); err != nil {
			return services.Wrap(services.ErrValidation, "align", "partition", rec.ID, err)
		}
		return nil
	}
	if err := script.AttachTakes(rec.Segments, rec.Audio); err != nil {
		return services.Wrap(services.ErrValidation, "align", "attach takes", rec.ID, err)
	}
	return nil
}

// writeProps stores the record as the renderer's input props.
func (m *Manager) writeProps(rec *script.Record) (string, error) {
	path := filepath.Join(m.cfg.Paths.PublicDir, fmt.Sprintf("script-%s.json", rec.ID))
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return path, services.Wrap(services.ErrValidation, "props", "encode", rec.ID, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return path, services.Wrap(services.ErrTransient, "props", "write", path, err)
	}
	return path, nil
}

func (m *Manager) renderComposition(ctx context.Context, rec *script.Record, propsPath string, comp script.Composition) (renderedVideo, error) {
	path, err := m.deps.Renderer.Render(ctx, rec.Title, propsPath, comp)
	if err != nil {
		return renderedVideo{}, err
	}
	duration, err := m.deps.Prober.Duration(ctx, path)
	if err != nil {
		return renderedVideo{}, err
	}
	video := renderedVideo{composition: comp, path: path, duration: duration}

	factor, ok := RetimeFactor(duration, m.cfg.Render.ShortTargetSeconds, m.cfg.Render.ShortCeilingSeconds, comp.Orientation())
	if !ok {
		return video, nil
	}
	if m.deps.Retimer == nil {
		logging.WarnWithContext(m.logger, "retime skipped", "retime_unavailable",
			logging.String(logging.FieldComposition, string(comp)),
			logging.Float64("duration_seconds", duration),
			logging.String(logging.FieldImpact, "output exceeds the short-form target"),
		)
		return video, nil
	}
	retimed, err := m.deps.Retimer.SpeedUpVideo(ctx, path, factor)
	if err != nil {
		return renderedVideo{}, err
	}
	m.logger.Info("output retimed",
		logging.String(logging.FieldComposition, string(comp)),
		logging.Float64("duration_seconds", duration),
		logging.Float64("factor", factor),
		logging.String(logging.FieldEventType, "output_retimed"))
	video.path = retimed
	video.duration = duration / factor
	video.retimed = true
	return video, nil
}

// transition moves rec to status through the lifecycle rules, persists it,
// and mirrors it into the journal.
func (m *Manager) transition(ctx context.Context, rec *script.Record, status lifecycle.Status, reason string) error {
	from := rec.Status
	if err := lifecycle.Transition(from, status); err != nil {
		return services.Wrap(services.ErrValidation, "status", "transition", rec.ID, err)
	}
	if err := m.deps.Store.UpdateStatus(ctx, rec.ID, status); err != nil {
		return err
	}
	rec.Status = status
	m.journalTransition(ctx, rec, from, status, reason)
	return nil
}

func (m *Manager) journalTransition(ctx context.Context, rec *script.Record, from, to lifecycle.Status, reason string) {
	if m.deps.Journal == nil {
		return
	}
	err := m.deps.Journal.RecordTransition(ctx, journal.Transition{
		RecordID:  rec.ID,
		Title:     rec.Title,
		From:      from,
		To:        to,
		Reason:    reason,
		CreatedAt: m.now(),
	})
	if err != nil {
		logging.WarnWithContext(m.logger, "journal write failed", "journal_write_failed",
			logging.String(logging.FieldRecordID, rec.ID),
			logging.Error(err),
			logging.String(logging.FieldImpact, "history command will miss this transition"),
		)
	}
}

func (m *Manager) localPath(src string) string {
	if filepath.IsAbs(src) || filepath.Base(src) != src {
		return src
	}
	return filepath.Join(m.cfg.Paths.PublicDir, src)
}

// scheduleAt returns the publish time for the next slot. The first slot
// publishes immediately.
func (m *Manager) scheduleAt(slot int) time.Time {
	if slot <= 0 {
		return time.Time{}
	}
	return m.now().Add(time.Duration(slot) * m.stagger)
}
