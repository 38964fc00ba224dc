package workflow

import (
	"context"
	"strings"

	"shortsmith/internal/journal"
	"shortsmith/internal/lifecycle"
	"shortsmith/internal/logging"
	"shortsmith/internal/notifications"
	"shortsmith/internal/script"
	"shortsmith/internal/services"
	"shortsmith/internal/services/llm"
	"shortsmith/internal/services/youtube"
)

// generateSEO asks the SEO agent for publishing metadata and stores the
// rendered blob on the record.
func (m *Manager) generateSEO(ctx context.Context, rec *script.Record) (script.SEO, error) {
	content, err := m.deps.LLM.Complete(ctx, llm.AgentSEOWriter, rec.SpokenText("\n"))
	if err != nil {
		return script.SEO{}, err
	}
	seo, err := llm.DecodeSEO(content)
	if err != nil {
		return script.SEO{}, services.Wrap(services.ErrValidation, "seo", "decode", rec.ID, err)
	}
	text := seo.Text()
	if err := m.deps.Store.SetSEO(ctx, rec.ID, text); err != nil {
		return script.SEO{}, err
	}
	rec.SEO = text
	m.logger.Info("seo stored",
		logging.String(logging.FieldRecordID, rec.ID),
		logging.String("seo_title", seo.Title),
		logging.Int("hashtags", len(seo.Hashtags)),
		logging.String(logging.FieldEventType, "seo_stored"))
	return seo, nil
}

// publish uploads every rendered video for records destined to a publishing
// channel. The record moves to Published only when every composition has a
// URL. Each upload takes the next stagger slot of the pass.
func (m *Manager) publish(ctx context.Context, rec *script.Record, videos []renderedVideo, seo script.SEO, slot *int) int {
	if !rec.RequiresPublishing(m.publishing) {
		return 0
	}
	if m.deps.Publisher == nil {
		logging.WarnWithContext(m.logger, "publishing skipped", "publish_unavailable",
			logging.String(logging.FieldRecordID, rec.ID),
			logging.String(logging.FieldImpact, "record stays Done until published manually"),
			logging.String(logging.FieldErrorHint, "set publish.client_id, client_secret and refresh_token"),
		)
		return 0
	}

	title := seo.Title
	if strings.TrimSpace(title) == "" {
		title = rec.Title
	}
	uploaded := 0
	complete := true
	for _, v := range videos {
		comp := string(v.composition)
		if url, ok := m.publishedURL(ctx, rec.ID, comp); ok {
			m.logger.Info("composition already published",
				logging.String(logging.FieldRecordID, rec.ID),
				logging.String(logging.FieldComposition, comp),
				logging.String("url", url),
				logging.String(logging.FieldEventType, "publish_deduplicated"))
			continue
		}

		at := m.scheduleAt(*slot)
		*slot++
		video := youtube.Video{
			Path:        v.path,
			Title:       title,
			Description: seo.PublishDescription(),
			Tags:        seo.Tags,
			PublishAt:   at,
		}
		if thumb, ok := rec.ThumbnailFor(v.composition.Orientation()); ok {
			video.Thumbnail = m.localPath(thumb.Src)
		}
		url, err := m.deps.Publisher.Publish(ctx, video)
		if err != nil {
			complete = false
			m.reportAfterDone(ctx, rec, "publish", err)
			continue
		}
		uploaded++
		m.recordPublication(ctx, rec, comp, url, video)
		m.notify(ctx, notifications.EventPublished, notifications.Payload{
			"title":       title,
			"composition": comp,
			"url":         url,
		})
	}
	if !complete {
		return uploaded
	}
	if err := m.transition(ctx, rec, lifecycle.Published, "published"); err != nil {
		m.reportAfterDone(ctx, rec, "publish", err)
	}
	return uploaded
}

func (m *Manager) publishedURL(ctx context.Context, recordID, composition string) (string, bool) {
	if m.deps.Journal == nil {
		return "", false
	}
	url, ok, err := m.deps.Journal.PublishedURL(ctx, recordID, composition)
	if err != nil {
		logging.WarnWithContext(m.logger, "journal lookup failed", "journal_read_failed",
			logging.String(logging.FieldRecordID, recordID),
			logging.Error(err),
			logging.String(logging.FieldImpact, "composition may be uploaded twice"),
		)
		return "", false
	}
	return url, ok
}

func (m *Manager) recordPublication(ctx context.Context, rec *script.Record, composition, url string, video youtube.Video) {
	m.logger.Info("composition published",
		logging.String(logging.FieldRecordID, rec.ID),
		logging.String(logging.FieldComposition, composition),
		logging.String("url", url),
		logging.String(logging.FieldEventType, "composition_published"))
	if m.deps.Journal == nil {
		return
	}
	err := m.deps.Journal.RecordPublication(ctx, journal.Publication{
		RecordID:    rec.ID,
		Composition: composition,
		URL:         url,
		ScheduledAt: video.PublishAt,
		CreatedAt:   m.now(),
	})
	if err != nil {
		logging.WarnWithContext(m.logger, "journal write failed", "journal_write_failed",
			logging.String(logging.FieldRecordID, rec.ID),
			logging.Error(err),
			logging.String(logging.FieldImpact, "a later pass may upload this composition again"),
		)
	}
}
