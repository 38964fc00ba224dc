package workflow

import (
	"context"

	"shortsmith/internal/lifecycle"
	"shortsmith/internal/logging"
	"shortsmith/internal/notifications"
	"shortsmith/internal/script"
	"shortsmith/internal/services"
)

// handleFailure moves a claimed record to Error and reports the failure.
// Records that were never claimed keep their status.
func (m *Manager) handleFailure(ctx context.Context, rec *script.Record, stage string, err error) {
	details := services.Details(err)
	logger := logging.WithContext(services.WithStage(ctx, stage), m.logger)
	logging.ErrorWithContext(logger, "record failed", "record_failed",
		logging.String("title", rec.Title),
		logging.String("error_kind", details.Kind),
		logging.String(logging.FieldErrorHint, details.Hint),
		logging.Error(err),
	)

	if rec.Status == lifecycle.InProgress {
		from := rec.Status
		if updateErr := m.deps.Store.UpdateStatus(ctx, rec.ID, lifecycle.Error); updateErr != nil {
			logging.ErrorWithContext(logger, "failed to mark record as errored", "status_update_failed",
				logging.Error(updateErr),
				logging.String(logging.FieldImpact, "record stays In progress and will not be retried automatically"),
			)
		} else {
			rec.Status = lifecycle.Error
			m.journalTransition(ctx, rec, from, lifecycle.Error, stage+": "+err.Error())
		}
	}

	m.notify(ctx, notifications.EventRecordFailed, notifications.Payload{
		"title": rec.Title,
		"stage": stage,
		"error": err.Error(),
	})
}

// reportAfterDone reports a failure that happens once the record is Done.
// Done has no edge to Error, so the record keeps its status.
func (m *Manager) reportAfterDone(ctx context.Context, rec *script.Record, stage string, err error) {
	details := services.Details(err)
	logger := logging.WithContext(services.WithStage(ctx, stage), m.logger)
	logging.WarnWithContext(logger, "post-render step failed", "post_render_failed",
		logging.String("title", rec.Title),
		logging.String("error_kind", details.Kind),
		logging.String(logging.FieldErrorHint, details.Hint),
		logging.Error(err),
		logging.String(logging.FieldImpact, "record stays Done"),
	)
	m.journalTransition(ctx, rec, rec.Status, rec.Status, stage+" failed: "+err.Error())
	m.notify(ctx, notifications.EventRecordFailed, notifications.Payload{
		"title": rec.Title,
		"stage": stage,
		"error": err.Error(),
	})
}
