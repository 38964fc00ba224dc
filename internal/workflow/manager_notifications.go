package workflow

import (
	"context"

	"shortsmith/internal/logging"
	"shortsmith/internal/notifications"
)

func (m *Manager) notify(ctx context.Context, event notifications.Event, payload notifications.Payload) {
	if m.notifier == nil {
		return
	}
	if err := m.notifier.Publish(ctx, event, payload); err != nil {
		logging.WarnWithContext(m.logger, "notification failed", "notification_failed",
			logging.String("event", string(event)),
			logging.Error(err),
			logging.String(logging.FieldImpact, "operators miss this update"),
		)
	}
}
