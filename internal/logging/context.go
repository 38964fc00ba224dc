package logging

import (
	"context"
	"log/slog"

	"shortsmith/internal/services"
)

const (
	// FieldComponent is the structured logging key for component names.
	FieldComponent = "component"
	// FieldRecordID is the structured logging key for document store record identifiers.
	FieldRecordID = "record_id"
	// FieldStage is the structured logging key for pipeline stage names.
	FieldStage = "stage"
	// FieldComposition is the structured logging key for video composition names.
	FieldComposition = "composition"
	// FieldCorrelationID is the structured logging key for request correlation identifiers.
	FieldCorrelationID = "correlation_id"
	FieldEventType     = "event_type"
	FieldErrorHint     = "error_hint"
	// FieldImpact is the user-facing consequence of a warning.
	FieldImpact = "impact"
)

// ContextFields extracts standardized slog attributes from the provided context.
func ContextFields(ctx context.Context) []slog.Attr {
	if ctx == nil {
		return nil
	}
	fields := make([]slog.Attr, 0, 3)
	if id, ok := services.RecordIDFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldRecordID, id))
	}
	if stage, ok := services.StageFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldStage, stage))
	}
	if rid, ok := services.RequestIDFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldCorrelationID, rid))
	}
	return fields
}

// WithContext returns a logger augmented with structured fields derived from the supplied context.
func WithContext(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if logger == nil {
		logger = NewNop()
	}
	fields := ContextFields(ctx)
	if len(fields) == 0 {
		return logger
	}
	return logger.With(Args(fields...)...)
}
