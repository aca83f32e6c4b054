package logging

import (
	"context"
	"log/slog"

	"av1watch/internal/services"
)

// Standardized structured logging keys.
const (
	FieldComponent      = "component"
	FieldJobID          = "job_id"
	FieldStage          = "stage"
	FieldCorrelationID  = "correlation_id"
	FieldPath           = "path"
	FieldOutputPath     = "output_path"
	FieldEventType      = "event_type"
	FieldErrorHint      = "error_hint"
	FieldImpact         = "impact"
	FieldDecisionType   = "decision_type"
	FieldDecisionResult = "decision_result"
	FieldDecisionReason = "decision_reason"
)

// ContextFields extracts standardized slog attributes from the provided context.
func ContextFields(ctx context.Context) []slog.Attr {
	if ctx == nil {
		return nil
	}
	fields := make([]slog.Attr, 0, 3)
	if id, ok := services.JobIDFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldJobID, id))
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
	return logger.With(attrsToArgs(fields)...)
}
