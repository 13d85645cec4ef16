package logging

import (
	"context"
	"log/slog"

	"subpipe/internal/services"
)

const (
	// FieldComponent is the standardized structured logging key for component names.
	FieldComponent = "component"
	// FieldEventType is the standardized structured logging key for lifecycle event names.
	FieldEventType = "event_type"
	// FieldJobID is the standardized structured logging key for pipeline job identifiers.
	FieldJobID = "job_id"
	// FieldStage is the standardized structured logging key for pipeline stage names.
	FieldStage = "stage"
	// FieldMediaID is the standardized structured logging key for media fingerprints.
	FieldMediaID = "media_id"
	// FieldErrorHint is the standardized structured logging key for operator guidance.
	FieldErrorHint = "error_hint"
	// FieldImpact is the standardized structured logging key for user-facing consequence of a warning.
	FieldImpact = "impact"
)

// Stage lifecycle and cache event names emitted by the caching subsystem.
const (
	EventStageRunning       = "stage_running"
	EventStageSkipped       = "stage_skipped"
	EventStageCompleted     = "stage_completed"
	EventStageFailed        = "stage_failed"
	EventCacheHit           = "cache_hit"
	EventCacheMiss          = "cache_miss"
	EventCacheStored        = "cache_stored"
	EventCacheRestoreFailed = "cache_restore_failed"
	EventCacheInvalidated   = "cache_invalidated"
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
	if id, ok := services.MediaIDFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldMediaID, id))
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
