package services

import "context"

type contextKey string

const (
	jobIDKey   contextKey = "job_id"
	stageKey   contextKey = "stage"
	mediaIDKey contextKey = "media_id"
)

// WithJobID annotates context with the pipeline job identifier.
func WithJobID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, jobIDKey, id)
}

// JobIDFromContext extracts the job identifier if present.
func JobIDFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(jobIDKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}

// WithStage annotates context with the pipeline stage name.
func WithStage(ctx context.Context, stage string) context.Context {
	if stage == "" {
		return ctx
	}
	return context.WithValue(ctx, stageKey, stage)
}

// StageFromContext returns the stage name if present.
func StageFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(stageKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}

// WithMediaID annotates context with the content fingerprint of the media
// being processed.
func WithMediaID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, mediaIDKey, id)
}

// MediaIDFromContext extracts the media fingerprint if present.
func MediaIDFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(mediaIDKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}
