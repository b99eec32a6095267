package services

import "context"

type contextKey string

const (
	channelContextKey contextKey = "whiskproc.channel"
	stageContextKey   contextKey = "whiskproc.stage"
	runIDContextKey   contextKey = "whiskproc.run_id"
)

// WithChannel attaches a channel label to the context.
func WithChannel(ctx context.Context, channel string) context.Context {
	if channel == "" {
		return ctx
	}
	return context.WithValue(ctx, channelContextKey, channel)
}

// ChannelFromContext extracts the channel label from the context.
func ChannelFromContext(ctx context.Context) (string, bool) {
	if ctx == nil {
		return "", false
	}
	value, ok := ctx.Value(channelContextKey).(string)
	return value, ok && value != ""
}

// WithStage attaches a pipeline stage name to the context.
func WithStage(ctx context.Context, stage string) context.Context {
	if stage == "" {
		return ctx
	}
	return context.WithValue(ctx, stageContextKey, stage)
}

// StageFromContext extracts the pipeline stage name from the context.
func StageFromContext(ctx context.Context) (string, bool) {
	if ctx == nil {
		return "", false
	}
	value, ok := ctx.Value(stageContextKey).(string)
	return value, ok && value != ""
}

// WithRunID attaches the run identifier to the context.
func WithRunID(ctx context.Context, runID string) context.Context {
	if runID == "" {
		return ctx
	}
	return context.WithValue(ctx, runIDContextKey, runID)
}

// RunIDFromContext extracts the run identifier from the context.
func RunIDFromContext(ctx context.Context) (string, bool) {
	if ctx == nil {
		return "", false
	}
	value, ok := ctx.Value(runIDContextKey).(string)
	return value, ok && value != ""
}
