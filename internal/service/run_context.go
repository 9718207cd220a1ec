package service

import (
	"context"

	"catalog_sync_v1/internal/runlog"
)

type runContextKey struct{}

type runScope struct {
	runID string
	sink  runlog.Sink
}

// WithRun 在 ctx 中携带本次运行的 ID 与运行日志
func WithRun(ctx context.Context, runID string, sink runlog.Sink) context.Context {
	return context.WithValue(ctx, runContextKey{}, runScope{runID: runID, sink: sink})
}

func runFromContext(ctx context.Context) (string, runlog.Sink) {
	if scope, ok := ctx.Value(runContextKey{}).(runScope); ok && scope.sink != nil {
		return scope.runID, scope.sink
	}
	return "", runlog.Std("[CatalogSync]")
}
