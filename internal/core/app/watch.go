package app

import (
	"context"
	"log/slog"
	"math"

	"nscope/internal/core/watcher"
	"nscope/internal/shared/util"
)

// Watch reindexes changed files under roots until ctx is done. With no
// roots the project root is watched. onBatch, when set, runs after each
// reindexed batch.
func (a *App) Watch(ctx context.Context, roots []string, onBatch func(paths []string, err error)) error {
	if len(roots) == 0 {
		roots = []string{a.Paths.ProjectRoot}
	}

	perSecond := a.Config.Watch.MaxFilesPerSecond
	burst := int(math.Ceil(perSecond))
	limiter := util.NewLimiter(perSecond, burst)

	w, err := watcher.NewWatcher(a.Config.Watch.Debounce, a.filter, limiter, func(ctx context.Context, paths []string) {
		err := a.ReindexFiles(ctx, paths)
		if err != nil {
			slog.Error("reindex failed", "files", len(paths), "error", err)
		} else {
			slog.Info("reindexed", "files", len(paths))
		}
		if onBatch != nil {
			onBatch(paths, err)
		}
	})
	if err != nil {
		return err
	}
	defer w.Close()

	if err := w.Watch(ctx, roots); err != nil {
		return err
	}
	slog.Info("watching for changes", "roots", roots, "debounce", a.Config.Watch.Debounce)
	<-ctx.Done()
	return nil
}
