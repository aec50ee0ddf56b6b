package app

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"nscope/internal/core/errors"
	"nscope/internal/data/symbols"
	"nscope/internal/shared/observability"
)

// IndexResult summarises one Index call.
type IndexResult struct {
	RunID        string
	Files        int
	Contexts     int
	Declarations int
	Failed       map[string]error
	Duration     time.Duration
}

// ScanDirectories returns the absolute paths of every indexable file under
// roots, sorted and without duplicates.
func (a *App) ScanDirectories(roots []string) ([]string, error) {
	seen := make(map[string]bool)
	for _, root := range roots {
		absRoot, err := filepath.Abs(root)
		if err != nil {
			return nil, errors.Read(root, err)
		}
		err = filepath.WalkDir(absRoot, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return errors.Read(path, err)
			}
			if d.IsDir() {
				if path != absRoot && a.filter.SkipDir(path) {
					return filepath.SkipDir
				}
				return nil
			}
			if a.filter.Accept(path) {
				seen[path] = true
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	}

	files := make([]string, 0, len(seen))
	for path := range seen {
		files = append(files, path)
	}
	sort.Strings(files)
	return files, nil
}

// Index extracts every file under roots and records its declarations. With
// no roots the project root is indexed, and files that disappeared since
// the last full index are pruned from the store. Files that fail to read
// or extract are reported in Failed and keep their previous records.
func (a *App) Index(ctx context.Context, roots []string) (IndexResult, error) {
	ctx, span := observability.Tracer.Start(ctx, "app.Index")
	defer span.End()

	start := time.Now()
	fullScan := len(roots) == 0
	if fullScan {
		roots = []string{a.Paths.ProjectRoot}
	}

	files, err := a.ScanDirectories(roots)
	if err != nil {
		span.RecordError(err)
		return IndexResult{}, errors.AddContext(err, errors.CtxOperation, "scan_directories")
	}
	span.SetAttributes(attribute.Int("files", len(files)))

	result := IndexResult{Files: len(files), Failed: make(map[string]error)}

	var batch *symbols.Batch
	if a.store != nil {
		if result.RunID, err = a.store.StartRun(start); err != nil {
			return IndexResult{}, err
		}
		if batch, err = a.store.BeginBatch(); err != nil {
			return IndexResult{}, err
		}
	}
	rollback := func() {
		if batch != nil {
			_ = batch.Rollback()
		}
	}

	for _, path := range files {
		if err := ctx.Err(); err != nil {
			rollback()
			return IndexResult{}, err
		}
		records, contexts, err := a.extractFile(path)
		if err != nil {
			slog.Warn("failed to index file", "path", path, "error", err)
			result.Failed[path] = err
			continue
		}
		result.Contexts += contexts
		result.Declarations += len(records)
		if batch != nil {
			if err := batch.UpsertFile(path, records); err != nil {
				rollback()
				return IndexResult{}, err
			}
		}
	}

	if batch != nil {
		if fullScan {
			if err := batch.PruneToPaths(files); err != nil {
				rollback()
				return IndexResult{}, err
			}
		}
		if err := batch.Commit(); err != nil {
			return IndexResult{}, err
		}
	}

	result.Duration = time.Since(start)
	if a.store != nil {
		if err := a.store.FinishRun(result.RunID, start.Add(result.Duration), result.Files, result.Declarations); err != nil {
			slog.Warn("failed to record index run", "run_id", result.RunID, "error", err)
		}
	}

	observability.AnalysisDuration.WithLabelValues("index").Observe(result.Duration.Seconds())
	observability.DeclarationsIndexed.Set(float64(result.Declarations))
	span.SetAttributes(
		attribute.Int("declarations", result.Declarations),
		attribute.Int("failed", len(result.Failed)),
	)
	slog.Info("index complete",
		"run_id", result.RunID,
		"files", result.Files,
		"declarations", result.Declarations,
		"failed", len(result.Failed),
		"duration", result.Duration,
	)
	return result, nil
}

// ReindexFiles refreshes the records of individual files. Paths that no
// longer exist are removed from the store.
func (a *App) ReindexFiles(ctx context.Context, paths []string) error {
	ctx, span := observability.Tracer.Start(ctx, "app.ReindexFiles", trace.WithAttributes(attribute.Int("files", len(paths))))
	defer span.End()

	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return err
		}
		if _, err := os.Stat(path); os.IsNotExist(err) {
			a.dropContexts(path)
			if a.store != nil {
				if err := a.store.DeleteFile(path); err != nil {
					return err
				}
			}
			slog.Debug("file removed from index", "path", path)
			continue
		}

		records, _, err := a.extractFile(path)
		if err != nil {
			slog.Warn("failed to reindex file", "path", path, "error", err)
			continue
		}
		if a.store != nil {
			if err := a.store.UpsertFile(path, records); err != nil {
				return err
			}
		}
		slog.Debug("file reindexed", "path", path, "declarations", len(records))
	}
	return nil
}

func (a *App) extractFile(path string) ([]symbols.Record, int, error) {
	contexts, err := a.Contexts(path)
	if err != nil {
		return nil, 0, err
	}
	return symbols.RecordsFromContexts(path, contexts), len(contexts), nil
}
