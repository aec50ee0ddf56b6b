// Package app wires the engine packages to files on disk, the symbol store
// and the watcher.
package app

import (
	"fmt"
	"log/slog"
	"sync"

	"nscope/internal/core/config"
	"nscope/internal/data/symbols"
	"nscope/internal/engine/extractor"
	"nscope/internal/engine/locate"
	"nscope/internal/engine/planner"
	"nscope/internal/engine/resolution"
	"nscope/internal/engine/stream"
	"nscope/internal/shared/util"
)

type App struct {
	Config *config.Config
	Paths  config.ResolvedPaths

	extractor *extractor.Extractor
	resolver  *resolution.Resolver
	renderer  *resolution.Renderer
	planner   *planner.Planner
	editor    *stream.Editor
	factory   *locate.Factory
	filter    *util.PathFilter
	store     *symbols.Store

	contextCache   map[string]cachedContexts
	contextCacheMu sync.RWMutex
}

// New builds an App rooted at the project that contains cwd. The symbol
// store is opened only when cfg.DB.Enabled is set.
func New(cfg *config.Config, cwd string) (*App, error) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	paths, err := config.ResolvePaths(cfg, cwd)
	if err != nil {
		return nil, err
	}
	filter, err := util.NewPathFilter(cfg.Scan.Extensions, cfg.Scan.ExcludeDirs, cfg.Scan.ExcludeFiles)
	if err != nil {
		return nil, fmt.Errorf("compile scan filters: %w", err)
	}

	var store *symbols.Store
	if cfg.DB.Enabled {
		store, err = symbols.Open(paths.DBPath, cfg.DB.Project, cfg.DB.BusyTimeout)
		if err != nil {
			return nil, err
		}
		slog.Debug("symbol store opened", "path", paths.DBPath, "project", store.ProjectKey())
	}

	resolver := resolution.NewResolver()
	ex := extractor.NewExtractor(extractor.NewLexer(), resolver)

	a := &App{
		Config:       cfg,
		Paths:        paths,
		extractor:    ex,
		resolver:     resolver,
		renderer:     resolution.NewRenderer(),
		planner:      planner.NewPlanner(cfg.Planner.MaxReferenceAtoms),
		editor:       stream.NewEditor(cfg.Stream.BufferSize),
		filter:       filter,
		store:        store,
		contextCache: make(map[string]cachedContexts),
	}
	if store != nil {
		a.factory = locate.NewFactory(ex, store)
	} else {
		a.factory = locate.NewFactory(ex, nil)
	}
	return a, nil
}

// Store returns the symbol store, or nil when persistence is disabled.
func (a *App) Store() *symbols.Store {
	return a.store
}

func (a *App) Close() error {
	if a.store == nil {
		return nil
	}
	return a.store.Close()
}
