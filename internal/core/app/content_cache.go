package app

import (
	"os"
	"time"

	"github.com/cespare/xxhash/v2"

	"nscope/internal/core/errors"
	"nscope/internal/engine/extractor"
	"nscope/internal/shared/observability"
)

type cachedContexts struct {
	hash     uint64
	contexts extractor.ParsedContexts
}

// Contexts extracts the resolution contexts of the file at path. Results
// are cached by content hash.
func (a *App) Contexts(path string) (extractor.ParsedContexts, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Read(path, err)
	}
	return a.contextsFor(path, content)
}

func (a *App) contextsFor(path string, content []byte) (extractor.ParsedContexts, error) {
	sum := xxhash.Sum64(content)

	a.contextCacheMu.RLock()
	cached, ok := a.contextCache[path]
	a.contextCacheMu.RUnlock()
	if ok && cached.hash == sum {
		return cached.contexts, nil
	}

	start := time.Now()
	contexts, err := a.extractor.Extract(content)
	observability.ExtractionDuration.WithLabelValues("file").Observe(time.Since(start).Seconds())
	if err != nil {
		return nil, errors.AddContext(err, errors.CtxPath, path)
	}
	observability.ContextsExtractedTotal.Add(float64(len(contexts)))

	a.contextCacheMu.Lock()
	a.contextCache[path] = cachedContexts{hash: sum, contexts: contexts}
	a.contextCacheMu.Unlock()
	return contexts, nil
}

func (a *App) dropContexts(path string) {
	a.contextCacheMu.Lock()
	defer a.contextCacheMu.Unlock()
	delete(a.contextCache, path)
}
