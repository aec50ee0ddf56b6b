// Package locate builds resolution contexts for a point in source, a file or
// a declared symbol.
package locate

import (
	"context"
	"os"

	"nscope/internal/core/errors"
	"nscope/internal/engine/extractor"
	"nscope/internal/engine/symbol"
)

// Location is where a symbol is declared.
type Location struct {
	Path   string
	Offset int64
}

// Locator finds the declaration of a qualified symbol. Implementations are
// supplied by the host, for example a persisted symbol index.
type Locator interface {
	Locate(ctx context.Context, name symbol.Symbol) (Location, error)
}

// Factory returns the resolution context in effect at a given place.
type Factory struct {
	extractor *extractor.Extractor
	locator   Locator
}

// NewFactory returns a Factory. A nil extractor selects the default one; a
// nil locator disables FromSymbol.
func NewFactory(ex *extractor.Extractor, locator Locator) *Factory {
	if ex == nil {
		ex = extractor.NewExtractor(nil, nil)
	}
	return &Factory{extractor: ex, locator: locator}
}

// FromSource returns the context in effect at offset in source.
func (f *Factory) FromSource(source []byte, offset int) (extractor.ParsedContext, error) {
	contexts, err := f.extractor.Extract(source)
	if err != nil {
		return extractor.ParsedContext{}, err
	}
	return contextAtOffset(contexts, offset)
}

// FromFile returns the context in effect at offset in the file at path.
func (f *Factory) FromFile(path string, offset int) (extractor.ParsedContext, error) {
	source, err := os.ReadFile(path)
	if err != nil {
		return extractor.ParsedContext{}, errors.Read(path, err)
	}
	return f.FromSource(source, offset)
}

// FromSymbol returns the context a symbol was declared in.
func (f *Factory) FromSymbol(ctx context.Context, name symbol.Symbol) (extractor.ParsedContext, error) {
	if f.locator == nil {
		return extractor.ParsedContext{}, errors.AddContext(
			errors.New(errors.CodeNotFound, "no symbol locator configured"), errors.CtxSymbol, name.String())
	}
	loc, err := f.locator.Locate(ctx, name)
	if err != nil {
		return extractor.ParsedContext{}, err
	}
	return f.FromFile(loc.Path, int(loc.Offset))
}

// contextAtOffset falls back to the first context for offsets that precede
// every namespace declaration, so any offset in a valid source has a
// context.
func contextAtOffset(contexts extractor.ParsedContexts, offset int) (extractor.ParsedContext, error) {
	found, err := contexts.ContextAtOffset(offset)
	if err == nil {
		return found, nil
	}
	if offset >= 0 && len(contexts) > 0 {
		return contexts[0], nil
	}
	return extractor.ParsedContext{}, err
}
