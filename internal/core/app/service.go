package app

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"nscope/internal/core/errors"
	"nscope/internal/engine/extractor"
	"nscope/internal/engine/locate"
	"nscope/internal/engine/planner"
	"nscope/internal/engine/resolution"
	"nscope/internal/engine/symbol"
	"nscope/internal/shared/observability"
)

// RenderContexts returns the textual form of every context in path.
func (a *App) RenderContexts(path string) (string, error) {
	contexts, err := a.Contexts(path)
	if err != nil {
		return "", err
	}
	return contexts.Render(a.renderer), nil
}

// ContextAt returns the context in effect at pos in path.
func (a *App) ContextAt(path string, pos extractor.Position) (extractor.ParsedContext, error) {
	contexts, err := a.Contexts(path)
	if err != nil {
		return extractor.ParsedContext{}, err
	}
	parsed, err := contexts.ContextAt(pos)
	if err != nil {
		return extractor.ParsedContext{}, errors.AddContext(err, errors.CtxPath, path)
	}
	return parsed, nil
}

// Resolve qualifies ref as written at pos in path.
func (a *App) Resolve(ctx context.Context, path string, pos extractor.Position, ref symbol.Symbol, kind resolution.UseKind) (symbol.Symbol, error) {
	_, span := observability.Tracer.Start(ctx, "app.Resolve", trace.WithAttributes(
		attribute.String("path", path),
		attribute.String("reference", ref.String()),
	))
	defer span.End()

	parsed, err := a.ContextAt(path, pos)
	if err != nil {
		span.RecordError(err)
		return symbol.Symbol{}, err
	}
	return a.resolver.Resolve(parsed.Context, ref, kind)
}

// Shorten returns the shortest reference to qualified that resolves back
// to it at pos in path.
func (a *App) Shorten(ctx context.Context, path string, pos extractor.Position, qualified symbol.Symbol, kind resolution.UseKind) (symbol.Symbol, error) {
	_, span := observability.Tracer.Start(ctx, "app.Shorten", trace.WithAttributes(
		attribute.String("path", path),
		attribute.String("symbol", qualified.String()),
	))
	defer span.End()

	if !qualified.IsQualified() {
		return symbol.Symbol{}, errors.AddContext(
			errors.New(errors.CodeValidationError, "symbol to shorten must be qualified"), errors.CtxSymbol, qualified.String())
	}
	parsed, err := a.ContextAt(path, pos)
	if err != nil {
		span.RecordError(err)
		return symbol.Symbol{}, err
	}
	return a.resolver.Relative(parsed.Context, qualified, kind), nil
}

// PlanImports plans the use statements the context at index in path needs
// to reach targets. Statements the context already has are left out, and
// an alias that is already bound to another symbol is an error.
func (a *App) PlanImports(ctx context.Context, path string, index int, targets []planner.Target) ([]resolution.UseStatement, error) {
	_, span := observability.Tracer.Start(ctx, "app.PlanImports", trace.WithAttributes(
		attribute.String("path", path),
		attribute.Int("targets", len(targets)),
	))
	defer span.End()

	contexts, err := a.Contexts(path)
	if err != nil {
		return nil, err
	}
	parsed, err := contexts.At(index)
	if err != nil {
		return nil, errors.AddContext(err, errors.CtxPath, path)
	}
	return a.planFor(parsed, targets)
}

func (a *App) planFor(parsed extractor.ParsedContext, targets []planner.Target) ([]resolution.UseStatement, error) {
	planned, err := a.planner.PlanTargets(parsed.Context.PrimaryNamespace(), targets)
	if err != nil {
		return nil, err
	}
	out := make([]resolution.UseStatement, 0, len(planned))
	for _, use := range planned {
		if existing, ok := parsed.Context.SymbolByAlias(use.EffectiveAlias(), use.Kind()); ok {
			if existing.Equal(use.Symbol()) {
				continue
			}
			return nil, errors.AddContext(
				errors.New(errors.CodeValidationError, fmt.Sprintf("alias %q is already bound to %s", use.EffectiveAlias(), existing)),
				errors.CtxSymbol, use.Symbol().String())
		}
		out = append(out, use)
	}
	observability.ImportsPlannedTotal.Add(float64(len(out)))
	return out, nil
}

// Locate finds where name is declared and the context it was declared in.
func (a *App) Locate(ctx context.Context, name symbol.Symbol) (locate.Location, extractor.ParsedContext, error) {
	ctx, span := observability.Tracer.Start(ctx, "app.Locate", trace.WithAttributes(attribute.String("symbol", name.String())))
	defer span.End()

	if a.store == nil {
		return locate.Location{}, extractor.ParsedContext{}, errors.AddContext(
			errors.New(errors.CodeNotFound, "symbol store is disabled"), errors.CtxSymbol, name.String())
	}
	loc, err := a.store.Locate(ctx, name)
	if err != nil {
		span.RecordError(err)
		return locate.Location{}, extractor.ParsedContext{}, err
	}
	parsed, err := a.factory.FromSymbol(ctx, name)
	if err != nil {
		return locate.Location{}, extractor.ParsedContext{}, err
	}
	return loc, parsed, nil
}
