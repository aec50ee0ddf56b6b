package resolution

import (
	"strings"

	"nscope/internal/engine/symbol"
)

// Resolver converts between references and qualified symbols for a
// context. It holds no state; one value can serve any number of callers.
//
// Unqualified function and constant references resolve relative to the
// primary namespace only. The runtime fallback to the global namespace
// needs whole-program knowledge and is not modelled.
type Resolver struct{}

func NewResolver() *Resolver {
	return &Resolver{}
}

// Resolve qualifies ref against ctx using the alias index for kind.
// Qualified input is returned unchanged.
func (r *Resolver) Resolve(ctx *Context, ref symbol.Symbol, kind UseKind) (symbol.Symbol, error) {
	if ref.IsQualified() {
		return ref, nil
	}
	if ctx == nil {
		ctx = RootContext()
	}

	normalized, err := ref.Normalize()
	if err != nil {
		return symbol.Symbol{}, err
	}
	atoms := normalized.Atoms()

	if strings.EqualFold(atoms[0], symbol.NamespaceAtom) {
		if len(atoms) == 1 {
			return ctx.PrimaryNamespace(), nil
		}
		rest, err := symbol.NewReference(atoms[1:]...)
		if err != nil {
			return symbol.Symbol{}, err
		}
		return ctx.PrimaryNamespace().Join(rest)
	}

	if imported, ok := ctx.SymbolByAlias(atoms[0], kind); ok {
		if len(atoms) == 1 {
			return imported, nil
		}
		rest, err := symbol.NewReference(atoms[1:]...)
		if err != nil {
			return symbol.Symbol{}, err
		}
		return imported.Join(rest)
	}

	return ctx.PrimaryNamespace().Join(normalized)
}

// Relative returns the shortest reference that resolves to qualified in ctx
// for kind. Use statement matches win over namespace containment, and the
// deepest matching import wins among use statements. When the
// namespace-relative form would be captured by an import alias, the
// explicit namespace operator form is returned instead.
func (r *Resolver) Relative(ctx *Context, qualified symbol.Symbol, kind UseKind) symbol.Symbol {
	if !qualified.IsQualified() {
		return qualified
	}
	if ctx == nil {
		ctx = RootContext()
	}

	var (
		best      UseStatement
		bestFound bool
	)
	for _, use := range ctx.uses {
		if use.kind != kind || !qualified.HasPrefix(use.symbol) {
			continue
		}
		// The index is authoritative when two statements share an alias.
		if indexed, _ := ctx.SymbolByAlias(use.EffectiveAlias(), kind); !indexed.Equal(use.symbol) {
			continue
		}
		if !bestFound || use.symbol.Len() > best.symbol.Len() {
			best, bestFound = use, true
		}
	}
	if bestFound {
		atoms := []string{best.EffectiveAlias()}
		if rest, ok := qualified.RelativeTo(best.symbol); ok {
			atoms = append(atoms, rest.Atoms()...)
		}
		ref, err := symbol.NewReference(atoms...)
		if err == nil {
			return ref
		}
	}

	primary := ctx.PrimaryNamespace()
	if qualified.Equal(primary) {
		ref, _ := symbol.NewReference(symbol.SelfAtom)
		return ref
	}
	if rest, ok := qualified.RelativeTo(primary); ok {
		if _, shadowed := ctx.SymbolByAlias(rest.AtomAt(0), kind); !shadowed && !strings.EqualFold(rest.AtomAt(0), symbol.NamespaceAtom) {
			return rest
		}
		ref, err := symbol.NewReference(append([]string{symbol.NamespaceAtom}, rest.Atoms()...)...)
		if err == nil {
			return ref
		}
	}
	return qualified
}
