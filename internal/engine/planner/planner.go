package planner

import (
	"sort"
	"strings"

	"nscope/internal/engine/resolution"
	"nscope/internal/engine/symbol"
)

// DefaultMaxReferenceAtoms is the deepest implicit same-namespace
// reference left without an import.
const DefaultMaxReferenceAtoms = 1

// Target is a qualified symbol that must be addressable from the planned
// context, and the alias table it is addressed through.
type Target struct {
	Symbol symbol.Symbol
	Kind   resolution.UseKind
}

// Planner computes the minimal set of use statements that make a group of
// qualified symbols addressable by short names.
type Planner struct {
	maxReferenceAtoms int
}

// NewPlanner returns a planner. Values below one select
// DefaultMaxReferenceAtoms.
func NewPlanner(maxReferenceAtoms int) *Planner {
	if maxReferenceAtoms < 1 {
		maxReferenceAtoms = DefaultMaxReferenceAtoms
	}
	return &Planner{maxReferenceAtoms: maxReferenceAtoms}
}

func (p *Planner) MaxReferenceAtoms() int {
	return p.maxReferenceAtoms
}

// Plan plans class imports for symbols as seen from primary.
func (p *Planner) Plan(primary symbol.Symbol, symbols []symbol.Symbol) ([]resolution.UseStatement, error) {
	targets := make([]Target, len(symbols))
	for i, sym := range symbols {
		targets[i] = Target{Symbol: sym, Kind: resolution.KindClass}
	}
	return p.PlanTargets(primary, targets)
}

// PlanTargets plans imports for targets of any kind. Aliases only compete
// within a kind. The result is sorted by rendered form.
func (p *Planner) PlanTargets(primary symbol.Symbol, targets []Target) ([]resolution.UseStatement, error) {
	if !primary.IsQualified() {
		primary = symbol.Root()
	}

	var out []resolution.UseStatement
	for _, kind := range []resolution.UseKind{resolution.KindClass, resolution.KindFunction, resolution.KindConstant} {
		var symbols []symbol.Symbol
		for _, target := range targets {
			if target.Kind == kind {
				symbols = append(symbols, target.Symbol)
			}
		}
		if len(symbols) == 0 {
			continue
		}
		uses, err := p.planKind(primary, dedupe(symbols), kind)
		if err != nil {
			return nil, err
		}
		out = append(out, uses...)
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].String() < out[j].String()
	})
	return out, nil
}

type candidate struct {
	symbol symbol.Symbol
	length int
	alias  string
}

func (p *Planner) planKind(primary symbol.Symbol, symbols []symbol.Symbol, kind resolution.UseKind) ([]resolution.UseStatement, error) {
	// First atoms of implicit references are names the planned aliases
	// must not shadow.
	implicit := make(map[string]bool)
	var candidates []*candidate
	for _, sym := range symbols {
		if sym.IsRoot() {
			continue
		}
		if rest, ok := sym.RelativeTo(primary); ok && rest.Len() <= p.maxReferenceAtoms {
			implicit[rest.AtomAt(0)] = true
			continue
		}
		candidates = append(candidates, &candidate{symbol: sym, length: 1, alias: sym.AtomAt(sym.Len() - 1)})
	}

	resolveCollisions(candidates, implicit)

	uses := make([]resolution.UseStatement, 0, len(candidates))
	for _, c := range candidates {
		alias := c.alias
		if alias == c.symbol.AtomAt(c.symbol.Len()-1) {
			alias = ""
		}
		use, err := resolution.NewUseStatement(c.symbol, alias, kind)
		if err != nil {
			return nil, err
		}
		uses = append(uses, use)
	}
	return uses, nil
}

// resolveCollisions widens every colliding alias by one trailing atom per
// round until all aliases are unique or no colliding alias can grow.
func resolveCollisions(candidates []*candidate, implicit map[string]bool) {
	for {
		counts := make(map[string]int, len(candidates))
		for _, c := range candidates {
			counts[c.alias]++
		}
		grew := false
		for _, c := range candidates {
			if counts[c.alias] < 2 && !implicit[c.alias] {
				continue
			}
			if c.length >= c.symbol.Len() {
				continue
			}
			c.length++
			c.alias = strings.Join(c.symbol.Tail(c.length).Atoms(), "")
			grew = true
		}
		if !grew {
			return
		}
	}
}

func dedupe(symbols []symbol.Symbol) []symbol.Symbol {
	seen := make(map[string]bool, len(symbols))
	out := make([]symbol.Symbol, 0, len(symbols))
	for _, sym := range symbols {
		key := sym.String()
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, sym)
	}
	return out
}
