package resolution

import (
	"nscope/internal/engine/symbol"
)

// Context is a primary namespace plus the use statements visible at one
// point in source. It is immutable; the alias index is built once.
type Context struct {
	primary symbol.Symbol
	uses    []UseStatement
	index   [3]map[string]symbol.Symbol
}

// NewContext builds a context. A zero or non-qualified primary namespace is
// treated as the global namespace. Duplicate aliases of the same kind are
// not rejected; the last one wins in the index.
func NewContext(primary symbol.Symbol, uses []UseStatement) *Context {
	if !primary.IsQualified() {
		primary = symbol.Root()
	}
	c := &Context{
		primary: primary,
		uses:    append([]UseStatement(nil), uses...),
	}
	for i := range c.index {
		c.index[i] = make(map[string]symbol.Symbol)
	}
	for _, use := range c.uses {
		c.index[use.kind][use.EffectiveAlias()] = use.symbol
	}
	return c
}

// RootContext is the context of a file with no namespace and no imports.
func RootContext() *Context {
	return NewContext(symbol.Root(), nil)
}

func (c *Context) PrimaryNamespace() symbol.Symbol {
	return c.primary
}

func (c *Context) UseStatements() []UseStatement {
	return append([]UseStatement(nil), c.uses...)
}

// SymbolByAlias looks alias up in the index for kind.
func (c *Context) SymbolByAlias(alias string, kind UseKind) (symbol.Symbol, bool) {
	if kind < 0 || int(kind) >= len(c.index) {
		return symbol.Symbol{}, false
	}
	sym, ok := c.index[kind][alias]
	return sym, ok
}

// IsEmpty reports whether the context has the root namespace and no imports.
func (c *Context) IsEmpty() bool {
	return c.primary.IsRoot() && len(c.uses) == 0
}

func (c *Context) Equal(other *Context) bool {
	if !c.primary.Equal(other.primary) || len(c.uses) != len(other.uses) {
		return false
	}
	for i := range c.uses {
		if !c.uses[i].Equal(other.uses[i]) {
			return false
		}
	}
	return true
}
