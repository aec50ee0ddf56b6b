package resolution

import (
	"strings"

	"nscope/internal/core/errors"
	"nscope/internal/engine/symbol"
)

// UseKind selects which of the three alias namespaces a use statement
// imports into.
type UseKind int

const (
	KindClass UseKind = iota
	KindFunction
	KindConstant
)

func (k UseKind) String() string {
	switch k {
	case KindFunction:
		return "function"
	case KindConstant:
		return "const"
	default:
		return "class"
	}
}

// ParseUseKind accepts "class", "function" and "const" (or "constant").
func ParseUseKind(s string) (UseKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "class":
		return KindClass, nil
	case "function", "func":
		return KindFunction, nil
	case "const", "constant":
		return KindConstant, nil
	}
	return KindClass, errors.AddContext(errors.New(errors.CodeValidationError, "unknown use statement kind"), "kind", s)
}

// UseStatement is a single import: a qualified symbol, an optional alias
// and a kind.
type UseStatement struct {
	symbol symbol.Symbol
	alias  string
	kind   UseKind
}

// NewUseStatement validates and builds a use statement. An empty alias
// means the statement is addressed by the last atom of its symbol.
func NewUseStatement(sym symbol.Symbol, alias string, kind UseKind) (UseStatement, error) {
	if !sym.IsQualified() || sym.IsRoot() {
		return UseStatement{}, errors.AddContext(errors.New(errors.CodeValidationError, "use statement symbol must be a qualified, non-root symbol"), errors.CtxSymbol, sym.String())
	}
	if kind < KindClass || kind > KindConstant {
		return UseStatement{}, errors.AddContext(errors.New(errors.CodeValidationError, "unknown use statement kind"), "kind", int(kind))
	}
	if alias != "" {
		if err := ValidateAlias(alias); err != nil {
			return UseStatement{}, err
		}
	}
	return UseStatement{symbol: sym, alias: alias, kind: kind}, nil
}

// MustUseStatement is NewUseStatement for constant literals known to be
// valid, such as test fixtures. It panics on invalid input.
func MustUseStatement(name, alias string, kind UseKind) UseStatement {
	sym, err := symbol.Parse(name)
	if err == nil && !sym.IsQualified() {
		sym, err = symbol.NewQualified(sym.Atoms()...)
	}
	if err != nil {
		panic(err)
	}
	use, err := NewUseStatement(sym, alias, kind)
	if err != nil {
		panic(err)
	}
	return use
}

// ValidateAlias checks that alias is a single, non-special atom.
func ValidateAlias(alias string) error {
	if strings.Contains(alias, symbol.Separator) || symbol.IsSpecialAtom(alias) {
		return errors.InvalidAlias(alias)
	}
	if !symbol.IsValidAtom(alias) {
		return errors.InvalidAtom(alias)
	}
	return nil
}

func (u UseStatement) Symbol() symbol.Symbol {
	return u.symbol
}

// Alias returns the explicit alias, if any.
func (u UseStatement) Alias() (string, bool) {
	return u.alias, u.alias != ""
}

func (u UseStatement) Kind() UseKind {
	return u.kind
}

// EffectiveAlias is the name the statement is addressed by.
func (u UseStatement) EffectiveAlias() string {
	if u.alias != "" {
		return u.alias
	}
	return u.symbol.AtomAt(u.symbol.Len() - 1)
}

func (u UseStatement) Equal(other UseStatement) bool {
	return u.kind == other.kind && u.alias == other.alias && u.symbol.Equal(other.symbol)
}

// String renders the single-line form, e.g. "use function A\b as c;".
func (u UseStatement) String() string {
	var b strings.Builder
	b.WriteString("use ")
	switch u.kind {
	case KindFunction:
		b.WriteString("function ")
	case KindConstant:
		b.WriteString("const ")
	}
	b.WriteString(u.symbol.Name())
	if u.alias != "" {
		b.WriteString(" as ")
		b.WriteString(u.alias)
	}
	b.WriteString(";")
	return b.String()
}
