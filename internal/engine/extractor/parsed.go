package extractor

import (
	"strings"

	"nscope/internal/core/errors"
	"nscope/internal/engine/resolution"
	"nscope/internal/engine/symbol"
)

// DeclKind identifies what a declaration introduces.
type DeclKind int

const (
	DeclClass DeclKind = iota
	DeclInterface
	DeclTrait
	DeclEnum
	DeclFunction
	DeclConstant
)

func (k DeclKind) String() string {
	switch k {
	case DeclClass:
		return "class"
	case DeclInterface:
		return "interface"
	case DeclTrait:
		return "trait"
	case DeclEnum:
		return "enum"
	case DeclFunction:
		return "function"
	case DeclConstant:
		return "const"
	}
	return "unknown"
}

// UseKind maps the declaration to the alias table it is addressed through.
func (k DeclKind) UseKind() resolution.UseKind {
	switch k {
	case DeclFunction:
		return resolution.KindFunction
	case DeclConstant:
		return resolution.KindConstant
	}
	return resolution.KindClass
}

func declKindOf(tok TokenKind) DeclKind {
	switch tok {
	case TokenInterface:
		return DeclInterface
	case TokenTrait:
		return DeclTrait
	case TokenEnum:
		return DeclEnum
	case TokenFunction:
		return DeclFunction
	case TokenConst:
		return DeclConstant
	}
	return DeclClass
}

type Declaration struct {
	Symbol   symbol.Symbol
	Kind     DeclKind
	Position Position
	Offset   int
}

// Span is a half-open byte range [Start, End).
type Span struct {
	Start int
	End   int
}

// ParsedContext is one resolution context found in a source unit.
//
// Position and Offset locate the namespace keyword that opened the context,
// or the start of the source for the implicit global context. HeaderEnd is
// the offset just past the last statement of the namespace/use header, which
// is where new use statements can be inserted.
type ParsedContext struct {
	Context      *resolution.Context
	Position     Position
	Offset       int
	HeaderEnd    int
	UseSpans     []Span
	Declarations []Declaration
}

// DeclaredSymbols returns the qualified declared symbols in source order.
func (p ParsedContext) DeclaredSymbols() []symbol.Symbol {
	out := make([]symbol.Symbol, len(p.Declarations))
	for i, decl := range p.Declarations {
		out[i] = decl.Symbol
	}
	return out
}

// ParsedContexts is the ordered result of one extraction. It always holds
// at least one context.
type ParsedContexts []ParsedContext

func (p ParsedContexts) At(index int) (ParsedContext, error) {
	if index < 0 || index >= len(p) {
		return ParsedContext{}, errors.UndefinedContext(errors.CtxIndex, index)
	}
	return p[index], nil
}

// ContextAt returns the context in effect at pos: the last context that
// starts at or before it.
func (p ParsedContexts) ContextAt(pos Position) (ParsedContext, error) {
	for i := len(p) - 1; i >= 0; i-- {
		if p[i].Position.Compare(pos) <= 0 {
			return p[i], nil
		}
	}
	return ParsedContext{}, errors.UndefinedContext(errors.CtxPosition, pos.String())
}

// ContextAtOffset is ContextAt for a byte offset.
func (p ParsedContexts) ContextAtOffset(offset int) (ParsedContext, error) {
	for i := len(p) - 1; i >= 0; i-- {
		if p[i].Offset <= offset {
			return p[i], nil
		}
	}
	return ParsedContext{}, errors.UndefinedContext(errors.CtxOffset, offset)
}

// Render lists every context with an explicit namespace line followed by
// its use statements and declared symbols. Contexts are separated by one
// blank line.
func (p ParsedContexts) Render(r *resolution.Renderer) string {
	if r == nil {
		r = resolution.NewRenderer()
	}
	parts := make([]string, 0, len(p))
	for _, parsed := range p {
		nodes := r.ContextNodes(parsed.Context, true)
		for _, decl := range parsed.Declarations {
			nodes = append(nodes, resolution.DeclarationNode{Symbol: decl.Symbol})
		}
		parts = append(parts, r.RenderNodes(nodes))
	}
	return strings.Join(parts, "\n")
}
