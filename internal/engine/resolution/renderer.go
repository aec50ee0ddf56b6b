package resolution

import (
	"strings"

	"nscope/internal/engine/symbol"
)

// Node is one renderable line of a context listing. The set of node kinds
// is closed: NamespaceNode, UseNode and DeclarationNode.
type Node interface {
	isNode()
}

// NamespaceNode renders "namespace X;". Explicit forces "namespace;" for
// the global namespace, which is otherwise omitted.
type NamespaceNode struct {
	Namespace symbol.Symbol
	Explicit  bool
}

type UseNode struct {
	Statement UseStatement
}

// DeclarationNode renders a declared qualified symbol as "\X\Y;".
type DeclarationNode struct {
	Symbol symbol.Symbol
}

func (NamespaceNode) isNode()   {}
func (UseNode) isNode()         {}
func (DeclarationNode) isNode() {}

// Renderer produces the canonical textual form of contexts.
type Renderer struct{}

func NewRenderer() *Renderer {
	return &Renderer{}
}

// ContextNodes lists the nodes of ctx. With explicitRoot the global
// namespace still gets a namespace line.
func (r *Renderer) ContextNodes(ctx *Context, explicitRoot bool) []Node {
	nodes := make([]Node, 0, len(ctx.uses)+1)
	if !ctx.primary.IsRoot() || explicitRoot {
		nodes = append(nodes, NamespaceNode{Namespace: ctx.primary, Explicit: explicitRoot})
	}
	for _, use := range ctx.uses {
		nodes = append(nodes, UseNode{Statement: use})
	}
	return nodes
}

// RenderContext renders the namespace line and the use statement block.
func (r *Renderer) RenderContext(ctx *Context) string {
	return r.RenderNodes(r.ContextNodes(ctx, false))
}

// RenderUseStatement renders the single-line form of use.
func (r *Renderer) RenderUseStatement(use UseStatement) string {
	return use.String()
}

// RenderNodes writes one line per node, separating runs of different node
// kinds with exactly one blank line.
func (r *Renderer) RenderNodes(nodes []Node) string {
	var b strings.Builder
	previous := -1
	for _, node := range nodes {
		group := nodeGroup(node)
		if previous >= 0 && group != previous {
			b.WriteString("\n")
		}
		previous = group

		switch n := node.(type) {
		case NamespaceNode:
			if n.Namespace.IsRoot() {
				b.WriteString("namespace;\n")
			} else {
				b.WriteString("namespace ")
				b.WriteString(n.Namespace.Name())
				b.WriteString(";\n")
			}
		case UseNode:
			b.WriteString(n.Statement.String())
			b.WriteString("\n")
		case DeclarationNode:
			b.WriteString(n.Symbol.String())
			b.WriteString(";\n")
		}
	}
	return b.String()
}

func nodeGroup(node Node) int {
	switch node.(type) {
	case NamespaceNode:
		return 0
	case UseNode:
		return 1
	default:
		return 2
	}
}
