package extractor

import (
	"nscope/internal/engine/resolution"
	"nscope/internal/engine/symbol"
)

type state int

const (
	stateStart state = iota
	statePotentialNamespaceName
	stateNamespaceName
	stateNamespaceHeader
	stateUseStatement
	stateUseStatementName
	stateUseStatementAlias
	stateSymbol
	stateSymbolHeader
	stateSymbolBody
)

// Extractor segments a source unit into resolution contexts. Statement and
// expression bodies are skipped by brace depth only. Output for
// syntactically invalid source is unspecified; the only errors come from
// names that fail atom validation.
type Extractor struct {
	tokenizer Tokenizer
	resolver  *resolution.Resolver
}

// NewExtractor builds an Extractor. Nil arguments select the default Lexer
// and Resolver.
func NewExtractor(tokenizer Tokenizer, resolver *resolution.Resolver) *Extractor {
	if tokenizer == nil {
		tokenizer = NewLexer()
	}
	if resolver == nil {
		resolver = resolution.NewResolver()
	}
	return &Extractor{tokenizer: tokenizer, resolver: resolver}
}

func (e *Extractor) Extract(source []byte) (ParsedContexts, error) {
	tokens, err := e.tokenizer.Tokenize(source)
	if err != nil {
		return nil, err
	}
	return e.ExtractTokens(tokens)
}

// ExtractTokens runs the state machine over an already tokenized source.
func (e *Extractor) ExtractTokens(tokens []Token) (ParsedContexts, error) {
	run := &extraction{resolver: e.resolver}
	run.resetContext(Position{Line: 1, Column: 1}, 0)
	if len(tokens) > 0 && tokens[0].Kind == TokenOpenTag {
		run.headerEnd = tokens[0].End()
	}
	for _, tok := range tokens {
		if err := run.step(tok); err != nil {
			return nil, err
		}
	}
	if err := run.flush(true); err != nil {
		return nil, err
	}
	return run.contexts, nil
}

type pendingDeclaration struct {
	atoms    []string
	kind     DeclKind
	position Position
	offset   int
}

// extraction is the mutable state of one ExtractTokens call.
type extraction struct {
	resolver *resolution.Resolver
	contexts ParsedContexts

	state state
	stack []state
	depth int
	atoms []string

	// Accumulated since the last context boundary.
	namespace    symbol.Symbol
	hasNamespace bool
	uses         []resolution.UseStatement
	useSpans     []Span
	declarations []pendingDeclaration
	position     Position
	offset       int
	headerEnd    int

	// Current use statement.
	useStart    int
	useKind     resolution.UseKind
	itemKind    resolution.UseKind
	hasItemKind bool
	groupPrefix []string
	inGroup     bool
	alias       string

	// Current declaration.
	declKind     DeclKind
	declPosition Position
	declOffset   int
	exprDepth    int
	namespaceTok Token
}

func (x *extraction) step(tok Token) error {
	switch x.state {
	case stateStart, stateNamespaceHeader:
		switch {
		case tok.Kind == TokenNamespace:
			x.stack = append(x.stack, x.state)
			x.namespaceTok = tok
			x.state = statePotentialNamespaceName
		case tok.Kind == TokenUse:
			x.useStart = tok.Offset
			x.useKind = resolution.KindClass
			x.state = stateUseStatement
		case isDeclarationKeyword(tok.Kind):
			x.declKind = declKindOf(tok.Kind)
			x.atoms = x.atoms[:0]
			x.state = stateSymbol
		}

	case statePotentialNamespaceName:
		switch {
		case tok.Kind == TokenSeparator:
			// namespace\X inside an expression.
			x.pop()
		case isName(tok) || tok.is("{"):
			x.stack = x.stack[:len(x.stack)-1]
			if err := x.flush(false); err != nil {
				return err
			}
			x.resetContext(x.namespaceTok.Position, x.namespaceTok.Offset)
			if tok.is("{") {
				x.hasNamespace = true
				x.namespace = symbol.Root()
				x.headerEnd = tok.End()
				x.state = stateNamespaceHeader
				return nil
			}
			x.atoms = append(x.atoms[:0], tok.Text)
			x.state = stateNamespaceName
		default:
			x.pop()
		}

	case stateNamespaceName:
		switch {
		case isName(tok):
			x.atoms = append(x.atoms, tok.Text)
		case tok.is(";") || tok.is("{"):
			ns, err := symbol.NewQualified(x.atoms...)
			if err != nil {
				return err
			}
			x.namespace, x.hasNamespace = ns, true
			x.atoms = x.atoms[:0]
			x.headerEnd = tok.End()
			x.state = stateNamespaceHeader
		}

	case stateUseStatement:
		switch {
		case tok.Kind == TokenFunction:
			x.setUseKind(resolution.KindFunction)
		case tok.Kind == TokenConst:
			x.setUseKind(resolution.KindConstant)
		case isName(tok):
			x.atoms = append(x.atoms[:0], tok.Text)
			x.state = stateUseStatementName
		case tok.is("}"):
			x.inGroup = false
			x.groupPrefix = nil
		case tok.is(";"):
			x.endUseStatement(tok)
		}

	case stateUseStatementName:
		switch {
		case tok.Kind == TokenAs:
			x.state = stateUseStatementAlias
		case isName(tok):
			x.atoms = append(x.atoms, tok.Text)
		case tok.is("{"):
			x.groupPrefix = append([]string(nil), x.atoms...)
			x.atoms = x.atoms[:0]
			x.inGroup = true
			x.state = stateUseStatement
		case tok.is(","):
			if err := x.emitUse(); err != nil {
				return err
			}
			x.state = stateUseStatement
		case tok.is("}"):
			if err := x.emitUse(); err != nil {
				return err
			}
			x.inGroup = false
			x.groupPrefix = nil
			x.state = stateUseStatement
		case tok.is(";"):
			if err := x.emitUse(); err != nil {
				return err
			}
			x.endUseStatement(tok)
		}

	case stateUseStatementAlias:
		if isName(tok) {
			x.alias = tok.Text
			if err := x.emitUse(); err != nil {
				return err
			}
			x.state = stateUseStatement
		}

	case stateSymbol:
		switch {
		case tok.Kind == TokenExtends || tok.Kind == TokenImplements ||
			tok.is("(") || tok.is("=") || tok.is(":"):
			x.endSymbolName()
			x.exprDepth = 0
			x.state = stateSymbolHeader
		case isName(tok):
			if len(x.atoms) == 0 {
				x.declPosition, x.declOffset = tok.Position, tok.Offset
			}
			x.atoms = append(x.atoms, tok.Text)
		case tok.is("{"):
			x.endSymbolName()
			x.depth++
			x.state = stateSymbolBody
		case tok.is(";"):
			x.endSymbolName()
			x.state = stateStart
		}

	case stateSymbolHeader:
		switch {
		case x.declKind == DeclConstant && (tok.is("(") || tok.is("[")):
			x.exprDepth++
		case x.declKind == DeclConstant && (tok.is(")") || tok.is("]")):
			x.exprDepth--
		case x.declKind == DeclConstant && tok.is(",") && x.exprDepth <= 0:
			// const A = 1, B = 2;
			x.atoms = x.atoms[:0]
			x.state = stateSymbol
		case tok.is("{"):
			x.depth++
			x.state = stateSymbolBody
		case tok.is(";"):
			x.state = stateStart
		}

	case stateSymbolBody:
		switch {
		case tok.is("{"):
			x.depth++
		case tok.is("}"):
			x.depth--
			if x.depth <= 0 {
				x.depth = 0
				x.state = stateStart
			}
		}
	}
	return nil
}

func (x *extraction) pop() {
	n := len(x.stack)
	if n == 0 {
		x.state = stateStart
		return
	}
	x.state = x.stack[n-1]
	x.stack = x.stack[:n-1]
}

func (x *extraction) setUseKind(kind resolution.UseKind) {
	if x.inGroup {
		x.itemKind, x.hasItemKind = kind, true
		return
	}
	x.useKind = kind
}

func (x *extraction) emitUse() error {
	atoms := append(append([]string(nil), x.groupPrefix...), x.atoms...)
	kind := x.useKind
	if x.hasItemKind {
		kind = x.itemKind
	}
	defer func() {
		x.atoms = x.atoms[:0]
		x.alias = ""
		x.hasItemKind = false
	}()

	sym, err := symbol.NewQualified(atoms...)
	if err != nil {
		return err
	}
	use, err := resolution.NewUseStatement(sym, x.alias, kind)
	if err != nil {
		return err
	}
	x.uses = append(x.uses, use)
	return nil
}

func (x *extraction) endUseStatement(tok Token) {
	x.useSpans = append(x.useSpans, Span{Start: x.useStart, End: tok.End()})
	x.headerEnd = tok.End()
	x.useKind = resolution.KindClass
	x.groupPrefix = nil
	x.inGroup = false
	x.state = stateNamespaceHeader
}

// endSymbolName records the accumulated declaration name. Anonymous
// functions and classes have no name and record nothing.
func (x *extraction) endSymbolName() {
	if len(x.atoms) == 0 {
		return
	}
	x.declarations = append(x.declarations, pendingDeclaration{
		atoms:    append([]string(nil), x.atoms...),
		kind:     x.declKind,
		position: x.declPosition,
		offset:   x.declOffset,
	})
	x.atoms = x.atoms[:0]
}

// flush closes the current context. Only the end-of-input boundary emits
// an empty context.
func (x *extraction) flush(final bool) error {
	if !final && !x.hasNamespace && len(x.uses) == 0 && len(x.declarations) == 0 {
		return nil
	}
	primary := symbol.Root()
	if x.hasNamespace {
		primary = x.namespace
	}
	ctx := resolution.NewContext(primary, x.uses)

	declarations := make([]Declaration, 0, len(x.declarations))
	for _, pending := range x.declarations {
		ref, err := symbol.NewReference(pending.atoms...)
		if err != nil {
			return err
		}
		qualified, err := x.resolver.Resolve(ctx, ref, pending.kind.UseKind())
		if err != nil {
			return err
		}
		declarations = append(declarations, Declaration{
			Symbol:   qualified,
			Kind:     pending.kind,
			Position: pending.position,
			Offset:   pending.offset,
		})
	}

	x.contexts = append(x.contexts, ParsedContext{
		Context:      ctx,
		Position:     x.position,
		Offset:       x.offset,
		HeaderEnd:    x.headerEnd,
		UseSpans:     x.useSpans,
		Declarations: declarations,
	})
	return nil
}

func (x *extraction) resetContext(pos Position, offset int) {
	x.namespace = symbol.Symbol{}
	x.hasNamespace = false
	x.uses = nil
	x.useSpans = nil
	x.declarations = nil
	x.position = pos
	x.offset = offset
	x.headerEnd = offset
}

func isDeclarationKeyword(kind TokenKind) bool {
	switch kind {
	case TokenClass, TokenInterface, TokenTrait, TokenEnum, TokenFunction, TokenConst:
		return true
	}
	return false
}

// isName reports whether tok can be an atom of a name. Keywords are valid
// atoms inside names, except the ones that delimit the surrounding
// construct.
func isName(tok Token) bool {
	switch tok.Kind {
	case TokenIdentifier:
		return true
	case TokenAs, TokenExtends, TokenImplements:
		return false
	}
	return tok.Kind.IsKeyword()
}
