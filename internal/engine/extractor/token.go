package extractor

import "fmt"

type TokenKind int

const (
	TokenEnd TokenKind = iota
	TokenOpenTag
	TokenIdentifier
	TokenVariable
	TokenString
	TokenNumber
	TokenSeparator
	TokenPunct

	TokenNamespace
	TokenUse
	TokenAs
	TokenClass
	TokenInterface
	TokenTrait
	TokenEnum
	TokenFunction
	TokenConst
	TokenExtends
	TokenImplements
)

var tokenKindNames = map[TokenKind]string{
	TokenEnd:        "end",
	TokenOpenTag:    "open-tag",
	TokenIdentifier: "identifier",
	TokenVariable:   "variable",
	TokenString:     "string",
	TokenNumber:     "number",
	TokenSeparator:  "separator",
	TokenPunct:      "punct",
	TokenNamespace:  "namespace",
	TokenUse:        "use",
	TokenAs:         "as",
	TokenClass:      "class",
	TokenInterface:  "interface",
	TokenTrait:      "trait",
	TokenEnum:       "enum",
	TokenFunction:   "function",
	TokenConst:      "const",
	TokenExtends:    "extends",
	TokenImplements: "implements",
}

var keywords = map[string]TokenKind{
	"namespace":  TokenNamespace,
	"use":        TokenUse,
	"as":         TokenAs,
	"class":      TokenClass,
	"interface":  TokenInterface,
	"trait":      TokenTrait,
	"enum":       TokenEnum,
	"function":   TokenFunction,
	"const":      TokenConst,
	"extends":    TokenExtends,
	"implements": TokenImplements,
}

func (k TokenKind) String() string {
	if name, ok := tokenKindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("token(%d)", int(k))
}

// IsKeyword reports whether k is one of the keywords the extractor reacts to.
func (k TokenKind) IsKeyword() bool {
	return k >= TokenNamespace
}

// Position is a 1-based line and column in source.
type Position struct {
	Line   int
	Column int
}

func (p Position) String() string {
	return fmt.Sprintf("%d:%d", p.Line, p.Column)
}

// Compare orders positions by line, then column.
func (p Position) Compare(other Position) int {
	switch {
	case p.Line < other.Line:
		return -1
	case p.Line > other.Line:
		return 1
	case p.Column < other.Column:
		return -1
	case p.Column > other.Column:
		return 1
	}
	return 0
}

// ParsePosition reads "line:column".
func ParsePosition(s string) (Position, error) {
	var p Position
	if _, err := fmt.Sscanf(s, "%d:%d", &p.Line, &p.Column); err != nil {
		return Position{}, fmt.Errorf("invalid position %q, expected line:column: %w", s, err)
	}
	if p.Line < 1 || p.Column < 1 {
		return Position{}, fmt.Errorf("invalid position %q, line and column are 1-based", s)
	}
	return p, nil
}

// Token is one lexical unit. Offset is the byte offset of Text in source.
type Token struct {
	Kind     TokenKind
	Text     string
	Position Position
	Offset   int
}

// End returns the byte offset just past the token.
func (t Token) End() int {
	return t.Offset + len(t.Text)
}

func (t Token) is(punct string) bool {
	return t.Kind == TokenPunct && t.Text == punct
}

// Tokenizer turns source text into an ordered token stream. Whitespace and
// comments are not part of the stream.
type Tokenizer interface {
	Tokenize(source []byte) ([]Token, error)
}
