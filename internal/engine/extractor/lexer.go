package extractor

import (
	"bytes"
	"sort"
	"strings"

	"github.com/viant/parsly"
	"github.com/viant/parsly/matcher"
)

const (
	whitespaceCode = iota
	blockCommentCode
	closeTagCode
	attributeCode
	lineCommentCode
	heredocCode
	quotedCode
	variableCode
	identifierCode
	numberCode
	separatorCode
	operatorCode
	anyCode
)

var whitespaceMatcher = parsly.NewToken(whitespaceCode, "Whitespace", matcher.NewWhiteSpace())
var blockCommentMatcher = parsly.NewToken(blockCommentCode, "BlockComment", matcher.NewSeqBlock("/*", "*/"))
var closeTagMatcher = parsly.NewToken(closeTagCode, "CloseTag", matcher.NewFragment("?>"))
var attributeMatcher = parsly.NewToken(attributeCode, "Attribute", matcher.NewFragment("#["))
var lineCommentMatcher = parsly.NewToken(lineCommentCode, "LineComment", &lineCommentMatch{})
var heredocMatcher = parsly.NewToken(heredocCode, "Heredoc", &heredocMatch{})
var singleQuotedMatcher = parsly.NewToken(quotedCode, "SingleQuoted", matcher.NewBlock('\'', '\'', '\\'))
var doubleQuotedMatcher = parsly.NewToken(quotedCode, "DoubleQuoted", matcher.NewBlock('"', '"', '\\'))
var backtickMatcher = parsly.NewToken(quotedCode, "Backtick", &backtickMatch{})
var variableMatcher = parsly.NewToken(variableCode, "Variable", &variableMatch{})
var identifierMatcher = parsly.NewToken(identifierCode, "Identifier", &identifierMatch{})
var numberMatcher = parsly.NewToken(numberCode, "Number", &numberMatch{})
var separatorMatcher = parsly.NewToken(separatorCode, "Separator", matcher.NewByte('\\'))
var operatorMatcher = parsly.NewToken(operatorCode, "Operator", matcher.NewFragments(
	[]byte("?->"), []byte("->"), []byte("::"), []byte("=>"),
))
var anyMatcher = parsly.NewToken(anyCode, "Any", &anyMatch{})

type anyMatch struct{}

func (a *anyMatch) Match(cursor *parsly.Cursor) int {
	if cursor.Pos < cursor.InputSize {
		return 1
	}
	return 0
}

type identifierMatch struct{}

func (i *identifierMatch) Match(cursor *parsly.Cursor) int {
	if cursor.Pos >= cursor.InputSize || !isIdentifierStart(cursor.Input[cursor.Pos]) {
		return 0
	}
	pos := cursor.Pos + 1
	for pos < cursor.InputSize && isIdentifierPart(cursor.Input[pos]) {
		pos++
	}
	return pos - cursor.Pos
}

type variableMatch struct{}

func (v *variableMatch) Match(cursor *parsly.Cursor) int {
	if cursor.Pos >= cursor.InputSize || cursor.Input[cursor.Pos] != '$' {
		return 0
	}
	pos := cursor.Pos + 1
	for pos < cursor.InputSize && isIdentifierPart(cursor.Input[pos]) {
		pos++
	}
	return pos - cursor.Pos
}

type numberMatch struct{}

func (n *numberMatch) Match(cursor *parsly.Cursor) int {
	if cursor.Pos >= cursor.InputSize {
		return 0
	}
	if c := cursor.Input[cursor.Pos]; c < '0' || c > '9' {
		return 0
	}
	pos := cursor.Pos + 1
	for pos < cursor.InputSize && (isIdentifierPart(cursor.Input[pos]) || cursor.Input[pos] == '.') {
		pos++
	}
	return pos - cursor.Pos
}

// lineCommentMatch covers "//" and "#" comments, which end at a newline or
// at a close tag.
type lineCommentMatch struct{}

func (l *lineCommentMatch) Match(cursor *parsly.Cursor) int {
	input, start := cursor.Input, cursor.Pos
	switch {
	case start+1 < cursor.InputSize && input[start] == '/' && input[start+1] == '/':
	case start < cursor.InputSize && input[start] == '#':
	default:
		return 0
	}
	pos := start + 1
	for pos < cursor.InputSize && input[pos] != '\n' {
		if input[pos] == '?' && pos+1 < cursor.InputSize && input[pos+1] == '>' {
			break
		}
		pos++
	}
	return pos - start
}

// backtickMatch covers shell-exec strings up to the next unescaped
// backtick. An unterminated string runs to the end of input.
type backtickMatch struct{}

func (b *backtickMatch) Match(cursor *parsly.Cursor) int {
	input, start := cursor.Input, cursor.Pos
	if start >= cursor.InputSize || input[start] != '`' {
		return 0
	}
	for pos := start + 1; pos < cursor.InputSize; pos++ {
		switch input[pos] {
		case '\\':
			pos++
		case '`':
			return pos + 1 - start
		}
	}
	return cursor.InputSize - start
}

// heredocMatch covers heredoc and nowdoc literals, including the closing
// identifier.
type heredocMatch struct{}

func (h *heredocMatch) Match(cursor *parsly.Cursor) int {
	input, start := cursor.Input, cursor.Pos
	if !bytes.HasPrefix(input[start:cursor.InputSize], []byte("<<<")) {
		return 0
	}
	pos := start + 3
	for pos < cursor.InputSize && (input[pos] == ' ' || input[pos] == '\t') {
		pos++
	}
	quote := byte(0)
	if pos < cursor.InputSize && (input[pos] == '\'' || input[pos] == '"') {
		quote = input[pos]
		pos++
	}
	labelStart := pos
	for pos < cursor.InputSize && isIdentifierPart(input[pos]) {
		pos++
	}
	label := input[labelStart:pos]
	if len(label) == 0 || !isIdentifierStart(label[0]) {
		return 0
	}
	if quote != 0 {
		if pos >= cursor.InputSize || input[pos] != quote {
			return 0
		}
		pos++
	}
	for pos < cursor.InputSize {
		newline := bytes.IndexByte(input[pos:cursor.InputSize], '\n')
		if newline < 0 {
			return cursor.InputSize - start
		}
		line := pos + newline + 1
		for line < cursor.InputSize && (input[line] == ' ' || input[line] == '\t') {
			line++
		}
		end := line + len(label)
		if end <= cursor.InputSize && bytes.Equal(input[line:end], label) &&
			(end == cursor.InputSize || !isIdentifierPart(input[end])) {
			return end - start
		}
		pos = pos + newline + 1
	}
	return cursor.InputSize - start
}

func isIdentifierStart(b byte) bool {
	return (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z') || b == '_' || b >= 0x7f
}

func isIdentifierPart(b byte) bool {
	return isIdentifierStart(b) || (b >= '0' && b <= '9')
}

// Lexer is the default Tokenizer. Text outside "<?php" / "<?=" ... "?>"
// is inline HTML and produces no tokens; a source without any open tag is
// lexed as code from the first byte.
type Lexer struct{}

func NewLexer() *Lexer {
	return &Lexer{}
}

func (l *Lexer) Tokenize(source []byte) ([]Token, error) {
	lines := newLineIndex(source)
	cursor := parsly.NewCursor("", source, 0)
	var tokens []Token

	emit := func(kind TokenKind, offset, end int) {
		tokens = append(tokens, Token{
			Kind:     kind,
			Text:     string(source[offset:end]),
			Position: lines.position(offset),
			Offset:   offset,
		})
	}

	if hasOpenTag(source) {
		start, end, ok := findOpenTag(source, 0)
		if !ok {
			return tokens, nil
		}
		emit(TokenOpenTag, start, end)
		cursor.Pos = end
	}

	for cursor.Pos < cursor.InputSize {
		offset := cursor.Pos
		matched := cursor.MatchAny(whitespaceMatcher,
			blockCommentMatcher,
			closeTagMatcher,
			attributeMatcher,
			lineCommentMatcher,
			heredocMatcher,
			singleQuotedMatcher,
			doubleQuotedMatcher,
			backtickMatcher,
			variableMatcher,
			identifierMatcher,
			numberMatcher,
			separatorMatcher,
			operatorMatcher,
			anyMatcher,
		)
		if cursor.Pos <= offset {
			cursor.Pos = offset + 1
		}
		end := cursor.Pos

		switch matched.Code {
		case whitespaceCode, blockCommentCode, lineCommentCode:
		case closeTagCode:
			// A close tag terminates the statement it follows.
			tokens = append(tokens, Token{Kind: TokenPunct, Text: ";", Position: lines.position(offset), Offset: offset})
			start, tagEnd, ok := findOpenTag(source, end)
			if !ok {
				return tokens, nil
			}
			emit(TokenOpenTag, start, tagEnd)
			cursor.Pos = tagEnd
		case attributeCode, operatorCode:
			emit(TokenPunct, offset, end)
		case heredocCode, quotedCode:
			emit(TokenString, offset, end)
		case variableCode:
			emit(TokenVariable, offset, end)
		case numberCode:
			emit(TokenNumber, offset, end)
		case separatorCode:
			emit(TokenSeparator, offset, end)
		case identifierCode:
			emit(identifierKind(string(source[offset:end]), tokens), offset, end)
		default:
			emit(TokenPunct, offset, end)
		}
	}
	return tokens, nil
}

// identifierKind classifies a word. Keywords lose their meaning after a
// member or static access operator, and after a namespace separator.
func identifierKind(word string, previous []Token) TokenKind {
	kind, ok := keywords[strings.ToLower(word)]
	if !ok {
		return TokenIdentifier
	}
	if n := len(previous); n > 0 {
		last := previous[n-1]
		if last.Kind == TokenSeparator || last.is("::") || last.is("->") || last.is("?->") {
			return TokenIdentifier
		}
	}
	return kind
}

func hasOpenTag(source []byte) bool {
	_, _, ok := findOpenTag(source, 0)
	return ok
}

// findOpenTag locates the next "<?php" (case-insensitive) or "<?=" at or
// after from.
func findOpenTag(source []byte, from int) (int, int, bool) {
	for pos := from; pos < len(source); {
		idx := bytes.Index(source[pos:], []byte("<?"))
		if idx < 0 {
			return 0, 0, false
		}
		start := pos + idx
		rest := source[start+2:]
		switch {
		case len(rest) >= 3 && strings.EqualFold(string(rest[:3]), "php"):
			end := start + 5
			if end < len(source) && !isIdentifierPart(source[end]) || end == len(source) {
				return start, end, true
			}
		case len(rest) >= 1 && rest[0] == '=':
			return start, start + 3, true
		}
		pos = start + 2
	}
	return 0, 0, false
}

type lineIndex []int

func newLineIndex(source []byte) lineIndex {
	starts := lineIndex{0}
	for i, b := range source {
		if b == '\n' {
			starts = append(starts, i+1)
		}
	}
	return starts
}

func (l lineIndex) position(offset int) Position {
	line := sort.Search(len(l), func(i int) bool { return l[i] > offset }) - 1
	return Position{Line: line + 1, Column: offset - l[line] + 1}
}
