package query

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/google/uuid"
)

// TokenType represents the type of a token
type TokenType int

const (
	TokenEOF TokenType = iota
	TokenIdentifier
	TokenString
	TokenNumber
	TokenTemporal
	TokenTyped
	TokenBoolean
	TokenNull
	TokenParameter
	TokenOperator
	TokenLogical
	TokenNot
	TokenLParen
	TokenRParen
	TokenComma
	TokenSlash
	TokenColon
)

var tokenNames = map[TokenType]string{
	TokenEOF:        "end of input",
	TokenIdentifier: "identifier",
	TokenString:     "string",
	TokenNumber:     "number",
	TokenTemporal:   "date/time",
	TokenTyped:      "typed literal",
	TokenBoolean:    "boolean",
	TokenNull:       "null",
	TokenParameter:  "parameter alias",
	TokenOperator:   "operator",
	TokenLogical:    "logical operator",
	TokenNot:        "not",
	TokenLParen:     "'('",
	TokenRParen:     "')'",
	TokenComma:      "','",
	TokenSlash:      "'/'",
	TokenColon:      "':'",
}

func (t TokenType) String() string {
	if name, ok := tokenNames[t]; ok {
		return name
	}
	return fmt.Sprintf("token(%d)", int(t))
}

// Token represents a single token in the filter expression.
// For TokenTyped, Prefix holds the type prefix (guid, binary, duration or a
// qualified enum type) and Value the quoted text.
type Token struct {
	Type   TokenType
	Value  string
	Prefix string
	Pos    int
}

// Tokenizer tokenizes OData filter expressions
type Tokenizer struct {
	input string
	pos   int
	ch    rune
}

// NewTokenizer creates a new tokenizer
func NewTokenizer(input string) *Tokenizer {
	t := &Tokenizer{input: input}
	if len(input) > 0 {
		t.ch = rune(input[0])
	}
	return t
}

// advance moves to the next character
func (t *Tokenizer) advance() {
	t.pos++
	if t.pos >= len(t.input) {
		t.ch = 0 // EOF
	} else {
		t.ch = rune(t.input[t.pos])
	}
}

// peek looks ahead without advancing
func (t *Tokenizer) peek() rune {
	if t.pos+1 >= len(t.input) {
		return 0
	}
	return rune(t.input[t.pos+1])
}

func (t *Tokenizer) skipWhitespace() {
	for t.ch == ' ' || t.ch == '\t' || t.ch == '\n' || t.ch == '\r' {
		t.advance()
	}
}

// readString reads a single-quoted string where '' stands for one quote.
func (t *Tokenizer) readString() (string, error) {
	start := t.pos
	t.advance() // opening quote

	var result strings.Builder
	for {
		switch {
		case t.ch == 0:
			return "", fmt.Errorf("%w: unterminated string at position %d", ErrInvalidFilterSyntax, start)
		case t.ch == '\'' && t.peek() == '\'':
			result.WriteByte('\'')
			t.advance()
			t.advance()
		case t.ch == '\'':
			t.advance()
			return result.String(), nil
		default:
			result.WriteByte(byte(t.ch))
			t.advance()
		}
	}
}

func (t *Tokenizer) readWhile(accept func(rune) bool) string {
	start := t.pos
	for t.ch != 0 && accept(t.ch) {
		t.advance()
	}
	return t.input[start:t.pos]
}

func isIdentifierRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' || r == '.'
}

func isNumberRune(r rune) bool {
	return unicode.IsDigit(r) || r == '.' || r == 'e' || r == 'E'
}

func isTemporalRune(r rune) bool {
	return unicode.IsDigit(r) || strings.ContainsRune("-:.TZ+", r)
}

// NextToken returns the next token
func (t *Tokenizer) NextToken() (*Token, error) {
	t.skipWhitespace()

	pos := t.pos
	if t.ch == 0 {
		return &Token{Type: TokenEOF, Pos: pos}, nil
	}

	switch t.ch {
	case '(':
		t.advance()
		return &Token{Type: TokenLParen, Value: "(", Pos: pos}, nil
	case ')':
		t.advance()
		return &Token{Type: TokenRParen, Value: ")", Pos: pos}, nil
	case ',':
		t.advance()
		return &Token{Type: TokenComma, Value: ",", Pos: pos}, nil
	case '/':
		t.advance()
		return &Token{Type: TokenSlash, Value: "/", Pos: pos}, nil
	case ':':
		t.advance()
		return &Token{Type: TokenColon, Value: ":", Pos: pos}, nil
	case '\'':
		value, err := t.readString()
		if err != nil {
			return nil, err
		}
		return &Token{Type: TokenString, Value: value, Pos: pos}, nil
	case '@':
		t.advance()
		name := t.readWhile(isIdentifierRune)
		if name == "" {
			return nil, fmt.Errorf("%w: empty parameter alias at position %d", ErrInvalidFilterSyntax, pos)
		}
		return &Token{Type: TokenParameter, Value: name, Pos: pos}, nil
	}

	if token := t.tokenizeBareGUID(pos); token != nil {
		return token, nil
	}

	if unicode.IsDigit(t.ch) || (t.ch == '-' && unicode.IsDigit(t.peek())) {
		return t.tokenizeNumber(pos), nil
	}

	if unicode.IsLetter(t.ch) || t.ch == '_' {
		return t.tokenizeIdentifierOrKeyword(pos)
	}

	return nil, fmt.Errorf("%w: unexpected character '%c' at position %d", ErrInvalidFilterSyntax, t.ch, t.pos)
}

// guidLength is the length of the 8-4-4-4-12 form.
const guidLength = 36

// tokenizeBareGUID reads an unprefixed guid such as
// 01234567-89ab-cdef-0123-456789abcdef. It returns nil when the input at pos
// is not one.
func (t *Tokenizer) tokenizeBareGUID(pos int) *Token {
	end := pos + guidLength
	if end > len(t.input) {
		return nil
	}
	text := t.input[pos:end]
	for _, i := range []int{8, 13, 18, 23} {
		if text[i] != '-' {
			return nil
		}
	}
	if _, err := uuid.Parse(text); err != nil {
		return nil
	}
	if end < len(t.input) && (isIdentifierRune(rune(t.input[end])) || t.input[end] == '-') {
		return nil
	}
	for t.pos < end {
		t.advance()
	}
	return &Token{Type: TokenTyped, Prefix: "guid", Value: text, Pos: pos}
}

// tokenizeNumber reads a number, or a date/time token when the digits are
// followed by '-' or ':' (2024-01-31, 10:30:00, 2024-01-31T10:00:00Z).
func (t *Tokenizer) tokenizeNumber(pos int) *Token {
	if t.ch == '-' {
		t.advance()
	}
	digits := t.readWhile(unicode.IsDigit)
	if (t.ch == '-' && len(digits) == 4) || (t.ch == ':' && len(digits) == 2) {
		t.readWhile(isTemporalRune)
		return &Token{Type: TokenTemporal, Value: t.input[pos:t.pos], Pos: pos}
	}
	for isNumberRune(t.ch) {
		if (t.ch == 'e' || t.ch == 'E') && (t.peek() == '+' || t.peek() == '-') {
			t.advance()
		}
		t.advance()
	}
	return &Token{Type: TokenNumber, Value: t.input[pos:t.pos], Pos: pos}
}

// tokenizeIdentifierOrKeyword tokenizes identifiers, keywords and prefixed
// literals such as guid'...' or NS.Color'Red'
func (t *Tokenizer) tokenizeIdentifierOrKeyword(pos int) (*Token, error) {
	value := t.readWhile(isIdentifierRune)

	if t.ch == '\'' {
		text, err := t.readString()
		if err != nil {
			return nil, err
		}
		return &Token{Type: TokenTyped, Prefix: value, Value: text, Pos: pos}, nil
	}

	if token := t.classifyKeyword(strings.ToLower(value), pos); token != nil {
		return token, nil
	}
	return &Token{Type: TokenIdentifier, Value: value, Pos: pos}, nil
}

// classifyKeyword classifies a keyword and returns the appropriate token
func (t *Tokenizer) classifyKeyword(lower string, pos int) *Token {
	switch lower {
	case "and", "or":
		return &Token{Type: TokenLogical, Value: lower, Pos: pos}
	case "not":
		return &Token{Type: TokenNot, Value: lower, Pos: pos}
	case "true", "false":
		return &Token{Type: TokenBoolean, Value: lower, Pos: pos}
	case "null":
		return &Token{Type: TokenNull, Value: lower, Pos: pos}
	case "eq", "ne", "gt", "ge", "lt", "le", "in":
		return &Token{Type: TokenOperator, Value: lower, Pos: pos}
	}
	return nil
}

// TokenizeAll returns all tokens from the input
func (t *Tokenizer) TokenizeAll() ([]*Token, error) {
	var tokens []*Token

	for {
		token, err := t.NextToken()
		if err != nil {
			return nil, err
		}

		tokens = append(tokens, token)

		if token.Type == TokenEOF {
			break
		}
	}

	return tokens, nil
}
