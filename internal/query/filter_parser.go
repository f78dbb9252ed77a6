package query

import (
	"fmt"
	"strconv"
	"strings"
)

// ParseFilter parses a textual $filter expression into a predicate tree.
// Parameter aliases (@name) become Placeholders to be resolved with Bind.
func ParseFilter(text string) (Node, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("%w: empty filter", ErrInvalidFilterSyntax)
	}
	tokens, err := NewTokenizer(text).TokenizeAll()
	if err != nil {
		return nil, err
	}
	return NewFilterParser(tokens).Parse()
}

// FilterParser parses filter tokens into a predicate tree
type FilterParser struct {
	tokens  []*Token
	current int
}

// NewFilterParser creates a new parser over tokens
func NewFilterParser(tokens []*Token) *FilterParser {
	return &FilterParser{tokens: tokens}
}

// currentToken returns the current token
func (p *FilterParser) currentToken() *Token {
	if p.current >= len(p.tokens) {
		return &Token{Type: TokenEOF}
	}
	return p.tokens[p.current]
}

// peekToken returns the token after the current one
func (p *FilterParser) peekToken() *Token {
	if p.current+1 >= len(p.tokens) {
		return &Token{Type: TokenEOF}
	}
	return p.tokens[p.current+1]
}

// advance moves to the next token
func (p *FilterParser) advance() *Token {
	token := p.currentToken()
	if p.current < len(p.tokens)-1 {
		p.current++
	}
	return token
}

// expect checks if the current token matches the expected type and advances
func (p *FilterParser) expect(tokenType TokenType) error {
	token := p.currentToken()
	if token.Type != tokenType {
		return p.syntaxError(token, "expected %v", tokenType)
	}
	p.advance()
	return nil
}

func (p *FilterParser) syntaxError(token *Token, format string, args ...interface{}) error {
	msg := fmt.Sprintf(format, args...)
	return fmt.Errorf("%w: %s, got %v at position %d", ErrInvalidFilterSyntax, msg, token.Type, token.Pos)
}

// Parse parses the tokens into a predicate tree
func (p *FilterParser) Parse() (Node, error) {
	node, err := p.parseOr()
	if err != nil {
		return nil, err
	}

	// Verify all tokens were consumed (except EOF)
	if p.currentToken().Type != TokenEOF {
		return nil, p.syntaxError(p.currentToken(), "unexpected token after expression")
	}

	return node, nil
}

// parseOr handles OR expressions (lowest precedence)
func (p *FilterParser) parseOr() (Node, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}

	for p.currentToken().Type == TokenLogical && p.currentToken().Value == "or" {
		p.advance()
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = &Logical{Left: left, Op: OpOr, Right: right}
	}

	return left, nil
}

// parseAnd handles AND expressions
func (p *FilterParser) parseAnd() (Node, error) {
	left, err := p.parseNot()
	if err != nil {
		return nil, err
	}

	for p.currentToken().Type == TokenLogical && p.currentToken().Value == "and" {
		p.advance()
		right, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		left = &Logical{Left: left, Op: OpAnd, Right: right}
	}

	return left, nil
}

// parseNot handles NOT expressions
func (p *FilterParser) parseNot() (Node, error) {
	if p.currentToken().Type == TokenNot {
		p.advance()
		operand, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		return &Negation{Operand: operand}, nil
	}

	return p.parseComparison()
}

// parseComparison handles comparison and in expressions
func (p *FilterParser) parseComparison() (Node, error) {
	left, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}

	if p.currentToken().Type != TokenOperator {
		return left, nil
	}

	op := p.advance()
	if op.Value == "in" {
		values, err := p.parseCollection()
		if err != nil {
			return nil, err
		}
		return &InSet{Member: left, Values: values}, nil
	}

	right, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	return &Comparison{Left: left, Op: ComparisonOperator(op.Value), Right: right}, nil
}

// parseCollection parses the literal list of an in expression like (1,2,3)
func (p *FilterParser) parseCollection() ([]*Literal, error) {
	if err := p.expect(TokenLParen); err != nil {
		return nil, err
	}

	var values []*Literal
	for p.currentToken().Type != TokenRParen {
		token := p.currentToken()
		lit, err := p.parseLiteral(token)
		if err != nil {
			return nil, err
		}
		if lit == nil {
			return nil, p.syntaxError(token, "expected literal in collection")
		}
		values = append(values, lit)

		if p.currentToken().Type != TokenComma {
			break
		}
		p.advance()
	}

	if err := p.expect(TokenRParen); err != nil {
		return nil, err
	}
	return values, nil
}

// parsePrimary parses grouped expressions, literals, aliases, paths, calls and lambdas
func (p *FilterParser) parsePrimary() (Node, error) {
	token := p.currentToken()

	switch token.Type {
	case TokenLParen:
		p.advance()
		expr, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		if err := p.expect(TokenRParen); err != nil {
			return nil, err
		}
		return expr, nil
	case TokenParameter:
		p.advance()
		return &Placeholder{Name: token.Value}, nil
	case TokenIdentifier:
		if isSpecialNumber(token.Value) {
			break
		}
		return p.parseIdentifier()
	}

	lit, err := p.parseLiteral(token)
	if err != nil {
		return nil, err
	}
	if lit == nil {
		return nil, p.syntaxError(token, "expected expression")
	}
	return lit, nil
}

// parseLiteral converts the current token into a literal, or returns nil when
// the token is not a literal.
func (p *FilterParser) parseLiteral(token *Token) (*Literal, error) {
	var lit *Literal
	switch token.Type {
	case TokenString:
		lit = Lit(token.Value)
	case TokenBoolean:
		lit = Lit(token.Value == "true")
	case TokenNull:
		lit = Null()
	case TokenNumber:
		lit = numberLiteral(token.Value)
		if lit == nil {
			return nil, p.syntaxError(token, "invalid number %q", token.Value)
		}
	case TokenTemporal:
		lit = temporalLiteral(token.Value)
	case TokenTyped:
		lit = typedLiteral(token.Prefix, token.Value)
		if lit == nil {
			return nil, p.syntaxError(token, "unknown literal prefix %q", token.Prefix)
		}
	case TokenIdentifier:
		if !isSpecialNumber(token.Value) {
			return nil, nil
		}
		lit = Typed(token.Value, "Edm.Double")
	default:
		return nil, nil
	}
	p.advance()
	return lit, nil
}

func isSpecialNumber(s string) bool {
	return s == "NaN" || s == "INF" || s == "-INF"
}

// numberLiteral keeps integers as Edm.Int64, decimals with their exact digits
// and exponent forms as Edm.Double.
func numberLiteral(text string) *Literal {
	if v, err := strconv.ParseInt(text, 10, 64); err == nil {
		return Lit(v)
	}
	if strings.ContainsAny(text, "eE") {
		if _, err := strconv.ParseFloat(text, 64); err != nil {
			return nil
		}
		return Typed(text, "Edm.Double")
	}
	if _, err := strconv.ParseFloat(text, 64); err != nil {
		return nil
	}
	return Typed(text, "Edm.Decimal")
}

func temporalLiteral(text string) *Literal {
	switch {
	case strings.Contains(text, "T"):
		return Typed(text, "Edm.DateTimeOffset")
	case strings.Contains(text, ":"):
		return Typed(text, "Edm.TimeOfDay")
	}
	return Typed(text, "Edm.Date")
}

func typedLiteral(prefix, text string) *Literal {
	switch strings.ToLower(prefix) {
	case "guid":
		return Typed(text, "Edm.Guid")
	case "binary":
		return Typed(text, "Edm.Binary")
	case "duration":
		return Typed(text, "Edm.Duration")
	}
	if strings.Contains(prefix, ".") {
		return Typed(text, prefix)
	}
	return nil
}

// parseIdentifier parses a member path, a function call or a lambda such as
// Orders/any(o:o/Total gt 100)
func (p *FilterParser) parseIdentifier() (Node, error) {
	first := p.advance()

	if p.currentToken().Type == TokenLParen {
		return p.parseFunctionCall(first.Value)
	}

	segments := []string{first.Value}
	for p.currentToken().Type == TokenSlash {
		p.advance() // consume '/'

		token := p.currentToken()
		if token.Type != TokenIdentifier {
			return nil, p.syntaxError(token, "expected identifier after '/' in property path")
		}
		p.advance()

		lower := strings.ToLower(token.Value)
		if (lower == "any" || lower == "all") && p.currentToken().Type == TokenLParen {
			return p.parseLambda(&MemberPath{Segments: segments}, Quantifier(lower))
		}
		segments = append(segments, token.Value)
	}

	return &MemberPath{Segments: segments}, nil
}

// parseFunctionCall parses a function call like func(arg1, arg2)
func (p *FilterParser) parseFunctionCall(name string) (Node, error) {
	p.advance() // consume '('

	var args []Node
	if p.currentToken().Type != TokenRParen {
		for {
			arg, err := p.parseOr()
			if err != nil {
				return nil, err
			}
			args = append(args, arg)

			if p.currentToken().Type != TokenComma {
				break
			}
			p.advance()
		}
	}

	if err := p.expect(TokenRParen); err != nil {
		return nil, err
	}
	return &Call{Function: name, Args: args}, nil
}

// parseLambda parses the parenthesized part of any(...) or all(...)
func (p *FilterParser) parseLambda(collection *MemberPath, quantifier Quantifier) (Node, error) {
	p.advance() // consume '('

	// Parameterless any()
	if p.currentToken().Type == TokenRParen {
		p.advance()
		return &Lambda{Collection: collection, Quantifier: quantifier}, nil
	}

	variable := p.currentToken()
	if variable.Type != TokenIdentifier || p.peekToken().Type != TokenColon {
		return nil, p.syntaxError(variable, "expected range variable followed by ':'")
	}
	p.advance()
	p.advance()

	body, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	if err := p.expect(TokenRParen); err != nil {
		return nil, err
	}

	return &Lambda{Collection: collection, Variable: variable.Value, Quantifier: quantifier, Body: body}, nil
}
