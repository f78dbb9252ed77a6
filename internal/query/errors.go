package query

import (
	"errors"
	"fmt"
	"strings"

	"github.com/nlstn/go-odata-client/internal/edm"
)

var (
	// ErrUnsupportedExpressionShape is returned for node combinations that have no filter rendering
	ErrUnsupportedExpressionShape = errors.New("unsupported expression shape")

	// ErrUnsupportedFunction is returned for calls outside the canonical function set
	ErrUnsupportedFunction = errors.New("unsupported function")

	// ErrInvalidQueryOption is returned by the Options builder for invalid option values
	ErrInvalidQueryOption = errors.New("invalid query option")

	// ErrInvalidFilterSyntax is returned by ParseFilter for text that is not a valid filter expression
	ErrInvalidFilterSyntax = errors.New("invalid filter syntax")

	// ErrUnboundParameter is returned by Bind when no value is supplied for a placeholder
	ErrUnboundParameter = errors.New("unbound parameter")
)

// Pre-defined shape errors
var (
	errNilNode             = errors.New("nil node")
	errEmptyMemberPath     = errors.New("member path has no segments")
	errEmptySegment        = errors.New("member path has an empty segment")
	errNullOrdering        = errors.New("null can only be compared with eq or ne")
	errBooleanOperand      = errors.New("comparison operand must not be a boolean expression")
	errNonBooleanOperand   = errors.New("operand must be a boolean expression")
	errEmptyInSet          = errors.New("in requires at least one value")
	errUnresolvedParameter = errors.New("placeholder was not bound to a value")
	errLambdaVariable      = errors.New("lambda requires a range variable and a body")
	errLambdaCollection    = errors.New("lambda requires a collection path")
	errUnknownOperator     = errors.New("unknown operator")
	errArity               = errors.New("wrong number of arguments")
)

// TranslationError reports why a predicate could not be rendered.
// Node is a compact rendering of the offending subtree.
type TranslationError struct {
	Err    error
	Node   string
	Reason error
}

func (e *TranslationError) Error() string {
	msg := e.Err.Error()
	if e.Reason != nil {
		msg += ": " + e.Reason.Error()
	}
	if e.Node != "" {
		msg += " in " + e.Node
	}
	return msg
}

func (e *TranslationError) Unwrap() []error {
	if e.Reason == nil {
		return []error{e.Err}
	}
	return []error{e.Err, e.Reason}
}

func shapeError(node Node, reason error) error {
	return &TranslationError{Err: ErrUnsupportedExpressionShape, Node: Describe(node), Reason: reason}
}

// Describe renders node without validating it. It is meant for diagnostics
// and never fails.
func Describe(node Node) string {
	var b strings.Builder
	describe(&b, node)
	return b.String()
}

func describe(b *strings.Builder, node Node) {
	if isNilNode(node) {
		b.WriteString("<nil>")
		return
	}
	switch n := node.(type) {
	case *Literal:
		if s, err := edm.Format(n.Value, n.Type); err == nil {
			b.WriteString(s)
		} else {
			fmt.Fprintf(b, "%v", n.Value)
		}
	case *MemberPath:
		b.WriteString(strings.Join(n.Segments, "/"))
	case *Comparison:
		describe(b, n.Left)
		b.WriteString(" " + string(n.Op) + " ")
		describe(b, n.Right)
	case *Logical:
		b.WriteByte('(')
		describe(b, n.Left)
		b.WriteString(" " + string(n.Op) + " ")
		describe(b, n.Right)
		b.WriteByte(')')
	case *Negation:
		b.WriteString("not (")
		describe(b, n.Operand)
		b.WriteByte(')')
	case *Call:
		b.WriteString(n.Function + "(")
		for i, arg := range n.Args {
			if i > 0 {
				b.WriteByte(',')
			}
			describe(b, arg)
		}
		b.WriteByte(')')
	case *Lambda:
		if n.Collection != nil {
			describe(b, n.Collection)
		}
		b.WriteString("/" + string(n.Quantifier) + "(")
		if n.Variable != "" || n.Body != nil {
			b.WriteString(n.Variable + ":")
			describe(b, n.Body)
		}
		b.WriteByte(')')
	case *InSet:
		describe(b, n.Member)
		b.WriteString(" in (")
		for i, v := range n.Values {
			if i > 0 {
				b.WriteByte(',')
			}
			describe(b, v)
		}
		b.WriteByte(')')
	case *Placeholder:
		b.WriteString("@" + n.Name)
	default:
		fmt.Fprintf(b, "%T", node)
	}
}
