package query

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/nlstn/go-odata-client/internal/edm"
)

// Translator renders predicate trees as $filter expressions.
// The zero value uses the default literal formatter.
type Translator struct {
	Formatter edm.Formatter
}

// Translate renders node with the default Translator.
func Translate(node Node) (string, error) {
	return Translator{}.Translate(node)
}

// Translate renders node as a $filter expression.
func (t Translator) Translate(node Node) (string, error) {
	var b strings.Builder
	if err := t.render(&b, node, nil); err != nil {
		return "", err
	}
	return b.String(), nil
}

// CombineFilters ANDs independent filter expressions. Each part is parenthesized
// when there is more than one; a single part is returned unchanged.
func CombineFilters(parts []string) string {
	switch len(parts) {
	case 0:
		return ""
	case 1:
		return parts[0]
	}
	var b strings.Builder
	for i, part := range parts {
		if i > 0 {
			b.WriteString(" and ")
		}
		b.WriteByte('(')
		b.WriteString(part)
		b.WriteByte(')')
	}
	return b.String()
}

// scope is one lambda binding in the chain of enclosing lambdas.
type scope struct {
	parent   *scope
	variable string
	rendered string
}

// resolve returns the rendered name of the innermost binding for variable.
func (s *scope) resolve(variable string) (string, bool) {
	for cur := s; cur != nil; cur = cur.parent {
		if cur.variable == variable {
			return cur.rendered, true
		}
	}
	return "", false
}

func (s *scope) inUse(rendered string) bool {
	for cur := s; cur != nil; cur = cur.parent {
		if cur.rendered == rendered {
			return true
		}
	}
	return false
}

// bind introduces variable in a new scope, renaming it to variable<n> with the
// smallest n >= 1 when the plain name is already rendered by an enclosing lambda.
// Names in free are never chosen as a replacement, since a rendered variable
// must not capture a property of the entity.
func (s *scope) bind(variable string, free map[string]bool) *scope {
	rendered := variable
	for n := 1; s.inUse(rendered) || (rendered != variable && free[rendered]); n++ {
		rendered = variable + strconv.Itoa(n)
	}
	return &scope{parent: s, variable: variable, rendered: rendered}
}

// freeNames collects the first segments of member paths in node that are not
// bound by bound, by a lambda inside node or by the scope chain.
func freeNames(node Node, bound map[string]bool, sc *scope, free map[string]bool) {
	switch n := node.(type) {
	case *MemberPath:
		if n == nil || len(n.Segments) == 0 {
			return
		}
		first := n.Segments[0]
		if bound[first] {
			return
		}
		if _, ok := sc.resolve(first); ok {
			return
		}
		free[first] = true
	case *Comparison:
		if n != nil {
			freeNames(n.Left, bound, sc, free)
			freeNames(n.Right, bound, sc, free)
		}
	case *Logical:
		if n != nil {
			freeNames(n.Left, bound, sc, free)
			freeNames(n.Right, bound, sc, free)
		}
	case *Negation:
		if n != nil {
			freeNames(n.Operand, bound, sc, free)
		}
	case *Call:
		if n != nil {
			for _, arg := range n.Args {
				freeNames(arg, bound, sc, free)
			}
		}
	case *InSet:
		if n != nil {
			freeNames(n.Member, bound, sc, free)
		}
	case *Lambda:
		if n == nil {
			return
		}
		if n.Collection != nil {
			freeNames(n.Collection, bound, sc, free)
		}
		if n.Body != nil && n.Variable != "" {
			inner := make(map[string]bool, len(bound)+1)
			for k := range bound {
				inner[k] = true
			}
			inner[n.Variable] = true
			freeNames(n.Body, inner, sc, free)
		}
	}
}

func (t Translator) render(b *strings.Builder, node Node, sc *scope) error {
	if isNilNode(node) {
		return shapeError(node, errNilNode)
	}

	switch n := node.(type) {
	case *Literal:
		s, err := t.Formatter.Format(n.Value, n.Type)
		if err != nil {
			return &TranslationError{Err: err, Node: Describe(n)}
		}
		b.WriteString(s)
		return nil

	case *MemberPath:
		return renderMemberPath(b, n, sc)

	case *Comparison:
		return t.renderComparison(b, n, sc)

	case *Logical:
		if n.Op != OpAnd && n.Op != OpOr {
			return shapeError(n, fmt.Errorf("%w %q", errUnknownOperator, n.Op))
		}
		if err := t.renderLogicalOperand(b, n.Left, n.Op, sc); err != nil {
			return err
		}
		b.WriteString(" " + string(n.Op) + " ")
		return t.renderLogicalOperand(b, n.Right, n.Op, sc)

	case *Negation:
		if booleanKindOf(n.Operand) == notBoolean {
			return shapeError(n, errNonBooleanOperand)
		}
		b.WriteString("not (")
		if err := t.render(b, n.Operand, sc); err != nil {
			return err
		}
		b.WriteByte(')')
		return nil

	case *Call:
		return t.renderCall(b, n, sc)

	case *Lambda:
		return t.renderLambda(b, n, sc)

	case *InSet:
		if len(n.Values) == 0 {
			return shapeError(n, errEmptyInSet)
		}
		if isBooleanExpression(n.Member) {
			return shapeError(n, errBooleanOperand)
		}
		if err := t.render(b, n.Member, sc); err != nil {
			return err
		}
		b.WriteString(" in (")
		for i, v := range n.Values {
			if i > 0 {
				b.WriteByte(',')
			}
			if err := t.render(b, v, sc); err != nil {
				return err
			}
		}
		b.WriteByte(')')
		return nil

	case *Placeholder:
		return shapeError(n, errUnresolvedParameter)
	}

	return shapeError(node, fmt.Errorf("unknown node type %T", node))
}

func renderMemberPath(b *strings.Builder, n *MemberPath, sc *scope) error {
	if len(n.Segments) == 0 {
		return shapeError(n, errEmptyMemberPath)
	}
	for i, segment := range n.Segments {
		if segment == "" {
			return shapeError(n, errEmptySegment)
		}
		if i > 0 {
			b.WriteByte('/')
		} else if rendered, ok := sc.resolve(segment); ok {
			segment = rendered
		}
		b.WriteString(segment)
	}
	return nil
}

func (t Translator) renderComparison(b *strings.Builder, n *Comparison, sc *scope) error {
	switch n.Op {
	case OpEqual, OpNotEqual:
	case OpGreaterThan, OpGreaterThanOrEqual, OpLessThan, OpLessThanOrEqual:
		if isNullLiteral(n.Left) || isNullLiteral(n.Right) {
			return shapeError(n, errNullOrdering)
		}
	default:
		return shapeError(n, fmt.Errorf("%w %q", errUnknownOperator, n.Op))
	}
	if isBooleanExpression(n.Left) || isBooleanExpression(n.Right) {
		return shapeError(n, errBooleanOperand)
	}

	if err := t.render(b, n.Left, sc); err != nil {
		return err
	}
	b.WriteString(" " + string(n.Op) + " ")
	return t.render(b, n.Right, sc)
}

// renderLogicalOperand parenthesizes operand iff it is a Logical node with an
// operator different from the parent's.
func (t Translator) renderLogicalOperand(b *strings.Builder, operand Node, parent LogicalOperator, sc *scope) error {
	if booleanKindOf(operand) == notBoolean {
		return shapeError(operand, errNonBooleanOperand)
	}
	child, ok := operand.(*Logical)
	wrap := ok && child != nil && child.Op != parent
	if wrap {
		b.WriteByte('(')
	}
	if err := t.render(b, operand, sc); err != nil {
		return err
	}
	if wrap {
		b.WriteByte(')')
	}
	return nil
}

func (t Translator) renderCall(b *strings.Builder, n *Call, sc *scope) error {
	fn, ok := lookupFunction(n.Function)
	if !ok {
		return &TranslationError{Err: ErrUnsupportedFunction, Node: Describe(n), Reason: fmt.Errorf("%q", n.Function)}
	}
	if len(n.Args) < fn.minArgs || len(n.Args) > fn.maxArgs {
		return shapeError(n, fmt.Errorf("%w: %s takes %s, got %d", errArity, fn.name, fn.arity(), len(n.Args)))
	}

	b.WriteString(fn.name)
	b.WriteByte('(')
	for i, arg := range n.Args {
		if i > 0 {
			b.WriteByte(',')
		}
		if isBooleanExpression(arg) {
			return shapeError(n, errBooleanOperand)
		}
		if err := t.render(b, arg, sc); err != nil {
			return err
		}
	}
	b.WriteByte(')')
	return nil
}

func (t Translator) renderLambda(b *strings.Builder, n *Lambda, sc *scope) error {
	if n.Collection == nil {
		return shapeError(n, errLambdaCollection)
	}
	if n.Quantifier != QuantifierAny && n.Quantifier != QuantifierAll {
		return shapeError(n, fmt.Errorf("%w %q", errUnknownOperator, n.Quantifier))
	}
	if err := renderMemberPath(b, n.Collection, sc); err != nil {
		return err
	}

	if n.Body == nil {
		if n.Quantifier != QuantifierAny || n.Variable != "" {
			return shapeError(n, errLambdaVariable)
		}
		b.WriteString("/any()")
		return nil
	}
	if n.Variable == "" {
		return shapeError(n, errLambdaVariable)
	}
	if booleanKindOf(n.Body) == notBoolean {
		return shapeError(n, errNonBooleanOperand)
	}

	free := make(map[string]bool)
	freeNames(n.Body, map[string]bool{n.Variable: true}, sc, free)
	inner := sc.bind(n.Variable, free)
	b.WriteString("/" + string(n.Quantifier) + "(" + inner.rendered + ":")
	if err := t.render(b, n.Body, inner); err != nil {
		return err
	}
	b.WriteByte(')')
	return nil
}

type booleanKind int

const (
	maybeBoolean booleanKind = iota
	isBoolean
	notBoolean
)

// booleanKindOf classifies node by the value it produces. Member paths and
// placeholders may be boolean properties and stay undecided.
func booleanKindOf(node Node) booleanKind {
	switch n := node.(type) {
	case *Comparison, *Logical, *Negation, *Lambda, *InSet:
		return isBoolean
	case *Call:
		if fn, ok := lookupFunction(n.Function); ok {
			if fn.boolean {
				return isBoolean
			}
			return notBoolean
		}
	case *Literal:
		if n == nil {
			return maybeBoolean
		}
		v, err := edm.Resolve(n.Value, n.Type)
		if err == nil && v.TypeName() == "Edm.Boolean" && !v.IsNull() {
			return isBoolean
		}
		return notBoolean
	}
	return maybeBoolean
}

// isBooleanExpression reports whether node is a predicate construct that cannot
// appear as a comparison or function operand.
func isBooleanExpression(node Node) bool {
	switch node.(type) {
	case *Comparison, *Logical, *Negation, *Lambda, *InSet:
		return !isNilNode(node)
	}
	return false
}

func isNullLiteral(node Node) bool {
	lit, ok := node.(*Literal)
	if !ok || lit == nil {
		return false
	}
	v, err := edm.Resolve(lit.Value, lit.Type)
	return err == nil && v.IsNull()
}

func isNilNode(node Node) bool {
	switch n := node.(type) {
	case nil:
		return true
	case *Literal:
		return n == nil
	case *MemberPath:
		return n == nil
	case *Comparison:
		return n == nil
	case *Logical:
		return n == nil
	case *Negation:
		return n == nil
	case *Call:
		return n == nil
	case *Lambda:
		return n == nil
	case *InSet:
		return n == nil
	case *Placeholder:
		return n == nil
	}
	return false
}
