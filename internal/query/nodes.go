package query

import "strings"

// Prop returns a member path from a slash separated property path ("Customer/Name").
func Prop(path string) *MemberPath {
	return &MemberPath{Segments: strings.Split(path, "/")}
}

// Path returns a member path from individual segments.
func Path(segments ...string) *MemberPath {
	return &MemberPath{Segments: segments}
}

// Lit returns a literal whose EDM type is inferred from the Go value.
func Lit(value interface{}) *Literal {
	return &Literal{Value: value}
}

// Typed returns a literal rendered as the given EDM type.
func Typed(value interface{}, typeName string) *Literal {
	return &Literal{Value: value, Type: typeName}
}

// Null returns the null literal.
func Null() *Literal {
	return &Literal{}
}

// Param returns a placeholder to be replaced by Bind.
func Param(name string) *Placeholder {
	return &Placeholder{Name: name}
}

// operand wraps plain Go values as literals; nodes pass through.
func operand(v interface{}) Node {
	if n, ok := v.(Node); ok {
		return n
	}
	return Lit(v)
}

func compare(left Node, op ComparisonOperator, right interface{}) *Comparison {
	return &Comparison{Left: left, Op: op, Right: operand(right)}
}

// Eq returns left eq right. Right may be a Node or a Go value.
func Eq(left Node, right interface{}) *Comparison { return compare(left, OpEqual, right) }

// Ne returns left ne right.
func Ne(left Node, right interface{}) *Comparison { return compare(left, OpNotEqual, right) }

// Gt returns left gt right.
func Gt(left Node, right interface{}) *Comparison { return compare(left, OpGreaterThan, right) }

// Ge returns left ge right.
func Ge(left Node, right interface{}) *Comparison { return compare(left, OpGreaterThanOrEqual, right) }

// Lt returns left lt right.
func Lt(left Node, right interface{}) *Comparison { return compare(left, OpLessThan, right) }

// Le returns left le right.
func Le(left Node, right interface{}) *Comparison { return compare(left, OpLessThanOrEqual, right) }

func fold(op LogicalOperator, nodes []Node) Node {
	if len(nodes) == 0 {
		return nil
	}
	result := nodes[0]
	for _, n := range nodes[1:] {
		result = &Logical{Left: result, Op: op, Right: n}
	}
	return result
}

// And left-folds nodes with and. A single node is returned unchanged.
func And(nodes ...Node) Node { return fold(OpAnd, nodes) }

// Or left-folds nodes with or.
func Or(nodes ...Node) Node { return fold(OpOr, nodes) }

// Not negates node.
func Not(node Node) *Negation {
	return &Negation{Operand: node}
}

// Fn returns a canonical function call. Arguments may be Nodes or Go values.
func Fn(name string, args ...interface{}) *Call {
	nodes := make([]Node, len(args))
	for i, arg := range args {
		nodes[i] = operand(arg)
	}
	return &Call{Function: name, Args: nodes}
}

// Any returns collection/any(variable:body).
func Any(collection, variable string, body Node) *Lambda {
	return &Lambda{Collection: Prop(collection), Variable: variable, Quantifier: QuantifierAny, Body: body}
}

// All returns collection/all(variable:body).
func All(collection, variable string, body Node) *Lambda {
	return &Lambda{Collection: Prop(collection), Variable: variable, Quantifier: QuantifierAll, Body: body}
}

// Exists returns collection/any(), true when the collection is non-empty.
func Exists(collection string) *Lambda {
	return &Lambda{Collection: Prop(collection), Quantifier: QuantifierAny}
}

// In returns member in (values...). Values that are not literals are wrapped.
func In(member Node, values ...interface{}) *InSet {
	lits := make([]*Literal, len(values))
	for i, v := range values {
		if lit, ok := v.(*Literal); ok {
			lits[i] = lit
			continue
		}
		lits[i] = Lit(v)
	}
	return &InSet{Member: member, Values: lits}
}
