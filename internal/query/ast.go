package query

// Node is a node of a filter predicate tree. The set of implementations is closed;
// Translate handles every one of them.
type Node interface {
	predicateNode()
}

// ComparisonOperator is one of the binary comparison operators
type ComparisonOperator string

const (
	OpEqual              ComparisonOperator = "eq"
	OpNotEqual           ComparisonOperator = "ne"
	OpGreaterThan        ComparisonOperator = "gt"
	OpGreaterThanOrEqual ComparisonOperator = "ge"
	OpLessThan           ComparisonOperator = "lt"
	OpLessThanOrEqual    ComparisonOperator = "le"
)

// LogicalOperator joins two boolean operands
type LogicalOperator string

const (
	OpAnd LogicalOperator = "and"
	OpOr  LogicalOperator = "or"
)

// Quantifier selects the collection semantics of a Lambda
type Quantifier string

const (
	QuantifierAny Quantifier = "any"
	QuantifierAll Quantifier = "all"
)

// Literal is a concrete scalar value. Type optionally names the EDM type
// (e.g. "Edm.Decimal"); when empty the type is inferred from the Go value.
type Literal struct {
	Value interface{}
	Type  string
}

func (*Literal) predicateNode() {}

// MemberPath addresses a property, possibly through navigation properties
// (e.g. ["Customer", "Address", "City"]).
type MemberPath struct {
	Segments []string
}

func (*MemberPath) predicateNode() {}

// Comparison represents a comparison (e.g., Price gt 100)
type Comparison struct {
	Left  Node
	Op    ComparisonOperator
	Right Node
}

func (*Comparison) predicateNode() {}

// Logical represents a conjunction or disjunction
type Logical struct {
	Left  Node
	Op    LogicalOperator
	Right Node
}

func (*Logical) predicateNode() {}

// Negation represents not (...)
type Negation struct {
	Operand Node
}

func (*Negation) predicateNode() {}

// Call represents a canonical function call (e.g., contains(Name,'text'))
type Call struct {
	Function string
	Args     []Node
}

func (*Call) predicateNode() {}

// Lambda represents an any/all expression over a collection. A nil Body with
// QuantifierAny renders the parameterless form Collection/any().
type Lambda struct {
	Collection *MemberPath
	Variable   string
	Quantifier Quantifier
	Body       Node
}

func (*Lambda) predicateNode() {}

// InSet represents Member in (v1,v2,...)
type InSet struct {
	Member Node
	Values []*Literal
}

func (*InSet) predicateNode() {}

// Placeholder stands for a value that is not known when the tree is built.
// Bind replaces placeholders with literals; Translate rejects any that remain.
type Placeholder struct {
	Name string
}

func (*Placeholder) predicateNode() {}
