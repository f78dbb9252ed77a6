package odata

import (
	"github.com/nlstn/go-odata-client/internal/edm"
	"github.com/nlstn/go-odata-client/internal/keys"
	"github.com/nlstn/go-odata-client/internal/query"
)

// Node is a predicate tree node. Trees are built with the helpers below
// (Prop, Eq, And, Any, ...) or parsed from text with ParseFilter.
//
// Example:
//
//	filter := odata.And(
//	    odata.Gt(odata.Prop("Price"), 100),
//	    odata.Any("Tags", "t", odata.Eq(odata.Prop("t"), "sale")),
//	)
//	// Price gt 100 and Tags/any(t:t eq 'sale')
type Node = query.Node

// Literal re-exports the typed scalar node.
type Literal = query.Literal

// MemberPath re-exports the property path node.
type MemberPath = query.MemberPath

// Comparison re-exports the binary comparison node.
type Comparison = query.Comparison

// Logical re-exports the and/or node.
type Logical = query.Logical

// Negation re-exports the not node.
type Negation = query.Negation

// Call re-exports the canonical function call node.
type Call = query.Call

// Lambda re-exports the any/all node.
type Lambda = query.Lambda

// InSet re-exports the membership node.
type InSet = query.InSet

// Placeholder re-exports the parameter node resolved by Bind.
type Placeholder = query.Placeholder

// ComparisonOperator re-exports the comparison operators.
type ComparisonOperator = query.ComparisonOperator

// LogicalOperator re-exports the logical operators.
type LogicalOperator = query.LogicalOperator

// Quantifier re-exports the lambda quantifiers.
type Quantifier = query.Quantifier

// Translator renders predicate trees with a configurable literal style.
type Translator = query.Translator

// Options accumulates the query options and resource path of one request.
//
// Example:
//
//	opts := odata.NewOptions().
//	    Filter(odata.Ge(odata.Prop("Rating"), 3)).
//	    Select("Name", "Price").
//	    OrderByDesc("Price").
//	    Top(10)
type Options = query.Options

// ExpandOption re-exports the $expand item type.
type ExpandOption = query.ExpandOption

// OrderByItem re-exports the $orderby item type.
type OrderByItem = query.OrderByItem

// NamedValue is one property of a composite key.
type NamedValue = keys.NamedValue

// LiteralFormatter controls how EDM literals are rendered.
type LiteralFormatter = edm.Formatter

// EnumValue is a member of a namespace qualified enum type.
type EnumValue = edm.EnumValue

// LevelsMax requests $levels=max on an expand.
const LevelsMax = query.LevelsMax

// NewOptions returns an empty option set.
func NewOptions() *Options { return query.NewOptions() }

// NewExpand starts an $expand item for a navigation property.
func NewExpand(navigationProperty string) *ExpandOption { return query.NewExpand(navigationProperty) }

// Prop references a property; "/" separates path segments.
func Prop(path string) *MemberPath { return query.Prop(path) }

// Path references a property by its segments.
func Path(segments ...string) *MemberPath { return query.Path(segments...) }

// Lit wraps a Go value as a literal whose type is inferred.
func Lit(value interface{}) *Literal { return query.Lit(value) }

// Typed wraps a value as a literal of the named EDM type.
func Typed(value interface{}, typeName string) *Literal { return query.Typed(value, typeName) }

// Null is the null literal.
func Null() *Literal { return query.Null() }

// Param is a placeholder resolved by Bind.
func Param(name string) *Placeholder { return query.Param(name) }

// Eq builds left eq right. Non-node operands become literals.
func Eq(left Node, right interface{}) *Comparison { return query.Eq(left, right) }

// Ne builds left ne right.
func Ne(left Node, right interface{}) *Comparison { return query.Ne(left, right) }

// Gt builds left gt right.
func Gt(left Node, right interface{}) *Comparison { return query.Gt(left, right) }

// Ge builds left ge right.
func Ge(left Node, right interface{}) *Comparison { return query.Ge(left, right) }

// Lt builds left lt right.
func Lt(left Node, right interface{}) *Comparison { return query.Lt(left, right) }

// Le builds left le right.
func Le(left Node, right interface{}) *Comparison { return query.Le(left, right) }

// And joins nodes with and.
func And(nodes ...Node) Node { return query.And(nodes...) }

// Or joins nodes with or.
func Or(nodes ...Node) Node { return query.Or(nodes...) }

// Not negates node.
func Not(node Node) *Negation { return query.Not(node) }

// Fn calls a canonical function.
func Fn(name string, args ...interface{}) *Call { return query.Fn(name, args...) }

// Any builds collection/any(variable:body).
func Any(collection, variable string, body Node) *Lambda {
	return query.Any(collection, variable, body)
}

// All builds collection/all(variable:body).
func All(collection, variable string, body Node) *Lambda {
	return query.All(collection, variable, body)
}

// Exists builds collection/any().
func Exists(collection string) *Lambda { return query.Exists(collection) }

// In builds member in (values...).
func In(member Node, values ...interface{}) *InSet { return query.In(member, values...) }

// Bind replaces placeholders with values, returning a new tree.
func Bind(node Node, params map[string]interface{}) (Node, error) { return query.Bind(node, params) }

// ParseFilter parses a textual $filter expression into a predicate tree.
func ParseFilter(text string) (Node, error) { return query.ParseFilter(text) }

// Translate renders a predicate tree as a $filter expression.
func Translate(node Node) (string, error) { return query.Translate(node) }

// FormatKey renders a single entity key value, e.g. 'ALFKI'.
func FormatKey(value interface{}) (string, error) { return keys.FormatKey(value) }

// FormatCompositeKey renders Name=value pairs in the given order.
func FormatCompositeKey(values ...NamedValue) (string, error) { return keys.FormatCompositeKey(values) }
