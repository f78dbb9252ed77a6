package query

import "fmt"

// Bind returns a copy of node in which every Placeholder is replaced by a
// literal for the matching entry in params. Values that already are Nodes are
// substituted as they are. Missing entries fail with ErrUnboundParameter.
func Bind(node Node, params map[string]interface{}) (Node, error) {
	if isNilNode(node) {
		return node, nil
	}

	switch n := node.(type) {
	case *Placeholder:
		value, ok := params[n.Name]
		if !ok {
			return nil, fmt.Errorf("%w: @%s", ErrUnboundParameter, n.Name)
		}
		return operand(value), nil

	case *Comparison:
		left, err := Bind(n.Left, params)
		if err != nil {
			return nil, err
		}
		right, err := Bind(n.Right, params)
		if err != nil {
			return nil, err
		}
		return &Comparison{Left: left, Op: n.Op, Right: right}, nil

	case *Logical:
		left, err := Bind(n.Left, params)
		if err != nil {
			return nil, err
		}
		right, err := Bind(n.Right, params)
		if err != nil {
			return nil, err
		}
		return &Logical{Left: left, Op: n.Op, Right: right}, nil

	case *Negation:
		inner, err := Bind(n.Operand, params)
		if err != nil {
			return nil, err
		}
		return &Negation{Operand: inner}, nil

	case *Call:
		args := make([]Node, len(n.Args))
		for i, arg := range n.Args {
			bound, err := Bind(arg, params)
			if err != nil {
				return nil, err
			}
			args[i] = bound
		}
		return &Call{Function: n.Function, Args: args}, nil

	case *Lambda:
		body, err := Bind(n.Body, params)
		if err != nil {
			return nil, err
		}
		return &Lambda{Collection: n.Collection, Variable: n.Variable, Quantifier: n.Quantifier, Body: body}, nil

	case *InSet:
		member, err := Bind(n.Member, params)
		if err != nil {
			return nil, err
		}
		return &InSet{Member: member, Values: n.Values}, nil
	}

	return node, nil
}
