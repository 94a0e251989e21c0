package expr

import (
	"github.com/lemonberrylabs/scalp/pkg/types"
)

// IntegrationVariable is the variable an integrated constant is multiplied by.
const IntegrationVariable = 'x'

// Integrate returns a new tree holding an antiderivative of node. The input
// tree is never modified.
//
// Sums are constant-folded when fully numeric and split otherwise,
// differences are always split, and a factor of 1 or a positive constant is
// pulled out of a product. Anything else is looked up in a fixed rule table;
// a node no rule covers yields a NoRuleFound error.
func Integrate(node Node) (Node, error) {
	if n, ok := node.(*BinaryNode); ok {
		switch n.Op {
		case OpAdd:
			v, err := Evaluate(n)
			if err == nil {
				return Integrate(Num(v))
			}
			if !types.HasTag(err, types.TagNonNumericSubtree) {
				return nil, err
			}
			return integrateSplit(OpAdd, n)
		case OpSub:
			return integrateSplit(OpSub, n)
		case OpMul:
			if isNumber(n.Left, 1) {
				return Integrate(n.Right)
			}
			if isNumber(n.Right, 1) {
				return Integrate(n.Left)
			}
			// Negative and zero factors are not pulled out and fall through
			// to the table, which rejects the product.
			if c, ok := positiveConstant(n.Left); ok {
				return scaled(c, n.Right)
			}
			if c, ok := positiveConstant(n.Right); ok {
				return scaled(c, n.Left)
			}
		}
	}
	return lookUp(node)
}

// integrateSplit integrates both operands independently and recombines them with op.
func integrateSplit(op Op, n *BinaryNode) (Node, error) {
	left, err := Integrate(n.Left)
	if err != nil {
		return nil, err
	}
	right, err := Integrate(n.Right)
	if err != nil {
		return nil, err
	}
	return &BinaryNode{Op: op, Left: left, Right: right}, nil
}

func scaled(c float64, rest Node) (Node, error) {
	inner, err := Integrate(rest)
	if err != nil {
		return nil, err
	}
	return Mul(Num(c), inner), nil
}

// lookUp applies the terminal rule table to a node.
func lookUp(node Node) (Node, error) {
	switch n := node.(type) {
	case *NumberNode:
		if n.Value == 0 {
			return Num(0), nil
		}
		return Mul(Num(n.Value), Var(IntegrationVariable)), nil
	case *VariableNode:
		// x -> x^2/2
		return Div(Pow(Var(n.Symbol), Num(2)), Num(2)), nil
	case *BinaryNode:
		switch n.Op {
		case OpDiv:
			// 1/x -> ln(x)
			if v, ok := n.Right.(*VariableNode); ok && isNumber(n.Left, 1) {
				return Call(FuncLn, Var(v.Symbol)), nil
			}
		case OpPow:
			// x^n -> x^(n+1)/(n+1)
			v, vok := n.Left.(*VariableNode)
			e, eok := n.Right.(*NumberNode)
			if vok && eok && e.Value != 0 {
				next := e.Value + 1
				return Div(Pow(Var(v.Symbol), Num(next)), Num(next)), nil
			}
		}
	case *FuncNode:
		// cos(x) -> sin(x)
		if v, ok := n.Arg.(*VariableNode); ok && n.Func == FuncCos {
			return Call(FuncSin, Var(v.Symbol)), nil
		}
	case nil:
		return nil, types.NewNoRuleFoundError("expression tree is empty")
	}
	return nil, types.NewNoRuleFoundError("no integration rule matches " + Format(node))
}

func isNumber(n Node, v float64) bool {
	num, ok := n.(*NumberNode)
	return ok && num.Value == v
}

func positiveConstant(n Node) (float64, bool) {
	num, ok := n.(*NumberNode)
	if !ok || num.Value <= 0 {
		return 0, false
	}
	return num.Value, true
}
