package expr

import (
	"fmt"

	"github.com/lemonberrylabs/scalp/pkg/types"
)

// Evaluate reduces a variable-free arithmetic tree to a number.
//
// Only numbers, +, -, *, / and negation are understood; any variable,
// function, log, or power node yields a NonNumericSubtree error. Division by
// zero follows IEEE 754 and produces ±Inf or NaN rather than an error.
func Evaluate(node Node) (float64, error) {
	switch n := node.(type) {
	case *NumberNode:
		return n.Value, nil
	case *NegNode:
		v, err := Evaluate(n.Operand)
		if err != nil {
			return 0, err
		}
		return -v, nil
	case *BinaryNode:
		return evalBinary(n)
	case *VariableNode:
		return 0, types.NewNonNumericError(fmt.Sprintf("variable %c has no numeric value", n.Symbol))
	case *FuncNode:
		return 0, types.NewNonNumericError(fmt.Sprintf("function %s cannot be evaluated", n.Func))
	case *LogNode:
		return 0, types.NewNonNumericError("function log cannot be evaluated")
	case nil:
		return 0, types.NewNonNumericError("expression tree is empty")
	default:
		return 0, types.NewNonNumericError(fmt.Sprintf("unsupported expression node type: %T", node))
	}
}

func evalBinary(n *BinaryNode) (float64, error) {
	if n.Op == OpPow {
		return 0, types.NewNonNumericError("operator ^ cannot be evaluated")
	}

	left, err := Evaluate(n.Left)
	if err != nil {
		return 0, err
	}
	right, err := Evaluate(n.Right)
	if err != nil {
		return 0, err
	}

	switch n.Op {
	case OpAdd:
		return left + right, nil
	case OpSub:
		return left - right, nil
	case OpMul:
		return left * right, nil
	case OpDiv:
		return left / right, nil
	default:
		return 0, types.NewNonNumericError(fmt.Sprintf("unsupported binary operator: %s", n.Op))
	}
}
