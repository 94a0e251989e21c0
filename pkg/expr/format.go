package expr

import (
	"math"
	"strconv"
	"strings"
)

// Binding strengths used when deciding where parentheses are required.
const (
	precSum = iota + 1
	precProduct
	precPower
	precAtom
)

// Format renders a tree as expression text. Parentheses are emitted only
// where needed for the text to parse back into the same tree.
func Format(node Node) string {
	var sb strings.Builder
	writeNode(&sb, node)
	return sb.String()
}

func writeNode(sb *strings.Builder, node Node) {
	switch n := node.(type) {
	case *NumberNode:
		sb.WriteString(formatNumber(n.Value))
	case *VariableNode:
		sb.WriteByte(n.Symbol)
	case *NegNode:
		sb.WriteByte('-')
		if precedence(n.Operand) < precPower || isNegative(n.Operand) {
			writeParens(sb, n.Operand)
		} else {
			writeNode(sb, n.Operand)
		}
	case *BinaryNode:
		writeOperand(sb, n.Op, n.Left, false)
		sb.WriteString(n.Op.String())
		writeOperand(sb, n.Op, n.Right, true)
	case *FuncNode:
		sb.WriteString(n.Func.String())
		writeParens(sb, n.Arg)
	case *LogNode:
		sb.WriteString("log(")
		if !isNumber(n.Base, DefaultLogBase) {
			writeNode(sb, n.Base)
			sb.WriteByte(',')
		}
		writeNode(sb, n.Arg)
		sb.WriteByte(')')
	case nil:
		sb.WriteString("<nil>")
	}
}

func writeParens(sb *strings.Builder, node Node) {
	sb.WriteByte('(')
	writeNode(sb, node)
	sb.WriteByte(')')
}

func writeOperand(sb *strings.Builder, parent Op, child Node, right bool) {
	if operandNeedsParens(parent, child, right) {
		writeParens(sb, child)
		return
	}
	writeNode(sb, child)
}

// operandNeedsParens handles the left associativity of + - * / and the right
// associativity of ^. A negation is bare only as the left operand of + or -.
func operandNeedsParens(parent Op, child Node, right bool) bool {
	if isNegative(child) {
		return right || (parent != OpAdd && parent != OpSub)
	}
	cp, pp := precedence(child), opPrecedence(parent)
	if cp != pp {
		return cp < pp
	}
	if parent == OpPow {
		return !right
	}
	return right
}

func precedence(node Node) int {
	if n, ok := node.(*BinaryNode); ok {
		return opPrecedence(n.Op)
	}
	return precAtom
}

func opPrecedence(op Op) int {
	switch op {
	case OpAdd, OpSub:
		return precSum
	case OpMul, OpDiv:
		return precProduct
	default:
		return precPower
	}
}

// isNegative reports nodes whose text starts with '-'.
func isNegative(node Node) bool {
	switch n := node.(type) {
	case *NegNode:
		return true
	case *NumberNode:
		return n.Value < 0
	}
	return false
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// Dump renders a tree one node per line, children indented under their parent.
func Dump(node Node) string {
	var sb strings.Builder
	dumpNode(&sb, node, 0)
	return sb.String()
}

func dumpNode(sb *strings.Builder, node Node, depth int) {
	sb.WriteString(strings.Repeat("  ", depth))
	sb.WriteByte('[')
	sb.WriteString(label(node))
	sb.WriteString("]\n")
	for _, child := range children(node) {
		dumpNode(sb, child, depth+1)
	}
}

// label is the node's name in dumps.
func label(node Node) string {
	switch n := node.(type) {
	case *NumberNode:
		return formatNumber(n.Value)
	case *VariableNode:
		return string(n.Symbol)
	case *NegNode:
		return "-()"
	case *BinaryNode:
		return n.Op.String()
	case *FuncNode:
		return n.Func.String() + "()"
	case *LogNode:
		return "log()"
	default:
		return "?"
	}
}

func children(node Node) []Node {
	switch n := node.(type) {
	case *NegNode:
		return []Node{n.Operand}
	case *BinaryNode:
		return []Node{n.Left, n.Right}
	case *FuncNode:
		return []Node{n.Arg}
	case *LogNode:
		return []Node{n.Base, n.Arg}
	default:
		return nil
	}
}

var opTypeNames = map[Op]string{
	OpAdd: "add",
	OpSub: "sub",
	OpMul: "mul",
	OpDiv: "div",
	OpPow: "pow",
}

// ToMap encodes a tree as nested maps for JSON or protobuf Struct output.
func ToMap(node Node) map[string]any {
	switch n := node.(type) {
	case *NumberNode:
		return map[string]any{"type": "number", "value": mapNumber(n.Value)}
	case *VariableNode:
		return map[string]any{"type": "variable", "symbol": string(n.Symbol)}
	case *NegNode:
		return map[string]any{"type": "neg", "operand": ToMap(n.Operand)}
	case *BinaryNode:
		return map[string]any{"type": opTypeNames[n.Op], "left": ToMap(n.Left), "right": ToMap(n.Right)}
	case *FuncNode:
		return map[string]any{"type": n.Func.String(), "arg": ToMap(n.Arg)}
	case *LogNode:
		return map[string]any{"type": "log", "base": ToMap(n.Base), "arg": ToMap(n.Arg)}
	default:
		return nil
	}
}

// mapNumber keeps non-finite values encodable as JSON.
func mapNumber(v float64) any {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return formatNumber(v)
	}
	return v
}
