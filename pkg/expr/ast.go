package expr

// Node is the interface for all expression tree nodes. The set of
// implementations is closed: NumberNode, VariableNode, BinaryNode, NegNode,
// FuncNode, and LogNode.
//
// Trees are never shared: every child belongs to exactly one parent, and
// operations that transform a tree allocate a new one.
type Node interface {
	nodeType() string
}

// Op identifies a binary operator.
type Op int

const (
	OpAdd Op = iota // +
	OpSub           // -
	OpMul           // *
	OpDiv           // /
	OpPow           // ^
)

// String returns the operator's source symbol.
func (o Op) String() string {
	switch o {
	case OpAdd:
		return "+"
	case OpSub:
		return "-"
	case OpMul:
		return "*"
	case OpDiv:
		return "/"
	case OpPow:
		return "^"
	default:
		return "?"
	}
}

// Func identifies a unary function.
type Func int

const (
	FuncSin Func = iota
	FuncCos
	FuncTan
	FuncSec
	FuncCsc
	FuncCot
	FuncLn
)

// String returns the function's source name.
func (f Func) String() string {
	switch f {
	case FuncSin:
		return "sin"
	case FuncCos:
		return "cos"
	case FuncTan:
		return "tan"
	case FuncSec:
		return "sec"
	case FuncCsc:
		return "csc"
	case FuncCot:
		return "cot"
	case FuncLn:
		return "ln"
	default:
		return "?"
	}
}

// DefaultLogBase is the base of log(a) when none is written.
const DefaultLogBase = 10

// NumberNode represents a numeric literal.
type NumberNode struct {
	Value float64
}

func (n *NumberNode) nodeType() string { return "Number" }

// VariableNode represents a single-letter variable.
type VariableNode struct {
	Symbol byte
}

func (n *VariableNode) nodeType() string { return "Variable" }

// BinaryNode represents an arithmetic operation (e.g., a + b, x ^ 2).
type BinaryNode struct {
	Op    Op
	Left  Node
	Right Node
}

func (n *BinaryNode) nodeType() string { return "Binary" }

// NegNode represents unary negation.
type NegNode struct {
	Operand Node
}

func (n *NegNode) nodeType() string { return "Neg" }

// FuncNode represents a unary function applied to a full sub-expression.
type FuncNode struct {
	Func Func
	Arg  Node
}

func (n *FuncNode) nodeType() string { return "Func" }

// LogNode represents log with a base (log(b, a)); Base is 10 when omitted in source.
type LogNode struct {
	Base Node
	Arg  Node
}

func (n *LogNode) nodeType() string { return "Log" }

// Constructors.

// Num returns a number leaf.
func Num(v float64) Node { return &NumberNode{Value: v} }

// Var returns a variable leaf.
func Var(symbol byte) Node { return &VariableNode{Symbol: symbol} }

// Add returns l + r.
func Add(l, r Node) Node { return &BinaryNode{Op: OpAdd, Left: l, Right: r} }

// Sub returns l - r.
func Sub(l, r Node) Node { return &BinaryNode{Op: OpSub, Left: l, Right: r} }

// Mul returns l * r.
func Mul(l, r Node) Node { return &BinaryNode{Op: OpMul, Left: l, Right: r} }

// Div returns l / r.
func Div(l, r Node) Node { return &BinaryNode{Op: OpDiv, Left: l, Right: r} }

// Pow returns l ^ r.
func Pow(l, r Node) Node { return &BinaryNode{Op: OpPow, Left: l, Right: r} }

// Neg returns -x.
func Neg(x Node) Node { return &NegNode{Operand: x} }

// Call returns f(arg).
func Call(f Func, arg Node) Node { return &FuncNode{Func: f, Arg: arg} }

// Log returns log(base, arg).
func Log(base, arg Node) Node { return &LogNode{Base: base, Arg: arg} }

// Equal reports whether two trees have the same structure and leaf values.
func Equal(a, b Node) bool {
	switch x := a.(type) {
	case *NumberNode:
		y, ok := b.(*NumberNode)
		return ok && x.Value == y.Value
	case *VariableNode:
		y, ok := b.(*VariableNode)
		return ok && x.Symbol == y.Symbol
	case *BinaryNode:
		y, ok := b.(*BinaryNode)
		return ok && x.Op == y.Op && Equal(x.Left, y.Left) && Equal(x.Right, y.Right)
	case *NegNode:
		y, ok := b.(*NegNode)
		return ok && Equal(x.Operand, y.Operand)
	case *FuncNode:
		y, ok := b.(*FuncNode)
		return ok && x.Func == y.Func && Equal(x.Arg, y.Arg)
	case *LogNode:
		y, ok := b.(*LogNode)
		return ok && Equal(x.Base, y.Base) && Equal(x.Arg, y.Arg)
	default:
		return false
	}
}

// Clone returns a deep copy of n.
func Clone(n Node) Node {
	switch x := n.(type) {
	case *NumberNode:
		return Num(x.Value)
	case *VariableNode:
		return Var(x.Symbol)
	case *BinaryNode:
		return &BinaryNode{Op: x.Op, Left: Clone(x.Left), Right: Clone(x.Right)}
	case *NegNode:
		return Neg(Clone(x.Operand))
	case *FuncNode:
		return Call(x.Func, Clone(x.Arg))
	case *LogNode:
		return Log(Clone(x.Base), Clone(x.Arg))
	default:
		return nil
	}
}
