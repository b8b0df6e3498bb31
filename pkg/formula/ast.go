package formula

// Node is the interface all AST nodes implement. Nodes are immutable once
// built and safe to evaluate concurrently.
type Node interface {
	Pos() int
	node()
}

// Literal is a numeric constant.
type Literal struct {
	Value  float64
	Offset int
}

// Variable references a parameter (or a registry constant) by name.
type Variable struct {
	Name   string
	Offset int
}

// UnaryOp is a prefix '-' or '+'.
type UnaryOp struct {
	Op      byte
	Operand Node
	Offset  int
}

// BinaryOp is one of + - * / % ^.
type BinaryOp struct {
	Op     byte
	Left   Node
	Right  Node
	Offset int // offset of the operator
}

// Call invokes a registry function. Name and arity are checked at parse time.
type Call struct {
	Function string
	Args     []Node
	Offset   int
}

func (n *Literal) Pos() int  { return n.Offset }
func (n *Variable) Pos() int { return n.Offset }
func (n *UnaryOp) Pos() int  { return n.Offset }
func (n *BinaryOp) Pos() int { return n.Offset }
func (n *Call) Pos() int     { return n.Offset }

func (*Literal) node()  {}
func (*Variable) node() {}
func (*UnaryOp) node()  {}
func (*BinaryOp) node() {}
func (*Call) node()     {}

// Walk calls fn for n and every descendant in source order.
func Walk(n Node, fn func(Node)) {
	if n == nil {
		return
	}
	switch v := n.(type) {
	case *UnaryOp:
		fn(n)
		Walk(v.Operand, fn)
	case *BinaryOp:
		Walk(v.Left, fn)
		fn(n)
		Walk(v.Right, fn)
	case *Call:
		fn(n)
		for _, a := range v.Args {
			Walk(a, fn)
		}
	default:
		fn(n)
	}
}
