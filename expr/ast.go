package expr

// The AST is deliberately small: the rule language is a closed expression
// grammar, not a programming language. Call nodes are the only place external
// data enters evaluation; their results are resolved ahead of the synchronous
// evaluation pass and memoized per node (see eval.go).

type node interface{ pos() int }

type literal struct {
	p   int
	val any // decimal.Decimal, string, bool or nil
}

type ident struct {
	p    int
	name string
}

// selectNode is a dotted field access, e.g. document.customer.email.
type selectNode struct {
	p     int
	base  node
	field string
}

// callNode is a bare function call: has(...), get_tax_rate(...), db_query(...).
type callNode struct {
	p    int
	name string
	args []node
}

// methodNode is a call on a receiver, e.g. item.description.contains("x").
type methodNode struct {
	p    int
	recv node
	name string
	args []node
}

type unaryNode struct {
	p  int
	op tokenKind // tokNot or tokMinus
	x  node
}

type binaryNode struct {
	p        int
	op       tokenKind
	lhs, rhs node
}

// condNode is the ternary cond ? then : else.
type condNode struct {
	p               int
	cond, then, alt node
}

func (n *literal) pos() int    { return n.p }
func (n *ident) pos() int      { return n.p }
func (n *selectNode) pos() int { return n.p }
func (n *callNode) pos() int   { return n.p }
func (n *methodNode) pos() int { return n.p }
func (n *unaryNode) pos() int  { return n.p }
func (n *binaryNode) pos() int { return n.p }
func (n *condNode) pos() int   { return n.p }
