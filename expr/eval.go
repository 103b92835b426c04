package expr

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Resolver answers the reference-data function calls that may appear inside
// expressions. Implementations must be side-effect-free and tolerate "not
// found" by returning a fallback value instead of an error; lookups are the
// only suspension points in rule evaluation.
type Resolver interface {
	// Knows reports whether fn is a lookup function this resolver serves.
	Knows(fn string) bool
	// Resolve performs the lookup with already-evaluated argument values.
	Resolve(ctx context.Context, fn string, args []any) (any, error)
}

// Eval evaluates the program against vars (typically {"document": ..., and
// optionally "item": ...}). Evaluation runs in two passes: first every call
// node naming a resolver function has its arguments evaluated bottom-up and
// its result resolved and memoized, then the tree is evaluated synchronously.
// A nil resolver means no lookup functions are available; calling one then
// returns an *UnknownFunctionError.
//
// Unresolved field paths evaluate to null. A null operand makes a comparison
// false rather than an error.
func (p *Program) Eval(ctx context.Context, vars map[string]any, resolver Resolver) (any, error) {
	ev := &evaluator{vars: vars, resolver: resolver}
	if err := ev.resolveCalls(ctx, p.root); err != nil {
		return nil, err
	}
	return ev.eval(p.root)
}

// EvalBool evaluates the program and reduces the result to its truthiness.
func (p *Program) EvalBool(ctx context.Context, vars map[string]any, resolver Resolver) (bool, error) {
	v, err := p.Eval(ctx, vars, resolver)
	if err != nil {
		return false, err
	}
	return Truthy(v), nil
}

type evaluator struct {
	vars     map[string]any
	resolver Resolver
	resolved map[*callNode]any
}

// resolveCalls walks the tree post-order so nested lookups are resolved
// before the calls that consume them. Lookups in unreached branches of && ||
// and ?: are resolved too; they are reads, so this costs latency at worst.
func (ev *evaluator) resolveCalls(ctx context.Context, n node) error {
	switch x := n.(type) {
	case *literal, *ident:
		return nil
	case *selectNode:
		return ev.resolveCalls(ctx, x.base)
	case *unaryNode:
		return ev.resolveCalls(ctx, x.x)
	case *binaryNode:
		if err := ev.resolveCalls(ctx, x.lhs); err != nil {
			return err
		}
		return ev.resolveCalls(ctx, x.rhs)
	case *condNode:
		for _, c := range []node{x.cond, x.then, x.alt} {
			if err := ev.resolveCalls(ctx, c); err != nil {
				return err
			}
		}
		return nil
	case *methodNode:
		if err := ev.resolveCalls(ctx, x.recv); err != nil {
			return err
		}
		for _, a := range x.args {
			if err := ev.resolveCalls(ctx, a); err != nil {
				return err
			}
		}
		return nil
	case *callNode:
		for _, a := range x.args {
			if err := ev.resolveCalls(ctx, a); err != nil {
				return err
			}
		}
		if x.name == "has" {
			return nil
		}
		if ev.resolver == nil || !ev.resolver.Knows(x.name) {
			return &UnknownFunctionError{Name: x.name}
		}
		args := make([]any, len(x.args))
		for i, a := range x.args {
			v, err := ev.eval(a)
			if err != nil {
				return err
			}
			args[i] = v
		}
		v, err := ev.resolver.Resolve(ctx, x.name, args)
		if err != nil {
			return err
		}
		if ev.resolved == nil {
			ev.resolved = make(map[*callNode]any)
		}
		ev.resolved[x] = v
		return nil
	}
	return fmt.Errorf("unhandled node %T", n)
}

func (ev *evaluator) eval(n node) (any, error) {
	switch x := n.(type) {
	case *literal:
		return x.val, nil
	case *ident:
		return ev.vars[x.name], nil
	case *selectNode:
		base, err := ev.eval(x.base)
		if err != nil {
			return nil, err
		}
		if m, ok := base.(map[string]any); ok {
			return m[x.field], nil
		}
		return nil, nil
	case *unaryNode:
		return ev.evalUnary(x)
	case *binaryNode:
		return ev.evalBinary(x)
	case *condNode:
		cond, err := ev.eval(x.cond)
		if err != nil {
			return nil, err
		}
		if Truthy(cond) {
			return ev.eval(x.then)
		}
		return ev.eval(x.alt)
	case *methodNode:
		return ev.evalMethod(x)
	case *callNode:
		if x.name == "has" {
			return ev.evalHas(x)
		}
		v, ok := ev.resolved[x]
		if !ok {
			return nil, &UnknownFunctionError{Name: x.name}
		}
		return v, nil
	}
	return nil, fmt.Errorf("unhandled node %T", n)
}

// evalHas implements the fixed existence convention: null and the empty
// string do not exist, everything else (numeric zero included) does.
func (ev *evaluator) evalHas(x *callNode) (any, error) {
	if len(x.args) != 1 {
		return nil, &SyntaxError{Pos: x.p, Msg: "has() takes exactly one argument"}
	}
	v, err := ev.eval(x.args[0])
	if err != nil {
		return nil, err
	}
	if v == nil {
		return false, nil
	}
	if s, ok := v.(string); ok {
		return s != "", nil
	}
	return true, nil
}

func (ev *evaluator) evalUnary(x *unaryNode) (any, error) {
	v, err := ev.eval(x.x)
	if err != nil {
		return nil, err
	}
	switch x.op {
	case tokNot:
		return !Truthy(v), nil
	case tokMinus:
		if v == nil {
			return nil, nil
		}
		d, ok := asDecimal(v)
		if !ok {
			return nil, fmt.Errorf("cannot negate %T", v)
		}
		return d.Neg(), nil
	}
	return nil, fmt.Errorf("unhandled unary operator")
}

func (ev *evaluator) evalBinary(x *binaryNode) (any, error) {
	// Logical operators short-circuit on truthiness.
	switch x.op {
	case tokAnd:
		lhs, err := ev.eval(x.lhs)
		if err != nil {
			return nil, err
		}
		if !Truthy(lhs) {
			return false, nil
		}
		rhs, err := ev.eval(x.rhs)
		if err != nil {
			return nil, err
		}
		return Truthy(rhs), nil
	case tokOr:
		lhs, err := ev.eval(x.lhs)
		if err != nil {
			return nil, err
		}
		if Truthy(lhs) {
			return true, nil
		}
		rhs, err := ev.eval(x.rhs)
		if err != nil {
			return nil, err
		}
		return Truthy(rhs), nil
	}

	lhs, err := ev.eval(x.lhs)
	if err != nil {
		return nil, err
	}
	rhs, err := ev.eval(x.rhs)
	if err != nil {
		return nil, err
	}

	switch x.op {
	case tokEq, tokNeq, tokLt, tokLte, tokGt, tokGte:
		// A null operand makes the comparison false, never an error.
		if lhs == nil || rhs == nil {
			return false, nil
		}
		return compare(x.op, lhs, rhs)
	case tokPlus, tokMinus, tokStar, tokSlash:
		// Derived numerics over null are null.
		if lhs == nil || rhs == nil {
			return nil, nil
		}
		a, ok1 := asDecimal(lhs)
		b, ok2 := asDecimal(rhs)
		if !ok1 || !ok2 {
			if x.op == tokPlus {
				if s1, ok := lhs.(string); ok {
					if s2, ok := rhs.(string); ok {
						return s1 + s2, nil
					}
				}
			}
			return nil, fmt.Errorf("arithmetic on non-numeric operands %T and %T", lhs, rhs)
		}
		switch x.op {
		case tokPlus:
			return a.Add(b), nil
		case tokMinus:
			return a.Sub(b), nil
		case tokStar:
			return a.Mul(b), nil
		case tokSlash:
			if b.IsZero() {
				return nil, fmt.Errorf("division by zero")
			}
			return a.Div(b), nil
		}
	}
	return nil, fmt.Errorf("unhandled binary operator")
}

func (ev *evaluator) evalMethod(x *methodNode) (any, error) {
	recv, err := ev.eval(x.recv)
	if err != nil {
		return nil, err
	}
	switch x.name {
	case "contains":
		if len(x.args) != 1 {
			return nil, &SyntaxError{Pos: x.p, Msg: "contains() takes exactly one argument"}
		}
		arg, err := ev.eval(x.args[0])
		if err != nil {
			return nil, err
		}
		s, ok1 := recv.(string)
		sub, ok2 := arg.(string)
		if !ok1 || !ok2 {
			return false, nil
		}
		return strings.Contains(s, sub), nil
	}
	return nil, &UnknownFunctionError{Name: x.name}
}

func compare(op tokenKind, lhs, rhs any) (any, error) {
	if a, ok := asDecimal(lhs); ok {
		if b, ok := asDecimal(rhs); ok {
			c := a.Cmp(b)
			return cmpResult(op, c), nil
		}
	}
	if a, ok := lhs.(string); ok {
		if b, ok := rhs.(string); ok {
			return cmpResult(op, strings.Compare(a, b)), nil
		}
	}
	if a, ok := lhs.(bool); ok {
		if b, ok := rhs.(bool); ok {
			switch op {
			case tokEq:
				return a == b, nil
			case tokNeq:
				return a != b, nil
			}
			return false, nil
		}
	}
	// Mismatched types: unequal, never ordered.
	switch op {
	case tokEq:
		return false, nil
	case tokNeq:
		return true, nil
	}
	return false, nil
}

func cmpResult(op tokenKind, c int) bool {
	switch op {
	case tokEq:
		return c == 0
	case tokNeq:
		return c != 0
	case tokLt:
		return c < 0
	case tokLte:
		return c <= 0
	case tokGt:
		return c > 0
	case tokGte:
		return c >= 0
	}
	return false
}

// Truthy maps expression values onto guard semantics: null and false are
// falsy, empty strings and zero decimals are falsy, everything else is truthy.
func Truthy(v any) bool {
	switch x := v.(type) {
	case nil:
		return false
	case bool:
		return x
	case string:
		return x != ""
	case decimal.Decimal:
		return !x.IsZero()
	default:
		return true
	}
}

func asDecimal(v any) (decimal.Decimal, bool) {
	switch n := v.(type) {
	case decimal.Decimal:
		return n, true
	case int:
		return decimal.NewFromInt(int64(n)), true
	case int64:
		return decimal.NewFromInt(n), true
	case float64:
		return decimal.NewFromFloat(n), true
	}
	return decimal.Decimal{}, false
}
