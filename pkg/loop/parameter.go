package loop

import "fmt"

// ValueProvider is anything that can be asked for its current integer value.
// Both ConstantParameter and *MappedParameter implement it, so a
// MappedParameter's namespace can bind a name to either a plain constant or
// another (possibly volatile) parameter — mirroring how qupulse's
// MappedParameter namespace binds names to ConstantParameter or
// MappedParameter instances (original_source/qupulse/_program/_loop.py:396-409).
type ValueProvider interface {
	Value() int
}

// ConstantParameter is a named integer constant usable as a namespace entry.
type ConstantParameter int

// Value returns the constant's integer value.
func (c ConstantParameter) Value() int { return int(c) }

// Expr is a node in the small, deliberately unsimplified expression tree
// built by the single-child-merge and split_one_child algebra. No
// simplification pass is attempted; expressions are evaluated, not reduced,
// matching the qupulse original's ExpressionScalar usage.
type Expr interface {
	eval(ns map[string]ValueProvider) int
	String() string
}

type exprConst int

func (e exprConst) eval(map[string]ValueProvider) int { return int(e) }
func (e exprConst) String() string                    { return fmt.Sprintf("%d", int(e)) }

type exprRef string

func (e exprRef) eval(ns map[string]ValueProvider) int {
	vp, ok := ns[string(e)]
	if !ok {
		panic(fmt.Sprintf("loop: unbound parameter reference %q", string(e)))
	}
	return vp.Value()
}
func (e exprRef) String() string { return string(e) }

type exprMul struct {
	a, b Expr
}

func (e exprMul) eval(ns map[string]ValueProvider) int { return e.a.eval(ns) * e.b.eval(ns) }
func (e exprMul) String() string                       { return fmt.Sprintf("(%s * %s)", e.a, e.b) }

type exprSub struct {
	a Expr
	k int
}

func (e exprSub) eval(ns map[string]ValueProvider) int { return e.a.eval(ns) - e.k }
func (e exprSub) String() string                       { return fmt.Sprintf("(%s - %d)", e.a, e.k) }

// MappedParameter is a symbolic integer-valued expression evaluated over a
// mutable namespace of named constants and/or nested parameters. Attaching
// one to a Loop's repetition count marks that node volatile: changeable
// after compilation via UpdateConstants.
type MappedParameter struct {
	expr      Expr
	namespace map[string]ValueProvider
}

// NewConstantMappedParameter creates a MappedParameter that is just a named
// constant, the common case of a single free variable in the namespace.
func NewConstantMappedParameter(name string, value int) *MappedParameter {
	return &MappedParameter{
		expr:      exprRef(name),
		namespace: map[string]ValueProvider{name: ConstantParameter(value)},
	}
}

// Value evaluates the expression over the current namespace.
func (p *MappedParameter) Value() int {
	return p.expr.eval(p.namespace)
}

// UpdateConstants updates the named constants in the namespace that are
// present in newValues, leaving nested MappedParameter bindings (and names
// absent from newValues) untouched. Each updated Loop must call this then
// re-derive its repetition_count from Value() (see (*Loop).UpdateVolatileRepetition).
func (p *MappedParameter) UpdateConstants(newValues map[string]int) {
	for name, v := range newValues {
		if _, ok := p.namespace[name]; ok {
			p.namespace[name] = ConstantParameter(v)
		}
	}
}

// MulInt returns a new MappedParameter computing p.Value() * n, sharing p's
// namespace. Used when merging a volatile parent into a fixed-repetition
// child (or vice versa).
func (p *MappedParameter) MulInt(n int) *MappedParameter {
	return &MappedParameter{
		expr:      exprMul{a: p.expr, b: exprConst(n)},
		namespace: p.namespace,
	}
}

// SubInt returns a new MappedParameter computing p.Value() - n, sharing p's
// namespace. Used by split_one_child to rewrite a volatile child's
// expression as old_expr - 1.
func (p *MappedParameter) SubInt(n int) *MappedParameter {
	return &MappedParameter{
		expr:      exprSub{a: p.expr, k: n},
		namespace: p.namespace,
	}
}

// MulParameter returns a new MappedParameter computing selfName * otherName,
// where selfName is bound to p and otherName to other. Used when merging two
// volatile repetition counts together (both parent and child volatile).
func (p *MappedParameter) MulParameter(other *MappedParameter, selfName, otherName string) *MappedParameter {
	return &MappedParameter{
		expr: exprMul{a: exprRef(selfName), b: exprRef(otherName)},
		namespace: map[string]ValueProvider{
			selfName:  p,
			otherName: other,
		},
	}
}

// String renders the unevaluated expression, for debugging.
func (p *MappedParameter) String() string {
	return p.expr.String()
}
