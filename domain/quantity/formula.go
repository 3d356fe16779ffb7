package quantity

import (
	"phaengine/domain/core"
	"phaengine/domain/unit"
)

// Operand is a literal number, a *Quantity, or a nested *Formula.
type Operand interface {
	isOperand()
}

// Literal is a raw number operand. Its unit is dimensionless.
type Literal float64

func (Literal) isOperand()   {}
func (*Quantity) isOperand() {}
func (*Formula) isOperand()  {}

// Formula is an ordered operand list reduced through one Operator. It is
// owned by exactly one calculated quantity; the quantities it references
// are not owned.
type Formula struct {
	Operator Operator
	Operands []Operand

	env *Env
}

// NewFormula builds a formula. A nil operator yields Undefined on evaluation.
func (env *Env) NewFormula(op Operator, operands ...Operand) *Formula {
	return &Formula{Operator: op, Operands: operands, env: env}
}

// Value evaluates the formula for one scenario. An operand problem is
// returned as-is (leftmost wins) without invoking the operator.
func (f *Formula) Value(scenario core.ReceptorID, trail *Trail) Result {
	trail = ensureTrail(trail)
	if !trail.enter(f) {
		return failed(f.env.Problems.Circular)
	}
	defer trail.leave(f)

	if f.Operator == nil {
		return failed(f.env.Problems.Undefined)
	}

	args := make([]float64, 0, len(f.Operands))
	fellBack := false
	for _, op := range f.Operands {
		r := f.operandValue(op, scenario, trail)
		fellBack = fellBack || r.FellBack
		if !r.OK() {
			r.FellBack = fellBack
			return r
		}
		args = append(args, r.Value)
	}

	res := f.Operator.Result(args)
	res.FellBack = fellBack
	return res
}

func (f *Formula) operandValue(op Operand, scenario core.ReceptorID, trail *Trail) Result {
	switch o := op.(type) {
	case Literal:
		return number(float64(o))
	case *Quantity:
		if o == nil {
			return failed(f.env.Problems.BrokenLink)
		}
		return o.Value(scenario, trail)
	case *Formula:
		if o == nil {
			return failed(f.env.Problems.Undefined)
		}
		return o.Value(scenario, trail)
	default:
		return failed(f.env.Problems.Bug)
	}
}

// Unit derives the formula's unit with the same cycle guard as Value.
func (f *Formula) Unit(scenario core.ReceptorID, trail *Trail) UnitResult {
	trail = ensureTrail(trail)
	if !trail.enter(f) {
		return UnitResult{Unit: f.env.Units.Null(), Problem: f.env.Problems.Circular}
	}
	defer trail.leave(f)

	if f.Operator == nil {
		return UnitResult{Unit: f.env.Units.Null()}
	}

	units := make([]*unit.Unit, 0, len(f.Operands))
	for _, op := range f.Operands {
		ur := f.operandUnit(op, scenario, trail)
		if ur.Problem != nil {
			return ur
		}
		units = append(units, ur.Unit)
	}
	return UnitResult{Unit: f.Operator.Unit(units)}
}

func (f *Formula) operandUnit(op Operand, scenario core.ReceptorID, trail *Trail) UnitResult {
	switch o := op.(type) {
	case Literal:
		return UnitResult{Unit: f.env.Units.Dimensionless()}
	case *Quantity:
		if o == nil {
			return UnitResult{Unit: f.env.Units.Null(), Problem: f.env.Problems.BrokenLink}
		}
		return o.resolveUnit(scenario, trail)
	case *Formula:
		if o == nil {
			return UnitResult{Unit: f.env.Units.Null()}
		}
		return o.Unit(scenario, trail)
	default:
		return UnitResult{Unit: f.env.Units.Null(), Problem: f.env.Problems.Bug}
	}
}

// References lists the quantities this formula (and its nested formulas)
// refer to, in operand order.
func (f *Formula) References() []*Quantity {
	var out []*Quantity
	var walk func(*Formula)
	seen := map[*Formula]bool{}
	walk = func(g *Formula) {
		if g == nil || seen[g] {
			return
		}
		seen[g] = true
		for _, op := range g.Operands {
			switch o := op.(type) {
			case *Quantity:
				out = append(out, o)
			case *Formula:
				walk(o)
			}
		}
	}
	walk(f)
	return out
}
