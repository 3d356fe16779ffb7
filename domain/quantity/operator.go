package quantity

import (
	"math"

	"gonum.org/v1/gonum/floats"

	"phaengine/domain/problem"
	"phaengine/domain/unit"
)

// Operator reduces a list of numbers and, separately, infers the unit of the
// reduction from the operand units.
type Operator interface {
	Name() string
	Result(args []float64) Result
	Unit(units []*unit.Unit) *unit.Unit
}

// Operator names as persisted.
const (
	OpAdd      = "Add"
	OpSubtract = "Subtract"
	OpMultiply = "Multiply"
	OpDivide   = "Divide"
	OpPower    = "Power"
)

// Operators is the arithmetic operator set of one environment.
type Operators struct {
	Add      Operator
	Subtract Operator
	Multiply Operator
	Divide   Operator
	Power    Operator

	byName map[string]Operator
}

// NewOperators builds the operator set. zero is the division guard.
func NewOperators(units *unit.Registry, problems *problem.Set, zero float64) *Operators {
	b := opBase{units: units, problems: problems, zero: zero}
	ops := &Operators{
		Add:      addOp{b.bounds(1, -1)},
		Subtract: subtractOp{b.bounds(0, -1)},
		Multiply: multiplyOp{b.bounds(1, -1)},
		Divide:   divideOp{b.bounds(2, 2)},
		Power:    powerOp{b.bounds(2, 2)},
	}
	ops.byName = map[string]Operator{
		OpAdd:      ops.Add,
		OpSubtract: ops.Subtract,
		OpMultiply: ops.Multiply,
		OpDivide:   ops.Divide,
		OpPower:    ops.Power,
	}
	return ops
}

// ByName finds an operator by its persisted name.
func (o *Operators) ByName(name string) (Operator, bool) {
	op, ok := o.byName[name]
	return op, ok
}

type opBase struct {
	units    *unit.Registry
	problems *problem.Set
	zero     float64
	min, max int // max < 0 means unbounded
}

func (b opBase) bounds(min, max int) opBase {
	b.min, b.max = min, max
	return b
}

func (b opBase) countOK(n int) bool {
	return n >= b.min && (b.max < 0 || n <= b.max)
}

func (b opBase) defined(u *unit.Unit) bool {
	return u != nil && u != b.units.Null()
}

// sameUnit is the Add/Subtract rule: all operand units equal and defined.
func (b opBase) sameUnit(units []*unit.Unit) *unit.Unit {
	if len(units) == 0 {
		return b.units.Null()
	}
	first := units[0]
	for _, u := range units {
		if !b.defined(u) || u != first {
			return b.units.Null()
		}
	}
	return first
}

type addOp struct{ opBase }

func (addOp) Name() string { return OpAdd }

func (o addOp) Result(args []float64) Result {
	if !o.countOK(len(args)) {
		return failed(o.problems.WrongOperandCount)
	}
	return number(floats.Sum(args))
}

func (o addOp) Unit(units []*unit.Unit) *unit.Unit { return o.sameUnit(units) }

type subtractOp struct{ opBase }

func (subtractOp) Name() string { return OpSubtract }

func (o subtractOp) Result(args []float64) Result {
	if !o.countOK(len(args)) {
		return failed(o.problems.WrongOperandCount)
	}
	if len(args) == 0 {
		return number(0)
	}
	return number(args[0] - floats.Sum(args[1:]))
}

func (o subtractOp) Unit(units []*unit.Unit) *unit.Unit { return o.sameUnit(units) }

type multiplyOp struct{ opBase }

func (multiplyOp) Name() string { return OpMultiply }

func (o multiplyOp) Result(args []float64) Result {
	if !o.countOK(len(args)) {
		return failed(o.problems.WrongOperandCount)
	}
	return number(floats.Prod(args))
}

// Unit allows at most one operand with a real dimension; the rest must be
// dimensionless.
func (o multiplyOp) Unit(units []*unit.Unit) *unit.Unit {
	if len(units) == 0 {
		return o.units.Null()
	}
	var carried *unit.Unit
	for _, u := range units {
		if !o.defined(u) {
			return o.units.Null()
		}
		if u.IsDimensionless() {
			continue
		}
		if carried != nil {
			return o.units.Null()
		}
		carried = u
	}
	if carried == nil {
		return o.units.Dimensionless()
	}
	return carried
}

type divideOp struct{ opBase }

func (divideOp) Name() string { return OpDivide }

func (o divideOp) Result(args []float64) Result {
	if !o.countOK(len(args)) {
		return failed(o.problems.WrongOperandCount)
	}
	if math.Abs(args[1]) < o.zero {
		return failed(o.problems.DivisionByZero)
	}
	return number(args[0] / args[1])
}

func (o divideOp) Unit(units []*unit.Unit) *unit.Unit {
	if len(units) != 2 || !o.defined(units[0]) || !o.defined(units[1]) {
		return o.units.Null()
	}
	num, den := units[0], units[1]
	switch {
	case num == den:
		return o.units.Dimensionless()
	case den.IsDimensionless():
		return num
	default:
		return o.units.Null()
	}
}

type powerOp struct{ opBase }

func (powerOp) Name() string { return OpPower }

func (o powerOp) Result(args []float64) Result {
	if !o.countOK(len(args)) {
		return failed(o.problems.WrongOperandCount)
	}
	v := math.Pow(args[0], args[1])
	if math.IsNaN(v) {
		return failed(o.problems.Undefined)
	}
	return number(v)
}

func (o powerOp) Unit(units []*unit.Unit) *unit.Unit {
	if len(units) != 2 || !units[0].IsDimensionless() || !units[1].IsDimensionless() {
		return o.units.Null()
	}
	return o.units.Dimensionless()
}
