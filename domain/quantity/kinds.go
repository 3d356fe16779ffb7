package quantity

import (
	"math"

	"phaengine/domain/core"
	"phaengine/domain/problem"
	"phaengine/domain/unit"
)

var posInf = math.Inf(1)

func isInf(v float64) bool { return math.IsInf(v, 0) }

// variant is the closed set of evaluation strategies.
type variant interface {
	kind() Kind
	value(q *Quantity, scenario core.ReceptorID, trail *Trail) Result
	unit(q *Quantity, scenario core.ReceptorID, trail *Trail) UnitResult
	acceptable(q *Quantity) []*unit.Unit
}

// storage is implemented by kinds holding their own per-scenario values.
type storage interface {
	values() *Values
}

// unitSetter is implemented by kinds whose unit may be set directly. It
// returns false when this particular instance refuses.
type unitSetter interface {
	setUnit(u *unit.Unit) bool
}

type userEntered struct {
	vals *Values
	u    *unit.Unit
}

func (*userEntered) kind() Kind        { return KindUser }
func (k *userEntered) values() *Values { return k.vals }
func (k *userEntered) setUnit(u *unit.Unit) bool {
	k.u = u
	return true
}

func (k *userEntered) value(q *Quantity, s core.ReceptorID, _ *Trail) Result {
	return q.storedValue(k.vals, s)
}

func (k *userEntered) unit(*Quantity, core.ReceptorID, *Trail) UnitResult {
	return UnitResult{Unit: k.u}
}

func (k *userEntered) acceptable(q *Quantity) []*unit.Unit { return q.sameKindUnits(k.u) }

type constantRef struct {
	c *Constant
}

func (*constantRef) kind() Kind { return KindConstant }

func (k *constantRef) value(q *Quantity, s core.ReceptorID, trail *Trail) Result {
	if k.c == nil || k.c.Quantity == nil {
		return failed(q.env.Problems.Undefined)
	}
	return k.c.Quantity.Value(s, trail)
}

func (k *constantRef) unit(q *Quantity, s core.ReceptorID, trail *Trail) UnitResult {
	if k.c == nil || k.c.Quantity == nil {
		return UnitResult{Unit: q.env.Units.Null()}
	}
	return k.c.Quantity.ResolveUnit(s, trail)
}

func (k *constantRef) acceptable(q *Quantity) []*unit.Unit { return []*unit.Unit{q.Unit()} }

type calculated struct {
	f *Formula
}

func (*calculated) kind() Kind { return KindCalc }

func (k *calculated) value(_ *Quantity, s core.ReceptorID, trail *Trail) Result {
	return k.f.Value(s, trail)
}

func (k *calculated) unit(_ *Quantity, s core.ReceptorID, trail *Trail) UnitResult {
	return k.f.Unit(s, trail)
}

func (k *calculated) acceptable(q *Quantity) []*unit.Unit { return []*unit.Unit{q.Unit()} }

type lookupKind struct {
	table *LookupTable
	input *Quantity
}

func (*lookupKind) kind() Kind { return KindLookup }

func (k *lookupKind) value(q *Quantity, s core.ReceptorID, trail *Trail) Result {
	if k.table == nil || k.input == nil {
		return failed(q.env.Problems.Undefined)
	}
	in := k.input.Value(s, trail)
	if !in.OK() {
		return in
	}
	x := in.Value
	if dims := k.table.Dimensions(); len(dims) == 1 && dims[0].Unit != nil {
		ur := k.input.ResolveUnit(s, trail)
		if ur.Problem != nil {
			return failed(ur.Problem)
		}
		if ur.Unit != dims[0].Unit && ur.Unit != q.env.Units.Null() {
			conv, err := q.env.Units.Convert(x, ur.Unit, dims[0].Unit)
			if err != nil {
				return failed(q.env.Problems.NoConversionFactor)
			}
			x = conv
		}
	}
	cell, err := k.table.LookupByNumericKey(x)
	if err != nil {
		q.env.Log.Error("quantity %s: %v", q.label(), err)
		return failed(q.env.Problems.Bug)
	}
	if cell == nil {
		return failed(q.env.Problems.OutOfTable)
	}
	r := cell.Value(s, trail)
	r.FellBack = r.FellBack || in.FellBack
	return r
}

func (k *lookupKind) unit(q *Quantity, s core.ReceptorID, trail *Trail) UnitResult {
	if k.table == nil {
		return UnitResult{Unit: q.env.Units.Null()}
	}
	return k.table.valueUnit(s, trail)
}

func (k *lookupKind) acceptable(q *Quantity) []*unit.Unit { return []*unit.Unit{q.Unit()} }

// AutoSource holds the host functions behind a host-computed quantity. Any
// of them may be nil.
type AutoSource struct {
	Calculate       func(scenario core.ReceptorID) Result
	Unit            func() *unit.Unit
	Status          func(scenario core.ReceptorID) *problem.Sentinel
	AcceptableUnits func() []*unit.Unit
}

type autoKind struct {
	src          *AutoSource
	fallback     Result
	fallbackUnit *unit.Unit
	overridable  bool
	override     *unit.Unit
}

func (env *Env) newAuto(src *AutoSource, overridable bool) *autoKind {
	return &autoKind{
		src:          src,
		fallback:     failed(env.Problems.NoCalculator),
		fallbackUnit: env.Units.Null(),
		overridable:  overridable,
	}
}

func (*autoKind) kind() Kind { return KindAuto }

func (k *autoKind) setUnit(u *unit.Unit) bool {
	if !k.overridable {
		return false
	}
	k.override = u
	return true
}

func (k *autoKind) value(_ *Quantity, s core.ReceptorID, _ *Trail) Result {
	if k.src == nil || k.src.Calculate == nil {
		return k.fallback
	}
	return k.src.Calculate(s)
}

func (k *autoKind) unit(*Quantity, core.ReceptorID, *Trail) UnitResult {
	if k.overridable && k.override != nil {
		return UnitResult{Unit: k.override}
	}
	if k.src != nil && k.src.Unit != nil {
		return UnitResult{Unit: k.src.Unit()}
	}
	return UnitResult{Unit: k.fallbackUnit}
}

func (k *autoKind) acceptable(q *Quantity) []*unit.Unit {
	if k.src != nil && k.src.AcceptableUnits != nil {
		return k.src.AcceptableUnits()
	}
	if k.overridable {
		return q.sameKindUnits(q.Unit())
	}
	return []*unit.Unit{q.Unit()}
}

type parentCopy struct {
	vals   *Values
	u      *unit.Unit
	parent *Quantity
}

func (*parentCopy) kind() Kind        { return KindCopied }
func (k *parentCopy) values() *Values { return k.vals }
func (k *parentCopy) setUnit(u *unit.Unit) bool {
	k.u = u
	return true
}

func (k *parentCopy) value(q *Quantity, s core.ReceptorID, _ *Trail) Result {
	return q.storedValue(k.vals, s)
}

func (k *parentCopy) unit(*Quantity, core.ReceptorID, *Trail) UnitResult {
	return UnitResult{Unit: k.u}
}

func (k *parentCopy) acceptable(q *Quantity) []*unit.Unit { return q.sameKindUnits(k.u) }

type parentLink struct {
	parent *Quantity
}

func (*parentLink) kind() Kind { return KindLinkedFrom }

func (k *parentLink) value(q *Quantity, s core.ReceptorID, trail *Trail) Result {
	if k.parent == nil {
		return failed(q.env.Problems.BrokenLink)
	}
	return k.parent.Value(s, trail)
}

func (k *parentLink) unit(q *Quantity, s core.ReceptorID, trail *Trail) UnitResult {
	if k.parent == nil {
		return UnitResult{Unit: q.env.Units.Null(), Problem: q.env.Problems.BrokenLink}
	}
	return k.parent.ResolveUnit(s, trail)
}

func (k *parentLink) acceptable(q *Quantity) []*unit.Unit { return []*unit.Unit{q.Unit()} }
