package quantity

import (
	"fmt"

	"phaengine/domain/core"
	"phaengine/domain/unit"
)

// Recovery is the state a quantity salvages from kinds it no longer has, so
// switching back restores earlier input.
type Recovery struct {
	UserValues *Values
	UserUnit   *unit.Unit

	Constant *Constant
	Formula  *Formula

	Table *LookupTable
	Input *Quantity

	CopiedValues *Values
	CopiedUnit   *unit.Unit
	Parent       *Quantity

	Auto            *AutoSource
	AutoOverridable bool
	AutoUnit        *unit.Unit
}

// Recovery returns a copy of the salvaged state.
func (q *Quantity) Recovery() Recovery { return q.recovery }

// Become switches the quantity to another kind. Kind-specific state of the
// current kind is archived first and state archived earlier for the target
// kind is restored. The scenario key set is carried over unchanged.
func (q *Quantity) Become(k Kind) error {
	if k == q.Kind() {
		return nil
	}
	current := q.Unit()
	q.archive()
	nv, err := q.build(k, current)
	if err != nil {
		return err
	}
	q.v = nv
	q.env.touch()
	return nil
}

func (q *Quantity) archive() {
	r := &q.recovery
	switch v := q.v.(type) {
	case *userEntered:
		r.UserValues = v.vals.clone()
		r.UserUnit = v.u
	case *constantRef:
		r.Constant = v.c
	case *calculated:
		r.Formula = v.f
	case *lookupKind:
		r.Table = v.table
		r.Input = v.input
	case *autoKind:
		r.Auto = v.src
		r.AutoOverridable = v.overridable
		r.AutoUnit = v.override
	case *parentCopy:
		r.CopiedValues = v.vals.clone()
		r.CopiedUnit = v.u
		r.Parent = v.parent
	case *parentLink:
		r.Parent = v.parent
	}
}

func (q *Quantity) build(k Kind, current *unit.Unit) (variant, error) {
	r := q.recovery
	if current == q.env.Units.Null() {
		current = nil
	}
	switch k {
	case KindUser:
		vals := newValues(q.scenarios)
		if r.UserValues != nil {
			vals = r.UserValues.reseed(q.scenarios)
		}
		u := r.UserUnit
		if u == nil {
			u = firstUnit(current, q.env.Units.Dimensionless())
		}
		return &userEntered{vals: vals, u: u}, nil
	case KindConstant:
		return &constantRef{c: r.Constant}, nil
	case KindCalc:
		f := r.Formula
		if f == nil {
			f = q.env.NewFormula(nil)
		}
		return &calculated{f: f}, nil
	case KindLookup:
		return &lookupKind{table: r.Table, input: r.Input}, nil
	case KindAuto:
		a := q.env.newAuto(r.Auto, r.AutoOverridable)
		a.override = r.AutoUnit
		return a, nil
	case KindCopied:
		if r.CopiedValues != nil {
			return &parentCopy{vals: r.CopiedValues.reseed(q.scenarios), u: firstUnit(r.CopiedUnit, current), parent: r.Parent}, nil
		}
		vals, u := q.copyFrom(r.Parent)
		return &parentCopy{vals: vals, u: firstUnit(u, current), parent: r.Parent}, nil
	case KindLinkedFrom:
		return &parentLink{parent: r.Parent}, nil
	default:
		return nil, fmt.Errorf("%w: %s", core.ErrUnknownKind, k)
	}
}

func firstUnit(units ...*unit.Unit) *unit.Unit {
	for _, u := range units {
		if u != nil {
			return u
		}
	}
	return nil
}

// Formula returns the owned formula of a calculated quantity.
func (q *Quantity) Formula() (*Formula, bool) {
	c, ok := q.v.(*calculated)
	if !ok {
		return nil, false
	}
	return c.f, true
}

// SetFormula replaces the formula of a calculated quantity.
func (q *Quantity) SetFormula(f *Formula) error {
	c, ok := q.v.(*calculated)
	if !ok {
		return core.NewUnsupportedError("set formula", string(q.Kind()))
	}
	if f == nil {
		f = q.env.NewFormula(nil)
	}
	c.f = f
	q.env.touch()
	return nil
}

// Constant returns the constant a constant-reference quantity points at.
func (q *Quantity) Constant() (*Constant, bool) {
	c, ok := q.v.(*constantRef)
	if !ok {
		return nil, false
	}
	return c.c, true
}

// SetConstant points a constant-reference quantity at another constant.
func (q *Quantity) SetConstant(c *Constant) error {
	ref, ok := q.v.(*constantRef)
	if !ok {
		return core.NewUnsupportedError("set constant", string(q.Kind()))
	}
	ref.c = c
	q.env.touch()
	return nil
}

// Lookup returns the table and input of a lookup quantity.
func (q *Quantity) Lookup() (*LookupTable, *Quantity, bool) {
	l, ok := q.v.(*lookupKind)
	if !ok {
		return nil, nil, false
	}
	return l.table, l.input, true
}

// SetLookup changes the table and input quantity of a lookup quantity.
func (q *Quantity) SetLookup(t *LookupTable, input *Quantity) error {
	l, ok := q.v.(*lookupKind)
	if !ok {
		return core.NewUnsupportedError("set lookup", string(q.Kind()))
	}
	l.table, l.input = t, input
	q.env.touch()
	return nil
}

// Parent returns the referenced parent of a copied or linked quantity.
func (q *Quantity) Parent() (*Quantity, bool) {
	switch v := q.v.(type) {
	case *parentCopy:
		return v.parent, true
	case *parentLink:
		return v.parent, true
	}
	return nil, false
}

// SetParent re-targets a linked quantity, or re-copies a copied quantity
// from a new parent.
func (q *Quantity) SetParent(p *Quantity) error {
	switch v := q.v.(type) {
	case *parentLink:
		v.parent = p
	case *parentCopy:
		vals, u := q.copyFrom(p)
		v.vals, v.parent = vals, p
		if u != nil {
			v.u = u
		}
	default:
		return core.NewUnsupportedError("set parent", string(q.Kind()))
	}
	q.env.touch()
	return nil
}

// SetAutoSource wires host functions into a host-computed quantity.
func (q *Quantity) SetAutoSource(src *AutoSource) error {
	a, ok := q.v.(*autoKind)
	if !ok {
		return core.NewUnsupportedError("set calculator", string(q.Kind()))
	}
	a.src = src
	q.env.touch()
	return nil
}

// SetAutoDefault configures what a host-computed quantity reports while no
// calculator is wired.
func (q *Quantity) SetAutoDefault(fallback Result, u *unit.Unit) error {
	a, ok := q.v.(*autoKind)
	if !ok {
		return core.NewUnsupportedError("set default", string(q.Kind()))
	}
	a.fallback = fallback
	if u != nil {
		a.fallbackUnit = u
	}
	q.env.touch()
	return nil
}

// UnitOverridable reports whether a host-computed quantity accepts SetUnit.
func (q *Quantity) UnitOverridable() bool {
	a, ok := q.v.(*autoKind)
	return ok && a.overridable
}
