package quantity

import (
	"fmt"

	"phaengine/domain/core"
	"phaengine/domain/problem"
	"phaengine/domain/receptor"
	"phaengine/domain/unit"
)

// Kind is the wire tag of a quantity's evaluation strategy.
type Kind string

const (
	KindUser       Kind = "User"
	KindConstant   Kind = "Constant"
	KindCalc       Kind = "Calc"
	KindLookup     Kind = "Lookup"
	KindAuto       Kind = "Calculated"
	KindCopied     Kind = "Copied"
	KindLinkedFrom Kind = "LinkedFrom"
	// KindProblem only appears in persisted records; it never names a live
	// quantity.
	KindProblem Kind = "Problem"
)

// Kinds lists the live kinds in declaration order.
func Kinds() []Kind {
	return []Kind{KindUser, KindConstant, KindCalc, KindLookup, KindAuto, KindCopied, KindLinkedFrom}
}

// Format is the per-scenario display precision.
type Format struct {
	SigFigs    int  `json:"sig_figs,omitempty"`
	Scientific bool `json:"scientific,omitempty"`
}

// Checker is the optional host hook vetting an otherwise valid value.
type Checker interface {
	CheckValue(q *Quantity) *problem.Sentinel
}

// CheckerFunc adapts a function to Checker.
type CheckerFunc func(q *Quantity) *problem.Sentinel

func (f CheckerFunc) CheckValue(q *Quantity) *problem.Sentinel { return f(q) }

// Quantity is the stable handle a host attribute slot owns. Its kind may be
// replaced at runtime with Become; formulas and links keep referring to the
// same handle.
type Quantity struct {
	ID   core.QuantityID
	Name string

	env       *Env
	v         variant
	scenarios []core.ReceptorID
	formats   map[core.ReceptorID]Format
	recovery  Recovery
	checker   Checker
}

func (env *Env) newHandle(name string) *Quantity {
	q := &Quantity{
		ID:      core.NewQuantityID(),
		Name:    name,
		env:     env,
		formats: make(map[core.ReceptorID]Format),
	}
	for _, k := range env.scenarioKeys() {
		q.scenarios = append(q.scenarios, k)
		q.formats[k] = Format{}
	}
	if _, ok := q.formats[receptor.DefaultID]; !ok {
		q.scenarios = append([]core.ReceptorID{receptor.DefaultID}, q.scenarios...)
		q.formats[receptor.DefaultID] = Format{}
	}
	return q
}

// NewUserEntered creates a quantity holding user-typed values, all unset.
func (env *Env) NewUserEntered(name string, u *unit.Unit) *Quantity {
	q := env.newHandle(name)
	q.v = &userEntered{vals: newValues(q.scenarios), u: u}
	return q
}

// NewConstantRef creates a quantity delegating to a named constant.
func (env *Env) NewConstantRef(name string, c *Constant) *Quantity {
	q := env.newHandle(name)
	q.v = &constantRef{c: c}
	return q
}

// NewCalculated creates a quantity evaluating a formula it owns.
func (env *Env) NewCalculated(name string, f *Formula) *Quantity {
	q := env.newHandle(name)
	if f == nil {
		f = env.NewFormula(nil)
	}
	q.v = &calculated{f: f}
	return q
}

// NewLookup creates a quantity reading a lookup table at input's value.
func (env *Env) NewLookup(name string, t *LookupTable, input *Quantity) *Quantity {
	q := env.newHandle(name)
	q.v = &lookupKind{table: t, input: input}
	return q
}

// NewAuto creates a host-computed quantity. With overridableUnit the user
// may still pick the display unit.
func (env *Env) NewAuto(name string, src *AutoSource, overridableUnit bool) *Quantity {
	q := env.newHandle(name)
	q.v = env.newAuto(src, overridableUnit)
	return q
}

// NewParentCopy creates an independent copy of parent's current values.
func (env *Env) NewParentCopy(name string, parent *Quantity) *Quantity {
	q := env.newHandle(name)
	vals, u := q.copyFrom(parent)
	q.v = &parentCopy{vals: vals, u: u, parent: parent}
	return q
}

// NewParentLink creates a quantity re-reading parent on every access.
func (env *Env) NewParentLink(name string, parent *Quantity) *Quantity {
	q := env.newHandle(name)
	q.v = &parentLink{parent: parent}
	return q
}

// Env returns the environment the quantity was created in.
func (q *Quantity) Env() *Env { return q.env }

// Kind returns the current evaluation strategy.
func (q *Quantity) Kind() Kind { return q.v.kind() }

// Settable reports whether SetValue is accepted by the current kind.
func (q *Quantity) Settable() bool {
	_, ok := q.v.(storage)
	return ok
}

// Scenarios returns the scenario keys the quantity carries, default first.
func (q *Quantity) Scenarios() []core.ReceptorID {
	return append([]core.ReceptorID(nil), q.scenarios...)
}

// SetChecker installs the host's value check hook. Nil removes it.
func (q *Quantity) SetChecker(c Checker) {
	q.checker = c
	q.env.touch()
}

func (q *Quantity) label() string {
	if q.Name != "" {
		return q.Name
	}
	return q.ID.String()
}

// Value evaluates the quantity for one scenario. trail carries the objects
// already being evaluated by the caller; nil starts a fresh evaluation.
func (q *Quantity) Value(scenario core.ReceptorID, trail *Trail) Result {
	trail = ensureTrail(trail)
	if !trail.enter(q) {
		return failed(q.env.Problems.Circular)
	}
	defer trail.leave(q)
	return q.v.value(q, scenario, trail)
}

// ResolveUnit derives the quantity's unit, reporting cycles as a problem.
func (q *Quantity) ResolveUnit(scenario core.ReceptorID, trail *Trail) UnitResult {
	trail = ensureTrail(trail)
	if !trail.enter(q) {
		return UnitResult{Unit: q.env.Units.Null(), Problem: q.env.Problems.Circular}
	}
	defer trail.leave(q)
	ur := q.v.unit(q, scenario, trail)
	if ur.Unit == nil {
		ur.Unit = q.env.Units.Null()
	}
	return ur
}

func (q *Quantity) resolveUnit(scenario core.ReceptorID, trail *Trail) UnitResult {
	return q.ResolveUnit(scenario, trail)
}

// Unit returns the quantity's unit for the default scenario; the null unit
// stands for "no valid unit".
func (q *Quantity) Unit() *unit.Unit {
	return q.ResolveUnit(receptor.DefaultID, nil).Unit
}

// Status is nil when the scenario's value is usable, otherwise the problem.
func (q *Quantity) Status(scenario core.ReceptorID) *problem.Sentinel {
	if a, ok := q.v.(*autoKind); ok && a.src != nil && a.src.Status != nil {
		if p := a.src.Status(scenario); p != nil {
			return p
		}
	} else if r := q.Value(scenario, nil); !r.OK() {
		return r.Problem
	}
	if q.checker != nil {
		return q.checker.CheckValue(q)
	}
	return nil
}

// AcceptableUnits lists the units the quantity may be expressed in.
func (q *Quantity) AcceptableUnits() []*unit.Unit {
	return q.v.acceptable(q)
}

// Infinite reports whether the scenario's value is infinite.
func (q *Quantity) Infinite(scenario core.ReceptorID) bool {
	if st, ok := q.v.(storage); ok {
		vals := st.values()
		key, _ := q.storedKey(vals, scenario, false)
		return vals.infinite[key]
	}
	r := q.Value(scenario, nil)
	return r.OK() && isInf(r.Value)
}

// Format returns the display precision for a scenario, defaults applied.
func (q *Quantity) Format(scenario core.ReceptorID) Format {
	f, ok := q.formats[scenario]
	if !ok {
		f = q.formats[receptor.DefaultID]
	}
	if f.SigFigs <= 0 {
		f.SigFigs = q.env.Settings.DefaultSigFigs
	}
	return f
}

// SetFormat changes display precision; every kind accepts it.
func (q *Quantity) SetFormat(scenario core.ReceptorID, f Format) error {
	if err := q.AddScenario(scenario); err != nil {
		return err
	}
	q.formats[scenario] = f
	q.env.touch()
	return nil
}

// AddScenario extends the quantity's key set with a registered receptor.
func (q *Quantity) AddScenario(scenario core.ReceptorID) error {
	if !q.env.Receptors.Has(scenario) {
		return fmt.Errorf("%w: %s", core.ErrReceptorNotFound, scenario)
	}
	if _, ok := q.formats[scenario]; ok {
		return nil
	}
	q.scenarios = append(q.scenarios, scenario)
	q.formats[scenario] = Format{}
	if st, ok := q.v.(storage); ok {
		st.values().ensure(scenario)
	}
	q.env.touch()
	return nil
}

// SetValue stores a number for a scenario. Only user-entered and copied
// quantities accept it.
func (q *Quantity) SetValue(scenario core.ReceptorID, x float64) error {
	st, ok := q.v.(storage)
	if !ok {
		return core.NewUnsupportedError("set value", string(q.Kind()))
	}
	if err := q.AddScenario(scenario); err != nil {
		return err
	}
	st.values().set(scenario, x)
	q.env.touch()
	return nil
}

// SetInfinite marks a scenario's value as infinite (or clears the mark).
func (q *Quantity) SetInfinite(scenario core.ReceptorID, inf bool) error {
	st, ok := q.v.(storage)
	if !ok {
		return core.NewUnsupportedError("set infinite", string(q.Kind()))
	}
	if err := q.AddScenario(scenario); err != nil {
		return err
	}
	st.values().setInfinite(scenario, inf)
	q.env.touch()
	return nil
}

// Unset clears a scenario's value.
func (q *Quantity) Unset(scenario core.ReceptorID) error {
	st, ok := q.v.(storage)
	if !ok {
		return core.NewUnsupportedError("unset value", string(q.Kind()))
	}
	if err := q.AddScenario(scenario); err != nil {
		return err
	}
	st.values().unset(scenario)
	q.env.touch()
	return nil
}

// SetUnit changes the unit of user-entered and copied quantities, and of
// host-computed quantities created with an overridable unit.
func (q *Quantity) SetUnit(u *unit.Unit) error {
	if u == nil {
		return fmt.Errorf("%w: nil unit", core.ErrContract)
	}
	us, ok := q.v.(unitSetter)
	if !ok || !us.setUnit(u) {
		return core.NewUnsupportedError("set unit", string(q.Kind()))
	}
	q.env.touch()
	return nil
}

// Validate reports a broken default-key invariant.
func (q *Quantity) Validate() error {
	if _, ok := q.formats[receptor.DefaultID]; !ok {
		return fmt.Errorf("%w: quantity %s formats", core.ErrMissingDefaultScenario, q.label())
	}
	if st, ok := q.v.(storage); ok && !st.values().complete() {
		return fmt.Errorf("%w: quantity %s values", core.ErrMissingDefaultScenario, q.label())
	}
	return nil
}

// storedKey picks the key to read from vals, falling back to the default.
func (q *Quantity) storedKey(vals *Values, scenario core.ReceptorID, warn bool) (core.ReceptorID, bool) {
	if vals.has(scenario) {
		return scenario, false
	}
	if warn {
		q.env.Log.Warn("quantity %s: no value for scenario %s, using default", q.label(), scenario)
	}
	return receptor.DefaultID, true
}

func (q *Quantity) storedValue(vals *Values, scenario core.ReceptorID) Result {
	if !vals.complete() {
		q.env.Log.Error("quantity %s: default scenario missing from stored values", q.label())
		return failed(q.env.Problems.Bug)
	}
	key, fell := q.storedKey(vals, scenario, true)
	var r Result
	switch {
	case vals.status[key] != StatusOK:
		r = failed(q.env.Problems.Undefined)
	case vals.infinite[key]:
		v := vals.value[key]
		if !isInf(v) {
			v = posInf
		}
		r = number(v)
	default:
		r = number(vals.value[key])
	}
	r.FellBack = fell
	return r
}

func (q *Quantity) sameKindUnits(u *unit.Unit) []*unit.Unit {
	if u == nil || u == q.env.Units.Null() {
		var out []*unit.Unit
		for _, c := range q.env.Units.All() {
			if c != q.env.Units.Null() {
				out = append(out, c)
			}
		}
		return out
	}
	return q.env.Units.ByKind(u.Kind)
}

// copyFrom snapshots parent's values for every key of q.
func (q *Quantity) copyFrom(parent *Quantity) (*Values, *unit.Unit) {
	vals := newValues(q.scenarios)
	if parent == nil {
		return vals, nil
	}
	for _, k := range q.scenarios {
		r := parent.Value(k, nil)
		if !r.OK() {
			continue
		}
		vals.set(k, r.Value)
	}
	return vals, parent.Unit()
}
