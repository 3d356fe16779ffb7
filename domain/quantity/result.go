package quantity

import (
	"phaengine/domain/problem"
	"phaengine/domain/unit"
)

// Result is a number or a problem sentinel. FellBack records that somewhere
// along the evaluation a missing scenario key was replaced by the default.
type Result struct {
	Value    float64
	Problem  *problem.Sentinel
	FellBack bool
}

// OK reports whether the result carries a number.
func (r Result) OK() bool { return r.Problem == nil }

func number(v float64) Result { return Result{Value: v} }

func failed(p *problem.Sentinel) Result { return Result{Problem: p} }

// UnitResult is a unit or a problem sentinel (a cycle found while deriving
// the unit).
type UnitResult struct {
	Unit    *unit.Unit
	Problem *problem.Sentinel
}

// Trail is the set of objects currently being evaluated on this call path.
// Re-entering one of them means the definition is circular.
type Trail struct {
	active map[any]struct{}
}

// NewTrail returns an empty trail.
func NewTrail() *Trail {
	return &Trail{active: make(map[any]struct{})}
}

// Has reports whether id is on the current path.
func (t *Trail) Has(id any) bool {
	_, ok := t.active[id]
	return ok
}

// Len is the depth of the current path.
func (t *Trail) Len() int { return len(t.active) }

func (t *Trail) enter(id any) bool {
	if _, ok := t.active[id]; ok {
		return false
	}
	t.active[id] = struct{}{}
	return true
}

func (t *Trail) leave(id any) {
	delete(t.active, id)
}

func ensureTrail(t *Trail) *Trail {
	if t == nil {
		return NewTrail()
	}
	return t
}
