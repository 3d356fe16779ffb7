package quantity

import (
	"math"

	"phaengine/domain/core"
	"phaengine/domain/receptor"
)

// Status is the per-scenario "is set" flag of a stored value.
type Status string

const (
	StatusOK    Status = "OK"
	StatusUnset Status = "Unset"
)

// Values is the per-scenario storage of user-entered and copied quantities.
// Every map carries the default receptor key.
type Values struct {
	value    map[core.ReceptorID]float64
	status   map[core.ReceptorID]Status
	infinite map[core.ReceptorID]bool
}

func newValues(keys []core.ReceptorID) *Values {
	v := &Values{
		value:    make(map[core.ReceptorID]float64, len(keys)),
		status:   make(map[core.ReceptorID]Status, len(keys)),
		infinite: make(map[core.ReceptorID]bool, len(keys)),
	}
	v.ensure(receptor.DefaultID)
	for _, k := range keys {
		v.ensure(k)
	}
	return v
}

func (v *Values) ensure(key core.ReceptorID) {
	if _, ok := v.status[key]; ok {
		return
	}
	v.value[key] = 0
	v.status[key] = StatusUnset
	v.infinite[key] = false
}

func (v *Values) has(key core.ReceptorID) bool {
	_, ok := v.status[key]
	return ok
}

func (v *Values) set(key core.ReceptorID, x float64) {
	v.ensure(key)
	v.value[key] = x
	v.status[key] = StatusOK
	v.infinite[key] = math.IsInf(x, 0)
}

func (v *Values) unset(key core.ReceptorID) {
	v.ensure(key)
	v.value[key] = 0
	v.status[key] = StatusUnset
	v.infinite[key] = false
}

func (v *Values) setInfinite(key core.ReceptorID, inf bool) {
	v.ensure(key)
	v.infinite[key] = inf
	if inf {
		v.status[key] = StatusOK
	}
}

// complete reports whether all three maps hold the default key.
func (v *Values) complete() bool {
	_, a := v.value[receptor.DefaultID]
	_, b := v.status[receptor.DefaultID]
	_, c := v.infinite[receptor.DefaultID]
	return a && b && c
}

// reseed keeps exactly keys, preserving stored entries and adding unset
// entries for keys never seen.
func (v *Values) reseed(keys []core.ReceptorID) *Values {
	out := newValues(nil)
	for _, k := range append([]core.ReceptorID{receptor.DefaultID}, keys...) {
		if v.has(k) {
			out.value[k] = v.value[k]
			out.status[k] = v.status[k]
			out.infinite[k] = v.infinite[k]
		} else {
			out.ensure(k)
		}
	}
	return out
}

func (v *Values) clone() *Values {
	out := &Values{
		value:    make(map[core.ReceptorID]float64, len(v.value)),
		status:   make(map[core.ReceptorID]Status, len(v.status)),
		infinite: make(map[core.ReceptorID]bool, len(v.infinite)),
	}
	for k, x := range v.value {
		out.value[k] = x
	}
	for k, s := range v.status {
		out.status[k] = s
	}
	for k, b := range v.infinite {
		out.infinite[k] = b
	}
	return out
}
