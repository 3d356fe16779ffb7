// Package unit models named units, their quantity kinds, and the hand-curated
// conversion graph between them.
package unit

import (
	"sync"
)

// Kind groups units measuring the same sort of quantity.
type Kind string

const (
	KindNone        Kind = "none"
	KindProbability Kind = "probability"
	KindFrequency   Kind = "frequency"
	KindTime        Kind = "time"
	KindRatio       Kind = "ratio"
)

// Unit is an immutable identity plus a mutable table of outgoing conversion
// factors. The table always holds the identity entry and is neither
// complete nor symmetric.
type Unit struct {
	Name                string
	WireName            string
	Kind                Kind
	SuppressWhenPrinted bool

	mu      sync.RWMutex
	factors map[*Unit]float64
}

// New creates a unit whose conversion table holds only the identity entry.
func New(name, wireName string, kind Kind, suppress bool) *Unit {
	u := &Unit{
		Name:                name,
		WireName:            wireName,
		Kind:                kind,
		SuppressWhenPrinted: suppress,
		factors:             make(map[*Unit]float64),
	}
	u.factors[u] = 1.0
	return u
}

// AddFactor records value_in_to = value_in_u * factor. Only this direction is
// added; the reverse edge must be registered separately.
func (u *Unit) AddFactor(to *Unit, factor float64) {
	if to == nil {
		return
	}
	u.mu.Lock()
	defer u.mu.Unlock()
	u.factors[to] = factor
}

// Factor returns the outgoing factor to another unit, if one is defined.
func (u *Unit) Factor(to *Unit) (float64, bool) {
	if u == nil || to == nil {
		return 0, false
	}
	u.mu.RLock()
	defer u.mu.RUnlock()
	f, ok := u.factors[to]
	return f, ok
}

// Targets lists the units this unit converts to, identity included.
func (u *Unit) Targets() []*Unit {
	u.mu.RLock()
	defer u.mu.RUnlock()
	out := make([]*Unit, 0, len(u.factors))
	for t := range u.factors {
		out = append(out, t)
	}
	return out
}

// IsDimensionless reports whether the unit denotes a pure ratio.
func (u *Unit) IsDimensionless() bool {
	return u != nil && u.Kind == KindRatio && u.WireName == WireDimensionless
}

// Label is the text printed next to a value; empty when suppressed.
func (u *Unit) Label() string {
	if u == nil || u.SuppressWhenPrinted {
		return ""
	}
	return u.Name
}

func (u *Unit) String() string {
	if u == nil {
		return "<nil unit>"
	}
	return u.WireName
}
