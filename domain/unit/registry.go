package unit

import (
	"fmt"
	"sync"

	"phaengine/domain/core"
)

// Reserved wire names.
const (
	WireNull          = "null"
	WireDimensionless = "dimensionless"
)

// Registry owns every known unit, keyed by wire name.
type Registry struct {
	mu     sync.RWMutex
	byWire map[string]*Unit
	order  []*Unit

	null          *Unit
	dimensionless *Unit
}

// NewRegistry returns a registry holding only the reserved null and
// dimensionless units.
func NewRegistry() *Registry {
	r := &Registry{byWire: make(map[string]*Unit)}
	r.null = New("(no unit)", WireNull, KindNone, true)
	r.dimensionless = New("Dimensionless", WireDimensionless, KindRatio, true)
	_ = r.Register(r.null)
	_ = r.Register(r.dimensionless)
	return r
}

// Register adds a unit. Wire names must be unique.
func (r *Registry) Register(u *Unit) error {
	if u == nil || u.WireName == "" {
		return fmt.Errorf("%w: unit without wire name", core.ErrContract)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byWire[u.WireName]; ok {
		return fmt.Errorf("%w: unit %s", core.ErrDuplicate, u.WireName)
	}
	r.byWire[u.WireName] = u
	r.order = append(r.order, u)
	return nil
}

// FindByWireName looks a unit up by its persisted name.
func (r *Registry) FindByWireName(name string) (*Unit, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	u, ok := r.byWire[name]
	return u, ok
}

// MustFind panics when name is not registered. Intended for wiring code that
// references the built-in catalogue.
func (r *Registry) MustFind(name string) *Unit {
	u, ok := r.FindByWireName(name)
	if !ok {
		panic(fmt.Sprintf("unit %q not registered", name))
	}
	return u
}

// Null is the reserved "no valid unit" marker.
func (r *Registry) Null() *Unit { return r.null }

// Dimensionless is the reserved unit of ratio quantities.
func (r *Registry) Dimensionless() *Unit { return r.dimensionless }

// All returns every registered unit in registration order.
func (r *Registry) All() []*Unit {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]*Unit(nil), r.order...)
}

// ByKind returns the units of one quantity kind in registration order.
func (r *Registry) ByKind(kind Kind) []*Unit {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*Unit
	for _, u := range r.order {
		if u.Kind == kind {
			out = append(out, u)
		}
	}
	return out
}

// Convert expresses value (in from) in unit to. Only a direct edge in from's
// table is used; no chaining through intermediate units is attempted.
func (r *Registry) Convert(value float64, from, to *Unit) (float64, error) {
	f, ok := from.Factor(to)
	if !ok {
		return 0, core.NewConversionError(from.String(), to.String())
	}
	return value * f, nil
}

// Link registers factor for from->to and 1/factor for to->from.
func Link(from, to *Unit, factor float64) {
	from.AddFactor(to, factor)
	if factor != 0 {
		to.AddFactor(from, 1/factor)
	}
}
