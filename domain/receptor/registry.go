// Package receptor holds the scenario registry: the set of risk receptors a
// quantity may carry a separate value for.
package receptor

import (
	"fmt"
	"sync"

	"phaengine/domain/core"
)

// DefaultID identifies the receptor every per-scenario map must contain.
const DefaultID core.ReceptorID = "default"

// Receptor is one scenario axis of the numeric model, such as a population group.
type Receptor struct {
	ID   core.ReceptorID `json:"id"`
	Name string          `json:"name"`
}

// Registry enumerates the known receptors in registration order.
type Registry struct {
	mu    sync.RWMutex
	byID  map[core.ReceptorID]Receptor
	order []core.ReceptorID
}

// NewRegistry creates a registry holding only the default receptor.
func NewRegistry() *Registry {
	r := &Registry{byID: make(map[core.ReceptorID]Receptor)}
	r.byID[DefaultID] = Receptor{ID: DefaultID, Name: "Default"}
	r.order = append(r.order, DefaultID)
	return r
}

// Register adds a receptor. Re-registering an id is a contract violation.
func (r *Registry) Register(rec Receptor) error {
	if rec.ID == "" {
		return fmt.Errorf("%w: receptor id is empty", core.ErrContract)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[rec.ID]; ok {
		return fmt.Errorf("%w: receptor %s", core.ErrDuplicate, rec.ID)
	}
	r.byID[rec.ID] = rec
	r.order = append(r.order, rec.ID)
	return nil
}

// Default returns the distinguished default receptor.
func (r *Registry) Default() Receptor {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.byID[DefaultID]
}

// Get returns the receptor with the given id.
func (r *Registry) Get(id core.ReceptorID) (Receptor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.byID[id]
	return rec, ok
}

// Has reports whether id is registered.
func (r *Registry) Has(id core.ReceptorID) bool {
	_, ok := r.Get(id)
	return ok
}

// List returns all receptors, default first.
func (r *Registry) List() []Receptor {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Receptor, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.byID[id])
	}
	return out
}

// IDs returns the registered receptor ids, default first.
func (r *Registry) IDs() []core.ReceptorID {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]core.ReceptorID(nil), r.order...)
}

// Resolve maps an unknown id onto the default receptor. The second result
// reports whether a fallback happened.
func (r *Registry) Resolve(id core.ReceptorID) (core.ReceptorID, bool) {
	if r.Has(id) {
		return id, false
	}
	return DefaultID, true
}
