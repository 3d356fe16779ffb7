package app

import (
	"fmt"
	"sync"

	"phaengine/domain/core"
	"phaengine/domain/quantity"
	"phaengine/domain/receptor"
	"phaengine/internal"
)

// Workspace owns one numeric model: named constants, lookup tables and
// quantities in display order, all created from the same environment.
//
// Mutations run under the write lock (AddX, Remove, Update); evaluation
// shares the read lock. Evaluated cells are memoised and dropped whenever
// the environment's generation moves.
type Workspace struct {
	mu   sync.RWMutex
	name string
	env  *quantity.Env
	log  *internal.Logger

	constants  map[core.ConstantID]*quantity.Constant
	constOrder []core.ConstantID
	tables     map[core.TableID]*quantity.LookupTable
	tableOrder []core.TableID
	quantities map[core.QuantityID]*quantity.Quantity
	order      []core.QuantityID

	memoMu       sync.Mutex
	memoGen      uint64
	memoVolatile bool
	memo         map[memoKey]evaluation
}

type memoKey struct {
	id       core.QuantityID
	scenario core.ReceptorID
}

// NewWorkspace creates an empty workspace over env.
func NewWorkspace(name string, env *quantity.Env, log *internal.Logger) *Workspace {
	if log == nil {
		log = internal.NewDefaultLogger()
	}
	return &Workspace{
		name:       name,
		env:        env,
		log:        log,
		constants:  make(map[core.ConstantID]*quantity.Constant),
		tables:     make(map[core.TableID]*quantity.LookupTable),
		quantities: make(map[core.QuantityID]*quantity.Quantity),
		memo:       make(map[memoKey]evaluation),
	}
}

// Name returns the workspace name.
func (ws *Workspace) Name() string { return ws.name }

// Env returns the environment every object of the workspace belongs to.
func (ws *Workspace) Env() *quantity.Env { return ws.env }

// AddReceptor registers a scenario. Existing objects carry no value for it
// and fall back to their default value until one is set.
func (ws *Workspace) AddReceptor(r receptor.Receptor) error {
	ws.mu.Lock()
	defer ws.mu.Unlock()
	if err := ws.env.Receptors.Register(r); err != nil {
		return err
	}
	ws.resetMemo()
	ws.log.Info("workspace %s: added receptor %s", ws.name, r.ID)
	return nil
}

// AddQuantity appends q to the display order.
func (ws *Workspace) AddQuantity(q *quantity.Quantity) error {
	ws.mu.Lock()
	defer ws.mu.Unlock()
	if err := ws.addQuantity(q); err != nil {
		return err
	}
	ws.resetMemo()
	return nil
}

func (ws *Workspace) addQuantity(q *quantity.Quantity) error {
	if q.Env() != ws.env {
		return fmt.Errorf("%w: quantity %s belongs to another environment", core.ErrContract, q.ID)
	}
	if _, ok := ws.quantities[q.ID]; ok {
		return fmt.Errorf("%w: quantity %s", core.ErrDuplicate, q.ID)
	}
	ws.quantities[q.ID] = q
	ws.order = append(ws.order, q.ID)
	return nil
}

// AddConstant registers a named constant.
func (ws *Workspace) AddConstant(c *quantity.Constant) error {
	ws.mu.Lock()
	defer ws.mu.Unlock()
	return ws.addConstant(c)
}

func (ws *Workspace) addConstant(c *quantity.Constant) error {
	if _, ok := ws.constants[c.ID]; ok {
		return fmt.Errorf("%w: constant %s", core.ErrDuplicate, c.ID)
	}
	ws.constants[c.ID] = c
	ws.constOrder = append(ws.constOrder, c.ID)
	return nil
}

// AddTable registers a lookup table.
func (ws *Workspace) AddTable(t *quantity.LookupTable) error {
	ws.mu.Lock()
	defer ws.mu.Unlock()
	return ws.addTable(t)
}

func (ws *Workspace) addTable(t *quantity.LookupTable) error {
	if _, ok := ws.tables[t.ID]; ok {
		return fmt.Errorf("%w: lookup table %s", core.ErrDuplicate, t.ID)
	}
	ws.tables[t.ID] = t
	ws.tableOrder = append(ws.tableOrder, t.ID)
	return nil
}

// Quantity returns the quantity with the given id. Callers change it only
// inside Update.
func (ws *Workspace) Quantity(id core.QuantityID) (*quantity.Quantity, bool) {
	ws.mu.RLock()
	defer ws.mu.RUnlock()
	q, ok := ws.quantities[id]
	return q, ok
}

// FindQuantity returns the first quantity, in display order, with the name.
func (ws *Workspace) FindQuantity(name string) (*quantity.Quantity, bool) {
	ws.mu.RLock()
	defer ws.mu.RUnlock()
	for _, id := range ws.order {
		if q := ws.quantities[id]; q.Name == name {
			return q, true
		}
	}
	return nil, false
}

// Constant returns the constant with the given id.
func (ws *Workspace) Constant(id core.ConstantID) (*quantity.Constant, bool) {
	ws.mu.RLock()
	defer ws.mu.RUnlock()
	c, ok := ws.constants[id]
	return c, ok
}

// Table returns the lookup table with the given id.
func (ws *Workspace) Table(id core.TableID) (*quantity.LookupTable, bool) {
	ws.mu.RLock()
	defer ws.mu.RUnlock()
	t, ok := ws.tables[id]
	return t, ok
}

// Quantities returns the quantities in display order.
func (ws *Workspace) Quantities() []*quantity.Quantity {
	ws.mu.RLock()
	defer ws.mu.RUnlock()
	out := make([]*quantity.Quantity, 0, len(ws.order))
	for _, id := range ws.order {
		out = append(out, ws.quantities[id])
	}
	return out
}

// Tables returns the lookup tables in registration order.
func (ws *Workspace) Tables() []*quantity.LookupTable {
	ws.mu.RLock()
	defer ws.mu.RUnlock()
	out := make([]*quantity.LookupTable, 0, len(ws.tableOrder))
	for _, id := range ws.tableOrder {
		out = append(out, ws.tables[id])
	}
	return out
}

// Constants returns the constants in registration order.
func (ws *Workspace) Constants() []*quantity.Constant {
	ws.mu.RLock()
	defer ws.mu.RUnlock()
	out := make([]*quantity.Constant, 0, len(ws.constOrder))
	for _, id := range ws.constOrder {
		out = append(out, ws.constants[id])
	}
	return out
}

// Update runs fn with exclusive access to the workspace's objects.
func (ws *Workspace) Update(fn func() error) error {
	ws.mu.Lock()
	defer ws.mu.Unlock()
	err := fn()
	ws.resetMemo()
	return err
}

// Remove deletes a quantity nothing else refers to.
func (ws *Workspace) Remove(id core.QuantityID) error {
	ws.mu.Lock()
	defer ws.mu.Unlock()
	q, ok := ws.quantities[id]
	if !ok {
		return core.NewNotFoundError("quantity", id.String())
	}
	if users := ws.dependents(q); len(users) > 0 {
		return fmt.Errorf("%w: quantity %s is used by %v", core.ErrContract, q.Name, users)
	}
	delete(ws.quantities, id)
	for i, oid := range ws.order {
		if oid == id {
			ws.order = append(ws.order[:i], ws.order[i+1:]...)
			break
		}
	}
	ws.resetMemo()
	return nil
}

// dependents names the quantities and tables whose definition mentions q.
func (ws *Workspace) dependents(q *quantity.Quantity) []string {
	var out []string
	mentions := func(other *quantity.Quantity) bool {
		if f, ok := other.Formula(); ok {
			for _, ref := range f.References() {
				if ref == q {
					return true
				}
			}
		}
		if _, input, ok := other.Lookup(); ok && input == q {
			return true
		}
		if other.Kind() == quantity.KindLinkedFrom {
			if p, ok := other.Parent(); ok && p == q {
				return true
			}
		}
		return false
	}
	for _, id := range ws.order {
		if other := ws.quantities[id]; other != q && mentions(other) {
			out = append(out, other.Name)
		}
	}
	for _, id := range ws.tableOrder {
		t := ws.tables[id]
		cells := append([]*quantity.Quantity{t.Default, t.Underrange, t.Overrange}, t.Cells()...)
		for _, cell := range cells {
			if cell != nil && (cell == q || mentions(cell)) {
				out = append(out, t.Name)
				break
			}
		}
	}
	return out
}

// Document encodes the whole workspace.
func (ws *Workspace) Document() *quantity.Document {
	ws.mu.RLock()
	defer ws.mu.RUnlock()
	doc := &quantity.Document{Name: ws.name, Receptors: ws.env.Receptors.List()}
	for _, id := range ws.constOrder {
		doc.Constants = append(doc.Constants, ws.constants[id].Encode())
	}
	for _, id := range ws.tableOrder {
		doc.Tables = append(doc.Tables, ws.tables[id].Encode())
	}
	for _, id := range ws.order {
		doc.Quantities = append(doc.Quantities, ws.quantities[id].Encode())
	}
	return doc
}

func (ws *Workspace) resetMemo() {
	ws.memoMu.Lock()
	ws.memo = make(map[memoKey]evaluation)
	ws.memoGen = ws.env.Generation()
	ws.memoVolatile = ws.hasAuto()
	ws.memoMu.Unlock()
}

// resolver looks objects up without locking; it is used while the caller
// already holds the workspace lock.
type resolver struct{ ws *Workspace }

func (r resolver) Quantity(id core.QuantityID) (*quantity.Quantity, bool) {
	q, ok := r.ws.quantities[id]
	return q, ok
}

func (r resolver) Constant(id core.ConstantID) (*quantity.Constant, bool) {
	c, ok := r.ws.constants[id]
	return c, ok
}

func (r resolver) Table(id core.TableID) (*quantity.LookupTable, bool) {
	t, ok := r.ws.tables[id]
	return t, ok
}
