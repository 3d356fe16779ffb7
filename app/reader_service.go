package app

import (
	"context"
	"fmt"
	"runtime"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"phaengine/domain/core"
	"phaengine/domain/problem"
	"phaengine/domain/quantity"
	"phaengine/domain/receptor"
	"phaengine/ports"
)

// DisplayOptions control how evaluated values are rendered as text.
type DisplayOptions struct {
	InvalidText  string
	InfiniteText string
	SciUpper     *float64
	SciLower     *float64
}

// DefaultDisplayOptions renders problems as "---" and infinity as "inf".
func DefaultDisplayOptions() DisplayOptions {
	upper, lower := 1e6, 1e-4
	return DisplayOptions{InvalidText: "---", InfiniteText: "inf", SciUpper: &upper, SciLower: &lower}
}

// ReaderService serves an evaluated workspace to the display boundary. The
// workspace can be swapped atomically, e.g. after a file reload.
type ReaderService struct {
	ws      atomic.Pointer[Workspace]
	display DisplayOptions
}

var _ ports.ReaderPort = (*ReaderService)(nil)

// NewReaderService creates a reader over ws.
func NewReaderService(ws *Workspace, display DisplayOptions) *ReaderService {
	s := &ReaderService{display: display}
	s.ws.Store(ws)
	return s
}

// Swap replaces the served workspace and returns the previous one.
func (s *ReaderService) Swap(ws *Workspace) *Workspace {
	return s.ws.Swap(ws)
}

// Workspace returns the workspace currently served.
func (s *ReaderService) Workspace() *Workspace {
	return s.ws.Load()
}

func (s *ReaderService) Receptors(ctx context.Context) ([]receptor.Receptor, error) {
	return s.ws.Load().env.Receptors.List(), nil
}

func (s *ReaderService) ListQuantities(ctx context.Context) ([]ports.QuantitySummary, error) {
	ws := s.ws.Load()
	ws.mu.RLock()
	defer ws.mu.RUnlock()
	out := make([]ports.QuantitySummary, 0, len(ws.order))
	for _, id := range ws.order {
		out = append(out, summarize(ws.quantities[id]))
	}
	return out, nil
}

func (s *ReaderService) GetQuantity(ctx context.Context, id core.QuantityID) (*ports.QuantityDetail, error) {
	ws := s.ws.Load()
	ws.mu.RLock()
	defer ws.mu.RUnlock()
	q, ok := ws.quantities[id]
	if !ok {
		return nil, core.NewNotFoundError("quantity", id.String())
	}
	d := ws.detail(q, ws.env.Receptors.IDs(), s.display)
	return &d, nil
}

func (s *ReaderService) Evaluate(ctx context.Context, id core.QuantityID, scenario core.ReceptorID) (*ports.ScenarioValue, error) {
	ws := s.ws.Load()
	ws.mu.RLock()
	defer ws.mu.RUnlock()
	q, ok := ws.quantities[id]
	if !ok {
		return nil, core.NewNotFoundError("quantity", id.String())
	}
	if scenario == "" {
		scenario = receptor.DefaultID
	}
	if !ws.env.Receptors.Has(scenario) {
		return nil, fmt.Errorf("%w: %s", core.ErrReceptorNotFound, scenario)
	}
	v := ws.cell(q, scenario, s.display)
	return &v, nil
}

// Snapshot evaluates every quantity for every receptor. Rows are computed
// concurrently under a single read lock, so the result is consistent.
func (s *ReaderService) Snapshot(ctx context.Context) (*ports.Snapshot, error) {
	ws := s.ws.Load()
	ws.mu.RLock()
	defer ws.mu.RUnlock()

	scenarios := ws.env.Receptors.IDs()
	snap := &ports.Snapshot{
		Workspace:  ws.name,
		Generation: ws.env.Generation(),
		Scenarios:  scenarios,
		Rows:       make([]ports.QuantityDetail, len(ws.order)),
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, id := range ws.order {
		i := i
		q := ws.quantities[id]
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			snap.Rows[i] = ws.detail(q, scenarios, s.display)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return snap, nil
}

func (s *ReaderService) Units(ctx context.Context) ([]ports.UnitSummary, error) {
	units := s.ws.Load().env.Units.All()
	out := make([]ports.UnitSummary, 0, len(units))
	for _, u := range units {
		out = append(out, ports.UnitSummary{Name: u.Name, WireName: u.WireName, Kind: string(u.Kind)})
	}
	return out, nil
}

func (s *ReaderService) Convert(ctx context.Context, value float64, from, to string) (float64, error) {
	units := s.ws.Load().env.Units
	fu, ok := units.FindByWireName(from)
	if !ok {
		return 0, fmt.Errorf("%w: %s", core.ErrUnitNotFound, from)
	}
	tu, ok := units.FindByWireName(to)
	if !ok {
		return 0, fmt.Errorf("%w: %s", core.ErrUnitNotFound, to)
	}
	return units.Convert(value, fu, tu)
}

func summarize(q *quantity.Quantity) ports.QuantitySummary {
	return ports.QuantitySummary{ID: q.ID, Name: q.Name, Kind: string(q.Kind()), Unit: q.Unit().WireName}
}

// detail must be called with at least the read lock held.
func (ws *Workspace) detail(q *quantity.Quantity, scenarios []core.ReceptorID, display DisplayOptions) ports.QuantityDetail {
	d := ports.QuantityDetail{QuantitySummary: summarize(q), Settable: q.Settable()}
	for _, u := range q.AcceptableUnits() {
		if u != nil {
			d.AcceptableUnits = append(d.AcceptableUnits, u.WireName)
		}
	}
	for _, sc := range scenarios {
		d.Values = append(d.Values, ws.cell(q, sc, display))
	}
	return d
}

// evaluation is the display-independent outcome of one cell.
type evaluation struct {
	value    float64
	problem  *problem.Sentinel
	infinite bool
	fellBack bool
	format   quantity.Format
}

// cell evaluates one quantity for one scenario and renders it with display.
func (ws *Workspace) cell(q *quantity.Quantity, scenario core.ReceptorID, display DisplayOptions) ports.ScenarioValue {
	e := ws.evaluate(q, scenario)
	v := ports.ScenarioValue{Scenario: scenario, FellBack: e.fellBack}
	switch {
	case e.problem != nil:
		v.Problem = e.problem.Name
		v.Reason = e.problem.Explanation
		v.Display = display.InvalidText
	case e.infinite:
		v.Display = display.InfiniteText
	default:
		x := e.value
		v.Value = &x
		v.Display = quantity.FormatNumber(x, e.format.SigFigs, e.format.Scientific, display.SciUpper, display.SciLower)
	}
	return v
}

// evaluate is memoised per generation. Host-computed quantities can change
// without a mutation, so while the workspace holds one nothing is cached.
func (ws *Workspace) evaluate(q *quantity.Quantity, scenario core.ReceptorID) evaluation {
	key := memoKey{id: q.ID, scenario: scenario}
	gen := ws.env.Generation()

	ws.memoMu.Lock()
	if ws.memoGen != gen {
		ws.memo = make(map[memoKey]evaluation)
		ws.memoGen = gen
		ws.memoVolatile = ws.hasAuto()
	}
	volatile := ws.memoVolatile
	e, ok := ws.memo[key]
	ws.memoMu.Unlock()
	if ok && !volatile {
		return e
	}

	r := q.Value(scenario, nil)
	e = evaluation{fellBack: r.FellBack, problem: r.Problem}
	if e.problem == nil {
		e.problem = q.Status(scenario)
	}
	if e.problem == nil {
		e.infinite = q.Infinite(scenario)
		e.value = r.Value
		e.format = q.Format(scenario)
	}
	if volatile {
		return e
	}

	ws.memoMu.Lock()
	if ws.memoGen == gen {
		ws.memo[key] = e
	}
	ws.memoMu.Unlock()
	return e
}

// hasAuto must be called with at least the read lock held.
func (ws *Workspace) hasAuto() bool {
	for _, q := range ws.quantities {
		if q.Kind() == quantity.KindAuto {
			return true
		}
	}
	return false
}
