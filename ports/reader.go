package ports

import (
	"context"

	"phaengine/domain/core"
	"phaengine/domain/receptor"
)

// ReaderPort provides read-only access to an evaluated workspace for the
// display boundary. It never mutates quantities.
type ReaderPort interface {
	Receptors(ctx context.Context) ([]receptor.Receptor, error)
	ListQuantities(ctx context.Context) ([]QuantitySummary, error)
	GetQuantity(ctx context.Context, id core.QuantityID) (*QuantityDetail, error)
	Evaluate(ctx context.Context, id core.QuantityID, scenario core.ReceptorID) (*ScenarioValue, error)
	Snapshot(ctx context.Context) (*Snapshot, error)
	Units(ctx context.Context) ([]UnitSummary, error)
	Convert(ctx context.Context, value float64, from, to string) (float64, error)
}

// UnitSummary describes one registered unit.
type UnitSummary struct {
	Name     string `json:"name"`
	WireName string `json:"wire_name"`
	Kind     string `json:"kind"`
}

// QuantitySummary lists one quantity without evaluating it.
type QuantitySummary struct {
	ID   core.QuantityID `json:"id"`
	Name string          `json:"name"`
	Kind string          `json:"kind"`
	Unit string          `json:"unit"`
}

// QuantityDetail is a quantity evaluated for every scenario it carries.
type QuantityDetail struct {
	QuantitySummary
	Settable        bool            `json:"settable"`
	AcceptableUnits []string        `json:"acceptable_units"`
	Values          []ScenarioValue `json:"values"`
}

// ScenarioValue is one evaluated cell of the display grid.
type ScenarioValue struct {
	Scenario core.ReceptorID `json:"scenario"`
	Value    *float64        `json:"value,omitempty"`
	Display  string          `json:"display"`
	Problem  string          `json:"problem,omitempty"`
	Reason   string          `json:"reason,omitempty"`
	FellBack bool            `json:"fell_back,omitempty"`
}

// Snapshot is the whole workspace evaluated at one generation.
type Snapshot struct {
	Workspace  string            `json:"workspace"`
	Generation uint64            `json:"generation"`
	Scenarios  []core.ReceptorID `json:"scenarios"`
	Rows       []QuantityDetail  `json:"rows"`
}
