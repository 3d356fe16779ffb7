// Package testkit builds small, fully wired workspaces for tests and demos.
package testkit

import (
	"fmt"

	"phaengine/app"
	"phaengine/domain/quantity"
	"phaengine/domain/receptor"
	"phaengine/domain/unit"
	"phaengine/internal"
)

// Receptors of the demo workspace besides the default one.
const (
	Worker = "worker"
	Public = "public"
)

// Demo is a release scenario: a leak that may ignite, and a fatality
// probability looked up from the release duration.
//
//	fire = leak * ignition
//	risk = fire * fatality(duration)
type Demo struct {
	Workspace *app.Workspace

	IgnitionConstant *quantity.Constant
	FatalityTable    *quantity.LookupTable

	Leak     *quantity.Quantity
	Ignition *quantity.Quantity
	Fire     *quantity.Quantity
	Duration *quantity.Quantity
	Fatality *quantity.Quantity
	Risk     *quantity.Quantity
}

// NewEnv builds an engine environment with the stock catalogue. A nil log
// keeps only errors.
func NewEnv(log *internal.Logger) *quantity.Env {
	if log == nil {
		log = internal.NewLogger(internal.LogLevelError)
	}
	return quantity.BuildEnv(quantity.DefaultSettings(), log)
}

// NewDemo builds the demo workspace. Expected default values: fire 1e-4 /yr,
// fatality 0.3, risk 3e-5 /yr. The public receptor has half the ignition
// probability.
func NewDemo(log *internal.Logger) (*Demo, error) {
	if log == nil {
		log = internal.NewLogger(internal.LogLevelError)
	}
	env := NewEnv(log)
	ws := app.NewWorkspace("demo", env, log)

	perYear := env.Units.MustFind(unit.WirePerYear)
	minutes := env.Units.MustFind(unit.WireMinute)
	// probabilities are kept dimensionless so they multiply into frequencies
	prob := env.Units.Dimensionless()
	d := &Demo{Workspace: ws}

	d.IgnitionConstant = env.NewConstant("Ignition probability", prob)
	if err := d.IgnitionConstant.Set(receptor.DefaultID, 0.1); err != nil {
		return nil, err
	}
	if err := ws.AddConstant(d.IgnitionConstant); err != nil {
		return nil, err
	}

	table, err := fatalityTable(env, minutes, prob)
	if err != nil {
		return nil, err
	}
	d.FatalityTable = table
	if err := ws.AddTable(table); err != nil {
		return nil, err
	}

	d.Leak = env.NewUserEntered("Leak frequency", perYear)
	if err := d.Leak.SetValue(receptor.DefaultID, 1e-3); err != nil {
		return nil, err
	}
	d.Ignition = env.NewConstantRef("Ignition", d.IgnitionConstant)
	d.Fire = env.NewCalculated("Fire frequency", env.NewFormula(env.Ops.Multiply, d.Leak, d.Ignition))
	d.Duration = env.NewUserEntered("Release duration", minutes)
	if err := d.Duration.SetValue(receptor.DefaultID, 7); err != nil {
		return nil, err
	}
	d.Fatality = env.NewLookup("Fatality probability", table, d.Duration)
	d.Risk = env.NewCalculated("Individual risk", env.NewFormula(env.Ops.Multiply, d.Fire, d.Fatality))

	for _, q := range []*quantity.Quantity{d.Leak, d.Ignition, d.Fire, d.Duration, d.Fatality, d.Risk} {
		if err := ws.AddQuantity(q); err != nil {
			return nil, fmt.Errorf("add %s: %w", q.Name, err)
		}
	}

	// receptors come last: every object falls back to its default value
	// except the public ignition probability
	for _, r := range []receptor.Receptor{{ID: Worker, Name: "Worker"}, {ID: Public, Name: "Public"}} {
		if err := ws.AddReceptor(r); err != nil {
			return nil, err
		}
	}
	if err := d.IgnitionConstant.Set(Public, 0.05); err != nil {
		return nil, err
	}
	return d, nil
}

// MustDemo is NewDemo for tests.
func MustDemo(log *internal.Logger) *Demo {
	d, err := NewDemo(log)
	if err != nil {
		panic(err)
	}
	return d
}

func fatalityTable(env *quantity.Env, minutes, prob *unit.Unit) (*quantity.LookupTable, error) {
	durations := []float64{1, 5, 10, 30}
	fatality := []float64{0.01, 0.1, 0.3, 0.9}

	keys := make([]quantity.Key, len(durations))
	for i, v := range durations {
		keys[i] = quantity.Key{Value: v}
	}
	t, err := env.NewLookupTable("Fatality by duration", quantity.Dimension{Name: "Duration", Unit: minutes, Keys: keys})
	if err != nil {
		return nil, err
	}
	t.ValueUnit = prob
	t.SetPolicy(quantity.PolicyRoundUp)

	for i, v := range fatality {
		cell := env.NewUserEntered(fmt.Sprintf("%g min", durations[i]), prob)
		if err := cell.SetValue(receptor.DefaultID, v); err != nil {
			return nil, err
		}
		if err := t.SetAt(i, cell); err != nil {
			return nil, err
		}
	}
	under := env.NewUserEntered("Below range", prob)
	over := env.NewUserEntered("Above range", prob)
	if err := under.SetValue(receptor.DefaultID, 0); err != nil {
		return nil, err
	}
	if err := over.SetValue(receptor.DefaultID, 1); err != nil {
		return nil, err
	}
	t.SetRangeValues(nil, under, over)
	return t, nil
}
