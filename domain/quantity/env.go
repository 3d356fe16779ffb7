// Package quantity is the numeric value and unit resolution engine: numbers
// with units, defined per risk receptor, possibly computed from other numbers
// through formulas, constants, lookup tables, or links to parent objects.
//
// Evaluation is synchronous and never returns errors for data problems;
// those are problem sentinels inside Result. Errors are reserved for
// contract violations such as setting a value on a calculated quantity.
package quantity

import (
	"sync/atomic"

	"phaengine/domain/core"
	"phaengine/domain/problem"
	"phaengine/domain/receptor"
	"phaengine/domain/unit"
)

// Logger is the subset of a leveled logger the engine writes to.
type Logger interface {
	Warn(format string, args ...interface{})
	Error(format string, args ...interface{})
}

type nopLogger struct{}

func (nopLogger) Warn(string, ...interface{})  {}
func (nopLogger) Error(string, ...interface{}) {}

// Settings are the numeric tolerances of the engine.
type Settings struct {
	// ZeroThreshold: magnitudes below it count as zero (division guard,
	// lookup key matching).
	ZeroThreshold float64
	// MatchPrecisionMin/Max bound x/y for two lookup keys to match.
	MatchPrecisionMin float64
	MatchPrecisionMax float64
	// DefaultSigFigs applies when a quantity has no explicit precision.
	DefaultSigFigs int
}

// DefaultSettings returns the stock tolerances.
func DefaultSettings() Settings {
	return Settings{
		ZeroThreshold:     1e-10,
		MatchPrecisionMin: 0.99,
		MatchPrecisionMax: 1.01,
		DefaultSigFigs:    3,
	}
}

// Env is built once at startup and handed to every quantity, formula and
// lookup table. It replaces module-level registries.
type Env struct {
	Receptors *receptor.Registry
	Units     *unit.Registry
	Problems  *problem.Set
	Ops       *Operators
	Settings  Settings
	Log       Logger

	generation atomic.Uint64
}

// NewEnv wires the registries together. A nil logger discards output.
func NewEnv(receptors *receptor.Registry, units *unit.Registry, problems *problem.Set, settings Settings, log Logger) *Env {
	if log == nil {
		log = nopLogger{}
	}
	env := &Env{
		Receptors: receptors,
		Units:     units,
		Problems:  problems,
		Settings:  settings,
		Log:       log,
	}
	env.Ops = NewOperators(units, problems, settings.ZeroThreshold)
	return env
}

// BuildEnv creates an environment with the standard unit catalogue and
// sentinel set and only the default receptor.
func BuildEnv(settings Settings, log Logger) *Env {
	return NewEnv(receptor.NewRegistry(), unit.BuildRegistry(), problem.BuildSet(), settings, log)
}

// Generation increases on every mutation of any quantity, constant or lookup
// table created from this environment. Caches compare it to detect staleness.
func (env *Env) Generation() uint64 {
	return env.generation.Load()
}

func (env *Env) touch() {
	env.generation.Add(1)
}

func (env *Env) scenarioKeys() []core.ReceptorID {
	return env.Receptors.IDs()
}
