package quantity

import (
	"bytes"
	"testing"

	"phaengine/domain/receptor"
	"phaengine/domain/unit"
	"phaengine/internal"
)

const def = receptor.DefaultID

type fixture struct {
	env  *Env
	logs *bytes.Buffer
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	var buf bytes.Buffer
	return &fixture{
		env:  BuildEnv(DefaultSettings(), internal.NewLoggerTo(internal.LogLevelWarn, &buf)),
		logs: &buf,
	}
}

func (f *fixture) unit(wire string) *unit.Unit {
	return f.env.Units.MustFind(wire)
}

// user creates a user-entered quantity with a default value.
func (f *fixture) user(t *testing.T, name string, wire string, v float64) *Quantity {
	t.Helper()
	q := f.env.NewUserEntered(name, f.unit(wire))
	if err := q.SetValue(def, v); err != nil {
		t.Fatalf("set %s: %v", name, err)
	}
	return q
}
