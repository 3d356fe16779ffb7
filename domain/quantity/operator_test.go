package quantity

import (
	"math"
	"testing"

	"phaengine/domain/unit"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOperatorResults(t *testing.T) {
	f := newFixture(t)
	ops := f.env.Ops
	p := f.env.Problems

	tests := []struct {
		name    string
		op      Operator
		args    []float64
		want    float64
		problem string
	}{
		{"add", ops.Add, []float64{1, 2, 3.5}, 6.5, ""},
		{"add single", ops.Add, []float64{4}, 4, ""},
		{"add empty", ops.Add, nil, 0, p.WrongOperandCount.Name},
		{"subtract", ops.Subtract, []float64{10, 3, 2}, 5, ""},
		{"subtract empty", ops.Subtract, nil, 0, ""},
		{"multiply", ops.Multiply, []float64{2, 3, 4}, 24, ""},
		{"divide", ops.Divide, []float64{6, 2}, 3, ""},
		{"divide one operand", ops.Divide, []float64{6}, 0, p.WrongOperandCount.Name},
		{"divide three operands", ops.Divide, []float64{6, 2, 1}, 0, p.WrongOperandCount.Name},
		{"divide by zero", ops.Divide, []float64{6, 0}, 0, p.DivisionByZero.Name},
		{"divide by tiny", ops.Divide, []float64{6, 1e-12}, 0, p.DivisionByZero.Name},
		{"power", ops.Power, []float64{2, 10}, 1024, ""},
		{"power nan", ops.Power, []float64{-8, 0.5}, 0, p.Undefined.Name},
		{"power arity", ops.Power, []float64{2}, 0, p.WrongOperandCount.Name},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := tt.op.Result(tt.args)
			if tt.problem != "" {
				require.NotNil(t, r.Problem)
				assert.Equal(t, tt.problem, r.Problem.Name)
				return
			}
			require.True(t, r.OK(), "unexpected problem %v", r.Problem)
			assert.InDelta(t, tt.want, r.Value, 1e-12)
		})
	}
}

func TestOperatorUnits(t *testing.T) {
	f := newFixture(t)
	ops := f.env.Ops
	perYear := f.unit(unit.WirePerYear)
	perDay := f.unit(unit.WirePerDay)
	hours := f.unit(unit.WireHour)
	dimless := f.env.Units.Dimensionless()
	null := f.env.Units.Null()

	tests := []struct {
		name  string
		op    Operator
		units []*unit.Unit
		want  *unit.Unit
	}{
		{"add same", ops.Add, []*unit.Unit{perYear, perYear}, perYear},
		{"add mixed", ops.Add, []*unit.Unit{perYear, perDay}, null},
		{"subtract with null", ops.Subtract, []*unit.Unit{perYear, null}, null},
		{"multiply carries one unit", ops.Multiply, []*unit.Unit{perYear, dimless, dimless}, perYear},
		{"multiply two dimensions", ops.Multiply, []*unit.Unit{perYear, hours}, null},
		{"multiply all dimensionless", ops.Multiply, []*unit.Unit{dimless, dimless}, dimless},
		{"divide same", ops.Divide, []*unit.Unit{hours, hours}, dimless},
		{"divide by dimensionless", ops.Divide, []*unit.Unit{perYear, dimless}, perYear},
		{"divide mixed", ops.Divide, []*unit.Unit{perYear, hours}, null},
		{"power dimensionless", ops.Power, []*unit.Unit{dimless, dimless}, dimless},
		{"power with dimension", ops.Power, []*unit.Unit{hours, dimless}, null},
		{"nil operand", ops.Add, []*unit.Unit{nil}, null},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Same(t, tt.want, tt.op.Unit(tt.units))
		})
	}
}

func TestOperatorsByName(t *testing.T) {
	f := newFixture(t)
	for _, name := range []string{OpAdd, OpSubtract, OpMultiply, OpDivide, OpPower} {
		op, ok := f.env.Ops.ByName(name)
		require.True(t, ok, name)
		assert.Equal(t, name, op.Name())
	}
	_, ok := f.env.Ops.ByName("Modulo")
	assert.False(t, ok)
}

func TestPowerOverflowIsInfinite(t *testing.T) {
	f := newFixture(t)
	r := f.env.Ops.Power.Result([]float64{10, 400})
	require.True(t, r.OK())
	assert.True(t, math.IsInf(r.Value, 1))
}
