package quantity

import (
	"testing"

	"phaengine/domain/unit"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatNumber(t *testing.T) {
	upper, lower := 1e6, 1e-3

	tests := []struct {
		name       string
		v          float64
		sig        int
		scientific bool
		upper      *float64
		lower      *float64
		want       string
	}{
		{"rounds integer part", 1234.5678, 3, false, nil, nil, "1230"},
		{"small fraction", 0.012345, 3, false, nil, nil, "0.0123"},
		{"carry into next decade", 9.996, 3, false, nil, nil, "10.0"},
		{"negative", -2.54, 2, false, nil, nil, "-2.5"},
		{"zero", 0, 3, false, nil, nil, "0.00"},
		{"explicit scientific", 12345, 3, true, nil, nil, "1.23e+04"},
		{"above upper bound", 1e7, 3, false, &upper, &lower, "1.00e+07"},
		{"below lower bound", 1e-5, 3, false, &upper, &lower, "1.00e-05"},
		{"inside bounds", 12.5, 3, false, &upper, &lower, "12.5"},
		{"zero below lower bound", 0, 2, false, nil, &lower, "0.0e+00"},
		{"sig figs clamp", 7.7, 0, false, nil, nil, "8"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatNumber(tt.v, tt.sig, tt.scientific, tt.upper, tt.lower))
		})
	}
}

func TestDisplayValue(t *testing.T) {
	f := newFixture(t)
	q := f.user(t, "Q", unit.WirePerYear, 0.000123456)

	assert.Equal(t, "0.000123", q.DisplayValue(def, "n/a", "inf", nil, nil))

	require.NoError(t, q.SetFormat(def, Format{SigFigs: 2, Scientific: true}))
	assert.Equal(t, "1.2e-04", q.DisplayValue(def, "n/a", "inf", nil, nil))

	require.NoError(t, q.SetInfinite(def, true))
	assert.Equal(t, "inf", q.DisplayValue(def, "n/a", "inf", nil, nil))

	require.NoError(t, q.Unset(def))
	assert.Equal(t, "n/a", q.DisplayValue(def, "n/a", "inf", nil, nil))

	calc := f.env.NewCalculated("Broken", f.env.NewFormula(f.env.Ops.Divide, Literal(1), Literal(0)))
	assert.Equal(t, "n/a", calc.DisplayValue(def, "n/a", "inf", nil, nil))
}
