package quantity

import (
	"testing"

	"phaengine/domain/core"
	"phaengine/domain/unit"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func numericTable(t *testing.T, f *fixture, keyUnit *unit.Unit, keys ...float64) *LookupTable {
	t.Helper()
	dim := Dimension{Name: "Duration", Unit: keyUnit}
	for _, k := range keys {
		dim.Keys = append(dim.Keys, Key{Value: k})
	}
	tbl, err := f.env.NewLookupTable("Table", dim)
	require.NoError(t, err)
	for i, k := range keys {
		require.NoError(t, tbl.SetAt(i, f.user(t, "cell", unit.WireProbability, k/10)))
	}
	return tbl
}

func TestLookupMatchTolerance(t *testing.T) {
	f := newFixture(t)
	tbl := numericTable(t, f, nil, 1000, 2000)
	input := f.user(t, "Input", unit.WireHour, 1005)
	q := f.env.NewLookup("Q", tbl, input)

	r := q.Value(def, nil)
	require.True(t, r.OK())
	assert.Equal(t, 100.0, r.Value)

	require.NoError(t, input.SetValue(def, 1020))
	assert.Same(t, f.env.Problems.OutOfTable, q.Value(def, nil).Problem)

	tbl.SetRangeValues(f.user(t, "Default", unit.WireProbability, 0.5), nil, nil)
	assert.Equal(t, 0.5, q.Value(def, nil).Value)
}

func TestLookupPolicies(t *testing.T) {
	f := newFixture(t)
	tbl := numericTable(t, f, nil, 10, 20, 30)

	tests := []struct {
		policy NoMatchPolicy
		key    float64
		want   float64
	}{
		{PolicyRoundUp, 15, 2},
		{PolicyRoundDown, 15, 1},
		{PolicyRoundUp, 29, 3},
		{PolicyRoundDown, 29, 2},
	}
	for _, tt := range tests {
		t.Run(string(tt.policy), func(t *testing.T) {
			tbl.SetPolicy(tt.policy)
			cell, err := tbl.LookupByNumericKey(tt.key)
			require.NoError(t, err)
			require.NotNil(t, cell)
			assert.Equal(t, tt.want, cell.Value(def, nil).Value)
		})
	}
}

func TestLookupOutsideRange(t *testing.T) {
	f := newFixture(t)
	tbl := numericTable(t, f, nil, 10, 20)
	under := f.user(t, "Under", unit.WireProbability, 0)
	over := f.user(t, "Over", unit.WireProbability, 1)
	tbl.SetRangeValues(nil, under, over)

	cell, err := tbl.LookupByNumericKey(5)
	require.NoError(t, err)
	assert.Same(t, under, cell)

	cell, err = tbl.LookupByNumericKey(25)
	require.NoError(t, err)
	assert.Same(t, over, cell)
}

func TestLookupConvertsInputUnit(t *testing.T) {
	f := newFixture(t)
	tbl := numericTable(t, f, f.unit(unit.WireHour), 24, 48)
	input := f.user(t, "Input", unit.WireDay, 2)
	q := f.env.NewLookup("Q", tbl, input)

	assert.Equal(t, 4.8, q.Value(def, nil).Value)

	require.NoError(t, input.SetUnit(f.unit(unit.WirePerDay)))
	assert.Same(t, f.env.Problems.NoConversionFactor, q.Value(def, nil).Problem)
}

func TestLookupInputProblemPropagates(t *testing.T) {
	f := newFixture(t)
	tbl := numericTable(t, f, nil, 1)
	q := f.env.NewLookup("Q", tbl, f.env.NewUserEntered("Unset", nil))

	assert.Same(t, f.env.Problems.Undefined, q.Value(def, nil).Problem)
	assert.Same(t, f.env.Problems.Undefined, f.env.NewLookup("Empty", nil, nil).Value(def, nil).Problem)
}

func TestLookupUnit(t *testing.T) {
	f := newFixture(t)
	tbl := numericTable(t, f, nil, 1)
	q := f.env.NewLookup("Q", tbl, f.user(t, "In", unit.WireHour, 1))

	assert.Same(t, f.env.Units.Null(), q.Unit())

	tbl.SetRangeValues(f.user(t, "Default", unit.WirePercent, 1), nil, nil)
	assert.Same(t, f.unit(unit.WirePercent), q.Unit())

	tbl.ValueUnit = f.unit(unit.WireProbability)
	assert.Same(t, f.unit(unit.WireProbability), q.Unit())
}

func TestMatchedTreatsNearZeroAsEqual(t *testing.T) {
	f := newFixture(t)
	tbl := numericTable(t, f, nil, 0, 1)

	assert.True(t, tbl.Matched(0, 1e-12))
	assert.False(t, tbl.Matched(0, 0.5))
	assert.True(t, tbl.Matched(-1.005, -1))
	assert.False(t, tbl.Matched(1.01, 1))
}

func TestMultiDimensionalTable(t *testing.T) {
	f := newFixture(t)
	shift := Dimension{Name: "Shift", Keys: []Key{{Label: "day"}, {Label: "night"}}}
	crew := Dimension{Name: "Crew", Keys: []Key{{Label: "small", Value: 2}, {Label: "large", Value: 6}}}
	tbl, err := f.env.NewLookupTable("Exposure", shift, crew)
	require.NoError(t, err)
	assert.Len(t, tbl.Cells(), 4)

	nightLarge := f.user(t, "nl", unit.WireProbability, 0.3)
	require.NoError(t, tbl.Set([]Key{{Label: "night"}, {Label: "large", Value: 6}}, nightLarge))

	got, err := tbl.Lookup([]Key{{Label: "night"}, {Label: "large", Value: 6}})
	require.NoError(t, err)
	assert.Same(t, nightLarge, got)
	assert.Same(t, nightLarge, tbl.Cells()[3])

	_, err = tbl.Lookup([]Key{{Label: "night"}})
	assert.ErrorIs(t, err, core.ErrMalformedTable)

	_, err = tbl.Lookup([]Key{{Label: "dusk"}, {Label: "small", Value: 2}})
	assert.ErrorIs(t, err, core.ErrUnknownCategory)

	_, err = tbl.LookupByNumericKey(2)
	assert.ErrorIs(t, err, core.ErrMalformedTable)

	q := f.env.NewLookup("Q", tbl, f.user(t, "In", unit.WireHour, 2))
	assert.Same(t, f.env.Problems.Bug, q.Value(def, nil).Problem)
	assert.Contains(t, f.logs.String(), "[ERROR]")
}

func TestNewLookupTableRejectsEmptyDimensions(t *testing.T) {
	f := newFixture(t)
	_, err := f.env.NewLookupTable("None")
	assert.ErrorIs(t, err, core.ErrMalformedTable)

	_, err = f.env.NewLookupTable("Hollow", Dimension{Name: "x"})
	assert.ErrorIs(t, err, core.ErrMalformedTable)

	tbl := numericTable(t, f, nil, 1)
	assert.ErrorIs(t, tbl.SetAt(5, nil), core.ErrMalformedTable)
}

// Match is tried before the range checks, so a key just outside the table
// still hits the edge cell when it is within tolerance.
func TestNumericLookupAroundZero(t *testing.T) {
	f := newFixture(t)
	tbl := numericTable(t, f, nil, -10, 0, 10)
	cells := tbl.Cells()
	tbl.SetRangeValues(nil, f.user(t, "Under", unit.WireProbability, 0), f.user(t, "Over", unit.WireProbability, 1))

	tests := []struct {
		name   string
		policy NoMatchPolicy
		key    float64
		want   *Quantity
	}{
		{"exact zero", PolicyRoundUp, 0, cells[1]},
		{"tiny positive", PolicyRoundUp, 1e-12, cells[1]},
		{"tiny negative", PolicyRoundUp, -1e-12, cells[1]},
		{"negative edge within tolerance", PolicyRoundUp, -10.05, cells[0]},
		{"positive edge within tolerance", PolicyRoundDown, 10.05, cells[2]},
		{"negative gap rounds up", PolicyRoundUp, -5, cells[1]},
		{"negative gap rounds down", PolicyRoundDown, -5, cells[0]},
		{"positive gap rounds down", PolicyRoundDown, 5, cells[1]},
		{"below range", PolicyRoundUp, -20, tbl.Underrange},
		{"above range", PolicyRoundDown, 20, tbl.Overrange},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tbl.SetPolicy(tt.policy)
			cell, err := tbl.LookupByNumericKey(tt.key)
			require.NoError(t, err)
			assert.Same(t, tt.want, cell)
		})
	}
}
