package unit

import (
	"strings"
	"testing"

	"phaengine/domain/core"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEveryUnitHasIdentityFactor(t *testing.T) {
	r := BuildRegistry()
	for _, u := range r.All() {
		f, ok := u.Factor(u)
		require.True(t, ok, "unit %s lacks identity entry", u.WireName)
		assert.Equal(t, 1.0, f)
	}
}

func TestConvertDirectEdge(t *testing.T) {
	r := BuildRegistry()

	v, err := r.Convert(1, r.MustFind(WireDay), r.MustFind(WireHour))
	require.NoError(t, err)
	assert.InDelta(t, 24.0, v, 1e-12)

	v, err = r.Convert(2, r.MustFind(WirePerHour), r.MustFind(WirePerYear))
	require.NoError(t, err)
	assert.InDelta(t, 17520.0, v, 1e-9)

	v, err = r.Convert(50, r.MustFind(WirePercent), r.MustFind(WireProbability))
	require.NoError(t, err)
	assert.InDelta(t, 0.5, v, 1e-12)

	v, err = r.Convert(0.25, r.MustFind(WireProbability), r.MustFind(WirePercent))
	require.NoError(t, err)
	assert.InDelta(t, 25.0, v, 1e-12)
}

func TestConvertIsNotTransitive(t *testing.T) {
	r := BuildRegistry()
	// percent -> probability -> dimensionless exists, percent -> dimensionless does not
	_, err := r.Convert(10, r.MustFind(WirePercent), r.Dimensionless())
	assert.ErrorIs(t, err, core.ErrNoConversionFactor)
}

func TestConvertNilUnit(t *testing.T) {
	r := BuildRegistry()
	_, err := r.Convert(1, nil, r.MustFind(WireHour))
	assert.ErrorIs(t, err, core.ErrNoConversionFactor)
	_, err = r.Convert(1, r.MustFind(WireHour), nil)
	assert.ErrorIs(t, err, core.ErrNoConversionFactor)
}

func TestConvertAsymmetry(t *testing.T) {
	r := NewRegistry()
	a := New("A", "a", KindTime, false)
	b := New("B", "b", KindTime, false)
	require.NoError(t, r.Register(a))
	require.NoError(t, r.Register(b))
	a.AddFactor(b, 3)

	v, err := r.Convert(2, a, b)
	require.NoError(t, err)
	assert.Equal(t, 6.0, v)

	_, err = r.Convert(2, b, a)
	assert.ErrorIs(t, err, core.ErrNoConversionFactor)
}

func TestConvertAcrossKindsFails(t *testing.T) {
	r := BuildRegistry()
	_, err := r.Convert(1, r.MustFind(WireHour), r.MustFind(WirePerHour))
	assert.ErrorIs(t, err, core.ErrNoConversionFactor)
}

func TestRegisterDuplicateWireName(t *testing.T) {
	r := BuildRegistry()
	err := r.Register(New("Hours again", WireHour, KindTime, false))
	assert.ErrorIs(t, err, core.ErrDuplicate)
}

func TestReservedUnits(t *testing.T) {
	r := NewRegistry()
	assert.True(t, r.Dimensionless().IsDimensionless())
	assert.False(t, r.Null().IsDimensionless())
	assert.Equal(t, "", r.Dimensionless().Label())

	found, ok := r.FindByWireName(WireNull)
	require.True(t, ok)
	assert.Same(t, r.Null(), found)
}

func TestByKind(t *testing.T) {
	r := BuildRegistry()
	freqs := r.ByKind(KindFrequency)
	require.Len(t, freqs, 5)
	assert.Equal(t, WirePerHour, freqs[0].WireName)
}

func TestLoadCatalog(t *testing.T) {
	r := BuildRegistry()
	doc := `
units:
  - name: Per shift
    wire: /shift
    kind: frequency
factors:
  - from: /shift
    to: /yr
    factor: 1095
    both: true
  - from: /shift
    to: /day
    factor: 3
`
	require.NoError(t, r.LoadCatalog(strings.NewReader(doc)))

	shift := r.MustFind("/shift")
	v, err := r.Convert(2, shift, r.MustFind(WirePerYear))
	require.NoError(t, err)
	assert.InDelta(t, 2190.0, v, 1e-9)

	v, err = r.Convert(1095, r.MustFind(WirePerYear), shift)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, v, 1e-12)

	_, err = r.Convert(3, r.MustFind(WirePerDay), shift)
	assert.ErrorIs(t, err, core.ErrNoConversionFactor)
}

func TestLoadCatalogUnknownUnit(t *testing.T) {
	r := BuildRegistry()
	doc := "factors:\n  - from: /nope\n    to: /yr\n    factor: 1\n"
	err := r.LoadCatalog(strings.NewReader(doc))
	assert.True(t, core.IsNotFoundError(err))
}
