package problem

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildSetLookup(t *testing.T) {
	s := BuildSet()
	p, ok := s.Lookup(NameCircular)
	require.True(t, ok)
	assert.Same(t, s.Circular, p)
	assert.True(t, p.Is(NameCircular))
	assert.NotEmpty(t, p.Explanation)

	_, ok = s.Lookup("nope")
	assert.False(t, ok)
}

func TestRegisterDomainSentinel(t *testing.T) {
	s := BuildSet()
	gate, err := s.Register("GateInputMismatch", "AND gate inputs must all be probabilities")
	require.NoError(t, err)
	found, ok := s.Lookup("GateInputMismatch")
	require.True(t, ok)
	assert.Same(t, gate, found)

	_, err = s.Register(NameBug, "again")
	assert.Error(t, err)
}

func TestWithEventKeepsIdentityName(t *testing.T) {
	s := BuildSet()
	p := s.DivisionByZero.WithEvent("formula 7")
	assert.True(t, p.Is(NameDivisionByZero))
	assert.Equal(t, "formula 7", p.Event)
	assert.Nil(t, s.DivisionByZero.Event)
}

func TestNilSentinelIsNotAProblem(t *testing.T) {
	var p *Sentinel
	assert.False(t, p.Is(NameUndefined))
	assert.Equal(t, "<ok>", p.String())
}
