package quantity

import (
	"fmt"
	"math"

	"github.com/montanaflynn/stats"

	"phaengine/domain/core"
	"phaengine/domain/unit"
)

// Key is one category of a lookup table dimension. Numeric lookups compare
// Value; categorical lookups compare the whole key.
type Key struct {
	Label string  `json:"label,omitempty"`
	Value float64 `json:"value"`
}

// Dimension is one axis of a lookup table.
type Dimension struct {
	Name string
	Unit *unit.Unit
	Keys []Key
}

// NoMatchPolicy decides what an in-range numeric key without an exact match
// resolves to.
type NoMatchPolicy string

const (
	PolicyDefault   NoMatchPolicy = "return-default"
	PolicyRoundUp   NoMatchPolicy = "round-up"
	PolicyRoundDown NoMatchPolicy = "round-down"
)

// LookupTable maps one key per dimension onto a quantity.
type LookupTable struct {
	ID   core.TableID
	Name string

	// ValueUnit is the unit of the table's entries; nil means "the unit of
	// Default".
	ValueUnit *unit.Unit

	Default    *Quantity
	Underrange *Quantity
	Overrange  *Quantity

	MatchPrecisionMin float64
	MatchPrecisionMax float64
	Policy            NoMatchPolicy

	env     *Env
	dims    []Dimension
	strides []int
	cells   []*Quantity
}

// NewLookupTable allocates an empty table over dims.
func (env *Env) NewLookupTable(name string, dims ...Dimension) (*LookupTable, error) {
	if len(dims) == 0 {
		return nil, fmt.Errorf("%w: table %s has no dimensions", core.ErrMalformedTable, name)
	}
	size := 1
	strides := make([]int, len(dims))
	for i := len(dims) - 1; i >= 0; i-- {
		if len(dims[i].Keys) == 0 {
			return nil, fmt.Errorf("%w: dimension %s has no keys", core.ErrMalformedTable, dims[i].Name)
		}
		strides[i] = size
		size *= len(dims[i].Keys)
	}
	return &LookupTable{
		ID:                core.NewTableID(),
		Name:              name,
		MatchPrecisionMin: env.Settings.MatchPrecisionMin,
		MatchPrecisionMax: env.Settings.MatchPrecisionMax,
		Policy:            PolicyDefault,
		env:               env,
		dims:              dims,
		strides:           strides,
		cells:             make([]*Quantity, size),
	}, nil
}

// Dimensions returns the table's axes.
func (t *LookupTable) Dimensions() []Dimension { return t.dims }

// Cells returns every slot in row-major order; empty slots are nil.
func (t *LookupTable) Cells() []*Quantity { return t.cells }

func (t *LookupTable) index(keys []Key) (int, error) {
	if len(keys) != len(t.dims) {
		return 0, fmt.Errorf("%w: table %s has %d dimensions, got %d keys", core.ErrMalformedTable, t.Name, len(t.dims), len(keys))
	}
	idx := 0
	for i, k := range keys {
		pos := -1
		for j, dk := range t.dims[i].Keys {
			if dk == k {
				pos = j
				break
			}
		}
		if pos < 0 {
			return 0, fmt.Errorf("%w: %v in %s", core.ErrUnknownCategory, k, t.dims[i].Name)
		}
		idx += pos * t.strides[i]
	}
	return idx, nil
}

// Lookup returns the quantity addressed by one key per dimension.
func (t *LookupTable) Lookup(keys []Key) (*Quantity, error) {
	idx, err := t.index(keys)
	if err != nil {
		return nil, err
	}
	return t.cells[idx], nil
}

// Set stores q in the slot addressed by keys.
func (t *LookupTable) Set(keys []Key, q *Quantity) error {
	idx, err := t.index(keys)
	if err != nil {
		return err
	}
	t.cells[idx] = q
	t.env.touch()
	return nil
}

// SetAt stores q in the slot at a row-major position.
func (t *LookupTable) SetAt(pos int, q *Quantity) error {
	if pos < 0 || pos >= len(t.cells) {
		return fmt.Errorf("%w: position %d outside %s", core.ErrMalformedTable, pos, t.Name)
	}
	t.cells[pos] = q
	t.env.touch()
	return nil
}

// SetPolicy changes the no-match policy.
func (t *LookupTable) SetPolicy(p NoMatchPolicy) {
	t.Policy = p
	t.env.touch()
}

// SetRangeValues sets the default, underrange and overrange quantities.
func (t *LookupTable) SetRangeValues(def, under, over *Quantity) {
	t.Default, t.Underrange, t.Overrange = def, under, over
	t.env.touch()
}

// Matched is the approximate equality used for numeric keys: both values
// are zero, or their ratio lies strictly inside the match precision band.
func (t *LookupTable) Matched(x, y float64) bool {
	zero := t.env.Settings.ZeroThreshold
	xz, yz := math.Abs(x) < zero, math.Abs(y) < zero
	if xz || yz {
		return xz == yz
	}
	ratio := x / y
	return t.MatchPrecisionMin < ratio && ratio < t.MatchPrecisionMax
}

// LookupByNumericKey resolves a single-dimension table at x. An approximate
// key match wins; otherwise keys outside the table range give the
// underrange/overrange quantity and keys inside it follow the policy. The
// result may be nil when the selected slot is empty.
func (t *LookupTable) LookupByNumericKey(x float64) (*Quantity, error) {
	if len(t.dims) != 1 {
		return nil, fmt.Errorf("%w: numeric lookup on %d-dimensional table %s", core.ErrMalformedTable, len(t.dims), t.Name)
	}
	keys := t.dims[0].Keys
	for i, k := range keys {
		if t.Matched(x, k.Value) {
			return t.cells[i], nil
		}
	}

	values := make([]float64, len(keys))
	for i, k := range keys {
		values[i] = k.Value
	}
	lo, err := stats.Min(values)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrMalformedTable, err)
	}
	hi, err := stats.Max(values)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrMalformedTable, err)
	}
	switch {
	case x < lo:
		return t.Underrange, nil
	case x > hi:
		return t.Overrange, nil
	}

	switch t.Policy {
	case PolicyRoundUp:
		best := -1
		for i, v := range values {
			if v > x && (best < 0 || v < values[best]) {
				best = i
			}
		}
		if best >= 0 {
			return t.cells[best], nil
		}
	case PolicyRoundDown:
		best := -1
		for i, v := range values {
			if v < x && (best < 0 || v > values[best]) {
				best = i
			}
		}
		if best >= 0 {
			return t.cells[best], nil
		}
	}
	return t.Default, nil
}

func (t *LookupTable) valueUnit(s core.ReceptorID, trail *Trail) UnitResult {
	if t.ValueUnit != nil {
		return UnitResult{Unit: t.ValueUnit}
	}
	if t.Default != nil {
		return t.Default.ResolveUnit(s, trail)
	}
	return UnitResult{Unit: t.env.Units.Null()}
}
