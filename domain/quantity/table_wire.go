package quantity

import (
	"fmt"

	"phaengine/domain/core"
)

// ConstantRecord is the persisted shape of a named constant.
type ConstantRecord struct {
	ID       core.ConstantID `json:"id"`
	Name     string          `json:"name"`
	Quantity Record          `json:"quantity"`
}

// TableRecord is the persisted shape of a lookup table. Cells are stored
// inline in row-major order; empty slots are nil.
type TableRecord struct {
	ID                core.TableID      `json:"id"`
	Name              string            `json:"name"`
	ValueUnit         string            `json:"value_unit,omitempty"`
	Dimensions        []DimensionRecord `json:"dimensions"`
	Cells             []*Record         `json:"cells"`
	Default           *Record           `json:"default,omitempty"`
	Underrange        *Record           `json:"underrange,omitempty"`
	Overrange         *Record           `json:"overrange,omitempty"`
	MatchPrecisionMin float64           `json:"match_precision_min,omitempty"`
	MatchPrecisionMax float64           `json:"match_precision_max,omitempty"`
	Policy            NoMatchPolicy     `json:"policy,omitempty"`
}

// DimensionRecord is one persisted table axis.
type DimensionRecord struct {
	Name string `json:"name"`
	Unit string `json:"unit,omitempty"`
	Keys []Key  `json:"keys"`
}

// Encode produces the record of a constant.
func (c *Constant) Encode() ConstantRecord {
	return ConstantRecord{ID: c.ID, Name: c.Name, Quantity: c.Quantity.Encode()}
}

// DecodeConstant rebuilds a constant. Its quantity must be user-entered.
func (env *Env) DecodeConstant(rec ConstantRecord, res Resolver) (*Constant, error) {
	if rec.Quantity.Kind != KindUser {
		return nil, fmt.Errorf("%w: constant %s stored as %s", core.ErrContract, rec.Name, rec.Quantity.Kind)
	}
	q, err := env.Decode(rec.Quantity, res)
	if err != nil {
		return nil, fmt.Errorf("constant %s: %w", rec.Name, err)
	}
	return &Constant{ID: rec.ID, Name: rec.Name, Quantity: q}, nil
}

// Encode produces the record of a lookup table.
func (t *LookupTable) Encode() TableRecord {
	rec := TableRecord{
		ID:                t.ID,
		Name:              t.Name,
		ValueUnit:         wireName(t.ValueUnit),
		MatchPrecisionMin: t.MatchPrecisionMin,
		MatchPrecisionMax: t.MatchPrecisionMax,
		Policy:            t.Policy,
		Default:           encodeOptional(t.Default),
		Underrange:        encodeOptional(t.Underrange),
		Overrange:         encodeOptional(t.Overrange),
	}
	for _, d := range t.dims {
		rec.Dimensions = append(rec.Dimensions, DimensionRecord{Name: d.Name, Unit: wireName(d.Unit), Keys: d.Keys})
	}
	for _, c := range t.cells {
		rec.Cells = append(rec.Cells, encodeOptional(c))
	}
	return rec
}

func encodeOptional(q *Quantity) *Record {
	if q == nil {
		return nil
	}
	rec := q.Encode()
	return &rec
}

// DecodeTable rebuilds a lookup table and its owned cell quantities.
func (env *Env) DecodeTable(rec TableRecord, res Resolver) (*LookupTable, error) {
	dims := make([]Dimension, 0, len(rec.Dimensions))
	for _, dr := range rec.Dimensions {
		d := Dimension{Name: dr.Name, Keys: dr.Keys}
		if dr.Unit != "" {
			u, ok := env.Units.FindByWireName(dr.Unit)
			if !ok {
				return nil, fmt.Errorf("%w: %s", core.ErrUnitNotFound, dr.Unit)
			}
			d.Unit = u
		}
		dims = append(dims, d)
	}
	t, err := env.NewLookupTable(rec.Name, dims...)
	if err != nil {
		return nil, err
	}
	t.ID = rec.ID
	if rec.ValueUnit != "" {
		u, ok := env.Units.FindByWireName(rec.ValueUnit)
		if !ok {
			return nil, fmt.Errorf("%w: %s", core.ErrUnitNotFound, rec.ValueUnit)
		}
		t.ValueUnit = u
	}
	if rec.MatchPrecisionMin != 0 || rec.MatchPrecisionMax != 0 {
		t.MatchPrecisionMin, t.MatchPrecisionMax = rec.MatchPrecisionMin, rec.MatchPrecisionMax
	}
	if rec.Policy != "" {
		t.Policy = rec.Policy
	}
	if len(rec.Cells) > len(t.cells) {
		return nil, fmt.Errorf("%w: table %s has %d slots, record has %d cells", core.ErrMalformedTable, rec.Name, len(t.cells), len(rec.Cells))
	}
	for i, cr := range rec.Cells {
		if cr == nil {
			continue
		}
		q, err := env.Decode(*cr, res)
		if err != nil {
			return nil, fmt.Errorf("table %s cell %d: %w", rec.Name, i, err)
		}
		t.cells[i] = q
	}
	for _, slot := range []struct {
		rec *Record
		dst **Quantity
	}{
		{rec.Default, &t.Default},
		{rec.Underrange, &t.Underrange},
		{rec.Overrange, &t.Overrange},
	} {
		if slot.rec == nil {
			continue
		}
		q, err := env.Decode(*slot.rec, res)
		if err != nil {
			return nil, fmt.Errorf("table %s: %w", rec.Name, err)
		}
		*slot.dst = q
	}
	return t, nil
}
