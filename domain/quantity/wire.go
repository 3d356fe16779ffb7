package quantity

import (
	"fmt"

	"phaengine/domain/core"
	"phaengine/domain/receptor"
	"phaengine/domain/unit"
)

// Record is the tagged persistence shape of a quantity. Cross references are
// ids; a load pass outside the engine resolves them through a Resolver.
type Record struct {
	ID          core.QuantityID                    `json:"id"`
	Name        string                             `json:"name,omitempty"`
	Kind        Kind                               `json:"kind"`
	Unit        string                             `json:"unit,omitempty"`
	Scenarios   map[core.ReceptorID]ScenarioRecord `json:"scenarios,omitempty"`
	ConstantID  core.ConstantID                    `json:"constant_id,omitempty"`
	Formula     *FormulaRecord                     `json:"formula,omitempty"`
	TableID     core.TableID                       `json:"table_id,omitempty"`
	InputID     core.QuantityID                    `json:"input_id,omitempty"`
	ParentID    core.QuantityID                    `json:"parent_id,omitempty"`
	Overridable bool                               `json:"overridable,omitempty"`
	Problem     string                             `json:"problem,omitempty"`
}

// ScenarioRecord is one scenario's stored value and display precision.
type ScenarioRecord struct {
	Value    *float64 `json:"value,omitempty"`
	Status   Status   `json:"status,omitempty"`
	Infinite bool     `json:"infinite,omitempty"`
	Format
}

// FormulaRecord is a persisted operand tree.
type FormulaRecord struct {
	Operator string          `json:"operator,omitempty"`
	Operands []OperandRecord `json:"operands,omitempty"`
}

// OperandRecord holds exactly one of its fields.
type OperandRecord struct {
	Literal    *float64        `json:"literal,omitempty"`
	QuantityID core.QuantityID `json:"quantity_id,omitempty"`
	Formula    *FormulaRecord  `json:"formula,omitempty"`
}

// Resolver maps persisted ids onto live objects during a load pass.
type Resolver interface {
	Quantity(id core.QuantityID) (*Quantity, bool)
	Constant(id core.ConstantID) (*Constant, bool)
	Table(id core.TableID) (*LookupTable, bool)
}

// Encode produces the persistence record of q.
func (q *Quantity) Encode() Record {
	rec := Record{ID: q.ID, Name: q.Name, Kind: q.Kind(), Scenarios: make(map[core.ReceptorID]ScenarioRecord)}
	for _, k := range q.scenarios {
		rec.Scenarios[k] = ScenarioRecord{Format: q.formats[k]}
	}

	switch v := q.v.(type) {
	case *userEntered:
		rec.Unit = wireName(v.u)
		encodeValues(rec.Scenarios, v.vals)
	case *parentCopy:
		rec.Unit = wireName(v.u)
		encodeValues(rec.Scenarios, v.vals)
		if v.parent != nil {
			rec.ParentID = v.parent.ID
		}
	case *constantRef:
		if v.c != nil {
			rec.ConstantID = v.c.ID
		}
	case *calculated:
		rec.Formula = encodeFormula(v.f)
	case *lookupKind:
		if v.table != nil {
			rec.TableID = v.table.ID
		}
		if v.input != nil {
			rec.InputID = v.input.ID
		}
	case *autoKind:
		rec.Overridable = v.overridable
		if v.overridable {
			rec.Unit = wireName(v.override)
		}
	case *parentLink:
		if v.parent != nil {
			rec.ParentID = v.parent.ID
		}
	}
	return rec
}

func wireName(u *unit.Unit) string {
	if u == nil {
		return ""
	}
	return u.WireName
}

func encodeValues(out map[core.ReceptorID]ScenarioRecord, vals *Values) {
	for k, st := range vals.status {
		sr := out[k]
		sr.Status = st
		sr.Infinite = vals.infinite[k]
		if st == StatusOK && !sr.Infinite {
			x := vals.value[k]
			sr.Value = &x
		}
		out[k] = sr
	}
}

func encodeFormula(f *Formula) *FormulaRecord {
	if f == nil {
		return nil
	}
	fr := &FormulaRecord{}
	if f.Operator != nil {
		fr.Operator = f.Operator.Name()
	}
	for _, op := range f.Operands {
		switch o := op.(type) {
		case Literal:
			x := float64(o)
			fr.Operands = append(fr.Operands, OperandRecord{Literal: &x})
		case *Quantity:
			fr.Operands = append(fr.Operands, OperandRecord{QuantityID: o.ID})
		case *Formula:
			fr.Operands = append(fr.Operands, OperandRecord{Formula: encodeFormula(o)})
		}
	}
	return fr
}

// NewPlaceholder creates an unset user-entered quantity with a fixed id, to
// be filled by Load once every referenced object exists.
func (env *Env) NewPlaceholder(id core.QuantityID, name string) *Quantity {
	q := env.NewUserEntered(name, nil)
	q.ID = id
	return q
}

// Decode builds a quantity from rec in one step.
func (env *Env) Decode(rec Record, res Resolver) (*Quantity, error) {
	q := env.NewPlaceholder(rec.ID, rec.Name)
	if err := q.Load(rec, res); err != nil {
		return nil, err
	}
	return q, nil
}

// Load replaces q's kind and content with rec. q keeps its identity, so
// formulas already pointing at q stay valid.
func (q *Quantity) Load(rec Record, res Resolver) error {
	q.Name = rec.Name
	q.recovery = Recovery{}
	q.loadScenarios(rec)

	u, err := q.decodeUnit(rec.Unit)
	if err != nil {
		return err
	}

	switch rec.Kind {
	case KindUser:
		q.v = &userEntered{vals: q.decodeValues(rec), u: u}
	case KindProblem:
		q.env.Log.Warn("quantity %s: persisted as problem %q, loading as unset", q.label(), rec.Problem)
		q.v = &userEntered{vals: newValues(q.scenarios), u: u}
	case KindCopied:
		parent, _ := res.Quantity(rec.ParentID)
		q.v = &parentCopy{vals: q.decodeValues(rec), u: u, parent: parent}
	case KindLinkedFrom:
		parent, ok := res.Quantity(rec.ParentID)
		if !ok && rec.ParentID != "" {
			q.env.Log.Warn("quantity %s: parent %s not found, link is broken", q.label(), rec.ParentID)
		}
		q.v = &parentLink{parent: parent}
	case KindConstant:
		var c *Constant
		if rec.ConstantID != "" {
			found, ok := res.Constant(rec.ConstantID)
			if !ok {
				return fmt.Errorf("%w: %s", core.ErrConstantNotFound, rec.ConstantID)
			}
			c = found
		}
		q.v = &constantRef{c: c}
	case KindCalc:
		f, err := q.env.decodeFormula(rec.Formula, res)
		if err != nil {
			return err
		}
		q.v = &calculated{f: f}
	case KindLookup:
		lk := &lookupKind{}
		if rec.TableID != "" {
			t, ok := res.Table(rec.TableID)
			if !ok {
				return fmt.Errorf("%w: %s", core.ErrTableNotFound, rec.TableID)
			}
			lk.table = t
		}
		if rec.InputID != "" {
			in, ok := res.Quantity(rec.InputID)
			if !ok {
				return fmt.Errorf("%w: %s", core.ErrQuantityNotFound, rec.InputID)
			}
			lk.input = in
		}
		q.v = lk
	case KindAuto:
		a := q.env.newAuto(nil, rec.Overridable)
		if rec.Overridable {
			a.override = u
		}
		q.v = a
	default:
		return fmt.Errorf("%w: %q", core.ErrUnknownKind, rec.Kind)
	}
	q.env.touch()
	return nil
}

func (q *Quantity) loadScenarios(rec Record) {
	q.scenarios = []core.ReceptorID{receptor.DefaultID}
	q.formats = map[core.ReceptorID]Format{receptor.DefaultID: rec.Scenarios[receptor.DefaultID].Format}
	for _, k := range q.env.scenarioKeys() {
		sr, ok := rec.Scenarios[k]
		if !ok || k == receptor.DefaultID {
			continue
		}
		q.scenarios = append(q.scenarios, k)
		q.formats[k] = sr.Format
	}
	for k := range rec.Scenarios {
		if !q.env.Receptors.Has(k) {
			q.env.Log.Warn("quantity %s: dropping unknown scenario %s", q.label(), k)
		}
	}
}

func (q *Quantity) decodeUnit(name string) (*unit.Unit, error) {
	if name == "" {
		return nil, nil
	}
	u, ok := q.env.Units.FindByWireName(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", core.ErrUnitNotFound, name)
	}
	return u, nil
}

func (q *Quantity) decodeValues(rec Record) *Values {
	vals := newValues(q.scenarios)
	for _, k := range q.scenarios {
		sr := rec.Scenarios[k]
		switch {
		case sr.Infinite:
			vals.setInfinite(k, true)
		case sr.Status == StatusOK && sr.Value != nil:
			vals.set(k, *sr.Value)
		}
	}
	return vals
}

func (env *Env) decodeFormula(fr *FormulaRecord, res Resolver) (*Formula, error) {
	if fr == nil {
		return env.NewFormula(nil), nil
	}
	var op Operator
	if fr.Operator != "" {
		found, ok := env.Ops.ByName(fr.Operator)
		if !ok {
			return nil, fmt.Errorf("%w: operator %q", core.ErrContract, fr.Operator)
		}
		op = found
	}
	f := env.NewFormula(op)
	for _, or := range fr.Operands {
		switch {
		case or.Literal != nil:
			f.Operands = append(f.Operands, Literal(*or.Literal))
		case or.QuantityID != "":
			ref, ok := res.Quantity(or.QuantityID)
			if !ok {
				return nil, fmt.Errorf("%w: %s", core.ErrQuantityNotFound, or.QuantityID)
			}
			f.Operands = append(f.Operands, ref)
		case or.Formula != nil:
			nested, err := env.decodeFormula(or.Formula, res)
			if err != nil {
				return nil, err
			}
			f.Operands = append(f.Operands, nested)
		default:
			return nil, fmt.Errorf("%w: empty operand", core.ErrContract)
		}
	}
	return f, nil
}
