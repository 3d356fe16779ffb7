// Package db holds the row shapes shared by the SQL workspace stores. A
// workspace is stored as one parent row plus one JSON record per constant,
// table and quantity, ordered by position.
package db

import (
	"encoding/json"
	"fmt"
	"time"

	"phaengine/domain/quantity"
	"phaengine/domain/receptor"
)

// RecordRow is one JSON record of a workspace child table.
type RecordRow struct {
	Workspace string `db:"workspace"`
	ID        string `db:"id"`
	Position  int    `db:"position"`
	Name      string `db:"name"`
	Kind      string `db:"kind"`
	Unit      string `db:"unit"`
	Record    string `db:"record"`
}

// WorkspaceRow is the parent row of a document.
type WorkspaceRow struct {
	Name      string    `db:"name"`
	Receptors string    `db:"receptors"`
	UpdatedAt time.Time `db:"updated_at"`
}

// RowSet is a document flattened into rows.
type RowSet struct {
	Constants  []RecordRow
	Tables     []RecordRow
	Quantities []RecordRow
}

// DocumentRows flattens doc.
func DocumentRows(doc *quantity.Document) (*RowSet, error) {
	rs := &RowSet{}
	for i, c := range doc.Constants {
		raw, err := json.Marshal(c)
		if err != nil {
			return nil, fmt.Errorf("constant %s: %w", c.Name, err)
		}
		rs.Constants = append(rs.Constants, RecordRow{Workspace: doc.Name, ID: c.ID.String(), Position: i, Name: c.Name, Record: string(raw)})
	}
	for i, t := range doc.Tables {
		raw, err := json.Marshal(t)
		if err != nil {
			return nil, fmt.Errorf("table %s: %w", t.Name, err)
		}
		rs.Tables = append(rs.Tables, RecordRow{Workspace: doc.Name, ID: t.ID.String(), Position: i, Name: t.Name, Record: string(raw)})
	}
	for i, q := range doc.Quantities {
		raw, err := json.Marshal(q)
		if err != nil {
			return nil, fmt.Errorf("quantity %s: %w", q.Name, err)
		}
		rs.Quantities = append(rs.Quantities, RecordRow{
			Workspace: doc.Name, ID: q.ID.String(), Position: i, Name: q.Name,
			Kind: string(q.Kind), Unit: q.Unit, Record: string(raw),
		})
	}
	return rs, nil
}

// DecodeRows appends the records held by the rows to doc, in row order.
func DecodeRows(doc *quantity.Document, constants, tables, quantities []RecordRow) error {
	for _, r := range constants {
		var c quantity.ConstantRecord
		if err := json.Unmarshal([]byte(r.Record), &c); err != nil {
			return fmt.Errorf("constant %s: %w", r.ID, err)
		}
		doc.Constants = append(doc.Constants, c)
	}
	for _, r := range tables {
		var t quantity.TableRecord
		if err := json.Unmarshal([]byte(r.Record), &t); err != nil {
			return fmt.Errorf("table %s: %w", r.ID, err)
		}
		doc.Tables = append(doc.Tables, t)
	}
	for _, r := range quantities {
		var q quantity.Record
		if err := json.Unmarshal([]byte(r.Record), &q); err != nil {
			return fmt.Errorf("quantity %s: %w", r.ID, err)
		}
		doc.Quantities = append(doc.Quantities, q)
	}
	return nil
}

// ExtraReceptors drops the default receptor, which every environment has.
func ExtraReceptors(in []receptor.Receptor) []receptor.Receptor {
	out := make([]receptor.Receptor, 0, len(in))
	for _, r := range in {
		if r.ID != receptor.DefaultID {
			out = append(out, r)
		}
	}
	return out
}
