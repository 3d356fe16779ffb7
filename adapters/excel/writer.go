package excel

import (
	"fmt"

	"phaengine/domain/quantity"
	"phaengine/domain/receptor"
	"phaengine/internal/errors"

	"github.com/xuri/excelize/v2"
)

const exportSheet = "Table"

// ExportTable writes a one- or two-dimensional table record as an xlsx grid
// in the layout TableReader reads. Cells hold their default-scenario value;
// unset or non-user cells are left blank.
func ExportTable(path string, rec *quantity.TableRecord) error {
	if len(rec.Dimensions) == 0 || len(rec.Dimensions) > 2 {
		return errors.InvalidInput(fmt.Sprintf("cannot export %d-dimensional table %s", len(rec.Dimensions), rec.Name))
	}

	f := excelize.NewFile()
	defer f.Close()
	if err := f.SetSheetName(f.GetSheetName(0), exportSheet); err != nil {
		return errors.Wrap(err, "rename sheet")
	}

	rows := rec.Dimensions[0]
	columns := []string{rec.Name}
	if len(rec.Dimensions) == 2 {
		columns = columns[:0]
		for _, k := range rec.Dimensions[1].Keys {
			columns = append(columns, keyText(k))
		}
	}

	header := append([]interface{}{rows.Name}, toInterfaces(columns)...)
	if err := f.SetSheetRow(exportSheet, "A1", &header); err != nil {
		return errors.Wrap(err, "write header")
	}

	for r, key := range rows.Keys {
		line := []interface{}{keyValue(key)}
		for c := range columns {
			line = append(line, cellValue(rec, r*len(columns)+c))
		}
		cell, err := excelize.CoordinatesToCellName(1, r+2)
		if err != nil {
			return errors.Wrap(err, "cell name")
		}
		if err := f.SetSheetRow(exportSheet, cell, &line); err != nil {
			return errors.Wrapf(err, "write row %d", r+2)
		}
	}

	if err := f.SaveAs(path); err != nil {
		return errors.Storage("save "+path, err)
	}
	return nil
}

func keyValue(k quantity.Key) interface{} {
	if k.Label != "" {
		return k.Label
	}
	return k.Value
}

func cellValue(rec *quantity.TableRecord, pos int) interface{} {
	if pos >= len(rec.Cells) || rec.Cells[pos] == nil {
		return nil
	}
	c := rec.Cells[pos]
	if c.Kind != quantity.KindUser {
		return nil
	}
	sr := c.Scenarios[receptor.DefaultID]
	switch {
	case sr.Infinite:
		return "inf"
	case sr.Value != nil:
		return *sr.Value
	}
	return nil
}

func toInterfaces(in []string) []interface{} {
	out := make([]interface{}, len(in))
	for i, s := range in {
		out[i] = s
	}
	return out
}
