package excel

import (
	"context"
	"encoding/csv"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"phaengine/domain/core"
	"phaengine/domain/quantity"
	"phaengine/domain/receptor"
	"phaengine/internal"
	"phaengine/internal/errors"
	"phaengine/ports"

	"github.com/xuri/excelize/v2"
)

// TableReader reads lookup tables from Excel and CSV grids.
//
// The first row is a header: its first cell names the row dimension, the
// remaining cells are the value columns. With a single value column the
// table is one-dimensional; otherwise the column headers become the keys of
// a second dimension. Empty cells leave the table slot empty.
type TableReader struct {
	log *internal.Logger
}

// NewTableReader creates a reader. A nil logger uses the default one.
func NewTableReader(log *internal.Logger) *TableReader {
	if log == nil {
		log = internal.NewDefaultLogger()
	}
	return &TableReader{log: log}
}

var _ ports.TableSource = (*TableReader)(nil)

// ReadTable implements ports.TableSource.
func (r *TableReader) ReadTable(ctx context.Context, spec ports.TableImport) (*quantity.TableRecord, error) {
	if _, err := os.Stat(spec.Path); os.IsNotExist(err) {
		return nil, errors.Import(spec.Path, fmt.Errorf("file not found"))
	}

	start := time.Now()
	var rows [][]string
	var err error
	switch strings.ToLower(filepath.Ext(spec.Path)) {
	case ".csv":
		rows, err = readCSV(spec.Path)
	case ".xlsx", ".xlsm":
		rows, err = readSheet(spec.Path, spec.Sheet)
	default:
		err = fmt.Errorf("unsupported file type %q", filepath.Ext(spec.Path))
	}
	if err != nil {
		return nil, errors.Import(spec.Path, err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.log.Debug("[TableReader] %s read in %.2fms (%d rows)", spec.Path, float64(time.Since(start).Nanoseconds())/1e6, len(rows))

	rec, err := buildTable(rows, spec)
	if err != nil {
		return nil, errors.Import(spec.Path, err)
	}
	r.log.Info("[TableReader] imported table %s with %d dimension(s) and %d cells", rec.Name, len(rec.Dimensions), len(rec.Cells))
	return rec, nil
}

func readCSV(path string) ([][]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open CSV file: %w", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV file: %w", err)
	}
	return rows, nil
}

func readSheet(path, sheet string) ([][]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open Excel file: %w", err)
	}
	defer f.Close()

	if sheet == "" {
		sheet = f.GetSheetName(0)
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", sheet, err)
	}
	return rows, nil
}

func buildTable(rows [][]string, spec ports.TableImport) (*quantity.TableRecord, error) {
	if len(rows) < 2 {
		return nil, fmt.Errorf("grid must have a header row and at least one data row")
	}
	header := trimAll(rows[0])
	if len(header) < 2 {
		return nil, fmt.Errorf("header needs a key column and at least one value column")
	}

	name := spec.Name
	if name == "" {
		name = strings.TrimSuffix(filepath.Base(spec.Path), filepath.Ext(spec.Path))
	}
	rowDim := quantity.DimensionRecord{Name: firstNonEmpty(header[0], "Key"), Unit: spec.KeyUnit}
	columns := header[1:]

	type entry struct {
		key    quantity.Key
		values []string
	}
	var entries []entry
	seen := map[quantity.Key]bool{}
	for i, raw := range rows[1:] {
		row := trimAll(raw)
		if len(row) == 0 || row[0] == "" {
			continue
		}
		k := parseKey(row[0])
		if seen[k] {
			return nil, fmt.Errorf("row %d: duplicate key %q", i+2, row[0])
		}
		seen[k] = true
		entries = append(entries, entry{key: k, values: row[1:]})
		rowDim.Keys = append(rowDim.Keys, k)
	}
	if len(entries) == 0 {
		return nil, fmt.Errorf("no keyed rows")
	}

	rec := &quantity.TableRecord{
		ID:         core.NewTableID(),
		Name:       name,
		ValueUnit:  spec.ValueUnit,
		Dimensions: []quantity.DimensionRecord{rowDim},
	}
	if len(columns) > 1 {
		colDim := quantity.DimensionRecord{Name: firstNonEmpty(spec.ColumnDimension, "Column")}
		for _, c := range columns {
			colDim.Keys = append(colDim.Keys, parseKey(c))
		}
		rec.Dimensions = append(rec.Dimensions, colDim)
	}

	rec.Cells = make([]*quantity.Record, len(entries)*len(columns))
	for r, e := range entries {
		for c := range columns {
			if c >= len(e.values) || e.values[c] == "" {
				continue
			}
			cell, err := cellRecord(e.values[c], spec.ValueUnit, fmt.Sprintf("%s[%s,%s]", name, keyText(e.key), columns[c]))
			if err != nil {
				return nil, fmt.Errorf("row %d column %d: %w", r+2, c+2, err)
			}
			rec.Cells[r*len(columns)+c] = cell
		}
	}
	return rec, nil
}

func cellRecord(text, unit, name string) (*quantity.Record, error) {
	v, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return nil, fmt.Errorf("%q is not a number", text)
	}
	sr := quantity.ScenarioRecord{Status: quantity.StatusOK}
	if math.IsInf(v, 0) {
		sr.Infinite = true
	} else {
		sr.Value = &v
	}
	return &quantity.Record{
		ID:        core.NewQuantityID(),
		Name:      name,
		Kind:      quantity.KindUser,
		Unit:      unit,
		Scenarios: map[core.ReceptorID]quantity.ScenarioRecord{receptor.DefaultID: sr},
	}, nil
}

// parseKey keeps numeric headers numeric so numeric lookups can match them.
func parseKey(text string) quantity.Key {
	if v, err := strconv.ParseFloat(text, 64); err == nil {
		return quantity.Key{Value: v}
	}
	return quantity.Key{Label: text}
}

func keyText(k quantity.Key) string {
	if k.Label != "" {
		return k.Label
	}
	return strconv.FormatFloat(k.Value, 'g', -1, 64)
}

func trimAll(row []string) []string {
	out := make([]string, len(row))
	for i, c := range row {
		out[i] = strings.TrimSpace(c)
	}
	return out
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
