package ports

import (
	"context"

	"phaengine/domain/quantity"
)

// TableImport names a grid in an external file and how to read it.
type TableImport struct {
	Path  string
	Sheet string // xlsx only; empty means the first sheet
	Name  string

	// ColumnDimension names the second axis when the grid has more than one
	// value column.
	ColumnDimension string
	KeyUnit         string
	ValueUnit       string
}

// TableSource turns an external grid into a lookup table record.
type TableSource interface {
	ReadTable(ctx context.Context, spec TableImport) (*quantity.TableRecord, error)
}
