package ports

import (
	"context"
	"time"

	"phaengine/domain/quantity"
)

// WorkspaceSummary describes a stored workspace document.
type WorkspaceSummary struct {
	Name       string    `db:"name" json:"name"`
	Quantities int       `db:"quantities" json:"quantities"`
	UpdatedAt  time.Time `db:"updated_at" json:"updated_at"`
}

// QuantityStore persists workspace documents. Save replaces any document
// with the same name.
type QuantityStore interface {
	Save(ctx context.Context, doc *quantity.Document) error
	Load(ctx context.Context, name string) (*quantity.Document, error)
	List(ctx context.Context) ([]WorkspaceSummary, error)
	Delete(ctx context.Context, name string) error
	Close() error
}
