package core

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// ID represents a domain identifier
type ID string

// NewID creates a new unique identifier using UUID v7 for time-ordered generation
func NewID() ID {
	id, err := uuid.NewV7()
	if err != nil {
		id = uuid.New()
	}
	return ID(id.String())
}

// String returns the string representation
func (id ID) String() string {
	return string(id)
}

// IsEmpty checks if the ID is empty
func (id ID) IsEmpty() bool {
	return id == ""
}

// Domain-specific ID types
type (
	ReceptorID ID
	QuantityID ID
	ConstantID ID
	TableID    ID
)

// String conversions for domain IDs
func (id ReceptorID) String() string { return ID(id).String() }
func (id QuantityID) String() string { return ID(id).String() }
func (id ConstantID) String() string { return ID(id).String() }
func (id TableID) String() string    { return ID(id).String() }

// NewQuantityID returns a fresh quantity identifier.
func NewQuantityID() QuantityID { return QuantityID(NewID()) }

// NewConstantID returns a fresh constant identifier.
func NewConstantID() ConstantID { return ConstantID(NewID()) }

// NewTableID returns a fresh lookup table identifier.
func NewTableID() TableID { return TableID(NewID()) }

// ParseReceptorID parses a string into ReceptorID
func ParseReceptorID(s string) (ReceptorID, error) {
	if strings.TrimSpace(s) == "" {
		return "", fmt.Errorf("receptor ID cannot be empty")
	}
	return ReceptorID(s), nil
}

// ParseQuantityID parses a string into QuantityID
func ParseQuantityID(s string) (QuantityID, error) {
	if strings.TrimSpace(s) == "" {
		return "", fmt.Errorf("quantity ID cannot be empty")
	}
	return QuantityID(s), nil
}

// ParseConstantID parses a string into ConstantID
func ParseConstantID(s string) (ConstantID, error) {
	if strings.TrimSpace(s) == "" {
		return "", fmt.Errorf("constant ID cannot be empty")
	}
	return ConstantID(s), nil
}

// ParseTableID parses a string into TableID
func ParseTableID(s string) (TableID, error) {
	if strings.TrimSpace(s) == "" {
		return "", fmt.Errorf("table ID cannot be empty")
	}
	return TableID(s), nil
}
