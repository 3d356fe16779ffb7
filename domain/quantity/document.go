package quantity

import (
	"phaengine/domain/receptor"
)

// Document is the persisted form of a whole workspace: the receptors it
// defines beyond the default one, then constants, tables and quantities.
// Quantities are listed in display order.
type Document struct {
	Name       string              `json:"name"`
	Receptors  []receptor.Receptor `json:"receptors,omitempty"`
	Constants  []ConstantRecord    `json:"constants,omitempty"`
	Tables     []TableRecord       `json:"tables,omitempty"`
	Quantities []Record            `json:"quantities,omitempty"`
}
