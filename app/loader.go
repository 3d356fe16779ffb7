package app

import (
	"fmt"

	"phaengine/domain/core"
	"phaengine/domain/quantity"
	"phaengine/internal"
)

// LoadWorkspace rebuilds a workspace from its document.
//
// Quantities may refer to each other in any order, so every quantity first
// gets a placeholder handle with its persisted id. Constants and tables are
// decoded next, then each placeholder is loaded in place.
func LoadWorkspace(env *quantity.Env, doc *quantity.Document, log *internal.Logger) (*Workspace, error) {
	ws := NewWorkspace(doc.Name, env, log)
	ws.mu.Lock()
	defer ws.mu.Unlock()
	res := resolver{ws: ws}

	for _, r := range doc.Receptors {
		if env.Receptors.Has(r.ID) {
			continue
		}
		if err := env.Receptors.Register(r); err != nil {
			return nil, fmt.Errorf("receptor %s: %w", r.ID, err)
		}
	}

	for _, rec := range doc.Quantities {
		if rec.ID == "" {
			return nil, fmt.Errorf("%w: quantity %q has no id", core.ErrContract, rec.Name)
		}
		if err := ws.addQuantity(env.NewPlaceholder(rec.ID, rec.Name)); err != nil {
			return nil, err
		}
	}

	for _, rec := range doc.Constants {
		c, err := env.DecodeConstant(rec, res)
		if err != nil {
			return nil, err
		}
		if err := ws.addConstant(c); err != nil {
			return nil, err
		}
	}

	for _, rec := range doc.Tables {
		t, err := env.DecodeTable(rec, res)
		if err != nil {
			return nil, fmt.Errorf("table %s: %w", rec.Name, err)
		}
		if err := ws.addTable(t); err != nil {
			return nil, err
		}
	}

	for _, rec := range doc.Quantities {
		if err := ws.quantities[rec.ID].Load(rec, res); err != nil {
			return nil, fmt.Errorf("quantity %s: %w", rec.Name, err)
		}
	}

	ws.resetMemo()
	ws.log.Info("loaded workspace %s: %d quantities, %d constants, %d tables",
		doc.Name, len(doc.Quantities), len(doc.Constants), len(doc.Tables))
	return ws, nil
}
