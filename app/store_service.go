package app

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"phaengine/domain/quantity"
	"phaengine/internal"
	apperrors "phaengine/internal/errors"
	"phaengine/ports"
)

// StoreService moves workspaces between memory and a QuantityStore.
type StoreService struct {
	store ports.QuantityStore
	log   *internal.Logger
}

// NewStoreService creates a store service
func NewStoreService(store ports.QuantityStore, log *internal.Logger) *StoreService {
	if log == nil {
		log = internal.NewDefaultLogger()
	}
	return &StoreService{store: store, log: log}
}

// Save persists ws under its name, replacing any earlier version.
func (s *StoreService) Save(ctx context.Context, ws *Workspace) error {
	doc := ws.Document()
	if err := s.store.Save(ctx, doc); err != nil {
		return fmt.Errorf("save workspace %s: %w", doc.Name, err)
	}
	s.log.Info("saved workspace %s (%d quantities)", doc.Name, len(doc.Quantities))
	return nil
}

// Open loads a stored workspace into env.
func (s *StoreService) Open(ctx context.Context, name string, env *quantity.Env) (*Workspace, error) {
	doc, err := s.store.Load(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("open workspace %s: %w", name, err)
	}
	return LoadWorkspace(env, doc, s.log)
}

// List summarises the stored workspaces.
func (s *StoreService) List(ctx context.Context) ([]ports.WorkspaceSummary, error) {
	return s.store.List(ctx)
}

// Delete removes a stored workspace.
func (s *StoreService) Delete(ctx context.Context, name string) error {
	return s.store.Delete(ctx, name)
}

// ReadWorkspaceFile decodes a workspace document from a JSON file.
func ReadWorkspaceFile(path string) (*quantity.Document, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, apperrors.Storage("read "+path, err)
	}
	var doc quantity.Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, apperrors.Storage("decode "+path, err)
	}
	if doc.Name == "" {
		doc.Name = filepath.Base(path)
	}
	return &doc, nil
}

// WriteWorkspaceFile writes doc as indented JSON, replacing path atomically.
func WriteWorkspaceFile(path string, doc *quantity.Document) error {
	raw, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return apperrors.Storage("encode workspace "+doc.Name, err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, append(raw, '\n'), 0o644); err != nil {
		return apperrors.Storage("write "+tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return apperrors.Storage("rename "+tmp, err)
	}
	return nil
}

// ImportTable reads a grid through src and registers it as a lookup table.
func (ws *Workspace) ImportTable(ctx context.Context, src ports.TableSource, spec ports.TableImport) (*quantity.LookupTable, error) {
	rec, err := src.ReadTable(ctx, spec)
	if err != nil {
		return nil, err
	}

	ws.mu.Lock()
	defer ws.mu.Unlock()
	t, err := ws.env.DecodeTable(*rec, resolver{ws: ws})
	if err != nil {
		return nil, apperrors.Import(spec.Path, err)
	}
	if err := ws.addTable(t); err != nil {
		return nil, err
	}
	ws.log.Info("imported table %s from %s (%d cells)", t.Name, spec.Path, len(t.Cells()))
	return t, nil
}
