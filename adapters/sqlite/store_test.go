package sqlite

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"

	"phaengine/adapters/db/postgres/migrations"
	"phaengine/domain/core"
	"phaengine/domain/quantity"
	"phaengine/domain/receptor"
	"phaengine/internal"
	apperrors "phaengine/internal/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	var buf bytes.Buffer
	s, err := Open(context.Background(), filepath.Join(t.TempDir(), "ws.db"), internal.NewLoggerTo(internal.LogLevelInfo, &buf))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	assert.Contains(t, buf.String(), "Applied migration: 001_workspaces")
	return s
}

func sampleDocument() *quantity.Document {
	v := 0.25
	pi := 3.14159
	return &quantity.Document{
		Name:      "plant",
		Receptors: []receptor.Receptor{{ID: receptor.DefaultID, Name: "Default"}, {ID: "public", Name: "Public"}},
		Constants: []quantity.ConstantRecord{{
			ID: "c1", Name: "pi",
			Quantity: quantity.Record{ID: "cq", Kind: quantity.KindUser,
				Scenarios: map[core.ReceptorID]quantity.ScenarioRecord{receptor.DefaultID: {Value: &pi, Status: quantity.StatusOK}}},
		}},
		Tables: []quantity.TableRecord{{
			ID: "t1", Name: "exposure",
			Dimensions: []quantity.DimensionRecord{{Name: "Key", Keys: []quantity.Key{{Label: "low"}, {Label: "high"}}}},
			Cells:      []*quantity.Record{nil, nil},
		}},
		Quantities: []quantity.Record{
			{ID: "q1", Name: "leak", Kind: quantity.KindUser, Unit: "/yr",
				Scenarios: map[core.ReceptorID]quantity.ScenarioRecord{receptor.DefaultID: {Value: &v, Status: quantity.StatusOK}}},
			{ID: "q2", Name: "twice", Kind: quantity.KindCalc, Formula: &quantity.FormulaRecord{
				Operator: "Multiply",
				Operands: []quantity.OperandRecord{{QuantityID: "q1"}, {QuantityID: "q1"}},
			}},
		},
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	doc := sampleDocument()

	require.NoError(t, s.Save(ctx, doc))
	got, err := s.Load(ctx, "plant")
	require.NoError(t, err)

	assert.Equal(t, []receptor.Receptor{{ID: "public", Name: "Public"}}, got.Receptors)
	assert.Equal(t, doc.Constants, got.Constants)
	assert.Equal(t, doc.Quantities, got.Quantities)
	require.Len(t, got.Tables, 1)
	assert.Equal(t, doc.Tables[0].Dimensions, got.Tables[0].Dimensions)
}

func TestSaveReplacesDocument(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	doc := sampleDocument()
	require.NoError(t, s.Save(ctx, doc))

	doc.Quantities = doc.Quantities[:1]
	doc.Tables = nil
	require.NoError(t, s.Save(ctx, doc))

	got, err := s.Load(ctx, "plant")
	require.NoError(t, err)
	assert.Len(t, got.Quantities, 1)
	assert.Empty(t, got.Tables)
}

func TestListAndDelete(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.Save(ctx, sampleDocument()))
	require.NoError(t, s.Save(ctx, &quantity.Document{Name: "empty"}))

	list, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "empty", list[0].Name)
	assert.Equal(t, 0, list[0].Quantities)
	assert.Equal(t, "plant", list[1].Name)
	assert.Equal(t, 2, list[1].Quantities)
	assert.False(t, list[1].UpdatedAt.IsZero())

	require.NoError(t, s.Delete(ctx, "plant"))
	_, err = s.Load(ctx, "plant")
	assert.True(t, core.IsNotFoundError(err))
	assert.Equal(t, apperrors.CodeStorage, apperrors.GetCode(err))

	err = s.Delete(ctx, "plant")
	assert.True(t, core.IsNotFoundError(err))
}

func TestMigratorStatusAndDown(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	m := migrations.NewMigrator(s.DB(), migrations.SQLite, Files(), nil)

	status, err := m.Status(ctx)
	require.NoError(t, err)
	require.Len(t, status, 1)
	assert.Equal(t, migrations.MigrationStatus{Version: "001", Name: "workspaces", Applied: true}, status[0])

	applied, err := m.Up(ctx)
	require.NoError(t, err)
	assert.Empty(t, applied)

	version, err := m.Down(ctx)
	require.NoError(t, err)
	assert.Equal(t, "001", version)

	status, err = m.Status(ctx)
	require.NoError(t, err)
	assert.False(t, status[0].Applied)

	_, err = m.Down(ctx)
	assert.ErrorContains(t, err, "no migrations to rollback")
}
