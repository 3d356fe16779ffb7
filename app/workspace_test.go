package app_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"phaengine/adapters/sqlite"
	"phaengine/app"
	"phaengine/domain/core"
	"phaengine/domain/quantity"
	"phaengine/domain/receptor"
	"phaengine/internal"
	"phaengine/internal/testkit"
	"phaengine/ports"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func quietLog() *internal.Logger { return internal.NewLogger(internal.LogLevelError) }

func valueOf(t *testing.T, ws *app.Workspace, name string, scenario core.ReceptorID) float64 {
	t.Helper()
	q, ok := ws.FindQuantity(name)
	require.True(t, ok, name)
	r := q.Value(scenario, nil)
	require.True(t, r.OK(), "%s: %v", name, r.Problem)
	return r.Value
}

func TestAddRejectsDuplicatesAndForeignQuantities(t *testing.T) {
	d := testkit.MustDemo(nil)
	ws := d.Workspace

	assert.ErrorIs(t, ws.AddQuantity(d.Leak), core.ErrDuplicate)
	assert.ErrorIs(t, ws.AddConstant(d.IgnitionConstant), core.ErrDuplicate)
	assert.ErrorIs(t, ws.AddTable(d.FatalityTable), core.ErrDuplicate)
	assert.ErrorIs(t, ws.AddReceptor(receptor.Receptor{ID: testkit.Worker}), core.ErrDuplicate)

	foreign := testkit.NewEnv(nil).NewUserEntered("elsewhere", nil)
	assert.ErrorIs(t, ws.AddQuantity(foreign), core.ErrContract)
}

func TestRemove(t *testing.T) {
	d := testkit.MustDemo(nil)
	ws := d.Workspace

	err := ws.Remove(d.Leak.ID)
	assert.ErrorIs(t, err, core.ErrContract)
	assert.ErrorContains(t, err, "Fire frequency")

	// the duration feeds the fatality lookup
	assert.ErrorIs(t, ws.Remove(d.Duration.ID), core.ErrContract)

	require.NoError(t, ws.Remove(d.Risk.ID))
	_, ok := ws.Quantity(d.Risk.ID)
	assert.False(t, ok)
	assert.Len(t, ws.Quantities(), 5)

	assert.True(t, core.IsNotFoundError(ws.Remove(d.Risk.ID)))
}

func TestUpdateReturnsError(t *testing.T) {
	d := testkit.MustDemo(nil)
	err := d.Workspace.Update(func() error {
		return d.Fire.SetValue(receptor.DefaultID, 1)
	})
	assert.True(t, core.IsUnsupported(err))
}

func TestBecomeInsideUpdate(t *testing.T) {
	d := testkit.MustDemo(nil)
	ws := d.Workspace
	require.NoError(t, ws.Update(func() error {
		if err := d.Fire.Become(quantity.KindUser); err != nil {
			return err
		}
		return d.Fire.SetValue(receptor.DefaultID, 2e-4)
	}))
	assert.Equal(t, quantity.KindUser, d.Fire.Kind())
	assert.Equal(t, "/yr", d.Fire.Unit().WireName)
	// risk still points at the same handle
	assert.InDelta(t, 6e-5, valueOf(t, ws, "Individual risk", receptor.DefaultID), 1e-12)

	require.NoError(t, ws.Update(func() error {
		return d.Fire.Become(quantity.KindCalc)
	}))
	assert.InDelta(t, 3e-5, valueOf(t, ws, "Individual risk", receptor.DefaultID), 1e-12)
}

func TestDocumentRoundTrip(t *testing.T) {
	d := testkit.MustDemo(nil)
	doc := d.Workspace.Document()
	assert.Equal(t, "demo", doc.Name)
	assert.Len(t, doc.Receptors, 3)
	assert.Len(t, doc.Constants, 1)
	assert.Len(t, doc.Tables, 1)
	assert.Len(t, doc.Quantities, 6)

	ws, err := app.LoadWorkspace(testkit.NewEnv(nil), doc, quietLog())
	require.NoError(t, err)

	for _, name := range []string{"Fire frequency", "Fatality probability", "Individual risk"} {
		for _, sc := range []core.ReceptorID{receptor.DefaultID, testkit.Public} {
			want := valueOf(t, d.Workspace, name, sc)
			assert.InDelta(t, want, valueOf(t, ws, name, sc), 1e-15, "%s/%s", name, sc)
		}
	}
	assert.Equal(t, doc, ws.Document())
}

func TestLoadForwardReferences(t *testing.T) {
	doc := testkit.MustDemo(nil).Workspace.Document()
	// dependents first
	for i, j := 0, len(doc.Quantities)-1; i < j; i, j = i+1, j-1 {
		doc.Quantities[i], doc.Quantities[j] = doc.Quantities[j], doc.Quantities[i]
	}

	ws, err := app.LoadWorkspace(testkit.NewEnv(nil), doc, quietLog())
	require.NoError(t, err)
	assert.Equal(t, "Individual risk", ws.Quantities()[0].Name)
	assert.InDelta(t, 3e-5, valueOf(t, ws, "Individual risk", receptor.DefaultID), 1e-12)
}

func TestLoadErrors(t *testing.T) {
	doc := testkit.MustDemo(nil).Workspace.Document()
	doc.Quantities[2].Formula.Operands[0].QuantityID = "nowhere"
	_, err := app.LoadWorkspace(testkit.NewEnv(nil), doc, quietLog())
	assert.ErrorIs(t, err, core.ErrQuantityNotFound)
	assert.ErrorContains(t, err, "Fire frequency")

	doc = testkit.MustDemo(nil).Workspace.Document()
	doc.Quantities = append(doc.Quantities, doc.Quantities[0])
	_, err = app.LoadWorkspace(testkit.NewEnv(nil), doc, quietLog())
	assert.ErrorIs(t, err, core.ErrDuplicate)

	doc = testkit.MustDemo(nil).Workspace.Document()
	doc.Quantities[0].ID = ""
	_, err = app.LoadWorkspace(testkit.NewEnv(nil), doc, quietLog())
	assert.ErrorIs(t, err, core.ErrContract)
}

func TestWorkspaceFileRoundTrip(t *testing.T) {
	doc := testkit.MustDemo(nil).Workspace.Document()
	path := filepath.Join(t.TempDir(), "demo.json")
	require.NoError(t, app.WriteWorkspaceFile(path, doc))

	back, err := app.ReadWorkspaceFile(path)
	require.NoError(t, err)
	assert.Equal(t, doc, back)

	_, err = app.ReadWorkspaceFile(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}

type mockStore struct{ mock.Mock }

func (m *mockStore) Save(ctx context.Context, doc *quantity.Document) error {
	return m.Called(ctx, doc).Error(0)
}

func (m *mockStore) Load(ctx context.Context, name string) (*quantity.Document, error) {
	args := m.Called(ctx, name)
	doc, _ := args.Get(0).(*quantity.Document)
	return doc, args.Error(1)
}

func (m *mockStore) List(ctx context.Context) ([]ports.WorkspaceSummary, error) {
	args := m.Called(ctx)
	out, _ := args.Get(0).([]ports.WorkspaceSummary)
	return out, args.Error(1)
}

func (m *mockStore) Delete(ctx context.Context, name string) error {
	return m.Called(ctx, name).Error(0)
}

func (m *mockStore) Close() error { return nil }

func TestStoreServiceWithMock(t *testing.T) {
	ctx := context.Background()
	d := testkit.MustDemo(nil)
	store := &mockStore{}
	svc := app.NewStoreService(store, quietLog())

	store.On("Save", ctx, mock.MatchedBy(func(doc *quantity.Document) bool {
		return doc.Name == "demo" && len(doc.Quantities) == 6
	})).Return(nil).Once()
	require.NoError(t, svc.Save(ctx, d.Workspace))

	store.On("Load", ctx, "demo").Return(d.Workspace.Document(), nil).Once()
	ws, err := svc.Open(ctx, "demo", testkit.NewEnv(nil))
	require.NoError(t, err)
	assert.Len(t, ws.Quantities(), 6)

	boom := errors.New("connection reset")
	store.On("Load", ctx, "gone").Return(nil, boom).Once()
	_, err = svc.Open(ctx, "gone", testkit.NewEnv(nil))
	assert.ErrorIs(t, err, boom)

	store.AssertExpectations(t)
}

func TestStoreServiceWithSQLite(t *testing.T) {
	ctx := context.Background()
	store, err := sqlite.Open(ctx, filepath.Join(t.TempDir(), "ws.db"), quietLog())
	require.NoError(t, err)
	defer store.Close()
	svc := app.NewStoreService(store, quietLog())

	d := testkit.MustDemo(nil)
	require.NoError(t, svc.Save(ctx, d.Workspace))

	list, err := svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, 6, list[0].Quantities)

	ws, err := svc.Open(ctx, "demo", testkit.NewEnv(nil))
	require.NoError(t, err)
	assert.InDelta(t, 3e-5, valueOf(t, ws, "Individual risk", receptor.DefaultID), 1e-12)
	assert.InDelta(t, 5e-5, valueOf(t, ws, "Fire frequency", testkit.Public), 1e-12)

	require.NoError(t, svc.Delete(ctx, "demo"))
}

type fakeSource struct {
	rec *quantity.TableRecord
	err error
}

func (f fakeSource) ReadTable(context.Context, ports.TableImport) (*quantity.TableRecord, error) {
	return f.rec, f.err
}

func TestImportTable(t *testing.T) {
	d := testkit.MustDemo(nil)
	rec := d.FatalityTable.Encode()
	rec.ID = core.NewTableID()
	rec.Name = "Imported"

	tbl, err := d.Workspace.ImportTable(context.Background(), fakeSource{rec: &rec}, ports.TableImport{Path: "fatality.csv"})
	require.NoError(t, err)
	assert.Equal(t, "Imported", tbl.Name)
	assert.Len(t, d.Workspace.Tables(), 2)

	rec.Dimensions[0].Unit = "parsec"
	_, err = d.Workspace.ImportTable(context.Background(), fakeSource{rec: &rec}, ports.TableImport{Path: "bad.csv"})
	assert.ErrorIs(t, err, core.ErrUnitNotFound)

	_, err = d.Workspace.ImportTable(context.Background(), fakeSource{err: errors.New("no such file")}, ports.TableImport{})
	assert.ErrorContains(t, err, "no such file")
}
