package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"phaengine/app"
	"phaengine/domain/core"
	"phaengine/domain/receptor"
	"phaengine/internal"
	"phaengine/internal/testkit"
	"phaengine/ports"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockReader struct{ mock.Mock }

func (m *mockReader) Receptors(ctx context.Context) ([]receptor.Receptor, error) {
	args := m.Called(ctx)
	out, _ := args.Get(0).([]receptor.Receptor)
	return out, args.Error(1)
}

func (m *mockReader) ListQuantities(ctx context.Context) ([]ports.QuantitySummary, error) {
	args := m.Called(ctx)
	out, _ := args.Get(0).([]ports.QuantitySummary)
	return out, args.Error(1)
}

func (m *mockReader) GetQuantity(ctx context.Context, id core.QuantityID) (*ports.QuantityDetail, error) {
	args := m.Called(ctx, id)
	out, _ := args.Get(0).(*ports.QuantityDetail)
	return out, args.Error(1)
}

func (m *mockReader) Evaluate(ctx context.Context, id core.QuantityID, scenario core.ReceptorID) (*ports.ScenarioValue, error) {
	args := m.Called(ctx, id, scenario)
	out, _ := args.Get(0).(*ports.ScenarioValue)
	return out, args.Error(1)
}

func (m *mockReader) Snapshot(ctx context.Context) (*ports.Snapshot, error) {
	args := m.Called(ctx)
	out, _ := args.Get(0).(*ports.Snapshot)
	return out, args.Error(1)
}

func (m *mockReader) Units(ctx context.Context) ([]ports.UnitSummary, error) {
	args := m.Called(ctx)
	out, _ := args.Get(0).([]ports.UnitSummary)
	return out, args.Error(1)
}

func (m *mockReader) Convert(ctx context.Context, value float64, from, to string) (float64, error) {
	args := m.Called(ctx, value, from, to)
	return args.Get(0).(float64), args.Error(1)
}

func quietLog() *internal.Logger { return internal.NewLogger(internal.LogLevelError) }

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func demoServer(t *testing.T) (*testkit.Demo, *Server, *Metrics) {
	t.Helper()
	d := testkit.MustDemo(nil)
	m := NewMetrics()
	return d, NewServer(app.NewReaderService(d.Workspace, app.DefaultDisplayOptions()), m, quietLog()), m
}

func TestHealthz(t *testing.T) {
	_, s, _ := demoServer(t)
	rec := get(t, s.Handler(), "/healthz")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestValueEndpoint(t *testing.T) {
	d, s, _ := demoServer(t)
	rec := get(t, s.Handler(), fmt.Sprintf("/api/quantities/%s/value?scenario=%s", d.Fire.ID, testkit.Public))
	require.Equal(t, http.StatusOK, rec.Code)

	var v ports.ScenarioValue
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v))
	assert.Equal(t, core.ReceptorID(testkit.Public), v.Scenario)
	require.NotNil(t, v.Value)
	assert.InDelta(t, 5e-5, *v.Value, 1e-12)
	assert.True(t, v.FellBack)
}

func TestQuantityEndpoints(t *testing.T) {
	d, s, _ := demoServer(t)

	rec := get(t, s.Handler(), "/api/quantities")
	require.Equal(t, http.StatusOK, rec.Code)
	var list []ports.QuantitySummary
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	assert.Len(t, list, 6)

	rec = get(t, s.Handler(), "/api/quantities/"+d.Risk.ID.String())
	require.Equal(t, http.StatusOK, rec.Code)
	var detail ports.QuantityDetail
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &detail))
	assert.Equal(t, "Individual risk", detail.Name)
	assert.Len(t, detail.Values, 3)

	rec = get(t, s.Handler(), "/api/quantities/nope")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "error")
}

func TestSnapshotAndReport(t *testing.T) {
	_, s, _ := demoServer(t)

	rec := get(t, s.Handler(), "/api/snapshot")
	require.Equal(t, http.StatusOK, rec.Code)
	var snap ports.Snapshot
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &snap))
	assert.Equal(t, "demo", snap.Workspace)
	assert.Len(t, snap.Rows, 6)

	rec = get(t, s.Handler(), "/report")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, rec.Body.String(), "Individual risk")
}

func TestConvertEndpoint(t *testing.T) {
	_, s, _ := demoServer(t)

	rec := get(t, s.Handler(), "/api/convert?value=2&from=day&to=hr")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"value":48,"unit":"hr"}`, rec.Body.String())

	rec = get(t, s.Handler(), "/api/convert?value=x&from=day&to=hr")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = get(t, s.Handler(), "/api/convert?value=1&from=day")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = get(t, s.Handler(), "/api/convert?value=1&from=day&to=/yr")
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = get(t, s.Handler(), "/api/convert?value=1&from=cubit&to=hr")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestMetricsCountProblems(t *testing.T) {
	d, s, _ := demoServer(t)
	require.NoError(t, d.Workspace.Update(func() error {
		return d.Leak.Unset(receptor.DefaultID)
	}))

	rec := get(t, s.Handler(), "/api/quantities/"+d.Risk.ID.String()+"/value")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"problem":"Undefined"`)

	rec = get(t, s.Handler(), "/metrics")
	require.Equal(t, http.StatusOK, rec.Code)
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	text := string(body)
	assert.Contains(t, text, `phaengine_problems_total{problem="Undefined"} 1`)
	assert.Contains(t, text, `phaengine_evaluations_total{endpoint="value"} 1`)
	assert.True(t, strings.Contains(text, `route="/api/quantities/{id}/value"`))
}

func TestReaderErrorsMapToStatus(t *testing.T) {
	m := &mockReader{}
	s := NewServer(m, nil, quietLog())

	m.On("Receptors", mock.Anything).Return(nil, errors.New("disk on fire")).Once()
	m.On("Units", mock.Anything).Return(nil, fmt.Errorf("wrapped: %w", core.ErrContract)).Once()
	m.On("Evaluate", mock.Anything, core.QuantityID("q1"), core.ReceptorID("ghost")).
		Return(nil, fmt.Errorf("%w: ghost", core.ErrReceptorNotFound)).Once()

	assert.Equal(t, http.StatusInternalServerError, get(t, s.Handler(), "/api/receptors").Code)
	assert.Equal(t, http.StatusBadRequest, get(t, s.Handler(), "/api/units").Code)
	assert.Equal(t, http.StatusNotFound, get(t, s.Handler(), "/api/quantities/q1/value?scenario=ghost").Code)

	// metrics disabled
	assert.Equal(t, http.StatusNotFound, get(t, s.Handler(), "/metrics").Code)
	m.AssertExpectations(t)
}
