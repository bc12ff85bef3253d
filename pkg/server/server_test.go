package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/skyqueue/obs-scheduler/pkg/core/model"
	"github.com/skyqueue/obs-scheduler/pkg/core/priority"
	"github.com/skyqueue/obs-scheduler/pkg/db"
	"github.com/skyqueue/obs-scheduler/pkg/metrics"
)

func testServer(t *testing.T, store db.Database) *Server {
	t.Helper()
	table, err := priority.NewTable(priority.DefaultSpreadConfig())
	require.NoError(t, err)

	return New(Options{
		Database:       store,
		Table:          table,
		Metrics:        metrics.NewRecorder(),
		Logger:         zap.NewNop(),
		TimeslotLength: 600,
	})
}

func seedObservations() []db.Observation {
	return []db.Observation{
		{ID: "obs-band3", Band: "3", AllocatedTime: 480, ObsTime: 300, ValidSiteTimes: map[int][]string{0: {"GN"}}},
		{ID: "obs-band1", Band: "1", AllocatedTime: 300, ObsTime: 250, ValidSiteTimes: map[int][]string{0: {"GS"}}},
	}
}

func do(t *testing.T, s *Server, method, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	return rec
}

func TestHealthz(t *testing.T) {
	s := testServer(t, db.NewMemoryDB(nil))

	rec := do(t, s, http.MethodGet, "/healthz")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestCurves(t *testing.T) {
	s := testServer(t, db.NewMemoryDB(nil))

	rec := do(t, s, http.MethodGet, "/curves")
	require.Equal(t, http.StatusOK, rec.Code)

	var rows []CurveRow
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &rows))
	require.Len(t, rows, 4)

	byBand := map[model.Band]CurveRow{}
	for _, row := range rows {
		byBand[row.Band] = row
	}
	assert.InDelta(t, 36.6, byBand[model.Band1].MaxPriority, 1e-9)
	assert.InDelta(t, 7.8125, byBand[model.Band3].M1, 1e-9)
	assert.Equal(t, 0.0, byBand[model.Band4].MaxPriority)
}

func TestObservations(t *testing.T) {
	s := testServer(t, db.NewMemoryDB(seedObservations()))

	rec := do(t, s, http.MethodGet, "/observations")
	require.Equal(t, http.StatusOK, rec.Code)

	var got []db.Observation
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Len(t, got, 2)
	assert.Equal(t, "obs-band3", got[0].ID)
	assert.Equal(t, []string{"GS"}, got[1].ValidSiteTimes[0])
}

func TestTickThenPriorities(t *testing.T) {
	store := db.NewMemoryDB(seedObservations())
	s := testServer(t, store)

	rec := do(t, s, http.MethodPost, "/ticks/0")
	require.Equal(t, http.StatusOK, rec.Code)

	var tick TickResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &tick))
	require.Len(t, tick.Ranked, 2)
	assert.Equal(t, "obs-band1", tick.Ranked[0].ObservationID)
	assert.Equal(t, "GS", tick.Ranked[0].Site)
	assert.Equal(t, "GN", tick.Ranked[1].Site)
	assert.Greater(t, tick.Objective, 0.0)

	rec = do(t, s, http.MethodGet, "/runs/"+tick.RunID+"/priorities")
	require.Equal(t, http.StatusOK, rec.Code)

	var records []db.PriorityRecord
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &records))
	require.Len(t, records, 2)
	assert.Equal(t, 1, records[0].Rank)

	observations, err := store.GetObservations(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 600.0, observations[0].UsedTime)
	assert.Equal(t, 600.0, observations[1].UsedTime)
}

func TestTick_DryRun(t *testing.T) {
	store := db.NewMemoryDB(seedObservations())
	s := testServer(t, store)

	rec := do(t, s, http.MethodPost, "/ticks/0?dryRun=true")
	require.Equal(t, http.StatusOK, rec.Code)

	observations, err := store.GetObservations(context.Background())
	require.NoError(t, err)
	for _, o := range observations {
		assert.Equal(t, 0.0, o.UsedTime)
	}
}

func TestTick_RateLimited(t *testing.T) {
	table, err := priority.NewTable(priority.DefaultSpreadConfig())
	require.NoError(t, err)

	s := New(Options{
		Database:       db.NewMemoryDB(seedObservations()),
		Table:          table,
		TimeslotLength: 600,
		TickRate:       0.001,
		TickBurst:      1,
	})

	assert.Equal(t, http.StatusOK, do(t, s, http.MethodPost, "/ticks/0").Code)

	rec := do(t, s, http.MethodPost, "/ticks/0")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.JSONEq(t, `{"error":"too many tick requests"}`, rec.Body.String())
}

func TestTick_BadTimeslot(t *testing.T) {
	s := testServer(t, db.NewMemoryDB(nil))

	for _, path := range []string{"/ticks/abc", "/ticks/-1"} {
		rec := do(t, s, http.MethodPost, path)
		assert.Equal(t, http.StatusBadRequest, rec.Code, path)
	}
}

func TestPriorities_UnknownRun(t *testing.T) {
	s := testServer(t, db.NewMemoryDB(nil))

	rec := do(t, s, http.MethodGet, "/runs/missing/priorities")

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"error":"run not found"}`, rec.Body.String())
}

type brokenDB struct {
	*db.MemoryDB
}

func (b *brokenDB) GetObservations(ctx context.Context) ([]db.Observation, error) {
	return nil, errors.New("connection refused")
}

func TestObservations_StoreError(t *testing.T) {
	s := testServer(t, &brokenDB{MemoryDB: db.NewMemoryDB(nil)})

	rec := do(t, s, http.MethodGet, "/observations")

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "connection refused")
}

func TestTick_InvalidStoredObservation(t *testing.T) {
	tests := []struct {
		name   string
		record db.Observation
	}{
		{name: "zero allocated time", record: db.Observation{ID: "bad", Band: "2"}},
		{name: "unknown band", record: db.Observation{ID: "bad", Band: "7", AllocatedTime: 100}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := testServer(t, db.NewMemoryDB(append(seedObservations(), tt.record)))

			rec := do(t, s, http.MethodPost, "/ticks/0")

			assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
			assert.Contains(t, rec.Body.String(), "observation bad")
		})
	}
}

func TestTick_StoreError(t *testing.T) {
	s := testServer(t, &brokenDB{MemoryDB: db.NewMemoryDB(nil)})

	rec := do(t, s, http.MethodPost, "/ticks/0")

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"error":"tick failed"}`, rec.Body.String())
}

func TestMetricsEndpoint(t *testing.T) {
	s := testServer(t, db.NewMemoryDB(seedObservations()))

	require.Equal(t, http.StatusOK, do(t, s, http.MethodPost, "/ticks/0").Code)

	rec := do(t, s, http.MethodGet, "/metrics")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "obs_scheduler_ticks_total"))
}
