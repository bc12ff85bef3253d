package db

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryDB_SeedIsCopied(t *testing.T) {
	seed := []Observation{
		{ID: "obs-1", Band: "1", AllocatedTime: 300, ObsTime: 250, ValidSiteTimes: map[int][]string{0: {"GN"}}},
	}
	m := NewMemoryDB(seed)

	seed[0].ValidSiteTimes[0][0] = "GS"

	got, err := m.GetObservations(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, []string{"GN"}, got[0].ValidSiteTimes[0])
}

func TestMemoryDB_InsertObservations(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryDB([]Observation{{ID: "obs-1", Band: "3", AllocatedTime: 480, ObsTime: 300}})

	err := m.InsertObservations(ctx, []Observation{
		{ID: "obs-2", Band: "2", AllocatedTime: 200, ObsTime: 150},
	})
	require.NoError(t, err)

	got, err := m.GetObservations(ctx)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "obs-1", got[0].ID)
	assert.Equal(t, "obs-2", got[1].ID)
}

func TestMemoryDB_InsertRejectsDuplicatesAtomically(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryDB([]Observation{{ID: "obs-1"}})

	err := m.InsertObservations(ctx, []Observation{{ID: "obs-2"}, {ID: "obs-1"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate id obs-1")

	err = m.InsertObservations(ctx, []Observation{{ID: ""}})
	assert.Error(t, err)

	got, err := m.GetObservations(ctx)
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestMemoryDB_AddUsedTime(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryDB([]Observation{{ID: "obs-1", UsedTime: 100}})

	require.NoError(t, m.AddUsedTime(ctx, "obs-1", 600))
	require.NoError(t, m.AddUsedTime(ctx, "obs-1", 600))

	got, err := m.GetObservations(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1300.0, got[0].UsedTime)

	err = m.AddUsedTime(ctx, "missing", 1)
	assert.Error(t, err)
}

func TestMemoryDB_PriorityRecordsByRun(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryDB(nil)

	require.NoError(t, m.InsertPriorityRecords(ctx, []PriorityRecord{
		{ID: "r1", RunID: "run-a", Rank: 1},
		{ID: "r2", RunID: "run-b", Rank: 1},
		{ID: "r3", RunID: "run-a", Rank: 2},
	}))

	got, err := m.GetPriorityRecords(ctx, "run-a")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "r1", got[0].ID)
	assert.Equal(t, "r3", got[1].ID)

	got, err = m.GetPriorityRecords(ctx, "run-c")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestMemoryDB_RecordTick(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryDB([]Observation{{ID: "obs-1", UsedTime: 100}, {ID: "obs-2"}})

	err := m.RecordTick(ctx,
		[]PriorityRecord{{ID: "rec-1", RunID: "run-1", ObservationID: "obs-1", Rank: 1}},
		map[string]float64{"obs-1": 600})
	require.NoError(t, err)

	got, err := m.GetObservations(ctx)
	require.NoError(t, err)
	assert.Equal(t, 700.0, got[0].UsedTime)
	assert.Equal(t, 0.0, got[1].UsedTime)

	records, err := m.GetPriorityRecords(ctx, "run-1")
	require.NoError(t, err)
	assert.Len(t, records, 1)
}

func TestMemoryDB_RecordTickUnknownObservationChangesNothing(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryDB([]Observation{{ID: "obs-1"}, {ID: "obs-2"}})

	err := m.RecordTick(ctx,
		[]PriorityRecord{{ID: "rec-1", RunID: "run-1"}, {ID: "rec-2", RunID: "run-1"}},
		map[string]float64{"obs-1": 600, "obs-gone": 600, "obs-2": 600})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "observation obs-gone not found")

	got, err := m.GetObservations(ctx)
	require.NoError(t, err)
	for _, o := range got {
		assert.Equal(t, 0.0, o.UsedTime, o.ID)
	}

	records, err := m.GetPriorityRecords(ctx, "run-1")
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestLoadObservationsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "observations.yaml")
	content := `
observations:
  - id: "obs-1"
    band: "3"
    allocatedTime: 480
    obsTime: 300
    validSiteTimes:
      0: ["GN"]
      1: ["GN", "GS"]
  - id: "obs-2"
    band: "1"
    allocatedTime: 300
    obsTime: 250
    usedTime: 20
    validSiteTimes:
      0: ["GS"]
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	got, err := LoadObservationsFile(path)
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, "3", got[0].Band)
	assert.Equal(t, 480.0, got[0].AllocatedTime)
	assert.Equal(t, []string{"GN", "GS"}, got[0].ValidSiteTimes[1])
	assert.Equal(t, 20.0, got[1].UsedTime)
}

func TestLoadObservationsFile_Errors(t *testing.T) {
	_, err := LoadObservationsFile("/nonexistent/observations.yaml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read observations file")

	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("observations: [\n  - id: x\n bad"), 0644))

	_, err = LoadObservationsFile(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse observations file")
}
