package db

import (
	"context"
	"fmt"
	"slices"
	"sync"
)

// MemoryDB keeps observations and priority records in process memory.
// It is used when no database URL is configured and in tests.
type MemoryDB struct {
	mu           sync.Mutex
	observations []Observation
	records      []PriorityRecord
}

// NewMemoryDB creates a store seeded with the given observations
func NewMemoryDB(seed []Observation) *MemoryDB {
	m := &MemoryDB{}
	for _, o := range seed {
		m.observations = append(m.observations, cloneObservation(o))
	}
	return m
}

// GetObservations returns all observations in insertion order
func (m *MemoryDB) GetObservations(ctx context.Context) ([]Observation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]Observation, len(m.observations))
	for i, o := range m.observations {
		out[i] = cloneObservation(o)
	}
	return out, nil
}

// InsertObservations appends observations; IDs must be unique
func (m *MemoryDB) InsertObservations(ctx context.Context, observations []Observation) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	seen := make(map[string]bool, len(m.observations)+len(observations))
	for _, o := range m.observations {
		seen[o.ID] = true
	}
	for _, o := range observations {
		if o.ID == "" {
			return fmt.Errorf("failed to insert observation: empty id")
		}
		if seen[o.ID] {
			return fmt.Errorf("failed to insert observation: duplicate id %s", o.ID)
		}
		seen[o.ID] = true
	}

	for _, o := range observations {
		m.observations = append(m.observations, cloneObservation(o))
	}
	return nil
}

// AddUsedTime adds consumed time to an observation
func (m *MemoryDB) AddUsedTime(ctx context.Context, observationID string, seconds float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i := range m.observations {
		if m.observations[i].ID == observationID {
			m.observations[i].UsedTime += seconds
			return nil
		}
	}
	return fmt.Errorf("observation %s not found", observationID)
}

// InsertPriorityRecords stores the ranking of a tick
func (m *MemoryDB) InsertPriorityRecords(ctx context.Context, records []PriorityRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.records = append(m.records, records...)
	return nil
}

// RecordTick appends the records and credits usage under one lock.
// Every usage ID is checked before anything changes.
func (m *MemoryDB) RecordTick(ctx context.Context, records []PriorityRecord, usage map[string]float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	positions := make(map[string]int, len(m.observations))
	for i, o := range m.observations {
		positions[o.ID] = i
	}
	for id := range usage {
		if _, ok := positions[id]; !ok {
			return fmt.Errorf("observation %s not found", id)
		}
	}

	for id, seconds := range usage {
		m.observations[positions[id]].UsedTime += seconds
	}
	m.records = append(m.records, records...)
	return nil
}

// GetPriorityRecords returns the records of a run in insertion order
func (m *MemoryDB) GetPriorityRecords(ctx context.Context, runID string) ([]PriorityRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []PriorityRecord
	for _, r := range m.records {
		if r.RunID == runID {
			out = append(out, r)
		}
	}
	return out, nil
}

func cloneObservation(o Observation) Observation {
	if o.ValidSiteTimes != nil {
		sites := make(map[int][]string, len(o.ValidSiteTimes))
		for t, names := range o.ValidSiteTimes {
			sites[t] = slices.Clone(names)
		}
		o.ValidSiteTimes = sites
	}
	return o
}
