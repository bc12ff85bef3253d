package db

import "context"

// ObservationStore defines the interface for observation database operations
type ObservationStore interface {
	GetObservations(ctx context.Context) ([]Observation, error)
	InsertObservations(ctx context.Context, observations []Observation) error
	AddUsedTime(ctx context.Context, observationID string, seconds float64) error
}

// PriorityStore defines the interface for tick result database operations
type PriorityStore interface {
	InsertPriorityRecords(ctx context.Context, records []PriorityRecord) error
	GetPriorityRecords(ctx context.Context, runID string) ([]PriorityRecord, error)

	// RecordTick stores a tick's ranking and adds usage (seconds per observation ID)
	// to used time as one unit: on error nothing is applied.
	RecordTick(ctx context.Context, records []PriorityRecord, usage map[string]float64) error
}

// Database defines the interface for all database operations.
// Both the in-memory MemoryDB and postgres.DB implement this interface.
type Database interface {
	ObservationStore
	PriorityStore
}
