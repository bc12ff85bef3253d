package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/skyqueue/obs-scheduler/pkg/core/priority"
	"github.com/skyqueue/obs-scheduler/pkg/db"
)

// ImportObservations validates observations and inserts them into the store.
// Observations without an ID are given a new UUID. Nothing is inserted if any
// observation is invalid.
func ImportObservations(ctx context.Context, store db.ObservationStore, table *priority.Table, logger *zap.Logger, records []db.Observation) ([]db.Observation, error) {
	if len(records) == 0 {
		return nil, fmt.Errorf("no observations to import")
	}

	prepared := make([]db.Observation, len(records))
	for i, r := range records {
		if r.ID == "" {
			r.ID = uuid.New().String()
		}
		prepared[i] = r
	}

	if _, _, err := BuildObservationSet(prepared, table); err != nil {
		return nil, fmt.Errorf("invalid observations: %w", err)
	}

	logger.Debug("Importing observations", zap.Int("count", len(prepared)))

	if err := store.InsertObservations(ctx, prepared); err != nil {
		return nil, fmt.Errorf("failed to insert observations: %w", err)
	}

	logger.Info("Observations imported", zap.Int("count", len(prepared)))

	return prepared, nil
}
