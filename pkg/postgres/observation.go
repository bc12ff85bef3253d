package postgres

import (
	"context"
	"fmt"

	"github.com/skyqueue/obs-scheduler/pkg/db"
)

// GetObservations retrieves all observations in insertion order
func (d *DB) GetObservations(ctx context.Context) ([]db.Observation, error) {
	rows, err := d.pool.Query(ctx, `
		SELECT id, band, allocated_time, obs_time, used_time, valid_site_times
		FROM observation
		ORDER BY position
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query observations: %w", err)
	}
	defer rows.Close()

	var observations []db.Observation
	for rows.Next() {
		var o db.Observation
		if err := rows.Scan(&o.ID, &o.Band, &o.AllocatedTime, &o.ObsTime, &o.UsedTime, &o.ValidSiteTimes); err != nil {
			return nil, fmt.Errorf("failed to scan observation: %w", err)
		}
		observations = append(observations, o)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating observations: %w", err)
	}

	return observations, nil
}

// InsertObservations inserts observation records in one transaction
func (d *DB) InsertObservations(ctx context.Context, observations []db.Observation) error {
	if len(observations) == 0 {
		return nil
	}

	tx, err := d.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, o := range observations {
		sites := o.ValidSiteTimes
		if sites == nil {
			sites = map[int][]string{}
		}

		_, err := tx.Exec(ctx, `
			INSERT INTO observation (id, band, allocated_time, obs_time, used_time, valid_site_times)
			VALUES ($1, $2, $3, $4, $5, $6)
		`, o.ID, o.Band, o.AllocatedTime, o.ObsTime, o.UsedTime, sites)
		if err != nil {
			return fmt.Errorf("failed to insert observation %s: %w", o.ID, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// AddUsedTime adds consumed time to an observation
func (d *DB) AddUsedTime(ctx context.Context, observationID string, seconds float64) error {
	tag, err := d.pool.Exec(ctx, `
		UPDATE observation SET used_time = used_time + $2 WHERE id = $1
	`, observationID, seconds)
	if err != nil {
		return fmt.Errorf("failed to update used time: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("observation %s not found", observationID)
	}
	return nil
}
