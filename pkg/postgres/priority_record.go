package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/skyqueue/obs-scheduler/pkg/db"
)

// InsertPriorityRecords stores the ranking of a tick in one transaction
func (d *DB) InsertPriorityRecords(ctx context.Context, records []db.PriorityRecord) error {
	return d.RecordTick(ctx, records, nil)
}

// RecordTick stores the ranking of a tick and credits used time in one transaction
func (d *DB) RecordTick(ctx context.Context, records []db.PriorityRecord, usage map[string]float64) error {
	if len(records) == 0 && len(usage) == 0 {
		return nil
	}

	tx, err := d.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	for id, seconds := range usage {
		tag, err := tx.Exec(ctx, `
			UPDATE observation SET used_time = used_time + $2 WHERE id = $1
		`, id, seconds)
		if err != nil {
			return fmt.Errorf("failed to update used time: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return fmt.Errorf("observation %s not found", id)
		}
	}

	for _, r := range records {
		recordedAt, err := time.Parse(time.RFC3339, r.RecordedAt)
		if err != nil {
			return fmt.Errorf("invalid recorded_at for record %s: %w", r.ID, err)
		}

		var site *string
		if r.Site != "" {
			site = &r.Site
		}

		_, err = tx.Exec(ctx, `
			INSERT INTO priority_record (id, run_id, observation_id, timeslot, rank, completion, priority, site, recorded_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		`, r.ID, r.RunID, r.ObservationID, r.Timeslot, r.Rank, r.Completion, r.Priority, site, recordedAt.UTC())
		if err != nil {
			return fmt.Errorf("failed to insert priority record: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// GetPriorityRecords retrieves the records of a run ordered by timeslot and rank
func (d *DB) GetPriorityRecords(ctx context.Context, runID string) ([]db.PriorityRecord, error) {
	rows, err := d.pool.Query(ctx, `
		SELECT id, run_id, observation_id, timeslot, rank, completion, priority, site, recorded_at
		FROM priority_record
		WHERE run_id = $1
		ORDER BY timeslot, rank
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query priority records: %w", err)
	}
	defer rows.Close()

	var records []db.PriorityRecord
	for rows.Next() {
		var r db.PriorityRecord
		var site *string
		var recordedAt time.Time
		if err := rows.Scan(&r.ID, &r.RunID, &r.ObservationID, &r.Timeslot, &r.Rank, &r.Completion, &r.Priority, &site, &recordedAt); err != nil {
			return nil, fmt.Errorf("failed to scan priority record: %w", err)
		}
		if site != nil {
			r.Site = *site
		}
		r.RecordedAt = recordedAt.UTC().Format(time.RFC3339)
		records = append(records, r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating priority records: %w", err)
	}

	return records, nil
}
