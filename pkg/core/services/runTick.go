package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/skyqueue/obs-scheduler/pkg/core/model"
	"github.com/skyqueue/obs-scheduler/pkg/core/observation"
	"github.com/skyqueue/obs-scheduler/pkg/core/priority"
	"github.com/skyqueue/obs-scheduler/pkg/core/scheduler"
	"github.com/skyqueue/obs-scheduler/pkg/db"
	"github.com/skyqueue/obs-scheduler/pkg/metrics"
)

// TickParams holds the dependencies and inputs of a single tick
type TickParams struct {
	Database db.Database

	// Optimizer plans the timeslot; defaults to the matching optimizer
	Optimizer scheduler.Optimizer

	// Table scores observations; defaults to the process-wide table
	Table *priority.Table

	// Metrics is optional
	Metrics *metrics.Recorder

	Logger *zap.Logger

	// RunID groups the records of one invocation; generated when empty
	RunID string

	Timeslot int

	// TimeslotLength is the time, in seconds, credited to each assigned observation
	TimeslotLength float64

	// DryRun skips recording used time
	DryRun bool

	// Now is the clock used for record timestamps; defaults to time.Now
	Now func() time.Time
}

// RankedObservation is one line of a tick's ranking
type RankedObservation struct {
	Rank          int
	Index         observation.Index
	ObservationID string
	Band          model.Band
	Completion    float64
	Priority      float64

	// Site is the assigned site, empty if the observation was not scheduled
	Site string

	// Description is the formatted progress line for the observation
	Description string
}

// TickResult is the outcome of RunTick
type TickResult struct {
	RunID    string
	Timeslot int
	Ranked   []RankedObservation
	Plan     *scheduler.Plan
}

// RunTick scores every stored observation for a timeslot, plans the timeslot,
// persists the ranking and, unless DryRun is set, credits the timeslot length to
// each scheduled observation.
func RunTick(ctx context.Context, params TickParams) (*TickResult, error) {
	if params.Database == nil {
		return nil, fmt.Errorf("database is required")
	}
	if params.Timeslot < 0 {
		return nil, fmt.Errorf("timeslot must not be negative, got %d", params.Timeslot)
	}
	if params.TimeslotLength <= 0 {
		return nil, fmt.Errorf("timeslot length must be positive, got %v", params.TimeslotLength)
	}

	logger := params.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	optimizer := params.Optimizer
	if optimizer == nil {
		optimizer = scheduler.NewMatchingOptimizer()
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	runID := params.RunID
	if runID == "" {
		runID = uuid.New().String()
	}

	logger.Debug("Running tick", zap.String("run_id", runID), zap.Int("timeslot", params.Timeslot))

	records, err := params.Database.GetObservations(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch observations: %w", err)
	}
	logger.Debug("Fetched observations", zap.Int("count", len(records)))

	set, ids, err := BuildObservationSet(records, params.Table)
	if err != nil {
		return nil, fmt.Errorf("failed to build observation set: %w", err)
	}

	started := time.Now()
	ordering := set.Tick(params.Timeslot)

	plan, err := optimizer.Plan(set, ordering)
	if err != nil {
		return nil, fmt.Errorf("failed to plan timeslot %d: %w", params.Timeslot, err)
	}
	elapsed := time.Since(started)

	logger.Debug("Timeslot planned",
		zap.Int("timeslot", params.Timeslot),
		zap.Int("assignments", len(plan.Assignments)),
		zap.Float64("objective", plan.Objective),
		zap.Duration("elapsed", elapsed))

	result := &TickResult{
		RunID:    runID,
		Timeslot: params.Timeslot,
		Plan:     plan,
		Ranked:   make([]RankedObservation, 0, len(ordering)),
	}

	recordedAt := now().UTC().Format(time.RFC3339)
	priorityRecords := make([]db.PriorityRecord, 0, len(ordering))

	for rank, idx := range ordering {
		site := ""
		if s, ok := plan.SiteFor(idx); ok {
			site = s.String()
		}

		ranked := RankedObservation{
			Rank:          rank + 1,
			Index:         idx,
			ObservationID: ids[idx],
			Band:          set.BandOf(idx),
			Completion:    set.CompletionOf(idx),
			Priority:      set.PriorityOf(idx),
			Site:          site,
			Description:   set.Describe(idx),
		}
		result.Ranked = append(result.Ranked, ranked)

		priorityRecords = append(priorityRecords, db.PriorityRecord{
			ID:            uuid.New().String(),
			RunID:         runID,
			ObservationID: ranked.ObservationID,
			Timeslot:      params.Timeslot,
			Rank:          ranked.Rank,
			Completion:    ranked.Completion,
			Priority:      ranked.Priority,
			Site:          site,
			RecordedAt:    recordedAt,
		})
	}

	var usage map[string]float64
	if params.DryRun {
		logger.Info("Dry run: used time not recorded", zap.Int("timeslot", params.Timeslot))
	} else {
		usage = make(map[string]float64, len(plan.Assignments))
		for _, a := range plan.Assignments {
			usage[ids[a.Index]] += params.TimeslotLength
		}
	}

	if err := params.Database.RecordTick(ctx, priorityRecords, usage); err != nil {
		return nil, fmt.Errorf("failed to record tick: %w", err)
	}

	if params.Metrics != nil {
		params.Metrics.ObserveTick(set, plan, elapsed)
	}

	logger.Info("Tick complete",
		zap.String("run_id", runID),
		zap.Int("timeslot", params.Timeslot),
		zap.Int("observations", set.Len()),
		zap.Int("scheduled", len(plan.Assignments)))

	return result, nil
}
