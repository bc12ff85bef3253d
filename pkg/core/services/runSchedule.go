package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ScheduleParams holds the inputs of a multi-timeslot run
type ScheduleParams struct {
	// Tick supplies the shared tick settings; Timeslot and RunID are overwritten
	Tick TickParams

	// TimeslotStarts are the start times of the timeslots; index i is timeslot i
	TimeslotStarts []time.Time
}

// ScheduleResult is the outcome of RunSchedule
type ScheduleResult struct {
	RunID  string
	Starts []time.Time
	Ticks  []*TickResult
}

// RunSchedule runs one tick per timeslot under a shared run ID.
// Observations are reloaded before every tick so used time recorded by one tick
// is reflected in the next.
func RunSchedule(ctx context.Context, params ScheduleParams) (*ScheduleResult, error) {
	if len(params.TimeslotStarts) == 0 {
		return nil, fmt.Errorf("at least one timeslot is required")
	}

	logger := params.Tick.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	runID := params.Tick.RunID
	if runID == "" {
		runID = uuid.New().String()
	}

	logger.Info("Starting schedule run",
		zap.String("run_id", runID),
		zap.Int("timeslots", len(params.TimeslotStarts)),
		zap.Time("first_start", params.TimeslotStarts[0]))

	result := &ScheduleResult{
		RunID:  runID,
		Starts: params.TimeslotStarts,
		Ticks:  make([]*TickResult, 0, len(params.TimeslotStarts)),
	}

	for timeslot := range params.TimeslotStarts {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("schedule run cancelled at timeslot %d: %w", timeslot, err)
		}

		tick := params.Tick
		tick.RunID = runID
		tick.Timeslot = timeslot

		tickResult, err := RunTick(ctx, tick)
		if err != nil {
			return nil, fmt.Errorf("timeslot %d: %w", timeslot, err)
		}
		result.Ticks = append(result.Ticks, tickResult)
	}

	return result, nil
}
