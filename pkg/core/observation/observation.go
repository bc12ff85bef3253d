package observation

import "github.com/skyqueue/obs-scheduler/pkg/core/model"

// Index identifies an observation within a Set. It is the insertion position.
type Index int

// Observation is one scheduling unit
type Observation struct {
	Band model.Band

	// AllocatedTime is the total time budget; always positive
	AllocatedTime float64

	// ObsTime is the nominal duration of a single visit
	ObsTime float64

	// UsedTime is the time already consumed in earlier ticks
	UsedTime float64

	// Completion is the completion fraction as of the last tick, in [0, 1]
	Completion float64

	// Priority is the score as of the last tick
	Priority float64

	// ValidSiteTimes maps a timeslot to the sites the observation can run at
	ValidSiteTimes model.ValidSiteTimes
}

// completion assumes a scheduled observation consumes its whole ObsTime in one go
func (o *Observation) completion() float64 {
	c := (o.UsedTime + o.ObsTime) / o.AllocatedTime
	if c > 1.0 {
		c = 1.0
	}
	return c
}

// AddOption customises an observation as it is added
type AddOption func(*Observation)

// WithUsedTime restores time consumed before this set was built
func WithUsedTime(usedTime float64) AddOption {
	return func(o *Observation) {
		o.UsedTime = usedTime
	}
}
