package observation

import (
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"

	"github.com/skyqueue/obs-scheduler/pkg/core/model"
	"github.com/skyqueue/obs-scheduler/pkg/core/priority"
)

// Set is the collection of observations being ranked.
//
// A Set has a single owner. Tick recomputes every observation before any new value
// becomes visible, so readers never see a partially updated tick.
type Set struct {
	table        *priority.Table
	observations []Observation
	timeslot     int
}

// NewSet creates an empty set scored with the given band curve table.
// A nil table uses the process-wide default.
func NewSet(table *priority.Table) *Set {
	if table == nil {
		table = priority.Default()
	}
	return &Set{table: table}
}

// Add appends an observation and returns its index.
// The set is left unchanged if the observation is invalid.
func (s *Set) Add(band model.Band, validSiteTimes model.ValidSiteTimes, allocatedTime, obsTime float64, opts ...AddOption) (Index, error) {
	obs := Observation{
		Band:           band,
		AllocatedTime:  allocatedTime,
		ObsTime:        obsTime,
		ValidSiteTimes: validSiteTimes.Clone(),
	}
	for _, opt := range opts {
		opt(&obs)
	}

	if err := validate(&obs); err != nil {
		return 0, err
	}

	s.observations = append(s.observations, obs)
	return Index(len(s.observations) - 1), nil
}

func validate(o *Observation) error {
	if !o.Band.IsValid() {
		return &InvalidObservationError{Field: "band", Value: o.Band, Reason: "unknown band"}
	}
	if o.AllocatedTime == 0 {
		return &InvalidObservationError{Field: "allocated_time", Value: o.AllocatedTime, Reason: "must not be zero"}
	}
	if o.AllocatedTime < 0 || math.IsNaN(o.AllocatedTime) || math.IsInf(o.AllocatedTime, 0) {
		return &InvalidObservationError{Field: "allocated_time", Value: o.AllocatedTime, Reason: "must be a positive number"}
	}
	if o.ObsTime < 0 || math.IsNaN(o.ObsTime) || math.IsInf(o.ObsTime, 0) {
		return &InvalidObservationError{Field: "obs_time", Value: o.ObsTime, Reason: "must be a non-negative number"}
	}
	if o.UsedTime < 0 || math.IsNaN(o.UsedTime) || math.IsInf(o.UsedTime, 0) {
		return &InvalidObservationError{Field: "used_time", Value: o.UsedTime, Reason: "must be a non-negative number"}
	}
	return nil
}

// Tick recomputes completion and priority for every observation as of timeslot and
// returns the indices ordered by descending priority. Equal priorities keep
// ascending index order.
func (s *Set) Tick(timeslot int) []Index {
	completions := make([]float64, len(s.observations))
	priorities := make([]float64, len(s.observations))

	for i := range s.observations {
		obs := &s.observations[i]

		c := obs.completion()
		if c < 0 || math.IsNaN(c) {
			panic(fmt.Sprintf("observation %d has invalid completion %v", i, c))
		}

		completions[i] = c
		priorities[i] = priority.Score(obs.Band, s.table.ParametersFor(obs.Band), c)
	}

	for i := range s.observations {
		s.observations[i].Completion = completions[i]
		s.observations[i].Priority = priorities[i]
	}
	s.timeslot = timeslot

	return s.Ordered()
}

// Ordered returns the indices by descending priority as of the last tick
func (s *Set) Ordered() []Index {
	ordered := make([]Index, len(s.observations))
	for i := range ordered {
		ordered[i] = Index(i)
	}

	slices.SortStableFunc(ordered, func(a, b Index) int {
		pa, pb := s.observations[a].Priority, s.observations[b].Priority
		switch {
		case pa > pb:
			return -1
		case pa < pb:
			return 1
		default:
			return 0
		}
	})

	return ordered
}

// Len returns the number of observations
func (s *Set) Len() int {
	return len(s.observations)
}

// Timeslot returns the timeslot of the last tick
func (s *Set) Timeslot() int {
	return s.timeslot
}

// Table returns the band curve table used for scoring
func (s *Set) Table() *priority.Table {
	return s.table
}

// CompletionOf returns the completion fraction computed by the last tick
func (s *Set) CompletionOf(i Index) float64 {
	return s.observations[i].Completion
}

// PriorityOf returns the priority computed by the last tick
func (s *Set) PriorityOf(i Index) float64 {
	return s.observations[i].Priority
}

// BandOf returns the band of an observation
func (s *Set) BandOf(i Index) model.Band {
	return s.observations[i].Band
}

// Observation returns a copy of an observation's record
func (s *Set) Observation(i Index) Observation {
	obs := s.observations[i]
	obs.ValidSiteTimes = obs.ValidSiteTimes.Clone()
	return obs
}

// SitesAt returns the sites an observation can run at in the given timeslot
func (s *Set) SitesAt(i Index, timeslot int) model.SiteSet {
	return s.observations[i].ValidSiteTimes.SitesAt(timeslot).Clone()
}

// CurrentSites returns the eligible sites for the timeslot of the last tick
func (s *Set) CurrentSites(i Index) model.SiteSet {
	return s.SitesAt(i, s.timeslot)
}

// Describe renders one observation for progress output, e.g.
//
//	Observation  2: band=1 completion=0.833, priority=33.267, sites=GN
//
// The index is left-padded to the width of the observation count.
func (s *Set) Describe(i Index) string {
	obs := &s.observations[i]

	id := strconv.Itoa(int(i))
	width := len(strconv.Itoa(len(s.observations)))
	if pad := width - len(id); pad > 0 {
		id = strings.Repeat(" ", pad) + id
	}

	return fmt.Sprintf("Observation %s: band=%s completion=%0.03f, priority=%0.03f, sites=%s",
		id,
		obs.Band,
		obs.Completion,
		obs.Priority,
		model.TimeslotSitesString(obs.ValidSiteTimes, s.timeslot))
}
