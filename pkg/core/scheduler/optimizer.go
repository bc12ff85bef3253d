package scheduler

import (
	"github.com/skyqueue/obs-scheduler/pkg/core/model"
	"github.com/skyqueue/obs-scheduler/pkg/core/observation"
)

// Assignment places one observation at one site for the current timeslot
type Assignment struct {
	Index    observation.Index
	Site     model.Site
	Priority float64
}

// Plan is the outcome of optimizing a single timeslot
type Plan struct {
	Timeslot    int
	Assignments []Assignment

	// Objective is the sum of the assigned priorities
	Objective float64
}

// SiteFor returns the site an observation was assigned to, if any
func (p *Plan) SiteFor(idx observation.Index) (model.Site, bool) {
	for _, a := range p.Assignments {
		if a.Index == idx {
			return a.Site, true
		}
	}
	return 0, false
}

// Optimizer decides which observations run where in the set's current timeslot.
// Implementations read priorities and site eligibility from the set and must not
// modify it.
type Optimizer interface {
	Plan(set *observation.Set, ordering []observation.Index) (*Plan, error)
}
