package scheduler

import (
	"slices"

	"github.com/skyqueue/obs-scheduler/pkg/core/model"
	"github.com/skyqueue/obs-scheduler/pkg/core/observation"
)

// MatchingOptimizer assigns observations to sites for one timeslot so that every
// site runs at most one observation, every observation runs at most once, and the
// summed priority is maximal.
//
// Observations are admitted in descending priority. An observation is admitted if
// some eligible site is free, or can be freed by moving already admitted
// observations to other eligible sites (an augmenting path). Admitted observations
// are never dropped, which makes the greedy order optimal for priority weights.
type MatchingOptimizer struct {
	// Sites are tried in this order; defaults to model.Sites
	Sites []model.Site

	// SkipZeroPriority leaves zero-priority observations unassigned
	SkipZeroPriority bool
}

// NewMatchingOptimizer creates an optimizer over all known sites
func NewMatchingOptimizer() *MatchingOptimizer {
	return &MatchingOptimizer{Sites: slices.Clone(model.Sites)}
}

func (m *MatchingOptimizer) Plan(set *observation.Set, ordering []observation.Index) (*Plan, error) {
	sites := m.Sites
	if len(sites) == 0 {
		sites = model.Sites
	}

	timeslot := set.Timeslot()
	siteOwner := make(map[model.Site]observation.Index, len(sites))

	eligible := func(idx observation.Index) []model.Site {
		allowed := set.SitesAt(idx, timeslot)
		var out []model.Site
		for _, s := range sites {
			if allowed.Contains(s) {
				out = append(out, s)
			}
		}
		return out
	}

	var augment func(idx observation.Index, visited map[model.Site]bool) bool
	augment = func(idx observation.Index, visited map[model.Site]bool) bool {
		for _, s := range eligible(idx) {
			if visited[s] {
				continue
			}
			visited[s] = true

			owner, taken := siteOwner[s]
			if !taken || augment(owner, visited) {
				siteOwner[s] = idx
				return true
			}
		}
		return false
	}

	for _, idx := range ordering {
		if m.SkipZeroPriority && set.PriorityOf(idx) == 0 {
			continue
		}
		augment(idx, make(map[model.Site]bool, len(sites)))
	}

	plan := &Plan{Timeslot: timeslot}
	for _, s := range sites {
		idx, ok := siteOwner[s]
		if !ok {
			continue
		}
		p := set.PriorityOf(idx)
		plan.Assignments = append(plan.Assignments, Assignment{Index: idx, Site: s, Priority: p})
		plan.Objective += p
	}

	return plan, nil
}
