package services

import (
	"fmt"

	"github.com/skyqueue/obs-scheduler/pkg/core/model"
	"github.com/skyqueue/obs-scheduler/pkg/core/observation"
	"github.com/skyqueue/obs-scheduler/pkg/core/priority"
	"github.com/skyqueue/obs-scheduler/pkg/db"
)

// BuildObservationSet converts stored observations into a set scored with table.
// It returns the set and the stored ID of each index.
func BuildObservationSet(records []db.Observation, table *priority.Table) (*observation.Set, []string, error) {
	set := observation.NewSet(table)
	ids := make([]string, 0, len(records))

	for _, r := range records {
		band, err := model.ParseBand(r.Band)
		if err != nil {
			return nil, nil, fmt.Errorf("observation %s: %w: %w", r.ID, observation.ErrInvalidObservation, err)
		}

		sites, err := toValidSiteTimes(r.ValidSiteTimes)
		if err != nil {
			return nil, nil, fmt.Errorf("observation %s: %w: %w", r.ID, observation.ErrInvalidObservation, err)
		}

		if _, err := set.Add(band, sites, r.AllocatedTime, r.ObsTime, observation.WithUsedTime(r.UsedTime)); err != nil {
			return nil, nil, fmt.Errorf("observation %s: %w", r.ID, err)
		}
		ids = append(ids, r.ID)
	}

	return set, ids, nil
}

// toValidSiteTimes converts stored site names into site sets
func toValidSiteTimes(stored map[int][]string) (model.ValidSiteTimes, error) {
	v := make(model.ValidSiteTimes, len(stored))
	for timeslot, names := range stored {
		sites := make(model.SiteSet, len(names))
		for _, name := range names {
			site, err := model.ParseSite(name)
			if err != nil {
				return nil, fmt.Errorf("timeslot %d: %w", timeslot, err)
			}
			sites[site] = struct{}{}
		}
		v[timeslot] = sites
	}
	return v, nil
}
