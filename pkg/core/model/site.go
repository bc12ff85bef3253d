package model

import (
	"fmt"
	"slices"
	"strings"
)

// Site is a telescope site that can run observations
type Site int

const (
	SiteGN Site = iota + 1
	SiteGS
)

// Sites lists every site in enumeration order
var Sites = []Site{SiteGN, SiteGS}

func (s Site) String() string {
	switch s {
	case SiteGN:
		return "GN"
	case SiteGS:
		return "GS"
	default:
		return fmt.Sprintf("Site(%d)", int(s))
	}
}

// ParseSite converts a site name ("GN", "GS") into a Site
func ParseSite(name string) (Site, error) {
	for _, s := range Sites {
		if strings.EqualFold(s.String(), name) {
			return s, nil
		}
	}
	return 0, fmt.Errorf("unknown site %q", name)
}

// SiteSet is a set of sites
type SiteSet map[Site]struct{}

// NewSiteSet builds a set from the given sites
func NewSiteSet(sites ...Site) SiteSet {
	set := make(SiteSet, len(sites))
	for _, s := range sites {
		set[s] = struct{}{}
	}
	return set
}

func (ss SiteSet) Contains(s Site) bool {
	_, ok := ss[s]
	return ok
}

// Sorted returns the members in enumeration order
func (ss SiteSet) Sorted() []Site {
	sites := make([]Site, 0, len(ss))
	for s := range ss {
		sites = append(sites, s)
	}
	slices.Sort(sites)
	return sites
}

// Clone returns an independent copy of the set
func (ss SiteSet) Clone() SiteSet {
	out := make(SiteSet, len(ss))
	for s := range ss {
		out[s] = struct{}{}
	}
	return out
}

// SitesString renders the set as space-separated site names, e.g. "GN GS"
func SitesString(ss SiteSet) string {
	names := make([]string, 0, len(ss))
	for _, s := range ss.Sorted() {
		names = append(names, s.String())
	}
	return strings.Join(names, " ")
}

// ValidSiteTimes maps a timeslot index to the sites an observation can use in it
type ValidSiteTimes map[int]SiteSet

// SitesAt returns the eligible sites for a timeslot.
// A timeslot with no entry has no eligible sites.
func (v ValidSiteTimes) SitesAt(timeslot int) SiteSet {
	sites, ok := v[timeslot]
	if !ok {
		return SiteSet{}
	}
	return sites
}

// Clone deep-copies the mapping so later changes by the caller are not observed
func (v ValidSiteTimes) Clone() ValidSiteTimes {
	out := make(ValidSiteTimes, len(v))
	for t, sites := range v {
		out[t] = sites.Clone()
	}
	return out
}

// TimeslotSitesString renders the eligible sites for a timeslot
func TimeslotSitesString(v ValidSiteTimes, timeslot int) string {
	return SitesString(v.SitesAt(timeslot))
}
