package db

// Observation represents a stored observation record
type Observation struct {
	ID            string  `yaml:"id" json:"id"`
	Band          string  `yaml:"band" json:"band"`
	AllocatedTime float64 `yaml:"allocatedTime" json:"allocatedTime"`
	ObsTime       float64 `yaml:"obsTime" json:"obsTime"`
	UsedTime      float64 `yaml:"usedTime,omitempty" json:"usedTime"`

	// ValidSiteTimes maps a timeslot index to site names ("GN", "GS")
	ValidSiteTimes map[int][]string `yaml:"validSiteTimes" json:"validSiteTimes"`
}

// PriorityRecord is the ranking of one observation at one tick
type PriorityRecord struct {
	ID            string  `json:"id"`
	RunID         string  `json:"runId"`
	ObservationID string  `json:"observationId"`
	Timeslot      int     `json:"timeslot"`
	Rank          int     `json:"rank"`
	Completion    float64 `json:"completion"`
	Priority      float64 `json:"priority"`
	Site          string  `json:"site,omitempty"` // empty if not assigned
	RecordedAt    string  `json:"recordedAt"`     // RFC3339
}
