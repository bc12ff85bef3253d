package model

import "fmt"

// Band is the scientific priority band of an observation.
// Band 1 is the highest priority, band 4 is filler.
type Band string

const (
	Band1 Band = "1"
	Band2 Band = "2"
	Band3 Band = "3"
	Band4 Band = "4"
)

// Bands lists every band from highest to lowest priority
var Bands = []Band{Band1, Band2, Band3, Band4}

func (b Band) IsValid() bool {
	return b == Band1 || b == Band2 || b == Band3 || b == Band4
}

// ParseBand converts a band label ("1".."4") into a Band
func ParseBand(s string) (Band, error) {
	b := Band(s)
	if !b.IsValid() {
		return "", fmt.Errorf("unknown band %q", s)
	}
	return b, nil
}
