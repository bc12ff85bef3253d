package priority

import "github.com/skyqueue/obs-scheduler/pkg/core/model"

// Default band spread tuning
const (
	// DefaultInitialIntercept is the quadratic intercept given to the first band processed.
	DefaultInitialIntercept = 0.2

	// DefaultBandOffset is added to the running intercept when deriving each band's
	// linear intercept. Larger values push bands further apart.
	DefaultBandOffset = 5.0

	// DefaultJoinFraction is the completion at which every curve switches from its
	// quadratic segment to its linear segment.
	DefaultJoinFraction = 0.8

	// band3JoinFraction is the minimum completion fraction for band 3.
	band3JoinFraction = 0.8
)

// SpreadConfig holds the tunable inputs to the band curve derivation
type SpreadConfig struct {
	// Slopes is the linear-segment slope (m2) of each derived band.
	// Lower priority bands get smaller slopes.
	Slopes map[model.Band]float64

	// InitialIntercept seeds the running quadratic intercept (b1)
	InitialIntercept float64

	// BandOffset is the constant in b2 = b1 + offset - m2
	BandOffset float64

	// JoinFraction is xb, the completion where the quadratic and linear segments meet
	JoinFraction float64

	// Order is the derivation order, lowest scientific priority first.
	// Changing the order changes the resulting ranges.
	Order []model.Band

	// Filler is the band whose priority is always zero
	Filler model.Band
}

// DefaultSpreadConfig returns the standard tuning: bands 3, 2, 1 with slopes 1, 6 and 20
func DefaultSpreadConfig() SpreadConfig {
	return SpreadConfig{
		Slopes: map[model.Band]float64{
			model.Band3: 1.0,
			model.Band2: 6.0,
			model.Band1: 20.0,
		},
		InitialIntercept: DefaultInitialIntercept,
		BandOffset:       DefaultBandOffset,
		JoinFraction:     DefaultJoinFraction,
		Order:            []model.Band{model.Band3, model.Band2, model.Band1},
		Filler:           model.Band4,
	}
}
