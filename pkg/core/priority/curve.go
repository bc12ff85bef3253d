package priority

import "github.com/skyqueue/obs-scheduler/pkg/core/model"

// Score evaluates a band's piecewise priority curve at the given completion fraction.
//
//	completion == 0   -> 0
//	completion <  xb  -> m1*c^2 + b1
//	completion <  1   -> m2*c + b2'
//	completion == 1   -> m2 + b2' + xc0
//
// where b2' = b2 + xb0 + b1 is computed here rather than stored in the table.
func Score(band model.Band, p CurveParameters, completion float64) float64 {
	xb := p.XB
	if band == model.Band3 {
		xb = band3JoinFraction
	}

	b2 := p.B2 + p.XB0 + p.B1

	switch {
	case completion == 0:
		return 0
	case completion < xb:
		return p.M1*completion*completion + p.B1
	case completion < 1.0:
		return p.M2*completion + b2
	default:
		return p.M2*1.0 + b2 + p.XC0
	}
}
