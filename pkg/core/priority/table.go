package priority

import (
	"errors"
	"fmt"
	"math"
	"slices"
	"sync"

	"github.com/skyqueue/obs-scheduler/pkg/core/model"
)

// CurveParameters are the coefficients of one band's piecewise priority curve
type CurveParameters struct {
	// M1 and B1 define the quadratic segment m1*c^2 + b1 on [0, XB)
	M1 float64
	B1 float64

	// M2 is the slope of the linear segment on [XB, 1]
	M2 float64

	// B2 is the linear intercept chosen so the segments meet at XB
	B2 float64

	// XB is the completion fraction where the segments join
	XB float64

	// XB0 and XC0 are additive offsets at the join point and at full completion
	XB0 float64
	XC0 float64
}

// ErrTableInitialized is returned by Init once the process-wide table exists
var ErrTableInitialized = errors.New("band curve table already initialized")

// Table holds the derived curve parameters for every band.
// It is immutable after construction.
type Table struct {
	params map[model.Band]CurveParameters
	order  []model.Band
	filler model.Band
}

// NewTable derives the continuity-adjusted curve parameters from cfg.
//
// Bands are processed in cfg.Order. Each band's quadratic intercept is the running
// intercept, which then advances by the band's maximum attainable value so the next
// band starts above it. The filler band gets all-zero coefficients.
func NewTable(cfg SpreadConfig) (*Table, error) {
	if err := validateSpread(cfg); err != nil {
		return nil, err
	}

	xb := cfg.JoinFraction
	params := make(map[model.Band]CurveParameters, len(cfg.Order)+1)

	b1 := cfg.InitialIntercept
	for _, band := range cfg.Order {
		m2 := cfg.Slopes[band]
		b2 := b1 + cfg.BandOffset - m2
		m1 := (m2*xb + b2) / (xb * xb)

		params[band] = CurveParameters{
			M1: m1,
			B1: b1,
			M2: m2,
			B2: b2,
			XB: xb,
		}

		b1 += m2*1.0 + b2
	}

	params[cfg.Filler] = CurveParameters{XB: xb}

	return &Table{
		params: params,
		order:  slices.Clone(cfg.Order),
		filler: cfg.Filler,
	}, nil
}

func validateSpread(cfg SpreadConfig) error {
	if len(cfg.Order) == 0 {
		return fmt.Errorf("band order must not be empty")
	}
	if !cfg.Filler.IsValid() {
		return fmt.Errorf("invalid filler band %q", cfg.Filler)
	}
	if !isFinite(cfg.JoinFraction) || cfg.JoinFraction <= 0 || cfg.JoinFraction >= 1 {
		return fmt.Errorf("join fraction must be in (0, 1), got %v", cfg.JoinFraction)
	}
	if !isFinite(cfg.InitialIntercept) {
		return fmt.Errorf("initial intercept must be finite, got %v", cfg.InitialIntercept)
	}
	if !isFinite(cfg.BandOffset) {
		return fmt.Errorf("band offset must be finite, got %v", cfg.BandOffset)
	}

	seen := make(map[model.Band]bool, len(cfg.Order))
	for _, band := range cfg.Order {
		if !band.IsValid() {
			return fmt.Errorf("invalid band %q in order", band)
		}
		if band == cfg.Filler {
			return fmt.Errorf("filler band %q cannot be in the derivation order", band)
		}
		if seen[band] {
			return fmt.Errorf("band %q appears twice in order", band)
		}
		seen[band] = true

		m2, ok := cfg.Slopes[band]
		if !ok {
			return fmt.Errorf("no slope configured for band %q", band)
		}
		if !isFinite(m2) {
			return fmt.Errorf("slope for band %q must be finite, got %v", band, m2)
		}
	}

	return nil
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

// ParametersFor returns the curve parameters of a band.
// Bands the table does not know get all-zero coefficients.
func (t *Table) ParametersFor(band model.Band) CurveParameters {
	return t.params[band]
}

// Order returns the derivation order, lowest priority first
func (t *Table) Order() []model.Band {
	return slices.Clone(t.order)
}

// Filler returns the always-zero band
func (t *Table) Filler() model.Band {
	return t.filler
}

// MaxPriority returns the value of a band's curve at full completion
func (t *Table) MaxPriority(band model.Band) float64 {
	return Score(band, t.ParametersFor(band), 1.0)
}

var (
	globalOnce  sync.Once
	globalTable *Table
)

// Init installs the process-wide table derived from cfg.
// It must be called at most once, before any call to Default.
func Init(cfg SpreadConfig) (*Table, error) {
	table, err := NewTable(cfg)
	if err != nil {
		return nil, err
	}

	installed := false
	globalOnce.Do(func() {
		globalTable = table
		installed = true
	})
	if !installed {
		return nil, ErrTableInitialized
	}

	return table, nil
}

// Default returns the process-wide table, deriving it from DefaultSpreadConfig
// on first use if Init was never called.
func Default() *Table {
	globalOnce.Do(func() {
		table, err := NewTable(DefaultSpreadConfig())
		if err != nil {
			panic(fmt.Sprintf("default band spread is invalid: %v", err))
		}
		globalTable = table
	})
	return globalTable
}
