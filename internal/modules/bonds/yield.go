package bonds

import (
	"math"
	"time"

	"github.com/aristath/quantcore/internal/domain"
)

const (
	DefaultYieldTolerance     = 1e-4
	DefaultYieldMaxIterations = 100

	yieldFloor      = -0.05
	yieldCeiling    = 1.0
	zeroCouponGuess = 0.05
)

// YieldOptions controls the Newton-Raphson yield solver
type YieldOptions struct {
	Tolerance     float64 // absolute price difference at which the solver stops
	MaxIterations int
}

// DefaultYieldOptions returns a tolerance of 1e-4 and 100 iterations
func DefaultYieldOptions() YieldOptions {
	return YieldOptions{Tolerance: DefaultYieldTolerance, MaxIterations: DefaultYieldMaxIterations}
}

func (o YieldOptions) withDefaults() YieldOptions {
	if o.Tolerance <= 0 {
		o.Tolerance = DefaultYieldTolerance
	}
	if o.MaxIterations <= 0 {
		o.MaxIterations = DefaultYieldMaxIterations
	}
	return o
}

// YTMResult is the solved yield and the number of Newton steps taken
type YTMResult struct {
	YTM        float64 `json:"ytm"`
	Iterations int     `json:"iterations"`
}

// YieldToMaturity solves for the annual yield at which the clean price of b equals marketPrice.
//
// Newton-Raphson starting at the coupon rate (5% for zero-coupon bonds):
//
//	priceDiff = P(y) − marketPrice
//	y        += priceDiff / (D_mod(y) × marketPrice)
//
// which is y − f/f' with dP/dy ≈ −D_mod × P. Iterates are clamped to [−5%, 100%].
// A *domain.ConvergenceError is returned when the budget is exhausted or the iterate
// settles on a clamp bound.
func YieldToMaturity(b domain.Bond, marketPrice float64, valuationDate time.Time, opts YieldOptions) (YTMResult, error) {
	if err := validateBond(b, valuationDate); err != nil {
		return YTMResult{}, err
	}
	if !(marketPrice > 0) {
		return YTMResult{}, &domain.ValidationError{Field: "market_price", Reason: "must be positive"}
	}
	opts = opts.withDefaults()

	sched := buildSchedule(b, valuationDate)

	y := b.CouponRate
	if y == 0 {
		y = zeroCouponGuess
	}
	y = clamp(y, yieldFloor, yieldCeiling)

	var priceDiff float64
	for iter := 1; iter <= opts.MaxIterations; iter++ {
		v := discount(b, y, sched.periods)
		priceDiff = v.price - marketPrice

		if math.Abs(priceDiff) < opts.Tolerance {
			// a price within tolerance at a clamp bound is a flat tail, not a root
			if y <= yieldFloor || y >= yieldCeiling {
				return YTMResult{}, &domain.ConvergenceError{Iterations: iter, LastYield: y, LastPriceDiff: priceDiff}
			}
			return YTMResult{YTM: y, Iterations: iter}, nil
		}
		if !(v.modifiedDuration > 0) {
			break
		}

		y = clamp(y+priceDiff/(v.modifiedDuration*marketPrice), yieldFloor, yieldCeiling)
	}

	return YTMResult{}, &domain.ConvergenceError{
		Iterations:    opts.MaxIterations,
		LastYield:     y,
		LastPriceDiff: priceDiff,
	}
}
