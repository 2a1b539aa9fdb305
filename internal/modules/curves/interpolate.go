package curves

import (
	"sort"

	"github.com/aristath/quantcore/internal/domain"
)

// Interpolate returns the zero rate at maturity (years).
// Rates are linear between the bracketing points and held flat beyond either end of the curve.
func Interpolate(curve domain.YieldCurve, maturity float64) (float64, error) {
	if len(curve.Points) < 2 {
		return 0, &domain.InsufficientDataError{What: "curve points", Need: 2, Got: len(curve.Points)}
	}
	return interpolatePoints(curve.Points, maturity), nil
}

// interpolatePoints assumes points sorted by maturity and non-empty
func interpolatePoints(points []domain.CurvePoint, t float64) float64 {
	if t <= points[0].Maturity {
		return points[0].Rate
	}
	last := points[len(points)-1]
	if t >= last.Maturity {
		return last.Rate
	}

	// first point with maturity >= t
	idx := sort.Search(len(points), func(i int) bool {
		return points[i].Maturity >= t
	})
	lo, hi := points[idx-1], points[idx]
	if hi.Maturity == lo.Maturity {
		return lo.Rate
	}
	w := (t - lo.Maturity) / (hi.Maturity - lo.Maturity)
	return lo.Rate + w*(hi.Rate-lo.Rate)
}
