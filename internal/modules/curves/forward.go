package curves

import (
	"math"

	"github.com/aristath/quantcore/internal/domain"
)

// ForwardRate is the annually compounded rate implied between two curve maturities
type ForwardRate struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Rate  float64 `json:"rate"`
}

// ForwardRates derives one forward rate per adjacent pair of points:
//
//	f = ((1+r2)^t2 / (1+r1)^t1)^(1/(t2−t1)) − 1
func ForwardRates(points []domain.CurvePoint) []ForwardRate {
	if len(points) < 2 {
		return []ForwardRate{}
	}

	out := make([]ForwardRate, 0, len(points)-1)
	for i := 1; i < len(points); i++ {
		p1, p2 := points[i-1], points[i]
		span := p2.Maturity - p1.Maturity
		if span <= 0 {
			continue
		}
		growth := math.Pow(1+p2.Rate, p2.Maturity) / math.Pow(1+p1.Rate, p1.Maturity)
		out = append(out, ForwardRate{
			Start: p1.Maturity,
			End:   p2.Maturity,
			Rate:  math.Pow(growth, 1/span) - 1,
		})
	}
	return out
}
