// Package risk computes Value-at-Risk and Expected Shortfall and attributes portfolio risk to positions.
//
// VaR and ES are reported as positive loss fractions of portfolio value.
package risk

import (
	"math"
	"sort"

	"github.com/aristath/quantcore/internal/domain"
	"github.com/aristath/quantcore/pkg/formulas"
)

func validateConfidence(confidence float64) error {
	if !(confidence > 0 && confidence < 1) {
		return &domain.ValidationError{Field: "confidence_level", Reason: "must be within (0, 1)"}
	}
	return nil
}

func validateHoldingPeriod(days int) error {
	if days < 1 {
		return &domain.ValidationError{Field: "holding_period", Reason: "must be at least 1"}
	}
	return nil
}

// HistoricalVaR reads VaR off the empirical return distribution.
//
// With returns sorted ascending and index = floor((1−c)·n), VaR = −r[index]·√h and
// ES = −mean(r[0..index])·√h.
func HistoricalVaR(returns []float64, confidence float64, holdingPeriod int) (domain.RiskReport, error) {
	if len(returns) == 0 {
		return domain.RiskReport{}, &domain.InsufficientDataError{What: "returns", Need: 1, Got: 0}
	}
	if err := validateConfidence(confidence); err != nil {
		return domain.RiskReport{}, err
	}
	if err := validateHoldingPeriod(holdingPeriod); err != nil {
		return domain.RiskReport{}, err
	}

	sorted := make([]float64, len(returns))
	copy(sorted, returns)
	sort.Float64s(sorted)

	idx := formulas.TailIndex(confidence, len(sorted))
	scale := math.Sqrt(float64(holdingPeriod))

	return domain.RiskReport{
		Method:            domain.MethodHistorical,
		VaR:               -sorted[idx] * scale,
		ExpectedShortfall: -formulas.Mean(sorted[:idx+1]) * scale,
		ConfidenceLevel:   confidence,
		HoldingPeriod:     holdingPeriod,
		SampleSize:        len(sorted),
	}, nil
}

// ParametricVaR assumes normally distributed returns with the given per-period mean and volatility:
//
//	VaR = −(μh − zσ√h)
//	ES  = −(μh − σ√h·φ(z)/(1−c))
func ParametricVaR(mean, volatility, confidence float64, holdingPeriod int) (domain.RiskReport, error) {
	if err := validateConfidence(confidence); err != nil {
		return domain.RiskReport{}, err
	}
	if err := validateHoldingPeriod(holdingPeriod); err != nil {
		return domain.RiskReport{}, err
	}
	if volatility < 0 || math.IsNaN(volatility) {
		return domain.RiskReport{}, &domain.ValidationError{Field: "volatility", Reason: "must be non-negative"}
	}

	h := float64(holdingPeriod)
	z := formulas.ZScore(confidence)
	sigma := volatility * math.Sqrt(h)
	drift := mean * h

	return domain.RiskReport{
		Method:            domain.MethodParametric,
		VaR:               -(drift - z*sigma),
		ExpectedShortfall: -(drift - sigma*formulas.NormalPDF(z)/(1-confidence)),
		ConfidenceLevel:   confidence,
		HoldingPeriod:     holdingPeriod,
	}, nil
}
