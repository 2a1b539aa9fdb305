package risk

import (
	"context"
	"math"

	"github.com/aristath/quantcore/internal/domain"
	"github.com/aristath/quantcore/internal/modules/simulation"
	"github.com/aristath/quantcore/pkg/formulas"
)

// MonteCarloVaR simulates holding-period returns as the sum of holdingPeriod normal draws
// and reads VaR off the simulated distribution. On cancellation no report is returned.
func MonteCarloVaR(ctx context.Context, mean, volatility, confidence float64, holdingPeriod, simulations int, opts simulation.Options) (domain.RiskReport, error) {
	if err := validateConfidence(confidence); err != nil {
		return domain.RiskReport{}, err
	}
	if err := validateHoldingPeriod(holdingPeriod); err != nil {
		return domain.RiskReport{}, err
	}
	if volatility < 0 || math.IsNaN(volatility) {
		return domain.RiskReport{}, &domain.ValidationError{Field: "volatility", Reason: "must be non-negative"}
	}

	simulated, err := simulation.Run(ctx, simulations, opts, func(gen *formulas.NormalGenerator, out []float64) {
		for i := range out {
			path := 0.0
			for d := 0; d < holdingPeriod; d++ {
				path += gen.NextScaled(mean, volatility)
			}
			out[i] = path
		}
	})
	if err != nil {
		return domain.RiskReport{}, err
	}

	report, err := HistoricalVaR(simulated, confidence, 1)
	if err != nil {
		return domain.RiskReport{}, err
	}
	report.Method = domain.MethodMonteCarlo
	report.HoldingPeriod = holdingPeriod
	report.SampleSize = 0
	report.Simulations = simulations
	return report, nil
}
