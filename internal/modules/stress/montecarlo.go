package stress

import (
	"context"
	"math"
	"sort"

	"github.com/aristath/quantcore/internal/domain"
	"github.com/aristath/quantcore/internal/modules/simulation"
	"github.com/aristath/quantcore/pkg/formulas"
)

// ShockParameters scale and correlate the simulated asset returns
type ShockParameters struct {
	ShockFactor float64 `json:"shock_factor"` // multiplies every volatility, 1 = unstressed
	Correlation float64 `json:"correlation"`  // loading on the common market draw, in [-1, 1]
	MarketShock float64 `json:"market_shock"` // deterministic market move passed through beta
}

// Validate checks the parameter ranges
func (p ShockParameters) Validate() error {
	if !(p.ShockFactor > 0) {
		return &domain.ValidationError{Field: "shock_factor", Reason: "must be positive"}
	}
	if p.Correlation < -1 || p.Correlation > 1 || math.IsNaN(p.Correlation) {
		return &domain.ValidationError{Field: "correlation", Reason: "must be within [-1, 1]"}
	}
	if math.IsNaN(p.MarketShock) || math.IsInf(p.MarketShock, 0) {
		return &domain.ValidationError{Field: "market_shock", Reason: "must be finite"}
	}
	return nil
}

// MonteCarloResult summarises the simulated portfolio return distribution
type MonteCarloResult struct {
	Simulations        int     `json:"simulations"`
	Percentile1        float64 `json:"percentile_1"`
	Percentile5        float64 `json:"percentile_5"`
	Percentile10       float64 `json:"percentile_10"`
	Mean               float64 `json:"mean"`
	Volatility         float64 `json:"volatility"`
	Worst              float64 `json:"worst"`
	Best               float64 `json:"best"`
	ProbabilityOfLoss  float64 `json:"probability_of_loss"`
	ValueAtPercentile5 float64 `json:"value_at_percentile_5"` // market value after the 5th percentile return
}

// MonteCarloStressTest draws, per simulation, one common market variate M and one idiosyncratic
// variate Zᵢ per position:
//
//	rᵢ = μᵢ + σᵢ·k·Zᵢ + ρ·βᵢ·σᵢ·k·M + βᵢ·shock
//
// and aggregates rᵢ by weight. The distribution depends only on the seed, not on the worker count.
func MonteCarloStressTest(ctx context.Context, portfolio domain.Portfolio, params ShockParameters, simulations int, opts simulation.Options) (MonteCarloResult, error) {
	if err := validatePositions(portfolio); err != nil {
		return MonteCarloResult{}, err
	}
	if err := params.Validate(); err != nil {
		return MonteCarloResult{}, err
	}

	positions := portfolio.Positions
	k := params.ShockFactor

	simulated, err := simulation.Run(ctx, simulations, opts, func(gen *formulas.NormalGenerator, out []float64) {
		for s := range out {
			market := gen.Next()
			r := 0.0
			for _, pos := range positions {
				z := gen.Next()
				assetReturn := pos.ExpectedReturn +
					pos.Volatility*k*z +
					params.Correlation*pos.Beta*pos.Volatility*k*market +
					pos.Beta*params.MarketShock
				r += pos.Weight * assetReturn
			}
			out[s] = r
		}
	})
	if err != nil {
		return MonteCarloResult{}, err
	}

	sort.Float64s(simulated)
	n := len(simulated)
	losses := sort.SearchFloat64s(simulated, 0)

	p5 := percentile(simulated, 0.05)
	return MonteCarloResult{
		Simulations:        n,
		Percentile1:        percentile(simulated, 0.01),
		Percentile5:        p5,
		Percentile10:       percentile(simulated, 0.10),
		Mean:               formulas.Mean(simulated),
		Volatility:         formulas.StdDev(simulated),
		Worst:              simulated[0],
		Best:               simulated[n-1],
		ProbabilityOfLoss:  float64(losses) / float64(n),
		ValueAtPercentile5: portfolio.TotalMarketValue() * (1 + p5),
	}, nil
}

// percentile reads the p-quantile of an ascending sample at index floor(p·n)
func percentile(sorted []float64, p float64) float64 {
	return sorted[formulas.TailIndex(1-p, len(sorted))]
}
