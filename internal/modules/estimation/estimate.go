package estimation

import (
	"fmt"
	"math"

	"github.com/aristath/quantcore/internal/domain"
	"github.com/aristath/quantcore/pkg/formulas"
)

// Method selects the covariance estimator
type Method string

const (
	MethodSample      Method = "sample"
	MethodLedoitWolf  Method = "ledoit_wolf"
	MethodExponential Method = "exponential"
)

const (
	DefaultHalfLife             = 63 // trading days
	DefaultVolatilityWindow     = 20
	DefaultCorrelationThreshold = 0.80
)

// PriceSeries is one asset's price history. Non-positive entries mark missing prices.
type PriceSeries struct {
	Symbol string    `json:"symbol"`
	Prices []float64 `json:"prices"`
}

// Options configures EstimateCovariance
type Options struct {
	Method               Method  `json:"method"`
	HalfLife             float64 `json:"half_life"`
	VolatilityWindow     int     `json:"volatility_window"`
	CorrelationThreshold float64 `json:"correlation_threshold"`
}

func (o Options) withDefaults() Options {
	if o.Method == "" {
		o.Method = MethodLedoitWolf
	}
	if o.HalfLife <= 0 {
		o.HalfLife = DefaultHalfLife
	}
	if o.VolatilityWindow <= 0 {
		o.VolatilityWindow = DefaultVolatilityWindow
	}
	if o.CorrelationThreshold <= 0 {
		o.CorrelationThreshold = DefaultCorrelationThreshold
	}
	return o
}

// Estimate is the per-period risk model of a set of assets, aligned by Symbols
type Estimate struct {
	Symbols          []string          `json:"symbols"`
	Method           Method            `json:"method"`
	Observations     int               `json:"observations"`
	FilledPrices     int               `json:"filled_prices"`
	Shrinkage        float64           `json:"shrinkage,omitempty"`
	MeanReturns      []float64         `json:"mean_returns"`
	Volatilities     []float64         `json:"volatilities"`      // √Σᵢᵢ
	RecentVolatility []float64         `json:"recent_volatility"` // over the last VolatilityWindow returns
	Covariance       [][]float64       `json:"covariance"`
	HighCorrelations []CorrelationPair `json:"high_correlations"`
	Returns          [][]float64       `json:"-"`
}

// EstimateCovariance fills gaps in each series, converts prices to simple returns and
// estimates their covariance with the chosen method.
func EstimateCovariance(series []PriceSeries, opts Options) (Estimate, error) {
	opts = opts.withDefaults()
	if len(series) == 0 {
		return Estimate{}, &domain.InsufficientDataError{What: "price series", Need: 1, Got: 0}
	}

	length := len(series[0].Prices)
	symbols := make([]string, len(series))
	returns := make([][]float64, len(series))
	filledTotal := 0
	seen := make(map[string]bool, len(series))

	for i, s := range series {
		if seen[s.Symbol] {
			return Estimate{}, domain.WrapIndex("series", i, &domain.ValidationError{Field: "symbol", Reason: fmt.Sprintf("duplicate symbol %q", s.Symbol)})
		}
		seen[s.Symbol] = true

		if len(s.Prices) != length {
			return Estimate{}, domain.WrapIndex("series", i, &domain.ValidationError{Field: "prices", Reason: "all series must have the same length"})
		}
		filled, missing := FillMissing(s.Prices)
		if missing == len(filled) {
			return Estimate{}, domain.WrapIndex("series", i, &domain.InsufficientDataError{What: "valid prices", Need: 1, Got: 0})
		}
		filledTotal += missing

		symbols[i] = s.Symbol
		returns[i] = formulas.CalculateReturns(filled)
	}

	var (
		cov       [][]float64
		shrinkage float64
		err       error
	)
	switch opts.Method {
	case MethodSample:
		cov, err = SampleCovariance(returns)
	case MethodLedoitWolf:
		cov, err = SampleCovariance(returns)
		if err == nil {
			cov, shrinkage, err = LedoitWolfShrinkage(cov)
		}
	case MethodExponential:
		var weights []float64
		weights, err = ExponentialWeights(len(returns[0]), opts.HalfLife)
		if err == nil {
			cov, err = WeightedCovariance(returns, weights)
		}
	default:
		return Estimate{}, &domain.ValidationError{Field: "method", Reason: fmt.Sprintf("unknown estimator %q", opts.Method)}
	}
	if err != nil {
		return Estimate{}, err
	}

	means := make([]float64, len(returns))
	vols := make([]float64, len(returns))
	recent := make([]float64, len(returns))
	for i, r := range returns {
		means[i] = formulas.Mean(r)
		vols[i] = math.Sqrt(cov[i][i])
		recent[i] = formulas.RollingVolatility(r, opts.VolatilityWindow)
	}

	return Estimate{
		Symbols:          symbols,
		Method:           opts.Method,
		Observations:     len(returns[0]),
		FilledPrices:     filledTotal,
		Shrinkage:        shrinkage,
		MeanReturns:      means,
		Volatilities:     vols,
		RecentVolatility: recent,
		Covariance:       cov,
		HighCorrelations: HighCorrelations(cov, symbols, opts.CorrelationThreshold),
		Returns:          returns,
	}, nil
}

// EstimatePortfolio builds a Portfolio whose covariance follows the positions' order.
// Positions without an expected return or volatility take the estimated ones.
func EstimatePortfolio(positions []domain.Position, series []PriceSeries, opts Options) (domain.Portfolio, Estimate, error) {
	est, err := EstimateCovariance(series, opts)
	if err != nil {
		return domain.Portfolio{}, Estimate{}, err
	}

	index := make(map[string]int, len(est.Symbols))
	for i, s := range est.Symbols {
		index[s] = i
	}

	order := make([]int, len(positions))
	out := make([]domain.Position, len(positions))
	for p, pos := range positions {
		i, ok := index[pos.Symbol]
		if !ok {
			return domain.Portfolio{}, Estimate{}, domain.WrapIndex("positions", p, &domain.ValidationError{Field: "symbol", Reason: fmt.Sprintf("no price series for %q", pos.Symbol)})
		}
		order[p] = i
		if pos.ExpectedReturn == 0 {
			pos.ExpectedReturn = est.MeanReturns[i]
		}
		if pos.Volatility == 0 {
			pos.Volatility = est.Volatilities[i]
		}
		out[p] = pos
	}

	cov := squareMatrix(len(positions))
	for a, i := range order {
		for b, j := range order {
			cov[a][b] = est.Covariance[i][j]
		}
	}

	portfolio := domain.Portfolio{Positions: out, Covariance: cov}
	if err := portfolio.Validate(); err != nil {
		return domain.Portfolio{}, Estimate{}, err
	}
	return portfolio, est, nil
}
