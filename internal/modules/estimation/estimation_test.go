package estimation

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/quantcore/internal/domain"
	"github.com/aristath/quantcore/pkg/formulas"
)

func TestFillMissing(t *testing.T) {
	tests := []struct {
		name        string
		prices      []float64
		want        []float64
		wantMissing int
	}{
		{"no gaps", []float64{1, 2, 3}, []float64{1, 2, 3}, 0},
		{"forward fill", []float64{1, math.NaN(), 0, 4}, []float64{1, 1, 1, 4}, 2},
		{"back fill leading", []float64{math.NaN(), -1, 5, 6}, []float64{5, 5, 5, 6}, 2},
		{"both", []float64{0, 2, 0, 3, 0}, []float64{2, 2, 2, 3, 3}, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, missing := FillMissing(tt.prices)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.wantMissing, missing)
		})
	}
}

func TestSampleCovariance(t *testing.T) {
	a := []float64{0.01, -0.02, 0.03, 0.00, 0.01}
	b := []float64{0.02, -0.01, 0.02, 0.01, -0.01}

	cov, err := SampleCovariance([][]float64{a, b})
	require.NoError(t, err)

	assert.InDelta(t, formulas.Variance(a), cov[0][0], 1e-15)
	assert.InDelta(t, formulas.Covariance(a, b), cov[0][1], 1e-15)
	assert.Equal(t, cov[0][1], cov[1][0])

	_, err = SampleCovariance([][]float64{{0.01}})
	assert.True(t, domain.IsInsufficientData(err))

	_, err = SampleCovariance([][]float64{a, b[:3]})
	assert.True(t, domain.IsValidation(err))
}

func TestLedoitWolfShrinkage(t *testing.T) {
	sample := [][]float64{
		{0.040, 0.010, 0.002},
		{0.010, 0.090, 0.015},
		{0.002, 0.015, 0.020},
	}

	shrunk, intensity, err := LedoitWolfShrinkage(sample)
	require.NoError(t, err)

	assert.Greater(t, intensity, 0.0)
	assert.LessOrEqual(t, intensity, 0.5)

	avgVar := (0.04 + 0.09 + 0.02) / 3
	avgCov := 2 * (0.010 + 0.002 + 0.015) / 6
	for i := range sample {
		for j := range sample {
			target := avgCov
			if i == j {
				target = avgVar
			}
			assert.InDelta(t, (1-intensity)*sample[i][j]+intensity*target, shrunk[i][j], 1e-15)
			assert.InDelta(t, shrunk[i][j], shrunk[j][i], 1e-15)
		}
	}

	// diagonal moves towards the average variance
	assert.Less(t, shrunk[1][1], sample[1][1])
	assert.Greater(t, shrunk[2][2], sample[2][2])
}

func TestLedoitWolfShrinkage_SmallMatrices(t *testing.T) {
	one, intensity, err := LedoitWolfShrinkage([][]float64{{0.04}})
	require.NoError(t, err)
	assert.Equal(t, [][]float64{{0.04}}, one)
	assert.Zero(t, intensity)

	_, intensity, err = LedoitWolfShrinkage([][]float64{{0.04, 0.01}, {0.01, 0.09}})
	require.NoError(t, err)
	assert.Equal(t, 0.2, intensity)

	_, _, err = LedoitWolfShrinkage([][]float64{{0.04, 0.02}, {0.01, 0.09}})
	assert.True(t, domain.IsValidation(err))
}

func TestExponentialWeights(t *testing.T) {
	w, err := ExponentialWeights(5, 2)
	require.NoError(t, err)

	sum := 0.0
	for _, x := range w {
		sum += x
	}
	assert.InDelta(t, 1.0, sum, 1e-15)
	assert.InDelta(t, 0.5, w[2]/w[4], 1e-12, "weight halves every half-life")

	_, err = ExponentialWeights(5, 0)
	assert.True(t, domain.IsValidation(err))
}

func TestWeightedCovariance_EqualWeightsMatchSample(t *testing.T) {
	a := []float64{0.01, -0.02, 0.03, 0.00}
	b := []float64{0.02, -0.01, 0.02, 0.01}
	equal := []float64{0.25, 0.25, 0.25, 0.25}

	weighted, err := WeightedCovariance([][]float64{a, b}, equal)
	require.NoError(t, err)
	sample, err := SampleCovariance([][]float64{a, b})
	require.NoError(t, err)

	for i := range sample {
		for j := range sample {
			assert.InDelta(t, sample[i][j], weighted[i][j], 1e-15)
		}
	}

	_, err = WeightedCovariance([][]float64{a, b}, equal[:3])
	assert.True(t, domain.IsValidation(err))
}

func TestHighCorrelations(t *testing.T) {
	cov := [][]float64{
		{0.04, 0.0342, -0.001},
		{0.0342, 0.0361, 0},
		{-0.001, 0, 0.01},
	}

	pairs := HighCorrelations(cov, []string{"A", "B", "C"}, 0.8)
	require.Len(t, pairs, 1)
	assert.Equal(t, "A", pairs[0].Symbol1)
	assert.Equal(t, "B", pairs[0].Symbol2)
	assert.InDelta(t, 0.9, pairs[0].Correlation, 1e-12)

	assert.Empty(t, HighCorrelations(cov, []string{"A"}, 0.8))
}

func priceSeries() []PriceSeries {
	base := []float64{100, 101, 99.5, 102, 103.5, 0, 104, 102.5, 105, 106}
	return []PriceSeries{
		{Symbol: "AAA", Prices: base},
		{Symbol: "BBB", Prices: []float64{50, 50.4, 49.9, 50.8, 51.2, 51.0, 51.5, 51.1, 52.0, 52.3}},
		{Symbol: "CCC", Prices: []float64{20, 19.8, 20.3, 20.1, 19.7, 20.2, 20.0, 20.4, 20.1, 19.9}},
	}
}

func TestEstimateCovariance(t *testing.T) {
	for _, method := range []Method{MethodSample, MethodLedoitWolf, MethodExponential} {
		t.Run(string(method), func(t *testing.T) {
			est, err := EstimateCovariance(priceSeries(), Options{Method: method, VolatilityWindow: 5})
			require.NoError(t, err)

			assert.Equal(t, []string{"AAA", "BBB", "CCC"}, est.Symbols)
			assert.Equal(t, 9, est.Observations)
			assert.Equal(t, 1, est.FilledPrices)
			require.Len(t, est.Covariance, 3)
			assert.NoError(t, domain.ValidateCovariance(est.Covariance, 3))

			for i := range est.Symbols {
				assert.InDelta(t, math.Sqrt(est.Covariance[i][i]), est.Volatilities[i], 1e-15)
				assert.Greater(t, est.RecentVolatility[i], 0.0)
			}
		})
	}

	sample, err := EstimateCovariance(priceSeries(), Options{Method: MethodSample})
	require.NoError(t, err)
	returns := formulas.CalculateReturns([]float64{50, 50.4, 49.9, 50.8, 51.2, 51.0, 51.5, 51.1, 52.0, 52.3})
	assert.InDelta(t, formulas.Variance(returns), sample.Covariance[1][1], 1e-15)
	assert.InDelta(t, formulas.Mean(returns), sample.MeanReturns[1], 1e-15)
	assert.Zero(t, sample.Shrinkage)
}

func TestEstimateCovariance_Errors(t *testing.T) {
	_, err := EstimateCovariance(nil, Options{})
	assert.True(t, domain.IsInsufficientData(err))

	series := priceSeries()
	series[2].Prices = series[2].Prices[:5]
	_, err = EstimateCovariance(series, Options{})
	assert.True(t, domain.IsValidation(err))

	series = priceSeries()
	series[1].Symbol = "AAA"
	_, err = EstimateCovariance(series, Options{})
	assert.True(t, domain.IsValidation(err))

	series = priceSeries()
	series[0].Prices = make([]float64, 10)
	_, err = EstimateCovariance(series, Options{})
	assert.True(t, domain.IsInsufficientData(err))

	_, err = EstimateCovariance(priceSeries(), Options{Method: "garch"})
	assert.True(t, domain.IsValidation(err))
}

func TestEstimatePortfolio(t *testing.T) {
	positions := []domain.Position{
		{Symbol: "CCC", MarketValue: 300, Weight: 0.3},
		{Symbol: "AAA", MarketValue: 700, Weight: 0.7, ExpectedReturn: 0.002, Volatility: 0.05},
	}

	portfolio, est, err := EstimatePortfolio(positions, priceSeries(), Options{Method: MethodSample})
	require.NoError(t, err)

	// covariance follows position order: CCC then AAA
	assert.Equal(t, est.Covariance[2][2], portfolio.Covariance[0][0])
	assert.Equal(t, est.Covariance[0][0], portfolio.Covariance[1][1])
	assert.Equal(t, est.Covariance[2][0], portfolio.Covariance[0][1])

	assert.Equal(t, est.Volatilities[2], portfolio.Positions[0].Volatility)
	assert.Equal(t, est.MeanReturns[2], portfolio.Positions[0].ExpectedReturn)
	assert.Equal(t, 0.05, portfolio.Positions[1].Volatility, "explicit inputs are kept")
	assert.Equal(t, 0.002, portfolio.Positions[1].ExpectedReturn)

	_, _, err = EstimatePortfolio([]domain.Position{{Symbol: "ZZZ", Weight: 1}}, priceSeries(), Options{})
	assert.True(t, domain.IsValidation(err))
}
