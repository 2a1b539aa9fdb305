package risk

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/quantcore/internal/domain"
)

// evenlySpaced returns n values from lo to hi inclusive
func evenlySpaced(lo, hi float64, n int) []float64 {
	out := make([]float64, n)
	step := (hi - lo) / float64(n-1)
	for i := range out {
		out[i] = lo + float64(i)*step
	}
	return out
}

func TestHistoricalVaR_EvenlySpacedReturns(t *testing.T) {
	returns := evenlySpaced(-0.03, 0.03, 100)
	// shuffle order must not matter
	returns[0], returns[99] = returns[99], returns[0]
	first := returns[0]

	report, err := HistoricalVaR(returns, 0.95, 1)
	require.NoError(t, err)

	step := 0.06 / 99
	assert.InDelta(t, 0.03-5*step, report.VaR, 1e-12)

	worstSix := 0.0
	for i := 0; i <= 5; i++ {
		worstSix += -0.03 + float64(i)*step
	}
	assert.InDelta(t, -worstSix/6, report.ExpectedShortfall, 1e-12)
	assert.Equal(t, domain.MethodHistorical, report.Method)
	assert.Equal(t, 100, report.SampleSize)
	assert.GreaterOrEqual(t, report.ExpectedShortfall, report.VaR)

	// input is left untouched
	assert.Equal(t, first, returns[0])
}

func TestHistoricalVaR_HoldingPeriodScaling(t *testing.T) {
	returns := evenlySpaced(-0.03, 0.03, 100)

	oneDay, err := HistoricalVaR(returns, 0.95, 1)
	require.NoError(t, err)
	tenDay, err := HistoricalVaR(returns, 0.95, 10)
	require.NoError(t, err)

	assert.InDelta(t, oneDay.VaR*math.Sqrt(10), tenDay.VaR, 1e-12)
	assert.InDelta(t, oneDay.ExpectedShortfall*math.Sqrt(10), tenDay.ExpectedShortfall, 1e-12)
}

func TestVaR_MonotoneInConfidence(t *testing.T) {
	returns := evenlySpaced(-0.05, 0.04, 250)

	h95, err := HistoricalVaR(returns, 0.95, 1)
	require.NoError(t, err)
	h99, err := HistoricalVaR(returns, 0.99, 1)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, h99.VaR, h95.VaR)

	p95, err := ParametricVaR(0.0005, 0.015, 0.95, 1)
	require.NoError(t, err)
	p99, err := ParametricVaR(0.0005, 0.015, 0.99, 1)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, p99.VaR, p95.VaR)
}

func TestParametricVaR(t *testing.T) {
	report, err := ParametricVaR(0.001, 0.02, 0.95, 1)
	require.NoError(t, err)

	assert.InDelta(t, 1.645*0.02-0.001, report.VaR, 1e-4)
	// ES of a normal at 95%: σ·φ(1.645)/0.05 ≈ 2.063σ
	assert.InDelta(t, 2.0627*0.02-0.001, report.ExpectedShortfall, 1e-4)
	assert.Equal(t, domain.MethodParametric, report.Method)

	tenDay, err := ParametricVaR(0.001, 0.02, 0.99, 10)
	require.NoError(t, err)
	assert.InDelta(t, -(0.01 - 2.3263*0.02*math.Sqrt(10)), tenDay.VaR, 1e-4)
}

func TestVaR_Validation(t *testing.T) {
	tests := []struct {
		name  string
		run   func() error
		check func(error) bool
	}{
		{"empty returns", func() error { _, err := HistoricalVaR(nil, 0.95, 1); return err }, domain.IsInsufficientData},
		{"confidence one", func() error { _, err := HistoricalVaR([]float64{0.1}, 1, 1); return err }, domain.IsValidation},
		{"confidence zero", func() error { _, err := ParametricVaR(0, 0.1, 0, 1); return err }, domain.IsValidation},
		{"holding period zero", func() error { _, err := HistoricalVaR([]float64{0.1}, 0.95, 0); return err }, domain.IsValidation},
		{"negative volatility", func() error { _, err := ParametricVaR(0, -0.1, 0.95, 1); return err }, domain.IsValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.run()
			require.Error(t, err)
			assert.True(t, tt.check(err), "unexpected error type: %v", err)
		})
	}
}
