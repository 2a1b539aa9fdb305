package services

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/quantcore/internal/config"
	"github.com/aristath/quantcore/internal/domain"
	"github.com/aristath/quantcore/internal/modules/bonds"
	"github.com/aristath/quantcore/internal/modules/curves"
	"github.com/aristath/quantcore/internal/modules/risk"
	"github.com/aristath/quantcore/internal/modules/stress"
	"github.com/aristath/quantcore/pkg/logger"
)

var valuationDate = time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)

func testConfig() *config.Config {
	return &config.Config{
		LogLevel: "info",
		Port:     8001,
		MonteCarlo: config.MonteCarloConfig{
			Simulations: 4000,
			Workers:     2,
			Seed:        7,
			Timeout:     10 * time.Second,
		},
		Yield: config.YieldConfig{Tolerance: 1e-8, MaxIterations: 100},
		Curve: config.CurveConfig{BootstrapMethod: "iterative"},
	}
}

func newTestService(cfg *config.Config) *AnalyticsService {
	return NewAnalyticsService(cfg, curves.NewCache(), zerolog.Nop())
}

func twoAssetPortfolio() domain.Portfolio {
	return domain.Portfolio{
		Positions: []domain.Position{
			{Symbol: "EQ", AssetClass: domain.AssetClassEquity, MarketValue: 600000, Weight: 0.6, ExpectedReturn: 0.0005, Volatility: 0.02, Beta: 1.1},
			{Symbol: "GOV", AssetClass: domain.AssetClassGovernmentBond, MarketValue: 400000, Weight: 0.4, ExpectedReturn: 0.0002, Volatility: 0.005, Beta: -0.1},
		},
		Covariance: [][]float64{
			{0.0004, -0.00001},
			{-0.00001, 0.000025},
		},
	}
}

func treasuries(t *testing.T) domain.BondUniverse {
	t.Helper()

	var universe domain.BondUniverse
	for i, y := range []float64{0.030, 0.034, 0.038} {
		b := domain.Bond{
			ID:         uuid.NewString(),
			FaceValue:  1000,
			CouponRate: 0.035,
			Frequency:  2,
			Maturity:   valuationDate.AddDate(i+1, 0, 0),
		}
		priced, err := bonds.Price(b, y, valuationDate)
		require.NoError(t, err)
		universe.Bonds = append(universe.Bonds, b)
		universe.Prices = append(universe.Prices, priced.CleanPrice)
	}
	return universe
}

func TestNewAnalyticsService_TagsLogComponent(t *testing.T) {
	var buf bytes.Buffer
	svc := NewAnalyticsService(testConfig(), curves.NewCache(), logger.New(logger.Config{Level: "info", Output: &buf}))

	_, err := svc.ComputeRisk(context.Background(), RiskRequest{Volatility: 0.02})
	require.NoError(t, err)
	assert.Contains(t, buf.String(), `"component":"analytics"`)
}

func TestComputeRisk_DefaultsToParametric(t *testing.T) {
	svc := newTestService(testConfig())

	report, err := svc.ComputeRisk(context.Background(), RiskRequest{Mean: 0.0005, Volatility: 0.02})
	require.NoError(t, err)

	want, err := risk.ParametricVaR(0.0005, 0.02, 0.95, 1)
	require.NoError(t, err)

	assert.Equal(t, domain.MethodParametric, report.Method)
	assert.Equal(t, 0.95, report.ConfidenceLevel)
	assert.Equal(t, 1, report.HoldingPeriod)
	assert.InDelta(t, want.VaR, report.VaR, 1e-15)
	_, err = uuid.Parse(report.ID)
	assert.NoError(t, err)
}

func TestComputeRisk_Historical(t *testing.T) {
	svc := newTestService(testConfig())
	returns := []float64{-0.05, -0.03, -0.01, 0.0, 0.01, 0.02, 0.02, 0.03, 0.04, 0.05}

	report, err := svc.ComputeRisk(context.Background(), RiskRequest{
		Method:          domain.MethodHistorical,
		ConfidenceLevel: 0.9,
		Returns:         returns,
	})
	require.NoError(t, err)
	assert.Equal(t, domain.MethodHistorical, report.Method)
	assert.InDelta(t, 0.03, report.VaR, 1e-12)

	_, err = svc.ComputeRisk(context.Background(), RiskRequest{Method: domain.MethodHistorical})
	assert.True(t, domain.IsInsufficientData(err))
}

func TestComputeRisk_DerivesMomentsFromPortfolio(t *testing.T) {
	svc := newTestService(testConfig())
	p := twoAssetPortfolio()

	fromPortfolio, err := svc.ComputeRisk(context.Background(), RiskRequest{Portfolio: &p, ConfidenceLevel: 0.99})
	require.NoError(t, err)

	breakdown, err := risk.PortfolioRisk(p.Positions, p.Covariance, 0.99)
	require.NoError(t, err)
	explicit, err := svc.ComputeRisk(context.Background(), RiskRequest{
		Mean:            breakdown.ExpectedReturn,
		Volatility:      breakdown.Volatility,
		ConfidenceLevel: 0.99,
	})
	require.NoError(t, err)

	assert.InDelta(t, explicit.VaR, fromPortfolio.VaR, 1e-12)
	assert.NotEqual(t, explicit.ID, fromPortfolio.ID)

	p.Covariance = nil
	_, err = svc.ComputeRisk(context.Background(), RiskRequest{Portfolio: &p})
	assert.True(t, domain.IsValidation(err))
}

func TestComputeRisk_RejectsNonPositivePortfolioVariance(t *testing.T) {
	svc := newTestService(testConfig())

	tests := []struct {
		name       string
		method     domain.RiskMethod
		covariance [][]float64
	}{
		{"all zero", domain.MethodParametric, [][]float64{{0, 0}, {0, 0}}},
		{"not positive semi-definite", domain.MethodParametric, [][]float64{{0.0001, -0.01}, {-0.01, 0.0001}}},
		{"monte carlo with zero variance", domain.MethodMonteCarlo, [][]float64{{0, 0}, {0, 0}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := twoAssetPortfolio()
			p.Covariance = tt.covariance

			report, err := svc.ComputeRisk(context.Background(), RiskRequest{Method: tt.method, Portfolio: &p})
			require.Error(t, err)
			assert.True(t, domain.IsValidation(err))
			assert.Empty(t, report.ID)
		})
	}
}

func TestComputeRisk_MonteCarloUsesConfiguredSeed(t *testing.T) {
	svc := newTestService(testConfig())
	req := RiskRequest{Method: domain.MethodMonteCarlo, Mean: 0, Volatility: 0.02}

	first, err := svc.ComputeRisk(context.Background(), req)
	require.NoError(t, err)
	second, err := svc.ComputeRisk(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, 4000, first.Simulations)
	assert.Equal(t, first.VaR, second.VaR)

	req.Seed = 99
	reseeded, err := svc.ComputeRisk(context.Background(), req)
	require.NoError(t, err)
	assert.NotEqual(t, first.VaR, reseeded.VaR)
}

func TestComputeRisk_MonteCarloTimeout(t *testing.T) {
	cfg := testConfig()
	cfg.MonteCarlo.Timeout = time.Nanosecond
	svc := newTestService(cfg)

	_, err := svc.ComputeRisk(context.Background(), RiskRequest{Method: domain.MethodMonteCarlo, Volatility: 0.02, Simulations: 200000})
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
}

func TestComputeRisk_UnknownMethod(t *testing.T) {
	svc := newTestService(testConfig())

	_, err := svc.ComputeRisk(context.Background(), RiskRequest{Method: "garch", Volatility: 0.02})
	assert.True(t, domain.IsValidation(err))
}

func TestBootstrapCurve_UsesCache(t *testing.T) {
	svc := newTestService(testConfig())
	universe := treasuries(t)

	first, err := svc.BootstrapCurve(universe, valuationDate, "")
	require.NoError(t, err)
	assert.False(t, first.Cached)
	assert.Equal(t, "iterative", first.Curve.Method)
	assert.Len(t, first.Curve.Points, 3)

	second, err := svc.BootstrapCurve(universe, valuationDate, "")
	require.NoError(t, err)
	assert.True(t, second.Cached)
	assert.Equal(t, first.Curve, second.Curve)
	assert.Equal(t, 1, svc.CurveCache().Len())

	simplified, err := svc.BootstrapCurve(universe, valuationDate, "simplified")
	require.NoError(t, err)
	assert.False(t, simplified.Cached)
	assert.Equal(t, 2, svc.CurveCache().Len())

	_, err = svc.BootstrapCurve(universe, valuationDate, "spline")
	assert.True(t, domain.IsValidation(err))
}

func TestPriceBonds_CountsFailures(t *testing.T) {
	svc := newTestService(testConfig())
	good := domain.Bond{ID: "GOOD", FaceValue: 1000, CouponRate: 0.05, Frequency: 2, Maturity: valuationDate.AddDate(5, 0, 0)}
	bad := good
	bad.ID = "BAD"
	bad.FaceValue = 0

	report, err := svc.PriceBonds([]bonds.PricingRequest{{Bond: good, Yield: 0.05}, {Bond: bad, Yield: 0.05}}, valuationDate)
	require.NoError(t, err)

	assert.Equal(t, 1, report.Failures)
	require.NotNil(t, report.Items[0].Result)
	assert.InDelta(t, 1000, report.Items[0].Result.CleanPrice, 1e-6)
	assert.Nil(t, report.Items[1].Result)

	_, err = svc.PriceBonds(nil, valuationDate)
	assert.True(t, domain.IsInsufficientData(err))
}

func TestSolveYields(t *testing.T) {
	svc := newTestService(testConfig())

	report, err := svc.SolveYields(treasuries(t), valuationDate)
	require.NoError(t, err)
	assert.Zero(t, report.Failures)
	require.NotNil(t, report.Items[0].Result)
	assert.InDelta(t, 0.030, report.Items[0].Result.YTM, 1e-6)
}

func TestHistoricalStressTest_IncludesStandardScenarios(t *testing.T) {
	svc := newTestService(testConfig())
	custom := domain.StressScenario{Name: "custom", Returns: []float64{-0.1, 0.02}}

	only, err := svc.HistoricalStressTest(twoAssetPortfolio(), []domain.StressScenario{custom}, false)
	require.NoError(t, err)
	assert.Len(t, only.Scenarios, 1)
	assert.InDelta(t, 0.6*-0.1+0.4*0.02, only.Scenarios[0].PortfolioReturn, 1e-15)

	all, err := svc.HistoricalStressTest(twoAssetPortfolio(), []domain.StressScenario{custom}, true)
	require.NoError(t, err)
	assert.Len(t, all.Scenarios, 1+len(svc.StandardScenarios()))
}

func TestMonteCarloStressTest_Defaults(t *testing.T) {
	svc := newTestService(testConfig())

	result, err := svc.MonteCarloStressTest(context.Background(), twoAssetPortfolio(), stress.ShockParameters{ShockFactor: 2}, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, 4000, result.Simulations)

	again, err := svc.MonteCarloStressTest(context.Background(), twoAssetPortfolio(), stress.ShockParameters{ShockFactor: 2}, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, result, again)
}

func TestSimulationOptions_ClockSeedWhenUnset(t *testing.T) {
	cfg := testConfig()
	cfg.MonteCarlo.Seed = 0
	svc := newTestService(cfg)
	svc.now = func() time.Time { return time.Unix(0, 12345) }

	assert.Equal(t, uint64(12345), svc.simulationOptions(0, "test").Seed)
	assert.Equal(t, uint64(3), svc.simulationOptions(3, "test").Seed)
	assert.Equal(t, 2, svc.simulationOptions(0, "test").Workers)
}
