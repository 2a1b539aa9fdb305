// Package services orchestrates the analytics modules for the HTTP and CLI surfaces.
package services

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/aristath/quantcore/internal/config"
	"github.com/aristath/quantcore/internal/domain"
	"github.com/aristath/quantcore/internal/modules/bonds"
	"github.com/aristath/quantcore/internal/modules/credit"
	"github.com/aristath/quantcore/internal/modules/curves"
	"github.com/aristath/quantcore/internal/modules/estimation"
	"github.com/aristath/quantcore/internal/modules/factors"
	"github.com/aristath/quantcore/internal/modules/regulatory"
	"github.com/aristath/quantcore/internal/modules/risk"
	"github.com/aristath/quantcore/internal/modules/simulation"
	"github.com/aristath/quantcore/internal/modules/stress"
	"github.com/aristath/quantcore/pkg/logger"
)

const (
	defaultConfidence    = 0.95
	defaultHoldingPeriod = 1
)

// AnalyticsService applies configured defaults around the analytics modules, tags reports
// with IDs and logs outcomes. The modules themselves stay free of logging and configuration.
type AnalyticsService struct {
	cfg   *config.Config
	cache *curves.Cache
	log   zerolog.Logger
	now   func() time.Time
}

// NewAnalyticsService creates the analytics service. A nil cache disables curve caching.
func NewAnalyticsService(cfg *config.Config, cache *curves.Cache, log zerolog.Logger) *AnalyticsService {
	return &AnalyticsService{
		cfg:   cfg,
		cache: cache,
		log:   logger.Component(log, "analytics"),
		now:   time.Now,
	}
}

// CurveCache returns the cache shared by curve and spread requests
func (s *AnalyticsService) CurveCache() *curves.Cache {
	return s.cache
}

func (s *AnalyticsService) yieldOptions() bonds.YieldOptions {
	return bonds.YieldOptions{
		Tolerance:     s.cfg.Yield.Tolerance,
		MaxIterations: s.cfg.Yield.MaxIterations,
	}
}

// valuationDate defaults a zero date to today
func (s *AnalyticsService) valuationDate(t time.Time) time.Time {
	if t.IsZero() {
		return s.now().UTC().Truncate(24 * time.Hour)
	}
	return t
}

// BondPricingReport is the outcome of a pricing batch
type BondPricingReport struct {
	ID       string              `json:"id"`
	Items    []bonds.PricingItem `json:"items"`
	Failures int                 `json:"failures"`
}

// PriceBonds prices each request independently
func (s *AnalyticsService) PriceBonds(requests []bonds.PricingRequest, valuationDate time.Time) (BondPricingReport, error) {
	if len(requests) == 0 {
		return BondPricingReport{}, &domain.InsufficientDataError{What: "bonds", Need: 1, Got: 0}
	}
	items := bonds.PriceBatch(requests, s.valuationDate(valuationDate))

	report := BondPricingReport{ID: uuid.New().String(), Items: items}
	for _, item := range items {
		if item.Err != nil {
			report.Failures++
			s.log.Warn().Err(item.Err).Str("bond_id", item.BondID).Msg("Bond pricing failed")
		}
	}

	s.log.Info().
		Str("report_id", report.ID).
		Int("bonds", len(items)).
		Int("failures", report.Failures).
		Msg("Priced bonds")
	return report, nil
}

// YieldReport is the outcome of a yield batch
type YieldReport struct {
	ID       string            `json:"id"`
	Items    []bonds.YieldItem `json:"items"`
	Failures int               `json:"failures"`
}

// SolveYields solves the yield to maturity of every bond in the universe independently
func (s *AnalyticsService) SolveYields(universe domain.BondUniverse, valuationDate time.Time) (YieldReport, error) {
	items, err := bonds.YieldBatch(universe, s.valuationDate(valuationDate), s.yieldOptions())
	if err != nil {
		return YieldReport{}, err
	}

	report := YieldReport{ID: uuid.New().String(), Items: items, Failures: bonds.Failures(items)}
	for _, item := range items {
		if item.Err != nil {
			s.log.Warn().Err(item.Err).Str("bond_id", item.BondID).Msg("Yield solve failed")
		}
	}

	s.log.Info().
		Str("report_id", report.ID).
		Int("bonds", len(items)).
		Int("failures", report.Failures).
		Msg("Solved yields")
	return report, nil
}

// CurveReport wraps a bootstrapped curve with whether it came from the cache
type CurveReport struct {
	curves.CurveResult
	Cached bool `json:"cached"`
}

// BootstrapCurve builds, or fetches from cache, the zero curve of a universe.
// An empty method uses the configured default.
func (s *AnalyticsService) BootstrapCurve(universe domain.BondUniverse, valuationDate time.Time, method string) (CurveReport, error) {
	if method == "" {
		method = s.cfg.Curve.BootstrapMethod
	}
	m, err := curves.ParseMethod(method)
	if err != nil {
		return CurveReport{}, err
	}

	date := s.valuationDate(valuationDate)
	result, hit, err := curves.BootstrapCached(s.cache, universe, date, curves.Options{Method: m, Yield: s.yieldOptions()})
	if err != nil {
		s.log.Error().Err(err).Str("method", string(m)).Int("bonds", len(universe.Bonds)).Msg("Curve bootstrap failed")
		return CurveReport{}, err
	}

	s.log.Info().
		Str("method", string(m)).
		Int("bonds", len(universe.Bonds)).
		Int("points", len(result.Curve.Points)).
		Bool("cached", hit).
		Msg("Bootstrapped curve")
	return CurveReport{CurveResult: result, Cached: hit}, nil
}

// CreditSpread measures a bond's yield over the risk-free curve
func (s *AnalyticsService) CreditSpread(b domain.Bond, riskFree domain.YieldCurve, marketPrice float64, valuationDate time.Time) (credit.SpreadResult, error) {
	result, err := credit.CreditSpread(b, riskFree, marketPrice, s.valuationDate(valuationDate), s.yieldOptions())
	if err != nil {
		s.log.Warn().Err(err).Str("bond_id", b.ID).Msg("Credit spread failed")
		return credit.SpreadResult{}, err
	}
	return result, nil
}

// OptionAdjustedSpread estimates the OAS of a callable or putable bond
func (s *AnalyticsService) OptionAdjustedSpread(b domain.Bond, riskFree domain.YieldCurve, marketPrice float64, valuationDate time.Time, volatility float64) (credit.OASResult, error) {
	result, err := credit.OptionAdjustedSpread(b, riskFree, marketPrice, s.valuationDate(valuationDate), volatility, s.yieldOptions())
	if err != nil {
		s.log.Warn().Err(err).Str("bond_id", b.ID).Msg("Option-adjusted spread failed")
		return credit.OASResult{}, err
	}
	return result, nil
}

// RiskRequest selects a VaR method and its inputs.
//
// Historical VaR needs Returns. Parametric and Monte Carlo VaR use Mean and Volatility, or
// derive them from Portfolio when Volatility is zero.
type RiskRequest struct {
	Method          domain.RiskMethod `json:"method"`
	ConfidenceLevel float64           `json:"confidence_level"`
	HoldingPeriod   int               `json:"holding_period"`
	Returns         []float64         `json:"returns,omitempty"`
	Mean            float64           `json:"mean"`
	Volatility      float64           `json:"volatility"`
	Portfolio       *domain.Portfolio `json:"portfolio,omitempty"`
	Simulations     int               `json:"simulations,omitempty"`
	Seed            uint64            `json:"seed,omitempty"`
}

// ComputeRisk dispatches to the requested VaR method, parametric by default
func (s *AnalyticsService) ComputeRisk(ctx context.Context, req RiskRequest) (domain.RiskReport, error) {
	if req.Method == "" {
		req.Method = domain.MethodParametric
	}
	if req.ConfidenceLevel == 0 {
		req.ConfidenceLevel = defaultConfidence
	}
	if req.HoldingPeriod == 0 {
		req.HoldingPeriod = defaultHoldingPeriod
	}

	var (
		report domain.RiskReport
		err    error
	)
	switch req.Method {
	case domain.MethodHistorical:
		report, err = risk.HistoricalVaR(req.Returns, req.ConfidenceLevel, req.HoldingPeriod)
	case domain.MethodParametric, domain.MethodMonteCarlo:
		mean, vol, derr := s.distribution(req)
		if derr != nil {
			return domain.RiskReport{}, derr
		}
		if req.Method == domain.MethodParametric {
			report, err = risk.ParametricVaR(mean, vol, req.ConfidenceLevel, req.HoldingPeriod)
		} else {
			report, err = s.monteCarloVaR(ctx, mean, vol, req)
		}
	default:
		return domain.RiskReport{}, &domain.ValidationError{Field: "method", Reason: fmt.Sprintf("unknown risk method %q", req.Method)}
	}
	if err != nil {
		s.log.Warn().Err(err).Str("method", string(req.Method)).Msg("Risk calculation failed")
		return domain.RiskReport{}, err
	}

	report.ID = uuid.New().String()
	s.log.Info().
		Str("report_id", report.ID).
		Str("method", string(report.Method)).
		Float64("confidence", report.ConfidenceLevel).
		Float64("var", report.VaR).
		Float64("expected_shortfall", report.ExpectedShortfall).
		Msg("Computed risk report")
	return report, nil
}

// distribution returns the per-period mean and volatility of the request
func (s *AnalyticsService) distribution(req RiskRequest) (float64, float64, error) {
	if req.Volatility != 0 || req.Portfolio == nil {
		return req.Mean, req.Volatility, nil
	}

	p := req.Portfolio
	if err := p.Validate(); err != nil {
		return 0, 0, err
	}
	if p.Covariance == nil {
		return 0, 0, &domain.ValidationError{Field: "portfolio.covariance", Reason: "required to derive volatility"}
	}

	weights := p.Weights()
	mean, variance := 0.0, 0.0
	for i, wi := range weights {
		mean += wi * p.Positions[i].ExpectedReturn
		for j, wj := range weights {
			variance += wi * wj * p.Covariance[i][j]
		}
	}
	if !(variance > 0) {
		return 0, 0, &domain.ValidationError{Field: "portfolio.covariance", Reason: "portfolio variance must be positive"}
	}
	return mean, math.Sqrt(variance), nil
}

func (s *AnalyticsService) monteCarloVaR(ctx context.Context, mean, vol float64, req RiskRequest) (domain.RiskReport, error) {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.MonteCarlo.Timeout)
	defer cancel()

	sims := req.Simulations
	if sims == 0 {
		sims = s.cfg.MonteCarlo.Simulations
	}
	return risk.MonteCarloVaR(ctx, mean, vol, req.ConfidenceLevel, req.HoldingPeriod, sims, s.simulationOptions(req.Seed, "monte_carlo_var"))
}

// simulationOptions resolves the seed: request, then config, then the clock.
// A clock seed is logged so the run can be reproduced.
func (s *AnalyticsService) simulationOptions(seed uint64, run string) simulation.Options {
	if seed == 0 {
		seed = s.cfg.MonteCarlo.Seed
	}
	if seed == 0 {
		seed = uint64(s.now().UnixNano())
		s.log.Info().Str("run", run).Uint64("seed", seed).Msg("Seeded simulation from clock")
	}
	return simulation.Options{Seed: seed, Workers: s.cfg.MonteCarlo.Workers}
}

// PortfolioRisk decomposes parametric portfolio VaR by asset
func (s *AnalyticsService) PortfolioRisk(portfolio domain.Portfolio, confidence float64) (risk.PortfolioRiskResult, error) {
	if confidence == 0 {
		confidence = defaultConfidence
	}
	result, err := risk.PortfolioRisk(portfolio.Positions, portfolio.Covariance, confidence)
	if err != nil {
		s.log.Warn().Err(err).Int("positions", len(portfolio.Positions)).Msg("Portfolio risk failed")
		return risk.PortfolioRiskResult{}, err
	}

	s.log.Info().
		Int("positions", len(portfolio.Positions)).
		Float64("volatility", result.Volatility).
		Float64("var", result.VaR).
		Msg("Computed portfolio risk")
	return result, nil
}

// HistoricalStressTest replays the given scenarios and, when requested, the standard episodes
func (s *AnalyticsService) HistoricalStressTest(portfolio domain.Portfolio, scenarios []domain.StressScenario, includeStandard bool) (stress.HistoricalResult, error) {
	all := make([]domain.StressScenario, 0, len(scenarios)+len(stress.StandardScenarios()))
	all = append(all, scenarios...)
	if includeStandard {
		all = append(all, stress.StandardStressScenarios(portfolio)...)
	}

	result, err := stress.HistoricalStressTest(portfolio, all)
	if err != nil {
		s.log.Warn().Err(err).Int("scenarios", len(all)).Msg("Historical stress test failed")
		return stress.HistoricalResult{}, err
	}

	event := s.log.Info().
		Int("scenarios", len(all)).
		Int("failed", result.Failed).
		Float64("mean_return", result.MeanReturn)
	if result.WorstCase != nil {
		event = event.Str("worst_case", result.WorstCase.Name).Float64("worst_return", result.WorstCase.PortfolioReturn)
	}
	event.Msg("Ran historical stress test")
	return result, nil
}

// MonteCarloStressTest simulates shocked portfolio returns under the configured timeout
func (s *AnalyticsService) MonteCarloStressTest(ctx context.Context, portfolio domain.Portfolio, params stress.ShockParameters, simulations int, seed uint64) (stress.MonteCarloResult, error) {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.MonteCarlo.Timeout)
	defer cancel()

	if simulations == 0 {
		simulations = s.cfg.MonteCarlo.Simulations
	}
	result, err := stress.MonteCarloStressTest(ctx, portfolio, params, simulations, s.simulationOptions(seed, "monte_carlo_stress"))
	if err != nil {
		s.log.Warn().Err(err).Int("simulations", simulations).Msg("Monte Carlo stress test failed")
		return stress.MonteCarloResult{}, err
	}

	s.log.Info().
		Int("simulations", simulations).
		Float64("percentile_5", result.Percentile5).
		Float64("probability_of_loss", result.ProbabilityOfLoss).
		Msg("Ran Monte Carlo stress test")
	return result, nil
}

// StandardScenarios lists the built-in historical episodes
func (s *AnalyticsService) StandardScenarios() []stress.NamedScenario {
	return stress.StandardScenarios()
}

// FactorModel regresses asset returns on factor returns
func (s *AnalyticsService) FactorModel(assetReturns, factorReturns [][]float64, factorNames []string) (factors.Model, error) {
	model, err := factors.BuildFactorModel(assetReturns, factorReturns, factorNames)
	if err != nil {
		s.log.Warn().Err(err).Int("assets", len(assetReturns)).Int("factors", len(factorNames)).Msg("Factor model failed")
		return factors.Model{}, err
	}
	s.log.Info().Int("assets", len(model.Assets)).Int("observations", model.Observations).Msg("Built factor model")
	return model, nil
}

// BaselIII computes capital ratios. Nil risk weights use the defaults.
func (s *AnalyticsService) BaselIII(positions []domain.Position, riskWeights map[domain.AssetClass]float64) (regulatory.BaselResult, error) {
	result, err := regulatory.BaselIII(positions, riskWeights)
	if err != nil {
		s.log.Warn().Err(err).Msg("Basel III calculation failed")
		return regulatory.BaselResult{}, err
	}
	s.log.Info().
		Str("rwa", result.RiskWeightedAssets.StringFixed(2)).
		Bool("tier1_adequate", result.Tier1Adequate).
		Bool("leverage_adequate", result.LeverageAdequate).
		Msg("Computed Basel III ratios")
	return result, nil
}

// CreditRisk computes expected and unexpected credit losses
func (s *AnalyticsService) CreditRisk(exposures []regulatory.CreditExposure) (regulatory.CreditRiskResult, error) {
	result, err := regulatory.CreditRisk(exposures)
	if err != nil {
		s.log.Warn().Err(err).Msg("Credit risk calculation failed")
		return regulatory.CreditRiskResult{}, err
	}
	return result, nil
}

// LiquidityAdjustedRisk scales position VaR for liquidation horizon and spread
func (s *AnalyticsService) LiquidityAdjustedRisk(inputs []regulatory.LiquidityInput) (regulatory.LiquidityReport, error) {
	result, err := regulatory.LiquidityAdjustedRisk(inputs)
	if err != nil {
		s.log.Warn().Err(err).Msg("Liquidity-adjusted risk failed")
		return regulatory.LiquidityReport{}, err
	}
	return result, nil
}

// EstimateCovariance estimates returns and covariance from price histories
func (s *AnalyticsService) EstimateCovariance(series []estimation.PriceSeries, opts estimation.Options) (estimation.Estimate, error) {
	est, err := estimation.EstimateCovariance(series, opts)
	if err != nil {
		s.log.Warn().Err(err).Int("series", len(series)).Msg("Covariance estimation failed")
		return estimation.Estimate{}, err
	}

	s.log.Info().
		Int("assets", len(est.Symbols)).
		Int("observations", est.Observations).
		Int("filled_prices", est.FilledPrices).
		Str("method", string(est.Method)).
		Msg("Estimated covariance")
	if len(est.HighCorrelations) > 0 {
		s.log.Debug().Int("pairs", len(est.HighCorrelations)).Msg("Highly correlated pairs found")
	}
	return est, nil
}

// EstimatePortfolio fills a portfolio's covariance and missing moments from price histories,
// returning the estimate it was built from
func (s *AnalyticsService) EstimatePortfolio(positions []domain.Position, series []estimation.PriceSeries, opts estimation.Options) (domain.Portfolio, estimation.Estimate, error) {
	portfolio, est, err := estimation.EstimatePortfolio(positions, series, opts)
	if err != nil {
		s.log.Warn().Err(err).Int("positions", len(positions)).Msg("Portfolio estimation failed")
		return domain.Portfolio{}, estimation.Estimate{}, err
	}
	s.log.Info().
		Int("positions", len(portfolio.Positions)).
		Int("observations", est.Observations).
		Str("method", string(est.Method)).
		Msg("Estimated portfolio inputs")
	return portfolio, est, nil
}
