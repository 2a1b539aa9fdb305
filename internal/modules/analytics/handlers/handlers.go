// Package handlers provides HTTP handlers for the analytics operations.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/quantcore/internal/domain"
	"github.com/aristath/quantcore/internal/modules/bonds"
	"github.com/aristath/quantcore/internal/modules/estimation"
	"github.com/aristath/quantcore/internal/modules/regulatory"
	"github.com/aristath/quantcore/internal/modules/stress"
	"github.com/aristath/quantcore/internal/services"
	"github.com/aristath/quantcore/pkg/logger"
)

const maxBodyBytes = 10 << 20

// Handler handles analytics HTTP requests
type Handler struct {
	service *services.AnalyticsService
	log     zerolog.Logger
}

// NewHandler creates a new analytics handler
func NewHandler(service *services.AnalyticsService, log zerolog.Logger) *Handler {
	return &Handler{
		service: service,
		log:     logger.Component(log, "analytics_handlers"),
	}
}

// PriceBondsRequest prices bonds at given yields
type PriceBondsRequest struct {
	ValuationDate time.Time              `json:"valuation_date"`
	Bonds         []bonds.PricingRequest `json:"bonds"`
}

// UniverseRequest carries a bond universe for yield and curve operations
type UniverseRequest struct {
	ValuationDate time.Time     `json:"valuation_date"`
	Method        string        `json:"method,omitempty"`
	Bonds         []domain.Bond `json:"bonds"`
	Prices        []float64     `json:"prices"`
}

func (r UniverseRequest) universe() domain.BondUniverse {
	return domain.BondUniverse{Bonds: r.Bonds, Prices: r.Prices}
}

// SpreadRequest measures a bond against a risk-free curve. Volatility is used by OAS only.
type SpreadRequest struct {
	ValuationDate time.Time         `json:"valuation_date"`
	Bond          domain.Bond       `json:"bond"`
	RiskFreeCurve domain.YieldCurve `json:"risk_free_curve"`
	MarketPrice   float64           `json:"market_price"`
	Volatility    float64           `json:"volatility"`
}

// PortfolioRiskRequest decomposes portfolio VaR
type PortfolioRiskRequest struct {
	Portfolio       domain.Portfolio `json:"portfolio"`
	ConfidenceLevel float64          `json:"confidence_level"`
}

// StressTestRequest replays scenarios against a portfolio
type StressTestRequest struct {
	Portfolio       domain.Portfolio        `json:"portfolio"`
	Scenarios       []domain.StressScenario `json:"scenarios"`
	IncludeStandard bool                    `json:"include_standard"`
}

// MonteCarloStressRequest simulates shocked returns
type MonteCarloStressRequest struct {
	Portfolio   domain.Portfolio       `json:"portfolio"`
	Shock       stress.ShockParameters `json:"shock"`
	Simulations int                    `json:"simulations,omitempty"`
	Seed        uint64                 `json:"seed,omitempty"`
}

// FactorModelRequest regresses asset returns on factor returns
type FactorModelRequest struct {
	AssetReturns  [][]float64 `json:"asset_returns"`
	FactorReturns [][]float64 `json:"factor_returns"`
	FactorNames   []string    `json:"factor_names"`
}

// BaselRequest computes capital ratios. Missing risk weights use the defaults.
type BaselRequest struct {
	Positions   []domain.Position             `json:"positions"`
	RiskWeights map[domain.AssetClass]float64 `json:"risk_weights,omitempty"`
}

// CreditRiskRequest lists credit exposures
type CreditRiskRequest struct {
	Exposures []regulatory.CreditExposure `json:"exposures"`
}

// LiquidityRequest lists positions to adjust for liquidity
type LiquidityRequest struct {
	Positions []regulatory.LiquidityInput `json:"positions"`
}

// EstimationRequest estimates covariance from price histories. When Positions are given the
// response also carries the assembled portfolio.
type EstimationRequest struct {
	Series    []estimation.PriceSeries `json:"series"`
	Options   estimation.Options       `json:"options"`
	Positions []domain.Position        `json:"positions,omitempty"`
}

// HandlePriceBonds handles POST /api/analytics/bonds/price
func (h *Handler) HandlePriceBonds(w http.ResponseWriter, r *http.Request) {
	var req PriceBondsRequest
	if !h.decode(w, r, &req) {
		return
	}
	h.respond(w, r)(h.service.PriceBonds(req.Bonds, req.ValuationDate))
}

// HandleSolveYields handles POST /api/analytics/bonds/yield
func (h *Handler) HandleSolveYields(w http.ResponseWriter, r *http.Request) {
	var req UniverseRequest
	if !h.decode(w, r, &req) {
		return
	}
	h.respond(w, r)(h.service.SolveYields(req.universe(), req.ValuationDate))
}

// HandleBootstrapCurve handles POST /api/analytics/curves/bootstrap
func (h *Handler) HandleBootstrapCurve(w http.ResponseWriter, r *http.Request) {
	var req UniverseRequest
	if !h.decode(w, r, &req) {
		return
	}
	h.respond(w, r)(h.service.BootstrapCurve(req.universe(), req.ValuationDate, req.Method))
}

// HandleCreditSpread handles POST /api/analytics/credit/spread
func (h *Handler) HandleCreditSpread(w http.ResponseWriter, r *http.Request) {
	var req SpreadRequest
	if !h.decode(w, r, &req) {
		return
	}
	h.respond(w, r)(h.service.CreditSpread(req.Bond, req.RiskFreeCurve, req.MarketPrice, req.ValuationDate))
}

// HandleOptionAdjustedSpread handles POST /api/analytics/credit/oas
func (h *Handler) HandleOptionAdjustedSpread(w http.ResponseWriter, r *http.Request) {
	var req SpreadRequest
	if !h.decode(w, r, &req) {
		return
	}
	h.respond(w, r)(h.service.OptionAdjustedSpread(req.Bond, req.RiskFreeCurve, req.MarketPrice, req.ValuationDate, req.Volatility))
}

// HandleRisk handles POST /api/analytics/risk
func (h *Handler) HandleRisk(w http.ResponseWriter, r *http.Request) {
	var req services.RiskRequest
	if !h.decode(w, r, &req) {
		return
	}
	h.respond(w, r)(h.service.ComputeRisk(r.Context(), req))
}

// HandlePortfolioRisk handles POST /api/analytics/risk/portfolio
func (h *Handler) HandlePortfolioRisk(w http.ResponseWriter, r *http.Request) {
	var req PortfolioRiskRequest
	if !h.decode(w, r, &req) {
		return
	}
	h.respond(w, r)(h.service.PortfolioRisk(req.Portfolio, req.ConfidenceLevel))
}

// HandleStressTest handles POST /api/analytics/stress-test
func (h *Handler) HandleStressTest(w http.ResponseWriter, r *http.Request) {
	var req StressTestRequest
	if !h.decode(w, r, &req) {
		return
	}
	h.respond(w, r)(h.service.HistoricalStressTest(req.Portfolio, req.Scenarios, req.IncludeStandard))
}

// HandleMonteCarloStressTest handles POST /api/analytics/stress-test/monte-carlo
func (h *Handler) HandleMonteCarloStressTest(w http.ResponseWriter, r *http.Request) {
	var req MonteCarloStressRequest
	if !h.decode(w, r, &req) {
		return
	}
	h.respond(w, r)(h.service.MonteCarloStressTest(r.Context(), req.Portfolio, req.Shock, req.Simulations, req.Seed))
}

// HandleGetScenarios handles GET /api/analytics/stress-test/scenarios
func (h *Handler) HandleGetScenarios(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, envelope(h.service.StandardScenarios()))
}

// HandleFactorModel handles POST /api/analytics/factors
func (h *Handler) HandleFactorModel(w http.ResponseWriter, r *http.Request) {
	var req FactorModelRequest
	if !h.decode(w, r, &req) {
		return
	}
	h.respond(w, r)(h.service.FactorModel(req.AssetReturns, req.FactorReturns, req.FactorNames))
}

// HandleBasel handles POST /api/analytics/regulatory/basel
func (h *Handler) HandleBasel(w http.ResponseWriter, r *http.Request) {
	var req BaselRequest
	if !h.decode(w, r, &req) {
		return
	}
	h.respond(w, r)(h.service.BaselIII(req.Positions, req.RiskWeights))
}

// HandleCreditRisk handles POST /api/analytics/regulatory/credit-risk
func (h *Handler) HandleCreditRisk(w http.ResponseWriter, r *http.Request) {
	var req CreditRiskRequest
	if !h.decode(w, r, &req) {
		return
	}
	h.respond(w, r)(h.service.CreditRisk(req.Exposures))
}

// HandleLiquidity handles POST /api/analytics/regulatory/liquidity
func (h *Handler) HandleLiquidity(w http.ResponseWriter, r *http.Request) {
	var req LiquidityRequest
	if !h.decode(w, r, &req) {
		return
	}
	h.respond(w, r)(h.service.LiquidityAdjustedRisk(req.Positions))
}

// HandleEstimateCovariance handles POST /api/analytics/estimation/covariance
func (h *Handler) HandleEstimateCovariance(w http.ResponseWriter, r *http.Request) {
	var req EstimationRequest
	if !h.decode(w, r, &req) {
		return
	}

	if len(req.Positions) > 0 {
		portfolio, est, err := h.service.EstimatePortfolio(req.Positions, req.Series, req.Options)
		if err != nil {
			h.writeError(w, r, err)
			return
		}
		h.writeJSON(w, http.StatusOK, envelope(map[string]interface{}{"estimate": est, "portfolio": portfolio}))
		return
	}

	est, err := h.service.EstimateCovariance(req.Series, req.Options)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, envelope(map[string]interface{}{"estimate": est}))
}

// decode reads a JSON body into dst, answering 400 on malformed input
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		h.log.Warn().Err(err).Str("path", r.URL.Path).Msg("Invalid request body")
		h.writeJSON(w, http.StatusBadRequest, map[string]interface{}{"error": "invalid request body: " + err.Error()})
		return false
	}
	return true
}

// respond returns a writer for a (result, error) pair so handlers can pass a service call straight through
func (h *Handler) respond(w http.ResponseWriter, r *http.Request) func(interface{}, error) {
	return func(data interface{}, err error) {
		if err != nil {
			h.writeError(w, r, err)
			return
		}
		h.writeJSON(w, http.StatusOK, envelope(data))
	}
}

// StatusFor maps an analytics error to an HTTP status code
func StatusFor(err error) int {
	switch {
	case domain.IsValidation(err):
		return http.StatusBadRequest
	case domain.IsInsufficientData(err), domain.IsConvergence(err):
		return http.StatusUnprocessableEntity
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := StatusFor(err)
	event := h.log.Warn()
	if status >= http.StatusInternalServerError {
		event = h.log.Error()
	}
	event.Err(err).Str("path", r.URL.Path).Int("status", status).Msg("Analytics request failed")

	h.writeJSON(w, status, map[string]interface{}{
		"error": err.Error(),
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	})
}

func envelope(data interface{}) map[string]interface{} {
	return map[string]interface{}{
		"data": data,
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	}
}

// writeJSON writes a JSON response
func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}
