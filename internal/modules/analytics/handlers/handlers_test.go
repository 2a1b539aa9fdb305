package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/quantcore/internal/config"
	"github.com/aristath/quantcore/internal/domain"
	"github.com/aristath/quantcore/internal/modules/curves"
	"github.com/aristath/quantcore/internal/services"
)

func setupRouter(t *testing.T) *chi.Mux {
	t.Helper()

	cfg := &config.Config{
		LogLevel:   "info",
		Port:       8001,
		MonteCarlo: config.MonteCarloConfig{Simulations: 2000, Workers: 2, Seed: 1, Timeout: 10 * time.Second},
		Yield:      config.YieldConfig{Tolerance: 1e-8, MaxIterations: 100},
		Curve:      config.CurveConfig{BootstrapMethod: "iterative"},
	}
	logger := zerolog.New(nil).Level(zerolog.Disabled)
	handler := NewHandler(services.NewAnalyticsService(cfg, curves.NewCache(), logger), logger)

	router := chi.NewRouter()
	router.Route("/api", handler.RegisterRoutes)
	return router
}

type envelopeResponse struct {
	Data     json.RawMessage `json:"data"`
	Error    string          `json:"error"`
	Metadata struct {
		Timestamp string `json:"timestamp"`
	} `json:"metadata"`
}

func do(t *testing.T, router http.Handler, method, path string, body interface{}) (*httptest.ResponseRecorder, envelopeResponse) {
	t.Helper()

	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		payload, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	var resp envelopeResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), w.Body.String())
	return w, resp
}

func portfolioJSON() map[string]interface{} {
	return map[string]interface{}{
		"positions": []map[string]interface{}{
			{"symbol": "EQ", "asset_class": "equity", "market_value": 600000, "weight": 0.6, "expected_return": 0.0005, "volatility": 0.02, "beta": 1.1},
			{"symbol": "GOV", "asset_class": "government_bond", "market_value": 400000, "weight": 0.4, "expected_return": 0.0002, "volatility": 0.005},
		},
		"covariance": [][]float64{{0.0004, -0.00001}, {-0.00001, 0.000025}},
	}
}

func zeroVariancePortfolioJSON() map[string]interface{} {
	p := portfolioJSON()
	p["covariance"] = [][]float64{{0, 0}, {0, 0}}
	return p
}

func estimationSeriesJSON() []map[string]interface{} {
	return []map[string]interface{}{
		{"symbol": "AAA", "prices": []float64{100, 101, 99.5, 102, 103.5, 0, 104, 102.5, 105, 106}},
		{"symbol": "BBB", "prices": []float64{50, 50.4, 49.9, 50.8, 51.2, 51.0, 51.5, 51.1, 52.0, 52.3}},
	}
}

func TestRegisterRoutes(t *testing.T) {
	router := setupRouter(t)

	routes := map[string]bool{}
	require.NoError(t, chi.Walk(router, func(method, route string, _ http.Handler, _ ...func(http.Handler) http.Handler) error {
		routes[method+" "+strings.TrimSuffix(route, "/")] = true
		return nil
	}))

	for _, want := range []string{
		"POST /api/analytics/bonds/price",
		"POST /api/analytics/bonds/yield",
		"POST /api/analytics/curves/bootstrap",
		"POST /api/analytics/credit/spread",
		"POST /api/analytics/credit/oas",
		"POST /api/analytics/risk",
		"POST /api/analytics/risk/portfolio",
		"POST /api/analytics/stress-test",
		"POST /api/analytics/stress-test/monte-carlo",
		"GET /api/analytics/stress-test/scenarios",
		"POST /api/analytics/factors",
		"POST /api/analytics/regulatory/basel",
		"POST /api/analytics/regulatory/credit-risk",
		"POST /api/analytics/regulatory/liquidity",
		"POST /api/analytics/estimation/covariance",
	} {
		assert.True(t, routes[want], "missing route %s", want)
	}
}

func TestHandleRisk_Parametric(t *testing.T) {
	router := setupRouter(t)

	w, resp := do(t, router, http.MethodPost, "/api/analytics/risk", map[string]interface{}{
		"portfolio":        portfolioJSON(),
		"method":           "parametric",
		"confidence_level": 0.99,
	})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	assert.NotEmpty(t, resp.Metadata.Timestamp)

	var report domain.RiskReport
	require.NoError(t, json.Unmarshal(resp.Data, &report))
	assert.Equal(t, domain.MethodParametric, report.Method)
	assert.Equal(t, 0.99, report.ConfidenceLevel)
	assert.Greater(t, report.VaR, 0.0)
	assert.NotEmpty(t, report.ID)
}

func TestHandleStressTest(t *testing.T) {
	router := setupRouter(t)

	w, resp := do(t, router, http.MethodPost, "/api/analytics/stress-test", map[string]interface{}{
		"portfolio": portfolioJSON(),
		"scenarios": []map[string]interface{}{
			{"name": "equity_crash", "returns": []float64{-0.2, 0.03}},
			{"name": "bad_vector", "returns": []float64{-0.2}},
		},
	})
	require.Equal(t, http.StatusOK, w.Code)

	var result struct {
		Scenarios []struct {
			Name            string  `json:"name"`
			PortfolioReturn float64 `json:"portfolio_return"`
			Error           string  `json:"error"`
		} `json:"scenarios"`
		Failed int `json:"failed"`
	}
	require.NoError(t, json.Unmarshal(resp.Data, &result))
	require.Len(t, result.Scenarios, 2)
	assert.InDelta(t, 0.6*-0.2+0.4*0.03, result.Scenarios[0].PortfolioReturn, 1e-12)
	assert.NotEmpty(t, result.Scenarios[1].Error)
	assert.Equal(t, 1, result.Failed)
}

func TestHandleGetScenarios(t *testing.T) {
	router := setupRouter(t)

	w, resp := do(t, router, http.MethodGet, "/api/analytics/stress-test/scenarios", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var scenarios []map[string]interface{}
	require.NoError(t, json.Unmarshal(resp.Data, &scenarios))
	assert.Len(t, scenarios, 5)
}

func TestHandleBootstrapCurve(t *testing.T) {
	router := setupRouter(t)
	valuation := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)

	body := map[string]interface{}{
		"valuation_date": valuation,
		"bonds": []map[string]interface{}{
			{"id": "A", "face_value": 100, "coupon_rate": 0.03, "frequency": 2, "maturity": valuation.AddDate(1, 0, 0)},
			{"id": "B", "face_value": 100, "coupon_rate": 0.035, "frequency": 2, "maturity": valuation.AddDate(2, 0, 0)},
		},
		"prices": []float64{100, 100},
	}

	w, resp := do(t, router, http.MethodPost, "/api/analytics/curves/bootstrap", body)
	require.Equal(t, http.StatusOK, w.Code)

	var first struct {
		Curve  domain.YieldCurve `json:"curve"`
		Cached bool              `json:"cached"`
	}
	require.NoError(t, json.Unmarshal(resp.Data, &first))
	assert.Len(t, first.Curve.Points, 2)
	assert.False(t, first.Cached)

	_, resp = do(t, router, http.MethodPost, "/api/analytics/curves/bootstrap", body)
	var second struct {
		Cached bool `json:"cached"`
	}
	require.NoError(t, json.Unmarshal(resp.Data, &second))
	assert.True(t, second.Cached)
}

func TestHandleEstimateCovariance(t *testing.T) {
	router := setupRouter(t)

	t.Run("series only", func(t *testing.T) {
		w, resp := do(t, router, http.MethodPost, "/api/analytics/estimation/covariance", map[string]interface{}{
			"series":  estimationSeriesJSON(),
			"options": map[string]interface{}{"method": "sample"},
		})
		require.Equal(t, http.StatusOK, w.Code)

		var data map[string]json.RawMessage
		require.NoError(t, json.Unmarshal(resp.Data, &data))
		assert.Contains(t, data, "estimate")
		assert.NotContains(t, data, "portfolio")
	})

	t.Run("with positions", func(t *testing.T) {
		w, resp := do(t, router, http.MethodPost, "/api/analytics/estimation/covariance", map[string]interface{}{
			"series":  estimationSeriesJSON(),
			"options": map[string]interface{}{"method": "sample"},
			"positions": []map[string]interface{}{
				{"symbol": "BBB", "market_value": 400, "weight": 0.4},
				{"symbol": "AAA", "market_value": 600, "weight": 0.6},
			},
		})
		require.Equal(t, http.StatusOK, w.Code)

		var data struct {
			Estimate struct {
				Symbols    []string    `json:"symbols"`
				Covariance [][]float64 `json:"covariance"`
			} `json:"estimate"`
			Portfolio domain.Portfolio `json:"portfolio"`
		}
		require.NoError(t, json.Unmarshal(resp.Data, &data))
		require.Len(t, data.Portfolio.Positions, 2)
		assert.Equal(t, "BBB", data.Portfolio.Positions[0].Symbol)
		assert.Equal(t, 2, len(data.Estimate.Symbols))
		assert.Greater(t, data.Portfolio.Positions[0].Volatility, 0.0)
		assert.Greater(t, data.Portfolio.Covariance[1][1], 0.0)
	})
}

func TestHandlers_ErrorStatus(t *testing.T) {
	router := setupRouter(t)

	tests := []struct {
		name   string
		path   string
		body   interface{}
		status int
	}{
		{"malformed body", "/api/analytics/risk", "{not json", http.StatusBadRequest},
		{"validation", "/api/analytics/risk", map[string]interface{}{"method": "parametric", "volatility": 0.02, "confidence_level": 1.5}, http.StatusBadRequest},
		{"unknown method", "/api/analytics/risk", map[string]interface{}{"method": "garch"}, http.StatusBadRequest},
		{"insufficient data", "/api/analytics/risk", map[string]interface{}{"method": "historical"}, http.StatusUnprocessableEntity},
		{"no scenarios", "/api/analytics/stress-test", map[string]interface{}{"portfolio": portfolioJSON()}, http.StatusUnprocessableEntity},
		{"no bonds", "/api/analytics/bonds/price", map[string]interface{}{}, http.StatusUnprocessableEntity},
		{"no exposures", "/api/analytics/regulatory/credit-risk", map[string]interface{}{}, http.StatusUnprocessableEntity},
		{"zero portfolio variance", "/api/analytics/risk", map[string]interface{}{"method": "parametric", "portfolio": zeroVariancePortfolioJSON()}, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, resp := do(t, router, http.MethodPost, tt.path, tt.body)
			assert.Equal(t, tt.status, w.Code)
			assert.NotEmpty(t, resp.Error)
		})
	}
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{&domain.ValidationError{Field: "x", Reason: "bad"}, http.StatusBadRequest},
		{domain.WrapIndex("bonds", 2, &domain.ValidationError{Field: "x", Reason: "bad"}), http.StatusBadRequest},
		{&domain.InsufficientDataError{What: "returns", Need: 1}, http.StatusUnprocessableEntity},
		{&domain.ConvergenceError{Iterations: 100}, http.StatusUnprocessableEntity},
		{fmt.Errorf("simulate: %w", context.DeadlineExceeded), http.StatusGatewayTimeout},
		{fmt.Errorf("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			assert.Equal(t, tt.want, StatusFor(tt.err))
		})
	}
}
