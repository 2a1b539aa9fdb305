package handlers

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers all analytics routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/analytics", func(r chi.Router) {
		r.Route("/bonds", func(r chi.Router) {
			r.Post("/price", h.HandlePriceBonds)
			r.Post("/yield", h.HandleSolveYields)
		})
		r.Post("/curves/bootstrap", h.HandleBootstrapCurve)

		r.Route("/credit", func(r chi.Router) {
			r.Post("/spread", h.HandleCreditSpread)
			r.Post("/oas", h.HandleOptionAdjustedSpread)
		})

		r.Post("/risk", h.HandleRisk)
		r.Post("/risk/portfolio", h.HandlePortfolioRisk)

		r.Route("/stress-test", func(r chi.Router) {
			r.Post("/", h.HandleStressTest)
			r.Post("/monte-carlo", h.HandleMonteCarloStressTest)
			r.Get("/scenarios", h.HandleGetScenarios)
		})

		r.Post("/factors", h.HandleFactorModel)

		r.Route("/regulatory", func(r chi.Router) {
			r.Post("/basel", h.HandleBasel)
			r.Post("/credit-risk", h.HandleCreditRisk)
			r.Post("/liquidity", h.HandleLiquidity)
		})

		r.Post("/estimation/covariance", h.HandleEstimateCovariance)
	})
}
