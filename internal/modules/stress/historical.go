// Package stress replays historical scenarios and simulates shocked markets against a portfolio.
package stress

import (
	"fmt"
	"time"

	"github.com/aristath/quantcore/internal/domain"
)

// AssetImpact is one position's share of a scenario outcome
type AssetImpact struct {
	Symbol       string  `json:"symbol"`
	Return       float64 `json:"return"`
	Contribution float64 `json:"contribution"` // weight × return
	PnL          float64 `json:"pnl"`
}

// ScenarioResult is the outcome of one scenario. Error is set instead of the figures when the
// scenario could not be applied.
type ScenarioResult struct {
	Date            time.Time     `json:"date"`
	Name            string        `json:"name"`
	Description     string        `json:"description,omitempty"`
	PortfolioReturn float64       `json:"portfolio_return"`
	PortfolioValue  float64       `json:"portfolio_value"`
	PnL             float64       `json:"pnl"`
	Impacts         []AssetImpact `json:"impacts,omitempty"`
	Error           string        `json:"error,omitempty"`
	Err             error         `json:"-"`
}

// HistoricalResult collects every scenario with the worst case and the mean return of those that ran
type HistoricalResult struct {
	TotalMarketValue float64          `json:"total_market_value"`
	Scenarios        []ScenarioResult `json:"scenarios"`
	WorstCase        *ScenarioResult  `json:"worst_case,omitempty"`
	MeanReturn       float64          `json:"mean_return"`
	Failed           int              `json:"failed"`
}

// HistoricalStressTest applies each scenario's per-asset returns to the portfolio weights.
// A scenario whose vector does not match the portfolio is recorded as failed and the rest still run.
func HistoricalStressTest(portfolio domain.Portfolio, scenarios []domain.StressScenario) (HistoricalResult, error) {
	if err := validatePositions(portfolio); err != nil {
		return HistoricalResult{}, err
	}
	if len(scenarios) == 0 {
		return HistoricalResult{}, &domain.InsufficientDataError{What: "scenarios", Need: 1, Got: 0}
	}

	total := portfolio.TotalMarketValue()
	result := HistoricalResult{
		TotalMarketValue: total,
		Scenarios:        make([]ScenarioResult, len(scenarios)),
	}

	worst := -1
	sum := 0.0
	for i, sc := range scenarios {
		res, err := applyScenario(portfolio, total, sc)
		if err != nil {
			res = ScenarioResult{Date: sc.Date, Name: sc.Name, Description: sc.Description}
			res.Err = domain.WrapIndex("scenarios", i, err)
			res.Error = res.Err.Error()
			result.Failed++
			result.Scenarios[i] = res
			continue
		}
		result.Scenarios[i] = res
		sum += res.PortfolioReturn
		if worst < 0 || res.PortfolioReturn < result.Scenarios[worst].PortfolioReturn {
			worst = i
		}
	}

	if ran := len(scenarios) - result.Failed; ran > 0 {
		result.MeanReturn = sum / float64(ran)
		w := result.Scenarios[worst]
		result.WorstCase = &w
	}
	return result, nil
}

func applyScenario(portfolio domain.Portfolio, total float64, sc domain.StressScenario) (ScenarioResult, error) {
	if len(sc.Returns) != len(portfolio.Positions) {
		return ScenarioResult{}, &domain.ValidationError{
			Field:  "returns",
			Reason: fmt.Sprintf("scenario %q has %d returns for %d positions", sc.Name, len(sc.Returns), len(portfolio.Positions)),
		}
	}

	impacts := make([]AssetImpact, len(sc.Returns))
	portfolioReturn := 0.0
	for i, pos := range portfolio.Positions {
		contribution := pos.Weight * sc.Returns[i]
		portfolioReturn += contribution
		impacts[i] = AssetImpact{
			Symbol:       pos.Symbol,
			Return:       sc.Returns[i],
			Contribution: contribution,
			PnL:          pos.MarketValue * sc.Returns[i],
		}
	}

	return ScenarioResult{
		Date:            sc.Date,
		Name:            sc.Name,
		Description:     sc.Description,
		PortfolioReturn: portfolioReturn,
		PortfolioValue:  total * (1 + portfolioReturn),
		PnL:             total * portfolioReturn,
		Impacts:         impacts,
	}, nil
}

// validatePositions checks positions only; stress tests do not read the covariance matrix
func validatePositions(portfolio domain.Portfolio) error {
	return domain.Portfolio{Positions: portfolio.Positions}.Validate()
}
