package risk

import (
	"math"
	"sort"

	"github.com/aristath/quantcore/internal/domain"
	"github.com/aristath/quantcore/pkg/formulas"
)

const topConcentrationCount = 5

// AssetRisk is one position's share of portfolio risk
type AssetRisk struct {
	Symbol       string  `json:"symbol"`
	Weight       float64 `json:"weight"`
	Contribution float64 `json:"contribution"`  // wᵢ(Σw)ᵢ / σ², sums to 1
	MarginalVaR  float64 `json:"marginal_var"`  // z(Σw)ᵢ / σ
	ComponentVaR float64 `json:"component_var"` // Contribution × VaR
}

// Concentration measures how evenly weight is spread across positions
type Concentration struct {
	Herfindahl      float64 `json:"herfindahl"`
	EffectiveAssets float64 `json:"effective_assets"`
	Top5Weight      float64 `json:"top5_weight"`
}

// PortfolioRiskResult is the parametric risk profile of a portfolio
type PortfolioRiskResult struct {
	Variance             float64       `json:"variance"`
	Volatility           float64       `json:"volatility"`
	ExpectedReturn       float64       `json:"expected_return"`
	ConfidenceLevel      float64       `json:"confidence_level"`
	VaR                  float64       `json:"var"`        // fraction of market value
	VaRAmount            float64       `json:"var_amount"` // VaR × total market value
	TotalMarketValue     float64       `json:"total_market_value"`
	DiversificationRatio float64       `json:"diversification_ratio"`
	Assets               []AssetRisk   `json:"assets"`
	Concentration        Concentration `json:"concentration"`
}

// PortfolioRisk decomposes portfolio variance wᵀΣw into per-position contributions.
//
// Individual volatilities for the diversification ratio come from Position.Volatility,
// falling back to √Σᵢᵢ for positions that leave it at zero.
func PortfolioRisk(positions []domain.Position, covariance [][]float64, confidence float64) (PortfolioRiskResult, error) {
	if len(positions) == 0 {
		return PortfolioRiskResult{}, &domain.InsufficientDataError{What: "positions", Need: 1, Got: 0}
	}
	for i, pos := range positions {
		if err := pos.Validate(); err != nil {
			return PortfolioRiskResult{}, domain.WrapIndex("positions", i, err)
		}
	}
	if err := domain.ValidateCovariance(covariance, len(positions)); err != nil {
		return PortfolioRiskResult{}, err
	}
	if err := validateConfidence(confidence); err != nil {
		return PortfolioRiskResult{}, err
	}

	n := len(positions)
	weights := make([]float64, n)
	for i, pos := range positions {
		weights[i] = pos.Weight
	}

	// (Σw)ᵢ and wᵀΣw as explicit sums over every pair
	sigmaW := make([]float64, n)
	variance := 0.0
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			sigmaW[i] += covariance[i][j] * weights[j]
		}
		variance += weights[i] * sigmaW[i]
	}
	if !(variance > 0) {
		return PortfolioRiskResult{}, &domain.ValidationError{Field: "covariance", Reason: "portfolio variance must be positive"}
	}

	volatility := math.Sqrt(variance)
	expected := 0.0
	weightedVol := 0.0
	for i, pos := range positions {
		expected += weights[i] * pos.ExpectedReturn
		vol := pos.Volatility
		if vol == 0 {
			vol = math.Sqrt(covariance[i][i])
		}
		weightedVol += weights[i] * vol
	}

	z := formulas.ZScore(confidence)
	varFraction := z*volatility - expected
	total := domain.Portfolio{Positions: positions}.TotalMarketValue()

	assets := make([]AssetRisk, n)
	for i, pos := range positions {
		contribution := weights[i] * sigmaW[i] / variance
		assets[i] = AssetRisk{
			Symbol:       pos.Symbol,
			Weight:       weights[i],
			Contribution: contribution,
			MarginalVaR:  z * sigmaW[i] / volatility,
			ComponentVaR: contribution * varFraction,
		}
	}

	return PortfolioRiskResult{
		Variance:             variance,
		Volatility:           volatility,
		ExpectedReturn:       expected,
		ConfidenceLevel:      confidence,
		VaR:                  varFraction,
		VaRAmount:            varFraction * total,
		TotalMarketValue:     total,
		DiversificationRatio: weightedVol / volatility,
		Assets:               assets,
		Concentration:        concentration(weights),
	}, nil
}

func concentration(weights []float64) Concentration {
	hhi := 0.0
	for _, w := range weights {
		hhi += w * w
	}

	sorted := make([]float64, len(weights))
	copy(sorted, weights)
	sort.Sort(sort.Reverse(sort.Float64Slice(sorted)))

	top := 0.0
	for i := 0; i < len(sorted) && i < topConcentrationCount; i++ {
		top += sorted[i]
	}

	c := Concentration{Herfindahl: hhi, Top5Weight: top}
	if hhi > 0 {
		c.EffectiveAssets = 1 / hhi
	}
	return c
}
