// Package factors fits linear factor models to asset returns and splits asset risk
// into systematic and specific parts.
package factors

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/aristath/quantcore/internal/domain"
	"github.com/aristath/quantcore/pkg/formulas"
)

// FactorStats describes one factor's return series
type FactorStats struct {
	Name       string  `json:"name"`
	Mean       float64 `json:"mean"`
	Volatility float64 `json:"volatility"`
}

// AssetExposure is the regression of one asset on the factors and the resulting risk split
type AssetExposure struct {
	Index              int                `json:"index"`
	Alpha              float64            `json:"alpha"`
	Betas              map[string]float64 `json:"betas"`
	RSquared           float64            `json:"r_squared"`
	ResidualVolatility float64            `json:"residual_volatility"`
	SystematicRisk     float64            `json:"systematic_risk"` // Σ(βₖσₖ)²
	SpecificRisk       float64            `json:"specific_risk"`   // residual volatility²
	TotalRisk          float64            `json:"total_risk"`
	SystematicShare    float64            `json:"systematic_share"`
}

// Model is a fitted factor model for a set of assets
type Model struct {
	Observations int             `json:"observations"`
	Factors      []FactorStats   `json:"factors"`
	Assets       []AssetExposure `json:"assets"`
}

// BuildFactorModel regresses each asset's returns on [1, F₁..Fₖ] by least squares (QR).
//
// assetReturns and factorReturns are indexed [series][observation] and must all share one length.
// Missing factor names default to factor_1..factor_k.
func BuildFactorModel(assetReturns, factorReturns [][]float64, factorNames []string) (Model, error) {
	k := len(factorReturns)
	if len(assetReturns) == 0 {
		return Model{}, &domain.InsufficientDataError{What: "assets", Need: 1, Got: 0}
	}
	if k == 0 {
		return Model{}, &domain.InsufficientDataError{What: "factors", Need: 1, Got: 0}
	}
	if len(factorNames) != 0 && len(factorNames) != k {
		return Model{}, &domain.ValidationError{Field: "factor_names", Reason: "count does not match number of factors"}
	}

	t := len(factorReturns[0])
	for i, f := range factorReturns {
		if len(f) != t {
			return Model{}, domain.WrapIndex("factor_returns", i, &domain.ValidationError{Field: "length", Reason: "factor series lengths differ"})
		}
	}
	for i, a := range assetReturns {
		if len(a) != t {
			return Model{}, domain.WrapIndex("asset_returns", i, &domain.ValidationError{Field: "length", Reason: "asset series must match factor length"})
		}
	}
	if t <= k+1 {
		return Model{}, &domain.InsufficientDataError{What: "observations", Need: k + 2, Got: t}
	}

	factors := make([]FactorStats, k)
	seen := make(map[string]bool, k)
	for j, f := range factorReturns {
		name := fmt.Sprintf("factor_%d", j+1)
		if len(factorNames) != 0 {
			name = factorNames[j]
		}
		if seen[name] {
			return Model{}, &domain.ValidationError{Field: "factor_names", Reason: fmt.Sprintf("duplicate factor %q", name)}
		}
		seen[name] = true
		factors[j] = FactorStats{Name: name, Mean: formulas.Mean(f), Volatility: formulas.StdDev(f)}
	}

	design := mat.NewDense(t, k+1, nil)
	for row := 0; row < t; row++ {
		design.Set(row, 0, 1)
		for j := 0; j < k; j++ {
			design.Set(row, j+1, factorReturns[j][row])
		}
	}

	assets := make([]AssetExposure, len(assetReturns))
	for i, series := range assetReturns {
		exposure, err := fitAsset(design, series, factors)
		if err != nil {
			return Model{}, domain.WrapIndex("asset_returns", i, err)
		}
		exposure.Index = i
		assets[i] = exposure
	}

	return Model{Observations: t, Factors: factors, Assets: assets}, nil
}

func fitAsset(design *mat.Dense, series []float64, factors []FactorStats) (AssetExposure, error) {
	t, cols := design.Dims()
	y := mat.NewVecDense(t, append([]float64(nil), series...))

	var coef mat.VecDense
	if err := coef.SolveVec(design, y); err != nil {
		return AssetExposure{}, &domain.ValidationError{Field: "factor_returns", Reason: fmt.Sprintf("regression is ill-conditioned: %v", err)}
	}

	var fitted mat.VecDense
	fitted.MulVec(design, &coef)

	mean := formulas.Mean(series)
	ssr, sst := 0.0, 0.0
	for row := 0; row < t; row++ {
		resid := series[row] - fitted.AtVec(row)
		ssr += resid * resid
		dev := series[row] - mean
		sst += dev * dev
	}

	rSquared := 1.0
	if sst > 0 {
		rSquared = 1 - ssr/sst
	}
	residualVol := math.Sqrt(ssr / float64(t-cols))

	betas := make(map[string]float64, len(factors))
	systematic := 0.0
	for j, f := range factors {
		beta := coef.AtVec(j + 1)
		betas[f.Name] = beta
		systematic += (beta * f.Volatility) * (beta * f.Volatility)
	}
	specific := residualVol * residualVol
	total := systematic + specific

	share := 0.0
	if total > 0 {
		share = systematic / total
	}

	return AssetExposure{
		Alpha:              coef.AtVec(0),
		Betas:              betas,
		RSquared:           rSquared,
		ResidualVolatility: residualVol,
		SystematicRisk:     systematic,
		SpecificRisk:       specific,
		TotalRisk:          total,
		SystematicShare:    share,
	}, nil
}
