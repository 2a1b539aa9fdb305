// Package regulatory computes Basel III capital ratios, credit-risk capital charges and
// liquidity-adjusted VaR.
package regulatory

import (
	"github.com/shopspring/decimal"

	"github.com/aristath/quantcore/internal/domain"
)

var (
	minimumCapitalRatio = decimal.NewFromFloat(0.08)
	minimumTier1Ratio   = decimal.NewFromFloat(0.06)
	minimumLeverage     = decimal.NewFromFloat(0.03)
)

// defaultUnknownRiskWeight applies to asset classes without a configured weight
const defaultUnknownRiskWeight = 1.0

// DefaultRiskWeights returns the standardised risk weight per asset class
func DefaultRiskWeights() map[domain.AssetClass]float64 {
	return map[domain.AssetClass]float64{
		domain.AssetClassCash:           0,
		domain.AssetClassGovernmentBond: 0,
		domain.AssetClassAgencyBond:     0.2,
		domain.AssetClassMunicipalBond:  0.2,
		domain.AssetClassMortgage:       0.5,
		domain.AssetClassCorporateBond:  1.0,
		domain.AssetClassEquity:         1.0,
		domain.AssetClassCommodity:      1.0,
		domain.AssetClassRealEstate:     1.0,
		domain.AssetClassHighYieldBond:  1.5,
		domain.AssetClassAlternative:    1.5,
	}
}

// BaselResult holds the capital figures of a Basel III assessment.
// Ratios are omitted when their denominator is zero.
type BaselResult struct {
	RiskWeightedAssets decimal.Decimal `json:"risk_weighted_assets"`
	Tier1Capital       decimal.Decimal `json:"tier1_capital"`
	TotalExposure      decimal.Decimal `json:"total_exposure"`
	MinimumCapital     decimal.Decimal `json:"minimum_capital"`
	CapitalSurplus     decimal.Decimal `json:"capital_surplus"`
	HQLAValue          decimal.Decimal `json:"hqla_value"`
	Tier1Ratio         *float64        `json:"tier1_ratio,omitempty"`
	LeverageRatio      *float64        `json:"leverage_ratio,omitempty"`
	Tier1Adequate      bool            `json:"tier1_adequate"`
	LeverageAdequate   bool            `json:"leverage_adequate"`
}

// BaselIII weights each position by its asset class. riskWeights overrides the defaults
// class by class; classes found in neither weigh 100%.
func BaselIII(positions []domain.Position, riskWeights map[domain.AssetClass]float64) (BaselResult, error) {
	if len(positions) == 0 {
		return BaselResult{}, &domain.InsufficientDataError{What: "positions", Need: 1, Got: 0}
	}
	for i, pos := range positions {
		if err := pos.Validate(); err != nil {
			return BaselResult{}, domain.WrapIndex("positions", i, err)
		}
	}

	weights := DefaultRiskWeights()
	for class, w := range riskWeights {
		if w < 0 {
			return BaselResult{}, &domain.ValidationError{Field: "risk_weights", Reason: "weight for " + string(class) + " must be non-negative"}
		}
		weights[class] = w
	}

	rwa, tier1, total, hqla := decimal.Zero, decimal.Zero, decimal.Zero, decimal.Zero
	for _, pos := range positions {
		mv := decimal.NewFromFloat(pos.MarketValue)
		w, ok := weights[pos.AssetClass]
		if !ok {
			w = defaultUnknownRiskWeight
		}

		rwa = rwa.Add(mv.Mul(decimal.NewFromFloat(w)))
		total = total.Add(mv)
		if pos.Tier1Eligible {
			tier1 = tier1.Add(mv)
		}
		if pos.HQLAEligible {
			hqla = hqla.Add(mv)
		}
	}

	minimum := rwa.Mul(minimumCapitalRatio)
	result := BaselResult{
		RiskWeightedAssets: rwa,
		Tier1Capital:       tier1,
		TotalExposure:      total,
		MinimumCapital:     minimum,
		CapitalSurplus:     tier1.Sub(minimum),
		HQLAValue:          hqla,
		Tier1Adequate:      true,
		LeverageAdequate:   true,
	}

	if rwa.IsPositive() {
		ratio := tier1.Div(rwa)
		f := ratio.InexactFloat64()
		result.Tier1Ratio = &f
		result.Tier1Adequate = ratio.GreaterThanOrEqual(minimumTier1Ratio)
	}
	if total.IsPositive() {
		ratio := tier1.Div(total)
		f := ratio.InexactFloat64()
		result.LeverageRatio = &f
		result.LeverageAdequate = ratio.GreaterThanOrEqual(minimumLeverage)
	}
	return result, nil
}
