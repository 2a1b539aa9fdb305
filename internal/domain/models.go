// Package domain provides core domain models and types.
package domain

import (
	"math"
	"time"
)

// AssetClass tags a position for regulatory risk weighting and scenario mapping
type AssetClass string

const (
	AssetClassCash           AssetClass = "cash"
	AssetClassGovernmentBond AssetClass = "government_bond"
	AssetClassAgencyBond     AssetClass = "agency_bond"
	AssetClassMunicipalBond  AssetClass = "municipal_bond"
	AssetClassCorporateBond  AssetClass = "corporate_bond"
	AssetClassHighYieldBond  AssetClass = "high_yield_bond"
	AssetClassMortgage       AssetClass = "mortgage"
	AssetClassEquity         AssetClass = "equity"
	AssetClassCommodity      AssetClass = "commodity"
	AssetClassRealEstate     AssetClass = "real_estate"
	AssetClassAlternative    AssetClass = "alternative"
)

// RiskMethod identifies how a RiskReport was produced
type RiskMethod string

const (
	MethodHistorical RiskMethod = "historical"
	MethodParametric RiskMethod = "parametric"
	MethodMonteCarlo RiskMethod = "monte_carlo"
)

// Bond is a fixed-coupon instrument.
// CouponRate is a decimal annual rate (0.025 = 2.5%), Frequency is coupons per year.
type Bond struct {
	Maturity   time.Time  `json:"maturity"`
	CallDate   *time.Time `json:"call_date,omitempty"`
	ID         string     `json:"id"`
	Rating     string     `json:"rating,omitempty"`
	FaceValue  float64    `json:"face_value"`
	CouponRate float64    `json:"coupon_rate"`
	Frequency  int        `json:"frequency"`
	Callable   bool       `json:"callable,omitempty"`
	Putable    bool       `json:"putable,omitempty"`
}

// HasEmbeddedOption reports whether the bond carries a call or put feature
func (b Bond) HasEmbeddedOption() bool {
	return b.Callable || b.Putable
}

// BondUniverse is a set of bonds with clean market prices aligned by index
type BondUniverse struct {
	Bonds  []Bond    `json:"bonds"`
	Prices []float64 `json:"prices"`
}

// BondPricingResult holds the price and risk measures of a bond at one yield.
// Durations are in years.
type BondPricingResult struct {
	CleanPrice       float64 `json:"clean_price"`
	DirtyPrice       float64 `json:"dirty_price"`
	AccruedInterest  float64 `json:"accrued_interest"`
	YieldToMaturity  float64 `json:"yield_to_maturity"`
	MacaulayDuration float64 `json:"macaulay_duration"`
	ModifiedDuration float64 `json:"modified_duration"`
	Convexity        float64 `json:"convexity"`
	DV01             float64 `json:"dv01"`
	Periods          int     `json:"periods"`
}

// CurvePoint is one node of a zero-coupon curve
type CurvePoint struct {
	Maturity float64 `json:"maturity"` // years
	Rate     float64 `json:"rate"`
}

// YieldCurve is an ordered zero-coupon curve. Maturities are strictly increasing.
type YieldCurve struct {
	ValuationDate time.Time    `json:"valuation_date"`
	Method        string       `json:"method"`
	Points        []CurvePoint `json:"points"`
}

// Position is a single holding in a portfolio
type Position struct {
	Symbol         string     `json:"symbol"`
	AssetClass     AssetClass `json:"asset_class"`
	MarketValue    float64    `json:"market_value"`
	Weight         float64    `json:"weight"`
	ExpectedReturn float64    `json:"expected_return"`
	Volatility     float64    `json:"volatility"`
	Beta           float64    `json:"beta"`
	Tier1Eligible  bool       `json:"tier1_eligible"`
	HQLAEligible   bool       `json:"hqla_eligible"`
}

// Portfolio is a set of positions plus their covariance matrix, aligned by position index
type Portfolio struct {
	Positions  []Position  `json:"positions"`
	Covariance [][]float64 `json:"covariance"`
}

// TotalMarketValue sums position market values
func (p Portfolio) TotalMarketValue() float64 {
	total := 0.0
	for _, pos := range p.Positions {
		total += pos.MarketValue
	}
	return total
}

// Weights returns position weights in portfolio order
func (p Portfolio) Weights() []float64 {
	w := make([]float64, len(p.Positions))
	for i, pos := range p.Positions {
		w[i] = pos.Weight
	}
	return w
}

// covarianceSymmetryTolerance bounds |Σij - Σji|
const covarianceSymmetryTolerance = 1e-9

// Validate checks positions and, when present, the covariance matrix.
// A nil covariance is accepted since stress replay does not need one.
func (p Portfolio) Validate() error {
	if len(p.Positions) == 0 {
		return &InsufficientDataError{What: "positions", Need: 1, Got: 0}
	}
	for i, pos := range p.Positions {
		if err := pos.Validate(); err != nil {
			return WrapIndex("positions", i, err)
		}
	}
	if p.Covariance == nil {
		return nil
	}
	return ValidateCovariance(p.Covariance, len(p.Positions))
}

// Validate checks the position's numeric ranges
func (pos Position) Validate() error {
	if pos.MarketValue < 0 || math.IsNaN(pos.MarketValue) {
		return &ValidationError{Field: "market_value", Reason: "must be non-negative"}
	}
	if pos.Weight < 0 || pos.Weight > 1 || math.IsNaN(pos.Weight) {
		return &ValidationError{Field: "weight", Reason: "must be within [0, 1]"}
	}
	if pos.Volatility < 0 || math.IsNaN(pos.Volatility) {
		return &ValidationError{Field: "volatility", Reason: "must be non-negative"}
	}
	return nil
}

// ValidateCovariance checks that cov is n×n, symmetric and has a non-negative diagonal
func ValidateCovariance(cov [][]float64, n int) error {
	if len(cov) != n {
		return &ValidationError{Field: "covariance", Reason: "row count does not match number of positions"}
	}
	for i := range cov {
		if len(cov[i]) != n {
			return &ValidationError{Field: "covariance", Reason: "matrix is not square"}
		}
	}
	for i := 0; i < n; i++ {
		if cov[i][i] < 0 {
			return &ValidationError{Field: "covariance", Reason: "diagonal variance must be non-negative"}
		}
		for j := i + 1; j < n; j++ {
			if math.Abs(cov[i][j]-cov[j][i]) > covarianceSymmetryTolerance {
				return &ValidationError{Field: "covariance", Reason: "matrix is not symmetric"}
			}
		}
	}
	return nil
}

// StressScenario is a per-asset return vector aligned to portfolio order
type StressScenario struct {
	Date        time.Time `json:"date"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Returns     []float64 `json:"returns"`
}

// RiskReport is the result of a single VaR computation
type RiskReport struct {
	ID                string     `json:"id,omitempty"`
	Method            RiskMethod `json:"method"`
	VaR               float64    `json:"var"`
	ExpectedShortfall float64    `json:"expected_shortfall"`
	ConfidenceLevel   float64    `json:"confidence_level"`
	HoldingPeriod     int        `json:"holding_period"`
	SampleSize        int        `json:"sample_size,omitempty"`
	Simulations       int        `json:"simulations,omitempty"`
}
