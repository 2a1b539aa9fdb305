// Package credit measures bond spreads over a risk-free zero curve.
package credit

import (
	"math"
	"time"

	"github.com/aristath/quantcore/internal/domain"
	"github.com/aristath/quantcore/internal/modules/bonds"
	"github.com/aristath/quantcore/internal/modules/curves"
)

const basisPointsPerUnit = 10000

// SpreadResult is the yield pickup of a bond over the risk-free curve at its maturity
type SpreadResult struct {
	YTM             float64 `json:"ytm"`
	RiskFreeRate    float64 `json:"risk_free_rate"`
	Spread          float64 `json:"spread"`
	SpreadBps       float64 `json:"spread_bps"`
	YearsToMaturity float64 `json:"years_to_maturity"`
}

// OASResult reports the nominal spread and the spread left after the embedded option estimate
type OASResult struct {
	SpreadResult
	Volatility    float64 `json:"volatility"`
	TimeToOption  float64 `json:"time_to_option"`
	OptionValue   float64 `json:"option_value"`
	OAS           float64 `json:"oas"`
	OASBps        float64 `json:"oas_bps"`
	OptionType    string  `json:"option_type"`
	IsPlaceholder bool    `json:"is_placeholder"`
}

// CreditSpread is YTM(bond, marketPrice) minus the risk-free zero interpolated at the bond's maturity
func CreditSpread(b domain.Bond, riskFree domain.YieldCurve, marketPrice float64, valuationDate time.Time, opts bonds.YieldOptions) (SpreadResult, error) {
	solved, err := bonds.YieldToMaturity(b, marketPrice, valuationDate, opts)
	if err != nil {
		return SpreadResult{}, err
	}

	years := bonds.YearsToMaturity(b, valuationDate)
	rf, err := curves.Interpolate(riskFree, years)
	if err != nil {
		return SpreadResult{}, err
	}

	spread := solved.YTM - rf
	return SpreadResult{
		YTM:             solved.YTM,
		RiskFreeRate:    rf,
		Spread:          spread,
		SpreadBps:       spread * basisPointsPerUnit,
		YearsToMaturity: years,
	}, nil
}

// OptionAdjustedSpread nets a rough embedded-option estimate out of the credit spread.
// The option value is timeToOption × volatility × 100 in basis points, with timeToOption the
// years until the call date (zero when past or absent). It is not a lattice valuation.
func OptionAdjustedSpread(b domain.Bond, riskFree domain.YieldCurve, marketPrice float64, valuationDate time.Time, volatility float64, opts bonds.YieldOptions) (OASResult, error) {
	if !b.HasEmbeddedOption() {
		return OASResult{}, &domain.ValidationError{Field: "bond", Reason: "option-adjusted spread needs a callable or putable bond"}
	}
	if volatility < 0 || math.IsNaN(volatility) {
		return OASResult{}, &domain.ValidationError{Field: "volatility", Reason: "must be non-negative"}
	}

	spread, err := CreditSpread(b, riskFree, marketPrice, valuationDate, opts)
	if err != nil {
		return OASResult{}, err
	}

	timeToOption := 0.0
	if b.CallDate != nil {
		timeToOption = math.Max(0, b.CallDate.Sub(valuationDate).Hours()/24/365.25)
	}
	optionValue := timeToOption * volatility * 100

	optionType := "put"
	if b.Callable {
		optionType = "call"
	}

	oas := spread.Spread - optionValue/basisPointsPerUnit
	return OASResult{
		SpreadResult:  spread,
		Volatility:    volatility,
		TimeToOption:  timeToOption,
		OptionValue:   optionValue,
		OAS:           oas,
		OASBps:        oas * basisPointsPerUnit,
		OptionType:    optionType,
		IsPlaceholder: true,
	}, nil
}
