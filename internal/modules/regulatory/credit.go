package regulatory

import (
	"math"

	"github.com/aristath/quantcore/internal/domain"
)

// capitalMultiplier converts unexpected loss to a capital charge (1 / 8%)
const capitalMultiplier = 12.5

// CreditExposure is a single obligor exposure
type CreditExposure struct {
	ID  string  `json:"id"`
	PD  float64 `json:"pd"`  // probability of default
	LGD float64 `json:"lgd"` // loss given default
	EAD float64 `json:"ead"` // exposure at default
}

// CreditLoss is the loss profile of one exposure
type CreditLoss struct {
	ID             string  `json:"id"`
	ExpectedLoss   float64 `json:"expected_loss"`
	UnexpectedLoss float64 `json:"unexpected_loss"`
	CapitalCharge  float64 `json:"capital_charge"`
}

// CreditRiskResult lists every exposure with portfolio totals
type CreditRiskResult struct {
	Exposures           []CreditLoss `json:"exposures"`
	TotalExposure       float64      `json:"total_exposure"`
	TotalExpectedLoss   float64      `json:"total_expected_loss"`
	TotalUnexpectedLoss float64      `json:"total_unexpected_loss"`
	TotalCapitalCharge  float64      `json:"total_capital_charge"`
}

// CreditRisk computes, per exposure, EL = PD·LGD·EAD, UL = √(PD(1−PD))·LGD·EAD and a
// capital charge of 12.5·UL. Totals are plain sums.
func CreditRisk(exposures []CreditExposure) (CreditRiskResult, error) {
	if len(exposures) == 0 {
		return CreditRiskResult{}, &domain.InsufficientDataError{What: "exposures", Need: 1, Got: 0}
	}

	result := CreditRiskResult{Exposures: make([]CreditLoss, len(exposures))}
	for i, e := range exposures {
		if err := e.validate(); err != nil {
			return CreditRiskResult{}, domain.WrapIndex("exposures", i, err)
		}

		el := e.PD * e.LGD * e.EAD
		ul := math.Sqrt(e.PD*(1-e.PD)) * e.LGD * e.EAD
		charge := ul * capitalMultiplier

		result.Exposures[i] = CreditLoss{ID: e.ID, ExpectedLoss: el, UnexpectedLoss: ul, CapitalCharge: charge}
		result.TotalExposure += e.EAD
		result.TotalExpectedLoss += el
		result.TotalUnexpectedLoss += ul
		result.TotalCapitalCharge += charge
	}
	return result, nil
}

func (e CreditExposure) validate() error {
	if !(e.PD >= 0 && e.PD <= 1) {
		return &domain.ValidationError{Field: "pd", Reason: "must be within [0, 1]"}
	}
	if !(e.LGD >= 0 && e.LGD <= 1) {
		return &domain.ValidationError{Field: "lgd", Reason: "must be within [0, 1]"}
	}
	if !(e.EAD >= 0) {
		return &domain.ValidationError{Field: "ead", Reason: "must be non-negative"}
	}
	return nil
}
