// Package bonds prices fixed-coupon bonds and solves for their yield to maturity.
package bonds

import (
	"math"
	"time"

	"github.com/aristath/quantcore/internal/domain"
)

// basisPoint is the yield bump used for DV01
const basisPoint = 0.0001

// validateBond checks the terms needed to price b at valuation
func validateBond(b domain.Bond, valuation time.Time) error {
	if !(b.FaceValue > 0) {
		return &domain.ValidationError{Field: "face_value", Reason: "must be positive"}
	}
	if b.CouponRate < 0 || math.IsNaN(b.CouponRate) {
		return &domain.ValidationError{Field: "coupon_rate", Reason: "must be non-negative"}
	}
	if b.Frequency < 1 {
		return &domain.ValidationError{Field: "frequency", Reason: "must be at least 1"}
	}
	if !b.Maturity.After(valuation) {
		return &domain.ValidationError{Field: "maturity", Reason: "must be after the valuation date"}
	}
	return nil
}

func validateYield(y float64, frequency int) error {
	if math.IsNaN(y) || math.IsInf(y, 0) || 1+y/float64(frequency) <= 0 {
		return &domain.ValidationError{Field: "yield", Reason: "periodic discount factor must be positive"}
	}
	return nil
}

// valuation is the discounted cash flow summary of a bond at one yield
type valuation struct {
	price            float64
	macaulayDuration float64 // years
	modifiedDuration float64 // years
	convexity        float64 // years²
}

// discount values the remaining cash flows of b at annual yield y.
// Period k is discounted by (1+y/f)^-k; the face value is repaid with the last coupon.
func discount(b domain.Bond, y float64, periods int) valuation {
	f := float64(b.Frequency)
	periodYield := y / f
	coupon := b.FaceValue * b.CouponRate / f

	var price, timeWeighted, secondMoment float64
	for k := 1; k <= periods; k++ {
		cf := coupon
		if k == periods {
			cf += b.FaceValue
		}
		kf := float64(k)
		pv := cf * math.Pow(1+periodYield, -kf)
		price += pv
		timeWeighted += kf * pv
		secondMoment += kf * (kf + 1) * pv
	}

	if price == 0 {
		return valuation{}
	}

	macaulay := timeWeighted / price / f
	growth := 1 + periodYield
	return valuation{
		price:            price,
		macaulayDuration: macaulay,
		modifiedDuration: macaulay / growth,
		convexity:        secondMoment / (price * growth * growth * f * f),
	}
}

// Price values b at annual yield y on the valuation date
func Price(b domain.Bond, y float64, valuationDate time.Time) (domain.BondPricingResult, error) {
	if err := validateBond(b, valuationDate); err != nil {
		return domain.BondPricingResult{}, err
	}
	if err := validateYield(y, b.Frequency); err != nil {
		return domain.BondPricingResult{}, err
	}
	if err := validateYield(y+basisPoint, b.Frequency); err != nil {
		return domain.BondPricingResult{}, err
	}

	sched := buildSchedule(b, valuationDate)
	base := discount(b, y, sched.periods)
	bumped := discount(b, y+basisPoint, sched.periods)

	accrued := b.FaceValue * b.CouponRate / float64(b.Frequency) * sched.accrualFraction

	return domain.BondPricingResult{
		CleanPrice:       base.price,
		DirtyPrice:       base.price + accrued,
		AccruedInterest:  accrued,
		YieldToMaturity:  y,
		MacaulayDuration: base.macaulayDuration,
		ModifiedDuration: base.modifiedDuration,
		Convexity:        base.convexity,
		DV01:             math.Abs(base.price - bumped.price),
		Periods:          sched.periods,
	}, nil
}

// CashFlow is one remaining payment of a bond, timed in years from the valuation date
type CashFlow struct {
	Time   float64 `json:"time"`
	Amount float64 `json:"amount"`
}

// CashFlows lists the remaining payments of b. Payment k falls (k − accrualFraction)/f years
// after the valuation date, so the first coupon is less than a full period away mid-period.
func CashFlows(b domain.Bond, valuationDate time.Time) ([]CashFlow, error) {
	if err := validateBond(b, valuationDate); err != nil {
		return nil, err
	}

	sched := buildSchedule(b, valuationDate)
	f := float64(b.Frequency)
	coupon := b.FaceValue * b.CouponRate / f

	flows := make([]CashFlow, sched.periods)
	for k := 1; k <= sched.periods; k++ {
		amount := coupon
		if k == sched.periods {
			amount += b.FaceValue
		}
		flows[k-1] = CashFlow{Time: (float64(k) - sched.accrualFraction) / f, Amount: amount}
	}
	return flows, nil
}

// AccruedInterest returns the coupon earned since the last payment date
func AccruedInterest(b domain.Bond, valuationDate time.Time) (float64, error) {
	if err := validateBond(b, valuationDate); err != nil {
		return 0, err
	}
	sched := buildSchedule(b, valuationDate)
	return b.FaceValue * b.CouponRate / float64(b.Frequency) * sched.accrualFraction, nil
}
