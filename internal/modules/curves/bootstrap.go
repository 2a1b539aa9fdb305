// Package curves bootstraps zero-coupon yield curves from bond universes and derives
// forward rates and shape metrics from them.
package curves

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/aristath/quantcore/internal/domain"
	"github.com/aristath/quantcore/internal/modules/bonds"
)

// Method selects how each bond's zero rate is derived
type Method string

const (
	// MethodIterative strips already-solved zeros from each bond's coupons before solving its own zero
	MethodIterative Method = "iterative"
	// MethodSimplified uses each bond's own yield to maturity as its zero rate
	MethodSimplified Method = "simplified"
)

// ParseMethod maps a configuration string to a Method
func ParseMethod(s string) (Method, error) {
	switch Method(s) {
	case MethodIterative, MethodSimplified:
		return Method(s), nil
	case "":
		return MethodIterative, nil
	}
	return "", &domain.ValidationError{Field: "method", Reason: fmt.Sprintf("unknown bootstrap method %q", s)}
}

const (
	minZeroRate = -0.05
	maxZeroRate = 0.50

	bisectionTolerance     = 1e-12
	bisectionMaxIterations = 200
)

// Options configures Bootstrap
type Options struct {
	Method Method
	Yield  bonds.YieldOptions
}

// CurveResult is a bootstrapped curve with its forward rates and, when it has at least two points, its shape
type CurveResult struct {
	Curve        domain.YieldCurve `json:"curve"`
	ForwardRates []ForwardRate     `json:"forward_rates"`
	Shape        *Shape            `json:"shape,omitempty"`
}

type instrument struct {
	index int
	bond  domain.Bond
	price float64
	flows []bonds.CashFlow
}

// Bootstrap builds a zero curve from a universe of bonds with clean market prices.
//
// Bonds are processed in maturity order and placed on the curve at the time of their final cash flow.
// A bond whose final cash flow does not lie beyond the previous point is skipped, so the first
// bond at a given maturity wins. Rates are quoted with each bond's own compounding frequency.
func Bootstrap(universe domain.BondUniverse, valuationDate time.Time, opts Options) (CurveResult, error) {
	if len(universe.Bonds) == 0 {
		return CurveResult{}, &domain.InsufficientDataError{What: "bonds", Need: 1, Got: 0}
	}
	if len(universe.Prices) != len(universe.Bonds) {
		return CurveResult{}, &domain.ValidationError{Field: "prices", Reason: "count does not match number of bonds"}
	}
	if opts.Method == "" {
		opts.Method = MethodIterative
	}
	if _, err := ParseMethod(string(opts.Method)); err != nil {
		return CurveResult{}, err
	}

	instruments := make([]instrument, len(universe.Bonds))
	for i, b := range universe.Bonds {
		if !(universe.Prices[i] > 0) {
			return CurveResult{}, domain.WrapIndex("bonds", i, &domain.ValidationError{Field: "market_price", Reason: "must be positive"})
		}
		flows, err := bonds.CashFlows(b, valuationDate)
		if err != nil {
			return CurveResult{}, domain.WrapIndex("bonds", i, err)
		}
		instruments[i] = instrument{index: i, bond: b, price: universe.Prices[i], flows: flows}
	}
	sort.SliceStable(instruments, func(a, b int) bool {
		return instruments[a].bond.Maturity.Before(instruments[b].bond.Maturity)
	})

	points := make([]domain.CurvePoint, 0, len(instruments))
	for _, inst := range instruments {
		maturity := inst.flows[len(inst.flows)-1].Time
		if n := len(points); n > 0 && maturity <= points[n-1].Maturity {
			continue
		}

		var (
			rate float64
			err  error
		)
		switch opts.Method {
		case MethodSimplified:
			rate, err = simplifiedZero(inst, valuationDate, opts.Yield)
		default:
			rate, err = iterativeZero(inst, points, valuationDate)
		}
		if err != nil {
			return CurveResult{}, domain.WrapIndex("bonds", inst.index, err)
		}
		if rate < minZeroRate || rate > maxZeroRate {
			return CurveResult{}, domain.WrapIndex("bonds", inst.index, &domain.ValidationError{
				Field:  "zero_rate",
				Reason: fmt.Sprintf("%.6f outside [%.2f, %.2f]", rate, minZeroRate, maxZeroRate),
			})
		}
		points = append(points, domain.CurvePoint{Maturity: maturity, Rate: rate})
	}

	curve := domain.YieldCurve{ValuationDate: valuationDate, Method: string(opts.Method), Points: points}
	result := CurveResult{Curve: curve, ForwardRates: ForwardRates(points)}
	if len(points) >= 2 {
		shape, err := ClassifyShape(curve)
		if err != nil {
			return CurveResult{}, err
		}
		result.Shape = &shape
	}
	return result, nil
}

func simplifiedZero(inst instrument, valuationDate time.Time, yieldOpts bonds.YieldOptions) (float64, error) {
	solved, err := bonds.YieldToMaturity(inst.bond, inst.price, valuationDate, yieldOpts)
	if err != nil {
		return 0, err
	}
	return solved.YTM, nil
}

// iterativeZero bisects for the zero rate z at the bond's final cash flow such that discounting
// every flow reproduces the dirty market price. Flows up to the last solved point use the
// interpolated curve; flows beyond it use the line from that point to (maturity, z).
func iterativeZero(inst instrument, solved []domain.CurvePoint, valuationDate time.Time) (float64, error) {
	accrued, err := bonds.AccruedInterest(inst.bond, valuationDate)
	if err != nil {
		return 0, err
	}
	target := inst.price + accrued
	f := float64(inst.bond.Frequency)
	maturity := inst.flows[len(inst.flows)-1].Time

	pv := func(z float64) float64 {
		total := 0.0
		for _, cf := range inst.flows {
			r := extendedRate(solved, maturity, z, cf.Time)
			total += cf.Amount * math.Pow(1+r/f, -f*cf.Time)
		}
		return total
	}

	// present value falls as z rises
	lo, hi := minZeroRate, maxZeroRate
	if target > pv(lo) || target < pv(hi) {
		return 0, &domain.ValidationError{
			Field:  "market_price",
			Reason: fmt.Sprintf("implies a zero rate outside [%.2f, %.2f]", minZeroRate, maxZeroRate),
		}
	}

	for i := 0; i < bisectionMaxIterations && hi-lo > bisectionTolerance; i++ {
		mid := (lo + hi) / 2
		if pv(mid) > target {
			lo = mid
		} else {
			hi = mid
		}
	}
	return (lo + hi) / 2, nil
}

// extendedRate reads the curve made of solved plus a trailing node (maturity, z)
func extendedRate(solved []domain.CurvePoint, maturity, z, t float64) float64 {
	if len(solved) == 0 {
		return z
	}
	last := solved[len(solved)-1]
	if t <= last.Maturity {
		return interpolatePoints(solved, t)
	}
	w := (t - last.Maturity) / (maturity - last.Maturity)
	return last.Rate + w*(z-last.Rate)
}

// PresentValue discounts the remaining cash flows of b on the curve and returns the clean price
func PresentValue(curve domain.YieldCurve, b domain.Bond, valuationDate time.Time) (float64, error) {
	if len(curve.Points) == 0 {
		return 0, &domain.InsufficientDataError{What: "curve points", Need: 1, Got: 0}
	}
	flows, err := bonds.CashFlows(b, valuationDate)
	if err != nil {
		return 0, err
	}
	accrued, err := bonds.AccruedInterest(b, valuationDate)
	if err != nil {
		return 0, err
	}

	f := float64(b.Frequency)
	total := 0.0
	for _, cf := range flows {
		r := interpolatePoints(curve.Points, cf.Time)
		total += cf.Amount * math.Pow(1+r/f, -f*cf.Time)
	}
	return total - accrued, nil
}
