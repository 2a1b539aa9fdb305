package bonds

import (
	"time"

	"github.com/aristath/quantcore/internal/domain"
)

// PricingRequest asks for a bond to be priced at a yield
type PricingRequest struct {
	Bond  domain.Bond `json:"bond"`
	Yield float64     `json:"yield"`
}

// PricingItem is the outcome for one bond of a batch. Exactly one of Result and Err is set.
type PricingItem struct {
	BondID string                    `json:"bond_id"`
	Result *domain.BondPricingResult `json:"result,omitempty"`
	Error  string                    `json:"error,omitempty"`
	Err    error                     `json:"-"`
}

// YieldItem is the outcome of a yield solve for one bond of a batch
type YieldItem struct {
	BondID string     `json:"bond_id"`
	Result *YTMResult `json:"result,omitempty"`
	Error  string     `json:"error,omitempty"`
	Err    error      `json:"-"`
}

// PriceBatch prices every request independently; one failure does not stop the others
func PriceBatch(requests []PricingRequest, valuationDate time.Time) []PricingItem {
	items := make([]PricingItem, len(requests))
	for i, req := range requests {
		items[i].BondID = req.Bond.ID
		result, err := Price(req.Bond, req.Yield, valuationDate)
		if err != nil {
			items[i].Err = domain.WrapIndex("bonds", i, err)
			items[i].Error = items[i].Err.Error()
			continue
		}
		items[i].Result = &result
	}
	return items
}

// YieldBatch solves the yield of every bond in the universe independently.
// A bond that fails to converge is reported on its own item; the rest are still solved.
func YieldBatch(universe domain.BondUniverse, valuationDate time.Time, opts YieldOptions) ([]YieldItem, error) {
	if len(universe.Bonds) != len(universe.Prices) {
		return nil, &domain.ValidationError{Field: "prices", Reason: "count does not match number of bonds"}
	}

	items := make([]YieldItem, len(universe.Bonds))
	for i, b := range universe.Bonds {
		items[i].BondID = b.ID
		result, err := YieldToMaturity(b, universe.Prices[i], valuationDate, opts)
		if err != nil {
			items[i].Err = domain.WrapIndex("bonds", i, err)
			items[i].Error = items[i].Err.Error()
			continue
		}
		items[i].Result = &result
	}
	return items, nil
}

// Failures counts the items of a batch that carry an error
func Failures(items []YieldItem) int {
	n := 0
	for _, it := range items {
		if it.Err != nil {
			n++
		}
	}
	return n
}
