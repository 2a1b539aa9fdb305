package estimation

import "math"

// isMissing treats NaN and non-positive prices as gaps
func isMissing(p float64) bool {
	return math.IsNaN(p) || !(p > 0)
}

// FillMissing forward-fills gaps from the last valid price, then back-fills leading gaps
// from the first valid one. It returns the filled copy and the number of gaps it found.
// A series with no valid price is returned unchanged.
func FillMissing(prices []float64) ([]float64, int) {
	filled := make([]float64, len(prices))
	copy(filled, prices)

	missing := 0
	var lastValid float64
	hasLastValid := false
	for i, p := range filled {
		if isMissing(p) {
			missing++
			if hasLastValid {
				filled[i] = lastValid
			}
			continue
		}
		lastValid = p
		hasLastValid = true
	}

	var nextValid float64
	hasNextValid := false
	for i := len(filled) - 1; i >= 0; i-- {
		if isMissing(filled[i]) {
			if hasNextValid {
				filled[i] = nextValid
			}
			continue
		}
		nextValid = filled[i]
		hasNextValid = true
	}

	return filled, missing
}
