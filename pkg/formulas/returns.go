package formulas

import (
	"math"

	"github.com/markcheno/go-talib"
)

// CalculateReturns converts prices to simple percentage returns
// Returns[i] = (Price[i+1] - Price[i]) / Price[i]; a zero previous price yields 0.
func CalculateReturns(prices []float64) []float64 {
	if len(prices) < 2 {
		return []float64{}
	}

	// Rocp leaves the first value of the lookback window at zero
	rocp := talib.Rocp(prices, 1)
	returns := make([]float64, len(prices)-1)
	copy(returns, rocp[1:])

	for i, r := range returns {
		if math.IsNaN(r) || math.IsInf(r, 0) {
			returns[i] = 0
		}
	}
	return returns
}

// RollingVolatility returns the population standard deviation of the last window returns.
// Falls back to the full-sample standard deviation when fewer than window observations exist.
func RollingVolatility(returns []float64, window int) float64 {
	if len(returns) == 0 {
		return 0
	}
	if window < 2 || len(returns) < window {
		return StdDev(returns)
	}

	rolling := talib.StdDev(returns, window, 1.0)
	last := rolling[len(rolling)-1]
	if math.IsNaN(last) {
		return StdDev(returns)
	}
	return last
}
