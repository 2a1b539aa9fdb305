package formulas

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// Mean calculates the arithmetic mean of a slice of float64 values
func Mean(data []float64) float64 {
	if len(data) == 0 {
		return 0
	}
	return stat.Mean(data, nil)
}

// StdDev calculates the sample standard deviation of a slice of float64 values
func StdDev(data []float64) float64 {
	if len(data) < 2 {
		return 0
	}
	return stat.StdDev(data, nil)
}

// Variance calculates the sample variance of a slice of float64 values
func Variance(data []float64) float64 {
	if len(data) < 2 {
		return 0
	}
	return stat.Variance(data, nil)
}

// Covariance calculates the covariance between two datasets
func Covariance(x, y []float64) float64 {
	if len(x) < 2 || len(x) != len(y) {
		return 0
	}
	return stat.Covariance(x, y, nil)
}

// tailIndexEpsilon absorbs representation error in 1-confidence, e.g. (1-0.9)*100 = 9.999999999999998
const tailIndexEpsilon = 1e-9

// TailIndex returns floor((1-confidence)*n) clamped to [0, n-1].
// It is the position of the VaR observation in an ascending sample.
func TailIndex(confidence float64, n int) int {
	idx := int(math.Floor((1-confidence)*float64(n) + tailIndexEpsilon))
	if idx < 0 {
		idx = 0
	}
	if idx > n-1 {
		idx = n - 1
	}
	return idx
}
