// Package estimation turns price histories into the return, volatility and covariance
// inputs the risk and stress engines consume.
package estimation

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/aristath/quantcore/internal/domain"
)

const (
	defaultShrinkage = 0.2
	maxShrinkage     = 0.5
)

// SampleCovariance returns the N-1 sample covariance of returns indexed [asset][observation]
func SampleCovariance(returns [][]float64) ([][]float64, error) {
	t, err := observationCount(returns)
	if err != nil {
		return nil, err
	}
	if t < 2 {
		return nil, &domain.InsufficientDataError{What: "return observations", Need: 2, Got: t}
	}

	n := len(returns)
	cov := squareMatrix(n)
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			c := stat.Covariance(returns[i], returns[j], nil)
			cov[i][j] = c
			cov[j][i] = c
		}
	}
	return cov, nil
}

// LedoitWolfShrinkage pulls a sample covariance towards a target with the average variance on
// the diagonal and the average covariance elsewhere. It returns the shrunk matrix and the
// intensity used, estimated from the dispersion of the sample entries and capped at 50%.
func LedoitWolfShrinkage(sample [][]float64) ([][]float64, float64, error) {
	n := len(sample)
	if n == 0 {
		return nil, 0, &domain.InsufficientDataError{What: "covariance rows", Need: 1, Got: 0}
	}
	if err := domain.ValidateCovariance(sample, n); err != nil {
		return nil, 0, err
	}
	if n == 1 {
		return [][]float64{{sample[0][0]}}, 0, nil
	}

	var avgVar, avgCov float64
	for i := 0; i < n; i++ {
		avgVar += sample[i][i]
		for j := 0; j < n; j++ {
			if i != j {
				avgCov += sample[i][j]
			}
		}
	}
	avgVar /= float64(n)
	avgCov /= float64(n * (n - 1))

	target := mat.NewDense(n, n, nil)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			switch {
			case i == j:
				target.Set(i, j, avgVar)
			case avgVar > 0:
				target.Set(i, j, avgCov)
			}
		}
	}

	shrinkage := defaultShrinkage
	if n > 2 && avgVar > 0 {
		var sumSqDiff, sum, sumSq float64
		for i := 0; i < n; i++ {
			for j := 0; j < n; j++ {
				diff := sample[i][j] - target.At(i, j)
				sumSqDiff += diff * diff
				sum += sample[i][j]
				sumSq += sample[i][j] * sample[i][j]
			}
		}
		cells := float64(n * n)
		meanSqDiff := sumSqDiff / cells
		mean := sum / cells
		dispersion := sumSq/cells - mean*mean
		if dispersion > 0 && meanSqDiff > 0 {
			shrinkage = math.Min(maxShrinkage, math.Max(0, dispersion/(dispersion+meanSqDiff)))
		}
	}

	var shrunk mat.Dense
	shrunk.Scale(1-shrinkage, mat.NewDense(n, n, flatten(sample)))
	target.Scale(shrinkage, target)
	shrunk.Add(&shrunk, target)

	out := squareMatrix(n)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			out[i][j] = shrunk.At(i, j)
		}
	}
	return out, shrinkage, nil
}

// ExponentialWeights returns normalised observation weights, oldest first, halving every halfLife observations
func ExponentialWeights(n int, halfLife float64) ([]float64, error) {
	if n <= 0 {
		return nil, &domain.InsufficientDataError{What: "observations", Need: 1, Got: n}
	}
	if !(halfLife > 0) {
		return nil, &domain.ValidationError{Field: "half_life", Reason: "must be positive"}
	}

	lambda := math.Ln2 / halfLife
	weights := make([]float64, n)
	sum := 0.0
	for i := range weights {
		age := float64(n - 1 - i)
		weights[i] = math.Exp(-lambda * age)
		sum += weights[i]
	}
	for i := range weights {
		weights[i] /= sum
	}
	return weights, nil
}

// WeightedCovariance computes a covariance with observation weights summing to one,
// corrected by 1 − Σw² for the effective sample size.
func WeightedCovariance(returns [][]float64, weights []float64) ([][]float64, error) {
	t, err := observationCount(returns)
	if err != nil {
		return nil, err
	}
	if len(weights) != t {
		return nil, &domain.ValidationError{Field: "weights", Reason: fmt.Sprintf("got %d weights for %d observations", len(weights), t)}
	}

	sumW2 := 0.0
	for _, w := range weights {
		sumW2 += w * w
	}
	denom := 1 - sumW2
	if !(denom > 0) {
		return nil, &domain.InsufficientDataError{What: "effective observations", Need: 2, Got: 1}
	}

	n := len(returns)
	mu := make([]float64, n)
	for i, r := range returns {
		mu[i] = stat.Mean(r, weights)
	}

	cov := squareMatrix(n)
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			s := 0.0
			for k := 0; k < t; k++ {
				s += weights[k] * (returns[i][k] - mu[i]) * (returns[j][k] - mu[j])
			}
			cov[i][j] = s / denom
			cov[j][i] = cov[i][j]
		}
	}
	return cov, nil
}

// CorrelationPair is a pair of assets whose correlation reached the reporting threshold
type CorrelationPair struct {
	Symbol1     string  `json:"symbol1"`
	Symbol2     string  `json:"symbol2"`
	Correlation float64 `json:"correlation"`
}

// HighCorrelations lists pairs with |ρ| ≥ threshold, in row order
func HighCorrelations(cov [][]float64, symbols []string, threshold float64) []CorrelationPair {
	pairs := []CorrelationPair{}
	if len(cov) == 0 || len(symbols) != len(cov) {
		return pairs
	}

	for i := 0; i < len(cov); i++ {
		for j := i + 1; j < len(cov); j++ {
			if cov[i][i] <= 0 || cov[j][j] <= 0 {
				continue
			}
			rho := cov[i][j] / math.Sqrt(cov[i][i]*cov[j][j])
			if math.Abs(rho) >= threshold {
				pairs = append(pairs, CorrelationPair{Symbol1: symbols[i], Symbol2: symbols[j], Correlation: rho})
			}
		}
	}
	return pairs
}

func observationCount(returns [][]float64) (int, error) {
	if len(returns) == 0 {
		return 0, &domain.InsufficientDataError{What: "return series", Need: 1, Got: 0}
	}
	t := len(returns[0])
	for i, r := range returns {
		if len(r) != t {
			return 0, domain.WrapIndex("returns", i, &domain.ValidationError{Field: "length", Reason: fmt.Sprintf("expected %d observations, got %d", t, len(r))})
		}
	}
	return t, nil
}

func squareMatrix(n int) [][]float64 {
	m := make([][]float64, n)
	for i := range m {
		m[i] = make([]float64, n)
	}
	return m
}

func flatten(m [][]float64) []float64 {
	out := make([]float64, 0, len(m)*len(m))
	for _, row := range m {
		out = append(out, row...)
	}
	return out
}
