package formulas

import (
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/stat/distuv"
)

// ZScore returns the standard normal quantile for a one-sided confidence level
// (1.645 at 0.95, 2.326 at 0.99).
func ZScore(confidence float64) float64 {
	return distuv.UnitNormal.Quantile(confidence)
}

// NormalPDF is the standard normal density φ(x)
func NormalPDF(x float64) float64 {
	return distuv.UnitNormal.Prob(x)
}

// NormalGenerator draws standard normal variates with the Box–Muller transform.
// Each transform yields two independent draws; the second is kept for the next call.
// Not safe for concurrent use: give each goroutine its own generator.
type NormalGenerator struct {
	rng      *rand.Rand
	spare    float64
	hasSpare bool
}

// NewNormalGenerator wraps a random source. Seed the source for reproducible draws.
func NewNormalGenerator(src rand.Source) *NormalGenerator {
	return &NormalGenerator{rng: rand.New(src)}
}

// NewSeededNormalGenerator is a generator over a PCG stream identified by (seed, stream)
func NewSeededNormalGenerator(seed, stream uint64) *NormalGenerator {
	return NewNormalGenerator(rand.NewPCG(seed, stream))
}

// Next returns one N(0,1) draw
func (g *NormalGenerator) Next() float64 {
	if g.hasSpare {
		g.hasSpare = false
		return g.spare
	}

	u1 := g.rng.Float64()
	for u1 == 0 {
		u1 = g.rng.Float64()
	}
	u2 := g.rng.Float64()

	r := math.Sqrt(-2 * math.Log(u1))
	theta := 2 * math.Pi * u2

	g.spare = r * math.Sin(theta)
	g.hasSpare = true
	return r * math.Cos(theta)
}

// NextScaled returns one N(mean, sigma²) draw
func (g *NormalGenerator) NextScaled(mean, sigma float64) float64 {
	return mean + sigma*g.Next()
}
