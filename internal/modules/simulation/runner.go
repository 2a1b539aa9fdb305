// Package simulation runs Monte Carlo paths in fixed-size batches across a bounded worker pool.
//
// Every batch draws from its own random stream, identified by the batch index, and writes
// into its own slice of the output. The output therefore depends only on the seed and the
// batch size, never on the number of workers or on scheduling order.
package simulation

import (
	"context"
	"math/rand/v2"
	"runtime"

	"github.com/shirou/gopsutil/v3/cpu"
	"golang.org/x/sync/errgroup"

	"github.com/aristath/quantcore/internal/domain"
	"github.com/aristath/quantcore/pkg/formulas"
)

// DefaultBatchSize is the number of paths simulated per batch
const DefaultBatchSize = 1024

// SourceFunc returns the random source for one batch
type SourceFunc func(batch int) rand.Source

// FillFunc fills out with simulated values drawn from gen
type FillFunc func(gen *formulas.NormalGenerator, out []float64)

// Options controls batching and randomness of a run
type Options struct {
	Seed      uint64
	Workers   int        // <= 0 uses the logical CPU count
	BatchSize int        // <= 0 uses DefaultBatchSize
	Source    SourceFunc // overrides Seed when set
}

// SeededSource returns PCG streams keyed by (seed, batch)
func SeededSource(seed uint64) SourceFunc {
	return func(batch int) rand.Source {
		return rand.NewPCG(seed, uint64(batch))
	}
}

// DefaultWorkers returns the logical CPU count reported by the host
func DefaultWorkers() int {
	n, err := cpu.Counts(true)
	if err != nil || n <= 0 {
		return runtime.NumCPU()
	}
	return n
}

func (o Options) workers() int {
	if o.Workers > 0 {
		return o.Workers
	}
	return DefaultWorkers()
}

func (o Options) batchSize() int {
	if o.BatchSize > 0 {
		return o.BatchSize
	}
	return DefaultBatchSize
}

func (o Options) source() SourceFunc {
	if o.Source != nil {
		return o.Source
	}
	return SeededSource(o.Seed)
}

// Run simulates n values. On cancellation it returns the context error and no values.
func Run(ctx context.Context, n int, opts Options, fill FillFunc) ([]float64, error) {
	if n <= 0 {
		return nil, &domain.ValidationError{Field: "simulations", Reason: "must be positive"}
	}

	batch := opts.batchSize()
	numBatches := (n + batch - 1) / batch
	source := opts.source()
	out := make([]float64, n)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.workers())

	for b := 0; b < numBatches; b++ {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			start := b * batch
			end := min(start+batch, n)
			fill(formulas.NewNormalGenerator(source(b)), out[start:end])
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
