package curves

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sync"
	"time"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/aristath/quantcore/internal/domain"
)

// Cache memoizes bootstrapped curves by their inputs.
// It is passed explicitly to BootstrapCached; nothing in this package holds one globally.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]CurveResult
}

// NewCache creates an empty curve cache
func NewCache() *Cache {
	return &Cache{entries: make(map[string]CurveResult)}
}

// Get returns a copy of the cached result for key
func (c *Cache) Get(key string) (CurveResult, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	result, ok := c.entries[key]
	if !ok {
		return CurveResult{}, false
	}
	return result.clone(), true
}

// Set stores a copy of result under key
func (c *Cache) Set(key string, result CurveResult) {
	c.mu.Lock()
	c.entries[key] = result.clone()
	c.mu.Unlock()
}

// Purge drops every entry and returns how many were removed
func (c *Cache) Purge() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := len(c.entries)
	c.entries = make(map[string]CurveResult)
	return n
}

// Len returns the number of cached curves
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

type cacheKeyInput struct {
	Universe      domain.BondUniverse `msgpack:"universe"`
	ValuationDate time.Time           `msgpack:"valuation_date"`
	Method        Method              `msgpack:"method"`
	Tolerance     float64             `msgpack:"tolerance"`
	MaxIterations int                 `msgpack:"max_iterations"`
}

// CacheKey hashes the msgpack encoding of everything that determines a bootstrap result
func CacheKey(universe domain.BondUniverse, valuationDate time.Time, opts Options) (string, error) {
	if opts.Method == "" {
		opts.Method = MethodIterative
	}
	payload, err := msgpack.Marshal(cacheKeyInput{
		Universe:      universe,
		ValuationDate: valuationDate.UTC(),
		Method:        opts.Method,
		Tolerance:     opts.Yield.Tolerance,
		MaxIterations: opts.Yield.MaxIterations,
	})
	if err != nil {
		return "", fmt.Errorf("failed to encode curve cache key: %w", err)
	}
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:]), nil
}

// BootstrapCached is a read-through wrapper around Bootstrap.
// The second return value reports whether the result came from the cache. Failures are not cached.
func BootstrapCached(cache *Cache, universe domain.BondUniverse, valuationDate time.Time, opts Options) (CurveResult, bool, error) {
	if cache == nil {
		result, err := Bootstrap(universe, valuationDate, opts)
		return result, false, err
	}

	key, err := CacheKey(universe, valuationDate, opts)
	if err != nil {
		return CurveResult{}, false, err
	}
	if result, ok := cache.Get(key); ok {
		return result, true, nil
	}

	result, err := Bootstrap(universe, valuationDate, opts)
	if err != nil {
		return CurveResult{}, false, err
	}
	cache.Set(key, result)
	return result, false, nil
}

func (r CurveResult) clone() CurveResult {
	out := r
	if r.Curve.Points != nil {
		out.Curve.Points = make([]domain.CurvePoint, len(r.Curve.Points))
		copy(out.Curve.Points, r.Curve.Points)
	}
	if r.ForwardRates != nil {
		out.ForwardRates = make([]ForwardRate, len(r.ForwardRates))
		copy(out.ForwardRates, r.ForwardRates)
	}
	if r.Shape != nil {
		shape := *r.Shape
		out.Shape = &shape
	}
	return out
}
