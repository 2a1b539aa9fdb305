package domain

import (
	"errors"
	"fmt"
)

// ValidationError reports malformed inputs (bond terms, portfolio shape, ranges)
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// ConvergenceError reports a root search that exhausted its iteration budget.
// It is fatal for the bond/price pair that produced it.
type ConvergenceError struct {
	Iterations    int
	LastYield     float64
	LastPriceDiff float64
}

func (e *ConvergenceError) Error() string {
	return fmt.Sprintf("yield did not converge after %d iterations (last yield %.6f, price diff %.6f)",
		e.Iterations, e.LastYield, e.LastPriceDiff)
}

// InsufficientDataError reports an input series or set that is too small
type InsufficientDataError struct {
	What string
	Need int
	Got  int
}

func (e *InsufficientDataError) Error() string {
	return fmt.Sprintf("insufficient %s: need at least %d, got %d", e.What, e.Need, e.Got)
}

// WrapIndex prefixes err with the collection and index it was found at, keeping the type reachable via errors.As
func WrapIndex(collection string, index int, err error) error {
	return fmt.Errorf("%s[%d]: %w", collection, index, err)
}

// IsValidation reports whether err wraps a *ValidationError
func IsValidation(err error) bool {
	var target *ValidationError
	return errors.As(err, &target)
}

// IsConvergence reports whether err wraps a *ConvergenceError
func IsConvergence(err error) bool {
	var target *ConvergenceError
	return errors.As(err, &target)
}

// IsInsufficientData reports whether err wraps an *InsufficientDataError
func IsInsufficientData(err error) bool {
	var target *InsufficientDataError
	return errors.As(err, &target)
}
