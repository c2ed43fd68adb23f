// Package validation provides guards for ticker symbols, prices and percentages.
//
// The Is* predicates answer "is this value acceptable" and never fail. The
// Require* checkers return typed errors so callers can tell an invalid call
// (non-finite number, malformed symbol) from a value that is merely out of range.
package validation

import (
	"math"
	"regexp"
	"strings"

	apperrors "tradedesk/internal/errors"
)

// tickerPattern: 1-5 uppercase ASCII letters.
var tickerPattern = regexp.MustCompile(`^[A-Z]{1,5}$`)

// Default percentage bounds. The floor is economic (a long position cannot lose
// more than its basis); the ceiling is a display sanity bound.
const (
	MinPercentage = -100.0
	MaxPercentage = 1000.0
)

// PercentBounds is an inclusive range of acceptable percentages.
type PercentBounds struct {
	Min float64
	Max float64
}

// DefaultPercentBounds returns [-100, 1000].
func DefaultPercentBounds() PercentBounds {
	return PercentBounds{Min: MinPercentage, Max: MaxPercentage}
}

// Contains reports whether p is finite and within the bounds.
func (b PercentBounds) Contains(p float64) bool {
	return IsFinite(p) && p >= b.Min && p <= b.Max
}

// IsValidTicker reports whether s is 1-5 uppercase letters. No normalization is
// applied: " aapl" is rejected; call SanitizeTicker first.
func IsValidTicker(s string) bool {
	return tickerPattern.MatchString(s)
}

// SanitizeTicker uppercases and trims s. It is idempotent.
func SanitizeTicker(s string) string {
	return strings.TrimSpace(strings.ToUpper(s))
}

// IsFinite reports whether f is neither NaN nor an infinity.
func IsFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

// IsValidPrice reports whether p is finite and strictly positive.
func IsValidPrice(p float64) bool {
	return IsFinite(p) && p > 0
}

// IsValidPercentage reports whether p is finite and within [-100, 1000].
func IsValidPercentage(p float64) bool {
	return DefaultPercentBounds().Contains(p)
}

// RequireFinite returns a ValidationError if v is NaN or infinite.
func RequireFinite(field string, v float64) error {
	if math.IsNaN(v) {
		return apperrors.NewValidationError(field, v, "must be a number")
	}
	if math.IsInf(v, 0) {
		return apperrors.NewValidationError(field, v, "must be finite")
	}
	return nil
}

// RequirePrice checks that p is a usable price.
func RequirePrice(field string, p float64) error {
	if err := RequireFinite(field, p); err != nil {
		return err
	}
	if !IsValidPrice(p) {
		return apperrors.NewInputError(field, p, "price must be greater than zero")
	}
	return nil
}

// RequirePercentage checks p against the given bounds.
func RequirePercentage(field string, p float64, bounds PercentBounds) error {
	if err := RequireFinite(field, p); err != nil {
		return err
	}
	if !bounds.Contains(p) {
		return apperrors.NewInputError(field, p, "percentage out of range")
	}
	return nil
}

// RequireNonNegative checks that v is finite and >= 0.
func RequireNonNegative(field string, v float64) error {
	if err := RequireFinite(field, v); err != nil {
		return err
	}
	if v < 0 {
		return apperrors.NewInputError(field, v, "must not be negative")
	}
	return nil
}

// RequireShares checks that a share count is not negative.
func RequireShares(field string, shares int64) error {
	if shares < 0 {
		return apperrors.NewInputError(field, shares, "share count must not be negative")
	}
	return nil
}

// RequireTicker checks that s is an already-sanitized, well-formed ticker.
func RequireTicker(field, s string) error {
	if s == "" {
		return apperrors.NewValidationError(field, s, "symbol cannot be empty")
	}
	if !IsValidTicker(s) {
		return apperrors.NewValidationError(field, s, "symbol must be 1-5 uppercase letters")
	}
	return nil
}

// RequireFiniteResult returns an InputError if a computed result overflowed to
// an infinity or became NaN, so no operation reports a non-finite value with a
// nil error.
func RequireFiniteResult(operation string, v float64) (float64, error) {
	if !IsFinite(v) {
		return 0, apperrors.NewInputError("result", v, operation+" overflows")
	}
	return v, nil
}
