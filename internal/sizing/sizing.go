// Package sizing converts between dollar amounts and share counts and computes
// Kelly-criterion fractions.
package sizing

import (
	"math"

	"github.com/shopspring/decimal"

	apperrors "tradedesk/internal/errors"
	"tradedesk/internal/validation"
)

// SharesFromDollars returns floor(dollarAmount / pricePerShare).
func SharesFromDollars(dollarAmount, pricePerShare float64) (int64, error) {
	if err := validation.RequireNonNegative("dollar_amount", dollarAmount); err != nil {
		return 0, err
	}
	if err := validation.RequirePrice("price_per_share", pricePerShare); err != nil {
		return 0, err
	}

	shares, _ := decimal.NewFromFloat(dollarAmount).
		QuoRem(decimal.NewFromFloat(pricePerShare), 0)
	if shares.GreaterThan(decimal.NewFromInt(math.MaxInt64)) {
		return 0, apperrors.NewInputError("shares", shares.String(), "share count overflows")
	}
	return shares.IntPart(), nil
}

// DollarsFromShares returns shares * pricePerShare.
//
// The product is taken in decimal so that SharesFromDollars(DollarsFromShares(n, p), p)
// gives back n for prices quoted in cents.
func DollarsFromShares(shares int64, pricePerShare float64) (float64, error) {
	if err := validation.RequireShares("shares", shares); err != nil {
		return 0, err
	}
	if err := validation.RequireNonNegative("price_per_share", pricePerShare); err != nil {
		return 0, err
	}
	return validation.RequireFiniteResult("dollars_from_shares",
		decimal.NewFromInt(shares).Mul(decimal.NewFromFloat(pricePerShare)).InexactFloat64())
}
