// Package risk computes risk and reward amounts, risk/reward ratios and
// risk-based position sizes.
package risk

import (
	"math"

	"github.com/shopspring/decimal"

	apperrors "tradedesk/internal/errors"
	"tradedesk/internal/validation"
)

// RiskRewardRatio returns |target - entry| / |entry - stop|.
// Equal entry and stop fail with a DivisionByZeroError; an infinite ratio is
// never returned.
func RiskRewardRatio(entry, target, stop float64) (float64, error) {
	if err := requireFinite(level{"entry", entry}, level{"target", target}, level{"stop", stop}); err != nil {
		return 0, err
	}
	risk := math.Abs(entry - stop)
	if math.IsInf(risk, 0) {
		return 0, apperrors.NewInputError("stop", stop, "distance from entry overflows")
	}
	if risk == 0 {
		return 0, apperrors.NewDivisionByZeroError("risk_reward_ratio", "entry equals stop")
	}
	return validation.RequireFiniteResult("risk_reward_ratio", math.Abs(target-entry)/risk)
}

// RiskAmount returns |entry - stop| * shares.
func RiskAmount(entry, stop float64, shares int64) (float64, error) {
	if err := requireFinite(level{"entry", entry}, level{"stop", stop}); err != nil {
		return 0, err
	}
	if err := validation.RequireShares("shares", shares); err != nil {
		return 0, err
	}
	return validation.RequireFiniteResult("risk_amount", math.Abs(entry-stop)*float64(shares))
}

// RewardAmount returns |target - entry| * shares.
func RewardAmount(entry, target float64, shares int64) (float64, error) {
	if err := requireFinite(level{"entry", entry}, level{"target", target}); err != nil {
		return 0, err
	}
	if err := validation.RequireShares("shares", shares); err != nil {
		return 0, err
	}
	return validation.RequireFiniteResult("reward_amount", math.Abs(target-entry)*float64(shares))
}

// PositionSizeFromRisk returns floor(accountSize * riskPercent/100 / |entry - stop|).
// The share count is floored, never rounded up, so the dollar risk at the stop
// stays within the budget.
func PositionSizeFromRisk(accountSize, riskPercent, entry, stop float64) (int64, error) {
	if err := validation.RequireNonNegative("account_size", accountSize); err != nil {
		return 0, err
	}
	if err := validation.RequirePercentage("risk_percent", riskPercent, validation.PercentBounds{Min: 0, Max: 100}); err != nil {
		return 0, err
	}
	if err := requireFinite(level{"entry", entry}, level{"stop", stop}); err != nil {
		return 0, err
	}
	if entry == stop {
		return 0, apperrors.NewDivisionByZeroError("position_size_from_risk", "entry equals stop")
	}

	// Truncated quotient of account*risk / (perShare*100), with no intermediate rounding.
	perShare := decimal.NewFromFloat(entry).Sub(decimal.NewFromFloat(stop)).Abs()
	shares, _ := decimal.NewFromFloat(accountSize).
		Mul(decimal.NewFromFloat(riskPercent)).
		QuoRem(perShare.Mul(decimal.NewFromInt(100)), 0)
	if shares.GreaterThan(decimal.NewFromInt(math.MaxInt64)) {
		return 0, apperrors.NewInputError("position_size", shares.String(), "share count overflows")
	}
	return shares.IntPart(), nil
}

// RiskBudget returns accountSize * riskPercent / 100 as an exact decimal.
func RiskBudget(accountSize, riskPercent float64) decimal.Decimal {
	return decimal.NewFromFloat(accountSize).
		Mul(decimal.NewFromFloat(riskPercent)).
		Mul(decimal.New(1, -2))
}

type level struct {
	field string
	value float64
}

func requireFinite(levels ...level) error {
	for _, l := range levels {
		if err := validation.RequireFinite(l.field, l.value); err != nil {
			return err
		}
	}
	return nil
}
