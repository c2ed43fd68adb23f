package sizing

import (
	"math"

	apperrors "tradedesk/internal/errors"
	"tradedesk/internal/validation"
)

// KellySignal classifies a raw Kelly fraction.
type KellySignal string

const (
	// KellyNoEdge: f <= 0, the inputs say do not take the trade.
	KellyNoEdge KellySignal = "NO_EDGE"
	// KellyNormal: 0 < f <= 1.
	KellyNormal KellySignal = "NORMAL"
	// KellyOverLeveraged: f > 1, the inputs imply betting more than the whole account.
	KellyOverLeveraged KellySignal = "OVER_LEVERAGED"
)

// KellyFraction returns (b*p - q) / b where b = avgWin/avgLoss, p = winRate
// and q = 1 - p.
//
// The raw value is returned unclamped. A negative result means the trade has no
// edge; a result above 1 means the inputs imply over-leverage. Use InterpretKelly
// and ScaleKelly to act on it.
func KellyFraction(winRate, avgWin, avgLoss float64) (float64, error) {
	for _, f := range []struct {
		name string
		v    float64
	}{{"win_rate", winRate}, {"avg_win", avgWin}, {"avg_loss", avgLoss}} {
		if err := validation.RequireFinite(f.name, f.v); err != nil {
			return 0, err
		}
	}
	if winRate < 0 || winRate > 1 {
		return 0, apperrors.NewInputError("win_rate", winRate, "must be between 0 and 1")
	}
	if avgWin < 0 {
		return 0, apperrors.NewInputError("avg_win", avgWin, "must be a non-negative magnitude")
	}
	if avgLoss < 0 {
		return 0, apperrors.NewInputError("avg_loss", avgLoss, "must be a non-negative magnitude")
	}
	if avgLoss == 0 {
		return 0, apperrors.NewDivisionByZeroError("kelly_fraction", "average loss is zero")
	}

	if avgWin == 0 {
		return 0, apperrors.NewDivisionByZeroError("kelly_fraction", "average win is zero")
	}

	b := avgWin / avgLoss
	if b == 0 || math.IsInf(b, 0) {
		return 0, apperrors.NewInputError("avg_win", avgWin, "win/loss ratio is outside the float range")
	}
	p := winRate
	q := 1 - p

	return validation.RequireFiniteResult("kelly_fraction", (b*p-q)/b)
}

// InterpretKelly classifies f without modifying it.
func InterpretKelly(f float64) KellySignal {
	switch {
	case f <= 0:
		return KellyNoEdge
	case f > 1:
		return KellyOverLeveraged
	default:
		return KellyNormal
	}
}

// ScaleKelly returns f * multiplier, e.g. 0.5 for half-Kelly.
func ScaleKelly(f, multiplier float64) (float64, error) {
	if err := validation.RequireFinite("kelly_fraction", f); err != nil {
		return 0, err
	}
	if err := validation.RequireNonNegative("multiplier", multiplier); err != nil {
		return 0, err
	}
	return f * multiplier, nil
}
