package risk

import (
	"math"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	apperrors "tradedesk/internal/errors"
)

func TestRiskRewardRatio(t *testing.T) {
	tests := []struct {
		name                string
		entry, target, stop float64
		want                float64
	}{
		{"long", 100, 110, 95, 2.0},
		{"short", 100, 85, 105, 3.0},
		{"target at entry", 100, 100, 90, 0},
		{"fractional", 20.5, 23.5, 19.5, 3.0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := RiskRewardRatio(tt.entry, tt.target, tt.stop)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("RiskRewardRatio(%v, %v, %v) = %v, want %v", tt.entry, tt.target, tt.stop, got, tt.want)
			}
		})
	}
}

func TestRiskRewardRatioEntryEqualsStop(t *testing.T) {
	_, err := RiskRewardRatio(100, 110, 100)
	if !apperrors.Is(err, apperrors.ErrDivisionByZero) {
		t.Fatalf("expected ErrDivisionByZero, got %v", err)
	}
	var dz *apperrors.DivisionByZeroError
	if !apperrors.As(err, &dz) || dz.Operation != "risk_reward_ratio" {
		t.Errorf("expected DivisionByZeroError for risk_reward_ratio, got %v", err)
	}
}

func TestRiskRewardRatioNonFinite(t *testing.T) {
	_, err := RiskRewardRatio(100, math.Inf(1), 95)
	if !apperrors.Is(err, apperrors.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}

func TestRiskAndRewardAmounts(t *testing.T) {
	r, err := RiskAmount(100, 95, 10)
	if err != nil || r != 50 {
		t.Errorf("RiskAmount = %v, %v; want 50", r, err)
	}
	w, err := RewardAmount(100, 110, 10)
	if err != nil || w != 100 {
		t.Errorf("RewardAmount = %v, %v; want 100", w, err)
	}
	r, err = RiskAmount(100, 105, 0)
	if err != nil || r != 0 {
		t.Errorf("RiskAmount with zero shares = %v, %v; want 0", r, err)
	}

	if _, err := RiskAmount(100, 95, -1); !apperrors.Is(err, apperrors.ErrInvalidInput) {
		t.Errorf("negative shares: expected ErrInvalidInput, got %v", err)
	}
	if _, err := RewardAmount(100, 110, -5); !apperrors.Is(err, apperrors.ErrInvalidInput) {
		t.Errorf("negative shares: expected ErrInvalidInput, got %v", err)
	}
}

func TestPositionSizeFromRisk(t *testing.T) {
	tests := []struct {
		name                          string
		account, riskPct, entry, stop float64
		want                          int64
	}{
		{"one percent of ten thousand", 10000, 1, 50, 48, 50},
		{"floors fractional shares", 10000, 1, 50, 47, 33},
		{"short side", 25000, 2, 40, 42.5, 200},
		{"cents", 1000, 1, 0.3, 0.2, 100},
		{"zero account", 0, 1, 50, 48, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := PositionSizeFromRisk(tt.account, tt.riskPct, tt.entry, tt.stop)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("PositionSizeFromRisk = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestPositionSizeFromRiskErrors(t *testing.T) {
	if _, err := PositionSizeFromRisk(10000, 1, 50, 50); !apperrors.Is(err, apperrors.ErrDivisionByZero) {
		t.Errorf("entry == stop: expected ErrDivisionByZero, got %v", err)
	}
	if _, err := PositionSizeFromRisk(-1, 1, 50, 48); !apperrors.Is(err, apperrors.ErrInvalidInput) {
		t.Errorf("negative account: expected ErrInvalidInput, got %v", err)
	}
	if _, err := PositionSizeFromRisk(10000, 120, 50, 48); !apperrors.Is(err, apperrors.ErrInvalidInput) {
		t.Errorf("risk above 100%%: expected ErrInvalidInput, got %v", err)
	}
	if _, err := PositionSizeFromRisk(10000, math.NaN(), 50, 48); !apperrors.Is(err, apperrors.ErrValidation) {
		t.Errorf("NaN risk: expected ErrValidation, got %v", err)
	}
}

func TestResultsOutsideFloatRange(t *testing.T) {
	if _, err := RiskRewardRatio(1e-300, 1e300, 0); !apperrors.Is(err, apperrors.ErrInvalidInput) {
		t.Errorf("ratio overflow: expected ErrInvalidInput, got %v", err)
	}
	if _, err := RiskRewardRatio(math.MaxFloat64, 0, -math.MaxFloat64); !apperrors.Is(err, apperrors.ErrInvalidInput) {
		t.Errorf("risk distance overflow: expected ErrInvalidInput, got %v", err)
	}
	if _, err := RiskAmount(math.MaxFloat64, -math.MaxFloat64, 1); !apperrors.Is(err, apperrors.ErrInvalidInput) {
		t.Errorf("risk amount overflow: expected ErrInvalidInput, got %v", err)
	}
	if _, err := RewardAmount(1, math.MaxFloat64, 2); !apperrors.Is(err, apperrors.ErrInvalidInput) {
		t.Errorf("reward amount overflow: expected ErrInvalidInput, got %v", err)
	}
}

func TestPositionSizeFromRiskTruncatesExactly(t *testing.T) {
	// account*risk/100 is just under one cent, the per-share risk.
	got, err := PositionSizeFromRisk(0.9999999999999998, 1.0000000000000002, 100, 99.99)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != 0 {
		t.Errorf("PositionSizeFromRisk() = %d, want 0", got)
	}
}

// Property: the floored position never risks more than the budget, and one more
// share would exceed it.
func TestProperty_PositionSizeWithinBudget(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	parameters.Rng.Seed(time.Now().UnixNano())

	properties := gopter.NewProperties(parameters)

	properties.Property("risk at stop stays within budget", prop.ForAll(
		func(account, riskPct, entry, stopPct float64) bool {
			stop := entry * (1 - stopPct/100)
			if stop == entry {
				return true
			}
			shares, err := PositionSizeFromRisk(account, riskPct, entry, stop)
			if err != nil {
				t.Logf("unexpected error: %v", err)
				return false
			}
			budget := account * riskPct / 100
			perShare := math.Abs(entry - stop)
			tolerance := 1e-6 * math.Max(1, budget)
			if float64(shares)*perShare > budget+tolerance {
				t.Logf("over budget: shares=%d perShare=%v budget=%v", shares, perShare, budget)
				return false
			}
			return float64(shares+1)*perShare > budget-tolerance
		},
		gen.Float64Range(0, 1e6),
		gen.Float64Range(0.1, 5),
		gen.Float64Range(1, 1000),
		gen.Float64Range(0.5, 20),
	))

	properties.Property("ratio is reward distance over risk distance", prop.ForAll(
		func(entry, rewardDist, riskDist float64) bool {
			ratio, err := RiskRewardRatio(entry, entry+rewardDist, entry-riskDist)
			if err != nil {
				return false
			}
			want := math.Abs(rewardDist) / math.Abs(riskDist)
			return math.Abs(ratio-want) <= 1e-6*math.Max(1, want)
		},
		gen.Float64Range(10, 1000),
		gen.Float64Range(0, 100),
		gen.Float64Range(0.5, 9),
	))

	properties.TestingRun(t)
}
