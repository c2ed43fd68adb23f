// Package planner validates trade setups and derives their risk/reward figures
// and position sizes from the pricing, risk and sizing packages.
package planner

import (
	"fmt"

	apperrors "tradedesk/internal/errors"
	"tradedesk/internal/models"
	"tradedesk/internal/pricing"
	"tradedesk/internal/risk"
	"tradedesk/internal/validation"
)

// Options configures a Planner.
type Options struct {
	// MinRiskReward flags plans whose first-target ratio is below it. Zero disables the check.
	MinRiskReward float64
	Bounds        validation.PercentBounds
}

// DefaultOptions returns a 2:1 minimum and the default percentage bounds.
func DefaultOptions() Options {
	return Options{
		MinRiskReward: 2.0,
		Bounds:        validation.DefaultPercentBounds(),
	}
}

// Account describes the capital a setup is sized against.
type Account struct {
	Size        float64
	RiskPercent float64
}

// Report is the result of evaluating a setup.
type Report struct {
	Symbol         string           `json:"symbol"`
	Direction      models.Direction `json:"direction"`
	EntryReference float64          `json:"entryReference"`
	RiskPerShare   float64          `json:"riskPerShare"`
	RiskReward     float64          `json:"riskReward"`
	TargetRatios   []float64        `json:"targetRatios"`
	MeetsMinimum   bool             `json:"meetsMinimum"`
	Warnings       []string         `json:"warnings,omitempty"`

	// Populated only when an Account is supplied.
	Shares       int64   `json:"shares,omitempty"`
	DollarRisk   float64 `json:"dollarRisk,omitempty"`
	DollarReward float64 `json:"dollarReward,omitempty"`
}

// Planner evaluates setups. It holds no state between calls.
type Planner struct {
	opts Options
	calc pricing.Calculator
}

// New creates a Planner.
func New(opts Options) *Planner {
	return &Planner{
		opts: opts,
		calc: pricing.NewCalculator(opts.Bounds),
	}
}

// EntryReference is the price ratios are measured from: the midpoint of the
// entry range.
func EntryReference(plan models.TradePlan) float64 {
	return plan.Entry.Mid()
}

// ValidateLevels checks the plan's levels against the ordering invariant for dir.
//
// Long:  stop < entry.min <= entry.max < targets[0] <= ... <= targets[n-1]
// Short: stop > entry.max >= entry.min > targets[0] >= ... >= targets[n-1]
func ValidateLevels(plan models.TradePlan, dir models.Direction) error {
	if err := validation.RequirePrice("entry.min", plan.Entry.Min); err != nil {
		return err
	}
	if err := validation.RequirePrice("entry.max", plan.Entry.Max); err != nil {
		return err
	}
	if err := validation.RequirePrice("stop", plan.Stop); err != nil {
		return err
	}
	if len(plan.Targets) == 0 {
		return apperrors.NewInputError("targets", plan.Targets, "at least one target is required")
	}
	for i, t := range plan.Targets {
		if err := validation.RequirePrice(fmt.Sprintf("targets[%d]", i), t); err != nil {
			return err
		}
	}
	if plan.Entry.Min > plan.Entry.Max {
		return apperrors.NewInputError("entry", plan.Entry, "entry.min must not exceed entry.max")
	}

	first := plan.Targets[0]
	switch dir {
	case models.DirectionLong:
		if plan.Stop >= plan.Entry.Min {
			return apperrors.NewInputError("stop", plan.Stop, "long stop must be below entry.min")
		}
		if first <= plan.Entry.Max {
			return apperrors.NewInputError("targets[0]", first, "long target must be above entry.max")
		}
		for i := 1; i < len(plan.Targets); i++ {
			if plan.Targets[i] < plan.Targets[i-1] {
				return apperrors.NewInputError(fmt.Sprintf("targets[%d]", i), plan.Targets[i], "long targets must not decrease")
			}
		}
	case models.DirectionShort:
		if plan.Stop <= plan.Entry.Max {
			return apperrors.NewInputError("stop", plan.Stop, "short stop must be above entry.max")
		}
		if first >= plan.Entry.Min {
			return apperrors.NewInputError("targets[0]", first, "short target must be below entry.min")
		}
		for i := 1; i < len(plan.Targets); i++ {
			if plan.Targets[i] > plan.Targets[i-1] {
				return apperrors.NewInputError(fmt.Sprintf("targets[%d]", i), plan.Targets[i], "short targets must not increase")
			}
		}
	default:
		return apperrors.NewValidationError("direction", dir, "must be long or short")
	}
	return nil
}

// Evaluate validates setup and computes its figures. account may be nil.
// It returns the report and a copy of setup whose Plan.RiskReward holds the
// first-target ratio; setup itself is not modified.
func (p *Planner) Evaluate(setup models.TradeSetup, account *Account) (*Report, models.TradeSetup, error) {
	symbol := validation.SanitizeTicker(setup.Ticker)
	if err := validation.RequireTicker("ticker", symbol); err != nil {
		return nil, setup, err
	}
	if setup.Timeframe != "" {
		if _, err := models.ParseTimeframe(string(setup.Timeframe)); err != nil {
			return nil, setup, err
		}
	}

	dir, err := setup.ResolveDirection()
	if err != nil {
		return nil, setup, err
	}
	if err := ValidateLevels(setup.Plan, dir); err != nil {
		return nil, setup, err
	}

	plan := setup.Plan
	entry := EntryReference(plan)

	report := &Report{
		Symbol:         symbol,
		Direction:      dir,
		EntryReference: entry,
		TargetRatios:   make([]float64, 0, len(plan.Targets)),
	}

	for _, target := range plan.Targets {
		rr, err := risk.RiskRewardRatio(entry, target, plan.Stop)
		if err != nil {
			return nil, setup, err
		}
		report.TargetRatios = append(report.TargetRatios, rr)
	}
	report.RiskReward = report.TargetRatios[0]
	if report.RiskPerShare, err = risk.RiskAmount(entry, plan.Stop, 1); err != nil {
		return nil, setup, err
	}

	report.MeetsMinimum = p.opts.MinRiskReward <= 0 || report.RiskReward >= p.opts.MinRiskReward
	if !report.MeetsMinimum {
		report.Warnings = append(report.Warnings,
			fmt.Sprintf("risk/reward %.2f is below minimum %.2f", report.RiskReward, p.opts.MinRiskReward))
	}
	if plan.Confidence < 0 || plan.Confidence > 100 {
		report.Warnings = append(report.Warnings,
			fmt.Sprintf("confidence %.1f is outside 0-100", plan.Confidence))
	}

	if account != nil {
		shares, err := risk.PositionSizeFromRisk(account.Size, account.RiskPercent, entry, plan.Stop)
		if err != nil {
			return nil, setup, err
		}
		report.Shares = shares
		if report.DollarRisk, err = risk.RiskAmount(entry, plan.Stop, shares); err != nil {
			return nil, setup, err
		}
		if report.DollarReward, err = risk.RewardAmount(entry, plan.Targets[0], shares); err != nil {
			return nil, setup, err
		}
		if shares == 0 {
			report.Warnings = append(report.Warnings, "risk budget is smaller than the risk of one share")
		}
	}

	updated := setup.WithRiskReward(report.RiskReward)
	updated.Ticker = symbol
	updated.Direction = dir
	return report, updated, nil
}

// LevelSpec describes levels to derive from a reference price.
type LevelSpec struct {
	Price          float64
	Direction      models.Direction
	EntryBandPct   float64   // half-width of the entry range, percent of Price
	TargetPercents []float64 // favorable moves, percent of Price
	StopPercent    float64   // adverse move, percent of Price
}

// BuildLevels derives a TradePlan's entry, targets and stop from spec. The
// returned plan has RiskReward set from the entry midpoint and first target.
func (p *Planner) BuildLevels(spec LevelSpec) (models.TradePlan, error) {
	if err := validation.RequirePrice("price", spec.Price); err != nil {
		return models.TradePlan{}, err
	}
	if err := validation.RequirePercentage("entry_band", spec.EntryBandPct, validation.PercentBounds{Min: 0, Max: 100}); err != nil {
		return models.TradePlan{}, err
	}
	if len(spec.TargetPercents) == 0 {
		return models.TradePlan{}, apperrors.NewInputError("targets", spec.TargetPercents, "at least one target percentage is required")
	}

	// gain/loss sign per side: a long gains upward, a short gains downward.
	var sign float64
	switch spec.Direction {
	case models.DirectionLong:
		sign = 1
	case models.DirectionShort:
		sign = -1
	default:
		return models.TradePlan{}, apperrors.NewValidationError("direction", spec.Direction, "must be long or short")
	}

	low, err := p.calc.StopPrice(spec.Price, spec.EntryBandPct)
	if err != nil {
		return models.TradePlan{}, err
	}
	high, err := p.calc.TargetPrice(spec.Price, spec.EntryBandPct)
	if err != nil {
		return models.TradePlan{}, err
	}

	plan := models.TradePlan{
		Entry:   models.PriceRange{Min: low, Max: high},
		Targets: make([]float64, 0, len(spec.TargetPercents)),
	}
	for _, pct := range spec.TargetPercents {
		target, err := p.calc.TargetPrice(spec.Price, sign*pct)
		if err != nil {
			return models.TradePlan{}, err
		}
		plan.Targets = append(plan.Targets, target)
	}
	plan.Stop, err = p.calc.StopPrice(spec.Price, sign*spec.StopPercent)
	if err != nil {
		return models.TradePlan{}, err
	}

	if err := ValidateLevels(plan, spec.Direction); err != nil {
		return models.TradePlan{}, err
	}
	plan.RiskReward, err = risk.RiskRewardRatio(EntryReference(plan), plan.Targets[0], plan.Stop)
	if err != nil {
		return models.TradePlan{}, err
	}
	return plan, nil
}
