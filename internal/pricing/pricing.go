// Package pricing provides percent and price change math and derives target
// and stop prices from percentages.
package pricing

import (
	apperrors "tradedesk/internal/errors"
	"tradedesk/internal/validation"
)

// Calculator derives prices from percentages using a configurable percentage range.
type Calculator struct {
	Bounds validation.PercentBounds
}

// NewCalculator creates a Calculator with the given bounds.
func NewCalculator(bounds validation.PercentBounds) Calculator {
	return Calculator{Bounds: bounds}
}

var defaultCalculator = NewCalculator(validation.DefaultPercentBounds())

// PercentChange returns (newValue - oldValue) / oldValue * 100.
// A zero oldValue fails with a DivisionByZeroError.
func PercentChange(oldValue, newValue float64) (float64, error) {
	if err := validation.RequireFinite("old_value", oldValue); err != nil {
		return 0, err
	}
	if err := validation.RequireFinite("new_value", newValue); err != nil {
		return 0, err
	}
	if oldValue == 0 {
		return 0, apperrors.NewDivisionByZeroError("percent_change", "old value is zero")
	}
	return validation.RequireFiniteResult("percent_change", (newValue-oldValue)/oldValue*100)
}

// PriceChange returns newPrice - oldPrice.
func PriceChange(oldPrice, newPrice float64) float64 {
	return newPrice - oldPrice
}

// TargetPriceFromPercent returns currentPrice * (1 + percentGain/100) using the
// default percentage bounds.
func TargetPriceFromPercent(currentPrice, percentGain float64) (float64, error) {
	return defaultCalculator.TargetPrice(currentPrice, percentGain)
}

// StopPriceFromPercent returns entryPrice * (1 - percentLoss/100) using the
// default percentage bounds.
func StopPriceFromPercent(entryPrice, percentLoss float64) (float64, error) {
	return defaultCalculator.StopPrice(entryPrice, percentLoss)
}

// TargetPrice returns currentPrice * (1 + percentGain/100).
func (c Calculator) TargetPrice(currentPrice, percentGain float64) (float64, error) {
	if err := validation.RequirePrice("current_price", currentPrice); err != nil {
		return 0, err
	}
	if err := validation.RequirePercentage("percent_gain", percentGain, c.Bounds); err != nil {
		return 0, err
	}
	return validation.RequireFiniteResult("target_price", currentPrice*(1+percentGain/100))
}

// StopPrice returns entryPrice * (1 - percentLoss/100).
func (c Calculator) StopPrice(entryPrice, percentLoss float64) (float64, error) {
	if err := validation.RequirePrice("entry_price", entryPrice); err != nil {
		return 0, err
	}
	if err := validation.RequirePercentage("percent_loss", percentLoss, c.Bounds); err != nil {
		return 0, err
	}
	return validation.RequireFiniteResult("stop_price", entryPrice*(1-percentLoss/100))
}
