// Package models provides domain models for the trading dashboard.
package models

import (
	"math"

	apperrors "tradedesk/internal/errors"
	"tradedesk/internal/validation"
)

// Ticker is a quoted instrument as supplied by the market-data collaborator.
//
// ChangePercent is expected to equal Change / (Price - Change) * 100 at the
// source of truth. The previous close is not carried, so this is reported by
// ChangePercentConsistent rather than enforced.
type Ticker struct {
	Symbol        string   `json:"symbol" yaml:"symbol"`
	Name          string   `json:"name" yaml:"name"`
	Exchange      string   `json:"exchange" yaml:"exchange"`
	Sector        string   `json:"sector" yaml:"sector"`
	Price         float64  `json:"price" yaml:"price"`
	Change        float64  `json:"change" yaml:"change"`
	ChangePercent float64  `json:"changePercent" yaml:"changePercent"`
	Volume        int64    `json:"volume" yaml:"volume"`
	AvgVolume     int64    `json:"avgVolume" yaml:"avgVolume"`
	MarketCap     float64  `json:"marketCap" yaml:"marketCap"`
	Float         float64  `json:"float" yaml:"float"`
	ShortInterest *float64 `json:"shortInterest,omitempty" yaml:"shortInterest,omitempty"`
}

// Validate checks the symbol format and the price.
func (t Ticker) Validate() error {
	if err := validation.RequireTicker("symbol", t.Symbol); err != nil {
		return err
	}
	return validation.RequirePrice("price", t.Price)
}

// ImpliedPreviousPrice returns Price - Change.
func (t Ticker) ImpliedPreviousPrice() float64 {
	return t.Price - t.Change
}

// ChangePercentConsistent reports whether ChangePercent agrees with Change and
// the implied previous price within tol percentage points.
func (t Ticker) ChangePercentConsistent(tol float64) bool {
	prev := t.ImpliedPreviousPrice()
	if prev == 0 {
		return false
	}
	return math.Abs(t.Change/prev*100-t.ChangePercent) <= tol
}

// Timeframe is the holding horizon of a setup.
type Timeframe string

const (
	TimeframeDay      Timeframe = "day"
	TimeframeSwing    Timeframe = "swing"
	TimeframePosition Timeframe = "position"
)

// ParseTimeframe parses a timeframe name.
func ParseTimeframe(s string) (Timeframe, error) {
	switch tf := Timeframe(s); tf {
	case TimeframeDay, TimeframeSwing, TimeframePosition:
		return tf, nil
	}
	return "", apperrors.NewValidationError("timeframe", s, "must be day, swing or position")
}

// Sentiment is the directional view of an insight.
type Sentiment string

const (
	SentimentBullish Sentiment = "bullish"
	SentimentBearish Sentiment = "bearish"
	SentimentNeutral Sentiment = "neutral"
)

// ParseSentiment parses a sentiment name.
func ParseSentiment(s string) (Sentiment, error) {
	switch se := Sentiment(s); se {
	case SentimentBullish, SentimentBearish, SentimentNeutral:
		return se, nil
	}
	return "", apperrors.NewValidationError("sentiment", s, "must be bullish, bearish or neutral")
}

// Direction is the side a plan is built for.
type Direction string

const (
	DirectionLong  Direction = "long"
	DirectionShort Direction = "short"
)

// ParseDirection parses a direction name.
func ParseDirection(s string) (Direction, error) {
	switch d := Direction(s); d {
	case DirectionLong, DirectionShort:
		return d, nil
	}
	return "", apperrors.NewValidationError("direction", s, "must be long or short")
}

// DirectionFromSentiment maps bullish to long and bearish to short. Neutral
// carries no direction.
func DirectionFromSentiment(s Sentiment) (Direction, error) {
	switch s {
	case SentimentBullish:
		return DirectionLong, nil
	case SentimentBearish:
		return DirectionShort, nil
	}
	return "", apperrors.NewInputError("sentiment", s, "no direction can be inferred; supply one explicitly")
}
