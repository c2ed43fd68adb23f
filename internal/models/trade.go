package models

// PriceRange is an inclusive entry zone.
type PriceRange struct {
	Min float64 `json:"min" yaml:"min"`
	Max float64 `json:"max" yaml:"max"`
}

// Mid returns the midpoint of the range.
func (r PriceRange) Mid() float64 {
	return (r.Min + r.Max) / 2
}

// Playbook holds the three narrative branches of a plan.
type Playbook struct {
	BestCase     string `json:"bestCase" yaml:"bestCase"`
	BaseCase     string `json:"baseCase" yaml:"baseCase"`
	Invalidation string `json:"invalidation" yaml:"invalidation"`
}

// TradePlan represents a planned trade.
//
// Long:  Stop < Entry.Min <= Entry.Max < Targets[0] <= ... <= Targets[n-1]
// Short: Stop > Entry.Max >= Entry.Min > Targets[0] >= ... >= Targets[n-1]
type TradePlan struct {
	Setup       string     `json:"setup" yaml:"setup"`
	Entry       PriceRange `json:"entry" yaml:"entry"`
	Targets     []float64  `json:"targets" yaml:"targets"`
	Stop        float64    `json:"stop" yaml:"stop"`
	RiskReward  float64    `json:"riskReward" yaml:"riskReward"`
	Confidence  float64    `json:"confidence" yaml:"confidence"`
	TimeHorizon string     `json:"timeHorizon" yaml:"timeHorizon"`
	Playbook    Playbook   `json:"playbook" yaml:"playbook"`
}

// Clone returns a deep copy of the plan.
func (p TradePlan) Clone() TradePlan {
	c := p
	if p.Targets != nil {
		c.Targets = append([]float64(nil), p.Targets...)
	}
	return c
}

// AIInsight is produced by the external insight generator and travels with a setup.
type AIInsight struct {
	Sentiment Sentiment `json:"sentiment" yaml:"sentiment"`
	Summary   []string  `json:"summary" yaml:"summary"`
	Drivers   []string  `json:"drivers" yaml:"drivers"`
	Risks     []string  `json:"risks" yaml:"risks"`
	Rating    float64   `json:"rating" yaml:"rating"`
}

// Clone returns a deep copy of the insight.
func (a AIInsight) Clone() AIInsight {
	c := a
	c.Summary = cloneStrings(a.Summary)
	c.Drivers = cloneStrings(a.Drivers)
	c.Risks = cloneStrings(a.Risks)
	return c
}

// TradeSetup aggregates a ticker symbol, timeframe, plan and insight.
// Direction is optional; when empty it is inferred from Insight.Sentiment.
type TradeSetup struct {
	Ticker    string    `json:"ticker" yaml:"ticker"`
	Timeframe Timeframe `json:"timeframe" yaml:"timeframe"`
	Direction Direction `json:"direction,omitempty" yaml:"direction,omitempty"`
	Plan      TradePlan `json:"plan" yaml:"plan"`
	Insight   AIInsight `json:"insight" yaml:"insight"`
}

// ResolveDirection returns the explicit direction or the one implied by the
// insight's sentiment.
func (s TradeSetup) ResolveDirection() (Direction, error) {
	if s.Direction != "" {
		return ParseDirection(string(s.Direction))
	}
	return DirectionFromSentiment(s.Insight.Sentiment)
}

// Clone returns a deep copy of the setup.
func (s TradeSetup) Clone() TradeSetup {
	c := s
	c.Plan = s.Plan.Clone()
	c.Insight = s.Insight.Clone()
	return c
}

// WithRiskReward returns a copy of the setup with Plan.RiskReward set.
func (s TradeSetup) WithRiskReward(rr float64) TradeSetup {
	c := s.Clone()
	c.Plan.RiskReward = rr
	return c
}

// PlanStatus represents the lifecycle state of a stored trade setup.
type PlanStatus string

const (
	PlanPending   PlanStatus = "PENDING"
	PlanActive    PlanStatus = "ACTIVE"
	PlanExecuted  PlanStatus = "EXECUTED"
	PlanCancelled PlanStatus = "CANCELLED"
	PlanExpired   PlanStatus = "EXPIRED"
)

// ParsePlanStatus parses a status name, case-sensitively upper.
func ParsePlanStatus(s string) (PlanStatus, bool) {
	switch st := PlanStatus(s); st {
	case PlanPending, PlanActive, PlanExecuted, PlanCancelled, PlanExpired:
		return st, true
	}
	return "", false
}

func cloneStrings(in []string) []string {
	if in == nil {
		return nil
	}
	return append([]string(nil), in...)
}
