package domain

import (
	"strings"
	"time"
)

type PositionStatus string

const (
	PositionOpen   PositionStatus = "open"
	PositionClosed PositionStatus = "closed"
)

// TrackedPosition is an open trade the operator took from an alert.
type TrackedPosition struct {
	TradeID      string         `json:"trade_id"`
	AlertID      string         `json:"alert_id,omitempty"`
	Ticker       string         `json:"ticker"`
	StrategyType string         `json:"strategy_type"` // legacy tag, e.g. "gamma_lotto_call" or "0dte_put_spread"
	Direction    Direction      `json:"direction"`
	Legs         []Leg          `json:"legs"`
	Credit       float64        `json:"credit"` // per-share premium received, credit structures
	Debit        float64        `json:"debit"`  // per-share premium paid, debit structures
	Contracts    int            `json:"contracts"`
	RiskFraction float64        `json:"risk_pct"`
	Expiration   time.Time      `json:"expiration"`
	EventDate    *time.Time     `json:"event_date,omitempty"` // earnings or macro event the trade is built around
	Status       PositionStatus `json:"status"`
	OpenedAt     time.Time      `json:"opened_at"`
	ClosedAt     *time.Time     `json:"closed_at,omitempty"`
	RealizedPnL  float64        `json:"realized_pnl"`
	CloseReason  string         `json:"close_reason,omitempty"`
}

// IsCredit reports whether the trade was opened for a net credit.
func (p *TrackedPosition) IsCredit() bool {
	return p.Credit > 0
}

// Basis is the premium per share the trade is measured against.
func (p *TrackedPosition) Basis() float64 {
	if p.Credit > 0 {
		return p.Credit
	}
	return p.Debit
}

// BasisDollars is the premium in dollars across all contracts.
func (p *TrackedPosition) BasisDollars() float64 {
	contracts := p.Contracts
	if contracts <= 0 {
		contracts = 1
	}
	return p.Basis() * ContractMultiplier * float64(contracts)
}

// MatchesType is the case-insensitive substring test monitors use to claim
// positions.
func (p *TrackedPosition) MatchesType(fragment string) bool {
	return strings.Contains(strings.ToLower(p.StrategyType), strings.ToLower(fragment))
}

// DTE returns whole calendar days to expiration, negative once expired.
func (p *TrackedPosition) DTE(now time.Time) int {
	if p.Expiration.IsZero() {
		return 0
	}
	y1, m1, d1 := now.Date()
	y2, m2, d2 := p.Expiration.Date()
	from := time.Date(y1, m1, d1, 0, 0, 0, 0, time.UTC)
	to := time.Date(y2, m2, d2, 0, 0, 0, 0, time.UTC)
	return int(to.Sub(from).Hours() / 24)
}
