package domain

import "time"

// OpenPosition is the risk view of one open trade.
type OpenPosition struct {
	Ticker       string    `json:"ticker"`
	Direction    Direction `json:"direction"`
	RiskFraction float64   `json:"risk_pct"`
}

// StopOut records a position closed at its stop.
type StopOut struct {
	Ticker string    `json:"ticker"`
	At     time.Time `json:"at"`
}

// AccountState is a read-only snapshot supplied fresh every cycle.
type AccountState struct {
	AccountValue  float64        `json:"account_value"`
	OpenPositions []OpenPosition `json:"open_positions"`
	DailyPnLPct   float64        `json:"daily_pnl_pct"`
	WeeklyPnLPct  float64        `json:"weekly_pnl_pct"`
	RecentStops   []StopOut      `json:"recent_stops"`
}

// PortfolioRisk is the sum of risk fractions of all open positions.
func (s AccountState) PortfolioRisk() float64 {
	total := 0.0
	for _, p := range s.OpenPositions {
		total += p.RiskFraction
	}
	return total
}
