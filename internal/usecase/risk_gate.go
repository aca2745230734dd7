package usecase

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/samber/lo"
	"github.com/vitos/options_alerts/internal/domain"
)

// RiskGate applies the fixed portfolio rules to a candidate alert. The rules
// run in order and the first failure wins.
type RiskGate struct {
	now func() time.Time
}

func NewRiskGate() *RiskGate {
	return &RiskGate{now: time.Now}
}

// WithClock overrides the wall clock used by the cooldown rule.
func (g *RiskGate) WithClock(now func() time.Time) *RiskGate {
	g.now = now
	return g
}

func (g *RiskGate) Check(alert *domain.Alert, account domain.AccountState) (bool, string) {
	risk := alert.RiskFraction()

	// 1. Per-trade cap
	if risk > domain.MaxRiskPerTrade {
		return false, fmt.Sprintf("per-trade risk %.2f%% exceeds max %.2f%%", risk*100, domain.MaxRiskPerTrade*100)
	}

	// 2. Total exposure
	current := account.PortfolioRisk()
	if current+risk > domain.MaxTotalExposure+domain.ExposureTolerance {
		return false, fmt.Sprintf("total exposure %.2f%% + %.2f%% would exceed max %.2f%%",
			current*100, risk*100, domain.MaxTotalExposure*100)
	}

	// 3. Daily loss breaker
	if account.DailyPnLPct < domain.DailyLossLimit {
		return false, fmt.Sprintf("daily loss %.2f%% breached limit %.2f%%, no new alerts today",
			account.DailyPnLPct*100, domain.DailyLossLimit*100)
	}

	// 4. Weekly loss only flags; the sizer halves size.

	// 5. Correlated positions
	same := lo.CountBy(account.OpenPositions, func(p domain.OpenPosition) bool {
		return p.Direction == alert.Direction()
	})
	if same >= domain.MaxCorrelatedPositions {
		return false, fmt.Sprintf("already %d %s positions open (max %d)", same, alert.Direction(), domain.MaxCorrelatedPositions)
	}

	// 6. Cooldown after stop
	now := g.now()
	for _, stop := range account.RecentStops {
		if !strings.EqualFold(stop.Ticker, alert.Ticker()) {
			continue
		}
		elapsed := now.Sub(stop.At)
		if elapsed < domain.StopCooldown {
			remaining := math.Ceil((domain.StopCooldown - elapsed).Seconds())
			return false, fmt.Sprintf("%s stopped out recently, cooldown %.0fs remaining", alert.Ticker(), remaining)
		}
	}

	return true, "ok"
}

// WeeklyLossBreach reports whether the weekly drawdown flag is set.
func WeeklyLossBreach(account domain.AccountState) bool {
	return account.WeeklyPnLPct < domain.WeeklyLossLimit
}
