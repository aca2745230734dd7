package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/samber/lo"
	"github.com/vitos/options_alerts/internal/domain"
)

// PortfolioTracker builds the account snapshot the risk gate needs from the
// position store.
type PortfolioTracker struct {
	positions    domain.PositionRepository
	accountValue float64
	now          func() time.Time
}

func NewPortfolioTracker(positions domain.PositionRepository, accountValue float64, now func() time.Time) *PortfolioTracker {
	if now == nil {
		now = time.Now
	}
	return &PortfolioTracker{positions: positions, accountValue: accountValue, now: now}
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// startOfWeek returns Monday 00:00 of t's ISO week.
func startOfWeek(t time.Time) time.Time {
	offset := (int(t.Weekday()) + 6) % 7
	return startOfDay(t).AddDate(0, 0, -offset)
}

func (t *PortfolioTracker) AccountState(ctx context.Context) (domain.AccountState, error) {
	now := t.now()
	open, err := t.positions.ListOpenPositions(ctx)
	if err != nil {
		return domain.AccountState{}, fmt.Errorf("list open positions: %w", err)
	}

	weekStart := startOfWeek(now)
	since := weekStart
	if cooldownStart := now.Add(-domain.StopCooldown); cooldownStart.Before(since) {
		since = cooldownStart
	}
	closed, err := t.positions.ListClosedSince(ctx, since)
	if err != nil {
		return domain.AccountState{}, fmt.Errorf("list closed positions: %w", err)
	}

	state := domain.AccountState{
		AccountValue: t.accountValue,
		OpenPositions: lo.Map(open, func(p *domain.TrackedPosition, _ int) domain.OpenPosition {
			return domain.OpenPosition{Ticker: p.Ticker, Direction: p.Direction, RiskFraction: p.RiskFraction}
		}),
	}

	dayStart := startOfDay(now)
	var daily, weekly float64
	for _, p := range closed {
		if p.ClosedAt == nil {
			continue
		}
		at := *p.ClosedAt
		if !at.Before(weekStart) {
			weekly += p.RealizedPnL
		}
		if !at.Before(dayStart) {
			daily += p.RealizedPnL
		}
		if p.CloseReason == ReasonStopLoss && now.Sub(at) < domain.StopCooldown {
			state.RecentStops = append(state.RecentStops, domain.StopOut{Ticker: p.Ticker, At: at})
		}
	}
	if t.accountValue > 0 {
		state.DailyPnLPct = daily / t.accountValue
		state.WeeklyPnLPct = weekly / t.accountValue
	}
	return state, nil
}
