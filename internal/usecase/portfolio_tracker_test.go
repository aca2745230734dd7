package usecase_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vitos/options_alerts/internal/domain"
	"github.com/vitos/options_alerts/internal/usecase"
	"go.uber.org/zap"
)

func closedPosition(id, ticker string, pnl float64, reason string, at time.Time) *domain.TrackedPosition {
	return &domain.TrackedPosition{
		TradeID:     id,
		Ticker:      ticker,
		Status:      domain.PositionClosed,
		ClosedAt:    &at,
		RealizedPnL: pnl,
		CloseReason: reason,
	}
}

func TestPortfolioTracker_AccountState(t *testing.T) {
	repo := &MockPositionRepo{Positions: []*domain.TrackedPosition{
		{TradeID: "o1", Ticker: "SPY", Direction: domain.DirectionBullish, RiskFraction: 0.02, Status: domain.PositionOpen},
		{TradeID: "o2", Ticker: "QQQ", Direction: domain.DirectionBearish, RiskFraction: 0.01, Status: domain.PositionOpen},
		closedPosition("c1", "TSLA", -300, usecase.ReasonStopLoss, fixedNow.Add(-time.Hour)),
		closedPosition("c2", "AAPL", -200, usecase.ReasonProfitTarget, time.Date(2026, 10, 12, 16, 0, 0, 0, time.UTC)), // Monday
		closedPosition("c3", "MSFT", -900, usecase.ReasonStopLoss, time.Date(2026, 10, 9, 16, 0, 0, 0, time.UTC)),     // last week
	}}
	tracker := usecase.NewPortfolioTracker(repo, 100000, clock)

	state, err := tracker.AccountState(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 100000.0, state.AccountValue)
	assert.Len(t, state.OpenPositions, 2)
	assert.InDelta(t, 0.03, state.PortfolioRisk(), 1e-12)
	assert.InDelta(t, -0.003, state.DailyPnLPct, 1e-12)
	assert.InDelta(t, -0.005, state.WeeklyPnLPct, 1e-12)
	require.Len(t, state.RecentStops, 1)
	assert.Equal(t, "TSLA", state.RecentStops[0].Ticker)
}

func TestPortfolioTracker_ListError(t *testing.T) {
	repo := &MockPositionRepo{ListErr: errors.New("db locked")}
	tracker := usecase.NewPortfolioTracker(repo, 100000, clock)

	_, err := tracker.AccountState(context.Background())
	assert.Error(t, err)
}

func TestAlertService_ProcessBatch(t *testing.T) {
	positions := &MockPositionRepo{Positions: []*domain.TrackedPosition{
		{TradeID: "o1", Ticker: "AAPL", Direction: domain.DirectionBullish, RiskFraction: 0.01, Status: domain.PositionOpen},
		{TradeID: "o2", Ticker: "MSFT", Direction: domain.DirectionBullish, RiskFraction: 0.01, Status: domain.PositionOpen},
		{TradeID: "o3", Ticker: "NVDA", Direction: domain.DirectionBullish, RiskFraction: 0.01, Status: domain.PositionOpen},
	}}
	router := newRouter(&MockNotifier{}, &MockAlertRepo{})
	service := usecase.NewAlertService(router, usecase.NewPortfolioTracker(positions, 100000, clock), zap.NewNop())

	bearish := domain.Opportunity{
		"ticker": "QQQ", "strategy_type": "bear_call_spread", "score": 75.0,
		"short_strike": 500.0, "long_strike": 505.0, "credit": 1.0, "dte": 20,
	}
	alerts, err := service.ProcessBatch(context.Background(), []domain.Opportunity{putSpread("SPY", 80), bearish}, 50)
	require.NoError(t, err)

	// Three bullish trades are already open.
	require.Len(t, alerts, 1)
	assert.Equal(t, "QQQ", alerts[0].Ticker())
	assert.Len(t, service.LastRouted(), 1)
}

func TestPriceBook(t *testing.T) {
	book := usecase.NewPriceBook()
	book.Update(map[string]float64{"spy": 450, "QQQ": 0}, fixedNow)

	snap := book.Snapshot()
	assert.Equal(t, map[string]float64{"SPY": 450}, snap)
	assert.Equal(t, fixedNow, book.UpdatedAt())

	snap["SPY"] = 1
	assert.Equal(t, 450.0, book.Snapshot()["SPY"])
}

func TestDedupLedger(t *testing.T) {
	ledger := usecase.NewDedupLedger(usecase.DedupWindow)
	ledger.Record("SPY", domain.DirectionBullish, fixedNow)

	assert.True(t, ledger.Recent("SPY", domain.DirectionBullish, fixedNow.Add(29*time.Minute)))
	assert.False(t, ledger.Recent("SPY", domain.DirectionBullish, fixedNow.Add(30*time.Minute)))
	assert.False(t, ledger.Recent("SPY", domain.DirectionBearish, fixedNow))
	assert.Equal(t, 1, ledger.Len())
}
