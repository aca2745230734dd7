package storage_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vitos/options_alerts/internal/domain"
	"github.com/vitos/options_alerts/internal/infrastructure/storage"
)

func newStore(t *testing.T) *storage.SQLiteStore {
	t.Helper()
	store, err := storage.NewSQLiteStore(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestSQLiteStore_Alerts(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	older := domain.AlertRecord{
		ID: "a1", Ticker: "SPY", Kind: "credit_spread", Direction: "bullish", Confidence: "high",
		TimeSensitivity: "today", EntryPrice: 1.2, RiskFraction: 0.02, Score: 80, Status: "sent",
		CreatedAt: "2026-10-14T14:00:00Z",
		Legs:      []domain.LegRecord{{Strike: 440, Type: "put", Action: "sell", Expiration: "2026-11-20"}},
		Size:      &domain.SizeResult{Contracts: 5, DollarRisk: 2000, MaxLoss: 1900},
	}
	newer := older
	newer.ID = "a2"
	newer.Ticker = "QQQ"
	newer.Size = nil
	newer.CreatedAt = "2026-10-14T15:00:00Z"

	require.NoError(t, store.SaveAlert(ctx, older))
	require.NoError(t, store.SaveAlert(ctx, newer))

	// Saving again updates in place.
	older.Status = "expired"
	require.NoError(t, store.SaveAlert(ctx, older))

	got, err := store.ListAlerts(ctx, 10)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "a2", got[0].ID)
	assert.Equal(t, "a1", got[1].ID)
	assert.Equal(t, "expired", got[1].Status)
	require.NotNil(t, got[1].Size)
	assert.Equal(t, 5, got[1].Size.Contracts)
	assert.Equal(t, older.Legs, got[1].Legs)

	limited, err := store.ListAlerts(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestSQLiteStore_PositionLifecycle(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	opened := time.Date(2026, 10, 10, 14, 30, 0, 0, time.UTC)
	exp := time.Date(2026, 11, 20, 0, 0, 0, 0, time.UTC)
	event := time.Date(2026, 10, 28, 0, 0, 0, 0, time.UTC)
	pos := &domain.TrackedPosition{
		TradeID:      "t1",
		AlertID:      "a1",
		Ticker:       "AAPL",
		StrategyType: "earnings_call",
		Direction:    domain.DirectionBullish,
		Legs:         []domain.Leg{{Strike: 230, Type: domain.OptionCall, Action: domain.ActionBuy, Expiration: exp}},
		Debit:        3.1,
		Contracts:    2,
		RiskFraction: 0.01,
		Expiration:   exp,
		EventDate:    &event,
		OpenedAt:     opened,
	}
	require.NoError(t, store.SavePosition(ctx, pos))

	got, err := store.GetPosition(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, domain.PositionOpen, got.Status)
	assert.Equal(t, "AAPL", got.Ticker)
	assert.Equal(t, 2, got.Contracts)
	assert.True(t, got.Expiration.Equal(exp))
	require.NotNil(t, got.EventDate)
	assert.True(t, got.EventDate.Equal(event))
	require.Len(t, got.Legs, 1)
	assert.Equal(t, 230.0, got.Legs[0].Strike)
	assert.Nil(t, got.ClosedAt)

	open, err := store.ListOpenPositions(ctx)
	require.NoError(t, err)
	assert.Len(t, open, 1)

	closedAt := time.Date(2026, 10, 14, 15, 0, 0, 0, time.UTC)
	require.NoError(t, store.ClosePosition(ctx, "t1", -310, "stop_loss", closedAt))

	open, err = store.ListOpenPositions(ctx)
	require.NoError(t, err)
	assert.Empty(t, open)

	closed, err := store.ListClosedSince(ctx, closedAt.Add(-time.Hour))
	require.NoError(t, err)
	require.Len(t, closed, 1)
	assert.Equal(t, -310.0, closed[0].RealizedPnL)
	assert.Equal(t, "stop_loss", closed[0].CloseReason)
	require.NotNil(t, closed[0].ClosedAt)
	assert.True(t, closed[0].ClosedAt.Equal(closedAt))

	none, err := store.ListClosedSince(ctx, closedAt.Add(time.Hour))
	require.NoError(t, err)
	assert.Empty(t, none)

	// Closing twice is an error.
	err = store.ClosePosition(ctx, "t1", 0, "manual", closedAt)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestSQLiteStore_GetPositionNotFound(t *testing.T) {
	store := newStore(t)
	_, err := store.GetPosition(context.Background(), "missing")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}
