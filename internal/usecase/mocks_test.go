package usecase_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/vitos/options_alerts/internal/domain"
)

// MockNotifier records every message; Err makes Send fail, FailOn only for
// messages containing that text.
type MockNotifier struct {
	mu       sync.Mutex
	Messages []string
	Err      error
	FailOn   string
}

func (m *MockNotifier) Send(ctx context.Context, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	if m.FailOn != "" && strings.Contains(text, m.FailOn) {
		return errTransport
	}
	m.Messages = append(m.Messages, text)
	return nil
}

func (m *MockNotifier) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Messages)
}

// MockAlertRepo
type MockAlertRepo struct {
	mu      sync.Mutex
	Records []domain.AlertRecord
	Err     error
}

func (m *MockAlertRepo) SaveAlert(ctx context.Context, rec domain.AlertRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.Records = append(m.Records, rec)
	return nil
}

func (m *MockAlertRepo) ListAlerts(ctx context.Context, limit int) ([]domain.AlertRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.AlertRecord(nil), m.Records...), nil
}

// MockPositionRepo keeps positions in memory.
type MockPositionRepo struct {
	mu        sync.Mutex
	Positions []*domain.TrackedPosition
	ListErr   error
}

func (m *MockPositionRepo) SavePosition(ctx context.Context, pos *domain.TrackedPosition) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Positions = append(m.Positions, pos)
	return nil
}

func (m *MockPositionRepo) GetPosition(ctx context.Context, tradeID string) (*domain.TrackedPosition, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.Positions {
		if p.TradeID == tradeID {
			return p, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *MockPositionRepo) ListOpenPositions(ctx context.Context) ([]*domain.TrackedPosition, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ListErr != nil {
		return nil, m.ListErr
	}
	var out []*domain.TrackedPosition
	for _, p := range m.Positions {
		if p.Status != domain.PositionClosed {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *MockPositionRepo) ListClosedSince(ctx context.Context, since time.Time) ([]*domain.TrackedPosition, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*domain.TrackedPosition
	for _, p := range m.Positions {
		if p.Status == domain.PositionClosed && p.ClosedAt != nil && !p.ClosedAt.Before(since) {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *MockPositionRepo) ClosePosition(ctx context.Context, tradeID string, pnl float64, reason string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.Positions {
		if p.TradeID == tradeID && p.Status != domain.PositionClosed {
			p.Status = domain.PositionClosed
			p.RealizedPnL = pnl
			p.CloseReason = reason
			p.ClosedAt = &at
			return nil
		}
	}
	return domain.ErrNotFound
}

// StubEvaluator returns a settable P&L per trade.
type StubEvaluator struct {
	mu  sync.Mutex
	PnL map[string]float64
	Err error
}

func (s *StubEvaluator) Set(tradeID string, pnl float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.PnL == nil {
		s.PnL = make(map[string]float64)
	}
	s.PnL[tradeID] = pnl
}

func (s *StubEvaluator) Evaluate(pos *domain.TrackedPosition, price float64, dte int) (domain.Evaluation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return domain.Evaluation{}, s.Err
	}
	return domain.Evaluation{PnL: s.PnL[pos.TradeID]}, nil
}

var errTransport = errors.New("transport down")

// fixedNow is a Wednesday afternoon, well inside a trading week.
var fixedNow = time.Date(2026, 10, 14, 15, 0, 0, 0, time.UTC)

func clock() time.Time { return fixedNow }

func newTestAlert(t *testing.T, ticker string, kind domain.StrategyKind, dir domain.Direction, risk float64) *domain.Alert {
	t.Helper()
	exp := fixedNow.AddDate(0, 0, 30)
	a, err := domain.NewAlert(domain.AlertParams{
		Ticker:          ticker,
		Kind:            kind,
		Direction:       dir,
		Confidence:      domain.ConfidenceMedium,
		TimeSensitivity: domain.TimeToday,
		Legs: []domain.Leg{
			{Strike: 440, Type: domain.OptionPut, Action: domain.ActionSell, Expiration: exp},
			{Strike: 435, Type: domain.OptionPut, Action: domain.ActionBuy, Expiration: exp},
		},
		EntryPrice:   1.0,
		RiskFraction: risk,
		Score:        75,
		CreatedAt:    fixedNow,
	})
	require.NoError(t, err)
	return a
}
