package usecase_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vitos/options_alerts/internal/domain"
	"github.com/vitos/options_alerts/internal/usecase"
	"go.uber.org/zap"
)

func openPosition(id, ticker, strategyType string, credit, debit float64, expiration time.Time) *domain.TrackedPosition {
	return &domain.TrackedPosition{
		TradeID:      id,
		Ticker:       ticker,
		StrategyType: strategyType,
		Credit:       credit,
		Debit:        debit,
		Contracts:    1,
		Expiration:   expiration,
		Status:       domain.PositionOpen,
		OpenedAt:     fixedNow.AddDate(0, 0, -5),
		Legs:         []domain.Leg{{Strike: 100, Type: domain.OptionCall, Action: domain.ActionBuy, Expiration: expiration}},
	}
}

type monitorFixture struct {
	repo      *MockPositionRepo
	evaluator *StubEvaluator
	notifier  *MockNotifier
}

func newFixture(positions ...*domain.TrackedPosition) *monitorFixture {
	return &monitorFixture{
		repo:      &MockPositionRepo{Positions: positions},
		evaluator: &StubEvaluator{},
		notifier:  &MockNotifier{},
	}
}

func (f *monitorFixture) deps() usecase.MonitorDeps {
	return usecase.MonitorDeps{
		Positions: f.repo,
		Evaluator: f.evaluator,
		Notifier:  f.notifier,
		Logger:    zap.NewNop(),
	}
}

func reasons(results []usecase.ExitResult) []string {
	return lo.Map(results, func(r usecase.ExitResult, _ int) string { return r.Reason })
}

func TestGammaMonitor_TrailingStop(t *testing.T) {
	pos := openPosition("g1", "AMD", "gamma_lotto_call", 0, 0.25, fixedNow.AddDate(0, 0, 3))
	f := newFixture(pos)
	m := usecase.NewExitMonitor(usecase.GammaMonitorSpec(), f.deps())
	prices := map[string]float64{"AMD": 160}
	ctx := context.Background()

	// Basis is $25. Up $80 is above 3x.
	f.evaluator.Set("g1", 80)
	res, err := m.CheckAndAlert(ctx, prices, fixedNow)
	require.NoError(t, err)
	assert.Equal(t, []string{usecase.ReasonTrailingActivation}, reasons(res))

	st, ok := m.State().GetTrailing("g1")
	require.True(t, ok)
	assert.True(t, st.Activated)
	assert.Equal(t, 80.0, st.PeakPnL)

	// Same P&L again raises nothing.
	res, err = m.CheckAndAlert(ctx, prices, fixedNow.Add(time.Minute))
	require.NoError(t, err)
	assert.Empty(t, res)

	// Gives back below 2x.
	f.evaluator.Set("g1", 40)
	res, err = m.CheckAndAlert(ctx, prices, fixedNow.Add(2*time.Minute))
	require.NoError(t, err)
	assert.Equal(t, []string{usecase.ReasonTrailingTriggered}, reasons(res))

	res, err = m.CheckAndAlert(ctx, prices, fixedNow.Add(3*time.Minute))
	require.NoError(t, err)
	assert.Empty(t, res)
	assert.Equal(t, 2, f.notifier.Count())

	st, _ = m.State().GetTrailing("g1")
	assert.Equal(t, 80.0, st.PeakPnL)
}

func TestGammaMonitor_NoTriggerBeforeActivation(t *testing.T) {
	pos := openPosition("g2", "AMD", "lotto_put", 0, 0.25, fixedNow.AddDate(0, 0, 3))
	f := newFixture(pos)
	m := usecase.NewExitMonitor(usecase.GammaMonitorSpec(), f.deps())

	f.evaluator.Set("g2", 40)
	res, err := m.CheckAndAlert(context.Background(), map[string]float64{"AMD": 140}, fixedNow)
	require.NoError(t, err)
	assert.Empty(t, res)
}

func TestGammaMonitor_ExpiredWorthless(t *testing.T) {
	pos := openPosition("g3", "AMD", "gamma_lotto_call", 0, 0.25, fixedNow)
	f := newFixture(pos)
	m := usecase.NewExitMonitor(usecase.GammaMonitorSpec(), f.deps())

	f.evaluator.Set("g3", -24)
	res, err := m.CheckAndAlert(context.Background(), map[string]float64{"AMD": 140}, fixedNow)
	require.NoError(t, err)
	assert.Equal(t, []string{usecase.ReasonExpiredWorthless}, reasons(res))
}

func TestGammaMonitor_ClosedTradeStateDropped(t *testing.T) {
	pos := openPosition("g4", "AMD", "gamma_lotto_call", 0, 0.25, fixedNow.AddDate(0, 0, 3))
	f := newFixture(pos)
	m := usecase.NewExitMonitor(usecase.GammaMonitorSpec(), f.deps())
	ctx := context.Background()

	f.evaluator.Set("g4", 10)
	_, err := m.CheckAndAlert(ctx, map[string]float64{"AMD": 150}, fixedNow)
	require.NoError(t, err)
	_, ok := m.State().GetTrailing("g4")
	require.True(t, ok)

	require.NoError(t, f.repo.ClosePosition(ctx, "g4", 10, "manual", fixedNow))
	_, err = m.CheckAndAlert(ctx, map[string]float64{"AMD": 150}, fixedNow)
	require.NoError(t, err)
	_, ok = m.State().GetTrailing("g4")
	assert.False(t, ok)
}

func TestMomentumMonitor_EachReasonOnce(t *testing.T) {
	pos := openPosition("m1", "NVDA", "momentum_call", 0, 2.0, fixedNow.AddDate(0, 0, 4))
	f := newFixture(pos)
	m := usecase.NewExitMonitor(usecase.MomentumMonitorSpec(), f.deps())
	prices := map[string]float64{"NVDA": 118}
	ctx := context.Background()

	// Basis $200: down $120 is past the 50% stop, and 4 DTE while red warns too.
	f.evaluator.Set("m1", -120)
	res, err := m.CheckAndAlert(ctx, prices, fixedNow)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{usecase.ReasonStopLoss, usecase.ReasonTimeDecayWarning}, reasons(res))

	res, err = m.CheckAndAlert(ctx, prices, fixedNow.Add(time.Minute))
	require.NoError(t, err)
	assert.Empty(t, res)

	// A later profit target is a different reason and still fires.
	f.evaluator.Set("m1", 150)
	res, err = m.CheckAndAlert(ctx, prices, fixedNow.Add(2*time.Minute))
	require.NoError(t, err)
	assert.Equal(t, []string{usecase.ReasonProfitTarget}, reasons(res))
}

func TestMomentumMonitor_ClosedTradeLedgerDropped(t *testing.T) {
	pos := openPosition("m6", "NVDA", "momentum_call", 0, 2.0, fixedNow.AddDate(0, 0, 20))
	f := newFixture(pos)
	m := usecase.NewExitMonitor(usecase.MomentumMonitorSpec(), f.deps())
	ctx := context.Background()
	prices := map[string]float64{"NVDA": 130}

	f.evaluator.Set("m6", 150)
	res, err := m.CheckAndAlert(ctx, prices, fixedNow)
	require.NoError(t, err)
	require.Equal(t, []string{usecase.ReasonProfitTarget}, reasons(res))
	require.True(t, m.State().Alerted("m6", usecase.ReasonProfitTarget))
	require.Equal(t, 1, m.State().Tracked())

	require.NoError(t, f.repo.ClosePosition(ctx, "m6", 150, "profit_target", fixedNow))
	_, err = m.CheckAndAlert(ctx, prices, fixedNow.Add(time.Minute))
	require.NoError(t, err)
	assert.False(t, m.State().Alerted("m6", usecase.ReasonProfitTarget))
	assert.Zero(t, m.State().Tracked())
}

func TestExitMonitor_SkipsUnclaimedAndUnpriced(t *testing.T) {
	condor := openPosition("c1", "SPX", "iron_condor", 4.0, 0, fixedNow.AddDate(0, 0, 40))
	unpriced := openPosition("m2", "TSLA", "momentum_call", 0, 2.0, fixedNow.AddDate(0, 0, 20))
	noBasis := openPosition("m3", "NVDA", "momentum_call", 0, 0, fixedNow.AddDate(0, 0, 20))
	f := newFixture(condor, unpriced, noBasis)
	m := usecase.NewExitMonitor(usecase.MomentumMonitorSpec(), f.deps())

	f.evaluator.Set("c1", 1000)
	f.evaluator.Set("m2", 1000)
	f.evaluator.Set("m3", 1000)
	res, err := m.CheckAndAlert(context.Background(), map[string]float64{"SPX": 5600, "NVDA": 130}, fixedNow)
	require.NoError(t, err)
	assert.Empty(t, res)
	assert.False(t, m.Claims(condor))
	assert.True(t, m.Claims(unpriced))
}

func TestExitMonitor_EvaluatorErrorSkipsPosition(t *testing.T) {
	pos := openPosition("m4", "NVDA", "momentum_call", 0, 2.0, fixedNow.AddDate(0, 0, 20))
	f := newFixture(pos)
	f.evaluator.Err = errors.New("no chain")
	m := usecase.NewExitMonitor(usecase.MomentumMonitorSpec(), f.deps())

	res, err := m.CheckAndAlert(context.Background(), map[string]float64{"NVDA": 130}, fixedNow)
	require.NoError(t, err)
	assert.Empty(t, res)
}

func TestExitMonitor_ListErrorReturned(t *testing.T) {
	f := newFixture()
	f.repo.ListErr = errors.New("db locked")
	m := usecase.NewExitMonitor(usecase.MomentumMonitorSpec(), f.deps())

	_, err := m.CheckAndAlert(context.Background(), nil, fixedNow)
	assert.Error(t, err)
}

func TestExitMonitor_SendFailureStillMarksAlerted(t *testing.T) {
	pos := openPosition("m5", "NVDA", "momentum_call", 0, 2.0, fixedNow.AddDate(0, 0, 20))
	f := newFixture(pos)
	f.notifier.Err = errTransport
	m := usecase.NewExitMonitor(usecase.MomentumMonitorSpec(), f.deps())

	f.evaluator.Set("m5", 150)
	res, err := m.CheckAndAlert(context.Background(), map[string]float64{"NVDA": 130}, fixedNow)
	require.NoError(t, err)
	assert.Len(t, res, 1)
	assert.True(t, m.State().Alerted("m5", usecase.ReasonProfitTarget))
}

func TestEarningsMonitor_PostEventClose(t *testing.T) {
	pos := openPosition("e1", "AAPL", "earnings_call", 0, 3.0, fixedNow.AddDate(0, 0, 10))
	event := time.Date(2026, 10, 13, 0, 0, 0, 0, time.UTC)
	pos.EventDate = &event
	f := newFixture(pos)
	m := usecase.NewExitMonitor(usecase.EarningsMonitorSpec(), f.deps())

	f.evaluator.Set("e1", 20)
	res, err := m.CheckAndAlert(context.Background(), map[string]float64{"AAPL": 231}, fixedNow)
	require.NoError(t, err)
	assert.Equal(t, []string{usecase.ReasonPostEventClose}, reasons(res))
}

func TestZeroDTEMonitor_NearClose(t *testing.T) {
	// 15:45 New York on expiration day.
	ny, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)
	now := time.Date(2026, 10, 14, 15, 45, 0, 0, ny)

	pos := openPosition("z1", "SPY", "0dte_put_spread", 0.8, 0, now)
	f := newFixture(pos)
	m := usecase.NewExitMonitor(usecase.ZeroDTEMonitorSpec(), f.deps())

	f.evaluator.Set("z1", 10)
	res, err := m.CheckAndAlert(context.Background(), map[string]float64{"SPY": 450}, now)
	require.NoError(t, err)
	assert.Equal(t, []string{usecase.ReasonTimeDecayWarning}, reasons(res))

	early := time.Date(2026, 10, 14, 11, 0, 0, 0, ny)
	m2 := usecase.NewExitMonitor(usecase.ZeroDTEMonitorSpec(), f.deps())
	res, err = m2.CheckAndAlert(context.Background(), map[string]float64{"SPY": 450}, early)
	require.NoError(t, err)
	assert.Empty(t, res)
}

func TestIronCondorMonitor(t *testing.T) {
	pos := openPosition("c2", "SPX", "iron_condor", 4.0, 0, fixedNow.AddDate(0, 0, 40))
	f := newFixture(pos)
	m := usecase.NewExitMonitor(usecase.IronCondorMonitorSpec(), f.deps())

	// Basis $400: +$200 is the 50% target.
	f.evaluator.Set("c2", 200)
	res, err := m.CheckAndAlert(context.Background(), map[string]float64{"SPX": 5650}, fixedNow)
	require.NoError(t, err)
	assert.Equal(t, []string{usecase.ReasonProfitTarget}, reasons(res))
	assert.Contains(t, f.notifier.Messages[0], "PROFIT TARGET HIT")
}

func TestMonitorSuite_RunsAllMonitors(t *testing.T) {
	zeroCondor := openPosition("s1", "SPX", "0dte_iron_condor", 2.0, 0, fixedNow.AddDate(0, 0, 10))
	lotto := openPosition("s2", "AMD", "gamma_lotto_call", 0, 0.25, fixedNow.AddDate(0, 0, 3))
	f := newFixture(zeroCondor, lotto)
	suite := usecase.NewDefaultMonitorSuite(f.deps())
	require.Len(t, suite.Monitors(), 5)

	f.evaluator.Set("s1", 150) // 75% of a $200 credit
	f.evaluator.Set("s2", 100) // 4x a $25 debit
	results := suite.RunCycle(context.Background(), map[string]float64{"SPX": 5650, "AMD": 170}, fixedNow)

	byMonitor := lo.GroupBy(results, func(r usecase.ExitResult) string { return r.Monitor })
	assert.Len(t, byMonitor["0dte"], 1)
	assert.Len(t, byMonitor["iron_condor"], 2) // target plus 10 DTE warning
	assert.Len(t, byMonitor["gamma"], 1)
	assert.Empty(t, byMonitor["momentum"])
}
