package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/samber/lo"
	"github.com/vitos/options_alerts/internal/domain"
	"go.uber.org/zap"
)

// Exit reasons shared by the monitors.
const (
	ReasonProfitTarget       = "profit_target"
	ReasonStopLoss           = "stop_loss"
	ReasonTimeDecayWarning   = "time_decay_warning"
	ReasonPostEventClose     = "post_event_close"
	ReasonTrailingActivation = "trailing_stop_activation"
	ReasonTrailingTriggered  = "trailing_stop_triggered"
	ReasonExpiredWorthless   = "expired_worthless"
)

// ExitCheck is what a rule sees for one position in one cycle.
type ExitCheck struct {
	Position *domain.TrackedPosition
	Price    float64
	PnL      float64
	Basis    float64 // premium in dollars, always > 0
	DTE      int
	Now      time.Time
	// Trailing is nil unless the monitor keeps trailing-stop state.
	Trailing *TrailingStopState
}

// PnLMultiple is P&L expressed in multiples of the premium basis.
func (c *ExitCheck) PnLMultiple() float64 {
	return c.PnL / c.Basis
}

// ExitRule is one row of a monitor's reason table.
type ExitRule struct {
	Reason   string
	Trigger  func(c *ExitCheck) bool
	Template string // placeholders: {ticker} {pnl} {pct} {dte} {price}
}

func (r ExitRule) render(c *ExitCheck) string {
	return strings.NewReplacer(
		"{ticker}", c.Position.Ticker,
		"{pnl}", money(c.PnL),
		"{pct}", pct(c.PnLMultiple()),
		"{dte}", fmt.Sprintf("%d", c.DTE),
		"{price}", fmt.Sprintf("%.2f", c.Price),
	).Replace(r.Template)
}

// ExitResult describes one exit alert raised in a cycle.
type ExitResult struct {
	Monitor string  `json:"monitor"`
	TradeID string  `json:"trade_id"`
	Ticker  string  `json:"ticker"`
	Reason  string  `json:"reason"`
	PnL     float64 `json:"pnl"`
}

// MonitorSpec parametrizes the generic exit monitor.
type MonitorSpec struct {
	Name     string
	Claims   []string // strategy type fragments this monitor owns
	Rules    []ExitRule
	Trailing bool
}

type MonitorDeps struct {
	Positions domain.PositionRepository
	Evaluator domain.PositionEvaluator
	Formatter domain.ExitFormatter
	Notifier  domain.Notifier
	Logger    *zap.Logger
}

// ExitMonitor watches the open positions it claims and raises each exit
// reason at most once per trade.
type ExitMonitor struct {
	spec      MonitorSpec
	positions domain.PositionRepository
	evaluator domain.PositionEvaluator
	formatter domain.ExitFormatter
	notifier  domain.Notifier
	logger    *zap.Logger
	state     *ExitStateStore
}

func NewExitMonitor(spec MonitorSpec, deps MonitorDeps) *ExitMonitor {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	evaluator := deps.Evaluator
	if evaluator == nil {
		evaluator = NewIntrinsicEvaluator()
	}
	formatter := deps.Formatter
	if formatter == nil {
		formatter = NewAlertFormatter()
	}
	return &ExitMonitor{
		spec:      spec,
		positions: deps.Positions,
		evaluator: evaluator,
		formatter: formatter,
		notifier:  deps.Notifier,
		logger:    logger.With(zap.String("monitor", spec.Name)),
		state:     NewExitStateStore(),
	}
}

func (m *ExitMonitor) Name() string {
	return m.spec.Name
}

// State exposes the monitor's ledger and trailing table.
func (m *ExitMonitor) State() *ExitStateStore {
	return m.state
}

func (m *ExitMonitor) Claims(pos *domain.TrackedPosition) bool {
	return lo.SomeBy(m.spec.Claims, func(fragment string) bool {
		return pos.MatchesType(fragment)
	})
}

func (m *ExitMonitor) CheckAndAlert(ctx context.Context, prices map[string]float64, now time.Time) ([]ExitResult, error) {
	open, err := m.positions.ListOpenPositions(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s monitor: list open positions: %w", m.spec.Name, err)
	}
	claimed := lo.Filter(open, func(p *domain.TrackedPosition, _ int) bool {
		return m.Claims(p)
	})

	var results []ExitResult
	live := make(map[string]struct{}, len(claimed))
	for _, pos := range claimed {
		live[pos.TradeID] = struct{}{}
		results = append(results, m.checkPosition(ctx, pos, prices, now)...)
	}
	m.state.Retain(live)
	return results, nil
}

func (m *ExitMonitor) checkPosition(ctx context.Context, pos *domain.TrackedPosition, prices map[string]float64, now time.Time) []ExitResult {
	price, ok := prices[pos.Ticker]
	if !ok || price <= 0 {
		return nil
	}
	if pos.Basis() <= 0 {
		return nil
	}

	dte := pos.DTE(now)
	ev, err := m.evaluator.Evaluate(pos, price, dte)
	if err != nil {
		m.logger.Warn("Failed to evaluate position",
			zap.String("trade_id", pos.TradeID),
			zap.String("ticker", pos.Ticker),
			zap.Error(err),
		)
		return nil
	}

	check := &ExitCheck{
		Position: pos,
		Price:    price,
		PnL:      ev.PnL,
		Basis:    pos.BasisDollars(),
		DTE:      dte,
		Now:      now,
	}

	if m.spec.Trailing {
		m.state.UpdateTrailing(pos.TradeID, func(st *TrailingStopState) {
			if ev.PnL > st.PeakPnL {
				st.PeakPnL = ev.PnL
			}
		})
		st, _ := m.state.GetTrailing(pos.TradeID)
		check.Trailing = &st
	}

	var results []ExitResult
	for _, rule := range m.spec.Rules {
		if m.state.Alerted(pos.TradeID, rule.Reason) {
			continue
		}
		if !rule.Trigger(check) {
			continue
		}
		m.fire(ctx, pos, rule, check)
		results = append(results, ExitResult{
			Monitor: m.spec.Name,
			TradeID: pos.TradeID,
			Ticker:  pos.Ticker,
			Reason:  rule.Reason,
			PnL:     ev.PnL,
		})
	}

	if check.Trailing != nil {
		activated := check.Trailing.Activated
		m.state.UpdateTrailing(pos.TradeID, func(st *TrailingStopState) {
			st.Activated = activated
		})
	}
	return results
}

func (m *ExitMonitor) fire(ctx context.Context, pos *domain.TrackedPosition, rule ExitRule, check *ExitCheck) {
	text := m.formatter.FormatExit(pos, rule.Reason, check.PnL, rule.render(check))
	if m.notifier != nil {
		if err := m.notifier.Send(ctx, text); err != nil {
			m.logger.Error("Failed to send exit alert",
				zap.String("trade_id", pos.TradeID),
				zap.String("reason", rule.Reason),
				zap.Error(err),
			)
		}
	}
	m.state.MarkAlerted(pos.TradeID, rule.Reason)
	m.logger.Info("Exit alert raised",
		zap.String("trade_id", pos.TradeID),
		zap.String("ticker", pos.Ticker),
		zap.String("reason", rule.Reason),
		zap.Float64("pnl", check.PnL),
	)
}
