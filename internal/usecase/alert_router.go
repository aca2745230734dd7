package usecase

import (
	"context"
	"sort"
	"time"

	"github.com/samber/lo"
	"github.com/vitos/options_alerts/internal/domain"
	"go.uber.org/zap"
)

const (
	// MinAlertScore drops weak opportunities before conversion.
	MinAlertScore = 60.0
	// MaxAlertsPerBatch caps how many alerts one scan cycle may send.
	MaxAlertsPerBatch = 5
)

// EntryFormatter renders a dispatched alert.
type EntryFormatter interface {
	FormatEntry(a *domain.Alert) string
}

// AlertRouter runs raw opportunities through convert, dedup, risk, size,
// prioritize and dispatch.
type AlertRouter struct {
	converter *OpportunityConverter
	gate      *RiskGate
	sizer     *PositionSizer
	formatter EntryFormatter
	notifier  domain.Notifier
	repo      domain.AlertRepository
	ledger    *DedupLedger
	logger    *zap.Logger
	now       func() time.Time
}

type RouterDeps struct {
	Sizer     *PositionSizer
	Formatter EntryFormatter
	Notifier  domain.Notifier
	Repo      domain.AlertRepository
	Logger    *zap.Logger
	Now       func() time.Time
}

func NewAlertRouter(deps RouterDeps) *AlertRouter {
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	sizer := deps.Sizer
	if sizer == nil {
		sizer = NewPositionSizer(DefaultSizerConfig())
	}
	formatter := deps.Formatter
	if formatter == nil {
		formatter = NewAlertFormatter()
	}
	return &AlertRouter{
		converter: NewOpportunityConverter(now),
		gate:      NewRiskGate().WithClock(now),
		sizer:     sizer,
		formatter: formatter,
		notifier:  deps.Notifier,
		repo:      deps.Repo,
		ledger:    NewDedupLedger(DedupWindow),
		logger:    logger,
		now:       now,
	}
}

// Ledger exposes the router-owned dedup state.
func (r *AlertRouter) Ledger() *DedupLedger {
	return r.ledger
}

// RouteOpportunities processes one scan batch and returns the alerts that
// reached dispatch, in priority order.
func (r *AlertRouter) RouteOpportunities(ctx context.Context, opps []domain.Opportunity, account domain.AccountState, ivRank float64) []*domain.Alert {
	alerts := r.convert(opps)
	alerts = r.dedup(alerts)
	alerts = r.riskCheck(alerts, account)
	r.size(alerts, account, ivRank)
	alerts = prioritize(alerts)
	r.dispatch(ctx, alerts)

	r.logger.Info("Routed opportunity batch",
		zap.Int("received", len(opps)),
		zap.Int("dispatched", len(alerts)),
	)
	return alerts
}

// 1. Convert
func (r *AlertRouter) convert(opps []domain.Opportunity) []*domain.Alert {
	out := make([]*domain.Alert, 0, len(opps))
	for _, o := range opps {
		if o.Score() < MinAlertScore {
			continue
		}
		alert, err := r.converter.Convert(o)
		if err != nil {
			r.logger.Warn("Dropping malformed opportunity",
				zap.String("ticker", o.Ticker()),
				zap.String("strategy_type", o.StrategyTag()),
				zap.Error(err),
			)
			continue
		}
		out = append(out, alert)
	}
	return out
}

// 2. Deduplicate. The ledger is only written on dispatch.
func (r *AlertRouter) dedup(alerts []*domain.Alert) []*domain.Alert {
	now := r.now()
	return lo.Filter(alerts, func(a *domain.Alert, _ int) bool {
		if r.ledger.Recent(a.Ticker(), a.Direction(), now) {
			r.logger.Debug("Duplicate alert suppressed",
				zap.String("ticker", a.Ticker()),
				zap.String("direction", string(a.Direction())),
			)
			return false
		}
		return true
	})
}

// 3. Risk check
func (r *AlertRouter) riskCheck(alerts []*domain.Alert, account domain.AccountState) []*domain.Alert {
	return lo.Filter(alerts, func(a *domain.Alert, _ int) bool {
		ok, reason := r.gate.Check(a, account)
		if !ok {
			r.logger.Info("Risk gate rejected alert",
				zap.String("ticker", a.Ticker()),
				zap.String("strategy", string(a.Kind())),
				zap.String("reason", reason),
			)
		}
		return ok
	})
}

// 4. Size. Failures leave the alert unsized.
func (r *AlertRouter) size(alerts []*domain.Alert, account domain.AccountState, ivRank float64) {
	breach := WeeklyLossBreach(account)
	portfolioRisk := account.PortfolioRisk()
	for _, a := range alerts {
		res, err := r.sizer.Size(a, account.AccountValue, ivRank, portfolioRisk, breach)
		if err != nil {
			r.logger.Error("Sizing failed, sending without size",
				zap.String("ticker", a.Ticker()),
				zap.Error(err),
			)
			continue
		}
		a.AttachSize(res)
	}
}

// 5. Prioritize by kind, then score, and truncate.
func prioritize(alerts []*domain.Alert) []*domain.Alert {
	sort.SliceStable(alerts, func(i, j int) bool {
		pi, pj := alerts[i].Kind().Priority(), alerts[j].Kind().Priority()
		if pi != pj {
			return pi < pj
		}
		return alerts[i].Score() > alerts[j].Score()
	})
	if len(alerts) > MaxAlertsPerBatch {
		alerts = alerts[:MaxAlertsPerBatch]
	}
	return alerts
}

// 6. Dispatch. Each step is best effort and never undoes the previous one.
func (r *AlertRouter) dispatch(ctx context.Context, alerts []*domain.Alert) {
	for _, a := range alerts {
		text := r.formatter.FormatEntry(a)
		if r.notifier != nil {
			if err := r.notifier.Send(ctx, text); err != nil {
				r.logger.Error("Failed to send alert",
					zap.String("alert_id", a.ID()),
					zap.String("ticker", a.Ticker()),
					zap.Error(err),
				)
			} else {
				a.MarkSent()
			}
		}

		if r.repo != nil {
			if err := r.repo.SaveAlert(ctx, a.Record()); err != nil {
				r.logger.Error("Failed to persist alert",
					zap.String("alert_id", a.ID()),
					zap.Error(err),
				)
			}
		}

		r.ledger.Record(a.Ticker(), a.Direction(), r.now())
		r.logger.Info("Alert dispatched",
			zap.String("alert_id", a.ID()),
			zap.String("ticker", a.Ticker()),
			zap.String("strategy", string(a.Kind())),
			zap.Float64("score", a.Score()),
		)
	}
}
