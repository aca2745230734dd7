package usecase

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/vitos/options_alerts/internal/domain"
)

var ErrConversion = errors.New("cannot convert opportunity")

// Default requested risk per strategy family when the scanner sends none.
var defaultRiskFraction = map[domain.StrategyKind]float64{
	domain.KindCreditSpread:  0.02,
	domain.KindIronCondor:    0.02,
	domain.KindMomentumSwing: 0.015,
	domain.KindEarningsPlay:  0.01,
	domain.KindGammaLotto:    0.005,
}

type convertFunc func(o domain.Opportunity, base domain.AlertParams) (domain.AlertParams, error)

// OpportunityConverter maps raw scanner records onto validated alerts.
type OpportunityConverter struct {
	now func() time.Time
}

func NewOpportunityConverter(now func() time.Time) *OpportunityConverter {
	if now == nil {
		now = time.Now
	}
	return &OpportunityConverter{now: now}
}

// converterFor picks the conversion for a legacy tag. Order matters: a
// "momentum_put" tag is a momentum trade, not a put credit spread.
func converterFor(tag string) (domain.StrategyKind, convertFunc) {
	switch {
	case strings.Contains(tag, "condor"):
		return domain.KindIronCondor, convertCondor
	case strings.Contains(tag, "momentum"):
		return domain.KindMomentumSwing, convertDebitSpread
	case strings.Contains(tag, "earnings"):
		return domain.KindEarningsPlay, convertDebitSpread
	case strings.Contains(tag, "gamma"), strings.Contains(tag, "lotto"):
		return domain.KindGammaLotto, convertLotto
	case strings.Contains(tag, "put"):
		return domain.KindCreditSpread, convertPutCredit
	default:
		return domain.KindCreditSpread, convertCallCredit
	}
}

func (c *OpportunityConverter) Convert(o domain.Opportunity) (*domain.Alert, error) {
	ticker := o.Ticker()
	if ticker == "" {
		return nil, fmt.Errorf("%w: missing ticker", ErrConversion)
	}
	tag := o.StrategyTag()
	kind, convert := converterFor(tag)
	now := c.now()

	expiration, err := c.expiration(o, now)
	if err != nil {
		return nil, err
	}

	base := domain.AlertParams{
		Ticker:       ticker,
		Kind:         kind,
		Score:        o.Score(),
		Confidence:   confidenceFor(o.Score()),
		RiskFraction: o.FloatOr(defaultRiskFraction[kind], "risk_pct"),
		Thesis:       o.String("thesis"),
		CreatedAt:    now,
	}
	params, err := convert(o, base)
	if err != nil {
		return nil, fmt.Errorf("%w: %s %s: %v", ErrConversion, ticker, tag, err)
	}
	for i := range params.Legs {
		params.Legs[i].Expiration = expiration
	}

	dte := o.FloatOr(daysUntil(now, expiration), "dte")
	params.TimeSensitivity, params.ExpiresAt = urgency(now, dte, params.Confidence)
	if params.Management == "" {
		params.Management = managementFor(kind)
	}
	if params.Thesis == "" {
		params.Thesis = fmt.Sprintf("%s setup on %s, score %.0f", kind, ticker, params.Score)
	}

	alert, err := domain.NewAlert(params)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConversion, err)
	}
	return alert, nil
}

func (c *OpportunityConverter) expiration(o domain.Opportunity, now time.Time) (time.Time, error) {
	if t, ok := o.Time("expiration"); ok {
		return t, nil
	}
	if dte, ok := o.Float("dte"); ok && dte >= 0 {
		y, m, d := now.Date()
		return time.Date(y, m, d, 0, 0, 0, 0, time.UTC).AddDate(0, 0, int(dte)), nil
	}
	return time.Time{}, fmt.Errorf("%w: %s has neither expiration nor dte", ErrConversion, o.Ticker())
}

func confidenceFor(score float64) domain.Confidence {
	switch {
	case score >= 85:
		return domain.ConfidenceHigh
	case score >= 70:
		return domain.ConfidenceMedium
	default:
		return domain.ConfidenceSpeculative
	}
}

// urgency shortens the validity window for trades expiring within a day.
func urgency(now time.Time, dte float64, conf domain.Confidence) (domain.TimeSensitivity, *time.Time) {
	if dte <= 1 {
		exp := now.Add(30 * time.Minute)
		return domain.TimeImmediate, &exp
	}
	exp := now.Add(4 * time.Hour)
	if conf == domain.ConfidenceHigh {
		return domain.TimeWithinHour, &exp
	}
	return domain.TimeToday, &exp
}

func daysUntil(now, t time.Time) float64 {
	return t.Sub(now).Hours() / 24
}

func requirePositive(o domain.Opportunity, keys ...string) (float64, error) {
	v := o.FloatOr(0, keys...)
	if v <= 0 {
		return 0, fmt.Errorf("field %s must be positive", keys[0])
	}
	return v, nil
}

// debitDirection infers the direction of a long-premium trade from its tag.
func debitDirection(tag string) domain.Direction {
	bearish := strings.Contains(tag, "bear") || strings.Contains(tag, "put")
	if strings.Contains(tag, "bull") || strings.Contains(tag, "call") {
		bearish = false
	}
	if bearish {
		return domain.DirectionBearish
	}
	return domain.DirectionBullish
}

func convertPutCredit(o domain.Opportunity, p domain.AlertParams) (domain.AlertParams, error) {
	short, err := requirePositive(o, "short_strike")
	if err != nil {
		return p, err
	}
	long, err := requirePositive(o, "long_strike")
	if err != nil {
		return p, err
	}
	credit, err := requirePositive(o, "credit", "premium")
	if err != nil {
		return p, err
	}
	p.Direction = domain.DirectionBullish
	p.Legs = []domain.Leg{
		{Strike: short, Type: domain.OptionPut, Action: domain.ActionSell},
		{Strike: long, Type: domain.OptionPut, Action: domain.ActionBuy},
	}
	p.EntryPrice = credit
	p.StopLoss = credit * 2
	p.ProfitTarget = credit * 0.5
	return p, nil
}

func convertCallCredit(o domain.Opportunity, p domain.AlertParams) (domain.AlertParams, error) {
	short, err := requirePositive(o, "short_strike")
	if err != nil {
		return p, err
	}
	long, err := requirePositive(o, "long_strike")
	if err != nil {
		return p, err
	}
	credit, err := requirePositive(o, "credit", "premium")
	if err != nil {
		return p, err
	}
	p.Direction = domain.DirectionBearish
	p.Legs = []domain.Leg{
		{Strike: short, Type: domain.OptionCall, Action: domain.ActionSell},
		{Strike: long, Type: domain.OptionCall, Action: domain.ActionBuy},
	}
	p.EntryPrice = credit
	p.StopLoss = credit * 2
	p.ProfitTarget = credit * 0.5
	return p, nil
}

func convertCondor(o domain.Opportunity, p domain.AlertParams) (domain.AlertParams, error) {
	strikes := make([]float64, 4)
	for i, key := range []string{"long_put_strike", "short_put_strike", "short_call_strike", "long_call_strike"} {
		v, err := requirePositive(o, key)
		if err != nil {
			return p, err
		}
		strikes[i] = v
	}
	if !(strikes[0] < strikes[1] && strikes[1] < strikes[2] && strikes[2] < strikes[3]) {
		return p, fmt.Errorf("condor strikes out of order: %v", strikes)
	}
	credit, err := requirePositive(o, "credit", "premium")
	if err != nil {
		return p, err
	}
	p.Direction = domain.DirectionNeutral
	p.Legs = []domain.Leg{
		{Strike: strikes[0], Type: domain.OptionPut, Action: domain.ActionBuy},
		{Strike: strikes[1], Type: domain.OptionPut, Action: domain.ActionSell},
		{Strike: strikes[2], Type: domain.OptionCall, Action: domain.ActionSell},
		{Strike: strikes[3], Type: domain.OptionCall, Action: domain.ActionBuy},
	}
	p.EntryPrice = credit
	p.StopLoss = credit * 2
	p.ProfitTarget = credit * 0.5
	return p, nil
}

// convertDebitSpread builds momentum and earnings vertical debit spreads.
func convertDebitSpread(o domain.Opportunity, p domain.AlertParams) (domain.AlertParams, error) {
	long, err := requirePositive(o, "long_strike", "strike")
	if err != nil {
		return p, err
	}
	debit, err := requirePositive(o, "debit", "premium")
	if err != nil {
		return p, err
	}
	p.Direction = debitDirection(o.StrategyTag())
	optType := domain.OptionCall
	if p.Direction == domain.DirectionBearish {
		optType = domain.OptionPut
	}
	p.Legs = []domain.Leg{{Strike: long, Type: optType, Action: domain.ActionBuy}}
	if short, ok := o.Float("short_strike"); ok && short > 0 {
		p.Legs = append(p.Legs, domain.Leg{Strike: short, Type: optType, Action: domain.ActionSell})
	}
	p.EntryPrice = debit
	p.StopLoss = debit * 0.5
	p.ProfitTarget = debit * 2
	if p.Kind == domain.KindEarningsPlay {
		if ev := o.String("event_date"); ev != "" {
			p.Management = fmt.Sprintf("Close the day after earnings (%s) regardless of P&L.", ev)
		}
	}
	return p, nil
}

func convertLotto(o domain.Opportunity, p domain.AlertParams) (domain.AlertParams, error) {
	strike, err := requirePositive(o, "strike", "long_strike")
	if err != nil {
		return p, err
	}
	debit, err := requirePositive(o, "debit", "premium")
	if err != nil {
		return p, err
	}
	p.Direction = debitDirection(o.StrategyTag())
	optType := domain.OptionCall
	if p.Direction == domain.DirectionBearish {
		optType = domain.OptionPut
	}
	p.Legs = []domain.Leg{{Strike: strike, Type: optType, Action: domain.ActionBuy}}
	p.EntryPrice = debit
	p.StopLoss = 0
	p.ProfitTarget = debit * 3
	p.Confidence = domain.ConfidenceSpeculative
	return p, nil
}

func managementFor(kind domain.StrategyKind) string {
	switch kind {
	case domain.KindCreditSpread:
		return "Take profit at 50% of credit. Stop at 2x credit. Close by 21 DTE."
	case domain.KindIronCondor:
		return "Take profit at 50% of credit. Manage the tested side at 2x credit. Close by 21 DTE."
	case domain.KindMomentumSwing:
		return "Take profit at +50%. Stop at -50% of debit. Exit if momentum stalls within 5 DTE."
	case domain.KindEarningsPlay:
		return "Take profit at +50%. Close the day after the event."
	case domain.KindGammaLotto:
		return "Lotto size only. Trail once up 3x, exit if it gives back to 2x."
	}
	return ""
}
