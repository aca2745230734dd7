package domain

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ErrInvalidAlert is returned when an alert would violate its schema.
var ErrInvalidAlert = errors.New("invalid alert")

type StrategyKind string

const (
	KindCreditSpread  StrategyKind = "credit_spread"
	KindIronCondor    StrategyKind = "iron_condor"
	KindMomentumSwing StrategyKind = "momentum_swing"
	KindEarningsPlay  StrategyKind = "earnings_play"
	KindGammaLotto    StrategyKind = "gamma_lotto"
)

// Priority orders kinds for dispatch. Lower value goes first.
func (k StrategyKind) Priority() int {
	switch k {
	case KindCreditSpread:
		return 0
	case KindIronCondor:
		return 1
	case KindMomentumSwing:
		return 2
	case KindEarningsPlay:
		return 3
	case KindGammaLotto:
		return 4
	}
	return 5
}

// IsCredit reports whether the kind collects premium at entry.
func (k StrategyKind) IsCredit() bool {
	return k == KindCreditSpread || k == KindIronCondor
}

func (k StrategyKind) Valid() bool {
	return k.Priority() < 5
}

type Direction string

const (
	DirectionBullish Direction = "bullish"
	DirectionBearish Direction = "bearish"
	DirectionNeutral Direction = "neutral"
)

type Confidence string

const (
	ConfidenceHigh        Confidence = "high"
	ConfidenceMedium      Confidence = "medium"
	ConfidenceSpeculative Confidence = "speculative"
)

type TimeSensitivity string

const (
	TimeImmediate  TimeSensitivity = "immediate"
	TimeWithinHour TimeSensitivity = "within_1hr"
	TimeToday      TimeSensitivity = "today"
)

func (d Direction) Valid() bool {
	switch d {
	case DirectionBullish, DirectionBearish, DirectionNeutral:
		return true
	}
	return false
}

func (c Confidence) Valid() bool {
	switch c {
	case ConfidenceHigh, ConfidenceMedium, ConfidenceSpeculative:
		return true
	}
	return false
}

func (t TimeSensitivity) Valid() bool {
	switch t {
	case TimeImmediate, TimeWithinHour, TimeToday:
		return true
	}
	return false
}

type AlertStatus string

const (
	StatusPending   AlertStatus = "pending"
	StatusSent      AlertStatus = "sent"
	StatusExpired   AlertStatus = "expired"
	StatusCancelled AlertStatus = "cancelled"
)

type OptionType string

const (
	OptionPut  OptionType = "put"
	OptionCall OptionType = "call"
)

type LegAction string

const (
	ActionBuy  LegAction = "buy"
	ActionSell LegAction = "sell"
)

// Leg is one option contract of a position.
type Leg struct {
	Strike     float64    `json:"strike"`
	Type       OptionType `json:"type"`
	Action     LegAction  `json:"action"`
	Expiration time.Time  `json:"expiration"`
}

// SizeResult is the sizing attached to an alert after it passed the risk gate.
type SizeResult struct {
	RiskFraction float64 `json:"risk_pct"`
	Contracts    int     `json:"contracts"`
	DollarRisk   float64 `json:"dollar_risk"`
	MaxLoss      float64 `json:"max_loss"`
}

// AlertParams carries everything needed to build an Alert.
type AlertParams struct {
	Ticker          string
	Kind            StrategyKind
	Direction       Direction
	Confidence      Confidence
	TimeSensitivity TimeSensitivity
	Legs            []Leg
	EntryPrice      float64
	StopLoss        float64
	ProfitTarget    float64
	RiskFraction    float64
	Score           float64
	Thesis          string
	Management      string
	ExpiresAt       *time.Time
	CreatedAt       time.Time
}

// Alert is the validated decision unit. Its economic fields are fixed at
// construction; only status and sizing change afterwards.
type Alert struct {
	id              string
	ticker          string
	kind            StrategyKind
	direction       Direction
	confidence      Confidence
	timeSensitivity TimeSensitivity
	legs            []Leg
	entryPrice      float64
	stopLoss        float64
	profitTarget    float64
	riskFraction    float64
	score           float64
	thesis          string
	management      string
	expiresAt       *time.Time
	createdAt       time.Time
	status          AlertStatus
	size            *SizeResult
}

func NewAlert(p AlertParams) (*Alert, error) {
	if len(p.Legs) == 0 {
		return nil, fmt.Errorf("%w: no legs", ErrInvalidAlert)
	}
	if !(p.EntryPrice > 0) {
		return nil, fmt.Errorf("%w: entry price %.4f must be positive", ErrInvalidAlert, p.EntryPrice)
	}
	if !(p.RiskFraction > 0) || p.RiskFraction > MaxRiskPerTrade {
		return nil, fmt.Errorf("%w: risk fraction %.4f outside (0, %.2f]", ErrInvalidAlert, p.RiskFraction, MaxRiskPerTrade)
	}
	if !p.Kind.Valid() {
		return nil, fmt.Errorf("%w: unknown strategy kind %q", ErrInvalidAlert, p.Kind)
	}
	if !p.Direction.Valid() {
		return nil, fmt.Errorf("%w: unknown direction %q", ErrInvalidAlert, p.Direction)
	}
	if !p.Confidence.Valid() {
		return nil, fmt.Errorf("%w: unknown confidence %q", ErrInvalidAlert, p.Confidence)
	}
	if !p.TimeSensitivity.Valid() {
		return nil, fmt.Errorf("%w: unknown time sensitivity %q", ErrInvalidAlert, p.TimeSensitivity)
	}
	if p.Ticker == "" {
		return nil, fmt.Errorf("%w: empty ticker", ErrInvalidAlert)
	}

	created := p.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}
	score := p.Score
	if score < 0 {
		score = 0
	} else if score > 100 {
		score = 100
	}

	a := &Alert{
		id:              uuid.New().String(),
		ticker:          p.Ticker,
		kind:            p.Kind,
		direction:       p.Direction,
		confidence:      p.Confidence,
		timeSensitivity: p.TimeSensitivity,
		legs:            append([]Leg(nil), p.Legs...),
		entryPrice:      p.EntryPrice,
		stopLoss:        p.StopLoss,
		profitTarget:    p.ProfitTarget,
		riskFraction:    p.RiskFraction,
		score:           score,
		thesis:          p.Thesis,
		management:      p.Management,
		createdAt:       created,
		status:          StatusPending,
	}
	if p.ExpiresAt != nil {
		exp := *p.ExpiresAt
		a.expiresAt = &exp
	}
	return a, nil
}

func (a *Alert) ID() string                       { return a.id }
func (a *Alert) Ticker() string                   { return a.ticker }
func (a *Alert) Kind() StrategyKind               { return a.kind }
func (a *Alert) Direction() Direction             { return a.direction }
func (a *Alert) Confidence() Confidence           { return a.confidence }
func (a *Alert) TimeSensitivity() TimeSensitivity { return a.timeSensitivity }
func (a *Alert) EntryPrice() float64              { return a.entryPrice }
func (a *Alert) StopLoss() float64                { return a.stopLoss }
func (a *Alert) ProfitTarget() float64            { return a.profitTarget }
func (a *Alert) RiskFraction() float64            { return a.riskFraction }
func (a *Alert) Score() float64                   { return a.score }
func (a *Alert) Thesis() string                   { return a.thesis }
func (a *Alert) Management() string               { return a.management }
func (a *Alert) CreatedAt() time.Time             { return a.createdAt }
func (a *Alert) Status() AlertStatus              { return a.status }

// Legs returns a copy so callers cannot reorder or empty the structure.
func (a *Alert) Legs() []Leg {
	return append([]Leg(nil), a.legs...)
}

func (a *Alert) ExpiresAt() (time.Time, bool) {
	if a.expiresAt == nil {
		return time.Time{}, false
	}
	return *a.expiresAt, true
}

// Size returns the attached sizing, if any.
func (a *Alert) Size() (SizeResult, bool) {
	if a.size == nil {
		return SizeResult{}, false
	}
	return *a.size, true
}

func (a *Alert) AttachSize(r SizeResult) {
	a.size = &r
}

func (a *Alert) MarkSent() bool    { return a.transition(StatusSent) }
func (a *Alert) MarkExpired() bool { return a.transition(StatusExpired) }
func (a *Alert) Cancel() bool      { return a.transition(StatusCancelled) }

func (a *Alert) IsExpired(now time.Time) bool {
	return a.expiresAt != nil && now.After(*a.expiresAt)
}

func (a *Alert) transition(to AlertStatus) bool {
	if a.status != StatusPending {
		return false
	}
	a.status = to
	return true
}

// AlertRecord is the flat, serializable form handed to persistence.
type AlertRecord struct {
	ID              string      `json:"id"`
	Ticker          string      `json:"ticker"`
	Kind            string      `json:"strategy"`
	Direction       string      `json:"direction"`
	Confidence      string      `json:"confidence"`
	TimeSensitivity string      `json:"time_sensitivity"`
	Legs            []LegRecord `json:"legs"`
	EntryPrice      float64     `json:"entry_price"`
	StopLoss        float64     `json:"stop_loss"`
	ProfitTarget    float64     `json:"profit_target"`
	RiskFraction    float64     `json:"risk_pct"`
	Score           float64     `json:"score"`
	Thesis          string      `json:"thesis"`
	Management      string      `json:"management"`
	ExpiresAt       string      `json:"expires_at,omitempty"`
	CreatedAt       string      `json:"created_at"`
	Status          string      `json:"status"`
	Size            *SizeResult `json:"size,omitempty"`
}

type LegRecord struct {
	Strike     float64 `json:"strike"`
	Type       string  `json:"type"`
	Action     string  `json:"action"`
	Expiration string  `json:"expiration"`
}

func (a *Alert) Record() AlertRecord {
	rec := AlertRecord{
		ID:              a.id,
		Ticker:          a.ticker,
		Kind:            string(a.kind),
		Direction:       string(a.direction),
		Confidence:      string(a.confidence),
		TimeSensitivity: string(a.timeSensitivity),
		EntryPrice:      a.entryPrice,
		StopLoss:        a.stopLoss,
		ProfitTarget:    a.profitTarget,
		RiskFraction:    a.riskFraction,
		Score:           a.score,
		Thesis:          a.thesis,
		Management:      a.management,
		CreatedAt:       a.createdAt.Format(time.RFC3339),
		Status:          string(a.status),
	}
	for _, l := range a.legs {
		rec.Legs = append(rec.Legs, LegRecord{
			Strike:     l.Strike,
			Type:       string(l.Type),
			Action:     string(l.Action),
			Expiration: l.Expiration.Format("2006-01-02"),
		})
	}
	if a.expiresAt != nil {
		rec.ExpiresAt = a.expiresAt.Format(time.RFC3339)
	}
	if a.size != nil {
		s := *a.size
		rec.Size = &s
	}
	return rec
}
