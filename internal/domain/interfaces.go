package domain

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned by repositories for unknown ids.
var ErrNotFound = errors.New("not found")

// Notifier delivers formatted text to the operator.
type Notifier interface {
	Send(ctx context.Context, text string) error
}

// AlertRepository defines storage operations for dispatched alerts.
type AlertRepository interface {
	SaveAlert(ctx context.Context, rec AlertRecord) error
	ListAlerts(ctx context.Context, limit int) ([]AlertRecord, error)
}

// PositionRepository defines storage operations for tracked positions.
type PositionRepository interface {
	SavePosition(ctx context.Context, pos *TrackedPosition) error
	GetPosition(ctx context.Context, tradeID string) (*TrackedPosition, error)
	ListOpenPositions(ctx context.Context) ([]*TrackedPosition, error)
	ListClosedSince(ctx context.Context, since time.Time) ([]*TrackedPosition, error)
	ClosePosition(ctx context.Context, tradeID string, pnl float64, reason string, at time.Time) error
}

// Evaluation is the mark-to-market view of a position.
type Evaluation struct {
	PnL    float64 // dollars across all contracts
	Mark   float64 // estimated per-share value of the structure
	Reason string  // evaluator's own hint, e.g. "expired", may be empty
}

// PositionEvaluator marks a position given its underlying price.
type PositionEvaluator interface {
	Evaluate(pos *TrackedPosition, price float64, dte int) (Evaluation, error)
}

// ExitFormatter renders an exit alert for the transport.
type ExitFormatter interface {
	FormatExit(pos *TrackedPosition, reason string, pnl float64, detail string) string
}
