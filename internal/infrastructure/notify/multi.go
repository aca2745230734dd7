package notify

import (
	"context"
	"errors"
	"fmt"

	"github.com/vitos/options_alerts/internal/domain"
	"go.uber.org/zap"
)

// Multi delivers to every transport and reports the joined failures. A
// message counts as sent when at least one transport accepted it; failures
// of the others are still logged.
type Multi struct {
	targets []domain.Notifier
	logger  *zap.Logger
}

func NewMulti(logger *zap.Logger, targets ...domain.Notifier) *Multi {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Multi{targets: targets, logger: logger}
}

func (m *Multi) Send(ctx context.Context, text string) error {
	var errs []error
	delivered := 0
	for _, t := range m.targets {
		if err := t.Send(ctx, text); err != nil {
			if !errors.Is(err, ErrNoClients) {
				m.logger.Error("Notification transport failed", zap.String("transport", fmt.Sprintf("%T", t)), zap.Error(err))
			}
			errs = append(errs, err)
			continue
		}
		delivered++
	}
	if delivered > 0 {
		return nil
	}
	return errors.Join(errs...)
}
