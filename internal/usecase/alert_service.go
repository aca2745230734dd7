package usecase

import (
	"context"
	"fmt"
	"sync"

	"github.com/vitos/options_alerts/internal/domain"
	"go.uber.org/zap"
)

// AlertService is the entry point for scan batches. It snapshots the account
// and serializes batches so the router's ledger has a single writer.
type AlertService struct {
	router  *AlertRouter
	tracker *PortfolioTracker
	logger  *zap.Logger

	mu         sync.Mutex
	lastRouted []*domain.Alert
}

func NewAlertService(router *AlertRouter, tracker *PortfolioTracker, logger *zap.Logger) *AlertService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AlertService{router: router, tracker: tracker, logger: logger}
}

func (s *AlertService) ProcessBatch(ctx context.Context, opps []domain.Opportunity, ivRank float64) ([]*domain.Alert, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	account, err := s.tracker.AccountState(ctx)
	if err != nil {
		return nil, fmt.Errorf("build account state: %w", err)
	}
	alerts := s.router.RouteOpportunities(ctx, opps, account, ivRank)
	s.lastRouted = alerts
	return alerts, nil
}

// LastRouted returns the alerts dispatched by the most recent batch.
func (s *AlertService) LastRouted() []*domain.Alert {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*domain.Alert(nil), s.lastRouted...)
}
