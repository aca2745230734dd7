package usecase

import (
	"context"
	"sync"
	"time"

	"github.com/samber/lo"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// MonitorSuite runs every exit monitor once per cycle. Monitors own disjoint
// state, so they run side by side; a cycle must finish before the next one
// starts.
type MonitorSuite struct {
	monitors []*ExitMonitor
	logger   *zap.Logger
	running  sync.Mutex
}

func NewMonitorSuite(logger *zap.Logger, monitors ...*ExitMonitor) *MonitorSuite {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MonitorSuite{monitors: monitors, logger: logger}
}

// NewDefaultMonitorSuite builds the five strategy-family monitors over the
// same collaborators.
func NewDefaultMonitorSuite(deps MonitorDeps) *MonitorSuite {
	monitors := lo.Map(DefaultMonitorSpecs(), func(spec MonitorSpec, _ int) *ExitMonitor {
		return NewExitMonitor(spec, deps)
	})
	return NewMonitorSuite(deps.Logger, monitors...)
}

func (s *MonitorSuite) Monitors() []*ExitMonitor {
	return s.monitors
}

// RunCycle checks all monitors against one price snapshot. A failing monitor
// is logged and does not stop the others.
func (s *MonitorSuite) RunCycle(ctx context.Context, prices map[string]float64, now time.Time) []ExitResult {
	if !s.running.TryLock() {
		s.logger.Warn("Exit monitor cycle still running, skipping")
		return nil
	}
	defer s.running.Unlock()

	perMonitor := make([][]ExitResult, len(s.monitors))
	var g errgroup.Group
	for i, m := range s.monitors {
		g.Go(func() error {
			res, err := m.CheckAndAlert(ctx, prices, now)
			if err != nil {
				s.logger.Error("Exit monitor failed", zap.String("monitor", m.Name()), zap.Error(err))
				return nil
			}
			perMonitor[i] = res
			return nil
		})
	}
	_ = g.Wait()

	results := lo.Flatten(perMonitor)
	if len(results) > 0 {
		s.logger.Info("Exit cycle finished", zap.Int("alerts", len(results)))
	}
	return results
}
