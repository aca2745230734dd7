package web

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/vitos/options_alerts/internal/domain"
	"github.com/vitos/options_alerts/internal/usecase"
	"go.uber.org/zap"
)

type Deps struct {
	Alerts    domain.AlertRepository
	Positions domain.PositionRepository
	Service   *usecase.AlertService
	Prices    *usecase.PriceBook
	Monitors  *usecase.MonitorSuite
	Stream    http.Handler // websocket alert stream, optional
	Logger    *zap.Logger
	Now       func() time.Time
}

type Server struct {
	router    *http.ServeMux
	server    *http.Server
	alerts    domain.AlertRepository
	positions domain.PositionRepository
	service   *usecase.AlertService
	prices    *usecase.PriceBook
	monitors  *usecase.MonitorSuite
	stream    http.Handler
	logger    *zap.Logger
	now       func() time.Time
	startedAt time.Time
}

func NewServer(port int, deps Deps) *Server {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	s := &Server{
		router:    http.NewServeMux(),
		alerts:    deps.Alerts,
		positions: deps.Positions,
		service:   deps.Service,
		prices:    deps.Prices,
		monitors:  deps.Monitors,
		stream:    deps.Stream,
		logger:    deps.Logger,
		now:       deps.Now,
		startedAt: deps.Now(),
	}
	s.routes()
	s.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

func (s *Server) routes() {
	// Scanner input
	s.router.HandleFunc("POST /api/opportunities", s.handleOpportunities)

	// Prices and exit checks
	s.router.HandleFunc("POST /api/prices", s.handlePrices)
	s.router.HandleFunc("POST /api/monitor/run", s.handleRunMonitors)

	// Alerts
	s.router.HandleFunc("GET /api/alerts", s.handleListAlerts)

	// Positions
	s.router.HandleFunc("GET /api/positions", s.handleListPositions)
	s.router.HandleFunc("POST /api/positions", s.handleOpenPosition)
	s.router.HandleFunc("POST /api/positions/{id}/close", s.handleClosePosition)

	// Status
	s.router.HandleFunc("GET /status", s.handleStatus)

	if s.stream != nil {
		s.router.Handle("GET /ws/alerts", s.stream)
	}
}

// Handler exposes the mux for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) Start() error {
	s.logger.Info("Starting web server", zap.String("addr", s.server.Addr))
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}
