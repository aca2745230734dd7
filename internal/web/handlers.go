package web

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"github.com/vitos/options_alerts/internal/domain"
	"github.com/vitos/options_alerts/internal/usecase"
	"go.uber.org/zap"
)

const defaultAlertLimit = 50

type opportunityBatchRequest struct {
	IVRank        float64              `json:"iv_rank"`
	Opportunities []domain.Opportunity `json:"opportunities"`
}

func (s *Server) handleOpportunities(w http.ResponseWriter, r *http.Request) {
	var req opportunityBatchRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	alerts, err := s.service.ProcessBatch(r.Context(), req.Opportunities, req.IVRank)
	if err != nil {
		s.logger.Error("Failed to process batch", zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, "failed to process batch")
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]any{
		"received": len(req.Opportunities),
		"alerts":   lo.Map(alerts, func(a *domain.Alert, _ int) domain.AlertRecord { return a.Record() }),
	})
}

type pricesRequest struct {
	Prices map[string]float64 `json:"prices"`
}

func (s *Server) handlePrices(w http.ResponseWriter, r *http.Request) {
	var req pricesRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if len(req.Prices) == 0 {
		s.writeError(w, http.StatusBadRequest, "prices is required")
		return
	}
	s.prices.Update(req.Prices, s.now())
	s.writeJSON(w, http.StatusOK, map[string]int{"tickers": len(s.prices.Snapshot())})
}

func (s *Server) handleRunMonitors(w http.ResponseWriter, r *http.Request) {
	results := s.monitors.RunCycle(r.Context(), s.prices.Snapshot(), s.now())
	if results == nil {
		results = []usecase.ExitResult{}
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"exits": results})
}

func (s *Server) handleListAlerts(w http.ResponseWriter, r *http.Request) {
	limit := defaultAlertLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			s.writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}

	alerts, err := s.alerts.ListAlerts(r.Context(), limit)
	if err != nil {
		s.logger.Error("Failed to list alerts", zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, "failed to list alerts")
		return
	}
	if alerts == nil {
		alerts = []domain.AlertRecord{}
	}
	s.writeJSON(w, http.StatusOK, alerts)
}

type legRequest struct {
	Strike     float64 `json:"strike"`
	Type       string  `json:"type"`
	Action     string  `json:"action"`
	Expiration string  `json:"expiration"`
}

type positionRequest struct {
	TradeID      string       `json:"trade_id"`
	AlertID      string       `json:"alert_id"`
	Ticker       string       `json:"ticker"`
	StrategyType string       `json:"strategy_type"`
	Direction    string       `json:"direction"`
	Legs         []legRequest `json:"legs"`
	Credit       float64      `json:"credit"`
	Debit        float64      `json:"debit"`
	Contracts    int          `json:"contracts"`
	RiskFraction float64      `json:"risk_pct"`
	Expiration   string       `json:"expiration"`
	EventDate    string       `json:"event_date"`
}

func parseDate(v string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return t, nil
	}
	return time.Parse(time.DateOnly, v)
}

func (req positionRequest) toPosition(now time.Time) (*domain.TrackedPosition, error) {
	if strings.TrimSpace(req.Ticker) == "" {
		return nil, errors.New("ticker is required")
	}
	if req.StrategyType == "" {
		return nil, errors.New("strategy_type is required")
	}
	if req.Credit <= 0 && req.Debit <= 0 {
		return nil, errors.New("credit or debit must be positive")
	}
	exp, err := parseDate(req.Expiration)
	if err != nil {
		return nil, errors.New("expiration must be YYYY-MM-DD or RFC3339")
	}

	pos := &domain.TrackedPosition{
		TradeID:      req.TradeID,
		AlertID:      req.AlertID,
		Ticker:       strings.ToUpper(req.Ticker),
		StrategyType: req.StrategyType,
		Direction:    domain.Direction(req.Direction),
		Credit:       req.Credit,
		Debit:        req.Debit,
		Contracts:    req.Contracts,
		RiskFraction: req.RiskFraction,
		Expiration:   exp,
		Status:       domain.PositionOpen,
		OpenedAt:     now,
	}
	if pos.TradeID == "" {
		pos.TradeID = uuid.NewString()
	}
	if pos.Contracts <= 0 {
		pos.Contracts = 1
	}
	if req.EventDate != "" {
		ev, err := parseDate(req.EventDate)
		if err != nil {
			return nil, errors.New("event_date must be YYYY-MM-DD or RFC3339")
		}
		pos.EventDate = &ev
	}
	for _, l := range req.Legs {
		legExp := exp
		if l.Expiration != "" {
			if legExp, err = parseDate(l.Expiration); err != nil {
				return nil, errors.New("leg expiration must be YYYY-MM-DD or RFC3339")
			}
		}
		pos.Legs = append(pos.Legs, domain.Leg{
			Strike:     l.Strike,
			Type:       domain.OptionType(strings.ToLower(l.Type)),
			Action:     domain.LegAction(strings.ToLower(l.Action)),
			Expiration: legExp,
		})
	}
	return pos, nil
}

func (s *Server) handleOpenPosition(w http.ResponseWriter, r *http.Request) {
	var req positionRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	pos, err := req.toPosition(s.now())
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := s.positions.SavePosition(r.Context(), pos); err != nil {
		s.logger.Error("Failed to save position", zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, "failed to save position")
		return
	}
	s.logger.Info("Position opened", zap.String("trade_id", pos.TradeID), zap.String("ticker", pos.Ticker), zap.String("type", pos.StrategyType))
	s.writeJSON(w, http.StatusCreated, pos)
}

func (s *Server) handleListPositions(w http.ResponseWriter, r *http.Request) {
	positions, err := s.positions.ListOpenPositions(r.Context())
	if err != nil {
		s.logger.Error("Failed to list positions", zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, "failed to list positions")
		return
	}
	if positions == nil {
		positions = []*domain.TrackedPosition{}
	}
	s.writeJSON(w, http.StatusOK, positions)
}

type closeRequest struct {
	PnL    float64 `json:"pnl"`
	Reason string  `json:"reason"`
}

func (s *Server) handleClosePosition(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	var req closeRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Reason == "" {
		req.Reason = "manual"
	}
	if err := s.positions.ClosePosition(r.Context(), id, req.PnL, req.Reason, s.now()); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			s.writeError(w, http.StatusNotFound, err.Error())
			return
		}
		s.logger.Error("Failed to close position", zap.String("trade_id", id), zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, "failed to close position")
		return
	}
	s.logger.Info("Position closed", zap.String("trade_id", id), zap.String("reason", req.Reason), zap.Float64("pnl", req.PnL))
	s.writeJSON(w, http.StatusOK, map[string]string{"trade_id": id, "status": string(domain.PositionClosed)})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	open, err := s.positions.ListOpenPositions(r.Context())
	if err != nil {
		s.logger.Error("Failed to list positions", zap.Error(err))
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"status":          "ok",
		"uptime_seconds":  int(s.now().Sub(s.startedAt).Seconds()),
		"open_positions":  len(open),
		"last_batch":      len(s.service.LastRouted()),
		"prices_updated":  s.prices.UpdatedAt(),
		"tracked_tickers": len(s.prices.Snapshot()),
	})
}
