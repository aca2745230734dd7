package usecase

import (
	"sync"
)

// TrailingStopState is the per-trade trailing stop slot used by the gamma
// monitor.
type TrailingStopState struct {
	Activated bool
	// PeakPnL is the best P&L seen since the trade was first observed.
	// It is recorded but not consulted by the activation or trigger rules.
	PeakPnL float64
}

// ExitStateStore holds one monitor's dedup ledger and trailing-stop table.
// Nothing is persisted; a restart re-arms every reason.
type ExitStateStore struct {
	mu       sync.RWMutex
	alerted  map[string]map[string]struct{} // trade id -> reasons
	trailing map[string]*TrailingStopState
}

func NewExitStateStore() *ExitStateStore {
	return &ExitStateStore{
		alerted:  make(map[string]map[string]struct{}),
		trailing: make(map[string]*TrailingStopState),
	}
}

func (s *ExitStateStore) Alerted(tradeID, reason string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.alerted[tradeID][reason]
	return ok
}

func (s *ExitStateStore) MarkAlerted(tradeID, reason string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	reasons, ok := s.alerted[tradeID]
	if !ok {
		reasons = make(map[string]struct{})
		s.alerted[tradeID] = reasons
	}
	reasons[reason] = struct{}{}
}

// GetTrailing returns a copy of the trade's trailing state.
func (s *ExitStateStore) GetTrailing(tradeID string) (TrailingStopState, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if st, ok := s.trailing[tradeID]; ok {
		return *st, true
	}
	return TrailingStopState{}, false
}

// UpdateTrailing creates the trade's state on first use and applies fn.
func (s *ExitStateStore) UpdateTrailing(tradeID string, fn func(*TrailingStopState)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.trailing[tradeID]
	if !ok {
		st = &TrailingStopState{}
		s.trailing[tradeID] = st
	}
	fn(st)
}

// Tracked is the number of trades holding any state.
func (s *ExitStateStore) Tracked() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make(map[string]struct{}, len(s.alerted)+len(s.trailing))
	for id := range s.alerted {
		ids[id] = struct{}{}
	}
	for id := range s.trailing {
		ids[id] = struct{}{}
	}
	return len(ids)
}

// Retain drops alerted reasons and trailing state for trades that are no
// longer open.
func (s *ExitStateStore) Retain(open map[string]struct{}) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id := range s.alerted {
		if _, ok := open[id]; !ok {
			delete(s.alerted, id)
		}
	}
	for id := range s.trailing {
		if _, ok := open[id]; !ok {
			delete(s.trailing, id)
		}
	}
}
