package usecase

import (
	"sync"
	"time"

	"github.com/vitos/options_alerts/internal/domain"
)

// DedupWindow is how long a (ticker, direction) pair stays suppressed after
// an alert for it was dispatched.
const DedupWindow = 30 * time.Minute

type dedupKey struct {
	ticker    string
	direction domain.Direction
}

// DedupLedger remembers when each (ticker, direction) pair was last routed.
// It lives for the process only. The mutex guards map access; callers still
// own ordering between cycles.
type DedupLedger struct {
	window time.Duration
	mu     sync.Mutex
	last   map[dedupKey]time.Time
}

func NewDedupLedger(window time.Duration) *DedupLedger {
	if window <= 0 {
		window = DedupWindow
	}
	return &DedupLedger{
		window: window,
		last:   make(map[dedupKey]time.Time),
	}
}

// Recent reports whether the pair was routed within the window before now.
func (l *DedupLedger) Recent(ticker string, dir domain.Direction, now time.Time) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	ts, ok := l.last[dedupKey{ticker, dir}]
	return ok && now.Sub(ts) < l.window
}

func (l *DedupLedger) Record(ticker string, dir domain.Direction, now time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.last[dedupKey{ticker, dir}] = now
}

func (l *DedupLedger) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.last)
}
