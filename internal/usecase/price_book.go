package usecase

import (
	"strings"
	"sync"
	"time"
)

// PriceBook keeps the latest underlying price per ticker.
type PriceBook struct {
	mu        sync.RWMutex
	prices    map[string]float64
	updatedAt time.Time
}

func NewPriceBook() *PriceBook {
	return &PriceBook{prices: make(map[string]float64)}
}

func (b *PriceBook) Update(prices map[string]float64, at time.Time) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for t, p := range prices {
		if p <= 0 {
			continue
		}
		b.prices[strings.ToUpper(t)] = p
	}
	b.updatedAt = at
}

// Snapshot returns a copy safe to hand to a monitor cycle.
func (b *PriceBook) Snapshot() map[string]float64 {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make(map[string]float64, len(b.prices))
	for k, v := range b.prices {
		out[k] = v
	}
	return out
}

func (b *PriceBook) UpdatedAt() time.Time {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.updatedAt
}
