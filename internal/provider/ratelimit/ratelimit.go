package ratelimit

import (
	"context"
	"sync"
	"time"

	"marketfeed/internal/provider"
)

// MinInterval wraps a provider and enforces a minimum time between
// upstream calls. Concurrent calls wait until the interval has elapsed
// since the last call, or return early if the context is canceled.
type MinInterval struct {
	P        provider.Provider
	Interval time.Duration

	mu   sync.Mutex
	last time.Time
}

func (m *MinInterval) Name() string { return m.P.Name() }

func (m *MinInterval) CurrentPrice(ctx context.Context, symbol, assetClass string) (float64, error) {
	if err := m.gate(ctx); err != nil {
		return 0, err
	}
	price, err := m.P.CurrentPrice(ctx, symbol, assetClass)
	m.mark()
	return price, err
}

func (m *MinInterval) Historical(ctx context.Context, symbol, assetClass string, size provider.Size) ([]provider.Point, error) {
	if err := m.gate(ctx); err != nil {
		return nil, err
	}
	points, err := m.P.Historical(ctx, symbol, assetClass, size)
	m.mark()
	return points, err
}

func (m *MinInterval) gate(ctx context.Context) error {
	if m.Interval <= 0 {
		return nil
	}
	m.mu.Lock()
	wait := time.Until(m.last.Add(m.Interval))
	m.mu.Unlock()
	if wait <= 0 {
		return nil
	}
	t := time.NewTimer(wait)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func (m *MinInterval) mark() {
	if m.Interval <= 0 {
		return
	}
	m.mu.Lock()
	m.last = time.Now()
	m.mu.Unlock()
}
