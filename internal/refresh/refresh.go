// Package refresh decides which tracked assets need a forced price
// refresh. Its staleness threshold is a coarser gate layered above the
// shared cache's own TTL, bounding upstream call volume for background
// refresh independent of interactive traffic.
package refresh

import (
	"context"
	"fmt"
	"log"
	"time"
)

// DefaultThreshold is how old a recorded refresh may be before the
// asset is refreshed again.
const DefaultThreshold = 30 * time.Minute

// Asset is the read-only view of a tracked asset. LastRefreshedAt is
// nil when no refresh has ever been recorded.
type Asset struct {
	Symbol          string
	Class           string
	LastRefreshedAt *time.Time
}

// Store is the persistence collaborator holding tracked assets and
// their last-refresh marks.
type Store interface {
	ListTracked(ctx context.Context) ([]Asset, error)
	RecordRefresh(ctx context.Context, asset Asset, at time.Time) error
}

// Pricer resolves a current price; satisfied by marketdata.Service.
type Pricer interface {
	CurrentPrice(ctx context.Context, symbol, assetClass string) (float64, error)
}

// Summary is the aggregate outcome of one refresh run.
type Summary struct {
	Refreshed int
	Skipped   int
	Failed    int
}

func (s Summary) String() string {
	return fmt.Sprintf("refreshed=%d skipped=%d failed=%d", s.Refreshed, s.Skipped, s.Failed)
}

// Policy runs the staleness-aware refresh cycle over all tracked assets.
type Policy struct {
	Store     Store
	Prices    Pricer
	Threshold time.Duration

	// Now is the clock; defaults to time.Now. Each run uses a single
	// timestamp taken at run start for every recorded refresh.
	Now func() time.Time
}

func (p *Policy) now() time.Time {
	if p.Now != nil {
		return p.Now()
	}
	return time.Now()
}

func (p *Policy) threshold() time.Duration {
	if p.Threshold > 0 {
		return p.Threshold
	}
	return DefaultThreshold
}

// Run classifies every tracked asset as fresh, stale, or never
// refreshed, resolves a price for the latter two, and records the run
// timestamp for each success. One asset failing, for any reason, never
// stops the rest of the batch. The only run-level failure is the asset
// listing itself being unavailable.
func (p *Policy) Run(ctx context.Context) (Summary, error) {
	start := p.now()

	assets, err := p.Store.ListTracked(ctx)
	if err != nil {
		return Summary{}, fmt.Errorf("refresh: list tracked assets: %w", err)
	}
	if len(assets) == 0 {
		log.Printf("[INFO] refresh: no tracked assets")
		return Summary{}, nil
	}

	var sum Summary
	for _, asset := range assets {
		if asset.LastRefreshedAt != nil && start.Sub(*asset.LastRefreshedAt) <= p.threshold() {
			sum.Skipped++
			continue
		}
		if err := p.refreshOne(ctx, asset, start); err != nil {
			log.Printf("[WARN] refresh: %s: %v", asset.Symbol, err)
			sum.Failed++
			continue
		}
		sum.Refreshed++
	}

	log.Printf("[INFO] refresh: run complete: %s", sum)
	return sum, nil
}

func (p *Policy) refreshOne(ctx context.Context, asset Asset, at time.Time) error {
	price, err := p.Prices.CurrentPrice(ctx, asset.Symbol, asset.Class)
	if err != nil {
		return fmt.Errorf("resolve price: %w", err)
	}
	if err := p.Store.RecordRefresh(ctx, asset, at); err != nil {
		return fmt.Errorf("record refresh: %w", err)
	}
	log.Printf("[INFO] refresh: %s -> %v", asset.Symbol, price)
	return nil
}
