// Package marketdata resolves symbols to current prices and historical
// series: shared cache first, then the configured providers in fallback
// order, writing successful resolutions back to the cache.
package marketdata

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"marketfeed/internal/cache"
	"marketfeed/internal/provider"
)

// ErrNoData means every configured provider failed to produce data for
// a resolution attempt. Callers decide what that means for them; it is
// never accompanied by a cache write, so the next call retries.
var ErrNoData = errors.New("marketdata: no data from any provider")

// DefaultTTL bounds upstream call volume for repeated lookups.
const DefaultTTL = 15 * time.Minute

// historyPeriod maps the logical request size to the lookback window
// used in cache keys and by chart-style vendors.
var historyPeriod = map[provider.Size]string{
	provider.SizeCompact: "3mo",
	provider.SizeFull:    "max",
}

// Service is the façade in front of the shared cache and the ordered
// provider chain. Providers[0] is primary; the rest are fallbacks.
type Service struct {
	Cache     cache.Store
	Providers []provider.Provider
	TTL       time.Duration

	sf singleflight.Group
}

func New(store cache.Store, providers []provider.Provider, ttl time.Duration) *Service {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Service{Cache: store, Providers: providers, TTL: ttl}
}

// CurrentPrice resolves the latest price for a symbol. Concurrent
// misses for the same key are coalesced into one provider walk.
func (s *Service) CurrentPrice(ctx context.Context, symbol, assetClass string) (float64, error) {
	sym := normalize(symbol)
	key := priceKey(sym, assetClass)

	if b, ok := s.Cache.Get(ctx, key); ok {
		var price float64
		if err := json.Unmarshal(b, &price); err == nil {
			return price, nil
		}
		log.Printf("[WARN] marketdata: undecodable cache entry %s, refetching", key)
	}

	v, err, _ := s.sf.Do(key, func() (interface{}, error) {
		for _, p := range s.Providers {
			price, err := p.CurrentPrice(ctx, sym, assetClass)
			if err != nil {
				log.Printf("[INFO] marketdata: %s: current price %s: %v", p.Name(), sym, err)
				continue
			}
			if b, err := json.Marshal(price); err == nil {
				s.Cache.Set(ctx, key, b, s.TTL)
			}
			return price, nil
		}
		return nil, ErrNoData
	})
	if err != nil {
		return 0, err
	}
	return v.(float64), nil
}

// Historical resolves a daily OHLCV series, ascending by date.
//
// An empty-but-valid series (symbol recognized, zero points) is cached
// like any other result so a symbol known to have no history is not
// re-queried on every call; a failed resolution is never cached.
func (s *Service) Historical(ctx context.Context, symbol, assetClass string, size provider.Size) ([]provider.Point, error) {
	if !size.Valid() {
		return nil, fmt.Errorf("marketdata: invalid size %q", size)
	}
	sym := normalize(symbol)
	key := historyKey(sym, assetClass, size)

	if b, ok := s.Cache.Get(ctx, key); ok {
		var points []provider.Point
		if err := json.Unmarshal(b, &points); err == nil {
			return points, nil
		}
		log.Printf("[WARN] marketdata: undecodable cache entry %s, refetching", key)
	}

	v, err, _ := s.sf.Do(key, func() (interface{}, error) {
		for _, p := range s.Providers {
			points, err := p.Historical(ctx, sym, assetClass, size)
			if err != nil {
				log.Printf("[INFO] marketdata: %s: historical %s: %v", p.Name(), sym, err)
				continue
			}
			if points == nil {
				points = []provider.Point{}
			}
			if b, err := json.Marshal(points); err == nil {
				s.Cache.Set(ctx, key, b, s.TTL)
			}
			return points, nil
		}
		return nil, ErrNoData
	})
	if err != nil {
		return nil, err
	}
	return v.([]provider.Point), nil
}

func normalize(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}

func classOrUnknown(assetClass string) string {
	if assetClass == "" {
		return "unknown"
	}
	return strings.ToLower(assetClass)
}

func priceKey(symbol, assetClass string) string {
	return fmt.Sprintf("price:%s_%s", symbol, classOrUnknown(assetClass))
}

func historyKey(symbol, assetClass string, size provider.Size) string {
	return fmt.Sprintf("history:%s_%s_%s", symbol, classOrUnknown(assetClass), historyPeriod[size])
}
