// The refresher keeps tracked asset prices warm: on each cron tick it
// runs the staleness-aware refresh policy, which resolves prices through
// the shared cache and provider chain and records the refresh mark.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"

	"marketfeed/internal/assets"
	"marketfeed/internal/cache"
	"marketfeed/internal/config"
	"marketfeed/internal/httpx"
	"marketfeed/internal/marketdata"
	"marketfeed/internal/provider"
	"marketfeed/internal/provider/alphavantage"
	"marketfeed/internal/provider/ratelimit"
	"marketfeed/internal/provider/yahoo"
	"marketfeed/internal/refresh"
)

func main() {
	cfgPath := os.Getenv("CONFIG_FILE")
	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	store, err := assets.OpenSQLite(cfg.Refresh.SQLitePath)
	if err != nil {
		log.Fatalf("asset store: %v", err)
	}
	defer store.Close()

	policy := &refresh.Policy{
		Store:     store,
		Prices:    buildService(cfg),
		Threshold: time.Duration(cfg.Refresh.StalenessMinutes) * time.Minute,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	runCycle := func() {
		runCtx, cancel := context.WithTimeout(ctx, 10*time.Minute)
		defer cancel()
		sum, err := policy.Run(runCtx)
		if err != nil {
			log.Printf("[ERROR] refresh cycle: %v", err)
			return
		}
		log.Printf("[INFO] refresh cycle: %s", sum)
	}

	c := cron.New(cron.WithSeconds())
	if _, err := c.AddFunc(cfg.Refresh.Cron, runCycle); err != nil {
		log.Fatalf("register refresh cron %q: %v", cfg.Refresh.Cron, err)
	}

	if cfg.Refresh.RunOnStart {
		runCycle()
	}

	c.Start()
	log.Printf("[INFO] refresher started, schedule %q", cfg.Refresh.Cron)

	<-ctx.Done()
	c.Stop()
	log.Printf("[INFO] refresher stopped")
}

// buildService assembles the same provider chain and shared cache the
// API server uses, so background refresh populates the same keys.
func buildService(cfg config.Config) *marketdata.Service {
	httpClient := httpx.New(time.Duration(cfg.Server.RequestTimeoutSec)*time.Second, cfg.Yahoo.Proxy)

	var providers []provider.Provider
	if cfg.Yahoo.Enabled {
		var p provider.Provider = yahoo.New(yahoo.Config{Endpoint: cfg.Yahoo.Endpoint}, httpClient)
		if cfg.Yahoo.MinIntervalMS > 0 {
			p = &ratelimit.MinInterval{P: p, Interval: time.Duration(cfg.Yahoo.MinIntervalMS) * time.Millisecond}
		}
		providers = append(providers, p)
	}
	if cfg.AlphaVantage.Enabled {
		client := alphavantage.NewClient(cfg.AlphaVantage.APIKey,
			alphavantage.WithBaseURL(cfg.AlphaVantage.Endpoint),
			alphavantage.WithHTTPClient(httpClient.HTTP),
		)
		var p provider.Provider = alphavantage.New(alphavantage.Config{APIKey: cfg.AlphaVantage.APIKey}, client)
		if cfg.AlphaVantage.MaxRequestsPerMinute > 0 {
			rate := float64(cfg.AlphaVantage.MaxRequestsPerMinute) / 60.0
			burst := cfg.AlphaVantage.Burst
			if burst <= 0 {
				burst = 1
			}
			p = &ratelimit.Provider{P: p, TB: ratelimit.NewTokenBucket(rate, burst)}
		}
		providers = append(providers, p)
	}

	var store cache.Store
	if cfg.Cache.RedisAddr != "" {
		store = cache.NewRedis(cfg.Cache.RedisAddr, cfg.Cache.RedisPassword, cfg.Cache.RedisDB)
	} else {
		log.Printf("[WARN] no redis_addr configured, using in-process cache")
		store = cache.NewMemory()
	}

	return marketdata.New(store, providers, time.Duration(cfg.Cache.TTLSeconds)*time.Second)
}
