package main

import (
	"compress/gzip"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"marketfeed/internal/cache"
	"marketfeed/internal/config"
	"marketfeed/internal/httpx"
	"marketfeed/internal/marketdata"
	"marketfeed/internal/provider"
	"marketfeed/internal/provider/alphavantage"
	"marketfeed/internal/provider/ratelimit"
	"marketfeed/internal/provider/yahoo"
)

type historyResponse struct {
	Symbol string           `json:"symbol"`
	Points []provider.Point `json:"points"`
}

func main() {
	cfgPath := os.Getenv("CONFIG_FILE")
	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	svc := buildService(cfg)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.HandleFunc("/api/price", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		handlePrice(w, r, svc)
	})
	mux.HandleFunc("/api/history", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		handleHistory(w, r, svc)
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           withJSONHeaders(withGzip(recoverPanic(mux))),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Printf("[INFO] server listening on :%s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server: %v", err)
		}
	}()

	// graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
}

// buildService assembles the provider chain and shared cache from config.
// Provider order is the fallback order: Yahoo first, Alpha Vantage second.
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

func handlePrice(w http.ResponseWriter, r *http.Request, svc *marketdata.Service) {
	symbol := strings.TrimSpace(r.URL.Query().Get("symbol"))
	if symbol == "" {
		http.Error(w, "missing symbol query param", http.StatusBadRequest)
		return
	}
	class := r.URL.Query().Get("class")

	price, err := svc.CurrentPrice(r.Context(), symbol, class)
	if err != nil {
		if errors.Is(err, marketdata.ErrNoData) {
			http.Error(w, "no price available", http.StatusNotFound)
			return
		}
		http.Error(w, err.Error(), http.StatusBadGateway)
		return
	}
	writeJSON(w, provider.Quote{
		Symbol:     strings.ToUpper(symbol),
		Price:      price,
		ObservedAt: time.Now().UTC(),
	})
}

func handleHistory(w http.ResponseWriter, r *http.Request, svc *marketdata.Service) {
	symbol := strings.TrimSpace(r.URL.Query().Get("symbol"))
	if symbol == "" {
		http.Error(w, "missing symbol query param", http.StatusBadRequest)
		return
	}
	class := r.URL.Query().Get("class")
	size := provider.Size(r.URL.Query().Get("size"))
	if size == "" {
		size = provider.SizeCompact
	}
	if !size.Valid() {
		http.Error(w, "size must be compact or full", http.StatusBadRequest)
		return
	}

	points, err := svc.Historical(r.Context(), symbol, class, size)
	if err != nil {
		if errors.Is(err, marketdata.ErrNoData) {
			http.Error(w, "no history available", http.StatusNotFound)
			return
		}
		http.Error(w, err.Error(), http.StatusBadGateway)
		return
	}
	writeJSON(w, historyResponse{Symbol: strings.ToUpper(symbol), Points: points})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.WriteHeader(http.StatusOK)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(v)
}

func withJSONHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		// Basic CORS for browser usage; adjust as needed.
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET,OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type,Authorization")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// withGzip compresses the response when the client supports gzip.
func withGzip(next http.Handler) http.Handler {
	var gzPool = sync.Pool{New: func() any {
		w, _ := gzip.NewWriterLevel(io.Discard, gzip.BestSpeed)
		return w
	}}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.Contains(r.Header.Get("Accept-Encoding"), "gzip") {
			next.ServeHTTP(w, r)
			return
		}
		gz := gzPool.Get().(*gzip.Writer)
		gz.Reset(w)
		defer func() {
			_ = gz.Close()
			gz.Reset(io.Discard)
			gzPool.Put(gz)
		}()
		w.Header().Set("Content-Encoding", "gzip")
		w.Header().Add("Vary", "Accept-Encoding")
		gw := gzipResponseWriter{ResponseWriter: w, Writer: gz}
		next.ServeHTTP(gw, r)
	})
}

type gzipResponseWriter struct {
	http.ResponseWriter
	Writer io.Writer
}

func (g gzipResponseWriter) Write(b []byte) (int, error) {
	return g.Writer.Write(b)
}

// recoverPanic protects handlers from panics.
func recoverPanic(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				http.Error(w, "internal server error", http.StatusInternalServerError)
			}
		}()
		next.ServeHTTP(w, r)
	})
}
