package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
)

type Server struct {
	Port              string `json:"port"`
	RequestTimeoutSec int    `json:"request_timeout_sec"`
}

type Yahoo struct {
	Enabled       bool   `json:"enabled"`
	Endpoint      string `json:"endpoint"`
	Proxy         string `json:"proxy"`
	MinIntervalMS int    `json:"min_interval_ms"`
}

type AlphaVantage struct {
	Enabled              bool   `json:"enabled"`
	APIKey               string `json:"api_key"`
	Endpoint             string `json:"endpoint"`
	MaxRequestsPerMinute int    `json:"max_requests_per_minute"`
	Burst                int    `json:"burst"`
}

type Cache struct {
	RedisAddr     string `json:"redis_addr"`
	RedisPassword string `json:"redis_password"`
	RedisDB       int    `json:"redis_db"`
	TTLSeconds    int    `json:"ttl_sec"`
}

type Refresh struct {
	StalenessMinutes int    `json:"staleness_minutes"`
	Cron             string `json:"cron"`
	SQLitePath       string `json:"sqlite_path"`
	RunOnStart       bool   `json:"run_on_start"`
}

type Config struct {
	Server       Server       `json:"server"`
	Yahoo        Yahoo        `json:"yahoo"`
	AlphaVantage AlphaVantage `json:"alphavantage"`
	Cache        Cache        `json:"cache"`
	Refresh      Refresh      `json:"refresh"`
}

func Default() Config {
	return Config{
		Server: Server{Port: "8080", RequestTimeoutSec: 30},
		Yahoo: Yahoo{
			Enabled:       true,
			Endpoint:      "https://query1.finance.yahoo.com/v8/finance/chart",
			MinIntervalMS: 200, // keep batch refreshes from hammering the chart API
		},
		AlphaVantage: AlphaVantage{
			Enabled:              true,
			Endpoint:             "https://www.alphavantage.co",
			MaxRequestsPerMinute: 5, // free tier quota
			Burst:                1,
		},
		Cache: Cache{
			TTLSeconds: 900,
		},
		Refresh: Refresh{
			StalenessMinutes: 30,
			Cron:             "0 */30 * * * *",
			SQLitePath:       "marketfeed.db",
		},
	}
}

// Load reads JSON config from path. If path is empty or the file does
// not exist, it returns defaults. Environment variables override select
// fields for secrecy.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		if _, err := os.Stat("config.json"); err == nil {
			path = "config.json"
		}
	}
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return cfg, fmt.Errorf("read config: %w", err)
		}
		if err == nil {
			if err := json.Unmarshal(b, &cfg); err != nil {
				return cfg, fmt.Errorf("parse config: %w", err)
			}
		}
	}
	applyEnv(&cfg)
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("PORT"); v != "" {
		cfg.Server.Port = v
	}
	if v := os.Getenv("REQUEST_TIMEOUT_SEC"); v != "" {
		if x := atoi(v); x > 0 {
			cfg.Server.RequestTimeoutSec = x
		}
	}
	if v := os.Getenv("YAHOO_ENDPOINT"); v != "" {
		cfg.Yahoo.Endpoint = v
	}
	if v := os.Getenv("HTTPS_PROXY"); v != "" && cfg.Yahoo.Proxy == "" {
		cfg.Yahoo.Proxy = v
	}
	if v := os.Getenv("YAHOO_MIN_INTERVAL_MS"); v != "" {
		if x := atoi(v); x >= 0 {
			cfg.Yahoo.MinIntervalMS = x
		}
	}
	if v := os.Getenv("ALPHA_VANTAGE_API_KEY"); v != "" {
		cfg.AlphaVantage.APIKey = v
	}
	if v := os.Getenv("ALPHA_VANTAGE_ENDPOINT"); v != "" {
		cfg.AlphaVantage.Endpoint = v
	}
	if v := os.Getenv("ALPHA_VANTAGE_MAX_RPM"); v != "" {
		if x := atoi(v); x >= 0 {
			cfg.AlphaVantage.MaxRequestsPerMinute = x
		}
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		cfg.Cache.RedisAddr = v
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		cfg.Cache.RedisPassword = v
	}
	if v := os.Getenv("REDIS_DB"); v != "" {
		if x := atoi(v); x >= 0 {
			cfg.Cache.RedisDB = x
		}
	}
	if v := os.Getenv("CACHE_TTL_SEC"); v != "" {
		if x := atoi(v); x > 0 {
			cfg.Cache.TTLSeconds = x
		}
	}
	if v := os.Getenv("STALENESS_MINUTES"); v != "" {
		if x := atoi(v); x > 0 {
			cfg.Refresh.StalenessMinutes = x
		}
	}
	if v := os.Getenv("REFRESH_CRON"); v != "" {
		cfg.Refresh.Cron = v
	}
	if v := os.Getenv("SQLITE_PATH"); v != "" {
		cfg.Refresh.SQLitePath = v
	}
	if v := os.Getenv("REFRESH_RUN_ON_START"); v != "" {
		switch strings.ToLower(v) {
		case "1", "true", "yes", "y":
			cfg.Refresh.RunOnStart = true
		case "0", "false", "no", "n":
			cfg.Refresh.RunOnStart = false
		}
	}
}

func atoi(s string) int {
	var x int
	_, _ = fmt.Sscanf(s, "%d", &x)
	return x
}
