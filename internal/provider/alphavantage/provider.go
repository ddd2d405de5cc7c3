package alphavantage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"marketfeed/internal/provider"
	"marketfeed/internal/symbols"
)

// ErrNoCredentials is returned for every call when no API key is
// configured. The provider then simply never produces data.
var ErrNoCredentials = errors.New("alphavantage: api key not configured")

// compactWindow is the number of most recent points a compact request
// keeps when the vendor endpoint has no native output size parameter.
const compactWindow = 100

type Config struct {
	Name   string // display name, default: AlphaVantage
	APIKey string
	Market string // quote currency for crypto pairs, default: USD
}

// Adapter normalizes Alpha Vantage responses into the common provider
// shape. Stocks use GLOBAL_QUOTE / TIME_SERIES_DAILY; crypto uses
// CURRENCY_EXCHANGE_RATE / DIGITAL_CURRENCY_DAILY.
type Adapter struct {
	cfg    Config
	client *Client
}

func New(cfg Config, client *Client) *Adapter {
	if cfg.Name == "" {
		cfg.Name = "AlphaVantage"
	}
	if cfg.Market == "" {
		cfg.Market = "USD"
	}
	if cfg.APIKey == "" {
		log.Printf("[WARN] %s: no api key configured, provider disabled", cfg.Name)
	}
	return &Adapter{cfg: cfg, client: client}
}

func (a *Adapter) Name() string { return a.cfg.Name }

func (a *Adapter) CurrentPrice(ctx context.Context, symbol, assetClass string) (float64, error) {
	if a.cfg.APIKey == "" {
		return 0, ErrNoCredentials
	}
	if strings.EqualFold(assetClass, provider.ClassCrypto) {
		base, _ := symbols.CryptoBase(symbol)
		if base == "" {
			return 0, fmt.Errorf("alphavantage: empty crypto base for %q", symbol)
		}
		return a.exchangeRate(ctx, base)
	}
	return a.globalQuote(ctx, strings.ToUpper(symbol))
}

func (a *Adapter) Historical(ctx context.Context, symbol, assetClass string, size provider.Size) ([]provider.Point, error) {
	if a.cfg.APIKey == "" {
		return nil, ErrNoCredentials
	}
	if strings.EqualFold(assetClass, provider.ClassCrypto) {
		base, _ := symbols.CryptoBase(symbol)
		if base == "" {
			return nil, fmt.Errorf("alphavantage: empty crypto base for %q", symbol)
		}
		return a.cryptoDaily(ctx, base, size)
	}
	return a.stockDaily(ctx, strings.ToUpper(symbol), size)
}

func (a *Adapter) globalQuote(ctx context.Context, symbol string) (float64, error) {
	data, err := a.client.Query(ctx, url.Values{
		"function": {"GLOBAL_QUOTE"},
		"symbol":   {symbol},
	})
	if err != nil {
		return 0, err
	}
	var quote struct {
		Price string `json:"05. price"`
	}
	raw, ok := data["Global Quote"]
	if !ok {
		return 0, fmt.Errorf("alphavantage: no quote for %q", symbol)
	}
	if err := json.Unmarshal(raw, &quote); err != nil {
		return 0, fmt.Errorf("alphavantage: decode quote for %q: %w", symbol, err)
	}
	price, err := strconv.ParseFloat(quote.Price, 64)
	if err != nil {
		return 0, fmt.Errorf("alphavantage: parse price for %q: %w", symbol, err)
	}
	return price, nil
}

func (a *Adapter) exchangeRate(ctx context.Context, base string) (float64, error) {
	data, err := a.client.Query(ctx, url.Values{
		"function":      {"CURRENCY_EXCHANGE_RATE"},
		"from_currency": {base},
		"to_currency":   {a.cfg.Market},
	})
	if err != nil {
		return 0, err
	}
	var rate struct {
		Rate string `json:"5. Exchange Rate"`
	}
	raw, ok := data["Realtime Currency Exchange Rate"]
	if !ok {
		return 0, fmt.Errorf("alphavantage: no exchange rate for %s/%s", base, a.cfg.Market)
	}
	if err := json.Unmarshal(raw, &rate); err != nil {
		return 0, fmt.Errorf("alphavantage: decode rate for %s: %w", base, err)
	}
	price, err := strconv.ParseFloat(rate.Rate, 64)
	if err != nil {
		return 0, fmt.Errorf("alphavantage: parse rate for %s: %w", base, err)
	}
	return price, nil
}

func (a *Adapter) stockDaily(ctx context.Context, symbol string, size provider.Size) ([]provider.Point, error) {
	data, err := a.client.Query(ctx, url.Values{
		"function":   {"TIME_SERIES_DAILY"},
		"symbol":     {symbol},
		"outputsize": {string(size)},
	})
	if err != nil {
		return nil, err
	}
	raw, ok := data["Time Series (Daily)"]
	if !ok {
		return nil, fmt.Errorf("alphavantage: no daily series for %q", symbol)
	}
	var series map[string]map[string]string
	if err := json.Unmarshal(raw, &series); err != nil {
		return nil, fmt.Errorf("alphavantage: decode series for %q: %w", symbol, err)
	}

	points := make([]provider.Point, 0, len(series))
	for dateStr, rec := range series {
		p, err := parseRecord(dateStr, rec, "1. open", "2. high", "3. low", "4. close", "5. volume")
		if err != nil {
			log.Printf("[WARN] alphavantage: skipping malformed record for %s on %s: %v", symbol, dateStr, err)
			continue
		}
		points = append(points, p)
	}
	sortAscending(points)
	return points, nil
}

func (a *Adapter) cryptoDaily(ctx context.Context, base string, size provider.Size) ([]provider.Point, error) {
	data, err := a.client.Query(ctx, url.Values{
		"function": {"DIGITAL_CURRENCY_DAILY"},
		"symbol":   {base},
		"market":   {a.cfg.Market},
	})
	if err != nil {
		return nil, err
	}
	raw, ok := data["Time Series (Digital Currency Daily)"]
	if !ok {
		return nil, fmt.Errorf("alphavantage: no crypto series for %q", base)
	}
	var series map[string]map[string]string
	if err := json.Unmarshal(raw, &series); err != nil {
		return nil, fmt.Errorf("alphavantage: decode crypto series for %q: %w", base, err)
	}

	market := strings.ToUpper(a.cfg.Market)
	points := make([]provider.Point, 0, len(series))
	for dateStr, rec := range series {
		p, err := parseRecord(dateStr, rec,
			fmt.Sprintf("1a. open (%s)", market),
			fmt.Sprintf("2a. high (%s)", market),
			fmt.Sprintf("3a. low (%s)", market),
			fmt.Sprintf("4a. close (%s)", market),
			"5. volume")
		if err != nil {
			log.Printf("[WARN] alphavantage: skipping malformed record for %s on %s: %v", base, dateStr, err)
			continue
		}
		points = append(points, p)
	}
	sortAscending(points)

	// This endpoint has no output size parameter; trim compact
	// requests to the most recent window after sorting.
	if size == provider.SizeCompact && len(points) > compactWindow {
		points = points[len(points)-compactWindow:]
	}
	return points, nil
}

func parseRecord(dateStr string, rec map[string]string, openKey, highKey, lowKey, closeKey, volumeKey string) (provider.Point, error) {
	date, err := provider.ParseDate(dateStr)
	if err != nil {
		return provider.Point{}, fmt.Errorf("bad date: %w", err)
	}
	open, err := parseField(rec, openKey)
	if err != nil {
		return provider.Point{}, err
	}
	high, err := parseField(rec, highKey)
	if err != nil {
		return provider.Point{}, err
	}
	low, err := parseField(rec, lowKey)
	if err != nil {
		return provider.Point{}, err
	}
	closePrice, err := parseField(rec, closeKey)
	if err != nil {
		return provider.Point{}, err
	}
	volume, err := parseField(rec, volumeKey)
	if err != nil {
		return provider.Point{}, err
	}
	return provider.Point{
		Date:   date,
		Open:   open,
		High:   high,
		Low:    low,
		Close:  closePrice,
		Volume: int64(volume),
	}, nil
}

func parseField(rec map[string]string, key string) (float64, error) {
	s, ok := rec[key]
	if !ok {
		return 0, fmt.Errorf("missing field %q", key)
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("bad number in %q: %w", key, err)
	}
	return v, nil
}

func sortAscending(points []provider.Point) {
	sort.Slice(points, func(i, j int) bool { return points[i].Date.Before(points[j].Date) })
}
