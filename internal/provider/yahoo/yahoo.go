package yahoo

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"sort"
	"time"

	"marketfeed/internal/calc"
	"marketfeed/internal/httpx"
	"marketfeed/internal/provider"
	"marketfeed/internal/symbols"
)

type Config struct {
	Name     string // display name, default: Yahoo
	Endpoint string // chart API base URL, default: query1.finance.yahoo.com
}

// Provider fetches quotes and daily history from the Yahoo Finance v8
// chart API. No credentials required.
type Provider struct {
	cfg    Config
	client *httpx.Client
}

func New(cfg Config, hc *httpx.Client) *Provider {
	if cfg.Name == "" {
		cfg.Name = "Yahoo"
	}
	if cfg.Endpoint == "" {
		cfg.Endpoint = "https://query1.finance.yahoo.com/v8/finance/chart"
	}
	return &Provider{cfg: cfg, client: hc}
}

func (p *Provider) Name() string { return p.cfg.Name }

// sizeRange maps the logical history size to a Yahoo chart range.
var sizeRange = map[provider.Size]string{
	provider.SizeCompact: "3mo",
	provider.SizeFull:    "max",
}

func rangeFor(size provider.Size) string {
	if r, ok := sizeRange[size]; ok {
		return r
	}
	return sizeRange[provider.SizeCompact]
}

func (p *Provider) CurrentPrice(ctx context.Context, symbol, assetClass string) (float64, error) {
	bars, err := p.fetchChart(ctx, symbols.Map(symbol, assetClass), "1d", "5d")
	if err != nil {
		return 0, err
	}
	// Most recent close that actually has a value; holidays and
	// not-yet-settled bars come back null.
	for i := len(bars) - 1; i >= 0; i-- {
		if bars[i].Close != 0 {
			return bars[i].Close, nil
		}
	}
	return 0, fmt.Errorf("yahoo: no recent close for %q", symbol)
}

func (p *Provider) Historical(ctx context.Context, symbol, assetClass string, size provider.Size) ([]provider.Point, error) {
	bars, err := p.fetchChart(ctx, symbols.Map(symbol, assetClass), "1d", rangeFor(size))
	if err != nil {
		return nil, err
	}
	calc.AttachSMAs(bars)
	return bars, nil
}

// yahooChart is the response structure of the chart API.
type yahooChart struct {
	Chart struct {
		Result []struct {
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Open   []interface{} `json:"open"`
					High   []interface{} `json:"high"`
					Low    []interface{} `json:"low"`
					Close  []interface{} `json:"close"`
					Volume []interface{} `json:"volume"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

// toFloat converts a chart cell to a number. Cells are null for missing
// bars and occasionally carry junk; ok=false means skip the record.
func toFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	default:
		return 0, false
	}
}

func (p *Provider) fetchChart(ctx context.Context, vendorSymbol, interval, rng string) ([]provider.Point, error) {
	u := fmt.Sprintf("%s/%s?interval=%s&range=%s",
		p.cfg.Endpoint, url.PathEscape(vendorSymbol), interval, rng)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, http.NoBody)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "Mozilla/5.0")

	resp, err := p.client.Do(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("yahoo fetch: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("yahoo read body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("yahoo: status %d for %s", resp.StatusCode, vendorSymbol)
	}

	var chart yahooChart
	if err := json.Unmarshal(body, &chart); err != nil {
		return nil, fmt.Errorf("yahoo decode: %w", err)
	}
	if chart.Chart.Error != nil {
		return nil, fmt.Errorf("yahoo api error: %s", chart.Chart.Error.Description)
	}
	if len(chart.Chart.Result) == 0 || len(chart.Chart.Result[0].Indicators.Quote) == 0 {
		return nil, fmt.Errorf("yahoo: no data returned for %s", vendorSymbol)
	}

	result := chart.Chart.Result[0]
	quote := result.Indicators.Quote[0]
	points := make([]provider.Point, 0, len(result.Timestamp))

	for i, ts := range result.Timestamp {
		if i >= len(quote.Open) || i >= len(quote.High) || i >= len(quote.Low) ||
			i >= len(quote.Close) || i >= len(quote.Volume) {
			break
		}
		o, ok1 := toFloat(quote.Open[i])
		h, ok2 := toFloat(quote.High[i])
		l, ok3 := toFloat(quote.Low[i])
		c, ok4 := toFloat(quote.Close[i])
		v, ok5 := toFloat(quote.Volume[i])
		if !ok1 || !ok2 || !ok3 || !ok4 || !ok5 {
			log.Printf("[WARN] yahoo: skipping malformed bar for %s at %s",
				vendorSymbol, time.Unix(ts, 0).UTC().Format("2006-01-02"))
			continue
		}
		if o == 0 && h == 0 && l == 0 && c == 0 {
			continue // null bars (holidays etc.)
		}
		points = append(points, provider.Point{
			Date:   provider.DateOf(time.Unix(ts, 0).UTC()),
			Open:   o,
			High:   h,
			Low:    l,
			Close:  c,
			Volume: int64(v),
		})
	}

	sort.Slice(points, func(i, j int) bool { return points[i].Date.Before(points[j].Date) })
	return points, nil
}
