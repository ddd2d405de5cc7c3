package provider

import (
	"context"
	"time"
)

// Asset classes understood by the mapping and routing logic.
// Anything else is treated like a stock symbol.
const (
	ClassStock  = "stock"
	ClassCrypto = "crypto"
)

// Size selects the historical lookback window.
type Size string

const (
	SizeCompact Size = "compact"
	SizeFull    Size = "full"
)

func (s Size) Valid() bool { return s == SizeCompact || s == SizeFull }

// Quote is a current price observation for a canonical symbol.
type Quote struct {
	Symbol     string    `json:"symbol"`
	Price      float64   `json:"price"`
	ObservedAt time.Time `json:"observed_at"`
}

// Point is one daily OHLCV record of a historical series.
// SMA fields are only set once enough preceding closes exist.
type Point struct {
	Date   Date     `json:"date"`
	Open   float64  `json:"open"`
	High   float64  `json:"high"`
	Low    float64  `json:"low"`
	Close  float64  `json:"close"`
	Volume int64    `json:"volume"`
	SMA20  *float64 `json:"sma20,omitempty"`
	SMA50  *float64 `json:"sma50,omitempty"`
}

// Provider is one upstream market-data source. Implementations map the
// canonical symbol to their own ticker format and normalize the vendor
// response at this boundary; nothing above it sees vendor JSON.
//
// Any returned error means "this provider could not produce data" and
// makes the orchestrator fall through to the next provider in order.
type Provider interface {
	Name() string
	CurrentPrice(ctx context.Context, symbol, assetClass string) (float64, error)
	Historical(ctx context.Context, symbol, assetClass string, size Size) ([]Point, error)
}
