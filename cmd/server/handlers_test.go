package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http/httptest"
	"testing"
	"time"

	"marketfeed/internal/cache"
	"marketfeed/internal/marketdata"
	"marketfeed/internal/provider"
)

type fakeProvider struct {
	name   string
	price  float64
	points []provider.Point
	err    error
}

func (f fakeProvider) Name() string { return f.name }
func (f fakeProvider) CurrentPrice(context.Context, string, string) (float64, error) {
	return f.price, f.err
}
func (f fakeProvider) Historical(context.Context, string, string, provider.Size) ([]provider.Point, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.points, nil
}

func testService(p provider.Provider) *marketdata.Service {
	return marketdata.New(cache.NewMemory(), []provider.Provider{p}, time.Minute)
}

func TestHandlePrice_OK(t *testing.T) {
	svc := testService(fakeProvider{name: "fake", price: 170.25})

	rr := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/api/price?symbol=aapl&class=stock", nil)
	handlePrice(rr, req, svc)
	if rr.Code != 200 {
		t.Fatalf("status=%d body=%s", rr.Code, rr.Body.String())
	}
	var q provider.Quote
	if err := json.Unmarshal(rr.Body.Bytes(), &q); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if q.Symbol != "AAPL" || q.Price != 170.25 {
		t.Fatalf("unexpected quote: %+v", q)
	}
	if q.ObservedAt.IsZero() {
		t.Fatalf("missing observed_at")
	}
}

func TestHandlePrice_MissingSymbol(t *testing.T) {
	svc := testService(fakeProvider{name: "fake"})

	rr := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/api/price", nil)
	handlePrice(rr, req, svc)
	if rr.Code != 400 {
		t.Fatalf("status=%d body=%s", rr.Code, rr.Body.String())
	}
}

func TestHandlePrice_NoData(t *testing.T) {
	svc := testService(fakeProvider{name: "fake", err: errors.New("down")})

	rr := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/api/price?symbol=GHOST", nil)
	handlePrice(rr, req, svc)
	if rr.Code != 404 {
		t.Fatalf("status=%d body=%s", rr.Code, rr.Body.String())
	}
}

func TestHandleHistory_OK(t *testing.T) {
	points := []provider.Point{
		{Date: provider.NewDate(2023, 10, 26), Open: 1, High: 1.5, Low: 0.8, Close: 1.2, Volume: 100},
	}
	svc := testService(fakeProvider{name: "fake", points: points})

	rr := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/api/history?symbol=aapl&class=stock", nil)
	handleHistory(rr, req, svc)
	if rr.Code != 200 {
		t.Fatalf("status=%d body=%s", rr.Code, rr.Body.String())
	}
	var resp historyResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Symbol != "AAPL" || len(resp.Points) != 1 {
		t.Fatalf("unexpected: %+v", resp)
	}
	if got := resp.Points[0].Date.String(); got != "2023-10-26" {
		t.Fatalf("date=%s", got)
	}
}

func TestHandleHistory_EmptySeriesIsNotNull(t *testing.T) {
	svc := testService(fakeProvider{name: "fake", points: nil})

	rr := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/api/history?symbol=NEWIPO", nil)
	handleHistory(rr, req, svc)
	if rr.Code != 200 {
		t.Fatalf("status=%d body=%s", rr.Code, rr.Body.String())
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(rr.Body.Bytes(), &raw); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if string(raw["points"]) != "[]" {
		t.Fatalf("points=%s, want []", raw["points"])
	}
}

func TestHandleHistory_BadSize(t *testing.T) {
	svc := testService(fakeProvider{name: "fake"})

	rr := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/api/history?symbol=AAPL&size=weekly", nil)
	handleHistory(rr, req, svc)
	if rr.Code != 400 {
		t.Fatalf("status=%d body=%s", rr.Code, rr.Body.String())
	}
}
