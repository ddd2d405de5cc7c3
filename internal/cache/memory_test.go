package cache

import (
	"context"
	"testing"
	"time"
)

func TestMemory_RoundTrip(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	m.Set(ctx, "price:AAPL_stock", []byte("170"), time.Minute)
	got, ok := m.Get(ctx, "price:AAPL_stock")
	if !ok || string(got) != "170" {
		t.Fatalf("Get = (%q, %v), want (170, true)", got, ok)
	}

	if _, ok := m.Get(ctx, "price:MSFT_stock"); ok {
		t.Fatalf("unexpected hit for missing key")
	}
}

func TestMemory_WriteReplaces(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	m.Set(ctx, "k", []byte("old"), time.Minute)
	m.Set(ctx, "k", []byte("new"), time.Minute)
	got, ok := m.Get(ctx, "k")
	if !ok || string(got) != "new" {
		t.Fatalf("Get = (%q, %v), want (new, true)", got, ok)
	}
}

func TestMemory_ExpiryWithInjectedClock(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	m := NewMemory()
	m.Now = func() time.Time { return now }

	m.Set(ctx, "k", []byte("v"), 15*time.Minute)

	now = now.Add(14 * time.Minute)
	if _, ok := m.Get(ctx, "k"); !ok {
		t.Fatalf("entry expired early")
	}

	// An entry is never visible at or after its expiry instant.
	now = now.Add(time.Minute)
	if _, ok := m.Get(ctx, "k"); ok {
		t.Fatalf("entry visible after expiry")
	}
}

func TestMemory_NeverStoresEmpty(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	m.Set(ctx, "k", nil, time.Minute)
	m.Set(ctx, "k2", []byte{}, time.Minute)
	if _, ok := m.Get(ctx, "k"); ok {
		t.Fatalf("nil value stored")
	}
	if _, ok := m.Get(ctx, "k2"); ok {
		t.Fatalf("empty value stored")
	}
}
