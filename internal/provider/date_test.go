package provider

import (
	"encoding/json"
	"testing"
	"time"
)

func TestDate_JSONRoundTrip(t *testing.T) {
	d := NewDate(2023, time.October, 27)
	b, err := json.Marshal(d)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(b) != `"2023-10-27"` {
		t.Fatalf("marshal = %s, want \"2023-10-27\"", b)
	}

	var back Date
	if err := json.Unmarshal(b, &back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !back.Valid() || !back.Equal(d) {
		t.Fatalf("round trip lost the date: %+v", back)
	}
	if !back.Time().Equal(time.Date(2023, 10, 27, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected time: %v", back.Time())
	}
}

func TestDate_UnparseableTextPassesThrough(t *testing.T) {
	var d Date
	if err := json.Unmarshal([]byte(`"not-a-date"`), &d); err != nil {
		t.Fatalf("unmarshal should absorb bad dates, got %v", err)
	}
	if d.Valid() {
		t.Fatalf("bad date should not be valid")
	}
	if d.String() != "not-a-date" {
		t.Fatalf("raw text lost: %q", d.String())
	}

	// Marshaling re-emits the original text so the record survives
	// another cache round trip unchanged.
	b, err := json.Marshal(d)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(b) != `"not-a-date"` {
		t.Fatalf("marshal = %s, want raw text", b)
	}
}

func TestDate_Ordering(t *testing.T) {
	a := NewDate(2023, time.October, 26)
	b := NewDate(2023, time.October, 27)
	if !a.Before(b) || b.Before(a) {
		t.Fatalf("date ordering broken")
	}

	// Invalid dates fall back to lexical order of their text, which
	// still sorts ISO dates correctly against each other.
	bad, _ := ParseDate("2023-13-99")
	if !a.Before(bad) {
		t.Fatalf("expected %s < %s", a, bad)
	}
}

func TestDateOf_TruncatesToDay(t *testing.T) {
	d := DateOf(time.Date(2024, 3, 5, 17, 45, 12, 0, time.UTC))
	if d.String() != "2024-03-05" {
		t.Fatalf("DateOf = %s", d)
	}
}
