package provider

import (
	"encoding/json"
	"strings"
	"time"
)

const dateLayout = "2006-01-02"

// Date is a calendar date (no time component) as carried in vendor
// responses and cache payloads. It marshals to ISO 8601, e.g. "2023-10-27".
//
// Unmarshaling keeps the raw text when it cannot be parsed, so a cached
// record with a bad date field is passed through instead of dropped;
// marshaling such a value re-emits the original text.
type Date struct {
	t   time.Time
	raw string
}

// NewDate builds a Date for the given calendar day in UTC.
func NewDate(year int, month time.Month, day int) Date {
	t := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
	return Date{t: t, raw: t.Format(dateLayout)}
}

// DateOf truncates t to its calendar day in UTC.
func DateOf(t time.Time) Date {
	return NewDate(t.UTC().Year(), t.UTC().Month(), t.UTC().Day())
}

// ParseDate parses an ISO 8601 calendar date.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return Date{raw: s}, err
	}
	return Date{t: t, raw: s}, nil
}

// Valid reports whether the date was parsed successfully.
func (d Date) Valid() bool { return !d.t.IsZero() }

// Time returns the date at midnight UTC. Zero when invalid.
func (d Date) Time() time.Time { return d.t }

func (d Date) String() string {
	if d.Valid() {
		return d.t.Format(dateLayout)
	}
	return d.raw
}

// Before orders dates ascending. Invalid dates fall back to a lexical
// compare of their raw text, which still orders ISO dates correctly.
func (d Date) Before(o Date) bool {
	if d.Valid() && o.Valid() {
		return d.t.Before(o.t)
	}
	return d.String() < o.String()
}

func (d Date) Equal(o Date) bool {
	if d.Valid() && o.Valid() {
		return d.t.Equal(o.t)
	}
	return d.String() == o.String()
}

func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *Date) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		// Not even a JSON string; keep the raw token.
		d.t = time.Time{}
		d.raw = strings.Trim(string(b), `"`)
		return nil
	}
	parsed, err := ParseDate(s)
	if err != nil {
		d.t = time.Time{}
		d.raw = s
		return nil
	}
	*d = parsed
	return nil
}
