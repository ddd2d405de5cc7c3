package calc

import (
	"errors"

	"marketfeed/internal/provider"
)

// SMA computes the simple moving average over the trailing period of values.
func SMA(values []float64, period int) (float64, error) {
	if period <= 0 {
		return 0, errors.New("period must be positive")
	}
	if len(values) < period {
		return 0, errors.New("not enough data for SMA calculation")
	}
	sum := 0.0
	for i := len(values) - period; i < len(values); i++ {
		sum += values[i]
	}
	return sum / float64(period), nil
}

// AttachSMAs annotates each point with trailing 20- and 50-period simple
// moving averages of the close price. A point gets a value only once at
// least that many points (inclusive) precede it; earlier points keep nil.
// The series is assumed sorted ascending by date.
func AttachSMAs(points []provider.Point) {
	closes := make([]float64, len(points))
	for i, p := range points {
		closes[i] = p.Close
	}
	for i := range points {
		if v, err := SMA(closes[:i+1], 20); err == nil {
			points[i].SMA20 = &v
		}
		if v, err := SMA(closes[:i+1], 50); err == nil {
			points[i].SMA50 = &v
		}
	}
}
