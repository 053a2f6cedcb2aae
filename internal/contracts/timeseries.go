package contracts

import (
	"fmt"
	"time"
)

// Point is one observation in a time series. Price series fill the OHLCV
// fields; scalar series (rates, CPI, PER) carry the value in Close.
type Point struct {
	Date   time.Time `json:"date"`
	Open   float64   `json:"open,omitempty"`
	High   float64   `json:"high,omitempty"`
	Low    float64   `json:"low,omitempty"`
	Close  float64   `json:"close"`
	Volume float64   `json:"volume,omitempty"`
}

// TimeSeries is an ordered sequence of points for one symbol or indicator.
// Dates are strictly increasing with no duplicates; Validate enforces it.
type TimeSeries struct {
	Symbol string  `json:"symbol"`
	Points []Point `json:"points"`
}

// Validate checks the series ordering invariant.
func (s TimeSeries) Validate() error {
	for i := 1; i < len(s.Points); i++ {
		prev := s.Points[i-1].Date
		cur := s.Points[i].Date
		if !cur.After(prev) {
			return fmt.Errorf("series %s: dates not strictly increasing at index %d (%s >= %s)",
				s.Symbol, i, prev.Format("2006-01-02"), cur.Format("2006-01-02"))
		}
	}
	return nil
}

// Len returns the number of points.
func (s TimeSeries) Len() int {
	return len(s.Points)
}

// Latest returns the most recent point.
func (s TimeSeries) Latest() (Point, bool) {
	if len(s.Points) == 0 {
		return Point{}, false
	}
	return s.Points[len(s.Points)-1], true
}

// Closes returns the close values in chronological order.
func (s TimeSeries) Closes() []float64 {
	closes := make([]float64, len(s.Points))
	for i, p := range s.Points {
		closes[i] = p.Close
	}
	return closes
}

// Volumes returns the volume values in chronological order.
func (s TimeSeries) Volumes() []float64 {
	volumes := make([]float64, len(s.Points))
	for i, p := range s.Points {
		volumes[i] = p.Volume
	}
	return volumes
}

// Tail returns a copy of the series limited to the last n points.
func (s TimeSeries) Tail(n int) TimeSeries {
	if n >= len(s.Points) {
		return s
	}
	return TimeSeries{Symbol: s.Symbol, Points: s.Points[len(s.Points)-n:]}
}
