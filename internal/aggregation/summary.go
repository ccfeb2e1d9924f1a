package aggregation

import (
	"math"
	"time"

	"github.com/smukkama/water-monitor/internal/quality"
)

// Trend describes the direction of a quantity across the window
type Trend string

const (
	TrendRising  Trend = "rising"
	TrendFalling Trend = "falling"
	TrendStable  Trend = "stable"
)

// stableTolerance is the relative change between window halves treated as flat
const stableTolerance = 0.02

// Stats summarises one quantity over a window of readings
type Stats struct {
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
	Avg   float64 `json:"avg"`
	Trend Trend   `json:"trend"`
}

// Summary aggregates a window of readings
type Summary struct {
	Count      int              `json:"count"`
	From       time.Time        `json:"from"`
	To         time.Time        `json:"to"`
	Quantities map[string]Stats `json:"quantities"`
}

var quantities = []struct {
	name  string
	value func(quality.Reading) float64
}{
	{"ph", func(r quality.Reading) float64 { return r.PH }},
	{"tds", func(r quality.Reading) float64 { return r.TDS }},
	{"turbidity", func(r quality.Reading) float64 { return r.Turbidity }},
	{"do", func(r quality.Reading) float64 { return r.DissolvedOxygen }},
	{"temperature", func(r quality.Reading) float64 { return r.Temperature }},
	{"conductivity", func(r quality.Reading) float64 { return r.Conductivity }},
	{"orp", func(r quality.Reading) float64 { return r.ORP }},
	{"wqi", func(r quality.Reading) float64 { return r.WQI }},
}

// Summarize computes per-quantity statistics over readings ordered oldest first
func Summarize(readings []quality.Reading) Summary {
	s := Summary{
		Count:      len(readings),
		Quantities: make(map[string]Stats, len(quantities)),
	}
	if len(readings) == 0 {
		return s
	}

	s.From = readings[0].Timestamp
	s.To = readings[len(readings)-1].Timestamp

	for _, q := range quantities {
		values := make([]float64, len(readings))
		for i, r := range readings {
			values[i] = q.value(r)
		}
		s.Quantities[q.name] = summarizeValues(values)
	}
	return s
}

func summarizeValues(values []float64) Stats {
	st := Stats{Min: math.Inf(1), Max: math.Inf(-1)}

	sum := 0.0
	for _, v := range values {
		sum += v
		st.Min = math.Min(st.Min, v)
		st.Max = math.Max(st.Max, v)
	}
	st.Avg = sum / float64(len(values))
	st.Trend = trendOf(values)
	return st
}

// trendOf compares the mean of the newer half with the older half
func trendOf(values []float64) Trend {
	if len(values) < 2 {
		return TrendStable
	}

	half := len(values) / 2
	older := mean(values[:half])
	newer := mean(values[len(values)-half:])

	delta := newer - older
	scale := math.Max(math.Abs(older), 1)
	if math.Abs(delta)/scale <= stableTolerance {
		return TrendStable
	}
	if delta > 0 {
		return TrendRising
	}
	return TrendFalling
}

func mean(values []float64) float64 {
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}
