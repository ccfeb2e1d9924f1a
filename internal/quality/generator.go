package quality

import (
	"math/rand"
	"time"
)

// RandSource yields uniform values in [0, 1). *rand.Rand satisfies it.
type RandSource interface {
	Float64() float64
}

// Clock returns the current time
type Clock func() time.Time

// Sampling domains for synthetic readings
const (
	phLo, phHi                     = 6.5, 8.5
	tdsLo, tdsHi                   = 100.0, 500.0
	turbidityLo, turbidityHi       = 0.0, 5.0
	oxygenLo, oxygenHi             = 5.0, 10.0
	temperatureLo, temperatureHi   = 20.0, 35.0
	conductivityLo, conductivityHi = 200.0, 800.0
	orpLo, orpHi                   = 200.0, 600.0
)

// Generator produces synthetic readings
type Generator struct {
	rand  RandSource
	clock Clock
}

// NewGenerator creates a generator. A nil source or clock falls back to a
// time-seeded source and time.Now.
func NewGenerator(src RandSource, clock Clock) *Generator {
	if src == nil {
		src = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if clock == nil {
		clock = time.Now
	}
	return &Generator{rand: src, clock: clock}
}

// Generate draws a new reading. Values are sampled in a fixed order:
// pH, TDS, turbidity, DO, temperature, conductivity, ORP.
func (g *Generator) Generate() Reading {
	r := Reading{
		Timestamp:       g.clock(),
		PH:              g.between(phLo, phHi),
		TDS:             g.between(tdsLo, tdsHi),
		Turbidity:       g.between(turbidityLo, turbidityHi),
		DissolvedOxygen: g.between(oxygenLo, oxygenHi),
		Temperature:     g.between(temperatureLo, temperatureHi),
		Conductivity:    g.between(conductivityLo, conductivityHi),
		ORP:             g.between(orpLo, orpHi),
	}
	r.WQI = ComputeWQI(r.PH, r.TDS, r.Turbidity, r.DissolvedOxygen)
	return r
}

func (g *Generator) between(lo, hi float64) float64 {
	return lo + g.rand.Float64()*(hi-lo)
}

// ComputeWQI scores four parameters at 25 points each when they sit in their
// good band, or a fixed penalty otherwise. The result is clamped to [0, 100].
func ComputeWQI(ph, tds, turbidity, oxygen float64) float64 {
	score := 0.0

	if ph >= 6.5 && ph <= 8.5 {
		score += 25
	} else {
		score += 10
	}

	if tds <= 300 {
		score += 25
	} else {
		score += 15
	}

	if turbidity <= 1 {
		score += 25
	} else {
		score += 15
	}

	if oxygen >= 6 {
		score += 25
	} else {
		score += 10
	}

	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}
