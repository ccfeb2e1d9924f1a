package quality

import (
	"errors"
	"fmt"
	"time"
)

// ErrInvalidRange is returned when range bounds are out of order
var ErrInvalidRange = errors.New("invalid parameter range")

// Kind identifies a monitored quantity
type Kind string

const (
	KindPH              Kind = "ph"
	KindTDS             Kind = "tds"
	KindTurbidity       Kind = "turbidity"
	KindDissolvedOxygen Kind = "do"
	KindTemperature     Kind = "temperature"
	KindConductivity    Kind = "conductivity"
)

// Status is the classification tier of a value against its range
type Status string

const (
	StatusSafe      Status = "safe"
	StatusModerate  Status = "moderate"
	StatusHazardous Status = "hazardous"
)

// Bounds is an inclusive [Min, Max] interval
type Bounds struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// Contains reports whether v lies within the bounds, edges included
func (b Bounds) Contains(v float64) bool {
	return v >= b.Min && v <= b.Max
}

// Range holds absolute bounds and the nested optimal band.
// Construct it with NewRange so the ordering holds.
type Range struct {
	Min     float64 `json:"min"`
	Max     float64 `json:"max"`
	Optimal Bounds  `json:"optimal"`
}

// NewRange validates min <= optMin <= optMax <= max
func NewRange(min, optMin, optMax, max float64) (Range, error) {
	if !(min <= optMin && optMin <= optMax && optMax <= max) {
		return Range{}, fmt.Errorf("%w: min=%g optimal=[%g,%g] max=%g", ErrInvalidRange, min, optMin, optMax, max)
	}
	return Range{Min: min, Max: max, Optimal: Bounds{Min: optMin, Max: optMax}}, nil
}

// Classify maps a value onto safe, moderate or hazardous
func Classify(value float64, r Range) Status {
	if r.Optimal.Contains(value) {
		return StatusSafe
	}
	if value >= r.Min && value <= r.Max {
		return StatusModerate
	}
	return StatusHazardous
}

// Definition is the static description of one parameter kind
type Definition struct {
	Kind  Kind
	Name  string
	Unit  string
	Range Range
}

func mustRange(min, optMin, optMax, max float64) Range {
	r, err := NewRange(min, optMin, optMax, max)
	if err != nil {
		panic(err)
	}
	return r
}

var definitions = []Definition{
	{KindPH, "pH Level", "", mustRange(0, 6.5, 8.5, 14)},
	{KindTDS, "Total Dissolved Solids", "mg/L", mustRange(0, 50, 300, 1000)},
	{KindTurbidity, "Turbidity", "NTU", mustRange(0, 0, 1, 20)},
	{KindDissolvedOxygen, "Dissolved Oxygen", "mg/L", mustRange(0, 6, 12, 15)},
	{KindTemperature, "Temperature", "°C", mustRange(0, 15, 25, 50)},
	{KindConductivity, "Electrical Conductivity", "μS/cm", mustRange(0, 200, 800, 2000)},
}

// Lookup returns the definition for a kind
func Lookup(k Kind) (Definition, bool) {
	for _, d := range definitions {
		if d.Kind == k {
			return d, true
		}
	}
	return Definition{}, false
}

// Parameter is the classified view of one quantity of a reading
type Parameter struct {
	ID          Kind      `json:"id"`
	Name        string    `json:"name"`
	Value       float64   `json:"value"`
	Unit        string    `json:"unit"`
	Range       Range     `json:"range"`
	Status      Status    `json:"status"`
	LastUpdated time.Time `json:"last_updated"`
}

// Parameters projects a reading onto the six classified parameters
func Parameters(r Reading) []Parameter {
	params := make([]Parameter, 0, len(definitions))
	for _, d := range definitions {
		v := r.Value(d.Kind)
		params = append(params, Parameter{
			ID:          d.Kind,
			Name:        d.Name,
			Value:       v,
			Unit:        d.Unit,
			Range:       d.Range,
			Status:      Classify(v, d.Range),
			LastUpdated: r.Timestamp,
		})
	}
	return params
}
