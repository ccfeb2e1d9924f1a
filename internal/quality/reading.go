package quality

import "time"

// Reading is one synthetic sensor sample. It is never modified after Generate returns it.
type Reading struct {
	Timestamp       time.Time `json:"timestamp"`
	PH              float64   `json:"ph"`
	TDS             float64   `json:"tds"`
	Turbidity       float64   `json:"turbidity"`
	DissolvedOxygen float64   `json:"dissolved_oxygen"`
	Temperature     float64   `json:"temperature"`
	Conductivity    float64   `json:"conductivity"`
	ORP             float64   `json:"orp"` // mV, not part of the index
	WQI             float64   `json:"wqi"`
}

// Value returns the raw measurement for the given kind
func (r Reading) Value(k Kind) float64 {
	switch k {
	case KindPH:
		return r.PH
	case KindTDS:
		return r.TDS
	case KindTurbidity:
		return r.Turbidity
	case KindDissolvedOxygen:
		return r.DissolvedOxygen
	case KindTemperature:
		return r.Temperature
	case KindConductivity:
		return r.Conductivity
	}
	return 0
}
