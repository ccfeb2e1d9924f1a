package alarming

import "time"

// Type classifies an alert for display
type Type string

const (
	TypeWarning Type = "warning"
	TypeDanger  Type = "danger"
	TypeInfo    Type = "info"
)

// Severity ranks alerts low < medium < high
type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

func (s Severity) rank() int {
	switch s {
	case SeverityLow:
		return 1
	case SeverityMedium:
		return 2
	case SeverityHigh:
		return 3
	}
	return 0
}

// AtLeast reports whether s is as severe as min
func (s Severity) AtLeast(min Severity) bool {
	return s.rank() >= min.rank() && s.rank() > 0
}

// Alert is a threshold breach raised for one parameter
type Alert struct {
	ID        string    `json:"id"`
	Type      Type      `json:"type"`
	Parameter string    `json:"parameter"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
	Severity  Severity  `json:"severity"`
}
