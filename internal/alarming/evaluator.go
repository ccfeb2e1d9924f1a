package alarming

import (
	"fmt"
	"strings"
	"time"

	"github.com/smukkama/water-monitor/internal/quality"
)

// Derive evaluates one classified parameter. Safe parameters raise nothing;
// moderate and hazardous parameters raise exactly one alert.
func Derive(p quality.Parameter, now time.Time) (Alert, bool) {
	var (
		alertType Type
		severity  Severity
		phrase    string
	)

	switch p.Status {
	case quality.StatusHazardous:
		alertType, severity, phrase = TypeDanger, SeverityHigh, "is at critical levels"
	case quality.StatusModerate:
		alertType, severity, phrase = TypeWarning, SeverityMedium, "is outside optimal range"
	default:
		return Alert{}, false
	}

	// IDs only need to be unique within a tick
	return Alert{
		ID:        fmt.Sprintf("alert-%s-%d", p.ID, now.UnixMilli()),
		Type:      alertType,
		Parameter: p.Name,
		Message:   strings.TrimSpace(fmt.Sprintf("%s %s: %.2f %s", p.Name, phrase, p.Value, p.Unit)),
		Timestamp: now,
		Severity:  severity,
	}, true
}

// DeriveAll evaluates parameters in order and returns the alerts raised
func DeriveAll(params []quality.Parameter, now time.Time) []Alert {
	var alerts []Alert
	for _, p := range params {
		if a, ok := Derive(p, now); ok {
			alerts = append(alerts, a)
		}
	}
	return alerts
}
