package database

import (
	"time"

	"github.com/smukkama/water-monitor/internal/protocol"
)

// AlertLog is one archived alert
type AlertLog struct {
	ID          int64
	AlertID     string
	StationID   string
	ParameterID string
	Parameter   string
	AlertType   string
	Severity    string
	Message     string
	Value       float64
	Unit        string
	RaisedAt    time.Time
}

// NewAlertLog flattens a published alert notification into a row
func NewAlertLog(n *protocol.AlertNotification) *AlertLog {
	return &AlertLog{
		AlertID:     n.Alert.ID,
		StationID:   n.StationID,
		ParameterID: string(n.ParameterID),
		Parameter:   n.Alert.Parameter,
		AlertType:   string(n.Alert.Type),
		Severity:    string(n.Alert.Severity),
		Message:     n.Alert.Message,
		Value:       n.Value,
		Unit:        n.Unit,
		RaisedAt:    n.RaisedAt,
	}
}
