package protocol

import (
	"encoding/json"
	"time"

	"github.com/smukkama/water-monitor/internal/alarming"
	"github.com/smukkama/water-monitor/internal/quality"
)

// ReadingMessage is the event format for published readings
type ReadingMessage struct {
	StationID string          `json:"station_id"`
	Tick      uint64          `json:"tick"`
	Reading   quality.Reading `json:"reading"`
}

// AlertNotification is the event format for published alerts
type AlertNotification struct {
	StationID   string         `json:"station_id"`
	ParameterID quality.Kind   `json:"parameter_id"`
	Value       float64        `json:"value"`
	Unit        string         `json:"unit"`
	Alert       alarming.Alert `json:"alert"`
	RaisedAt    time.Time      `json:"raised_at"`
}

// Key returns the partition key so alerts for one parameter stay ordered
func (a *AlertNotification) Key() string {
	return a.StationID + "-" + string(a.ParameterID)
}

// EncodeReadingMessage encodes a ReadingMessage to JSON
func EncodeReadingMessage(msg *ReadingMessage) ([]byte, error) {
	return json.Marshal(msg)
}

// DecodeReadingMessage decodes JSON to ReadingMessage
func DecodeReadingMessage(data []byte) (*ReadingMessage, error) {
	var msg ReadingMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

// EncodeAlertNotification encodes an AlertNotification to JSON
func EncodeAlertNotification(alert *AlertNotification) ([]byte, error) {
	return json.Marshal(alert)
}

// DecodeAlertNotification decodes JSON to AlertNotification
func DecodeAlertNotification(data []byte) (*AlertNotification, error) {
	var alert AlertNotification
	if err := json.Unmarshal(data, &alert); err != nil {
		return nil, err
	}
	return &alert, nil
}
