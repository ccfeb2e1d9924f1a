package notification

import (
	"bytes"
	"errors"
	"fmt"
	"net/smtp"
	"text/template"
	"time"

	"github.com/rs/zerolog"

	"github.com/smukkama/water-monitor/internal/alarming"
	"github.com/smukkama/water-monitor/internal/logger"
	"github.com/smukkama/water-monitor/internal/metrics"
	"github.com/smukkama/water-monitor/internal/protocol"
	"github.com/smukkama/water-monitor/internal/quality"
	"github.com/smukkama/water-monitor/pkg/config"
)

// ErrNotConfigured is returned by TestConnection when no SMTP account is set
var ErrNotConfigured = errors.New("SMTP not configured")

var alertTemplate = template.Must(template.New("alert").Parse(`
Water Quality Alert
===================

Station: {{.StationID}}
Parameter: {{.Alert.Parameter}}
Severity: {{.Alert.Severity}}
Current Value: {{printf "%.2f" .Value}} {{.Unit}}
{{- with .Optimal}}
Optimal Range: {{printf "%.2f" .Min}} - {{printf "%.2f" .Max}} {{$.Unit}}
{{- end}}
Raised At: {{.RaisedAt.Format "2006-01-02 15:04:05 MST"}}
Alert ID: {{.Alert.ID}}
{{- if .WQI}}
Station WQI: {{printf "%.0f" .WQI}}
{{- end}}

{{.Alert.Message}}

Please take appropriate action.

---
Water Monitor Notification System
`))

// alertView is the data handed to the template
type alertView struct {
	*protocol.AlertNotification
	WQI     float64
	Optimal *quality.Bounds
}

type sendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// EmailNotifier sends alert emails at or above a minimum severity
type EmailNotifier struct {
	config      *config.SMTPConfig
	minSeverity alarming.Severity
	send        sendFunc
	now         func() time.Time
	log         zerolog.Logger
}

// NewEmailNotifier creates a new email notifier
func NewEmailNotifier(cfg *config.SMTPConfig, minSeverity alarming.Severity) *EmailNotifier {
	return &EmailNotifier{
		config:      cfg,
		minSeverity: minSeverity,
		send:        smtp.SendMail,
		now:         time.Now,
		log:         logger.WithComponent("notifier"),
	}
}

// ShouldNotify reports whether an alert passes the severity filter
func (e *EmailNotifier) ShouldNotify(n *protocol.AlertNotification) bool {
	return n.Alert.Severity.AtLeast(e.minSeverity)
}

// SendAlert emails one alert. wqi is the station's latest index, zero when unknown.
// Alerts below the minimum severity are skipped without error.
func (e *EmailNotifier) SendAlert(n *protocol.AlertNotification, wqi float64) error {
	if !e.ShouldNotify(n) {
		metrics.NotificationsTotal.WithLabelValues("filtered").Inc()
		return nil
	}

	subject := Subject(n)
	body, err := RenderAlert(n, wqi)
	if err != nil {
		metrics.NotificationsTotal.WithLabelValues("error").Inc()
		return fmt.Errorf("failed to render email template: %w", err)
	}

	if err := e.sendEmail(subject, body); err != nil {
		metrics.NotificationsTotal.WithLabelValues("error").Inc()
		return err
	}
	return nil
}

// Subject builds the email subject line
func Subject(n *protocol.AlertNotification) string {
	marker := "⚠️"
	if n.Alert.Type == alarming.TypeDanger {
		marker = "🚨"
	}
	return fmt.Sprintf("%s Water Quality %s - %s, %s", marker, n.Alert.Severity, n.Alert.Parameter, n.StationID)
}

// RenderAlert renders the email body
func RenderAlert(n *protocol.AlertNotification, wqi float64) (string, error) {
	var buf bytes.Buffer
	view := alertView{AlertNotification: n, WQI: wqi}
	if def, ok := quality.Lookup(n.ParameterID); ok {
		view.Optimal = &def.Range.Optimal
	}
	if err := alertTemplate.Execute(&buf, view); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func (e *EmailNotifier) sendEmail(subject, body string) error {
	// Skip sending if SMTP is not configured
	if e.config.Username == "" || e.config.Password == "" {
		e.log.Info().Str("subject", subject).Msg("SMTP not configured, logging email only")
		metrics.NotificationsTotal.WithLabelValues("skipped").Inc()
		return nil
	}

	message := fmt.Sprintf("From: %s\r\n", e.config.From)
	message += fmt.Sprintf("To: %s\r\n", e.config.To)
	message += fmt.Sprintf("Subject: %s\r\n", subject)
	message += fmt.Sprintf("Date: %s\r\n", e.now().Format(time.RFC1123Z))
	message += "Content-Type: text/plain; charset=UTF-8\r\n"
	message += "\r\n"
	message += body

	auth := smtp.PlainAuth("", e.config.Username, e.config.Password, e.config.Host)
	addr := fmt.Sprintf("%s:%d", e.config.Host, e.config.Port)
	if err := e.send(addr, auth, e.config.From, []string{e.config.To}, []byte(message)); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}

	metrics.NotificationsTotal.WithLabelValues("sent").Inc()
	e.log.Info().Str("subject", subject).Msg("email sent")
	return nil
}

// TestConnection checks that the SMTP server accepts connections
func (e *EmailNotifier) TestConnection() error {
	if e.config.Username == "" {
		return ErrNotConfigured
	}

	addr := fmt.Sprintf("%s:%d", e.config.Host, e.config.Port)
	client, err := smtp.Dial(addr)
	if err != nil {
		return fmt.Errorf("failed to connect to SMTP server: %w", err)
	}
	defer client.Close()

	return nil
}
