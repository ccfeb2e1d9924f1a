package insight

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"github.com/sony/gobreaker"

	"github.com/smukkama/water-monitor/internal/logger"
	"github.com/smukkama/water-monitor/internal/metrics"
	"github.com/smukkama/water-monitor/internal/quality"
	"github.com/smukkama/water-monitor/pkg/config"
)

// MinPredictionHistory is the history length below which Predict is skipped
const MinPredictionHistory = 5

// Client requests narrative insights from a chat-completion endpoint.
// Failures never reach the caller; a locally computed insight is returned instead.
type Client struct {
	httpClient *http.Client
	url        string
	apiKey     string
	model      string
	breaker    *gobreaker.CircuitBreaker
	clock      func() time.Time
	log        zerolog.Logger
}

// NewClient creates an insight client from configuration
func NewClient(cfg config.InsightConfig) *Client {
	log := logger.WithComponent("insight")
	if cfg.APIKey == "" {
		log.Warn().Msg("INSIGHT_API_KEY is not set, insights will use local fallback")
	}

	failures := cfg.BreakerFailures
	if failures < 1 {
		failures = 1
	}

	return &Client{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		url:        cfg.URL,
		apiKey:     cfg.APIKey,
		model:      cfg.Model,
		breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:    "insight-api",
			Timeout: cfg.BreakerOpenFor,
			ReadyToTrip: func(c gobreaker.Counts) bool {
				return c.ConsecutiveFailures >= uint32(failures)
			},
			OnStateChange: func(name string, from, to gobreaker.State) {
				log.Warn().
					Str("breaker", name).
					Str("from", from.String()).
					Str("to", to.String()).
					Msg("circuit breaker state changed")
			},
		}),
		clock: time.Now,
		log:   log,
	}
}

// Analyze asks for an assessment of the current reading
func (c *Client) Analyze(ctx context.Context, current quality.Reading, history []quality.Reading) Insight {
	start := time.Now()
	defer func() {
		metrics.InsightDuration.WithLabelValues("analysis").Observe(time.Since(start).Seconds())
	}()

	text, err := c.complete(ctx, analysisRequest(c.model, current, len(history)))
	if err != nil {
		c.log.Warn().Err(err).Msg("analysis request failed, using fallback")
		metrics.InsightRequestsTotal.WithLabelValues("analysis", "fallback").Inc()
		return c.fallback(current)
	}
	if text == "" {
		text = analysisPlaceholder
	}

	metrics.InsightRequestsTotal.WithLabelValues("analysis", "success").Inc()
	return Insight{
		Type:        KindContamination,
		Title:       "Water Quality Analysis",
		Description: text,
		Confidence:  AnalysisConfidence,
		Timestamp:   c.clock(),
	}
}

// Predict asks for a forecast over recent history. It returns false without
// making a request when fewer than MinPredictionHistory readings exist.
func (c *Client) Predict(ctx context.Context, history []quality.Reading) (Insight, bool) {
	if len(history) < MinPredictionHistory {
		metrics.InsightRequestsTotal.WithLabelValues("prediction", "skipped").Inc()
		return Insight{}, false
	}

	start := time.Now()
	defer func() {
		metrics.InsightDuration.WithLabelValues("prediction").Observe(time.Since(start).Seconds())
	}()

	text, err := c.complete(ctx, predictionRequest(c.model, history))
	if err != nil {
		c.log.Warn().Err(err).Msg("prediction request failed, using fallback")
		metrics.InsightRequestsTotal.WithLabelValues("prediction", "fallback").Inc()
		return c.fallback(history[len(history)-1]), true
	}
	if text == "" {
		text = predictionPlaceholder
	}

	metrics.InsightRequestsTotal.WithLabelValues("prediction", "success").Inc()
	return Insight{
		Type:        KindPrediction,
		Title:       "Water Quality Forecast",
		Description: text,
		Confidence:  PredictionConfidence,
		Timestamp:   c.clock(),
	}, true
}

func (c *Client) fallback(r quality.Reading) Insight {
	return Insight{
		Type:        KindRecommendation,
		Title:       "System Analysis",
		Description: fallbackDescription(r),
		Confidence:  FallbackConfidence,
		Timestamp:   c.clock(),
	}
}

// complete performs one completion call through the circuit breaker
func (c *Client) complete(ctx context.Context, req completionRequest) (string, error) {
	result, err := c.breaker.Execute(func() (interface{}, error) {
		return c.post(ctx, req)
	})
	if err != nil {
		return "", err
	}
	return result.(string), nil
}

func (c *Client) post(ctx context.Context, req completionRequest) (string, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("failed to encode request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to build request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("unexpected status %d: %s", resp.StatusCode, bytes.TrimSpace(snippet))
	}

	var decoded completionResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}

	return decoded.content(), nil
}
