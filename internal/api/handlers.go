package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/smukkama/water-monitor/internal/aggregation"
	"github.com/smukkama/water-monitor/internal/insight"
	"github.com/smukkama/water-monitor/internal/logger"
	"github.com/smukkama/water-monitor/internal/monitor"
	"github.com/smukkama/water-monitor/internal/quality"
)

// healthTimeout bounds dependency checks in /healthz
const healthTimeout = 2 * time.Second

// Analyzer produces insights from readings. *insight.Client satisfies it.
type Analyzer interface {
	Analyze(ctx context.Context, current quality.Reading, history []quality.Reading) insight.Insight
	Predict(ctx context.Context, history []quality.Reading) (insight.Insight, bool)
}

// TickSource reports whether readings are flowing. *monitor.Runner satisfies it.
type TickSource interface {
	Running() bool
	StartedAt() time.Time
}

// Stream serves the websocket endpoint. *websocket.Hub satisfies it.
type Stream interface {
	ServeWS(w http.ResponseWriter, r *http.Request)
	Count() int
}

// Pinger checks an optional dependency
type Pinger interface {
	Ping(ctx context.Context) error
}

// Handler serves the monitoring API
type Handler struct {
	engine   *monitor.Engine
	analyzer Analyzer
	insights *insight.Store
	ticks    TickSource
	stream   Stream
	cache    Pinger
	now      func() time.Time
	log      zerolog.Logger
}

// NewHandler creates the API handler. cache may be nil when Redis is disabled.
func NewHandler(engine *monitor.Engine, analyzer Analyzer, insights *insight.Store, ticks TickSource, stream Stream, cache Pinger) *Handler {
	return &Handler{
		engine:   engine,
		analyzer: analyzer,
		insights: insights,
		ticks:    ticks,
		stream:   stream,
		cache:    cache,
		now:      time.Now,
		log:      logger.WithComponent("api"),
	}
}

type insightsResponse struct {
	Insights []insight.Insight `json:"insights"`
	Loading  bool              `json:"loading"`
}

// StatusResponse describes the monitor's liveness
type StatusResponse struct {
	Connected     bool      `json:"connected"`
	Ticks         uint64    `json:"ticks"`
	StartedAt     time.Time `json:"started_at"`
	UptimeSeconds float64   `json:"uptime_seconds"`
	WSClients     int       `json:"ws_clients"`
}

type healthResponse struct {
	Status string `json:"status"`
	Redis  string `json:"redis,omitempty"`
}

func (h *Handler) GetReading(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.engine.Current())
}

func (h *Handler) GetHistory(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.engine.History())
}

func (h *Handler) GetHistorySummary(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, aggregation.Summarize(h.engine.History()))
}

func (h *Handler) GetParameters(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.engine.Parameters())
}

func (h *Handler) GetAlerts(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.engine.Alerts())
}

func (h *Handler) ClearAlerts(w http.ResponseWriter, r *http.Request) {
	h.engine.ClearAlerts()
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) GetInsights(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, insightsResponse{
		Insights: h.insights.List(),
		Loading:  h.insights.Loading(),
	})
}

// Analyze runs an analysis over the current reading and history. The
// upstream call is not tied to the client connection: a late result is still
// stored and broadcast.
func (h *Handler) Analyze(w http.ResponseWriter, r *http.Request) {
	ctx := context.WithoutCancel(r.Context())
	current, history := h.engine.Current(), h.engine.History()

	in, _ := h.insights.Track(func() (insight.Insight, bool) {
		return h.analyzer.Analyze(ctx, current, history), true
	})
	writeJSON(w, http.StatusOK, in)
}

// Predict forecasts from history; 204 when there is too little of it
func (h *Handler) Predict(w http.ResponseWriter, r *http.Request) {
	ctx := context.WithoutCancel(r.Context())
	history := h.engine.History()

	in, ok := h.insights.Track(func() (insight.Insight, bool) {
		return h.analyzer.Predict(ctx, history)
	})
	if !ok {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSON(w, http.StatusOK, in)
}

func (h *Handler) GetStatus(w http.ResponseWriter, r *http.Request) {
	resp := StatusResponse{
		Connected: h.ticks.Running(),
		Ticks:     h.engine.Ticks(),
		StartedAt: h.ticks.StartedAt(),
		WSClients: h.stream.Count(),
	}
	if !resp.StartedAt.IsZero() {
		resp.UptimeSeconds = h.now().Sub(resp.StartedAt).Seconds()
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) Healthz(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{Status: "ok"}
	status := http.StatusOK

	if h.cache != nil {
		ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
		defer cancel()

		if err := h.cache.Ping(ctx); err != nil {
			h.log.Warn().Err(err).Msg("redis health check failed")
			resp.Status = "degraded"
			resp.Redis = "down"
			status = http.StatusServiceUnavailable
		} else {
			resp.Redis = "ok"
		}
	}

	writeJSON(w, status, resp)
}

func (h *Handler) ServeWS(w http.ResponseWriter, r *http.Request) {
	h.stream.ServeWS(w, r)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Logger.Error().Err(err).Msg("failed to encode response")
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
