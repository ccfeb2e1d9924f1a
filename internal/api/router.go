package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewRouter wires the API routes
func NewRouter(h *Handler) *chi.Mux {
	r := chi.NewRouter()
	r.Use(RequestID)
	r.Use(Logging)
	r.Use(Recovery)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	})

	r.Route("/api", func(r chi.Router) {
		r.Get("/reading", h.GetReading)
		r.Get("/history", h.GetHistory)
		r.Get("/history/summary", h.GetHistorySummary)
		r.Get("/parameters", h.GetParameters)

		r.Get("/alerts", h.GetAlerts)
		r.Delete("/alerts", h.ClearAlerts)

		r.Get("/insights", h.GetInsights)
		r.Post("/insights/analyze", h.Analyze)
		r.Post("/insights/predict", h.Predict)

		r.Get("/status", h.GetStatus)
	})

	r.Get("/ws", h.ServeWS)
	r.Get("/healthz", h.Healthz)
	r.Handle("/metrics", promhttp.Handler())

	return r
}
