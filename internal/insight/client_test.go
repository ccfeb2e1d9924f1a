package insight

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/smukkama/water-monitor/internal/quality"
	"github.com/smukkama/water-monitor/pkg/config"
)

func newTestClient(url string) *Client {
	return NewClient(config.InsightConfig{
		URL:             url,
		APIKey:          "test-key",
		Model:           "test-model",
		BreakerFailures: 100,
		BreakerOpenFor:  time.Minute,
	})
}

func goodReading() quality.Reading {
	return quality.Reading{
		Timestamp:       time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
		PH:              7.0,
		TDS:             250,
		Turbidity:       0.5,
		DissolvedOxygen: 7,
		Temperature:     22,
		Conductivity:    500,
		WQI:             85,
	}
}

func historyOf(n int) []quality.Reading {
	out := make([]quality.Reading, n)
	for i := range out {
		r := goodReading()
		r.WQI = float64(50 + i)
		r.PH = 6.0 + float64(i)/10
		r.TDS = 100 + float64(i)
		out[i] = r
	}
	return out
}

func completionHandler(t *testing.T, content string, captured *map[string]interface{}) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("Expected POST, got %s", r.Method)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("Unexpected Authorization header: %q", got)
		}
		if captured != nil {
			if err := json.NewDecoder(r.Body).Decode(captured); err != nil {
				t.Errorf("Failed to decode request: %v", err)
			}
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"choices": []map[string]interface{}{
				{"message": map[string]string{"content": content}},
			},
		})
	}
}

func TestAnalyze_Success(t *testing.T) {
	var body map[string]interface{}
	srv := httptest.NewServer(completionHandler(t, "Looks clean.", &body))
	defer srv.Close()

	c := newTestClient(srv.URL)
	in := c.Analyze(context.Background(), goodReading(), historyOf(3))

	if in.Type != KindContamination {
		t.Errorf("Expected contamination, got %s", in.Type)
	}
	if in.Title != "Water Quality Analysis" {
		t.Errorf("Unexpected title: %s", in.Title)
	}
	if in.Description != "Looks clean." {
		t.Errorf("Expected verbatim content, got %q", in.Description)
	}
	if in.Confidence != 0.85 {
		t.Errorf("Expected confidence 0.85, got %f", in.Confidence)
	}

	if body["model"] != "test-model" {
		t.Errorf("Unexpected model: %v", body["model"])
	}
	if body["temperature"] != 0.2 || body["top_p"] != 0.9 || body["max_tokens"] != 1000.0 {
		t.Errorf("Unexpected sampling parameters: %v", body)
	}
	if body["frequency_penalty"] != 1.0 || body["presence_penalty"] != 0.0 {
		t.Errorf("Unexpected penalties: %v", body)
	}
	if body["return_images"] != false || body["return_related_questions"] != false {
		t.Errorf("Unexpected return flags: %v", body)
	}

	messages := body["messages"].([]interface{})
	if len(messages) != 2 {
		t.Fatalf("Expected 2 messages, got %d", len(messages))
	}
	user := messages[1].(map[string]interface{})["content"].(string)
	for _, want := range []string{"- pH: 7.00", "- TDS: 250.00 mg/L", "- Water Quality Index: 85.00", "Historical trend: 3 readings over time"} {
		if !strings.Contains(user, want) {
			t.Errorf("Prompt missing %q:\n%s", want, user)
		}
	}
}

func TestAnalyze_MissingContentUsesPlaceholder(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"choices": []}`))
	}))
	defer srv.Close()

	in := newTestClient(srv.URL).Analyze(context.Background(), goodReading(), nil)

	if in.Description != "Unable to analyze water quality data." {
		t.Errorf("Expected placeholder, got %q", in.Description)
	}
	if in.Type != KindContamination {
		t.Errorf("Placeholder should still be an analysis, got %s", in.Type)
	}
}

func TestAnalyze_FailuresUseFallback(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{"server error", func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "boom", http.StatusInternalServerError)
		}},
		{"unauthorized", func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "bad key", http.StatusUnauthorized)
		}},
		{"malformed body", func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{not json`))
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()

			in := newTestClient(srv.URL).Analyze(context.Background(), goodReading(), nil)

			if in.Type != KindRecommendation {
				t.Errorf("Expected recommendation, got %s", in.Type)
			}
			if in.Title != "System Analysis" {
				t.Errorf("Unexpected title: %s", in.Title)
			}
			if in.Confidence != 0.7 {
				t.Errorf("Expected confidence 0.7, got %f", in.Confidence)
			}
			want := "Current water quality analysis: pH 7.00, WQI 85.00. Water quality is good."
			if in.Description != want {
				t.Errorf("Expected %q, got %q", want, in.Description)
			}
		})
	}
}

func TestAnalyze_TransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	r := goodReading()
	r.WQI = 70
	in := newTestClient(url).Analyze(context.Background(), r, nil)

	want := "Current water quality analysis: pH 7.00, WQI 70.00. Water quality needs attention."
	if in.Description != want {
		t.Errorf("Expected %q, got %q", want, in.Description)
	}
}

func TestPredict_SkipsShortHistory(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
	}))
	defer srv.Close()

	_, ok := newTestClient(srv.URL).Predict(context.Background(), historyOf(4))

	if ok {
		t.Error("Expected prediction to be skipped")
	}
	if hits != 0 {
		t.Errorf("Expected no request, got %d", hits)
	}
}

func TestPredict_UsesLastTenReadings(t *testing.T) {
	var body map[string]interface{}
	srv := httptest.NewServer(completionHandler(t, "Stable.", &body))
	defer srv.Close()

	in, ok := newTestClient(srv.URL).Predict(context.Background(), historyOf(12))
	if !ok {
		t.Fatal("Expected a prediction")
	}
	if in.Type != KindPrediction || in.Title != "Water Quality Forecast" || in.Confidence != 0.8 {
		t.Errorf("Unexpected prediction: %+v", in)
	}
	if in.Description != "Stable." {
		t.Errorf("Expected verbatim content, got %q", in.Description)
	}

	if body["temperature"] != 0.3 || body["max_tokens"] != 800.0 {
		t.Errorf("Unexpected sampling parameters: %v", body)
	}
	if _, ok := body["top_p"]; ok {
		t.Error("Prediction request should not set top_p")
	}

	user := body["messages"].([]interface{})[1].(map[string]interface{})["content"].(string)
	wantWQI := "Recent WQI values: 52.0, 53.0, 54.0, 55.0, 56.0, 57.0, 58.0, 59.0, 60.0, 61.0\n"
	if !strings.Contains(user, wantWQI) {
		t.Errorf("Prompt missing %q:\n%s", wantWQI, user)
	}
	if !strings.Contains(user, "Recent pH values: 6.20, 6.30") {
		t.Errorf("Prompt missing pH series:\n%s", user)
	}
	if !strings.Contains(user, "Recent TDS values: 102.0, 103.0") {
		t.Errorf("Prompt missing TDS series:\n%s", user)
	}
}

func TestPredict_FallbackFromNewestReading(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	history := historyOf(6)
	in, ok := newTestClient(srv.URL).Predict(context.Background(), history)
	if !ok {
		t.Fatal("Expected a fallback insight")
	}

	want := "Current water quality analysis: pH 6.50, WQI 55.00. Water quality needs attention."
	if in.Type != KindRecommendation || in.Description != want {
		t.Errorf("Unexpected fallback: %+v", in)
	}
}

func TestClient_BreakerOpensAfterFailures(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := NewClient(config.InsightConfig{
		URL:             srv.URL,
		Model:           "test-model",
		BreakerFailures: 2,
		BreakerOpenFor:  time.Minute,
	})

	for i := 0; i < 4; i++ {
		in := c.Analyze(context.Background(), goodReading(), nil)
		if in.Type != KindRecommendation {
			t.Fatalf("Expected fallback on call %d, got %s", i, in.Type)
		}
	}

	if got := atomic.LoadInt32(&hits); got != 2 {
		t.Errorf("Expected open breaker to stop requests after 2 failures, got %d hits", got)
	}
}
