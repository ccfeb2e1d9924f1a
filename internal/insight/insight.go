package insight

import "time"

// Kind classifies an insight
type Kind string

const (
	KindContamination  Kind = "contamination"
	KindPrediction     Kind = "prediction"
	KindRecommendation Kind = "recommendation"
)

// Fixed confidence values per insight source
const (
	AnalysisConfidence   = 0.85
	PredictionConfidence = 0.8
	FallbackConfidence   = 0.7
)

// Insight is a narrative note about the water quality
type Insight struct {
	Type        Kind      `json:"type"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Confidence  float64   `json:"confidence"`
	Timestamp   time.Time `json:"timestamp"`
}
