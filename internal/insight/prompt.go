package insight

import (
	"fmt"
	"strings"

	"github.com/smukkama/water-monitor/internal/quality"
)

const (
	analysisSystemPrompt   = "You are a water quality expert AI. Provide concise, actionable insights about water quality data. Focus on health implications, contamination risks, and practical recommendations."
	predictionSystemPrompt = "You are a predictive water quality AI. Analyze trends and provide forecasts with actionable recommendations."

	analysisPlaceholder   = "Unable to analyze water quality data."
	predictionPlaceholder = "Unable to generate prediction."

	// predictionWindow is how many recent readings feed a forecast
	predictionWindow = 10
)

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// completionRequest is the chat-completion request body. Optional sampling
// fields are pointers so the forecast request omits them.
type completionRequest struct {
	Model                  string    `json:"model"`
	Messages               []message `json:"messages"`
	Temperature            float64   `json:"temperature"`
	MaxTokens              int       `json:"max_tokens"`
	TopP                   *float64  `json:"top_p,omitempty"`
	ReturnImages           *bool     `json:"return_images,omitempty"`
	ReturnRelatedQuestions *bool     `json:"return_related_questions,omitempty"`
	FrequencyPenalty       *float64  `json:"frequency_penalty,omitempty"`
	PresencePenalty        *float64  `json:"presence_penalty,omitempty"`
}

type completionResponse struct {
	Choices []struct {
		Message *struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// content returns the first choice's text, or "" when absent
func (r completionResponse) content() string {
	if len(r.Choices) == 0 || r.Choices[0].Message == nil {
		return ""
	}
	return r.Choices[0].Message.Content
}

func ptr[T any](v T) *T { return &v }

func analysisRequest(model string, current quality.Reading, historyLen int) completionRequest {
	return completionRequest{
		Model: model,
		Messages: []message{
			{Role: "system", Content: analysisSystemPrompt},
			{Role: "user", Content: analysisPrompt(current, historyLen)},
		},
		Temperature:            0.2,
		MaxTokens:              1000,
		TopP:                   ptr(0.9),
		ReturnImages:           ptr(false),
		ReturnRelatedQuestions: ptr(false),
		FrequencyPenalty:       ptr(1.0),
		PresencePenalty:        ptr(0.0),
	}
}

func predictionRequest(model string, history []quality.Reading) completionRequest {
	return completionRequest{
		Model: model,
		Messages: []message{
			{Role: "system", Content: predictionSystemPrompt},
			{Role: "user", Content: predictionPrompt(history)},
		},
		Temperature: 0.3,
		MaxTokens:   800,
	}
}

func analysisPrompt(r quality.Reading, historyLen int) string {
	var b strings.Builder
	b.WriteString("Analyze this water quality data and provide insights:\n\n")
	b.WriteString("Current Parameters:\n")
	fmt.Fprintf(&b, "- pH: %.2f\n", r.PH)
	fmt.Fprintf(&b, "- TDS: %.2f mg/L\n", r.TDS)
	fmt.Fprintf(&b, "- Turbidity: %.2f NTU\n", r.Turbidity)
	fmt.Fprintf(&b, "- Dissolved Oxygen: %.2f mg/L\n", r.DissolvedOxygen)
	fmt.Fprintf(&b, "- Temperature: %.2f °C\n", r.Temperature)
	fmt.Fprintf(&b, "- Conductivity: %.2f μS/cm\n", r.Conductivity)
	fmt.Fprintf(&b, "- Water Quality Index: %.2f\n\n", r.WQI)
	fmt.Fprintf(&b, "Historical trend: %d readings over time\n\n", historyLen)
	b.WriteString("Please provide:\n")
	b.WriteString("1. Overall water quality assessment\n")
	b.WriteString("2. Any contamination risks\n")
	b.WriteString("3. Recommendations for improvement\n")
	b.WriteString("4. Predicted trends based on current values\n\n")
	b.WriteString("Be precise and focus on actionable insights for water management.")
	return b.String()
}

func predictionPrompt(history []quality.Reading) string {
	recent := history
	if len(recent) > predictionWindow {
		recent = recent[len(recent)-predictionWindow:]
	}

	wqi := make([]string, len(recent))
	ph := make([]string, len(recent))
	tds := make([]string, len(recent))
	for i, r := range recent {
		wqi[i] = fmt.Sprintf("%.1f", r.WQI)
		ph[i] = fmt.Sprintf("%.2f", r.PH)
		tds[i] = fmt.Sprintf("%.1f", r.TDS)
	}

	var b strings.Builder
	b.WriteString("Based on these recent water quality trends, predict future water quality:\n\n")
	fmt.Fprintf(&b, "Recent WQI values: %s\n", strings.Join(wqi, ", "))
	fmt.Fprintf(&b, "Recent pH values: %s\n", strings.Join(ph, ", "))
	fmt.Fprintf(&b, "Recent TDS values: %s\n\n", strings.Join(tds, ", "))
	b.WriteString("Provide:\n")
	b.WriteString("1. Short-term prediction (next 24 hours)\n")
	b.WriteString("2. Potential risks to watch for\n")
	b.WriteString("3. Preventive measures\n\n")
	b.WriteString("Be specific and actionable.")
	return b.String()
}

// fallbackDescription summarises a reading without the remote model
func fallbackDescription(r quality.Reading) string {
	verdict := "Water quality needs attention."
	if r.WQI > 70 {
		verdict = "Water quality is good."
	}
	return fmt.Sprintf("Current water quality analysis: pH %.2f, WQI %.2f. %s", r.PH, r.WQI, verdict)
}
