package detect

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/time/rate"
)

// DefaultOllamaURL is used when no verifier endpoint is configured.
const DefaultOllamaURL = "http://localhost:11434"

// maxVerifierResponse caps how much of the model response is read.
const maxVerifierResponse = 10 << 20 // 10 MB

// Verifier is the LLM verification detector. It asks a local Ollama model
// for context-aware PII detections and emits them as verified candidate
// spans (Source = SourceVerifier, Verified = true).
//
// Calls are rate limited with a token bucket so a large document cannot
// saturate the model endpoint.
type Verifier struct {
	baseURL       string
	model         string
	httpClient    *http.Client
	limiter       *rate.Limiter
	minConfidence float64
}

// NewVerifier creates an Ollama-backed verifier. baseURL defaults to
// DefaultOllamaURL; requestsPerMinute <= 0 disables rate limiting.
func NewVerifier(baseURL, model string, requestsPerMinute int, minConfidence float64) *Verifier {
	if baseURL == "" {
		baseURL = DefaultOllamaURL
	}
	limiter := rate.NewLimiter(rate.Inf, 1)
	if requestsPerMinute > 0 {
		limiter = rate.NewLimiter(rate.Limit(float64(requestsPerMinute)/60.0), 1)
	}
	return &Verifier{
		baseURL:       baseURL,
		model:         model,
		httpClient:    &http.Client{Timeout: 60 * time.Second},
		limiter:       limiter,
		minConfidence: minConfidence,
	}
}

// Source returns SourceVerifier.
func (v *Verifier) Source() Source { return SourceVerifier }

type ollamaRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	Stream bool   `json:"stream"`
}

type ollamaResponse struct {
	Response string `json:"response"`
}

type verifierDetection struct {
	Text       string  `json:"text"`
	Kind       string  `json:"kind"`
	Confidence float64 `json:"confidence"`
}

const verifierPromptTemplate = `Analyze the following text for PII (personally identifiable information).
Return ONLY a JSON array of detections. Each item must have:
- "text": the exact text found
- "kind": one of: person, organization, address, email, phone, ssn, credit_card, iban, ip_address
- "confidence": float 0.0-1.0

Text to analyze:
%s

Return ONLY the JSON array, no explanation. Example: [{"text":"John Smith","kind":"person","confidence":0.95}]`

// Detect queries the model for PII in the page text. Every occurrence of a
// confirmed value becomes one verified candidate span. Failures surface as
// errors so the engine can isolate them; the page is never aborted.
func (v *Verifier) Detect(ctx context.Context, page int, text string) ([]CandidateSpan, error) {
	ctx, span := tracer.Start(ctx, "detect.llm_verify")
	defer span.End()

	if err := v.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("verifier rate limit: %w", err)
	}

	detections, err := v.query(ctx, text)
	if err != nil {
		return nil, err
	}

	var candidates []CandidateSpan
	for _, d := range detections {
		if d.Text == "" || d.Confidence < v.minConfidence {
			continue
		}
		// The model reports values, not offsets; map each occurrence in
		// the page text back to a span.
		for from := 0; ; {
			idx := strings.Index(text[from:], d.Text)
			if idx < 0 {
				break
			}
			start := from + idx
			candidates = append(candidates, CandidateSpan{
				Text:       d.Text,
				Kind:       d.Kind,
				Confidence: d.Confidence,
				Start:      start,
				End:        start + len(d.Text),
				Page:       page,
				Source:     SourceVerifier,
				Verified:   true,
			})
			from = start + len(d.Text)
		}
	}

	span.SetAttributes(
		attribute.Int("detect.page", page),
		attribute.Int("detect.candidates", len(candidates)),
	)
	return candidates, nil
}

// query calls the Ollama generate API and parses the detection array out of
// the model's text response.
func (v *Verifier) query(ctx context.Context, text string) ([]verifierDetection, error) {
	reqBody, err := json.Marshal(ollamaRequest{
		Model:  v.model,
		Prompt: fmt.Sprintf(verifierPromptTemplate, text),
		Stream: false,
	})
	if err != nil {
		return nil, fmt.Errorf("encoding verifier request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, v.baseURL+"/api/generate", bytes.NewReader(reqBody))
	if err != nil {
		return nil, fmt.Errorf("creating verifier request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := v.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("calling verifier: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("verifier returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxVerifierResponse))
	if err != nil {
		return nil, fmt.Errorf("reading verifier response: %w", err)
	}

	var or ollamaResponse
	if err := json.Unmarshal(body, &or); err != nil {
		return nil, fmt.Errorf("parsing verifier response: %w", err)
	}

	// Extract the JSON array from the model's free-text response.
	raw := strings.TrimSpace(or.Response)
	start := strings.Index(raw, "[")
	end := strings.LastIndex(raw, "]")
	if start == -1 || end == -1 || end <= start {
		return nil, fmt.Errorf("no JSON array in verifier response")
	}

	var detections []verifierDetection
	if err := json.Unmarshal([]byte(raw[start:end+1]), &detections); err != nil {
		return nil, fmt.Errorf("parsing detections: %w", err)
	}
	return detections, nil
}
