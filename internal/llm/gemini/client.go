package gemini

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/etzlertech/rancheye-02-analysis/internal/llm"
	"github.com/etzlertech/rancheye-02-analysis/internal/shared/telemetry"
)

const (
	defaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"
	defaultTimeout = 60 * time.Second
	maxErrorBody   = 2048
)

// Adapter implements llm.Adapter over the Gemini generateContent REST API.
type Adapter struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

// Option customizes an Adapter.
type Option func(*Adapter)

// WithBaseURL overrides the API root.
func WithBaseURL(url string) Option {
	return func(a *Adapter) {
		a.baseURL = strings.TrimRight(url, "/")
	}
}

// WithHTTPClient swaps the HTTP client, including its timeout.
func WithHTTPClient(c *http.Client) Option {
	return func(a *Adapter) {
		if c != nil {
			a.httpClient = c
		}
	}
}

// New constructs a Gemini adapter. GEMINI_TIMEOUT_SECONDS overrides the default call timeout.
func New(apiKey string, opts ...Option) (*Adapter, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY is required")
	}
	timeout := defaultTimeout
	if raw := strings.TrimSpace(os.Getenv("GEMINI_TIMEOUT_SECONDS")); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			timeout = time.Duration(parsed) * time.Second
		}
	}
	a := &Adapter{
		apiKey:     apiKey,
		baseURL:    defaultBaseURL,
		httpClient: &http.Client{Timeout: timeout},
	}
	for _, opt := range opts {
		opt(a)
	}
	return a, nil
}

// Provider implements llm.Adapter.
func (a *Adapter) Provider() llm.Provider {
	return llm.ProviderGemini
}

type inlineData struct {
	MimeType string `json:"mime_type"`
	Data     string `json:"data"`
}

type part struct {
	Text       string      `json:"text,omitempty"`
	InlineData *inlineData `json:"inline_data,omitempty"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type generationConfig struct {
	Temperature      float32 `json:"temperature"`
	MaxOutputTokens  int     `json:"maxOutputTokens"`
	ResponseMimeType string  `json:"responseMimeType"`
}

type generateRequest struct {
	Contents         []content        `json:"contents"`
	GenerationConfig generationConfig `json:"generationConfig"`
}

type generateResponse struct {
	Candidates []struct {
		Content      content `json:"content"`
		FinishReason string  `json:"finishReason"`
	} `json:"candidates"`
	PromptFeedback *struct {
		BlockReason string `json:"blockReason"`
	} `json:"promptFeedback"`
	UsageMetadata *struct {
		PromptTokenCount     *int `json:"promptTokenCount"`
		CandidatesTokenCount *int `json:"candidatesTokenCount"`
		TotalTokenCount      int  `json:"totalTokenCount"`
	} `json:"usageMetadata"`
}

// Analyze sends the prompt and inline image and parses the JSON answer.
func (a *Adapter) Analyze(ctx context.Context, req llm.Request) llm.Result {
	start := time.Now()
	if strings.TrimSpace(req.Model) == "" {
		return llm.Failed(llm.ProviderGemini, req.Model, errors.New("gemini model is required"), 0)
	}

	maxTokens := req.MaxOutputTokens
	if maxTokens <= 0 {
		maxTokens = llm.ProviderGemini.MaxOutputTokens()
	}
	payload := generateRequest{
		Contents: []content{{
			Role: "user",
			Parts: []part{
				{Text: req.Prompt},
				{InlineData: &inlineData{MimeType: "image/jpeg", Data: base64.StdEncoding.EncodeToString(req.Image)}},
			},
		}},
		GenerationConfig: generationConfig{
			Temperature:      req.Temperature,
			MaxOutputTokens:  maxTokens,
			ResponseMimeType: "application/json",
		},
	}

	raw, usage, err := a.generate(ctx, req.Model, payload)
	latency := time.Since(start)
	if err != nil {
		return llm.Failed(llm.ProviderGemini, req.Model, err, latency)
	}
	telemetry.Debug("llm.response", map[string]any{
		"provider":     llm.ProviderGemini,
		"model":        req.Model,
		"total_tokens": usage.TotalTokens,
		"latency_ms":   latency.Milliseconds(),
	})
	return llm.FromResponse(llm.ProviderGemini, req.Model, raw, usage, latency)
}

func (a *Adapter) generate(ctx context.Context, model string, payload generateRequest) (string, llm.Usage, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return "", llm.Usage{}, fmt.Errorf("marshal gemini request: %w", err)
	}
	url := fmt.Sprintf("%s/models/%s:generateContent", a.baseURL, model)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", llm.Usage{}, fmt.Errorf("build gemini request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-goog-api-key", a.apiKey)

	resp, err := a.httpClient.Do(httpReq)
	if err != nil {
		var netErr interface{ Timeout() bool }
		if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
			return "", llm.Usage{}, fmt.Errorf("gemini request timeout: %w", err)
		}
		return "", llm.Usage{}, fmt.Errorf("gemini request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", llm.Usage{}, fmt.Errorf("read gemini response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet := strings.TrimSpace(string(respBody))
		if len(snippet) > maxErrorBody {
			snippet = snippet[:maxErrorBody]
		}
		return "", llm.Usage{}, fmt.Errorf("gemini status %d: %s", resp.StatusCode, snippet)
	}

	var parsed generateResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return "", llm.Usage{}, fmt.Errorf("decode gemini response: %w", err)
	}
	if parsed.PromptFeedback != nil && parsed.PromptFeedback.BlockReason != "" {
		return "", llm.Usage{}, fmt.Errorf("gemini prompt blocked: %s", parsed.PromptFeedback.BlockReason)
	}
	if len(parsed.Candidates) == 0 {
		return "", llm.Usage{}, errors.New("gemini response missing candidates")
	}

	var sb strings.Builder
	for _, p := range parsed.Candidates[0].Content.Parts {
		sb.WriteString(p.Text)
	}
	text := strings.TrimSpace(sb.String())
	if text == "" {
		return "", llm.Usage{}, fmt.Errorf("gemini response empty content (%s)", parsed.Candidates[0].FinishReason)
	}

	var usage llm.Usage
	if meta := parsed.UsageMetadata; meta != nil {
		usage = llm.Usage{
			InputTokens:  meta.PromptTokenCount,
			OutputTokens: meta.CandidatesTokenCount,
			TotalTokens:  meta.TotalTokenCount,
		}
	}
	return text, usage, nil
}

var _ llm.Adapter = (*Adapter)(nil)
