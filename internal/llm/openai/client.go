package openai

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	goopenai "github.com/sashabaranov/go-openai"

	"github.com/etzlertech/rancheye-02-analysis/internal/llm"
	"github.com/etzlertech/rancheye-02-analysis/internal/shared/telemetry"
)

const systemPrompt = "You are an AI assistant analyzing ranch camera images. Always respond with valid JSON."

const defaultTimeout = 60 * time.Second

// Adapter implements llm.Adapter using OpenAI chat completions with image input.
type Adapter struct {
	client  *goopenai.Client
	timeout time.Duration
}

// Option customizes an Adapter.
type Option func(*goopenai.ClientConfig, *Adapter)

// WithBaseURL points the client at a different API root (tests, proxies).
func WithBaseURL(url string) Option {
	return func(cfg *goopenai.ClientConfig, _ *Adapter) {
		cfg.BaseURL = strings.TrimRight(url, "/")
	}
}

// WithTimeout bounds each Analyze call.
func WithTimeout(d time.Duration) Option {
	return func(_ *goopenai.ClientConfig, a *Adapter) {
		if d > 0 {
			a.timeout = d
		}
	}
}

// WithHTTPClient swaps the transport.
func WithHTTPClient(c *http.Client) Option {
	return func(cfg *goopenai.ClientConfig, _ *Adapter) {
		cfg.HTTPClient = c
	}
}

// New constructs an OpenAI adapter. OPENAI_TIMEOUT_SECONDS overrides the default call timeout.
func New(apiKey string, opts ...Option) (*Adapter, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY is required")
	}
	a := &Adapter{timeout: defaultTimeout}
	if raw := strings.TrimSpace(os.Getenv("OPENAI_TIMEOUT_SECONDS")); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			a.timeout = time.Duration(parsed) * time.Second
		}
	}
	cfg := goopenai.DefaultConfig(apiKey)
	for _, opt := range opts {
		opt(&cfg, a)
	}
	a.client = goopenai.NewClientWithConfig(cfg)
	return a, nil
}

// Provider implements llm.Adapter.
func (a *Adapter) Provider() llm.Provider {
	return llm.ProviderOpenAI
}

// Analyze sends the prompt and image and parses the JSON answer.
func (a *Adapter) Analyze(ctx context.Context, req llm.Request) llm.Result {
	start := time.Now()
	if strings.TrimSpace(req.Model) == "" {
		return llm.Failed(llm.ProviderOpenAI, req.Model, errors.New("openai model is required"), 0)
	}

	callCtx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	resp, err := a.client.CreateChatCompletion(callCtx, buildRequest(req))
	latency := time.Since(start)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(callCtx.Err(), context.DeadlineExceeded) {
			err = fmt.Errorf("openai request timeout: %w", err)
		} else {
			err = fmt.Errorf("openai request: %w", err)
		}
		return llm.Failed(llm.ProviderOpenAI, req.Model, err, latency)
	}
	if len(resp.Choices) == 0 {
		return llm.Failed(llm.ProviderOpenAI, req.Model, errors.New("openai response missing choices"), latency)
	}
	choice := resp.Choices[0]
	content := strings.TrimSpace(choice.Message.Content)
	if content == "" {
		reason := string(choice.FinishReason)
		if choice.Message.Refusal != "" {
			reason = "refusal: " + choice.Message.Refusal
		}
		return llm.Failed(llm.ProviderOpenAI, req.Model, fmt.Errorf("openai response empty content (%s)", reason), latency)
	}

	usage := toUsage(resp.Usage)
	telemetry.Debug("llm.response", map[string]any{
		"provider":     llm.ProviderOpenAI,
		"model":        req.Model,
		"total_tokens": usage.TotalTokens,
		"latency_ms":   latency.Milliseconds(),
	})
	return llm.FromResponse(llm.ProviderOpenAI, req.Model, content, usage, latency)
}

func buildRequest(req llm.Request) goopenai.ChatCompletionRequest {
	dataURL := "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(req.Image)
	chatReq := goopenai.ChatCompletionRequest{
		Model: req.Model,
		Messages: []goopenai.ChatCompletionMessage{
			{Role: goopenai.ChatMessageRoleSystem, Content: systemPrompt},
			{
				Role: goopenai.ChatMessageRoleUser,
				MultiContent: []goopenai.ChatMessagePart{
					{Type: goopenai.ChatMessagePartTypeText, Text: req.Prompt},
					{
						Type: goopenai.ChatMessagePartTypeImageURL,
						ImageURL: &goopenai.ChatMessageImageURL{
							URL:    dataURL,
							Detail: goopenai.ImageURLDetailLow,
						},
					},
				},
			},
		},
		ResponseFormat: &goopenai.ChatCompletionResponseFormat{
			Type: goopenai.ChatCompletionResponseFormatTypeJSONObject,
		},
	}
	maxTokens := req.MaxOutputTokens
	if maxTokens <= 0 {
		maxTokens = llm.ProviderOpenAI.MaxOutputTokens()
	}
	// Reasoning models reject temperature and max_tokens.
	if isReasoningModel(req.Model) {
		chatReq.MaxCompletionTokens = maxTokens
	} else {
		chatReq.MaxTokens = maxTokens
		chatReq.Temperature = req.Temperature
	}
	return chatReq
}

func toUsage(u goopenai.Usage) llm.Usage {
	if u.PromptTokens == 0 && u.CompletionTokens == 0 && u.TotalTokens == 0 {
		return llm.Usage{}
	}
	in, out := u.PromptTokens, u.CompletionTokens
	return llm.Usage{InputTokens: &in, OutputTokens: &out, TotalTokens: u.TotalTokens}
}

func isReasoningModel(model string) bool {
	m := strings.ToLower(strings.TrimSpace(model))
	return strings.HasPrefix(m, "gpt-5") || strings.HasPrefix(m, "o1") || strings.HasPrefix(m, "o3") || strings.HasPrefix(m, "o4")
}

var _ llm.Adapter = (*Adapter)(nil)
