package gemini

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/etzlertech/rancheye-02-analysis/internal/llm"
)

func TestAnalyzeSendsInlineImage(t *testing.T) {
	var got generateRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/models/gemini-1.5-flash:generateContent", r.URL.Path)
		assert.Equal(t, "gem-key", r.Header.Get("x-goog-api-key"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
  "candidates": [{"content": {"role": "model", "parts": [{"text": "{\"water_level\": \"LOW\", \"confidence\": 0.82}"}]}, "finishReason": "STOP"}],
  "usageMetadata": {"promptTokenCount": 300, "candidatesTokenCount": 40, "totalTokenCount": 340}
}`))
	}))
	defer server.Close()

	adapter, err := New("gem-key", WithBaseURL(server.URL))
	require.NoError(t, err)

	res := adapter.Analyze(context.Background(), llm.Request{
		Image:       []byte{0xFF, 0xD8},
		Prompt:      "Check the trough",
		Model:       "gemini-1.5-flash",
		Temperature: llm.DefaultTemperature,
	})
	require.True(t, res.OK(), "unexpected error: %v", res.Err)
	assert.Equal(t, llm.ProviderGemini, res.Provider)
	assert.Equal(t, "LOW", res.Data["water_level"])
	assert.InDelta(t, 0.82, res.Confidence, 1e-9)
	require.NotNil(t, res.InputTokens)
	require.NotNil(t, res.OutputTokens)
	assert.Equal(t, 300, *res.InputTokens)
	assert.Equal(t, 40, *res.OutputTokens)
	assert.Equal(t, 340, res.TotalTokens)

	require.Len(t, got.Contents, 1)
	require.Len(t, got.Contents[0].Parts, 2)
	assert.Equal(t, "Check the trough", got.Contents[0].Parts[0].Text)
	require.NotNil(t, got.Contents[0].Parts[1].InlineData)
	assert.Equal(t, "image/jpeg", got.Contents[0].Parts[1].InlineData.MimeType)
	assert.Equal(t, 1000, got.GenerationConfig.MaxOutputTokens)
	assert.Equal(t, "application/json", got.GenerationConfig.ResponseMimeType)
	assert.InDelta(t, 0.3, got.GenerationConfig.Temperature, 1e-6)
}

func TestAnalyzeBlockedPrompt(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"promptFeedback": {"blockReason": "SAFETY"}}`))
	}))
	defer server.Close()

	adapter, err := New("gem-key", WithBaseURL(server.URL))
	require.NoError(t, err)

	res := adapter.Analyze(context.Background(), llm.Request{Image: []byte{1}, Prompt: "p", Model: "gemini-1.5-flash"})
	require.False(t, res.OK())
	assert.Contains(t, res.ErrorMessage(), "SAFETY")
	assert.Equal(t, "provider_error", res.Data["error"])
	assert.Zero(t, res.Confidence)
}

func TestAnalyzeNonJSONAnswerIsParseError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"candidates": [{"content": {"parts": [{"text": "I cannot tell from this photo."}]}}]}`))
	}))
	defer server.Close()

	adapter, err := New("gem-key", WithBaseURL(server.URL))
	require.NoError(t, err)

	res := adapter.Analyze(context.Background(), llm.Request{Image: []byte{1}, Prompt: "p", Model: "gemini-1.5-flash"})
	require.False(t, res.OK())
	assert.ErrorIs(t, res.Err, llm.ErrUnparseable)
	assert.Equal(t, "I cannot tell from this photo.", res.Raw)
	assert.Nil(t, res.InputTokens)
}

func TestAnalyzeHTTPErrorAndTimeout(t *testing.T) {
	failing := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error": {"code": 400, "message": "API key not valid"}}`, http.StatusBadRequest)
	}))
	defer failing.Close()

	adapter, err := New("gem-key", WithBaseURL(failing.URL))
	require.NoError(t, err)
	res := adapter.Analyze(context.Background(), llm.Request{Image: []byte{1}, Prompt: "p", Model: "gemini-1.5-flash"})
	require.False(t, res.OK())
	assert.Contains(t, res.ErrorMessage(), "status 400")

	slow := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer slow.Close()

	adapter, err = New("gem-key", WithBaseURL(slow.URL), WithHTTPClient(&http.Client{Timeout: 50 * time.Millisecond}))
	require.NoError(t, err)
	res = adapter.Analyze(context.Background(), llm.Request{Image: []byte{1}, Prompt: "p", Model: "gemini-1.5-flash"})
	require.False(t, res.OK())
	assert.True(t, strings.Contains(res.ErrorMessage(), "timeout"), res.ErrorMessage())
}
