package llm

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGeminiGenerate_Success(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasSuffix(r.URL.Path, "models/gemini-2.0-flash:generateContent"), r.URL.Path)

		raw, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		var body map[string]any
		require.NoError(t, json.Unmarshal(raw, &body))
		assert.Contains(t, string(raw), "application/json", "JSON mode sets the response mime type")
		assert.Contains(t, string(raw), "stay in character")

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"candidates": [{"content": {"role": "model", "parts": [{"text": "{\"is_scam\": true, \"confidence\": 0.9}"}]}, "finishReason": "STOP"}],
			"usageMetadata": {"promptTokenCount": 21, "candidatesTokenCount": 9}
		}`))
	}))
	t.Cleanup(ts.Close)

	provider, err := NewGeminiProvider(context.Background(), "test-key", ts.URL)
	require.NoError(t, err)

	resp, err := provider.Generate(context.Background(), &Request{
		System:      "stay in character",
		Messages:    []Message{{Role: RoleUser, Content: "account blocked"}},
		Temperature: 0.1,
		MaxTokens:   100,
		JSON:        true,
	})
	require.NoError(t, err)
	assert.Equal(t, `{"is_scam": true, "confidence": 0.9}`, resp.Content)
	assert.Equal(t, "STOP", resp.FinishReason)
	assert.Equal(t, 21, resp.InputTokens)
	assert.Equal(t, 9, resp.OutputTokens)
	assert.Equal(t, DefaultGeminiModel, resp.Model)
}

func TestGeminiGenerate_ServerError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error": {"code": 429, "message": "quota", "status": "RESOURCE_EXHAUSTED"}}`))
	}))
	t.Cleanup(ts.Close)

	provider, err := NewGeminiProvider(context.Background(), "test-key", ts.URL)
	require.NoError(t, err)

	_, err = provider.Generate(context.Background(), &Request{
		Model:    "gemini-2.0-flash",
		Messages: []Message{{Role: RoleUser, Content: "hi"}},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "gemini api call")
}

func TestNewGeminiProviderRequiresKey(t *testing.T) {
	_, err := NewGeminiProvider(context.Background(), "", "")
	require.ErrorIs(t, err, ErrMissingAPIKey)
}
