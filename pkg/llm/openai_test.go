package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newOpenAITestServer(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return server
}

func TestOpenAI_Chat(t *testing.T) {
	var got map[string]any
	server := newOpenAITestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": "chatcmpl-1",
			"model": "gpt-4o-mini",
			"choices": [{"index": 0, "message": {"role": "assistant", "content": "reasoning\nC\nC"}}],
			"usage": {"prompt_tokens": 120, "completion_tokens": 8, "total_tokens": 128}
		}`))
	})

	p, err := NewOpenAI(WithAPIKey("test-key"), WithBaseURL(server.URL))
	require.NoError(t, err)

	resp, err := p.Chat(context.Background(), ChatRequest{System: "sys", Prompt: "hello"})
	require.NoError(t, err)

	assert.Equal(t, "reasoning\nC\nC", resp.Content)
	assert.Equal(t, 120, resp.PromptTokens)
	assert.Equal(t, 8, resp.CompletionTokens)

	messages, ok := got["messages"].([]any)
	require.True(t, ok)
	require.Len(t, messages, 2)
	assert.Equal(t, "system", messages[0].(map[string]any)["role"])
	assert.Equal(t, "hello", messages[1].(map[string]any)["content"])
}

func TestOpenAI_Chat_EmptyPrompt(t *testing.T) {
	p, err := NewOpenAI(WithAPIKey("test-key"))
	require.NoError(t, err)

	_, err = p.Chat(context.Background(), ChatRequest{})
	assert.ErrorIs(t, err, ErrEmptyPrompt)
}

func TestOpenAI_Chat_StatusMapping(t *testing.T) {
	tests := []struct {
		status   int
		sentinel error
	}{
		{http.StatusUnauthorized, ErrInvalidAPIKey},
		{http.StatusTooManyRequests, ErrRateLimited},
		{http.StatusServiceUnavailable, ErrProviderUnavailable},
		{http.StatusBadRequest, ErrBadRequest},
	}

	for _, tt := range tests {
		server := newOpenAITestServer(t, func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(tt.status)
			_, _ = w.Write([]byte(`{"error": {"message": "boom", "type": "test"}}`))
		})

		p, err := NewOpenAI(WithAPIKey("test-key"), WithBaseURL(server.URL))
		require.NoError(t, err)

		_, err = p.Chat(context.Background(), ChatRequest{Prompt: "hi"})
		require.Error(t, err)
		assert.True(t, errors.Is(err, tt.sentinel), "status %d: %v", tt.status, err)
	}
}

func TestOpenAI_Chat_RetriesRetryableErrors(t *testing.T) {
	var calls atomic.Int32
	server := newOpenAITestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = w.Write([]byte(`{"error": {"message": "slow down"}}`))
			return
		}
		_, _ = w.Write([]byte(`{"choices": [{"message": {"role": "assistant", "content": "A"}}]}`))
	})

	p, err := NewOpenAI(
		WithAPIKey("test-key"),
		WithBaseURL(server.URL),
		WithMaxRetries(3),
		WithRetryDelay(time.Millisecond),
	)
	require.NoError(t, err)

	resp, err := p.Chat(context.Background(), ChatRequest{Prompt: "hi"})
	require.NoError(t, err)
	assert.Equal(t, "A", resp.Content)
	assert.Equal(t, int32(3), calls.Load())
}

func TestOpenAI_Chat_NoRetryByDefault(t *testing.T) {
	var calls atomic.Int32
	server := newOpenAITestServer(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	p, err := NewOpenAI(WithAPIKey("test-key"), WithBaseURL(server.URL))
	require.NoError(t, err)

	_, err = p.Chat(context.Background(), ChatRequest{Prompt: "hi"})
	require.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())
}

func TestOpenAIEmbedder_Embed(t *testing.T) {
	server := newOpenAITestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/embeddings", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		// 乱序返回，按 index 归位
		_, _ = w.Write([]byte(`{
			"object": "list",
			"data": [
				{"object": "embedding", "index": 1, "embedding": [0, 1]},
				{"object": "embedding", "index": 0, "embedding": [1, 0]}
			],
			"model": "text-embedding-3-small"
		}`))
	})

	e, err := NewOpenAIEmbedder(WithAPIKey("test-key"), WithBaseURL(server.URL))
	require.NoError(t, err)

	vectors, err := e.Embed(context.Background(), []string{"a", "b"})
	require.NoError(t, err)
	require.Len(t, vectors, 2)
	assert.Equal(t, []float32{1, 0}, vectors[0])
	assert.Equal(t, []float32{0, 1}, vectors[1])
}

func TestOpenAIEmbedder_RejectsEmptyText(t *testing.T) {
	e, err := NewOpenAIEmbedder(WithAPIKey("test-key"))
	require.NoError(t, err)

	_, err = e.Embed(context.Background(), []string{"a", ""})
	assert.ErrorIs(t, err, ErrEmptyInput)
}
