package llm

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RyanProMax/stock-analysis/internal/config"
)

func newTestClient(t *testing.T, url string) *OpenAIClient {
	t.Helper()
	client, err := NewOpenAIClient(config.LLMConfig{
		Provider: "custom",
		APIKey:   "test-key",
		BaseURL:  url,
		Model:    "test-model",
		Timeout:  config.Duration(5 * time.Second),
	}, nil)
	require.NoError(t, err)
	return client
}

func drain(t *testing.T, deltas <-chan Delta, errs <-chan error) ([]Delta, error) {
	t.Helper()
	var out []Delta
	for d := range deltas {
		out = append(out, d)
	}
	return out, <-errs
}

func TestChatStreamParsesDeltas(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, "data: {\"choices\":[{\"delta\":{\"reasoning_content\":\"hmm \"}}]}\n\n")
		fmt.Fprint(w, "data: {\"choices\":[{\"delta\":{\"content\":\"buy \"}}]}\n\n")
		fmt.Fprint(w, "data: {\"choices\":[{\"delta\":{\"content\":\"now\"}}]}\n\n")
		fmt.Fprint(w, "data: [DONE]\n\n")
	}))
	t.Cleanup(server.Close)

	client := newTestClient(t, server.URL)
	deltas, errs := client.ChatStream(context.Background(), []Message{{Role: RoleUser, Content: "hi"}})

	out, err := drain(t, deltas, errs)
	require.NoError(t, err)
	require.Len(t, out, 3)
	assert.Equal(t, Delta{Content: "hmm ", Reasoning: true}, out[0])
	assert.Equal(t, Delta{Content: "buy "}, out[1])
	assert.Equal(t, Delta{Content: "now"}, out[2])
}

func TestChatStreamAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"message":"model overloaded"}}`, http.StatusTooManyRequests)
	}))
	t.Cleanup(server.Close)

	client := newTestClient(t, server.URL)
	deltas, errs := client.ChatStream(context.Background(), nil)
	out, err := drain(t, deltas, errs)
	assert.Empty(t, out)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "429")
}

func TestChatStreamInlineError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, "data: {\"error\":{\"message\":\"bad prompt\"}}\n\n")
	}))
	t.Cleanup(server.Close)

	client := newTestClient(t, server.URL)
	deltas, errs := client.ChatStream(context.Background(), nil)
	_, err := drain(t, deltas, errs)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad prompt")
}

func TestNewOpenAIClientValidation(t *testing.T) {
	_, err := NewOpenAIClient(config.LLMConfig{Provider: "deepseek"}, nil)
	require.Error(t, err)

	_, err = NewOpenAIClient(config.LLMConfig{Provider: "custom", APIKey: "k"}, nil)
	require.Error(t, err)

	client, err := NewOpenAIClient(config.LLMConfig{Provider: "deepseek", APIKey: "k"}, nil)
	require.NoError(t, err)
	assert.Equal(t, "https://api.deepseek.com", client.baseURL)
	assert.Equal(t, "deepseek-reasoner", client.model)
}
