package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"newsthreads/internal/config"
)

func azureTestClient(t *testing.T, handler http.HandlerFunc) *AzureClient {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := NewAzureClient(config.Azure{
		APIKey:              "key",
		APIVersion:          "2024-02-01",
		Endpoint:            server.URL,
		Deployment:          "gpt-4o",
		EmbeddingAPIKey:     "key",
		EmbeddingAPIVersion: "2024-02-01",
		EmbeddingEndpoint:   server.URL,
		EmbeddingDeployment: "text-embedding-3-large",
	}, 4)
	require.NoError(t, err)
	return client
}

func TestAzureComplete(t *testing.T) {
	client := azureTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "key", r.Header.Get("api-key"))
		assert.Contains(t, r.URL.Path, "/openai/deployments/gpt-4o/chat/completions")

		var req azureChatReq
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.InDelta(t, 0.3, req.Temperature, 1e-6)
		require.Len(t, req.Messages, 1)
		assert.Equal(t, "user", req.Messages[0].Role)

		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]string{"content": "  a summary  "}, "finish_reason": "stop"},
			},
		})
	})

	got, err := client.Complete(context.Background(), "summarize this", 0.3)
	require.NoError(t, err)
	assert.False(t, got.Blocked)
	assert.Equal(t, "a summary", got.Text)
}

func TestAzureCompleteContentFilter(t *testing.T) {
	client := azureTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error": {"code": "content_filter", "message": "The response was filtered"}}`))
	})

	got, err := client.Complete(context.Background(), "something nasty", 0.3)
	require.NoError(t, err)
	assert.True(t, got.Blocked)
	assert.Contains(t, got.BlockReason, "content_filter")
	assert.Empty(t, got.Text)
}

func TestAzureCompleteTransientFault(t *testing.T) {
	client := azureTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("upstream unavailable"))
	})

	_, err := client.Complete(context.Background(), "anything", 0.3)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")
}

func TestAzureEmbed(t *testing.T) {
	client := azureTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.URL.Path, "/openai/deployments/text-embedding-3-large/embeddings")

		var req map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "hello world", req["input"])
		assert.Equal(t, float64(4), req["dimensions"])

		_ = json.NewEncoder(w).Encode(map[string]any{
			"data": []map[string]any{{"embedding": []float32{0.1, 0.2, 0.3, 0.4}}},
		})
	})

	got, err := client.Embed(context.Background(), "hello world")
	require.NoError(t, err)
	assert.False(t, got.Blocked)
	assert.Equal(t, []float32{0.1, 0.2, 0.3, 0.4}, got.Vector)
}

func TestCachedClientEmbedsOnce(t *testing.T) {
	var calls int
	client := azureTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		_ = json.NewEncoder(w).Encode(map[string]any{
			"data": []map[string]any{{"embedding": []float32{1, 2, 3, 4}}},
		})
	})

	cached, err := NewCachedClient(client, 16)
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		got, err := cached.Embed(context.Background(), "same text")
		require.NoError(t, err)
		assert.Equal(t, []float32{1, 2, 3, 4}, got.Vector)
	}
	assert.Equal(t, 1, calls)

	_, err = cached.Embed(context.Background(), "different text")
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}

func TestCachedClientDoesNotCacheBlocked(t *testing.T) {
	var calls int
	client := azureTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error": {"code": "content_filter"}}`))
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"data": []map[string]any{{"embedding": []float32{1, 2, 3, 4}}},
		})
	})

	cached, err := NewCachedClient(client, 16)
	require.NoError(t, err)

	first, err := cached.Embed(context.Background(), "text")
	require.NoError(t, err)
	assert.True(t, first.Blocked)

	second, err := cached.Embed(context.Background(), "text")
	require.NoError(t, err)
	assert.False(t, second.Blocked)
	assert.Len(t, second.Vector, 4)
	assert.Equal(t, 2, calls)
}

func TestNewRejectsUnknownProvider(t *testing.T) {
	_, err := New(context.Background(), config.LLM{Provider: "anthropic"})
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "unsupported provider"))
}
