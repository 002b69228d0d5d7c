package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"newsthreads/internal/config"
)

// AzureClient talks to Azure OpenAI chat-completions and embeddings
// deployments. Chat and embedding deployments may live on different
// resources, so each side keeps its own endpoint and key.
type AzureClient struct {
	http       *http.Client
	cfg        config.Azure
	dimensions int
}

var _ Client = (*AzureClient)(nil)

func NewAzureClient(cfg config.Azure, dimensions int) (*AzureClient, error) {
	if cfg.APIKey == "" || cfg.Endpoint == "" || cfg.Deployment == "" {
		return nil, fmt.Errorf("llm: azure chat deployment is not fully configured")
	}
	if cfg.EmbeddingDeployment == "" {
		return nil, fmt.Errorf("llm: azure embedding deployment is not configured")
	}
	return &AzureClient{
		http:       &http.Client{Timeout: 60 * time.Second},
		cfg:        cfg,
		dimensions: dimensions,
	}, nil
}

func (a *AzureClient) Name() string { return "AzureOpenAI:" + a.cfg.Deployment }
func (a *AzureClient) Close() error { return nil }

type azureChatReq struct {
	Messages    []azureMessage `json:"messages"`
	Temperature float32        `json:"temperature"`
}

type azureMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type azureChatResp struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
}

// Complete posts a single user message to the chat deployment.
func (a *AzureClient) Complete(ctx context.Context, prompt string, temperature float32) (Completion, error) {
	endpoint := fmt.Sprintf("%s/openai/deployments/%s/chat/completions?api-version=%s",
		strings.TrimSuffix(a.cfg.Endpoint, "/"), a.cfg.Deployment, a.cfg.APIVersion)

	body, blockReason, err := a.post(ctx, endpoint, a.cfg.APIKey, azureChatReq{
		Messages:    []azureMessage{{Role: "user", Content: prompt}},
		Temperature: temperature,
	})
	if err != nil {
		return Completion{}, err
	}
	if blockReason != "" {
		return Completion{Blocked: true, BlockReason: blockReason}, nil
	}

	var out azureChatResp
	if err := json.Unmarshal(body, &out); err != nil {
		return Completion{}, fmt.Errorf("llm: decode azure chat response: %w", err)
	}
	if len(out.Choices) == 0 {
		return Completion{}, fmt.Errorf("llm: azure returned no choices")
	}
	if out.Choices[0].FinishReason == "content_filter" {
		return Completion{Blocked: true, BlockReason: "completion truncated by Azure content filter"}, nil
	}

	return Completion{Text: strings.TrimSpace(out.Choices[0].Message.Content)}, nil
}

type azureEmbedResp struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
}

// Embed requests an embedding from the embedding deployment.
func (a *AzureClient) Embed(ctx context.Context, text string) (Embedding, error) {
	endpoint := fmt.Sprintf("%s/openai/deployments/%s/embeddings?api-version=%s",
		strings.TrimSuffix(a.cfg.EmbeddingEndpoint, "/"), a.cfg.EmbeddingDeployment, a.cfg.EmbeddingAPIVersion)

	body, blockReason, err := a.post(ctx, endpoint, a.cfg.EmbeddingAPIKey, map[string]any{
		"input":      text,
		"dimensions": a.dimensions,
	})
	if err != nil {
		return Embedding{}, err
	}
	if blockReason != "" {
		return Embedding{Blocked: true, BlockReason: blockReason}, nil
	}

	var out azureEmbedResp
	if err := json.Unmarshal(body, &out); err != nil {
		return Embedding{}, fmt.Errorf("llm: decode azure embedding response: %w", err)
	}
	if len(out.Data) == 0 || len(out.Data[0].Embedding) == 0 {
		return Embedding{}, fmt.Errorf("llm: azure returned empty embedding")
	}

	return Embedding{Vector: out.Data[0].Embedding}, nil
}

// post returns the response body, or a non-empty blockReason when the
// service refused the request through its content filter.
func (a *AzureClient) post(ctx context.Context, endpoint, apiKey string, payload any) (body []byte, blockReason string, err error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, "", fmt.Errorf("llm: marshal azure payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(raw))
	if err != nil {
		return nil, "", fmt.Errorf("llm: new azure request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("api-key", apiKey)

	resp, err := a.http.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("llm: azure request: %w", err)
	}
	defer resp.Body.Close()

	body, err = io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, "", fmt.Errorf("llm: read azure response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := strings.TrimSpace(string(body))
		if looksBlocked(msg) {
			return nil, msg, nil
		}
		return nil, "", fmt.Errorf("llm: azure returned %s: %s", resp.Status, msg)
	}

	return body, "", nil
}
