package llm

import (
	"context"
	"fmt"
	"strings"

	genai "google.golang.org/genai"

	"newsthreads/internal/config"
)

// GeminiClient is a thin wrapper around the official genai client.
type GeminiClient struct {
	cli            *genai.Client
	chatModel      string
	embeddingModel string
	dimensions     int
}

var _ Client = (*GeminiClient)(nil)

func NewGeminiClient(ctx context.Context, cfg config.Gemini, dimensions int) (*GeminiClient, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("llm: GEMINI_API_KEY is required")
	}
	cli, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("llm: create gemini client: %w", err)
	}
	return &GeminiClient{
		cli:            cli,
		chatModel:      cfg.ChatModel,
		embeddingModel: cfg.EmbeddingModel,
		dimensions:     dimensions,
	}, nil
}

func (g *GeminiClient) Name() string { return "Gemini:" + g.chatModel }
func (g *GeminiClient) Close() error { return nil }

// Complete sends a single-turn generation request. Safety refusals are
// reported through the blocked flag, never as an error.
func (g *GeminiClient) Complete(ctx context.Context, prompt string, temperature float32) (Completion, error) {
	resp, err := g.cli.Models.GenerateContent(ctx, g.chatModel,
		[]*genai.Content{{Parts: []*genai.Part{{Text: prompt}}}},
		&genai.GenerateContentConfig{
			Temperature:     genai.Ptr(temperature),
			MaxOutputTokens: 2048,
		},
	)
	if err != nil {
		if looksBlocked(err.Error()) {
			return Completion{Blocked: true, BlockReason: err.Error()}, nil
		}
		return Completion{}, fmt.Errorf("llm: gemini generate: %w", err)
	}

	if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != "" {
		return Completion{
			Blocked:     true,
			BlockReason: fmt.Sprintf("prompt blocked by Gemini safety filters: %s", resp.PromptFeedback.BlockReason),
		}, nil
	}
	if len(resp.Candidates) == 0 {
		return Completion{}, fmt.Errorf("llm: gemini returned no candidates")
	}

	cand := resp.Candidates[0]
	if cand.FinishReason == genai.FinishReasonSafety || cand.FinishReason == genai.FinishReasonProhibitedContent {
		return Completion{
			Blocked:     true,
			BlockReason: fmt.Sprintf("content blocked by Gemini safety filters: %s", blockedCategories(cand.SafetyRatings)),
		}, nil
	}
	if cand.Content == nil || len(cand.Content.Parts) == 0 {
		return Completion{}, fmt.Errorf("llm: gemini returned empty content")
	}

	return Completion{Text: strings.TrimSpace(cand.Content.Parts[0].Text)}, nil
}

// Embed returns a document embedding at the configured dimensionality.
func (g *GeminiClient) Embed(ctx context.Context, text string) (Embedding, error) {
	resp, err := g.cli.Models.EmbedContent(ctx, g.embeddingModel,
		[]*genai.Content{{Parts: []*genai.Part{{Text: text}}}},
		&genai.EmbedContentConfig{
			TaskType:             "RETRIEVAL_DOCUMENT",
			OutputDimensionality: genai.Ptr(int32(g.dimensions)),
		},
	)
	if err != nil {
		if looksBlocked(err.Error()) {
			return Embedding{Blocked: true, BlockReason: err.Error()}, nil
		}
		return Embedding{}, fmt.Errorf("llm: gemini embed: %w", err)
	}
	if len(resp.Embeddings) == 0 || len(resp.Embeddings[0].Values) == 0 {
		return Embedding{}, fmt.Errorf("llm: gemini returned empty embedding")
	}
	return Embedding{Vector: resp.Embeddings[0].Values}, nil
}

func blockedCategories(ratings []*genai.SafetyRating) string {
	var names []string
	for _, r := range ratings {
		if r != nil && r.Blocked {
			names = append(names, string(r.Category))
		}
	}
	if len(names) == 0 {
		return "unspecified"
	}
	return strings.Join(names, ", ")
}
