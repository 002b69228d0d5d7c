// Package llm provides a uniform gateway over interchangeable
// language-model providers. Every provider exposes single-turn text
// generation and text embedding, and normalizes content-policy refusals
// into a blocked flag plus a human-readable reason. Blocking is a
// first-class outcome: only transport and provider faults surface as
// errors.
package llm

import (
	"context"
	"fmt"
	"strings"

	"newsthreads/internal/config"
)

// Completion is the result of a generation request.
type Completion struct {
	Text        string
	Blocked     bool
	BlockReason string
}

// Embedding is the result of an embedding request. Vector is nil when the
// request was blocked; callers substitute a zero vector before storage.
type Embedding struct {
	Vector      []float32
	Blocked     bool
	BlockReason string
}

// Client is the provider capability contract.
type Client interface {
	Name() string
	Complete(ctx context.Context, prompt string, temperature float32) (Completion, error)
	Embed(ctx context.Context, text string) (Embedding, error)
	Close() error
}

// New constructs the provider selected by configuration. The handle is
// built once per run and passed explicitly to every component that needs
// it; there is no process-wide provider state.
func New(ctx context.Context, cfg config.LLM) (Client, error) {
	switch cfg.Provider {
	case "azure":
		return NewAzureClient(cfg.Azure, cfg.EmbeddingDimensions)
	case "gemini":
		return NewGeminiClient(ctx, cfg.Gemini, cfg.EmbeddingDimensions)
	default:
		return nil, fmt.Errorf("llm: unsupported provider %q", cfg.Provider)
	}
}

// blockKeywords mark provider error messages that are really
// content-policy refusals rather than transport faults.
var blockKeywords = []string{"content_filter", "safety", "blocked", "prohibited", "policy", "harmful"}

func looksBlocked(msg string) bool {
	lower := strings.ToLower(msg)
	for _, kw := range blockKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}
