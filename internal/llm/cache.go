package llm

import (
	"context"

	lru "github.com/hashicorp/golang-lru/v2"
)

const defaultEmbeddingCacheSize = 2048

// CachedClient memoizes embedding results so identical text is only
// embedded once per run. Completions pass through untouched: they are
// temperature-dependent and never safe to replay. Blocked embeddings are
// not cached, so a transiently refused text can still succeed later.
type CachedClient struct {
	Client
	embeddings *lru.Cache[string, []float32]
}

var _ Client = (*CachedClient)(nil)

// NewCachedClient wraps inner with an LRU embedding cache.
func NewCachedClient(inner Client, size int) (*CachedClient, error) {
	if size <= 0 {
		size = defaultEmbeddingCacheSize
	}
	cache, err := lru.New[string, []float32](size)
	if err != nil {
		return nil, err
	}
	return &CachedClient{Client: inner, embeddings: cache}, nil
}

func (c *CachedClient) Embed(ctx context.Context, text string) (Embedding, error) {
	if vec, ok := c.embeddings.Get(text); ok {
		out := make([]float32, len(vec))
		copy(out, vec)
		return Embedding{Vector: out}, nil
	}

	emb, err := c.Client.Embed(ctx, text)
	if err != nil {
		return Embedding{}, err
	}
	if !emb.Blocked && len(emb.Vector) > 0 {
		stored := make([]float32, len(emb.Vector))
		copy(stored, emb.Vector)
		c.embeddings.Add(text, stored)
	}
	return emb, nil
}
