// Package engine implements the thread association and maintenance core:
// the decision procedure that routes each incoming article into zero or
// more existing threads, mutates the threads it joins, and founds a new
// thread when nothing matches.
package engine

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"newsthreads/internal/config"
	"newsthreads/internal/domain"
	"newsthreads/internal/llm"
	"newsthreads/internal/llmjson"
	"newsthreads/internal/store"
)

// Temperatures per model interaction. Adjudication runs cold so scores
// stay comparable across candidates; the writing calls get some slack.
const (
	summarizeTemperature  = 0.3
	adjudicateTemperature = 0.1
	updateTemperature     = 0.3
)

// candidateLimit caps how many threads vector retrieval may hand to the
// adjudicator per article.
const candidateLimit = 10

// Storage is the persistence surface the engine needs. *store.Store
// satisfies it; tests substitute a fake.
type Storage interface {
	ArticleExists(ctx context.Context, url string) (bool, error)
	SaveArticle(ctx context.Context, a *domain.Article) error
	SearchThreads(ctx context.Context, scope domain.Scope, embedding []float32, threshold float64, limit int) ([]store.ThreadMatch, error)
	ApplyThreadUpdate(ctx context.Context, thread domain.Thread, m domain.Membership) error
	CreateThread(ctx context.Context, thread *domain.Thread, m *domain.Membership) error
}

// Engine processes articles one at a time. It is not safe for two
// engines to run against the same store concurrently: both could miss
// each other's in-flight thread and found duplicates for one story.
type Engine struct {
	llm        llm.Client
	store      Storage
	cfg        config.Thread
	dimensions int
	limiter    *rate.Limiter
	log        zerolog.Logger
}

// New wires an engine from its collaborators. The limiter paces
// articles to respect provider rate limits.
func New(client llm.Client, st Storage, cfg config.Thread, dimensions int, log zerolog.Logger) *Engine {
	limit := rate.Inf
	if cfg.ArticleDelay > 0 {
		limit = rate.Every(cfg.ArticleDelay)
	}
	return &Engine{
		llm:        client,
		store:      st,
		cfg:        cfg,
		dimensions: dimensions,
		limiter:    rate.NewLimiter(limit, 1),
		log:        log,
	}
}

// Summary tallies a batch run.
type Summary struct {
	Processed int
	Skipped   int
	Failed    int
}

// Run processes the batch sequentially. A failed article is logged and
// the batch continues; there is no cross-article transaction.
func (e *Engine) Run(ctx context.Context, articles []domain.Article) (Summary, error) {
	var sum Summary
	for i := range articles {
		if err := e.limiter.Wait(ctx); err != nil {
			return sum, err
		}
		a := articles[i]
		res, err := e.ProcessArticle(ctx, &a)
		if err != nil {
			sum.Failed++
			e.log.Error().Err(err).Str("url", a.URL).Msg("article failed")
			continue
		}
		if res.Duplicate {
			sum.Skipped++
			continue
		}
		sum.Processed++
	}
	return sum, nil
}

// structuredCall issues a generation request and parses the response,
// re-issuing the request on parse or validation failure up to the
// configured bound. The model is not deterministic, so each retry is a
// fresh generation, not a re-parse. A blocked response returns
// immediately without consuming the remaining attempts; transport
// faults propagate unretried.
func (e *Engine) structuredCall(ctx context.Context, prompt string, temperature float32, required []string, validate func(map[string]any) error) (map[string]any, llm.Completion, error) {
	var lastErr error
	for attempt := 1; attempt <= e.cfg.MaxRetryAttempts; attempt++ {
		comp, err := e.llm.Complete(ctx, prompt, temperature)
		if err != nil {
			return nil, comp, err
		}
		if comp.Blocked {
			return nil, comp, nil
		}
		fields, err := llmjson.Parse(comp.Text, required...)
		if err == nil && validate != nil {
			err = validate(fields)
		}
		if err == nil {
			return fields, comp, nil
		}
		lastErr = err
		e.log.Warn().Err(err).Int("attempt", attempt).Msg("invalid structured response")
	}
	return nil, llm.Completion{}, fmt.Errorf("engine: %d attempts exhausted: %w", e.cfg.MaxRetryAttempts, lastErr)
}

func stringField(fields map[string]any, key string) string {
	s, _ := fields[key].(string)
	return s
}
