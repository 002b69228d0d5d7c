package engine

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"newsthreads/internal/domain"
	"newsthreads/internal/prompts"
	"newsthreads/internal/store"
)

// Result describes what one article's processing did.
type Result struct {
	Duplicate bool
	Joined    []uuid.UUID
	Created   uuid.UUID
}

// ProcessArticle runs the full per-article flow: dedupe, summarize,
// embed, persist, retrieve candidates, adjudicate, and mutate or found
// a thread. The article insert is its own all-or-nothing unit; each
// thread write is another.
func (e *Engine) ProcessArticle(ctx context.Context, a *domain.Article) (Result, error) {
	exists, err := e.store.ArticleExists(ctx, a.URL)
	if err != nil {
		return Result{}, err
	}
	if exists {
		e.log.Debug().Str("url", a.URL).Msg("article already ingested")
		return Result{Duplicate: true}, nil
	}

	if err := e.enrichArticle(ctx, a); err != nil {
		return Result{}, err
	}
	if err := e.store.SaveArticle(ctx, a); err != nil {
		return Result{}, err
	}

	candidates, err := e.store.SearchThreads(ctx, a.Scope, a.Embedding, e.cfg.CosineThreshold, candidateLimit)
	if err != nil {
		return Result{}, err
	}
	accepted, err := e.adjudicate(ctx, a, candidates)
	if err != nil {
		return Result{}, err
	}

	// An article may join several threads; membership is not exclusive.
	res := Result{}
	for _, match := range accepted {
		if err := e.joinThread(ctx, a, match); err != nil {
			return res, err
		}
		res.Joined = append(res.Joined, match.Candidate.Thread.ID)
	}
	if len(accepted) == 0 {
		thread, err := e.foundThread(ctx, a)
		if err != nil {
			return res, err
		}
		res.Created = thread.ID
		e.log.Info().Str("thread", thread.ID.String()).Str("url", a.URL).Msg("founded thread")
	}
	return res, nil
}

// enrichArticle fills in the summary and embedding, normalizing any
// content-policy block into the article's blocked state. A blocked
// embedding is replaced with a zero vector so the record stays storable
// and inert in similarity search.
func (e *Engine) enrichArticle(ctx context.Context, a *domain.Article) error {
	comp, err := e.llm.Complete(ctx, prompts.Summarize(a.Title, a.Description, a.Content), summarizeTemperature)
	if err != nil {
		return fmt.Errorf("engine: summarize article: %w", err)
	}
	if comp.Blocked {
		a.Blocked = true
		a.BlockedReason = comp.BlockReason
		a.Embedding = store.ZeroVector(e.dimensions)
		e.log.Warn().Str("url", a.URL).Str("reason", comp.BlockReason).Msg("summary blocked")
		return nil
	}
	a.Summary = strings.TrimSpace(comp.Text)

	emb, err := e.llm.Embed(ctx, embeddingText(a.Title, a.Description, a.Content))
	if err != nil {
		return fmt.Errorf("engine: embed article: %w", err)
	}
	if emb.Blocked {
		a.Blocked = true
		a.BlockedReason = emb.BlockReason
		a.Embedding = store.ZeroVector(e.dimensions)
		e.log.Warn().Str("url", a.URL).Str("reason", emb.BlockReason).Msg("embedding blocked")
		return nil
	}
	a.Embedding = emb.Vector
	return nil
}

// foundThread creates a new thread seeded from the article itself, with
// the founding-membership sentinels in place of adjudicated evidence.
// Thread and membership timestamps come from the article's publication
// time, so a backdated article founds a backdated thread.
func (e *Engine) foundThread(ctx context.Context, a *domain.Article) (domain.Thread, error) {
	now := a.PublishedAt.UTC()
	if a.PublishedAt.IsZero() {
		now = time.Now().UTC()
	}
	thread := domain.Thread{
		Scope:         a.Scope,
		Title:         a.Title,
		Summary:       a.Summary,
		Embedding:     a.Embedding,
		Status:        domain.StatusStarted,
		Blocked:       a.Blocked,
		BlockedReason: a.BlockedReason,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	m := domain.Membership{
		ArticleID: a.ID,
		Cosine:    domain.FoundingCosine,
		Score:     domain.FoundingSimilarityScore,
		CreatedAt: now,
	}
	if err := e.store.CreateThread(ctx, &thread, &m); err != nil {
		return domain.Thread{}, err
	}
	return thread, nil
}

func embeddingText(title, description, content string) string {
	return strings.Join([]string{title, description, content}, "\n\n")
}
