package engine

import (
	"context"
	"fmt"
	"strings"
	"time"

	"newsthreads/internal/domain"
	"newsthreads/internal/llmjson"
	"newsthreads/internal/prompts"
)

// joinThread folds the article into an accepted thread: regenerate the
// thread's title, summary, and status, re-embed the result, and write
// the thread plus the membership row in one transaction.
//
// Blocks degrade rather than abort: a blocked update keeps the thread's
// previous fields, a blocked re-embedding keeps the previous embedding,
// and either sets the thread's blocked state.
func (e *Engine) joinThread(ctx context.Context, a *domain.Article, match acceptedMatch) error {
	thread := match.Candidate.Thread

	prompt := prompts.ThreadUpdate(a.Title, a.Description, a.Content, thread.Title, thread.Summary)
	fields, comp, err := e.structuredCall(ctx, prompt, updateTemperature, prompts.ThreadUpdateFields, validateThreadUpdate)
	if err != nil {
		return fmt.Errorf("engine: update thread %s: %w", thread.ID, err)
	}

	if comp.Blocked {
		thread.Blocked = true
		thread.BlockedReason = comp.BlockReason
		e.log.Warn().Str("thread", thread.ID.String()).Str("reason", comp.BlockReason).Msg("thread update blocked")
	} else {
		thread.Title = stringField(fields, "llm_title")
		thread.Summary = stringField(fields, "llm_summary")
		thread.Status = domain.ThreadStatus(stringField(fields, "status"))
		thread.Blocked = false
		thread.BlockedReason = ""

		emb, err := e.llm.Embed(ctx, thread.Title+"\n\n"+thread.Summary)
		if err != nil {
			return fmt.Errorf("engine: re-embed thread %s: %w", thread.ID, err)
		}
		if emb.Blocked {
			thread.Blocked = true
			thread.BlockedReason = emb.BlockReason
			e.log.Warn().Str("thread", thread.ID.String()).Str("reason", emb.BlockReason).Msg("thread re-embedding blocked")
		} else {
			thread.Embedding = emb.Vector
		}
	}
	thread.UpdatedAt = time.Now().UTC()

	m := domain.Membership{
		ThreadID:      thread.ID,
		ArticleID:     a.ID,
		Cosine:        match.Candidate.Cosine,
		Score:         match.Score,
		Justification: match.Justification,
		CreatedAt:     thread.UpdatedAt,
	}
	if err := e.store.ApplyThreadUpdate(ctx, thread, m); err != nil {
		return err
	}
	e.log.Info().
		Str("thread", thread.ID.String()).
		Str("url", a.URL).
		Int("score", match.Score).
		Str("status", string(thread.Status)).
		Msg("article joined thread")
	return nil
}

// validateThreadUpdate enforces the prompt contract: non-empty title
// and summary, and a status the engine is allowed to write other than
// the founding one.
func validateThreadUpdate(fields map[string]any) error {
	if strings.TrimSpace(stringField(fields, "llm_title")) == "" {
		return fmt.Errorf("llm_title is empty: %w", llmjson.ErrInvalidResponse)
	}
	if strings.TrimSpace(stringField(fields, "llm_summary")) == "" {
		return fmt.Errorf("llm_summary is empty: %w", llmjson.ErrInvalidResponse)
	}
	switch domain.ThreadStatus(stringField(fields, "status")) {
	case domain.StatusEvolving, domain.StatusLikelyResolved:
		return nil
	}
	return fmt.Errorf("status %q not allowed: %w", stringField(fields, "status"), llmjson.ErrInvalidResponse)
}
