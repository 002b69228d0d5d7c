package engine

import (
	"context"
	"fmt"
	"math"

	"newsthreads/internal/domain"
	"newsthreads/internal/llmjson"
	"newsthreads/internal/prompts"
	"newsthreads/internal/store"
)

// acceptedMatch is a candidate whose semantic score cleared the bar,
// with the evidence to record in its membership row.
type acceptedMatch struct {
	Candidate     store.ThreadMatch
	Score         int
	Justification string
}

// adjudicate runs the semantic judgment over every candidate, most
// similar first. The cosine pre-filter is necessary but not sufficient;
// only a score at or above the configured threshold accepts a
// candidate. A blocked judgment skips that candidate without consuming
// a retry; exhausting retries on a candidate is fatal for the article.
func (e *Engine) adjudicate(ctx context.Context, a *domain.Article, candidates []store.ThreadMatch) ([]acceptedMatch, error) {
	var accepted []acceptedMatch
	for _, cand := range candidates {
		prompt := prompts.Similarity(a.Title, a.Description, a.Content, cand.Thread.Title, cand.Thread.Summary)
		fields, comp, err := e.structuredCall(ctx, prompt, adjudicateTemperature, prompts.SimilarityFields, validateSimilarity)
		if err != nil {
			return nil, fmt.Errorf("engine: adjudicate thread %s: %w", cand.Thread.ID, err)
		}
		if comp.Blocked {
			e.log.Warn().
				Str("thread", cand.Thread.ID.String()).
				Str("reason", comp.BlockReason).
				Msg("adjudication blocked, candidate skipped")
			continue
		}

		score := similarityScore(fields)
		e.log.Debug().
			Str("thread", cand.Thread.ID.String()).
			Int("score", score).
			Float64("cosine", cand.Cosine).
			Msg("candidate adjudicated")
		if score >= e.cfg.ScoreThreshold {
			accepted = append(accepted, acceptedMatch{
				Candidate:     cand,
				Score:         score,
				Justification: stringField(fields, "llm_similarity_justification"),
			})
		}
	}
	return accepted, nil
}

// validateSimilarity rejects responses whose score is not an integer in
// [0, 100]; the caller treats that like any parse failure and retries.
func validateSimilarity(fields map[string]any) error {
	f, ok := fields["llm_similarity_score"].(float64)
	if !ok || f != math.Trunc(f) {
		return fmt.Errorf("llm_similarity_score is not an integer: %w", llmjson.ErrInvalidResponse)
	}
	if f < 0 || f > domain.MaxSimilarityScore {
		return fmt.Errorf("llm_similarity_score %v out of range: %w", f, llmjson.ErrInvalidResponse)
	}
	return nil
}

func similarityScore(fields map[string]any) int {
	f, _ := fields["llm_similarity_score"].(float64)
	return int(f)
}
