package engine

import (
	"context"
	"strconv"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"newsthreads/internal/config"
	"newsthreads/internal/domain"
	"newsthreads/internal/llm"
	"newsthreads/internal/llmjson"
	"newsthreads/internal/store"
)

// fakeLLM replays a scripted sequence of completions and embeddings.
type fakeLLM struct {
	completions []llm.Completion
	embeddings  []llm.Embedding

	completePrompts []string
	embedTexts      []string
}

func (f *fakeLLM) Name() string { return "fake" }

func (f *fakeLLM) Complete(_ context.Context, prompt string, _ float32) (llm.Completion, error) {
	f.completePrompts = append(f.completePrompts, prompt)
	if len(f.completions) == 0 {
		return llm.Completion{Text: `{}`}, nil
	}
	c := f.completions[0]
	f.completions = f.completions[1:]
	return c, nil
}

func (f *fakeLLM) Embed(_ context.Context, text string) (llm.Embedding, error) {
	f.embedTexts = append(f.embedTexts, text)
	if len(f.embeddings) == 0 {
		return llm.Embedding{Vector: []float32{1, 0, 0, 0}}, nil
	}
	e := f.embeddings[0]
	f.embeddings = f.embeddings[1:]
	return e, nil
}

func (f *fakeLLM) Close() error { return nil }

type fakeStore struct {
	existing   map[string]bool
	candidates []store.ThreadMatch

	saved   []domain.Article
	updates []updateCall
	creates []createCall
}

type updateCall struct {
	thread     domain.Thread
	membership domain.Membership
}

type createCall struct {
	thread     domain.Thread
	membership domain.Membership
}

func (f *fakeStore) ArticleExists(_ context.Context, url string) (bool, error) {
	return f.existing[url], nil
}

func (f *fakeStore) SaveArticle(_ context.Context, a *domain.Article) error {
	a.ID = uuid.New()
	f.saved = append(f.saved, *a)
	return nil
}

func (f *fakeStore) SearchThreads(_ context.Context, _ domain.Scope, _ []float32, _ float64, _ int) ([]store.ThreadMatch, error) {
	return f.candidates, nil
}

func (f *fakeStore) ApplyThreadUpdate(_ context.Context, thread domain.Thread, m domain.Membership) error {
	f.updates = append(f.updates, updateCall{thread: thread, membership: m})
	return nil
}

func (f *fakeStore) CreateThread(_ context.Context, thread *domain.Thread, m *domain.Membership) error {
	thread.ID = uuid.New()
	m.ThreadID = thread.ID
	f.creates = append(f.creates, createCall{thread: *thread, membership: *m})
	return nil
}

func newTestEngine(client llm.Client, st Storage) *Engine {
	cfg := config.Thread{
		CosineThreshold:  0.7,
		ScoreThreshold:   70,
		MaxRetryAttempts: 3,
	}
	return New(client, st, cfg, 4, zerolog.Nop())
}

func testArticle() domain.Article {
	return domain.Article{
		Scope:       domain.Scope{Category: "world", Country: "us", Language: "en"},
		Title:       "Dam breaks upstream of Riverton",
		Description: "Evacuations under way",
		Content:     "The Riverton dam failed early Tuesday.",
		URL:         "https://example.com/dam-breaks",
		PublishedAt: time.Date(2026, 8, 25, 6, 30, 0, 0, time.UTC),
	}
}

func candidate(title, summary string, cosine float64) store.ThreadMatch {
	return store.ThreadMatch{
		Thread: domain.Thread{
			ID:        uuid.New(),
			Scope:     domain.Scope{Category: "world", Country: "us", Language: "en"},
			Title:     title,
			Summary:   summary,
			Embedding: []float32{0.5, 0.5, 0, 0},
			Status:    domain.StatusStarted,
		},
		Cosine: cosine,
	}
}

func similarityJSON(score int) llm.Completion {
	return llm.Completion{Text: `{"llm_similarity_justification": "same event", "llm_similarity_score": ` + strconv.Itoa(score) + `}`}
}

func updateJSON(title, summary, status string) llm.Completion {
	return llm.Completion{Text: `{"llm_title": "` + title + `", "llm_summary": "` + summary + `", "status": "` + status + `"}`}
}

func TestProcessArticleFoundsThreadWhenNoCandidates(t *testing.T) {
	client := &fakeLLM{
		completions: []llm.Completion{{Text: "A dam failed near Riverton."}},
		embeddings:  []llm.Embedding{{Vector: []float32{0, 1, 0, 0}}},
	}
	st := &fakeStore{existing: map[string]bool{}}
	e := newTestEngine(client, st)

	a := testArticle()
	res, err := e.ProcessArticle(context.Background(), &a)
	require.NoError(t, err)

	assert.False(t, res.Duplicate)
	assert.Empty(t, res.Joined)
	require.Len(t, st.creates, 1)
	assert.Equal(t, res.Created, st.creates[0].thread.ID)

	created := st.creates[0]
	assert.Equal(t, domain.StatusStarted, created.thread.Status)
	assert.Equal(t, a.Scope, created.thread.Scope)
	assert.Equal(t, "A dam failed near Riverton.", created.thread.Summary)
	assert.Equal(t, []float32{0, 1, 0, 0}, created.thread.Embedding)

	assert.Equal(t, domain.FoundingCosine, created.membership.Cosine)
	assert.Equal(t, domain.FoundingSimilarityScore, created.membership.Score)
	assert.Empty(t, created.membership.Justification)
	assert.True(t, created.membership.Founding())

	// A founding thread is backdated to the article's publication time.
	assert.Equal(t, a.PublishedAt, created.thread.CreatedAt)
	assert.Equal(t, a.PublishedAt, created.thread.UpdatedAt)
	assert.Equal(t, a.PublishedAt, created.membership.CreatedAt)

	require.Len(t, st.saved, 1)
	assert.Equal(t, st.saved[0].ID, created.membership.ArticleID)
}

func TestFoundingFallsBackToNowWithoutPublicationTime(t *testing.T) {
	client := &fakeLLM{
		completions: []llm.Completion{{Text: "Summary."}},
	}
	st := &fakeStore{existing: map[string]bool{}}
	e := newTestEngine(client, st)

	a := testArticle()
	a.PublishedAt = time.Time{}
	before := time.Now().UTC()
	_, err := e.ProcessArticle(context.Background(), &a)
	require.NoError(t, err)

	require.Len(t, st.creates, 1)
	created := st.creates[0].thread.CreatedAt
	assert.False(t, created.Before(before))
	assert.False(t, created.After(time.Now().UTC()))
}

func TestProcessArticleJoinsAcceptedThread(t *testing.T) {
	cand := candidate("Riverton flooding", "A dam failure flooded Riverton.", 0.9)
	client := &fakeLLM{
		completions: []llm.Completion{
			{Text: "Summary."},
			similarityJSON(85),
			updateJSON("Riverton dam disaster", "The dam failed and flooding continues.", "evolving"),
		},
	}
	st := &fakeStore{existing: map[string]bool{}, candidates: []store.ThreadMatch{cand}}
	e := newTestEngine(client, st)

	a := testArticle()
	res, err := e.ProcessArticle(context.Background(), &a)
	require.NoError(t, err)

	assert.Equal(t, []uuid.UUID{cand.Thread.ID}, res.Joined)
	assert.Equal(t, uuid.Nil, res.Created)
	assert.Empty(t, st.creates)

	require.Len(t, st.updates, 1)
	up := st.updates[0]
	assert.Equal(t, "Riverton dam disaster", up.thread.Title)
	assert.Equal(t, domain.StatusEvolving, up.thread.Status)
	assert.False(t, up.thread.UpdatedAt.IsZero())

	assert.Equal(t, 0.9, up.membership.Cosine)
	assert.Equal(t, 85, up.membership.Score)
	assert.Equal(t, "same event", up.membership.Justification)
	assert.False(t, up.membership.Founding())
}

func TestProcessArticleRejectsLowScoreAndFoundsThread(t *testing.T) {
	cand := candidate("Unrelated election", "Coverage of the city election.", 0.72)
	client := &fakeLLM{
		completions: []llm.Completion{
			{Text: "Summary."},
			similarityJSON(40),
		},
	}
	st := &fakeStore{existing: map[string]bool{}, candidates: []store.ThreadMatch{cand}}
	e := newTestEngine(client, st)

	a := testArticle()
	res, err := e.ProcessArticle(context.Background(), &a)
	require.NoError(t, err)

	assert.Empty(t, res.Joined)
	assert.Empty(t, st.updates)
	require.Len(t, st.creates, 1)
}

func TestProcessArticleJoinsMultipleThreads(t *testing.T) {
	first := candidate("Riverton flooding", "Dam failure coverage.", 0.95)
	second := candidate("Regional infrastructure failures", "Aging dams across the region.", 0.8)
	client := &fakeLLM{
		completions: []llm.Completion{
			{Text: "Summary."},
			similarityJSON(90),
			similarityJSON(75),
			updateJSON("T1", "S1", "evolving"),
			updateJSON("T2", "S2", "evolving"),
		},
	}
	st := &fakeStore{existing: map[string]bool{}, candidates: []store.ThreadMatch{first, second}}
	e := newTestEngine(client, st)

	a := testArticle()
	res, err := e.ProcessArticle(context.Background(), &a)
	require.NoError(t, err)

	assert.Equal(t, []uuid.UUID{first.Thread.ID, second.Thread.ID}, res.Joined)
	assert.Len(t, st.updates, 2)
	assert.Empty(t, st.creates)
}

func TestProcessArticleSkipsDuplicateURL(t *testing.T) {
	client := &fakeLLM{}
	st := &fakeStore{existing: map[string]bool{"https://example.com/dam-breaks": true}}
	e := newTestEngine(client, st)

	a := testArticle()
	res, err := e.ProcessArticle(context.Background(), &a)
	require.NoError(t, err)

	assert.True(t, res.Duplicate)
	assert.Empty(t, client.completePrompts)
	assert.Empty(t, st.saved)
}

func TestAdjudicationRecoversWithinRetryBudget(t *testing.T) {
	cand := candidate("Riverton flooding", "Dam failure coverage.", 0.9)
	client := &fakeLLM{
		completions: []llm.Completion{
			{Text: "Summary."},
			{Text: "not json at all"},
			{Text: `{"llm_similarity_score": 90}`}, // missing justification
			similarityJSON(90),
			updateJSON("T", "S", "evolving"),
		},
	}
	st := &fakeStore{existing: map[string]bool{}, candidates: []store.ThreadMatch{cand}}
	e := newTestEngine(client, st)

	a := testArticle()
	res, err := e.ProcessArticle(context.Background(), &a)
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{cand.Thread.ID}, res.Joined)
}

func TestAdjudicationExhaustedRetriesIsFatal(t *testing.T) {
	cand := candidate("Riverton flooding", "Dam failure coverage.", 0.9)
	client := &fakeLLM{
		completions: []llm.Completion{
			{Text: "Summary."},
			{Text: "garbage one"},
			{Text: "garbage two"},
			{Text: "garbage three"},
		},
	}
	st := &fakeStore{existing: map[string]bool{}, candidates: []store.ThreadMatch{cand}}
	e := newTestEngine(client, st)

	a := testArticle()
	_, err := e.ProcessArticle(context.Background(), &a)
	require.Error(t, err)
	assert.ErrorIs(t, err, llmjson.ErrInvalidResponse)
	assert.Empty(t, st.updates)
	assert.Empty(t, st.creates)
}

func TestAdjudicationOutOfRangeScoreIsRetried(t *testing.T) {
	cand := candidate("Riverton flooding", "Dam failure coverage.", 0.9)
	client := &fakeLLM{
		completions: []llm.Completion{
			{Text: "Summary."},
			similarityJSON(150),
			similarityJSON(90),
			updateJSON("T", "S", "evolving"),
		},
	}
	st := &fakeStore{existing: map[string]bool{}, candidates: []store.ThreadMatch{cand}}
	e := newTestEngine(client, st)

	a := testArticle()
	res, err := e.ProcessArticle(context.Background(), &a)
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{cand.Thread.ID}, res.Joined)
}

func TestBlockedAdjudicationSkipsCandidateWithoutRetry(t *testing.T) {
	blocked := candidate("Sensitive thread", "Filtered coverage.", 0.95)
	clean := candidate("Riverton flooding", "Dam failure coverage.", 0.85)
	client := &fakeLLM{
		completions: []llm.Completion{
			{Text: "Summary."},
			{Blocked: true, BlockReason: "content filter"},
			similarityJSON(80),
			updateJSON("T", "S", "evolving"),
		},
	}
	st := &fakeStore{existing: map[string]bool{}, candidates: []store.ThreadMatch{blocked, clean}}
	e := newTestEngine(client, st)

	a := testArticle()
	res, err := e.ProcessArticle(context.Background(), &a)
	require.NoError(t, err)

	assert.Equal(t, []uuid.UUID{clean.Thread.ID}, res.Joined)
	// summarize + one blocked attempt + one clean adjudication + one update
	assert.Len(t, client.completePrompts, 4)
}

func TestBlockedSummaryStoresZeroVectorAndFoundsBlockedThread(t *testing.T) {
	client := &fakeLLM{
		completions: []llm.Completion{{Blocked: true, BlockReason: "safety"}},
	}
	st := &fakeStore{existing: map[string]bool{}}
	e := newTestEngine(client, st)

	a := testArticle()
	_, err := e.ProcessArticle(context.Background(), &a)
	require.NoError(t, err)

	require.Len(t, st.saved, 1)
	saved := st.saved[0]
	assert.True(t, saved.Blocked)
	assert.Equal(t, "safety", saved.BlockedReason)
	assert.Empty(t, saved.Summary)
	assert.Equal(t, []float32{0, 0, 0, 0}, saved.Embedding)
	assert.Empty(t, client.embedTexts)

	require.Len(t, st.creates, 1)
	assert.True(t, st.creates[0].thread.Blocked)
}

func TestBlockedEmbeddingKeepsSummary(t *testing.T) {
	client := &fakeLLM{
		completions: []llm.Completion{{Text: "A fine summary."}},
		embeddings:  []llm.Embedding{{Blocked: true, BlockReason: "policy"}},
	}
	st := &fakeStore{existing: map[string]bool{}}
	e := newTestEngine(client, st)

	a := testArticle()
	_, err := e.ProcessArticle(context.Background(), &a)
	require.NoError(t, err)

	require.Len(t, st.saved, 1)
	saved := st.saved[0]
	assert.Equal(t, "A fine summary.", saved.Summary)
	assert.True(t, saved.Blocked)
	assert.Equal(t, "policy", saved.BlockedReason)
	assert.Equal(t, []float32{0, 0, 0, 0}, saved.Embedding)
}

func TestBlockedThreadUpdateKeepsFieldsAndRecordsMembership(t *testing.T) {
	cand := candidate("Riverton flooding", "Dam failure coverage.", 0.9)
	client := &fakeLLM{
		completions: []llm.Completion{
			{Text: "Summary."},
			similarityJSON(88),
			{Blocked: true, BlockReason: "prohibited"},
		},
	}
	st := &fakeStore{existing: map[string]bool{}, candidates: []store.ThreadMatch{cand}}
	e := newTestEngine(client, st)

	a := testArticle()
	res, err := e.ProcessArticle(context.Background(), &a)
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{cand.Thread.ID}, res.Joined)

	require.Len(t, st.updates, 1)
	up := st.updates[0]
	assert.Equal(t, cand.Thread.Title, up.thread.Title)
	assert.Equal(t, cand.Thread.Summary, up.thread.Summary)
	assert.Equal(t, cand.Thread.Embedding, up.thread.Embedding)
	assert.True(t, up.thread.Blocked)
	assert.Equal(t, "prohibited", up.thread.BlockedReason)
	assert.Equal(t, 88, up.membership.Score)
}

func TestBlockedThreadReembeddingKeepsPreviousEmbedding(t *testing.T) {
	cand := candidate("Riverton flooding", "Dam failure coverage.", 0.9)
	client := &fakeLLM{
		completions: []llm.Completion{
			{Text: "Summary."},
			similarityJSON(88),
			updateJSON("New title", "New summary", "likely resolved"),
		},
		embeddings: []llm.Embedding{
			{Vector: []float32{0, 1, 0, 0}},             // article embedding
			{Blocked: true, BlockReason: "content_filter"}, // thread re-embedding
		},
	}
	st := &fakeStore{existing: map[string]bool{}, candidates: []store.ThreadMatch{cand}}
	e := newTestEngine(client, st)

	a := testArticle()
	_, err := e.ProcessArticle(context.Background(), &a)
	require.NoError(t, err)

	require.Len(t, st.updates, 1)
	up := st.updates[0]
	assert.Equal(t, "New title", up.thread.Title)
	assert.Equal(t, domain.StatusLikelyResolved, up.thread.Status)
	assert.Equal(t, cand.Thread.Embedding, up.thread.Embedding)
	assert.True(t, up.thread.Blocked)
}

func TestThreadUpdateRejectsInvalidStatus(t *testing.T) {
	cand := candidate("Riverton flooding", "Dam failure coverage.", 0.9)
	client := &fakeLLM{
		completions: []llm.Completion{
			{Text: "Summary."},
			similarityJSON(88),
			updateJSON("T", "S", "started"), // engine never writes started on update
			updateJSON("T", "S", "evolving"),
		},
	}
	st := &fakeStore{existing: map[string]bool{}, candidates: []store.ThreadMatch{cand}}
	e := newTestEngine(client, st)

	a := testArticle()
	_, err := e.ProcessArticle(context.Background(), &a)
	require.NoError(t, err)

	require.Len(t, st.updates, 1)
	assert.Equal(t, domain.StatusEvolving, st.updates[0].thread.Status)
}

func TestRunContinuesPastFailedArticle(t *testing.T) {
	cand := candidate("Riverton flooding", "Dam failure coverage.", 0.9)
	client := &fakeLLM{
		completions: []llm.Completion{
			// first article: adjudication never parses
			{Text: "Summary."},
			{Text: "bad"}, {Text: "bad"}, {Text: "bad"},
			// second article: clean path, no candidates consulted after failure reset
			{Text: "Summary."},
			similarityJSON(90),
			updateJSON("T", "S", "evolving"),
		},
	}
	st := &fakeStore{existing: map[string]bool{}, candidates: []store.ThreadMatch{cand}}
	e := newTestEngine(client, st)

	first := testArticle()
	second := testArticle()
	second.URL = "https://example.com/dam-breaks-followup"

	sum, err := e.Run(context.Background(), []domain.Article{first, second})
	require.NoError(t, err)
	assert.Equal(t, 1, sum.Failed)
	assert.Equal(t, 1, sum.Processed)
	assert.Equal(t, 0, sum.Skipped)
}

func TestRunCountsDuplicatesAsSkipped(t *testing.T) {
	client := &fakeLLM{}
	st := &fakeStore{existing: map[string]bool{"https://example.com/dam-breaks": true}}
	e := newTestEngine(client, st)

	sum, err := e.Run(context.Background(), []domain.Article{testArticle()})
	require.NoError(t, err)
	assert.Equal(t, Summary{Skipped: 1}, sum)
}
