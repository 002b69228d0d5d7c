// Package store persists articles, threads, and memberships in Postgres.
// Thread retrieval relies on the pgvector extension; embeddings cross the
// wire in pgvector's textual bracketed-list format.
package store

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib"

	"newsthreads/internal/domain"
)

// Store wraps the SQL connection pool.
type Store struct {
	db *sql.DB
}

// Open connects to Postgres through the pgx stdlib driver.
func Open(dsn string) (*Store, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("store: open db: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }

// ArticleExists reports whether an article with this URL was already
// ingested. URL equality is the only deduplication the system performs.
func (s *Store) ArticleExists(ctx context.Context, url string) (bool, error) {
	var id string
	err := s.db.QueryRowContext(ctx, `SELECT uuid FROM news WHERE url = $1`, url).Scan(&id)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("store: check article url: %w", err)
	}
	return true, nil
}

// SaveArticle inserts the article and fills in its generated id.
// The insert is its own all-or-nothing unit.
func (s *Store) SaveArticle(ctx context.Context, a *domain.Article) error {
	err := s.db.QueryRowContext(ctx, `
INSERT INTO news (category, country, language, title, description, content, url, image,
                  published_at, source_name, source_url, llm_summary, llm_embedding,
                  llm_blocked, llm_blocked_reason)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13::vector,$14,$15)
RETURNING uuid`,
		a.Scope.Category, a.Scope.Country, a.Scope.Language,
		a.Title, a.Description, a.Content, a.URL, a.Image,
		a.PublishedAt, a.SourceName, a.SourceURL,
		a.Summary, EncodeVector(a.Embedding),
		a.Blocked, a.BlockedReason,
	).Scan(&a.ID)
	if err != nil {
		return fmt.Errorf("store: insert article: %w", err)
	}
	return nil
}

// ThreadMatch is a candidate thread returned by vector retrieval,
// together with its cosine similarity to the probe embedding.
type ThreadMatch struct {
	Thread domain.Thread
	Cosine float64
}

// SearchThreads returns up to limit threads in the given scope whose
// cosine similarity to the embedding meets the threshold, most similar
// first. This is a recall-oriented pre-filter; a hit is not a match.
func (s *Store) SearchThreads(ctx context.Context, scope domain.Scope, embedding []float32, threshold float64, limit int) ([]ThreadMatch, error) {
	probe := EncodeVector(embedding)
	rows, err := s.db.QueryContext(ctx, `
SELECT uuid, category, country, language, llm_title, llm_summary, llm_embedding::text,
       status, llm_blocked, llm_blocked_reason, created_at, updated_at,
       1 - (llm_embedding <=> $1::vector) AS cosine_similarity
FROM threads
WHERE category = $2 AND country = $3 AND language = $4
  AND 1 - (llm_embedding <=> $1::vector) >= $5
ORDER BY cosine_similarity DESC
LIMIT $6`,
		probe, scope.Category, scope.Country, scope.Language, threshold, limit)
	if err != nil {
		return nil, fmt.Errorf("store: search threads: %w", err)
	}
	defer rows.Close()

	var matches []ThreadMatch
	for rows.Next() {
		var (
			m   ThreadMatch
			raw string
		)
		err := rows.Scan(
			&m.Thread.ID,
			&m.Thread.Scope.Category, &m.Thread.Scope.Country, &m.Thread.Scope.Language,
			&m.Thread.Title, &m.Thread.Summary, &raw,
			&m.Thread.Status, &m.Thread.Blocked, &m.Thread.BlockedReason,
			&m.Thread.CreatedAt, &m.Thread.UpdatedAt,
			&m.Cosine,
		)
		if err != nil {
			return nil, fmt.Errorf("store: scan thread match: %w", err)
		}
		if m.Thread.Embedding, err = DecodeVector(raw); err != nil {
			return nil, fmt.Errorf("store: thread %s: %w", m.Thread.ID, err)
		}
		matches = append(matches, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: iterate thread matches: %w", err)
	}
	return matches, nil
}

// ApplyThreadUpdate writes the mutated thread and its new membership row
// in one transaction. A fault rolls back both.
func (s *Store) ApplyThreadUpdate(ctx context.Context, thread domain.Thread, m domain.Membership) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
UPDATE threads
SET llm_title = $1, llm_summary = $2, llm_embedding = $3::vector, status = $4,
    updated_at = $5, llm_blocked = $6, llm_blocked_reason = $7
WHERE uuid = $8`,
			thread.Title, thread.Summary, EncodeVector(thread.Embedding), thread.Status,
			thread.UpdatedAt, thread.Blocked, thread.BlockedReason, thread.ID)
		if err != nil {
			return fmt.Errorf("store: update thread %s: %w", thread.ID, err)
		}
		return insertMembership(ctx, tx, m)
	})
}

// CreateThread inserts a new thread plus its founding membership in one
// transaction, filling in the generated thread id.
func (s *Store) CreateThread(ctx context.Context, thread *domain.Thread, m *domain.Membership) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		err := tx.QueryRowContext(ctx, `
INSERT INTO threads (category, country, language, llm_title, llm_summary, llm_embedding,
                     status, created_at, updated_at, llm_blocked, llm_blocked_reason)
VALUES ($1,$2,$3,$4,$5,$6::vector,$7,$8,$9,$10,$11)
RETURNING uuid`,
			thread.Scope.Category, thread.Scope.Country, thread.Scope.Language,
			thread.Title, thread.Summary, EncodeVector(thread.Embedding),
			thread.Status, thread.CreatedAt, thread.UpdatedAt,
			thread.Blocked, thread.BlockedReason,
		).Scan(&thread.ID)
		if err != nil {
			return fmt.Errorf("store: insert thread: %w", err)
		}
		m.ThreadID = thread.ID
		return insertMembership(ctx, tx, *m)
	})
}

func insertMembership(ctx context.Context, tx *sql.Tx, m domain.Membership) error {
	_, err := tx.ExecContext(ctx, `
INSERT INTO threads_to_news (thread_uuid, news_uuid, embedding_cos_similarity,
                             llm_similarity_score, llm_similarity_justification, created_at)
VALUES ($1,$2,$3,$4,$5,$6)`,
		m.ThreadID, m.ArticleID, m.Cosine, m.Score, m.Justification, m.CreatedAt)
	if err != nil {
		return fmt.Errorf("store: insert membership: %w", err)
	}
	return nil
}

func (s *Store) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("store: begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("store: commit tx: %w", err)
	}
	return nil
}
