package store

import (
	"context"
	"fmt"
)

// Setup provisions the schema: the pgvector extension, the three tables,
// and their indexes. Every statement is idempotent, and the additive
// patches at the end bring pre-existing installations up to date.
func (s *Store) Setup(ctx context.Context, embeddingDimensions int) error {
	statements := []string{
		`CREATE EXTENSION IF NOT EXISTS vector`,

		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS news (
  uuid UUID PRIMARY KEY DEFAULT gen_random_uuid(),
  category TEXT NOT NULL,
  country TEXT NOT NULL,
  language TEXT NOT NULL,
  title TEXT NOT NULL DEFAULT '',
  description TEXT NOT NULL DEFAULT '',
  content TEXT NOT NULL DEFAULT '',
  url TEXT NOT NULL UNIQUE,
  image TEXT NOT NULL DEFAULT '',
  published_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
  source_name TEXT NOT NULL DEFAULT '',
  source_url TEXT NOT NULL DEFAULT '',
  llm_summary TEXT NOT NULL DEFAULT '',
  llm_embedding vector(%d) NOT NULL,
  llm_blocked BOOLEAN NOT NULL DEFAULT FALSE,
  llm_blocked_reason TEXT NOT NULL DEFAULT '',
  created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
)`, embeddingDimensions),

		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS threads (
  uuid UUID PRIMARY KEY DEFAULT gen_random_uuid(),
  category TEXT NOT NULL,
  country TEXT NOT NULL,
  language TEXT NOT NULL,
  llm_title TEXT NOT NULL DEFAULT '',
  llm_summary TEXT NOT NULL DEFAULT '',
  llm_embedding vector(%d) NOT NULL,
  status TEXT NOT NULL DEFAULT 'started',
  created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
  updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
  llm_blocked BOOLEAN NOT NULL DEFAULT FALSE,
  llm_blocked_reason TEXT NOT NULL DEFAULT ''
)`, embeddingDimensions),

		`CREATE TABLE IF NOT EXISTS threads_to_news (
  thread_uuid UUID NOT NULL REFERENCES threads(uuid),
  news_uuid UUID NOT NULL REFERENCES news(uuid),
  embedding_cos_similarity DOUBLE PRECISION NOT NULL,
  llm_similarity_score INTEGER NOT NULL,
  llm_similarity_justification TEXT NOT NULL DEFAULT '',
  created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
  PRIMARY KEY (thread_uuid, news_uuid)
)`,

		`CREATE INDEX IF NOT EXISTS idx_threads_scope ON threads (category, country, language)`,
		`CREATE INDEX IF NOT EXISTS idx_threads_status ON threads (status)`,
		`CREATE INDEX IF NOT EXISTS idx_threads_to_news_thread ON threads_to_news (thread_uuid)`,
		`CREATE INDEX IF NOT EXISTS idx_threads_to_news_news ON threads_to_news (news_uuid)`,

		// Additive patches for installations that predate blocked tracking.
		`ALTER TABLE news ADD COLUMN IF NOT EXISTS llm_blocked BOOLEAN NOT NULL DEFAULT FALSE`,
		`ALTER TABLE news ADD COLUMN IF NOT EXISTS llm_blocked_reason TEXT NOT NULL DEFAULT ''`,
		`ALTER TABLE threads ADD COLUMN IF NOT EXISTS llm_blocked BOOLEAN NOT NULL DEFAULT FALSE`,
		`ALTER TABLE threads ADD COLUMN IF NOT EXISTS llm_blocked_reason TEXT NOT NULL DEFAULT ''`,
	}

	for _, stmt := range statements {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("store: setup schema: %w", err)
		}
	}
	return nil
}
