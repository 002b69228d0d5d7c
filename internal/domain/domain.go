// Package domain defines the persisted entities of the news-thread system.
package domain

import (
	"time"

	"github.com/google/uuid"
)

// ThreadStatus tracks how far along a story thread is.
type ThreadStatus string

const (
	// StatusStarted is assigned when a thread is created from its first article.
	StatusStarted ThreadStatus = "started"
	// StatusEvolving means the story is still developing.
	StatusEvolving ThreadStatus = "evolving"
	// StatusLikelyResolved means the latest article likely concludes the story.
	StatusLikelyResolved ThreadStatus = "likely resolved"
	// StatusStale is a display-layer value; the ingestion engine never assigns it.
	StatusStale ThreadStatus = "stale"
)

// Valid reports whether s is a status the engine may write.
func (s ThreadStatus) Valid() bool {
	switch s {
	case StatusStarted, StatusEvolving, StatusLikelyResolved:
		return true
	}
	return false
}

// Scope is the identity key shared by articles and threads. It is not
// unique per thread; many threads live in the same scope.
type Scope struct {
	Category string
	Country  string
	Language string
}

// Article is an ingested news item. The URL is globally unique and acts
// as the idempotency key; rows are never mutated after insert.
type Article struct {
	ID          uuid.UUID
	Scope       Scope
	Title       string
	Description string
	Content     string
	URL         string
	Image       string
	PublishedAt time.Time
	SourceName  string
	SourceURL   string

	Summary   string
	Embedding []float32

	Blocked       bool
	BlockedReason string
}

// Thread is an evolving cluster of related articles.
type Thread struct {
	ID        uuid.UUID
	Scope     Scope
	Title     string
	Summary   string
	Embedding []float32
	Status    ThreadStatus

	Blocked       bool
	BlockedReason string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Membership bounds for adjudicated scores. A founding membership carries
// the sentinel values instead, so it can never collide with a judged one.
const (
	MaxSimilarityScore      = 100
	FoundingSimilarityScore = 101
	FoundingCosine          = 1.0
)

// Membership records why an article was attached to a thread.
// Memberships are append-only and many-to-many.
type Membership struct {
	ThreadID      uuid.UUID
	ArticleID     uuid.UUID
	Cosine        float64
	Score         int
	Justification string
	CreatedAt     time.Time
}

// Founding reports whether this membership seeded its thread.
func (m Membership) Founding() bool {
	return m.Score == FoundingSimilarityScore
}
