package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"newsthreads/internal/domain"
)

// ThreadQuery holds the dashboard's listing parameters. Sort column and
// direction are validated against whitelists before reaching SQL.
type ThreadQuery struct {
	Status   string // "", "started", "evolving", "likely resolved", "stale"
	SortBy   string // "created_at" or "updated_at"
	Order    string // "asc" or "desc"
	Page     int    // 1-based
	PerPage  int
	StaleAge time.Duration // threads untouched longer than this count as stale
}

var sortColumns = map[string]string{
	"created_at": "created_at",
	"updated_at": "updated_at",
}

// Normalize fills in defaults and rejects values outside the whitelists.
func (q *ThreadQuery) Normalize() error {
	if q.SortBy == "" {
		q.SortBy = "updated_at"
	}
	if _, ok := sortColumns[q.SortBy]; !ok {
		return fmt.Errorf("store: invalid sort column %q", q.SortBy)
	}
	switch q.Order {
	case "":
		q.Order = "desc"
	case "asc", "desc":
	default:
		return fmt.Errorf("store: invalid sort order %q", q.Order)
	}
	switch q.Status {
	case "", string(domain.StatusStale):
	default:
		if !domain.ThreadStatus(q.Status).Valid() {
			return fmt.Errorf("store: invalid status filter %q", q.Status)
		}
	}
	if q.Page < 1 {
		q.Page = 1
	}
	if q.PerPage < 1 {
		q.PerPage = 20
	}
	if q.StaleAge <= 0 {
		q.StaleAge = 7 * 24 * time.Hour
	}
	return nil
}

// ThreadPage is one page of dashboard results.
type ThreadPage struct {
	Threads []domain.Thread
	Total   int
	Page    int
	PerPage int
	Pages   int
}

// ListThreads returns a page of threads for the dashboard. The "stale"
// filter is a read-side view over updated_at; no such status is stored.
func (s *Store) ListThreads(ctx context.Context, q ThreadQuery) (*ThreadPage, error) {
	if err := q.Normalize(); err != nil {
		return nil, err
	}

	where := "TRUE"
	args := []any{}
	switch q.Status {
	case "":
	case string(domain.StatusStale):
		args = append(args, time.Now().Add(-q.StaleAge))
		where = fmt.Sprintf("updated_at < $%d", len(args))
	default:
		args = append(args, q.Status)
		where = fmt.Sprintf("status = $%d", len(args))
	}

	var total int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM threads WHERE `+where, args...).Scan(&total)
	if err != nil {
		return nil, fmt.Errorf("store: count threads: %w", err)
	}

	offset := (q.Page - 1) * q.PerPage
	args = append(args, q.PerPage, offset)
	query := fmt.Sprintf(`
SELECT uuid, category, country, language, llm_title, llm_summary,
       status, llm_blocked, llm_blocked_reason, created_at, updated_at
FROM threads
WHERE %s
ORDER BY %s %s
LIMIT $%d OFFSET $%d`,
		where, sortColumns[q.SortBy], q.Order, len(args)-1, len(args))

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("store: list threads: %w", err)
	}
	defer rows.Close()

	page := &ThreadPage{Total: total, Page: q.Page, PerPage: q.PerPage}
	for rows.Next() {
		var t domain.Thread
		err := rows.Scan(
			&t.ID,
			&t.Scope.Category, &t.Scope.Country, &t.Scope.Language,
			&t.Title, &t.Summary,
			&t.Status, &t.Blocked, &t.BlockedReason,
			&t.CreatedAt, &t.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("store: scan thread: %w", err)
		}
		page.Threads = append(page.Threads, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: iterate threads: %w", err)
	}
	page.Pages = (total + q.PerPage - 1) / q.PerPage
	return page, nil
}

// ThreadArticle is an article as shown inside a dashboard thread, with
// its membership evidence alongside.
type ThreadArticle struct {
	Article    domain.Article
	Membership domain.Membership
	Founding   bool
}

// ThreadArticles returns a thread's member articles, strongest evidence
// first: adjudicated score, then cosine.
func (s *Store) ThreadArticles(ctx context.Context, threadID uuid.UUID) ([]ThreadArticle, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT n.uuid, n.category, n.country, n.language, n.title, n.description,
       n.url, n.image, n.published_at, n.source_name, n.source_url,
       n.llm_summary, n.llm_blocked, n.llm_blocked_reason,
       tn.embedding_cos_similarity, tn.llm_similarity_score,
       tn.llm_similarity_justification, tn.created_at
FROM threads_to_news tn
JOIN news n ON n.uuid = tn.news_uuid
WHERE tn.thread_uuid = $1
ORDER BY tn.llm_similarity_score DESC, tn.embedding_cos_similarity DESC`,
		threadID)
	if err != nil {
		return nil, fmt.Errorf("store: thread articles: %w", err)
	}
	defer rows.Close()

	var out []ThreadArticle
	for rows.Next() {
		ta := ThreadArticle{Membership: domain.Membership{ThreadID: threadID}}
		a := &ta.Article
		m := &ta.Membership
		err := rows.Scan(
			&a.ID,
			&a.Scope.Category, &a.Scope.Country, &a.Scope.Language,
			&a.Title, &a.Description,
			&a.URL, &a.Image, &a.PublishedAt, &a.SourceName, &a.SourceURL,
			&a.Summary, &a.Blocked, &a.BlockedReason,
			&m.Cosine, &m.Score, &m.Justification, &m.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("store: scan thread article: %w", err)
		}
		m.ArticleID = a.ID
		ta.Founding = m.Founding()
		out = append(out, ta)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: iterate thread articles: %w", err)
	}
	return out, nil
}

// StatusCounts returns how many threads carry each stored status.
func (s *Store) StatusCounts(ctx context.Context) (map[string]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT status, COUNT(*) FROM threads GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("store: status counts: %w", err)
	}
	defer rows.Close()

	counts := map[string]int{}
	for rows.Next() {
		var (
			status string
			n      int
		)
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("store: scan status count: %w", err)
		}
		counts[status] = n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: iterate status counts: %w", err)
	}
	return counts, nil
}
