// Package webui serves the read-only thread dashboard: an HTML listing
// plus a small JSON API over the same queries. It never writes to the
// store.
package webui

import (
	"context"
	"encoding/json"
	"html/template"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"newsthreads/internal/config"
	"newsthreads/internal/domain"
	"newsthreads/internal/store"
)

// Reader is the read-only store surface the dashboard consumes.
type Reader interface {
	ListThreads(ctx context.Context, q store.ThreadQuery) (*store.ThreadPage, error)
	ThreadArticles(ctx context.Context, threadID uuid.UUID) ([]store.ThreadArticle, error)
	StatusCounts(ctx context.Context) (map[string]int, error)
	Ping(ctx context.Context) error
}

type Server struct {
	reader Reader
	cfg    config.WebUI
	log    zerolog.Logger
	tmpl   *template.Template
}

func NewServer(reader Reader, cfg config.WebUI, log zerolog.Logger) *Server {
	return &Server{
		reader: reader,
		cfg:    cfg,
		log:    log,
		tmpl:   template.Must(template.New("index").Parse(indexTemplate)),
	}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	r.Get("/", s.handleIndex)
	r.Get("/health", s.handleHealth)
	r.Route("/api", func(r chi.Router) {
		r.Get("/threads", s.handleListThreads)
		r.Get("/threads/{id}", s.handleThreadDetail)
		r.Get("/status-counts", s.handleStatusCounts)
	})
	return r
}

func (s *Server) queryFromRequest(r *http.Request) store.ThreadQuery {
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	return store.ThreadQuery{
		Status:  q.Get("status"),
		SortBy:  q.Get("sort_by"),
		Order:   q.Get("order"),
		Page:    page,
		PerPage: s.cfg.PageSize,
	}
}

type indexData struct {
	Page    *store.ThreadPage
	Counts  map[string]int
	Status  string
	SortBy  string
	Order   string
	HasPrev bool
	HasNext bool
	Prev    int
	Next    int
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	q := s.queryFromRequest(r)
	page, err := s.reader.ListThreads(r.Context(), q)
	if err != nil {
		s.renderError(w, err)
		return
	}
	counts, err := s.reader.StatusCounts(r.Context())
	if err != nil {
		s.renderError(w, err)
		return
	}
	data := indexData{
		Page:    page,
		Counts:  counts,
		Status:  q.Status,
		SortBy:  q.SortBy,
		Order:   q.Order,
		HasPrev: page.Page > 1,
		HasNext: page.Page < page.Pages,
		Prev:    page.Page - 1,
		Next:    page.Page + 1,
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.tmpl.Execute(w, data); err != nil {
		s.log.Error().Err(err).Msg("render index")
	}
}

// threadJSON is the API shape for one thread.
type threadJSON struct {
	ID        string    `json:"id"`
	Category  string    `json:"category"`
	Country   string    `json:"country"`
	Language  string    `json:"language"`
	Title     string    `json:"title"`
	Summary   string    `json:"summary"`
	Status    string    `json:"status"`
	Blocked   bool      `json:"blocked"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func toThreadJSON(t domain.Thread) threadJSON {
	return threadJSON{
		ID:        t.ID.String(),
		Category:  t.Scope.Category,
		Country:   t.Scope.Country,
		Language:  t.Scope.Language,
		Title:     t.Title,
		Summary:   t.Summary,
		Status:    string(t.Status),
		Blocked:   t.Blocked,
		CreatedAt: t.CreatedAt,
		UpdatedAt: t.UpdatedAt,
	}
}

func (s *Server) handleListThreads(w http.ResponseWriter, r *http.Request) {
	page, err := s.reader.ListThreads(r.Context(), s.queryFromRequest(r))
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}
	threads := make([]threadJSON, 0, len(page.Threads))
	for _, t := range page.Threads {
		threads = append(threads, toThreadJSON(t))
	}
	s.writeJSON(w, map[string]any{
		"threads":  threads,
		"total":    page.Total,
		"page":     page.Page,
		"per_page": page.PerPage,
		"pages":    page.Pages,
	})
}

type memberJSON struct {
	ArticleID     string    `json:"article_id"`
	Title         string    `json:"title"`
	URL           string    `json:"url"`
	Summary       string    `json:"summary"`
	PublishedAt   time.Time `json:"published_at"`
	SourceName    string    `json:"source_name"`
	Cosine        float64   `json:"cosine_similarity"`
	Score         int       `json:"similarity_score"`
	Justification string    `json:"justification"`
	Founding      bool      `json:"founding"`
}

func (s *Server) handleThreadDetail(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}
	articles, err := s.reader.ThreadArticles(r.Context(), id)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	members := make([]memberJSON, 0, len(articles))
	for _, ta := range articles {
		members = append(members, memberJSON{
			ArticleID:     ta.Article.ID.String(),
			Title:         ta.Article.Title,
			URL:           ta.Article.URL,
			Summary:       ta.Article.Summary,
			PublishedAt:   ta.Article.PublishedAt,
			SourceName:    ta.Article.SourceName,
			Cosine:        ta.Membership.Cosine,
			Score:         ta.Membership.Score,
			Justification: ta.Membership.Justification,
			Founding:      ta.Founding,
		})
	}
	s.writeJSON(w, map[string]any{"thread_id": id.String(), "articles": members})
}

func (s *Server) handleStatusCounts(w http.ResponseWriter, r *http.Request) {
	counts, err := s.reader.StatusCounts(r.Context())
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	s.writeJSON(w, counts)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.reader.Ping(r.Context()); err != nil {
		s.writeError(w, http.StatusServiceUnavailable, err)
		return
	}
	s.writeJSON(w, map[string]string{"status": "ok"})
}

func (s *Server) writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Error().Err(err).Msg("encode response")
	}
}

func (s *Server) writeError(w http.ResponseWriter, code int, err error) {
	s.log.Error().Err(err).Int("code", code).Msg("request failed")
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
}

func (s *Server) renderError(w http.ResponseWriter, err error) {
	s.log.Error().Err(err).Msg("request failed")
	http.Error(w, "internal error", http.StatusInternalServerError)
}
