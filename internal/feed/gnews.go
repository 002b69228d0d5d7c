// Package feed fetches articles from the GNews top-headlines API.
// It is a plain collaborator: pagination and in-batch URL dedupe live
// here, while persistence-level dedupe belongs to the engine.
package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"newsthreads/internal/config"
	"newsthreads/internal/domain"
)

const defaultBaseURL = "https://gnews.io/api/v4"

// pageInterval spaces page requests to stay inside the GNews rate limit.
const pageInterval = time.Second

// Client pulls top headlines per category.
type Client struct {
	cfg     config.Feed
	baseURL string
	http    *http.Client
	limiter *rate.Limiter
	log     zerolog.Logger
}

func NewClient(cfg config.Feed, log zerolog.Logger) *Client {
	return &Client{
		cfg:     cfg,
		baseURL: defaultBaseURL,
		http:    &http.Client{Timeout: 30 * time.Second},
		limiter: rate.NewLimiter(rate.Every(pageInterval), 1),
		log:     log,
	}
}

type apiResponse struct {
	TotalArticles int          `json:"totalArticles"`
	Articles      []apiArticle `json:"articles"`
}

type apiArticle struct {
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Content     string    `json:"content"`
	URL         string    `json:"url"`
	Image       string    `json:"image"`
	PublishedAt time.Time `json:"publishedAt"`
	Source      struct {
		Name string `json:"name"`
		URL  string `json:"url"`
	} `json:"source"`
}

// FetchAll pulls every configured category and concatenates the results.
// The URL dedupe set spans categories: a story surfacing under two
// categories is fetched once.
func (c *Client) FetchAll(ctx context.Context) ([]domain.Article, error) {
	seen := map[string]bool{}
	var all []domain.Article
	for _, category := range c.cfg.Categories {
		articles, err := c.fetchCategory(ctx, category, seen)
		if err != nil {
			return all, fmt.Errorf("feed: category %s: %w", category, err)
		}
		all = append(all, articles...)
	}
	return all, nil
}

// FetchCategory pages through one category's headlines. Paging stops on
// an empty page, a page contributing no unseen URLs, or the per-category
// cap.
func (c *Client) FetchCategory(ctx context.Context, category string) ([]domain.Article, error) {
	return c.fetchCategory(ctx, category, map[string]bool{})
}

func (c *Client) fetchCategory(ctx context.Context, category string, seen map[string]bool) ([]domain.Article, error) {
	var out []domain.Article

	for page := 1; len(out) < c.cfg.MaxPerCategory; page++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return out, err
		}
		batch, err := c.fetchPage(ctx, category, page)
		if err != nil {
			return out, err
		}
		if len(batch) == 0 {
			break
		}

		added := 0
		for _, raw := range batch {
			if raw.URL == "" || seen[raw.URL] {
				continue
			}
			seen[raw.URL] = true
			out = append(out, domain.Article{
				Scope: domain.Scope{
					Category: category,
					Country:  c.cfg.Country,
					Language: c.cfg.Language,
				},
				Title:       raw.Title,
				Description: raw.Description,
				Content:     raw.Content,
				URL:         raw.URL,
				Image:       raw.Image,
				PublishedAt: raw.PublishedAt,
				SourceName:  raw.Source.Name,
				SourceURL:   raw.Source.URL,
			})
			added++
			if len(out) >= c.cfg.MaxPerCategory {
				break
			}
		}
		if added == 0 {
			break
		}
		c.log.Debug().Str("category", category).Int("page", page).Int("added", added).Msg("fetched headlines page")
	}
	return out, nil
}

func (c *Client) fetchPage(ctx context.Context, category string, page int) ([]apiArticle, error) {
	q := url.Values{}
	q.Set("category", category)
	q.Set("lang", c.cfg.Language)
	q.Set("country", c.cfg.Country)
	q.Set("max", strconv.Itoa(c.cfg.MaxPerPage))
	q.Set("page", strconv.Itoa(page))
	q.Set("expand", "content")
	q.Set("apikey", c.cfg.APIKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/top-headlines?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("feed: request headlines: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 10<<20))
	if err != nil {
		return nil, fmt.Errorf("feed: read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("feed: headlines returned %d: %s", resp.StatusCode, truncateBody(body))
	}

	var parsed apiResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("feed: decode response: %w", err)
	}
	return parsed.Articles, nil
}

func truncateBody(b []byte) string {
	const max = 200
	if len(b) > max {
		return string(b[:max]) + "..."
	}
	return string(b)
}
