// Package config loads runtime configuration from the environment,
// with an optional .env file for local development.
package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Defaults for the thread-association thresholds.
const (
	DefaultCosineThreshold     = 0.7
	DefaultScoreThreshold      = 70
	DefaultMaxRetryAttempts    = 3
	DefaultEmbeddingDimensions = 3072
)

type Config struct {
	Debug   bool
	DB      DB
	LLM     LLM
	Thread  Thread
	Feed    Feed
	WebUI   WebUI
	Archive Archive
}

// DB describes the Postgres connection.
type DB struct {
	Host     string
	Port     string
	Name     string
	User     string
	Password string
}

// DSN assembles a pgx-compatible connection string.
func (d DB) DSN() string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(d.User, d.Password),
		Host:   d.Host + ":" + d.Port,
		Path:   "/" + d.Name,
	}
	q := url.Values{}
	q.Set("sslmode", "disable")
	u.RawQuery = q.Encode()
	return u.String()
}

// LLM selects the active provider and carries per-provider credentials.
type LLM struct {
	Provider            string
	EmbeddingDimensions int
	Azure               Azure
	Gemini              Gemini
}

type Azure struct {
	APIKey     string
	APIVersion string
	Endpoint   string
	Deployment string

	EmbeddingAPIKey     string
	EmbeddingAPIVersion string
	EmbeddingEndpoint   string
	EmbeddingDeployment string
}

type Gemini struct {
	APIKey         string
	ChatModel      string
	EmbeddingModel string
}

// Thread holds the association thresholds and the adjudication retry bound.
type Thread struct {
	CosineThreshold  float64
	ScoreThreshold   int
	MaxRetryAttempts int
	ArticleDelay     time.Duration
}

// Feed configures the GNews collaborator.
type Feed struct {
	APIKey         string
	Categories     []string
	Language       string
	Country        string
	MaxPerPage     int
	MaxPerCategory int
}

type WebUI struct {
	Addr     string
	PageSize int
}

// Archive configures the optional raw-article object store.
// Enabled only when an endpoint is set.
type Archive struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

func (a Archive) Enabled() bool { return strings.TrimSpace(a.Endpoint) != "" }

// Load reads the environment (after a best-effort .env load) and returns
// the fully resolved configuration.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Debug: envBool("DEBUG_MODE", false),
		DB: DB{
			Host:     envOr("DB_HOST", "localhost"),
			Port:     envOr("DB_PORT", "5432"),
			Name:     envOr("DB_NAME", "news_threads"),
			User:     envOr("DB_USER", "postgres"),
			Password: os.Getenv("DB_PASSWORD"),
		},
		LLM: LLM{
			Provider:            strings.ToLower(envOr("LLM_PROVIDER", "azure")),
			EmbeddingDimensions: envInt("EMBEDDING_DIMENSIONS", DefaultEmbeddingDimensions),
			Azure: Azure{
				APIKey:              os.Getenv("AOAI_API_KEY"),
				APIVersion:          os.Getenv("AOAI_API_VERSION"),
				Endpoint:            os.Getenv("AOAI_ENDPOINT"),
				Deployment:          os.Getenv("AOAI_DEPLOYMENT_NAME"),
				EmbeddingAPIKey:     firstNonEmpty(os.Getenv("AOAI_EMBEDDING_API_KEY"), os.Getenv("AOAI_API_KEY")),
				EmbeddingAPIVersion: firstNonEmpty(os.Getenv("AOAI_EMBEDDING_API_VERSION"), os.Getenv("AOAI_API_VERSION")),
				EmbeddingEndpoint:   firstNonEmpty(os.Getenv("AOAI_EMBEDDING_ENDPOINT"), os.Getenv("AOAI_ENDPOINT")),
				EmbeddingDeployment: os.Getenv("AOAI_EMBEDDING_DEPLOYMENT_NAME"),
			},
			Gemini: Gemini{
				APIKey:         os.Getenv("GEMINI_API_KEY"),
				ChatModel:      envOr("GEMINI_CHAT_MODEL", "gemini-2.0-flash"),
				EmbeddingModel: envOr("GEMINI_EMBEDDING_MODEL", "gemini-embedding-001"),
			},
		},
		Thread: Thread{
			CosineThreshold:  envFloat("COS_SIMILARITY_THRESHOLD", DefaultCosineThreshold),
			ScoreThreshold:   envInt("LLM_SIMILARITY_THRESHOLD", DefaultScoreThreshold),
			MaxRetryAttempts: envInt("LLM_MAX_RETRY_ATTEMPTS", DefaultMaxRetryAttempts),
			ArticleDelay:     time.Duration(envInt("INGEST_DELAY_SECONDS", 1)) * time.Second,
		},
		Feed: Feed{
			APIKey:         os.Getenv("GNEWS_API_KEY"),
			Categories:     splitList(envOr("GNEWS_CATEGORIES", "world,nation,business,technology,science")),
			Language:       envOr("GNEWS_LANG", "en"),
			Country:        envOr("GNEWS_COUNTRY", "us"),
			MaxPerPage:     envInt("GNEWS_MAX_PER_PAGE", 25),
			MaxPerCategory: envInt("GNEWS_MAX_NEWS_PER_CATEGORY", 200),
		},
		WebUI: WebUI{
			Addr:     normalizeAddr(envOr("WEBUI_ADDR", ":5000")),
			PageSize: envInt("WEBUI_PAGE_SIZE", 25),
		},
		Archive: Archive{
			Endpoint:  os.Getenv("ARCHIVE_ENDPOINT"),
			AccessKey: os.Getenv("ARCHIVE_ACCESS_KEY"),
			SecretKey: os.Getenv("ARCHIVE_SECRET_KEY"),
			Bucket:    envOr("ARCHIVE_BUCKET", "news-threads-raw"),
			UseSSL:    envBool("ARCHIVE_USE_SSL", false),
		},
	}

	if cfg.Thread.CosineThreshold < 0 || cfg.Thread.CosineThreshold > 1 {
		return nil, fmt.Errorf("config: COS_SIMILARITY_THRESHOLD %v out of range [0,1]", cfg.Thread.CosineThreshold)
	}
	if cfg.Thread.ScoreThreshold < 0 || cfg.Thread.ScoreThreshold > 100 {
		return nil, fmt.Errorf("config: LLM_SIMILARITY_THRESHOLD %d out of range [0,100]", cfg.Thread.ScoreThreshold)
	}
	if cfg.Thread.MaxRetryAttempts < 1 {
		return nil, fmt.Errorf("config: LLM_MAX_RETRY_ATTEMPTS must be at least 1")
	}
	if cfg.LLM.EmbeddingDimensions < 1 {
		return nil, fmt.Errorf("config: EMBEDDING_DIMENSIONS must be positive")
	}

	return cfg, nil
}

func envOr(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func envFloat(key string, fallback float64) float64 {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fallback
	}
	return f
}

func envBool(key string, fallback bool) bool {
	v := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	if v == "" {
		return fallback
	}
	switch v {
	case "true", "1", "yes", "on":
		return true
	}
	return false
}

func splitList(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func normalizeAddr(addr string) string {
	if addr != "" && !strings.HasPrefix(addr, ":") && !strings.Contains(addr, ":") {
		return ":" + addr
	}
	return addr
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
