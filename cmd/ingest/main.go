// Command ingest runs one ingestion batch: fetch headlines, archive the
// raw articles, and route each one through the thread engine.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"newsthreads/internal/archive"
	"newsthreads/internal/config"
	"newsthreads/internal/engine"
	"newsthreads/internal/feed"
	"newsthreads/internal/llm"
	"newsthreads/internal/store"
)

const embeddingCacheSize = 512

func main() {
	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
		With().Timestamp().Logger()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("load config")
	}
	if cfg.Debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := store.Open(cfg.DB.DSN())
	if err != nil {
		log.Fatal().Err(err).Msg("open store")
	}
	defer st.Close()
	if err := st.Ping(ctx); err != nil {
		log.Fatal().Err(err).Msg("ping store")
	}

	base, err := llm.New(ctx, cfg.LLM)
	if err != nil {
		log.Fatal().Err(err).Msg("init llm provider")
	}
	client, err := llm.NewCachedClient(base, embeddingCacheSize)
	if err != nil {
		log.Fatal().Err(err).Msg("init embedding cache")
	}
	defer client.Close()
	log.Info().Str("provider", client.Name()).Msg("llm provider ready")

	archiver, err := archive.New(ctx, cfg.Archive, log)
	if err != nil {
		log.Fatal().Err(err).Msg("init archive")
	}

	articles, err := feed.NewClient(cfg.Feed, log).FetchAll(ctx)
	if err != nil {
		// Keep whatever was fetched before the fault.
		log.Error().Err(err).Msg("feed fetch incomplete")
	}
	log.Info().Int("articles", len(articles)).Msg("fetched headlines")
	for _, a := range articles {
		archiver.Store(ctx, a)
	}

	eng := engine.New(client, st, cfg.Thread, cfg.LLM.EmbeddingDimensions, log)
	sum, err := eng.Run(ctx, articles)
	if err != nil {
		log.Fatal().Err(err).Msg("batch aborted")
	}
	log.Info().
		Int("processed", sum.Processed).
		Int("skipped", sum.Skipped).
		Int("failed", sum.Failed).
		Msg("batch complete")
}
