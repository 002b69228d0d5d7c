// Command setupdb provisions the database schema, including the
// pgvector extension, and applies additive patches to older installs.
package main

import (
	"context"
	"os"
	"time"

	"github.com/rs/zerolog"

	"newsthreads/internal/config"
	"newsthreads/internal/store"
)

func main() {
	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
		With().Timestamp().Logger()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("load config")
	}

	st, err := store.Open(cfg.DB.DSN())
	if err != nil {
		log.Fatal().Err(err).Msg("open store")
	}
	defer st.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	if err := st.Setup(ctx, cfg.LLM.EmbeddingDimensions); err != nil {
		log.Fatal().Err(err).Msg("setup schema")
	}
	log.Info().Int("dimensions", cfg.LLM.EmbeddingDimensions).Msg("schema ready")
}
