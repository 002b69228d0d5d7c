// Package archive keeps raw article payloads in an S3-compatible object
// store. Archival is best-effort: a failure is logged and ingestion
// carries on, since the relational store remains the system of record.
package archive

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/rs/zerolog"

	"newsthreads/internal/config"
	"newsthreads/internal/domain"
)

// Archiver writes article snapshots to one bucket. A nil *Archiver is a
// valid no-op, so callers need no enabled checks at every site.
type Archiver struct {
	client *minio.Client
	bucket string
	log    zerolog.Logger
}

// New connects to the object store and makes sure the bucket exists.
// Returns nil when archival is not configured.
func New(ctx context.Context, cfg config.Archive, log zerolog.Logger) (*Archiver, error) {
	if !cfg.Enabled() {
		return nil, nil
	}
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("archive: connect: %w", err)
	}

	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("archive: check bucket: %w", err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("archive: create bucket: %w", err)
		}
	}
	return &Archiver{client: client, bucket: cfg.Bucket, log: log}, nil
}

// Store uploads the article as JSON. Errors are logged, never returned;
// losing an archive copy must not abort the article.
func (a *Archiver) Store(ctx context.Context, article domain.Article) {
	if a == nil {
		return
	}
	payload, err := json.Marshal(article)
	if err != nil {
		a.log.Error().Err(err).Str("url", article.URL).Msg("archive: marshal article")
		return
	}
	key := objectKey(article)
	_, err = a.client.PutObject(ctx, a.bucket, key, bytes.NewReader(payload), int64(len(payload)),
		minio.PutObjectOptions{ContentType: "application/json"})
	if err != nil {
		a.log.Error().Err(err).Str("key", key).Msg("archive: upload article")
		return
	}
	a.log.Debug().Str("key", key).Msg("archived article")
}

// objectKey shards by category and publication date, with a URL hash as
// the stable leaf name.
func objectKey(article domain.Article) string {
	sum := sha256.Sum256([]byte(article.URL))
	return fmt.Sprintf("%s/%s/%s.json",
		article.Scope.Category,
		article.PublishedAt.UTC().Format("2006-01-02"),
		hex.EncodeToString(sum[:8]))
}
