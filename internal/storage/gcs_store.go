package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	gcs "cloud.google.com/go/storage"
	"google.golang.org/api/option"

	"github.com/learnflow/lms-service/internal/config"
	"github.com/learnflow/lms-service/internal/utils"
)

type gcsStore struct {
	client *gcs.Client
	bucket string
	prefix string
	logger utils.Logger
}

// NewGCSStore creates an ArtifactStore backed by a Google Cloud Storage
// bucket.
func NewGCSStore(ctx context.Context, cfg config.StorageConfig, logger utils.Logger) (ArtifactStore, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("storage bucket is required")
	}

	var opts []option.ClientOption
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}
	opts = append(opts, option.WithScopes(gcs.ScopeReadWrite))

	client, err := gcs.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}

	return &gcsStore{
		client: client,
		bucket: cfg.Bucket,
		prefix: cfg.URLPrefix,
		logger: logger.With("component", "gcs_store"),
	}, nil
}

func (s *gcsStore) Put(ctx context.Context, key string, data io.Reader) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	w := s.client.Bucket(s.bucket).Object(key).NewWriter(ctx)
	w.ContentType = "application/json"
	if _, err := io.Copy(w, data); err != nil {
		_ = w.Close()
		return "", fmt.Errorf("failed to write artifact %q: %w", key, err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("failed to close artifact writer for %q: %w", key, err)
	}

	return s.URL(key), nil
}

// Close on the returned reader also cancels the read context. Cancelling
// before the caller reads would hand back an empty stream.
type readCloserWithCancel struct {
	io.ReadCloser
	cancel context.CancelFunc
}

func (r *readCloserWithCancel) Close() error {
	err := r.ReadCloser.Close()
	if r.cancel != nil {
		r.cancel()
	}
	return err
}

func (s *gcsStore) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	ctx2, cancel := context.WithTimeout(ctx, 2*time.Minute)

	r, err := s.client.Bucket(s.bucket).Object(key).NewReader(ctx2)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("failed to open artifact %q: %w", key, err)
	}

	return &readCloserWithCancel{ReadCloser: r, cancel: cancel}, nil
}

func (s *gcsStore) Delete(ctx context.Context, key string) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	err := s.client.Bucket(s.bucket).Object(key).Delete(ctx)
	if err != nil {
		if errors.Is(err, gcs.ErrObjectNotExist) {
			return nil
		}
		return fmt.Errorf("failed to delete artifact %q: %w", key, err)
	}
	return nil
}

func (s *gcsStore) URL(key string) string {
	return fmt.Sprintf("%s/%s/%s", s.prefix, s.bucket, key)
}
