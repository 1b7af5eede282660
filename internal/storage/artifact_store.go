package storage

import (
	"context"
	"io"
)

// ArtifactStore persists upload artifacts (the serialized time series payload
// of a CSV upload) outside the database. Implementations must tolerate
// delete-after-failed-commit compensation: deleting a key that was never
// written, or was already removed, is not an error.
type ArtifactStore interface {
	// Put writes the artifact under key and returns its public URL.
	Put(ctx context.Context, key string, data io.Reader) (string, error)

	// Get opens the artifact for reading. Callers must close the reader.
	Get(ctx context.Context, key string) (io.ReadCloser, error)

	// Delete removes the artifact. Missing keys are ignored.
	Delete(ctx context.Context, key string) error

	// URL returns the public URL for a key without touching the backend.
	URL(key string) string
}
