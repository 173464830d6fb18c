// Package blobstore abstracts durable storage for the index snapshot blob.
//
// A snapshot is a single named blob written with full overwrite and read back
// whole at startup, so the interface is a plain Put/Get pair rather than a
// streaming or random-access API. Backends: local filesystem, in-memory (for
// tests), MinIO and AWS S3 (in their own subpackages).
package blobstore

import (
	"context"
	"errors"
)

// ErrNotFound is returned when a blob does not exist.
//
// Implementations must return an error that satisfies
// `errors.Is(err, ErrNotFound)`.
var ErrNotFound = errors.New("blobstore: blob not found")

// BlobStore reads and writes named data blobs.
type BlobStore interface {
	// Put writes a blob atomically, replacing any previous content.
	Put(ctx context.Context, name string, data []byte) error

	// Get reads the full content of a blob.
	Get(ctx context.Context, name string) ([]byte, error)
}
