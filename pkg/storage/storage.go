package storage

import (
	"context"
	"errors"
	"io"
)

// ErrObjectNotFound is returned by Open when no blob exists under the key.
var ErrObjectNotFound = errors.New("object not found")

// Blob is the attachment store contract shared by every backend.
type Blob interface {
	Put(ctx context.Context, key string, r io.Reader, contentType string) (string, error)
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
}
