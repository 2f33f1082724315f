package ports

import (
	"context"
	"errors"
	"io"
)

var ErrBlobNotFound = errors.New("blob not found")

// BlobStore is the storage of original uploads and of derived assets.
// Implementations are safe for concurrent use per key.
type BlobStore interface {
	Exists(ctx context.Context, key string) (bool, error)
	Read(ctx context.Context, key string) ([]byte, error)
	Open(ctx context.Context, key string) (io.ReadCloser, int64, error)
	Write(ctx context.Context, key string, data []byte, contentType string) error
}
