package providers

import (
	"context"
	"io"
)

// BlobStore opens read-only objects such as the CSV facility lists
type BlobStore interface {
	Open(ctx context.Context, key string) (io.ReadCloser, error)
}
