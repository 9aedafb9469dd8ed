// Package blob opens the static CSV lists from a local directory or an S3 bucket.
package blob

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"

	"github.com/zatekoja/facilitycollector/internal/domain/providers"
	apperrors "github.com/zatekoja/facilitycollector/pkg/errors"
)

// FSStore reads objects from an fs.FS
type FSStore struct {
	fsys fs.FS
}

// NewFSStore serves files below root on the local disk
func NewFSStore(root string) providers.BlobStore {
	return &FSStore{fsys: os.DirFS(root)}
}

// NewFSStoreFrom wraps any fs.FS, e.g. an embed.FS or fstest.MapFS
func NewFSStoreFrom(fsys fs.FS) providers.BlobStore {
	return &FSStore{fsys: fsys}
}

// Open opens key for reading
func (s *FSStore) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	name := path.Clean(key)
	if !fs.ValidPath(name) {
		return nil, apperrors.NewValidationError(fmt.Sprintf("invalid blob key %q", key), nil)
	}
	f, err := s.fsys.Open(name)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("blob %s not found", key))
	}
	if err != nil {
		return nil, apperrors.NewExternalError(fmt.Sprintf("failed to open blob %s", key), err)
	}
	return f, nil
}
