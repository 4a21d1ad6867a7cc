package storage

import (
	"context"
	"io"
)

// Uploader persists resume content. storedPath is what ends up in
// candidates.curriculo_path.
type Uploader interface {
	Upload(ctx context.Context, objectName string, contentType string, r io.Reader) (storedPath string, err error)
	Remove(ctx context.Context, storedPath string) error
}
