package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// LocalUploader writes objects below Root, usually the install's data dir, so
// a stored path like "uploads/x.pdf" resolves to <Root>/uploads/x.pdf.
type LocalUploader struct {
	Root string
}

func NewLocalUploader(root string) *LocalUploader {
	return &LocalUploader{Root: root}
}

func (u *LocalUploader) Upload(ctx context.Context, objectName string, _ string, r io.Reader) (string, error) {
	target, err := u.resolve(objectName)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return "", err
	}

	// write to a temp file first so a failed upload never truncates the
	// candidate's current resume
	tmp, err := os.CreateTemp(filepath.Dir(target), ".upload-*")
	if err != nil {
		return "", err
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, &ctxReader{ctx: ctx, r: r}); err != nil {
		_ = tmp.Close()
		return "", err
	}
	if err := tmp.Close(); err != nil {
		return "", err
	}
	if err := os.Rename(tmp.Name(), target); err != nil {
		return "", err
	}

	return filepath.ToSlash(objectName), nil
}

func (u *LocalUploader) Remove(_ context.Context, storedPath string) error {
	target, err := u.resolve(storedPath)
	if err != nil {
		return err
	}
	if err := os.Remove(target); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

// resolve refuses paths that would land outside Root.
func (u *LocalUploader) resolve(name string) (string, error) {
	root, err := filepath.Abs(u.Root)
	if err != nil {
		return "", err
	}
	target := filepath.Join(root, filepath.FromSlash(name))
	if target == root || !strings.HasPrefix(target, root+string(filepath.Separator)) {
		return "", fmt.Errorf("path %q escapes storage root", name)
	}
	return target, nil
}

type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (c *ctxReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}
