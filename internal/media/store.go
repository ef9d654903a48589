package media

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Store persists an image under key and returns its public URL.
type Store interface {
	Put(ctx context.Context, key, contentType string, body io.Reader, size int64) (string, error)
}

// LocalStore writes images into a directory served by the API at /uploads.
type LocalStore struct {
	Dir       string
	PublicURL string
}

// Put writes the file atomically via a temporary sibling.
func (s LocalStore) Put(_ context.Context, key, _ string, body io.Reader, _ int64) (string, error) {
	if strings.ContainsAny(key, `/\`) || key == "" || key == "." || key == ".." {
		return "", fmt.Errorf("invalid image key %q", key)
	}
	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		return "", fmt.Errorf("create upload dir: %w", err)
	}
	tmp, err := os.CreateTemp(s.Dir, ".upload-*")
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(tmp, body); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return "", err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return "", err
	}
	if err := os.Rename(tmp.Name(), filepath.Join(s.Dir, key)); err != nil {
		_ = os.Remove(tmp.Name())
		return "", err
	}
	return strings.TrimRight(s.PublicURL, "/") + "/" + key, nil
}
