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

// DiskStorage writes objects below dir and serves them from publicURL (mounted at /static).
type DiskStorage struct {
	dir       string
	publicURL string
}

func NewDiskStorage(dir, publicURL string) (*DiskStorage, error) {
	if dir == "" {
		dir = "./uploads"
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating upload dir: %w", err)
	}
	return &DiskStorage{dir: dir, publicURL: strings.TrimRight(publicURL, "/")}, nil
}

func (d *DiskStorage) Dir() string { return d.dir }

func (d *DiskStorage) Put(_ context.Context, key, _ string, body io.Reader, _ int64) (string, error) {
	dst := filepath.Join(d.dir, filepath.FromSlash(key))
	if !strings.HasPrefix(dst, filepath.Clean(d.dir)+string(os.PathSeparator)) {
		return "", fmt.Errorf("key %q escapes storage dir", key)
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return "", fmt.Errorf("creating folder: %w", err)
	}

	f, err := os.Create(dst)
	if err != nil {
		return "", fmt.Errorf("creating file: %w", err)
	}
	if _, err := io.Copy(f, body); err != nil {
		f.Close()
		_ = os.Remove(dst)
		return "", fmt.Errorf("writing file: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("closing file: %w", err)
	}
	return d.publicURL + "/" + key, nil
}

func (d *DiskStorage) Delete(_ context.Context, url string) error {
	key, ok := strings.CutPrefix(url, d.publicURL+"/")
	if !ok || key == "" || strings.Contains(key, "..") {
		return nil
	}
	err := os.Remove(filepath.Join(d.dir, filepath.FromSlash(key)))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("removing file: %w", err)
	}
	return nil
}
