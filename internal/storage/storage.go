// Package storage keeps uploaded images on local disk or in an S3-compatible bucket.
package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"path"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"

	"github.com/FACorreiaa/go-shop-backend/config"
	"github.com/FACorreiaa/go-shop-backend/internal/types"
)

const sniffLen = 512

var ErrUnsupportedType = errors.New("unsupported file type")

var allowedImageTypes = map[string]struct{}{
	"image/jpeg": {},
	"image/png":  {},
	"image/gif":  {},
	"image/webp": {},
}

// Storage persists objects under a key and hands back the URL clients should use.
type Storage interface {
	Put(ctx context.Context, key, contentType string, body io.Reader, size int64) (string, error)
	// Delete removes the object behind a URL returned by Put. Unknown URLs are ignored.
	Delete(ctx context.Context, url string) error
}

// New picks the backend from cfg.Driver; disk is the default.
func New(ctx context.Context, cfg config.StorageConfig, logger *slog.Logger) (Storage, error) {
	switch cfg.Driver {
	case "", "disk":
		logger.Info("Using disk storage", slog.String("dir", cfg.Dir))
		return NewDiskStorage(cfg.Dir, cfg.PublicURL)
	case "s3":
		logger.Info("Using S3 storage", slog.String("bucket", cfg.S3Bucket), slog.String("endpoint", cfg.S3Endpoint))
		return NewS3Storage(ctx, cfg)
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
}

// detectMIME sniffs the content type from the first bytes of an upload.
func detectMIME(head []byte) string {
	if len(head) == 0 {
		return "application/octet-stream"
	}
	return mimetype.Detect(head).String()
}

// SaveImage validates an uploaded image by content and stores it under folder with a random name.
// field names the form field in validation errors.
func SaveImage(ctx context.Context, store Storage, folder, field string, fh *multipart.FileHeader, maxBytes int64) (string, error) {
	if maxBytes > 0 && fh.Size > maxBytes {
		return "", types.NewValidationError(field, fmt.Sprintf("file must not be larger than %d bytes", maxBytes))
	}
	f, err := fh.Open()
	if err != nil {
		return "", fmt.Errorf("opening upload: %w", err)
	}
	defer f.Close()

	head := make([]byte, sniffLen)
	n, err := io.ReadFull(f, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("reading upload: %w", err)
	}
	head = head[:n]

	mime := detectMIME(head)
	if _, ok := allowedImageTypes[mime]; !ok {
		return "", types.NewValidationError(field, fmt.Sprintf("%s: %v", mime, ErrUnsupportedType))
	}

	ext := mimetype.Lookup(mime)
	suffix := ""
	if ext != nil {
		suffix = ext.Extension()
	}
	key := path.Join(strings.Trim(folder, "/"), uuid.NewString()+suffix)
	return store.Put(ctx, key, mime, io.MultiReader(bytes.NewReader(head), f), fh.Size)
}
