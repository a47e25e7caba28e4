// Package storage persists uploaded bootcamp photos on local disk or in
// an S3-compatible bucket.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/iliyamo/bootcamp-directory/internal/config"
)

var (
	// ErrNotImage rejects uploads whose content type is not image/*.
	ErrNotImage = errors.New("storage: not an image")
	// ErrTooLarge rejects uploads above the configured size.
	ErrTooLarge = errors.New("storage: file too large")
)

// Store writes a named blob.
type Store interface {
	Put(ctx context.Context, name, contentType string, body io.Reader, size int64) error
}

// New returns the backend selected by cfg.Driver.
func New(cfg config.UploadConfig) (Store, error) {
	switch cfg.Driver {
	case "", "local":
		return NewLocal(cfg.Path), nil
	case "s3":
		return NewS3(cfg), nil
	default:
		return nil, fmt.Errorf("storage: unknown driver %q", cfg.Driver)
	}
}

// Photos validates and stores bootcamp photos.
type Photos struct {
	store   Store
	maxSize int64
	newID   func() string
}

func NewPhotos(store Store, maxSize int64) *Photos {
	return &Photos{store: store, maxSize: maxSize, newID: uuid.NewString}
}

// MaxSize is the largest accepted upload in bytes.
func (p *Photos) MaxSize() int64 { return p.maxSize }

// Save checks the upload and stores it as photo_<bootcampID>_<uuid><ext>.
// It returns the stored file name.
func (p *Photos) Save(ctx context.Context, bootcampID uint64, fh *multipart.FileHeader) (string, error) {
	contentType := fh.Header.Get("Content-Type")
	if !strings.HasPrefix(contentType, "image/") {
		return "", ErrNotImage
	}
	if p.maxSize > 0 && fh.Size > p.maxSize {
		return "", ErrTooLarge
	}

	name := PhotoName(bootcampID, p.newID(), fh.Filename)
	f, err := fh.Open()
	if err != nil {
		return "", fmt.Errorf("open upload: %w", err)
	}
	defer f.Close()

	if err := p.store.Put(ctx, name, contentType, f, fh.Size); err != nil {
		return "", err
	}
	return name, nil
}

// PhotoName builds the stored name; only the extension of the client's
// file name is kept.
func PhotoName(bootcampID uint64, id, original string) string {
	ext := strings.ToLower(filepath.Ext(filepath.Base(original)))
	return fmt.Sprintf("photo_%d_%s%s", bootcampID, id, ext)
}
