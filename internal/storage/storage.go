// Package storage saves uploaded images to S3, or to local disk when S3 is not configured.
package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/Pixelkingsa/consultant-connect/internal/config"
)

// MaxImageSize is the upload limit for product images and avatars.
const MaxImageSize = 5 << 20

var (
	ErrTooLarge    = errors.New("file size exceeds 5MB limit")
	ErrInvalidType = errors.New("invalid file type, only JPEG, PNG, WebP and GIF images are allowed")
)

var allowedTypes = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

// Store is the image sink used by the handlers.
type Store struct {
	s3       *S3Uploader
	localDir string
	baseURL  string
}

// New wires a store. s3 may be nil or disabled.
func New(s3 *S3Uploader, cfg config.StorageConfig) *Store {
	return &Store{s3: s3, localDir: cfg.LocalDir, baseURL: strings.TrimRight(cfg.LocalBaseURL, "/")}
}

// LocalDir is the directory served under /uploads when running without S3.
func (s *Store) LocalDir() string { return s.localDir }

// SaveImage validates an uploaded image and stores it under prefix. It returns the public URL.
func (s *Store) SaveImage(ctx context.Context, prefix string, fh *multipart.FileHeader) (string, error) {
	if fh.Size > MaxImageSize {
		return "", ErrTooLarge
	}
	f, err := fh.Open()
	if err != nil {
		return "", fmt.Errorf("failed to open uploaded file: %w", err)
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, MaxImageSize+1))
	if err != nil {
		return "", fmt.Errorf("failed to read file content: %w", err)
	}
	return s.Save(ctx, prefix, data)
}

// Save stores raw image bytes.
func (s *Store) Save(ctx context.Context, prefix string, data []byte) (string, error) {
	if len(data) > MaxImageSize {
		return "", ErrTooLarge
	}
	contentType, ext, err := DetectImage(data)
	if err != nil {
		return "", err
	}
	key := ObjectKey(prefix, ext)

	if s.s3.Enabled() {
		url, err := s.s3.Put(ctx, key, contentType, bytes.NewReader(data))
		if err == nil {
			return url, nil
		}
		log.Printf("[STORAGE] S3 upload failed, falling back to local storage: %v", err)
	}
	return s.saveLocal(key, data)
}

func (s *Store) saveLocal(key string, data []byte) (string, error) {
	path := filepath.Join(s.localDir, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("failed to create uploads directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to save file: %w", err)
	}
	return fmt.Sprintf("%s/uploads/%s", s.baseURL, key), nil
}

// DetectImage sniffs the content type from the first bytes.
func DetectImage(data []byte) (contentType, ext string, err error) {
	if len(data) == 0 {
		return "", "", ErrInvalidType
	}
	contentType = http.DetectContentType(data)
	ext, ok := allowedTypes[contentType]
	if !ok {
		return "", "", ErrInvalidType
	}
	return contentType, ext, nil
}

// ObjectKey builds a unique key such as products/<id>/1700000000000000000.png.
func ObjectKey(prefix, ext string) string {
	return fmt.Sprintf("%s/%d%s", strings.Trim(prefix, "/"), time.Now().UnixNano(), ext)
}
