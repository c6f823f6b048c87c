// Package images resolves camera image metadata and bytes for analysis tasks.
package images

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/etzlertech/rancheye-02-analysis/internal/analysis"
	"github.com/etzlertech/rancheye-02-analysis/internal/shared/storage/object"
)

// DefaultMaxDownloadBytes caps a single image download.
const DefaultMaxDownloadBytes int64 = 20 << 20

// ErrTooLarge is returned when a stored image exceeds the download cap.
var ErrTooLarge = errors.New("image exceeds download limit")

// Service combines the metadata table with the object store.
type Service struct {
	Repo     MetadataRepo
	Store    object.ObjectStore
	MaxBytes int64
}

// NewService constructs a Service with the default download cap.
func NewService(repo MetadataRepo, store object.ObjectStore) *Service {
	return &Service{Repo: repo, Store: store, MaxBytes: DefaultMaxDownloadBytes}
}

// GetImageMetadata returns metadata for imageID.
func (s *Service) GetImageMetadata(ctx context.Context, imageID string) (analysis.ImageMetadata, error) {
	meta, err := s.Repo.Get(ctx, imageID)
	if err != nil {
		return analysis.ImageMetadata{}, fmt.Errorf("image %s: %w", imageID, err)
	}
	if strings.TrimSpace(meta.StoragePath) == "" {
		return analysis.ImageMetadata{}, fmt.Errorf("image %s has no storage path", imageID)
	}
	return meta, nil
}

// DownloadImage reads the stored bytes at storagePath.
func (s *Service) DownloadImage(ctx context.Context, storagePath string) ([]byte, error) {
	rc, err := s.Store.Open(ctx, storagePath)
	if err != nil {
		return nil, fmt.Errorf("open image: %w", err)
	}
	defer rc.Close()

	limit := s.MaxBytes
	if limit <= 0 {
		limit = DefaultMaxDownloadBytes
	}
	data, err := io.ReadAll(io.LimitReader(rc, limit+1))
	if err != nil {
		return nil, fmt.Errorf("read image: %w", err)
	}
	if int64(len(data)) > limit {
		return nil, fmt.Errorf("%w: %s", ErrTooLarge, storagePath)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("image %s is empty", storagePath)
	}
	return data, nil
}

// Register stores image bytes and records their metadata.
func (s *Service) Register(ctx context.Context, meta analysis.ImageMetadata, data []byte) error {
	if _, err := s.Store.Put(ctx, meta.StoragePath, "image/jpeg", bytes.NewReader(data)); err != nil {
		return fmt.Errorf("store image: %w", err)
	}
	if err := s.Repo.Upsert(ctx, meta); err != nil {
		return fmt.Errorf("record image metadata: %w", err)
	}
	return nil
}
