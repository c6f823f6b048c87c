package images

import (
	"context"
	"database/sql"
	"errors"
	"sync"

	"github.com/etzlertech/rancheye-02-analysis/internal/analysis"
)

// MetadataRepo reads and records camera image metadata.
type MetadataRepo interface {
	Get(ctx context.Context, imageID string) (analysis.ImageMetadata, error)
	Upsert(ctx context.Context, meta analysis.ImageMetadata) error
}

// MemoryRepo keeps image metadata in memory.
type MemoryRepo struct {
	mu   sync.RWMutex
	byID map[string]analysis.ImageMetadata
}

// NewMemoryRepo constructs a MemoryRepo.
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{byID: make(map[string]analysis.ImageMetadata)}
}

func (r *MemoryRepo) Get(ctx context.Context, imageID string) (analysis.ImageMetadata, error) {
	if err := ctx.Err(); err != nil {
		return analysis.ImageMetadata{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	meta, ok := r.byID[imageID]
	if !ok {
		return analysis.ImageMetadata{}, analysis.ErrNotFound
	}
	return meta, nil
}

func (r *MemoryRepo) Upsert(ctx context.Context, meta analysis.ImageMetadata) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byID[meta.ImageID] = meta
	return nil
}

// PGRepo reads spypoint_images.
type PGRepo struct {
	DB *sql.DB
}

func (r *PGRepo) Get(ctx context.Context, imageID string) (analysis.ImageMetadata, error) {
	const query = `
SELECT image_id, camera_name, captured_at, storage_path, image_url
FROM spypoint_images
WHERE image_id = $1`
	var meta analysis.ImageMetadata
	var capturedAt sql.NullTime
	var imageURL sql.NullString
	err := r.DB.QueryRowContext(ctx, query, imageID).Scan(
		&meta.ImageID,
		&meta.CameraName,
		&capturedAt,
		&meta.StoragePath,
		&imageURL,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return analysis.ImageMetadata{}, analysis.ErrNotFound
		}
		return analysis.ImageMetadata{}, err
	}
	if capturedAt.Valid {
		meta.CapturedAt = capturedAt.Time
	}
	meta.ImageURL = imageURL.String
	return meta, nil
}

func (r *PGRepo) Upsert(ctx context.Context, meta analysis.ImageMetadata) error {
	const query = `
INSERT INTO spypoint_images (image_id, camera_name, captured_at, storage_path, image_url)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (image_id) DO UPDATE SET
	camera_name = EXCLUDED.camera_name,
	captured_at = EXCLUDED.captured_at,
	storage_path = EXCLUDED.storage_path,
	image_url = EXCLUDED.image_url`
	var capturedAt any
	if !meta.CapturedAt.IsZero() {
		capturedAt = meta.CapturedAt
	}
	var imageURL any
	if meta.ImageURL != "" {
		imageURL = meta.ImageURL
	}
	_, err := r.DB.ExecContext(ctx, query, meta.ImageID, meta.CameraName, capturedAt, meta.StoragePath, imageURL)
	return err
}
