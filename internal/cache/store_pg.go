package cache

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
)

// PGStore implements Store over the analysis_cache table.
type PGStore struct {
	DB *sql.DB
}

func (s *PGStore) Get(ctx context.Context, key Key) (Entry, error) {
	const query = `
SELECT result, confidence, expires_at
FROM analysis_cache
WHERE image_hash = $1 AND analysis_type = $2 AND model_provider = $3 AND model_name = $4
  AND expires_at > now()
LIMIT 1`
	var raw []byte
	entry := Entry{Key: key}
	err := s.DB.QueryRowContext(ctx, query, key.ImageHash, key.AnalysisType, string(key.Provider), key.Model).
		Scan(&raw, &entry.Confidence, &entry.ExpiresAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Entry{}, ErrMiss
		}
		return Entry{}, err
	}
	if err := json.Unmarshal(raw, &entry.Data); err != nil {
		return Entry{}, err
	}
	return entry, nil
}

func (s *PGStore) Put(ctx context.Context, entry Entry) error {
	const query = `
INSERT INTO analysis_cache (image_hash, analysis_type, model_provider, model_name, result, confidence, expires_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)
ON CONFLICT (image_hash, analysis_type, model_provider, model_name)
DO UPDATE SET result = EXCLUDED.result, confidence = EXCLUDED.confidence,
              expires_at = EXCLUDED.expires_at, created_at = now()`
	payload, err := json.Marshal(entry.Data)
	if err != nil {
		return err
	}
	k := entry.Key
	_, err = s.DB.ExecContext(ctx, query, k.ImageHash, k.AnalysisType, string(k.Provider), k.Model, payload, entry.Confidence, entry.ExpiresAt)
	return err
}
