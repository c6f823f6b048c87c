package cache

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPGStorePutUpserts(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	expires := time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC)
	mock.ExpectExec("INSERT INTO analysis_cache").
		WithArgs("abc123", "gate_detection", "openai", "gpt-4o-mini", []byte(`{"gate_open":true}`), 0.9, expires).
		WillReturnResult(sqlmock.NewResult(1, 1))

	store := &PGStore{DB: db}
	err = store.Put(context.Background(), Entry{Key: testKey, Data: map[string]any{"gate_open": true}, Confidence: 0.9, ExpiresAt: expires})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPGStoreGet(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	expires := time.Now().Add(time.Hour).UTC()
	mock.ExpectQuery("SELECT result, confidence, expires_at").
		WithArgs("abc123", "gate_detection", "openai", "gpt-4o-mini").
		WillReturnRows(sqlmock.NewRows([]string{"result", "confidence", "expires_at"}).
			AddRow([]byte(`{"gate_open":false}`), 0.75, expires))

	store := &PGStore{DB: db}
	entry, err := store.Get(context.Background(), testKey)
	require.NoError(t, err)
	assert.Equal(t, false, entry.Data["gate_open"])
	assert.Equal(t, 0.75, entry.Confidence)
	assert.Equal(t, testKey, entry.Key)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPGStoreGetMiss(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	mock.ExpectQuery("SELECT result, confidence, expires_at").
		WillReturnRows(sqlmock.NewRows([]string{"result", "confidence", "expires_at"}))

	store := &PGStore{DB: db}
	_, err = store.Get(context.Background(), testKey)
	assert.ErrorIs(t, err, ErrMiss)
}
