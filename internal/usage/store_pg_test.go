package usage

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"
)

func TestPGStoreAddUpdatesExistingRow(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	day := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	mock.ExpectBegin()
	mock.ExpectQuery("SELECT analysis_count, tokens_used, estimated_cost").
		WithArgs(day, "openai", "gpt-4o-mini").
		WillReturnRows(sqlmock.NewRows([]string{"analysis_count", "tokens_used", "estimated_cost"}).AddRow(2, int64(300), 0.5))
	mock.ExpectExec("UPDATE analysis_costs").
		WithArgs(3, int64(450), 0.75, day, "openai", "gpt-4o-mini").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	store := NewPGStore(db)
	require.NoError(t, store.Add(context.Background(), day.Add(9*time.Hour), "openai", "gpt-4o-mini", 150, 0.25))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPGStoreAddInsertsFirstRow(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	day := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	mock.ExpectBegin()
	mock.ExpectQuery("SELECT analysis_count, tokens_used, estimated_cost").
		WithArgs(day, "gemini", "gemini-1.5-flash").
		WillReturnRows(sqlmock.NewRows([]string{"analysis_count", "tokens_used", "estimated_cost"}))
	mock.ExpectExec("INSERT INTO analysis_costs").
		WithArgs(day, "gemini", "gemini-1.5-flash", int64(200), 0.01).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	store := NewPGStore(db)
	require.NoError(t, store.Add(context.Background(), day, "gemini", "gemini-1.5-flash", 200, 0.01))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPGStoreDaily(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	day := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery("FROM analysis_costs").
		WithArgs(day).
		WillReturnRows(sqlmock.NewRows([]string{"date", "model_provider", "model_name", "analysis_count", "tokens_used", "estimated_cost"}).
			AddRow(day, "openai", "gpt-4o-mini", 4, int64(900), 0.002))

	records, err := NewPGStore(db).Daily(context.Background(), day.Add(5*time.Hour))
	require.NoError(t, err)
	require.Len(t, records, 1)
	require.Equal(t, 4, records[0].AnalysisCount)
	require.NoError(t, mock.ExpectationsWereMet())
}
