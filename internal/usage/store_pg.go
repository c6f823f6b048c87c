package usage

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/etzlertech/rancheye-02-analysis/internal/shared/storage/db"
)

// PGStore implements Store over the analysis_costs table.
type PGStore struct {
	DB *sql.DB
}

// NewPGStore constructs a Postgres-backed cost store.
func NewPGStore(database *sql.DB) *PGStore {
	return &PGStore{DB: database}
}

func (s *PGStore) Add(ctx context.Context, date time.Time, provider, model string, tokens int, cost float64) error {
	day := Day(date)
	return db.WithTx(ctx, s.DB, func(tx *sql.Tx) error {
		var count int
		var used int64
		var total float64
		row := tx.QueryRowContext(ctx, `
SELECT analysis_count, tokens_used, estimated_cost
FROM analysis_costs
WHERE date = $1 AND model_provider = $2 AND model_name = $3
FOR UPDATE`, day, provider, model)
		err := row.Scan(&count, &used, &total)
		switch {
		case errors.Is(err, sql.ErrNoRows):
			// Concurrent first writers race on the insert; the conflict clause folds them together.
			_, err = tx.ExecContext(ctx, `
INSERT INTO analysis_costs (date, model_provider, model_name, analysis_count, tokens_used, estimated_cost)
VALUES ($1, $2, $3, 1, $4, $5)
ON CONFLICT (date, model_provider, model_name) DO UPDATE SET
	analysis_count = analysis_costs.analysis_count + 1,
	tokens_used = analysis_costs.tokens_used + EXCLUDED.tokens_used,
	estimated_cost = analysis_costs.estimated_cost + EXCLUDED.estimated_cost,
	updated_at = now()`, day, provider, model, int64(tokens), cost)
			return err
		case err != nil:
			return err
		}
		_, err = tx.ExecContext(ctx, `
UPDATE analysis_costs
SET analysis_count = $1, tokens_used = $2, estimated_cost = $3, updated_at = now()
WHERE date = $4 AND model_provider = $5 AND model_name = $6`,
			count+1, used+int64(tokens), total+cost, day, provider, model)
		return err
	})
}

func (s *PGStore) Daily(ctx context.Context, date time.Time) ([]CostRecord, error) {
	rows, err := s.DB.QueryContext(ctx, `
SELECT date, model_provider, model_name, analysis_count, tokens_used, estimated_cost
FROM analysis_costs
WHERE date = $1
ORDER BY model_provider, model_name`, Day(date))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []CostRecord
	for rows.Next() {
		var rec CostRecord
		if err := rows.Scan(&rec.Date, &rec.Provider, &rec.Model, &rec.AnalysisCount, &rec.TokensUsed, &rec.EstimatedCost); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}
