package usage

import "time"

// CostRecord aggregates calls for one provider/model on one UTC day.
type CostRecord struct {
	Date          time.Time `json:"date"`
	Provider      string    `json:"provider"`
	Model         string    `json:"model"`
	AnalysisCount int       `json:"analysis_count"`
	TokensUsed    int64     `json:"tokens_used"`
	EstimatedCost float64   `json:"estimated_cost"`
}

// Day truncates t to its UTC calendar date.
func Day(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
