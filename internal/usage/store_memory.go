package usage

import (
	"context"
	"sort"
	"sync"
	"time"
)

type recordKey struct {
	date     time.Time
	provider string
	model    string
}

// MemoryStore keeps cost records in memory and is safe for concurrent use.
type MemoryStore struct {
	mu      sync.Mutex
	records map[recordKey]CostRecord
}

// NewMemoryStore constructs a MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[recordKey]CostRecord)}
}

func (s *MemoryStore) Add(ctx context.Context, date time.Time, provider, model string, tokens int, cost float64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	day := Day(date)
	key := recordKey{date: day, provider: provider, model: model}
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[key]
	if !ok {
		rec = CostRecord{Date: day, Provider: provider, Model: model}
	}
	rec.AnalysisCount++
	rec.TokensUsed += int64(tokens)
	rec.EstimatedCost += cost
	s.records[key] = rec
	return nil
}

func (s *MemoryStore) Daily(ctx context.Context, date time.Time) ([]CostRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	day := Day(date)
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []CostRecord
	for k, rec := range s.records {
		if k.date.Equal(day) {
			out = append(out, rec)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Provider != out[j].Provider {
			return out[i].Provider < out[j].Provider
		}
		return out[i].Model < out[j].Model
	})
	return out, nil
}
