// Package health reports worker readiness for the ops endpoint.
package health

import (
	"context"
	"time"
)

// Pinger is satisfied by *sql.DB.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// Status is the health payload.
type Status struct {
	OK        bool     `json:"ok"`
	Database  string   `json:"database"`
	Providers []string `json:"providers"`
}

// Service encapsulates health-related checks.
type Service struct {
	db        Pinger
	providers func() []string
	timeout   time.Duration
}

// NewService constructs a health service. db may be nil when running on memory repositories.
func NewService(db Pinger, providers func() []string) *Service {
	return &Service{db: db, providers: providers, timeout: 2 * time.Second}
}

// Status pings the database and lists the registered providers.
// The worker is unhealthy when the database is unreachable or no provider is registered.
func (s *Service) Status(ctx context.Context) Status {
	st := Status{OK: true, Database: "memory"}
	if s.providers != nil {
		st.Providers = s.providers()
	}
	if len(st.Providers) == 0 {
		st.OK = false
	}
	if s.db != nil {
		pingCtx, cancel := context.WithTimeout(ctx, s.timeout)
		defer cancel()
		if err := s.db.PingContext(pingCtx); err != nil {
			st.Database = "unreachable"
			st.OK = false
		} else {
			st.Database = "ok"
		}
	}
	return st
}
