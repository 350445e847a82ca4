package health

import (
	"context"
	"time"
)

const defaultPingTimeout = 2 * time.Second

// Pinger is satisfied by *sql.DB and *sqlx.DB.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// Service encapsulates health-related checks.
type Service struct {
	DB      Pinger
	Timeout time.Duration
}

// Status is the health payload.
type Status struct {
	OK       bool   `json:"ok"`
	Database string `json:"database"`
	Error    string `json:"error,omitempty"`
}

// NewService constructs a new health service. db may be nil when records
// are kept in memory.
func NewService(db Pinger) *Service {
	return &Service{DB: db, Timeout: defaultPingTimeout}
}

// Status pings the database, if any.
func (s *Service) Status(ctx context.Context) Status {
	if s.DB == nil {
		return Status{OK: true, Database: "memory"}
	}
	timeout := s.Timeout
	if timeout <= 0 {
		timeout = defaultPingTimeout
	}
	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := s.DB.PingContext(pingCtx); err != nil {
		return Status{OK: false, Database: "unreachable", Error: err.Error()}
	}
	return Status{OK: true, Database: "ok"}
}
