package storage

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"career-twin/internal/config"
	"career-twin/internal/session"
)

// Entry is one stored session summary with the time it was received.
type Entry struct {
	Timestamp time.Time       `json:"timestamp"`
	Data      session.Summary `json:"data"`
}

// Recorder abstracts persistence of session summaries.
// LoadSessions returns entries in the order they were appended.
// Compact keeps only the newest keep entries and reports how many it removed.
// Implementations must be safe for concurrent use.
type Recorder interface {
	AppendSession(ctx context.Context, s session.Summary) error
	LoadSessions(ctx context.Context) ([]Entry, error)
	Compact(ctx context.Context, keep int) (int, error)
	Close() error
}

// Open returns the session store selected by cfg.
func Open(cfg *config.Config) (Recorder, error) {
	switch cfg.SessionStore {
	case config.StoreSQLite:
		return NewSQLiteRecorder(cfg.SessionDBPath, cfg.SessionRetention)
	case config.StoreFile, "":
		return NewFileRecorder(cfg.SessionLogPath, cfg.SessionRetention)
	default:
		return nil, errors.Errorf("unknown session store %q", cfg.SessionStore)
	}
}
