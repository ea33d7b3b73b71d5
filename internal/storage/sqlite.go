package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"

	"career-twin/internal/session"
)

// SQLiteRecorder keeps session summaries in a single table, one JSON
// document per row, with the counters broken out for cheap queries.
type SQLiteRecorder struct {
	db        *sql.DB
	retention int
	now       func() time.Time
}

var _ Recorder = &SQLiteRecorder{}

func NewSQLiteRecorder(dsn string, retention int) (*SQLiteRecorder, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, errors.New("sqlite session store: empty dsn")
	}
	if !strings.HasPrefix(dsn, "file:") && dsn != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dsn), 0o755); err != nil {
			return nil, errors.Wrap(err, "sqlite session store: ensure dir")
		}
	}
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, err
	}
	// one writer; sqlite serializes anyway and :memory: is per connection
	db.SetMaxOpenConns(1)

	s := &SQLiteRecorder{db: db, retention: retention, now: time.Now}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLiteRecorder) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *SQLiteRecorder) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS sessions (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			session_id TEXT NOT NULL,
			received_at_ms INTEGER NOT NULL,
			total_messages INTEGER NOT NULL DEFAULT 0,
			quick_questions INTEGER NOT NULL DEFAULT 0,
			custom_messages INTEGER NOT NULL DEFAULT 0,
			timezone TEXT NOT NULL DEFAULT '',
			data_json TEXT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS sessions_by_session_id ON sessions(session_id);`,
	}
	for _, st := range stmts {
		if _, err := s.db.Exec(st); err != nil {
			return errors.Wrap(err, "sqlite session store: migrate")
		}
	}
	return nil
}

func (s *SQLiteRecorder) AppendSession(ctx context.Context, sum session.Summary) error {
	data, err := json.Marshal(sum)
	if err != nil {
		return errors.Wrap(err, "marshal session summary")
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO sessions (session_id, received_at_ms, total_messages, quick_questions, custom_messages, timezone, data_json)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		sum.SessionID, s.now().UnixMilli(),
		sum.Summary.TotalMessages, sum.Summary.QuickQuestions, sum.Summary.CustomMessages,
		sum.UserInfo.Timezone, string(data),
	)
	if err != nil {
		return errors.Wrap(err, "sqlite session store: insert")
	}
	if s.retention > 0 {
		if _, err := s.Compact(ctx, s.retention); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLiteRecorder) LoadSessions(ctx context.Context) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT received_at_ms, data_json FROM sessions ORDER BY id ASC`)
	if err != nil {
		return nil, errors.Wrap(err, "sqlite session store: query")
	}
	defer func() { _ = rows.Close() }()

	var entries []Entry
	for rows.Next() {
		var (
			ms   int64
			data string
		)
		if err := rows.Scan(&ms, &data); err != nil {
			return nil, errors.Wrap(err, "sqlite session store: scan")
		}
		var sum session.Summary
		if err := json.Unmarshal([]byte(data), &sum); err != nil {
			return nil, errors.Wrap(err, "sqlite session store: decode row")
		}
		entries = append(entries, Entry{Timestamp: time.UnixMilli(ms).UTC(), Data: sum})
	}
	return entries, errors.Wrap(rows.Err(), "sqlite session store: rows")
}

func (s *SQLiteRecorder) Compact(ctx context.Context, keep int) (int, error) {
	if keep < 0 {
		keep = 0
	}
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM sessions WHERE id NOT IN (SELECT id FROM sessions ORDER BY id DESC LIMIT ?)`, keep)
	if err != nil {
		return 0, errors.Wrap(err, "sqlite session store: compact")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, errors.Wrap(err, "sqlite session store: rows affected")
	}
	return int(n), nil
}

// Count is the number of stored sessions.
func (s *SQLiteRecorder) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM sessions`).Scan(&n); err != nil {
		return 0, errors.Wrap(err, "sqlite session store: count")
	}
	return n, nil
}
