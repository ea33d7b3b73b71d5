package storage

import (
	"bufio"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"career-twin/internal/session"
)

// FileRecorder stores one JSON entry per line. With a positive retention
// the file is rewritten to the newest entries whenever it grows past it.
type FileRecorder struct {
	path      string
	retention int
	now       func() time.Time

	mu    sync.Mutex
	count int
}

var _ Recorder = &FileRecorder{}

func NewFileRecorder(path string, retention int) (*FileRecorder, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, errors.Wrap(err, "failed to ensure log dir")
	}
	f, err := os.OpenFile(path, os.O_CREATE, 0o644)
	if err != nil {
		return nil, errors.Wrap(err, "failed to init log file")
	}
	_ = f.Close()

	r := &FileRecorder{path: path, retention: retention, now: time.Now}
	entries, err := r.read()
	if err != nil {
		return nil, err
	}
	r.count = len(entries)
	return r, nil
}

func (r *FileRecorder) AppendSession(_ context.Context, s session.Summary) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	f, err := os.OpenFile(r.path, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return errors.Wrap(err, "open append")
	}
	encErr := json.NewEncoder(f).Encode(Entry{Timestamp: r.now().UTC(), Data: s})
	closeErr := f.Close()
	if encErr != nil {
		return errors.Wrap(encErr, "encode append")
	}
	if closeErr != nil {
		return errors.Wrap(closeErr, "close append")
	}
	r.count++

	if r.retention > 0 && r.count > r.retention {
		if _, err := r.compact(r.retention); err != nil {
			return err
		}
	}
	return nil
}

func (r *FileRecorder) LoadSessions(_ context.Context) ([]Entry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.read()
}

func (r *FileRecorder) Compact(_ context.Context, keep int) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.compact(keep)
}

func (r *FileRecorder) Close() error { return nil }

// read skips blank and undecodable lines.
func (r *FileRecorder) read() ([]Entry, error) {
	f, err := os.Open(r.path)
	if err != nil {
		return nil, errors.Wrap(err, "open read")
	}
	defer func() { _ = f.Close() }()

	s := bufio.NewScanner(f)
	s.Buffer(make([]byte, 0, 1024*1024), 10*1024*1024)
	var entries []Entry
	for s.Scan() {
		line := s.Bytes()
		if len(line) == 0 {
			continue
		}
		var e Entry
		if err := json.Unmarshal(line, &e); err != nil {
			log.Debug().Err(err).Str("path", r.path).Msg("skipping malformed session line")
			continue
		}
		entries = append(entries, e)
	}
	if err := s.Err(); err != nil {
		return nil, errors.Wrap(err, "scan")
	}
	return entries, nil
}

// compact rewrites the file through a temp file and rename.
func (r *FileRecorder) compact(keep int) (int, error) {
	if keep < 0 {
		keep = 0
	}
	entries, err := r.read()
	if err != nil {
		return 0, err
	}
	if len(entries) <= keep {
		r.count = len(entries)
		return 0, nil
	}
	removed := len(entries) - keep
	entries = entries[removed:]

	tmp, err := os.CreateTemp(filepath.Dir(r.path), filepath.Base(r.path)+".*.tmp")
	if err != nil {
		return 0, errors.Wrap(err, "create temp")
	}
	enc := json.NewEncoder(tmp)
	for _, e := range entries {
		if err := enc.Encode(e); err != nil {
			_ = tmp.Close()
			_ = os.Remove(tmp.Name())
			return 0, errors.Wrap(err, "encode")
		}
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return 0, errors.Wrap(err, "close temp")
	}
	if err := os.Rename(tmp.Name(), r.path); err != nil {
		_ = os.Remove(tmp.Name())
		return 0, errors.Wrap(err, "replace log")
	}
	r.count = len(entries)
	return removed, nil
}
