package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"career-twin/internal/config"
	"career-twin/internal/session"
)

func summary(id string, messages int) session.Summary {
	return session.Summary{
		SessionID: id,
		StartTime: time.Unix(1, 0).UTC(),
		Summary:   session.Counts{TotalMessages: messages, CustomMessages: messages},
		UserInfo:  session.UserInfo{Timezone: "Europe/Berlin"},
	}
}

func TestFileRecorder_AppendAndLoad(t *testing.T) {
	ctx := context.Background()
	p := filepath.Join(t.TempDir(), "logs", "sessions.jsonl")
	rec, err := NewFileRecorder(p, 0)
	if err != nil {
		t.Fatalf("init recorder: %v", err)
	}

	if err := rec.AppendSession(ctx, summary("s1", 1)); err != nil {
		t.Fatalf("append1: %v", err)
	}
	if err := rec.AppendSession(ctx, summary("s2", 2)); err != nil {
		t.Fatalf("append2: %v", err)
	}

	entries, err := rec.LoadSessions(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("want 2, got %d", len(entries))
	}
	if entries[0].Data.SessionID != "s1" || entries[1].Data.SessionID != "s2" {
		t.Fatalf("order mismatch: %+v", entries)
	}
	assert.Equal(t, 2, entries[1].Data.Summary.TotalMessages)
	assert.False(t, entries[0].Timestamp.IsZero())

	st, err := os.Stat(p)
	if err != nil || st.Size() == 0 {
		t.Fatalf("file not written")
	}
}

func TestFileRecorder_SkipsMalformedLines(t *testing.T) {
	p := filepath.Join(t.TempDir(), "sessions.jsonl")
	require.NoError(t, os.WriteFile(p, []byte("not json\n\n{\"timestamp\":\"2025-01-01T00:00:00Z\",\"data\":{\"sessionId\":\"ok\"}}\n"), 0o644))

	rec, err := NewFileRecorder(p, 0)
	require.NoError(t, err)
	entries, err := rec.LoadSessions(context.Background())
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "ok", entries[0].Data.SessionID)
}

func TestFileRecorder_Retention(t *testing.T) {
	ctx := context.Background()
	rec, err := NewFileRecorder(filepath.Join(t.TempDir(), "sessions.jsonl"), 3)
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		require.NoError(t, rec.AppendSession(ctx, summary(fmt.Sprintf("s%d", i), i)))
	}
	entries, err := rec.LoadSessions(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, "s2", entries[0].Data.SessionID)
	assert.Equal(t, "s4", entries[2].Data.SessionID)
}

func TestFileRecorder_Compact(t *testing.T) {
	ctx := context.Background()
	p := filepath.Join(t.TempDir(), "sessions.jsonl")
	rec, err := NewFileRecorder(p, 0)
	require.NoError(t, err)
	for i := 0; i < 4; i++ {
		require.NoError(t, rec.AppendSession(ctx, summary(fmt.Sprintf("s%d", i), 1)))
	}

	removed, err := rec.Compact(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 3, removed)

	removed, err = rec.Compact(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, 0, removed)

	// a reopened recorder sees the compacted file
	again, err := NewFileRecorder(p, 0)
	require.NoError(t, err)
	entries, err := again.LoadSessions(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "s3", entries[0].Data.SessionID)
}

func TestOpen(t *testing.T) {
	dir := t.TempDir()
	rec, err := Open(&config.Config{SessionStore: config.StoreFile, SessionLogPath: filepath.Join(dir, "a.jsonl")})
	require.NoError(t, err)
	assert.IsType(t, &FileRecorder{}, rec)

	rec, err = Open(&config.Config{SessionStore: config.StoreSQLite, SessionDBPath: filepath.Join(dir, "db", "s.db")})
	require.NoError(t, err)
	assert.IsType(t, &SQLiteRecorder{}, rec)
	require.NoError(t, rec.Close())

	_, err = Open(&config.Config{SessionStore: "mongo"})
	assert.Error(t, err)
}
