package storage

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSQLiteRecorder_AppendLoadCompact(t *testing.T) {
	ctx := context.Background()
	rec, err := NewSQLiteRecorder(filepath.Join(t.TempDir(), "sessions.db"), 0)
	require.NoError(t, err)
	defer func() { _ = rec.Close() }()

	for i := 0; i < 5; i++ {
		require.NoError(t, rec.AppendSession(ctx, summary(fmt.Sprintf("s%d", i), i)))
	}
	entries, err := rec.LoadSessions(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 5)
	assert.Equal(t, "s0", entries[0].Data.SessionID)
	assert.Equal(t, 4, entries[4].Data.Summary.TotalMessages)
	assert.Equal(t, "Europe/Berlin", entries[4].Data.UserInfo.Timezone)

	removed, err := rec.Compact(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, 3, removed)

	n, err := rec.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	entries, err = rec.LoadSessions(ctx)
	require.NoError(t, err)
	assert.Equal(t, "s3", entries[0].Data.SessionID)
}

func TestSQLiteRecorder_Retention(t *testing.T) {
	ctx := context.Background()
	rec, err := NewSQLiteRecorder(":memory:", 2)
	require.NoError(t, err)
	defer func() { _ = rec.Close() }()

	for i := 0; i < 4; i++ {
		require.NoError(t, rec.AppendSession(ctx, summary(fmt.Sprintf("s%d", i), 1)))
	}
	entries, err := rec.LoadSessions(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "s2", entries[0].Data.SessionID)
}

func TestSQLiteRecorder_EmptyDSN(t *testing.T) {
	_, err := NewSQLiteRecorder("  ", 0)
	assert.Error(t, err)
}
