package scheduler

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScheduler_AddValidatesSpec(t *testing.T) {
	s := New()
	defer s.Stop()

	err := s.Add(Job{Name: "bad", Spec: "every tuesday", Run: func(context.Context) error { return nil }})
	assert.Error(t, err)
	assert.Error(t, s.Add(Job{Name: "nil", Spec: "0 21 * * *"}))
	assert.False(t, s.IsRunning())

	require.NoError(t, s.Add(Job{Name: "report", Spec: "0 21 * * *", Run: func(context.Context) error { return nil }}))
	assert.True(t, s.IsRunning())
}

func TestScheduler_RunNow(t *testing.T) {
	s := New()
	defer s.Stop()

	calls := 0
	require.NoError(t, s.Add(Job{Name: "compact", Spec: "@daily", Run: func(ctx context.Context) error {
		calls++
		return ctx.Err()
	}}))
	require.NoError(t, s.Add(Job{Name: "fail", Spec: "@hourly", Run: func(context.Context) error {
		return errors.New("boom")
	}}))

	require.NoError(t, s.RunNow("compact"))
	assert.Equal(t, 1, calls)
	assert.EqualError(t, s.RunNow("fail"), "boom")
	assert.Error(t, s.RunNow("missing"))
}

func TestScheduler_StartStop(t *testing.T) {
	s := New()
	s.Start() // no jobs, no-op
	require.NoError(t, s.Add(Job{Name: "noop", Spec: "@daily", Run: func(ctx context.Context) error { return ctx.Err() }}))
	s.Start()
	require.NoError(t, s.RunNow("noop"))
	s.Stop()
	assert.Error(t, s.RunNow("noop"))
}
