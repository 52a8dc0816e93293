package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/mikestefanello/backlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/gatekeeper/internal/config"
	"github.com/mrlokans/gatekeeper/internal/tasks"
)

type fakeQueue struct {
	mu    sync.Mutex
	tasks []backlite.Task
	err   error
}

func (q *fakeQueue) Enqueue(_ context.Context, task backlite.Task) (string, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.err != nil {
		return "", q.err
	}
	q.tasks = append(q.tasks, task)
	return "task-1", nil
}

type fakeCleaner struct {
	calls     int
	retention time.Duration
}

func (c *fakeCleaner) DeleteOldEvents(retention time.Duration) (int64, error) {
	c.calls++
	c.retention = retention
	return 0, nil
}

func TestValidateSchedule(t *testing.T) {
	assert.NoError(t, ValidateSchedule("0 3 * * *"))
	assert.NoError(t, ValidateSchedule("*/5 * * * *"))
	assert.Error(t, ValidateSchedule("0 0 3 * * *"), "seconds field is not accepted")
	assert.Error(t, ValidateSchedule("whenever"))
}

func TestAuditCleanupScheduler_RunNowEnqueues(t *testing.T) {
	queue := &fakeQueue{}
	s := NewAuditCleanupScheduler(queue, nil, config.Audit{RetentionDays: 14, CleanupSchedule: "0 3 * * *"})

	require.NoError(t, s.RunNow(context.Background()))

	require.Len(t, queue.tasks, 1)
	assert.Equal(t, tasks.CleanupAuditEventsTask{RetentionDays: 14}, queue.tasks[0])
}

func TestAuditCleanupScheduler_RunNowInlineWithoutQueue(t *testing.T) {
	cleaner := &fakeCleaner{}
	s := NewAuditCleanupScheduler(nil, cleaner, config.Audit{RetentionDays: 2})

	require.NoError(t, s.RunNow(context.Background()))

	assert.Equal(t, 1, cleaner.calls)
	assert.Equal(t, 48*time.Hour, cleaner.retention)
}

func TestAuditCleanupScheduler_EnqueueError(t *testing.T) {
	boom := errors.New("queue closed")
	s := NewAuditCleanupScheduler(&fakeQueue{err: boom}, nil, config.Audit{})

	assert.ErrorIs(t, s.RunNow(context.Background()), boom)
}

func TestAuditCleanupScheduler_StartStop(t *testing.T) {
	s := NewAuditCleanupScheduler(&fakeQueue{}, nil, config.Audit{CleanupSchedule: "0 3 * * *"})

	require.NoError(t, s.Start(context.Background()))
	assert.True(t, s.IsRunning())

	next := s.NextRun()
	require.NotNil(t, next)
	assert.True(t, next.After(time.Now()))
	assert.Equal(t, 3, next.Hour())

	// Second start is a no-op
	require.NoError(t, s.Start(context.Background()))

	s.Stop()
	assert.False(t, s.IsRunning())
	assert.Nil(t, s.NextRun())
}

func TestAuditCleanupScheduler_StopsWithContext(t *testing.T) {
	s := NewAuditCleanupScheduler(&fakeQueue{}, nil, config.Audit{CleanupSchedule: "0 3 * * *"})

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, s.Start(ctx))
	cancel()

	assert.Eventually(t, func() bool { return !s.IsRunning() }, time.Second, 10*time.Millisecond)
}

func TestAuditCleanupScheduler_Disabled(t *testing.T) {
	s := NewAuditCleanupScheduler(&fakeQueue{}, nil, config.Audit{})

	require.NoError(t, s.Start(context.Background()))
	assert.False(t, s.IsRunning())
}

func TestAuditCleanupScheduler_InvalidSchedule(t *testing.T) {
	s := NewAuditCleanupScheduler(&fakeQueue{}, nil, config.Audit{CleanupSchedule: "not a schedule"})

	assert.Error(t, s.Start(context.Background()))
	assert.False(t, s.IsRunning())
}
