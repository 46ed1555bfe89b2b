package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/neoromantic/telegram-sync-cli/internal/domain/syncjob"
)

func newTestJobStore(t *testing.T) *JobStore {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "cache.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	js, err := NewJobStore(s)
	require.NoError(t, err)
	return js
}

func TestJobStore_ClaimNextJob_OrdersByPriorityThenAge(t *testing.T) {
	js := newTestJobStore(t)
	ctx := context.Background()

	_, err := js.Create(ctx, "chat-low", syncjob.JobBackwardHistory, 4)
	require.NoError(t, err)
	high, err := js.Create(ctx, "chat-high", syncjob.JobForwardCatchup, 0)
	require.NoError(t, err)

	claimed, err := js.ClaimNextJob(ctx)
	require.NoError(t, err)
	require.NotNil(t, claimed)
	assert.Equal(t, high.ID, claimed.ID)
	assert.Equal(t, syncjob.StatusRunning, claimed.Status)
}

func TestJobStore_ClaimNextJob_NoPendingJobsReturnsNil(t *testing.T) {
	js := newTestJobStore(t)
	claimed, err := js.ClaimNextJob(context.Background())
	require.NoError(t, err)
	assert.Nil(t, claimed)
}

func TestJobStore_MarkRunning_OnlyFromPending(t *testing.T) {
	js := newTestJobStore(t)
	ctx := context.Background()
	job, err := js.Create(ctx, "chat1", syncjob.JobInitialLoad, 2)
	require.NoError(t, err)

	ok, err := js.MarkRunning(ctx, job.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	// already Running: a second CAS from Pending must fail.
	ok, err = js.MarkRunning(ctx, job.ID)
	require.NoError(t, err)
	assert.False(t, ok, "CAS must reject a transition whose expected current status no longer holds")
}

func TestJobStore_MarkCompleted_RequiresRunning(t *testing.T) {
	js := newTestJobStore(t)
	ctx := context.Background()
	job, err := js.Create(ctx, "chat1", syncjob.JobInitialLoad, 2)
	require.NoError(t, err)

	ok, err := js.MarkCompleted(ctx, job.ID)
	require.NoError(t, err)
	assert.False(t, ok, "a Pending job cannot be completed directly")

	_, err = js.MarkRunning(ctx, job.ID)
	require.NoError(t, err)

	ok, err = js.MarkCompleted(ctx, job.ID)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestJobStore_RecoverCrashedJobs(t *testing.T) {
	js := newTestJobStore(t)
	ctx := context.Background()
	job, err := js.Create(ctx, "chat1", syncjob.JobInitialLoad, 2)
	require.NoError(t, err)
	_, err = js.MarkRunning(ctx, job.ID)
	require.NoError(t, err)

	n, err := js.RecoverCrashedJobs(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	active, err := js.HasActiveJobForChat(ctx, "chat1", syncjob.JobInitialLoad)
	require.NoError(t, err)
	assert.True(t, active, "recovered job must be Pending again, which still counts as active")
}

func TestJobStore_HasActiveJobForChat(t *testing.T) {
	js := newTestJobStore(t)
	ctx := context.Background()

	active, err := js.HasActiveJobForChat(ctx, "chat1", syncjob.JobForwardCatchup)
	require.NoError(t, err)
	assert.False(t, active)

	_, err = js.Create(ctx, "chat1", syncjob.JobForwardCatchup, 0)
	require.NoError(t, err)

	active, err = js.HasActiveJobForChat(ctx, "chat1", syncjob.JobForwardCatchup)
	require.NoError(t, err)
	assert.True(t, active)
}

func TestJobStore_UpdateProgress_CursorStartFirstWriteWins(t *testing.T) {
	js := newTestJobStore(t)
	ctx := context.Background()
	job, err := js.Create(ctx, "chat1", syncjob.JobInitialLoad, 2)
	require.NoError(t, err)

	first := int64(100)
	err = js.UpdateProgress(ctx, job.ID, syncjob.ProgressDelta{MessagesDelta: 5, CursorStart: &first, CursorEnd: 90})
	require.NoError(t, err)

	second := int64(200)
	err = js.UpdateProgress(ctx, job.ID, syncjob.ProgressDelta{MessagesDelta: 5, CursorStart: &second, CursorEnd: 80})
	require.NoError(t, err)

	row := js.db.QueryRowContext(ctx, `SELECT `+jobSelectCols+` FROM sync_jobs WHERE id = ?`, job.ID)
	got, err := scanJob(row)
	require.NoError(t, err)
	require.NotNil(t, got.CursorStart)
	assert.Equal(t, int64(100), *got.CursorStart, "cursor_start must be set only once, by the first UpdateProgress call")
	assert.Equal(t, 10, got.MessagesFetched)
}
