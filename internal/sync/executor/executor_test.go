package executor

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/neoromantic/telegram-sync-cli/internal/domain/syncjob"
	"github.com/neoromantic/telegram-sync-cli/internal/sync/worker"
)

// fakeJobs is an in-memory jobsService.
type fakeJobs struct {
	jobs     []*syncjob.Job
	progress []syncjob.ProgressDelta
	failed   []string
	completed []string
}

func (f *fakeJobs) GetNextJob(ctx context.Context) (*syncjob.Job, error) {
	if len(f.jobs) == 0 {
		return nil, nil
	}
	j := f.jobs[0]
	f.jobs = f.jobs[1:]
	return j, nil
}
func (f *fakeJobs) CompleteJob(ctx context.Context, id string) (bool, error) {
	f.completed = append(f.completed, id)
	return true, nil
}
func (f *fakeJobs) FailJob(ctx context.Context, id string, msg string) (bool, error) {
	f.failed = append(f.failed, id)
	return true, nil
}
func (f *fakeJobs) UpdateProgress(ctx context.Context, id string, delta syncjob.ProgressDelta) error {
	f.progress = append(f.progress, delta)
	return nil
}

// fakeProcessor scripts a sequence of worker.Result/error pairs.
type fakeProcessor struct {
	results []worker.Result
	errs    []error
	calls   int
}

func (f *fakeProcessor) Process(ctx context.Context, job syncjob.Job) (worker.Result, error) {
	i := f.calls
	f.calls++
	var res worker.Result
	var err error
	if i < len(f.results) {
		res = f.results[i]
	}
	if i < len(f.errs) {
		err = f.errs[i]
	}
	return res, err
}

func newJob() syncjob.Job {
	return syncjob.Job{ID: uuid.NewString(), ChatID: "chat1", JobType: syncjob.JobForwardCatchup}
}

func TestExecuteJob_CompletesWhenNoMoreBatches(t *testing.T) {
	jobs := &fakeJobs{}
	proc := &fakeProcessor{results: []worker.Result{{Success: true, MessagesFetched: 5, HasMore: false}}}
	e := New(jobs, proc, Config{InterBatchDelayMs: 1, InterJobDelayMs: 1})

	job := newJob()
	err := e.ExecuteJob(context.Background(), job)
	require.NoError(t, err)
	assert.Equal(t, []string{job.ID}, jobs.completed)
	assert.Empty(t, jobs.failed)
}

func TestExecuteJob_FailsOnProcessError(t *testing.T) {
	jobs := &fakeJobs{}
	proc := &fakeProcessor{errs: []error{errors.New("boom")}}
	e := New(jobs, proc, Config{InterBatchDelayMs: 1, InterJobDelayMs: 1})

	job := newJob()
	err := e.ExecuteJob(context.Background(), job)
	require.NoError(t, err)
	assert.Equal(t, []string{job.ID}, jobs.failed)
	assert.Empty(t, jobs.completed)
}

func TestExecuteJob_FailsOnRateLimited(t *testing.T) {
	jobs := &fakeJobs{}
	proc := &fakeProcessor{results: []worker.Result{{RateLimited: true, WaitSeconds: 10}}}
	e := New(jobs, proc, Config{InterBatchDelayMs: 1, InterJobDelayMs: 1})

	job := newJob()
	err := e.ExecuteJob(context.Background(), job)
	require.NoError(t, err)
	assert.Equal(t, []string{job.ID}, jobs.failed)
}

func TestExecuteJob_BatchCapLeavesJobResumable(t *testing.T) {
	jobs := &fakeJobs{}
	proc := &fakeProcessor{results: []worker.Result{
		{Success: true, MessagesFetched: 1, HasMore: true},
	}}
	e := New(jobs, proc, Config{InterBatchDelayMs: 1, InterJobDelayMs: 1, MaxBatchesPerJob: 1})

	job := newJob()
	err := e.ExecuteJob(context.Background(), job)
	require.NoError(t, err)
	assert.Empty(t, jobs.completed)
	assert.Empty(t, jobs.failed)
	require.NotNil(t, e.resumeJob)
	assert.Equal(t, job.ID, e.resumeJob.ID)
}

func TestProcessNextJob_ResumesCappedJobDirectly(t *testing.T) {
	jobs := &fakeJobs{}
	job := newJob()
	proc := &fakeProcessor{}
	e := New(jobs, proc, Config{InterBatchDelayMs: 1, InterJobDelayMs: 1})
	e.resumeJob = &job

	processed, err := e.ProcessNextJob(context.Background())
	require.NoError(t, err)
	assert.True(t, processed)
	assert.Nil(t, e.resumeJob)
	assert.Equal(t, 1, proc.calls, "resume must bypass GetNextJob and dispatch straight to the worker")
}

func TestProcessNextJob_NoJobAvailable(t *testing.T) {
	jobs := &fakeJobs{}
	proc := &fakeProcessor{}
	e := New(jobs, proc, Config{InterBatchDelayMs: 1, InterJobDelayMs: 1})

	processed, err := e.ProcessNextJob(context.Background())
	require.NoError(t, err)
	assert.False(t, processed)
}

func TestRequestStop_StopsRunLoop(t *testing.T) {
	jobs := &fakeJobs{}
	proc := &fakeProcessor{}
	e := New(jobs, proc, Config{InterBatchDelayMs: 1, InterJobDelayMs: 1})

	done := make(chan struct{})
	go func() {
		e.Run(context.Background())
		close(done)
	}()

	e.RequestStop()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not exit after RequestStop")
	}
	assert.True(t, e.Wait(time.Second))
}
