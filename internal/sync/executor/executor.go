// Package executor drives the claim-execute-pace loop that turns
// pending sync jobs into completed or failed ones (spec §4.5). The
// select-loop/atomic-counter/cooperative-stop shape is grounded on the
// teacher's pkg/msgworker worker pool.
package executor

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/neoromantic/telegram-sync-cli/internal/domain/syncjob"
	"github.com/neoromantic/telegram-sync-cli/internal/sync/worker"
)

// Default pacing (spec §4.5).
const (
	DefaultInterBatchDelayMs = 250
	DefaultInterJobDelayMs   = 1000
)

// jobsService is the subset of scheduler.Scheduler the executor needs.
type jobsService interface {
	GetNextJob(ctx context.Context) (*syncjob.Job, error)
	CompleteJob(ctx context.Context, id string) (bool, error)
	FailJob(ctx context.Context, id string, msg string) (bool, error)
	UpdateProgress(ctx context.Context, id string, delta syncjob.ProgressDelta) error
}

// processor is the subset of worker.SyncWorker the executor needs.
type processor interface {
	Process(ctx context.Context, job syncjob.Job) (worker.Result, error)
}

// Config holds the executor's pacing and shutdown tunables (spec §4.5, §4.8).
type Config struct {
	InterBatchDelayMs int64
	InterJobDelayMs   int64
	MaxBatchesPerJob  int // 0 = unlimited
	ShutdownTimeoutMs int64
}

// JobExecutor runs one claim-execute-pace loop. One instance is
// expected per account (spec §5: "the executor is single-threaded
// within an account to keep rate-limit accounting exact").
type JobExecutor struct {
	jobs   jobsService
	worker processor
	cfg    Config

	stopCh   chan struct{}
	stopOnce sync.Once
	stopped  int32
	wg       sync.WaitGroup

	mu             sync.Mutex
	resumeJob      *syncjob.Job
	lastCompletion time.Time
}

func New(jobs jobsService, proc processor, cfg Config) *JobExecutor {
	if cfg.InterBatchDelayMs <= 0 {
		cfg.InterBatchDelayMs = DefaultInterBatchDelayMs
	}
	if cfg.InterJobDelayMs <= 0 {
		cfg.InterJobDelayMs = DefaultInterJobDelayMs
	}
	return &JobExecutor{jobs: jobs, worker: proc, cfg: cfg, stopCh: make(chan struct{})}
}

func (e *JobExecutor) stopRequested() bool {
	return atomic.LoadInt32(&e.stopped) == 1
}

// sleepCtx sleeps for d or returns early if the context is cancelled or
// a stop has been requested, so pacing sleeps are a cancellation point
// (spec §5).
func (e *JobExecutor) sleepCtx(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
	case <-ctx.Done():
	case <-e.stopCh:
	}
}

// ExecuteJob loops the worker over successive batches of a single job
// up to MaxBatchesPerJob (0 = unlimited), reporting Δmessages/cursor
// progress after each batch (spec §4.5). On an exhausted batch the job
// is completed; on a rate-limited or erroring batch it is failed. If
// the batch cap is hit with work remaining, the job is left Running and
// remembered so the next ProcessNextJob resumes it directly, since
// claimNextJob only selects Pending rows and could never reclaim it.
func (e *JobExecutor) ExecuteJob(ctx context.Context, job syncjob.Job) error {
	batches := 0
	for {
		if e.stopRequested() {
			return nil
		}

		result, err := e.worker.Process(ctx, job)
		if err != nil {
			_, ferr := e.jobs.FailJob(ctx, job.ID, err.Error())
			return ferr
		}
		if result.RateLimited {
			_, ferr := e.jobs.FailJob(ctx, job.ID, fmt.Sprintf("Rate limited: wait %ds", result.WaitSeconds))
			return ferr
		}

		delta := syncjob.ProgressDelta{MessagesDelta: result.MessagesFetched, CursorStart: result.CursorStart}
		if result.CursorEnd != nil {
			delta.CursorEnd = *result.CursorEnd
		}
		if err := e.jobs.UpdateProgress(ctx, job.ID, delta); err != nil {
			return err
		}
		batches++

		if !result.HasMore {
			_, cerr := e.jobs.CompleteJob(ctx, job.ID)
			return cerr
		}
		if e.cfg.MaxBatchesPerJob > 0 && batches >= e.cfg.MaxBatchesPerJob {
			e.mu.Lock()
			j := job
			e.resumeJob = &j
			e.mu.Unlock()
			logrus.Infof("[SYNC_EXECUTOR] job %s hit batch cap with work remaining, left Running", job.ID)
			return nil
		}

		e.sleepCtx(ctx, time.Duration(e.cfg.InterBatchDelayMs)*time.Millisecond)
	}
}

// ProcessNextJob resumes a job left Running by the batch cap, or else
// enforces InterJobDelayMs relative to the last completion and claims
// the next one, then executes it. It
// reports whether a job was actually processed, so Run knows when to
// fall back to its idle sleep.
func (e *JobExecutor) ProcessNextJob(ctx context.Context) (bool, error) {
	e.mu.Lock()
	resume := e.resumeJob
	e.resumeJob = nil
	e.mu.Unlock()

	var job syncjob.Job
	if resume != nil {
		job = *resume
	} else {
		if remaining := time.Duration(e.cfg.InterJobDelayMs)*time.Millisecond - time.Since(e.lastCompletion); remaining > 0 {
			e.sleepCtx(ctx, remaining)
		}
		next, err := e.jobs.GetNextJob(ctx)
		if err != nil {
			return false, err
		}
		if next == nil {
			return false, nil
		}
		job = *next
	}

	err := e.ExecuteJob(ctx, job)
	e.lastCompletion = time.Now()
	return true, err
}

// Run loops ProcessNextJob until RequestStop is called, sleeping 1s
// whenever no job was available (spec §4.5).
func (e *JobExecutor) Run(ctx context.Context) {
	e.wg.Add(1)
	defer e.wg.Done()

	logrus.Info("[SYNC_EXECUTOR] started")
	for {
		if e.stopRequested() {
			logrus.Info("[SYNC_EXECUTOR] stop requested, exiting run loop")
			return
		}
		select {
		case <-ctx.Done():
			return
		default:
		}

		processed, err := e.ProcessNextJob(ctx)
		if err != nil {
			logrus.WithError(err).Error("[SYNC_EXECUTOR] job processing error")
		}
		if !processed {
			e.sleepCtx(ctx, 1*time.Second)
		}
	}
}

// RequestStop is cooperative: checked between batches and before the
// idle sleep (spec §5). It does not interrupt an in-flight remote call.
func (e *JobExecutor) RequestStop() {
	e.stopOnce.Do(func() {
		atomic.StoreInt32(&e.stopped, 1)
		close(e.stopCh)
	})
}

// Wait blocks until Run has returned, or the timeout elapses first.
func (e *JobExecutor) Wait(timeout time.Duration) bool {
	done := make(chan struct{})
	go func() {
		e.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return true
	case <-time.After(timeout):
		return false
	}
}
