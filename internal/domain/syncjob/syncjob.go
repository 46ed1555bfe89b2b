// Package syncjob defines the persistent job queue entity and its
// atomic-transition service contract (spec §3.1, §4.2).
package syncjob

import "context"

type JobType string

const (
	JobForwardCatchup  JobType = "ForwardCatchup"
	JobBackwardHistory JobType = "BackwardHistory"
	JobInitialLoad     JobType = "InitialLoad"
)

type Status string

const (
	StatusPending   Status = "Pending"
	StatusRunning   Status = "Running"
	StatusCompleted Status = "Completed"
	StatusFailed    Status = "Failed"
)

// CrashMarker is the error message recoverCrashedJobs stamps onto jobs
// reverted to Pending on daemon startup (spec §7).
const CrashMarker = "daemon crashed during execution"

// Job is a row of the sync_jobs table.
type Job struct {
	ID              string
	ChatID          string
	JobType         JobType
	Priority        int
	Status          Status
	CursorStart     *int64
	CursorEnd       *int64
	MessagesFetched int
	ErrorMessage    string
	CreatedAt       int64
	StartedAt       *int64
	CompletedAt     *int64
}

// ProgressDelta is applied by updateProgress: messages_fetched is
// incremented by Delta, cursor_end is advanced to CursorEnd.
type ProgressDelta struct {
	MessagesDelta int
	CursorStart   *int64 // optional, first-write-wins; only InitialLoad jobs set this
	CursorEnd     int64
}

// Service is the atomic job-state-transition contract (spec §4.2).
type Service interface {
	Create(ctx context.Context, chatID string, jobType JobType, priority int) (Job, error)
	ClaimNextJob(ctx context.Context) (*Job, error)
	MarkRunning(ctx context.Context, id string) (bool, error)
	MarkCompleted(ctx context.Context, id string) (bool, error)
	MarkFailed(ctx context.Context, id string, message string) (bool, error)
	UpdateProgress(ctx context.Context, id string, delta ProgressDelta) error
	RecoverCrashedJobs(ctx context.Context) (int, error)
	CancelPendingForChat(ctx context.Context, chatID string) error
	CleanupCompleted(ctx context.Context, olderThanSeconds int64) error
	CleanupFailed(ctx context.Context, olderThanSeconds int64) error
	HasActiveJobForChat(ctx context.Context, chatID string, jobType JobType) (bool, error)
}
