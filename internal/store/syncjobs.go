package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/neoromantic/telegram-sync-cli/internal/domain/syncjob"
)

const jobSelectCols = `id, chat_id, job_type, priority, status, cursor_start, cursor_end,
	messages_fetched, error_message, created_at, started_at, completed_at`

// JobStore is the atomic job-state-transition façade (spec §4.2).
type JobStore struct {
	db *sql.DB
}

func NewJobStore(s *Store) (*JobStore, error) {
	return &JobStore{db: s.DB()}, nil
}

func scanJob(row interface{ Scan(...any) error }) (syncjob.Job, error) {
	var j syncjob.Job
	var errMsg sql.NullString
	err := row.Scan(&j.ID, &j.ChatID, &j.JobType, &j.Priority, &j.Status, &j.CursorStart, &j.CursorEnd,
		&j.MessagesFetched, &errMsg, &j.CreatedAt, &j.StartedAt, &j.CompletedAt)
	j.ErrorMessage = errMsg.String
	return j, err
}

// Create inserts a Pending row. The caller (the scheduler) is
// responsible for the idempotency pre-check (spec §4.2).
func (js *JobStore) Create(ctx context.Context, chatID string, jobType syncjob.JobType, priority int) (syncjob.Job, error) {
	id := uuid.NewString()
	now := nowUnix()
	_, err := js.db.ExecContext(ctx, `
		INSERT INTO sync_jobs (id, chat_id, job_type, priority, status, messages_fetched, created_at)
		VALUES (?, ?, ?, ?, ?, 0, ?)
	`, id, chatID, jobType, priority, syncjob.StatusPending, now)
	if err != nil {
		return syncjob.Job{}, fmt.Errorf("creating sync job for %s/%s: %w", chatID, jobType, err)
	}
	return syncjob.Job{
		ID: id, ChatID: chatID, JobType: jobType, Priority: priority,
		Status: syncjob.StatusPending, CreatedAt: now,
	}, nil
}

// ClaimNextJob atomically flips the highest-priority Pending job to
// Running via a conditional UPDATE + RETURNING (spec §4.2), so parallel
// claimants never observe the same job id (spec §8 property 7).
func (js *JobStore) ClaimNextJob(ctx context.Context) (*syncjob.Job, error) {
	now := nowUnix()
	row := js.db.QueryRowContext(ctx, `
		UPDATE sync_jobs SET status = ?, started_at = ?
		WHERE id = (
			SELECT id FROM sync_jobs WHERE status = ? ORDER BY priority ASC, created_at ASC LIMIT 1
		) AND status = ?
		RETURNING `+jobSelectCols, syncjob.StatusRunning, now, syncjob.StatusPending, syncjob.StatusPending)

	j, err := scanJob(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("claiming next job: %w", err)
	}
	return &j, nil
}

func (js *JobStore) casStatus(ctx context.Context, id string, from, to syncjob.Status, extraSet string, extraArgs []any) (bool, error) {
	query := fmt.Sprintf(`UPDATE sync_jobs SET status = ?%s WHERE id = ? AND status = ?`, extraSet)
	args := append([]any{to}, extraArgs...)
	args = append(args, id, from)
	res, err := js.db.ExecContext(ctx, query, args...)
	if err != nil {
		return false, err
	}
	affected, _ := res.RowsAffected()
	return affected > 0, nil
}

func (js *JobStore) MarkRunning(ctx context.Context, id string) (bool, error) {
	return js.casStatus(ctx, id, syncjob.StatusPending, syncjob.StatusRunning, `, started_at = ?`, []any{nowUnix()})
}

func (js *JobStore) MarkCompleted(ctx context.Context, id string) (bool, error) {
	return js.casStatus(ctx, id, syncjob.StatusRunning, syncjob.StatusCompleted, `, completed_at = ?`, []any{nowUnix()})
}

func (js *JobStore) MarkFailed(ctx context.Context, id string, message string) (bool, error) {
	return js.casStatus(ctx, id, syncjob.StatusRunning, syncjob.StatusFailed,
		`, completed_at = ?, error_message = ?`, []any{nowUnix(), message})
}

// UpdateProgress increments messages_fetched, advances cursor_end, and
// records cursor_start the first time it is supplied (InitialLoad jobs
// only — spec §4.4's "cursor_start=max, cursor_end=min").
func (js *JobStore) UpdateProgress(ctx context.Context, id string, delta syncjob.ProgressDelta) error {
	_, err := js.db.ExecContext(ctx, `
		UPDATE sync_jobs SET messages_fetched = messages_fetched + ?, cursor_end = ?,
			cursor_start = COALESCE(cursor_start, ?)
		WHERE id = ?
	`, delta.MessagesDelta, delta.CursorEnd, delta.CursorStart, id)
	return err
}

// RecoverCrashedJobs reassigns every Running row to Pending on daemon
// startup (spec §4.2, §7, §8 property 8).
func (js *JobStore) RecoverCrashedJobs(ctx context.Context) (int, error) {
	res, err := js.db.ExecContext(ctx, `
		UPDATE sync_jobs SET status = ?, error_message = ?
		WHERE status = ?
	`, syncjob.StatusPending, syncjob.CrashMarker, syncjob.StatusRunning)
	if err != nil {
		return 0, fmt.Errorf("recovering crashed jobs: %w", err)
	}
	affected, _ := res.RowsAffected()
	return int(affected), nil
}

func (js *JobStore) CancelPendingForChat(ctx context.Context, chatID string) error {
	_, err := js.db.ExecContext(ctx, `DELETE FROM sync_jobs WHERE chat_id = ? AND status = ?`, chatID, syncjob.StatusPending)
	return err
}

func (js *JobStore) CleanupCompleted(ctx context.Context, olderThanSeconds int64) error {
	cutoff := nowUnix() - olderThanSeconds
	_, err := js.db.ExecContext(ctx, `DELETE FROM sync_jobs WHERE status = ? AND completed_at < ?`, syncjob.StatusCompleted, cutoff)
	return err
}

func (js *JobStore) CleanupFailed(ctx context.Context, olderThanSeconds int64) error {
	cutoff := nowUnix() - olderThanSeconds
	_, err := js.db.ExecContext(ctx, `DELETE FROM sync_jobs WHERE status = ? AND completed_at < ?`, syncjob.StatusFailed, cutoff)
	return err
}

func (js *JobStore) HasActiveJobForChat(ctx context.Context, chatID string, jobType syncjob.JobType) (bool, error) {
	var count int
	err := js.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM sync_jobs WHERE chat_id = ? AND job_type = ? AND status IN (?, ?)
	`, chatID, jobType, syncjob.StatusPending, syncjob.StatusRunning).Scan(&count)
	return count > 0, err
}

// GetStatus aggregates pending counts by type/priority and a running
// total, for the scheduler's status snapshot (spec §4.3).
func (js *JobStore) GetStatus(ctx context.Context) (pendingByType map[syncjob.JobType]int, pendingByPriority map[int]int, running int, err error) {
	pendingByType = make(map[syncjob.JobType]int)
	pendingByPriority = make(map[int]int)

	rows, err := js.db.QueryContext(ctx, `SELECT job_type, priority FROM sync_jobs WHERE status = ?`, syncjob.StatusPending)
	if err != nil {
		return nil, nil, 0, err
	}
	defer rows.Close()
	for rows.Next() {
		var jt syncjob.JobType
		var p int
		if err := rows.Scan(&jt, &p); err != nil {
			return nil, nil, 0, err
		}
		pendingByType[jt]++
		pendingByPriority[p]++
	}
	if err := rows.Err(); err != nil {
		return nil, nil, 0, err
	}

	if err := js.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM sync_jobs WHERE status = ?`, syncjob.StatusRunning).Scan(&running); err != nil {
		return nil, nil, 0, err
	}
	return pendingByType, pendingByPriority, running, nil
}
