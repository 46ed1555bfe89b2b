// Package worker implements the per-account sync worker: it translates
// a claimed job into one page of remote calls, applies the result to
// the message cache and per-chat cursors, and reports back a typed
// result the executor uses to finalize the job (spec §4.4). Grounded on
// the teacher's pkg/msgworker job-dispatch style.
package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/neoromantic/telegram-sync-cli/internal/domain/message"
	"github.com/neoromantic/telegram-sync-cli/internal/domain/ratelimit"
	"github.com/neoromantic/telegram-sync-cli/internal/domain/remote"
	"github.com/neoromantic/telegram-sync-cli/internal/domain/syncjob"
	"github.com/neoromantic/telegram-sync-cli/internal/domain/syncstate"
)

// Result is what every Process* method and the job dispatcher return.
// The executor turns it into a syncjob.ProgressDelta and a finalize
// call (spec §4.4's processJob finalization rules).
type Result struct {
	Success       bool
	RateLimited   bool
	WaitSeconds   int
	MessagesFetched int
	HasMore       bool
	CursorStart   *int64 // InitialLoad only: max id fetched
	CursorEnd     *int64 // ForwardCatchup: max id; BackwardHistory/InitialLoad: min id
}

// SyncWorker consumes an abstract remote client and applies fetched
// pages to the cache (spec §4.4).
type SyncWorker struct {
	remote     remote.Client
	rateLimits ratelimit.Service
	messages   message.Service
	states     syncstate.Service

	batchSize int
	apiMethod string
}

func New(client remote.Client, rateLimits ratelimit.Service, messages message.Service, states syncstate.Service, batchSize int, apiMethod string) *SyncWorker {
	if batchSize <= 0 {
		batchSize = 100
	}
	return &SyncWorker{
		remote: client, rateLimits: rateLimits, messages: messages, states: states,
		batchSize: batchSize, apiMethod: apiMethod,
	}
}

// CanMakeAPICall reports whether the configured method is currently
// free of a flood-wait block (spec §4.4's runOnce preflight).
func (w *SyncWorker) CanMakeAPICall(ctx context.Context) (bool, error) {
	blocked, err := w.rateLimits.IsBlocked(ctx, w.apiMethod)
	if err != nil {
		return false, err
	}
	return !blocked, nil
}

// callRemote is the common preflight every job type shares (spec
// §4.4): consult the rate limiter before touching the remote, record
// the call, and translate a flood-wait error into persistent block
// state rather than propagating it as a plain error.
func (w *SyncWorker) callRemote(ctx context.Context, chatID string, opts remote.GetMessagesOptions) (remote.GetMessagesResult, int, bool, error) {
	blocked, err := w.rateLimits.IsBlocked(ctx, w.apiMethod)
	if err != nil {
		return remote.GetMessagesResult{}, 0, false, err
	}
	if blocked {
		wait, err := w.rateLimits.GetWaitTime(ctx, w.apiMethod)
		if err != nil {
			return remote.GetMessagesResult{}, 0, false, err
		}
		return remote.GetMessagesResult{}, wait, true, nil
	}

	if err := w.rateLimits.RecordCall(ctx, w.apiMethod); err != nil {
		return remote.GetMessagesResult{}, 0, false, err
	}

	res, err := w.remote.GetMessages(ctx, chatID, opts)
	if err != nil {
		if fw, ok := remote.AsFloodWait(err); ok {
			if setErr := w.rateLimits.SetFloodWait(ctx, w.apiMethod, fw.WaitSeconds); setErr != nil {
				return remote.GetMessagesResult{}, 0, false, setErr
			}
			return remote.GetMessagesResult{}, fw.WaitSeconds, true, nil
		}
		return remote.GetMessagesResult{}, 0, false, err
	}
	return res, 0, false, nil
}

func (w *SyncWorker) applyBatch(ctx context.Context, chatID string, raw []remote.RawMessage) error {
	if len(raw) == 0 {
		return nil
	}
	msgs := make([]message.Message, len(raw))
	now := time.Now().Unix()
	for i, rm := range raw {
		msgs[i] = message.Message{
			ChatID: chatID, ID: rm.ID, SenderID: rm.SenderID, Text: rm.Text,
			HasMedia: rm.HasMedia, ReplyTo: rm.ReplyTo, ForwardID: rm.ForwardID,
			Outgoing: rm.Outgoing, Date: rm.Date, EditDate: rm.EditDate,
			FetchedAt: now, Raw: rm.Raw,
		}
	}
	return w.messages.UpsertBatch(ctx, msgs)
}

func maxID(raw []remote.RawMessage) int64 {
	m := raw[0].ID
	for _, r := range raw[1:] {
		if r.ID > m {
			m = r.ID
		}
	}
	return m
}

func minID(raw []remote.RawMessage) int64 {
	m := raw[0].ID
	for _, r := range raw[1:] {
		if r.ID < m {
			m = r.ID
		}
	}
	return m
}

// ProcessForwardCatchup fetches messages newer than forward_cursor and
// advances it to the maximum id fetched (spec §4.4).
func (w *SyncWorker) ProcessForwardCatchup(ctx context.Context, chatID string) (Result, error) {
	state, err := w.states.Get(ctx, chatID)
	if err != nil {
		return Result{}, err
	}
	var cursor int64
	if state != nil && state.ForwardCursor != nil {
		cursor = *state.ForwardCursor
	}

	res, waitSeconds, rateLimited, err := w.callRemote(ctx, chatID, remote.GetMessagesOptions{
		Limit: w.batchSize, OffsetID: cursor, AddOffset: -w.batchSize,
	})
	if err != nil {
		return Result{}, err
	}
	if rateLimited {
		return Result{RateLimited: true, WaitSeconds: waitSeconds}, nil
	}

	if err := w.applyBatch(ctx, chatID, res.Messages); err != nil {
		return Result{}, err
	}

	var newCursor *int64
	if len(res.Messages) > 0 {
		id := maxID(res.Messages)
		newCursor = &id
		if err := w.states.UpdateCursors(ctx, chatID, newCursor, nil); err != nil {
			return Result{}, err
		}
		if err := w.states.IncrementSyncedMessages(ctx, chatID, int64(len(res.Messages))); err != nil {
			return Result{}, err
		}
	}
	if err := w.states.UpdateLastSync(ctx, chatID, syncstate.DirectionForward, time.Now().Unix()); err != nil {
		return Result{}, err
	}

	return Result{
		Success: true, MessagesFetched: len(res.Messages),
		HasMore: len(res.Messages) == w.batchSize, CursorEnd: newCursor,
	}, nil
}

// ProcessBackwardHistory fetches messages older than backward_cursor
// (or the oldest cached message id) and retreats the cursor to the
// minimum id fetched, declaring history complete on an empty or short
// batch (spec §4.4). With neither a cursor nor a cached message it runs
// the job as an initial load.
func (w *SyncWorker) ProcessBackwardHistory(ctx context.Context, chatID string) (Result, error) {
	state, err := w.states.Get(ctx, chatID)
	if err != nil {
		return Result{}, err
	}
	if state != nil && state.HistoryComplete {
		return Result{Success: true}, nil
	}

	var offsetID int64
	if state != nil && state.BackwardCursor != nil {
		offsetID = *state.BackwardCursor
	} else {
		oldest, ok, err := w.messages.GetOldestMessageID(ctx, chatID)
		if err != nil {
			return Result{}, err
		}
		if !ok {
			// No offset to page back from (the scheduler normally
			// queues an InitialLoad here, spec §4.3): fetch the most
			// recent page instead.
			return w.ProcessInitialLoad(ctx, chatID)
		}
		offsetID = oldest
	}

	res, waitSeconds, rateLimited, err := w.callRemote(ctx, chatID, remote.GetMessagesOptions{
		Limit: w.batchSize, OffsetID: offsetID,
	})
	if err != nil {
		return Result{}, err
	}
	if rateLimited {
		return Result{RateLimited: true, WaitSeconds: waitSeconds}, nil
	}

	if err := w.applyBatch(ctx, chatID, res.Messages); err != nil {
		return Result{}, err
	}

	historyComplete := len(res.Messages) == 0 || res.NoMoreMessages || len(res.Messages) < w.batchSize
	var newCursor *int64
	if len(res.Messages) > 0 {
		id := minID(res.Messages)
		newCursor = &id
		if err := w.states.UpdateCursors(ctx, chatID, nil, newCursor); err != nil {
			return Result{}, err
		}
	}
	if historyComplete {
		if err := w.states.MarkHistoryComplete(ctx, chatID); err != nil {
			return Result{}, err
		}
	}
	if err := w.states.UpdateLastSync(ctx, chatID, syncstate.DirectionBackward, time.Now().Unix()); err != nil {
		return Result{}, err
	}

	return Result{
		Success: true, MessagesFetched: len(res.Messages),
		HasMore: !historyComplete, CursorEnd: newCursor,
	}, nil
}

// ProcessInitialLoad fetches the most recent page with no offset and
// seeds both cursors from it in one pass (spec §4.4).
func (w *SyncWorker) ProcessInitialLoad(ctx context.Context, chatID string) (Result, error) {
	res, waitSeconds, rateLimited, err := w.callRemote(ctx, chatID, remote.GetMessagesOptions{Limit: w.batchSize})
	if err != nil {
		return Result{}, err
	}
	if rateLimited {
		return Result{RateLimited: true, WaitSeconds: waitSeconds}, nil
	}

	if err := w.applyBatch(ctx, chatID, res.Messages); err != nil {
		return Result{}, err
	}

	historyComplete := len(res.Messages) == 0 || len(res.Messages) < w.batchSize
	var fwd, bwd *int64
	if len(res.Messages) > 0 {
		max, min := maxID(res.Messages), minID(res.Messages)
		fwd, bwd = &max, &min
		if err := w.states.UpdateCursors(ctx, chatID, fwd, bwd); err != nil {
			return Result{}, err
		}
		if err := w.states.IncrementSyncedMessages(ctx, chatID, int64(len(res.Messages))); err != nil {
			return Result{}, err
		}
	}
	if historyComplete {
		if err := w.states.MarkHistoryComplete(ctx, chatID); err != nil {
			return Result{}, err
		}
	}

	return Result{
		Success: true, MessagesFetched: len(res.Messages),
		HasMore: !historyComplete, CursorStart: fwd, CursorEnd: bwd,
	}, nil
}

// Process dispatches a claimed job to the matching Process* method
// (spec §4.4's processJob). An unknown job type is returned as a plain
// error so the executor can markFailed with "Unknown job type: <t>".
func (w *SyncWorker) Process(ctx context.Context, job syncjob.Job) (Result, error) {
	switch job.JobType {
	case syncjob.JobForwardCatchup:
		return w.ProcessForwardCatchup(ctx, job.ChatID)
	case syncjob.JobBackwardHistory:
		return w.ProcessBackwardHistory(ctx, job.ChatID)
	case syncjob.JobInitialLoad:
		return w.ProcessInitialLoad(ctx, job.ChatID)
	default:
		return Result{}, fmt.Errorf("Unknown job type: %s", job.JobType)
	}
}

// jobsService is the minimal pass-through the worker needs for RunOnce,
// satisfied by scheduler.Scheduler.
type jobsService interface {
	GetNextJob(ctx context.Context) (*syncjob.Job, error)
	CompleteJob(ctx context.Context, id string) (bool, error)
	FailJob(ctx context.Context, id string, message string) (bool, error)
}

// RunOnce claims and fully processes a single job, preserving queue
// order by refusing to claim while the configured method is blocked
// (spec §4.4). It returns nil, nil when no job is pending.
func (w *SyncWorker) RunOnce(ctx context.Context, jobs jobsService) (*Result, error) {
	ok, err := w.CanMakeAPICall(ctx)
	if err != nil {
		return nil, err
	}
	if !ok {
		wait, err := w.rateLimits.GetWaitTime(ctx, w.apiMethod)
		if err != nil {
			return nil, err
		}
		return &Result{RateLimited: true, WaitSeconds: wait}, nil
	}

	job, err := jobs.GetNextJob(ctx)
	if err != nil {
		return nil, err
	}
	if job == nil {
		return nil, nil
	}

	result, procErr := w.Process(ctx, *job)
	switch {
	case procErr != nil:
		if _, err := jobs.FailJob(ctx, job.ID, procErr.Error()); err != nil {
			return nil, err
		}
	case result.RateLimited:
		msg := fmt.Sprintf("Rate limited: wait %ds", result.WaitSeconds)
		if _, err := jobs.FailJob(ctx, job.ID, msg); err != nil {
			return nil, err
		}
	default:
		if _, err := jobs.CompleteJob(ctx, job.ID); err != nil {
			return nil, err
		}
	}

	if procErr != nil {
		logrus.WithError(procErr).Warnf("[SYNC_WORKER] job %s failed", job.ID)
	}
	return &result, nil
}
