// Package scheduler queues and dispatches sync jobs idempotently per
// chat+type, and drives the startup recovery/catch-up sequence (spec
// §4.3), grounded on the teacher's pkg/msgworker singleton wiring style.
package scheduler

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/neoromantic/telegram-sync-cli/internal/domain/message"
	"github.com/neoromantic/telegram-sync-cli/internal/domain/syncjob"
	"github.com/neoromantic/telegram-sync-cli/internal/domain/syncstate"
)

// defaultInitialLoadHint mirrors the "10" used by the startup sequence
// (spec §4.3 step 3) and the fallback from queueBackwardHistory.
const defaultInitialLoadHint = 10

// JobsService is the subset of syncjob.Service the scheduler needs,
// widened with GetStatus for the aggregated status snapshot (spec
// §4.3's getStatus, implemented concretely by store.JobStore).
type JobsService interface {
	syncjob.Service
	GetStatus(ctx context.Context) (pendingByType map[syncjob.JobType]int, pendingByPriority map[int]int, running int, err error)
}

// Scheduler wraps the jobs/sync-state/messages services with the
// queueing intent described in spec §4.3. It does not own any of
// them — it is a stateless façade over the same store-backed services
// the executor and worker also hold references to.
type Scheduler struct {
	jobs     JobsService
	states   syncstate.Service
	messages message.Service
}

func New(jobs JobsService, states syncstate.Service, messages message.Service) *Scheduler {
	return &Scheduler{jobs: jobs, states: states, messages: messages}
}

// QueueForwardCatchup is a no-op if a Pending or Running ForwardCatchup
// already exists for the chat; otherwise it inserts one at Realtime
// priority (spec §4.3, §8 idempotence).
func (s *Scheduler) QueueForwardCatchup(ctx context.Context, chatID string) (bool, error) {
	active, err := s.jobs.HasActiveJobForChat(ctx, chatID, syncjob.JobForwardCatchup)
	if err != nil {
		return false, fmt.Errorf("checking active forward catchup for %s: %w", chatID, err)
	}
	if active {
		return false, nil
	}
	if _, err := s.jobs.Create(ctx, chatID, syncjob.JobForwardCatchup, int(syncstate.PriorityRealtime)); err != nil {
		return false, err
	}
	return true, nil
}

// QueueBackwardHistory is a no-op once history is complete or a
// Pending/Running BackwardHistory job already exists. When the chat has
// no backward cursor and no cached messages, a bare backward-offset
// fetch would loop forever against the remote, so it queues an
// InitialLoad instead (spec §4.3, §8 invariants 1-2).
func (s *Scheduler) QueueBackwardHistory(ctx context.Context, chatID string) (bool, error) {
	state, err := s.states.Get(ctx, chatID)
	if err != nil {
		return false, fmt.Errorf("reading sync state for %s: %w", chatID, err)
	}
	if state != nil && state.HistoryComplete {
		return false, nil
	}
	active, err := s.jobs.HasActiveJobForChat(ctx, chatID, syncjob.JobBackwardHistory)
	if err != nil {
		return false, fmt.Errorf("checking active backward history for %s: %w", chatID, err)
	}
	if active {
		return false, nil
	}

	if state == nil || state.BackwardCursor == nil {
		count, err := s.messages.CountByChatID(ctx, chatID)
		if err != nil {
			return false, fmt.Errorf("counting messages for %s: %w", chatID, err)
		}
		if count == 0 {
			return s.QueueInitialLoad(ctx, chatID, defaultInitialLoadHint)
		}
	}

	if _, err := s.jobs.Create(ctx, chatID, syncjob.JobBackwardHistory, int(syncstate.PriorityBackground)); err != nil {
		return false, err
	}
	return true, nil
}

// QueueInitialLoad is a no-op if a Pending or Running InitialLoad
// already exists. n is the caller's hint at how many messages to prime
// with; the worker currently fetches one page of its configured batch
// size regardless, so n is accepted for interface fidelity with spec
// §4.3 but otherwise unused.
func (s *Scheduler) QueueInitialLoad(ctx context.Context, chatID string, n int) (bool, error) {
	_ = n
	active, err := s.jobs.HasActiveJobForChat(ctx, chatID, syncjob.JobInitialLoad)
	if err != nil {
		return false, fmt.Errorf("checking active initial load for %s: %w", chatID, err)
	}
	if active {
		return false, nil
	}

	priority := syncstate.PriorityMedium
	if state, err := s.states.Get(ctx, chatID); err != nil {
		return false, fmt.Errorf("reading sync state for %s: %w", chatID, err)
	} else if state != nil {
		priority = state.SyncPriority
	}

	if _, err := s.jobs.Create(ctx, chatID, syncjob.JobInitialLoad, int(priority)); err != nil {
		return false, err
	}
	return true, nil
}

// InitializeForStartup runs the daemon's startup sequence in the order
// spec §4.3 requires: recover crashed jobs, then queue forward catchup
// for every enabled chat, then prime chats with no synced history, then
// queue backward history for chats still incomplete.
func (s *Scheduler) InitializeForStartup(ctx context.Context) error {
	recovered, err := s.jobs.RecoverCrashedJobs(ctx)
	if err != nil {
		return fmt.Errorf("recovering crashed jobs: %w", err)
	}
	if recovered > 0 {
		logrus.Infof("[SCHEDULER] recovered %d crashed job(s)", recovered)
	}

	enabled, err := s.states.GetEnabledChats(ctx)
	if err != nil {
		return fmt.Errorf("listing enabled chats: %w", err)
	}

	for _, c := range enabled {
		if _, err := s.QueueForwardCatchup(ctx, c.ChatID); err != nil {
			logrus.WithError(err).Warnf("[SCHEDULER] queueing forward catchup for %s", c.ChatID)
		}
	}
	for _, c := range enabled {
		if c.SyncPriority <= syncstate.PriorityMedium && c.SyncedMessages == 0 && !c.HistoryComplete {
			if _, err := s.QueueInitialLoad(ctx, c.ChatID, defaultInitialLoadHint); err != nil {
				logrus.WithError(err).Warnf("[SCHEDULER] queueing initial load for %s", c.ChatID)
			}
		}
	}
	for _, c := range enabled {
		if !c.HistoryComplete && c.SyncPriority <= syncstate.PriorityMedium {
			if _, err := s.QueueBackwardHistory(ctx, c.ChatID); err != nil {
				logrus.WithError(err).Warnf("[SCHEDULER] queueing backward history for %s", c.ChatID)
			}
		}
	}

	logrus.Infof("[SCHEDULER] startup initialization complete for %d enabled chat(s)", len(enabled))
	return nil
}

// GetNextJob, StartJob, CompleteJob, FailJob and UpdateProgress are
// pass-throughs onto the jobs service (spec §4.3).
func (s *Scheduler) GetNextJob(ctx context.Context) (*syncjob.Job, error) {
	return s.jobs.ClaimNextJob(ctx)
}

func (s *Scheduler) StartJob(ctx context.Context, id string) (bool, error) {
	return s.jobs.MarkRunning(ctx, id)
}

func (s *Scheduler) CompleteJob(ctx context.Context, id string) (bool, error) {
	return s.jobs.MarkCompleted(ctx, id)
}

func (s *Scheduler) FailJob(ctx context.Context, id string, msg string) (bool, error) {
	return s.jobs.MarkFailed(ctx, id, msg)
}

func (s *Scheduler) UpdateProgress(ctx context.Context, id string, delta syncjob.ProgressDelta) error {
	return s.jobs.UpdateProgress(ctx, id, delta)
}

// Status is the aggregated snapshot returned by GetStatus.
type Status struct {
	PendingByType     map[syncjob.JobType]int
	PendingByPriority map[int]int
	Running           int
}

func (s *Scheduler) GetStatus(ctx context.Context) (Status, error) {
	byType, byPriority, running, err := s.jobs.GetStatus(ctx)
	if err != nil {
		return Status{}, err
	}
	return Status{PendingByType: byType, PendingByPriority: byPriority, Running: running}, nil
}
