package daemon

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/neoromantic/telegram-sync-cli/internal/apperror"
	"github.com/neoromantic/telegram-sync-cli/internal/config"
	"github.com/neoromantic/telegram-sync-cli/internal/domain/account"
	"github.com/neoromantic/telegram-sync-cli/internal/domain/remote"
	"github.com/neoromantic/telegram-sync-cli/internal/store"
	"github.com/neoromantic/telegram-sync-cli/internal/sync/executor"
	"github.com/neoromantic/telegram-sync-cli/internal/sync/scheduler"
	"github.com/neoromantic/telegram-sync-cli/internal/sync/updates"
	"github.com/neoromantic/telegram-sync-cli/internal/sync/worker"
)

// ClientFactory builds the abstract remote client for one account
// (spec §1: the remote transport itself is an external collaborator;
// the daemon only depends on the remote.Client interface it consumes).
type ClientFactory func(ctx context.Context, acc account.Account) (remote.Client, error)

// accountWorker bundles one account's sync worker + executor, the unit
// spec §5 describes as "one dispatcher task per account".
type accountWorker struct {
	account  account.Account
	exec     *executor.JobExecutor
	updates  *updates.Handler
	cancel   context.CancelFunc
}

// Runtime is the root value that owns every service handle and the
// per-account worker registry (spec "Design Notes: ownership graphs" —
// "arena-style ownership of services by a root DaemonRuntime value").
type Runtime struct {
	cfg *config.Config

	cacheStore *store.Store
	accounts   account.Repository

	jobs         *store.JobStore
	syncStates   *store.SyncStateStore
	messages     *store.MessageStore
	users        *store.UserStore
	chats        *store.ChatStore
	rateLimits   *store.RateLimitStore
	statusStore  *store.StatusStore

	scheduler *scheduler.Scheduler
	clients   ClientFactory

	workers map[int64]*accountWorker
}

// NewRuntime wires every L0/L1/L2 service over the given store handles
// (spec §2's dependency DAG, assembled leaves-first).
func NewRuntime(cfg *config.Config, cacheStore *store.Store, accounts account.Repository, clients ClientFactory) (*Runtime, error) {
	jobs, err := store.NewJobStore(cacheStore)
	if err != nil {
		return nil, err
	}
	syncStates, err := store.NewSyncStateStore(cacheStore)
	if err != nil {
		return nil, err
	}
	messages, err := store.NewMessageStore(cacheStore)
	if err != nil {
		return nil, err
	}
	users, err := store.NewUserStore(cacheStore)
	if err != nil {
		return nil, err
	}
	chats, err := store.NewChatStore(cacheStore)
	if err != nil {
		return nil, err
	}
	rateLimits, err := store.NewRateLimitStore(cacheStore)
	if err != nil {
		return nil, err
	}
	statusStore, err := store.NewStatusStore(cacheStore)
	if err != nil {
		return nil, err
	}

	sched := scheduler.New(jobs, syncStates, messages)

	return &Runtime{
		cfg: cfg, cacheStore: cacheStore, accounts: accounts,
		jobs: jobs, syncStates: syncStates, messages: messages,
		users: users, chats: chats, rateLimits: rateLimits, statusStore: statusStore,
		scheduler: sched, clients: clients,
		workers: make(map[int64]*accountWorker),
	}, nil
}

func (r *Runtime) Scheduler() *scheduler.Scheduler   { return r.scheduler }
func (r *Runtime) Messages() *store.MessageStore     { return r.messages }
func (r *Runtime) Users() *store.UserStore           { return r.users }
func (r *Runtime) Chats() *store.ChatStore           { return r.chats }
func (r *Runtime) SyncStates() *store.SyncStateStore { return r.syncStates }
func (r *Runtime) RateLimits() *store.RateLimitStore { return r.rateLimits }
func (r *Runtime) StatusStore() *store.StatusStore   { return r.statusStore }
func (r *Runtime) Jobs() *store.JobStore             { return r.jobs }

// Start performs the daemon startup sequence (spec §4.8) after the
// caller has taken the PID lock: no-accounts check, schema already
// applied by store.Open, scheduler recovery/enqueue, one
// worker+executor spawned per account the accounts repository lists.
func (r *Runtime) Start(ctx context.Context) error {
	total, err := r.accounts.Count(ctx)
	if err != nil {
		return fmt.Errorf("counting accounts: %w", err)
	}
	if total == 0 {
		return apperror.New(apperror.CodeGeneral, "no accounts configured").WithDetail("code", "NO_ACCOUNTS")
	}

	if err := r.scheduler.InitializeForStartup(ctx); err != nil {
		return fmt.Errorf("initializing scheduler: %w", err)
	}

	accs, err := r.accounts.List(ctx)
	if err != nil {
		return fmt.Errorf("listing accounts: %w", err)
	}

	connected := 0
	for _, acc := range accs {
		if err := r.spawnAccountWorker(ctx, acc); err != nil {
			logrus.WithError(err).Errorf("[DAEMON] spawning worker for account %d", acc.ID)
			continue
		}
		connected++
	}

	if err := r.statusStore.MarkStarted(ctx, time.Now().Unix()); err != nil {
		return err
	}
	if err := r.statusStore.UpdateCounts(ctx, connected, len(accs)); err != nil {
		return err
	}

	logrus.Infof("[DAEMON] started with %d/%d account(s) connected", connected, len(accs))
	return nil
}

func (r *Runtime) spawnAccountWorker(ctx context.Context, acc account.Account) error {
	client, err := r.clients(ctx, acc)
	if err != nil {
		return fmt.Errorf("building remote client for account %d: %w", acc.ID, err)
	}

	sw := worker.New(client, r.rateLimits, r.messages, r.syncStates, r.cfg.Sync.BatchSize, r.cfg.Sync.APIMethod)
	exec := executor.New(r.scheduler, sw, executor.Config{
		InterBatchDelayMs: r.cfg.Executor.InterBatchDelayMs,
		InterJobDelayMs:   r.cfg.Executor.InterJobDelayMs,
		MaxBatchesPerJob:  r.cfg.Executor.MaxBatchesPerJob,
	})
	handler := updates.New(r.messages, r.syncStates)

	workerCtx, cancel := context.WithCancel(ctx)
	aw := &accountWorker{account: acc, exec: exec, updates: handler, cancel: cancel}
	r.workers[acc.ID] = aw

	go exec.Run(workerCtx)
	go r.consumeLiveEvents(workerCtx, acc, client, handler)
	return nil
}

// consumeLiveEvents is the L3 live-stream consumer task (spec §1, §2's
// "L3 Live stream" component, §5's "separate concurrent consumer per
// account"): it subscribes to the account's live-event stream and
// dispatches every event into the update handler, resubscribing with
// exponential backoff (spec §4.8) whenever the subscription fails or
// the remote drops the connection.
func (r *Runtime) consumeLiveEvents(ctx context.Context, acc account.Account, client remote.Client, handler *updates.Handler) {
	backoff := &Backoff{
		InitialDelayMs: r.cfg.Executor.ReconnectInitialMs,
		MaxDelayMs:     r.cfg.Executor.ReconnectMaxMs,
		Multiplier:     r.cfg.Executor.ReconnectBackoff,
	}

	for ctx.Err() == nil {
		events, err := client.Subscribe(ctx)
		if err != nil {
			delay := backoff.Next()
			logrus.WithError(err).Warnf("[DAEMON] account %d live subscription failed, retrying in %s", acc.ID, delay)
			if !sleepOrDone(ctx, delay) {
				return
			}
			continue
		}

		backoff.Reset()
		r.dispatchLiveEvents(ctx, acc, events, handler)
		if ctx.Err() != nil {
			return
		}

		delay := backoff.Next()
		logrus.Warnf("[DAEMON] account %d live event stream closed, reconnecting in %s", acc.ID, delay)
		if !sleepOrDone(ctx, delay) {
			return
		}
	}
}

func sleepOrDone(ctx context.Context, d time.Duration) bool {
	select {
	case <-time.After(d):
		return true
	case <-ctx.Done():
		return false
	}
}

// dispatchLiveEvents drains one subscription until its channel closes
// or ctx is cancelled, routing each event to the matching Handler
// method the way the teacher's handleEvent switches on event type.
func (r *Runtime) dispatchLiveEvents(ctx context.Context, acc account.Account, events <-chan remote.Event, handler *updates.Handler) {
	for {
		select {
		case evt, ok := <-events:
			if !ok {
				return
			}
			switch evt.Type {
			case remote.EventNewMessage:
				handler.NewMessage(ctx, evt.Message)
			case remote.EventEditMessage:
				handler.EditMessage(ctx, evt.ChatID, evt.Message.ID, evt.Text, evt.EditDate)
			case remote.EventDeleteWithChat:
				handler.DeleteWithChat(ctx, evt.ChatID, evt.MessageIDs)
			case remote.EventDeleteWithoutChat:
				handler.DeleteWithoutChat(ctx, evt.MessageIDs)
			default:
				logrus.Warnf("[DAEMON] account %d: unrecognized live event type %q", acc.ID, evt.Type)
			}
		case <-ctx.Done():
			return
		}
	}
}

// Shutdown requests every account executor to stop and waits (up to
// ShutdownTimeoutMs) for in-flight batches to finish, then releases
// the PID file (spec §4.8).
func (r *Runtime) Shutdown(pidFilePath string) {
	timeout := time.Duration(r.cfg.Executor.ShutdownTimeoutMs) * time.Millisecond
	for id, aw := range r.workers {
		aw.exec.RequestStop()
		if !aw.exec.Wait(timeout) {
			logrus.Warnf("[DAEMON] account %d executor did not stop within %s", id, timeout)
		}
		aw.cancel()
	}
	if err := ReleasePIDFile(pidFilePath); err != nil {
		logrus.WithError(err).Warn("[DAEMON] releasing pid file")
	}
	logrus.Info("[DAEMON] shutdown complete")
}

// RunForeground blocks until SIGTERM/SIGINT, then runs Shutdown. This
// is the daemon process's main loop (spec §4.8), grounded on the
// teacher's cmd/rest.go signal.Notify + StopApp sequencing.
func (r *Runtime) RunForeground(ctx context.Context, pidFilePath string) error {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logrus.Infof("[DAEMON] received %s, shutting down gracefully", sig)
	case <-ctx.Done():
	}
	r.Shutdown(pidFilePath)
	return nil
}
