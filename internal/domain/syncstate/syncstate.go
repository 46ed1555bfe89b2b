// Package syncstate defines per-chat sync-state bookkeeping (spec
// §3.1): cursors, history-complete flag, synced counters, priority.
package syncstate

import "context"

type Priority int

const (
	PriorityRealtime Priority = iota
	PriorityHigh
	PriorityMedium
	PriorityLow
	PriorityBackground
)

type ChatType string

const (
	ChatTypePrivate    ChatType = "private"
	ChatTypeGroup      ChatType = "group"
	ChatTypeSupergroup ChatType = "supergroup"
	ChatTypeChannel    ChatType = "channel"
)

// Direction distinguishes the two independent cursor axes (spec §5).
type Direction string

const (
	DirectionForward  Direction = "forward"
	DirectionBackward Direction = "backward"
)

// State is a row of the chat_sync_state table.
type State struct {
	ChatID          string
	ChatType        ChatType
	SyncPriority    Priority
	SyncEnabled     bool
	ForwardCursor   *int64
	BackwardCursor  *int64
	HistoryComplete bool
	SyncedMessages  int64
	LastForwardSync *int64
	LastBackwardSync *int64
}

// Service is the L1 façade over chat-sync-state rows (spec §4.1).
type Service interface {
	Upsert(ctx context.Context, s State) error
	Get(ctx context.Context, chatID string) (*State, error)
	GetEnabledChats(ctx context.Context) ([]State, error)
	GetChatsByPriority(ctx context.Context, maxPriority Priority) ([]State, error)
	GetIncompleteHistory(ctx context.Context) ([]State, error)
	UpdateCursors(ctx context.Context, chatID string, forward, backward *int64) error
	MarkHistoryComplete(ctx context.Context, chatID string) error
	IncrementSyncedMessages(ctx context.Context, chatID string, delta int64) error
	UpdateLastSync(ctx context.Context, chatID string, direction Direction, at int64) error
}
