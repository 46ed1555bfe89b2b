package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/neoromantic/telegram-sync-cli/internal/domain/syncstate"
)

const syncStateSelectCols = `chat_id, chat_type, sync_priority, sync_enabled, forward_cursor,
	backward_cursor, history_complete, synced_messages, last_forward_sync, last_backward_sync`

// SyncStateStore is the L1 façade over per-chat sync state (spec §4.1).
//
// Invariants enforced here rather than by the caller (spec §3.1):
// forward_cursor only advances (CAS: "update iff candidate > current"),
// backward_cursor only retreats, and history_complete, once set, is
// never cleared by UpdateCursors/Upsert.
type SyncStateStore struct {
	db *sql.DB

	stmtGet *sql.Stmt
}

func NewSyncStateStore(s *Store) (*SyncStateStore, error) {
	db := s.DB()
	ss := &SyncStateStore{db: db}
	var err error
	if ss.stmtGet, err = db.Prepare(`SELECT ` + syncStateSelectCols + ` FROM chat_sync_state WHERE chat_id = ?`); err != nil {
		return nil, fmt.Errorf("preparing sync state get: %w", err)
	}
	return ss, nil
}

func scanSyncState(row interface{ Scan(...any) error }) (syncstate.State, error) {
	var st syncstate.State
	err := row.Scan(&st.ChatID, &st.ChatType, &st.SyncPriority, &st.SyncEnabled, &st.ForwardCursor,
		&st.BackwardCursor, &st.HistoryComplete, &st.SyncedMessages, &st.LastForwardSync, &st.LastBackwardSync)
	return st, err
}

func (ss *SyncStateStore) Upsert(ctx context.Context, s syncstate.State) error {
	_, err := ss.db.ExecContext(ctx, `
		INSERT INTO chat_sync_state (chat_id, chat_type, sync_priority, sync_enabled, forward_cursor,
			backward_cursor, history_complete, synced_messages, last_forward_sync, last_backward_sync)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(chat_id) DO UPDATE SET
			chat_type = excluded.chat_type,
			sync_priority = excluded.sync_priority,
			sync_enabled = excluded.sync_enabled,
			forward_cursor = COALESCE(MAX(excluded.forward_cursor, chat_sync_state.forward_cursor),
				excluded.forward_cursor, chat_sync_state.forward_cursor),
			backward_cursor = COALESCE(MIN(excluded.backward_cursor, chat_sync_state.backward_cursor),
				excluded.backward_cursor, chat_sync_state.backward_cursor),
			history_complete = chat_sync_state.history_complete OR excluded.history_complete,
			synced_messages = excluded.synced_messages,
			last_forward_sync = excluded.last_forward_sync,
			last_backward_sync = excluded.last_backward_sync
	`, s.ChatID, s.ChatType, s.SyncPriority, s.SyncEnabled, s.ForwardCursor, s.BackwardCursor,
		s.HistoryComplete, s.SyncedMessages, s.LastForwardSync, s.LastBackwardSync)
	if err != nil {
		return fmt.Errorf("upserting sync state %s: %w", s.ChatID, err)
	}
	return nil
}

func (ss *SyncStateStore) Get(ctx context.Context, chatID string) (*syncstate.State, error) {
	st, err := scanSyncState(ss.stmtGet.QueryRowContext(ctx, chatID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &st, nil
}

func (ss *SyncStateStore) queryStates(ctx context.Context, where string, args ...any) ([]syncstate.State, error) {
	rows, err := ss.db.QueryContext(ctx, `SELECT `+syncStateSelectCols+` FROM chat_sync_state `+where, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []syncstate.State
	for rows.Next() {
		st, err := scanSyncState(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, st)
	}
	return out, rows.Err()
}

func (ss *SyncStateStore) GetEnabledChats(ctx context.Context) ([]syncstate.State, error) {
	return ss.queryStates(ctx, `WHERE sync_enabled = 1`)
}

func (ss *SyncStateStore) GetChatsByPriority(ctx context.Context, maxPriority syncstate.Priority) ([]syncstate.State, error) {
	return ss.queryStates(ctx, `WHERE sync_priority <= ? ORDER BY sync_priority ASC`, maxPriority)
}

func (ss *SyncStateStore) GetIncompleteHistory(ctx context.Context) ([]syncstate.State, error) {
	return ss.queryStates(ctx, `WHERE history_complete = 0`)
}

// UpdateCursors applies the CAS update-iff-improved rule for each axis
// independently (spec §5): forward only rises, backward only falls.
func (ss *SyncStateStore) UpdateCursors(ctx context.Context, chatID string, forward, backward *int64) error {
	if forward != nil {
		if _, err := ss.db.ExecContext(ctx, `
			UPDATE chat_sync_state SET forward_cursor = ?
			WHERE chat_id = ? AND (forward_cursor IS NULL OR forward_cursor < ?)
		`, *forward, chatID, *forward); err != nil {
			return fmt.Errorf("updating forward cursor for %s: %w", chatID, err)
		}
	}
	if backward != nil {
		if _, err := ss.db.ExecContext(ctx, `
			UPDATE chat_sync_state SET backward_cursor = ?
			WHERE chat_id = ? AND (backward_cursor IS NULL OR backward_cursor > ?)
		`, *backward, chatID, *backward); err != nil {
			return fmt.Errorf("updating backward cursor for %s: %w", chatID, err)
		}
	}
	return nil
}

func (ss *SyncStateStore) MarkHistoryComplete(ctx context.Context, chatID string) error {
	_, err := ss.db.ExecContext(ctx, `UPDATE chat_sync_state SET history_complete = 1 WHERE chat_id = ?`, chatID)
	return err
}

func (ss *SyncStateStore) IncrementSyncedMessages(ctx context.Context, chatID string, delta int64) error {
	_, err := ss.db.ExecContext(ctx,
		`UPDATE chat_sync_state SET synced_messages = synced_messages + ? WHERE chat_id = ?`, delta, chatID)
	return err
}

func (ss *SyncStateStore) UpdateLastSync(ctx context.Context, chatID string, direction syncstate.Direction, at int64) error {
	col := "last_forward_sync"
	if direction == syncstate.DirectionBackward {
		col = "last_backward_sync"
	}
	_, err := ss.db.ExecContext(ctx,
		fmt.Sprintf(`UPDATE chat_sync_state SET %s = ? WHERE chat_id = ?`, col), at, chatID)
	return err
}
