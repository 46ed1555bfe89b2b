package store

import (
	"context"
	"database/sql"
)

// DaemonStatus is the single row the daemon maintains about its own
// lifecycle (spec §6 `status`, §7).
type DaemonStatus struct {
	StartedAt         int64
	LastUpdate        int64
	ConnectedAccounts int
	TotalAccounts     int
	MessagesSynced    int64
}

// StatusStore reads/updates the daemon_status singleton row.
type StatusStore struct {
	db *sql.DB
}

func NewStatusStore(s *Store) (*StatusStore, error) {
	return &StatusStore{db: s.DB()}, nil
}

func (st *StatusStore) Get(ctx context.Context) (DaemonStatus, error) {
	var ds DaemonStatus
	err := st.db.QueryRowContext(ctx, `
		SELECT started_at, last_update, connected_accounts, total_accounts, messages_synced
		FROM daemon_status WHERE id = 1
	`).Scan(&ds.StartedAt, &ds.LastUpdate, &ds.ConnectedAccounts, &ds.TotalAccounts, &ds.MessagesSynced)
	return ds, err
}

// MarkStarted stamps started_at once, at daemon startup.
func (st *StatusStore) MarkStarted(ctx context.Context, at int64) error {
	_, err := st.db.ExecContext(ctx, `UPDATE daemon_status SET started_at = ?, last_update = ? WHERE id = 1`, at, at)
	return err
}

func (st *StatusStore) UpdateCounts(ctx context.Context, connectedAccounts, totalAccounts int) error {
	_, err := st.db.ExecContext(ctx, `
		UPDATE daemon_status SET connected_accounts = ?, total_accounts = ?, last_update = ?
		WHERE id = 1
	`, connectedAccounts, totalAccounts, nowUnix())
	return err
}

func (st *StatusStore) IncrementMessagesSynced(ctx context.Context, delta int64) error {
	_, err := st.db.ExecContext(ctx, `
		UPDATE daemon_status SET messages_synced = messages_synced + ?, last_update = ?
		WHERE id = 1
	`, delta, nowUnix())
	return err
}
