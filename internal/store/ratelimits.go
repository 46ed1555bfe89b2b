package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/neoromantic/telegram-sync-cli/internal/domain/ratelimit"
)

const rateLimitWindowSeconds = 60

// RateLimitStore is the sliding-window call counter plus flood-wait
// block records façade (spec §4.6).
type RateLimitStore struct {
	db *sql.DB

	stmtRecordCall *sql.Stmt
	stmtGetBlock   *sql.Stmt
}

func NewRateLimitStore(s *Store) (*RateLimitStore, error) {
	db := s.DB()
	rs := &RateLimitStore{db: db}
	var err error
	if rs.stmtRecordCall, err = db.Prepare(`INSERT INTO rate_limit_calls (method, called_at) VALUES (?, ?)`); err != nil {
		return nil, fmt.Errorf("preparing rate limit call insert: %w", err)
	}
	if rs.stmtGetBlock, err = db.Prepare(`SELECT blocked_until, wait_seconds FROM rate_limit_blocks WHERE method = ?`); err != nil {
		return nil, fmt.Errorf("preparing rate limit block get: %w", err)
	}
	return rs, nil
}

func (rs *RateLimitStore) RecordCall(ctx context.Context, method string) error {
	_, err := rs.stmtRecordCall.ExecContext(ctx, method, nowUnix())
	if err != nil {
		return fmt.Errorf("recording call for %s: %w", method, err)
	}
	return nil
}

func (rs *RateLimitStore) getBlock(ctx context.Context, method string) (blockedUntil int64, waitSeconds int, found bool, err error) {
	err = rs.stmtGetBlock.QueryRowContext(ctx, method).Scan(&blockedUntil, &waitSeconds)
	if err == sql.ErrNoRows {
		return 0, 0, false, nil
	}
	if err != nil {
		return 0, 0, false, err
	}
	return blockedUntil, waitSeconds, true, nil
}

func (rs *RateLimitStore) IsBlocked(ctx context.Context, method string) (bool, error) {
	blockedUntil, _, found, err := rs.getBlock(ctx, method)
	if err != nil || !found {
		return false, err
	}
	return nowUnix() < blockedUntil, nil
}

func (rs *RateLimitStore) GetWaitTime(ctx context.Context, method string) (int, error) {
	blockedUntil, _, found, err := rs.getBlock(ctx, method)
	if err != nil || !found {
		return 0, err
	}
	remaining := blockedUntil - nowUnix()
	if remaining <= 0 {
		return 0, nil
	}
	return int(remaining), nil
}

// SetFloodWait overwrites any shorter block with a freshly observed
// wait duration (spec §7: last-writer-wins is safe here).
func (rs *RateLimitStore) SetFloodWait(ctx context.Context, method string, seconds int) error {
	blockedUntil := nowUnix() + int64(seconds)
	_, err := rs.db.ExecContext(ctx, `
		INSERT INTO rate_limit_blocks (method, blocked_until, wait_seconds)
		VALUES (?, ?, ?)
		ON CONFLICT(method) DO UPDATE SET blocked_until = excluded.blocked_until, wait_seconds = excluded.wait_seconds
	`, method, blockedUntil, seconds)
	if err != nil {
		return fmt.Errorf("setting flood wait for %s: %w", method, err)
	}
	return nil
}

func (rs *RateLimitStore) GetStatus(ctx context.Context) (ratelimit.Status, error) {
	var status ratelimit.Status
	status.CallsByMethod = make(map[string]int)

	windowStart := nowUnix() - rateLimitWindowSeconds
	rows, err := rs.db.QueryContext(ctx, `
		SELECT method, COUNT(*) FROM rate_limit_calls WHERE called_at >= ? GROUP BY method
	`, windowStart)
	if err != nil {
		return status, fmt.Errorf("querying call counts: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var method string
		var count int
		if err := rows.Scan(&method, &count); err != nil {
			return status, err
		}
		status.CallsByMethod[method] = count
		status.TotalCalls += count
	}
	if err := rows.Err(); err != nil {
		return status, err
	}

	now := nowUnix()
	blockRows, err := rs.db.QueryContext(ctx, `SELECT method, blocked_until, wait_seconds FROM rate_limit_blocks WHERE blocked_until > ?`, now)
	if err != nil {
		return status, fmt.Errorf("querying flood waits: %w", err)
	}
	defer blockRows.Close()
	for blockRows.Next() {
		var fw ratelimit.FloodWait
		if err := blockRows.Scan(&fw.Method, &fw.BlockedUntil, &fw.WaitSeconds); err != nil {
			return status, err
		}
		status.ActiveFloodWaits = append(status.ActiveFloodWaits, fw)
	}
	return status, blockRows.Err()
}

// PruneCallLog discards call-log rows older than the rolling window so
// the table does not grow unbounded. The daemon does not call it; rows
// are only removed when a caller invokes it.
func (rs *RateLimitStore) PruneCallLog(ctx context.Context) error {
	_, err := rs.db.ExecContext(ctx, `DELETE FROM rate_limit_calls WHERE called_at < ?`, nowUnix()-rateLimitWindowSeconds)
	return err
}
