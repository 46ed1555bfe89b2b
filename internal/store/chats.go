package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/neoromantic/telegram-sync-cli/internal/domain/chat"
)

const chatSelectCols = `id, type, title, username, member_count, access_token,
	is_creator, is_admin, last_message_id, last_message_date, fetched_at, created_at, updated_at`

// ChatStore is the L1 façade over cached chats (spec §4.1).
type ChatStore struct {
	db *sql.DB

	stmtUpsert        *sql.Stmt
	stmtGet           *sql.Stmt
	stmtGetByUsername *sql.Stmt
}

func NewChatStore(s *Store) (*ChatStore, error) {
	db := s.DB()
	cs := &ChatStore{db: db}
	var err error
	if cs.stmtUpsert, err = db.Prepare(chatUpsertSQL); err != nil {
		return nil, fmt.Errorf("preparing chat upsert: %w", err)
	}
	if cs.stmtGet, err = db.Prepare(`SELECT ` + chatSelectCols + ` FROM chats WHERE id = ?`); err != nil {
		return nil, fmt.Errorf("preparing chat get: %w", err)
	}
	if cs.stmtGetByUsername, err = db.Prepare(`SELECT ` + chatSelectCols + ` FROM chats WHERE username_lower = ?`); err != nil {
		return nil, fmt.Errorf("preparing chat get by username: %w", err)
	}
	return cs, nil
}

const chatUpsertSQL = `
INSERT INTO chats (id, type, title, username, username_lower, member_count, access_token,
	is_creator, is_admin, last_message_id, last_message_date, fetched_at, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
	type = excluded.type, title = excluded.title, username = excluded.username,
	username_lower = excluded.username_lower, member_count = excluded.member_count,
	access_token = excluded.access_token, is_creator = excluded.is_creator,
	is_admin = excluded.is_admin, last_message_id = excluded.last_message_id,
	last_message_date = excluded.last_message_date, fetched_at = excluded.fetched_at,
	updated_at = excluded.updated_at
`

func scanChat(row interface{ Scan(...any) error }) (chat.Chat, error) {
	var c chat.Chat
	err := row.Scan(&c.ID, &c.Type, &c.Title, &c.Username, &c.MemberCount, &c.AccessToken,
		&c.IsCreator, &c.IsAdmin, &c.LastMessageID, &c.LastMessageDate, &c.FetchedAt, &c.CreatedAt, &c.UpdatedAt)
	return c, err
}

func (cs *ChatStore) Upsert(ctx context.Context, c chat.Chat) error {
	now := nowUnix()
	_, err := cs.stmtUpsert.ExecContext(ctx,
		c.ID, c.Type, c.Title, c.Username, normalizeUsername(c.Username), c.MemberCount, c.AccessToken,
		c.IsCreator, c.IsAdmin, c.LastMessageID, c.LastMessageDate, c.FetchedAt, now, now)
	if err != nil {
		return fmt.Errorf("upserting chat %s: %w", c.ID, err)
	}
	return nil
}

func (cs *ChatStore) UpsertBatch(ctx context.Context, chats []chat.Chat) error {
	if len(chats) == 0 {
		return nil
	}
	tx, err := cs.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	now := nowUnix()
	stmt := tx.StmtContext(ctx, cs.stmtUpsert)
	for _, c := range chats {
		if _, err := stmt.ExecContext(ctx,
			c.ID, c.Type, c.Title, c.Username, normalizeUsername(c.Username), c.MemberCount, c.AccessToken,
			c.IsCreator, c.IsAdmin, c.LastMessageID, c.LastMessageDate, c.FetchedAt, now, now); err != nil {
			return fmt.Errorf("batch upserting chat %s: %w", c.ID, err)
		}
	}
	return tx.Commit()
}

func (cs *ChatStore) Get(ctx context.Context, id string) (*chat.Chat, error) {
	c, err := scanChat(cs.stmtGet.QueryRowContext(ctx, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (cs *ChatStore) GetByUsername(ctx context.Context, username string) (*chat.Chat, error) {
	c, err := scanChat(cs.stmtGetByUsername.QueryRowContext(ctx, normalizeUsername(username)))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (cs *ChatStore) List(ctx context.Context, f chat.Filter) ([]chat.Chat, error) {
	query := `SELECT ` + chatSelectCols + ` FROM chats WHERE 1=1`
	var args []any
	if f.Username != "" {
		query += ` AND username_lower = ?`
		args = append(args, normalizeUsername(f.Username))
	}
	limit := f.Limit
	if limit <= 0 {
		limit = 100
	}
	query += ` ORDER BY last_message_date DESC LIMIT ? OFFSET ?`
	args = append(args, limit, f.Offset)

	rows, err := cs.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []chat.Chat
	for rows.Next() {
		c, err := scanChat(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}
