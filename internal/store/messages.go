package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/neoromantic/telegram-sync-cli/internal/domain/message"
)

// MessageStore is the L1 façade over cached messages (spec §4.1).
// Statements are prepared once at construction and held for its
// lifetime (spec "Design Notes: prepared-statement reuse").
type MessageStore struct {
	db *sql.DB

	stmtUpsert        *sql.Stmt
	stmtGet           *sql.Stmt
	stmtCount         *sql.Stmt
	stmtLatest        *sql.Stmt
	stmtOldest        *sql.Stmt
	stmtUpdateText    *sql.Stmt
}

const messageUpsertSQL = `
INSERT INTO messages (
	chat_id, message_id, sender_id, text, message_type, has_media,
	reply_to, forward_id, outgoing, is_edited, is_pinned, is_deleted,
	date, edit_date, fetched_at, raw, created_at, updated_at
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(chat_id, message_id) DO UPDATE SET
	sender_id = excluded.sender_id,
	text = excluded.text,
	message_type = excluded.message_type,
	has_media = excluded.has_media,
	reply_to = excluded.reply_to,
	forward_id = excluded.forward_id,
	outgoing = excluded.outgoing,
	is_edited = excluded.is_edited,
	is_pinned = excluded.is_pinned,
	is_deleted = excluded.is_deleted,
	date = excluded.date,
	edit_date = excluded.edit_date,
	fetched_at = excluded.fetched_at,
	raw = excluded.raw,
	updated_at = excluded.updated_at
`

const messageSelectCols = `chat_id, message_id, sender_id, text, message_type, has_media,
	reply_to, forward_id, outgoing, is_edited, is_pinned, is_deleted,
	date, edit_date, fetched_at, raw, created_at, updated_at`

func NewMessageStore(s *Store) (*MessageStore, error) {
	db := s.DB()
	ms := &MessageStore{db: db}
	var err error
	if ms.stmtUpsert, err = db.Prepare(messageUpsertSQL); err != nil {
		return nil, fmt.Errorf("preparing message upsert: %w", err)
	}
	if ms.stmtGet, err = db.Prepare(`SELECT ` + messageSelectCols + ` FROM messages WHERE chat_id = ? AND message_id = ?`); err != nil {
		return nil, fmt.Errorf("preparing message get: %w", err)
	}
	if ms.stmtCount, err = db.Prepare(`SELECT COUNT(*) FROM messages WHERE chat_id = ? AND is_deleted = 0`); err != nil {
		return nil, fmt.Errorf("preparing message count: %w", err)
	}
	if ms.stmtLatest, err = db.Prepare(`SELECT MAX(message_id) FROM messages WHERE chat_id = ?`); err != nil {
		return nil, fmt.Errorf("preparing message latest: %w", err)
	}
	if ms.stmtOldest, err = db.Prepare(`SELECT MIN(message_id) FROM messages WHERE chat_id = ?`); err != nil {
		return nil, fmt.Errorf("preparing message oldest: %w", err)
	}
	if ms.stmtUpdateText, err = db.Prepare(`UPDATE messages SET text = ?, edit_date = ?, is_edited = 1, updated_at = ? WHERE chat_id = ? AND message_id = ?`); err != nil {
		return nil, fmt.Errorf("preparing message update text: %w", err)
	}
	return ms, nil
}

func scanMessage(row interface{ Scan(...any) error }) (message.Message, error) {
	var m message.Message
	err := row.Scan(&m.ChatID, &m.ID, &m.SenderID, &m.Text, &m.MessageType, &m.HasMedia,
		&m.ReplyTo, &m.ForwardID, &m.Outgoing, &m.IsEdited, &m.IsPinned, &m.IsDeleted,
		&m.Date, &m.EditDate, &m.FetchedAt, &m.Raw, &m.CreatedAt, &m.UpdatedAt)
	return m, err
}

func (ms *MessageStore) Upsert(ctx context.Context, m message.Message) error {
	now := nowUnix()
	_, err := ms.stmtUpsert.ExecContext(ctx,
		m.ChatID, m.ID, m.SenderID, m.Text, m.MessageType, m.HasMedia,
		m.ReplyTo, m.ForwardID, m.Outgoing, m.IsEdited, m.IsPinned, m.IsDeleted,
		m.Date, m.EditDate, m.FetchedAt, m.Raw, now, now)
	if err != nil {
		return fmt.Errorf("upserting message %s/%d: %w", m.ChatID, m.ID, err)
	}
	return nil
}

// UpsertBatch writes the whole batch in one transaction (spec §4.1).
func (ms *MessageStore) UpsertBatch(ctx context.Context, messages []message.Message) error {
	if len(messages) == 0 {
		return nil
	}
	tx, err := ms.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning message batch upsert: %w", err)
	}
	defer tx.Rollback()

	stmt := tx.StmtContext(ctx, ms.stmtUpsert)
	now := nowUnix()
	for _, m := range messages {
		if _, err := stmt.ExecContext(ctx,
			m.ChatID, m.ID, m.SenderID, m.Text, m.MessageType, m.HasMedia,
			m.ReplyTo, m.ForwardID, m.Outgoing, m.IsEdited, m.IsPinned, m.IsDeleted,
			m.Date, m.EditDate, m.FetchedAt, m.Raw, now, now); err != nil {
			return fmt.Errorf("batch upserting message %s/%d: %w", m.ChatID, m.ID, err)
		}
	}
	return tx.Commit()
}

func (ms *MessageStore) Get(ctx context.Context, chatID string, id int64) (*message.Message, error) {
	m, err := scanMessage(ms.stmtGet.QueryRowContext(ctx, chatID, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (ms *MessageStore) List(ctx context.Context, chatID string, includeDeleted bool, limit, offset int) ([]message.Message, error) {
	query := `SELECT ` + messageSelectCols + ` FROM messages WHERE chat_id = ?`
	if !includeDeleted {
		query += ` AND is_deleted = 0`
	}
	query += ` ORDER BY date DESC LIMIT ? OFFSET ?`

	rows, err := ms.db.QueryContext(ctx, query, chatID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []message.Message
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// Search runs an FTS5 query joined with chat/sender metadata (spec
// §4.1's search contract). The query text is always escaped via
// escapeFTSQuery so no user input carries FTS5 operator meaning.
func (ms *MessageStore) Search(ctx context.Context, f message.SearchFilter) ([]message.SearchResult, error) {
	limit := f.Limit
	if limit <= 0 {
		limit = 50
	}

	query := `
SELECT m.chat_id, m.message_id, m.sender_id, m.text, m.message_type, m.has_media,
	m.reply_to, m.forward_id, m.outgoing, m.is_edited, m.is_pinned, m.is_deleted,
	m.date, m.edit_date, m.fetched_at, m.raw, m.created_at, m.updated_at,
	COALESCE(c.title, ''), COALESCE(u.first_name || ' ' || u.last_name, '')
FROM messages_fts f
JOIN messages m ON m.rowid = f.rowid
LEFT JOIN chats c ON c.id = m.chat_id
LEFT JOIN users u ON u.id = m.sender_id
WHERE messages_fts MATCH ?`

	args := []any{escapeFTSQuery(f.Query)}

	if !f.IncludeDeleted {
		query += ` AND m.is_deleted = 0`
	}
	if f.ChatID != "" {
		query += ` AND m.chat_id = ?`
		args = append(args, f.ChatID)
	}
	if f.ChatUsername != "" {
		query += ` AND LOWER(c.username) = LOWER(?)`
		args = append(args, normalizeUsername(f.ChatUsername))
	}
	if f.SenderID != "" {
		query += ` AND m.sender_id = ?`
		args = append(args, f.SenderID)
	}
	if f.SenderUsername != "" {
		query += ` AND LOWER(u.username) = LOWER(?)`
		args = append(args, normalizeUsername(f.SenderUsername))
	}
	query += ` ORDER BY m.date DESC LIMIT ? OFFSET ?`
	args = append(args, limit, f.Offset)

	rows, err := ms.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("searching messages: %w", err)
	}
	defer rows.Close()

	var out []message.SearchResult
	for rows.Next() {
		var r message.SearchResult
		if err := rows.Scan(&r.Message.ChatID, &r.Message.ID, &r.Message.SenderID, &r.Message.Text,
			&r.Message.MessageType, &r.Message.HasMedia, &r.Message.ReplyTo, &r.Message.ForwardID,
			&r.Message.Outgoing, &r.Message.IsEdited, &r.Message.IsPinned, &r.Message.IsDeleted,
			&r.Message.Date, &r.Message.EditDate, &r.Message.FetchedAt, &r.Message.Raw,
			&r.Message.CreatedAt, &r.Message.UpdatedAt, &r.ChatTitle, &r.SenderName); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (ms *MessageStore) CountByChatID(ctx context.Context, chatID string) (int, error) {
	var count int
	err := ms.stmtCount.QueryRowContext(ctx, chatID).Scan(&count)
	return count, err
}

func (ms *MessageStore) GetLatestMessageID(ctx context.Context, chatID string) (int64, bool, error) {
	var id sql.NullInt64
	if err := ms.stmtLatest.QueryRowContext(ctx, chatID).Scan(&id); err != nil {
		return 0, false, err
	}
	return id.Int64, id.Valid, nil
}

func (ms *MessageStore) GetOldestMessageID(ctx context.Context, chatID string) (int64, bool, error) {
	var id sql.NullInt64
	if err := ms.stmtOldest.QueryRowContext(ctx, chatID).Scan(&id); err != nil {
		return 0, false, err
	}
	return id.Int64, id.Valid, nil
}

// MarkDeleted tombstones the given ids within a chat (spec §4.1).
func (ms *MessageStore) MarkDeleted(ctx context.Context, chatID string, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	tx, err := ms.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	now := nowUnix()
	for _, id := range ids {
		if _, err := tx.ExecContext(ctx,
			`UPDATE messages SET is_deleted = 1, updated_at = ? WHERE chat_id = ? AND message_id = ?`,
			now, chatID, id); err != nil {
			return fmt.Errorf("marking message %s/%d deleted: %w", chatID, id, err)
		}
	}
	return tx.Commit()
}

// MarkDeletedByMessageIDs tombstones every row matching the ids
// regardless of chat (spec §4.1: used for deletes that omit chat id).
func (ms *MessageStore) MarkDeletedByMessageIDs(ctx context.Context, ids []int64) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	placeholders := make([]string, len(ids))
	args := make([]any, 0, len(ids)+1)
	args = append(args, nowUnix())
	for i, id := range ids {
		placeholders[i] = "?"
		args = append(args, id)
	}
	query := fmt.Sprintf(
		`UPDATE messages SET is_deleted = 1, updated_at = ? WHERE message_id IN (%s)`,
		joinPlaceholders(placeholders))
	res, err := ms.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("marking messages deleted by id: %w", err)
	}
	affected, _ := res.RowsAffected()
	return int(affected), nil
}

func (ms *MessageStore) UpdateText(ctx context.Context, chatID string, id int64, text string, editDate int64) error {
	_, err := ms.stmtUpdateText.ExecContext(ctx, text, editDate, nowUnix(), chatID, id)
	return err
}

func joinPlaceholders(parts []string) string {
	out := ""
	for i, p := range parts {
		if i > 0 {
			out += ","
		}
		out += p
	}
	return out
}
