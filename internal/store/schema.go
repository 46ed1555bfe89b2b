package store

import (
	"database/sql"
	"fmt"
	"strings"
)

// schemaStatements is applied in order at every startup. Each CREATE is
// idempotent; ALTER TABLE additions are guarded against re-application
// the way the teacher's sqlite_repo.go Init does (ignore "duplicate
// column" errors rather than tracking a migration version table).
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		username TEXT,
		username_lower TEXT,
		first_name TEXT,
		last_name TEXT,
		phone TEXT,
		phone_digits TEXT,
		access_token TEXT,
		is_contact BOOLEAN DEFAULT 0,
		is_bot BOOLEAN DEFAULT 0,
		is_premium BOOLEAN DEFAULT 0,
		fetched_at INTEGER DEFAULT 0,
		raw BLOB,
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL
	);`,
	`CREATE INDEX IF NOT EXISTS idx_users_username_lower ON users(username_lower);`,
	`CREATE INDEX IF NOT EXISTS idx_users_phone_digits ON users(phone_digits);`,

	`CREATE TABLE IF NOT EXISTS chats (
		id TEXT PRIMARY KEY,
		type TEXT NOT NULL,
		title TEXT,
		username TEXT,
		username_lower TEXT,
		member_count INTEGER DEFAULT 0,
		access_token TEXT,
		is_creator BOOLEAN DEFAULT 0,
		is_admin BOOLEAN DEFAULT 0,
		last_message_id INTEGER DEFAULT 0,
		last_message_date INTEGER DEFAULT 0,
		fetched_at INTEGER DEFAULT 0,
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL
	);`,
	`CREATE INDEX IF NOT EXISTS idx_chats_username_lower ON chats(username_lower);`,

	`CREATE TABLE IF NOT EXISTS messages (
		chat_id TEXT NOT NULL,
		message_id INTEGER NOT NULL,
		sender_id TEXT,
		text TEXT,
		message_type TEXT,
		has_media BOOLEAN DEFAULT 0,
		reply_to INTEGER DEFAULT 0,
		forward_id INTEGER DEFAULT 0,
		outgoing BOOLEAN DEFAULT 0,
		is_edited BOOLEAN DEFAULT 0,
		is_pinned BOOLEAN DEFAULT 0,
		is_deleted BOOLEAN DEFAULT 0,
		date INTEGER DEFAULT 0,
		edit_date INTEGER DEFAULT 0,
		fetched_at INTEGER DEFAULT 0,
		raw BLOB,
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL,
		PRIMARY KEY (chat_id, message_id)
	);`,
	`CREATE INDEX IF NOT EXISTS idx_messages_chat_date ON messages(chat_id, date DESC);`,
	`CREATE INDEX IF NOT EXISTS idx_messages_sender ON messages(sender_id);`,

	`CREATE VIRTUAL TABLE IF NOT EXISTS messages_fts USING fts5(
		text,
		chat_id UNINDEXED,
		message_id UNINDEXED,
		sender_id UNINDEXED,
		content='messages',
		content_rowid='rowid'
	);`,
	`CREATE TRIGGER IF NOT EXISTS messages_fts_ai AFTER INSERT ON messages BEGIN
		INSERT INTO messages_fts(rowid, text, chat_id, message_id, sender_id)
		VALUES (new.rowid, new.text, new.chat_id, new.message_id, new.sender_id);
	END;`,
	`CREATE TRIGGER IF NOT EXISTS messages_fts_ad AFTER DELETE ON messages BEGIN
		INSERT INTO messages_fts(messages_fts, rowid, text, chat_id, message_id, sender_id)
		VALUES ('delete', old.rowid, old.text, old.chat_id, old.message_id, old.sender_id);
	END;`,
	`CREATE TRIGGER IF NOT EXISTS messages_fts_au AFTER UPDATE ON messages BEGIN
		INSERT INTO messages_fts(messages_fts, rowid, text, chat_id, message_id, sender_id)
		VALUES ('delete', old.rowid, old.text, old.chat_id, old.message_id, old.sender_id);
		INSERT INTO messages_fts(rowid, text, chat_id, message_id, sender_id)
		VALUES (new.rowid, new.text, new.chat_id, new.message_id, new.sender_id);
	END;`,

	`CREATE TABLE IF NOT EXISTS chat_sync_state (
		chat_id TEXT PRIMARY KEY,
		chat_type TEXT NOT NULL,
		sync_priority INTEGER DEFAULT 2,
		sync_enabled BOOLEAN DEFAULT 1,
		forward_cursor INTEGER,
		backward_cursor INTEGER,
		history_complete BOOLEAN DEFAULT 0,
		synced_messages INTEGER DEFAULT 0,
		last_forward_sync INTEGER,
		last_backward_sync INTEGER
	);`,
	`CREATE INDEX IF NOT EXISTS idx_sync_state_enabled ON chat_sync_state(sync_enabled);`,
	`CREATE INDEX IF NOT EXISTS idx_sync_state_priority ON chat_sync_state(sync_priority);`,

	`CREATE TABLE IF NOT EXISTS sync_jobs (
		id TEXT PRIMARY KEY,
		chat_id TEXT NOT NULL,
		job_type TEXT NOT NULL,
		priority INTEGER NOT NULL,
		status TEXT NOT NULL,
		cursor_start INTEGER,
		cursor_end INTEGER,
		messages_fetched INTEGER DEFAULT 0,
		error_message TEXT,
		created_at INTEGER NOT NULL,
		started_at INTEGER,
		completed_at INTEGER
	);`,
	`CREATE INDEX IF NOT EXISTS idx_jobs_status_priority ON sync_jobs(status, priority, created_at);`,
	`CREATE INDEX IF NOT EXISTS idx_jobs_chat_type_status ON sync_jobs(chat_id, job_type, status);`,

	`CREATE TABLE IF NOT EXISTS rate_limit_calls (
		method TEXT NOT NULL,
		called_at INTEGER NOT NULL
	);`,
	`CREATE INDEX IF NOT EXISTS idx_rate_limit_calls_method_time ON rate_limit_calls(method, called_at);`,

	`CREATE TABLE IF NOT EXISTS rate_limit_blocks (
		method TEXT PRIMARY KEY,
		blocked_until INTEGER NOT NULL,
		wait_seconds INTEGER NOT NULL
	);`,

	`CREATE TABLE IF NOT EXISTS daemon_status (
		id INTEGER PRIMARY KEY CHECK (id = 1),
		started_at INTEGER,
		last_update INTEGER,
		connected_accounts INTEGER DEFAULT 0,
		total_accounts INTEGER DEFAULT 0,
		messages_synced INTEGER DEFAULT 0
	);`,
	`INSERT OR IGNORE INTO daemon_status (id, started_at, last_update) VALUES (1, 0, 0);`,
}

// initSchema applies every schema statement, tolerating the
// already-applied ALTER TABLE case the way the teacher's
// sqlite_repo.go Init does.
func initSchema(db *sql.DB) error {
	for _, stmt := range schemaStatements {
		if _, err := db.Exec(stmt); err != nil {
			if strings.Contains(err.Error(), "duplicate column") {
				continue
			}
			return fmt.Errorf("failed to apply schema statement: %w", err)
		}
	}
	return nil
}
