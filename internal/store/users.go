package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/neoromantic/telegram-sync-cli/internal/domain/user"
)

const userSelectCols = `id, username, first_name, last_name, phone, access_token,
	is_contact, is_bot, is_premium, fetched_at, raw, created_at, updated_at`

// UserStore is the L1 façade over cached users (spec §4.1).
type UserStore struct {
	db *sql.DB

	stmtUpsert       *sql.Stmt
	stmtGet          *sql.Stmt
	stmtGetByUsername *sql.Stmt
	stmtGetByPhone   *sql.Stmt
}

func NewUserStore(s *Store) (*UserStore, error) {
	db := s.DB()
	us := &UserStore{db: db}
	var err error
	if us.stmtUpsert, err = db.Prepare(`
		INSERT INTO users (id, username, username_lower, first_name, last_name, phone, phone_digits,
			access_token, is_contact, is_bot, is_premium, fetched_at, raw, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			username = excluded.username, username_lower = excluded.username_lower,
			first_name = excluded.first_name, last_name = excluded.last_name,
			phone = excluded.phone, phone_digits = excluded.phone_digits,
			access_token = excluded.access_token, is_contact = excluded.is_contact,
			is_bot = excluded.is_bot, is_premium = excluded.is_premium,
			fetched_at = excluded.fetched_at, raw = excluded.raw, updated_at = excluded.updated_at
	`); err != nil {
		return nil, fmt.Errorf("preparing user upsert: %w", err)
	}
	if us.stmtGet, err = db.Prepare(`SELECT ` + userSelectCols + ` FROM users WHERE id = ?`); err != nil {
		return nil, fmt.Errorf("preparing user get: %w", err)
	}
	if us.stmtGetByUsername, err = db.Prepare(`SELECT ` + userSelectCols + ` FROM users WHERE username_lower = ?`); err != nil {
		return nil, fmt.Errorf("preparing user get by username: %w", err)
	}
	if us.stmtGetByPhone, err = db.Prepare(`SELECT ` + userSelectCols + ` FROM users WHERE phone_digits = ?`); err != nil {
		return nil, fmt.Errorf("preparing user get by phone: %w", err)
	}
	return us, nil
}

func scanUser(row interface{ Scan(...any) error }) (user.User, error) {
	var u user.User
	err := row.Scan(&u.ID, &u.Username, &u.FirstName, &u.LastName, &u.Phone, &u.AccessToken,
		&u.IsContact, &u.IsBot, &u.IsPremium, &u.FetchedAt, &u.Raw, &u.CreatedAt, &u.UpdatedAt)
	return u, err
}

// upsertArgs builds the positional args shared by Upsert and
// UpsertBatch, which both bind against the same prepared statement.
func upsertArgs(u user.User, now int64) []any {
	return []any{
		u.ID, u.Username, normalizeUsername(u.Username), u.FirstName, u.LastName, u.Phone, normalizePhone(u.Phone),
		u.AccessToken, u.IsContact, u.IsBot, u.IsPremium, u.FetchedAt, u.Raw, now, now,
	}
}

func (us *UserStore) Upsert(ctx context.Context, u user.User) error {
	_, err := us.stmtUpsert.ExecContext(ctx, upsertArgs(u, nowUnix())...)
	if err != nil {
		return fmt.Errorf("upserting user %s: %w", u.ID, err)
	}
	return nil
}

func (us *UserStore) UpsertBatch(ctx context.Context, users []user.User) error {
	if len(users) == 0 {
		return nil
	}
	tx, err := us.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	now := nowUnix()
	stmt := tx.StmtContext(ctx, us.stmtUpsert)
	for _, u := range users {
		if _, err := stmt.ExecContext(ctx, upsertArgs(u, now)...); err != nil {
			return fmt.Errorf("batch upserting user %s: %w", u.ID, err)
		}
	}
	return tx.Commit()
}

func (us *UserStore) Get(ctx context.Context, id string) (*user.User, error) {
	u, err := scanUser(us.stmtGet.QueryRowContext(ctx, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (us *UserStore) GetByUsername(ctx context.Context, username string) (*user.User, error) {
	u, err := scanUser(us.stmtGetByUsername.QueryRowContext(ctx, normalizeUsername(username)))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (us *UserStore) GetByPhone(ctx context.Context, phone string) (*user.User, error) {
	u, err := scanUser(us.stmtGetByPhone.QueryRowContext(ctx, normalizePhone(phone)))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (us *UserStore) List(ctx context.Context, f user.Filter) ([]user.User, error) {
	query := `SELECT ` + userSelectCols + ` FROM users WHERE 1=1`
	var args []any
	if f.Username != "" {
		query += ` AND username_lower = ?`
		args = append(args, normalizeUsername(f.Username))
	}
	if f.Phone != "" {
		query += ` AND phone_digits = ?`
		args = append(args, normalizePhone(f.Phone))
	}
	limit := f.Limit
	if limit <= 0 {
		limit = 100
	}
	query += ` ORDER BY updated_at DESC LIMIT ? OFFSET ?`
	args = append(args, limit, f.Offset)

	rows, err := us.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []user.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}
