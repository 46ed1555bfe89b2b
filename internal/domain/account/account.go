// Package account defines the multi-account identity entity (spec §3.1).
package account

import "context"

type Account struct {
	ID           int64  `json:"id"`
	Phone        string `json:"phone"`
	DisplayName  string `json:"display_name,omitempty"`
	Username     string `json:"username,omitempty"`
	Label        string `json:"label,omitempty"`
	SessionBlob  []byte `json:"-"`
	Active       bool   `json:"active"`
	CreatedAt    int64  `json:"created_at"`
	UpdatedAt    int64  `json:"updated_at"`
}

// Repository is the storage façade for accounts. SetActive clears the
// flag on every other account atomically (spec §3.1: "at most one
// account is active at a time").
type Repository interface {
	Create(ctx context.Context, a Account) (Account, error)
	List(ctx context.Context) ([]Account, error)
	Get(ctx context.Context, id int64) (*Account, error)
	GetActive(ctx context.Context) (*Account, error)
	SetActive(ctx context.Context, id int64) error
	Delete(ctx context.Context, id int64) error
	Count(ctx context.Context) (int, error)
}
