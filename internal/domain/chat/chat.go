// Package chat defines the cached-dialog entity (spec §3.1).
package chat

import "context"

type Type string

const (
	TypePrivate    Type = "private"
	TypeGroup      Type = "group"
	TypeSupergroup Type = "supergroup"
	TypeChannel    Type = "channel"
)

type Chat struct {
	ID              string `json:"id"`
	Type            Type   `json:"type"`
	Title           string `json:"title,omitempty"`
	Username        string `json:"username,omitempty"`
	MemberCount     int    `json:"member_count,omitempty"`
	AccessToken     string `json:"-"`
	IsCreator       bool   `json:"is_creator"`
	IsAdmin         bool   `json:"is_admin"`
	LastMessageID   int64  `json:"last_message_id,omitempty"`
	LastMessageDate int64  `json:"last_message_date,omitempty"`
	FetchedAt       int64  `json:"fetched_at"`
	CreatedAt       int64  `json:"created_at"`
	UpdatedAt       int64  `json:"updated_at"`
}

type Filter struct {
	Username string // case-insensitive, optional leading '@'
	Limit    int
	Offset   int
}

// Service is the L1 façade over cached chats (spec §4.1).
type Service interface {
	Upsert(ctx context.Context, c Chat) error
	UpsertBatch(ctx context.Context, chats []Chat) error
	Get(ctx context.Context, id string) (*Chat, error)
	GetByUsername(ctx context.Context, username string) (*Chat, error)
	List(ctx context.Context, f Filter) ([]Chat, error)
}
