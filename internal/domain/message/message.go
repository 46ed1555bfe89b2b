// Package message defines the cached-message entity and the search
// contract the cache store exposes (spec §3.1, §4.1).
package message

import "context"

// Message is a row keyed by (ChatID, ID). Deletion is a tombstone:
// IsDeleted=true rows are excluded from List unless IncludeDeleted is set.
type Message struct {
	ChatID      string `json:"chat_id"`
	ID          int64  `json:"message_id"`
	SenderID    string `json:"sender_id,omitempty"`
	Text        string `json:"text,omitempty"`
	MessageType string `json:"message_type,omitempty"`
	HasMedia    bool   `json:"has_media"`
	ReplyTo     int64  `json:"reply_to,omitempty"`
	ForwardID   int64  `json:"forward_id,omitempty"`
	Outgoing    bool   `json:"outgoing"`
	IsEdited    bool   `json:"is_edited"`
	IsPinned    bool   `json:"is_pinned"`
	IsDeleted   bool   `json:"is_deleted"`
	Date        int64  `json:"date"`
	EditDate    int64  `json:"edit_date,omitempty"`
	FetchedAt   int64  `json:"fetched_at"`
	Raw         []byte `json:"-"`
	CreatedAt   int64  `json:"created_at"`
	UpdatedAt   int64  `json:"updated_at"`
}

// SearchFilter narrows a full-text search (spec §4.1's search contract).
type SearchFilter struct {
	Query          string
	ChatID         string
	ChatUsername   string
	SenderID       string
	SenderUsername string
	IncludeDeleted bool
	Limit          int
	Offset         int
}

// SearchResult joins a matched message with its chat/sender metadata.
type SearchResult struct {
	Message      Message
	ChatTitle    string
	SenderName   string
}

// Service is the L1 façade over cached messages (spec §4.1).
type Service interface {
	Upsert(ctx context.Context, m Message) error
	UpsertBatch(ctx context.Context, messages []Message) error
	Get(ctx context.Context, chatID string, id int64) (*Message, error)
	List(ctx context.Context, chatID string, includeDeleted bool, limit, offset int) ([]Message, error)
	Search(ctx context.Context, f SearchFilter) ([]SearchResult, error)
	CountByChatID(ctx context.Context, chatID string) (int, error)
	GetLatestMessageID(ctx context.Context, chatID string) (int64, bool, error)
	GetOldestMessageID(ctx context.Context, chatID string) (int64, bool, error)
	MarkDeleted(ctx context.Context, chatID string, ids []int64) error
	MarkDeletedByMessageIDs(ctx context.Context, ids []int64) (int, error)
	UpdateText(ctx context.Context, chatID string, id int64, text string, editDate int64) error
}
