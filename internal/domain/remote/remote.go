// Package remote declares the abstract remote-API contract the sync
// worker consumes (spec §4.4). The concrete transport is out of scope
// for this core; production wiring supplies a Client implementation
// backed by whichever remote message service is being mirrored.
package remote

import (
	"context"
	"errors"
	"fmt"
)

// RawMessage is an opaque message payload as returned by the remote.
// The sync worker/update handlers extract the typed projection from it
// at ingest time (spec "Design Notes": cyclic/dynamic types).
type RawMessage struct {
	ID         int64
	ChatID     string
	SenderID   string
	Text       string
	Date       int64
	EditDate   int64
	ReplyTo    int64
	ForwardID  int64
	Outgoing   bool
	HasMedia   bool
	Raw        []byte
}

// GetMessagesOptions parametrizes a single history page fetch.
type GetMessagesOptions struct {
	Limit     int
	OffsetID  int64 // 0 means unset
	AddOffset int   // signed; used by forward catchup (spec §4.4)
	MinID     int64
}

// GetMessagesResult is the page returned by the remote.
type GetMessagesResult struct {
	Messages       []RawMessage
	NoMoreMessages bool
}

// EventType discriminates the live-stream events a Client can emit
// (spec §4.7's new/edit/delete handler set).
type EventType string

const (
	EventNewMessage        EventType = "new_message"
	EventEditMessage       EventType = "edit_message"
	EventDeleteWithChat    EventType = "delete_with_chat"
	EventDeleteWithoutChat EventType = "delete_without_chat"
)

// Event is one item off a Client's live-event stream. Only the fields
// relevant to Type are populated; the update handler switches on Type
// the way the client dispatches different wire events.
type Event struct {
	Type       EventType
	Message    RawMessage
	ChatID     string
	MessageIDs []int64
	Text       string
	EditDate   int64
}

// Client is the remote surface the sync worker and the live-event
// consumer depend on (spec §4.4, §4.7). GetMessages drives history
// pagination; Subscribe opens the account's live-event stream, closing
// the returned channel when the remote connection drops so the caller
// knows to resubscribe.
type Client interface {
	GetMessages(ctx context.Context, chatID string, opts GetMessagesOptions) (GetMessagesResult, error)
	Subscribe(ctx context.Context) (<-chan Event, error)
}

// FloodWaitError is thrown by a Client implementation when the remote
// imposes a temporary block on a method (spec §4.6/§7).
type FloodWaitError struct {
	Method      string
	WaitSeconds int
}

func (e *FloodWaitError) Error() string {
	return fmt.Sprintf("flood wait on %s: retry after %ds", e.Method, e.WaitSeconds)
}

// AsFloodWait reports whether err is (or wraps) a FloodWaitError.
func AsFloodWait(err error) (*FloodWaitError, bool) {
	var fw *FloodWaitError
	if errors.As(err, &fw) {
		return fw, true
	}
	return nil, false
}
