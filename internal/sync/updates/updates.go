// Package updates applies live-stream events to the message cache and
// sync-state cursors, idempotently, so they commute safely with the
// background sync jobs (spec §4.7, §5). Grounded on the teacher's
// per-job panic recovery/compact logging style in pkg/msgworker.
package updates

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/neoromantic/telegram-sync-cli/internal/domain/message"
	"github.com/neoromantic/telegram-sync-cli/internal/domain/remote"
	"github.com/neoromantic/telegram-sync-cli/internal/domain/syncstate"
)

const maxLoggedIDs = 5

// Handler applies remote live events to the cache. Every exported
// method recovers from panics and swallows errors at its own boundary
// so one bad event never aborts the enclosing event stream.
type Handler struct {
	messages message.Service
	states   syncstate.Service
}

func New(messages message.Service, states syncstate.Service) *Handler {
	return &Handler{messages: messages, states: states}
}

func truncateIDs(ids []int64) []int64 {
	if len(ids) > maxLoggedIDs {
		return ids[:maxLoggedIDs]
	}
	return ids
}

func (h *Handler) guard(op, chatID string, ids []int64, fn func() error) {
	defer func() {
		if r := recover(); r != nil {
			logrus.Errorf("[UPDATES] %s panic chat=%s ids=%v: %v", op, chatID, truncateIDs(ids), r)
		}
	}()
	if err := fn(); err != nil {
		logrus.WithError(err).Warnf("[UPDATES] %s failed chat=%s ids=%v", op, chatID, truncateIDs(ids))
	}
}

// NewMessage ensures a sync-state row exists for the chat, upserts the
// message, and advances forward_cursor iff the id is newer than the
// current one (spec §4.7; the CAS in UpdateCursors makes this safe
// against a racing forward-catchup batch).
func (h *Handler) NewMessage(ctx context.Context, raw remote.RawMessage) {
	h.guard("new_message", raw.ChatID, []int64{raw.ID}, func() error {
		state, err := h.states.Get(ctx, raw.ChatID)
		if err != nil {
			return err
		}
		if state == nil {
			if err := h.states.Upsert(ctx, syncstate.State{
				ChatID: raw.ChatID, ChatType: syncstate.ChatTypePrivate,
				SyncPriority: syncstate.PriorityMedium, SyncEnabled: true,
			}); err != nil {
				return err
			}
		}

		m := toMessage(raw)
		if err := h.messages.Upsert(ctx, m); err != nil {
			return err
		}

		cursor := raw.ID
		if err := h.states.UpdateCursors(ctx, raw.ChatID, &cursor, nil); err != nil {
			return err
		}
		if err := h.states.IncrementSyncedMessages(ctx, raw.ChatID, 1); err != nil {
			return err
		}
		return h.states.UpdateLastSync(ctx, raw.ChatID, syncstate.DirectionForward, time.Now().Unix())
	})
}

// EditMessage updates text/edit_date and the is_edited flag; no cursor
// change (spec §4.7).
func (h *Handler) EditMessage(ctx context.Context, chatID string, id int64, text string, editDate int64) {
	h.guard("edit_message", chatID, []int64{id}, func() error {
		return h.messages.UpdateText(ctx, chatID, id, text, editDate)
	})
}

// DeleteWithChat tombstones the given message ids scoped to one chat.
func (h *Handler) DeleteWithChat(ctx context.Context, chatID string, ids []int64) {
	h.guard("delete_with_chat", chatID, ids, func() error {
		return h.messages.MarkDeleted(ctx, chatID, ids)
	})
}

// DeleteWithoutChat tombstones every row matching the given message
// ids regardless of chat (spec §4.7: used by remote events that omit
// chat context for private/small-group deletes). Returns the count of
// rows affected so callers can surface it, defaulting to 0 on error.
func (h *Handler) DeleteWithoutChat(ctx context.Context, ids []int64) int {
	count := 0
	h.guard("delete_without_chat", "", ids, func() error {
		n, err := h.messages.MarkDeletedByMessageIDs(ctx, ids)
		count = n
		return err
	})
	return count
}

// BatchMessages groups a mixed-chat batch (as arrives from history sync
// paths that also feed live processing) by chat id and upserts each
// group in one transaction, advancing both cursors per chat (spec
// §4.7).
func (h *Handler) BatchMessages(ctx context.Context, raws []remote.RawMessage) {
	groups := make(map[string][]remote.RawMessage)
	for _, r := range raws {
		groups[r.ChatID] = append(groups[r.ChatID], r)
	}
	for chatID, group := range groups {
		ids := make([]int64, 0, len(group))
		for _, r := range group {
			ids = append(ids, r.ID)
		}
		h.guard("batch_messages", chatID, ids, func() error {
			return h.batchForChat(ctx, chatID, group)
		})
	}
}

func (h *Handler) batchForChat(ctx context.Context, chatID string, raws []remote.RawMessage) error {
	msgs := make([]message.Message, len(raws))
	maxID, minID := raws[0].ID, raws[0].ID
	for i, r := range raws {
		msgs[i] = toMessage(r)
		if r.ID > maxID {
			maxID = r.ID
		}
		if r.ID < minID {
			minID = r.ID
		}
	}
	if err := h.messages.UpsertBatch(ctx, msgs); err != nil {
		return err
	}
	return h.states.UpdateCursors(ctx, chatID, &maxID, &minID)
}

func toMessage(r remote.RawMessage) message.Message {
	return message.Message{
		ChatID: r.ChatID, ID: r.ID, SenderID: r.SenderID, Text: r.Text,
		HasMedia: r.HasMedia, ReplyTo: r.ReplyTo, ForwardID: r.ForwardID,
		Outgoing: r.Outgoing, Date: r.Date, EditDate: r.EditDate,
		FetchedAt: time.Now().Unix(), Raw: r.Raw,
	}
}
