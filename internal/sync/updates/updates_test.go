package updates

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/neoromantic/telegram-sync-cli/internal/domain/message"
	"github.com/neoromantic/telegram-sync-cli/internal/domain/remote"
	"github.com/neoromantic/telegram-sync-cli/internal/domain/syncstate"
)

type fakeMessages struct {
	upserted       []message.Message
	edited         map[int64]string
	deletedByChat  map[string][]int64
	deletedGlobal  []int64
	upsertErr      error
}

func newFakeMessages() *fakeMessages {
	return &fakeMessages{edited: map[int64]string{}, deletedByChat: map[string][]int64{}}
}

func (f *fakeMessages) Upsert(ctx context.Context, m message.Message) error {
	if f.upsertErr != nil {
		return f.upsertErr
	}
	f.upserted = append(f.upserted, m)
	return nil
}
func (f *fakeMessages) UpsertBatch(ctx context.Context, ms []message.Message) error {
	f.upserted = append(f.upserted, ms...)
	return nil
}
func (f *fakeMessages) Get(ctx context.Context, chatID string, id int64) (*message.Message, error) {
	return nil, nil
}
func (f *fakeMessages) List(ctx context.Context, chatID string, includeDeleted bool, limit, offset int) ([]message.Message, error) {
	return nil, nil
}
func (f *fakeMessages) Search(ctx context.Context, filter message.SearchFilter) ([]message.SearchResult, error) {
	return nil, nil
}
func (f *fakeMessages) CountByChatID(ctx context.Context, chatID string) (int, error) { return 0, nil }
func (f *fakeMessages) GetLatestMessageID(ctx context.Context, chatID string) (int64, bool, error) {
	return 0, false, nil
}
func (f *fakeMessages) GetOldestMessageID(ctx context.Context, chatID string) (int64, bool, error) {
	return 0, false, nil
}
func (f *fakeMessages) MarkDeleted(ctx context.Context, chatID string, ids []int64) error {
	f.deletedByChat[chatID] = append(f.deletedByChat[chatID], ids...)
	return nil
}
func (f *fakeMessages) MarkDeletedByMessageIDs(ctx context.Context, ids []int64) (int, error) {
	f.deletedGlobal = append(f.deletedGlobal, ids...)
	return len(ids), nil
}
func (f *fakeMessages) UpdateText(ctx context.Context, chatID string, id int64, text string, editDate int64) error {
	f.edited[id] = text
	return nil
}

type fakeStates struct {
	states map[string]*syncstate.State
}

func newFakeStates() *fakeStates { return &fakeStates{states: map[string]*syncstate.State{}} }

func (f *fakeStates) Upsert(ctx context.Context, s syncstate.State) error {
	cp := s
	f.states[s.ChatID] = &cp
	return nil
}
func (f *fakeStates) Get(ctx context.Context, chatID string) (*syncstate.State, error) {
	return f.states[chatID], nil
}
func (f *fakeStates) GetEnabledChats(ctx context.Context) ([]syncstate.State, error) { return nil, nil }
func (f *fakeStates) GetChatsByPriority(ctx context.Context, maxPriority syncstate.Priority) ([]syncstate.State, error) {
	return nil, nil
}
func (f *fakeStates) GetIncompleteHistory(ctx context.Context) ([]syncstate.State, error) {
	return nil, nil
}
func (f *fakeStates) UpdateCursors(ctx context.Context, chatID string, forward, backward *int64) error {
	s := f.ensure(chatID)
	if forward != nil {
		s.ForwardCursor = forward
	}
	if backward != nil {
		s.BackwardCursor = backward
	}
	return nil
}
func (f *fakeStates) MarkHistoryComplete(ctx context.Context, chatID string) error {
	f.ensure(chatID).HistoryComplete = true
	return nil
}
func (f *fakeStates) IncrementSyncedMessages(ctx context.Context, chatID string, delta int64) error {
	f.ensure(chatID).SyncedMessages += delta
	return nil
}
func (f *fakeStates) UpdateLastSync(ctx context.Context, chatID string, direction syncstate.Direction, at int64) error {
	return nil
}
func (f *fakeStates) ensure(chatID string) *syncstate.State {
	s, ok := f.states[chatID]
	if !ok {
		s = &syncstate.State{ChatID: chatID}
		f.states[chatID] = s
	}
	return s
}

func TestNewMessage_CreatesStateAndAdvancesCursor(t *testing.T) {
	messages := newFakeMessages()
	states := newFakeStates()
	h := New(messages, states)

	h.NewMessage(context.Background(), remote.RawMessage{ChatID: "chat1", ID: 42, Text: "hi"})

	assert.Len(t, messages.upserted, 1)
	state := states.states["chat1"]
	require.NotNil(t, state)
	require.NotNil(t, state.ForwardCursor)
	assert.Equal(t, int64(42), *state.ForwardCursor)
	assert.Equal(t, int64(1), state.SyncedMessages)
}

func TestEditMessage_UpdatesText(t *testing.T) {
	messages := newFakeMessages()
	h := New(messages, newFakeStates())

	h.EditMessage(context.Background(), "chat1", 5, "edited text", 100)
	assert.Equal(t, "edited text", messages.edited[5])
}

func TestDeleteWithChat_Tombstones(t *testing.T) {
	messages := newFakeMessages()
	h := New(messages, newFakeStates())

	h.DeleteWithChat(context.Background(), "chat1", []int64{1, 2, 3})
	assert.ElementsMatch(t, []int64{1, 2, 3}, messages.deletedByChat["chat1"])
}

func TestDeleteWithoutChat_ReturnsCount(t *testing.T) {
	messages := newFakeMessages()
	h := New(messages, newFakeStates())

	count := h.DeleteWithoutChat(context.Background(), []int64{7, 8})
	assert.Equal(t, 2, count)
	assert.ElementsMatch(t, []int64{7, 8}, messages.deletedGlobal)
}

func TestBatchMessages_GroupsByChatAndAdvancesCursors(t *testing.T) {
	messages := newFakeMessages()
	states := newFakeStates()
	h := New(messages, states)

	h.BatchMessages(context.Background(), []remote.RawMessage{
		{ChatID: "a", ID: 10}, {ChatID: "a", ID: 12}, {ChatID: "b", ID: 5},
	})

	assert.Len(t, messages.upserted, 3)
	require.NotNil(t, states.states["a"].ForwardCursor)
	assert.Equal(t, int64(12), *states.states["a"].ForwardCursor)
	assert.Equal(t, int64(10), *states.states["a"].BackwardCursor)
	assert.Equal(t, int64(5), *states.states["b"].ForwardCursor)
}

func TestNewMessage_UpsertErrorIsSwallowed(t *testing.T) {
	messages := newFakeMessages()
	messages.upsertErr = errors.New("boom")
	h := New(messages, newFakeStates())

	assert.NotPanics(t, func() {
		h.NewMessage(context.Background(), remote.RawMessage{ChatID: "chat1", ID: 1})
	})
}
