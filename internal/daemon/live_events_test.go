package daemon

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/neoromantic/telegram-sync-cli/internal/config"
	"github.com/neoromantic/telegram-sync-cli/internal/domain/account"
	"github.com/neoromantic/telegram-sync-cli/internal/domain/message"
	"github.com/neoromantic/telegram-sync-cli/internal/domain/remote"
	"github.com/neoromantic/telegram-sync-cli/internal/domain/syncstate"
	"github.com/neoromantic/telegram-sync-cli/internal/sync/updates"
)

func testConfig() *config.Config {
	return &config.Config{Executor: config.ExecutorConfig{
		ReconnectInitialMs: 5,
		ReconnectMaxMs:     20,
		ReconnectBackoff:   2,
	}}
}

// fakeEventClient is a scripted remote.Client whose Subscribe call
// returns canned channels/errors in sequence.
type fakeEventClient struct {
	subscribeErrs []error
	channels      []chan remote.Event
	call          int
}

func (c *fakeEventClient) GetMessages(ctx context.Context, chatID string, opts remote.GetMessagesOptions) (remote.GetMessagesResult, error) {
	return remote.GetMessagesResult{}, nil
}

func (c *fakeEventClient) Subscribe(ctx context.Context) (<-chan remote.Event, error) {
	i := c.call
	c.call++
	if i < len(c.subscribeErrs) && c.subscribeErrs[i] != nil {
		return nil, c.subscribeErrs[i]
	}
	if i < len(c.channels) {
		return c.channels[i], nil
	}
	ch := make(chan remote.Event)
	close(ch)
	return ch, nil
}

type fakeMessages struct {
	upserted []message.Message
}

func (f *fakeMessages) Upsert(ctx context.Context, m message.Message) error {
	f.upserted = append(f.upserted, m)
	return nil
}
func (f *fakeMessages) UpsertBatch(ctx context.Context, ms []message.Message) error { return nil }
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
func (f *fakeMessages) MarkDeleted(ctx context.Context, chatID string, ids []int64) error { return nil }
func (f *fakeMessages) MarkDeletedByMessageIDs(ctx context.Context, ids []int64) (int, error) {
	return 0, nil
}
func (f *fakeMessages) UpdateText(ctx context.Context, chatID string, id int64, text string, editDate int64) error {
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
func (f *fakeStates) MarkHistoryComplete(ctx context.Context, chatID string) error { return nil }
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

func TestDispatchLiveEvents_RoutesByEventType(t *testing.T) {
	messages := &fakeMessages{}
	states := newFakeStates()
	handler := updates.New(messages, states)

	ch := make(chan remote.Event, 1)
	ch <- remote.Event{Type: remote.EventNewMessage, Message: remote.RawMessage{ID: 7, ChatID: "chat1"}}
	close(ch)

	r := &Runtime{}
	r.dispatchLiveEvents(context.Background(), account.Account{ID: 1}, ch, handler)

	require.Len(t, messages.upserted, 1)
	assert.Equal(t, int64(7), messages.upserted[0].ID)
	require.NotNil(t, states.states["chat1"])
	assert.Equal(t, int64(7), *states.states["chat1"].ForwardCursor)
}

func TestConsumeLiveEvents_RetriesWithBackoffThenSucceeds(t *testing.T) {
	ch := make(chan remote.Event)
	close(ch)
	client := &fakeEventClient{
		subscribeErrs: []error{errSubscribeFailed, nil},
		channels:      []chan remote.Event{nil, ch},
	}

	r := &Runtime{cfg: testConfig()}
	ctx, cancel := context.WithTimeout(context.Background(), 150*time.Millisecond)
	defer cancel()

	done := make(chan struct{})
	go func() {
		r.consumeLiveEvents(ctx, account.Account{ID: 1}, client, updates.New(&fakeMessages{}, newFakeStates()))
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("consumeLiveEvents did not return after ctx cancellation")
	}
	assert.GreaterOrEqual(t, client.call, 2, "must retry after the first Subscribe error")
}

var errSubscribeFailed = &remote.FloodWaitError{Method: "subscribe", WaitSeconds: 0}
