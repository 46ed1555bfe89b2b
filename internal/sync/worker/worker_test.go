package worker

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/neoromantic/telegram-sync-cli/internal/domain/message"
	"github.com/neoromantic/telegram-sync-cli/internal/domain/ratelimit"
	"github.com/neoromantic/telegram-sync-cli/internal/domain/remote"
	"github.com/neoromantic/telegram-sync-cli/internal/domain/syncjob"
	"github.com/neoromantic/telegram-sync-cli/internal/domain/syncstate"
)

// fakeClient is a scripted remote.Client: each call pops the next page
// off Pages, or returns Err/FloodWait if set.
type fakeClient struct {
	Pages     []remote.GetMessagesResult
	FloodWait *remote.FloodWaitError
	Err       error
	calls     []remote.GetMessagesOptions
}

func (c *fakeClient) Subscribe(ctx context.Context) (<-chan remote.Event, error) {
	return nil, nil
}

func (c *fakeClient) GetMessages(ctx context.Context, chatID string, opts remote.GetMessagesOptions) (remote.GetMessagesResult, error) {
	c.calls = append(c.calls, opts)
	if c.FloodWait != nil {
		return remote.GetMessagesResult{}, c.FloodWait
	}
	if c.Err != nil {
		return remote.GetMessagesResult{}, c.Err
	}
	if len(c.Pages) == 0 {
		return remote.GetMessagesResult{NoMoreMessages: true}, nil
	}
	page := c.Pages[0]
	c.Pages = c.Pages[1:]
	return page, nil
}

// fakeRateLimits is an always-open ratelimit.Service unless Blocked is set.
type fakeRateLimits struct {
	Blocked     bool
	Wait        int
	recorded    []string
	floodWaitMs map[string]int
}

func newFakeRateLimits() *fakeRateLimits { return &fakeRateLimits{floodWaitMs: map[string]int{}} }

func (f *fakeRateLimits) RecordCall(ctx context.Context, method string) error {
	f.recorded = append(f.recorded, method)
	return nil
}
func (f *fakeRateLimits) IsBlocked(ctx context.Context, method string) (bool, error) {
	return f.Blocked, nil
}
func (f *fakeRateLimits) GetWaitTime(ctx context.Context, method string) (int, error) {
	return f.Wait, nil
}
func (f *fakeRateLimits) SetFloodWait(ctx context.Context, method string, seconds int) error {
	f.Blocked = true
	f.Wait = seconds
	f.floodWaitMs[method] = seconds
	return nil
}
func (f *fakeRateLimits) GetStatus(ctx context.Context) (ratelimit.Status, error) {
	return ratelimit.Status{}, nil
}

// fakeStates is a minimal in-memory syncstate.Service.
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

// fakeMessages is a minimal in-memory message.Service.
type fakeMessages struct {
	upserted []message.Message
	oldest   int64
	hasOldest bool
}

func (f *fakeMessages) Upsert(ctx context.Context, m message.Message) error { return nil }
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
	return f.oldest, f.hasOldest, nil
}
func (f *fakeMessages) MarkDeleted(ctx context.Context, chatID string, ids []int64) error { return nil }
func (f *fakeMessages) MarkDeletedByMessageIDs(ctx context.Context, ids []int64) (int, error) {
	return 0, nil
}
func (f *fakeMessages) UpdateText(ctx context.Context, chatID string, id int64, text string, editDate int64) error {
	return nil
}

func TestProcessForwardCatchup_AdvancesCursorToMax(t *testing.T) {
	client := &fakeClient{Pages: []remote.GetMessagesResult{{
		Messages: []remote.RawMessage{{ID: 10}, {ID: 12}, {ID: 11}},
	}}}
	states := newFakeStates()
	messages := &fakeMessages{}
	w := New(client, newFakeRateLimits(), messages, states, 50, "messages.getHistory")

	res, err := w.ProcessForwardCatchup(context.Background(), "chat1")
	require.NoError(t, err)
	assert.True(t, res.Success)
	require.NotNil(t, res.CursorEnd)
	assert.Equal(t, int64(12), *res.CursorEnd)
	assert.Equal(t, int64(12), *states.states["chat1"].ForwardCursor)
	assert.Len(t, messages.upserted, 3)
}

func TestProcessBackwardHistory_ShortPageMarksComplete(t *testing.T) {
	client := &fakeClient{Pages: []remote.GetMessagesResult{{
		Messages: []remote.RawMessage{{ID: 5}, {ID: 3}},
	}}}
	states := newFakeStates()
	w := New(client, newFakeRateLimits(), &fakeMessages{}, states, 50, "messages.getHistory")

	res, err := w.ProcessBackwardHistory(context.Background(), "chat1")
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.True(t, states.states["chat1"].HistoryComplete, "a page shorter than batchSize must mark history complete")
	require.NotNil(t, res.CursorEnd)
	assert.Equal(t, int64(3), *res.CursorEnd)
}

func TestProcessBackwardHistory_AlreadyComplete_NoRemoteCall(t *testing.T) {
	client := &fakeClient{}
	states := newFakeStates()
	states.states["chat1"] = &syncstate.State{ChatID: "chat1", HistoryComplete: true}
	w := New(client, newFakeRateLimits(), &fakeMessages{}, states, 50, "messages.getHistory")

	res, err := w.ProcessBackwardHistory(context.Background(), "chat1")
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Empty(t, client.calls)
}

func TestProcessInitialLoad_SeedsBothCursors(t *testing.T) {
	client := &fakeClient{Pages: []remote.GetMessagesResult{{
		Messages: []remote.RawMessage{{ID: 100}, {ID: 90}, {ID: 95}},
	}}}
	states := newFakeStates()
	w := New(client, newFakeRateLimits(), &fakeMessages{}, states, 50, "messages.getHistory")

	res, err := w.ProcessInitialLoad(context.Background(), "chat1")
	require.NoError(t, err)
	assert.True(t, res.Success)
	require.NotNil(t, res.CursorStart)
	require.NotNil(t, res.CursorEnd)
	assert.Equal(t, int64(100), *res.CursorStart)
	assert.Equal(t, int64(90), *res.CursorEnd)
	assert.Equal(t, int64(100), *states.states["chat1"].ForwardCursor)
	assert.Equal(t, int64(90), *states.states["chat1"].BackwardCursor)
}

func TestCallRemote_FloodWaitSetsBlock(t *testing.T) {
	client := &fakeClient{FloodWait: &remote.FloodWaitError{Method: "messages.getHistory", WaitSeconds: 30}}
	rl := newFakeRateLimits()
	w := New(client, rl, &fakeMessages{}, newFakeStates(), 50, "messages.getHistory")

	res, err := w.ProcessForwardCatchup(context.Background(), "chat1")
	require.NoError(t, err)
	assert.True(t, res.RateLimited)
	assert.Equal(t, 30, res.WaitSeconds)
	assert.True(t, rl.Blocked)
}

func TestCallRemote_PreflightBlocked_SkipsRemoteCall(t *testing.T) {
	client := &fakeClient{Pages: []remote.GetMessagesResult{{Messages: []remote.RawMessage{{ID: 1}}}}}
	rl := newFakeRateLimits()
	rl.Blocked = true
	rl.Wait = 15
	w := New(client, rl, &fakeMessages{}, newFakeStates(), 50, "messages.getHistory")

	res, err := w.ProcessForwardCatchup(context.Background(), "chat1")
	require.NoError(t, err)
	assert.True(t, res.RateLimited)
	assert.Equal(t, 15, res.WaitSeconds)
	assert.Empty(t, client.calls, "a preflight block must short-circuit before touching the remote")
}

func TestProcess_UnknownJobType(t *testing.T) {
	w := New(&fakeClient{}, newFakeRateLimits(), &fakeMessages{}, newFakeStates(), 50, "messages.getHistory")
	_, err := w.Process(context.Background(), syncjob.Job{JobType: syncjob.JobType("bogus")})
	assert.Error(t, err)
}
