package hub

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap/zaptest"

	"chathub/internal/bus"
	"chathub/internal/chat"
)

// stubBackend records forwarded intents without doing any work.
type stubBackend struct {
	mu       sync.Mutex
	queries  []string
	issues   []int
	diffs    []bool
	shutdown bool
}

func (b *stubBackend) Query(_ context.Context, _ uuid.UUID, prompt string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.queries = append(b.queries, prompt)
	return nil
}

func (b *stubBackend) FixIssue(_ context.Context, _ uuid.UUID, number int) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.issues = append(b.issues, number)
	return nil
}

func (b *stubBackend) Diff(_ context.Context, _ uuid.UUID, pull bool) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.diffs = append(b.diffs, pull)
	return nil
}

func (b *stubBackend) Cancel(uuid.UUID) bool { return false }

func (b *stubBackend) Shutdown() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.shutdown = true
	return nil
}

func newTestDispatcher(t *testing.T) (*Dispatcher, *stubBackend, *bus.Queue[bus.Response]) {
	t.Helper()
	queue := bus.NewQueue[bus.Response]()
	backend := &stubBackend{}
	registry := NewRegistry(zaptest.NewLogger(t))
	return NewDispatcher(registry, backend, queue, zaptest.NewLogger(t)), backend, queue
}

// drain runs the loop until the queue is empty, then stops it.
func drain(t *testing.T, d *Dispatcher, queue *bus.Queue[bus.Response]) {
	t.Helper()
	done := make(chan struct{})
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		defer close(done)
		d.Run(ctx)
	}()

	require.Eventually(t, func() bool { return queue.Len() == 0 }, 5*time.Second, time.Millisecond)
	// Give the loop a beat to finish applying the popped item.
	time.Sleep(10 * time.Millisecond)
	cancel()
	<-done
}

func TestDispatcherAppliesChatContent(t *testing.T) {
	defer goleak.VerifyNone(t)

	d, _, queue := newTestDispatcher(t)
	id := d.Registry().CurrentUUID()

	queue.Push(bus.Response{Session: id, Payload: bus.ActivityUpdate{Text: "running tests"}})
	queue.Push(bus.Response{Session: id, Payload: bus.ChatContent{Message: chat.NewAssistantMessage("Done.")}})
	drain(t, d, queue)

	snapshot := d.Registry().CurrentSnapshot()
	require.Len(t, snapshot.Messages, 1)
	assert.Equal(t, "Done.", snapshot.Messages[0].Content)
	assert.Equal(t, 1, snapshot.UnseenCount)
	assert.True(t, snapshot.Loading, "activity update leaves the chat busy until Completed")
	assert.Equal(t, "running tests", snapshot.StateMessage)
	assert.True(t, d.ConsumeDirty())
	assert.False(t, d.ConsumeDirty())
}

func TestDispatcherCompletedReturnsChatToReady(t *testing.T) {
	d, _, queue := newTestDispatcher(t)
	id := d.Registry().CurrentUUID()

	queue.Push(bus.Response{Session: id, Payload: bus.ActivityUpdate{Text: "compiling"}})
	queue.Push(bus.Response{Session: id, Payload: bus.Completed{}})
	drain(t, d, queue)

	snapshot := d.Registry().CurrentSnapshot()
	assert.False(t, snapshot.Loading)
	assert.Empty(t, snapshot.StateMessage)
}

func TestDispatcherDropsResponseForDeletedChat(t *testing.T) {
	d, _, queue := newTestDispatcher(t)
	id := d.Registry().CurrentUUID()
	keep := d.Registry().NewChat()

	d.Registry().Delete(id)

	queue.Push(bus.Response{Session: id, Payload: bus.ChatContent{Message: chat.NewAssistantMessage("late")}})
	drain(t, d, queue)

	assert.Equal(t, 1, d.Registry().Len())
	assert.Empty(t, d.Registry().CurrentSnapshot().Messages)
	assert.Equal(t, keep, d.Registry().CurrentUUID())
	assert.False(t, d.ConsumeDirty(), "a dropped response must not mark state dirty")
}

func TestDispatcherAppliesRenames(t *testing.T) {
	d, _, queue := newTestDispatcher(t)
	id := d.Registry().CurrentUUID()

	queue.Push(bus.Response{Session: id, Payload: bus.RenameChat{Name: "fix flaky test"}})
	queue.Push(bus.Response{Session: id, Payload: bus.RenameBranch{Name: "chathub/fix-flaky-test"}})
	drain(t, d, queue)

	snapshot := d.Registry().CurrentSnapshot()
	assert.Equal(t, "fix flaky test", snapshot.Name)
	assert.Equal(t, "chathub/fix-flaky-test", snapshot.BranchName)
}

func TestDispatcherAppliesBackendMessageAsSystem(t *testing.T) {
	d, _, queue := newTestDispatcher(t)
	id := d.Registry().CurrentUUID()

	queue.Push(bus.Response{Session: id, Payload: bus.BackendMessage{Text: "agent reconnected"}})
	drain(t, d, queue)

	snapshot := d.Registry().CurrentSnapshot()
	require.Len(t, snapshot.Messages, 1)
	assert.Equal(t, chat.RoleSystem, snapshot.Messages[0].Role)
}

func TestHandleEventUserInputAppendsAndForwards(t *testing.T) {
	d, backend, _ := newTestDispatcher(t)
	id := d.Registry().CurrentUUID()

	err := d.HandleEvent(context.Background(), bus.UserInput{Session: id, Text: "add a test"})
	require.NoError(t, err)

	snapshot := d.Registry().CurrentSnapshot()
	require.Len(t, snapshot.Messages, 1)
	assert.Equal(t, chat.RoleUser, snapshot.Messages[0].Role)
	assert.Equal(t, 0, snapshot.UnseenCount)
	assert.True(t, snapshot.Loading)
	assert.Equal(t, []string{"add a test"}, backend.queries)
}

func TestHandleEventRegistryOps(t *testing.T) {
	d, backend, _ := newTestDispatcher(t)
	ctx := context.Background()
	first := d.Registry().CurrentUUID()

	require.NoError(t, d.HandleEvent(ctx, bus.NewChat{}))
	assert.Equal(t, 2, d.Registry().Len())
	assert.Equal(t, first, d.Registry().CurrentUUID())

	require.NoError(t, d.HandleEvent(ctx, bus.NextChat{}))
	second := d.Registry().CurrentUUID()
	assert.NotEqual(t, first, second)

	require.NoError(t, d.HandleEvent(ctx, bus.RenameChatEvent{Session: second, Name: "renamed"}))
	assert.Equal(t, "renamed", d.Registry().CurrentSnapshot().Name)

	require.NoError(t, d.HandleEvent(ctx, bus.DeleteChat{Session: second}))
	assert.Equal(t, 1, d.Registry().Len())

	require.NoError(t, d.HandleEvent(ctx, bus.FixIssue{Session: first, Number: 42}))
	assert.Equal(t, []int{42}, backend.issues)

	require.NoError(t, d.HandleEvent(ctx, bus.DiffShow{Session: first}))
	require.NoError(t, d.HandleEvent(ctx, bus.DiffPull{Session: first}))
	assert.Equal(t, []bool{false, true}, backend.diffs)

	require.NoError(t, d.HandleEvent(ctx, bus.Quit{}))
	assert.True(t, backend.shutdown)
}

func TestDispatcherStopsWhenQueueCloses(t *testing.T) {
	defer goleak.VerifyNone(t)

	d, _, queue := newTestDispatcher(t)

	done := make(chan struct{})
	go func() {
		defer close(done)
		d.Run(context.Background())
	}()

	queue.Close()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("dispatch loop did not stop on queue close")
	}
}
