package agents

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"chathub/internal/bus"
	"chathub/internal/chat"
)

func TestExpandArgs(t *testing.T) {
	args := ExpandArgs([]string{"-p", "{prompt}", "--flag"}, "hello world")
	assert.Equal(t, []string{"-p", "hello world", "--flag"}, args)

	args = ExpandArgs([]string{"--message={prompt}"}, "hi")
	assert.Equal(t, []string{"--message=hi"}, args)
}

func TestStreamAccumulator(t *testing.T) {
	s := NewStreamAccumulator()
	assert.NotEmpty(t, s.ID())
	assert.Empty(t, s.Content())

	s.Append([]byte("Hel"))
	assert.Equal(t, "Hel", s.Content())

	s.Append([]byte("lo\r\nworld"))
	assert.Equal(t, "Hello\nworld", s.Content())
}

func TestStreamAccumulatorStripsEscapes(t *testing.T) {
	s := NewStreamAccumulator()
	s.Append([]byte("\x1b[1mshiny\x1b[0m text"))
	assert.Equal(t, "shiny text", s.Content())
}

func TestStreamAccumulatorsHaveDistinctIDs(t *testing.T) {
	assert.NotEqual(t, NewStreamAccumulator().ID(), NewStreamAccumulator().ID())
}

// collect pops responses until a Completed arrives.
func collect(t *testing.T, queue *bus.Queue[bus.Response]) []bus.Response {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var out []bus.Response
	for {
		response, ok := queue.Pop(ctx)
		require.True(t, ok, "queue closed or timed out before Completed")
		out = append(out, response)
		if _, done := response.Payload.(bus.Completed); done {
			return out
		}
	}
}

func TestCLIBackendStreamsOutput(t *testing.T) {
	queue := bus.NewQueue[bus.Response]()
	backend := NewCLIBackend(CLIConfig{
		Command: "sh",
		Args:    []string{"-c", "echo {prompt}"},
	}, queue, zaptest.NewLogger(t))

	session := uuid.New()
	require.NoError(t, backend.Query(context.Background(), session, "hello"))

	responses := collect(t, queue)
	require.GreaterOrEqual(t, len(responses), 4)

	_, ok := responses[0].Payload.(bus.ActivityUpdate)
	assert.True(t, ok, "first response announces the run")
	assert.Equal(t, session, responses[0].Session)

	// All streamed snapshots share one stream id and the final re-send
	// carries none.
	var streamID string
	var finalContent string
	for _, response := range responses[1 : len(responses)-1] {
		content, ok := response.Payload.(bus.ChatContent)
		require.True(t, ok)
		assert.Equal(t, chat.RoleAssistant, content.Message.Role)
		if content.Message.StreamID != "" {
			if streamID == "" {
				streamID = content.Message.StreamID
			}
			assert.Equal(t, streamID, content.Message.StreamID)
		} else {
			finalContent = content.Message.Content
		}
	}
	assert.NotEmpty(t, streamID)
	assert.Equal(t, "hello", finalContent)
}

func TestCLIBackendReportsFailure(t *testing.T) {
	queue := bus.NewQueue[bus.Response]()
	backend := NewCLIBackend(CLIConfig{
		Command: "sh",
		Args:    []string{"-c", "exit 3"},
	}, queue, zaptest.NewLogger(t))

	session := uuid.New()
	require.NoError(t, backend.Query(context.Background(), session, "anything"))

	responses := collect(t, queue)
	var sawError bool
	for _, response := range responses {
		if message, ok := response.Payload.(bus.BackendMessage); ok {
			assert.Contains(t, message.Text, "exited")
			sawError = true
		}
	}
	assert.True(t, sawError)
}

func TestCLIBackendRejectsEmptyPrompt(t *testing.T) {
	queue := bus.NewQueue[bus.Response]()
	backend := NewCLIBackend(CLIConfig{Command: "sh"}, queue, zaptest.NewLogger(t))

	err := backend.Query(context.Background(), uuid.New(), "   ")
	assert.Error(t, err)
}

func TestCLIBackendDiffPullUnsupported(t *testing.T) {
	queue := bus.NewQueue[bus.Response]()
	backend := NewCLIBackend(CLIConfig{Command: "sh"}, queue, zaptest.NewLogger(t))

	session := uuid.New()
	require.NoError(t, backend.Diff(context.Background(), session, true))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	response, ok := queue.Pop(ctx)
	require.True(t, ok)
	message, ok := response.Payload.(bus.BackendMessage)
	require.True(t, ok)
	assert.Contains(t, message.Text, "cannot pull")
}
