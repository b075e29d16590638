// Package chat holds the per-conversation state engine: message history,
// streamed-message reconciliation and the chat lifecycle state machine.
package chat

import (
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// State is the lifecycle state of a chat.
type State int

const (
	StateReady State = iota
	StateLoading
	StateLoadingWithMessage
)

// Chat is one tracked conversation. The UUID routes backend responses; the
// display name is freely renamable and never used for routing.
type Chat struct {
	UUID       uuid.UUID `json:"uuid"`
	Name       string    `json:"name"`
	BranchName string    `json:"branchName,omitempty"`
	Messages   []Message `json:"messages"`

	// UnseenCount is the number of non-user messages added since the
	// renderer last displayed this chat.
	UnseenCount int `json:"-"`

	state        State
	stateMessage string

	completedToolCalls map[string]struct{}

	logger *zap.Logger
}

// New creates a Ready chat with an empty history.
func New(name string, logger *zap.Logger) *Chat {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Chat{
		UUID:               uuid.New(),
		Name:               name,
		Messages:           []Message{},
		state:              StateReady,
		completedToolCalls: map[string]struct{}{},
		logger:             logger,
	}
}

// AddMessage reconciles an incoming message into the history. The rules
// apply in order; a later rule only runs when every earlier one was
// inapplicable:
//
//  1. A message with a stream ID replaces the content of the most recent
//     history entry carrying the same ID (snapshot, not delta).
//  2. An assistant message identical to the last (non-empty assistant)
//     entry replaces it, counted once as unseen.
//  3. Any other non-user message bumps the unseen count.
//  4. Tool output is never appended; its tool-call ID is recorded as
//     completed. Tool output without a tool call is a protocol violation
//     and is dropped.
//  5. Everything else is appended.
func (c *Chat) AddMessage(message Message) {
	if message.StreamID != "" {
		for i := len(c.Messages) - 1; i >= 0; i-- {
			if c.Messages[i].StreamID == message.StreamID {
				c.Messages[i].Content = message.Content
				return
			}
		}
	}

	// A finalized assistant message may be re-delivered without a stream
	// ID after its streamed copy; collapse the duplicate.
	if message.IsAssistant() && len(c.Messages) > 0 {
		last := &c.Messages[len(c.Messages)-1]
		if last.IsAssistant() && last.Content != "" && last.Content == message.Content {
			*last = message
			c.UnseenCount++
			return
		}
	}

	if !message.IsUser() {
		c.UnseenCount++
	}

	if message.IsTool() {
		if message.ToolCall == nil || message.ToolCall.ID == "" {
			c.logger.Error("tool message without a tool call id, dropping",
				zap.String("chat", c.UUID.String()),
				zap.String("content", message.Content))
			return
		}
		// The initiating tool-call message is already in the history; the
		// renderer only needs the completion flag.
		c.completedToolCalls[message.ToolCall.ID] = struct{}{}
		return
	}

	c.Messages = append(c.Messages, message)
}

// Transition replaces the lifecycle state. No transition is rejected.
func (c *Chat) Transition(state State) {
	c.state = state
	if state != StateLoadingWithMessage {
		c.stateMessage = ""
	}
}

// TransitionWithMessage moves the chat to LoadingWithMessage carrying a
// human-readable activity text.
func (c *Chat) TransitionWithMessage(text string) {
	c.state = StateLoadingWithMessage
	c.stateMessage = text
}

// State returns the current lifecycle state.
func (c *Chat) State() State { return c.state }

// StateMessage returns the activity text, empty unless the state is
// LoadingWithMessage.
func (c *Chat) StateMessage() string { return c.stateMessage }

// IsLoading reports whether the agent is busy on this chat.
func (c *Chat) IsLoading() bool {
	return c.state == StateLoading || c.state == StateLoadingWithMessage
}

// IsToolCallCompleted reports whether the given tool call has finished.
func (c *Chat) IsToolCallCompleted(id string) bool {
	_, ok := c.completedToolCalls[id]
	return ok
}

// CompletedToolCallIDs returns the ids of every finished tool call.
func (c *Chat) CompletedToolCallIDs() []string {
	out := make([]string, 0, len(c.completedToolCalls))
	for id := range c.completedToolCalls {
		out = append(out, id)
	}
	return out
}

// LastMessage returns the most recent history entry, or false when the
// history is empty.
func (c *Chat) LastMessage() (Message, bool) {
	if len(c.Messages) == 0 {
		return Message{}, false
	}
	return c.Messages[len(c.Messages)-1], true
}
