// Package hub owns the shared conversation state: the chat registry and
// the dispatch loop that applies backend responses to it.
package hub

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"chathub/internal/chat"
)

// Registry is the ordered collection of chats plus the current selection.
// All access goes through its lock; the dispatch loop and the frontend
// never observe a chat mid-mutation.
type Registry struct {
	mu      sync.RWMutex
	chats   []*chat.Chat
	current int
	created int
	logger  *zap.Logger
}

// ChatSummary is a copy of the fields the chat list pane renders.
type ChatSummary struct {
	UUID         uuid.UUID
	Name         string
	BranchName   string
	Loading      bool
	StateMessage string
	UnseenCount  int
	Current      bool
}

// ChatSnapshot is a consistent copy of one chat for rendering.
type ChatSnapshot struct {
	UUID               uuid.UUID
	Name               string
	BranchName         string
	Messages           []chat.Message
	Loading            bool
	StateMessage       string
	UnseenCount        int
	CompletedToolCalls map[string]bool
}

// NewRegistry returns a registry seeded with one Ready chat, which is
// immediately current. A registry is never empty at construction.
func NewRegistry(logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	r := &Registry{logger: logger}
	r.created = 1
	r.chats = append(r.chats, chat.New("Chat #1", logger))
	return r
}

// NewChat appends a fresh chat and returns its identity. The new chat only
// becomes current when the registry had no chats, so opening a chat in the
// background never yanks the user away from an active view.
func (r *Registry) NewChat() uuid.UUID {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.created++
	c := chat.New(fmt.Sprintf("Chat #%d", r.created), r.logger)
	wasEmpty := len(r.chats) == 0
	r.chats = append(r.chats, c)
	if wasEmpty {
		r.current = 0
	}
	return c.UUID
}

// Rename updates a chat's display name. Unknown identities are ignored:
// a rename racing a delete is expected, not an error.
func (r *Registry) Rename(id uuid.UUID, name string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if c := r.findLocked(id); c != nil {
		c.Name = name
	}
}

// RenameBranch updates the branch name shown for a chat. Unknown
// identities are ignored.
func (r *Registry) RenameBranch(id uuid.UUID, name string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if c := r.findLocked(id); c != nil {
		c.BranchName = name
	}
}

// SelectNext advances the current selection cyclically. With zero or one
// chats it does nothing.
func (r *Registry) SelectNext() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.chats) < 2 {
		return
	}
	r.current = (r.current + 1) % len(r.chats)
}

// Delete removes a chat. When the current chat is deleted the selection
// moves to the next chat in order. Deleting the last remaining chat
// leaves the registry empty with no selection.
func (r *Registry) Delete(id uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()

	idx := -1
	for i, c := range r.chats {
		if c.UUID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return
	}

	r.chats = append(r.chats[:idx], r.chats[idx+1:]...)
	switch {
	case len(r.chats) == 0:
		r.current = 0
	case idx < r.current:
		r.current--
	case r.current >= len(r.chats):
		r.current = 0
	}
}

// CurrentUUID returns the identity of the current chat. It panics on an
// empty registry; the constructor always seeds one chat, so an empty
// registry here is a construction bug, not a runtime condition.
func (r *Registry) CurrentUUID() uuid.UUID {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if len(r.chats) == 0 {
		panic("registry has no chats")
	}
	return r.chats[r.current].UUID
}

// Len returns the number of chats.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.chats)
}

// Apply runs fn against the chat with the given identity while holding
// the registry lock, so reconciling one response is atomic with respect
// to every reader. It reports whether the chat was found.
func (r *Registry) Apply(id uuid.UUID, fn func(*chat.Chat)) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	c := r.findLocked(id)
	if c == nil {
		return false
	}
	fn(c)
	return true
}

// Summaries returns display copies of every chat in creation order.
func (r *Registry) Summaries() []ChatSummary {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]ChatSummary, 0, len(r.chats))
	for i, c := range r.chats {
		out = append(out, ChatSummary{
			UUID:         c.UUID,
			Name:         c.Name,
			BranchName:   c.BranchName,
			Loading:      c.IsLoading(),
			StateMessage: c.StateMessage(),
			UnseenCount:  c.UnseenCount,
			Current:      i == r.current,
		})
	}
	return out
}

// CurrentSnapshot returns a consistent copy of the current chat for
// rendering. Panics on an empty registry, as with CurrentUUID.
func (r *Registry) CurrentSnapshot() ChatSnapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if len(r.chats) == 0 {
		panic("registry has no chats")
	}
	c := r.chats[r.current]
	messages := make([]chat.Message, len(c.Messages))
	copy(messages, c.Messages)
	completed := make(map[string]bool)
	for _, id := range c.CompletedToolCallIDs() {
		completed[id] = true
	}
	return ChatSnapshot{
		UUID:               c.UUID,
		Name:               c.Name,
		BranchName:         c.BranchName,
		Messages:           messages,
		Loading:            c.IsLoading(),
		StateMessage:       c.StateMessage(),
		UnseenCount:        c.UnseenCount,
		CompletedToolCalls: completed,
	}
}

// IsToolCallCompleted reports whether the given tool call finished in the
// chat with the given identity.
func (r *Registry) IsToolCallCompleted(id uuid.UUID, toolCallID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c := r.findLocked(id)
	return c != nil && c.IsToolCallCompleted(toolCallID)
}

// MarkSeen resets the unseen counter after the frontend displayed the
// chat. Only the counter resets; scroll position is the frontend's own.
func (r *Registry) MarkSeen(id uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if c := r.findLocked(id); c != nil {
		c.UnseenCount = 0
	}
}

func (r *Registry) findLocked(id uuid.UUID) *chat.Chat {
	for _, c := range r.chats {
		if c.UUID == id {
			return c
		}
	}
	return nil
}
