// Package bus defines the event types exchanged between the agent backends,
// the dispatch loop and the frontend, plus the unbounded queue carrying them.
package bus

import (
	"github.com/google/uuid"

	"chathub/internal/chat"
)

// Payload is the closed set of response variants a backend can emit.
// The dispatch loop switches exhaustively over these types; adding a new
// variant forces every consumer to handle it.
type Payload interface {
	payload()
}

// ChatContent carries a (possibly streamed) conversation message.
type ChatContent struct {
	Message chat.Message
}

// ActivityUpdate carries a human-readable progress line, e.g. "running tests".
type ActivityUpdate struct {
	Text string
}

// BackendMessage carries out-of-band text from the backend itself rather
// than the agent, e.g. connection notices.
type BackendMessage struct {
	Text string
}

// RenameChat asks the frontend to rename the chat, typically after the
// agent has summarized the conversation topic.
type RenameChat struct {
	Name string
}

// RenameBranch reports the version-control branch the agent is working on.
type RenameBranch struct {
	Name string
}

// Completed signals that the backend finished the in-flight command.
type Completed struct{}

func (ChatContent) payload()    {}
func (ActivityUpdate) payload() {}
func (BackendMessage) payload() {}
func (RenameChat) payload()     {}
func (RenameBranch) payload()   {}
func (Completed) payload()      {}

// Response is one backend-produced event, tagged with the session it
// belongs to so the dispatch loop can route it.
type Response struct {
	Session uuid.UUID
	Payload Payload
}
