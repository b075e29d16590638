package bus

import "github.com/google/uuid"

// Event is the closed set of user-intent events flowing from the frontend
// toward the registry and, when relevant, onward to the backend.
type Event interface {
	event()
}

// NewChat opens a fresh chat session.
type NewChat struct{}

// NextChat cycles the current selection to the next chat.
type NextChat struct{}

// RenameChatEvent renames a chat by identity.
type RenameChatEvent struct {
	Session uuid.UUID
	Name    string
}

// RenameBranchEvent updates the branch name shown for a chat.
type RenameBranchEvent struct {
	Session uuid.UUID
	Name    string
}

// DeleteChat removes the current chat.
type DeleteChat struct {
	Session uuid.UUID
}

// UserInput is a plain user prompt for the agent.
type UserInput struct {
	Session uuid.UUID
	Text    string
}

// FixIssue asks the agent to fetch and fix a tracked issue.
type FixIssue struct {
	Session uuid.UUID
	Number  int
}

// DiffShow asks the backend for the agent's current changes.
type DiffShow struct {
	Session uuid.UUID
}

// DiffPull pulls the agent's changes into the local branch.
type DiffPull struct {
	Session uuid.UUID
}

// Quit shuts the frontend down.
type Quit struct{}

func (NewChat) event()           {}
func (NextChat) event()          {}
func (RenameChatEvent) event()   {}
func (RenameBranchEvent) event() {}
func (DeleteChat) event()        {}
func (UserInput) event()         {}
func (FixIssue) event()          {}
func (DiffShow) event()          {}
func (DiffPull) event()          {}
func (Quit) event()              {}
