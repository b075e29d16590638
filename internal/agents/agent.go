// Package agents implements the backend collaborators that execute agent
// work and feed responses onto the bus. Backends run in their own
// goroutines and own the producer end of the response queue; they never
// touch the registry directly.
package agents

import (
	"context"

	"github.com/google/uuid"
)

// Backend is a conversation executor. Every method returns promptly: the
// actual work runs asynchronously and its results arrive as bus.Response
// values on the queue the backend was constructed with.
type Backend interface {
	// Query sends a user prompt for the given session.
	Query(ctx context.Context, session uuid.UUID, prompt string) error
	// FixIssue asks the agent to fetch and fix a tracked issue.
	FixIssue(ctx context.Context, session uuid.UUID, number int) error
	// Diff requests the agent's current changes; with pull set, they are
	// pulled into the local branch as well.
	Diff(ctx context.Context, session uuid.UUID, pull bool) error
	// Cancel stops in-flight work for the session, when supported.
	Cancel(session uuid.UUID) bool
	// Shutdown releases the backend's resources.
	Shutdown() error
}
