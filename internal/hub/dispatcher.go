package hub

import (
	"context"
	"fmt"
	"sync/atomic"

	"go.uber.org/zap"

	"chathub/internal/agents"
	"chathub/internal/bus"
	"chathub/internal/chat"
)

// Dispatcher is the single consumer of the response queue. It routes each
// response to its chat, applies it, and flips a dirty flag the frontend
// polls on its refresh tick. User-intent events enter through HandleEvent,
// which applies registry effects synchronously and forwards agent-bound
// events to the backend without waiting on it.
type Dispatcher struct {
	registry *Registry
	backend  agents.Backend
	queue    *bus.Queue[bus.Response]
	logger   *zap.Logger
	dirty    atomic.Bool
}

// NewDispatcher wires the dispatcher to its registry, backend and queue.
func NewDispatcher(registry *Registry, backend agents.Backend, queue *bus.Queue[bus.Response], logger *zap.Logger) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dispatcher{
		registry: registry,
		backend:  backend,
		queue:    queue,
		logger:   logger,
	}
}

// Registry returns the registry the dispatcher writes to.
func (d *Dispatcher) Registry() *Registry { return d.registry }

// Run consumes responses until the context is canceled or the queue is
// closed and drained. An empty queue suspends the loop; it never exits
// just because nothing is pending.
func (d *Dispatcher) Run(ctx context.Context) {
	for {
		response, ok := d.queue.Pop(ctx)
		if !ok {
			d.logger.Debug("dispatch loop stopping")
			return
		}
		d.apply(response)
	}
}

// apply routes one response to its chat. Responses for unknown identities
// are dropped: the chat was likely deleted while the backend was working.
func (d *Dispatcher) apply(response bus.Response) {
	found := d.registry.Apply(response.Session, func(c *chat.Chat) {
		switch payload := response.Payload.(type) {
		case bus.ChatContent:
			c.AddMessage(payload.Message)
		case bus.ActivityUpdate:
			c.TransitionWithMessage(payload.Text)
		case bus.BackendMessage:
			c.AddMessage(chat.NewSystemMessage(payload.Text))
		case bus.RenameChat:
			c.Name = payload.Name
		case bus.RenameBranch:
			c.BranchName = payload.Name
		case bus.Completed:
			c.Transition(chat.StateReady)
		default:
			d.logger.Error("unhandled response payload",
				zap.String("type", fmt.Sprintf("%T", payload)))
		}
	})
	if !found {
		d.logger.Warn("dropping response for unknown chat",
			zap.String("chat", response.Session.String()),
			zap.String("payload", fmt.Sprintf("%T", response.Payload)))
		return
	}
	d.dirty.Store(true)
}

// HandleEvent applies a user-intent event. Registry effects happen before
// this returns; anything agent-bound is handed to the backend, which runs
// it asynchronously.
func (d *Dispatcher) HandleEvent(ctx context.Context, event bus.Event) error {
	defer d.dirty.Store(true)

	switch event := event.(type) {
	case bus.NewChat:
		d.registry.NewChat()
	case bus.NextChat:
		d.registry.SelectNext()
	case bus.RenameChatEvent:
		d.registry.Rename(event.Session, event.Name)
	case bus.RenameBranchEvent:
		d.registry.RenameBranch(event.Session, event.Name)
	case bus.DeleteChat:
		// The backend keeps running; its late responses are dropped by
		// the identity lookup in apply.
		d.registry.Delete(event.Session)
	case bus.UserInput:
		d.registry.Apply(event.Session, func(c *chat.Chat) {
			c.AddMessage(chat.NewUserMessage(event.Text))
			c.Transition(chat.StateLoading)
		})
		if err := d.backend.Query(ctx, event.Session, event.Text); err != nil {
			return fmt.Errorf("forwarding query to backend: %w", err)
		}
	case bus.FixIssue:
		d.registry.Apply(event.Session, func(c *chat.Chat) {
			c.AddMessage(chat.NewUserMessage(fmt.Sprintf("Fix issue #%d", event.Number)))
			c.Transition(chat.StateLoading)
		})
		if err := d.backend.FixIssue(ctx, event.Session, event.Number); err != nil {
			return fmt.Errorf("forwarding issue fix to backend: %w", err)
		}
	case bus.DiffShow:
		if err := d.backend.Diff(ctx, event.Session, false); err != nil {
			return fmt.Errorf("requesting diff: %w", err)
		}
	case bus.DiffPull:
		if err := d.backend.Diff(ctx, event.Session, true); err != nil {
			return fmt.Errorf("pulling diff: %w", err)
		}
	case bus.Quit:
		return d.backend.Shutdown()
	default:
		d.logger.Error("unhandled intent event",
			zap.String("type", fmt.Sprintf("%T", event)))
	}
	return nil
}

// ConsumeDirty reports whether state changed since the last call and
// clears the flag.
func (d *Dispatcher) ConsumeDirty() bool {
	return d.dirty.Swap(false)
}
