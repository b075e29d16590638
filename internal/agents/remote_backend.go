package agents

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	sdka2a "github.com/a2aproject/a2a-go/a2a"
	"github.com/a2aproject/a2a-go/a2aclient"

	"chathub/internal/bus"
	"chathub/internal/chat"
)

// RemoteBackend sends prompts to a remote A2A agent and relays what it
// answers onto the response queue.
type RemoteBackend struct {
	name    string
	cardURL string
	client  *a2aclient.Client
	queue   *bus.Queue[bus.Response]
	logger  *zap.Logger
}

// NewRemoteBackend fetches the agent card at cardURL and builds a client
// for it.
func NewRemoteBackend(ctx context.Context, cardURL string, queue *bus.Queue[bus.Response], logger *zap.Logger) (*RemoteBackend, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	card, err := fetchAgentCard(ctx, cardURL)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch agent card: %w", err)
	}
	client, err := a2aclient.NewFromCard(ctx, card)
	if err != nil {
		return nil, fmt.Errorf("failed to create client: %w", err)
	}

	return &RemoteBackend{
		name:    card.Name,
		cardURL: cardURL,
		client:  client,
		queue:   queue,
		logger:  logger,
	}, nil
}

// Name returns the remote agent's display name from its card.
func (b *RemoteBackend) Name() string { return b.name }

// Query sends the prompt to the remote agent; the reply arrives on the
// queue from a goroutine.
func (b *RemoteBackend) Query(ctx context.Context, session uuid.UUID, prompt string) error {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return fmt.Errorf("empty prompt")
	}

	go func() {
		b.queue.Push(bus.Response{Session: session, Payload: bus.ActivityUpdate{
			Text: "waiting for " + b.name,
		}})

		message := &sdka2a.Message{
			ID:        "msg-" + uuid.NewString(),
			Role:      sdka2a.MessageRoleUser,
			Parts:     sdka2a.ContentParts{&sdka2a.TextPart{Text: prompt}},
			ContextID: session.String(),
		}
		result, err := b.client.SendMessage(ctx, &sdka2a.MessageSendParams{Message: message})
		if err != nil {
			b.logger.Warn("remote agent call failed", zap.String("agent", b.name), zap.Error(err))
			b.queue.Push(bus.Response{Session: session, Payload: bus.BackendMessage{
				Text: fmt.Sprintf("%s failed: %v", b.name, err),
			}})
			b.queue.Push(bus.Response{Session: session, Payload: bus.Completed{}})
			return
		}

		text := extractResultText(result)
		if text == "" {
			b.queue.Push(bus.Response{Session: session, Payload: bus.BackendMessage{
				Text: b.name + " returned no text",
			}})
		} else {
			b.queue.Push(bus.Response{Session: session, Payload: bus.ChatContent{
				Message: chat.NewAssistantMessage(text),
			}})
		}
		b.queue.Push(bus.Response{Session: session, Payload: bus.Completed{}})
	}()
	return nil
}

// FixIssue rewrites the issue request as a prompt.
func (b *RemoteBackend) FixIssue(ctx context.Context, session uuid.UUID, number int) error {
	prompt := fmt.Sprintf(
		"Fetch issue #%d with its comments, analyze it, and implement a fix.", number)
	return b.Query(ctx, session, prompt)
}

// Diff is not part of the A2A surface.
func (b *RemoteBackend) Diff(_ context.Context, session uuid.UUID, _ bool) error {
	b.queue.Push(bus.Response{Session: session, Payload: bus.BackendMessage{
		Text: b.name + " does not expose local diffs",
	}})
	return nil
}

// Cancel is unsupported; SendMessage calls are not tracked as tasks.
func (b *RemoteBackend) Cancel(uuid.UUID) bool { return false }

// Shutdown destroys the underlying client.
func (b *RemoteBackend) Shutdown() error {
	if b.client != nil {
		return b.client.Destroy()
	}
	return nil
}

// extractResultText pulls the text parts out of a send result, which the
// SDK returns as either a message or a task.
func extractResultText(result any) string {
	switch r := result.(type) {
	case *sdka2a.Message:
		return textFromParts(r.Parts)
	case *sdka2a.Task:
		if r.Status.Message != nil {
			if text := textFromParts(r.Status.Message.Parts); text != "" {
				return text
			}
		}
		for i := len(r.History) - 1; i >= 0; i-- {
			if r.History[i].Role != sdka2a.MessageRoleAgent {
				continue
			}
			if text := textFromParts(r.History[i].Parts); text != "" {
				return text
			}
		}
	}
	return ""
}

func textFromParts(parts sdka2a.ContentParts) string {
	var out []string
	for _, part := range parts {
		if text, ok := part.(*sdka2a.TextPart); ok && text.Text != "" {
			out = append(out, text.Text)
		}
	}
	return strings.Join(out, "\n")
}

// fetchAgentCard fetches an agent card, defaulting to the well-known path.
func fetchAgentCard(ctx context.Context, url string) (*sdka2a.AgentCard, error) {
	if !strings.HasSuffix(url, ".json") && !strings.Contains(url, "/.well-known/") {
		if !strings.HasSuffix(url, "/") {
			url += "/"
		}
		url += ".well-known/agent.json"
	}

	reqCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to fetch agent card: status %d", resp.StatusCode)
	}

	var card sdka2a.AgentCard
	if err := json.NewDecoder(resp.Body).Decode(&card); err != nil {
		return nil, fmt.Errorf("failed to decode agent card: %w", err)
	}
	return &card, nil
}
