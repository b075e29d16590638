package agents

import (
	"context"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"sync"

	"github.com/charmbracelet/x/ansi"
	"github.com/creack/pty"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"chathub/internal/bus"
	"chathub/internal/chat"
)

// CLIConfig configures a local coding-agent CLI.
type CLIConfig struct {
	// Command is the executable; Args may contain "{prompt}", which is
	// replaced by the user prompt.
	Command string
	Args    []string
	// UsePty runs the command under a pseudo-terminal so CLIs that
	// buffer on pipes stream incrementally.
	UsePty bool
	// WorkDir is the repository the agent works in; empty means the
	// process working directory.
	WorkDir string
}

// CLIBackend runs a coding-agent CLI per query and streams its output
// onto the response queue as snapshots of one streamed assistant message.
type CLIBackend struct {
	config CLIConfig
	queue  *bus.Queue[bus.Response]
	logger *zap.Logger

	mu      sync.Mutex
	running map[uuid.UUID]*exec.Cmd
}

// NewCLIBackend returns a backend producing onto queue.
func NewCLIBackend(config CLIConfig, queue *bus.Queue[bus.Response], logger *zap.Logger) *CLIBackend {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CLIBackend{
		config:  config,
		queue:   queue,
		logger:  logger,
		running: make(map[uuid.UUID]*exec.Cmd),
	}
}

// Query starts the CLI for the prompt and returns immediately; output is
// streamed onto the queue from a goroutine.
func (b *CLIBackend) Query(ctx context.Context, session uuid.UUID, prompt string) error {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return fmt.Errorf("empty prompt")
	}

	go b.run(ctx, session, prompt)
	return nil
}

// FixIssue rewrites the issue request as a prompt for the CLI.
func (b *CLIBackend) FixIssue(ctx context.Context, session uuid.UUID, number int) error {
	prompt := fmt.Sprintf(
		"Fetch issue #%d with its comments, analyze it, and implement a fix.", number)
	return b.Query(ctx, session, prompt)
}

// Diff reports the agent's uncommitted changes. Pulling is not something
// a one-shot CLI run can offer, so it is reported back as unsupported.
func (b *CLIBackend) Diff(ctx context.Context, session uuid.UUID, pull bool) error {
	if pull {
		b.queue.Push(bus.Response{Session: session, Payload: bus.BackendMessage{
			Text: "This backend cannot pull changes; the agent works directly in your checkout.",
		}})
		return nil
	}

	go func() {
		cmd := exec.CommandContext(ctx, "git", "diff")
		cmd.Dir = b.config.WorkDir
		out, err := cmd.CombinedOutput()
		if err != nil {
			b.queue.Push(bus.Response{Session: session, Payload: bus.BackendMessage{
				Text: fmt.Sprintf("diff failed: %v", err),
			}})
			return
		}
		text := strings.TrimSpace(string(out))
		if text == "" {
			text = "No changes."
		}
		b.queue.Push(bus.Response{Session: session, Payload: bus.BackendMessage{Text: text}})
	}()
	return nil
}

// Cancel kills the in-flight process for the session, if any.
func (b *CLIBackend) Cancel(session uuid.UUID) bool {
	b.mu.Lock()
	cmd, ok := b.running[session]
	b.mu.Unlock()
	if !ok || cmd.Process == nil {
		return false
	}
	if err := cmd.Process.Kill(); err != nil {
		b.logger.Warn("failed to kill agent process", zap.Error(err))
		return false
	}
	return true
}

// Shutdown kills every in-flight process.
func (b *CLIBackend) Shutdown() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for session, cmd := range b.running {
		if cmd.Process != nil {
			_ = cmd.Process.Kill()
		}
		delete(b.running, session)
	}
	return nil
}

func (b *CLIBackend) run(ctx context.Context, session uuid.UUID, prompt string) {
	b.queue.Push(bus.Response{Session: session, Payload: bus.ActivityUpdate{
		Text: "running " + b.config.Command,
	}})

	cmd := exec.CommandContext(ctx, b.config.Command, ExpandArgs(b.config.Args, prompt)...)
	cmd.Dir = b.config.WorkDir

	output, err := b.start(cmd)
	if err != nil {
		b.fail(session, fmt.Errorf("failed to start %s: %w", b.config.Command, err))
		return
	}

	b.mu.Lock()
	b.running[session] = cmd
	b.mu.Unlock()
	defer func() {
		b.mu.Lock()
		delete(b.running, session)
		b.mu.Unlock()
	}()

	stream := NewStreamAccumulator()
	buf := make([]byte, 4096)
	for {
		n, readErr := output.Read(buf)
		if n > 0 {
			stream.Append(buf[:n])
			b.queue.Push(bus.Response{Session: session, Payload: bus.ChatContent{
				Message: chat.Message{
					Role:     chat.RoleAssistant,
					Content:  stream.Content(),
					StreamID: stream.ID(),
				},
			}})
		}
		if readErr != nil {
			// A pty read fails with EIO when the child exits; both that
			// and EOF mean the stream is done.
			break
		}
	}
	output.Close()

	waitErr := cmd.Wait()
	switch {
	case waitErr != nil:
		b.fail(session, fmt.Errorf("%s exited: %w", b.config.Command, waitErr))
	case stream.Content() == "":
		b.queue.Push(bus.Response{Session: session, Payload: bus.BackendMessage{
			Text: b.config.Command + " produced no output",
		}})
		b.queue.Push(bus.Response{Session: session, Payload: bus.Completed{}})
	default:
		// Re-deliver the final content without a stream id; the chat
		// collapses it into the streamed entry and counts it as new.
		b.queue.Push(bus.Response{Session: session, Payload: bus.ChatContent{
			Message: chat.NewAssistantMessage(stream.Content()),
		}})
		b.queue.Push(bus.Response{Session: session, Payload: bus.Completed{}})
	}
}

// start launches the command and returns its output stream, under a pty
// when configured.
func (b *CLIBackend) start(cmd *exec.Cmd) (io.ReadCloser, error) {
	if b.config.UsePty {
		tty, err := pty.Start(cmd)
		if err != nil {
			return nil, err
		}
		return tty, nil
	}

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, err
	}
	cmd.Stderr = cmd.Stdout
	if err := cmd.Start(); err != nil {
		return nil, err
	}
	return stdout, nil
}

func (b *CLIBackend) fail(session uuid.UUID, err error) {
	b.logger.Warn("agent run failed", zap.String("chat", session.String()), zap.Error(err))
	b.queue.Push(bus.Response{Session: session, Payload: bus.BackendMessage{Text: err.Error()}})
	b.queue.Push(bus.Response{Session: session, Payload: bus.Completed{}})
}

// ExpandArgs substitutes the prompt into an argument template.
func ExpandArgs(args []string, prompt string) []string {
	out := make([]string, 0, len(args))
	for _, arg := range args {
		if arg == "{prompt}" {
			out = append(out, prompt)
			continue
		}
		out = append(out, strings.ReplaceAll(arg, "{prompt}", prompt))
	}
	return out
}

// StreamAccumulator collects raw CLI output into the latest full snapshot
// of one streamed message. Terminal escape sequences and carriage returns
// are stripped so repaints do not corrupt the text.
type StreamAccumulator struct {
	id  string
	raw strings.Builder
}

// NewStreamAccumulator returns an accumulator with a fresh stream id.
func NewStreamAccumulator() *StreamAccumulator {
	return &StreamAccumulator{id: uuid.NewString()}
}

// ID returns the stream id shared by every snapshot.
func (s *StreamAccumulator) ID() string { return s.id }

// Append adds a chunk of raw output.
func (s *StreamAccumulator) Append(chunk []byte) {
	s.raw.Write(chunk)
}

// Content returns the cleaned snapshot so far.
func (s *StreamAccumulator) Content() string {
	text := ansi.Strip(s.raw.String())
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	return strings.TrimSpace(text)
}
