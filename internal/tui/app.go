// Package tui is the interactive frontend. It polls the dispatcher's
// dirty flag on a tick, renders registry snapshots, and turns key input
// into intent events. It never mutates chat state directly.
package tui

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"

	"chathub/internal/bus"
	"chathub/internal/chat"
	"chathub/internal/hub"
)

const (
	tickInterval  = 100 * time.Millisecond
	listPaneWidth = 24
	inputHeight   = 4
)

var (
	headerStyle    = lipgloss.NewStyle().Bold(true)
	footerStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	errStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("160"))
	dimStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("243"))
	branchStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("108"))
	currentStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("220")).Bold(true)
	listPaneStyle  = lipgloss.NewStyle().Border(lipgloss.NormalBorder(), false, false, false, true).PaddingLeft(1)
	inputBoxStyle  = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("240"))
	statusOKStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("76"))
	loadingSpinner = spinner.Dot
)

type tickMsg time.Time

func tickCmd() tea.Cmd {
	return tea.Tick(tickInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

type model struct {
	cfg        hub.Config
	dispatcher *hub.Dispatcher
	logger     *zap.Logger
	ctx        context.Context

	width  int
	height int

	viewport viewport.Model
	input    textarea.Model
	spinner  spinner.Model
	keys     keyMap
	help     help.Model
	showHelp bool

	summaries []hub.ChatSummary
	current   hub.ChatSnapshot

	followTail bool
	errMsg     string
	statusMsg  string
}

// Run starts the dispatch loop and runs the frontend until quit.
func Run(cfg hub.Config, dispatcher *hub.Dispatcher, logger *zap.Logger) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go dispatcher.Run(ctx)

	input := textarea.New()
	input.Placeholder = "Ask the agent anything, or type / for commands"
	input.Prompt = ""
	input.ShowLineNumbers = false
	input.CharLimit = 0
	input.SetHeight(inputHeight - 2)
	input.Focus()

	spin := spinner.New()
	spin.Spinner = loadingSpinner
	spin.Style = dimStyle

	m := model{
		cfg:        cfg,
		dispatcher: dispatcher,
		logger:     logger,
		ctx:        ctx,
		viewport:   viewport.New(0, 0),
		input:      input,
		spinner:    spin,
		keys:       defaultKeyMap,
		help:       help.New(),
		followTail: true,
	}
	m.refresh()

	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithMouseCellMotion())
	_, err := p.Run()
	if err != nil {
		return fmt.Errorf("frontend failed: %w", err)
	}
	return nil
}

func (m model) Init() tea.Cmd {
	return tea.Batch(tickCmd(), m.spinner.Tick, textarea.Blink)
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resize()
		m.syncViewport()
		return m, nil

	case tickMsg:
		if m.dispatcher.ConsumeDirty() {
			m.refresh()
			m.syncViewport()
		}
		return m, tickCmd()

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.MouseMsg:
		if msg.Action == tea.MouseActionPress &&
			(msg.Button == tea.MouseButtonWheelUp || msg.Button == tea.MouseButtonWheelDown) {
			var cmd tea.Cmd
			m.viewport, cmd = m.viewport.Update(msg)
			m.followTail = m.viewport.AtBottom()
			return m, cmd
		}
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	return m, nil
}

func (m model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m.quit()

	case key.Matches(msg, m.keys.NewChat):
		m.handleEvent(bus.NewChat{})
		return m, nil

	case key.Matches(msg, m.keys.NextChat):
		m.handleEvent(bus.NextChat{})
		m.refresh()
		m.followTail = true
		m.syncViewport()
		m.viewport.GotoBottom()
		return m, nil

	case key.Matches(msg, m.keys.DeleteChat):
		return m.deleteCurrent()

	case key.Matches(msg, m.keys.CopyLast):
		m.copyLastMessage()
		return m, nil

	case key.Matches(msg, m.keys.ScrollUp):
		m.viewport.HalfPageUp()
		m.followTail = false
		return m, nil

	case key.Matches(msg, m.keys.ScrollDown):
		m.viewport.HalfPageDown()
		m.followTail = m.viewport.AtBottom()
		return m, nil

	case key.Matches(msg, m.keys.ScrollEnd):
		m.viewport.GotoBottom()
		m.followTail = true
		return m, nil

	case key.Matches(msg, m.keys.Help):
		m.showHelp = !m.showHelp
		m.resize()
		return m, nil
	}

	switch msg.String() {
	case "enter":
		return m.submitInput()
	case "ctrl+j":
		m.input.InsertString("\n")
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m model) submitInput() (tea.Model, tea.Cmd) {
	text := strings.TrimSpace(m.input.Value())
	if text == "" {
		return m, nil
	}
	m.input.Reset()
	m.errMsg = ""
	m.statusMsg = ""

	if strings.HasPrefix(text, "/") {
		return m.applyCommand(strings.TrimPrefix(text, "/"))
	}

	m.handleEvent(bus.UserInput{Session: m.current.UUID, Text: text})
	m.refresh()
	m.followTail = true
	m.syncViewport()
	m.viewport.GotoBottom()
	return m, nil
}

// applyCommand handles a slash command from the input line.
func (m model) applyCommand(input string) (tea.Model, tea.Cmd) {
	parts := strings.Fields(input)
	if len(parts) == 0 {
		return m, nil
	}
	command := strings.ToLower(parts[0])
	args := parts[1:]

	switch command {
	case "new":
		m.handleEvent(bus.NewChat{})
	case "next":
		m.handleEvent(bus.NextChat{})
		m.refresh()
		m.syncViewport()
	case "delete":
		return m.deleteCurrent()
	case "rename":
		if len(args) == 0 {
			m.errMsg = "usage: /rename <name>"
			return m, nil
		}
		m.handleEvent(bus.RenameChatEvent{Session: m.current.UUID, Name: strings.Join(args, " ")})
	case "branch":
		if len(args) == 0 {
			m.errMsg = "usage: /branch <name>"
			return m, nil
		}
		m.handleEvent(bus.RenameBranchEvent{Session: m.current.UUID, Name: args[0]})
	case "copy":
		m.copyLastMessage()
	case "diff":
		m.handleEvent(bus.DiffShow{Session: m.current.UUID})
	case "pull":
		m.handleEvent(bus.DiffPull{Session: m.current.UUID})
	case "issue":
		if len(args) == 0 {
			m.errMsg = "usage: /issue <number>"
			return m, nil
		}
		number, err := strconv.Atoi(args[0])
		if err != nil {
			m.errMsg = "issue number must be numeric"
			return m, nil
		}
		m.handleEvent(bus.FixIssue{Session: m.current.UUID, Number: number})
	case "save":
		path, err := hub.SaveTranscript(m.cfg.DataDir, m.dispatcher.Registry().CurrentSnapshot())
		if err != nil {
			m.errMsg = err.Error()
			return m, nil
		}
		m.statusMsg = "transcript saved to " + path
	case "help":
		m.showHelp = !m.showHelp
		m.resize()
	case "quit", "q":
		return m.quit()
	default:
		m.errMsg = "unknown command: /" + command
	}
	return m, nil
}

func (m model) deleteCurrent() (tea.Model, tea.Cmd) {
	m.handleEvent(bus.DeleteChat{Session: m.current.UUID})
	if m.dispatcher.Registry().Len() == 0 {
		// Keep the invariant that the frontend always has a chat to show.
		m.handleEvent(bus.NewChat{})
	}
	m.refresh()
	m.followTail = true
	m.syncViewport()
	return m, nil
}

func (m model) quit() (tea.Model, tea.Cmd) {
	m.handleEvent(bus.Quit{})
	return m, tea.Quit
}

func (m *model) copyLastMessage() {
	last, ok := lastContentMessage(m.current.Messages)
	if !ok {
		m.errMsg = "nothing to copy"
		return
	}
	if err := clipboard.WriteAll(last.Content); err != nil {
		m.errMsg = "copy failed: " + err.Error()
		return
	}
	m.statusMsg = "copied last message"
}

// lastContentMessage returns the newest user or assistant entry.
func lastContentMessage(messages []chat.Message) (chat.Message, bool) {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].IsUser() || messages[i].IsAssistant() {
			return messages[i], true
		}
	}
	return chat.Message{}, false
}

// handleEvent forwards an intent to the dispatcher; failures surface in
// the status line, never as a crash.
func (m *model) handleEvent(event bus.Event) {
	if err := m.dispatcher.HandleEvent(m.ctx, event); err != nil {
		m.logger.Warn("intent failed", zap.Error(err))
		m.errMsg = err.Error()
	}
}

// refresh pulls fresh snapshots from the registry and resets the unseen
// counter of the chat being displayed (auto-tail semantics).
func (m *model) refresh() {
	m.summaries = m.dispatcher.Registry().Summaries()
	m.current = m.dispatcher.Registry().CurrentSnapshot()
	if m.current.UnseenCount > 0 {
		m.dispatcher.Registry().MarkSeen(m.current.UUID)
		m.current.UnseenCount = 0
	}
}

func (m *model) resize() {
	chatWidth := m.width - listPaneWidth
	if chatWidth < 20 {
		chatWidth = m.width
	}
	bodyHeight := m.height - inputHeight - 3
	if m.showHelp {
		bodyHeight -= 2
	}
	if bodyHeight < 3 {
		bodyHeight = 3
	}
	m.viewport.Width = chatWidth
	m.viewport.Height = bodyHeight
	m.input.SetWidth(m.width - 2)
}

func (m *model) syncViewport() {
	atBottom := m.viewport.AtBottom()
	m.viewport.SetContent(m.renderMessages())
	if m.followTail || atBottom {
		m.viewport.GotoBottom()
	}
}

func (m model) renderMessages() string {
	var lines []string
	for _, message := range m.current.Messages {
		lines = append(lines, formatMessage(message, m.current.CompletedToolCalls)...)
	}
	if len(lines) == 0 {
		lines = []string{dimStyle.Render("No messages yet. Type below to get started.")}
	}
	return strings.Join(lines, "\n")
}

func (m model) renderChatList() string {
	var rows []string
	rows = append(rows, headerStyle.Render("Chats"))
	for _, summary := range m.summaries {
		label := formatChatListEntry(summary)
		if summary.Current {
			label = currentStyle.Render("> " + label)
		} else {
			label = "  " + label
		}
		rows = append(rows, label)
	}
	return listPaneStyle.Height(m.viewport.Height).Render(strings.Join(rows, "\n"))
}

func (m model) renderHeader() string {
	title := headerStyle.Render("chathub")
	name := m.current.Name
	if m.current.BranchName != "" {
		name += " " + branchStyle.Render("["+m.current.BranchName+"]")
	}
	state := ""
	if m.current.Loading {
		state = m.spinner.View() + " " + dimStyle.Render(stateText(m.current))
	}
	return strings.TrimRight(title+"  "+name+"  "+state, " ")
}

func stateText(snapshot hub.ChatSnapshot) string {
	if snapshot.StateMessage != "" {
		return snapshot.StateMessage
	}
	return "working"
}

func (m model) View() string {
	body := lipgloss.JoinHorizontal(lipgloss.Top, m.viewport.View(), m.renderChatList())

	statusLine := ""
	switch {
	case m.errMsg != "":
		statusLine = errStyle.Render(m.errMsg)
	case m.statusMsg != "":
		statusLine = statusOKStyle.Render(m.statusMsg)
	}

	sections := []string{
		m.renderHeader(),
		body,
		inputBoxStyle.Width(m.width - 2).Render(m.input.View()),
		statusLine,
		footerStyle.Render(m.help.ShortHelpView(m.keys.ShortHelp())),
	}
	if m.showHelp {
		sections = append(sections, footerStyle.Render(m.help.FullHelpView(m.keys.FullHelp())))
	}
	return strings.Join(sections, "\n")
}
