package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"chathub/internal/chat"
	"chathub/internal/hub"
)

var (
	userStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("39")).Bold(true)
	assistantStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("213")).Bold(true)
	systemStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("243")).Italic(true)
	toolStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("178"))
	toolDoneStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("76"))
)

// formatMessage renders one history entry to lines of styled text.
func formatMessage(message chat.Message, completed map[string]bool) []string {
	var lines []string

	switch message.Role {
	case chat.RoleUser:
		lines = append(lines, userStyle.Render("You"))
	case chat.RoleAssistant:
		lines = append(lines, assistantStyle.Render("Assistant"))
	case chat.RoleSystem:
		lines = append(lines, systemStyle.Render(message.Content))
		return lines
	case chat.RoleTool:
		// Tool output never lands in the history; only the initiating
		// call renders, handled below on the assistant message.
		return nil
	}

	if message.ToolCall != nil {
		lines = append(lines, formatToolCall(*message.ToolCall, completed[message.ToolCall.ID]))
	}
	if message.Content != "" {
		lines = append(lines, strings.Split(message.Content, "\n")...)
	}
	lines = append(lines, "")
	return lines
}

func formatToolCall(call chat.ToolCall, done bool) string {
	label := call.Name
	if call.Arguments != "" {
		label = fmt.Sprintf("%s(%s)", call.Name, truncate(call.Arguments, 60))
	}
	if done {
		return toolDoneStyle.Render("✓ " + label)
	}
	return toolStyle.Render("⚙ " + label + " …")
}

// formatChatListEntry renders one row of the chat list pane, with a
// loading suffix and an unseen badge.
func formatChatListEntry(summary hub.ChatSummary) string {
	label := summary.Name
	if summary.Loading {
		label += " ..."
	}
	if summary.UnseenCount > 0 {
		label += fmt.Sprintf(" (%d)", summary.UnseenCount)
	}
	return label
}

func truncate(text string, limit int) string {
	if len(text) <= limit {
		return text
	}
	return text[:limit-1] + "…"
}
