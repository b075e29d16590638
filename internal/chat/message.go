package chat

// Role identifies who produced a message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// ToolCall describes an agent-initiated external action.
type ToolCall struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Arguments string `json:"arguments,omitempty"`
}

// Message is a single unit of conversation content. A message with a
// non-empty StreamID is a full snapshot of a streamed message in progress;
// every fragment of the same logical message carries the same StreamID.
type Message struct {
	Role     Role      `json:"role"`
	Content  string    `json:"content"`
	StreamID string    `json:"streamId,omitempty"`
	ToolCall *ToolCall `json:"toolCall,omitempty"`
}

// NewSystemMessage returns a system message.
func NewSystemMessage(content string) Message {
	return Message{Role: RoleSystem, Content: content}
}

// NewUserMessage returns a user message.
func NewUserMessage(content string) Message {
	return Message{Role: RoleUser, Content: content}
}

// NewAssistantMessage returns an assistant message.
func NewAssistantMessage(content string) Message {
	return Message{Role: RoleAssistant, Content: content}
}

// NewToolOutputMessage returns a tool output message for a finished call.
func NewToolOutputMessage(call ToolCall, content string) Message {
	return Message{Role: RoleTool, Content: content, ToolCall: &call}
}

func (m Message) IsUser() bool      { return m.Role == RoleUser }
func (m Message) IsAssistant() bool { return m.Role == RoleAssistant }
func (m Message) IsTool() bool      { return m.Role == RoleTool }
