// internal/llm/models.go
package llm

// Role values follow the chat-completions convention shared by both
// backends.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one chat turn handed to a backend.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Prompt is a complete, backend-agnostic instruction. JSONMode asks the
// backend to constrain output to a single JSON object.
type Prompt struct {
	Messages []Message
	JSONMode bool
}
