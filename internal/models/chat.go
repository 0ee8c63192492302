// internal/models/chat.go
package models

// Turn is one prior exchange in a conversation, oldest first. History is
// supplied by the caller on every request; nothing is stored server-side.
type Turn struct {
	UserQuery     string `json:"user_query"`
	AgentResponse string `json:"agent_response"`
}

// ChatRequest is the body of POST /chat.
type ChatRequest struct {
	URL                 string `json:"url"`
	Query               string `json:"query"`
	ConversationHistory []Turn `json:"conversation_history,omitempty"`
}

// ChatResult is the body of a successful /chat response.
type ChatResult struct {
	URL            string   `json:"url"`
	UserQuery      string   `json:"user_query"`
	AgentResponse  string   `json:"agent_response"`
	ContextSources []string `json:"context_sources"`
}
