package models

import "time"

// Role is the author of a chat message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// ConversationStatus represents the status of a server-side conversation.
type ConversationStatus string

const (
	ConversationActive   ConversationStatus = "active"
	ConversationArchived ConversationStatus = "archived"
)

// Conversation is the server-persisted record of a chat session.
type Conversation struct {
	CreatedAt time.Time          `json:"created_at"`
	UpdatedAt time.Time          `json:"updated_at"`
	ID        string             `json:"id"`
	SessionID string             `json:"session_id"`
	UserID    string             `json:"user_id"`
	Title     string             `json:"title"`
	Status    ConversationStatus `json:"status"`
}

// ConversationMessage is one logged chat message.
type ConversationMessage struct {
	CreatedAt      time.Time        `json:"created_at"`
	ModelUsed      *string          `json:"model_used,omitempty"`
	ResponseTimeMs *int64           `json:"response_time_ms,omitempty"`
	TokenCount     *int             `json:"token_count,omitempty"`
	Metadata       *MessageMetadata `json:"metadata,omitempty"`
	ID             string           `json:"id"`
	ConversationID string           `json:"conversation_id"`
	Role           Role             `json:"role"`
	Content        string           `json:"content"`
}

// MessageMetadata is the token usage stored with assistant messages.
type MessageMetadata struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// ContextType labels a conversation context sample.
type ContextType string

const (
	ContextActionItems ContextType = "action_items"
	ContextProjects    ContextType = "projects"
	ContextDailyLogs   ContextType = "daily_logs"
)

// ConversationContext is a sample of the data a conversation was answered from.
type ConversationContext struct {
	CreatedAt      time.Time   `json:"created_at"`
	Data           any         `json:"context_data"`
	ID             string      `json:"id"`
	ConversationID string      `json:"conversation_id"`
	ContextType    ContextType `json:"context_type"`
}

// ChatMessage is a role/content pair as exchanged with clients and the model.
type ChatMessage struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}
