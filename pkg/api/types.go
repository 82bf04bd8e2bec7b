package api

// DefaultChatTitle is the title the backend gives new chats.
const DefaultChatTitle = "新对话"

// User is the profile returned by login and register.
type User struct {
	ID       int    `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email,omitempty"`
}

// AuthResult is a normalized login or register response. User is nil for
// backends that only return a bare access token.
type AuthResult struct {
	AccessToken string
	TokenType   string
	User        *User
}

// Chat is a conversation. Timestamps are the backend's
// "2006-01-02 15:04:05" strings.
type Chat struct {
	ID           int    `json:"id"`
	UserID       int    `json:"user_id"`
	Title        string `json:"title"`
	CreatedAt    string `json:"created_at"`
	UpdatedAt    string `json:"updated_at"`
	MessageCount int    `json:"message_count,omitempty"`
	LastMessage  string `json:"last_message,omitempty"`
}

// ChatDetail is a chat with its most recent messages, newest first.
type ChatDetail struct {
	Chat     Chat      `json:"chat"`
	Messages []Message `json:"messages"`
}

// Message is one stored chat message. Role is "user", "model" or "system".
type Message struct {
	ID        int    `json:"id"`
	ChatID    int    `json:"chat_id"`
	UserID    *int   `json:"user_id,omitempty"`
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"`
	Role      string `json:"role"`
}

// SendMessageRequest is the body of a chat turn, streamed or not.
type SendMessageRequest struct {
	ChatID int `json:"chat_id"`

	// UserID is sent as a string, and omitted when empty.
	UserID  string `json:"user_id,omitempty"`
	Message string `json:"message"`

	// Role defaults to "user".
	Role string `json:"role"`

	// CollectionName selects a knowledge base collection for retrieval.
	CollectionName string `json:"collection_name,omitempty"`
}

// UploadResult is the backend's answer to a knowledge file upload.
type UploadResult struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// statusMessage is the {"detail": "..."} or {"status", "message"} body of
// delete endpoints.
type statusMessage struct {
	Status  string `json:"status,omitempty"`
	Message string `json:"message,omitempty"`
	Detail  string `json:"detail,omitempty"`
}
