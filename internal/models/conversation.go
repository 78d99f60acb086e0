package models

import (
	"time"

	"github.com/google/uuid"
)

// Role identifies the author of a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAssistant
}

// DefaultTitleLength is the number of characters kept from the first message
// when a conversation title is derived.
const DefaultTitleLength = 30

// TitleEllipsis marks a title that was cut short.
const TitleEllipsis = "..."

// Message is one turn in a conversation. It is never modified after creation.
type Message struct {
	ID      string `json:"id"`
	Content string `json:"content"`
	Role    Role   `json:"role"`
}

// Conversation is a titled, ordered collection of messages.
type Conversation struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Messages  []Message `json:"messages"`
	CreatedAt time.Time `json:"createdAt"`
}

// Summary is the listing view of a conversation.
type Summary struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"createdAt"`
}

// Summary returns the listing view of c.
func (c Conversation) Summary() Summary {
	return Summary{ID: c.ID, Title: c.Title, CreatedAt: c.CreatedAt}
}

// Clone returns a deep copy of c so callers cannot reach stored history.
func (c Conversation) Clone() Conversation {
	out := c
	out.Messages = make([]Message, len(c.Messages))
	copy(out.Messages, c.Messages)
	return out
}

// NewID returns a time-ordered unique identifier.
func NewID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

// NewMessage builds a message with a fresh id.
func NewMessage(role Role, content string) Message {
	return Message{ID: NewID(), Content: content, Role: role}
}

// DeriveTitle returns content cut to maxLen characters, with TitleEllipsis
// appended when anything was removed. A non-positive maxLen uses
// DefaultTitleLength.
func DeriveTitle(content string, maxLen int) string {
	if maxLen <= 0 {
		maxLen = DefaultTitleLength
	}
	runes := []rune(content)
	if len(runes) <= maxLen {
		return content
	}
	return string(runes[:maxLen]) + TitleEllipsis
}
