package domain

import (
	"strings"
	"time"
)

const (
	// MaxCustomerMessages is the hard per-conversation budget of
	// customer-authored messages. Policy constant, not workspace-configurable.
	MaxCustomerMessages = 14

	// MaxMessageChars bounds a single inbound message.
	MaxMessageChars = 2000
)

// Conversation is one customer chat thread belonging to a workspace.
type Conversation struct {
	ID            string
	WorkspaceID   string
	CustomerName  string
	UnreadCount   int
	LastMessageAt time.Time
	CreatedAt     time.Time
}

// Message is a single turn in a conversation. Agent replies carry
// IsAutomated=true and IsFromCustomer=false.
type Message struct {
	ID             string
	ConversationID string
	Content        string
	IsFromCustomer bool
	IsAutomated    bool
	CreatedAt      time.Time
}

// ValidateMessageContent enforces the inbound message constraints.
func ValidateMessageContent(content string) error {
	if strings.TrimSpace(content) == "" {
		return ErrEmptyMessage
	}
	if len(content) > MaxMessageChars {
		return ErrMessageTooLong
	}
	return nil
}
