package conversation

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

type Role string

const (
	RoleSystem    Role = "system"
	RoleAssistant Role = "assistant"
	RoleUser      Role = "user"
)

// Message is a single entry in an agent's conversation history.
type Message struct {
	ID   uuid.UUID `json:"id"`
	Role Role      `json:"role"`
	Text string    `json:"text"`
	Time time.Time `json:"time"`
}

func NewMessage(role Role, text string) *Message {
	return &Message{
		ID:   uuid.New(),
		Role: role,
		Text: text,
		Time: time.Now(),
	}
}

func (m *Message) String() string {
	return m.Text
}

func (m *Message) View() string {
	return fmt.Sprintf("[%s]: %s", m.Role, strings.TrimRight(m.Text, "\n"))
}

// Conversation is an ordered list of messages, oldest first.
type Conversation []*Message

// GetSinglePrompt concatenates all message texts, useful for debugging and
// for single-prompt backends.
func (c Conversation) GetSinglePrompt() string {
	parts := make([]string, 0, len(c))
	for _, m := range c {
		parts = append(parts, m.Text)
	}
	return strings.Join(parts, "\n")
}
