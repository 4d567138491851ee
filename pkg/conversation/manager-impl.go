package conversation

import "github.com/google/uuid"

// ManagerImpl is a linear, single-thread conversation history.
type ManagerImpl struct {
	ConversationID uuid.UUID

	systemPrompt string
	messages     Conversation
}

var _ Manager = (*ManagerImpl)(nil)

type ManagerOption func(*ManagerImpl)

func WithSystemPrompt(prompt string) ManagerOption {
	return func(m *ManagerImpl) {
		m.systemPrompt = prompt
	}
}

func WithMessages(msgs ...*Message) ManagerOption {
	return func(m *ManagerImpl) {
		m.AppendMessages(msgs...)
	}
}

func NewManager(options ...ManagerOption) *ManagerImpl {
	m := &ManagerImpl{
		ConversationID: uuid.New(),
	}
	for _, option := range options {
		option(m)
	}
	return m
}

// GetConversation returns the full history, with the system prompt (when set)
// as the leading system message.
func (m *ManagerImpl) GetConversation() Conversation {
	ret := make(Conversation, 0, len(m.messages)+1)
	if m.systemPrompt != "" {
		ret = append(ret, NewMessage(RoleSystem, m.systemPrompt))
	}
	ret = append(ret, m.messages...)
	return ret
}

func (m *ManagerImpl) AppendMessages(msgs ...*Message) {
	m.messages = append(m.messages, msgs...)
}

func (m *ManagerImpl) SystemPrompt() string {
	return m.systemPrompt
}

// Reset clears the accumulated messages but keeps the system prompt, so the
// same session can host a fresh negotiation.
func (m *ManagerImpl) Reset() {
	m.messages = nil
}
