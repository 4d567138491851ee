// Package conversation provides per-agent chat histories for negotiation
// sessions. Each agent owns one linear history seeded with a system prompt;
// utterances from other agents arrive as user messages, the agent's own
// utterances as assistant messages. Histories are append-only and are never
// truncated during a run.
package conversation

// Manager defines the interface for a single agent's conversation history.
type Manager interface {
	GetConversation() Conversation
	AppendMessages(msgs ...*Message)
	SystemPrompt() string
	Reset()
}
