package interfaces

import "context"

// Message represents a single message in a chat conversation
type Message struct {
	// Role identifies the message sender: "user", "assistant", or "system"
	Role string

	// Content contains the text content of the message
	Content string
}

// GenerationClient maps an assembled prompt to an answer string. Prompt
// assembly (question + retrieved passages + grounding instructions) is the
// caller's responsibility, not the provider's.
type GenerationClient interface {
	Generate(ctx context.Context, messages []Message) (string, error)
}
