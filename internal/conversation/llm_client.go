package conversation

import "context"

const (
	ChatRoleSystem    = "system"
	ChatRoleUser      = "user"
	ChatRoleAssistant = "assistant"
)

// ChatMessage is one role-tagged entry of a generation context. System
// messages may appear anywhere in the sequence.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type TokenUsage struct {
	InputTokens  int32
	OutputTokens int32
	TotalTokens  int32
}

type LLMRequest struct {
	Model       string
	Messages    []ChatMessage
	MaxTokens   int32
	Temperature float32
	TopP        float32
}

type LLMResponse struct {
	Text       string
	Usage      TokenUsage
	StopReason string
}

// LLMClient is stateless per call: every request carries the full context.
type LLMClient interface {
	Complete(ctx context.Context, req LLMRequest) (LLMResponse, error)
}

// providerNamer is implemented by clients that can label their metrics.
type providerNamer interface {
	Provider() string
}

func providerOf(c LLMClient) string {
	if n, ok := c.(providerNamer); ok {
		return n.Provider()
	}
	return "unknown"
}

// splitSystem separates system messages from the dialogue, keeping order.
func splitSystem(messages []ChatMessage) (system []string, dialogue []ChatMessage) {
	for _, msg := range messages {
		if msg.Role == ChatRoleSystem {
			system = append(system, msg.Content)
			continue
		}
		dialogue = append(dialogue, msg)
	}
	return system, dialogue
}
