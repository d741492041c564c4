// Package llm provides the external AI provider contracts and their OpenAI
// implementation. Two narrow capabilities are consumed by the retrieval
// pipeline: embedding text into vectors, and producing a chat completion for
// an assembled context.
package llm

import (
	"context"
)

// Chat roles understood by completion providers.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ChatMessage is one role-tagged segment of a completion request.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Embedder maps text to a fixed-length numeric vector via a remote model.
//
// Implementations must honor the context for cancellation and timeouts and
// return a classified *Error on provider failure.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Completer produces the assistant reply text for an ordered list of
// role-tagged messages.
//
// Implementations must honor the context for cancellation and timeouts and
// return a classified *Error on provider failure.
type Completer interface {
	Complete(ctx context.Context, messages []ChatMessage) (string, error)
}
