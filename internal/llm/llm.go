// Package llm adapts hosted language models to a configure/dialogue API:
// a Provider configures a Handle bound to one system instruction, and each
// Handle starts independent multi-turn Dialogues.
package llm

import (
	"context"

	"github.com/set-night/tokobot/internal/domain"
)

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Turn is one message of dialogue history.
type Turn struct {
	Role string
	Text string
}

type Provider interface {
	// Configure returns a handle whose dialogues all use instruction as
	// their system prompt.
	Configure(ctx context.Context, instruction string) (Handle, error)
	Name() string
}

type Handle interface {
	StartDialogue(ctx context.Context, history []Turn) (Dialogue, error)
}

// Dialogue is not safe for concurrent Send calls.
type Dialogue interface {
	// Send returns the model reply, or an error wrapping
	// domain.ErrSafetyRejection when the model declined to answer.
	Send(ctx context.Context, text string) (string, error)
}

// ErrSafetyRejection is re-exported for provider implementations.
var ErrSafetyRejection = domain.ErrSafetyRejection
