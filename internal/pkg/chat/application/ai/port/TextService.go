package ai

import (
	"context"

	chat "github.com/MYCE-Refactoring/myce-chat/internal/pkg/chat/application/domain"
)

// TextService generates assistant text. Both calls can be slow; callers treat
// failures as degradations, never as a reason to abort a state change that
// already happened.
type TextService interface {
	// Generate produces an assistant reply to a user message.
	Generate(ctx context.Context, prompt string) (string, error)

	// Summarize condenses recent conversation history for an operator who
	// is about to take over the room.
	Summarize(ctx context.Context, history []chat.Message) (string, error)
}
