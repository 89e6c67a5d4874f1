package bot

import (
	"context"

	"github.com/regulynx/compliance-chat/internal/domain"
)

// TurnRequest carries one inbound user turn to a provider.
type TurnRequest struct {
	// Message is the user's raw input. It may be a JSON payload string when
	// the client echoes a choice selection back to the bot.
	Message string
	// ConversationID is the upstream conversation handle, stable across the
	// turns of one thread.
	ConversationID string
	// BotID routes the turn to a specific upstream bot; empty means the
	// provider's configured default.
	BotID string
	// History is the recent conversation context, oldest first.
	History []domain.ChatMessage
}

// Provider normalizes one upstream chat backend into a typed event stream.
//
// Stream returns two channels: events carries reply events until the turn is
// complete, errs delivers at most one terminal error. Both channels are
// closed by the provider when the turn ends. A provider must stop promptly
// when ctx is cancelled.
type Provider interface {
	Name() string
	Stream(ctx context.Context, req TurnRequest) (<-chan Event, <-chan error)
}
