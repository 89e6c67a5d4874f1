package bot

import "github.com/regulynx/compliance-chat/internal/domain"

// EventType discriminates the typed events a provider stream can carry.
type EventType string

const (
	// EventTextDelta carries a chunk of visible reply text.
	EventTextDelta EventType = "text_delta"
	// EventChoices carries selectable options offered by the bot.
	EventChoices EventType = "choices"
	// EventActs carries regulatory records matched for the conversation.
	EventActs EventType = "acts"
	// EventDailyUpdates carries recent regulatory updates grouped by category.
	EventDailyUpdates EventType = "daily_updates"
	// EventProviderSwitch hints that a different provider should take the
	// next turn.
	EventProviderSwitch EventType = "provider_switch"
	// EventMessageBoundary separates discrete reply bubbles from the bot.
	EventMessageBoundary EventType = "message_boundary"
)

// Choice is one selectable option offered to the user.
type Choice struct {
	Title string `json:"title"`
	Value string `json:"value"`
}

// ActsPayload is the side payload of matched regulatory records.
type ActsPayload struct {
	Total   int            `json:"total"`
	Filters map[string]any `json:"filters"`
	Acts    []domain.Act   `json:"acts"`
}

// Event is one element of a provider's reply stream.
type Event struct {
	Type     EventType
	Text     string
	Choices  []Choice
	Acts     *ActsPayload
	Updates  map[string][]domain.MonthlyUpdate
	Provider string
}
