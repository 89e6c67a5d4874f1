package botpress

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/regulynx/compliance-chat/internal/bot"
	"github.com/regulynx/compliance-chat/internal/config"
	"github.com/rs/zerolog/log"
)

// Provider implements bot.Provider against the Botpress converse API. The
// upstream is request/response; the adapter synthesizes a stream from the
// typed reply fragments and appends side-payload events computed from
// request-scoped business logic.
type Provider struct {
	baseURL    string
	botID      string
	client     *http.Client
	acts       bot.ActsSource
	updates    bot.UpdatesSource
	classifier bot.Classifier
}

// NewProvider creates a new Botpress provider
func NewProvider(cfg config.BotpressConfig, acts bot.ActsSource, updates bot.UpdatesSource, classifier bot.Classifier) *Provider {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	return &Provider{
		baseURL:    strings.TrimSuffix(cfg.BaseURL, "/"),
		botID:      cfg.BotID,
		client:     &http.Client{Timeout: timeout},
		acts:       acts,
		updates:    updates,
		classifier: classifier,
	}
}

// Name returns the provider identifier
func (p *Provider) Name() string {
	return "botpress"
}

type converseResponse struct {
	Responses []converseFragment `json:"responses"`
}

type converseFragment struct {
	Type    string         `json:"type"`
	Text    string         `json:"text"`
	Choices []bot.Choice   `json:"choices"`
	Items   []carouselItem `json:"items"`
}

type carouselItem struct {
	Title string `json:"title"`
}

// Choice values that mean the user may hand the conversation to the AI
// assistant on the next turn.
var assistantChoiceValues = map[string]bool{
	"AI_ASSISTANT": true,
	"ASK_AI":       true,
	"ASK_RICA":     true,
	"TALK_AI":      true,
}

func (p *Provider) Stream(ctx context.Context, req bot.TurnRequest) (<-chan bot.Event, <-chan error) {
	events := make(chan bot.Event)
	errs := make(chan error, 1)

	go func() {
		defer close(events)
		defer close(errs)

		message := p.interceptClassification(ctx, req)

		resp, err := p.converse(ctx, message, req)
		if err != nil {
			errs <- err
			return
		}

		emit := func(ev bot.Event) bool {
			select {
			case events <- ev:
				return true
			case <-ctx.Done():
				return false
			}
		}

		var replyTexts []string
		var allChoices []bot.Choice

		for i, frag := range resp.Responses {
			if i > 0 {
				if !emit(bot.Event{Type: bot.EventMessageBoundary}) {
					return
				}
			}

			switch frag.Type {
			case "text":
				replyTexts = append(replyTexts, frag.Text)
				if !emit(bot.Event{Type: bot.EventTextDelta, Text: frag.Text}) {
					return
				}

			case "choice", "single-choice":
				if frag.Text != "" {
					replyTexts = append(replyTexts, frag.Text)
					if !emit(bot.Event{Type: bot.EventTextDelta, Text: frag.Text}) {
						return
					}
				}
				allChoices = append(allChoices, frag.Choices...)

			case "carousel":
				if len(frag.Items) == 0 {
					continue
				}
				var b strings.Builder
				b.WriteString("**Options:**")
				for idx, item := range frag.Items {
					title := item.Title
					if title == "" {
						title = fmt.Sprintf("Option %d", idx+1)
					}
					fmt.Fprintf(&b, "\n%d. %s", idx+1, title)
				}
				replyTexts = append(replyTexts, b.String())
				if !emit(bot.Event{Type: bot.EventTextDelta, Text: b.String()}) {
					return
				}
			}
		}

		fullReply := strings.Join(replyTexts, "\n")

		// Applicability flow: a selection summary in the reply drives the
		// acts side-query.
		if sel := bot.ExtractSelection(fullReply); !sel.Empty() {
			if ev, ok := bot.BuildActsEvent(ctx, p.acts, sel); ok {
				if !emit(ev) {
					return
				}
			}
		}

		if bot.WantsDailyUpdates(fullReply) || bot.WantsDailyUpdates(req.Message) {
			if ev, ok := bot.BuildDailyUpdatesEvent(ctx, p.updates); ok {
				if !emit(ev) {
					return
				}
			}
		}

		if len(allChoices) > 0 {
			if !emit(bot.Event{Type: bot.EventChoices, Choices: allChoices}) {
				return
			}
			for _, c := range allChoices {
				if assistantChoiceValues[strings.ToUpper(c.Value)] {
					emit(bot.Event{Type: bot.EventProviderSwitch, Provider: "openai"})
					break
				}
			}
		}
	}()

	return events, errs
}

// interceptClassification normalizes a free-text answer through the
// classifier when the bot's previous prompt asked for an organization type,
// industry, or employee size. Classification failures fall back to the raw
// input.
func (p *Provider) interceptClassification(ctx context.Context, req bot.TurnRequest) string {
	if p.classifier == nil || strings.HasPrefix(strings.TrimSpace(req.Message), "{") {
		return req.Message
	}

	kind := bot.ExpectedAnswer(req.History)
	if kind == bot.AnswerNone {
		return req.Message
	}

	var (
		value string
		err   error
	)
	switch kind {
	case bot.AnswerOrganization:
		value, err = p.classifier.ClassifyOrganization(ctx, req.Message)
	case bot.AnswerIndustry:
		value, err = p.classifier.ClassifyIndustry(ctx, req.Message)
	case bot.AnswerEmployeeSize:
		value, err = p.classifier.ClassifyEmployeeSize(ctx, req.Message)
	}
	if err != nil || value == "" || value == "Unclear" {
		if err != nil {
			log.Warn().Err(err).Msg("classification failed, forwarding raw input")
		}
		return req.Message
	}

	log.Debug().Str("input", req.Message).Str("classified", value).Msg("classified free-text answer")
	return value
}

func (p *Provider) converse(ctx context.Context, message string, req bot.TurnRequest) (*converseResponse, error) {
	botID := req.BotID
	if botID == "" {
		botID = p.botID
	}
	url := fmt.Sprintf("%s/api/v1/bots/%s/converse/%s", p.baseURL, botID, req.ConversationID)

	// Choice selections arrive as JSON payload strings and pass through
	// unchanged; plain text is wrapped.
	var payload map[string]any
	trimmed := strings.TrimSpace(message)
	if strings.HasPrefix(trimmed, "{") {
		if err := json.Unmarshal([]byte(trimmed), &payload); err != nil {
			payload = nil
		}
	}
	if payload == nil {
		payload = map[string]any{"type": "text", "text": message}
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal converse payload: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to communicate with botpress: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("botpress returned status %d", resp.StatusCode)
	}

	var converse converseResponse
	if err := json.NewDecoder(resp.Body).Decode(&converse); err != nil {
		return nil, fmt.Errorf("failed to decode botpress response: %w", err)
	}
	return &converse, nil
}
