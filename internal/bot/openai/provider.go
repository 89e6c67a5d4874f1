package openai

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/regulynx/compliance-chat/internal/bot"
	"github.com/regulynx/compliance-chat/internal/config"
	"github.com/regulynx/compliance-chat/internal/domain"
)

const systemPrompt = "You are a helpful compliance assistant. Answer questions about " +
	"regulatory obligations, labour law and corporate compliance in India. Be concise " +
	"and practical; say so when you are unsure."

// Provider implements bot.Provider against an OpenAI-compatible streaming
// chat-completions API.
type Provider struct {
	apiKey  string
	baseURL string
	model   string
	client  *http.Client
}

// NewProvider creates a new OpenAI provider
func NewProvider(cfg config.OpenAIConfig) *Provider {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = "https://api.openai.com"
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	// No global client timeout: it would bound the whole streamed body and
	// cut long replies mid-stream. The timeout caps time to first byte; the
	// request context governs the rest.
	return &Provider{
		apiKey:  cfg.APIKey,
		baseURL: strings.TrimSuffix(baseURL, "/"),
		model:   cfg.Model,
		client: &http.Client{
			Transport: &http.Transport{ResponseHeaderTimeout: timeout},
		},
	}
}

// Name returns the provider identifier
func (p *Provider) Name() string {
	return "openai"
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
	Stream   bool          `json:"stream"`
}

// streamChunk tolerates both the standard delta shape and a custom
// message.content shape some compatible servers emit.
type streamChunk struct {
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
	} `json:"choices"`
	Message struct {
		Content string `json:"content"`
	} `json:"message"`
	Done bool `json:"done"`
}

func (p *Provider) Stream(ctx context.Context, req bot.TurnRequest) (<-chan bot.Event, <-chan error) {
	events := make(chan bot.Event)
	errs := make(chan error, 1)

	go func() {
		defer close(events)
		defer close(errs)

		messages := make([]chatMessage, 0, len(req.History)+2)
		messages = append(messages, chatMessage{Role: string(domain.RoleSystem), Content: systemPrompt})
		for _, m := range req.History {
			messages = append(messages, chatMessage{Role: string(m.Role), Content: m.Content})
		}
		messages = append(messages, chatMessage{Role: string(domain.RoleUser), Content: req.Message})

		body, err := json.Marshal(chatRequest{
			Model:    p.model,
			Messages: messages,
			Stream:   true,
		})
		if err != nil {
			errs <- fmt.Errorf("failed to marshal request: %w", err)
			return
		}

		httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/v1/chat/completions", bytes.NewReader(body))
		if err != nil {
			errs <- fmt.Errorf("failed to create request: %w", err)
			return
		}
		httpReq.Header.Set("Content-Type", "application/json")
		httpReq.Header.Set("Authorization", "Bearer "+p.apiKey)

		resp, err := p.client.Do(httpReq)
		if err != nil {
			errs <- fmt.Errorf("failed to reach completion API: %w", err)
			return
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			errs <- fmt.Errorf("completion API returned status %d", resp.StatusCode)
			return
		}

		scanner := bufio.NewScanner(resp.Body)
		scanner.Buffer(make([]byte, 64*1024), 1024*1024)

		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())
			if line == "" || !strings.HasPrefix(line, "data:") {
				continue
			}

			data := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
			if data == "[DONE]" {
				return
			}

			var chunk streamChunk
			if err := json.Unmarshal([]byte(data), &chunk); err != nil {
				continue // skip malformed frames
			}

			content := chunk.Message.Content
			if len(chunk.Choices) > 0 && chunk.Choices[0].Delta.Content != "" {
				content = chunk.Choices[0].Delta.Content
			}
			if content != "" {
				select {
				case events <- bot.Event{Type: bot.EventTextDelta, Text: content}:
				case <-ctx.Done():
					return
				}
			}
			if chunk.Done {
				return
			}
		}
		if err := scanner.Err(); err != nil {
			errs <- fmt.Errorf("failed to read completion stream: %w", err)
		}
	}()

	return events, errs
}

// Complete performs a non-streaming completion. Used by the classifier for
// its LLM fallback.
func (p *Provider) Complete(ctx context.Context, system, user string) (string, error) {
	body, err := json.Marshal(chatRequest{
		Model: p.model,
		Messages: []chatMessage{
			{Role: string(domain.RoleSystem), Content: system},
			{Role: string(domain.RoleUser), Content: user},
		},
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/v1/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+p.apiKey)

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("failed to reach completion API: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("completion API returned status %d", resp.StatusCode)
	}

	var out struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}
	if len(out.Choices) == 0 {
		return "", fmt.Errorf("completion API returned no choices")
	}
	return out.Choices[0].Message.Content, nil
}
