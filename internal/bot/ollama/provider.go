package ollama

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/regulynx/compliance-chat/internal/bot"
	"github.com/regulynx/compliance-chat/internal/config"
	"github.com/regulynx/compliance-chat/internal/domain"
)

// Provider implements bot.Provider for a local Ollama instance. The upstream
// streams line-delimited JSON objects; each object's message content is
// re-framed as a text chunk.
type Provider struct {
	host   string
	model  string
	client *http.Client
}

// NewProvider creates a new Ollama provider
func NewProvider(cfg config.OllamaConfig) *Provider {
	model := cfg.Model
	if model == "" {
		model = "llama3"
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	// No global client timeout: it would bound the whole streamed body and
	// cut long replies mid-stream. The timeout caps time to first byte; the
	// request context governs the rest.
	return &Provider{
		host:  cfg.Host,
		model: model,
		client: &http.Client{
			Transport: &http.Transport{ResponseHeaderTimeout: timeout},
		},
	}
}

// Name returns the provider identifier
func (p *Provider) Name() string {
	return "ollama"
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

type chatChunk struct {
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

		messages := make([]chatMessage, 0, len(req.History)+1)
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

		httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.host+"/api/chat", bytes.NewReader(body))
		if err != nil {
			errs <- fmt.Errorf("failed to create request: %w", err)
			return
		}
		httpReq.Header.Set("Content-Type", "application/json")

		resp, err := p.client.Do(httpReq)
		if err != nil {
			errs <- fmt.Errorf("failed to reach ollama: %w", err)
			return
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			errs <- fmt.Errorf("ollama returned status %d", resp.StatusCode)
			return
		}

		scanner := bufio.NewScanner(resp.Body)
		scanner.Buffer(make([]byte, 64*1024), 1024*1024)

		for scanner.Scan() {
			line := bytes.TrimSpace(scanner.Bytes())
			if len(line) == 0 {
				continue
			}

			var chunk chatChunk
			if err := json.Unmarshal(line, &chunk); err != nil {
				continue // skip malformed lines
			}

			if chunk.Message.Content != "" {
				select {
				case events <- bot.Event{Type: bot.EventTextDelta, Text: chunk.Message.Content}:
				case <-ctx.Done():
					return
				}
			}
			if chunk.Done {
				return
			}
		}
		if err := scanner.Err(); err != nil {
			errs <- fmt.Errorf("failed to read ollama stream: %w", err)
		}
	}()

	return events, errs
}
