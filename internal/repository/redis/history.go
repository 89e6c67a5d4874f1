package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/regulynx/compliance-chat/internal/domain"
)

const (
	historyPrefix = "chat_history:"
	historyMaxLen = 50
	historyTTL    = 24 * time.Hour
)

// HistoryCache keeps a bounded, expiring mirror of recent chat messages per
// session/thread. It is a latency optimization only; the relational store
// stays authoritative and any divergence heals via TTL expiry.
type HistoryCache struct {
	client *Client
}

// NewHistoryCache creates a new history cache
func NewHistoryCache(client *Client) *HistoryCache {
	return &HistoryCache{client: client}
}

type historyEntry struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

func historyKey(sessionID, threadID int64) string {
	if threadID > 0 {
		return fmt.Sprintf("%s%d:%d", historyPrefix, sessionID, threadID)
	}
	return fmt.Sprintf("%s%d", historyPrefix, sessionID)
}

// Append pushes one message onto the tail of the history list, trims the list
// to the newest entries and refreshes the TTL.
func (c *HistoryCache) Append(ctx context.Context, sessionID, threadID int64, role domain.MessageRole, content string) error {
	data, err := json.Marshal(historyEntry{Role: string(role), Content: content})
	if err != nil {
		return fmt.Errorf("failed to marshal history entry: %w", err)
	}

	key := historyKey(sessionID, threadID)
	pipe := c.client.rdb.Pipeline()
	pipe.RPush(ctx, key, data)
	pipe.LTrim(ctx, key, -historyMaxLen, -1)
	pipe.Expire(ctx, key, historyTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to append history entry: %w", err)
	}
	return nil
}

// List returns the cached history, oldest first. An absent key yields an
// empty slice, not an error.
func (c *HistoryCache) List(ctx context.Context, sessionID, threadID int64) ([]domain.ChatMessage, error) {
	raw, err := c.client.rdb.LRange(ctx, historyKey(sessionID, threadID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read history: %w", err)
	}

	messages := make([]domain.ChatMessage, 0, len(raw))
	for _, item := range raw {
		var e historyEntry
		if err := json.Unmarshal([]byte(item), &e); err != nil {
			continue // skip corrupt entries
		}
		messages = append(messages, domain.ChatMessage{
			ThreadID: threadID,
			Role:     domain.MessageRole(e.Role),
			Content:  e.Content,
		})
	}
	return messages, nil
}

// Invalidate drops the cached history for a session/thread.
func (c *HistoryCache) Invalidate(ctx context.Context, sessionID, threadID int64) error {
	return c.client.rdb.Del(ctx, historyKey(sessionID, threadID)).Err()
}
