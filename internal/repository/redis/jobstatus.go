package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/regulynx/compliance-chat/internal/domain"
)

const jobStatusTTL = 24 * time.Hour

// JobStatusStore implements domain.JobStatusStore on Redis. Each import
// family writes under its own key; every run clobbers the previous status.
type JobStatusStore struct {
	client *Client
}

// NewJobStatusStore creates a new job status store
func NewJobStatusStore(client *Client) *JobStatusStore {
	return &JobStatusStore{client: client}
}

func (s *JobStatusStore) Set(ctx context.Context, key string, status *domain.ImportJobStatus) error {
	data, err := json.Marshal(status)
	if err != nil {
		return fmt.Errorf("failed to marshal job status: %w", err)
	}
	if err := s.client.rdb.Set(ctx, key, data, jobStatusTTL).Err(); err != nil {
		return fmt.Errorf("failed to write job status: %w", err)
	}
	return nil
}

// Get returns the stored status, or an idle placeholder when no run has been
// recorded yet.
func (s *JobStatusStore) Get(ctx context.Context, key string) (*domain.ImportJobStatus, error) {
	data, err := s.client.rdb.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return &domain.ImportJobStatus{
				Status:  domain.ImportIdle,
				Message: "No import jobs have been run yet",
			}, nil
		}
		return nil, fmt.Errorf("failed to read job status: %w", err)
	}

	var status domain.ImportJobStatus
	if err := json.Unmarshal(data, &status); err != nil {
		return nil, fmt.Errorf("failed to unmarshal job status: %w", err)
	}
	return &status, nil
}
