package service

import (
	"context"

	"github.com/regulynx/compliance-chat/internal/domain"
)

const defaultUpdatesLimit = 50

// UpdatesService exposes monthly regulatory updates to the API and to the
// chat flow's daily-updates payload builder.
type UpdatesService struct {
	repo domain.MonthlyUpdateRepository
}

// NewUpdatesService creates a new updates service
func NewUpdatesService(repo domain.MonthlyUpdateRepository) *UpdatesService {
	return &UpdatesService{repo: repo}
}

// List returns updates matching the filter plus the unpaginated total.
func (s *UpdatesService) List(ctx context.Context, filter domain.MonthlyUpdateFilter) ([]domain.MonthlyUpdate, int, error) {
	if filter.Limit <= 0 {
		filter.Limit = defaultUpdatesLimit
	}
	return s.repo.List(ctx, filter)
}

// Recent returns the newest updates by update date.
func (s *UpdatesService) Recent(ctx context.Context, limit int) ([]domain.MonthlyUpdate, error) {
	return s.repo.Recent(ctx, limit)
}

// RecentGrouped implements bot.UpdatesSource: the newest updates bucketed by
// category, preserving newest-first order within each bucket.
func (s *UpdatesService) RecentGrouped(ctx context.Context, limit int) (map[string][]domain.MonthlyUpdate, error) {
	updates, err := s.repo.Recent(ctx, limit)
	if err != nil {
		return nil, err
	}

	grouped := make(map[string][]domain.MonthlyUpdate)
	for _, u := range updates {
		category := u.Category
		if category == "" {
			category = "General"
		}
		grouped[category] = append(grouped[category], u)
	}
	return grouped, nil
}
