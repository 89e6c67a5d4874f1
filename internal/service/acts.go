package service

import (
	"context"
	"fmt"

	"github.com/regulynx/compliance-chat/internal/bot"
	"github.com/regulynx/compliance-chat/internal/domain"
)

const defaultActsLimit = 50

// ActsService exposes regulatory-act queries to the API and to the chat
// flow's side payload builder.
type ActsService struct {
	repo domain.ActRepository
}

// NewActsService creates a new acts service
func NewActsService(repo domain.ActRepository) *ActsService {
	return &ActsService{repo: repo}
}

// List returns acts matching the filter plus the unpaginated total.
func (s *ActsService) List(ctx context.Context, filter domain.ActFilter) ([]domain.Act, int, error) {
	if filter.Limit <= 0 {
		filter.Limit = defaultActsLimit
	}
	return s.repo.List(ctx, filter)
}

// Get returns one act by ID.
func (s *ActsService) Get(ctx context.Context, id int64) (*domain.Act, error) {
	return s.repo.Get(ctx, id)
}

// FilterOptions returns the distinct values available per filter dimension.
func (s *ActsService) FilterOptions(ctx context.Context) (*domain.ActFilterOptions, error) {
	return s.repo.FilterOptions(ctx)
}

// FindApplicable implements bot.ActsSource: it resolves the acts applicable
// to the filters collected during a conversation. Rows whose stored value is
// the "all" or "central" sentinel match any filter value.
func (s *ActsService) FindApplicable(ctx context.Context, state, industry, employeeSize string) (*bot.ActsPayload, error) {
	filter := domain.ActFilter{
		State:                 state,
		Industry:              industry,
		EmployeeApplicability: employeeSize,
		Limit:                 defaultActsLimit,
	}

	acts, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to find applicable acts: %w", err)
	}

	return &bot.ActsPayload{
		Total: total,
		Filters: map[string]any{
			"state":         state,
			"industry":      industry,
			"employee_size": employeeSize,
		},
		Acts: acts,
	}, nil
}
