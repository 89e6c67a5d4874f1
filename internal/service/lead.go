package service

import (
	"context"
	"fmt"
	"time"

	"github.com/regulynx/compliance-chat/internal/domain"
	"github.com/rs/zerolog/log"
)

// LeadNotifier delivers a notification about a captured lead.
type LeadNotifier interface {
	Enabled() bool
	SendLeadNotification(ctx context.Context, lead *domain.Lead) error
}

// LeadService captures widget leads and notifies the sales inbox.
type LeadService struct {
	repo     domain.LeadRepository
	notifier LeadNotifier
}

// NewLeadService creates a new lead service
func NewLeadService(repo domain.LeadRepository, notifier LeadNotifier) *LeadService {
	return &LeadService{repo: repo, notifier: notifier}
}

// Create persists the lead and fires the notification email in the
// background. Notification failures are logged, never surfaced: the lead is
// already safe in the store.
func (s *LeadService) Create(ctx context.Context, req domain.LeadCreate) (*domain.Lead, error) {
	lead := &domain.Lead{
		Name:    req.Name,
		Email:   req.Email,
		Phone:   req.Phone,
		Company: req.Company,
		Message: req.Message,
		Source:  req.Source,
	}
	if err := s.repo.Create(ctx, lead); err != nil {
		return nil, fmt.Errorf("failed to create lead: %w", err)
	}

	if s.notifier != nil && s.notifier.Enabled() {
		go func(lead domain.Lead) {
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			if err := s.notifier.SendLeadNotification(ctx, &lead); err != nil {
				log.Error().Err(err).Int64("lead_id", lead.ID).Msg("failed to send lead notification")
			}
		}(*lead)
	}

	return lead, nil
}

// List returns captured leads plus the unpaginated total, newest first.
func (s *LeadService) List(ctx context.Context, limit, offset int) ([]domain.Lead, int, error) {
	if limit <= 0 {
		limit = 50
	}
	return s.repo.List(ctx, limit, offset)
}
