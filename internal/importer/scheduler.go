package importer

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/regulynx/compliance-chat/internal/domain"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
)

// Scheduler runs a family's import job on a fixed interval. Start is
// idempotent; calling it on a running scheduler logs a warning and keeps the
// existing schedule.
type Scheduler struct {
	runner *Runner

	mu   sync.Mutex
	cron *cron.Cron
}

// NewScheduler creates a new import job scheduler
func NewScheduler(runner *Runner) *Scheduler {
	return &Scheduler{runner: runner}
}

// Start begins periodic execution every intervalMinutes minutes.
func (s *Scheduler) Start(intervalMinutes int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cron != nil {
		log.Warn().Str("family", s.runner.Family().Name).Msg("Import scheduler already running")
		return nil
	}
	if intervalMinutes <= 0 {
		return fmt.Errorf("invalid import interval: %d minutes", intervalMinutes)
	}

	c := cron.New()
	spec := fmt.Sprintf("@every %dm", intervalMinutes)
	if _, err := c.AddFunc(spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
		defer cancel()
		s.runner.Run(ctx)
	}); err != nil {
		return fmt.Errorf("failed to schedule import job: %w", err)
	}

	c.Start()
	s.cron = c
	log.Info().Str("family", s.runner.Family().Name).Int("interval_minutes", intervalMinutes).Msg("Import scheduler started")
	return nil
}

// Stop halts scheduling and waits for an in-flight run to finish. Safe to
// call on a scheduler that never started.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cron == nil {
		return
	}
	<-s.cron.Stop().Done()
	s.cron = nil
	log.Info().Str("family", s.runner.Family().Name).Msg("Import scheduler stopped")
}

// TriggerManual runs one import job immediately on the caller's goroutine,
// independent of the schedule.
func (s *Scheduler) TriggerManual(ctx context.Context) *domain.ImportJobStatus {
	return s.runner.Run(ctx)
}
