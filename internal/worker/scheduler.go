package worker

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"

	"github.com/fuelcast/fuelcast/internal/logging"
	"github.com/fuelcast/fuelcast/internal/models"
	"github.com/fuelcast/fuelcast/internal/queue"
	"github.com/fuelcast/fuelcast/internal/utils"
)

// Scheduler enqueues a retrain job for each configured fuel type on a cron schedule
type Scheduler struct {
	cron      *cron.Cron
	jobs      *queue.JobPublisher
	fuelTypes []models.FuelType
	logger    *logging.Logger
}

// NewScheduler registers the retraining task on schedule, a standard 5-field cron
// expression or a descriptor such as @daily.
func NewScheduler(logger *logging.Logger, jobs *queue.JobPublisher, schedule string, fuelTypes []models.FuelType) (*Scheduler, error) {
	if len(fuelTypes) == 0 {
		return nil, fmt.Errorf("no fuel types to schedule")
	}
	if logger == nil {
		logger = logging.Global()
	}

	s := &Scheduler{
		cron:      cron.New(),
		jobs:      jobs,
		fuelTypes: fuelTypes,
		logger:    logger,
	}
	if _, err := s.cron.AddFunc(schedule, s.RunNow); err != nil {
		return nil, fmt.Errorf("register retrain task: %w", err)
	}
	return s, nil
}

// Start starts the cron scheduler
func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.Info("Retrain scheduler started", "fuel_types", len(s.fuelTypes))
}

// Stop stops the scheduler and waits for a running task
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	s.logger.Info("Retrain scheduler stopped")
}

// RunNow enqueues the retrain jobs immediately
func (s *Scheduler) RunNow() {
	ctx, cancel := context.WithTimeout(context.Background(), utils.PublishTimeout)
	defer cancel()

	jobs, err := s.jobs.EnqueueAll(ctx, s.fuelTypes, true, queue.SourceScheduler)
	if err != nil {
		s.logger.Error("Failed to enqueue retrain jobs", "enqueued", len(jobs), "error", err)
		return
	}
	s.logger.Info("Retrain jobs enqueued", "count", len(jobs), "subject", s.jobs.Subject())
}
