/**
 * @description
 * Cron scheduler setup for scheduled jobs.
 */

package app

import (
	"context"
	"log/slog"

	"github.com/robfig/cron/v3"
)

// Scheduler manages the cron jobs.
type Scheduler struct {
	cron   *cron.Cron
	jobs   *Jobs
	logger *slog.Logger
}

// NewScheduler creates a new scheduler instance.
func NewScheduler(jobs *Jobs, logger *slog.Logger) *Scheduler {
	cronLogger := cron.PrintfLogger(slog.NewLogLogger(logger.Handler(), slog.LevelInfo))
	c := cron.New(cron.WithChain(cron.Recover(cronLogger)))

	return &Scheduler{
		cron:   c,
		jobs:   jobs,
		logger: logger,
	}
}

// Start registers the jobs and starts the cron scheduler.
func (s *Scheduler) Start(reminderSchedule string) {
	if _, err := s.cron.AddFunc(reminderSchedule, s.jobs.ProcessRenewalReminders); err != nil {
		s.logger.Error("failed to schedule renewal reminder job", "error", err)
	} else {
		s.logger.Info("scheduled renewal reminder job", "schedule", reminderSchedule)
	}

	s.cron.Start()
}

// Stop gracefully stops the cron scheduler.
func (s *Scheduler) Stop() context.Context {
	return s.cron.Stop()
}
