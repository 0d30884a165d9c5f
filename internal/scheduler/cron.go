package scheduler

import (
	"fmt"
	"time"

	"github.com/amaumene/resolvarr/internal/models"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// Scheduler runs the periodic expiry sweeps. Sessions and cache rows
// are also swept opportunistically at session-creation time; this is
// the backstop for idle periods.
type Scheduler struct {
	cron   *cron.Cron
	db     *models.Database
	logger *logrus.Logger
}

// NewScheduler creates a new scheduler
func NewScheduler(db *models.Database, logger *logrus.Logger) *Scheduler {
	return &Scheduler{
		cron:   cron.New(),
		db:     db,
		logger: logger,
	}
}

// Start starts the scheduler
func (s *Scheduler) Start() error {
	s.logger.Info("Starting scheduler")

	// Every 30 minutes: sweep expired sessions and cache entries
	_, err := s.cron.AddFunc("*/30 * * * *", func() {
		s.runSweep()
	})
	if err != nil {
		return fmt.Errorf("failed to add sweep job: %w", err)
	}

	s.cron.Start()
	return nil
}

// Stop stops the scheduler
func (s *Scheduler) Stop() {
	s.logger.Info("Stopping scheduler")
	s.cron.Stop()
}

// runSweep removes expired sessions and cache rows
func (s *Scheduler) runSweep() {
	now := time.Now()

	sessions, err := s.db.DeleteExpiredSessions(now)
	if err != nil {
		s.logger.WithError(err).Error("Session sweep failed")
	}

	entries, err := s.db.DeleteExpiredCacheEntries(now)
	if err != nil {
		s.logger.WithError(err).Error("Cache sweep failed")
	}

	if sessions > 0 || entries > 0 {
		s.logger.WithFields(logrus.Fields{
			"sessions":      sessions,
			"cache_entries": entries,
		}).Info("Swept expired rows")
	}
}
