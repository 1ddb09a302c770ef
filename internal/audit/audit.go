package audit

import (
	"context"
	"time"

	"github.com/Dan9191/auth-service/internal/repository"
	"github.com/sirupsen/logrus"
)

// StatsSource provides aggregate account counts
type StatsSource interface {
	UserStats(ctx context.Context) (*repository.UserStats, error)
}

// Job logs account status counts on a cron schedule
type Job struct {
	store StatsSource
	log   *logrus.Logger
}

// NewJob initializes an audit job
func NewJob(store StatsSource, log *logrus.Logger) *Job {
	return &Job{store: store, log: log}
}

// Run collects and logs the current account statistics. Implements cron.Job.
func (j *Job) Run() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	stats, err := j.store.UserStats(ctx)
	if err != nil {
		j.log.Errorf("Account audit failed: %v", err)
		return
	}

	j.log.WithFields(logrus.Fields{
		"total":      stats.Total,
		"active":     stats.Active,
		"inactive":   stats.Inactive,
		"superusers": stats.Superusers,
	}).Info("Account audit")
}
