package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/Dan9191/foodlink-service/internal/models"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

const reportTimeout = 10 * time.Second

// StatsSource provides donation counts
type StatsSource interface {
	Stats(ctx context.Context) (models.DonationStats, error)
}

// StatsReporter periodically logs marketplace donation counts
type StatsReporter struct {
	src  StatsSource
	log  *logrus.Logger
	cron *cron.Cron
}

// NewStatsReporter schedules a report on the given cron spec (e.g. "@hourly")
func NewStatsReporter(src StatsSource, log *logrus.Logger, spec string) (*StatsReporter, error) {
	r := &StatsReporter{
		src:  src,
		log:  log,
		cron: cron.New(),
	}
	if _, err := r.cron.AddFunc(spec, r.Report); err != nil {
		return nil, fmt.Errorf("invalid stats schedule %q: %w", spec, err)
	}
	return r, nil
}

// Start runs the schedule in the background
func (r *StatsReporter) Start() {
	r.cron.Start()
}

// Stop halts the schedule and waits for a running report to finish
func (r *StatsReporter) Stop() {
	<-r.cron.Stop().Done()
}

// Report logs the current counts once
func (r *StatsReporter) Report() {
	ctx, cancel := context.WithTimeout(context.Background(), reportTimeout)
	defer cancel()

	stats, err := r.src.Stats(ctx)
	if err != nil {
		r.log.Errorf("Failed to collect donation stats: %v", err)
		return
	}
	r.log.WithFields(logrus.Fields{
		"total":     stats.TotalDonations,
		"claimed":   stats.ClaimedDonations,
		"unclaimed": stats.UnclaimedDonations,
	}).Info("Donation stats")
}
