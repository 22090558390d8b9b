package scheduler

import (
	"context"
	"log/slog"
	"time"

	"github.com/surenab/real-estate-scrapers/internal/domain"
)

// Harvester defines the interface for harvest operations.
type Harvester interface {
	Harvest(ctx context.Context) (*domain.HarvestStats, error)
}

type Scheduler struct {
	harvester  Harvester
	interval   time.Duration
	runTimeout time.Duration
	logger     *slog.Logger
}

func NewScheduler(harvester Harvester, interval, runTimeout time.Duration, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		harvester:  harvester,
		interval:   interval,
		runTimeout: runTimeout,
		logger:     logger,
	}
}

func (s *Scheduler) Start(ctx context.Context) error {
	s.logger.Info("scheduler started", "interval", s.interval)

	s.runHarvest(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("scheduler stopped")
			return ctx.Err()
		case <-ticker.C:
			s.runHarvest(ctx)
		}
	}
}

func (s *Scheduler) runHarvest(ctx context.Context) {
	harvestCtx := ctx
	if s.runTimeout > 0 {
		var cancel context.CancelFunc
		harvestCtx, cancel = context.WithTimeout(ctx, s.runTimeout)
		defer cancel()
	}

	if _, err := s.harvester.Harvest(harvestCtx); err != nil {
		s.logger.Error("harvest failed", "error", err)
	}
}
