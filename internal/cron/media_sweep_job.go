package cron

import (
	"context"
	"fmt"

	"github.com/feastbook/feastbook-backend/internal/media"
	"github.com/feastbook/feastbook-backend/pkg/logger"
)

type sweeper interface {
	Run(ctx context.Context) (media.SweepReport, error)
}

// MediaSweepJobParams configure the orphan media sweep job.
type MediaSweepJobParams struct {
	Logger  *logger.Logger
	Sweeper sweeper
}

// NewMediaSweepJob wraps the storage reconciler as a scheduled job.
func NewMediaSweepJob(params MediaSweepJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Sweeper == nil {
		return nil, fmt.Errorf("sweeper required")
	}
	return &mediaSweepJob{logg: params.Logger, sweeper: params.Sweeper}, nil
}

type mediaSweepJob struct {
	logg    *logger.Logger
	sweeper sweeper
}

func (j *mediaSweepJob) Name() string { return "orphan-media-sweep" }

func (j *mediaSweepJob) Run(ctx context.Context) error {
	report, err := j.sweeper.Run(ctx)
	if err != nil {
		return fmt.Errorf("orphan media sweep: %w", err)
	}
	logCtx := j.logg.WithFields(ctx, map[string]any{
		"scanned": report.Scanned,
		"swept":   report.Swept,
		"failed":  report.Failed,
	})
	j.logg.Info(logCtx, "orphan media sweep finished")
	return nil
}
