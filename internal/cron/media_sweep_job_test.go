package cron

import (
	"context"
	"errors"
	"testing"

	"github.com/feastbook/feastbook-backend/internal/media"
	"github.com/feastbook/feastbook-backend/pkg/logger"
)

type fakeSweeper struct {
	report media.SweepReport
	err    error
	runs   int
}

func (f *fakeSweeper) Run(context.Context) (media.SweepReport, error) {
	f.runs++
	return f.report, f.err
}

func TestMediaSweepJobRunsTheSweeper(t *testing.T) {
	sw := &fakeSweeper{report: media.SweepReport{Scanned: 10, Swept: 3}}
	job, err := NewMediaSweepJob(MediaSweepJobParams{
		Logger:  logger.New(logger.Options{ServiceName: "test"}),
		Sweeper: sw,
	})
	if err != nil {
		t.Fatalf("NewMediaSweepJob: %v", err)
	}

	if job.Name() != "orphan-media-sweep" {
		t.Fatalf("unexpected job name %q", job.Name())
	}
	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if sw.runs != 1 {
		t.Fatalf("expected one sweep, got %d", sw.runs)
	}
}

func TestMediaSweepJobPropagatesErrors(t *testing.T) {
	sw := &fakeSweeper{err: errors.New("storage offline")}
	job, err := NewMediaSweepJob(MediaSweepJobParams{
		Logger:  logger.New(logger.Options{ServiceName: "test"}),
		Sweeper: sw,
	})
	if err != nil {
		t.Fatalf("NewMediaSweepJob: %v", err)
	}

	if err := job.Run(context.Background()); err == nil {
		t.Fatal("expected error")
	}
}
