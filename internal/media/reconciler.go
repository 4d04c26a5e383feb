package media

import (
	"context"
	"io/fs"
	"time"

	stdErrors "errors"

	"gorm.io/gorm"

	"github.com/feastbook/feastbook-backend/pkg/logger"
	"github.com/feastbook/feastbook-backend/pkg/metrics"
	"github.com/feastbook/feastbook-backend/pkg/storage/localfs"
)

// BlobScanner is the sweep side of the blob store. localfs.Client satisfies it.
type BlobScanner interface {
	List(dir string) ([]localfs.FileInfo, error)
	Remove(dir, name string) error
}

// Reconciler deletes files no registry row references. A rolled-back upload
// strands its file on disk; the sweep reclaims it once the grace period has
// passed. The grace keeps the sweep from racing an upload whose row has not
// committed yet.
type Reconciler struct {
	db       *gorm.DB
	store    BlobScanner
	registry *Registry
	contexts Contexts
	grace    time.Duration
	logg     *logger.Logger
	met      *metrics.MediaMetrics
}

func NewReconciler(db *gorm.DB, store BlobScanner, registry *Registry, contexts Contexts, grace time.Duration, logg *logger.Logger, met *metrics.MediaMetrics) *Reconciler {
	return &Reconciler{
		db:       db,
		store:    store,
		registry: registry,
		contexts: contexts,
		grace:    grace,
		logg:     logg,
		met:      met,
	}
}

// SweepReport summarizes one pass over the storage tree.
type SweepReport struct {
	Scanned int
	Swept   int
	Failed  int
}

// Run walks every storage directory and removes unreferenced files older than
// the grace period. Files whose names do not parse are left alone; they were
// not written by this engine.
func (r *Reconciler) Run(ctx context.Context) (SweepReport, error) {
	var report SweepReport
	cutoff := time.Now().Add(-r.grace)

	for _, dir := range r.contexts.AllDirs() {
		files, err := r.store.List(dir)
		if err != nil {
			if stdErrors.Is(err, fs.ErrNotExist) {
				continue
			}
			return report, err
		}

		for _, file := range files {
			if err := ctx.Err(); err != nil {
				return report, err
			}
			report.Scanned++

			if file.ModTime.After(cutoff) {
				continue
			}
			if _, _, err := parseStoredFilename(file.Name); err != nil {
				r.logg.Warn(r.logg.WithField(ctx, "filename", file.Name), "foreign file in media storage")
				continue
			}

			referenced, err := r.registry.FilenameReferenced(ctx, r.db, file.Name)
			if err != nil {
				return report, err
			}
			if referenced {
				continue
			}

			if err := r.store.Remove(dir, file.Name); err != nil {
				report.Failed++
				r.logg.Error(r.logg.WithField(ctx, "filename", file.Name), "sweep orphan", err)
				continue
			}
			report.Swept++
		}
	}

	r.met.AddOrphansSwept(report.Swept)
	r.logg.Info(r.logg.WithFields(ctx, map[string]any{
		"scanned": report.Scanned,
		"swept":   report.Swept,
		"failed":  report.Failed,
	}), "orphan media sweep complete")
	return report, nil
}
