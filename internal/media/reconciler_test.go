package media

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/feastbook/feastbook-backend/pkg/enums"
	"github.com/feastbook/feastbook-backend/pkg/logger"
	"github.com/feastbook/feastbook-backend/pkg/metrics"
)

func (e *testEngine) reconciler() *Reconciler {
	logg := logger.New(logger.Options{ServiceName: "test", Level: zerolog.Disabled, Output: io.Discard})
	return NewReconciler(e.conn, e.store, e.registry, e.contexts, e.cfg.ReconcilerGrace, logg, metrics.NewMediaMetrics(nil))
}

func (e *testEngine) age(t *testing.T, dir, name string, by time.Duration) {
	t.Helper()
	past := time.Now().Add(-by)
	require.NoError(t, os.Chtimes(filepath.Join(dir, name), past, past))
}

func TestSweepReclaimsAgedOrphans(t *testing.T) {
	e := newTestEngine(t)
	postID := uuid.New()
	dir := e.contexts.Post.Dirs[enums.MediaCategoryImage]

	// A referenced file, attached normally.
	e.inTx(t, func(tx *gorm.DB) error {
		_, err := e.syncer.Attach(context.Background(), tx, e.contexts.Post, postID, []Upload{pngUpload("kept.png", "kept")})
		return err
	})
	items := e.list(t, e.contexts.Post, postID)
	require.Len(t, items, 1)
	referenced := items[0].Filename

	// An orphan old enough to reclaim: its row rolled back long ago.
	orphan := newStoredFilename("lost.png")
	require.NoError(t, e.store.Write(dir, orphan, []byte("stranded")))

	// A file some operator dropped in by hand; not ours to delete.
	foreign := "notes.txt"
	require.NoError(t, e.store.Write(dir, foreign, []byte("remember to rotate creds")))

	for _, name := range []string{referenced, orphan, foreign} {
		e.age(t, dir, name, 2*time.Hour)
	}

	// An orphan inside the grace window; its transaction may still commit.
	fresh := newStoredFilename("inflight.png")
	require.NoError(t, e.store.Write(dir, fresh, []byte("uploading")))

	report, err := e.reconciler().Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, report.Swept)
	assert.Equal(t, 0, report.Failed)
	assert.GreaterOrEqual(t, report.Scanned, 4)

	names := e.fileNames(t, dir)
	assert.Contains(t, names, referenced)
	assert.Contains(t, names, foreign)
	assert.Contains(t, names, fresh)
	assert.NotContains(t, names, orphan)
}

func TestSweepSparesSlotFiles(t *testing.T) {
	e := newTestEngine(t)
	userID := uuid.New()
	avatar := e.contexts.Avatar

	var res SlotResult
	e.inTx(t, func(tx *gorm.DB) error {
		var err error
		res, err = e.syncer.UpsertSlot(context.Background(), tx, avatar, userID, pngUpload("me.png", "face"))
		return err
	})
	e.age(t, avatar.Dir, res.Filename, 2*time.Hour)

	report, err := e.reconciler().Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 0, report.Swept)
	assert.Contains(t, e.fileNames(t, avatar.Dir), res.Filename)
}

func TestSweepStopsOnCancelledContext(t *testing.T) {
	e := newTestEngine(t)
	dir := e.contexts.Post.Dirs[enums.MediaCategoryImage]
	orphan := newStoredFilename("lost.png")
	require.NoError(t, e.store.Write(dir, orphan, []byte("stranded")))
	e.age(t, dir, orphan, 2*time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := e.reconciler().Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Contains(t, e.fileNames(t, dir), orphan)
}
