package media

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/feastbook/feastbook-backend/pkg/config"
	"github.com/feastbook/feastbook-backend/pkg/enums"
	pkgerrors "github.com/feastbook/feastbook-backend/pkg/errors"
	"github.com/feastbook/feastbook-backend/pkg/logger"
	"github.com/feastbook/feastbook-backend/pkg/metrics"
	"github.com/feastbook/feastbook-backend/pkg/storage/localfs"
)

// sqlite cannot evaluate the gen_random_uuid() defaults the real schema
// carries, so the test schema is written out by hand.
var testSchema = []string{
	`CREATE TABLE post_media (
		id TEXT PRIMARY KEY,
		post_id TEXT NOT NULL,
		filename TEXT NOT NULL UNIQUE,
		category TEXT NOT NULL,
		content_hash TEXT NOT NULL,
		created_at DATETIME,
		UNIQUE (post_id, content_hash)
	)`,
	`CREATE TABLE recipe_media (
		id TEXT PRIMARY KEY,
		recipe_id TEXT NOT NULL,
		filename TEXT NOT NULL UNIQUE,
		category TEXT NOT NULL,
		content_hash TEXT NOT NULL,
		sequence_number INTEGER NOT NULL,
		created_at DATETIME,
		UNIQUE (recipe_id, content_hash)
	)`,
	`CREATE TABLE rating_media (
		id TEXT PRIMARY KEY,
		rating_id TEXT NOT NULL,
		filename TEXT NOT NULL UNIQUE,
		category TEXT NOT NULL,
		content_hash TEXT NOT NULL,
		created_at DATETIME,
		UNIQUE (rating_id, content_hash)
	)`,
	`CREATE TABLE media_slots (
		id TEXT PRIMARY KEY,
		parent_id TEXT NOT NULL,
		slot_type TEXT NOT NULL,
		filename TEXT NOT NULL UNIQUE,
		content_hash TEXT NOT NULL,
		created_at DATETIME,
		updated_at DATETIME,
		UNIQUE (parent_id, slot_type)
	)`,
}

type testEngine struct {
	conn     *gorm.DB
	store    *localfs.Client
	registry *Registry
	syncer   *Syncer
	contexts Contexts
	cfg      config.MediaConfig
}

func newTestEngine(t *testing.T) *testEngine {
	t.Helper()

	conn, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := conn.DB()
	require.NoError(t, err)
	// A second pooled connection would see its own empty in-memory database.
	sqlDB.SetMaxOpenConns(1)
	for _, stmt := range testSchema {
		require.NoError(t, conn.Exec(stmt).Error)
	}

	cfg := config.MediaConfig{
		StorageRoot:     t.TempDir(),
		MaxUploadMB:     1,
		MaxBatchFiles:   4,
		ReconcilerGrace: time.Hour,
	}
	contexts := NewContexts(cfg)
	store := localfs.NewClient()
	for _, dir := range contexts.AllDirs() {
		require.NoError(t, store.EnsureDir(dir))
	}

	logg := logger.New(logger.Options{ServiceName: "test", Level: zerolog.Disabled, Output: io.Discard})
	registry := NewRegistry()
	syncer := NewSyncer(store, registry, contexts, cfg, logg, metrics.NewMediaMetrics(nil))

	return &testEngine{
		conn:     conn,
		store:    store,
		registry: registry,
		syncer:   syncer,
		contexts: contexts,
		cfg:      cfg,
	}
}

func (e *testEngine) inTx(t *testing.T, fn func(tx *gorm.DB) error) {
	t.Helper()
	require.NoError(t, e.conn.Transaction(fn))
}

func (e *testEngine) fileNames(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		names = append(names, entry.Name())
	}
	return names
}

func (e *testEngine) list(t *testing.T, c Context, parentID uuid.UUID) []Item {
	t.Helper()
	var items []Item
	e.inTx(t, func(tx *gorm.DB) error {
		var err error
		items, err = e.registry.List(context.Background(), tx, c, parentID)
		return err
	})
	return items
}

func TestAttachPersistsFilesAndRows(t *testing.T) {
	e := newTestEngine(t)
	postID := uuid.New()
	uploads := []Upload{pngUpload("first.png", "one"), pngUpload("second.png", "two")}

	var res AttachResult
	e.inTx(t, func(tx *gorm.DB) error {
		var err error
		res, err = e.syncer.Attach(context.Background(), tx, e.contexts.Post, postID, uploads)
		return err
	})

	assert.Equal(t, 2, res.Attached)
	assert.Equal(t, 0, res.Skipped)
	require.Len(t, res.Hashes, 2)

	items := e.list(t, e.contexts.Post, postID)
	require.Len(t, items, 2)
	for _, item := range items {
		assert.Equal(t, postID, item.ParentID)
		assert.Equal(t, enums.MediaCategoryImage, item.Category)
		_, ext, err := parseStoredFilename(item.Filename)
		require.NoError(t, err)
		assert.Equal(t, ".png", ext)
	}

	dir := e.contexts.Post.Dirs[enums.MediaCategoryImage]
	assert.Len(t, e.fileNames(t, dir), 2)

	file, err := e.store.Open(dir, items[0].Filename)
	require.NoError(t, err)
	defer file.Close()
	data, err := io.ReadAll(file)
	require.NoError(t, err)
	assert.Equal(t, Fingerprint(data), items[0].ContentHash)
}

func TestAttachSkipsContentTheParentOwns(t *testing.T) {
	e := newTestEngine(t)
	postID := uuid.New()

	e.inTx(t, func(tx *gorm.DB) error {
		_, err := e.syncer.Attach(context.Background(), tx, e.contexts.Post, postID, []Upload{pngUpload("a.png", "same")})
		return err
	})

	// Same bytes under a different original name in a later request.
	var res AttachResult
	e.inTx(t, func(tx *gorm.DB) error {
		var err error
		res, err = e.syncer.Attach(context.Background(), tx, e.contexts.Post, postID, []Upload{pngUpload("b.png", "same")})
		return err
	})

	assert.Equal(t, 0, res.Attached)
	assert.Equal(t, 1, res.Skipped)
	assert.Len(t, e.list(t, e.contexts.Post, postID), 1)
	assert.Len(t, e.fileNames(t, e.contexts.Post.Dirs[enums.MediaCategoryImage]), 1)

	// A different parent may own the same content.
	otherPost := uuid.New()
	e.inTx(t, func(tx *gorm.DB) error {
		var err error
		res, err = e.syncer.Attach(context.Background(), tx, e.contexts.Post, otherPost, []Upload{pngUpload("c.png", "same")})
		return err
	})
	assert.Equal(t, 1, res.Attached)
}

func TestAttachDeduplicatesWithinOneBatch(t *testing.T) {
	e := newTestEngine(t)
	postID := uuid.New()
	uploads := []Upload{pngUpload("a.png", "dup"), pngUpload("b.png", "dup")}

	var res AttachResult
	e.inTx(t, func(tx *gorm.DB) error {
		var err error
		res, err = e.syncer.Attach(context.Background(), tx, e.contexts.Post, postID, uploads)
		return err
	})

	assert.Equal(t, 1, res.Attached)
	assert.Equal(t, 1, res.Skipped)
	assert.Len(t, e.list(t, e.contexts.Post, postID), 1)
}

func TestAttachRejectsWholeBatchOnOneBadFile(t *testing.T) {
	e := newTestEngine(t)
	postID := uuid.New()
	uploads := []Upload{
		pngUpload("good.png", "fine"),
		{Filename: "menu.pdf", ContentType: "application/pdf", Data: []byte("%PDF")},
	}

	err := e.conn.Transaction(func(tx *gorm.DB) error {
		_, err := e.syncer.Attach(context.Background(), tx, e.contexts.Post, postID, uploads)
		return err
	})

	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
	details, ok := pkgerrors.As(err).Details().(map[string]any)
	require.True(t, ok)
	assert.Equal(t, 1, details["index"])

	assert.Empty(t, e.list(t, e.contexts.Post, postID))
	assert.Empty(t, e.fileNames(t, e.contexts.Post.Dirs[enums.MediaCategoryImage]))
}

func TestAttachEnforcesBatchAndSizeLimits(t *testing.T) {
	e := newTestEngine(t)
	postID := uuid.New()

	tooMany := make([]Upload, e.cfg.MaxBatchFiles+1)
	for i := range tooMany {
		tooMany[i] = pngUpload("f.png", string(rune('a'+i)))
	}
	err := e.conn.Transaction(func(tx *gorm.DB) error {
		_, err := e.syncer.Attach(context.Background(), tx, e.contexts.Post, postID, tooMany)
		return err
	})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	huge := pngUpload("huge.png", "")
	huge.Data = append(huge.Data, bytes.Repeat([]byte{0xAB}, int(e.cfg.MaxUploadBytes())+1)...)
	err = e.conn.Transaction(func(tx *gorm.DB) error {
		_, err := e.syncer.Attach(context.Background(), tx, e.contexts.Post, postID, []Upload{huge})
		return err
	})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestAttachRejectsEmptyBatch(t *testing.T) {
	e := newTestEngine(t)
	postID := uuid.New()

	err := e.conn.Transaction(func(tx *gorm.DB) error {
		_, err := e.syncer.Attach(context.Background(), tx, e.contexts.Post, postID, nil)
		return err
	})
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
	assert.Empty(t, e.fileNames(t, e.contexts.Post.Dirs[enums.MediaCategoryImage]))
}

func TestReplaceSetWithEmptyBatchLeavesMediaIntact(t *testing.T) {
	e := newTestEngine(t)
	postID := uuid.New()

	e.inTx(t, func(tx *gorm.DB) error {
		_, err := e.syncer.Attach(context.Background(), tx, e.contexts.Post, postID, []Upload{pngUpload("a.png", "precious")})
		return err
	})

	// A PUT whose files went missing must not be read as "keep nothing".
	err := e.conn.Transaction(func(tx *gorm.DB) error {
		_, err := e.syncer.ReplaceSet(context.Background(), tx, e.contexts.Post, postID, nil)
		return err
	})
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	items := e.list(t, e.contexts.Post, postID)
	require.Len(t, items, 1)
	assert.Equal(t, Fingerprint(pngUpload("", "precious").Data), items[0].ContentHash)
	assert.Len(t, e.fileNames(t, e.contexts.Post.Dirs[enums.MediaCategoryImage]), 1)
}

func TestInsertReportsConstraintRaceAsConflict(t *testing.T) {
	e := newTestEngine(t)
	postID := uuid.New()
	hash := Fingerprint([]byte("raced content"))

	// Two requests can pass the Exists check in their own transactions; the
	// unique (parent, hash) index catches the loser on insert.
	err := e.conn.Transaction(func(tx *gorm.DB) error {
		for _, name := range []string{"a.png", "b.png"} {
			err := e.registry.Insert(context.Background(), tx, e.contexts.Post, Item{
				ParentID:    postID,
				Filename:    newStoredFilename(name),
				Category:    enums.MediaCategoryImage,
				ContentHash: hash,
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeConflict))
}

func TestRecipeStepsKeepBatchOrder(t *testing.T) {
	e := newTestEngine(t)
	recipeID := uuid.New()

	e.inTx(t, func(tx *gorm.DB) error {
		_, err := e.syncer.Attach(context.Background(), tx, e.contexts.RecipeStep, recipeID, []Upload{
			pngUpload("step1.png", "chop"),
			pngUpload("step2.png", "simmer"),
		})
		return err
	})

	items := e.list(t, e.contexts.RecipeStep, recipeID)
	require.Len(t, items, 2)
	assert.Equal(t, 1, items[0].SequenceNumber)
	assert.Equal(t, 2, items[1].SequenceNumber)
	assert.Equal(t, Fingerprint(pngUpload("", "chop").Data), items[0].ContentHash)

	// Appending a batch that repeats step one keeps later steps after the
	// existing ones; the duplicate still consumes its batch position.
	e.inTx(t, func(tx *gorm.DB) error {
		_, err := e.syncer.Attach(context.Background(), tx, e.contexts.RecipeStep, recipeID, []Upload{
			pngUpload("step1.png", "chop"),
			pngUpload("step3.png", "serve"),
		})
		return err
	})

	items = e.list(t, e.contexts.RecipeStep, recipeID)
	require.Len(t, items, 3)
	assert.Equal(t, Fingerprint(pngUpload("", "serve").Data), items[2].ContentHash)
	assert.Greater(t, items[2].SequenceNumber, items[1].SequenceNumber)
}

func TestReplaceSetMakesTheSetEqualToTheBatch(t *testing.T) {
	e := newTestEngine(t)
	postID := uuid.New()

	e.inTx(t, func(tx *gorm.DB) error {
		_, err := e.syncer.Attach(context.Background(), tx, e.contexts.Post, postID, []Upload{
			pngUpload("a.png", "keep me"),
			pngUpload("b.png", "drop me"),
		})
		return err
	})
	before := e.list(t, e.contexts.Post, postID)
	require.Len(t, before, 2)
	keptHash := Fingerprint(pngUpload("", "keep me").Data)
	var keptFilename string
	for _, item := range before {
		if item.ContentHash == keptHash {
			keptFilename = item.Filename
		}
	}
	require.NotEmpty(t, keptFilename)

	var res ReplaceResult
	e.inTx(t, func(tx *gorm.DB) error {
		var err error
		res, err = e.syncer.ReplaceSet(context.Background(), tx, e.contexts.Post, postID, []Upload{
			pngUpload("a-renamed.png", "keep me"),
			pngUpload("c.png", "new one"),
		})
		return err
	})

	assert.Equal(t, 1, res.Attached)
	assert.Equal(t, 1, res.Skipped)
	require.Len(t, res.Removed, 1)
	assert.Equal(t, Fingerprint(pngUpload("", "drop me").Data), res.Removed[0].ContentHash)

	after := e.list(t, e.contexts.Post, postID)
	require.Len(t, after, 2)
	hashes := map[string]string{}
	for _, item := range after {
		hashes[item.ContentHash] = item.Filename
	}
	// The retained row keeps its stored filename; its file was never rewritten.
	assert.Equal(t, keptFilename, hashes[keptHash])

	require.NoError(t, e.syncer.Unlink(context.Background(), e.contexts.Post, res.Removed))
	names := e.fileNames(t, e.contexts.Post.Dirs[enums.MediaCategoryImage])
	assert.Len(t, names, 2)
	assert.NotContains(t, names, res.Removed[0].Filename)
}

func TestReplaceSetRollbackLeavesRowsUntouched(t *testing.T) {
	e := newTestEngine(t)
	postID := uuid.New()

	e.inTx(t, func(tx *gorm.DB) error {
		_, err := e.syncer.Attach(context.Background(), tx, e.contexts.Post, postID, []Upload{pngUpload("a.png", "original")})
		return err
	})

	boom := errors.New("business rule failed")
	err := e.conn.Transaction(func(tx *gorm.DB) error {
		if _, err := e.syncer.ReplaceSet(context.Background(), tx, e.contexts.Post, postID, []Upload{pngUpload("b.png", "replacement")}); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	items := e.list(t, e.contexts.Post, postID)
	require.Len(t, items, 1)
	assert.Equal(t, Fingerprint(pngUpload("", "original").Data), items[0].ContentHash)
	// The replacement's file was written before the rollback; it stays on
	// disk as an orphan until the sweep reclaims it.
	assert.Len(t, e.fileNames(t, e.contexts.Post.Dirs[enums.MediaCategoryImage]), 2)
}

func TestRemoveByCategoryAndAll(t *testing.T) {
	e := newTestEngine(t)
	ratingID := uuid.New()

	e.inTx(t, func(tx *gorm.DB) error {
		_, err := e.syncer.Attach(context.Background(), tx, e.contexts.Rating, ratingID, []Upload{
			pngUpload("photo.png", "crispy"),
			{Filename: "clip.mp4", ContentType: "video/mp4", Data: []byte("clip bytes")},
		})
		return err
	})

	video := enums.MediaCategoryVideo
	var removed []Item
	e.inTx(t, func(tx *gorm.DB) error {
		var err error
		removed, err = e.syncer.Remove(context.Background(), tx, e.contexts.Rating, ratingID, &video)
		return err
	})
	require.Len(t, removed, 1)
	assert.Equal(t, enums.MediaCategoryVideo, removed[0].Category)
	require.NoError(t, e.syncer.Unlink(context.Background(), e.contexts.Rating, removed))
	assert.Empty(t, e.fileNames(t, e.contexts.Rating.Dirs[enums.MediaCategoryVideo]))

	items := e.list(t, e.contexts.Rating, ratingID)
	require.Len(t, items, 1)
	assert.Equal(t, enums.MediaCategoryImage, items[0].Category)

	e.inTx(t, func(tx *gorm.DB) error {
		var err error
		removed, err = e.syncer.Remove(context.Background(), tx, e.contexts.Rating, ratingID, nil)
		return err
	})
	require.Len(t, removed, 1)
	assert.Empty(t, e.list(t, e.contexts.Rating, ratingID))

	// Removing from an empty parent is a no-op, not an error.
	e.inTx(t, func(tx *gorm.DB) error {
		var err error
		removed, err = e.syncer.Remove(context.Background(), tx, e.contexts.Rating, ratingID, nil)
		return err
	})
	assert.Empty(t, removed)
}

func TestUpsertSlotLifecycle(t *testing.T) {
	e := newTestEngine(t)
	userID := uuid.New()
	avatar := e.contexts.Avatar

	var first SlotResult
	e.inTx(t, func(tx *gorm.DB) error {
		var err error
		first, err = e.syncer.UpsertSlot(context.Background(), tx, avatar, userID, pngUpload("me.png", "face v1"))
		return err
	})
	assert.Empty(t, first.Previous)
	assert.False(t, first.Unchanged)
	assert.Contains(t, e.fileNames(t, avatar.Dir), first.Filename)

	// Re-uploading identical bytes touches nothing.
	var same SlotResult
	e.inTx(t, func(tx *gorm.DB) error {
		var err error
		same, err = e.syncer.UpsertSlot(context.Background(), tx, avatar, userID, pngUpload("me-again.png", "face v1"))
		return err
	})
	assert.True(t, same.Unchanged)
	assert.Equal(t, first.Filename, same.Filename)
	assert.Len(t, e.fileNames(t, avatar.Dir), 1)

	// New content displaces the slot; the old file survives until the caller
	// unlinks it after commit.
	var second SlotResult
	e.inTx(t, func(tx *gorm.DB) error {
		var err error
		second, err = e.syncer.UpsertSlot(context.Background(), tx, avatar, userID, pngUpload("me.png", "face v2"))
		return err
	})
	assert.Equal(t, first.Filename, second.Previous)
	assert.Len(t, e.fileNames(t, avatar.Dir), 2)

	require.NoError(t, e.syncer.UnlinkSlot(context.Background(), avatar, second.Previous))
	names := e.fileNames(t, avatar.Dir)
	require.Len(t, names, 1)
	assert.Equal(t, second.Filename, names[0])

	// The slot row reflects the latest content.
	e.inTx(t, func(tx *gorm.DB) error {
		slot, err := e.registry.GetSlot(context.Background(), tx, userID, avatar.SlotType)
		require.NoError(t, err)
		require.NotNil(t, slot)
		assert.Equal(t, second.Filename, slot.Filename)
		assert.Equal(t, Fingerprint(pngUpload("", "face v2").Data), slot.ContentHash)
		return nil
	})
}

func TestUpsertSlotRejectsVideo(t *testing.T) {
	e := newTestEngine(t)
	userID := uuid.New()

	err := e.conn.Transaction(func(tx *gorm.DB) error {
		_, err := e.syncer.UpsertSlot(context.Background(), tx, e.contexts.Avatar, userID, Upload{
			Filename:    "clip.mp4",
			ContentType: "video/mp4",
			Data:        []byte("clip"),
		})
		return err
	})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestClearSlot(t *testing.T) {
	e := newTestEngine(t)
	userID := uuid.New()
	background := e.contexts.Background

	var res SlotResult
	e.inTx(t, func(tx *gorm.DB) error {
		var err error
		res, err = e.syncer.UpsertSlot(context.Background(), tx, background, userID, pngUpload("bg.png", "sunset"))
		return err
	})

	var cleared string
	e.inTx(t, func(tx *gorm.DB) error {
		var err error
		cleared, err = e.syncer.ClearSlot(context.Background(), tx, background, userID)
		return err
	})
	assert.Equal(t, res.Filename, cleared)
	require.NoError(t, e.syncer.UnlinkSlot(context.Background(), background, cleared))
	assert.Empty(t, e.fileNames(t, background.Dir))

	e.inTx(t, func(tx *gorm.DB) error {
		var err error
		cleared, err = e.syncer.ClearSlot(context.Background(), tx, background, userID)
		return err
	})
	assert.Empty(t, cleared)
}

func TestUnlinkReportsFailuresWithoutStopping(t *testing.T) {
	e := newTestEngine(t)
	postID := uuid.New()

	e.inTx(t, func(tx *gorm.DB) error {
		_, err := e.syncer.Attach(context.Background(), tx, e.contexts.Post, postID, []Upload{
			pngUpload("a.png", "one"),
			pngUpload("b.png", "two"),
		})
		return err
	})
	items := e.list(t, e.contexts.Post, postID)
	require.Len(t, items, 2)

	// Delete one file out from under the unlink; the other must still go.
	require.NoError(t, os.Remove(filepath.Join(e.contexts.Post.Dirs[enums.MediaCategoryImage], items[0].Filename)))

	err := e.syncer.Unlink(context.Background(), e.contexts.Post, items)
	assert.NoError(t, err) // a missing file is not a failure
	assert.Empty(t, e.fileNames(t, e.contexts.Post.Dirs[enums.MediaCategoryImage]))
}
