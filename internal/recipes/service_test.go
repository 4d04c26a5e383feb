package recipes

import (
	"context"
	"io"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/feastbook/feastbook-backend/internal/media"
	"github.com/feastbook/feastbook-backend/pkg/config"
	"github.com/feastbook/feastbook-backend/pkg/db"
	pkgerrors "github.com/feastbook/feastbook-backend/pkg/errors"
	"github.com/feastbook/feastbook-backend/pkg/logger"
	"github.com/feastbook/feastbook-backend/pkg/metrics"
	"github.com/feastbook/feastbook-backend/pkg/storage/localfs"
)

var pngMagic = []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A, 0x00, 0x00}

func pngUpload(name, payload string) media.Upload {
	return media.Upload{
		Filename:    name,
		ContentType: "image/png",
		Data:        append(append([]byte{}, pngMagic...), []byte(payload)...),
	}
}

func newTestService(t *testing.T) (Service, media.Contexts) {
	t.Helper()

	conn, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := conn.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	for _, stmt := range []string{
		`CREATE TABLE recipes (
			id TEXT PRIMARY KEY,
			author_id TEXT NOT NULL,
			title TEXT NOT NULL,
			description TEXT,
			created_at DATETIME,
			updated_at DATETIME
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
	} {
		require.NoError(t, conn.Exec(stmt).Error)
	}

	client := db.NewFromConn(conn)
	cfg := config.MediaConfig{StorageRoot: t.TempDir(), MaxUploadMB: 1, MaxBatchFiles: 6}
	contexts := media.NewContexts(cfg)
	store := localfs.NewClient()
	for _, dir := range contexts.AllDirs() {
		require.NoError(t, store.EnsureDir(dir))
	}

	logg := logger.New(logger.Options{ServiceName: "test", Level: zerolog.Disabled, Output: io.Discard})
	syncer := media.NewSyncer(store, media.NewRegistry(), contexts, cfg, logg, metrics.NewMediaMetrics(nil))

	service, err := NewService(ServiceParams{
		Repo:  NewRepository(client),
		DB:    client,
		Media: syncer,
	})
	require.NoError(t, err)
	return service, contexts
}

func TestCreateKeepsStepOrder(t *testing.T) {
	service, _ := newTestService(t)

	recipe, attach, err := service.Create(context.Background(), uuid.New(), "beef bourguignon", nil, []media.Upload{
		pngUpload("brown-the-beef.png", "step one"),
		pngUpload("add-the-wine.png", "step two"),
	})
	require.NoError(t, err)
	assert.Equal(t, 2, attach.Attached)

	dto, err := service.Get(context.Background(), recipe.ID)
	require.NoError(t, err)
	require.Len(t, dto.Steps, 2)
	assert.Equal(t, 1, dto.Steps[0].SequenceNumber)
	assert.Equal(t, 2, dto.Steps[1].SequenceNumber)
	assert.Empty(t, dto.Thumbnail)
}

func TestAttachStepsAppendsAfterExistingSteps(t *testing.T) {
	service, _ := newTestService(t)

	recipe, _, err := service.Create(context.Background(), uuid.New(), "stock", nil, []media.Upload{
		pngUpload("bones.png", "roast bones"),
	})
	require.NoError(t, err)

	_, err = service.AttachSteps(context.Background(), recipe.ID, []media.Upload{
		pngUpload("simmer.png", "simmer for hours"),
	})
	require.NoError(t, err)

	dto, err := service.Get(context.Background(), recipe.ID)
	require.NoError(t, err)
	require.Len(t, dto.Steps, 2)
	assert.Less(t, dto.Steps[0].SequenceNumber, dto.Steps[1].SequenceNumber)
}

func TestThumbnailLifecycle(t *testing.T) {
	service, contexts := newTestService(t)

	recipe, _, err := service.Create(context.Background(), uuid.New(), "focaccia", nil, nil)
	require.NoError(t, err)

	first, err := service.SetThumbnail(context.Background(), recipe.ID, pngUpload("loaf.png", "golden crust"))
	require.NoError(t, err)
	assert.Empty(t, first.Previous)

	dto, err := service.Get(context.Background(), recipe.ID)
	require.NoError(t, err)
	assert.Equal(t, first.Filename, dto.Thumbnail)

	// Replacing the thumbnail reclaims the prior file.
	second, err := service.SetThumbnail(context.Background(), recipe.ID, pngUpload("loaf.png", "better angle"))
	require.NoError(t, err)
	assert.Equal(t, first.Filename, second.Previous)

	entries, err := os.ReadDir(contexts.RecipeThumbnail.Dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, second.Filename, entries[0].Name())

	cleared, err := service.ClearThumbnail(context.Background(), recipe.ID)
	require.NoError(t, err)
	assert.True(t, cleared)

	cleared, err = service.ClearThumbnail(context.Background(), recipe.ID)
	require.NoError(t, err)
	assert.False(t, cleared)
}

func TestThumbnailRejectsVideo(t *testing.T) {
	service, _ := newTestService(t)

	recipe, _, err := service.Create(context.Background(), uuid.New(), "ragu", nil, nil)
	require.NoError(t, err)

	_, err = service.SetThumbnail(context.Background(), recipe.ID, media.Upload{
		Filename:    "clip.mp4",
		ContentType: "video/mp4",
		Data:        []byte("clip"),
	})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestCreateRequiresTitle(t *testing.T) {
	service, _ := newTestService(t)

	_, _, err := service.Create(context.Background(), uuid.New(), "  ", nil, nil)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}
