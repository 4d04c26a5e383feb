package media

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/feastbook/feastbook-backend/pkg/config"
	"github.com/feastbook/feastbook-backend/pkg/db/models"
	"github.com/feastbook/feastbook-backend/pkg/enums"
	pkgerrors "github.com/feastbook/feastbook-backend/pkg/errors"
	"github.com/feastbook/feastbook-backend/pkg/logger"
	"github.com/feastbook/feastbook-backend/pkg/metrics"
)

// Store is the blob-side of the engine. localfs.Client satisfies it.
type Store interface {
	Write(dir, name string, data []byte) error
	Remove(dir, name string) error
}

// Syncer reconciles a parent's media set against incoming uploads. All row
// mutations run on the transaction the caller passes in; file writes happen
// before their rows so a rollback can only strand files, never rows. Stranded
// files are the reconciler's problem, dangling rows would be everyone's.
type Syncer struct {
	store    Store
	registry *Registry
	contexts Contexts
	limits   config.MediaConfig
	logg     *logger.Logger
	met      *metrics.MediaMetrics
}

func NewSyncer(store Store, registry *Registry, contexts Contexts, cfg config.MediaConfig, logg *logger.Logger, met *metrics.MediaMetrics) *Syncer {
	return &Syncer{
		store:    store,
		registry: registry,
		contexts: contexts,
		limits:   cfg,
		logg:     logg,
		met:      met,
	}
}

// Contexts exposes the resolved parent adapters.
func (s *Syncer) Contexts() Contexts {
	return s.contexts
}

// AttachResult reports what a batch did. Hashes covers every upload in the
// batch, skipped duplicates included, in batch order.
type AttachResult struct {
	Attached int
	Skipped  int
	Hashes   []string
}

// ReplaceResult extends an attach with the rows the replacement displaced.
// The caller unlinks Removed after its transaction commits.
type ReplaceResult struct {
	AttachResult
	Removed []Item
}

// SlotResult reports a slot upsert. Previous is the displaced stored filename,
// empty on first upload; the caller unlinks it after commit. Unchanged means
// the incoming content matched the slot and nothing was written.
type SlotResult struct {
	Filename  string
	Previous  string
	Unchanged bool
}

type stagedUpload struct {
	upload   Upload
	category enums.MediaCategory
	hash     string
}

// stage validates and classifies the whole batch before any byte hits disk,
// so one bad item rejects the batch with nothing to clean up. An empty batch
// is rejected here too: letting it through would make ReplaceSet interpret a
// request with no files as "keep nothing".
func (s *Syncer) stage(uploads []Upload, accepted []enums.MediaCategory) ([]stagedUpload, error) {
	if len(uploads) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "media batch is empty")
	}
	if len(uploads) > s.limits.MaxBatchFiles {
		return nil, pkgerrors.New(pkgerrors.CodeValidation,
			fmt.Sprintf("batch of %d files exceeds the limit of %d", len(uploads), s.limits.MaxBatchFiles))
	}

	maxBytes := s.limits.MaxUploadBytes()
	staged := make([]stagedUpload, 0, len(uploads))
	for i, up := range uploads {
		if int64(len(up.Data)) > maxBytes {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "file exceeds the upload size limit").
				WithDetails(map[string]any{"index": i, "filename": up.Filename})
		}
		category, err := classifyUpload(up, accepted)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "file rejected").
				WithDetails(map[string]any{"index": i, "filename": up.Filename})
		}
		staged = append(staged, stagedUpload{
			upload:   up,
			category: category,
			hash:     Fingerprint(up.Data),
		})
	}
	return staged, nil
}

// Attach adds the batch to the parent, skipping content the parent already
// owns. For ordered contexts every upload consumes a sequence number, skipped
// duplicates included, so batch position survives partial dedup.
func (s *Syncer) Attach(ctx context.Context, tx *gorm.DB, c Context, parentID uuid.UUID, uploads []Upload) (AttachResult, error) {
	ctx = s.logg.WithUploadContext(ctx, c.Name.String())

	staged, err := s.stage(uploads, c.Categories)
	if err != nil {
		return AttachResult{}, err
	}

	nextSeq := 0
	if c.Ordered {
		existing, err := s.registry.List(ctx, tx, c, parentID)
		if err != nil {
			return AttachResult{}, err
		}
		for _, item := range existing {
			if item.SequenceNumber > nextSeq {
				nextSeq = item.SequenceNumber
			}
		}
	}

	res := AttachResult{Hashes: make([]string, 0, len(staged))}
	for _, st := range staged {
		res.Hashes = append(res.Hashes, st.hash)
		nextSeq++

		owned, err := s.registry.Exists(ctx, tx, c, parentID, st.hash)
		if err != nil {
			return AttachResult{}, err
		}
		if owned {
			res.Skipped++
			continue
		}

		name := newStoredFilename(st.upload.Filename)
		if err := s.store.Write(c.Dirs[st.category], name, st.upload.Data); err != nil {
			return AttachResult{}, pkgerrors.Wrap(pkgerrors.CodeStorage, err, "write media file")
		}
		err = s.registry.Insert(ctx, tx, c, Item{
			ParentID:       parentID,
			Filename:       name,
			Category:       st.category,
			ContentHash:    st.hash,
			SequenceNumber: nextSeq,
		})
		if err != nil {
			return AttachResult{}, err
		}
		res.Attached++
	}

	s.met.AddAttached(c.Name.String(), res.Attached)
	s.met.AddSkipped(c.Name.String(), res.Skipped)
	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"parent_id": parentID.String(),
		"attached":  res.Attached,
		"skipped":   res.Skipped,
	}), "media batch attached")
	return res, nil
}

// List returns the parent's media rows in display order. Works on a plain
// connection as well as a transaction.
func (s *Syncer) List(ctx context.Context, tx *gorm.DB, c Context, parentID uuid.UUID) ([]Item, error) {
	return s.registry.List(ctx, tx, c, parentID)
}

// ReplaceSet makes the parent's media set equal to the batch: uploads are
// attached with the usual dedup, then every row whose hash is absent from the
// batch is deleted. Rows the batch retains are untouched, files included. The
// caller unlinks Removed after commit.
func (s *Syncer) ReplaceSet(ctx context.Context, tx *gorm.DB, c Context, parentID uuid.UUID, uploads []Upload) (ReplaceResult, error) {
	attach, err := s.Attach(ctx, tx, c, parentID, uploads)
	if err != nil {
		return ReplaceResult{}, err
	}

	removed, err := s.registry.DeleteHashesNotIn(ctx, tx, c, parentID, attach.Hashes)
	if err != nil {
		return ReplaceResult{}, err
	}

	s.met.AddRemoved(c.Name.String(), len(removed))
	return ReplaceResult{AttachResult: attach, Removed: removed}, nil
}

// Remove deletes the parent's media rows, all of them or one category,
// returning the rows for post-commit unlink.
func (s *Syncer) Remove(ctx context.Context, tx *gorm.DB, c Context, parentID uuid.UUID, category *enums.MediaCategory) ([]Item, error) {
	removed, err := s.registry.DeleteByCategory(ctx, tx, c, parentID, category)
	if err != nil {
		return nil, err
	}
	s.met.AddRemoved(c.Name.String(), len(removed))
	return removed, nil
}

// Slot returns the current slot row, nil when the slot is empty.
func (s *Syncer) Slot(ctx context.Context, tx *gorm.DB, sc SlotContext, parentID uuid.UUID) (*models.MediaSlot, error) {
	return s.registry.GetSlot(ctx, tx, parentID, sc.SlotType)
}

// UpsertSlot replaces a single-file slot. Identical content short-circuits
// without touching disk. The prior file stays on disk until the caller's
// transaction commits; only then is Previous safe to unlink.
func (s *Syncer) UpsertSlot(ctx context.Context, tx *gorm.DB, sc SlotContext, parentID uuid.UUID, up Upload) (SlotResult, error) {
	ctx = s.logg.WithUploadContext(ctx, sc.Name.String())

	staged, err := s.stage([]Upload{up}, []enums.MediaCategory{enums.MediaCategoryImage})
	if err != nil {
		return SlotResult{}, err
	}
	st := staged[0]

	current, err := s.registry.GetSlot(ctx, tx, parentID, sc.SlotType)
	if err != nil {
		return SlotResult{}, err
	}
	if current != nil && current.ContentHash == st.hash {
		s.met.AddSkipped(sc.Name.String(), 1)
		return SlotResult{Filename: current.Filename, Unchanged: true}, nil
	}

	name := newStoredFilename(st.upload.Filename)
	if err := s.store.Write(sc.Dir, name, st.upload.Data); err != nil {
		return SlotResult{}, pkgerrors.Wrap(pkgerrors.CodeStorage, err, "write slot file")
	}
	previous, err := s.registry.UpsertSlot(ctx, tx, parentID, sc.SlotType, name, st.hash)
	if err != nil {
		return SlotResult{}, err
	}

	s.met.AddAttached(sc.Name.String(), 1)
	s.logg.Info(s.logg.WithField(ctx, "parent_id", parentID.String()), "slot media replaced")
	return SlotResult{Filename: name, Previous: previous}, nil
}

// ClearSlot empties the slot, returning the stored filename for post-commit
// unlink; empty when the slot was already empty.
func (s *Syncer) ClearSlot(ctx context.Context, tx *gorm.DB, sc SlotContext, parentID uuid.UUID) (string, error) {
	filename, err := s.registry.DeleteSlot(ctx, tx, parentID, sc.SlotType)
	if err != nil {
		return "", err
	}
	if filename != "" {
		s.met.AddRemoved(sc.Name.String(), 1)
	}
	return filename, nil
}

// Unlink reclaims files whose rows a committed transaction deleted. Failures
// are collected, counted, and reported, never fatal; the reconciler picks up
// whatever lingers.
func (s *Syncer) Unlink(ctx context.Context, c Context, items []Item) error {
	var errs error
	for _, item := range items {
		if err := s.store.Remove(c.Dirs[item.Category], item.Filename); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("unlink %s: %w", item.Filename, err))
			s.met.IncUnlinkFailure(c.Name.String())
		}
	}
	if errs != nil {
		s.logg.Error(ctx, "media unlink incomplete", errs)
	}
	return errs
}

// UnlinkSlot reclaims a displaced slot file after commit; best-effort.
func (s *Syncer) UnlinkSlot(ctx context.Context, sc SlotContext, filename string) error {
	if filename == "" {
		return nil
	}
	if err := s.store.Remove(sc.Dir, filename); err != nil {
		s.met.IncUnlinkFailure(sc.Name.String())
		s.logg.Error(ctx, "slot unlink failed", err)
		return err
	}
	return nil
}
