package media

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	pkgdb "github.com/feastbook/feastbook-backend/pkg/db"
	"github.com/feastbook/feastbook-backend/pkg/db/models"
	"github.com/feastbook/feastbook-backend/pkg/enums"
	pkgerrors "github.com/feastbook/feastbook-backend/pkg/errors"
)

// Item is one registry row in a multi-item context, independent of which
// parent table it lives in.
type Item struct {
	ParentID       uuid.UUID
	Filename       string
	Category       enums.MediaCategory
	ContentHash    string
	SequenceNumber int
	CreatedAt      time.Time
}

// Registry reads and writes media rows. Every mutation runs on the transaction
// the caller supplies; the registry never begins or commits one itself. The
// parent table/column pair comes from the Context adapter resolved at startup.
type Registry struct{}

func NewRegistry() *Registry {
	return &Registry{}
}

// Exists reports whether the parent already owns content with the given hash.
func (r *Registry) Exists(ctx context.Context, tx *gorm.DB, c Context, parentID uuid.UUID, hash string) (bool, error) {
	var count int64
	err := tx.WithContext(ctx).
		Table(c.Table).
		Where(c.FKColumn+" = ? AND content_hash = ?", parentID, hash).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("count %s rows: %w", c.Table, err)
	}
	return count > 0, nil
}

// Insert adds one media row inside the caller's transaction.
func (r *Registry) Insert(ctx context.Context, tx *gorm.DB, c Context, item Item) error {
	row := map[string]any{
		"id":           uuid.New(),
		c.FKColumn:     item.ParentID,
		"filename":     item.Filename,
		"category":     item.Category.String(),
		"content_hash": item.ContentHash,
		"created_at":   time.Now().UTC(),
	}
	if c.Ordered {
		row["sequence_number"] = item.SequenceNumber
	}
	if err := tx.WithContext(ctx).Table(c.Table).Create(row).Error; err != nil {
		// The unique (parent, hash) index is the safety net when two requests
		// race past the Exists check inside their own transactions.
		if pkgdb.IsUniqueViolation(err, "") {
			return pkgerrors.Wrap(pkgerrors.CodeConflict, err, "parent already owns this content")
		}
		return fmt.Errorf("insert %s row: %w", c.Table, err)
	}
	return nil
}

// List returns the parent's media rows, in step order for ordered contexts.
func (r *Registry) List(ctx context.Context, tx *gorm.DB, c Context, parentID uuid.UUID) ([]Item, error) {
	columns := c.FKColumn + " AS parent_id, filename, category, content_hash, created_at"
	order := "created_at ASC"
	if c.Ordered {
		columns += ", sequence_number"
		order = "sequence_number ASC"
	}

	var items []Item
	err := tx.WithContext(ctx).
		Table(c.Table).
		Select(columns).
		Where(c.FKColumn+" = ?", parentID).
		Order(order).
		Scan(&items).Error
	if err != nil {
		return nil, fmt.Errorf("list %s rows: %w", c.Table, err)
	}
	return items, nil
}

// DeleteHashesNotIn removes every row of the parent whose hash is absent from
// keep, returning the removed rows so the caller can reclaim their files.
func (r *Registry) DeleteHashesNotIn(ctx context.Context, tx *gorm.DB, c Context, parentID uuid.UUID, keep []string) ([]Item, error) {
	existing, err := r.List(ctx, tx, c, parentID)
	if err != nil {
		return nil, err
	}

	keepSet := make(map[string]struct{}, len(keep))
	for _, hash := range keep {
		keepSet[hash] = struct{}{}
	}

	var doomed []Item
	for _, item := range existing {
		if _, ok := keepSet[item.ContentHash]; !ok {
			doomed = append(doomed, item)
		}
	}
	if len(doomed) == 0 {
		return nil, nil
	}

	hashes := make([]string, len(doomed))
	for i, item := range doomed {
		hashes[i] = item.ContentHash
	}
	err = tx.WithContext(ctx).
		Exec(fmt.Sprintf("DELETE FROM %s WHERE %s = ? AND content_hash IN ?", c.Table, c.FKColumn), parentID, hashes).
		Error
	if err != nil {
		return nil, fmt.Errorf("delete %s rows: %w", c.Table, err)
	}
	return doomed, nil
}

// DeleteByCategory removes the parent's rows, optionally restricted to one
// category, returning the removed rows.
func (r *Registry) DeleteByCategory(ctx context.Context, tx *gorm.DB, c Context, parentID uuid.UUID, category *enums.MediaCategory) ([]Item, error) {
	existing, err := r.List(ctx, tx, c, parentID)
	if err != nil {
		return nil, err
	}

	var doomed []Item
	for _, item := range existing {
		if category == nil || item.Category == *category {
			doomed = append(doomed, item)
		}
	}
	if len(doomed) == 0 {
		return nil, nil
	}

	query := fmt.Sprintf("DELETE FROM %s WHERE %s = ?", c.Table, c.FKColumn)
	args := []any{parentID}
	if category != nil {
		query += " AND category = ?"
		args = append(args, category.String())
	}
	if err := tx.WithContext(ctx).Exec(query, args...).Error; err != nil {
		return nil, fmt.Errorf("delete %s rows: %w", c.Table, err)
	}
	return doomed, nil
}

// GetSlot returns the slot row, or nil when the slot is empty.
func (r *Registry) GetSlot(ctx context.Context, tx *gorm.DB, parentID uuid.UUID, slotType enums.SlotType) (*models.MediaSlot, error) {
	var slot models.MediaSlot
	err := tx.WithContext(ctx).
		Where("parent_id = ? AND slot_type = ?", parentID, slotType).
		First(&slot).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("load media slot: %w", err)
	}
	return &slot, nil
}

// UpsertSlot writes the slot row and returns the filename it displaced, empty
// on first upload. The displaced file is the caller's to unlink after commit.
func (r *Registry) UpsertSlot(ctx context.Context, tx *gorm.DB, parentID uuid.UUID, slotType enums.SlotType, filename, hash string) (string, error) {
	current, err := r.GetSlot(ctx, tx, parentID, slotType)
	if err != nil {
		return "", err
	}

	if current == nil {
		slot := models.MediaSlot{
			ID:          uuid.New(),
			ParentID:    parentID,
			SlotType:    slotType,
			Filename:    filename,
			ContentHash: hash,
		}
		if err := tx.WithContext(ctx).Create(&slot).Error; err != nil {
			if pkgdb.IsUniqueViolation(err, "") {
				return "", pkgerrors.Wrap(pkgerrors.CodeConflict, err, "slot is already occupied")
			}
			return "", fmt.Errorf("insert media slot: %w", err)
		}
		return "", nil
	}

	previous := current.Filename
	err = tx.WithContext(ctx).
		Model(&models.MediaSlot{}).
		Where("parent_id = ? AND slot_type = ?", parentID, slotType).
		Updates(map[string]any{
			"filename":     filename,
			"content_hash": hash,
			"updated_at":   time.Now().UTC(),
		}).Error
	if err != nil {
		return "", fmt.Errorf("update media slot: %w", err)
	}
	return previous, nil
}

// DeleteSlot removes the slot row, returning the filename it held.
func (r *Registry) DeleteSlot(ctx context.Context, tx *gorm.DB, parentID uuid.UUID, slotType enums.SlotType) (string, error) {
	current, err := r.GetSlot(ctx, tx, parentID, slotType)
	if err != nil {
		return "", err
	}
	if current == nil {
		return "", nil
	}
	err = tx.WithContext(ctx).
		Where("parent_id = ? AND slot_type = ?", parentID, slotType).
		Delete(&models.MediaSlot{}).Error
	if err != nil {
		return "", fmt.Errorf("delete media slot: %w", err)
	}
	return current.Filename, nil
}

var multiItemTables = []string{"post_media", "recipe_media", "rating_media"}

// FilenameReferenced reports whether any registry row in any table names the
// given stored filename. The reconciler uses this outside any transaction.
func (r *Registry) FilenameReferenced(ctx context.Context, db *gorm.DB, filename string) (bool, error) {
	for _, table := range multiItemTables {
		var count int64
		err := db.WithContext(ctx).Table(table).Where("filename = ?", filename).Count(&count).Error
		if err != nil {
			return false, fmt.Errorf("count %s references: %w", table, err)
		}
		if count > 0 {
			return true, nil
		}
	}
	var count int64
	err := db.WithContext(ctx).Model(&models.MediaSlot{}).Where("filename = ?", filename).Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("count slot references: %w", err)
	}
	return count > 0, nil
}
