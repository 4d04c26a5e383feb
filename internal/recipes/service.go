package recipes

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/feastbook/feastbook-backend/internal/media"
	"github.com/feastbook/feastbook-backend/pkg/db"
	"github.com/feastbook/feastbook-backend/pkg/db/models"
	"github.com/feastbook/feastbook-backend/pkg/enums"
	pkgerrors "github.com/feastbook/feastbook-backend/pkg/errors"
)

// ServiceParams groups dependencies for the recipe service.
type ServiceParams struct {
	Repo  *Repository
	DB    *db.Client
	Media *media.Syncer
}

// RecipeDTO is a recipe with its step media, in step order, and the current
// thumbnail filename when one is set.
type RecipeDTO struct {
	Recipe    models.Recipe
	Steps     []media.Item
	Thumbnail string
}

// Service exposes business rules for recipes, their ordered step media and
// their thumbnail slot.
type Service interface {
	Create(ctx context.Context, authorID uuid.UUID, title string, description *string, steps []media.Upload) (models.Recipe, media.AttachResult, error)
	Get(ctx context.Context, id uuid.UUID) (RecipeDTO, error)
	AttachSteps(ctx context.Context, id uuid.UUID, uploads []media.Upload) (media.AttachResult, error)
	ReplaceSteps(ctx context.Context, id uuid.UUID, uploads []media.Upload) (media.ReplaceResult, error)
	RemoveSteps(ctx context.Context, id uuid.UUID, category *enums.MediaCategory) (int, error)
	SetThumbnail(ctx context.Context, id uuid.UUID, upload media.Upload) (media.SlotResult, error)
	ClearThumbnail(ctx context.Context, id uuid.UUID) (bool, error)
}

type service struct {
	repo  *Repository
	db    *db.Client
	media *media.Syncer
}

// NewService builds a recipe service with the required dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "recipe repo is required")
	}
	if params.DB == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "db client is required")
	}
	if params.Media == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "media syncer is required")
	}
	return &service{repo: params.Repo, db: params.DB, media: params.Media}, nil
}

func (s *service) stepContext() media.Context {
	return s.media.Contexts().RecipeStep
}

func (s *service) thumbnailSlot() media.SlotContext {
	return s.media.Contexts().RecipeThumbnail
}

// Create inserts the recipe and its step media in one transaction; the batch
// order becomes the step order.
func (s *service) Create(ctx context.Context, authorID uuid.UUID, title string, description *string, steps []media.Upload) (models.Recipe, media.AttachResult, error) {
	if authorID == uuid.Nil {
		return models.Recipe{}, media.AttachResult{}, pkgerrors.New(pkgerrors.CodeValidation, "author id is required")
	}
	if strings.TrimSpace(title) == "" {
		return models.Recipe{}, media.AttachResult{}, pkgerrors.New(pkgerrors.CodeValidation, "recipe title is required")
	}

	recipe := models.Recipe{AuthorID: authorID, Title: title, Description: description}
	var attach media.AttachResult
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.CreateWithTx(ctx, tx, &recipe); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create recipe")
		}
		// Steps can be added later; creation without any is valid.
		if len(steps) == 0 {
			return nil
		}
		var err error
		attach, err = s.media.Attach(ctx, tx, s.stepContext(), recipe.ID, steps)
		return err
	})
	if err != nil {
		return models.Recipe{}, media.AttachResult{}, err
	}
	return recipe, attach, nil
}

// Get loads the recipe, its steps in order, and the thumbnail filename.
func (s *service) Get(ctx context.Context, id uuid.UUID) (RecipeDTO, error) {
	recipe, err := s.find(ctx, id)
	if err != nil {
		return RecipeDTO{}, err
	}
	steps, err := s.media.List(ctx, s.db.DB(), s.stepContext(), id)
	if err != nil {
		return RecipeDTO{}, err
	}
	slot, err := s.media.Slot(ctx, s.db.DB(), s.thumbnailSlot(), id)
	if err != nil {
		return RecipeDTO{}, err
	}
	dto := RecipeDTO{Recipe: recipe, Steps: steps}
	if slot != nil {
		dto.Thumbnail = slot.Filename
	}
	return dto, nil
}

// AttachSteps appends a step batch after the existing steps.
func (s *service) AttachSteps(ctx context.Context, id uuid.UUID, uploads []media.Upload) (media.AttachResult, error) {
	if _, err := s.find(ctx, id); err != nil {
		return media.AttachResult{}, err
	}
	var res media.AttachResult
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		var err error
		res, err = s.media.Attach(ctx, tx, s.stepContext(), id, uploads)
		return err
	})
	return res, err
}

// ReplaceSteps makes the step set equal to the batch; displaced files are
// unlinked after commit.
func (s *service) ReplaceSteps(ctx context.Context, id uuid.UUID, uploads []media.Upload) (media.ReplaceResult, error) {
	if _, err := s.find(ctx, id); err != nil {
		return media.ReplaceResult{}, err
	}
	var res media.ReplaceResult
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		var err error
		res, err = s.media.ReplaceSet(ctx, tx, s.stepContext(), id, uploads)
		return err
	})
	if err != nil {
		return media.ReplaceResult{}, err
	}
	_ = s.media.Unlink(ctx, s.stepContext(), res.Removed)
	return res, nil
}

// RemoveSteps detaches step media, all of it or one category.
func (s *service) RemoveSteps(ctx context.Context, id uuid.UUID, category *enums.MediaCategory) (int, error) {
	if _, err := s.find(ctx, id); err != nil {
		return 0, err
	}
	var removed []media.Item
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		var err error
		removed, err = s.media.Remove(ctx, tx, s.stepContext(), id, category)
		return err
	})
	if err != nil {
		return 0, err
	}
	_ = s.media.Unlink(ctx, s.stepContext(), removed)
	return len(removed), nil
}

// SetThumbnail replaces the recipe thumbnail. The prior file is removed only
// after the new row has committed.
func (s *service) SetThumbnail(ctx context.Context, id uuid.UUID, upload media.Upload) (media.SlotResult, error) {
	if _, err := s.find(ctx, id); err != nil {
		return media.SlotResult{}, err
	}
	var res media.SlotResult
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		var err error
		res, err = s.media.UpsertSlot(ctx, tx, s.thumbnailSlot(), id, upload)
		return err
	})
	if err != nil {
		return media.SlotResult{}, err
	}
	_ = s.media.UnlinkSlot(ctx, s.thumbnailSlot(), res.Previous)
	return res, nil
}

// ClearThumbnail empties the thumbnail slot; reports whether one existed.
func (s *service) ClearThumbnail(ctx context.Context, id uuid.UUID) (bool, error) {
	if _, err := s.find(ctx, id); err != nil {
		return false, err
	}
	var filename string
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		var err error
		filename, err = s.media.ClearSlot(ctx, tx, s.thumbnailSlot(), id)
		return err
	})
	if err != nil {
		return false, err
	}
	_ = s.media.UnlinkSlot(ctx, s.thumbnailSlot(), filename)
	return filename != "", nil
}

func (s *service) find(ctx context.Context, id uuid.UUID) (models.Recipe, error) {
	if id == uuid.Nil {
		return models.Recipe{}, pkgerrors.New(pkgerrors.CodeValidation, "recipe id is required")
	}
	recipe, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Recipe{}, pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "recipe not found")
		}
		return models.Recipe{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load recipe")
	}
	return recipe, nil
}
