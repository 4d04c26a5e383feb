package ratings

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/feastbook/feastbook-backend/internal/media"
	"github.com/feastbook/feastbook-backend/pkg/db"
	"github.com/feastbook/feastbook-backend/pkg/db/models"
	"github.com/feastbook/feastbook-backend/pkg/enums"
	pkgerrors "github.com/feastbook/feastbook-backend/pkg/errors"
)

// ServiceParams groups dependencies for the rating service.
type ServiceParams struct {
	Repo  *Repository
	DB    *db.Client
	Media *media.Syncer
}

// Service exposes business rules for recipe ratings and their media.
type Service interface {
	Create(ctx context.Context, recipeID, authorID uuid.UUID, score int, comment *string, uploads []media.Upload) (models.Rating, media.AttachResult, error)
	Get(ctx context.Context, id uuid.UUID) (models.Rating, []media.Item, error)
	AttachMedia(ctx context.Context, id uuid.UUID, uploads []media.Upload) (media.AttachResult, error)
	ReplaceMedia(ctx context.Context, id uuid.UUID, uploads []media.Upload) (media.ReplaceResult, error)
	RemoveMedia(ctx context.Context, id uuid.UUID, category *enums.MediaCategory) (int, error)
}

type service struct {
	repo  *Repository
	db    *db.Client
	media *media.Syncer
}

// NewService builds a rating service with the required dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "rating repo is required")
	}
	if params.DB == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "db client is required")
	}
	if params.Media == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "media syncer is required")
	}
	return &service{repo: params.Repo, db: params.DB, media: params.Media}, nil
}

func (s *service) mediaContext() media.Context {
	return s.media.Contexts().Rating
}

// Create inserts the rating and its media batch in one transaction.
func (s *service) Create(ctx context.Context, recipeID, authorID uuid.UUID, score int, comment *string, uploads []media.Upload) (models.Rating, media.AttachResult, error) {
	if recipeID == uuid.Nil || authorID == uuid.Nil {
		return models.Rating{}, media.AttachResult{}, pkgerrors.New(pkgerrors.CodeValidation, "recipe id and author id are required")
	}
	if score < 1 || score > 5 {
		return models.Rating{}, media.AttachResult{}, pkgerrors.New(pkgerrors.CodeValidation, "score must be between 1 and 5")
	}

	rating := models.Rating{RecipeID: recipeID, AuthorID: authorID, Score: score, Comment: comment}
	var attach media.AttachResult
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.CreateWithTx(ctx, tx, &rating); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create rating")
		}
		// A rating without photos is valid; only a non-empty batch goes on.
		if len(uploads) == 0 {
			return nil
		}
		var err error
		attach, err = s.media.Attach(ctx, tx, s.mediaContext(), rating.ID, uploads)
		return err
	})
	if err != nil {
		return models.Rating{}, media.AttachResult{}, err
	}
	return rating, attach, nil
}

// Get loads the rating with its media.
func (s *service) Get(ctx context.Context, id uuid.UUID) (models.Rating, []media.Item, error) {
	rating, err := s.find(ctx, id)
	if err != nil {
		return models.Rating{}, nil, err
	}
	items, err := s.media.List(ctx, s.db.DB(), s.mediaContext(), id)
	if err != nil {
		return models.Rating{}, nil, err
	}
	return rating, items, nil
}

// AttachMedia adds the batch to the rating, deduplicated by content.
func (s *service) AttachMedia(ctx context.Context, id uuid.UUID, uploads []media.Upload) (media.AttachResult, error) {
	if _, err := s.find(ctx, id); err != nil {
		return media.AttachResult{}, err
	}
	var res media.AttachResult
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		var err error
		res, err = s.media.Attach(ctx, tx, s.mediaContext(), id, uploads)
		return err
	})
	return res, err
}

// ReplaceMedia makes the rating's media set equal to the batch.
func (s *service) ReplaceMedia(ctx context.Context, id uuid.UUID, uploads []media.Upload) (media.ReplaceResult, error) {
	if _, err := s.find(ctx, id); err != nil {
		return media.ReplaceResult{}, err
	}
	var res media.ReplaceResult
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		var err error
		res, err = s.media.ReplaceSet(ctx, tx, s.mediaContext(), id, uploads)
		return err
	})
	if err != nil {
		return media.ReplaceResult{}, err
	}
	_ = s.media.Unlink(ctx, s.mediaContext(), res.Removed)
	return res, nil
}

// RemoveMedia detaches the rating's media, all of it or one category.
func (s *service) RemoveMedia(ctx context.Context, id uuid.UUID, category *enums.MediaCategory) (int, error) {
	if _, err := s.find(ctx, id); err != nil {
		return 0, err
	}
	var removed []media.Item
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		var err error
		removed, err = s.media.Remove(ctx, tx, s.mediaContext(), id, category)
		return err
	})
	if err != nil {
		return 0, err
	}
	_ = s.media.Unlink(ctx, s.mediaContext(), removed)
	return len(removed), nil
}

func (s *service) find(ctx context.Context, id uuid.UUID) (models.Rating, error) {
	if id == uuid.Nil {
		return models.Rating{}, pkgerrors.New(pkgerrors.CodeValidation, "rating id is required")
	}
	rating, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Rating{}, pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "rating not found")
		}
		return models.Rating{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load rating")
	}
	return rating, nil
}
