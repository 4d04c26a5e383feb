package posts

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

// ServiceParams groups dependencies for the post service.
type ServiceParams struct {
	Repo  *Repository
	DB    *db.Client
	Media *media.Syncer
}

// Service exposes business rules for posts and their attached media.
type Service interface {
	Create(ctx context.Context, authorID uuid.UUID, body string, uploads []media.Upload) (models.Post, media.AttachResult, error)
	Get(ctx context.Context, id uuid.UUID) (models.Post, []media.Item, error)
	AttachMedia(ctx context.Context, id uuid.UUID, uploads []media.Upload) (media.AttachResult, error)
	ReplaceMedia(ctx context.Context, id uuid.UUID, uploads []media.Upload) (media.ReplaceResult, error)
	RemoveMedia(ctx context.Context, id uuid.UUID, category *enums.MediaCategory) (int, error)
}

type service struct {
	repo  *Repository
	db    *db.Client
	media *media.Syncer
}

// NewService builds a post service with the required dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "post repo is required")
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
	return s.media.Contexts().Post
}

// Create inserts the post and its first media batch in one transaction.
func (s *service) Create(ctx context.Context, authorID uuid.UUID, body string, uploads []media.Upload) (models.Post, media.AttachResult, error) {
	if authorID == uuid.Nil {
		return models.Post{}, media.AttachResult{}, pkgerrors.New(pkgerrors.CodeValidation, "author id is required")
	}
	if strings.TrimSpace(body) == "" {
		return models.Post{}, media.AttachResult{}, pkgerrors.New(pkgerrors.CodeValidation, "post body is required")
	}

	post := models.Post{AuthorID: authorID, Body: body}
	var attach media.AttachResult
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.CreateWithTx(ctx, tx, &post); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create post")
		}
		// A text-only post is valid; only a non-empty batch goes to the syncer.
		if len(uploads) == 0 {
			return nil
		}
		var err error
		attach, err = s.media.Attach(ctx, tx, s.mediaContext(), post.ID, uploads)
		return err
	})
	if err != nil {
		return models.Post{}, media.AttachResult{}, err
	}
	return post, attach, nil
}

// Get loads the post with its media in attachment order.
func (s *service) Get(ctx context.Context, id uuid.UUID) (models.Post, []media.Item, error) {
	post, err := s.find(ctx, id)
	if err != nil {
		return models.Post{}, nil, err
	}
	items, err := s.media.List(ctx, s.db.DB(), s.mediaContext(), id)
	if err != nil {
		return models.Post{}, nil, err
	}
	return post, items, nil
}

// AttachMedia adds the batch to the post, deduplicated by content.
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

// ReplaceMedia makes the post's media set equal to the batch. Files displaced
// by the replacement are unlinked only after the transaction commits.
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

// RemoveMedia detaches the post's media, all of it or one category, and
// reclaims the files after commit.
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

func (s *service) find(ctx context.Context, id uuid.UUID) (models.Post, error) {
	if id == uuid.Nil {
		return models.Post{}, pkgerrors.New(pkgerrors.CodeValidation, "post id is required")
	}
	post, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Post{}, pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "post not found")
		}
		return models.Post{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load post")
	}
	return post, nil
}
