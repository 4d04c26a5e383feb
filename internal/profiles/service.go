package profiles

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/feastbook/feastbook-backend/internal/media"
	"github.com/feastbook/feastbook-backend/pkg/db"
	"github.com/feastbook/feastbook-backend/pkg/db/models"
	pkgerrors "github.com/feastbook/feastbook-backend/pkg/errors"
)

// ServiceParams groups dependencies for the profile service.
type ServiceParams struct {
	Repo  *Repository
	DB    *db.Client
	Media *media.Syncer
}

// ProfileDTO is a user with their current profile image filenames.
type ProfileDTO struct {
	User       models.User `json:"user"`
	Avatar     string      `json:"avatar"`
	Background string      `json:"background"`
}

// Service exposes profile image management: the avatar and background slots.
type Service interface {
	Get(ctx context.Context, userID uuid.UUID) (ProfileDTO, error)
	GetByHandle(ctx context.Context, handle string) (ProfileDTO, error)
	SetAvatar(ctx context.Context, userID uuid.UUID, upload media.Upload) (media.SlotResult, error)
	ClearAvatar(ctx context.Context, userID uuid.UUID) (bool, error)
	SetBackground(ctx context.Context, userID uuid.UUID, upload media.Upload) (media.SlotResult, error)
	ClearBackground(ctx context.Context, userID uuid.UUID) (bool, error)
}

type service struct {
	repo  *Repository
	db    *db.Client
	media *media.Syncer
}

// NewService builds a profile service with the required dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "profile repo is required")
	}
	if params.DB == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "db client is required")
	}
	if params.Media == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "media syncer is required")
	}
	return &service{repo: params.Repo, db: params.DB, media: params.Media}, nil
}

// Get loads a profile by internal user id.
func (s *service) Get(ctx context.Context, userID uuid.UUID) (ProfileDTO, error) {
	user, err := s.find(ctx, userID)
	if err != nil {
		return ProfileDTO{}, err
	}
	return s.withSlots(ctx, user)
}

// GetByHandle loads a profile by its public handle.
func (s *service) GetByHandle(ctx context.Context, handle string) (ProfileDTO, error) {
	if handle == "" {
		return ProfileDTO{}, pkgerrors.New(pkgerrors.CodeValidation, "handle is required")
	}
	user, err := s.repo.FindByHandle(ctx, handle)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ProfileDTO{}, pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "profile not found")
		}
		return ProfileDTO{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load profile")
	}
	return s.withSlots(ctx, user)
}

// SetAvatar replaces the user's profile picture.
func (s *service) SetAvatar(ctx context.Context, userID uuid.UUID, upload media.Upload) (media.SlotResult, error) {
	return s.setSlot(ctx, userID, s.media.Contexts().Avatar, upload)
}

// ClearAvatar removes the user's profile picture; reports whether one existed.
func (s *service) ClearAvatar(ctx context.Context, userID uuid.UUID) (bool, error) {
	return s.clearSlot(ctx, userID, s.media.Contexts().Avatar)
}

// SetBackground replaces the user's profile background.
func (s *service) SetBackground(ctx context.Context, userID uuid.UUID, upload media.Upload) (media.SlotResult, error) {
	return s.setSlot(ctx, userID, s.media.Contexts().Background, upload)
}

// ClearBackground removes the user's profile background.
func (s *service) ClearBackground(ctx context.Context, userID uuid.UUID) (bool, error) {
	return s.clearSlot(ctx, userID, s.media.Contexts().Background)
}

func (s *service) setSlot(ctx context.Context, userID uuid.UUID, sc media.SlotContext, upload media.Upload) (media.SlotResult, error) {
	if _, err := s.find(ctx, userID); err != nil {
		return media.SlotResult{}, err
	}
	var res media.SlotResult
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		var err error
		res, err = s.media.UpsertSlot(ctx, tx, sc, userID, upload)
		return err
	})
	if err != nil {
		return media.SlotResult{}, err
	}
	_ = s.media.UnlinkSlot(ctx, sc, res.Previous)
	return res, nil
}

func (s *service) clearSlot(ctx context.Context, userID uuid.UUID, sc media.SlotContext) (bool, error) {
	if _, err := s.find(ctx, userID); err != nil {
		return false, err
	}
	var filename string
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		var err error
		filename, err = s.media.ClearSlot(ctx, tx, sc, userID)
		return err
	})
	if err != nil {
		return false, err
	}
	_ = s.media.UnlinkSlot(ctx, sc, filename)
	return filename != "", nil
}

func (s *service) withSlots(ctx context.Context, user models.User) (ProfileDTO, error) {
	dto := ProfileDTO{User: user}
	avatar, err := s.media.Slot(ctx, s.db.DB(), s.media.Contexts().Avatar, user.ID)
	if err != nil {
		return ProfileDTO{}, err
	}
	if avatar != nil {
		dto.Avatar = avatar.Filename
	}
	background, err := s.media.Slot(ctx, s.db.DB(), s.media.Contexts().Background, user.ID)
	if err != nil {
		return ProfileDTO{}, err
	}
	if background != nil {
		dto.Background = background.Filename
	}
	return dto, nil
}

func (s *service) find(ctx context.Context, userID uuid.UUID) (models.User, error) {
	if userID == uuid.Nil {
		return models.User{}, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	user, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.User{}, pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "user not found")
		}
		return models.User{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load user")
	}
	return user, nil
}
