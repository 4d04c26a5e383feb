package profiles

import (
	"context"

	"github.com/google/uuid"

	"github.com/feastbook/feastbook-backend/pkg/db"
	"github.com/feastbook/feastbook-backend/pkg/db/models"
)

// Repository provides data access for user profiles.
type Repository struct {
	client *db.Client
}

func NewRepository(client *db.Client) *Repository {
	return &Repository{client: client}
}

func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (models.User, error) {
	var user models.User
	err := r.client.DB().WithContext(ctx).First(&user, "id = ?", id).Error
	return user, err
}

func (r *Repository) FindByHandle(ctx context.Context, handle string) (models.User, error) {
	var user models.User
	err := r.client.DB().WithContext(ctx).First(&user, "handle = ?", handle).Error
	return user, err
}
