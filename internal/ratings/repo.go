package ratings

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/feastbook/feastbook-backend/pkg/db"
	"github.com/feastbook/feastbook-backend/pkg/db/models"
)

// Repository provides data access for recipe ratings.
type Repository struct {
	client *db.Client
}

func NewRepository(client *db.Client) *Repository {
	return &Repository{client: client}
}

func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (models.Rating, error) {
	var rating models.Rating
	err := r.client.DB().WithContext(ctx).First(&rating, "id = ?", id).Error
	return rating, err
}

// CreateWithTx inserts the rating inside the caller's transaction.
func (r *Repository) CreateWithTx(ctx context.Context, tx *gorm.DB, rating *models.Rating) error {
	if rating.ID == uuid.Nil {
		rating.ID = uuid.New()
	}
	return tx.WithContext(ctx).Create(rating).Error
}
