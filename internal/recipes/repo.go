package recipes

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/feastbook/feastbook-backend/pkg/db"
	"github.com/feastbook/feastbook-backend/pkg/db/models"
)

// Repository provides data access for recipes.
type Repository struct {
	client *db.Client
}

func NewRepository(client *db.Client) *Repository {
	return &Repository{client: client}
}

func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (models.Recipe, error) {
	var recipe models.Recipe
	err := r.client.DB().WithContext(ctx).First(&recipe, "id = ?", id).Error
	return recipe, err
}

// CreateWithTx inserts the recipe inside the caller's transaction.
func (r *Repository) CreateWithTx(ctx context.Context, tx *gorm.DB, recipe *models.Recipe) error {
	if recipe.ID == uuid.Nil {
		recipe.ID = uuid.New()
	}
	return tx.WithContext(ctx).Create(recipe).Error
}
