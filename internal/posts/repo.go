package posts

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/feastbook/feastbook-backend/pkg/db"
	"github.com/feastbook/feastbook-backend/pkg/db/models"
)

// Repository provides data access for posts.
type Repository struct {
	client *db.Client
}

func NewRepository(client *db.Client) *Repository {
	return &Repository{client: client}
}

func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (models.Post, error) {
	var post models.Post
	err := r.client.DB().WithContext(ctx).First(&post, "id = ?", id).Error
	return post, err
}

// CreateWithTx inserts the post inside the caller's transaction so the post
// and its first media batch commit together.
func (r *Repository) CreateWithTx(ctx context.Context, tx *gorm.DB, post *models.Post) error {
	if post.ID == uuid.Nil {
		post.ID = uuid.New()
	}
	return tx.WithContext(ctx).Create(post).Error
}
