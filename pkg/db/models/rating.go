package models

import (
	"time"

	"github.com/google/uuid"
)

// Rating is a user's review of a recipe; it may carry photo/video attachments.
type Rating struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	RecipeID  uuid.UUID `gorm:"column:recipe_id;type:uuid;not null;index"`
	AuthorID  uuid.UUID `gorm:"column:author_id;type:uuid;not null;index"`
	Score     int       `gorm:"column:score;not null"`
	Comment   *string   `gorm:"column:comment"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}

func (Rating) TableName() string { return "ratings" }
