package models

import (
	"time"

	"github.com/google/uuid"
)

// Recipe is a cooking recipe whose step media keeps an explicit ordering.
type Recipe struct {
	ID          uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	AuthorID    uuid.UUID `gorm:"column:author_id;type:uuid;not null;index"`
	Title       string    `gorm:"column:title;not null"`
	Description *string   `gorm:"column:description"`
	CreatedAt   time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (Recipe) TableName() string { return "recipes" }
