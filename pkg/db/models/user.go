package models

import (
	"time"

	"github.com/google/uuid"
)

// User is a platform member. Handle is the public-facing identifier; ID stays
// internal and is what media rows reference.
type User struct {
	ID           uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Handle       string    `gorm:"column:handle;not null;uniqueIndex"`
	Email        string    `gorm:"column:email;not null;uniqueIndex"`
	DisplayName  string    `gorm:"column:display_name;not null"`
	Bio          *string   `gorm:"column:bio"`
	CreatedAt    time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (User) TableName() string { return "users" }
