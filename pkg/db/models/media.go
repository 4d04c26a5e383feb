package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/feastbook/feastbook-backend/pkg/enums"
)

// PostMedia is one attached file on a post. Re-uploading identical bytes to
// the same post is a no-op, enforced by the (post_id, content_hash) constraint.
type PostMedia struct {
	ID          uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	PostID      uuid.UUID           `gorm:"column:post_id;type:uuid;not null;uniqueIndex:ux_post_media_parent_hash"`
	Filename    string              `gorm:"column:filename;not null;uniqueIndex"`
	Category    enums.MediaCategory `gorm:"column:category;not null"`
	ContentHash string              `gorm:"column:content_hash;not null;uniqueIndex:ux_post_media_parent_hash"`
	CreatedAt   time.Time           `gorm:"column:created_at;autoCreateTime"`
}

func (PostMedia) TableName() string { return "post_media" }

// RecipeMedia is one attached step file on a recipe. SequenceNumber preserves
// the 1-based step ordering of the upload batch.
type RecipeMedia struct {
	ID             uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	RecipeID       uuid.UUID           `gorm:"column:recipe_id;type:uuid;not null;uniqueIndex:ux_recipe_media_parent_hash"`
	Filename       string              `gorm:"column:filename;not null;uniqueIndex"`
	Category       enums.MediaCategory `gorm:"column:category;not null"`
	ContentHash    string              `gorm:"column:content_hash;not null;uniqueIndex:ux_recipe_media_parent_hash"`
	SequenceNumber int                 `gorm:"column:sequence_number;not null"`
	CreatedAt      time.Time           `gorm:"column:created_at;autoCreateTime"`
}

func (RecipeMedia) TableName() string { return "recipe_media" }

// RatingMedia is one attached file on a rating.
type RatingMedia struct {
	ID          uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	RatingID    uuid.UUID           `gorm:"column:rating_id;type:uuid;not null;uniqueIndex:ux_rating_media_parent_hash"`
	Filename    string              `gorm:"column:filename;not null;uniqueIndex"`
	Category    enums.MediaCategory `gorm:"column:category;not null"`
	ContentHash string              `gorm:"column:content_hash;not null;uniqueIndex:ux_rating_media_parent_hash"`
	CreatedAt   time.Time           `gorm:"column:created_at;autoCreateTime"`
}

func (RatingMedia) TableName() string { return "rating_media" }

// MediaSlot is a single-item attachment point: avatar, profile background or
// recipe thumbnail. Exactly zero or one row exists per (parent_id, slot_type);
// uploads upsert the row and the prior file becomes reclaimable.
type MediaSlot struct {
	ID          uuid.UUID      `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ParentID    uuid.UUID      `gorm:"column:parent_id;type:uuid;not null;uniqueIndex:ux_media_slots_parent_type"`
	SlotType    enums.SlotType `gorm:"column:slot_type;not null;uniqueIndex:ux_media_slots_parent_type"`
	Filename    string         `gorm:"column:filename;not null;uniqueIndex"`
	ContentHash string         `gorm:"column:content_hash;not null"`
	CreatedAt   time.Time      `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time      `gorm:"column:updated_at;autoUpdateTime"`
}

func (MediaSlot) TableName() string { return "media_slots" }
