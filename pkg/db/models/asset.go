package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/cliphive/cliphive-backend/pkg/enums"
)

// Asset is the durable record describing one published (or in-flight) video.
// It is created in processing status once the binary payload is stored, and
// promoted to ready when publication succeeds.
type Asset struct {
	ID              uuid.UUID             `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	OwnerID         uuid.UUID             `gorm:"column:owner_id;type:uuid;not null;index" json:"owner_id"`
	Title           string                `gorm:"column:title;not null" json:"title"`
	Description     *string               `gorm:"column:description" json:"description,omitempty"`
	VideoURL        string                `gorm:"column:video_url;not null" json:"video_url"`
	ThumbnailURL    *string               `gorm:"column:thumbnail_url" json:"thumbnail_url,omitempty"`
	DurationSeconds *int64                `gorm:"column:duration_seconds" json:"duration_seconds,omitempty"`
	Width           *int64                `gorm:"column:width" json:"width,omitempty"`
	Height          *int64                `gorm:"column:height" json:"height,omitempty"`
	FileSizeBytes   *int64                `gorm:"column:file_size_bytes" json:"file_size_bytes,omitempty"`
	Status          enums.AssetStatus     `gorm:"column:status;not null" json:"status"`
	Visibility      enums.AssetVisibility `gorm:"column:visibility;not null" json:"visibility"`
	ParentID        *uuid.UUID            `gorm:"column:parent_id;type:uuid" json:"parent_id,omitempty"`
	CreatedAt       time.Time             `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	PublishedAt     *time.Time            `gorm:"column:published_at" json:"published_at,omitempty"`
}
