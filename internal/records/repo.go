package records

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/cliphive/cliphive-backend/pkg/db/models"
	"github.com/cliphive/cliphive-backend/pkg/enums"
	pkgerrors "github.com/cliphive/cliphive-backend/pkg/errors"
)

// Store is the asset persistence boundary the committer runs against.
type Store interface {
	Insert(ctx context.Context, asset *models.Asset) (*models.Asset, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status enums.AssetStatus, publishedAt *time.Time) error
}

// Repository exposes asset persistence operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs an asset repository bound to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Insert persists a new asset record.
func (r *Repository) Insert(ctx context.Context, asset *models.Asset) (*models.Asset, error) {
	if asset.ID == uuid.Nil {
		asset.ID = uuid.New()
	}
	if err := r.db.WithContext(ctx).Create(asset).Error; err != nil {
		return nil, err
	}
	return asset, nil
}

// UpdateStatus transitions an existing asset's status, optionally stamping
// its publication time.
func (r *Repository) UpdateStatus(ctx context.Context, id uuid.UUID, status enums.AssetStatus, publishedAt *time.Time) error {
	updates := map[string]any{"status": status}
	if publishedAt != nil {
		updates["published_at"] = publishedAt
	}

	result := r.db.WithContext(ctx).Model(&models.Asset{}).Where("id = ?", id).Updates(updates)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return pkgerrors.New(pkgerrors.CodeNotFound, "asset not found")
	}
	return nil
}

// FindByID retrieves an asset record by ID.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Asset, error) {
	var asset models.Asset
	if err := r.db.WithContext(ctx).First(&asset, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "asset not found")
		}
		return nil, err
	}
	return &asset, nil
}

// ListByOwner returns an owner's assets, newest first.
func (r *Repository) ListByOwner(ctx context.Context, ownerID uuid.UUID, limit int) ([]models.Asset, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	var assets []models.Asset
	err := r.db.WithContext(ctx).
		Where("owner_id = ?", ownerID).
		Order("created_at DESC").
		Limit(limit).
		Find(&assets).Error
	if err != nil {
		return nil, err
	}
	return assets, nil
}
