package records

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/cliphive/cliphive-backend/internal/mediameta"
	"github.com/cliphive/cliphive-backend/pkg/db/models"
	"github.com/cliphive/cliphive-backend/pkg/enums"
	pkgerrors "github.com/cliphive/cliphive-backend/pkg/errors"
	"github.com/cliphive/cliphive-backend/pkg/logger"
	"github.com/cliphive/cliphive-backend/pkg/metrics"
)

// Input carries everything needed to durably describe a stored video.
type Input struct {
	OwnerID      uuid.UUID
	Title        string
	Description  *string
	Visibility   enums.AssetVisibility
	ParentID     *uuid.UUID
	VideoURL     string
	ThumbnailURL *string
	Meta         mediameta.VideoMetadata
}

// Committer writes the asset record in two phases: create it in processing
// status, then promote it to ready. A failed promotion is deliberately not
// fatal: the binary is already stored and the record exists, so the attempt
// reports success and the stuck record is reconciled out of band.
type Committer struct {
	store Store
	logg  *logger.Logger
	stats *metrics.PipelineMetrics
	now   func() time.Time
}

// NewCommitter wires a committer against the given store.
func NewCommitter(store Store, logg *logger.Logger, stats *metrics.PipelineMetrics) *Committer {
	return &Committer{
		store: store,
		logg:  logg,
		stats: stats,
		now:   time.Now,
	}
}

// Commit runs both phases. The returned asset reflects what is actually
// persisted: status ready on full success, status processing when only the
// promotion failed.
func (c *Committer) Commit(ctx context.Context, in Input) (*models.Asset, error) {
	if in.OwnerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "owner identity missing")
	}
	if in.VideoURL == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "video url missing")
	}
	if in.Title == "" {
		in.Title = "Untitled upload"
	}
	visibility := in.Visibility
	if !visibility.IsValid() {
		visibility = enums.AssetVisibilityPublic
	}

	asset := &models.Asset{
		OwnerID:      in.OwnerID,
		Title:        in.Title,
		Description:  in.Description,
		VideoURL:     in.VideoURL,
		ThumbnailURL: in.ThumbnailURL,
		Status:       enums.AssetStatusProcessing,
		Visibility:   visibility,
		ParentID:     in.ParentID,
	}
	if in.Meta.DurationSeconds > 0 {
		asset.DurationSeconds = &in.Meta.DurationSeconds
	}
	if in.Meta.Width > 0 {
		asset.Width = &in.Meta.Width
	}
	if in.Meta.Height > 0 {
		asset.Height = &in.Meta.Height
	}
	if in.Meta.FileSizeBytes > 0 {
		asset.FileSizeBytes = &in.Meta.FileSizeBytes
	}

	created, err := c.store.Insert(ctx, asset)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeRecordCreate, err, "creating asset record")
	}

	publishedAt := c.now().UTC()
	if err := c.store.UpdateStatus(ctx, created.ID, enums.AssetStatusReady, &publishedAt); err != nil {
		c.stats.IncPromoteFailure()
		if c.logg != nil {
			lctx := c.logg.WithFields(ctx, map[string]any{
				"asset_id": created.ID.String(),
				"owner_id": created.OwnerID.String(),
			})
			c.logg.Error(lctx, "asset promotion failed, record left in processing", err)
		}
		return created, nil
	}

	created.Status = enums.AssetStatusReady
	created.PublishedAt = &publishedAt
	return created, nil
}
