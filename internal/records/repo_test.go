package records

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/cliphive/cliphive-backend/pkg/db/models"
	"github.com/cliphive/cliphive-backend/pkg/enums"
	pkgerrors "github.com/cliphive/cliphive-backend/pkg/errors"
)

func setupAssetsTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)

	schema := `
CREATE TABLE IF NOT EXISTS assets (
  id TEXT PRIMARY KEY,
  owner_id TEXT NOT NULL,
  title TEXT NOT NULL,
  description TEXT,
  video_url TEXT NOT NULL,
  thumbnail_url TEXT,
  duration_seconds INTEGER,
  width INTEGER,
  height INTEGER,
  file_size_bytes INTEGER,
  status TEXT NOT NULL,
  visibility TEXT NOT NULL,
  parent_id TEXT,
  created_at DATETIME,
  published_at DATETIME
);`
	require.NoError(t, db.Exec(schema).Error)
	return db
}

func newAsset(ownerID uuid.UUID) *models.Asset {
	return &models.Asset{
		OwnerID:    ownerID,
		Title:      "first ride",
		VideoURL:   "https://cdn.example.com/videos/k.mp4",
		Status:     enums.AssetStatusProcessing,
		Visibility: enums.AssetVisibilityPublic,
	}
}

func TestRepositoryInsertAndFind(t *testing.T) {
	db := setupAssetsTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	created, err := repo.Insert(ctx, newAsset(uuid.New()))
	require.NoError(t, err)
	require.NotEqual(t, uuid.Nil, created.ID)

	found, err := repo.FindByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.ID, found.ID)
	assert.Equal(t, enums.AssetStatusProcessing, found.Status)
	assert.Nil(t, found.PublishedAt)
}

func TestRepositoryUpdateStatus(t *testing.T) {
	db := setupAssetsTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	created, err := repo.Insert(ctx, newAsset(uuid.New()))
	require.NoError(t, err)

	publishedAt := time.Now().UTC().Truncate(time.Second)
	require.NoError(t, repo.UpdateStatus(ctx, created.ID, enums.AssetStatusReady, &publishedAt))

	found, err := repo.FindByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.AssetStatusReady, found.Status)
	require.NotNil(t, found.PublishedAt)
}

func TestRepositoryUpdateStatusMissingRecord(t *testing.T) {
	db := setupAssetsTestDB(t)
	repo := NewRepository(db)

	err := repo.UpdateStatus(context.Background(), uuid.New(), enums.AssetStatusReady, nil)
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeNotFound, pkgerrors.CodeOf(err))
}

func TestRepositoryFindByIDNotFound(t *testing.T) {
	db := setupAssetsTestDB(t)
	repo := NewRepository(db)

	_, err := repo.FindByID(context.Background(), uuid.New())
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeNotFound, pkgerrors.CodeOf(err))
}

func TestRepositoryListByOwner(t *testing.T) {
	db := setupAssetsTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	owner := uuid.New()
	for i := 0; i < 3; i++ {
		_, err := repo.Insert(ctx, newAsset(owner))
		require.NoError(t, err)
	}
	_, err := repo.Insert(ctx, newAsset(uuid.New()))
	require.NoError(t, err)

	assets, err := repo.ListByOwner(ctx, owner, 10)
	require.NoError(t, err)
	assert.Len(t, assets, 3)
	for _, asset := range assets {
		assert.Equal(t, owner, asset.OwnerID)
	}
}
