package db

import (
	"context"
	"fmt"

	"github.com/cliphive/cliphive-backend/pkg/config"
	"github.com/cliphive/cliphive-backend/pkg/db/models"
	"github.com/cliphive/cliphive-backend/pkg/logger"
)

// MaybeAutoMigrate applies the schema when the auto-migrate flag is set.
// Intended for development and the sqlite path; production schemas are
// managed out of band.
func MaybeAutoMigrate(ctx context.Context, client *Client, flags config.FeatureFlagsConfig, logg *logger.Logger) error {
	if !flags.AutoMigrate {
		return nil
	}
	if err := client.DB().WithContext(ctx).AutoMigrate(&models.Asset{}); err != nil {
		return fmt.Errorf("auto-migrating schema: %w", err)
	}
	if logg != nil {
		logg.Info(ctx, "schema auto-migration applied")
	}
	return nil
}
