package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"github.com/cliphive/cliphive-backend/internal/acquire"
	"github.com/cliphive/cliphive-backend/internal/mediameta"
	"github.com/cliphive/cliphive-backend/internal/pipeline"
	"github.com/cliphive/cliphive-backend/internal/policy"
	"github.com/cliphive/cliphive-backend/internal/records"
	"github.com/cliphive/cliphive-backend/internal/thumbnail"
	"github.com/cliphive/cliphive-backend/internal/transfer"
	pkgauth "github.com/cliphive/cliphive-backend/pkg/auth"
	"github.com/cliphive/cliphive-backend/pkg/config"
	"github.com/cliphive/cliphive-backend/pkg/db"
	"github.com/cliphive/cliphive-backend/pkg/enums"
	"github.com/cliphive/cliphive-backend/pkg/logger"
	"github.com/cliphive/cliphive-backend/pkg/storage/objstore"
)

// uploader pushes a single local video through the full pipeline from the
// command line: extract, check, thumbnail, transfer, commit.
func main() {
	var (
		filePath    = flag.String("file", "", "path to the video file to upload (required)")
		title       = flag.String("title", "", "asset title (required)")
		description = flag.String("description", "", "asset description")
		visibility  = flag.String("visibility", "public", "asset visibility: public, unlisted or private")
		ownerFlag   = flag.String("owner", "", "owner user id (uuid); generated when omitted")
	)
	flag.Parse()

	logg := logger.New(logger.Options{ServiceName: "uploader", Output: os.Stderr})
	ctx := context.Background()

	if *filePath == "" || *title == "" {
		fmt.Fprintln(os.Stderr, "usage: uploader -file <video> -title <title> [-description ...] [-visibility public|unlisted|private] [-owner <uuid>]")
		os.Exit(2)
	}

	if err := godotenv.Load(); err != nil {
		logg.Warn(ctx, ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(ctx, "failed to load config", err)
		os.Exit(1)
	}

	vis, err := enums.ParseAssetVisibility(*visibility)
	if err != nil {
		logg.Error(ctx, "invalid visibility", err)
		os.Exit(2)
	}

	owner := uuid.New()
	if *ownerFlag != "" {
		owner, err = uuid.Parse(*ownerFlag)
		if err != nil {
			logg.Error(ctx, "invalid owner id", err)
			os.Exit(2)
		}
	}

	token, err := pkgauth.MintAccessToken(cfg.JWT, time.Now(), pkgauth.AccessTokenPayload{UserID: owner})
	if err != nil {
		logg.Error(ctx, "failed to mint access token", err)
		os.Exit(1)
	}

	dbClient, err := db.New(ctx, cfg.DB, cfg.FeatureFlags, logg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() { _ = dbClient.Close() }()

	if err := db.MaybeAutoMigrate(ctx, dbClient, cfg.FeatureFlags, logg); err != nil {
		logg.Error(ctx, "failed to migrate schema", err)
		os.Exit(1)
	}

	storeClient, err := objstore.NewClient(ctx, cfg.ObjectStore, logg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap object store client", err)
		os.Exit(1)
	}

	coordinator, err := transfer.NewCoordinator(storeClient, transfer.Config{
		VideoBucket:     cfg.ObjectStore.VideoBucket,
		ThumbnailBucket: cfg.ObjectStore.ThumbnailBucket,
	}, logg)
	if err != nil {
		logg.Error(ctx, "failed to build transfer coordinator", err)
		os.Exit(1)
	}

	assetsRepo := records.NewRepository(dbClient.DB())
	p := pipeline.New(pipeline.Deps{
		Acquirer:  acquire.FileAcquirer{Capture: acquire.Capture{URI: *filePath}},
		Extractor: mediameta.NewExtractor(cfg.Media, logg),
		Thumbs:    thumbnail.NewGenerator(cfg.Media, cfg.Thumbnail, logg),
		Transfer:  coordinator,
		Committer: records.NewCommitter(assetsRepo, logg, nil),
		Policy:    policy.FromAppConfig(cfg.Policy),
		Logger:    logg,

		MaxRecordSeconds: cfg.Media.MaxRecordSeconds,
	})

	updates, cancel := p.Subscribe()
	defer cancel()
	go func() {
		for progress := range updates {
			fmt.Fprintf(os.Stderr, "%-20s %3d%% %s\n", progress.Stage, progress.Percent, progress.Message)
		}
	}()

	sub := pipeline.Submission{
		OwnerID:     owner,
		Title:       *title,
		Visibility:  vis,
		BearerToken: token,
	}
	if *description != "" {
		sub.Description = description
	}

	result, err := p.PickFromGallery(ctx, sub)
	if err != nil {
		logg.Error(ctx, "upload failed", err)
		os.Exit(1)
	}
	if !result.Success {
		logg.Warn(ctx, "upload did not complete")
		os.Exit(1)
	}

	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(result.Record); err != nil {
		logg.Error(ctx, "failed to encode record", err)
		os.Exit(1)
	}
}
