package transfer

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	pkgerrors "github.com/cliphive/cliphive-backend/pkg/errors"
	"github.com/cliphive/cliphive-backend/pkg/logger"
)

// defaultExtension is the container assumed when neither the declared MIME
// type nor the source URI yields a recognized extension.
const defaultExtension = "mp4"

// extensionByMime maps declared MIME types to object key extensions.
var extensionByMime = map[string]string{
	"video/mp4":        "mp4",
	"video/quicktime":  "mov",
	"video/x-m4v":      "m4v",
	"video/webm":       "webm",
	"video/x-matroska": "mkv",
	"image/jpeg":       "jpg",
	"image/png":        "png",
	"image/webp":       "webp",
}

// mimeByExtension is the fixed table the stored object's Content-Type is
// always drawn from, regardless of what the source reported.
var mimeByExtension = map[string]string{
	"mp4":  "video/mp4",
	"mov":  "video/quicktime",
	"m4v":  "video/x-m4v",
	"webm": "video/webm",
	"mkv":  "video/x-matroska",
	"jpg":  "image/jpeg",
	"jpeg": "image/jpeg",
	"png":  "image/png",
	"webp": "image/webp",
}

// ObjectStore is the binary store boundary.
type ObjectStore interface {
	Put(ctx context.Context, bucket, key string, body io.Reader, size int64, contentType, bearer string) error
	PublicURL(bucket, key string) string
}

// Config names the destination buckets.
type Config struct {
	VideoBucket     string
	ThumbnailBucket string
}

// Input describes one transfer: a required video and an optional thumbnail.
type Input struct {
	OwnerID      uuid.UUID
	VideoURI     string
	VideoMime    string
	ThumbnailURI string
	BearerToken  string
}

// Output carries the resolved public URLs. ThumbnailURL is nil whenever the
// optional artifact was absent or failed to transfer.
type Output struct {
	VideoURL     string
	ThumbnailURL *string
}

// Coordinator moves artifacts to the object store and resolves read URLs.
type Coordinator struct {
	store  ObjectStore
	cfg    Config
	logg   *logger.Logger
	now    func() time.Time
	suffix func() string
}

// NewCoordinator wires a coordinator against the given store.
func NewCoordinator(store ObjectStore, cfg Config, logg *logger.Logger) (*Coordinator, error) {
	if store == nil {
		return nil, fmt.Errorf("object store required")
	}
	if cfg.VideoBucket == "" || cfg.ThumbnailBucket == "" {
		return nil, fmt.Errorf("video and thumbnail buckets required")
	}
	return &Coordinator{
		store:  store,
		cfg:    cfg,
		logg:   logg,
		now:    time.Now,
		suffix: randomSuffix,
	}, nil
}

// Upload transfers the video (required) and thumbnail (optional). A failed
// video PUT is fatal; a failed thumbnail PUT is swallowed.
func (c *Coordinator) Upload(ctx context.Context, in Input) (Output, error) {
	if in.OwnerID == uuid.Nil {
		return Output{}, pkgerrors.New(pkgerrors.CodeValidation, "owner identity missing")
	}
	if in.VideoURI == "" {
		return Output{}, pkgerrors.New(pkgerrors.CodeValidation, "video uri missing")
	}

	videoKey := c.buildKey(in.OwnerID, resolveExtension(in.VideoMime, in.VideoURI))
	if err := c.putFile(ctx, c.cfg.VideoBucket, videoKey, in.VideoURI, in.BearerToken); err != nil {
		return Output{}, pkgerrors.Wrap(pkgerrors.CodeTransfer, err, "video transfer failed").
			WithDetails(map[string]any{"artifact": "video"})
	}

	out := Output{VideoURL: c.store.PublicURL(c.cfg.VideoBucket, videoKey)}

	if in.ThumbnailURI != "" {
		thumbKey := c.buildKey(in.OwnerID, resolveExtension("", in.ThumbnailURI))
		if err := c.putFile(ctx, c.cfg.ThumbnailBucket, thumbKey, in.ThumbnailURI, in.BearerToken); err != nil {
			if c.logg != nil {
				c.logg.Warn(c.logg.WithField(ctx, "thumbnail", in.ThumbnailURI), "thumbnail transfer failed, continuing without it")
			}
		} else {
			url := c.store.PublicURL(c.cfg.ThumbnailBucket, thumbKey)
			out.ThumbnailURL = &url
		}
	}

	return out, nil
}

func (c *Coordinator) putFile(ctx context.Context, bucket, key, uri, bearer string) error {
	file, err := os.Open(uri)
	if err != nil {
		return fmt.Errorf("opening %s: %w", uri, err)
	}
	defer func() { _ = file.Close() }()

	info, err := file.Stat()
	if err != nil {
		return fmt.Errorf("stat %s: %w", uri, err)
	}

	ext := strings.TrimPrefix(filepath.Ext(key), ".")
	contentType := mimeByExtension[ext]
	if contentType == "" {
		contentType = mimeByExtension[defaultExtension]
	}

	return c.store.Put(ctx, bucket, key, file, info.Size(), contentType, bearer)
}

// buildKey produces {ownerId}/{unixMillis}_{suffix}.{ext}; the suffix keeps
// same-millisecond keys for one owner from colliding.
func (c *Coordinator) buildKey(ownerID uuid.UUID, ext string) string {
	return fmt.Sprintf("%s/%d_%s.%s", ownerID, c.now().UnixMilli(), c.suffix(), ext)
}

func resolveExtension(mime, uri string) string {
	if mime != "" {
		if ext, ok := extensionByMime[strings.ToLower(strings.TrimSpace(mime))]; ok {
			return ext
		}
	}
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(uri), "."))
	if _, ok := mimeByExtension[ext]; ok {
		return ext
	}
	return defaultExtension
}

func randomSuffix() string {
	return strings.SplitN(uuid.NewString(), "-", 2)[0]
}
