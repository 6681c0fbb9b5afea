package mediameta

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"time"

	"github.com/gabriel-vasile/mimetype"

	"github.com/cliphive/cliphive-backend/internal/acquire"
	"github.com/cliphive/cliphive-backend/pkg/config"
	pkgerrors "github.com/cliphive/cliphive-backend/pkg/errors"
	"github.com/cliphive/cliphive-backend/pkg/logger"
)

// VideoMetadata is the normalized description of a pending upload.
// DurationSeconds of 0 means "unknown at capture time"; enforcement of the
// minimum-duration constraint is deferred in that case.
type VideoMetadata struct {
	URI             string
	DurationSeconds int64
	Width           int64
	Height          int64
	FileSizeBytes   int64
	MimeType        string
}

// ProbeResult carries the best-effort output of a media probe.
type ProbeResult struct {
	DurationSeconds int64
	Width           int64
	Height          int64
}

// ProbeFunc inspects a local media file. Failures are tolerated by the
// extractor's fallback path.
type ProbeFunc func(ctx context.Context, path string) (ProbeResult, error)

// Extractor derives VideoMetadata from a capture or directly from a file.
type Extractor struct {
	probe ProbeFunc
	logg  *logger.Logger
}

// NewExtractor builds an extractor that probes with ffprobe.
func NewExtractor(cfg config.MediaConfig, logg *logger.Logger) *Extractor {
	return &Extractor{
		probe: ffprobeFunc(cfg),
		logg:  logg,
	}
}

// NewExtractorWithProbe builds an extractor with a custom probe, used by
// tests and environments without ffprobe.
func NewExtractorWithProbe(probe ProbeFunc, logg *logger.Logger) *Extractor {
	return &Extractor{probe: probe, logg: logg}
}

// FromCapture is the high-reliability path: capture-reported duration and
// dimensions are trusted when present, but file size is always re-measured
// from disk.
func (e *Extractor) FromCapture(ctx context.Context, capture acquire.Capture) (VideoMetadata, error) {
	size, err := fileSize(capture.URI)
	if err != nil {
		return VideoMetadata{}, err
	}

	meta := VideoMetadata{
		URI:             capture.URI,
		DurationSeconds: roundMillisToSeconds(capture.DurationMillis),
		Width:           capture.Width,
		Height:          capture.Height,
		FileSizeBytes:   size,
		MimeType:        capture.MimeType,
	}

	if capture.DurationMillis == 0 && capture.Width == 0 && capture.Height == 0 {
		// Capture reported nothing useful; fall back to probing.
		probed := e.bestEffortProbe(ctx, capture.URI)
		meta.DurationSeconds = probed.DurationSeconds
		meta.Width = probed.Width
		meta.Height = probed.Height
	}

	if meta.MimeType == "" {
		meta.MimeType = sniffMime(capture.URI)
	}

	return meta, nil
}

// FromFile is the fallback path for files with no capture metadata at all.
// Duration and dimensions are best-effort and may legitimately be zero.
func (e *Extractor) FromFile(ctx context.Context, uri string) (VideoMetadata, error) {
	size, err := fileSize(uri)
	if err != nil {
		return VideoMetadata{}, err
	}

	probed := e.bestEffortProbe(ctx, uri)

	return VideoMetadata{
		URI:             uri,
		DurationSeconds: probed.DurationSeconds,
		Width:           probed.Width,
		Height:          probed.Height,
		FileSizeBytes:   size,
		MimeType:        sniffMime(uri),
	}, nil
}

func (e *Extractor) bestEffortProbe(ctx context.Context, uri string) ProbeResult {
	if e.probe == nil {
		return ProbeResult{}
	}
	probed, err := e.probe(ctx, uri)
	if err != nil {
		if e.logg != nil {
			e.logg.Warn(e.logg.WithField(ctx, "uri", uri), "media probe failed, continuing without duration")
		}
		return ProbeResult{}
	}
	return probed
}

func fileSize(uri string) (int64, error) {
	info, err := os.Stat(uri)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeExtraction, err, "video file not found")
	}
	if info.IsDir() {
		return 0, pkgerrors.New(pkgerrors.CodeExtraction, "video uri is a directory")
	}
	return info.Size(), nil
}

func sniffMime(uri string) string {
	detected, err := mimetype.DetectFile(uri)
	if err != nil {
		return ""
	}
	return detected.String()
}

func roundMillisToSeconds(millis int64) int64 {
	if millis <= 0 {
		return 0
	}
	return (millis + 500) / 1000
}

type ffprobeOutput struct {
	Format struct {
		Duration string `json:"duration"`
	} `json:"format"`
	Streams []struct {
		CodecType string `json:"codec_type"`
		Width     int64  `json:"width"`
		Height    int64  `json:"height"`
	} `json:"streams"`
}

func ffprobeFunc(cfg config.MediaConfig) ProbeFunc {
	binary := cfg.FFprobePath
	if binary == "" {
		binary = "ffprobe"
	}
	timeout := cfg.ProbeTimeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	return func(ctx context.Context, path string) (ProbeResult, error) {
		ctx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()

		cmd := exec.CommandContext(ctx, binary,
			"-v", "error",
			"-print_format", "json",
			"-show_format",
			"-show_streams",
			path,
		)
		raw, err := cmd.Output()
		if err != nil {
			return ProbeResult{}, fmt.Errorf("ffprobe: %w", err)
		}

		var parsed ffprobeOutput
		if err := json.Unmarshal(raw, &parsed); err != nil {
			return ProbeResult{}, fmt.Errorf("parsing ffprobe output: %w", err)
		}

		result := ProbeResult{}
		if parsed.Format.Duration != "" {
			if seconds, err := strconv.ParseFloat(parsed.Format.Duration, 64); err == nil && seconds > 0 {
				result.DurationSeconds = int64(seconds + 0.5)
			}
		}
		for _, stream := range parsed.Streams {
			if stream.CodecType == "video" {
				result.Width = stream.Width
				result.Height = stream.Height
				break
			}
		}
		return result, nil
	}
}
