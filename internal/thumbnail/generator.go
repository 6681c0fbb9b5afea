package thumbnail

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/cliphive/cliphive-backend/pkg/config"
	"github.com/cliphive/cliphive-backend/pkg/logger"
)

// captureOffsetSeconds is how far into the clip the still frame is taken.
// Fixed at 1000 ms.
const captureOffsetSeconds = "1.000"

// Runner executes an external command and returns its combined output.
type Runner func(ctx context.Context, name string, args ...string) ([]byte, error)

// Generator extracts a single representative still frame from a video.
// Every failure is returned to the caller, which treats the thumbnail as a
// best-effort side artifact.
type Generator struct {
	ffmpegPath string
	quality    int
	outDir     string
	run        Runner
	logg       *logger.Logger
}

// NewGenerator builds a generator writing JPEG stills into the media tmp dir.
func NewGenerator(media config.MediaConfig, thumb config.ThumbnailConfig, logg *logger.Logger) *Generator {
	binary := media.FFmpegPath
	if binary == "" {
		binary = "ffmpeg"
	}
	quality := thumb.Quality
	if quality <= 0 {
		quality = 4
	}
	return &Generator{
		ffmpegPath: binary,
		quality:    quality,
		outDir:     media.TmpDir,
		run:        execRunner,
		logg:       logg,
	}
}

// WithRunner substitutes the command runner, used by tests.
func (g *Generator) WithRunner(run Runner) *Generator {
	g.run = run
	return g
}

// Generate writes a still frame for the video and returns its local path.
func (g *Generator) Generate(ctx context.Context, videoURI string) (string, error) {
	if videoURI == "" {
		return "", fmt.Errorf("video uri is required")
	}
	if err := os.MkdirAll(g.outDir, 0o755); err != nil {
		return "", fmt.Errorf("creating thumbnail dir: %w", err)
	}

	outPath := filepath.Join(g.outDir, uuid.NewString()+".jpg")

	output, err := g.run(ctx, g.ffmpegPath,
		"-ss", captureOffsetSeconds,
		"-i", videoURI,
		"-frames:v", "1",
		"-q:v", fmt.Sprintf("%d", g.quality),
		"-y",
		outPath,
	)
	if err != nil {
		return "", fmt.Errorf("ffmpeg still frame: %w, output: %s", err, string(output))
	}

	if _, err := os.Stat(outPath); err != nil {
		return "", fmt.Errorf("thumbnail not produced: %w", err)
	}

	if g.logg != nil {
		g.logg.Debug(g.logg.WithField(ctx, "thumbnail", outPath), "thumbnail generated")
	}
	return outPath, nil
}

func execRunner(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).CombinedOutput()
}
