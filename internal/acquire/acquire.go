package acquire

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/cliphive/cliphive-backend/pkg/enums"
	pkgerrors "github.com/cliphive/cliphive-backend/pkg/errors"
)

// Request describes what the caller wants captured.
type Request struct {
	Source             enums.AcquireSource
	MaxDurationSeconds int
}

// Capture is the acquisition result: a local file handle plus best-effort
// metadata. Zero values mean "unreported", not "zero-length".
type Capture struct {
	Canceled       bool
	URI            string
	DurationMillis int64
	Width          int64
	Height         int64
	MimeType       string
	// Staged marks files the pipeline owns and may delete after a
	// terminal state.
	Staged bool
}

// Acquirer hands the pipeline a local video file for the requested source.
// A user backing out is reported as Capture{Canceled: true} with a nil
// error; a denied permission is a PERMISSION_DENIED error.
type Acquirer interface {
	Acquire(ctx context.Context, req Request) (Capture, error)
}

// FileAcquirer serves a pre-staged local file. Both the CLI (pointing at a
// file on disk) and the API ingest path (a staged multipart upload) reduce
// to this.
type FileAcquirer struct {
	Capture Capture
}

// Acquire validates the staged file still exists and returns the capture.
func (f FileAcquirer) Acquire(ctx context.Context, req Request) (Capture, error) {
	if f.Capture.Canceled {
		return Capture{Canceled: true}, nil
	}
	if !req.Source.IsValid() {
		return Capture{}, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid acquire source %q", req.Source))
	}
	info, err := os.Stat(f.Capture.URI)
	if err != nil {
		if os.IsPermission(err) {
			return Capture{}, pkgerrors.Wrap(pkgerrors.CodePermissionDenied, err, "media access denied")
		}
		return Capture{}, pkgerrors.Wrap(pkgerrors.CodeExtraction, err, "captured file unavailable")
	}
	if info.IsDir() {
		return Capture{}, pkgerrors.New(pkgerrors.CodeValidation, "captured uri is a directory")
	}
	return f.Capture, nil
}

// Stage copies an incoming stream into the media tmp dir and returns the
// staged path. The staged file belongs to the pipeline instance that
// receives it.
func Stage(tmpDir, originalName string, src io.Reader) (string, error) {
	if tmpDir == "" {
		return "", fmt.Errorf("tmp dir is required")
	}
	if err := os.MkdirAll(tmpDir, 0o755); err != nil {
		return "", fmt.Errorf("creating tmp dir: %w", err)
	}

	ext := strings.ToLower(filepath.Ext(originalName))
	staged := filepath.Join(tmpDir, uuid.NewString()+ext)

	out, err := os.Create(staged)
	if err != nil {
		return "", fmt.Errorf("staging upload: %w", err)
	}
	defer func() { _ = out.Close() }()

	if _, err := io.Copy(out, src); err != nil {
		_ = os.Remove(staged)
		return "", fmt.Errorf("writing staged upload: %w", err)
	}
	return staged, nil
}
