package policy

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/cliphive/cliphive-backend/internal/mediameta"
	"github.com/cliphive/cliphive-backend/pkg/config"
	"github.com/cliphive/cliphive-backend/pkg/enums"
)

// Config carries the constraint thresholds a candidate video is checked
// against.
type Config struct {
	MinDurationSeconds int64
	MaxDurationSeconds int64
	MaxFileSizeBytes   int64
	AllowedExtensions  []string
}

// FromAppConfig converts the environment-backed policy block.
func FromAppConfig(cfg config.PolicyConfig) Config {
	return Config{
		MinDurationSeconds: cfg.MinDurationSeconds,
		MaxDurationSeconds: cfg.MaxDurationSeconds,
		MaxFileSizeBytes:   cfg.MaxFileSizeBytes,
		AllowedExtensions:  cfg.AllowedExtensionList(),
	}
}

// Violation names the rule a candidate broke and the threshold it broke.
type Violation struct {
	Kind      enums.ConstraintKind
	Threshold int64
	Actual    int64
	Detail    string
}

// Message renders the human-readable rejection, always naming the threshold.
func (v *Violation) Message() string {
	switch v.Kind {
	case enums.ConstraintTooLong:
		return fmt.Sprintf("video is too long: %ds (max=%ds)", v.Actual, v.Threshold)
	case enums.ConstraintTooShort:
		return fmt.Sprintf("video is too short: %ds (min=%ds)", v.Actual, v.Threshold)
	case enums.ConstraintTooLarge:
		return fmt.Sprintf("file is too large: %d bytes (max=%d bytes)", v.Actual, v.Threshold)
	case enums.ConstraintUnsupportedFormat:
		return fmt.Sprintf("unsupported format %q (allowed: %s)", v.Detail, "video containers only")
	}
	return "video does not satisfy upload constraints"
}

// Check validates a candidate against the policy. It is a pure function: a
// nil result means accepted. A duration of exactly 0 means "unknown at
// capture time" and bypasses only the minimum-duration check; maximum and
// size checks always apply.
func Check(meta mediameta.VideoMetadata, cfg Config) *Violation {
	if cfg.MaxDurationSeconds > 0 && meta.DurationSeconds > cfg.MaxDurationSeconds {
		return &Violation{
			Kind:      enums.ConstraintTooLong,
			Threshold: cfg.MaxDurationSeconds,
			Actual:    meta.DurationSeconds,
		}
	}
	if cfg.MinDurationSeconds > 0 && meta.DurationSeconds > 0 && meta.DurationSeconds < cfg.MinDurationSeconds {
		return &Violation{
			Kind:      enums.ConstraintTooShort,
			Threshold: cfg.MinDurationSeconds,
			Actual:    meta.DurationSeconds,
		}
	}
	if cfg.MaxFileSizeBytes > 0 && meta.FileSizeBytes > cfg.MaxFileSizeBytes {
		return &Violation{
			Kind:      enums.ConstraintTooLarge,
			Threshold: cfg.MaxFileSizeBytes,
			Actual:    meta.FileSizeBytes,
		}
	}
	if len(cfg.AllowedExtensions) > 0 {
		ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(meta.URI), "."))
		if !extensionAllowed(ext, cfg.AllowedExtensions) {
			return &Violation{
				Kind:   enums.ConstraintUnsupportedFormat,
				Detail: ext,
			}
		}
	}
	return nil
}

func extensionAllowed(ext string, allowed []string) bool {
	if ext == "" {
		return false
	}
	for _, candidate := range allowed {
		if strings.EqualFold(candidate, ext) {
			return true
		}
	}
	return false
}
