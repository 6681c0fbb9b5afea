package enums

import "fmt"

// UploadStage describes where a pipeline attempt currently is.
type UploadStage string

const (
	UploadStageIdle                UploadStage = "idle"
	UploadStagePicking             UploadStage = "picking"
	UploadStageRecording           UploadStage = "recording"
	UploadStageExtracting          UploadStage = "extracting"
	UploadStageGeneratingThumbnail UploadStage = "generating_thumbnail"
	UploadStageUploading           UploadStage = "uploading"
	UploadStageCreatingRecord      UploadStage = "creating_record"
	UploadStageComplete            UploadStage = "complete"
	UploadStageError               UploadStage = "error"
)

var validUploadStages = []UploadStage{
	UploadStageIdle,
	UploadStagePicking,
	UploadStageRecording,
	UploadStageExtracting,
	UploadStageGeneratingThumbnail,
	UploadStageUploading,
	UploadStageCreatingRecord,
	UploadStageComplete,
	UploadStageError,
}

// String returns the literal string for the stage.
func (s UploadStage) String() string {
	return string(s)
}

// IsValid reports whether the stage is known.
func (s UploadStage) IsValid() bool {
	for _, candidate := range validUploadStages {
		if candidate == s {
			return true
		}
	}
	return false
}

// Terminal reports whether the stage ends an attempt.
func (s UploadStage) Terminal() bool {
	return s == UploadStageComplete || s == UploadStageError
}

// AcceptsNewAttempt reports whether a new attempt may begin from the stage.
func (s UploadStage) AcceptsNewAttempt() bool {
	return s == UploadStageIdle || s.Terminal()
}

// ParseUploadStage converts raw input into an UploadStage.
func ParseUploadStage(value string) (UploadStage, error) {
	for _, candidate := range validUploadStages {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid upload stage %q", value)
}
