package enums

import "fmt"

// AssetStatus describes the lifecycle state of a committed asset record.
type AssetStatus string

const (
	AssetStatusProcessing AssetStatus = "processing"
	AssetStatusReady      AssetStatus = "ready"
	AssetStatusFailed     AssetStatus = "failed"
)

var validAssetStatuses = []AssetStatus{
	AssetStatusProcessing,
	AssetStatusReady,
	AssetStatusFailed,
}

// String returns the literal string for the status.
func (a AssetStatus) String() string {
	return string(a)
}

// IsValid reports whether the status is known.
func (a AssetStatus) IsValid() bool {
	for _, candidate := range validAssetStatuses {
		if candidate == a {
			return true
		}
	}
	return false
}

// ParseAssetStatus converts raw input into an AssetStatus.
func ParseAssetStatus(value string) (AssetStatus, error) {
	for _, candidate := range validAssetStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid asset status %q", value)
}
