package enums

import "fmt"

// AssetVisibility controls who can resolve a published asset.
type AssetVisibility string

const (
	AssetVisibilityPublic   AssetVisibility = "public"
	AssetVisibilityUnlisted AssetVisibility = "unlisted"
	AssetVisibilityPrivate  AssetVisibility = "private"
)

var validAssetVisibilities = []AssetVisibility{
	AssetVisibilityPublic,
	AssetVisibilityUnlisted,
	AssetVisibilityPrivate,
}

// String returns the literal string for the visibility.
func (a AssetVisibility) String() string {
	return string(a)
}

// IsValid reports whether the visibility is known.
func (a AssetVisibility) IsValid() bool {
	for _, candidate := range validAssetVisibilities {
		if candidate == a {
			return true
		}
	}
	return false
}

// ParseAssetVisibility converts raw input into an AssetVisibility.
func ParseAssetVisibility(value string) (AssetVisibility, error) {
	for _, candidate := range validAssetVisibilities {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid asset visibility %q", value)
}
