package enums

import "fmt"

// AcquireSource identifies where a capture came from.
type AcquireSource string

const (
	AcquireSourceGallery AcquireSource = "gallery"
	AcquireSourceCamera  AcquireSource = "camera"
)

var validAcquireSources = []AcquireSource{
	AcquireSourceGallery,
	AcquireSourceCamera,
}

// String returns the literal string for the source.
func (a AcquireSource) String() string {
	return string(a)
}

// IsValid reports whether the source is known.
func (a AcquireSource) IsValid() bool {
	for _, candidate := range validAcquireSources {
		if candidate == a {
			return true
		}
	}
	return false
}

// ParseAcquireSource converts raw input into an AcquireSource.
func ParseAcquireSource(value string) (AcquireSource, error) {
	for _, candidate := range validAcquireSources {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid acquire source %q", value)
}
