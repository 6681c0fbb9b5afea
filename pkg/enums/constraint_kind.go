package enums

import "fmt"

// ConstraintKind names the policy rule a candidate video violated.
type ConstraintKind string

const (
	ConstraintTooLong           ConstraintKind = "too_long"
	ConstraintTooShort          ConstraintKind = "too_short"
	ConstraintTooLarge          ConstraintKind = "too_large"
	ConstraintUnsupportedFormat ConstraintKind = "unsupported_format"
)

var validConstraintKinds = []ConstraintKind{
	ConstraintTooLong,
	ConstraintTooShort,
	ConstraintTooLarge,
	ConstraintUnsupportedFormat,
}

// String returns the literal string for the kind.
func (c ConstraintKind) String() string {
	return string(c)
}

// IsValid reports whether the kind is known.
func (c ConstraintKind) IsValid() bool {
	for _, candidate := range validConstraintKinds {
		if candidate == c {
			return true
		}
	}
	return false
}

// ParseConstraintKind converts raw input into a ConstraintKind.
func ParseConstraintKind(value string) (ConstraintKind, error) {
	for _, candidate := range validConstraintKinds {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid constraint kind %q", value)
}
