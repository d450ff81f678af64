package domain

import (
	"strings"

	"github.com/Masterminds/semver/v3"
)

// Version wraps semver.Version for CLI release comparison.
type Version struct {
	*semver.Version
}

// NewVersion parses s, accepting an optional v prefix.
func NewVersion(s string) (*Version, error) {
	v, err := semver.NewVersion(strings.TrimSpace(s))
	if err != nil {
		return nil, err
	}
	return &Version{v}, nil
}

// Compare compares two versions.
func (v *Version) Compare(other *Version) int {
	return v.Version.Compare(other.Version)
}

// IsNewerThan reports whether v is a later release than other.
func (v *Version) IsNewerThan(other *Version) bool {
	return v.Compare(other) > 0
}

// String returns the version string with v prefix.
func (v *Version) String() string {
	return "v" + v.Version.String()
}
