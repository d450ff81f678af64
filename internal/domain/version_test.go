package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewVersion(t *testing.T) {
	t.Run("Should create valid version from string", func(t *testing.T) {
		version, err := NewVersion("1.2.3")
		require.NoError(t, err)
		assert.Equal(t, "v1.2.3", version.String())
	})
	t.Run("Should return error for invalid version string", func(t *testing.T) {
		version, err := NewVersion("invalid")
		assert.Error(t, err)
		assert.Nil(t, version)
	})
	t.Run("Should accept v prefix and surrounding whitespace", func(t *testing.T) {
		version, err := NewVersion(" v1.2.3\n")
		require.NoError(t, err)
		assert.Equal(t, "v1.2.3", version.String())
	})
}

func TestVersion_IsNewerThan(t *testing.T) {
	t.Run("Should detect a newer patch release", func(t *testing.T) {
		current, err := NewVersion("1.2.3")
		require.NoError(t, err)
		latest, err := NewVersion("v1.2.4")
		require.NoError(t, err)
		assert.True(t, latest.IsNewerThan(current))
		assert.False(t, current.IsNewerThan(latest))
	})
	t.Run("Should treat equal versions as not newer", func(t *testing.T) {
		a, err := NewVersion("2.0.0")
		require.NoError(t, err)
		b, err := NewVersion("v2.0.0")
		require.NoError(t, err)
		assert.False(t, a.IsNewerThan(b))
		assert.Equal(t, 0, a.Compare(b))
	})
	t.Run("Should rank prereleases below the release", func(t *testing.T) {
		pre, err := NewVersion("1.3.0-rc.1")
		require.NoError(t, err)
		final, err := NewVersion("1.3.0")
		require.NoError(t, err)
		assert.True(t, final.IsNewerThan(pre))
	})
}
