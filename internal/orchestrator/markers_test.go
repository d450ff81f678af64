package orchestrator

import (
	"path/filepath"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarkers(t *testing.T) {
	root := "/repo"
	setup := func(t *testing.T) afero.Fs {
		t.Helper()
		fs := afero.NewMemMapFs()
		require.NoError(t, fs.MkdirAll(filepath.Join(root, ".git", "refs", "tags"), 0o755))
		require.NoError(t, fs.MkdirAll(filepath.Join(root, "blueprints", "empty"), 0o755))
		require.NoError(t, fs.MkdirAll(filepath.Join(root, "a", "b", "c"), 0o755))
		require.NoError(t, afero.WriteFile(fs, filepath.Join(root, "blueprints", "demo.yaml"), []byte("x"), 0o644))
		return fs
	}

	t.Run("Should write markers only into empty directories outside .git", func(t *testing.T) {
		fs := setup(t)
		created, err := CreateMarkers(fs, root)
		require.NoError(t, err)
		assert.ElementsMatch(t, []string{
			filepath.Join(root, "blueprints", "empty", MarkerFileName),
			filepath.Join(root, "a", "b", "c", MarkerFileName),
		}, created)
		exists, err := afero.Exists(fs, filepath.Join(root, ".git", "refs", "tags", MarkerFileName))
		require.NoError(t, err)
		assert.False(t, exists)
		exists, err = afero.Exists(fs, filepath.Join(root, "a", "b", MarkerFileName))
		require.NoError(t, err)
		assert.False(t, exists)
	})

	t.Run("Should remove every marker and keep the directories", func(t *testing.T) {
		fs := setup(t)
		_, err := CreateMarkers(fs, root)
		require.NoError(t, err)
		require.NoError(t, afero.WriteFile(fs, filepath.Join(root, ".git", MarkerFileName), nil, 0o644))

		require.NoError(t, RemoveMarkers(fs, root))

		for _, dir := range []string{"blueprints/empty", "a/b/c"} {
			isDir, err := afero.IsDir(fs, filepath.Join(root, dir))
			require.NoError(t, err)
			assert.True(t, isDir)
			exists, err := afero.Exists(fs, filepath.Join(root, dir, MarkerFileName))
			require.NoError(t, err)
			assert.False(t, exists)
		}
		exists, err := afero.Exists(fs, filepath.Join(root, ".git", MarkerFileName))
		require.NoError(t, err)
		assert.True(t, exists, "markers inside .git are not ours")
	})

	t.Run("Should be a no-op without markers", func(t *testing.T) {
		assert.NoError(t, RemoveMarkers(setup(t), root))
	})
}
