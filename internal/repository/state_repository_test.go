package repository

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/QualiSystems/colony-cli/internal/domain"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSessionRepo(t *testing.T) (*JSONSessionRepository, string) {
	t.Helper()
	dir := SessionStateDir(filepath.Join(t.TempDir(), ".git"))
	return NewJSONSessionRepository(afero.NewOsFs(), dir), dir
}

func newSession(id string) *domain.SessionState {
	state := domain.NewSessionState(&domain.TempBranchSession{
		ID:             id,
		WorkingBranch:  "main",
		TempBranchName: "tmp-colony-abcdefghij",
		Phase:          domain.PhasePreparing,
	})
	state.AddOperation(domain.OperationTypeStashChanges)
	return state
}

func TestJSONSessionRepository(t *testing.T) {
	ctx := context.Background()
	t.Run("Should save and load a session", func(t *testing.T) {
		repo, _ := newSessionRepo(t)
		state := newSession("s1")
		require.NoError(t, repo.Save(ctx, state))
		loaded, err := repo.Load(ctx, "s1")
		require.NoError(t, err)
		assert.Equal(t, "s1", loaded.SessionID)
		assert.Equal(t, "tmp-colony-abcdefghij", loaded.Branch.TempBranchName)
		require.Len(t, loaded.Operations, 1)
		assert.Equal(t, domain.OperationTypeStashChanges, loaded.Operations[0].Type)
	})
	t.Run("Should return the latest saved session", func(t *testing.T) {
		repo, _ := newSessionRepo(t)
		require.NoError(t, repo.Save(ctx, newSession("first")))
		require.NoError(t, repo.Save(ctx, newSession("second")))
		latest, err := repo.LoadLatest(ctx)
		require.NoError(t, err)
		assert.Equal(t, "second", latest.SessionID)
	})
	t.Run("Should report missing sessions", func(t *testing.T) {
		repo, _ := newSessionRepo(t)
		_, err := repo.Load(ctx, "nope")
		assert.ErrorIs(t, err, ErrSessionNotFound)
		_, err = repo.LoadLatest(ctx)
		assert.ErrorIs(t, err, ErrSessionNotFound)
	})
	t.Run("Should list sessions by start time", func(t *testing.T) {
		repo, _ := newSessionRepo(t)
		older := newSession("older")
		older.StartedAt = time.Now().Add(-time.Hour)
		require.NoError(t, repo.Save(ctx, newSession("newer")))
		require.NoError(t, repo.Save(ctx, older))
		states, err := repo.List(ctx)
		require.NoError(t, err)
		require.Len(t, states, 2)
		assert.Equal(t, "older", states[0].SessionID)
		assert.Equal(t, "newer", states[1].SessionID)
	})
	t.Run("Should detect a tampered record", func(t *testing.T) {
		repo, dir := newSessionRepo(t)
		require.NoError(t, repo.Save(ctx, newSession("s1")))
		path := filepath.Join(dir, "state-s1.json")
		data, err := os.ReadFile(path)
		require.NoError(t, err)
		tampered := strings.Replace(string(data), "tmp-colony-abcdefghij", "tmp-colony-zzzzzzzzzz", 1)
		require.NoError(t, os.WriteFile(path, []byte(tampered), 0o600))
		_, err = repo.Load(ctx, "s1")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "checksum mismatch")
		states, err := repo.List(ctx)
		assert.Error(t, err)
		assert.Empty(t, states)
	})
	t.Run("Should delete a session", func(t *testing.T) {
		repo, _ := newSessionRepo(t)
		require.NoError(t, repo.Save(ctx, newSession("s1")))
		require.NoError(t, repo.Delete(ctx, "s1"))
		_, err := repo.Load(ctx, "s1")
		assert.ErrorIs(t, err, ErrSessionNotFound)
		assert.NoError(t, repo.Delete(ctx, "s1"))
	})
}
