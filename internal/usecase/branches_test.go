package usecase

import (
	"context"
	"testing"

	"github.com/QualiSystems/colony-cli/internal/output/outputtest"
	"github.com/QualiSystems/colony-cli/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecoverBranchesUseCase_Execute(t *testing.T) {
	ctx := context.Background()

	t.Run("Should report that nothing needs recovery", func(t *testing.T) {
		ws := newWorkspace(t)
		uc := &RecoverBranchesUseCase{Branches: ws.branches, Sink: ws.sink}

		results, err := uc.Execute(ctx)

		require.NoError(t, err)
		assert.Empty(t, results)
		assert.True(t, ws.sink.Contains(outputtest.LevelInfo, "No interrupted branch sessions found"))
	})

	t.Run("Should finish a session that was never released", func(t *testing.T) {
		// Arrange
		ws := newWorkspace(t)
		ws.repo.MakeDirty()
		statusBefore := ws.repo.Status()
		scope, err := ws.branches.Acquire(ctx, "")
		require.NoError(t, err)
		require.True(t, scope.UsesTempBranch())
		uc := &RecoverBranchesUseCase{Branches: ws.branches, Sink: ws.sink}

		// Act
		results, err := uc.Execute(ctx)

		// Assert
		require.NoError(t, err)
		require.Len(t, results, 1)
		assert.Equal(t, statusBefore, ws.repo.Status())
		assert.Empty(t, ws.tempBranches())
		assert.True(t, ws.sink.Contains(outputtest.LevelSuccess, "deleted "+scope.ValidationBranch()))
	})
}

func TestListTempBranchesUseCase_Execute(t *testing.T) {
	t.Run("Should list temp branches and pending sessions", func(t *testing.T) {
		ctx := context.Background()
		ws := newWorkspace(t)
		ws.repo.AddUntracked()
		scope, err := ws.branches.Acquire(ctx, "")
		require.NoError(t, err)
		uc := &ListTempBranchesUseCase{Branches: ws.branches}

		listing, err := uc.Execute(ctx)

		require.NoError(t, err)
		assert.Equal(t, []string{scope.ValidationBranch()}, listing.Local)
		assert.Equal(t, []string{scope.ValidationBranch()}, listing.Remote)
		require.Len(t, listing.Pending, 1)
		assert.Equal(t, scope.ValidationBranch(), listing.Pending[0].Branch.TempBranchName)
		require.NoError(t, scope.Release(ctx))
	})

	t.Run("Should fail outside of a repository", func(t *testing.T) {
		uc := &ListTempBranchesUseCase{Branches: noGit(outputtest.New())}
		_, err := uc.Execute(context.Background())
		assert.Error(t, err)
	})
}

var _ repository.ReleaseRepository = (*mockReleases)(nil)
