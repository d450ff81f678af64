package usecase

import (
	"context"
	"testing"

	"github.com/QualiSystems/colony-cli/internal/domain"
	"github.com/QualiSystems/colony-cli/internal/output/outputtest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestValidateBlueprintUseCase_Execute(t *testing.T) {
	ctx := context.Background()

	t.Run("Should validate against an explicit branch and commit", func(t *testing.T) {
		// Arrange
		blueprints := new(mockBlueprints)
		blueprints.On("Validate", mock.Anything, "demo", domain.BlueprintSource{Branch: "dev", Commit: "abc123"}).
			Return(&domain.Blueprint{Name: "demo"}, nil)
		uc := &ValidateBlueprintUseCase{Blueprints: blueprints, Branches: noGit(outputtest.New())}

		// Act
		bp, err := uc.Execute(ctx, ValidateBlueprintInput{Name: "demo", Branch: "dev", Commit: "abc123"})

		// Assert
		require.NoError(t, err)
		assert.Equal(t, "demo", bp.Name)
		blueprints.AssertExpectations(t)
	})

	t.Run("Should reject a commit without a branch before any call", func(t *testing.T) {
		blueprints := new(mockBlueprints)
		uc := &ValidateBlueprintUseCase{Blueprints: blueprints, Branches: noGit(outputtest.New())}

		_, err := uc.Execute(ctx, ValidateBlueprintInput{Name: "demo", Commit: "abc123"})

		assert.ErrorIs(t, err, domain.ErrUsage)
		blueprints.AssertNotCalled(t, "Validate", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("Should report validation errors", func(t *testing.T) {
		blueprints := new(mockBlueprints)
		blueprints.On("Validate", mock.Anything, "demo", mock.Anything).Return(&domain.Blueprint{
			Name:   "demo",
			Errors: []domain.ValidationError{{Name: "inputs", Message: "unknown input"}},
		}, nil)
		uc := &ValidateBlueprintUseCase{Blueprints: blueprints, Branches: noGit(outputtest.New())}

		bp, err := uc.Execute(ctx, ValidateBlueprintInput{Name: "demo", Branch: "dev"})

		assert.ErrorIs(t, err, ErrBlueprintInvalid)
		require.NotNil(t, bp)
		assert.Len(t, bp.Errors, 1)
	})

	t.Run("Should refuse a repository without blueprints before any call", func(t *testing.T) {
		// Arrange
		ws := newWorkspace(t)
		ws.repo.Git("rm", "-r", "-q", "blueprints")
		ws.repo.Git("commit", "-q", "-m", "drop blueprints")
		ws.repo.Git("push", "-q", "origin", ws.repo.Branch)
		ws.repo.AddUntracked()
		blueprints := new(mockBlueprints)
		uc := &ValidateBlueprintUseCase{Blueprints: blueprints, Branches: ws.branches, Sink: ws.sink}

		// Act
		_, err := uc.Execute(ctx, ValidateBlueprintInput{Name: "demo"})

		// Assert
		assert.ErrorIs(t, err, domain.ErrBadRepository)
		blueprints.AssertNotCalled(t, "Validate", mock.Anything, mock.Anything, mock.Anything)
		assert.Empty(t, ws.tempBranches())
		assert.Equal(t, 0, ws.repo.StashCount())
	})

	t.Run("Should fail outside of a repository without a branch", func(t *testing.T) {
		blueprints := new(mockBlueprints)
		uc := &ValidateBlueprintUseCase{Blueprints: blueprints, Branches: noGit(outputtest.New())}

		_, err := uc.Execute(ctx, ValidateBlueprintInput{Name: "demo"})

		assert.ErrorIs(t, err, domain.ErrBadRepository)
		blueprints.AssertNotCalled(t, "Validate", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("Should validate local changes and clean up after a remote failure", func(t *testing.T) {
		// Arrange
		ws := newWorkspace(t)
		ws.repo.MakeDirty()
		ws.repo.AddUntracked()
		statusBefore := ws.repo.Status()
		remoteErr := domain.NewError(domain.ErrRemoteCallFailed, "", assert.AnError)
		blueprints := new(mockBlueprints)
		blueprints.On("Validate", mock.Anything, "demo", mock.MatchedBy(isTempBranch)).
			Run(func(args mock.Arguments) {
				source := args.Get(2).(domain.BlueprintSource)
				assert.Contains(t, ws.repo.RemoteBranches(), source.Branch)
			}).
			Return(nil, remoteErr)
		uc := &ValidateBlueprintUseCase{Blueprints: blueprints, Branches: ws.branches, Sink: ws.sink}

		// Act
		_, err := uc.Execute(ctx, ValidateBlueprintInput{Name: "demo"})

		// Assert
		assert.ErrorIs(t, err, domain.ErrRemoteCallFailed)
		blueprints.AssertExpectations(t)
		assert.Equal(t, ws.repo.Branch, ws.repo.CurrentBranch())
		assert.Equal(t, statusBefore, ws.repo.Status())
		assert.Empty(t, ws.tempBranches())
	})

	t.Run("Should use the synced branch as is", func(t *testing.T) {
		ws := newWorkspace(t)
		blueprints := new(mockBlueprints)
		blueprints.On("Validate", mock.Anything, "demo", domain.BlueprintSource{Branch: ws.repo.Branch}).
			Return(&domain.Blueprint{Name: "demo"}, nil)
		uc := &ValidateBlueprintUseCase{Blueprints: blueprints, Branches: ws.branches, Sink: ws.sink}

		_, err := uc.Execute(ctx, ValidateBlueprintInput{Name: "demo"})

		require.NoError(t, err)
		blueprints.AssertExpectations(t)
	})
}

func TestListBlueprintsUseCase_Execute(t *testing.T) {
	t.Run("Should return the space blueprints", func(t *testing.T) {
		blueprints := new(mockBlueprints)
		blueprints.On("List", mock.Anything).Return([]domain.Blueprint{{Name: "a"}, {Name: "b"}}, nil)
		uc := &ListBlueprintsUseCase{Blueprints: blueprints}
		list, err := uc.Execute(context.Background())
		require.NoError(t, err)
		assert.Len(t, list, 2)
	})
}
