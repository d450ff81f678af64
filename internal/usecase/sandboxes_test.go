package usecase

import (
	"context"
	"testing"

	"github.com/QualiSystems/colony-cli/internal/domain"
	"github.com/QualiSystems/colony-cli/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestListSandboxesUseCase_Execute(t *testing.T) {
	ctx := context.Background()
	listed := []domain.Sandbox{
		{ID: "1", Status: domain.SandboxActive},
		{ID: "2", Status: domain.SandboxEnded},
		{ID: "3", Status: domain.SandboxLaunching},
	}

	t.Run("Should hide ended sandboxes by default", func(t *testing.T) {
		sandboxes := new(mockSandboxes)
		sandboxes.On("List", mock.Anything, service.FilterMy, service.DefaultListCount).
			Return(append([]domain.Sandbox(nil), listed...), nil)
		uc := &ListSandboxesUseCase{Sandboxes: sandboxes}

		result, err := uc.Execute(ctx, ListSandboxesInput{})

		require.NoError(t, err)
		require.Len(t, result, 2)
		assert.Equal(t, "1", result[0].ID)
		assert.Equal(t, "3", result[1].ID)
	})

	t.Run("Should show ended sandboxes on request", func(t *testing.T) {
		sandboxes := new(mockSandboxes)
		sandboxes.On("List", mock.Anything, service.FilterAll, 5).Return(append([]domain.Sandbox(nil), listed...), nil)
		uc := &ListSandboxesUseCase{Sandboxes: sandboxes}

		result, err := uc.Execute(ctx, ListSandboxesInput{Filter: service.FilterAll, Count: 5, ShowEnded: true})

		require.NoError(t, err)
		assert.Len(t, result, 3)
	})

	t.Run("Should reject an unknown filter", func(t *testing.T) {
		uc := &ListSandboxesUseCase{Sandboxes: new(mockSandboxes)}
		_, err := uc.Execute(ctx, ListSandboxesInput{Filter: "mine"})
		require.Error(t, err)
		assert.ErrorIs(t, err, domain.ErrUsage)
		assert.Equal(t, "--filter value must be in [my, all, auto]", err.Error())
	})

	t.Run("Should wrap list failures", func(t *testing.T) {
		sandboxes := new(mockSandboxes)
		sandboxes.On("List", mock.Anything, mock.Anything, mock.Anything).Return(nil, assert.AnError)
		uc := &ListSandboxesUseCase{Sandboxes: sandboxes}
		_, err := uc.Execute(ctx, ListSandboxesInput{})
		assert.ErrorIs(t, err, assert.AnError)
	})
}

func TestSandboxStatusUseCase_Execute(t *testing.T) {
	t.Run("Should fetch the sandbox", func(t *testing.T) {
		sandboxes := new(mockSandboxes)
		sandboxes.On("Get", mock.Anything, "sb-1").Return(&domain.Sandbox{ID: "sb-1", Status: domain.SandboxActive}, nil)
		uc := &SandboxStatusUseCase{Sandboxes: sandboxes}
		sb, err := uc.Execute(context.Background(), "sb-1")
		require.NoError(t, err)
		assert.Equal(t, domain.SandboxActive, sb.Status)
	})
	t.Run("Should require an id", func(t *testing.T) {
		uc := &SandboxStatusUseCase{Sandboxes: new(mockSandboxes)}
		_, err := uc.Execute(context.Background(), "")
		assert.ErrorIs(t, err, domain.ErrUsage)
	})
}

func TestEndSandboxUseCase_Execute(t *testing.T) {
	t.Run("Should end the sandbox", func(t *testing.T) {
		sandboxes := new(mockSandboxes)
		sandboxes.On("End", mock.Anything, "sb-1").Return(nil)
		uc := &EndSandboxUseCase{Sandboxes: sandboxes}
		require.NoError(t, uc.Execute(context.Background(), "sb-1"))
		sandboxes.AssertExpectations(t)
	})
	t.Run("Should pass the service error through", func(t *testing.T) {
		sandboxes := new(mockSandboxes)
		sandboxes.On("End", mock.Anything, "sb-1").Return(assert.AnError)
		uc := &EndSandboxUseCase{Sandboxes: sandboxes}
		assert.ErrorIs(t, uc.Execute(context.Background(), "sb-1"), assert.AnError)
	})
}
