package usecase

import (
	"context"
	"fmt"
	"slices"

	"github.com/QualiSystems/colony-cli/internal/domain"
	"github.com/QualiSystems/colony-cli/internal/service"
)

var listFilters = []string{service.FilterMy, service.FilterAll, service.FilterAuto}

// SandboxStatusUseCase contains the logic for the sandbox status command.
type SandboxStatusUseCase struct {
	Sandboxes service.SandboxesManager
}

func (uc *SandboxStatusUseCase) Execute(ctx context.Context, id string) (*domain.Sandbox, error) {
	if id == "" {
		return nil, domain.UsageError("sandbox id is required")
	}
	return uc.Sandboxes.Get(ctx, id)
}

// EndSandboxUseCase contains the logic for the sandbox end command.
type EndSandboxUseCase struct {
	Sandboxes service.SandboxesManager
}

func (uc *EndSandboxUseCase) Execute(ctx context.Context, id string) error {
	if id == "" {
		return domain.UsageError("sandbox id is required")
	}
	return uc.Sandboxes.End(ctx, id)
}

type ListSandboxesInput struct {
	Filter    string
	ShowEnded bool
	Count     int
}

// ListSandboxesUseCase contains the logic for the sandbox list command.
type ListSandboxesUseCase struct {
	Sandboxes service.SandboxesManager
}

// Execute lists sandboxes, hiding ended ones unless asked for.
func (uc *ListSandboxesUseCase) Execute(ctx context.Context, in ListSandboxesInput) ([]domain.Sandbox, error) {
	if in.Filter == "" {
		in.Filter = service.FilterMy
	}
	if !slices.Contains(listFilters, in.Filter) {
		return nil, domain.UsageError("--filter value must be in [my, all, auto]")
	}
	switch {
	case in.Count < 0:
		return nil, domain.UsageError("Count must be positive")
	case in.Count == 0:
		in.Count = service.DefaultListCount
	}
	sandboxes, err := uc.Sandboxes.List(ctx, in.Filter, in.Count)
	if err != nil {
		return nil, fmt.Errorf("failed to list sandboxes: %w", err)
	}
	if in.ShowEnded {
		return sandboxes, nil
	}
	return slices.DeleteFunc(sandboxes, func(sb domain.Sandbox) bool {
		return sb.Status == domain.SandboxEnded
	}), nil
}
