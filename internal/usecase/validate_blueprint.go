package usecase

import (
	"context"
	"errors"

	"github.com/QualiSystems/colony-cli/internal/domain"
	"github.com/QualiSystems/colony-cli/internal/orchestrator"
	"github.com/QualiSystems/colony-cli/internal/output"
	"github.com/QualiSystems/colony-cli/internal/service"
)

// ErrBlueprintInvalid is returned when the service reports validation errors.
var ErrBlueprintInvalid = errors.New("blueprint validation failed")

type ValidateBlueprintInput struct {
	Name   string
	Branch string
	Commit string
}

// ValidateBlueprintUseCase contains the logic for the blueprint validate command.
type ValidateBlueprintUseCase struct {
	Blueprints service.BlueprintsManager
	Branches   *orchestrator.TempBranchOrchestrator
	Sink       output.Sink
}

// Execute validates the blueprint as seen on the validation branch. The returned blueprint
// carries the reported errors even when ErrBlueprintInvalid is returned.
func (uc *ValidateBlueprintUseCase) Execute(ctx context.Context, in ValidateBlueprintInput) (bp *domain.Blueprint, err error) {
	if in.Name == "" {
		return nil, domain.UsageError("blueprint name is required")
	}
	if err := orchestrator.ValidateSource(in.Branch, in.Commit); err != nil {
		return nil, err
	}
	scope, err := uc.Branches.Acquire(ctx, in.Branch)
	if err != nil {
		return nil, err
	}
	defer releaseScope(ctx, scope, sinkOrNop(uc.Sink), &err)

	bp, err = uc.Blueprints.Validate(ctx, in.Name, domain.BlueprintSource{
		Branch: scope.ValidationBranch(),
		Commit: in.Commit,
	})
	if err != nil {
		return nil, err
	}
	if !bp.IsValid() {
		return bp, ErrBlueprintInvalid
	}
	return bp, nil
}

// ListBlueprintsUseCase contains the logic for the blueprint list command.
type ListBlueprintsUseCase struct {
	Blueprints service.BlueprintsManager
}

func (uc *ListBlueprintsUseCase) Execute(ctx context.Context) ([]domain.Blueprint, error) {
	return uc.Blueprints.List(ctx)
}
