package usecase

import (
	"context"
	"errors"
	"fmt"

	"github.com/QualiSystems/colony-cli/internal/domain"
	"github.com/QualiSystems/colony-cli/internal/orchestrator"
	"github.com/QualiSystems/colony-cli/internal/output"
)

// RecoverBranchesUseCase contains the logic for the branch recover command.
type RecoverBranchesUseCase struct {
	Branches *orchestrator.TempBranchOrchestrator
	Sink     output.Sink
}

// Execute finishes every interrupted branch session. It fails when any session could not be
// finished; the others are still recovered.
func (uc *RecoverBranchesUseCase) Execute(ctx context.Context) ([]orchestrator.RecoveryResult, error) {
	sink := sinkOrNop(uc.Sink)
	results, err := uc.Branches.Recover(ctx)
	if err != nil && len(results) == 0 {
		return nil, fmt.Errorf("failed to load branch sessions: %w", err)
	}
	if err != nil {
		sink.Warn("Some branch sessions could not be read: %v", err)
	}
	if len(results) == 0 {
		sink.Info("No interrupted branch sessions found")
		return nil, nil
	}
	var errs []error
	for _, r := range results {
		if r.Err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", r.Session.TempBranchName, r.Err))
			continue
		}
		sink.Success("Restored %s and deleted %s", r.Session.WorkingBranch, r.Session.TempBranchName)
	}
	return results, errors.Join(errs...)
}

type TempBranchListing struct {
	Local   []string
	Remote  []string
	Pending []*domain.SessionState
}

// ListTempBranchesUseCase contains the logic for the branch list command.
type ListTempBranchesUseCase struct {
	Branches *orchestrator.TempBranchOrchestrator
}

func (uc *ListTempBranchesUseCase) Execute(ctx context.Context) (*TempBranchListing, error) {
	local, remote, err := uc.Branches.TempBranches(ctx)
	if err != nil {
		return nil, err
	}
	pending, err := uc.Branches.Pending(ctx)
	if err != nil && len(pending) == 0 {
		return nil, err
	}
	return &TempBranchListing{Local: local, Remote: remote, Pending: pending}, nil
}
