package orchestrator

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/QualiSystems/colony-cli/internal/domain"
	"github.com/QualiSystems/colony-cli/internal/repository"
	"github.com/spf13/afero"
)

// Rollback data keys
const (
	keyBranchName     = "branch_name"
	keyOriginalBranch = "original_branch"
	keyStashed        = "stashed"
	keyPushed         = "pushed"
	keyCommitted      = "committed"
	keyMarkers        = "markers"
)

// CompensatingActions provides idempotent undo operations for temp branch creation steps
type CompensatingActions struct {
	gitRepo repository.GitRepository
	fs      afero.Fs
	session *domain.TempBranchSession
}

// NewCompensatingActions creates a compensating actions handler bound to session
func NewCompensatingActions(
	gitRepo repository.GitRepository,
	fs afero.Fs,
	session *domain.TempBranchSession,
) *CompensatingActions {
	return &CompensatingActions{gitRepo: gitRepo, fs: fs, session: session}
}

// RemoveMarkers deletes the placeholder files of the preserve step
func (ca *CompensatingActions) RemoveMarkers(_ context.Context, _ map[string]any) error {
	return RemoveMarkers(ca.fs, ca.gitRepo.WorkDir())
}

// PopStash restores the stashed local changes, at most once per session
func (ca *CompensatingActions) PopStash(ctx context.Context, rollbackData map[string]any) error {
	if !boolValue(rollbackData, keyStashed) || ca.session.StashPopped {
		return nil
	}
	if err := ca.gitRepo.StashPop(ctx); err != nil {
		return fmt.Errorf("failed to restore stashed changes: %w", err)
	}
	ca.session.StashPopped = true
	return nil
}

// AbandonBranch switches back to the original branch and deletes the local temp branch
func (ca *CompensatingActions) AbandonBranch(ctx context.Context, rollbackData map[string]any) error {
	branchName := stringValue(rollbackData, keyBranchName)
	if branchName == "" {
		return fmt.Errorf("%s not found in rollback data", keyBranchName)
	}
	if err := ca.switchFromBranchIfNeeded(ctx, branchName, stringValue(rollbackData, keyOriginalBranch)); err != nil {
		return err
	}
	return ca.deleteLocalBranchIfExists(ctx, branchName)
}

// DiscardTempCommit drops anything left in the work tree while it is on the temp branch
func (ca *CompensatingActions) DiscardTempCommit(ctx context.Context, rollbackData map[string]any) error {
	if !boolValue(rollbackData, keyCommitted) {
		return nil
	}
	current, err := ca.gitRepo.CurrentBranch(ctx)
	if err != nil || current != ca.session.TempBranchName {
		return nil
	}
	return ca.gitRepo.DiscardWorkingChanges(ctx)
}

// DeleteRemoteBranch idempotently deletes the pushed temp branch
func (ca *CompensatingActions) DeleteRemoteBranch(ctx context.Context, rollbackData map[string]any) error {
	branchName := stringValue(rollbackData, keyBranchName)
	if !boolValue(rollbackData, keyPushed) || branchName == "" {
		return nil
	}
	if err := ca.gitRepo.DeleteRemoteBranch(ctx, branchName); err != nil {
		return err
	}
	ca.session.TempBranchExists = false
	return nil
}

func (ca *CompensatingActions) switchFromBranchIfNeeded(ctx context.Context, branchName, originalBranch string) error {
	currentBranch, err := ca.gitRepo.CurrentBranch(ctx)
	if err != nil || currentBranch != branchName {
		return nil
	}
	if originalBranch == "" {
		return fmt.Errorf("cannot switch from branch %s: original branch unknown", branchName)
	}
	if err := ca.gitRepo.CheckoutBranch(ctx, originalBranch); err != nil {
		return fmt.Errorf("cannot switch from branch %s to %s: %w", branchName, originalBranch, err)
	}
	return nil
}

func (ca *CompensatingActions) deleteLocalBranchIfExists(ctx context.Context, branchName string) error {
	if !branchExistsLocally(ctx, ca.gitRepo, branchName) {
		return nil
	}
	if err := ca.gitRepo.DeleteBranch(ctx, branchName); err != nil {
		if !strings.Contains(err.Error(), "not found") {
			return fmt.Errorf("failed to delete local branch %s: %w", branchName, err)
		}
	}
	return nil
}

// Helper methods for idempotency checks

func branchExistsLocally(ctx context.Context, gitRepo repository.GitRepository, branchName string) bool {
	branches, err := gitRepo.ListLocalBranches(ctx)
	if err != nil {
		return false
	}
	return slices.Contains(branches, branchName)
}

func branchExistsRemotely(ctx context.Context, gitRepo repository.GitRepository, branchName string) bool {
	branches, err := gitRepo.ListRemoteBranches(ctx)
	if err != nil {
		return false
	}
	return slices.Contains(branches, branchName)
}

func stringValue(data map[string]any, key string) string {
	value, _ := data[key].(string)
	return value
}

func boolValue(data map[string]any, key string) bool {
	value, _ := data[key].(bool)
	return value
}
