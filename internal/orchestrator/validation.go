package orchestrator

import (
	"fmt"

	"github.com/QualiSystems/colony-cli/internal/domain"
	"github.com/go-git/go-git/v5/plumbing"
)

// ValidateBranchName checks branch against git's reference name rules.
func ValidateBranchName(branch string) error {
	if branch == "" {
		return fmt.Errorf("branch name cannot be empty")
	}
	if err := plumbing.NewBranchReferenceName(branch).Validate(); err != nil {
		return fmt.Errorf("invalid branch name %q: %w", branch, err)
	}
	return nil
}

// ValidateSource rejects a commit without a branch and malformed explicit branch names. It runs
// before any git or remote operation.
func ValidateSource(branch, commit string) error {
	if commit != "" && branch == "" {
		return domain.UsageError("Since commit is specified, branch is required")
	}
	if branch == "" {
		return nil
	}
	if err := ValidateBranchName(branch); err != nil {
		return domain.NewError(domain.ErrUsage, "", err)
	}
	return nil
}
