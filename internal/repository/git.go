package repository

import (
	"context"

	"github.com/QualiSystems/colony-cli/internal/domain"
)

// WorkingCopyInspector answers read-only questions about the local checkout.
type WorkingCopyInspector interface {
	IsDetached(ctx context.Context) (bool, error)
	IsDirty(ctx context.Context) (bool, error)
	UntrackedFiles(ctx context.Context) ([]string, error)
	CurrentBranch(ctx context.Context) (string, error)
	CurrentBranchExistsOnRemote(ctx context.Context) (bool, error)
	IsCurrentBranchSynced(ctx context.Context) (bool, error)
	IsFullySyncedWithRemote(ctx context.Context) (bool, error)
	State(ctx context.Context) (domain.WorkingCopyState, error)
}

// GitRepository adds the mutations the temp branch orchestrator performs.
type GitRepository interface {
	WorkingCopyInspector
	WorkDir() string
	GitDir() string
	StashCount(ctx context.Context) (int, error)
	StashPush(ctx context.Context) error
	StashApply(ctx context.Context) error
	StashPop(ctx context.Context) error
	CheckoutNewBranch(ctx context.Context, name string) error
	CheckoutBranch(ctx context.Context, name string) error
	AddAll(ctx context.Context) error
	Commit(ctx context.Context, message string) error
	DiscardWorkingChanges(ctx context.Context) error
	PushBranch(ctx context.Context, name string) error
	DeleteBranch(ctx context.Context, name string) error
	DeleteRemoteBranch(ctx context.Context, name string) error
	ListLocalBranches(ctx context.Context) ([]string, error)
	ListRemoteBranches(ctx context.Context) ([]string, error)
}
