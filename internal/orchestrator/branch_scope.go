package orchestrator

import (
	"context"
	"sync"

	"github.com/QualiSystems/colony-cli/internal/domain"
)

// BranchScope binds a validation branch to the command using it. Release unwinds the temp branch
// and stash exactly once, whichever way the command exits.
type BranchScope struct {
	orch    *TempBranchOrchestrator
	session *domain.TempBranchSession

	once       sync.Once
	releaseErr error
}

// Acquire resolves the validation branch for the caller. When creation of a temp branch fails the
// scope is unusable: nil is returned with an ErrBranchCreationFailed error.
func (o *TempBranchOrchestrator) Acquire(ctx context.Context, explicitBranch string) (*BranchScope, error) {
	session, err := o.Prepare(ctx, explicitBranch)
	if err != nil {
		return nil, err
	}
	return &BranchScope{orch: o, session: session}, nil
}

func (s *BranchScope) Session() *domain.TempBranchSession { return s.session }

// ValidationBranch is the branch name to hand to the remote API.
func (s *BranchScope) ValidationBranch() string { return s.session.ValidationBranch() }

func (s *BranchScope) WorkingBranch() string { return s.session.WorkingBranch }

func (s *BranchScope) UsesTempBranch() bool { return s.session.UsesTempBranch() }

func (s *BranchScope) TempBranchExists() bool { return s.session.TempBranchExists }

// RevertLocal gives the user their branch back while the temp branch stays on the remote.
func (s *BranchScope) RevertLocal(ctx context.Context) error {
	return s.orch.RevertLocal(ctx, s.session)
}

// ReclaimTempBranch deletes the temp branch before the scope ends.
func (s *BranchScope) ReclaimTempBranch(ctx context.Context) error {
	return s.orch.DeleteTempBranch(ctx, s.session)
}

// Release runs the teardown once. It ignores cancellation of ctx so an interrupted command still
// restores the working copy, bounded by RollbackTimeout.
func (s *BranchScope) Release(ctx context.Context) error {
	s.once.Do(func() {
		releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), RollbackTimeout)
		defer cancel()
		s.releaseErr = s.orch.Teardown(releaseCtx, s.session)
	})
	return s.releaseErr
}
