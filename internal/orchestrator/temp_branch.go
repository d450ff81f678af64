package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"

	"github.com/QualiSystems/colony-cli/internal/domain"
	"github.com/QualiSystems/colony-cli/internal/output"
	"github.com/QualiSystems/colony-cli/internal/repository"
	"github.com/google/uuid"
	"github.com/sethvargo/go-retry"
	"github.com/spf13/afero"
	"go.uber.org/zap"
)

const createFailedMessage = "Was not able to push your latest changes to temp branch for validation"

// TempBranchOrchestrator produces the branch a remote call reads from and unwinds any
// temporary branch and stash it created for that purpose.
type TempBranchOrchestrator struct {
	gitRepo  repository.GitRepository
	fs       afero.Fs
	sessions repository.SessionRepository
	sink     output.Sink
	logger   *zap.Logger

	newName func(workingBranch string) string
	newID   func() string

	mu      sync.Mutex
	records map[string]*domain.SessionState
}

// NewTempBranchOrchestrator wires the orchestrator. gitRepo may be nil when only explicit
// branches are used; sessions may be nil to disable persistence.
func NewTempBranchOrchestrator(
	gitRepo repository.GitRepository,
	fs afero.Fs,
	sessions repository.SessionRepository,
	sink output.Sink,
	logger *zap.Logger,
) *TempBranchOrchestrator {
	if sink == nil {
		sink = output.Nop()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if fs == nil {
		fs = afero.NewOsFs()
	}
	return &TempBranchOrchestrator{
		gitRepo:  gitRepo,
		fs:       fs,
		sessions: sessions,
		sink:     sink,
		logger:   logger,
		newName:  GenerateTempBranchName,
		newID:    func() string { return uuid.New().String() },
		records:  map[string]*domain.SessionState{},
	}
}

// Prepare resolves the validation branch. An explicit branch is used as is. Otherwise the active
// branch is used when the working copy is fully synced, and a temp branch carrying the local
// state is created when it is not.
func (o *TempBranchOrchestrator) Prepare(ctx context.Context, explicitBranch string) (*domain.TempBranchSession, error) {
	if explicitBranch != "" {
		return &domain.TempBranchSession{
			ID:            o.newID(),
			WorkingBranch: explicitBranch,
			Phase:         domain.PhaseDone,
		}, nil
	}
	if o.gitRepo == nil {
		return nil, domain.BadRepository("Not a git folder", nil)
	}
	if err := o.checkBlueprintsDir(); err != nil {
		return nil, err
	}
	state, err := o.gitRepo.State(ctx)
	if err != nil {
		return nil, err
	}
	if state.IsDetached {
		return nil, domain.BadRepository("Repo's HEAD is in detached state", nil)
	}
	session := &domain.TempBranchSession{
		ID:            o.newID(),
		WorkingBranch: state.ActiveBranchName,
		Phase:         domain.PhaseIdle,
	}
	o.sink.FYI("Automatically detected current working branch: %s", session.WorkingBranch)
	o.logState(state)
	if state.IsFullySyncedWithRemote() {
		session.Phase = domain.PhaseDone
		return session, nil
	}
	if err := o.create(ctx, session, state); err != nil {
		return session, err
	}
	o.sink.Info("Using your local blueprint changes (including uncommitted changes and/or untracked files)")
	o.logger.Debug("using temp branch", zap.String("branch", session.TempBranchName))
	return session, nil
}

// checkBlueprintsDir fails unless the work tree holds a blueprints directory.
func (o *TempBranchOrchestrator) checkBlueprintsDir() error {
	dir := filepath.Join(o.gitRepo.WorkDir(), repository.BlueprintsDir)
	info, err := o.fs.Stat(dir)
	if err != nil || !info.IsDir() {
		return domain.BadRepository("Repo doesn't have 'blueprints' dir", nil)
	}
	return nil
}

func (o *TempBranchOrchestrator) logState(state domain.WorkingCopyState) {
	o.logger.Debug("working copy",
		zap.String("branch", state.ActiveBranchName),
		zap.Bool("dirty", state.IsDirty),
		zap.Bool("untracked", state.HasUntracked),
		zap.Bool("exists_on_remote", state.ExistsOnRemote),
		zap.Bool("synced", state.IsSyncedWithRemote),
	)
}

// create runs the creation transaction. Any failure unwinds the completed steps.
func (o *TempBranchOrchestrator) create(
	ctx context.Context,
	session *domain.TempBranchSession,
	state domain.WorkingCopyState,
) error {
	session.TempBranchName = o.newName(session.WorkingBranch)
	session.Phase = domain.PhasePreparing
	record := o.track(session)
	acts := NewCompensatingActions(o.gitRepo, o.fs, session)
	saga := NewSagaExecutor(record, o.sessions, o.logger)
	hasLocalChanges := state.IsDirty || state.HasUntracked
	if hasLocalChanges {
		saga.AddStep(SagaStep{
			Name:       "preserve empty directories",
			Type:       domain.OperationTypePreserveEmptyDirs,
			Execute:    o.preserveEmptyDirs,
			Compensate: acts.RemoveMarkers,
		})
		saga.AddStep(SagaStep{
			Name:       "stash local changes",
			Type:       domain.OperationTypeStashChanges,
			Execute:    func(ctx context.Context) (map[string]any, error) { return o.stashChanges(ctx, session) },
			Compensate: acts.PopStash,
		})
	}
	saga.AddStep(SagaStep{
		Name: "create temp branch",
		Type: domain.OperationTypeCreateBranch,
		Execute: func(ctx context.Context) (map[string]any, error) {
			if err := o.gitRepo.CheckoutNewBranch(ctx, session.TempBranchName); err != nil {
				return nil, err
			}
			if !hasLocalChanges {
				session.Phase = domain.PhaseLocalCommitted
			}
			return map[string]any{
				keyBranchName:     session.TempBranchName,
				keyOriginalBranch: session.WorkingBranch,
			}, nil
		},
		Compensate: acts.AbandonBranch,
	})
	if hasLocalChanges {
		saga.AddStep(SagaStep{
			Name:       "commit local changes",
			Type:       domain.OperationTypeCommitChanges,
			Execute:    func(ctx context.Context) (map[string]any, error) { return o.commitChanges(ctx, session) },
			Compensate: acts.DiscardTempCommit,
		})
	}
	saga.AddStep(SagaStep{
		Name:      "push temp branch",
		Type:      domain.OperationTypePushBranch,
		Retryable: true,
		Execute: func(ctx context.Context) (map[string]any, error) {
			if err := o.gitRepo.PushBranch(ctx, session.TempBranchName); err != nil {
				return nil, err
			}
			session.TempBranchExists = true
			session.Phase = domain.PhaseRemotePushed
			return map[string]any{keyBranchName: session.TempBranchName, keyPushed: true}, nil
		},
		Compensate: acts.DeleteRemoteBranch,
	})
	if err := saga.Execute(ctx); err != nil {
		o.finishFailedCreate(context.WithoutCancel(ctx), session, record)
		return domain.NewError(domain.ErrBranchCreationFailed, createFailedMessage, err)
	}
	session.Phase = domain.PhaseInUse
	o.save(ctx, record)
	return nil
}

func (o *TempBranchOrchestrator) preserveEmptyDirs(_ context.Context) (map[string]any, error) {
	markers, err := CreateMarkers(o.fs, o.gitRepo.WorkDir())
	if err != nil {
		if rmErr := RemoveMarkers(o.fs, o.gitRepo.WorkDir()); rmErr != nil {
			return nil, errors.Join(err, rmErr)
		}
		return nil, err
	}
	return map[string]any{keyMarkers: len(markers)}, nil
}

// stashChanges pushes a stash entry and records whether one was actually created. A failed push
// that still left an entry behind pops it again.
func (o *TempBranchOrchestrator) stashChanges(ctx context.Context, session *domain.TempBranchSession) (map[string]any, error) {
	before, err := o.gitRepo.StashCount(ctx)
	if err != nil {
		return nil, err
	}
	pushErr := o.gitRepo.StashPush(ctx)
	after, countErr := o.gitRepo.StashCount(ctx)
	if countErr != nil {
		return nil, errors.Join(pushErr, countErr)
	}
	session.Stashed = after > before
	if pushErr != nil {
		if session.Stashed {
			if popErr := o.gitRepo.StashPop(ctx); popErr != nil {
				return nil, errors.Join(pushErr, popErr)
			}
			session.StashPopped = true
		}
		return nil, pushErr
	}
	return map[string]any{keyStashed: session.Stashed}, nil
}

// commitChanges re-applies the stash on the temp branch without dropping it and commits the
// result. A failure leaves the temp branch work tree clean.
func (o *TempBranchOrchestrator) commitChanges(ctx context.Context, session *domain.TempBranchSession) (map[string]any, error) {
	if !session.Stashed {
		session.Phase = domain.PhaseLocalCommitted
		return map[string]any{keyCommitted: false}, nil
	}
	err := o.gitRepo.StashApply(ctx)
	if err == nil {
		err = o.gitRepo.AddAll(ctx)
	}
	if err == nil {
		err = o.gitRepo.Commit(ctx, repository.TempCommitMessage)
	}
	if err != nil {
		if discardErr := o.gitRepo.DiscardWorkingChanges(ctx); discardErr != nil {
			return nil, errors.Join(err, discardErr)
		}
		return nil, err
	}
	session.Phase = domain.PhaseLocalCommitted
	return map[string]any{keyCommitted: true}, nil
}

// finishFailedCreate decides whether the unwind left anything behind.
func (o *TempBranchOrchestrator) finishFailedCreate(ctx context.Context, session *domain.TempBranchSession, record *domain.SessionState) {
	// a push can reach the remote and still report failure
	if !session.TempBranchExists && branchExistsRemotely(ctx, o.gitRepo, session.TempBranchName) {
		if err := o.gitRepo.DeleteRemoteBranch(ctx, session.TempBranchName); err != nil {
			session.TempBranchExists = true
		}
	}
	leftovers := session.TempBranchExists || (session.Stashed && !session.StashPopped)
	if current, err := o.gitRepo.CurrentBranch(ctx); err != nil || current != session.WorkingBranch {
		leftovers = true
	}
	if branchExistsLocally(ctx, o.gitRepo, session.TempBranchName) {
		leftovers = true
	}
	if leftovers {
		session.Phase = domain.PhaseRevertFailed
		o.save(ctx, record)
		o.sink.Warn("Local state could not be fully restored; run 'colony branch recover'")
		return
	}
	session.Phase = domain.PhaseCreateFailed
	session.TempBranchReverted = true
	o.forget(ctx, session.ID)
}

// RevertLocal checks out the working branch and pops the stash. It runs at most once per session.
func (o *TempBranchOrchestrator) RevertLocal(ctx context.Context, session *domain.TempBranchSession) error {
	if session == nil || !session.UsesTempBranch() || session.TempBranchReverted {
		return nil
	}
	record := o.track(session)
	current, err := o.gitRepo.CurrentBranch(ctx)
	if err != nil {
		return o.revertFailed(ctx, session, record, err)
	}
	if current != session.WorkingBranch {
		if current == session.TempBranchName && session.Stashed && !session.StashPopped {
			// local changes are safe in the stash
			if err := o.gitRepo.DiscardWorkingChanges(ctx); err != nil {
				return o.revertFailed(ctx, session, record, err)
			}
		}
		o.logger.Debug("checking out working branch", zap.String("branch", session.WorkingBranch))
		if err := o.gitRepo.CheckoutBranch(ctx, session.WorkingBranch); err != nil {
			return o.revertFailed(ctx, session, record, err)
		}
	}
	if session.Stashed && !session.StashPopped {
		if err := o.gitRepo.StashPop(ctx); err != nil {
			return o.revertFailed(ctx, session, record, err)
		}
		session.StashPopped = true
		if err := RemoveMarkers(o.fs, o.gitRepo.WorkDir()); err != nil {
			o.sink.Warn("Failed to remove placeholder files: %v", err)
		}
	}
	session.TempBranchReverted = true
	session.Phase = domain.PhaseLocalReverted
	o.save(ctx, record)
	return nil
}

func (o *TempBranchOrchestrator) revertFailed(
	ctx context.Context,
	session *domain.TempBranchSession,
	record *domain.SessionState,
	err error,
) error {
	session.Phase = domain.PhaseRevertFailed
	record.Error = err.Error()
	o.save(ctx, record)
	return domain.NewError(domain.ErrRevertFailed,
		fmt.Sprintf("failed to restore branch %s from %s", session.WorkingBranch, session.TempBranchName), err)
}

// DeleteTempBranch reverts local state if needed, then deletes the local and remote temp branch.
// Branches are never deleted while the local revert is outstanding.
func (o *TempBranchOrchestrator) DeleteTempBranch(ctx context.Context, session *domain.TempBranchSession) error {
	if session == nil || !session.UsesTempBranch() {
		return nil
	}
	uncertain := remoteStateUncertain(session.Phase)
	if err := o.RevertLocal(ctx, session); err != nil {
		return err
	}
	name := session.TempBranchName
	if !domain.IsTempBranchName(name) {
		return fmt.Errorf("refusing to delete %s: not a temp branch", name)
	}
	record := o.track(session)
	var errs []error
	if branchExistsLocally(ctx, o.gitRepo, name) {
		o.logger.Debug("deleting local branch", zap.String("branch", name))
		if err := o.gitRepo.DeleteBranch(ctx, name); err != nil {
			errs = append(errs, err)
		}
	}
	if session.TempBranchExists || (uncertain && branchExistsRemotely(ctx, o.gitRepo, name)) {
		o.logger.Debug("deleting remote branch", zap.String("branch", name))
		backoff := retry.WithMaxRetries(DefaultRetryCount, retry.NewExponential(DefaultRetryDelay))
		err := retry.Do(ctx, backoff, func(ctx context.Context) error {
			return retry.RetryableError(o.gitRepo.DeleteRemoteBranch(ctx, name))
		})
		if err != nil {
			errs = append(errs, err)
		} else {
			session.TempBranchExists = false
		}
	}
	if len(errs) > 0 {
		o.save(ctx, record)
		return fmt.Errorf("failed to delete temp branch %s: %w", name, errors.Join(errs...))
	}
	session.Phase = domain.PhaseRemoteDeleted
	o.save(ctx, record)
	return nil
}

// remoteStateUncertain reports phases in which a push may have happened without being recorded.
func remoteStateUncertain(phase domain.BranchPhase) bool {
	switch phase {
	case domain.PhasePreparing, domain.PhaseLocalCommitted, domain.PhaseRevertFailed:
		return true
	default:
		return false
	}
}

// Teardown fully unwinds session. Calling it again after success is a no-op.
func (o *TempBranchOrchestrator) Teardown(ctx context.Context, session *domain.TempBranchSession) error {
	if session == nil || session.Phase == domain.PhaseDone {
		return nil
	}
	if !session.UsesTempBranch() {
		session.Phase = domain.PhaseDone
		return nil
	}
	if err := o.DeleteTempBranch(ctx, session); err != nil {
		return err
	}
	session.Phase = domain.PhaseDone
	o.forget(ctx, session.ID)
	return nil
}

// RecoveryResult is the outcome of finishing one interrupted session.
type RecoveryResult struct {
	Session *domain.TempBranchSession
	Err     error
}

// Recover finishes the teardown of every persisted session that still needs it.
func (o *TempBranchOrchestrator) Recover(ctx context.Context) ([]RecoveryResult, error) {
	if o.sessions == nil {
		return nil, fmt.Errorf("session store is not configured")
	}
	if o.gitRepo == nil {
		return nil, domain.BadRepository("Not a git folder", nil)
	}
	states, listErr := o.sessions.List(ctx)
	var results []RecoveryResult
	for _, state := range states {
		if !state.NeedsRecovery() {
			continue
		}
		o.mu.Lock()
		o.records[state.SessionID] = state
		o.mu.Unlock()
		err := o.Teardown(ctx, state.Branch)
		results = append(results, RecoveryResult{Session: state.Branch, Err: err})
	}
	return results, listErr
}

// Pending lists persisted sessions that still need recovery.
func (o *TempBranchOrchestrator) Pending(ctx context.Context) ([]*domain.SessionState, error) {
	if o.sessions == nil {
		return nil, nil
	}
	states, err := o.sessions.List(ctx)
	var pending []*domain.SessionState
	for _, state := range states {
		if state.NeedsRecovery() {
			pending = append(pending, state)
		}
	}
	return pending, err
}

// TempBranches lists local and remote branches carrying the temp prefix.
func (o *TempBranchOrchestrator) TempBranches(ctx context.Context) (local, remote []string, err error) {
	if o.gitRepo == nil {
		return nil, nil, domain.BadRepository("Not a git folder", nil)
	}
	locals, err := o.gitRepo.ListLocalBranches(ctx)
	if err != nil {
		return nil, nil, err
	}
	remotes, err := o.gitRepo.ListRemoteBranches(ctx)
	if err != nil {
		return nil, nil, err
	}
	return filterTemp(locals), filterTemp(remotes), nil
}

func filterTemp(branches []string) []string {
	var temp []string
	for _, b := range branches {
		if domain.IsTempBranchName(b) {
			temp = append(temp, b)
		}
	}
	return temp
}

func (o *TempBranchOrchestrator) track(session *domain.TempBranchSession) *domain.SessionState {
	o.mu.Lock()
	defer o.mu.Unlock()
	record, ok := o.records[session.ID]
	if !ok {
		record = domain.NewSessionState(session)
		o.records[session.ID] = record
	}
	record.Branch = session
	return record
}

func (o *TempBranchOrchestrator) save(ctx context.Context, record *domain.SessionState) {
	if o.sessions == nil {
		return
	}
	if err := o.sessions.Save(ctx, record); err != nil {
		o.logger.Warn("failed to save session state", zap.String("session", record.SessionID), zap.Error(err))
	}
}

func (o *TempBranchOrchestrator) forget(ctx context.Context, sessionID string) {
	o.mu.Lock()
	delete(o.records, sessionID)
	o.mu.Unlock()
	if o.sessions == nil {
		return
	}
	if err := o.sessions.Delete(ctx, sessionID); err != nil {
		o.logger.Warn("failed to delete session state", zap.String("session", sessionID), zap.Error(err))
	}
}
