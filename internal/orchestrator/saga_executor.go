package orchestrator

import (
	"context"
	"fmt"

	"github.com/QualiSystems/colony-cli/internal/domain"
	"github.com/QualiSystems/colony-cli/internal/repository"
	"github.com/sethvargo/go-retry"
	"go.uber.org/zap"
)

// SagaStep represents a single step of the temp branch creation transaction
type SagaStep struct {
	Name string
	Type domain.OperationType
	// Retryable steps are re-attempted with backoff. Local stash and checkout steps must not be,
	// since a half-applied retry could stash twice.
	Retryable  bool
	Execute    func(ctx context.Context) (rollbackData map[string]any, err error)
	Compensate func(ctx context.Context, rollbackData map[string]any) error
}

// SagaExecutor runs steps in order and compensates the completed ones in reverse order when a
// step fails. State is persisted after every transition when a repository is given.
type SagaExecutor struct {
	stateRepo repository.SessionRepository
	state     *domain.SessionState
	steps     []SagaStep
	logger    *zap.Logger
}

// NewSagaExecutor creates an executor recording into state. A nil stateRepo disables persistence.
func NewSagaExecutor(
	state *domain.SessionState,
	stateRepo repository.SessionRepository,
	logger *zap.Logger,
) *SagaExecutor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SagaExecutor{
		stateRepo: stateRepo,
		state:     state,
		steps:     []SagaStep{},
		logger:    logger,
	}
}

// AddStep adds a step to the saga
func (s *SagaExecutor) AddStep(step SagaStep) {
	s.steps = append(s.steps, step)
	s.state.AddOperation(step.Type)
}

// Execute runs the saga workflow with automatic rollback on failure
func (s *SagaExecutor) Execute(ctx context.Context) error {
	if err := s.saveState(ctx); err != nil {
		return fmt.Errorf("failed to save initial state: %w", err)
	}
	s.state.Status = domain.WorkflowStatusRunning
	for _, step := range s.steps {
		if err := s.executeStep(ctx, step); err != nil {
			s.state.MarkOperationFailed(step.Type, err)
			s.bestEffortSave(ctx, "before rollback")
			// rollback must complete even if the caller was cancelled
			rollbackCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), RollbackTimeout)
			rollbackErr := s.rollback(rollbackCtx)
			cancel()
			if rollbackErr != nil {
				return &RollbackError{Step: step.Name, Err: err, RollbackErr: rollbackErr}
			}
			return fmt.Errorf("step '%s' failed: %w", step.Name, err)
		}
	}
	s.state.Status = domain.WorkflowStatusCompleted
	s.bestEffortSave(ctx, "at completion")
	return nil
}

// RollbackError reports a failed step whose compensation failed as well.
type RollbackError struct {
	Step        string
	Err         error
	RollbackErr error
}

func (e *RollbackError) Error() string {
	return fmt.Sprintf("step '%s' failed: %v, rollback also failed: %v", e.Step, e.Err, e.RollbackErr)
}

func (e *RollbackError) Unwrap() []error { return []error{e.Err, e.RollbackErr} }

// executeStep executes a single saga step, with retry logic for retryable steps
func (s *SagaExecutor) executeStep(ctx context.Context, step SagaStep) error {
	s.state.MarkOperationStarted(step.Type)
	s.bestEffortSave(ctx, "after marking operation started")
	s.logger.Debug("saga step", zap.String("step", step.Name))
	var rollbackData map[string]any
	err := s.run(ctx, step.Retryable, func(runCtx context.Context) error {
		data, execErr := step.Execute(runCtx)
		if execErr != nil {
			return execErr
		}
		rollbackData = data
		return nil
	})
	if err != nil {
		return err
	}
	s.state.MarkOperationCompleted(step.Type, rollbackData)
	s.bestEffortSave(ctx, "after marking operation completed")
	return nil
}

// Rollback executes compensating actions for completed operations
func (s *SagaExecutor) Rollback(ctx context.Context) error {
	return s.rollback(ctx)
}

func (s *SagaExecutor) rollback(ctx context.Context) error {
	completedOps := s.state.CompletedOperations()
	if len(completedOps) == 0 {
		s.logger.Debug("no operations to roll back")
		s.state.Status = domain.WorkflowStatusRolledBack
		return nil
	}
	for _, op := range completedOps {
		select {
		case <-ctx.Done():
			return fmt.Errorf("rollback canceled: %w", ctx.Err())
		default:
		}
		step := s.findStepByType(op.Type)
		if step == nil || step.Compensate == nil {
			continue
		}
		s.logger.Debug("rolling back", zap.String("step", step.Name))
		err := s.run(ctx, step.Retryable, func(runCtx context.Context) error {
			return step.Compensate(runCtx, op.RollbackData)
		})
		if err != nil {
			s.logger.Debug("rollback failed", zap.String("step", step.Name), zap.Error(err))
			return fmt.Errorf("rollback failed for %s: %w", step.Name, err)
		}
		s.state.MarkOperationRolledBack(op.Type)
		s.bestEffortSave(ctx, "during rollback")
	}
	s.state.Status = domain.WorkflowStatusRolledBack
	s.bestEffortSave(ctx, "after rollback")
	return nil
}

// run calls fn once, or with exponential backoff when retryable.
func (s *SagaExecutor) run(ctx context.Context, retryable bool, fn func(context.Context) error) error {
	if !retryable {
		if err := ctx.Err(); err != nil {
			return err
		}
		return fn(ctx)
	}
	retryStrategy := retry.WithMaxRetries(DefaultRetryCount, retry.NewExponential(DefaultRetryDelay))
	return retry.Do(ctx, retryStrategy, func(retryCtx context.Context) error {
		select {
		case <-retryCtx.Done():
			return retryCtx.Err()
		default:
		}
		if err := fn(retryCtx); err != nil {
			return retry.RetryableError(err)
		}
		return nil
	})
}

// findStepByType finds a saga step by operation type
func (s *SagaExecutor) findStepByType(opType domain.OperationType) *SagaStep {
	for i := range s.steps {
		if s.steps[i].Type == opType {
			return &s.steps[i]
		}
	}
	return nil
}

func (s *SagaExecutor) saveState(ctx context.Context) error {
	if s.stateRepo == nil {
		return nil
	}
	return s.stateRepo.Save(ctx, s.state)
}

func (s *SagaExecutor) bestEffortSave(ctx context.Context, when string) {
	if err := s.saveState(ctx); err != nil {
		s.logger.Warn("failed to save session state", zap.String("when", when), zap.Error(err))
	}
}

// State returns the current session record
func (s *SagaExecutor) State() *domain.SessionState {
	return s.state
}
