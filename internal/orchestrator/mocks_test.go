package orchestrator

import (
	"context"

	"github.com/QualiSystems/colony-cli/internal/domain"
	"github.com/QualiSystems/colony-cli/internal/repository"
	"github.com/stretchr/testify/mock"
)

// MockSessionRepository is a mock implementation of SessionRepository
type MockSessionRepository struct {
	mock.Mock
}

func (m *MockSessionRepository) Save(ctx context.Context, state *domain.SessionState) error {
	args := m.Called(ctx, state)
	return args.Error(0)
}

func (m *MockSessionRepository) Load(ctx context.Context, sessionID string) (*domain.SessionState, error) {
	args := m.Called(ctx, sessionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.SessionState), args.Error(1)
}

func (m *MockSessionRepository) LoadLatest(ctx context.Context) (*domain.SessionState, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.SessionState), args.Error(1)
}

func (m *MockSessionRepository) List(ctx context.Context) ([]*domain.SessionState, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.SessionState), args.Error(1)
}

func (m *MockSessionRepository) Delete(ctx context.Context, sessionID string) error {
	args := m.Called(ctx, sessionID)
	return args.Error(0)
}

// faultyGitRepository forwards to a real repository except for the methods registered with
// failOn or failAfter, which go through the mock.
type faultyGitRepository struct {
	repository.GitRepository
	mock.Mock
	faults map[string]bool
	after  map[string]bool
}

func newFaultyGitRepository(inner repository.GitRepository) *faultyGitRepository {
	return &faultyGitRepository{GitRepository: inner, faults: map[string]bool{}, after: map[string]bool{}}
}

// failOn makes method return err without reaching git.
func (f *faultyGitRepository) failOn(method string, err error, args ...any) *mock.Call {
	f.faults[method] = true
	return f.On(method, args...).Return(err)
}

// failAfter makes method run against git and then return err.
func (f *faultyGitRepository) failAfter(method string, err error, args ...any) *mock.Call {
	f.after[method] = true
	return f.failOn(method, err, args...)
}

func (f *faultyGitRepository) intercept(method string, real func() error, args ...any) error {
	if !f.faults[method] {
		return real()
	}
	if f.after[method] {
		if err := real(); err != nil {
			return err
		}
	}
	return f.MethodCalled(method, args...).Error(0)
}

func (f *faultyGitRepository) StashPush(ctx context.Context) error {
	return f.intercept("StashPush", func() error { return f.GitRepository.StashPush(ctx) }, ctx)
}

func (f *faultyGitRepository) StashApply(ctx context.Context) error {
	return f.intercept("StashApply", func() error { return f.GitRepository.StashApply(ctx) }, ctx)
}

func (f *faultyGitRepository) StashPop(ctx context.Context) error {
	return f.intercept("StashPop", func() error { return f.GitRepository.StashPop(ctx) }, ctx)
}

func (f *faultyGitRepository) CheckoutNewBranch(ctx context.Context, name string) error {
	return f.intercept("CheckoutNewBranch", func() error { return f.GitRepository.CheckoutNewBranch(ctx, name) }, ctx, name)
}

func (f *faultyGitRepository) CheckoutBranch(ctx context.Context, name string) error {
	return f.intercept("CheckoutBranch", func() error { return f.GitRepository.CheckoutBranch(ctx, name) }, ctx, name)
}

func (f *faultyGitRepository) Commit(ctx context.Context, message string) error {
	return f.intercept("Commit", func() error { return f.GitRepository.Commit(ctx, message) }, ctx, message)
}

func (f *faultyGitRepository) PushBranch(ctx context.Context, name string) error {
	return f.intercept("PushBranch", func() error { return f.GitRepository.PushBranch(ctx, name) }, ctx, name)
}

func (f *faultyGitRepository) DeleteRemoteBranch(ctx context.Context, name string) error {
	return f.intercept("DeleteRemoteBranch", func() error { return f.GitRepository.DeleteRemoteBranch(ctx, name) }, ctx, name)
}
