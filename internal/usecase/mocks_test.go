package usecase

import (
	"context"
	"testing"

	"github.com/QualiSystems/colony-cli/internal/domain"
	"github.com/QualiSystems/colony-cli/internal/orchestrator"
	"github.com/QualiSystems/colony-cli/internal/output/outputtest"
	"github.com/QualiSystems/colony-cli/internal/repository"
	"github.com/QualiSystems/colony-cli/internal/testutil"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// Mock for SandboxesManager
type mockSandboxes struct {
	mock.Mock
}

func (m *mockSandboxes) Start(ctx context.Context, req domain.StartRequest) (string, error) {
	args := m.Called(ctx, req)
	return args.String(0), args.Error(1)
}

func (m *mockSandboxes) Get(ctx context.Context, id string) (*domain.Sandbox, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Sandbox), args.Error(1)
}

func (m *mockSandboxes) End(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *mockSandboxes) List(ctx context.Context, filter string, count int) ([]domain.Sandbox, error) {
	args := m.Called(ctx, filter, count)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Sandbox), args.Error(1)
}

// Mock for BlueprintsManager
type mockBlueprints struct {
	mock.Mock
}

func (m *mockBlueprints) List(ctx context.Context) ([]domain.Blueprint, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Blueprint), args.Error(1)
}

func (m *mockBlueprints) Validate(ctx context.Context, name string, source domain.BlueprintSource) (*domain.Blueprint, error) {
	args := m.Called(ctx, name, source)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Blueprint), args.Error(1)
}

// Mock for ReleaseRepository
type mockReleases struct {
	mock.Mock
}

func (m *mockReleases) LatestRelease(ctx context.Context) (string, error) {
	args := m.Called(ctx)
	return args.String(0), args.Error(1)
}

// workspace is a blueprint checkout wired to a real orchestrator.
type workspace struct {
	repo       *testutil.GitRepo
	branches   *orchestrator.TempBranchOrchestrator
	blueprints repository.BlueprintRepository
	sink       *outputtest.Recorder
}

func newWorkspace(t *testing.T) *workspace {
	t.Helper()
	repo := testutil.NewGitRepo(t)
	gitRepo, err := repository.OpenGitRepository(repo.Dir, nil, nil)
	require.NoError(t, err)
	fs := afero.NewOsFs()
	blueprints, err := repository.OpenBlueprintRepository(fs, repo.Dir)
	require.NoError(t, err)
	sink := outputtest.New()
	sessions := repository.NewJSONSessionRepository(fs, repository.SessionStateDir(gitRepo.GitDir()))
	return &workspace{
		repo:       repo,
		branches:   orchestrator.NewTempBranchOrchestrator(gitRepo, fs, sessions, sink, nil),
		blueprints: blueprints,
		sink:       sink,
	}
}

// tempBranches lists temp branches left locally or on the remote.
func (w *workspace) tempBranches() []string {
	var temp []string
	for _, b := range append(w.repo.LocalBranches(), w.repo.RemoteBranches()...) {
		if domain.IsTempBranchName(b) {
			temp = append(temp, b)
		}
	}
	return temp
}

// noGit is an orchestrator for commands run outside of a repository.
func noGit(sink *outputtest.Recorder) *orchestrator.TempBranchOrchestrator {
	return orchestrator.NewTempBranchOrchestrator(nil, afero.NewMemMapFs(), nil, sink, nil)
}

func isTempBranch(source domain.BlueprintSource) bool {
	return domain.IsTempBranchName(source.Branch)
}

func progress(status domain.SandboxStatus, done ...string) *domain.Sandbox {
	sb := &domain.Sandbox{ID: "sb-1", Status: status, LaunchingProgress: map[string]domain.ProgressCheckpoint{}}
	for _, name := range domain.CheckpointOrder {
		sb.LaunchingProgress[name] = domain.ProgressCheckpoint{Status: "Pending"}
	}
	for _, name := range done {
		sb.LaunchingProgress[name] = domain.ProgressCheckpoint{Status: domain.CheckpointDone}
	}
	return sb
}
