package cmd

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/QualiSystems/colony-cli/internal/config"
	"github.com/QualiSystems/colony-cli/internal/orchestrator"
	"github.com/QualiSystems/colony-cli/internal/output"
	"github.com/QualiSystems/colony-cli/internal/repository"
	"github.com/QualiSystems/colony-cli/internal/service"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const updateCheckTimeout = 3 * time.Second

// container holds all the dependencies for the application. Everything that needs
// configuration or a repository is built on first use, after flags are parsed.
type container struct {
	workDir string
	fs      afero.Fs
	console *output.Console

	cfg    *config.Config
	logger *zap.Logger

	gitRepo    repository.GitRepository
	gitErr     error
	gitOpened  bool
	orch       *orchestrator.TempBranchOrchestrator
	blueprints service.BlueprintsManager
	sandboxes  service.SandboxesManager
}

// newContainer creates a new container over the process streams and working directory.
func newContainer() (*container, error) {
	wd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("failed to resolve working directory: %w", err)
	}
	return &container{
		workDir: wd,
		fs:      afero.NewOsFs(),
		console: output.NewConsole(os.Stdout, os.Stderr),
		logger:  zap.NewNop(),
	}, nil
}

// load resolves the configuration for cmd. It runs before every command.
func (c *container) load(cmd *cobra.Command) error {
	cfg, err := config.LoadConfig(cmd.Context(), cmd.Flags(), c.profiles)
	if err != nil {
		return err
	}
	c.cfg = cfg
	c.logger = output.NewLogger(os.Stderr, cfg.Debug)
	return nil
}

func (c *container) profiles(path string) *config.ProfileStore {
	return config.NewProfileStore(c.fs, path)
}

func (c *container) profileStore() *config.ProfileStore {
	path := config.DefaultConfigPath()
	if c.cfg != nil {
		path = c.cfg.ConfigPath
	}
	return c.profiles(path)
}

// git opens the repository around the working directory once per process.
func (c *container) git() (repository.GitRepository, error) {
	if !c.gitOpened {
		c.gitOpened = true
		c.gitRepo, c.gitErr = repository.OpenGitRepository(c.workDir, nil, c.logger)
		if c.gitErr != nil {
			c.logger.Debug("no usable git repository", zap.String("dir", c.workDir), zap.Error(c.gitErr))
		}
	}
	return c.gitRepo, c.gitErr
}

// branches returns the temp branch orchestrator. Outside of a git repository it still works
// for explicit branches.
func (c *container) branches() *orchestrator.TempBranchOrchestrator {
	if c.orch != nil {
		return c.orch
	}
	gitRepo, err := c.git()
	if err != nil {
		c.orch = orchestrator.NewTempBranchOrchestrator(nil, c.fs, nil, c.console, c.logger)
		return c.orch
	}
	sessions := repository.NewJSONSessionRepository(c.fs, repository.SessionStateDir(gitRepo.GitDir()))
	c.orch = orchestrator.NewTempBranchOrchestrator(gitRepo, c.fs, sessions, c.console, c.logger)
	return c.orch
}

// localBlueprints is the blueprint checkout, or nil when there is none.
func (c *container) localBlueprints() repository.BlueprintRepository {
	gitRepo, err := c.git()
	if err != nil {
		return nil
	}
	repo, err := repository.OpenBlueprintRepository(c.fs, gitRepo.WorkDir())
	if err != nil {
		c.logger.Debug("no local blueprints", zap.Error(err))
		return nil
	}
	return repo
}

func (c *container) connect() error {
	if c.sandboxes != nil {
		return nil
	}
	conn, err := c.cfg.Connection()
	if err != nil {
		return err
	}
	client, err := service.NewClient(service.ClientConfig{
		Host:       conn.Host,
		Space:      conn.Space,
		Token:      conn.Token,
		Timeout:    c.cfg.HTTPTimeout,
		RetryCount: service.DefaultRetryCount,
		Logger:     c.logger,
	})
	if err != nil {
		return err
	}
	c.blueprints = service.NewBlueprintsManager(client)
	c.sandboxes = service.NewSandboxesManager(client)
	return nil
}

func (c *container) blueprintsManager() (service.BlueprintsManager, error) {
	if err := c.connect(); err != nil {
		return nil, err
	}
	return c.blueprints, nil
}

func (c *container) sandboxesManager() (service.SandboxesManager, error) {
	if err := c.connect(); err != nil {
		return nil, err
	}
	return c.sandboxes, nil
}

func (c *container) releases() repository.ReleaseRepository {
	return repository.NewReleaseRepository(os.Getenv("GITHUB_TOKEN"), &http.Client{Timeout: updateCheckTimeout})
}

func (c *container) withUpdateTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, updateCheckTimeout)
}
