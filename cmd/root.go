package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/QualiSystems/colony-cli/internal/usecase"
	"github.com/QualiSystems/colony-cli/pkg/version"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	app     *container
	rootCmd *cobra.Command
)

func newRootCmd(c *container) *cobra.Command {
	root := &cobra.Command{
		Use:   "colony",
		Short: "Validate and launch Colony blueprints",
		Long: `colony validates blueprints and starts sandboxes on CloudShell Colony.

Inside a blueprint repository, local changes that are not pushed yet are sent
through a temporary branch, so nothing has to be committed first.`,
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return c.load(cmd)
		},
		PersistentPostRun: func(cmd *cobra.Command, _ []string) {
			c.notifyUpdate(cmd.Context())
		},
	}
	flags := root.PersistentFlags()
	flags.String("token", "", "Colony API token")
	flags.String("space", "", "Colony space name")
	flags.String("account", "", "Colony account name")
	flags.String("profile", "", "Profile from the config file (default \"default\")")
	flags.Bool("debug", false, "Print diagnostic logs")

	root.AddCommand(
		newBlueprintCmd(c),
		newSandboxCmd(c),
		newConfigureCmd(c),
		newBranchCmd(c),
		newVersionCmd(),
	)
	return root
}

// notifyUpdate prints an upgrade hint when a newer release exists. Lookup failures stay in
// the debug log.
func (c *container) notifyUpdate(ctx context.Context) {
	if c.cfg == nil || c.cfg.NoUpdateNotifier || version.IsDevelopment() {
		return
	}
	ctx, cancel := c.withUpdateTimeout(ctx)
	defer cancel()
	uc := &usecase.CheckVersionUseCase{Releases: c.releases(), Current: version.Version}
	notice, err := uc.Execute(ctx)
	if err != nil {
		c.logger.Debug("update check failed", zap.Error(err))
		return
	}
	if notice != nil {
		c.console.FYI("A new version of colony is available: %s (you have %s)", notice.Latest, notice.Current)
	}
}

// InitCommands initializes all commands with their dependencies
func InitCommands() error {
	c, err := newContainer()
	if err != nil {
		return err
	}
	app = c
	rootCmd = newRootCmd(c)
	return nil
}

// Execute runs the command line. An interrupt cancels the command context; temp branch
// teardown still runs on its own context.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		app.console.Error("%v", err)
		return err
	}
	return nil
}
