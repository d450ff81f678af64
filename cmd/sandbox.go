package cmd

import (
	"strconv"
	"strings"
	"time"

	"github.com/QualiSystems/colony-cli/internal/domain"
	"github.com/QualiSystems/colony-cli/internal/usecase"
	"github.com/spf13/cobra"
)

func newSandboxCmd(c *container) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "sandbox",
		Aliases: []string{"sb"},
		Short:   "Start, inspect and end sandboxes",
	}
	cmd.AddCommand(
		newSandboxStartCmd(c),
		newSandboxStatusCmd(c),
		newSandboxEndCmd(c),
		newSandboxListCmd(c),
	)
	return cmd
}

func newSandboxStartCmd(c *container) *cobra.Command {
	var (
		name           string
		duration       int
		wait           bool
		timeoutMinutes int
		inputs         string
		artifacts      string
		branch, commit string
	)
	cmd := &cobra.Command{
		Use:   "start <blueprint>",
		Short: "Start a sandbox from a blueprint",
		Long: `Start a sandbox from a blueprint.

Without --branch the current branch is used. Local changes are sent through a
temporary branch. The command then waits until Colony has read the branch and
removes it; with --wait it keeps waiting until the sandbox is active.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sandboxes, err := c.sandboxesManager()
			if err != nil {
				return err
			}
			in := usecase.StartSandboxInput{
				BlueprintName:   args[0],
				SandboxName:     name,
				DurationMinutes: duration,
				Branch:          branch,
				Commit:          commit,
				Wait:            wait,
				Timeout:         time.Duration(timeoutMinutes) * time.Minute,
			}
			if in.Inputs, err = usecase.ParseKeyValues(inputs); err != nil {
				return err
			}
			if in.Artifacts, err = usecase.ParseKeyValues(artifacts); err != nil {
				return err
			}
			if len(in.Inputs) == 0 {
				in.Inputs = nil
			}
			if len(in.Artifacts) == 0 {
				in.Artifacts = nil
			}
			uc := &usecase.StartSandboxUseCase{
				Sandboxes:    sandboxes,
				Branches:     c.branches(),
				Blueprints:   c.localBlueprints(),
				Sink:         c.console,
				Logger:       c.logger,
				PollInterval: c.cfg.PollInterval,
			}
			res, err := uc.Execute(cmd.Context(), in)
			if res != nil {
				c.console.Info("Sandbox %s started: %s", res.SandboxName, res.SandboxID)
			}
			if err != nil {
				return err
			}
			if wait && res.Waited != nil && res.Waited.Sandbox != nil {
				c.console.Success("Sandbox %s is %s", res.SandboxID, res.Waited.Sandbox.Status)
				return nil
			}
			c.console.Success("%s", res.SandboxID)
			return nil
		},
	}
	flags := cmd.Flags()
	flags.StringVarP(&name, "name", "n", "", "Sandbox name (generated when empty)")
	flags.IntVarP(&duration, "duration", "d", usecase.DefaultDurationMinutes, "Sandbox duration in minutes")
	flags.BoolVarP(&wait, "wait", "w", false, "Wait until the sandbox is active")
	flags.IntVarP(&timeoutMinutes, "timeout", "t", int(usecase.DefaultTimeout/time.Minute), "Minutes to wait for the sandbox")
	flags.StringVarP(&inputs, "inputs", "i", "", "Blueprint inputs as key1=val1, key2=val2")
	flags.StringVarP(&artifacts, "artifacts", "a", "", "Artifacts as name1=path1, name2=path2")
	flags.StringVarP(&branch, "branch", "b", "", "Branch to start from")
	flags.StringVarP(&commit, "commit", "c", "", "Commit to start from, requires --branch")
	return cmd
}

func newSandboxStatusCmd(c *container) *cobra.Command {
	return &cobra.Command{
		Use:   "status <id>",
		Short: "Show the status of a sandbox",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sandboxes, err := c.sandboxesManager()
			if err != nil {
				return err
			}
			uc := &usecase.SandboxStatusUseCase{Sandboxes: sandboxes}
			sb, err := uc.Execute(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			c.console.Success("%s", sb.Status)
			rows := make([][]string, 0, len(domain.CheckpointOrder))
			for _, name := range domain.CheckpointOrder {
				cp := sb.Checkpoint(name)
				rows = append(rows, []string{
					name, joinOrDash([]string{cp.Status}),
					strconv.Itoa(cp.Succeeded) + "/" + strconv.Itoa(cp.Total),
				})
			}
			c.console.Table([]string{"Checkpoint", "Status", "Succeeded"}, rows)
			for _, e := range sb.Errors {
				c.console.Warn("%s", e.Message)
			}
			return nil
		},
	}
}

func newSandboxEndCmd(c *container) *cobra.Command {
	return &cobra.Command{
		Use:   "end <id>",
		Short: "End a sandbox",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sandboxes, err := c.sandboxesManager()
			if err != nil {
				return err
			}
			uc := &usecase.EndSandboxUseCase{Sandboxes: sandboxes}
			if err := uc.Execute(cmd.Context(), args[0]); err != nil {
				return err
			}
			c.console.Success("End request has been sent")
			return nil
		},
	}
}

func newSandboxListCmd(c *container) *cobra.Command {
	var in usecase.ListSandboxesInput
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List sandboxes in the space",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			sandboxes, err := c.sandboxesManager()
			if err != nil {
				return err
			}
			uc := &usecase.ListSandboxesUseCase{Sandboxes: sandboxes}
			list, err := uc.Execute(cmd.Context(), in)
			if err != nil {
				return err
			}
			rows := make([][]string, 0, len(list))
			for _, sb := range list {
				rows = append(rows, []string{sb.ID, sb.Name, sb.BlueprintName, string(sb.Status)})
			}
			c.console.Table([]string{"Sandbox ID", "Sandbox Name", "Blueprint Name", "Status"}, rows)
			return nil
		},
	}
	cmd.Flags().StringVar(&in.Filter, "filter", "my", "Which sandboxes to list: my, all or auto")
	cmd.Flags().BoolVar(&in.ShowEnded, "show-ended", false, "Include ended sandboxes")
	cmd.Flags().IntVar(&in.Count, "count", 25, "Maximum number of sandboxes")
	return cmd
}

func joinOrDash(values []string) string {
	var kept []string
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			kept = append(kept, v)
		}
	}
	if len(kept) == 0 {
		return "-"
	}
	return strings.Join(kept, "; ")
}
