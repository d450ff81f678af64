package cmd

import (
	"github.com/QualiSystems/colony-cli/internal/usecase"
	"github.com/spf13/cobra"
)

func newBranchCmd(c *container) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "branch",
		Short: "Inspect and recover temporary branches",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "recover",
			Short: "Finish branch sessions that were interrupted",
			Long: `Restore the working copy and delete temporary branches left behind by a
command that was killed before it could clean up.`,
			Args: cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				uc := &usecase.RecoverBranchesUseCase{Branches: c.branches(), Sink: c.console}
				_, err := uc.Execute(cmd.Context())
				return err
			},
		},
		&cobra.Command{
			Use:   "list",
			Short: "List temporary branches and unfinished sessions",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				uc := &usecase.ListTempBranchesUseCase{Branches: c.branches()}
				listing, err := uc.Execute(cmd.Context())
				if err != nil {
					return err
				}
				var rows [][]string
				for _, b := range listing.Local {
					rows = append(rows, []string{b, "local", ""})
				}
				for _, b := range listing.Remote {
					rows = append(rows, []string{b, "origin", ""})
				}
				for _, s := range listing.Pending {
					rows = append(rows, []string{s.Branch.TempBranchName, "session", string(s.Branch.Phase)})
				}
				c.console.Table([]string{"Branch", "Where", "Phase"}, rows)
				return nil
			},
		},
	)
	return cmd
}
