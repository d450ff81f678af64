package cmd

import (
	"errors"

	"github.com/QualiSystems/colony-cli/internal/domain"
	"github.com/QualiSystems/colony-cli/internal/usecase"
	"github.com/spf13/cobra"
)

func newBlueprintCmd(c *container) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "blueprint",
		Aliases: []string{"bp"},
		Short:   "Validate and list blueprints",
	}
	cmd.AddCommand(newBlueprintValidateCmd(c), newBlueprintListCmd(c))
	return cmd
}

func newBlueprintValidateCmd(c *container) *cobra.Command {
	var branch, commit string
	cmd := &cobra.Command{
		Use:   "validate <name>",
		Short: "Validate a blueprint",
		Long: `Validate a blueprint on Colony.

Without --branch the current branch is used. When it has local changes or is not
pushed, the changes are validated through a temporary branch that is removed
afterwards.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			blueprints, err := c.blueprintsManager()
			if err != nil {
				return err
			}
			uc := &usecase.ValidateBlueprintUseCase{
				Blueprints: blueprints,
				Branches:   c.branches(),
				Sink:       c.console,
			}
			bp, err := uc.Execute(cmd.Context(), usecase.ValidateBlueprintInput{
				Name:   args[0],
				Branch: branch,
				Commit: commit,
			})
			if errors.Is(err, usecase.ErrBlueprintInvalid) && bp != nil {
				c.console.Table([]string{"Name", "Message"}, validationRows(bp.Errors))
			}
			if err != nil {
				return err
			}
			c.console.Success("Blueprint is valid")
			return nil
		},
	}
	cmd.Flags().StringVarP(&branch, "branch", "b", "", "Branch to validate from")
	cmd.Flags().StringVarP(&commit, "commit", "c", "", "Commit to validate from, requires --branch")
	return cmd
}

func newBlueprintListCmd(c *container) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List blueprints in the space",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			blueprints, err := c.blueprintsManager()
			if err != nil {
				return err
			}
			uc := &usecase.ListBlueprintsUseCase{Blueprints: blueprints}
			list, err := uc.Execute(cmd.Context())
			if err != nil {
				return err
			}
			rows := make([][]string, 0, len(list))
			for _, bp := range list {
				rows = append(rows, []string{bp.Name, bp.Description, errorSummary(bp.Errors)})
			}
			c.console.Table([]string{"Name", "Description", "Errors"}, rows)
			return nil
		},
	}
}

func validationRows(errs []domain.ValidationError) [][]string {
	rows := make([][]string, 0, len(errs))
	for _, e := range errs {
		rows = append(rows, []string{e.Name, e.Message})
	}
	return rows
}

func errorSummary(errs []domain.ValidationError) string {
	msgs := make([]string, 0, len(errs))
	for _, e := range errs {
		msgs = append(msgs, e.Message)
	}
	return joinOrDash(msgs)
}
