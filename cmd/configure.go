package cmd

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/QualiSystems/colony-cli/internal/config"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

func newConfigureCmd(c *container) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "configure",
		Short: "Manage connection profiles",
	}
	cmd.AddCommand(newConfigureSetCmd(c), newConfigureListCmd(c), newConfigureRemoveCmd(c))
	return cmd
}

// profileAnswers are the values collected by configure set.
type profileAnswers struct {
	Name    string
	Profile config.Profile
}

func newConfigureSetCmd(c *container) *cobra.Command {
	var answers profileAnswers
	cmd := &cobra.Command{
		Use:   "set",
		Short: "Create or update a profile",
		Long: `Create or update a profile in the config file.

When --space and --token are not both given, the missing values are asked for.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if answers.Profile.Space == "" || answers.Profile.Token == "" {
				p := newPrompter(cmd.InOrStdin(), cmd.ErrOrStderr())
				if err := p.complete(&answers); err != nil {
					return err
				}
			}
			store := c.profileStore()
			if err := store.Save(cmd.Context(), answers.Name, answers.Profile); err != nil {
				return err
			}
			c.console.Success("Profile %s saved to %s", answers.Name, store.Path())
			return nil
		},
	}
	flags := cmd.Flags()
	flags.StringVar(&answers.Name, "profile-name", config.DefaultProfile, "Profile to write")
	flags.StringVar(&answers.Profile.Account, "account", "", "Colony account name")
	flags.StringVar(&answers.Profile.Space, "space", "", "Colony space name")
	flags.StringVar(&answers.Profile.Token, "token", "", "Colony API token")
	return cmd
}

func newConfigureListCmd(c *container) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List profiles",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			profiles, err := c.profileStore().LoadAll(cmd.Context())
			if err != nil {
				return err
			}
			rows := make([][]string, 0, len(profiles))
			for _, name := range config.Names(profiles) {
				p := profiles[name]
				rows = append(rows, []string{name, p.Account, p.Space, config.MaskToken(p.Token)})
			}
			c.console.Table([]string{"Profile Name", "Colony Account", "Space Name", "Token"}, rows)
			return nil
		},
	}
}

func newConfigureRemoveCmd(c *container) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <profile>",
		Short: "Remove a profile",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := c.profileStore().Remove(cmd.Context(), args[0]); err != nil {
				return err
			}
			c.console.Success("Profile %s removed", args[0])
			return nil
		},
	}
}

// prompter asks for profile values line by line. Secrets are read without echo when in is a
// terminal.
type prompter struct {
	in     *bufio.Reader
	fd     int
	isTerm bool
	out    io.Writer
}

func newPrompter(in io.Reader, out io.Writer) *prompter {
	p := &prompter{in: bufio.NewReader(in), out: out}
	if f, ok := in.(*os.File); ok {
		p.fd = int(f.Fd())
		p.isTerm = term.IsTerminal(p.fd)
	}
	return p
}

func (p *prompter) complete(a *profileAnswers) error {
	var err error
	if a.Name, err = p.ask("Profile Name", a.Name); err != nil {
		return err
	}
	if a.Profile.Account, err = p.ask("Colony Account (optional)", a.Profile.Account); err != nil {
		return err
	}
	if a.Profile.Space, err = p.ask("Colony Space", a.Profile.Space); err != nil {
		return err
	}
	if a.Profile.Token == "" {
		if a.Profile.Token, err = p.secret("Token"); err != nil {
			return err
		}
	}
	if a.Profile.Space == "" || a.Profile.Token == "" {
		return fmt.Errorf("space and token are required")
	}
	return nil
}

func (p *prompter) ask(label, current string) (string, error) {
	if current != "" {
		fmt.Fprintf(p.out, "%s [%s]: ", label, current)
	} else {
		fmt.Fprintf(p.out, "%s: ", label)
	}
	line, err := p.in.ReadString('\n')
	if err != nil && (err != io.EOF || line == "") {
		if err == io.EOF {
			return current, nil
		}
		return "", fmt.Errorf("failed to read %s: %w", strings.ToLower(label), err)
	}
	if v := strings.TrimSpace(line); v != "" {
		return v, nil
	}
	return current, nil
}

func (p *prompter) secret(label string) (string, error) {
	if !p.isTerm {
		return p.ask(label, "")
	}
	fmt.Fprintf(p.out, "%s: ", label)
	b, err := term.ReadPassword(p.fd)
	fmt.Fprintln(p.out)
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", strings.ToLower(label), err)
	}
	return strings.TrimSpace(string(b)), nil
}
