package cmd

import (
	"errors"
	"fmt"

	"github.com/ksteinfeldt/gitswitch/internal/identity"
	"github.com/ksteinfeldt/gitswitch/internal/prompt"
	"github.com/ksteinfeldt/gitswitch/internal/style"
	"github.com/spf13/cobra"
)

var activateCmd = &cobra.Command{
	Use:     "activate <id>",
	Aliases: []string{"use"},
	GroupID: GroupIdentity,
	Short:   "Make an identity the active one and write it into git",
	Long: `Activate an identity. Any other active identity is deactivated.

By default the identity is written with 'git config --global'. With --local
it is written into one repository, given by --repo or asked for.

Examples:
  gitswitch activate 1
  gitswitch activate 2 --local --repo ~/src/app`,
	Args: cobra.ExactArgs(1),
	RunE: runActivate,
}

var bindCmd = &cobra.Command{
	Use:     "bind <id>",
	GroupID: GroupRepo,
	Short:   "Bind an identity to a repository",
	Long: `Bind an identity to a repository and write it into that repository's
git config. A repository has at most one bound identity; binding again
replaces it.

The repository is given by --repo or asked for.`,
	Args: cobra.ExactArgs(1),
	RunE: runBind,
}

var bindingsCmd = &cobra.Command{
	Use:     "bindings",
	GroupID: GroupRepo,
	Short:   "Show which identity is bound to which repository",
	Args:    cobra.NoArgs,
	RunE:    runBindings,
}

var gitConfigCmd = &cobra.Command{
	Use:     "git-config",
	GroupID: GroupRepo,
	Short:   "View or reset the git user configuration",
	RunE:    requireSubcommand,
}

var gitConfigViewCmd = &cobra.Command{
	Use:   "view",
	Short: "Show the user.* git configuration",
	Args:  cobra.NoArgs,
	RunE:  runGitConfigView,
}

var gitConfigResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Remove user.name and user.email from git",
	Long: `Remove user.name and user.email from the global git config, or with
--local from one repository. Resetting a repository also drops its binding.`,
	Args: cobra.NoArgs,
	RunE: runGitConfigReset,
}

var (
	activateLocal bool
	activateRepo  string

	bindRepo string

	gitConfigLocal bool
	gitConfigRepo  string
)

func init() {
	rootCmd.AddCommand(activateCmd)
	rootCmd.AddCommand(bindCmd)
	rootCmd.AddCommand(bindingsCmd)
	rootCmd.AddCommand(gitConfigCmd)
	gitConfigCmd.AddCommand(gitConfigViewCmd)
	gitConfigCmd.AddCommand(gitConfigResetCmd)

	activateCmd.Flags().BoolVar(&activateLocal, "local", false, "Write into one repository instead of the global config")
	activateCmd.Flags().StringVar(&activateRepo, "repo", "", "Repository for --local")

	bindCmd.Flags().StringVar(&bindRepo, "repo", "", "Repository to bind")

	for _, c := range []*cobra.Command{gitConfigViewCmd, gitConfigResetCmd} {
		c.Flags().BoolVar(&gitConfigLocal, "local", false, "Use one repository's config instead of the global one")
		c.Flags().StringVar(&gitConfigRepo, "repo", "", "Repository for --local")
	}
}

// errNoRepository is returned when --local needs a repository and none
// was given or chosen.
var errNoRepository = errors.New("no repository selected; pass --repo")

// scopeAndRepo resolves the scope flags into a scope and, for local scope,
// a repository path.
func scopeAndRepo(cmd *cobra.Command, a *app, local bool, repoFlag string) (identity.Scope, string, error) {
	if !local {
		return identity.ScopeGlobal, "", nil
	}
	sel := prompt.NewRepoSelector(repoFlag, a.git.IsRepository)
	path, ok, err := sel.Select(cmd.Context())
	if err != nil {
		return "", "", err
	}
	if !ok {
		return "", "", errNoRepository
	}
	return identity.ScopeLocal, path, nil
}

func runActivate(cmd *cobra.Command, args []string) error {
	id, err := parseID(args[0])
	if err != nil {
		return err
	}
	a, err := newApp()
	if err != nil {
		return err
	}

	scope, repo, err := scopeAndRepo(cmd, a, activateLocal, activateRepo)
	if err != nil {
		return err
	}

	msg, err := a.reg.Activate(cmd.Context(), id, scope, repo)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", style.SuccessPrefix, msg)
	return nil
}

func runBind(cmd *cobra.Command, args []string) error {
	id, err := parseID(args[0])
	if err != nil {
		return err
	}
	a, err := newApp()
	if err != nil {
		return err
	}

	sel := prompt.NewRepoSelector(bindRepo, a.git.IsRepository)
	msg, err := a.reg.BindLocal(cmd.Context(), id, sel)
	if err = a.finish(cmd.ErrOrStderr(), err); err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if msg == "" {
		fmt.Fprintln(out, "No repository selected; nothing changed.")
		return nil
	}
	fmt.Fprintf(out, "%s %s\n", style.SuccessPrefix, msg)
	return nil
}

func runBindings(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	bindings, err := a.reg.Bindings()
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if len(bindings) == 0 {
		fmt.Fprintln(out, "No repositories bound. Run 'gitswitch bind <id> --repo <path>'.")
		return nil
	}
	for _, b := range bindings {
		who := style.Warning.Render(fmt.Sprintf("missing identity %d", b.IdentityID))
		if id, err := a.reg.Get(b.IdentityID); err == nil {
			who = fmt.Sprintf("%d %s", id.ID, id)
		}
		fmt.Fprintf(out, "%s %s %s\n", b.RepoPath, style.ArrowPrefix, who)
	}
	return nil
}

func runGitConfigView(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	scope, repo, err := scopeAndRepo(cmd, a, gitConfigLocal, gitConfigRepo)
	if err != nil {
		return err
	}

	cfg, err := a.reg.ViewConfig(cmd.Context(), scope, repo)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if cfg == "" {
		fmt.Fprintf(out, "No user configuration at %s scope.\n", scope)
		return nil
	}
	fmt.Fprintln(out, cfg)
	return nil
}

func runGitConfigReset(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	scope, repo, err := scopeAndRepo(cmd, a, gitConfigLocal, gitConfigRepo)
	if err != nil {
		return err
	}

	msg, err := a.reg.ResetConfig(cmd.Context(), scope, repo)
	if err = a.finish(cmd.ErrOrStderr(), err); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", style.SuccessPrefix, msg)
	return nil
}
