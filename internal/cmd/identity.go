package cmd

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/ksteinfeldt/gitswitch/internal/identity"
	"github.com/ksteinfeldt/gitswitch/internal/prompt"
	"github.com/ksteinfeldt/gitswitch/internal/style"
	"github.com/spf13/cobra"
)

var addCmd = &cobra.Command{
	Use:     "add <username>",
	GroupID: GroupIdentity,
	Short:   "Register a new identity",
	Long: `Register a new identity for a GitHub username.

The username must exist on GitHub; its avatar is stored with the identity.
If --name or --email are omitted they default to the values git currently
uses in this directory.

Examples:
  gitswitch add octocat --type work
  gitswitch add mona --type personal --name "Mona Lisa" --email mona@example.com`,
	Args: cobra.ExactArgs(1),
	RunE: runAdd,
}

var listCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	GroupID: GroupIdentity,
	Short:   "Show all identities",
	Long: `List every registered identity.

The active identity is marked with an asterisk (*) and shows its scope.
--type filters by type label, ignoring case.`,
	Args: cobra.NoArgs,
	RunE: runList,
}

var showCmd = &cobra.Command{
	Use:     "show <id>",
	GroupID: GroupIdentity,
	Short:   "Show one identity",
	Args:    cobra.ExactArgs(1),
	RunE:    runShow,
}

var currentCmd = &cobra.Command{
	Use:     "current",
	GroupID: GroupIdentity,
	Short:   "Show the active identity",
	Long: `Show the active identity and, for a repository, the identity bound to
it and the name and email git will actually use there.

The repository defaults to the current directory.`,
	Args: cobra.NoArgs,
	RunE: runCurrent,
}

var editCmd = &cobra.Command{
	Use:     "edit <id>",
	GroupID: GroupIdentity,
	Short:   "Change fields of an identity",
	Long: `Change the type, name, username or email of an identity.

Only the flags given are changed. Changed values are checked the same way
as for 'gitswitch add'. Activation is not changed; run 'gitswitch activate'
again to write an edited identity into git.

Example:
  gitswitch edit 2 --email mona@work.example.com`,
	Args: cobra.ExactArgs(1),
	RunE: runEdit,
}

var removeCmd = &cobra.Command{
	Use:     "remove <id>",
	Aliases: []string{"rm"},
	GroupID: GroupIdentity,
	Short:   "Delete an identity and its repository bindings",
	Args:    cobra.ExactArgs(1),
	RunE:    runRemove,
}

var (
	addType  string
	addName  string
	addEmail string

	listType string

	currentRepo string

	editType     string
	editName     string
	editUsername string
	editEmail    string

	removeYes bool
)

func init() {
	rootCmd.AddCommand(addCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(showCmd)
	rootCmd.AddCommand(currentCmd)
	rootCmd.AddCommand(editCmd)
	rootCmd.AddCommand(removeCmd)

	addCmd.Flags().StringVar(&addType, "type", "", "Category label, e.g. work or personal")
	addCmd.Flags().StringVar(&addName, "name", "", "Name written to user.name (default: current git user.name)")
	addCmd.Flags().StringVar(&addEmail, "email", "", "Email written to user.email (default: current git user.email)")

	listCmd.Flags().StringVar(&listType, "type", "", "Only show identities with this type")

	currentCmd.Flags().StringVar(&currentRepo, "repo", "", "Repository to inspect (default: current directory)")

	editCmd.Flags().StringVar(&editType, "type", "", "New type label")
	editCmd.Flags().StringVar(&editName, "name", "", "New name")
	editCmd.Flags().StringVar(&editUsername, "username", "", "New GitHub username")
	editCmd.Flags().StringVar(&editEmail, "email", "", "New email")

	removeCmd.Flags().BoolVarP(&removeYes, "yes", "y", false, "Do not ask for confirmation")
}

func runAdd(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}

	name, email := addName, addEmail
	if name == "" || email == "" {
		cwd, _ := os.Getwd()
		gitName, gitEmail := a.git.Effective(cmd.Context(), cwd)
		if name == "" {
			name = gitName
		}
		if email == "" {
			email = gitEmail
		}
	}

	id, err := a.reg.Create(cmd.Context(), identity.Fields{
		Type:     addType,
		Name:     name,
		Username: args[0],
		Email:    email,
	})
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s Added identity %d: %s\n", style.SuccessPrefix, id.ID, id)
	fmt.Fprintf(out, "  Run 'gitswitch activate %d' to use it\n", id.ID)
	return nil
}

func runList(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}

	ids, err := a.reg.List()
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if len(ids) == 0 {
		fmt.Fprintln(out, "No identities registered. Run 'gitswitch add <username>' to add the first one.")
		return nil
	}

	ids = filterByType(ids, listType)
	if len(ids) == 0 {
		fmt.Fprintf(out, "No identities of type %q.\n", listType)
		return nil
	}
	renderIdentities(out, ids)
	return nil
}

func runShow(cmd *cobra.Command, args []string) error {
	id, err := parseID(args[0])
	if err != nil {
		return err
	}
	a, err := newApp()
	if err != nil {
		return err
	}

	ident, err := a.reg.Get(id)
	if err != nil {
		return err
	}
	renderIdentity(cmd.OutOrStdout(), ident)

	bindings, err := a.reg.Bindings()
	if err != nil {
		return err
	}
	var repos []string
	for _, b := range bindings {
		if b.IdentityID == id {
			repos = append(repos, b.RepoPath)
		}
	}
	if len(repos) > 0 {
		fmt.Fprintf(cmd.OutOrStdout(), "  Bound to: %s\n", strings.Join(repos, ", "))
	}
	return nil
}

func runCurrent(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()

	if active, ok := a.reg.Active(); ok {
		scope, _ := active.Scope()
		fmt.Fprintf(out, "%s %s %s\n", style.Bold.Render("Active:"), active, style.Dim.Render("("+string(scope)+")"))
	} else {
		fmt.Fprintln(out, style.Dim.Render("No identity is active."))
	}

	repo := currentRepo
	if repo == "" {
		repo, _ = os.Getwd()
	}
	ctx := cmd.Context()
	if repo == "" || !a.git.IsRepository(ctx, repo) {
		return nil
	}

	if bound, ok := a.reg.BindingFor(repo); ok {
		fmt.Fprintf(out, "%s %s\n", style.Bold.Render("Bound here:"), bound)
	}
	if name, email := a.git.Effective(ctx, repo); name != "" || email != "" {
		fmt.Fprintf(out, "%s %s <%s>\n", style.Bold.Render("Git uses:"), name, email)
	}
	return nil
}

func runEdit(cmd *cobra.Command, args []string) error {
	id, err := parseID(args[0])
	if err != nil {
		return err
	}

	p := identity.Patch{ID: id}
	flags := cmd.Flags()
	if flags.Changed("type") {
		p.Type = &editType
	}
	if flags.Changed("name") {
		p.Name = &editName
	}
	if flags.Changed("username") {
		p.Username = &editUsername
	}
	if flags.Changed("email") {
		p.Email = &editEmail
	}
	if p.Empty() {
		return errors.New("nothing to change; pass at least one of --type, --name, --username, --email")
	}

	a, err := newApp()
	if err != nil {
		return err
	}
	updated, err := a.reg.Update(p)
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "%s Updated identity %d: %s\n", style.SuccessPrefix, updated.ID, updated)
	return nil
}

func runRemove(cmd *cobra.Command, args []string) error {
	id, err := parseID(args[0])
	if err != nil {
		return err
	}
	a, err := newApp()
	if err != nil {
		return err
	}

	confirm := prompt.NewConfirmer(removeYes)
	removed, err := a.reg.Remove(cmd.Context(), id, confirm)
	if err = a.finish(cmd.ErrOrStderr(), err); err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if !removed {
		fmt.Fprintln(out, "Cancelled.")
		return nil
	}
	fmt.Fprintf(out, "%s Removed identity %d\n", style.SuccessPrefix, id)
	return nil
}
