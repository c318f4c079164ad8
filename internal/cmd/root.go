// Package cmd implements the gitswitch command tree.
package cmd

import (
	"fmt"
	"io"
	"log"
	"os"

	"github.com/ksteinfeldt/gitswitch/internal/style"
	"github.com/spf13/cobra"
)

// Version is set at build time with -ldflags.
var Version = "dev"

// Command groups shown in help.
const (
	GroupIdentity = "identity"
	GroupRepo     = "repo"
	GroupMaint    = "maint"
)

var (
	configPath string
	dataDir    string
	verbose    bool
)

var rootCmd = &cobra.Command{
	Use:   "gitswitch",
	Short: "Switch between git identities",
	Long: `gitswitch keeps a list of git identities (name, email, GitHub username)
and switches which one git uses, machine-wide or per repository.

Examples:
  gitswitch add octocat --type work --name "Mona" --email mona@example.com
  gitswitch list
  gitswitch activate 1              # git config --global
  gitswitch activate 2 --local      # git config --local in a repository
  gitswitch bind 2 --repo ~/src/app`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		log.SetFlags(0)
		if verbose {
			log.SetOutput(cmd.ErrOrStderr())
		} else {
			log.SetOutput(io.Discard)
		}
	},
}

func init() {
	rootCmd.AddGroup(
		&cobra.Group{ID: GroupIdentity, Title: "Identities:"},
		&cobra.Group{ID: GroupRepo, Title: "Git configuration:"},
		&cobra.Group{ID: GroupMaint, Title: "Maintenance:"},
	)

	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default $GITSWITCH_CONFIG or ~/.config/gitswitch/config.toml)")
	rootCmd.PersistentFlags().StringVar(&dataDir, "data-dir", "", "Directory holding identities and bindings")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log diagnostics to stderr")
}

// Execute runs the root command and exits non-zero on error.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "%s %v\n", style.ErrorPrefix, err)
		os.Exit(1)
	}
}

// requireSubcommand is the RunE of parent commands that do nothing alone.
func requireSubcommand(cmd *cobra.Command, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("missing subcommand; see '%s --help'", cmd.CommandPath())
	}
	return fmt.Errorf("unknown subcommand %q for %q", args[0], cmd.CommandPath())
}
