package cmd

import (
	"fmt"
	"io"

	"github.com/ksteinfeldt/gitswitch/internal/config"
	"github.com/ksteinfeldt/gitswitch/internal/doctor"
	"github.com/ksteinfeldt/gitswitch/internal/exchange"
	"github.com/ksteinfeldt/gitswitch/internal/store"
	"github.com/ksteinfeldt/gitswitch/internal/style"
	"github.com/spf13/cobra"
)

var exportCmd = &cobra.Command{
	Use:     "export <file>",
	GroupID: GroupMaint,
	Short:   "Write all identities to a backup file",
	Long: `Write all identities to a JSON file. Activation is not exported.
Repository bindings are not exported.`,
	Args: cobra.ExactArgs(1),
	RunE: runExport,
}

var importCmd = &cobra.Command{
	Use:     "import <file>",
	GroupID: GroupMaint,
	Short:   "Add identities from a backup file",
	Long: `Append the identities in a backup file to the registry. Imported
identities are inactive, and ids that are already taken are renumbered.

All repository bindings are cleared by an import.`,
	Args: cobra.ExactArgs(1),
	RunE: runImport,
}

var doctorCmd = &cobra.Command{
	Use:     "doctor",
	GroupID: GroupMaint,
	Short:   "Check the stored identities for problems",
	Long: `Check the stored identities and bindings for states gitswitch itself
never writes: several active identities, repeated ids, unknown scopes, and
bindings to removed identities.

With --fix the problems are repaired.`,
	Args: cobra.NoArgs,
	RunE: runDoctor,
}

var configCmd = &cobra.Command{
	Use:     "config",
	GroupID: GroupMaint,
	Short:   "Show configuration",
	RunE:    requireSubcommand,
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print the config file location",
	Args:  cobra.NoArgs,
	RunE:  runConfigPath,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration",
	Args:  cobra.NoArgs,
	RunE:  runConfigShow,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the gitswitch version",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "gitswitch %s\n", Version)
	},
}

var doctorFix bool

func init() {
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(importCmd)
	rootCmd.AddCommand(doctorCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(versionCmd)
	configCmd.AddCommand(configPathCmd)
	configCmd.AddCommand(configShowCmd)

	doctorCmd.Flags().BoolVar(&doctorFix, "fix", false, "Repair the problems found")
}

func runExport(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	file := exchange.NewFile(args[0])
	n, err := a.reg.Export(cmd.Context(), file)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s Exported %d identities to %s\n", style.SuccessPrefix, n, file.Path())
	return nil
}

func runImport(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	file := exchange.NewFile(args[0])
	n, err := a.reg.Import(cmd.Context(), file)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s Imported %d identities from %s\n", style.SuccessPrefix, n, file.Path())
	if n > 0 {
		fmt.Fprintln(cmd.OutOrStdout(), style.Dim.Render("  Repository bindings were cleared."))
	}
	return nil
}

func runDoctor(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx := &doctor.CheckContext{Store: store.New(cfg.DataDir)}
	report := doctor.New().Run(ctx, doctorFix)
	printReport(cmd.OutOrStdout(), report)

	if failed := len(report.Results) - report.Count(doctor.StatusOK); failed > 0 {
		return fmt.Errorf("%d check(s) failed", failed)
	}
	return nil
}

func printReport(w io.Writer, report *doctor.Report) {
	for _, res := range report.Results {
		prefix := style.SuccessPrefix
		switch res.Status {
		case doctor.StatusWarning:
			prefix = style.WarningPrefix
		case doctor.StatusError:
			prefix = style.ErrorPrefix
		}

		msg := res.Message
		if res.Fixed {
			msg = "fixed"
		}
		fmt.Fprintf(w, "%s %s: %s\n", prefix, style.Bold.Render(res.Name), msg)
		for _, d := range res.Details {
			fmt.Fprintf(w, "    %s\n", style.Dim.Render(d))
		}
		if res.FixHint != "" && res.Status != doctor.StatusOK {
			fmt.Fprintf(w, "    %s %s\n", style.ArrowPrefix, res.FixHint)
		}
	}
}

func runConfigPath(cmd *cobra.Command, args []string) error {
	path := configPath
	if path == "" {
		path = config.DefaultPath()
	}
	fmt.Fprintln(cmd.OutOrStdout(), path)
	return nil
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	body, err := config.Encode(cfg)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	source := cfg.Path
	if source == "" {
		source = "defaults"
	}
	fmt.Fprintln(out, style.Dim.Render("# source: "+source))
	fmt.Fprint(out, body)
	return nil
}
