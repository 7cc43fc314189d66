package cli

import (
	"fmt"
	"slices"

	"github.com/spf13/cobra"
)

// RootOptions holds global flags for all commands. Non-zero store and
// builder flags override molbuild.yaml.
type RootOptions struct {
	Verbose    bool
	Format     string // "json" | "text"
	ConfigPath string
	Database   string
	Driver     string
	Workers    int
	Rules      string
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the molbuild CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "molbuild",
		Short: "molbuild - molecule document builder",
		Long: `Build one molecule document per group of structurally identical
calculation tasks, resolving each property from the best-ranked task.`,
		SilenceErrors: true, // main reports errors not already written by a command
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(ValidFormats, opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			return nil
		},
	}

	flags := cmd.PersistentFlags()
	flags.BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	flags.StringVar(&opts.Format, "format", "text", "output format (json|text)")
	flags.StringVar(&opts.ConfigPath, "config", "", "path to molbuild.yaml (default: ./molbuild.yaml when present)")
	flags.StringVar(&opts.Database, "db", "", "database DSN (SQLite path or postgres URL)")
	flags.StringVar(&opts.Driver, "driver", "", "database driver (sqlite3|pgx)")
	flags.IntVar(&opts.Workers, "workers", 0, "formulas processed concurrently")
	flags.StringVar(&opts.Rules, "rules", "", "rule table (.cue, .yaml, .json); empty uses the embedded table")

	cmd.AddCommand(NewRunCommand(opts))
	cmd.AddCommand(NewIngestCommand(opts))
	cmd.AddCommand(NewShowCommand(opts))
	cmd.AddCommand(NewPassesCommand(opts))
	cmd.AddCommand(NewRulesCommand(opts))

	return cmd
}
