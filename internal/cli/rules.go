package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/molbuild/internal/mol"
	"github.com/roach88/molbuild/internal/rules"
)

// RulesSummary describes a loaded rule table.
type RulesSummary struct {
	Source           string     `json:"source"`
	Valid            bool       `json:"valid"`
	Rules            int        `json:"rules"`
	AllowedTaskTypes []string   `json:"allowed_task_types"`
	Table            []mol.Rule `json:"table,omitempty"`
}

func (s RulesSummary) String() string {
	return fmt.Sprintf("✓ %s: %d rule(s), allowed task types: %s",
		s.Source, s.Rules, strings.Join(s.AllowedTaskTypes, ", "))
}

// NewRulesCommand creates the rules command group.
func NewRulesCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rules",
		Short: "Inspect the property rule table",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "validate [file]",
		Short: "Load and validate a rule table",
		Long: `Load a rule table (.cue, .yaml or .json) and check every rule and the
table as a whole. Without a file the configured table is checked.`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRules(rootOpts, args, false, cmd)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:           "show [file]",
		Short:         "Print the rule table as YAML",
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRules(rootOpts, args, true, cmd)
		},
	})

	return cmd
}

func runRules(opts *RootOptions, args []string, show bool, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	path := ""
	if len(args) == 1 {
		path = args[0]
	} else {
		cfg, err := loadConfig(opts)
		if err != nil {
			return formatter.Fail(err)
		}
		path = cfg.Rules
	}
	source := path
	if source == "" {
		source = rules.DefaultName
	}
	formatter.VerboseLog("Loading rule table %s", source)

	table, err := rules.Load(path)
	if err != nil {
		return formatter.Fail(commandError(rules.ErrorCode(err), "invalid rule table", err))
	}

	summary := RulesSummary{
		Source:           source,
		Valid:            true,
		Rules:            table.Len(),
		AllowedTaskTypes: table.AllowedTaskTypes(),
	}
	if !show {
		return formatter.Success(summary)
	}
	if formatter.Format == "json" {
		summary.Table = table.Rules()
		return formatter.Success(summary)
	}

	data, err := rules.MarshalYAML(table)
	if err != nil {
		return formatter.Fail(WrapExitError(ExitFailure, "failed to render rule table", err))
	}
	_, err = fmt.Fprint(formatter.Writer, string(data))
	return err
}
