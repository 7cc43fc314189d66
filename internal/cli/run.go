package cli

import (
	"fmt"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/roach88/molbuild/internal/changeset"
	"github.com/roach88/molbuild/internal/mol"
	"github.com/roach88/molbuild/internal/pipeline"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	DryRun bool

	// Registry receives the pass metrics. Defaults to a fresh registry.
	Registry *prometheus.Registry
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run one build pass",
		Long: `Detect formulas with new or updated successful tasks, then group,
resolve, assemble and upsert their molecule documents.

With --dry-run only the change set is computed and printed.

Example:
  molbuild run --db ./molbuild.db
  molbuild run --config ./molbuild.yaml --workers 8 --format json
  molbuild run --dry-run`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPass(opts, cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.DryRun, "dry-run", false, "print the change set without building")

	return cmd
}

func runPass(opts *RunOptions, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}
	ctx := cmd.Context()

	e, err := openEnv(opts.RootOptions, cmd)
	if err != nil {
		return formatter.Fail(err)
	}
	defer e.Close()

	query, err := e.cfg.Filter()
	if err != nil {
		return formatter.Fail(commandError(ErrCodeInvalidQuery, "invalid query", err))
	}

	reg := opts.Registry
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	runner, err := e.runner(pipeline.NewMetrics(reg))
	if err != nil {
		return formatter.Fail(err)
	}

	if opts.DryRun {
		cs, err := runner.Plan(ctx, query)
		if err != nil {
			return formatter.Fail(WrapExitError(ExitFailure, "change detection failed", err))
		}
		return formatter.Success(newChangeSummary(cs))
	}

	if e.cfg.MetricsAddr != "" {
		stop := serveMetrics(ctx, e.cfg.MetricsAddr, reg, e.logger)
		defer stop()
	}

	report, err := runner.Run(ctx, query)
	if err != nil {
		if report == nil {
			return formatter.Fail(WrapExitError(ExitFailure, "pass failed", err))
		}
		return formatter.Fail(WrapExitError(ExitFailure, fmt.Sprintf("pass %s aborted", report.PassID), err))
	}

	if err := formatter.SuccessWithPass(report.PassID, passSummary{report}); err != nil {
		return err
	}
	if n := len(report.Failures); n > 0 {
		return &ExitError{Code: ExitFailure, Reason: ErrCodePartial, Message: fmt.Sprintf("%d formula(s) failed", n)}
	}
	return nil
}

// passSummary renders a pass report as text.
type passSummary struct {
	*pipeline.PassReport
}

func (s passSummary) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "pass %s %s\n", s.PassID, s.Status)
	fmt.Fprintf(&b, "  formulas:   %d\n", len(s.Formulas))
	fmt.Fprintf(&b, "  tasks:      %d in %d group(s)\n", s.Tasks, s.Groups)
	fmt.Fprintf(&b, "  written:    %d\n", s.Written)
	fmt.Fprintf(&b, "  unchanged:  %d\n", s.Unchanged)
	fmt.Fprintf(&b, "  dropped:    %d\n", s.Dropped)
	fmt.Fprintf(&b, "  skipped:    %d\n", s.Skipped)
	fmt.Fprintf(&b, "  checkpoint: %s", orNone(mol.FormatTime(s.Checkpoint)))
	for _, f := range s.Failures {
		fmt.Fprintf(&b, "\n  failed %s: %s", f.Formula, f.Error)
	}
	return b.String()
}

// changeSummary is the dry-run view of a change set.
type changeSummary struct {
	FilterKey       string   `json:"filter_key"`
	Checkpoint      string   `json:"checkpoint,omitempty"`
	NewTasks        int      `json:"new_tasks"`
	Formulas        []string `json:"formulas"`
	NewFormulas     []string `json:"new_formulas"`
	UpdatedFormulas []string `json:"updated_formulas"`
}

func newChangeSummary(cs *changeset.ChangeSet) changeSummary {
	s := changeSummary{
		FilterKey:       cs.FilterKey,
		NewTasks:        cs.NewTasks,
		Formulas:        cs.Keys,
		NewFormulas:     cs.NewKeys,
		UpdatedFormulas: cs.UpdatedKeys,
	}
	if cs.HasCheckpoint {
		s.Checkpoint = mol.FormatTime(cs.Checkpoint)
	}
	return s
}

func (s changeSummary) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%d formula(s) to process (%d new task(s), checkpoint %s)",
		len(s.Formulas), s.NewTasks, orNone(s.Checkpoint))
	for _, f := range s.Formulas {
		fmt.Fprintf(&b, "\n  %s", f)
	}
	return b.String()
}

func orNone(s string) string {
	if s == "" {
		return "none"
	}
	return s
}
