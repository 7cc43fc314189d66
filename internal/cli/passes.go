package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/molbuild/internal/filter"
	"github.com/roach88/molbuild/internal/mol"
)

// PassLog is the passes command payload.
type PassLog struct {
	FilterKey string           `json:"filter_key"`
	Passes    []mol.PassRecord `json:"passes"`
}

func (l PassLog) String() string {
	if len(l.Passes) == 0 {
		return fmt.Sprintf("no passes recorded for filter %s", l.FilterKey)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "filter %s", l.FilterKey)
	for _, p := range l.Passes {
		fmt.Fprintf(&b, "\n  %s %-9s started %s checkpoint %s processed=%d written=%d dropped=%d failed=%d",
			p.PassID, p.Status, mol.FormatTime(p.StartedAt), orNone(mol.FormatTime(p.Checkpoint)),
			p.Processed, p.Written, p.Dropped, p.Failed)
	}
	return b.String()
}

// NewPassesCommand creates the passes command.
func NewPassesCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "passes",
		Short: "List recorded passes for the configured query",
		Long: `List the pass log for the configured query, oldest first. The last
completed pass holds the checkpoint the next run uses for updated work.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPasses(rootOpts, cmd)
		},
	}
}

func runPasses(opts *RootOptions, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	e, err := openEnv(opts, cmd)
	if err != nil {
		return formatter.Fail(err)
	}
	defer e.Close()

	query, err := e.cfg.Filter()
	if err != nil {
		return formatter.Fail(commandError(ErrCodeInvalidQuery, "invalid query", err))
	}
	key := filter.Key(query)

	passes, err := e.store.Passes(cmd.Context(), key)
	if err != nil {
		return formatter.Fail(WrapExitError(ExitFailure, "failed to read pass log", err))
	}
	if passes == nil {
		passes = []mol.PassRecord{}
	}
	return formatter.Success(PassLog{FilterKey: key, Passes: passes})
}
