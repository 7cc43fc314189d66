package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/molbuild/internal/mol"
)

// NewShowCommand creates the show command.
func NewShowCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "show <molecule-id>",
		Short: "Print a stored molecule document",
		Long: `Print one molecule document by id as canonical JSON.

Example:
  molbuild show --db ./molbuild.db mol-3`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runShow(rootOpts, args[0], cmd)
		},
	}
}

func runShow(opts *RootOptions, id string, cmd *cobra.Command) error {
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

	doc, err := e.molecules.Get(cmd.Context(), id)
	if err != nil {
		return formatter.Fail(WrapExitError(ExitFailure, "failed to read molecule", err))
	}
	if doc == nil {
		return formatter.Fail(&ExitError{Code: ExitFailure, Reason: ErrCodeNotFound, Message: fmt.Sprintf("molecule %s not found", id)})
	}

	if formatter.Format == "json" {
		return formatter.Success(doc)
	}
	data, err := mol.MarshalCanonical(doc)
	if err != nil {
		return formatter.Fail(WrapExitError(ExitFailure, "failed to encode molecule", err))
	}
	return formatter.Success(string(data))
}
