package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/roach88/molbuild/internal/mol"
	"github.com/roach88/molbuild/internal/pipeline"
	"github.com/roach88/molbuild/internal/rules"
)

// Exit codes for CLI commands.
const (
	ExitSuccess      = 0 // Successful execution
	ExitFailure      = 1 // Pass aborted, formulas failed, or validation failed
	ExitCommandError = 2 // Command error (bad config, unreadable input, store not reachable)
)

// Error codes reported in CLIError.Code. Rule-table load errors keep the
// codes assigned by the rules package.
const (
	ErrCodeGeneric      = "E001"
	ErrCodeConfig       = "E010" // molbuild.yaml or flags invalid
	ErrCodeStoreOpen    = "E011" // database could not be opened or migrated
	ErrCodeStore        = "E020" // store unavailable after retries, pass aborted
	ErrCodePartial      = "E021" // pass completed with failed formulas
	ErrCodeIngest       = "E030" // task file could not be parsed
	ErrCodeNotFound     = "E040" // molecule id not in the store
	ErrCodeInvalidQuery = "E050" // task filter rejected
)

// ExitError represents an error with a specific exit code.
type ExitError struct {
	Code    int    // Exit code (use ExitFailure or ExitCommandError)
	Reason  string // Error code for JSON output (optional)
	Message string // Error message
	Err     error  // Underlying error (optional)
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// NewExitError creates a new ExitError with the given code and message.
func NewExitError(code int, message string) *ExitError {
	return &ExitError{Code: code, Message: message}
}

// WrapExitError wraps an existing error with an exit code.
func WrapExitError(code int, message string, err error) *ExitError {
	return &ExitError{Code: code, Message: message, Err: err}
}

// commandError is an ExitCommandError carrying an error code.
func commandError(reason, message string, err error) *ExitError {
	return &ExitError{Code: ExitCommandError, Reason: reason, Message: message, Err: err}
}

// GetExitCode extracts the exit code from an error.
// Returns ExitFailure (1) if the error is not an ExitError.
func GetExitCode(err error) int {
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitFailure
}

// ErrorCode maps err to the code reported in JSON output.
func ErrorCode(err error) string {
	var (
		le      *rules.LoadError
		exitErr *ExitError
	)
	switch {
	case errors.As(err, &le):
		return le.Code
	case pipeline.IsAborted(err), mol.IsStoreUnavailable(err):
		return ErrCodeStore
	case errors.As(err, &exitErr) && exitErr.Reason != "":
		return exitErr.Reason
	}
	return ErrCodeGeneric
}

// OutputFormatter handles JSON vs text output for CLI commands.
type OutputFormatter struct {
	Format    string
	Writer    io.Writer
	ErrWriter io.Writer // Separate writer for verbose/diagnostic output (defaults to Writer)
	Verbose   bool
}

// CLIResponse is the standard JSON response format for CLI output.
type CLIResponse struct {
	Status string    `json:"status"`          // "ok" or "error"
	Data   any       `json:"data,omitempty"`  // success payload
	Error  *CLIError `json:"error,omitempty"` // error details
	PassID string    `json:"pass_id,omitempty"`
}

// CLIError is the error structure for CLI responses.
type CLIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// Success outputs a successful result in the configured format.
func (f *OutputFormatter) Success(data any) error {
	return f.SuccessWithPass("", data)
}

// SuccessWithPass is Success with the pass id attached to JSON output.
func (f *OutputFormatter) SuccessWithPass(passID string, data any) error {
	if f.Format == "json" {
		return json.NewEncoder(f.Writer).Encode(CLIResponse{
			Status: "ok",
			Data:   data,
			PassID: passID,
		})
	}

	_, err := fmt.Fprintln(f.Writer, data)
	return err
}

// Error outputs an error in the configured format.
func (f *OutputFormatter) Error(code, message string, details any) error {
	if f.Format == "json" {
		return json.NewEncoder(f.Writer).Encode(CLIResponse{
			Status: "error",
			Error: &CLIError{
				Code:    code,
				Message: message,
				Details: details,
			},
		})
	}

	fmt.Fprintf(f.Writer, "Error [%s]: %s\n", code, message)
	if f.Verbose && details != nil {
		fmt.Fprintf(f.Writer, "Details: %v\n", details)
	}
	return nil
}

// Fail reports err in the configured format and returns it as an
// ExitError for main to turn into the process exit code.
func (f *OutputFormatter) Fail(err error) error {
	var exitErr *ExitError
	if !errors.As(err, &exitErr) {
		exitErr = WrapExitError(ExitFailure, "command failed", err)
	}
	_ = f.Error(ErrorCode(err), exitErr.Error(), nil)
	return exitErr
}

// VerboseLog outputs a message only if verbose mode is enabled.
// When format is JSON, verbose logs go to ErrWriter to keep stdout parseable.
func (f *OutputFormatter) VerboseLog(format string, args ...any) {
	if !f.Verbose {
		return
	}
	fmt.Fprintf(f.GetErrWriter(), format+"\n", args...)
}

// GetErrWriter returns ErrWriter if set, otherwise Writer.
func (f *OutputFormatter) GetErrWriter() io.Writer {
	if f.ErrWriter != nil {
		return f.ErrWriter
	}
	return f.Writer
}
