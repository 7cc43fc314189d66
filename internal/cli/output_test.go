package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/molbuild/internal/mol"
	"github.com/roach88/molbuild/internal/rules"
)

func TestOutputFormatter_JSONSuccess(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{Format: "json", Writer: buf}

	require.NoError(t, formatter.SuccessWithPass("pass-1", map[string]int{"written": 2}))

	var resp CLIResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "pass-1", resp.PassID)
	assert.Equal(t, map[string]any{"written": float64(2)}, resp.Data)
}

func TestOutputFormatter_JSONError(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{Format: "json", Writer: buf}

	require.NoError(t, formatter.Error(ErrCodeStore, "store unavailable", map[string]string{"op": "upsert"}))

	var resp CLIResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeStore, resp.Error.Code)
	assert.Equal(t, "store unavailable", resp.Error.Message)
	assert.NotNil(t, resp.Error.Details)
}

func TestOutputFormatter_Text(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{Format: "text", Writer: buf, Verbose: true}

	require.NoError(t, formatter.Success("2 formula(s) to process"))
	require.NoError(t, formatter.Error(ErrCodeNotFound, "molecule mol-9 not found", "details"))

	assert.Contains(t, buf.String(), "2 formula(s) to process")
	assert.Contains(t, buf.String(), "Error [E040]: molecule mol-9 not found")
	assert.Contains(t, buf.String(), "Details: details")
}

func TestOutputFormatter_VerboseLog(t *testing.T) {
	tests := []struct {
		name    string
		verbose bool
		wantLog bool
	}{
		{"verbose_enabled", true, true},
		{"verbose_disabled", false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, errOut := &bytes.Buffer{}, &bytes.Buffer{}
			formatter := &OutputFormatter{Format: "json", Writer: out, ErrWriter: errOut, Verbose: tt.verbose}

			formatter.VerboseLog("read %d task(s)", 3)

			assert.Empty(t, out.String())
			if tt.wantLog {
				assert.Equal(t, "read 3 task(s)\n", errOut.String())
			} else {
				assert.Empty(t, errOut.String())
			}
		})
	}
}

func TestOutputFormatter_Fail(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{Format: "json", Writer: buf}

	err := formatter.Fail(commandError(ErrCodeIngest, "failed to read tasks", errors.New("line 2: bad json")))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))

	resp, _ := decodeResponse(t, buf.String())
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeIngest, resp.Error.Code)
	assert.Equal(t, "failed to read tasks: line 2: bad json", resp.Error.Message)
}

func TestErrorCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"plain", errors.New("boom"), ErrCodeGeneric},
		{"reason", commandError(ErrCodeConfig, "bad", nil), ErrCodeConfig},
		{"load error", commandError(ErrCodeConfig, "rules", &rules.LoadError{Code: rules.ErrCodeInvalidRule}), rules.ErrCodeInvalidRule},
		{"store", fmt.Errorf("pass: %w", mol.NewStoreError("upsert", errors.New("down"))), ErrCodeStore},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ErrorCode(tt.err))
		})
	}
}

func TestGetExitCode(t *testing.T) {
	assert.Equal(t, ExitFailure, GetExitCode(errors.New("boom")))
	assert.Equal(t, ExitCommandError, GetExitCode(fmt.Errorf("wrapped: %w", NewExitError(ExitCommandError, "bad"))))
}
