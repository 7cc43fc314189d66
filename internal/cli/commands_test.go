package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/molbuild/internal/mol"
	"github.com/roach88/molbuild/internal/rules"
)

func TestShowCommand(t *testing.T) {
	dir := t.TempDir()
	db := filepath.Join(dir, "molbuild.db")
	_, _, err := execute(t, "--db", db, "ingest", writeTaskFile(t, dir, seedRecords()...))
	require.NoError(t, err)
	_, _, err = execute(t, "--db", db, "run")
	require.NoError(t, err)

	out, _, err := execute(t, "--db", db, "show", "mol-1")
	require.NoError(t, err)
	doc, err := mol.DecodeJSON([]byte(out))
	require.NoError(t, err)
	assert.Equal(t, "mol-1", doc[mol.KeyID])
	assert.Equal(t, []any{"mol-1", "mol-2"}, doc[mol.KeyTaskIDs])
	assert.Contains(t, doc, mol.KeyBuiltAt)

	out, _, err = execute(t, "--db", db, "--format", "json", "show", "mol-5")
	require.NoError(t, err)
	_, data := decodeResponse(t, out)
	assert.Equal(t, "mol-5", data[mol.KeyID])
	assert.Equal(t, "C-H", data["chemsys"])

	out, _, err = execute(t, "--db", db, "--format", "json", "show", "mol-9")
	require.Error(t, err)
	resp, _ := decodeResponse(t, out)
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeNotFound, resp.Error.Code)
}

func TestRulesValidateDefault(t *testing.T) {
	out, _, err := execute(t, "rules", "validate")
	require.NoError(t, err)
	assert.Contains(t, out, rules.DefaultName)

	out, _, err = execute(t, "--format", "json", "rules", "validate")
	require.NoError(t, err)
	_, data := decodeResponse(t, out)
	assert.Equal(t, true, data["valid"])
	assert.Contains(t, data["allowed_task_types"], "Single Point")
	assert.NotContains(t, data, "table")
}

func TestRulesShowRoundTrips(t *testing.T) {
	out, _, err := execute(t, "rules", "show")
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "rules.yaml")
	require.NoError(t, os.WriteFile(path, []byte(out), 0o644))

	shown, err := rules.Load(path)
	require.NoError(t, err)
	def, err := rules.Default()
	require.NoError(t, err)
	assert.Equal(t, def.Rules(), shown.Rules())

	out, _, err = execute(t, "--format", "json", "rules", "show", path)
	require.NoError(t, err)
	_, data := decodeResponse(t, out)
	assert.Len(t, data["table"], def.Len())
}

func TestRulesValidateInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("rules:\n  - target: energy\n"), 0o644))

	out, _, err := execute(t, "--format", "json", "rules", "validate", path)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	resp, _ := decodeResponse(t, out)
	require.NotNil(t, resp.Error)
	assert.Equal(t, rules.ErrCodeLoadFailed, resp.Error.Code)
}
