package config

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/molbuild/internal/filter"
	"github.com/roach88/molbuild/internal/store"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, store.DriverSQLite, cfg.Database.Driver)
	assert.Equal(t, "molbuild.db", cfg.Database.DSN)
	assert.Equal(t, runtime.NumCPU(), cfg.Workers)
	assert.Equal(t, 2*time.Minute, cfg.GroupTimeout)
	assert.Equal(t, "output.energy", cfg.EnergyPath)
	assert.Equal(t, "output.initial_molecule", cfg.StructurePath)
	assert.Equal(t, store.DefaultRetryPolicy(), cfg.RetryPolicy())
	require.NoError(t, cfg.Validate())

	p, err := cfg.Filter()
	require.NoError(t, err)
	assert.Nil(t, p)
}

func TestParse(t *testing.T) {
	cfg, err := Parse([]byte(`
database:
  driver: pgx
  dsn: postgres://localhost/molbuild?sslmode=disable
rules: rules/molecules.cue
query:
  formula: [H2O, CH4]
  task_id: mol-1
workers: 3
group_timeout: 30s
retry:
  max_attempts: 2
  initial_backoff: 50ms
  max_backoff: 1s
metrics_addr: ":9102"
`))
	require.NoError(t, err)

	assert.Equal(t, store.DriverPostgres, cfg.Database.Driver)
	assert.Equal(t, "rules/molecules.cue", cfg.Rules)
	assert.Equal(t, 3, cfg.Workers)
	assert.Equal(t, 30*time.Second, cfg.GroupTimeout)
	assert.Equal(t, ":9102", cfg.MetricsAddr)
	assert.Equal(t, store.RetryPolicy{
		MaxAttempts:    2,
		InitialBackoff: 50 * time.Millisecond,
		MaxBackoff:     time.Second,
		RateLimit:      store.DefaultRetryPolicy().RateLimit,
		Burst:          store.DefaultRetryPolicy().Burst,
	}, cfg.RetryPolicy())

	p, err := cfg.Filter()
	require.NoError(t, err)
	assert.Equal(t, filter.And{Predicates: []filter.Predicate{
		filter.In{Field: filter.FieldFormula, Values: []string{"H2O", "CH4"}},
		filter.Equals{Field: filter.FieldTaskID, Value: "mol-1"},
	}}, p)
}

func TestParseEmpty(t *testing.T) {
	cfg, err := Parse(nil)
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name, yaml, want string
	}{
		{"unknown field", "worker: 3\n", "field worker not found"},
		{"bad driver", "database: {driver: mysql, dsn: x}\n", "database.driver"},
		{"pgx needs dsn", "database: {driver: pgx}\n", "database.dsn is required"},
		{"negative workers", "workers: -1\n", "workers must be at least 1"},
		{"backoff order", "retry: {initial_backoff: 2s, max_backoff: 1s}\n", "exceeds retry.max_backoff"},
		{"bad query field", "query: {doc: x}\n", "unsupported field"},
		{"bad query value", "query: {formula: 3}\n", "want string"},
		{"bad duration", "group_timeout: soon\n", "failed to parse YAML"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), DefaultFile)
	require.NoError(t, os.WriteFile(path, []byte("workers: 1\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 1, cfg.Workers)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	cfg, err = Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}
