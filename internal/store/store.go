package store

import (
	"database/sql"
	_ "embed"
	"fmt"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/mattn/go-sqlite3"

	"github.com/roach88/molbuild/internal/filtersql"
	"github.com/roach88/molbuild/internal/ports"
)

//go:embed schema.sql
var schemaSQL string

// Supported database/sql driver names.
const (
	DriverSQLite   = "sqlite3"
	DriverPostgres = "pgx"
)

// Schema version tracking (SQLite user_version):
// 0 - Initial schema (pre-migration)
// 1 - Added molecule_id index on molecule_tasks
const currentSchemaVersion = 1

var (
	_ ports.TaskStore     = (*Store)(nil)
	_ ports.TaskSink      = (*Store)(nil)
	_ ports.MoleculeStore = (*Store)(nil)
)

// Store is the SQL implementation of the task and molecule ports.
type Store struct {
	db       *sql.DB
	dialect  filtersql.Dialect
	compiler *filtersql.Compiler
}

// Open connects to the database, applies pragmas (SQLite) and brings the
// schema up to date. dsn is a file path for sqlite3 and a connection URL
// for pgx.
//
// This function is idempotent - safe to call multiple times.
func Open(driver, dsn string) (*Store, error) {
	var dialect filtersql.Dialect
	switch driver {
	case DriverSQLite:
		dialect = filtersql.SQLite
	case DriverPostgres:
		dialect = filtersql.Postgres
	default:
		return nil, fmt.Errorf("unsupported driver %q (want %s or %s)", driver, DriverSQLite, DriverPostgres)
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if dialect == filtersql.SQLite {
		// SQLite supports one writer at a time
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)

		if err := applyPragmas(db); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to apply pragmas: %w", err)
		}
	}

	if err := applySchema(db, dialect); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	return &Store{db: db, dialect: dialect, compiler: filtersql.NewCompiler(dialect)}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// DB returns the underlying sql.DB for direct queries.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Dialect reports the SQL dialect in use.
func (s *Store) Dialect() filtersql.Dialect {
	return s.dialect
}

// q rebinds a "?" statement for the store's dialect.
func (s *Store) q(query string) string {
	return s.dialect.Rebind(query)
}

// applyPragmas sets required SQLite configuration.
func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	}

	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}

	return nil
}

// applySchema creates tables if they don't exist and runs migrations.
// Statements are executed one at a time so both drivers accept them.
func applySchema(db *sql.DB, dialect filtersql.Dialect) error {
	for _, stmt := range schemaStatements() {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("failed to execute schema: %w", err)
		}
	}

	if dialect != filtersql.SQLite {
		// PostgreSQL has no user_version; every migration is also expressed
		// as an IF NOT EXISTS statement and simply re-applied.
		return migrateToV1(db)
	}

	if err := runMigrations(db); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}

// schemaStatements splits the embedded schema into single statements,
// dropping comment lines.
func schemaStatements() []string {
	var lines []string
	for _, line := range strings.Split(schemaSQL, "\n") {
		if strings.HasPrefix(strings.TrimSpace(line), "--") {
			continue
		}
		lines = append(lines, line)
	}

	var stmts []string
	for _, stmt := range strings.Split(strings.Join(lines, "\n"), ";") {
		if stmt = strings.TrimSpace(stmt); stmt != "" {
			stmts = append(stmts, stmt)
		}
	}
	return stmts
}

// runMigrations applies incremental schema migrations based on user_version.
func runMigrations(db *sql.DB) error {
	var version int
	if err := db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("get user_version: %w", err)
	}

	if version < 1 {
		if err := migrateToV1(db); err != nil {
			return err
		}
	}

	if _, err := db.Exec(fmt.Sprintf("PRAGMA user_version = %d", currentSchemaVersion)); err != nil {
		return fmt.Errorf("set user_version: %w", err)
	}
	return nil
}

// migrateToV1 indexes molecule_tasks by molecule so per-molecule rewrites
// during upsert do not scan the table.
func migrateToV1(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_molecule_tasks_molecule
		ON molecule_tasks(molecule_id)
	`)
	if err != nil {
		return fmt.Errorf("migrate to v1: %w", err)
	}
	return nil
}

// verifyPragma checks that a pragma is set to the expected value.
// Used for testing.
func (s *Store) verifyPragma(name, expected string) error {
	var value string
	query := fmt.Sprintf("PRAGMA %s", name)
	if err := s.db.QueryRow(query).Scan(&value); err != nil {
		return fmt.Errorf("failed to query %s: %w", name, err)
	}
	if value != expected {
		return fmt.Errorf("%s = %q, expected %q", name, value, expected)
	}
	return nil
}
