package cli

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/roach88/molbuild/internal/mol"
)

// Task file formats accepted by ingest.
const (
	FormatJSONLines = "jsonl"
	FormatYAML      = "yaml"
)

// IngestResult is the ingest command payload.
type IngestResult struct {
	File  string `json:"file"`
	Tasks int    `json:"tasks"`
}

func (r IngestResult) String() string {
	return fmt.Sprintf("ingested %d task(s) from %s", r.Tasks, r.File)
}

// NewIngestCommand creates the ingest command.
func NewIngestCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ingest <file>",
		Short: "Load task records into the task store",
		Long: `Load task records from a JSON-lines (.jsonl, .ndjson, .json) or YAML
(.yaml, .yml) file. Records are inserted or replaced by task_id.

Each record needs task_id, formula, state and last_updated; the whole
record is stored as the task document.

Example:
  molbuild ingest --db ./molbuild.db tasks.jsonl`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runIngest(rootOpts, args[0], cmd)
		},
	}
	return cmd
}

func runIngest(opts *RootOptions, path string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	tasks, err := ReadTaskFile(path)
	if err != nil {
		return formatter.Fail(commandError(ErrCodeIngest, "failed to read tasks", err))
	}
	formatter.VerboseLog("Read %d task(s) from %s", len(tasks), path)

	e, err := openEnv(opts, cmd)
	if err != nil {
		return formatter.Fail(err)
	}
	defer e.Close()

	// Ingest writes through the raw store: one transaction, no retry.
	if err := e.store.PutTasks(cmd.Context(), tasks); err != nil {
		return formatter.Fail(WrapExitError(ExitFailure, "failed to store tasks", err))
	}
	e.logger.Info("tasks ingested", "file", path, "tasks", len(tasks))
	return formatter.Success(IngestResult{File: path, Tasks: len(tasks)})
}

// ReadTaskFile reads task records, choosing the format by extension.
func ReadTaskFile(path string) ([]mol.Task, error) {
	var format string
	switch strings.ToLower(filepath.Ext(path)) {
	case ".jsonl", ".ndjson", ".json":
		format = FormatJSONLines
	case ".yaml", ".yml":
		format = FormatYAML
	default:
		return nil, fmt.Errorf("unsupported task file %q (want .jsonl, .ndjson, .json, .yaml or .yml)", path)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadTasks(f, format)
}

// ReadTasks decodes task records from r. JSON input is one object per
// line; a top-level array is also accepted. YAML input is a sequence of
// records or a stream of record documents.
func ReadTasks(r io.Reader, format string) ([]mol.Task, error) {
	var records []map[string]any
	var err error
	switch format {
	case FormatJSONLines:
		records, err = readJSONRecords(r)
	case FormatYAML:
		records, err = readYAMLRecords(r)
	default:
		return nil, fmt.Errorf("unsupported task format %q", format)
	}
	if err != nil {
		return nil, err
	}

	tasks := make([]mol.Task, 0, len(records))
	seen := make(map[string]int, len(records))
	for i, rec := range records {
		t, err := mol.TaskFromRecord(rec)
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", i+1, err)
		}
		if prev, ok := seen[t.TaskID]; ok {
			return nil, fmt.Errorf("record %d: duplicate task_id %s (first at record %d)", i+1, t.TaskID, prev)
		}
		seen[t.TaskID] = i + 1
		tasks = append(tasks, t)
	}
	return tasks, nil
}

func readJSONRecords(r io.Reader) ([]map[string]any, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	if trimmed := bytes.TrimSpace(data); len(trimmed) > 0 && trimmed[0] == '[' {
		wrapped, err := mol.DecodeJSON(append(append([]byte(`{"records":`), trimmed...), '}'))
		if err != nil {
			return nil, err
		}
		return asRecords(wrapped["records"])
	}

	var records []map[string]any
	sc := bufio.NewScanner(bytes.NewReader(data))
	sc.Buffer(make([]byte, 0, 64*1024), 64*1024*1024)
	line := 0
	for sc.Scan() {
		line++
		text := bytes.TrimSpace(sc.Bytes())
		if len(text) == 0 {
			continue
		}
		rec, err := mol.DecodeJSON(text)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		records = append(records, rec)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return records, nil
}

func readYAMLRecords(r io.Reader) ([]map[string]any, error) {
	dec := yaml.NewDecoder(r)
	var records []map[string]any
	for doc := 1; ; doc++ {
		var v any
		err := dec.Decode(&v)
		if errors.Is(err, io.EOF) {
			return records, nil
		}
		if err != nil {
			return nil, fmt.Errorf("document %d: %w", doc, err)
		}
		norm, err := mol.Normalize(v)
		if err != nil {
			return nil, fmt.Errorf("document %d: %w", doc, err)
		}
		if norm == nil {
			continue
		}
		if m, ok := norm.(map[string]any); ok {
			records = append(records, m)
			continue
		}
		recs, err := asRecords(norm)
		if err != nil {
			return nil, fmt.Errorf("document %d: %w", doc, err)
		}
		records = append(records, recs...)
	}
}

func asRecords(v any) ([]map[string]any, error) {
	list, ok := v.([]any)
	if !ok {
		return nil, fmt.Errorf("want a list of task records, got %T", v)
	}
	out := make([]map[string]any, len(list))
	for i, elem := range list {
		m, ok := elem.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("[%d]: want a task record, got %T", i, elem)
		}
		out[i] = m
	}
	return out, nil
}
