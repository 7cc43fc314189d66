// Package harness runs build-pass scenarios for molbuild.
//
// A scenario ingests task records, runs one or more passes through the
// real pipeline against an in-memory SQLite store, and checks pass
// reports and the resulting molecule documents.
//
// # Scenario Format
//
//	name: scenario_name
//	description: "What this scenario validates"
//	rules: rules/water.yaml          # optional, relative to the scenario file
//	start: 2024-02-01T00:00:00Z      # optional pass clock start
//	query: { formula: H2O }          # optional task filter
//	passes:
//	  - tasks:                       # ingested before the pass
//	      - { task_id: mol-1, formula: H2O, state: successful, last_updated: ..., ... }
//	    expect:
//	      status: completed
//	      formulas: [H2O]
//	      written: 1
//	  - dry_run: true                # change detection only
//	    expect: { formulas: [] }
//	assertions:
//	  - type: molecule
//	    id: mol-1
//	    expect: { task_ids: [mol-1], "level_of_theory.method": wb97m-v }
//	  - type: molecule_absent
//	    id: mol-2
//	  - type: molecule_count
//	    count: 1
//	  - type: checkpoint
//	    checkpoint: 2024-01-03T00:00:00Z
//
// # Assertion Types
//
//   - molecule: the document exists and every expect path holds the value
//   - molecule_absent: no document has the id
//   - molecule_count: the store holds exactly count documents
//   - checkpoint: the last completed pass for the query recorded this checkpoint
//
// Values are compared by canonical JSON, so 2 and 2.0 are equal.
//
// # Deterministic Testing
//
// Passes are stamped by a fixed clock that advances one hour after each
// pass unless a step sets "at". Pass ids are "pass-1", "pass-2", and so on.
// Final documents can be compared against golden files with RunWithGolden.
package harness
