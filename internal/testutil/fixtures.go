package testutil

import (
	"time"

	"github.com/roach88/molbuild/internal/mol"
)

// Day returns midnight UTC of the given day in January 2024.
func Day(d int) time.Time {
	return time.Date(2024, time.January, d, 0, 0, 0, 0, time.UTC)
}

// Site is one atom of a fixture structure.
type Site struct {
	Element string
	XYZ     [3]float64
}

// Structure builds a serialized molecule with unit occupancies.
func Structure(charge, spin int64, sites ...Site) map[string]any {
	list := make([]any, len(sites))
	for i, s := range sites {
		list[i] = map[string]any{
			"name":    s.Element,
			"species": []any{map[string]any{"element": s.Element, "occu": int64(1)}},
			"xyz":     []any{s.XYZ[0], s.XYZ[1], s.XYZ[2]},
		}
	}
	return map[string]any{
		"charge":            charge,
		"spin_multiplicity": spin,
		"sites":             list,
	}
}

// Water returns a neutral singlet water geometry with the second hydrogen
// at x = hx, so distinct geometries can be produced.
func Water(hx float64) map[string]any {
	return Structure(0, 1,
		Site{"O", [3]float64{0, 0, 0}},
		Site{"H", [3]float64{0, 0, 0.96}},
		Site{"H", [3]float64{hx, 0, -0.24}},
	)
}

// Methane returns a neutral singlet methane geometry.
func Methane() map[string]any {
	return Structure(0, 1,
		Site{"C", [3]float64{0, 0, 0}},
		Site{"H", [3]float64{0.63, 0.63, 0.63}},
		Site{"H", [3]float64{-0.63, -0.63, 0.63}},
		Site{"H", [3]float64{-0.63, 0.63, -0.63}},
		Site{"H", [3]float64{0.63, -0.63, -0.63}},
	)
}

// TaskSpec describes a fixture task.
type TaskSpec struct {
	ID          string
	Formula     string
	JobType     string // orig.rem.job_type
	State       string // default "successful"
	LastUpdated time.Time
	Energy      *float64
	Initial     map[string]any
	Optimized   map[string]any
	Method      string
}

// Energy returns a pointer for TaskSpec.Energy.
func Energy(e float64) *float64 {
	return &e
}

// Task builds a task record from spec.
func Task(spec TaskSpec) mol.Task {
	state := spec.State
	if state == "" {
		state = "successful"
	}
	rem := map[string]any{"job_type": spec.JobType}
	if spec.Method != "" {
		rem["method"] = spec.Method
	}
	output := map[string]any{}
	if spec.Initial != nil {
		output["initial_molecule"] = spec.Initial
	}
	if spec.Optimized != nil {
		output["optimized_molecule"] = spec.Optimized
	}
	if spec.Energy != nil {
		output["energy"] = *spec.Energy
	}
	return mol.Task{
		TaskID:      spec.ID,
		Formula:     spec.Formula,
		State:       state,
		LastUpdated: spec.LastUpdated,
		Doc: map[string]any{
			"task_id": spec.ID,
			"orig":    map[string]any{"rem": rem},
			"output":  output,
		},
	}
}

// Rule is shorthand for a rule applying to the given task types with the
// given scores (alternating type, score).
func Rule(target, source string, typeScores ...any) mol.Rule {
	q := make(map[string]float64)
	for i := 0; i+1 < len(typeScores); i += 2 {
		q[typeScores[i].(string)] = float64(typeScores[i+1].(int))
	}
	return mol.Rule{TargetField: target, SourcePath: source, QualityByTaskType: q}
}
