package builder

import (
	"github.com/roach88/molbuild/internal/mol"
)

// DefaultEnergyPath locates a task's final energy.
const DefaultEnergyPath = "output.energy"

// Extractor produces candidate property values from single tasks.
type Extractor struct {
	Rules      *mol.RuleTable
	EnergyPath string
}

// Extract applies every rule that names the task's type.
//
// A missing source path on a non-optional rule yields a
// MISSING_SOURCE_PATH error; extraction continues with the remaining rules.
// Candidate values are deep copies of the task payload.
func (e Extractor) Extract(task mol.Task) ([]mol.Candidate, []error) {
	energy := taskEnergy(task, e.energyPath())

	var out []mol.Candidate
	var errs []error
	for i := 0; i < e.Rules.Len(); i++ {
		rule := e.Rules.Rule(i)
		quality, ok := rule.Quality(task.TaskType)
		if !ok {
			continue
		}
		v, ok := mol.Get(task.Doc, rule.SourcePath)
		if !ok {
			if !rule.Optional {
				errs = append(errs, mol.NewMissingSourcePathError(task.TaskID, rule.SourcePath))
			}
			continue
		}
		out = append(out, mol.Candidate{
			Value:       mol.Clone(v),
			TaskType:    task.TaskType,
			TaskID:      task.TaskID,
			Quality:     quality,
			Track:       rule.Track,
			Aggregate:   rule.Aggregate,
			LastUpdated: task.LastUpdated,
			Energy:      energy,
			TargetField: rule.TargetField,
			RuleIndex:   i,
		})
	}
	return out, errs
}

func (e Extractor) energyPath() string {
	if e.EnergyPath == "" {
		return DefaultEnergyPath
	}
	return e.EnergyPath
}

// taskEnergy reads the task energy, defaulting to 0 when absent or not a
// number.
func taskEnergy(task mol.Task, path string) float64 {
	v, ok := mol.Get(task.Doc, path)
	if !ok {
		return 0
	}
	f, ok := mol.ToFloat(v)
	if !ok {
		return 0
	}
	return f
}
