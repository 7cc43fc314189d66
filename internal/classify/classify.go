// Package classify derives task types from raw task input metadata.
package classify

import (
	"fmt"
	"strings"

	"github.com/roach88/molbuild/internal/mol"
)

// Task type labels produced by JobType.
const (
	GeometryOptimization   = "Geometry Optimization"
	FrequencyFlatteningOpt = "Frequency Flattening Geometry Optimization"
	FrequencyAnalysis      = "Frequency Analysis"
	SinglePoint            = "Single Point"
	TransitionState        = "Transition State Geometry Optimization"
	ForceCalculation       = "Force"
	PotentialEnergySurface = "PES Scan"
	Unknown                = "Unknown"
)

var jobTypes = map[string]string{
	"opt":       GeometryOptimization,
	"optimize":  GeometryOptimization,
	"ffopt":     FrequencyFlatteningOpt,
	"freq":      FrequencyAnalysis,
	"frequency": FrequencyAnalysis,
	"sp":        SinglePoint,
	"ts":        TransitionState,
	"force":     ForceCalculation,
	"pes_scan":  PotentialEnergySurface,
}

// JobType classifies tasks from the input section of the task record
// ("orig"). An explicit orig.task_type wins; otherwise orig.rem.job_type is
// mapped to a label. Unrecognized job types classify as Unknown, which no
// rule table is expected to allow.
type JobType struct{}

// Classify implements ports.Classifier.
func (JobType) Classify(orig map[string]any) (string, error) {
	if orig == nil {
		return "", fmt.Errorf("classify: task has no input metadata")
	}
	if tt, ok := orig["task_type"].(string); ok && tt != "" {
		return tt, nil
	}
	raw, ok := mol.Get(orig, "rem.job_type")
	if !ok {
		return "", fmt.Errorf("classify: rem.job_type missing")
	}
	job, ok := raw.(string)
	if !ok {
		return "", fmt.Errorf("classify: rem.job_type is %T, want string", raw)
	}
	if label, ok := jobTypes[strings.ToLower(strings.TrimSpace(job))]; ok {
		return label, nil
	}
	return Unknown, nil
}

// Static classifies every task with a fixed label.
type Static string

// Classify implements ports.Classifier.
func (s Static) Classify(map[string]any) (string, error) {
	return string(s), nil
}
