package mol

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRuleTable(t *testing.T) {
	rules := []Rule{
		{TargetField: "energy", SourcePath: "output.energy", QualityByTaskType: map[string]float64{"Single Point": 2, "Geometry Optimization": 1}, Track: true},
		{TargetField: "thermo.enthalpy", SourcePath: "output.enthalpy", QualityByTaskType: map[string]float64{"Frequency Analysis": 1}, Optional: true},
	}

	table, err := NewRuleTable(rules)
	require.NoError(t, err)
	assert.Equal(t, 2, table.Len())
	assert.Equal(t, []string{"Frequency Analysis", "Geometry Optimization", "Single Point"}, table.AllowedTaskTypes())
	assert.True(t, table.Allows("Single Point"))
	assert.False(t, table.Allows("Transition State"))

	q, ok := table.Rule(0).Quality("Single Point")
	assert.True(t, ok)
	assert.Equal(t, 2.0, q)
	_, ok = table.Rule(0).Quality("Frequency Analysis")
	assert.False(t, ok)
}

func TestNewRuleTableIsImmutable(t *testing.T) {
	quality := map[string]float64{"Single Point": 1}
	rules := []Rule{{TargetField: "energy", SourcePath: "output.energy", QualityByTaskType: quality}}

	table, err := NewRuleTable(rules)
	require.NoError(t, err)

	quality["Single Point"] = 99
	rules[0].TargetField = "changed"
	table.Rules()[0].TargetField = "changed too"

	assert.Equal(t, "energy", table.Rule(0).TargetField)
	q, _ := table.Rule(0).Quality("Single Point")
	assert.Equal(t, 1.0, q)
}

func TestNewRuleTableRejects(t *testing.T) {
	valid := map[string]float64{"Single Point": 1}
	tests := []struct {
		name  string
		rules []Rule
	}{
		{"empty target", []Rule{{SourcePath: "a", QualityByTaskType: valid}}},
		{"empty source", []Rule{{TargetField: "a", QualityByTaskType: valid}}},
		{"reserved target", []Rule{{TargetField: "task_ids", SourcePath: "a", QualityByTaskType: valid}}},
		{"reserved root", []Rule{{TargetField: "origins.x", SourcePath: "a", QualityByTaskType: valid}}},
		{"no task types", []Rule{{TargetField: "a", SourcePath: "a"}}},
		{"empty task type", []Rule{{TargetField: "a", SourcePath: "a", QualityByTaskType: map[string]float64{"": 1}}}},
		{"nested targets", []Rule{
			{TargetField: "thermo", SourcePath: "a", QualityByTaskType: valid},
			{TargetField: "thermo.h", SourcePath: "b", QualityByTaskType: valid},
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewRuleTable(tt.rules)
			assert.Error(t, err)
		})
	}
}

func TestNewRuleTableAllowsRepeatedTarget(t *testing.T) {
	_, err := NewRuleTable([]Rule{
		{TargetField: "structure", SourcePath: "output.optimized_molecule", QualityByTaskType: map[string]float64{"Geometry Optimization": 1}},
		{TargetField: "structure", SourcePath: "output.initial_molecule", QualityByTaskType: map[string]float64{"Single Point": 1}},
	})
	assert.NoError(t, err)
}
