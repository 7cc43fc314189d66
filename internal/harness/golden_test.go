package harness

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWaterScenarioGolden(t *testing.T) {
	s, err := LoadScenario("testdata/scenarios/water_opt_and_sp.yaml")
	require.NoError(t, err)
	require.NoError(t, RunWithGolden(t, s))
}
