package harness

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunWithGolden_ETLPipeline(t *testing.T) {
	scenario, err := LoadScenario(filepath.Join("testdata", "scenarios", "etl_pipeline.yaml"))
	require.NoError(t, err)

	result, err := RunWithGolden(t, scenario)
	require.NoError(t, err)
	assert.True(t, result.Pass)
}

func TestSnapshot_StableKeys(t *testing.T) {
	result := NewResult()
	data, err := Snapshot("empty", result)
	require.NoError(t, err)

	assert.Equal(t, `{
  "scenario_name": "empty",
  "pass": true,
  "objects": {},
  "trace": [],
  "errors": []
}
`, string(data))
}
