package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const harnessScenarios = "../harness/testdata/scenarios"

func TestScenario_HarnessSuite(t *testing.T) {
	out, err := execute(t, NewScenarioCommand(&RootOptions{Format: "json"}), harnessScenarios)
	require.NoError(t, err, out)

	var summary ScenarioSummary
	resp := decodeResponse(t, out, &summary)
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, 5, summary.Total)
	assert.Equal(t, 5, summary.Passed)

	golden := map[string]string{}
	for _, s := range summary.Scenarios {
		golden[s.Name] = s.Golden
	}
	assert.Equal(t, "match", golden["supersede"])
	assert.Equal(t, "match", golden["error_retry"])
	assert.Equal(t, "none", golden["pagination"])
}

func TestScenario_Filter(t *testing.T) {
	out, err := execute(t, NewScenarioCommand(&RootOptions{Format: "text"}),
		harnessScenarios, "--filter", "super*")
	require.NoError(t, err)
	assert.Contains(t, out, "✓ supersede")
	assert.Contains(t, out, "Scenario Summary: 1 passed, 0 failed, 1 total")
}

func scenarioDir(t *testing.T, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	dir := filepath.Join(root, "scenarios")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
	}
	return dir
}

func TestScenario_UpdateWritesGolden(t *testing.T) {
	data, err := os.ReadFile(filepath.Join(harnessScenarios, "pagination.yaml"))
	require.NoError(t, err)
	dir := scenarioDir(t, map[string]string{"pagination.yaml": string(data)})

	out, err := execute(t, NewScenarioCommand(&RootOptions{Format: "text"}), dir, "--update")
	require.NoError(t, err)
	assert.Contains(t, out, "✓ pagination (golden updated)")

	goldenFile := filepath.Join(filepath.Dir(dir), "golden", "pagination.golden")
	golden, err := os.ReadFile(goldenFile)
	require.NoError(t, err)
	assert.Contains(t, string(golden), `"scenario_name": "pagination"`)

	// A second run compares against the file just written.
	out, err = execute(t, NewScenarioCommand(&RootOptions{Format: "json"}), dir)
	require.NoError(t, err)
	var summary ScenarioSummary
	decodeResponse(t, out, &summary)
	require.Len(t, summary.Scenarios, 1)
	assert.Equal(t, "match", summary.Scenarios[0].Golden)

	// A stale golden file fails the scenario.
	require.NoError(t, os.WriteFile(goldenFile, []byte("{}\n"), 0o644))
	out, err = execute(t, NewScenarioCommand(&RootOptions{Format: "text"}), dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "trace does not match golden file")
}

const failingScenario = `name: wrong_total
description: "expects the wrong total"
definition:
  id: tasks
  columns: [id, title]
records:
  generate: 3
steps:
  - op: reload
    expect:
      total: 4
`

func TestScenario_Failure(t *testing.T) {
	dir := scenarioDir(t, map[string]string{"wrong_total.yaml": failingScenario})

	out, err := execute(t, NewScenarioCommand(&RootOptions{Format: "json"}), dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	resp := decodeResponse(t, out, nil)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "E_SCENARIO_FAILED", resp.Error.Code)
	assert.Equal(t, "1 scenario(s) failed", resp.Error.Message)
}

func TestScenario_LoadErrorIsReported(t *testing.T) {
	dir := scenarioDir(t, map[string]string{"broken.yaml": "name: broken\nbogus: true\n"})

	out, err := execute(t, NewScenarioCommand(&RootOptions{Format: "text"}), dir)
	require.Error(t, err)
	assert.Contains(t, out, "✗ broken.yaml")
	assert.Contains(t, out, "failed to load scenario")
}

func TestScenario_MissingPath(t *testing.T) {
	_, err := execute(t, NewScenarioCommand(&RootOptions{Format: "text"}), "testdata/no-such-dir")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}
