package cli

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	fixtureScenarios = filepath.Join("..", "harness", "testdata", "scenarios")
	fixtureGolden    = filepath.Join("..", "harness", "testdata", "golden")
)

type testResponse struct {
	Status string     `json:"status"`
	Data   TestResult `json:"data"`
	Error  *CLIError  `json:"error"`
}

// writeScenarioDir creates a scenarios directory with one scenario over
// a copy of the named fixture unit.
func writeScenarioDir(t *testing.T, unit, scenario string) string {
	t.Helper()
	dir := t.TempDir()
	data, err := os.ReadFile(unitPath(unit))
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, unit+".cue"), data, 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, unit+".yaml"), []byte(scenario), 0644))
	return dir
}

const pointerCycleScenario = `name: pointer_cycle
description: structs that point at each other
unit: pointer_cycle.cue
assertions:
  - type: forward
    flat: _ES1A
  - type: stat
    stat: defined
    count: 2
`

func TestTestCommandMissingArgs(t *testing.T) {
	_, err := executeCommand(t, "test")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "accepts 1 arg")
}

func TestTestCommandNonExistentScenariosDir(t *testing.T) {
	_, err := executeCommand(t, "test", "/nonexistent/scenarios")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "scenarios directory not found")
}

func TestTestCommandEmptyDir(t *testing.T) {
	output, err := executeCommand(t, "test", t.TempDir())
	require.NoError(t, err)
	assert.Contains(t, output, "No scenarios found.")
}

func TestTestCommandFixtures(t *testing.T) {
	output, err := executeCommand(t, "test", fixtureScenarios, "--golden", fixtureGolden)
	require.NoError(t, err)

	assert.Contains(t, output, "✓ class_scenario")
	assert.Contains(t, output, "✓ value_cycle")
	assert.Contains(t, output, "Test Summary: 7 passed, 0 failed, 7 total")
	assert.Contains(t, output, "✓ All scenarios passed")
}

func TestTestCommandFixturesJSON(t *testing.T) {
	output, err := executeCommand(t, "--format", "json", "test", fixtureScenarios, "--golden", fixtureGolden)
	require.NoError(t, err)

	var resp testResponse
	require.NoError(t, json.Unmarshal([]byte(output), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, 7, resp.Data.Total)
	assert.Equal(t, 7, resp.Data.Passed)

	golden := map[string]string{}
	for _, s := range resp.Data.Scenarios {
		golden[s.Name] = s.Golden
	}
	assert.Equal(t, "match", golden["class_scenario"])
	assert.Equal(t, "match", golden["variadic"])
	assert.Empty(t, golden["naming_conflict"], "failing lowerings have no listing")
}

func TestTestCommandFilter(t *testing.T) {
	output, err := executeCommand(t, "--format", "json", "test", fixtureScenarios, "--filter", "*_cycle")
	require.NoError(t, err)

	var resp testResponse
	require.NoError(t, json.Unmarshal([]byte(output), &resp))
	require.Equal(t, 2, resp.Data.Total)
	assert.Equal(t, "pointer_cycle", resp.Data.Scenarios[0].Name)
	assert.Equal(t, "value_cycle", resp.Data.Scenarios[1].Name)
	// No golden directory next to the fixtures.
	assert.Equal(t, "none", resp.Data.Scenarios[0].Golden)
}

func TestTestCommandInvalidFilter(t *testing.T) {
	_, err := executeCommand(t, "test", fixtureScenarios, "--filter", "[")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "invalid filter pattern")
}

func TestTestCommandUpdateThenMatch(t *testing.T) {
	dir := writeScenarioDir(t, "pointer_cycle", pointerCycleScenario)

	output, err := executeCommand(t, "test", dir, "--update")
	require.NoError(t, err)
	assert.Contains(t, output, "✓ pointer_cycle (golden updated)")

	written, err := os.ReadFile(filepath.Join(dir, "golden", "pointer_cycle.golden"))
	require.NoError(t, err)
	want, err := os.ReadFile(filepath.Join(fixtureGolden, "pointer_cycle.golden"))
	require.NoError(t, err)
	assert.Equal(t, string(want), string(written))

	output, err = executeCommand(t, "test", dir)
	require.NoError(t, err)
	assert.Contains(t, output, "✓ pointer_cycle")
}

func TestTestCommandGoldenMismatch(t *testing.T) {
	dir := writeScenarioDir(t, "pointer_cycle", pointerCycleScenario)
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "golden"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "golden", "pointer_cycle.golden"), []byte("unit stale\n"), 0644))

	output, err := executeCommand(t, "test", dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, output, "✗ pointer_cycle")
	assert.Contains(t, output, "listing does not match golden file")
	assert.Contains(t, output, "Test Summary: 0 passed, 1 failed, 1 total")
}

func TestTestCommandFailingAssertion(t *testing.T) {
	dir := writeScenarioDir(t, "pointer_cycle", `name: pointer_cycle
description: wrong forward count
unit: pointer_cycle.cue
assertions:
  - type: stat
    stat: forward
    count: 3
`)

	output, err := executeCommand(t, "--format", "json", "test", dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	var resp testResponse
	require.NoError(t, json.Unmarshal([]byte(output), &resp))
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "E_TEST_FAILED", resp.Error.Code)
	require.Len(t, resp.Data.Scenarios, 1)
	assert.False(t, resp.Data.Scenarios[0].Pass)
	require.NotEmpty(t, resp.Data.Scenarios[0].Errors)
	assert.Contains(t, resp.Data.Scenarios[0].Errors[0], "forward = 3")
}

func TestTestCommandInvalidScenario(t *testing.T) {
	dir := writeScenarioDir(t, "pointer_cycle", "name: broken\n")

	output, err := executeCommand(t, "test", dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, output, "✗ pointer_cycle.yaml")
	assert.Contains(t, output, "failed to load scenario")
}
