package cli

import (
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type lookupResponse struct {
	Status string       `json:"status"`
	Data   LookupResult `json:"data"`
	Error  *CLIError    `json:"error"`
}

// recordUnits compiles units into a fresh database and returns its path.
func recordUnits(t *testing.T, units ...string) string {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "flatc.db")
	args := []string{"compile", "--db", dbPath}
	for _, u := range units {
		args = append(args, unitPath(u))
	}
	_, err := executeCommand(t, args...)
	require.NoError(t, err)
	return dbPath
}

func TestLookupRecordedName(t *testing.T) {
	dbPath := recordUnits(t, "class_scenario")

	output, err := executeCommand(t, "lookup", "_EC6PersonIB3intB3str", "--db", dbPath)
	require.NoError(t, err)

	assert.Contains(t, output, "_EC6PersonIB3intB3str")
	assert.Contains(t, output, "class Person::Person(int, str)")
	assert.Contains(t, output, "run #1 class_scenario")
	assert.Contains(t, output, "Person::Person")
	assert.Contains(t, output, "class_scenario.cue:")
}

func TestLookupUnmangledName(t *testing.T) {
	dbPath := recordUnits(t, "class_scenario", "variadic")

	output, err := executeCommand(t, "--format", "json", "lookup", "main", "--db", dbPath)
	require.NoError(t, err)

	var resp lookupResponse
	require.NoError(t, json.Unmarshal([]byte(output), &resp))
	assert.Equal(t, "ok", resp.Status)
	require.Len(t, resp.Data.Entries, 1)

	entry := resp.Data.Entries[0]
	assert.Equal(t, "main", entry.Flat)
	assert.Empty(t, entry.Signature, "main is not mangled")
	require.Len(t, entry.Matches, 2)
	assert.Equal(t, "class_scenario", entry.Matches[0].Unit)
	assert.Equal(t, "variadic", entry.Matches[1].Unit)
	assert.Equal(t, "main", entry.Matches[0].DeclName)
}

func TestLookupUnitFilter(t *testing.T) {
	dbPath := recordUnits(t, "class_scenario", "variadic")

	output, err := executeCommand(t, "--format", "json", "lookup", "main", "--db", dbPath, "--unit", "variadic")
	require.NoError(t, err)

	var resp lookupResponse
	require.NoError(t, json.Unmarshal([]byte(output), &resp))
	require.Len(t, resp.Data.Entries, 1)
	require.Len(t, resp.Data.Entries[0].Matches, 1)
	assert.Equal(t, "variadic", resp.Data.Entries[0].Matches[0].Unit)
}

func TestLookupMissingName(t *testing.T) {
	dbPath := recordUnits(t, "class_scenario")

	output, err := executeCommand(t, "lookup", "_ES1A", "_EC6PersonD", "--db", dbPath)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, err.Error(), "1 name(s) not recorded")

	assert.Contains(t, output, "struct A")
	assert.Contains(t, output, "not recorded")
	assert.Contains(t, output, "Person::~Person")
}

func TestLookupMissingNameJSON(t *testing.T) {
	dbPath := recordUnits(t, "class_scenario")

	output, err := executeCommand(t, "--format", "json", "lookup", "_EQbogus", "--db", dbPath)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	var resp lookupResponse
	require.NoError(t, json.Unmarshal([]byte(output), &resp))
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "E_NOT_RECORDED", resp.Error.Code)
	assert.Equal(t, 1, resp.Data.Missing)
	assert.Contains(t, resp.Data.Entries[0].Signature, "malformed")
	assert.Empty(t, resp.Data.Entries[0].Matches)
}
