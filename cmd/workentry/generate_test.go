package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/workentry-engine/api"
	"github.com/warp/workentry-engine/generic"
	"github.com/warp/workentry-engine/workentry"
)

func TestFormatSources(t *testing.T) {
	assert.Equal(t, "-", formatSources(nil))
	assert.Equal(t, "attendance_ids=A1,A2 leave_ids=L1", formatSources(map[string][]string{
		"leave_ids":      {"L1"},
		"attendance_ids": {"A1", "A2"},
	}))
}

// =============================================================================
// generate command
// =============================================================================

const weekDatasetYAML = `
calendars:
  - id: std-40
    preset: standard40
    tz: Europe/Brussels
employees:
  - {id: E1, tz: Europe/Brussels}
contracts:
  - id: C1
    employee_id: E1
    company_id: CO1
    calendar_id: std-40
    date_start: 2022-01-01
leaves:
  - {id: L1, resource_id: E1, date: 2022-02-16, tz: Europe/Brussels}
`

// execute runs the root command against an in-memory database and returns
// what the command printed on stdout.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("WORKENTRY_LOG_LEVEL", "error")

	genContracts, genFrom, genTo = nil, "", ""
	genPersist, genJSON, genDataset = false, false, ""
	t.Cleanup(func() {
		genContracts, genFrom, genTo = nil, "", ""
		genPersist, genJSON, genDataset = false, false, ""
		rootCmd.SetArgs(nil)
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
	})

	var stdout, stderr bytes.Buffer
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&stderr)
	rootCmd.SetArgs(append([]string{"--db", ":memory:"}, args...))
	err := rootCmd.Execute()
	return stdout.String(), err
}

func writeDataset(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func decodeEntries(t *testing.T, out string) []api.WorkEntryDTO {
	t.Helper()
	var entries []api.WorkEntryDTO
	require.NoError(t, json.Unmarshal([]byte(out), &entries), out)
	return entries
}

func TestGenerate_RejectsDatetimeWindow(t *testing.T) {
	path := writeDataset(t, "week.yaml", weekDatasetYAML)

	// GIVEN a window bound carrying a clock time
	// WHEN generating
	_, err := execute(t, "generate", "--dataset", path, "--from", "2022-02-14T10:00:00", "--to", "2022-02-18")

	// THEN the bound is rejected as not a date
	require.Error(t, err)
	assert.True(t, errors.Is(err, generic.ErrNotADate))
	assert.Contains(t, err.Error(), "--from")

	_, err = execute(t, "generate", "--dataset", path, "--from", "2022-02-14", "--to", "2022-02-18 17:00")
	require.Error(t, err)
	assert.True(t, errors.Is(err, generic.ErrNotADate))
	assert.Contains(t, err.Error(), "--to")
}

func TestGenerate_FromYAMLDataset(t *testing.T) {
	// GIVEN a YAML dataset with one rigid contract and a leave on Wednesday
	path := writeDataset(t, "week.yaml", weekDatasetYAML)

	// WHEN generating the week as JSON
	out, err := execute(t, "generate", "--dataset", path, "--from", "2022-02-14", "--to", "2022-02-18", "--json")
	require.NoError(t, err)

	// THEN one entry per day is printed, the leave day as paid leave
	entries := decodeEntries(t, out)
	require.Len(t, entries, 5)
	for _, e := range entries {
		assert.Equal(t, "C1", e.ContractID)
		assert.Equal(t, "8.000", e.Duration.StringFixed(3), e.Date)
	}
	assert.Equal(t, "2022-02-16", entries[2].Date)
	assert.Equal(t, workentry.CodePaidLeave, entries[2].WorkEntryTypeID)
	assert.Equal(t, []string{"L1"}, entries[2].Sources["leave_ids"])
	assert.Equal(t, workentry.CodeAttendance, entries[0].WorkEntryTypeID)
}

func TestGenerate_FromJSONDataset(t *testing.T) {
	// GIVEN the same week as a JSON dataset, without the leave
	path := writeDataset(t, "week.json", `{
  "calendars": [{"id": "std-40", "preset": "standard40", "tz": "Europe/Brussels"}],
  "employees": [{"id": "E1", "tz": "Europe/Brussels"}],
  "contracts": [{"id": "C1", "employee_id": "E1", "company_id": "CO1", "calendar_id": "std-40", "date_start": "2022-01-01"}]
}`)

	// WHEN generating as a table
	out, err := execute(t, "generate", "--dataset", path, "--from", "2022-02-14", "--to", "2022-02-18")
	require.NoError(t, err)

	// THEN a header and five attendance rows are printed
	assert.Contains(t, out, "CONTRACT")
	assert.Equal(t, 5, bytes.Count([]byte(out), []byte("WORK100")))
	assert.Contains(t, out, "2022-02-14")
	assert.Contains(t, out, "2022-02-18")
}

func TestGenerate_DatasetErrors(t *testing.T) {
	path := writeDataset(t, "week.yml", weekDatasetYAML)

	t.Run("persist is refused", func(t *testing.T) {
		_, err := execute(t, "generate", "--dataset", path, "--from", "2022-02-14", "--to", "2022-02-18", "--persist")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "--persist")
	})

	t.Run("unknown contract", func(t *testing.T) {
		_, err := execute(t, "generate", "--dataset", path, "--contract", "C9", "--from", "2022-02-14", "--to", "2022-02-18")
		require.Error(t, err)
		assert.True(t, errors.Is(err, api.ErrUnknownContract))
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := execute(t, "generate", "--dataset", filepath.Join(t.TempDir(), "nope.yaml"), "--from", "2022-02-14", "--to", "2022-02-18")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to read dataset")
	})
}
