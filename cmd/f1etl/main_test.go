package main

import (
	"bytes"
	"database/sql"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourorg/f1etl/internal/store"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func sessionFile(t *testing.T) string {
	t.Helper()
	p, err := filepath.Abs(filepath.Join("testdata", "hungary_2025_r.yaml"))
	require.NoError(t, err)
	return p
}

func TestRunFromSessionFile(t *testing.T) {
	file := sessionFile(t)
	dir := t.TempDir()
	chdir(t, dir)

	out, err := execute(t, "--session-file", file, "--weather")
	require.NoError(t, err)
	assert.Contains(t, out, "(completed)")
	assert.Contains(t, out, "skipped")

	processed := filepath.Join(dir, "data", "processed", "2025_Hungarian_Grand_Prix")
	assert.FileExists(t, filepath.Join(processed, "telemetry_NOR.csv.gz"))
	assert.FileExists(t, filepath.Join(processed, "telemetry_PIA.csv.gz"))
	assert.NoFileExists(t, filepath.Join(processed, "telemetry_HAM.csv.gz"))
	assert.FileExists(t, filepath.Join(processed, "laps.csv.gz"))
	assert.FileExists(t, filepath.Join(processed, "weather.csv.gz"))
	assert.FileExists(t, filepath.Join(dir, "data", "raw", "2025_Hungarian_Grand_Prix", "laps.csv"))

	runID := strings.TrimSuffix(strings.Fields(out)[1], ":")

	out, err = execute(t, "list")
	require.NoError(t, err)
	assert.Contains(t, out, runID)
	assert.Contains(t, out, "2025 Hungarian Grand Prix")

	out, err = execute(t, "show", "--run", runID)
	require.NoError(t, err)
	assert.Contains(t, out, "NOR")
	assert.Contains(t, out, "written")

	_, err = execute(t, "delete", "--run", runID)
	require.NoError(t, err)
	_, err = execute(t, "show", "--run", runID)
	assert.Error(t, err)
}

func TestRunUnknownSessionFails(t *testing.T) {
	file := sessionFile(t)
	chdir(t, t.TempDir())

	_, err := execute(t, "--session-file", file, "--event", "Monaco Grand Prix")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "session not found")
}

func TestRunRejectsBadSessionKind(t *testing.T) {
	chdir(t, t.TempDir())

	_, err := execute(t, "--session", "FP9")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "session.kind")
}

func TestInitWritesDefaultConfig(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)

	out, err := execute(t, "init")
	require.NoError(t, err)
	assert.Contains(t, out, "created f1etl.yaml")
	assert.FileExists(t, filepath.Join(dir, "f1etl.yaml"))
	assert.FileExists(t, filepath.Join(dir, "cache", "f1etl.db"))

	out, err = execute(t, "init")
	require.NoError(t, err)
	assert.Contains(t, out, "exists f1etl.yaml")
}

func TestCacheClear(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)

	_, err := execute(t, "init")
	require.NoError(t, err)

	dbPath := filepath.Join(dir, "cache", store.DBFile)
	s, err := store.NewSQLiteStore(dbPath)
	require.NoError(t, err)
	require.NoError(t, s.SaveResponse("https://api.openf1.org/v1/drivers?session_key=9801", []byte(`[{"driver_number":4}]`)))
	require.NoError(t, s.Close())

	out, err := execute(t, "cache", "clear")
	require.NoError(t, err)
	assert.Contains(t, out, "cache cleared")

	s, err = store.NewSQLiteStore(dbPath)
	require.NoError(t, err)
	defer s.Close()
	_, err = s.GetResponse("https://api.openf1.org/v1/drivers?session_key=9801")
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

// chdir changes the working directory for the duration of the test
// (equivalent of testing.T.Chdir, which needs Go 1.24).
func chdir(t *testing.T, dir string) {
	t.Helper()
	wd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		if err := os.Chdir(wd); err != nil {
			t.Fatal(err)
		}
	})
}
