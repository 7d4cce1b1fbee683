package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRun_Version(t *testing.T) {
	assert.Equal(t, 0, run([]string{"--version"}))
}

func TestRun_RequiresMailboxSelector(t *testing.T) {
	assert.Equal(t, 1, run([]string{"-c", "mailboxes.csv"}))
}

func TestRun_MissingCSVExitsOne(t *testing.T) {
	dir := t.TempDir()
	logFile := filepath.Join(dir, "migrator.log")

	code := run([]string{"-c", filepath.Join(dir, "missing.csv"), "--log-file", logFile, "all"})

	assert.Equal(t, 1, code)
	b, err := os.ReadFile(logFile)
	require.NoError(t, err)
	assert.Contains(t, string(b), "not found")
}

func TestRun_NoOperationsSucceeds(t *testing.T) {
	dir := t.TempDir()
	csv := filepath.Join(dir, "mailboxes.csv")
	require.NoError(t, os.WriteFile(csv, []byte("a,p,h,,,b,p,h,,\n"), 0o600))

	code := run([]string{"-c", csv, "--log-file", filepath.Join(dir, "migrator.log"), "-vvvvvv", "a"})

	assert.Equal(t, 0, code)
}

func TestRun_DashPasswordNeedsNoTerminal(t *testing.T) {
	dir := t.TempDir()
	csv := filepath.Join(dir, "mailboxes.csv")
	require.NoError(t, os.WriteFile(csv, []byte("a,-,h,,,b,p,h2,,\n"), 0o600))

	code := run([]string{"-c", csv, "--log-file", filepath.Join(dir, "migrator.log"), "a"})

	assert.Equal(t, 0, code)
}
