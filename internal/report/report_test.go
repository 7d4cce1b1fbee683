package report

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pepperpark/imapmigrator/internal/mailbox"
	"github.com/pepperpark/imapmigrator/internal/migrator"
)

func TestReport_Save(t *testing.T) {
	started := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	r := New("run1", started)
	r.AddList(migrator.OpListOld, migrator.ListResult{
		Succeeded: []mailbox.Mailbox{{Username: "a"}},
		Failed:    []migrator.Failure{{Mailbox: "b", Err: &migrator.ExitError{Code: 2}}},
	})
	r.AddRestore(migrator.RestoreResult{
		Succeeded: []mailbox.Migration{{Old: mailbox.Mailbox{Username: "a"}}},
		Uploads: []migrator.Upload{
			{Source: "a", Username: "a", Folder: "INBOX", File: "/b/a/INBOX.mbox", Size: 2048, Messages: 3},
			{Source: "c", Username: "c", Folder: "Sent", ExitCode: 1, Err: errors.New("exit status 1")},
		},
	})

	path := filepath.Join(t.TempDir(), "report.json")
	require.NoError(t, r.Save(path, started.Add(time.Minute)))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	var got map[string]any
	require.NoError(t, json.Unmarshal(b, &got))
	assert.Equal(t, "run1", got["run_id"])

	ops := got["operations"].(map[string]any)
	list := ops["list-old"].(map[string]any)
	assert.Equal(t, []any{"a"}, list["succeeded"])
	assert.Equal(t, "exit status 2", list["failed"].([]any)[0].(map[string]any)["reason"])

	uploads := ops["restore"].(map[string]any)["uploads"].([]any)
	require.Len(t, uploads, 2)
	assert.Equal(t, "2.0 kB", uploads[0].(map[string]any)["size"])
	assert.Equal(t, "exit status 1", uploads[1].(map[string]any)["error"])
}

func TestReport_SaveWithoutPath(t *testing.T) {
	assert.NoError(t, New("x", time.Now()).Save("", time.Now()))
}
