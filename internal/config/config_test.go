package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "imapbackup/imapgrab.py", cfg.Tools.Grab)
	assert.Equal(t, "imap_upload/imap_upload.py", cfg.Tools.Upload)
	assert.Equal(t, 3, cfg.Tools.UploadRetries)
	assert.Equal(t, ListBackendTool, cfg.ListBackend)
	assert.Equal(t, "imap_migrator.log", cfg.Log.File)
	assert.Equal(t, int64(500000), cfg.Log.MaxBytes)
	assert.Equal(t, 3, cfg.Log.Backups)
	assert.False(t, cfg.PromptSecrets)
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
tools:
  grab: /opt/imapbackup/imapgrab.py
list_backend: imap
imap:
  starttls: true
report_file: report.json
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/opt/imapbackup/imapgrab.py", cfg.Tools.Grab)
	assert.Equal(t, "imap_upload/imap_upload.py", cfg.Tools.Upload)
	assert.Equal(t, ListBackendIMAP, cfg.ListBackend)
	assert.True(t, cfg.IMAP.StartTLS)
	assert.Equal(t, "report.json", cfg.ReportFile)
	assert.Equal(t, 3, cfg.Log.Backups)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"backend", "list_backend: pop3\n", "ListBackend"},
		{"retries", "tools:\n  upload_retries: 0\n", "UploadRetries"},
		{"grab", "tools:\n  grab: \"\"\n", "Grab"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.body))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}
