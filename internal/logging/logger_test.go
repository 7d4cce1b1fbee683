package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClampVerbosity(t *testing.T) {
	assert.Equal(t, 0, ClampVerbosity(-1))
	assert.Equal(t, 2, ClampVerbosity(2))
	assert.Equal(t, 4, ClampVerbosity(4))
	assert.Equal(t, 4, ClampVerbosity(9))
}

func TestLevel(t *testing.T) {
	assert.Equal(t, zerolog.FatalLevel, Level(0))
	assert.Equal(t, zerolog.ErrorLevel, Level(1))
	assert.Equal(t, zerolog.WarnLevel, Level(2))
	assert.Equal(t, zerolog.InfoLevel, Level(3))
	assert.Equal(t, zerolog.DebugLevel, Level(4))
	assert.Equal(t, zerolog.DebugLevel, Level(12))
}

func TestNew_ConsoleAndFile(t *testing.T) {
	var console bytes.Buffer
	path := filepath.Join(t.TempDir(), "migrator.log")

	log, closeFn, err := New(Options{
		Verbosity: 1,
		RunID:     "r1",
		File:      path,
		MaxBytes:  500000,
		Backups:   3,
		Console:   &console,
	})
	require.NoError(t, err)

	log.Info().Msg("hidden")
	log.Error().Msg("shown")
	Critical(&log).Msg("fatal but alive")
	require.NoError(t, closeFn())

	out := console.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "shown")
	assert.Contains(t, out, "fatal but alive")

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(b), `"run":"r1"`)
	assert.Contains(t, string(b), `"message":"shown"`)
	assert.Equal(t, 2, strings.Count(string(b), "\n"))
}

func TestRotatingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.log")
	rf, err := OpenRotating(path, 10, 2)
	require.NoError(t, err)

	line := []byte("12345678\n") // 9 bytes, one line per generation
	for i := 0; i < 5; i++ {
		_, err := rf.Write(line)
		require.NoError(t, err)
	}
	require.NoError(t, rf.Close())

	for _, p := range []string{path, path + ".1", path + ".2"} {
		b, err := os.ReadFile(p)
		require.NoError(t, err, p)
		assert.Equal(t, line, b, p)
	}
	_, err = os.Stat(path + ".3")
	assert.True(t, os.IsNotExist(err))
}

func TestRotatingFile_AppendsToExisting(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.log")
	require.NoError(t, os.WriteFile(path, []byte("old\n"), 0o644))

	rf, err := OpenRotating(path, 100, 3)
	require.NoError(t, err)
	_, err = rf.Write([]byte("new\n"))
	require.NoError(t, err)
	require.NoError(t, rf.Close())

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "old\nnew\n", string(b))
}

func TestRotatingFile_RotatesWhenReachingLimit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.log")
	rf, err := OpenRotating(path, 10, 1)
	require.NoError(t, err)

	for _, s := range []string{"abcd\n", "efgh\n"} {
		_, err := rf.Write([]byte(s))
		require.NoError(t, err)
	}
	require.NoError(t, rf.Close())

	b, err := os.ReadFile(path + ".1")
	require.NoError(t, err)
	assert.Equal(t, "abcd\n", string(b))
	b, err = os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "efgh\n", string(b))
}
