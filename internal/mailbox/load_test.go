package mailbox

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_SingleRowDefaults(t *testing.T) {
	in := "alice,pw1,imap.old.example,,true,alice,pw2,imap.new.example,,true\n"

	set, err := Load(strings.NewReader(in), NewFilter([]string{"all"}))
	require.NoError(t, err)
	require.Len(t, set, 1)

	m := set[0]
	assert.Equal(t, Mailbox{Role: Source, Username: "alice", Password: "pw1", Host: "imap.old.example", Port: 993, UseTLS: true}, m.Old)
	assert.Equal(t, Mailbox{Role: Destination, Username: "alice", Password: "pw2", Host: "imap.new.example", Port: 993, UseTLS: true}, m.New)
}

func TestLoad_Ports(t *testing.T) {
	tests := []struct {
		name    string
		row     string
		oldPort int
		newPort int
	}{
		{"tls default", "a,p,h,,true,b,p,h,,TRUE", 993, 993},
		{"plain default", "a,p,h,,false,b,p,h,,False", 143, 143},
		{"explicit kept", "a,p,h,1143,false,b,p,h,10993,true", 1143, 10993},
		{"mixed", "a,p,h,,false,b,p,h,,", 143, 993},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			set, err := Load(strings.NewReader(tt.row), NewFilter([]string{"all"}))
			require.NoError(t, err)
			require.Len(t, set, 1)
			assert.Equal(t, tt.oldPort, set[0].Old.Port)
			assert.Equal(t, tt.newPort, set[0].New.Port)
		})
	}
}

func TestParseTLS(t *testing.T) {
	for _, v := range []string{"false", "FALSE", "False", "fAlSe"} {
		assert.False(t, ParseTLS(v), v)
	}
	for _, v := range []string{"", "true", "0", "no", "false ", "yes", "falſe"} {
		assert.True(t, ParseTLS(v), v)
	}
}

func TestLoad_ShortRowEnablesTLS(t *testing.T) {
	set, err := Load(strings.NewReader("bob,secret,imap.old.example\n"), NewFilter([]string{"all"}))
	require.NoError(t, err)
	require.Len(t, set, 1)

	assert.True(t, set[0].Old.UseTLS)
	assert.Equal(t, 993, set[0].Old.Port)
	assert.False(t, set[0].New.Configured())
	assert.Equal(t, Destination, set[0].New.Role)
}

func TestLoad_QuotingAndSpaces(t *testing.T) {
	in := `"carol@example.com", "p,w", imap.old.example, 143, false, "carol@new.example", "x""y", imap.new.example, , true` + "\n"

	set, err := Load(strings.NewReader(in), NewFilter([]string{"carol@example.com"}))
	require.NoError(t, err)
	require.Len(t, set, 1)
	assert.Equal(t, "p,w", set[0].Old.Password)
	assert.Equal(t, `x"y`, set[0].New.Password)
	assert.Equal(t, 143, set[0].Old.Port)
	assert.Equal(t, 993, set[0].New.Port)
}

func TestLoad_FilterKeepsOrderAndDuplicates(t *testing.T) {
	in := strings.Join([]string{
		"a,1,h,,,a,1,h,,",
		"b,1,h,,,b,1,h,,",
		"a,2,h,,,a,2,h,,",
		"c,1,h,,,c,1,h,,",
	}, "\n")

	set, err := Load(strings.NewReader(in), NewFilter([]string{"c", "a"}))
	require.NoError(t, err)
	require.Len(t, set, 3)
	assert.Equal(t, "1", set[0].Old.Password)
	assert.Equal(t, "2", set[1].Old.Password)
	assert.Equal(t, "c", set[2].Old.Username)

	all, err := Load(strings.NewReader(in), NewFilter([]string{"all"}))
	require.NoError(t, err)
	assert.Len(t, all, 4)
}

func TestNewFilter_AllOnlyAlone(t *testing.T) {
	f := NewFilter([]string{"all", "a"})
	assert.True(t, f.Match("a"))
	assert.True(t, f.Match("all"))
	assert.False(t, f.Match("b"))
}

func TestLoad_InvalidPort(t *testing.T) {
	_, err := Load(strings.NewReader("a,p,h,x,true,b,p,h,,true\n"), NewFilter([]string{"all"}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "line 1")
}

func TestLoadFile_NotFound(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "missing.csv"), NewFilter([]string{"all"}))
	require.Error(t, err)
	assert.ErrorIs(t, err, fs.ErrNotExist)
}

func TestLoadFile_PermissionDenied(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("root ignores file permissions")
	}
	path := filepath.Join(t.TempDir(), "mailboxes.csv")
	require.NoError(t, os.WriteFile(path, []byte("a,p,h,,,b,p,h,,\n"), 0o000))

	_, err := LoadFile(path, NewFilter([]string{"all"}))
	require.Error(t, err)
	assert.ErrorIs(t, err, fs.ErrPermission)
}
