package sharedserver

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestValidateName(t *testing.T) {
	valid := []string{"web", "web-1", "web_1", "web.1", "A1"}
	for _, name := range valid {
		require.NoError(t, ValidateName(name), "name %q should be valid", name)
	}

	invalid := []string{"", ".", "..", "a/b", "a b", "a/../b", "$(rm)"}
	for _, name := range invalid {
		require.Error(t, ValidateName(name), "name %q should be invalid", name)
	}
}

func TestPathsFor(t *testing.T) {
	p, err := PathsFor("/tmp/sharedserver", "web")
	require.NoError(t, err)
	want := Paths{
		Dir:          "/tmp/sharedserver",
		ServerFile:   filepath.Join("/tmp/sharedserver", "web.server.json"),
		ClientsFile:  filepath.Join("/tmp/sharedserver", "web.clients.json"),
		ServerLock:   filepath.Join("/tmp/sharedserver", "web.server.lock"),
		ClientsLock:  filepath.Join("/tmp/sharedserver", "web.clients.lock"),
		DebugLogFile: filepath.Join("/tmp/sharedserver", "web.debug.log"),
	}
	require.Equal(t, want, p)

	_, err = PathsFor("/tmp/sharedserver", "../escape")
	require.Error(t, err)
}

func TestNameFromServerFile(t *testing.T) {
	cases := []struct {
		base   string
		name   string
		wantOK bool
	}{
		{"web.server.json", "web", true},
		{"web.clients.json", "", false},
		{".server.json", "", false},
		{"server.json", "", false},
	}
	for _, c := range cases {
		name, ok := NameFromServerFile(c.base)
		require.Equal(t, c.wantOK, ok, "NameFromServerFile(%q)", c.base)
		require.Equal(t, c.name, name, "NameFromServerFile(%q)", c.base)
	}
}

func TestNameFromClientsFile(t *testing.T) {
	name, ok := NameFromClientsFile("web.clients.json")
	require.True(t, ok)
	require.Equal(t, "web", name)

	_, ok = NameFromClientsFile("web.server.json")
	require.False(t, ok, "NameFromClientsFile matched a server file")
}

func TestLockDirPriority(t *testing.T) {
	t.Setenv(LockDirEnv, "")
	t.Setenv("XDG_RUNTIME_DIR", "")
	require.Equal(t, fallbackLockDir, LockDir())

	t.Setenv("XDG_RUNTIME_DIR", "/run/user/1000")
	require.Equal(t, filepath.Join("/run/user/1000", "sharedserver"), LockDir())

	t.Setenv(LockDirEnv, "/custom/dir")
	require.Equal(t, "/custom/dir", LockDir())
}
