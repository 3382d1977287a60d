package file

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)

	expanded, err := ExpandPath("~/.config/navi/config.json")
	require.NoError(t, err)
	require.Equal(t, filepath.Join(home, ".config/navi/config.json"), expanded)

	expanded, err = ExpandPath("/etc/navi.json")
	require.NoError(t, err)
	require.Equal(t, "/etc/navi.json", expanded)
}

func TestCreateParentDirectory(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, "a", "b", "state.db")

	require.NoError(t, CreateParentDirectory(path))
	ok, err := DirectoryExists(filepath.Join(root, "a", "b"))
	require.NoError(t, err)
	require.True(t, ok)

	// Idempotent.
	require.NoError(t, CreateParentDirectory(path))
}

func TestDirectoryExists_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0644))

	_, err := DirectoryExists(path)
	require.Error(t, err)
}
