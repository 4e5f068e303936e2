package cmd

import (
	"strings"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCommandsRegistered(t *testing.T) {
	names := make([]string, 0, len(rootCmd.Commands()))
	for _, c := range rootCmd.Commands() {
		names = append(names, c.Name())
	}
	for _, want := range []string{
		"search", "info", "chapters", "add", "list", "remove", "download", "chapter",
		"updates", "epub", "login", "logout", "whoami", "mapping", "config",
	} {
		assert.Contains(t, names, want)
	}
}

func TestParseLegacyIDs(t *testing.T) {
	ids, err := parseLegacyIDs([]string{"12", "7", "12"})
	require.NoError(t, err)
	assert.Equal(t, []int{12, 7}, ids)

	_, err = parseLegacyIDs([]string{"12", "abc"})
	assert.ErrorContains(t, err, `invalid legacy id "abc"`)

	_, err = parseLegacyIDs([]string{"-3"})
	assert.Error(t, err)
}

func TestRequireUUID(t *testing.T) {
	assert.NoError(t, requireUUID("manga", "32d76d19-8a05-4db0-9fc2-e0b0648fe9d0"))
	assert.ErrorContains(t, requireUUID("chapter", "one-piece"), `invalid chapter id "one-piece"`)
	assert.False(t, isUUID("Solo Leveling"))
}

func TestReadLine(t *testing.T) {
	pass, err := readLine(strings.NewReader("hunter2\r\nignored\n"))
	require.NoError(t, err)
	assert.Equal(t, "hunter2", pass)

	pass, err = readLine(strings.NewReader("no newline"))
	require.NoError(t, err)
	assert.Equal(t, "no newline", pass)

	_, err = readLine(strings.NewReader(""))
	assert.ErrorContains(t, err, "empty password")
}

func TestOrDash(t *testing.T) {
	assert.Equal(t, "-", orDash("  "))
	assert.Equal(t, "12", orDash("12"))
}

func TestDirSnapshotRestore(t *testing.T) {
	t.Run("new directory is removed", func(t *testing.T) {
		fs := afero.NewMemMapFs()
		snap, err := snapshotDir(fs, "/out/ch1")
		require.NoError(t, err)

		require.NoError(t, afero.WriteFile(fs, "/out/ch1/01.png", []byte("x"), 0644))
		require.NoError(t, afero.WriteFile(fs, "/out/ch1/02.png", []byte("x"), 0644))
		require.NoError(t, snap.restore())

		exists, _ := afero.DirExists(fs, "/out/ch1")
		assert.False(t, exists)
	})

	t.Run("existing directory keeps its files", func(t *testing.T) {
		fs := afero.NewMemMapFs()
		require.NoError(t, afero.WriteFile(fs, "/out/notes.txt", []byte("keep"), 0644))
		snap, err := snapshotDir(fs, "/out")
		require.NoError(t, err)

		require.NoError(t, afero.WriteFile(fs, "/out/01.png", []byte("x"), 0644))
		require.NoError(t, afero.WriteFile(fs, "/out/06.png", []byte("x"), 0644))
		require.NoError(t, snap.restore())

		entries, err := afero.ReadDir(fs, "/out")
		require.NoError(t, err)
		require.Len(t, entries, 1)
		assert.Equal(t, "notes.txt", entries[0].Name())
	})
}
