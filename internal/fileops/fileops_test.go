package fileops

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSafeSaveCreatesParents(t *testing.T) {
	ops := Testing()
	path := filepath.Join(t.TempDir(), "nested", "deep", "state.json")

	require.NoError(t, ops.SafeSave(path, []byte(`{"phase":1}`)))

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, `{"phase":1}`, string(content))
}

func TestSafeSaveBacksUpExisting(t *testing.T) {
	ops := Testing()
	path := filepath.Join(t.TempDir(), "state.json")

	require.NoError(t, ops.SafeSave(path, []byte("first")))
	require.NoError(t, ops.SafeSave(path, []byte("second")))

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "second", string(content))

	backup, err := os.ReadFile(filepath.Join(filepath.Dir(path), "state.bak"))
	require.NoError(t, err)
	assert.Equal(t, "first", string(backup))
}

func TestSafeSaveLeavesNoTempFiles(t *testing.T) {
	ops := Testing()
	dir := t.TempDir()
	require.NoError(t, ops.SafeSave(filepath.Join(dir, "a.txt"), []byte("x")))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "a.txt", entries[0].Name())
}

func TestSafeLoadFallsBackToBackup(t *testing.T) {
	ops := Testing()
	dir := t.TempDir()
	path := filepath.Join(dir, "notes.txt")

	require.NoError(t, ops.SafeSave(path, []byte("original")))
	require.NoError(t, ops.SafeSave(path, []byte("updated")))
	require.NoError(t, os.Remove(path))

	content, err := ops.SafeLoad(path)
	require.NoError(t, err)
	assert.Equal(t, "original", string(content))
}

func TestSafeLoadMissingNoBackup(t *testing.T) {
	ops := Testing()
	_, err := ops.SafeLoad(filepath.Join(t.TempDir(), "absent.txt"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no backup available")
}

func TestSafeRemoveFile(t *testing.T) {
	ops := Testing()
	dir := t.TempDir()
	path := filepath.Join(dir, "doomed.txt")
	require.NoError(t, os.WriteFile(path, []byte("bye"), 0o644))

	require.NoError(t, ops.SafeRemove(path))

	_, err := os.Stat(path)
	assert.True(t, os.IsNotExist(err))

	backup, err := os.ReadFile(filepath.Join(dir, "doomed.bak"))
	require.NoError(t, err)
	assert.Equal(t, "bye", string(backup))
}

func TestSafeRemoveDirectory(t *testing.T) {
	ops := Testing()
	dir := t.TempDir()
	target := filepath.Join(dir, "scratch")
	require.NoError(t, os.MkdirAll(target, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(target, "f.txt"), []byte("x"), 0o644))

	require.NoError(t, ops.SafeRemove(target))

	_, err := os.Stat(target)
	assert.True(t, os.IsNotExist(err))
	assert.FileExists(t, filepath.Join(dir, "scratch.bak", "f.txt"))
}

func TestSafeRemoveMissing(t *testing.T) {
	ops := Testing()
	assert.NoError(t, ops.SafeRemove(filepath.Join(t.TempDir(), "ghost")))
}

func TestEnsureDirPermissions(t *testing.T) {
	ops := Testing()
	dir := filepath.Join(t.TempDir(), "wide")
	require.NoError(t, ops.EnsureDir(dir))

	info, err := os.Stat(dir)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o777), info.Mode().Perm())

	prod := Production()
	prodDir := filepath.Join(t.TempDir(), "narrow")
	require.NoError(t, prod.EnsureDir(prodDir))

	info, err = os.Stat(prodDir)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o755), info.Mode().Perm())
}
