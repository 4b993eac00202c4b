package fsutil_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deploymenttheory/go-app-orchestrator/internal/common/errors"
	"github.com/deploymenttheory/go-app-orchestrator/internal/common/fsutil"
)

func TestWriteFileAtomic(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "doc.bin")

	require.NoError(t, fsutil.WriteFileAtomic(path, []byte("one"), 0o600))
	require.NoError(t, fsutil.WriteFileAtomic(path, []byte("two"), 0o600))

	data, err := fsutil.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "two", string(data))
	assert.True(t, fsutil.FileExists(path))

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestDeleteFileIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gone.txt")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))

	require.NoError(t, fsutil.DeleteFile(path))
	require.NoError(t, fsutil.DeleteFile(path))
	assert.False(t, fsutil.FileExists(path))
}

func TestReadFileMissing(t *testing.T) {
	_, err := fsutil.ReadFile(filepath.Join(t.TempDir(), "missing"))
	assert.ErrorIs(t, err, errors.ErrFileNotFound)
}

func TestListFilesByExt(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"b.yaml", "a.YML", "c.json", "notes.txt"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), nil, 0o644))
	}
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub.yaml"), 0o755))

	files, err := fsutil.ListFilesByExt(dir, ".yaml", ".yml")
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(dir, "a.YML"),
		filepath.Join(dir, "b.yaml"),
	}, files)

	_, err = fsutil.ListFilesByExt(filepath.Join(dir, "nope"), ".yaml")
	assert.ErrorIs(t, err, errors.ErrDirNotFound)
}

func TestGetFileNameWithoutExt(t *testing.T) {
	assert.Equal(t, "accounting", fsutil.GetFileNameWithoutExt("/x/accounting.yaml"))
	assert.Equal(t, "archive.tar", fsutil.GetFileNameWithoutExt("archive.tar.xz"))
}

func TestExpandTilde(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	got, err := fsutil.ExpandTilde("~/archive")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, "archive"), got)

	got, err = fsutil.ExpandTilde("relative/~/path")
	require.NoError(t, err)
	assert.Equal(t, "relative/~/path", got)
}

func TestAppDirsInDevelopment(t *testing.T) {
	t.Setenv("APP_ORCHESTRATOR_ENV", "development")

	dir, err := fsutil.GetDataDir("go-app-orchestrator")
	require.NoError(t, err)
	assert.Equal(t, "data", dir)

	dir, err = fsutil.GetLogDir("go-app-orchestrator")
	require.NoError(t, err)
	assert.Equal(t, "logs", dir)
}
