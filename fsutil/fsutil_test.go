package fsutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCopyTree(t *testing.T) {
	src := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(src, "css"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(src, "css", "site.css"), []byte("body{}"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(src, "app.js"), []byte("x()"), 0o644))

	dst := filepath.Join(t.TempDir(), "out", "theme")
	require.NoError(t, CopyTree(src, dst))

	data, err := os.ReadFile(filepath.Join(dst, "css", "site.css"))
	require.NoError(t, err)
	require.Equal(t, "body{}", string(data))

	info, err := os.Stat(filepath.Join(dst, "css", "site.css"))
	require.NoError(t, err)
	require.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	_, err = os.Stat(filepath.Join(dst, "app.js"))
	require.NoError(t, err)
}

func TestCopyFile_MissingSource(t *testing.T) {
	err := CopyFile(filepath.Join(t.TempDir(), "nope"), filepath.Join(t.TempDir(), "x"))
	require.ErrorIs(t, err, os.ErrNotExist)
}
