package filex

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEnsureParentDir_CreatesDirectory(t *testing.T) {
	tmp := t.TempDir()
	dir := filepath.Join(tmp, "cache", "nested")

	require.NoError(t, EnsureParentDir(filepath.Join(dir, "rk.db")))

	fi, err := os.Stat(dir)
	require.NoError(t, err)
	require.True(t, fi.IsDir(), "should create a directory")

	if runtime.GOOS != "windows" {
		perm := fi.Mode().Perm()
		require.Equal(t, os.FileMode(0o700), perm&0o700)
	}
}

func TestEnsureParentDir_Idempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache", "rk.db")

	require.NoError(t, EnsureParentDir(path))
	require.NoError(t, EnsureParentDir(path))
}

func TestEnsureParentDir_BareName(t *testing.T) {
	require.NoError(t, EnsureParentDir("rk.db"))
}

func TestEnsureParentDir_FailsIfFileWithSameNameExists(t *testing.T) {
	tmp := t.TempDir()
	blocker := filepath.Join(tmp, "cache")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o660))

	err := EnsureParentDir(filepath.Join(blocker, "rk.db"))
	require.Error(t, err, "should fail when a file exists with the same name")
}

func TestDetectMIME(t *testing.T) {
	tests := []struct {
		name string
		file string
		data []byte
		want string
	}{
		{name: "pdf by extension", file: "scan.PDF", want: "application/pdf"},
		{name: "png by extension", file: "page.png", want: "image/png"},
		{name: "sniffed pdf", file: "noext", data: []byte("%PDF-1.7\n"), want: "application/pdf"},
		{name: "sniffed text", file: "noext", data: []byte("plain words"), want: "text/plain"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, DetectMIME(tt.file, tt.data))
		})
	}
}

func TestIsPDF(t *testing.T) {
	require.True(t, IsPDF("application/pdf"))
	require.False(t, IsPDF("image/jpeg"))
}
