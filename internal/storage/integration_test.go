package storage_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/garyjia/upload-folders/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newDiskManager(t *testing.T) (*storage.FolderManager, string) {
	t.Helper()
	tempDir := t.TempDir()
	logger, _ := zap.NewDevelopment()

	fm, err := storage.NewFolderManager(storage.DefaultOptions(tempDir), nil, logger)
	require.NoError(t, err)
	return fm, tempDir
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

// TestIntegration_SyncUploadedFiles walks the usual upload lifecycle: files
// land in a temporary folder, get synced into their final folder, and the
// temporary folder is dropped
func TestIntegration_SyncUploadedFiles(t *testing.T) {
	fm, base := newDiskManager(t)
	writeFile(t, filepath.Join(base, "tmp", "a.txt"), "alpha")
	writeFile(t, filepath.Join(base, "tmp", "sub", "b.txt"), "beta")

	// 1. Sync without removing the source
	result, err := fm.SyncFolders(&storage.Overrides{
		FromFolder:     storage.String("tmp"),
		ToFolder:       storage.String("final"),
		CreateToFolder: storage.Bool(true),
	})
	require.NoError(t, err)
	assert.Equal(t, 2, result.Mirror.FilesCopied)

	for name, content := range map[string]string{"a.txt": "alpha", filepath.Join("sub", "b.txt"): "beta"} {
		saved, err := os.ReadFile(filepath.Join(base, "final", name))
		require.NoError(t, err)
		assert.Equal(t, content, string(saved))
	}
	assert.DirExists(t, filepath.Join(base, "tmp"))

	// 2. Sync again removing the source
	_, err = fm.SyncFolders(&storage.Overrides{
		FromFolder:       storage.String("tmp"),
		ToFolder:         storage.String("final"),
		CreateToFolder:   storage.Bool(true),
		RemoveFromFolder: storage.Bool(true),
	})
	require.NoError(t, err)
	assert.NoDirExists(t, filepath.Join(base, "tmp"))
	assert.FileExists(t, filepath.Join(base, "final", "sub", "b.txt"))

	// 3. A second sync has nothing to do
	result, err = fm.SyncFolders(&storage.Overrides{
		FromFolder: storage.String("tmp"),
		ToFolder:   storage.String("final"),
	})
	require.NoError(t, err)
	assert.True(t, result.SourceMissing)
}

// TestIntegration_SyncIntoMissingDestination checks nothing is copied when
// the destination is missing and may not be created
func TestIntegration_SyncIntoMissingDestination(t *testing.T) {
	fm, base := newDiskManager(t)
	writeFile(t, filepath.Join(base, "tmp", "a.txt"), "alpha")

	_, err := fm.SyncFolders(&storage.Overrides{
		FromFolder: storage.String("tmp"),
		ToFolder:   storage.String("final"),
	})

	assert.ErrorIs(t, err, storage.ErrState)
	assert.NoDirExists(t, filepath.Join(base, "final"))
	assert.FileExists(t, filepath.Join(base, "tmp", "a.txt"))
}

// TestIntegration_ListUploadedOriginals lists what an upload left in the
// originals folder
func TestIntegration_ListUploadedOriginals(t *testing.T) {
	fm, base := newDiskManager(t)
	writeFile(t, filepath.Join(base, "pics", "originals", "x.jpg"), "jpeg")

	t.Run("returns base names by default", func(t *testing.T) {
		files, err := fm.ListFiles(&storage.Overrides{Folder: storage.String("pics")}, true)

		require.NoError(t, err)
		assert.Equal(t, []string{"x.jpg"}, files)
	})

	t.Run("returns absolute paths with full_path", func(t *testing.T) {
		files, err := fm.ListFiles(&storage.Overrides{
			Folder:   storage.String("pics"),
			FullPath: storage.Bool(true),
		}, true)

		require.NoError(t, err)
		require.Len(t, files, 1)
		assert.True(t, filepath.IsAbs(files[0]))
		assert.True(t, strings.HasSuffix(files[0], filepath.Join("pics", "originals", "x.jpg")))

		expected, err := os.Stat(filepath.Join(base, "pics", "originals", "x.jpg"))
		require.NoError(t, err)
		actual, err := os.Stat(files[0])
		require.NoError(t, err)
		assert.True(t, os.SameFile(expected, actual))
	})

	t.Run("missing folder lists nothing", func(t *testing.T) {
		files, err := fm.ListFiles(&storage.Overrides{Folder: storage.String("videos")}, true)

		require.NoError(t, err)
		assert.Empty(t, files)
	})
}

// TestIntegration_RemoveFolder removes an upload folder and checks
// neighbouring folders survive
func TestIntegration_RemoveFolder(t *testing.T) {
	fm, base := newDiskManager(t)
	writeFile(t, filepath.Join(base, "pics", "originals", "x.jpg"), "jpeg")
	writeFile(t, filepath.Join(base, "docs", "a.pdf"), "pdf")

	require.NoError(t, fm.RemoveFolder(&storage.Overrides{Folder: storage.String("pics")}))

	assert.NoDirExists(t, filepath.Join(base, "pics"))
	assert.FileExists(t, filepath.Join(base, "docs", "a.pdf"))

	// removing it again is a no-op
	assert.NoError(t, fm.RemoveFolder(&storage.Overrides{Folder: storage.String("pics")}))
}

// TestIntegration_SyncOverlappingFolders checks overlapping folders are
// refused before anything on disk changes
func TestIntegration_SyncOverlappingFolders(t *testing.T) {
	fm, base := newDiskManager(t)
	writeFile(t, filepath.Join(base, "a", "x.txt"), "payload")

	t.Run("same folder", func(t *testing.T) {
		_, err := fm.SyncFolders(&storage.Overrides{
			FromFolder:       storage.String("a"),
			ToFolder:         storage.String("./a"),
			Override:         storage.Bool(true),
			RemoveFromFolder: storage.Bool(true),
		})

		assert.ErrorIs(t, err, storage.ErrUsage)
		content, err := os.ReadFile(filepath.Join(base, "a", "x.txt"))
		require.NoError(t, err)
		assert.Equal(t, "payload", string(content))
	})

	t.Run("destination inside source", func(t *testing.T) {
		_, err := fm.SyncFolders(&storage.Overrides{
			FromFolder:     storage.String("a"),
			ToFolder:       storage.String("a/b"),
			CreateToFolder: storage.Bool(true),
		})

		assert.ErrorIs(t, err, storage.ErrUsage)
		assert.NoDirExists(t, filepath.Join(base, "a", "b"))
	})
}

// TestIntegration_ListDanglingLink lists full paths next to a broken link
func TestIntegration_ListDanglingLink(t *testing.T) {
	fm, base := newDiskManager(t)
	originals := filepath.Join(base, "pics", "originals")
	writeFile(t, filepath.Join(originals, "x.jpg"), "jpeg")
	if err := os.Symlink(filepath.Join(base, "gone"), filepath.Join(originals, "y.jpg")); err != nil {
		t.Skipf("symlinks unsupported: %v", err)
	}

	files, err := fm.ListFiles(&storage.Overrides{
		Folder:   storage.String("pics"),
		FullPath: storage.Bool(true),
	}, true)

	require.NoError(t, err)
	require.Len(t, files, 2)
	assert.True(t, strings.HasSuffix(files[0], filepath.Join("pics", "originals", "x.jpg")))
	assert.True(t, strings.HasSuffix(files[1], filepath.Join("pics", "originals", "y.jpg")))
}
