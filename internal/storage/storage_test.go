package storage_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/verticut/verticut/internal/storage"
)

func newTestResolver(t *testing.T) (*storage.Resolver, storage.Dirs) {
	t.Helper()
	root := t.TempDir()
	dirs := storage.Dirs{
		Uploads:   filepath.Join(root, "uploads"),
		Processed: filepath.Join(root, "processed"),
		Captions:  filepath.Join(root, "captions"),
	}
	require.NoError(t, dirs.Ensure())
	return storage.NewResolver(dirs), dirs
}

func writeFile(t *testing.T, path string, size int) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, make([]byte, size), 0644))
}

func TestVideoPathSearchOrder(t *testing.T) {
	r, dirs := newTestResolver(t)

	// uploads wins over processed
	writeFile(t, filepath.Join(dirs.Uploads, "both.mp4"), 10)
	writeFile(t, filepath.Join(dirs.Processed, "both.mp4"), 20)

	path, err := r.VideoPath("both.mp4")
	require.NoError(t, err)
	require.Equal(t, filepath.Join(dirs.Uploads, "both.mp4"), path)

	// processed found when uploads misses
	writeFile(t, filepath.Join(dirs.Processed, "proc.mp4"), 10)
	path, err = r.VideoPath("proc.mp4")
	require.NoError(t, err)
	require.Equal(t, filepath.Join(dirs.Processed, "proc.mp4"), path)
}

func TestVideoPathFindsLegacySubfolderedClips(t *testing.T) {
	r, dirs := newTestResolver(t)

	legacy := filepath.Join(dirs.Processed, "clips_abc123", "old_clip.mp4")
	writeFile(t, legacy, 10)

	path, err := r.VideoPath("old_clip.mp4")
	require.NoError(t, err)
	require.Equal(t, legacy, path)
}

func TestVideoPathNotFound(t *testing.T) {
	r, _ := newTestResolver(t)

	_, err := r.VideoPath("ghost.mp4")
	require.ErrorIs(t, err, storage.ErrNotFound)
}

func TestVideoPathRejectsTraversal(t *testing.T) {
	r, _ := newTestResolver(t)

	_, err := r.VideoPath("../../../etc/passwd")
	require.ErrorIs(t, err, storage.ErrNotFound)
	_, err = r.VideoPath("")
	require.ErrorIs(t, err, storage.ErrNotFound)
}

func TestCaptionPath(t *testing.T) {
	r, dirs := newTestResolver(t)

	writeFile(t, filepath.Join(dirs.Captions, "video.srt"), 10)
	path, err := r.CaptionPath("video.srt")
	require.NoError(t, err)
	require.Equal(t, filepath.Join(dirs.Captions, "video.srt"), path)

	_, err = r.CaptionPath("missing.srt")
	require.ErrorIs(t, err, storage.ErrNotFound)
}

func TestStatsAndFiles(t *testing.T) {
	r, dirs := newTestResolver(t)

	writeFile(t, filepath.Join(dirs.Uploads, "a.mp4"), 100)
	writeFile(t, filepath.Join(dirs.Processed, "b.mp4"), 200)
	writeFile(t, filepath.Join(dirs.Captions, "c.srt"), 50)

	stats, err := r.Stats()
	require.NoError(t, err)
	require.Equal(t, 1, stats.Uploads.Files)
	require.EqualValues(t, 100, stats.Uploads.Bytes)
	require.EqualValues(t, 350, stats.TotalBytes)
	require.NotEmpty(t, stats.TotalHuman)

	files, err := r.Files()
	require.NoError(t, err)
	require.Len(t, files, 3)
}

func TestCleanupRemovesOnlyOldFiles(t *testing.T) {
	r, dirs := newTestResolver(t)

	oldFile := filepath.Join(dirs.Processed, "old.mp4")
	newFile := filepath.Join(dirs.Processed, "new.mp4")
	writeFile(t, oldFile, 100)
	writeFile(t, newFile, 100)

	past := time.Now().Add(-72 * time.Hour)
	require.NoError(t, os.Chtimes(oldFile, past, past))

	removed, freed := r.Cleanup(48 * time.Hour)
	require.Equal(t, 1, removed)
	require.EqualValues(t, 100, freed)

	_, err := os.Stat(oldFile)
	require.True(t, os.IsNotExist(err))
	_, err = os.Stat(newFile)
	require.NoError(t, err)
}

func TestDeleteByName(t *testing.T) {
	r, dirs := newTestResolver(t)

	writeFile(t, filepath.Join(dirs.Uploads, "a.mp4"), 10)
	writeFile(t, filepath.Join(dirs.Captions, "a.srt"), 10)

	removed := r.Delete([]string{"a.mp4", "a.srt", "missing.mp4"})
	require.Equal(t, 2, removed)
}
