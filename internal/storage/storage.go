// Package storage manages the artifact filesystem: the three well-known
// directories, the filename-to-bytes resolver, and admin-side
// introspection/reclamation.
package storage

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/verticut/verticut/internal/logger"
)

// ErrNotFound means a row's filename has no resolvable bytes on disk. A
// reportable condition, never an automatic deletion.
var ErrNotFound = errors.New("artifact not found")

// Dirs holds the three artifact directories.
type Dirs struct {
	Uploads   string
	Processed string
	Captions  string
}

// Ensure creates the artifact directories.
func (d Dirs) Ensure() error {
	for _, dir := range []string{d.Uploads, d.Processed, d.Captions} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create artifact directory %s: %w", dir, err)
		}
	}
	return nil
}

// Resolver maps bare artifact filenames to absolute paths.
type Resolver struct {
	dirs Dirs
}

func NewResolver(dirs Dirs) *Resolver {
	return &Resolver{dirs: dirs}
}

// Dirs returns the resolver's directory set.
func (r *Resolver) Dirs() Dirs {
	return r.dirs
}

// VideoPath finds the bytes behind a video filename: uploads first, then
// processed, then a recursive scan of processed for legacy subfoldered
// clips.
func (r *Resolver) VideoPath(filename string) (string, error) {
	if filename == "" || filename != filepath.Base(filename) {
		return "", fmt.Errorf("%w: invalid filename %q", ErrNotFound, filename)
	}

	direct := filepath.Join(r.dirs.Uploads, filename)
	if fileExists(direct) {
		return direct, nil
	}

	processed := filepath.Join(r.dirs.Processed, filename)
	if fileExists(processed) {
		return processed, nil
	}

	var found string
	walkErr := filepath.WalkDir(r.dirs.Processed, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() && d.Name() == filename {
			found = path
			return fs.SkipAll
		}
		return nil
	})
	if walkErr == nil && found != "" {
		return found, nil
	}

	return "", fmt.Errorf("%w: %s", ErrNotFound, filename)
}

// CaptionPath finds the bytes behind a caption filename.
func (r *Resolver) CaptionPath(filename string) (string, error) {
	if filename == "" || filename != filepath.Base(filename) {
		return "", fmt.Errorf("%w: invalid filename %q", ErrNotFound, filename)
	}
	path := filepath.Join(r.dirs.Captions, filename)
	if !fileExists(path) {
		return "", fmt.Errorf("%w: %s", ErrNotFound, filename)
	}
	return path, nil
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// DirStats summarizes one artifact directory.
type DirStats struct {
	Path       string `json:"path"`
	Files      int    `json:"files"`
	Bytes      int64  `json:"bytes"`
	BytesHuman string `json:"bytes_human"`
}

// Stats summarizes all three artifact directories.
type Stats struct {
	Uploads    DirStats `json:"uploads"`
	Processed  DirStats `json:"processed"`
	Captions   DirStats `json:"captions"`
	TotalBytes int64    `json:"total_bytes"`
	TotalHuman string   `json:"total_human"`
}

// FileInfo is one artifact in a storage listing.
type FileInfo struct {
	Name      string    `json:"name"`
	Dir       string    `json:"dir"`
	SizeBytes int64     `json:"size_bytes"`
	SizeHuman string    `json:"size_human"`
	ModTime   time.Time `json:"mod_time"`
}

// Stats walks the artifact directories and sums sizes.
func (r *Resolver) Stats() (Stats, error) {
	var stats Stats
	var err error
	if stats.Uploads, err = dirStats(r.dirs.Uploads); err != nil {
		return stats, err
	}
	if stats.Processed, err = dirStats(r.dirs.Processed); err != nil {
		return stats, err
	}
	if stats.Captions, err = dirStats(r.dirs.Captions); err != nil {
		return stats, err
	}
	stats.TotalBytes = stats.Uploads.Bytes + stats.Processed.Bytes + stats.Captions.Bytes
	stats.TotalHuman = humanize.Bytes(uint64(stats.TotalBytes))
	return stats, nil
}

func dirStats(dir string) (DirStats, error) {
	stats := DirStats{Path: dir}
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		info, infoErr := d.Info()
		if infoErr != nil {
			return nil
		}
		stats.Files++
		stats.Bytes += info.Size()
		return nil
	})
	stats.BytesHuman = humanize.Bytes(uint64(stats.Bytes))
	if err != nil && !os.IsNotExist(err) {
		return stats, err
	}
	return stats, nil
}

// Files lists every artifact across the three directories.
func (r *Resolver) Files() ([]FileInfo, error) {
	var files []FileInfo
	for label, dir := range map[string]string{
		"uploads":   r.dirs.Uploads,
		"processed": r.dirs.Processed,
		"captions":  r.dirs.Captions,
	} {
		err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
			if err != nil || d.IsDir() {
				return nil
			}
			info, infoErr := d.Info()
			if infoErr != nil {
				return nil
			}
			files = append(files, FileInfo{
				Name:      d.Name(),
				Dir:       label,
				SizeBytes: info.Size(),
				SizeHuman: humanize.Bytes(uint64(info.Size())),
				ModTime:   info.ModTime(),
			})
			return nil
		})
		if err != nil && !os.IsNotExist(err) {
			return nil, err
		}
	}
	return files, nil
}

// Cleanup removes artifacts older than maxAge across the three
// directories. Returns the number of files removed and the bytes freed.
func (r *Resolver) Cleanup(maxAge time.Duration) (removed int, freed int64) {
	cutoff := time.Now().Add(-maxAge)
	for _, dir := range []string{r.dirs.Uploads, r.dirs.Processed, r.dirs.Captions} {
		filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
			if err != nil || d.IsDir() {
				return nil
			}
			info, infoErr := d.Info()
			if infoErr != nil {
				return nil
			}
			if info.ModTime().Before(cutoff) {
				if rmErr := os.Remove(path); rmErr != nil {
					logger.Error("Failed to remove old artifact", "path", path, "error", rmErr)
					return nil
				}
				removed++
				freed += info.Size()
			}
			return nil
		})
	}
	if removed > 0 {
		logger.Info("Storage cleanup", "removed", removed, "freed", humanize.Bytes(uint64(freed)))
	}
	return removed, freed
}

// Delete removes the named artifacts wherever they resolve. Missing names
// are skipped.
func (r *Resolver) Delete(filenames []string) (removed int) {
	for _, name := range filenames {
		path, err := r.VideoPath(name)
		if err != nil {
			if capPath, capErr := r.CaptionPath(name); capErr == nil {
				path = capPath
			} else {
				continue
			}
		}
		if err := os.Remove(path); err == nil {
			removed++
		}
	}
	return removed
}
