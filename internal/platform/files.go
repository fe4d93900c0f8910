package platform

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/shirou/gopsutil/v4/disk"
)

// File permissions
const (
	DefaultDirPermissions = 0755
)

// File extensions left behind by an interrupted or in-progress extractor run
var (
	SkippedExtensions = []string{".part", ".ytdl", ".temp", ".tmp"}
)

// Size units for HumanSize
var (
	sizeUnits = []string{"B", "KB", "MB", "GB", "TB"}
)

// ErrArtifactNotFound is returned when no finished file matches an artifact key
var ErrArtifactNotFound = errors.New("artifact not found")

// CreateDirectoryIfNotExists creates directory if it doesn't exist
func CreateDirectoryIfNotExists(dirPath string) error {
	if _, err := os.Stat(dirPath); os.IsNotExist(err) {
		return os.MkdirAll(dirPath, DefaultDirPermissions)
	}
	return nil
}

// FileSize returns the size of a regular file
func FileSize(path string) (int64, error) {
	st, err := os.Stat(path)
	if err != nil {
		return 0, err
	}
	if st.IsDir() {
		return 0, fmt.Errorf("path is a directory: %s", path)
	}
	return st.Size(), nil
}

// Exists reports whether path exists
func Exists(path string) bool {
	if path == "" {
		return false
	}
	_, err := os.Stat(path)
	return err == nil
}

// RemoveQuietly deletes path, treating a missing file as success. It returns
// any other removal error so callers can log it.
func RemoveQuietly(path string) error {
	if path == "" {
		return nil
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// RemoveByKey deletes every file in dir whose name starts with key, including
// partial downloads. It returns the paths it removed.
func RemoveByKey(dir, key string) ([]string, error) {
	matches, err := filepath.Glob(filepath.Join(dir, globEscape(key)+"*"))
	if err != nil {
		return nil, err
	}
	var removed []string
	var errs []error
	for _, m := range matches {
		if err := RemoveQuietly(m); err != nil {
			errs = append(errs, err)
			continue
		}
		removed = append(removed, m)
	}
	return removed, errors.Join(errs...)
}

// FindArtifact locates the finished file produced for key in dir. Partial
// files are ignored; when several finished files match (e.g. separate
// streams left after a failed merge) the largest wins.
func FindArtifact(dir, key string) (string, error) {
	if key == "" {
		return "", fmt.Errorf("artifact key is empty")
	}
	matches, err := filepath.Glob(filepath.Join(dir, globEscape(key)+".*"))
	if err != nil {
		return "", err
	}

	type candidate struct {
		path string
		size int64
	}
	var candidates []candidate
	for _, m := range matches {
		if isPartialFile(m) {
			continue
		}
		size, err := FileSize(m)
		if err != nil {
			continue
		}
		candidates = append(candidates, candidate{path: m, size: size})
	}
	if len(candidates) == 0 {
		return "", fmt.Errorf("%w: %s", ErrArtifactNotFound, filepath.Join(dir, key))
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].size != candidates[j].size {
			return candidates[i].size > candidates[j].size
		}
		return candidates[i].path < candidates[j].path
	})
	return candidates[0].path, nil
}

// isPartialFile checks if a filename looks like an unfinished download
func isPartialFile(name string) bool {
	for _, ext := range SkippedExtensions {
		if strings.HasSuffix(name, ext) {
			return true
		}
	}
	// yt-dlp keeps per-format streams as <key>.f137.mp4 until merged
	base := strings.TrimSuffix(filepath.Base(name), filepath.Ext(name))
	if idx := strings.LastIndex(base, ".f"); idx > 0 {
		rest := base[idx+2:]
		if rest != "" && strings.Trim(rest, "0123456789") == "" {
			return true
		}
	}
	return false
}

func globEscape(s string) string {
	r := strings.NewReplacer(`\`, `\\`, "*", `\*`, "?", `\?`, "[", `\[`)
	return r.Replace(s)
}

// FreeBytes returns the free space of the filesystem holding dir
func FreeBytes(ctx context.Context, dir string) (uint64, error) {
	usage, err := disk.UsageWithContext(ctx, dir)
	if err != nil {
		return 0, fmt.Errorf("failed to read disk usage for %s: %w", dir, err)
	}
	return usage.Free, nil
}

// HumanSize formats a byte count with one decimal, e.g. "1.5GB"
func HumanSize(bytes int64) string {
	size := float64(bytes)
	for _, unit := range sizeUnits {
		if size < 1024.0 {
			return fmt.Sprintf("%.1f%s", size, unit)
		}
		size /= 1024.0
	}
	return fmt.Sprintf("%.1fPB", size)
}
