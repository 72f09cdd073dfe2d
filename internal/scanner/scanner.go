package scanner

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// SourceExt is the extension of gg source files; LibraryExt marks
// standard-library files, which the driver refuses as entry points.
const (
	SourceExt  = ".gg"
	LibraryExt = ".lib.gg"
)

// Config controls source discovery under a project root.
type Config struct {
	IncludeGlobs []string
	ExcludeGlobs []string
	MaxBytes     int64
}

// Scanner discovers gg source files below targets, applying glob
// include/exclude patterns.
type Scanner struct {
	cfg Config
}

func New(cfg Config) *Scanner {
	if len(cfg.IncludeGlobs) == 0 {
		cfg.IncludeGlobs = []string{"**/*" + SourceExt}
	}
	return &Scanner{cfg: cfg}
}

// IsLibraryFile reports whether the path uses the standard-library
// naming convention.
func IsLibraryFile(path string) bool {
	return strings.HasSuffix(path, LibraryExt)
}

// ScanTargets expands the given files and directories into the sorted
// list of matching source files.
func (s *Scanner) ScanTargets(ctx context.Context, targets []string) ([]string, error) {
	var files []string
	seen := make(map[string]struct{})

	for _, target := range targets {
		info, err := os.Stat(target)
		if err != nil {
			return nil, fmt.Errorf("cannot access %s: %w", target, err)
		}
		if !info.IsDir() {
			if _, dup := seen[target]; !dup {
				seen[target] = struct{}{}
				files = append(files, target)
			}
			continue
		}

		err = filepath.WalkDir(target, func(path string, entry os.DirEntry, err error) error {
			if err != nil {
				return nil // unreadable entries are skipped
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if entry.IsDir() {
				if s.isExcluded(path) {
					return filepath.SkipDir
				}
				return nil
			}
			if !s.isIncluded(path) || s.isExcluded(path) {
				return nil
			}
			if s.cfg.MaxBytes > 0 {
				if fi, err := entry.Info(); err == nil && fi.Size() > s.cfg.MaxBytes {
					return nil
				}
			}
			if _, dup := seen[path]; !dup {
				seen[path] = struct{}{}
				files = append(files, path)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("scanning %s: %w", target, err)
		}
	}

	sort.Strings(files)
	return files, nil
}

func (s *Scanner) isIncluded(path string) bool {
	for _, pattern := range s.cfg.IncludeGlobs {
		if matchPattern(path, pattern) {
			return true
		}
	}
	return false
}

func (s *Scanner) isExcluded(path string) bool {
	for _, pattern := range s.cfg.ExcludeGlobs {
		if matchPattern(path, pattern) {
			return true
		}
	}
	return false
}

// matchPattern performs glob matching with ** support, falling back to
// the basename for patterns without a path separator.
func matchPattern(path, pattern string) bool {
	if matched, err := doublestar.PathMatch(pattern, path); err == nil && matched {
		return true
	}
	if !strings.Contains(pattern, "/") {
		if matched, err := doublestar.PathMatch(pattern, filepath.Base(path)); err == nil && matched {
			return true
		}
	}
	return false
}
