package definition

import (
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// skipDirs are never descended into while discovering definitions.
var skipDirs = []string{".git", "node_modules", "vendor", ".autoreport"}

// Discover walks root and returns the definition files whose root-relative
// path matches one of the include patterns and none of the exclude patterns.
// Patterns use doublestar syntax (** matches across directories). Results are
// sorted and use the OS path separator.
func Discover(root string, include, exclude []string) ([]string, error) {
	var found []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != root && isSkipped(d.Name()) {
				return filepath.SkipDir
			}
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		if matchesAny(rel, include) && !matchesAny(rel, exclude) {
			found = append(found, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("discovering definitions in %s: %w", root, err)
	}
	sort.Strings(found)
	return found, nil
}

// Match reports whether a slash-separated relative path matches any pattern.
func Match(relPath string, patterns []string) bool {
	return matchesAny(filepath.ToSlash(relPath), patterns)
}

func matchesAny(rel string, patterns []string) bool {
	for _, pattern := range patterns {
		if matched, err := doublestar.Match(pattern, rel); err == nil && matched {
			return true
		}
	}
	return false
}

func isSkipped(name string) bool {
	for _, s := range skipDirs {
		if strings.EqualFold(name, s) {
			return true
		}
	}
	return false
}
