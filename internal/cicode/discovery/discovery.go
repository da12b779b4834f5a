// Package discovery enumerates the Cicode source files under a root.
package discovery

import (
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// DefaultExtensions are the source extensions used when none are configured.
var DefaultExtensions = []string{".ci"}

// Finder walks a tree for source files.
type Finder struct {
	// Extensions are matched case-insensitively, with the leading dot.
	Extensions []string
	// Exclude holds glob patterns relative to the root, using forward
	// slashes. "**" matches any number of directories and {a,b} matches
	// either alternative. A pattern without a slash matches any single
	// path element.
	Exclude []string
}

// Find returns every source file under root, sorted. Hidden directories
// and excluded paths are skipped. A root that is itself a source file is
// returned alone.
func (f Finder) Find(root string) ([]string, error) {
	info, err := os.Stat(root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	if !info.IsDir() {
		if f.IsSource(root) {
			return []string{root}, nil
		}
		return nil, nil
	}

	var files []string
	err = filepath.WalkDir(root, func(p string, entry os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, relErr := filepath.Rel(root, p)
		if relErr != nil || rel == "." {
			return nil
		}

		if entry.IsDir() {
			if strings.HasPrefix(entry.Name(), ".") || f.Excluded(rel) {
				return filepath.SkipDir
			}
			return nil
		}
		if f.IsSource(entry.Name()) && !f.Excluded(rel) {
			files = append(files, p)
		}
		return nil
	})
	slices.Sort(files)
	return files, err
}

// IsSource reports whether name has a source extension.
func (f Finder) IsSource(name string) bool {
	exts := f.Extensions
	if len(exts) == 0 {
		exts = DefaultExtensions
	}
	ext := filepath.Ext(name)
	for _, e := range exts {
		if strings.EqualFold(ext, e) {
			return true
		}
	}
	return false
}

// Excluded reports whether the root-relative path rel matches an exclude
// pattern.
func (f Finder) Excluded(rel string) bool {
	rel = filepath.ToSlash(rel)
	for _, pattern := range f.Exclude {
		if Match(pattern, rel) {
			return true
		}
	}
	return false
}

// Match reports whether the slash-separated path name matches pattern.
// Malformed patterns match nothing.
func Match(pattern, name string) bool {
	pattern = strings.TrimPrefix(filepath.ToSlash(pattern), "./")
	pattern = strings.TrimSuffix(pattern, "/")
	if !strings.Contains(pattern, "/") {
		for _, elem := range strings.Split(name, "/") {
			if ok, _ := doublestar.Match(pattern, elem); ok {
				return true
			}
		}
		return false
	}
	ok, _ := doublestar.Match(pattern, name)
	return ok
}
