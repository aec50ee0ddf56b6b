package util

import (
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/gobwas/glob"
)

// NormalizePatternPath cleans and normalizes paths for matcher/pattern usage.
func NormalizePatternPath(s string) string {
	trimmed := strings.TrimSpace(strings.ReplaceAll(s, "\\", "/"))
	clean := path.Clean(trimmed)
	if clean == "." {
		return ""
	}
	return strings.TrimPrefix(clean, "./")
}

// HasPathPrefix returns true when path equals prefix or is contained within prefix.
func HasPathPrefix(path, prefix string) bool {
	path = NormalizePatternPath(path)
	prefix = NormalizePatternPath(prefix)
	if path == "" || prefix == "" {
		return path == prefix
	}
	if path == prefix {
		return true
	}
	return strings.HasPrefix(path, prefix+"/")
}

// SortedStringKeys returns the map's keys in sorted order.
func SortedStringKeys[T any](m map[string]T) []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// PathFilter decides which directories to descend into and which files to
// index. Patterns match base names.
type PathFilter struct {
	extensions   map[string]bool
	excludeDirs  []glob.Glob
	excludeFiles []glob.Glob
}

func NewPathFilter(extensions, excludeDirs, excludeFiles []string) (*PathFilter, error) {
	dirs, err := compileGlobs(excludeDirs)
	if err != nil {
		return nil, err
	}
	files, err := compileGlobs(excludeFiles)
	if err != nil {
		return nil, err
	}

	exts := make(map[string]bool, len(extensions))
	for _, ext := range extensions {
		normalized := strings.ToLower(strings.TrimSpace(ext))
		if normalized == "" {
			continue
		}
		exts[normalized] = true
	}
	return &PathFilter{extensions: exts, excludeDirs: dirs, excludeFiles: files}, nil
}

func compileGlobs(patterns []string) ([]glob.Glob, error) {
	compiled := make([]glob.Glob, 0, len(patterns))
	for _, p := range patterns {
		g, err := glob.Compile(p)
		if err != nil {
			return nil, err
		}
		compiled = append(compiled, g)
	}
	return compiled, nil
}

func (f *PathFilter) SkipDir(dir string) bool {
	base := filepath.Base(dir)
	for _, g := range f.excludeDirs {
		if g.Match(base) {
			return true
		}
	}
	return false
}

// Accept reports whether file has an indexed extension and matches no
// exclude pattern. An empty extension set accepts every extension.
func (f *PathFilter) Accept(file string) bool {
	base := filepath.Base(file)
	if len(f.extensions) > 0 && !f.extensions[strings.ToLower(filepath.Ext(base))] {
		return false
	}
	for _, g := range f.excludeFiles {
		if g.Match(base) {
			return false
		}
	}
	return true
}
