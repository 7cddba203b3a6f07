package watch

import (
	"path/filepath"
	"slices"
	"strings"
)

// Filter decides which paths can trigger a rebuild.
type Filter struct {
	Extensions []string // lower-case, with leading dot
	IgnoreDirs []string // directory names excluded anywhere below a root
	Roots      []string // watched roots; components above a root are not inspected
}

// Match reports whether a change to path should trigger a rebuild.
func (f Filter) Match(path string) bool {
	if ignoredName(filepath.Base(path)) {
		return false
	}
	if f.inIgnoredDir(path) {
		return false
	}
	return slices.Contains(f.Extensions, strings.ToLower(filepath.Ext(path)))
}

// SkipDir reports whether a directory is never watched or scanned.
func (f Filter) SkipDir(path string) bool {
	for _, root := range f.Roots {
		if filepath.Clean(path) == filepath.Clean(root) {
			return false
		}
	}
	base := filepath.Base(path)
	return strings.HasPrefix(base, ".") || slices.Contains(f.IgnoreDirs, base)
}

func (f Filter) inIgnoredDir(path string) bool {
	rel := path
	for _, root := range f.Roots {
		if r, err := filepath.Rel(root, path); err == nil && !strings.HasPrefix(r, "..") {
			rel = r
			break
		}
	}
	parts := strings.Split(filepath.ToSlash(filepath.Dir(rel)), "/")
	for _, p := range parts {
		if p == "." || p == "" {
			continue
		}
		if strings.HasPrefix(p, ".") || slices.Contains(f.IgnoreDirs, p) {
			return true
		}
	}
	return false
}

// ignoredName matches hidden files and editor temp/swap files.
func ignoredName(base string) bool {
	if strings.HasPrefix(base, ".") {
		return true
	}
	if strings.HasSuffix(base, "~") ||
		strings.HasSuffix(base, ".swp") ||
		strings.HasSuffix(base, ".swx") ||
		strings.HasPrefix(base, "#") && strings.HasSuffix(base, "#") {
		return true
	}
	return base == "Thumbs.db" || base == "4913" // vim write probe
}
