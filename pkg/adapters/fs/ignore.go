package fs

import (
	"fmt"
	"path"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// ignoreRules decides which site relative paths are never read or watched.
type ignoreRules struct {
	dirs    []string
	exclude []string
}

func newIgnoreRules(dirs, exclude []string) (*ignoreRules, error) {
	r := &ignoreRules{}
	for _, d := range dirs {
		if d = cleanRel(d); d != "" {
			r.dirs = append(r.dirs, d)
		}
	}
	for _, pattern := range exclude {
		pattern = filepath.ToSlash(pattern)
		if !doublestar.ValidatePattern(pattern) {
			return nil, fmt.Errorf("invalid exclude pattern %q", pattern)
		}
		r.exclude = append(r.exclude, pattern)
	}
	return r, nil
}

// Match reports whether rel, a slash separated path relative to the site
// root, is ignored.
func (r *ignoreRules) Match(rel string) bool {
	rel = cleanRel(rel)
	if rel == "" {
		return false
	}
	for _, segment := range strings.Split(rel, "/") {
		if segment == ".git" {
			return true
		}
	}
	if strings.HasPrefix(path.Base(rel), TempFilePrefix) {
		return true
	}
	for _, d := range r.dirs {
		if within(rel, d) {
			return true
		}
	}
	for _, pattern := range r.exclude {
		if ok, _ := doublestar.Match(pattern, rel); ok {
			return true
		}
	}
	return false
}

// cleanRel normalizes a site relative path: forward slashes, no leading `./`
// or `/`, no trailing slash. The site root itself becomes "".
func cleanRel(p string) string {
	p = path.Clean(filepath.ToSlash(p))
	p = strings.TrimPrefix(p, "/")
	if p == "." {
		return ""
	}
	return p
}

// within reports whether rel is dir or lies below it.
func within(rel, dir string) bool {
	return dir != "" && (rel == dir || strings.HasPrefix(rel, dir+"/"))
}
