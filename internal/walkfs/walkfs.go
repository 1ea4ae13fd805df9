// Package walkfs provides the low-level filesystem primitives used when
// inventorying a directory tree: deterministic directory listings,
// special-file detection, and name-based ignore matching.
package walkfs

import (
	"os"
	"path"
	"strings"
)

// DefaultIgnores are names skipped during inventory unless the caller
// overrides them. Mostly VCS bookkeeping and editor droppings.
var DefaultIgnores = []string{
	".git",
	".svn",
	".hg",
	".bzr",
	"CVS",
	"_darcs",
	".repo",
	".gitignore",
	".hgignore",
	"__pycache__",
	".DS_Store",
	"*.orig",
	"*.swp",
	"*~",
}

// ListDir returns the names of the subdirectories and the files of dir as
// two separate slices, each sorted by name. Symlinks and other non-regular
// entries land in files; callers filter them with IsSpecial.
func ListDir(dir string) (dirs, files []string, err error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, nil, err
	}
	// os.ReadDir returns entries sorted by name, so the partitioned
	// slices stay sorted.
	for _, ent := range entries {
		if ent.IsDir() {
			dirs = append(dirs, ent.Name())
		} else {
			files = append(files, ent.Name())
		}
	}
	return dirs, files, nil
}

// IsSpecial reports whether location is neither a regular file nor a
// directory: symlinks, FIFOs, sockets, devices. A failed lstat also counts
// as special so that broken links are skipped rather than inventoried.
func IsSpecial(location string) bool {
	fi, err := os.Lstat(location)
	if err != nil {
		return true
	}
	mode := fi.Mode()
	return !mode.IsRegular() && !mode.IsDir()
}

// Ignorer matches file and directory names against a set of ignore
// patterns. Plain names match exactly; patterns containing glob
// metacharacters are matched with path.Match against the base name.
type Ignorer struct {
	exact map[string]bool
	globs []string
}

// NewIgnorer builds an Ignorer from the given patterns. Pass
// DefaultIgnores (plus any extras) to get the standard skip set.
func NewIgnorer(patterns ...string) *Ignorer {
	ig := &Ignorer{exact: make(map[string]bool)}
	for _, p := range patterns {
		if p == "" {
			continue
		}
		if strings.ContainsAny(p, "*?[") {
			ig.globs = append(ig.globs, p)
		} else {
			ig.exact[p] = true
		}
	}
	return ig
}

// Match reports whether the base name should be ignored.
func (ig *Ignorer) Match(name string) bool {
	if ig == nil {
		return false
	}
	if ig.exact[name] {
		return true
	}
	for _, g := range ig.globs {
		// Patterns are validated at construction time in practice; a bad
		// pattern just never matches.
		if ok, err := path.Match(g, name); err == nil && ok {
			return true
		}
	}
	return false
}
