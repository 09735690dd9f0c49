// Package mount implements the path resolver: translating a (mountpoint,
// request path) pair into a safe, canonical filesystem path.
package mount

import (
	"errors"
	"path/filepath"
	"strings"
)

// ErrNotFound is returned by ResolveStrict when the target does not exist
// or canonicalization escapes the mountpoint's docroot.
var ErrNotFound = errors.New("mount: resource not found")

// ErrConflict is returned by ResolveParent when the request path has no
// parent component, or the parent itself cannot be resolved.
var ErrConflict = errors.New("mount: parent does not exist")

// Mountpoint binds a URL prefix to a canonical docroot directory. Created
// once at startup and never mutated afterward.
type Mountpoint struct {
	Prefix  string
	Docroot string
}

// Table is the read-only, process-wide set of mountpoints. Safe for
// concurrent use by construction: it is built once and never written to
// again.
type Table struct {
	mounts []Mountpoint
}

// NewTable canonicalizes each docroot with filepath.EvalSymlinks and
// returns the resulting immutable table. An entry whose docroot cannot be
// resolved at startup is a fatal configuration error, so it is returned to
// the caller rather than silently skipped.
func NewTable(entries map[string]string) (*Table, error) {
	t := &Table{mounts: make([]Mountpoint, 0, len(entries))}
	for prefix, dir := range entries {
		real, err := filepath.EvalSymlinks(dir)
		if err != nil {
			return nil, err
		}
		real, err = filepath.Abs(real)
		if err != nil {
			return nil, err
		}
		t.mounts = append(t.mounts, Mountpoint{
			Prefix:  normalizePrefix(prefix),
			Docroot: filepath.Clean(real),
		})
	}
	return t, nil
}

func normalizePrefix(p string) string {
	if p == "" {
		return "/"
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return strings.TrimSuffix(p, "/")
}

// Lookup finds the longest mountpoint prefix matching requestPath and
// returns the mountpoint plus the path-info relative to that prefix.
func (t *Table) Lookup(requestPath string) (Mountpoint, string, bool) {
	var best Mountpoint
	bestLen := -1
	found := false
	for _, m := range t.mounts {
		if m.Prefix == "/" {
			if bestLen < 0 {
				best, bestLen, found = m, 0, true
			}
			continue
		}
		if requestPath == m.Prefix || strings.HasPrefix(requestPath, m.Prefix+"/") {
			if len(m.Prefix) > bestLen {
				best, bestLen, found = m, len(m.Prefix), true
			}
		}
	}
	if !found {
		return Mountpoint{}, "", false
	}
	rel := strings.TrimPrefix(requestPath, best.Prefix)
	if rel == "" {
		rel = "/"
	}
	if !strings.HasPrefix(rel, "/") {
		rel = "/" + rel
	}
	return best, rel, true
}

// Len reports the number of configured mountpoints.
func (t *Table) Len() int {
	return len(t.mounts)
}
