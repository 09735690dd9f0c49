package mount

import (
	"path/filepath"
	"strings"
)

// ResolveStrict joins the mountpoint's docroot with requestPath,
// canonicalizes it (resolving "." / ".." / symlinks), and verifies the
// result is inside the docroot. The target must already exist on disk.
func ResolveStrict(m Mountpoint, requestPath string) (string, error) {
	joined := filepath.Join(m.Docroot, filepath.FromSlash(requestPath))
	real, err := filepath.EvalSymlinks(joined)
	if err != nil {
		return "", ErrNotFound
	}
	real = filepath.Clean(real)
	if !withinDocroot(m.Docroot, real) {
		return "", ErrNotFound
	}
	return real, nil
}

// ResolveParent locates the last "/" in requestPath, resolves the prefix
// strictly, and appends the trailing component literally without
// requiring it to exist. Used by PUT/MKCOL/COPY/MOVE destinations, where
// the leaf need not exist but its parent must.
func ResolveParent(m Mountpoint, requestPath string) (string, error) {
	clean := strings.TrimSuffix(requestPath, "/")
	idx := strings.LastIndex(clean, "/")
	if idx < 0 {
		return "", ErrConflict
	}
	parentReq := clean[:idx]
	if parentReq == "" {
		parentReq = "/"
	}
	leaf := clean[idx+1:]
	if leaf == "" {
		return "", ErrConflict
	}

	parent, err := ResolveStrict(m, parentReq)
	if err != nil {
		return "", ErrConflict
	}

	full := filepath.Join(parent, leaf)
	if !withinDocroot(m.Docroot, full) {
		return "", ErrConflict
	}
	return full, nil
}

func withinDocroot(docroot, candidate string) bool {
	if candidate == docroot {
		return true
	}
	return strings.HasPrefix(candidate, docroot+string(filepath.Separator))
}
