// Package property computes live (stat-derived) and dead (xattr-backed)
// WebDAV properties for a filesystem resource.
package property

import (
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/cespare/xxhash/v2"
)

// Kind distinguishes collections (directories) from non-collection
// resources (regular files).
type Kind int

const (
	KindNonCollection Kind = iota
	KindCollection
)

// Live holds the WebDAV live properties computed directly from a stat
// call: resourcetype, getcontentlength, getcontenttype, creationdate,
// getlastmodified, displayname, executable, and getetag.
type Live struct {
	Kind         Kind
	Size         int64
	ContentType  string
	CreationDate time.Time // approximated by ctime; POSIX has no true birth time
	LastModified time.Time
	DisplayName  string
	Executable   bool
	ETag         string
}

// ResourceType renders the `resourcetype` element contents: empty for
// files, "<D:collection/>" for directories.
func (l Live) ResourceType() string {
	if l.Kind == KindCollection {
		return "<D:collection/>"
	}
	return ""
}

// HTTPDate formats t per RFC 7231 §7.1.1.1, used for getlastmodified,
// creationdate, and the Last-Modified header.
func HTTPDate(t time.Time) string {
	return t.UTC().Format(http.TimeFormat)
}

// Stat computes the live properties of path, where uri is the request URI
// used as displayname.
func Stat(path, uri string, contentTypeOf func(path string) string) (Live, error) {
	fi, err := os.Lstat(path)
	if err != nil {
		return Live{}, err
	}

	l := Live{
		DisplayName:  uri,
		LastModified: fi.ModTime(),
		CreationDate: ctime(fi),
	}

	if fi.IsDir() {
		l.Kind = KindCollection
	} else {
		l.Kind = KindNonCollection
		l.Size = fi.Size()
		l.ContentType = contentTypeOf(path)
	}
	l.Executable = fi.Mode()&0o111 != 0
	l.ETag = computeETag(fi.Size(), fi.ModTime())
	return l, nil
}

// computeETag hashes size and mtime with xxhash — cheap, stable across
// requests for an unmodified file, and changes whenever size or mtime
// does.
func computeETag(size int64, mtime time.Time) string {
	var buf [16]byte
	for i := 0; i < 8; i++ {
		buf[i] = byte(size >> (8 * i))
	}
	nano := mtime.UnixNano()
	for i := 0; i < 8; i++ {
		buf[8+i] = byte(nano >> (8 * i))
	}
	sum := xxhash.Sum64(buf[:])
	return fmt.Sprintf(`"%016x"`, sum)
}
