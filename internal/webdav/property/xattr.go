package property

import (
	"net/url"
	"strings"
)

// xattrPrefix namespaces every dead-property xattr under a fixed prefix
// so enumeration can distinguish them from unrelated extended attributes
// set by other tools on the same file.
const xattrPrefix = "user.uwsgi.webdav."

// Key identifies a dead property by namespace and name. An empty
// Namespace means the property has no explicit XML namespace.
type Key struct {
	Namespace string
	Name      string
}

// Dead is the full set of dead properties stored on one resource.
type Dead map[Key]string

// encodeKey builds the xattr name for (ns, name). The namespace is
// percent-encoded before being joined with the reserved "|" separator so
// a namespace URI containing "|" cannot collide with the separator.
func encodeKey(k Key) string {
	if k.Namespace == "" {
		return xattrPrefix + k.Name
	}
	return xattrPrefix + url.QueryEscape(k.Namespace) + "|" + k.Name
}

// decodeKey reverses encodeKey. ok is false if name does not carry the
// reserved xattr prefix at all (i.e. it belongs to some other xattr
// namespace and should be ignored by the property store).
func decodeKey(name string) (Key, bool) {
	if !strings.HasPrefix(name, xattrPrefix) {
		return Key{}, false
	}
	rest := name[len(xattrPrefix):]
	if sep := strings.IndexByte(rest, '|'); sep >= 0 {
		ns, err := url.QueryUnescape(rest[:sep])
		if err != nil {
			ns = rest[:sep]
		}
		return Key{Namespace: ns, Name: rest[sep+1:]}, true
	}
	return Key{Name: rest}, true
}
