package property

// Store reads, writes, and deletes dead properties on a filesystem path.
// It is stateless: every call hits the filesystem directly, with no
// in-process cache.
type Store struct{}

// NewStore returns a dead-property store backed by filesystem xattrs.
func NewStore() *Store {
	return &Store{}
}

// Supported reports whether the current platform can store xattrs at all.
func (s *Store) Supported() bool {
	return xattrSupported
}

// DeadProperties lists every dead property stored on path. A read error
// (e.g. xattrs unsupported) degrades to an empty map rather than failing,
// so a property read failure omits the property instead of failing the
// whole response.
func (s *Store) DeadProperties(path string) Dead {
	names, err := listXattrNames(path)
	if err != nil || len(names) == 0 {
		return Dead{}
	}
	out := make(Dead, len(names))
	for _, name := range names {
		key, ok := decodeKey(name)
		if !ok {
			continue
		}
		value, err := getXattr(path, name)
		if err != nil {
			continue
		}
		out[key] = string(value)
	}
	return out
}

// Get fetches a single dead property. The bool is false if the property
// is absent or cannot be read.
func (s *Store) Get(path string, k Key) (string, bool) {
	value, err := getXattr(path, encodeKey(k))
	if err != nil {
		return "", false
	}
	return string(value), true
}

// SetProp creates or overwrites a dead property. A failure here is
// rendered by the caller as 403 Forbidden inside the multi-status body,
// not as a whole-request failure.
func (s *Store) SetProp(path string, k Key, value string) error {
	return setXattr(path, encodeKey(k), []byte(value))
}

// DelProp removes a dead property.
func (s *Store) DelProp(path string, k Key) error {
	return removeXattr(path, encodeKey(k))
}
