//go:build !linux

package property

import "errors"

// errUnsupported is returned on platforms without extended attribute
// support. Reads degrade to an empty property set; set/del fail with 403.
var errUnsupported = errors.New("property: extended attributes unsupported on this platform")

func listXattrNames(path string) ([]string, error) {
	return nil, nil
}

func getXattr(path, name string) ([]byte, error) {
	return nil, errUnsupported
}

func setXattr(path, name string, value []byte) error {
	return errUnsupported
}

func removeXattr(path, name string) error {
	return errUnsupported
}

const xattrSupported = false
