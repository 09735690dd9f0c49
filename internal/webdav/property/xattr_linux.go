//go:build linux

package property

import (
	"bytes"

	"golang.org/x/sys/unix"
)

func listXattrNames(path string) ([]string, error) {
	size, err := unix.Listxattr(path, nil)
	if err != nil {
		return nil, err
	}
	if size <= 0 {
		return nil, nil
	}
	buf := make([]byte, size)
	n, err := unix.Listxattr(path, buf)
	if err != nil {
		return nil, err
	}
	var names []string
	for _, chunk := range bytes.Split(buf[:n], []byte{0}) {
		if len(chunk) > 0 {
			names = append(names, string(chunk))
		}
	}
	return names, nil
}

func getXattr(path, name string) ([]byte, error) {
	size, err := unix.Getxattr(path, name, nil)
	if err != nil {
		return nil, err
	}
	if size == 0 {
		return []byte{}, nil
	}
	buf := make([]byte, size)
	n, err := unix.Getxattr(path, name, buf)
	if err != nil {
		return nil, err
	}
	return buf[:n], nil
}

func setXattr(path, name string, value []byte) error {
	return unix.Setxattr(path, name, value, 0)
}

func removeXattr(path, name string) error {
	return unix.Removexattr(path, name)
}

const xattrSupported = true
