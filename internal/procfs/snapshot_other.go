//go:build !linux

package procfs

import "errors"

// ErrUnsupportedPlatform is returned by every operation on platforms
// without a /proc filesystem. The leasing algorithm is defined in
// terms of /proc; there is no portable substitute for the ancestry
// and start-time semantics it depends on.
var ErrUnsupportedPlatform = errors.New("procfs: unsupported platform, no /proc filesystem")

func scanImpl() (*Snapshot, error) {
	return nil, ErrUnsupportedPlatform
}

func startTimeImpl(pid int) (int64, error) {
	return 0, ErrUnsupportedPlatform
}

func statusImpl(pid int) (Process, error) {
	return Process{}, ErrUnsupportedPlatform
}

func aliveImpl(pid int) bool {
	return false
}
