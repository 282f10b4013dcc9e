//go:build !unix

package lockdir

import (
	"errors"
	"os"
)

// ErrUnsupportedPlatform is returned on platforms without Unix
// ownership semantics or openat(2)-style relative opens, both of
// which this package's race-safety guarantees depend on.
var ErrUnsupportedPlatform = errors.New("lockdir: unsupported platform")

type Handle struct{}

func Open(path string) (*Handle, error) {
	return nil, ErrUnsupportedPlatform
}

func (h *Handle) Path() string { return "" }

func (h *Handle) Close() error { return ErrUnsupportedPlatform }

func (h *Handle) CreateExclusive(name string) (*os.File, error) {
	return nil, ErrUnsupportedPlatform
}

func (h *Handle) OpenExisting(name string) (*os.File, error) {
	return nil, ErrUnsupportedPlatform
}

func (h *Handle) Remove(name string) error {
	return ErrUnsupportedPlatform
}
