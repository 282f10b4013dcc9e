//go:build unix

package lockdir

import (
	"fmt"
	"os"
	"path/filepath"
	"syscall"

	"golang.org/x/sys/unix"
)

// Handle is an open, validated pool lock directory. Every lease-file
// operation goes through it by relative path, so it remains correct
// even if the directory's own path is later renamed or replaced by a
// symlink — the descriptor, not the path, is authoritative.
type Handle struct {
	dir  *os.File
	path string
}

// Open opens path and validates its ownership and mode: owned by uid
// 0; if its GID is nonzero, not group-writable; never world-writable.
// Any violation fails before any lease file is touched.
func Open(path string) (*Handle, error) {
	dir, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open lock directory %s: %w", path, err)
	}

	info, err := dir.Stat()
	if err != nil {
		dir.Close()
		return nil, fmt.Errorf("stat lock directory %s: %w", path, err)
	}
	if !info.IsDir() {
		dir.Close()
		return nil, &PermissionError{Path: path, Reason: "not a directory"}
	}

	stat, ok := info.Sys().(*syscall.Stat_t)
	if !ok {
		dir.Close()
		return nil, fmt.Errorf("lockdir: cannot introspect ownership of %s on this platform", path)
	}

	if stat.Uid != 0 {
		dir.Close()
		return nil, &PermissionError{Path: path, Reason: "not owned by uid 0"}
	}
	mode := info.Mode().Perm()
	if stat.Gid != 0 && mode&0o020 != 0 {
		dir.Close()
		return nil, &PermissionError{Path: path, Reason: "not owned by root group and is group-writable"}
	}
	if mode&0o002 != 0 {
		dir.Close()
		return nil, &PermissionError{Path: path, Reason: "world-writable"}
	}

	return &Handle{dir: dir, path: path}, nil
}

// Path returns the directory path this handle was opened from.
func (h *Handle) Path() string {
	return h.path
}

// Close releases the directory descriptor. It does not affect any
// lease file descriptors obtained through it.
func (h *Handle) Close() error {
	return h.dir.Close()
}

// CreateExclusive attempts an atomic create-or-fail of name relative
// to the directory, with owner rw, group r, other r — the mandated
// permissions for a freshly created lease file. It returns
// os.ErrExist (wrapped) if the name already exists.
func (h *Handle) CreateExclusive(name string) (*os.File, error) {
	fd, err := unix.Openat(int(h.dir.Fd()), name, unix.O_RDWR|unix.O_CREAT|unix.O_EXCL, 0o644)
	if err != nil {
		return nil, fmt.Errorf("create %s/%s: %w", h.path, name, err)
	}
	return os.NewFile(uintptr(fd), filepath.Join(h.path, name)), nil
}

// OpenExisting reopens name relative to the directory for read-write,
// without creating it. Used when CreateExclusive reports the name
// already exists; a concurrent unlink between the two calls surfaces
// here as ENOENT, which callers treat as a transient race and skip.
func (h *Handle) OpenExisting(name string) (*os.File, error) {
	fd, err := unix.Openat(int(h.dir.Fd()), name, unix.O_RDWR, 0)
	if err != nil {
		return nil, fmt.Errorf("open %s/%s: %w", h.path, name, err)
	}
	return os.NewFile(uintptr(fd), filepath.Join(h.path, name)), nil
}

// Remove unlinks name relative to the directory. Used to clean up a
// partially written lease file after a mid-commit I/O failure.
func (h *Handle) Remove(name string) error {
	return unix.Unlinkat(int(h.dir.Fd()), name, 0)
}
