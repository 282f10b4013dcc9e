// Package lockdir opens and validates the pool lock directory: the
// shared filesystem location whose per-account files back every
// lease. All lease-file operations happen relative to the directory
// descriptor this package hands back, so a rename or symlink swap on
// the directory path mid-call cannot redirect them.
package lockdir

import "fmt"

// PermissionError means the lock directory failed one of its
// ownership/mode invariants. It is fatal for the current invocation:
// this check must run, and fail closed, before any lease file is
// touched.
type PermissionError struct {
	Path   string
	Reason string
}

func (e *PermissionError) Error() string {
	return fmt.Sprintf("lock directory %s failed permission check: %s", e.Path, e.Reason)
}
