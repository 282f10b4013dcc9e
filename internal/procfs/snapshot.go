package procfs

// Scan performs a one-shot enumeration of the local process table,
// skipping PIDs 0 and 1 and any process whose status file fails to parse
// (read errors on individual entries are non-fatal: the process may
// have exited mid-scan). Only an outright failure to open the proc
// root itself is fatal.
func Scan() (*Snapshot, error) {
	return scanImpl()
}

// StartTime returns the creation timestamp (seconds since epoch) for
// pid, taken fresh from the live kernel view rather than from any
// cached Snapshot — fingerprint emission relies on this being
// up to date at the moment it is called, not at scan time.
func StartTime(pid int) (int64, error) {
	return startTimeImpl(pid)
}

// Alive reports whether pid currently names a live process. It is a
// liveness probe only; it makes no UID or ancestry claim.
func Alive(pid int) bool {
	return aliveImpl(pid)
}

// Status re-reads a single process's status file fresh from the
// kernel, bypassing any cached Snapshot. Used for parentage
// re-verification, where trusting a stale map would defeat the
// purpose of the check.
func Status(pid int) (Process, error) {
	return statusImpl(pid)
}
