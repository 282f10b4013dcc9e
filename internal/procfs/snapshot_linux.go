//go:build linux

package procfs

import (
	"bufio"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"golang.org/x/sys/unix"
)

const procRoot = "/proc"

// scanImpl enumerates /proc, parsing PPid/Uid/Gid out of each
// numbered entry's status file. Mirrors the column layout the
// original ancestry hash implementation parsed by hand, using
// strings.Fields instead of manual tab/newline scanning.
func scanImpl() (*Snapshot, error) {
	entries, err := os.ReadDir(procRoot)
	if err != nil {
		return nil, &ErrOpenProcRoot{Root: procRoot, Err: err}
	}

	procs := make(map[int]Process, len(entries))
	for _, entry := range entries {
		pid, err := strconv.Atoi(entry.Name())
		if err != nil || pid < 2 {
			continue
		}

		proc, ok := readStatus(pid)
		if !ok {
			continue
		}
		procs[pid] = proc
	}

	return New(procs), nil
}

// readStatus parses the fields labeled PPid:, Uid:, and Gid: out of
// /proc/<pid>/status. For the multi-column Uid:/Gid: lines only the
// first integer (the real id) is used; effective/saved/fs columns are
// ignored. A parse failure on any field makes the whole entry
// non-fatal: it is simply omitted from the snapshot.
func readStatus(pid int) (Process, bool) {
	f, err := os.Open(filepath.Join(procRoot, strconv.Itoa(pid), "status"))
	if err != nil {
		return Process{}, false
	}
	defer f.Close()

	proc := Process{PID: pid, PPID: -1, UID: -1, GID: -1}
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case strings.HasPrefix(line, "PPid:"):
			v, ok := firstField(line, "PPid:")
			if !ok {
				return Process{}, false
			}
			proc.PPID = v
		case strings.HasPrefix(line, "Uid:"):
			v, ok := firstField(line, "Uid:")
			if !ok {
				return Process{}, false
			}
			proc.UID = v
		case strings.HasPrefix(line, "Gid:"):
			v, ok := firstField(line, "Gid:")
			if !ok {
				return Process{}, false
			}
			proc.GID = v
		}
	}
	if err := scanner.Err(); err != nil {
		return Process{}, false
	}

	if proc.PPID == -1 || proc.UID == -1 || proc.GID == -1 {
		return Process{}, false
	}
	return proc, true
}

// firstField returns the first whitespace-delimited integer column
// after the given label, ignoring any subsequent columns (effective,
// saved, fs ids on the Uid:/Gid: lines).
func firstField(line, label string) (int, bool) {
	rest := strings.TrimSpace(strings.TrimPrefix(line, label))
	fields := strings.Fields(rest)
	if len(fields) == 0 {
		return 0, false
	}
	v, err := strconv.Atoi(fields[0])
	if err != nil {
		return 0, false
	}
	return v, true
}

// statusImpl re-reads a single process's status file, returning an
// error rather than silently omitting it the way a bulk Scan would.
func statusImpl(pid int) (Process, error) {
	proc, ok := readStatus(pid)
	if !ok {
		return Process{}, &os.PathError{Op: "read", Path: filepath.Join(procRoot, strconv.Itoa(pid), "status"), Err: os.ErrNotExist}
	}
	return proc, nil
}

// startTimeImpl reports the mtime (seconds) of /proc/<pid>, which on
// Linux reflects the process's start time with second resolution.
func startTimeImpl(pid int) (int64, error) {
	info, err := os.Stat(filepath.Join(procRoot, strconv.Itoa(pid)))
	if err != nil {
		return 0, err
	}
	return info.ModTime().Unix(), nil
}

func aliveImpl(pid int) bool {
	err := unix.Kill(pid, 0)
	// ESRCH: no such process. EPERM: exists, but we lack permission to
	// signal it — still alive. Anything else we treat optimistically
	// as "can't tell, assume alive" rather than risk reclaiming a live
	// lease.
	return err != unix.ESRCH
}
