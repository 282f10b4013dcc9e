package ancestry

import "github.com/bbockelm/lcmaps-plugins-anonymous-accounts/internal/procfs"

// VerifyParent re-reads pid's status file fresh from the kernel and
// compares its live PPID against the snapshot's recorded PPID for the
// same PID. A mismatch means the process was reparented between
// observation and verification — most plausibly because its original
// parent exited and the kernel recycled the PPID slot onto a
// different process, which is exactly the parent-replacement /
// PID-reuse attack this guard exists to catch.
//
// On success it returns the freshly read PPID along with that
// parent's UID and GID as recorded in the snapshot.
func (e *Engine) VerifyParent(pid int) (ppid, uid, gid int, err error) {
	snap, err := e.snapshot()
	if err != nil {
		return 0, 0, 0, err
	}

	snapped, ok := snap.Lookup(pid)
	if !ok {
		return 0, 0, 0, &UnknownAncestorUIDError{PID: pid}
	}

	live, err := procfs.Status(pid)
	if err != nil {
		return 0, 0, 0, err
	}

	if live.PPID != snapped.PPID {
		return 0, 0, 0, &RaceDetectedError{PID: pid, SnapshotPPID: snapped.PPID, LivePPID: live.PPID}
	}

	parent, ok := snap.Lookup(live.PPID)
	if !ok {
		return 0, 0, 0, &UnknownAncestorUIDError{PID: live.PPID}
	}

	return live.PPID, parent.UID, parent.GID, nil
}
