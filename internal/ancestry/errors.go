package ancestry

import "fmt"

// BrokenChainError means a parent lookup missed while walking toward
// PID 1 — the process tree observed by the snapshot does not connect
// the subject PID back to init.
type BrokenChainError struct {
	PID    int // the PID whose parent could not be found
	Origin int // the PID the walk started from
}

func (e *BrokenChainError) Error() string {
	return fmt.Sprintf("broken chain: unable to find parent of %d, ancestor of %d", e.PID, e.Origin)
}

// CycleDetectedError means the walk exceeded the snapshot's PID count
// without reaching PID 1. A consistent snapshot cannot contain a
// parent-link cycle, so this only fires defensively.
type CycleDetectedError struct {
	Origin int
	Steps  int
}

func (e *CycleDetectedError) Error() string {
	return fmt.Sprintf("cycle detected: ancestry walk from %d exceeded %d steps without reaching PID 1", e.Origin, e.Steps)
}

// ImplausibleAncestryError means the ancestry was too short to
// plausibly contain a launcher, the job's entry process, and at least
// one further ancestor.
type ImplausibleAncestryError struct {
	PID    int
	Length int
}

func (e *ImplausibleAncestryError) Error() string {
	return fmt.Sprintf("implausible ancestry for %d: length %d, need launcher, child, and at least one ancestor", e.PID, e.Length)
}

// UnknownAncestorUIDError means an ancestor PID has no UID recorded
// in the snapshot — the transition walk refuses to continue past an
// ancestor it cannot identify.
type UnknownAncestorUIDError struct {
	PID int
}

func (e *UnknownAncestorUIDError) Error() string {
	return fmt.Sprintf("unknown ancestor UID; refuse to continue past PID %d", e.PID)
}

// NoTransitionFoundError means the walk reached PID 1 without the
// real UID ever changing.
type NoTransitionFoundError struct {
	PID int
}

func (e *NoTransitionFoundError) Error() string {
	return fmt.Sprintf("no UID transition found in ancestry of %d", e.PID)
}

// RaceDetectedError means a process's live PPID disagrees with the
// value recorded in the snapshot — the process was very likely
// reparented (PID reuse, parent replacement) between observation and
// verification.
type RaceDetectedError struct {
	PID         int
	SnapshotPPID int
	LivePPID    int
}

func (e *RaceDetectedError) Error() string {
	return fmt.Sprintf("race detected: parent of %d changed from %d to %d between observation and verification", e.PID, e.SnapshotPPID, e.LivePPID)
}

// FingerprintParseError means a lease-file payload did not parse as a
// well-formed "pid:ppid:timestamp" triple.
type FingerprintParseError struct {
	Raw string
	Err error
}

func (e *FingerprintParseError) Error() string {
	return fmt.Sprintf("malformed fingerprint %q: %v", e.Raw, e.Err)
}

func (e *FingerprintParseError) Unwrap() error { return e.Err }
