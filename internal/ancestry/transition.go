package ancestry

import (
	"fmt"
	"sync"

	"github.com/bbockelm/lcmaps-plugins-anonymous-accounts/internal/procfs"
)

// Engine derives fingerprints and re-verifies parentage for a single
// host invocation. It lazily builds one Snapshot on first use and
// reuses it for every subsequent call: each invocation owns its own
// Engine, and there is no state shared across invocations.
type Engine struct {
	mu   sync.Mutex
	snap *procfs.Snapshot
}

// NewEngine returns an Engine with no snapshot taken yet.
func NewEngine() *Engine {
	return &Engine{}
}

// NewEngineFromSnapshot returns an Engine pre-seeded with snap,
// skipping the lazy procfs.Scan on first use. Exercised by tests that
// need to exert control over the process table the engine reasons
// about, and by callers (e.g. poolacctctl's ancestry command) that
// already built a snapshot and want to hand it to a fresh Engine
// rather than trigger a second scan.
func NewEngineFromSnapshot(snap *procfs.Snapshot) *Engine {
	return &Engine{snap: snap}
}

func (e *Engine) snapshot() (*procfs.Snapshot, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.snap == nil {
		snap, err := procfs.Scan()
		if err != nil {
			return nil, err
		}
		e.snap = snap
	}
	return e.snap, nil
}

// StatErr wraps a failure to stat a live process when emitting a
// fingerprint's start timestamp.
type StatErr struct {
	PID int
	Err error
}

func (e *StatErr) Error() string {
	return fmt.Sprintf("stat /proc/%d for fingerprint emission: %v", e.PID, e.Err)
}

func (e *StatErr) Unwrap() error { return e.Err }

// Fingerprint stats /proc/<pid> at call time (not at snapshot time) so
// the timestamp reflects the live kernel view, and formats
// "<pid>:<ppid>:<mtime_seconds>".
func (e *Engine) Fingerprint(pid, ppid int) (Fingerprint, error) {
	ts, err := procfs.StartTime(pid)
	if err != nil {
		return Fingerprint{}, &StatErr{PID: pid, Err: err}
	}
	return Fingerprint{PID: pid, PPID: ppid, StartTime: ts}, nil
}

// FindTransition builds the ancestry of pid, skips the launcher
// (chain[0]), and walks outward from chain[1] recording the first
// inspected ancestor's UID as the job's original UID. The transition
// point is the boundary between the last ancestor sharing that UID
// (the child, whose PID becomes the fingerprint's pid) and the first
// ancestor with a different UID (the parent, whose PID becomes the
// fingerprint's ppid). Before returning, it re-verifies the child's
// parentage against the live proc entry.
func (e *Engine) FindTransition(pid int) (Fingerprint, error) {
	snap, err := e.snapshot()
	if err != nil {
		return Fingerprint{}, err
	}

	chain, err := Chain(snap, pid)
	if err != nil {
		return Fingerprint{}, err
	}

	// launcher, the job's entry process, and at least one further
	// ancestor are required.
	if len(chain) < 3 {
		return Fingerprint{}, &ImplausibleAncestryError{PID: pid, Length: len(chain)}
	}

	origUID := -1
	child := chain[1]

	// chain[0] is the launcher invoking the plugin; skip it.
	for i := 1; i < len(chain); i++ {
		anc := chain[i]

		proc, ok := snap.Lookup(anc)
		if !ok {
			if anc == 1 {
				return Fingerprint{}, &NoTransitionFoundError{PID: pid}
			}
			return Fingerprint{}, &UnknownAncestorUIDError{PID: anc}
		}

		if origUID == -1 {
			origUID = proc.UID
			child = anc
			continue
		}

		if proc.UID != origUID {
			if _, _, _, err := e.VerifyParent(child); err != nil {
				return Fingerprint{}, err
			}
			return e.Fingerprint(child, anc)
		}

		child = anc
	}

	return Fingerprint{}, &NoTransitionFoundError{PID: pid}
}
