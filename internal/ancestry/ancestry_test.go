package ancestry

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bbockelm/lcmaps-plugins-anonymous-accounts/internal/procfs"
)

func TestChain_ReachesPID1(t *testing.T) {
	snap := procfs.New(map[int]procfs.Process{
		4: {PID: 4, PPID: 3, UID: 500, GID: 500},
		3: {PID: 3, PPID: 2, UID: 500, GID: 500},
		2: {PID: 2, PPID: 1, UID: 0, GID: 0},
	})

	chain, err := Chain(snap, 4)
	require.NoError(t, err)
	assert.Equal(t, []int{4, 3, 2, 1}, chain)
}

func TestChain_BrokenChain(t *testing.T) {
	snap := procfs.New(map[int]procfs.Process{
		4: {PID: 4, PPID: 3, UID: 500, GID: 500},
		// 3's parent is missing entirely.
	})

	_, err := Chain(snap, 4)
	require.Error(t, err)
	var brokenErr *BrokenChainError
	assert.ErrorAs(t, err, &brokenErr)
}

func TestChain_CycleDetected(t *testing.T) {
	snap := procfs.New(map[int]procfs.Process{
		4: {PID: 4, PPID: 5, UID: 500, GID: 500},
		5: {PID: 5, PPID: 4, UID: 500, GID: 500},
	})

	_, err := Chain(snap, 4)
	require.Error(t, err)
	var cycleErr *CycleDetectedError
	assert.ErrorAs(t, err, &cycleErr)
}

func TestFindTransition_ImplausiblyShort(t *testing.T) {
	snap := procfs.New(map[int]procfs.Process{
		2: {PID: 2, PPID: 1, UID: 0, GID: 0},
	})
	eng := NewEngineFromSnapshot(snap)

	_, err := eng.FindTransition(2)
	require.Error(t, err)
	var implausible *ImplausibleAncestryError
	assert.ErrorAs(t, err, &implausible)
}

func TestFindTransition_MissingAncestorIsBrokenChain(t *testing.T) {
	snap := procfs.New(map[int]procfs.Process{
		5: {PID: 5, PPID: 4, UID: 500, GID: 500},
		4: {PID: 4, PPID: 3, UID: 500, GID: 500},
		// 3 is missing from the snapshot entirely, so the ancestry walk
		// fails before any UID is inspected.
	})
	eng := NewEngineFromSnapshot(snap)

	_, err := eng.FindTransition(5)
	require.Error(t, err)
	var broken *BrokenChainError
	assert.ErrorAs(t, err, &broken)
}

func TestFindTransition_NoTransitionFound(t *testing.T) {
	snap := procfs.New(map[int]procfs.Process{
		5: {PID: 5, PPID: 4, UID: 500, GID: 500},
		4: {PID: 4, PPID: 3, UID: 500, GID: 500},
		3: {PID: 3, PPID: 2, UID: 500, GID: 500},
		2: {PID: 2, PPID: 1, UID: 500, GID: 500},
	})
	eng := NewEngineFromSnapshot(snap)

	_, err := eng.FindTransition(5)
	require.Error(t, err)
	var noTransition *NoTransitionFoundError
	assert.ErrorAs(t, err, &noTransition)
}

// TestFindTransition_RealAncestry exercises the transition walk and
// its live parentage re-verification against this test binary's own,
// real ancestry, with one synthetic UID change injected partway up
// the chain to force a transition. PPIDs are left untouched so
// VerifyParent's live re-read still agrees with the snapshot.
func TestFindTransition_RealAncestry(t *testing.T) {
	snap, err := procfs.Scan()
	require.NoError(t, err)

	pid := os.Getpid()
	chain, err := Chain(snap, pid)
	require.NoError(t, err)
	if len(chain) < 4 {
		t.Skip("test process ancestry too shallow in this environment")
	}

	procs := make(map[int]procfs.Process, len(chain))
	for _, p := range chain {
		if proc, ok := snap.Lookup(p); ok {
			procs[p] = proc
		}
	}

	// chain[1] is the first inspected ancestor; give everything from
	// chain[1..2] one UID and bump chain[3] onward to a different one,
	// so the transition lands between chain[2] (child) and chain[3]
	// (parent).
	transitionChild := chain[2]
	transitionParent := chain[3]
	for i, p := range chain {
		if i == 0 {
			continue // launcher, never inspected
		}
		proc := procs[p]
		if i <= 2 {
			proc.UID = 777
		} else {
			proc.UID = 0
		}
		procs[p] = proc
	}

	synthetic := procfs.New(procs)
	eng := NewEngineFromSnapshot(synthetic)

	fp, err := eng.FindTransition(pid)
	require.NoError(t, err)
	assert.Equal(t, transitionChild, fp.PID)
	assert.Equal(t, transitionParent, fp.PPID)
	assert.Greater(t, fp.StartTime, int64(0))
}

func TestVerifyParent_CurrentProcessAgrees(t *testing.T) {
	snap, err := procfs.Scan()
	require.NoError(t, err)
	eng := NewEngineFromSnapshot(snap)

	pid := os.Getpid()
	proc, ok := snap.Lookup(pid)
	require.True(t, ok)

	ppid, _, _, err := eng.VerifyParent(pid)
	require.NoError(t, err)
	assert.Equal(t, proc.PPID, ppid)
}

func TestVerifyParent_DetectsMismatch(t *testing.T) {
	snap, err := procfs.Scan()
	require.NoError(t, err)

	pid := os.Getpid()
	proc, ok := snap.Lookup(pid)
	require.True(t, ok)

	procs := map[int]procfs.Process{pid: proc}
	// Snapshot lies about the parent.
	lied := proc
	lied.PPID = proc.PPID + 999999
	procs[pid] = lied

	eng := NewEngineFromSnapshot(procfs.New(procs))
	_, _, _, err = eng.VerifyParent(pid)
	require.Error(t, err)
	var raceErr *RaceDetectedError
	assert.ErrorAs(t, err, &raceErr)
}
