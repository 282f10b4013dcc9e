package pool

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/gobwas/glob"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bbockelm/lcmaps-plugins-anonymous-accounts/internal/ancestry"
	"github.com/bbockelm/lcmaps-plugins-anonymous-accounts/internal/lockdir"
	"github.com/bbockelm/lcmaps-plugins-anonymous-accounts/internal/procfs"
)

// newTestArbiter builds an Arbiter whose ancestry engine is seeded
// from the real process table, with two UID bands injected over the
// actual ancestry chain of the test process: the immediate parent is
// given the "job" UID and everything above it the "launcher" UID.
// Every PPID link is left untouched, so live parentage re-verification
// agrees with the fabricated snapshot exactly as it would in
// production.
func newTestArbiter(t *testing.T, accounts StaticResolver) (*Arbiter, string) {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.Chmod(dir, 0o755))

	h, err := lockdir.Open(dir)
	require.NoError(t, err)
	t.Cleanup(func() { h.Close() })

	real, err := procfs.Scan()
	require.NoError(t, err)

	self := os.Getpid()
	chain, err := ancestry.Chain(real, self)
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(chain), 3, "process tree too shallow to fabricate a deterministic transition")

	procs := make(map[int]procfs.Process, len(chain))
	for i, pid := range chain {
		p, ok := real.Lookup(pid)
		if pid == 1 {
			// Scan never records PID 1, so the chain's terminal entry is
			// synthesized here.
			p, ok = procfs.Process{PID: 1}, true
		}
		require.True(t, ok)
		switch {
		case i == 1:
			p.UID, p.GID = 1000, 1000
		case i >= 2:
			p.UID, p.GID = 0, 0
		}
		procs[pid] = p
	}

	engine := ancestry.NewEngineFromSnapshot(procfs.New(procs))
	return New(h, engine, accounts, nil, nil), dir
}

// S1: empty pool, no contention — first account in range is granted.
func TestAcquire_FreshAccountGranted(t *testing.T) {
	accounts := StaticResolver{1000: {Name: "poolacct01", UID: 1000, GID: 1000}}
	arb, dir := newTestArbiter(t, accounts)

	session, err := arb.Acquire(Range{Min: 1000, Max: 1000})
	require.NoError(t, err)
	require.NotNil(t, session)
	defer session.Release()

	assert.Equal(t, "poolacct01", session.AccountName())
	assert.FileExists(t, filepath.Join(dir, "poolacct01"))
}

// A lock file with garbage content is treated as free.
func TestAcquire_MalformedFingerprintIsReusable(t *testing.T) {
	accounts := StaticResolver{1000: {Name: "poolacct01", UID: 1000, GID: 1000}}
	arb, dir := newTestArbiter(t, accounts)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "poolacct01"), []byte("not a fingerprint"), 0o644))

	session, err := arb.Acquire(Range{Min: 1000, Max: 1000})
	require.NoError(t, err)
	require.NotNil(t, session)
	defer session.Release()
}

// S3: a fingerprint whose pid no longer exists is stale and reusable.
func TestAcquire_DeadPriorHolderIsReusable(t *testing.T) {
	accounts := StaticResolver{1000: {Name: "poolacct01", UID: 1000, GID: 1000}}
	arb, dir := newTestArbiter(t, accounts)

	stale := ancestry.Fingerprint{PID: 999999, PPID: 999998, StartTime: 1}
	require.NoError(t, os.WriteFile(filepath.Join(dir, "poolacct01"), []byte(stale.String()), 0o644))

	session, err := arb.Acquire(Range{Min: 1000, Max: 1000})
	require.NoError(t, err)
	require.NotNil(t, session)
	defer session.Release()
}

// S2: a fingerprint that exactly matches our own is an idempotent
// re-entry and is reusable without any liveness probing.
func TestAcquire_OwnFingerprintIsIdempotent(t *testing.T) {
	accounts := StaticResolver{1000: {Name: "poolacct01", UID: 1000, GID: 1000}}
	arb, dir := newTestArbiter(t, accounts)

	fp, err := arb.engine.FindTransition(os.Getpid())
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "poolacct01"), []byte(fp.String()), 0o644))

	session, err := arb.Acquire(Range{Min: 1000, Max: 1000})
	require.NoError(t, err)
	require.NotNil(t, session)
	defer session.Release()
	assert.True(t, session.Fingerprint().Equal(fp))
}

// S5: a fingerprint for a live, distinct process (our own test
// process, but reported under a different pid/ppid pair than our
// real fingerprint) whose parentage still verifies is not reusable.
func TestAcquire_LiveDistinctHolderSkipped(t *testing.T) {
	accounts := StaticResolver{
		1000: {Name: "poolacct01", UID: 1000, GID: 1000},
		1001: {Name: "poolacct02", UID: 1001, GID: 1001},
	}
	arb, dir := newTestArbiter(t, accounts)

	self := os.Getpid()
	ppid := os.Getppid()
	startTime, err := procfs.StartTime(self)
	require.NoError(t, err)

	// A fingerprint naming our own live pid/ppid/start-time, but not
	// equal to what FindTransition would compute for us (different
	// ppid value than the snapshot's transition boundary), so it is
	// treated as someone else's still-live lease.
	live := ancestry.Fingerprint{PID: self, PPID: ppid, StartTime: startTime}
	require.NoError(t, os.WriteFile(filepath.Join(dir, "poolacct01"), []byte(live.String()), 0o644))

	session, err := arb.Acquire(Range{Min: 1000, Max: 1001})
	require.NoError(t, err)
	require.NotNil(t, session)
	defer session.Release()

	// Account 1000 was skipped; 1001 was granted instead.
	assert.Equal(t, "poolacct02", session.AccountName())
}

// Every account in range is exhausted.
func TestAcquire_PoolExhausted(t *testing.T) {
	accounts := StaticResolver{}
	arb, _ := newTestArbiter(t, accounts)

	_, err := arb.Acquire(Range{Min: 2000, Max: 2001})
	assert.ErrorIs(t, err, ErrPoolExhausted)
}

func TestAcquire_ExcludedAccountSkipped(t *testing.T) {
	accounts := StaticResolver{
		1000: {Name: "poolacct01", UID: 1000, GID: 1000},
		1001: {Name: "poolacct02", UID: 1001, GID: 1001},
	}
	arb, dir := newTestArbiter(t, accounts)
	g, err := glob.Compile("poolacct01")
	require.NoError(t, err)
	arb.exclude = []glob.Glob{g}

	session, err := arb.Acquire(Range{Min: 1000, Max: 1001})
	require.NoError(t, err)
	require.NotNil(t, session)
	defer session.Release()
	assert.Equal(t, "poolacct02", session.AccountName())
	_ = dir
}

func TestAcquire_InvalidRange(t *testing.T) {
	arb, _ := newTestArbiter(t, StaticResolver{})
	_, err := arb.Acquire(Range{Min: 10, Max: 5})
	assert.Error(t, err)
}

func TestLeaseSession_DetachThenReleaseIsNoop(t *testing.T) {
	accounts := StaticResolver{1000: {Name: "poolacct01", UID: 1000, GID: 1000}}
	arb, dir := newTestArbiter(t, accounts)

	session, err := arb.Acquire(Range{Min: 1000, Max: 1000})
	require.NoError(t, err)

	fd, path := session.Detach()
	require.NotEqual(t, -1, fd)
	assert.Equal(t, filepath.Join(dir, "poolacct01"), path)
	defer func() {
		if f := os.NewFile(uintptr(fd), path); f != nil {
			f.Close()
		}
	}()

	assert.NoError(t, session.Release())
}

func TestIOError_FormatsAccountAndOp(t *testing.T) {
	err := &IOError{Account: "poolacct01", Op: "commit", Err: fmt.Errorf("disk full")}
	assert.Contains(t, err.Error(), "poolacct01")
	assert.Contains(t, err.Error(), "commit")
}

func TestRange_ValidateRejectsInverted(t *testing.T) {
	assert.Error(t, Range{Min: 5, Max: 1}.Validate())
	assert.NoError(t, Range{Min: 1, Max: 1}.Validate())
}
