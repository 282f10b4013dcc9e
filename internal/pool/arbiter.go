// Package pool implements the account-pool arbitration contract: given
// a range of UIDs and a lock directory, find one account that is
// either free or safely reusable, and hand back an exclusively-locked
// session for it.
package pool

import (
	"errors"
	"io"
	"log/slog"
	"os"

	"github.com/bbockelm/lcmaps-plugins-anonymous-accounts/internal/ancestry"
	"github.com/bbockelm/lcmaps-plugins-anonymous-accounts/internal/lockdir"
	"github.com/bbockelm/lcmaps-plugins-anonymous-accounts/internal/procfs"
	"github.com/gobwas/glob"
	"golang.org/x/sys/unix"
)

// Arbiter selects an account slot out of a range and adjudicates
// whether any pre-existing lease file content still represents a live
// job. It is stateless across invocations; callers build one per host
// call via New.
type Arbiter struct {
	dir      *lockdir.Handle
	engine   *ancestry.Engine
	resolver Resolver
	exclude  []glob.Glob
	log      *slog.Logger
}

// New returns an Arbiter bound to an already-opened, already-validated
// lock directory. engine supplies the current invocation's fingerprint
// and the parentage re-verification used during adjudication; exclude
// is the set of account-name patterns never to consider, typically
// loaded from the plugin's optional overlay config.
func New(dir *lockdir.Handle, engine *ancestry.Engine, resolver Resolver, exclude []glob.Glob, log *slog.Logger) *Arbiter {
	if log == nil {
		log = slog.Default()
	}
	return &Arbiter{dir: dir, engine: engine, resolver: resolver, exclude: exclude, log: log}
}

// Acquire walks rng in ascending UID order and returns a LeaseSession
// for the first account that is either unclaimed or safely reusable.
// It returns ErrPoolExhausted if every account in the range was
// unresolvable, excluded, contended, or genuinely held by a live,
// distinct job. It returns a non-nil error for anything that makes
// the whole invocation untrustworthy: an I/O failure touching a lock
// file, or a failure to compute this invocation's own fingerprint.
func (a *Arbiter) Acquire(rng Range) (*LeaseSession, error) {
	if err := rng.Validate(); err != nil {
		return nil, err
	}

	fp, err := a.engine.FindTransition(os.Getpid())
	if err != nil {
		return nil, err
	}

	for uid := rng.Min; uid <= rng.Max; uid++ {
		acct, ok := a.resolver.Lookup(uid)
		if !ok {
			a.log.Debug("uid not found on system", "uid", uid)
			continue
		}
		if a.isExcluded(acct.Name) {
			a.log.Debug("account excluded by configuration", "account", acct.Name)
			continue
		}

		session, err := a.tryAccount(acct, fp)
		if err != nil {
			return nil, err
		}
		if session != nil {
			return session, nil
		}
	}

	return nil, ErrPoolExhausted
}

// tryAccount attempts to claim acct. A nil, nil return means the
// account was unusable for a non-fatal reason (contended, genuinely
// live) and the caller should move on to the next UID.
func (a *Arbiter) tryAccount(acct Account, fp ancestry.Fingerprint) (*LeaseSession, error) {
	f, err := a.dir.CreateExclusive(acct.Name)
	if err != nil {
		if !errors.Is(err, os.ErrExist) {
			a.log.Debug("unable to create lock file", "account", acct.Name, "error", err)
			return nil, nil
		}
		f, err = a.dir.OpenExisting(acct.Name)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				a.log.Debug("lock file disappeared between create and open; racing with another acquirer", "account", acct.Name)
				return nil, nil
			}
			a.log.Debug("unable to open existing lock file", "account", acct.Name, "error", err)
			return nil, nil
		}
	}

	locked, err := flockExclusiveNB(f)
	if err != nil || !locked {
		f.Close()
		a.log.Debug("account in use by another process", "account", acct.Name)
		return nil, nil
	}

	reusable, err := a.adjudicate(f, acct.Name, fp)
	if err != nil {
		f.Close()
		return nil, &IOError{Account: acct.Name, Op: "adjudicate", Err: err}
	}
	if !reusable {
		f.Close()
		a.log.Debug("account held by a live, distinct job", "account", acct.Name)
		return nil, nil
	}

	if err := commit(f, fp); err != nil {
		f.Close()
		a.dir.Remove(acct.Name)
		return nil, &IOError{Account: acct.Name, Op: "commit", Err: err}
	}

	a.log.Info("account leased", "account", acct.Name, "uid", acct.UID, "fingerprint", fp.String())
	return &LeaseSession{file: f, account: acct, fingerprint: fp}, nil
}

// adjudicate decides whether an existing lease file can be reused: an
// empty or unparseable payload means no one holds this account; an
// identical fingerprint means we already hold it (idempotent
// re-entry); anything else requires proving the prior holder is gone
// before reuse is safe.
func (a *Arbiter) adjudicate(f *os.File, account string, current ancestry.Fingerprint) (reusable bool, err error) {
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return false, err
	}
	raw, err := io.ReadAll(f)
	if err != nil {
		return false, err
	}

	old, perr := ancestry.ParseFingerprint(string(raw))
	if perr != nil {
		a.log.Debug("no valid fingerprint on disk; account is free", "account", account)
		return true, nil
	}

	if old.Equal(current) {
		a.log.Debug("on-disk fingerprint matches our own; idempotent re-entry", "account", account)
		return true, nil
	}

	if !procfs.Alive(old.PID) {
		a.log.Debug("prior holder's pid is gone; account is stale", "account", account, "pid", old.PID)
		return true, nil
	}

	startTime, err := procfs.StartTime(old.PID)
	if err != nil {
		// The process vanished between the liveness probe and the stat;
		// treat it the same as already-gone.
		a.log.Debug("prior holder's pid vanished mid-check; account is stale", "account", account, "pid", old.PID)
		return true, nil
	}
	if startTime != old.StartTime {
		a.log.Debug("prior holder's pid was reused; account is stale", "account", account, "pid", old.PID)
		return true, nil
	}

	if _, _, _, err := a.engine.VerifyParent(old.PID); err != nil {
		// Either the parent genuinely changed (stale) or we can't prove
		// it didn't (e.g. the prior holder post-dates our snapshot).
		// Either way we cannot show the lease is still live and distinct.
		a.log.Debug("prior holder's parentage changed or is unverifiable; account is stale", "account", account, "pid", old.PID, "reason", err)
		return true, nil
	}

	// Parentage re-verified unchanged: the prior holder is still live
	// and is a different job than this one.
	return false, nil
}

// commit truncates f and writes fp's textual form in full.
func commit(f *os.File, fp ancestry.Fingerprint) error {
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return err
	}
	if err := f.Truncate(0); err != nil {
		return err
	}
	if _, err := f.WriteString(fp.String()); err != nil {
		return err
	}
	return f.Sync()
}

func (a *Arbiter) isExcluded(name string) bool {
	for _, g := range a.exclude {
		if g.Match(name) {
			return true
		}
	}
	return false
}

// flockExclusiveNB attempts a non-blocking exclusive advisory lock.
// It returns (false, nil) on contention (EWOULDBLOCK) rather than an
// error, since that is the expected outcome of racing another
// acquirer and not a failure of the operation itself.
func flockExclusiveNB(f *os.File) (bool, error) {
	err := unix.Flock(int(f.Fd()), unix.LOCK_EX|unix.LOCK_NB)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, unix.EWOULDBLOCK) {
		return false, nil
	}
	return false, err
}
