package pool

import (
	"os"
	"sync"

	"github.com/bbockelm/lcmaps-plugins-anonymous-accounts/internal/ancestry"
	"golang.org/x/sys/unix"
)

// LeaseSession is a held account slot: an open, exclusively-flocked
// lease file plus the account identity and fingerprint committed to
// it. It is the one object through which a caller chooses between two
// release disciplines — not two code paths, but two things a caller
// can do with the same handle:
//
//   - Release (self-contained / ephemeral): the caller defers
//     Release() and the lock is dropped when the host call returns.
//   - Detach (externally released / persistent): the caller hands the
//     raw descriptor and path to a peer component via a
//     ReleaseRegistrar, and this LeaseSession no longer holds any
//     descriptor for the lease file.
type LeaseSession struct {
	mu          sync.Mutex
	file        *os.File
	account     Account
	fingerprint ancestry.Fingerprint
	detached    bool
}

// AccountName returns the system account name the lease was granted
// under.
func (s *LeaseSession) AccountName() string { return s.account.Name }

// UID returns the account's UID.
func (s *LeaseSession) UID() int { return s.account.UID }

// GID returns the account's primary GID.
func (s *LeaseSession) GID() int { return s.account.GID }

// Path returns the absolute path of the backing lease file.
func (s *LeaseSession) Path() string { return s.file.Name() }

// Fingerprint returns the fingerprint committed to the lease file at
// acquisition time.
func (s *LeaseSession) Fingerprint() ancestry.Fingerprint { return s.fingerprint }

// Release drops the advisory lock by closing the underlying
// descriptor. It is idempotent and a no-op after Detach. This is the
// self-contained variant: hold the lock only for the duration of the
// host call.
func (s *LeaseSession) Release() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.detached || s.file == nil {
		return nil
	}
	err := s.file.Close()
	s.file = nil
	return err
}

// Detach hands ownership of the lease lock to the caller, returning a
// raw fd and the lease file's path. The fd is a duplicate sharing the
// locked open file description, so the lock stays held; the session's
// own descriptor is closed and it keeps no reference to the returned
// fd. After Detach, Release is a no-op: the descriptor belongs to
// whoever called Detach, typically a ReleaseRegistrar that will close
// it once the externally-tracked job exits. It returns -1 and "" if the
// session was already detached or released, or the duplicate fails.
// This is the externally-released variant.
func (s *LeaseSession) Detach() (fd int, path string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.detached || s.file == nil {
		return -1, ""
	}
	dup, err := unix.Dup(int(s.file.Fd()))
	if err != nil {
		return -1, ""
	}
	s.file.Close()
	s.detached = true
	return dup, s.file.Name()
}
