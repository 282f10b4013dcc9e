// Package plugin implements the four host entry points
// (initialize/describe/perform/terminate) on top of the leasing core,
// translating the host's abstract protocol into concrete Go
// interfaces.
package plugin

import "github.com/google/uuid"

// LeaseHandle is an opaque token identifying an externally-released
// lease to the host's registration interface. It carries no semantic
// weight inside the core: the plugin keeps no record of it, and it is
// only passed to RegisterRelease alongside the descriptor and path and
// returned in Outcome, so the host can correlate the two. There is no
// call that looks a lease up by its handle.
type LeaseHandle uuid.UUID

// String renders the handle in its canonical textual form.
func (h LeaseHandle) String() string {
	return uuid.UUID(h).String()
}

// CredentialRegistrar is the host's credential store. On a successful
// Perform, the plugin calls Register exactly once with the chosen
// account's UID and primary GID.
type CredentialRegistrar interface {
	Register(uid, gid int) error
}

// ReleaseRegistrar is the host's hook for tracking an
// externally-released lease. It is the Go-native replacement for the
// original plugin's module-level globals: instead of publishing
// symbols for a sibling plugin to read, the core calls
// RegisterRelease once, handing over the raw descriptor and path. The
// registrar becomes solely responsible for eventually closing fd.
type ReleaseRegistrar interface {
	RegisterRelease(handle LeaseHandle, fd int, path string) error
}

// CallerInfo is what the host supplies to Perform. Credentials is
// required; Release is optional — its presence selects the
// externally-released LeaseSession variant over the default
// self-contained one.
type CallerInfo struct {
	Credentials CredentialRegistrar
	Release     ReleaseRegistrar
}

// ArgumentSpec describes one piece of caller-supplied data the plugin
// would need pulled from the host's argument store. This plugin needs
// none, so DescribeRequiredArguments always returns an empty slice;
// the type exists so that contract is expressed as a typed return
// rather than a sentinel.
type ArgumentSpec struct {
	Name        string
	Description string
}

// Outcome is what Perform returns on success: the account identity
// the host should run the payload under, and — only for an
// externally-released lease — the handle that was passed to
// RegisterRelease together with the held descriptor.
type Outcome struct {
	UID    int
	GID    int
	Handle *LeaseHandle
}
