package plugin

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/bbockelm/lcmaps-plugins-anonymous-accounts/internal/ancestry"
	"github.com/bbockelm/lcmaps-plugins-anonymous-accounts/internal/lockdir"
	"github.com/bbockelm/lcmaps-plugins-anonymous-accounts/internal/pool"
)

// ConfigError means the host-supplied argument vector or policy
// overlay was malformed. Fatal for the plugin instance.
type ConfigError struct{ Err error }

func (e *ConfigError) Error() string  { return fmt.Sprintf("configuration: %v", e.Err) }
func (e *ConfigError) Unwrap() error  { return e.Err }
func (e *ConfigError) LogValue() slog.Value {
	return slog.GroupValue(slog.String("kind", "config"), slog.String("error", e.Err.Error()))
}

// EnvironmentError means the lock directory failed an ownership or
// mode invariant. Fatal for the current invocation.
type EnvironmentError struct{ Err error }

func (e *EnvironmentError) Error() string { return fmt.Sprintf("environment: %v", e.Err) }
func (e *EnvironmentError) Unwrap() error { return e.Err }
func (e *EnvironmentError) LogValue() slog.Value {
	return slog.GroupValue(slog.String("kind", "environment"), slog.String("error", e.Err.Error()))
}

// TransientSlotError means every candidate UID in range was tried and
// none yielded a lease. Each individual skip (contention, missing
// account, exclusion) was already non-fatal by construction; this
// error represents the aggregate outcome of exhausting the range.
type TransientSlotError struct{ Err error }

func (e *TransientSlotError) Error() string { return fmt.Sprintf("transient: %v", e.Err) }
func (e *TransientSlotError) Unwrap() error { return e.Err }
func (e *TransientSlotError) LogValue() slog.Value {
	return slog.GroupValue(slog.String("kind", "transient_slot"), slog.String("error", e.Err.Error()))
}

// AncestryError means the current invocation's own fingerprint could
// not be derived: a broken or implausibly short chain, an ancestor
// with no recorded UID, or no UID transition found. Fatal for the
// current invocation.
type AncestryError struct{ Err error }

func (e *AncestryError) Error() string { return fmt.Sprintf("ancestry: %v", e.Err) }
func (e *AncestryError) Unwrap() error { return e.Err }
func (e *AncestryError) LogValue() slog.Value {
	return slog.GroupValue(slog.String("kind", "ancestry"), slog.String("error", e.Err.Error()))
}

// RaceDetectedError means a process's live parentage disagreed with
// the value the engine observed earlier in the same invocation. Fatal
// for the current invocation: silently trusting the earlier
// observation would risk misattributing the lease.
type RaceDetectedError struct{ Err error }

func (e *RaceDetectedError) Error() string { return fmt.Sprintf("race detected: %v", e.Err) }
func (e *RaceDetectedError) Unwrap() error { return e.Err }
func (e *RaceDetectedError) LogValue() slog.Value {
	return slog.GroupValue(slog.String("kind", "race_detected"), slog.String("error", e.Err.Error()))
}

// IOError means a read or write against a lock file failed mid-commit.
// The arbiter has already attempted a best-effort unlink of any
// partially written file by the time this surfaces.
type IOError struct{ Err error }

func (e *IOError) Error() string { return fmt.Sprintf("io: %v", e.Err) }
func (e *IOError) Unwrap() error { return e.Err }
func (e *IOError) LogValue() slog.Value {
	return slog.GroupValue(slog.String("kind", "io"), slog.String("error", e.Err.Error()))
}

// classifyAcquireError maps an error returned from pool.Arbiter.Acquire
// onto the exported taxonomy in this package, so host-facing code can
// errors.As against a small, stable set of types regardless of which
// internal package produced the underlying failure.
func classifyAcquireError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pool.ErrPoolExhausted) {
		return &TransientSlotError{Err: err}
	}

	var ioErr *pool.IOError
	if errors.As(err, &ioErr) {
		return &IOError{Err: err}
	}

	var raceErr *ancestry.RaceDetectedError
	if errors.As(err, &raceErr) {
		return &RaceDetectedError{Err: err}
	}

	var (
		broken      *ancestry.BrokenChainError
		cycle       *ancestry.CycleDetectedError
		implausible *ancestry.ImplausibleAncestryError
		unknownUID  *ancestry.UnknownAncestorUIDError
		noTransit   *ancestry.NoTransitionFoundError
	)
	if errors.As(err, &broken) || errors.As(err, &cycle) || errors.As(err, &implausible) ||
		errors.As(err, &unknownUID) || errors.As(err, &noTransit) {
		return &AncestryError{Err: err}
	}

	return err
}

// classifyEnvironmentError maps an error from lockdir.Open onto
// EnvironmentError.
func classifyEnvironmentError(err error) error {
	if err == nil {
		return nil
	}
	var permErr *lockdir.PermissionError
	if errors.As(err, &permErr) {
		return &EnvironmentError{Err: err}
	}
	return &EnvironmentError{Err: err}
}
