package plugin

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/gobwas/glob"
	"github.com/google/uuid"

	"github.com/bbockelm/lcmaps-plugins-anonymous-accounts/internal/ancestry"
	"github.com/bbockelm/lcmaps-plugins-anonymous-accounts/internal/lockdir"
	"github.com/bbockelm/lcmaps-plugins-anonymous-accounts/internal/pluginconfig"
	"github.com/bbockelm/lcmaps-plugins-anonymous-accounts/internal/pool"
)

// Plugin binds the leasing core to the host's four-entry-point
// protocol. One Plugin is constructed per host module instance and
// Initialize is called exactly once before any Perform call.
type Plugin struct {
	cfg        *pluginconfig.Config
	overlay    *pluginconfig.Overlay
	resolver   pool.Resolver
	lockHandle *lockdir.Handle
	log        *slog.Logger

	// level backs the default logger's handler and is adjusted by
	// LoadOverlay's logLevel field. It has no effect once SetLogger
	// installs a host-supplied logger, since that logger's level is
	// the host's to control.
	level *slog.LevelVar

	// engineFactory builds the AncestryEngine for one Perform call.
	// Defaults to a fresh, unseeded ancestry.NewEngine(), so each
	// invocation owns its own snapshot. Tests override it to inject a
	// fabricated snapshot rather than reason about the real process
	// table's UID bands.
	engineFactory func() *ancestry.Engine
}

// New returns a Plugin with no configuration loaded yet. resolver
// defaults to pool.SystemResolver when nil; tests substitute a
// pool.StaticResolver so they do not depend on real system accounts.
func New(resolver pool.Resolver) *Plugin {
	if resolver == nil {
		resolver = pool.SystemResolver{}
	}
	level := &slog.LevelVar{}
	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	return &Plugin{resolver: resolver, log: log, level: level, engineFactory: ancestry.NewEngine}
}

// SetEngineFactory overrides how Perform builds its AncestryEngine for
// each call. Exercised by tests only.
func (p *Plugin) SetEngineFactory(f func() *ancestry.Engine) {
	if f != nil {
		p.engineFactory = f
	}
}

// SetLogger overrides the plugin's logger. The overlay's logLevel no
// longer has any effect once this is called.
func (p *Plugin) SetLogger(logger *slog.Logger) {
	if logger != nil {
		p.log = logger
	}
}

// Initialize parses argv and opens the configured lock directory.
// Any failure here is fatal for the plugin instance.
func (p *Plugin) Initialize(argv []string) error {
	cfg, err := pluginconfig.Parse(argv)
	if err != nil {
		return &ConfigError{Err: err}
	}
	for _, w := range cfg.Warnings {
		p.log.Warn("deprecated argument form", "detail", w)
	}
	p.cfg = cfg

	h, err := lockdir.Open(cfg.LockPath)
	if err != nil {
		return classifyEnvironmentError(err)
	}
	p.lockHandle = h

	p.log.Info("plugin initialized", "lockpath", cfg.LockPath, "min_uid", cfg.Range.Min, "max_uid", cfg.Range.Max)
	return nil
}

// LoadOverlay loads the optional YAML policy overlay from path. It is
// not part of the host's four entry points; callers that want the
// exclusion-pattern / log-level policy wire it in after Initialize.
// The overlay's logLevel is applied immediately to the default
// logger's level.
func (p *Plugin) LoadOverlay(path string) error {
	ov, err := pluginconfig.LoadOverlay(path)
	if err != nil {
		return &ConfigError{Err: err}
	}

	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(ov.LogLevel)); err != nil {
		return &ConfigError{Err: fmt.Errorf("overlay log level %q: %w", ov.LogLevel, err)}
	}

	p.overlay = ov
	p.level.Set(lvl)
	return nil
}

// DescribeRequiredArguments always returns an empty set: this plugin
// consumes no caller-supplied arguments beyond what Initialize already
// parsed.
func (p *Plugin) DescribeRequiredArguments() []ArgumentSpec {
	return []ArgumentSpec{}
}

// Perform runs one full acquisition cycle against the current
// process's own ancestry and, on success, registers the chosen
// credentials with the host. The lock directory is reopened and its
// ownership and mode re-validated on every call, not only at
// Initialize. If caller.Release is non-nil the lease
// is handed off as the externally-released variant; otherwise it is
// self-contained and is released before Perform returns.
func (p *Plugin) Perform(ctx context.Context, caller CallerInfo) (Outcome, error) {
	if p.lockHandle == nil {
		return Outcome{}, &EnvironmentError{Err: fmt.Errorf("plugin not initialized")}
	}
	if caller.Credentials == nil {
		return Outcome{}, &ConfigError{Err: fmt.Errorf("host did not supply a credential registrar")}
	}

	dir, err := lockdir.Open(p.cfg.LockPath)
	if err != nil {
		return Outcome{}, classifyEnvironmentError(err)
	}
	defer dir.Close()

	engine := p.engineFactory()
	arb := pool.New(dir, engine, p.resolver, p.excludePatterns(), p.log)

	session, err := arb.Acquire(p.cfg.Range)
	if err != nil {
		return Outcome{}, classifyAcquireError(err)
	}

	if err := caller.Credentials.Register(session.UID(), session.GID()); err != nil {
		session.Release()
		return Outcome{}, fmt.Errorf("credential registration failed: %w", err)
	}

	if caller.Release != nil {
		handle := LeaseHandle(uuid.New())
		fd, path := session.Detach()
		if err := caller.Release.RegisterRelease(handle, fd, path); err != nil {
			if f := os.NewFile(uintptr(fd), path); f != nil {
				f.Close()
			}
			return Outcome{}, fmt.Errorf("release registration failed: %w", err)
		}
		p.log.Info("lease externally released", "handle", handle.String(), "path", path)
		return Outcome{UID: session.UID(), GID: session.GID(), Handle: &handle}, nil
	}

	session.Release()
	return Outcome{UID: session.UID(), GID: session.GID()}, nil
}

// Terminate releases any resource Initialize allocated. Safe to call
// even if Initialize failed partway through.
func (p *Plugin) Terminate() error {
	if p.lockHandle == nil {
		return nil
	}
	err := p.lockHandle.Close()
	p.lockHandle = nil
	return err
}

func (p *Plugin) excludePatterns() []glob.Glob {
	if p.overlay == nil {
		return nil
	}
	return p.overlay.ExcludeAccounts
}
