// Package pluginconfig parses the plugin's command-line-style
// configuration (the `-minuid`/`-maxuid`/`-lockpath` flag pairs the
// host passes at initialization) and its optional YAML policy
// overlay.
package pluginconfig

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/gobwas/glob"
	"github.com/bbockelm/lcmaps-plugins-anonymous-accounts/internal/pool"
)

// SystemUIDFloor is the lowest UID a pool account may use. Selection
// of 1000 dates to 2012-era RHEL guidelines for the boundary between
// system and regular accounts.
const SystemUIDFloor = 1000

// DefaultLockPath is used when -lockpath is omitted.
const DefaultLockPath = "/var/lock/lcmaps-plugins-pool-accounts"

// Config is the validated result of parsing the host-supplied
// argument vector.
type Config struct {
	Range    pool.Range
	LockPath string
	// Warnings collects non-fatal deprecation notices accumulated
	// during parsing (see Parse); the caller is expected to log them.
	Warnings []string
}

// ParseError means the argument vector itself was malformed:
// an unknown flag, a missing value, a non-numeric UID, or a UID
// outside policy. It is fatal for the plugin instance.
type ParseError struct {
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("pluginconfig: %s", e.Reason)
}

// flag names this package recognizes, matched case-insensitively by
// strict equality. The original C plugin matched these with
// strncasecmp over the flag's own length, so "-minuidx" was silently
// accepted as "-minuid" plus a value; this implementation resolves
// that ambiguity toward strict equality with a deprecation warning
// rather than bug-for-bug compatibility (see DESIGN.md).
const (
	flagMinUID   = "-minuid"
	flagMaxUID   = "-maxuid"
	flagLockPath = "-lockpath"
)

// Parse walks args looking for -minuid, -maxuid, and -lockpath pairs.
func Parse(args []string) (*Config, error) {
	var (
		minUID, maxUID     = -1, -1
		haveMin, haveMax   bool
		lockPath           = DefaultLockPath
		warnings           []string
	)

	for i := 0; i < len(args); i++ {
		tok := args[i]
		name, trailing := splitFlagToken(tok)

		var matched string
		switch {
		case strings.EqualFold(name, flagMinUID):
			matched = flagMinUID
		case strings.EqualFold(name, flagMaxUID):
			matched = flagMaxUID
		case strings.EqualFold(name, flagLockPath):
			matched = flagLockPath
		default:
			return nil, &ParseError{Reason: fmt.Sprintf("unknown flag %q", tok)}
		}

		if trailing != "" {
			warnings = append(warnings, fmt.Sprintf("flag %q has trailing characters %q after %s; this will be a hard error in a future release", tok, trailing, matched))
		}

		i++
		if i >= len(args) {
			return nil, &ParseError{Reason: fmt.Sprintf("flag %s is missing its value", matched)}
		}
		value := args[i]

		switch matched {
		case flagMinUID:
			v, err := strconv.Atoi(value)
			if err != nil {
				return nil, &ParseError{Reason: fmt.Sprintf("-minuid value %q is not an integer", value)}
			}
			minUID, haveMin = v, true
		case flagMaxUID:
			v, err := strconv.Atoi(value)
			if err != nil {
				return nil, &ParseError{Reason: fmt.Sprintf("-maxuid value %q is not an integer", value)}
			}
			maxUID, haveMax = v, true
		case flagLockPath:
			if !strings.HasPrefix(value, "/") {
				return nil, &ParseError{Reason: fmt.Sprintf("-lockpath value %q is not an absolute path", value)}
			}
			lockPath = value
		}
	}

	if !haveMin {
		return nil, &ParseError{Reason: "-minuid is required"}
	}
	if !haveMax {
		return nil, &ParseError{Reason: "-maxuid is required"}
	}
	if minUID <= SystemUIDFloor {
		return nil, &ParseError{Reason: fmt.Sprintf("-minuid %d must be greater than %d", minUID, SystemUIDFloor)}
	}
	if maxUID < minUID {
		return nil, &ParseError{Reason: fmt.Sprintf("-maxuid %d must be >= -minuid %d", maxUID, minUID)}
	}

	return &Config{
		Range:    pool.Range{Min: minUID, Max: maxUID},
		LockPath: lockPath,
		Warnings: warnings,
	}, nil
}

// splitFlagToken splits a flag token into its recognized-name prefix
// and any trailing characters before end of string, so the caller can
// both match case-insensitively and detect the original plugin's
// prefix-match quirk.
func splitFlagToken(tok string) (name, trailing string) {
	candidates := []string{flagMinUID, flagMaxUID, flagLockPath}
	for _, c := range candidates {
		if len(tok) >= len(c) && strings.EqualFold(tok[:len(c)], c) {
			return c, tok[len(c):]
		}
	}
	return tok, ""
}

// Overlay is the optional YAML policy file layered on top of the
// flag-derived Config.
type Overlay struct {
	ExcludeAccounts []glob.Glob
	LogLevel        string
}

// overlayDoc is the raw YAML shape before glob compilation.
type overlayDoc struct {
	ExcludeAccounts []string `yaml:"excludeAccounts"`
	LogLevel        string   `yaml:"logLevel"`
}
