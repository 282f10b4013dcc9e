package pluginconfig

import (
	"fmt"
	"os"

	"github.com/gobwas/glob"
	"gopkg.in/yaml.v3"
)

// OverlayError means the overlay file existed but its contents, or
// one of its glob patterns, were invalid. Fatal for the plugin
// instance, exactly like a bad -minuid.
type OverlayError struct {
	Path string
	Err  error
}

func (e *OverlayError) Error() string {
	return fmt.Sprintf("pluginconfig: overlay %s: %v", e.Path, e.Err)
}

func (e *OverlayError) Unwrap() error { return e.Err }

// LoadOverlay reads and validates the YAML policy file at path. A
// missing file is a fatal *OverlayError for the plugin instance,
// exactly like a bad -minuid; callers should only call this when an
// overlay path was actually configured.
func LoadOverlay(path string) (*Overlay, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, &OverlayError{Path: path, Err: err}
	}

	var doc overlayDoc
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, &OverlayError{Path: path, Err: err}
	}

	globs := make([]glob.Glob, 0, len(doc.ExcludeAccounts))
	for _, pattern := range doc.ExcludeAccounts {
		g, err := glob.Compile(pattern)
		if err != nil {
			return nil, &OverlayError{Path: path, Err: fmt.Errorf("exclude pattern %q: %w", pattern, err)}
		}
		globs = append(globs, g)
	}

	logLevel := doc.LogLevel
	if logLevel == "" {
		logLevel = "info"
	}

	return &Overlay{ExcludeAccounts: globs, LogLevel: logLevel}, nil
}
