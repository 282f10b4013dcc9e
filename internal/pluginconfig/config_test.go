package pluginconfig

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_AcceptsMinimalValidFlags(t *testing.T) {
	cfg, err := Parse([]string{"-minuid", "1001", "-maxuid", "1005"})
	require.NoError(t, err)
	assert.Equal(t, 1001, cfg.Range.Min)
	assert.Equal(t, 1005, cfg.Range.Max)
	assert.Equal(t, DefaultLockPath, cfg.LockPath)
	assert.Empty(t, cfg.Warnings)
}

func TestParse_IsCaseInsensitive(t *testing.T) {
	cfg, err := Parse([]string{"-MinUID", "1001", "-MAXUID", "1005"})
	require.NoError(t, err)
	assert.Equal(t, 1001, cfg.Range.Min)
	assert.Equal(t, 1005, cfg.Range.Max)
}

func TestParse_RejectsMinUIDAtFloor(t *testing.T) {
	_, err := Parse([]string{"-minuid", "1000", "-maxuid", "1005"})
	var perr *ParseError
	assert.ErrorAs(t, err, &perr)
}

func TestParse_AcceptsMinUIDJustAboveFloor(t *testing.T) {
	cfg, err := Parse([]string{"-minuid", "1001", "-maxuid", "1001"})
	require.NoError(t, err)
	assert.Equal(t, 1001, cfg.Range.Min)
}

func TestParse_RejectsMaxBelowMin(t *testing.T) {
	_, err := Parse([]string{"-minuid", "1010", "-maxuid", "1005"})
	assert.Error(t, err)
}

func TestParse_RejectsUnknownFlag(t *testing.T) {
	_, err := Parse([]string{"-bogus", "1"})
	assert.Error(t, err)
}

func TestParse_RejectsMissingValue(t *testing.T) {
	_, err := Parse([]string{"-minuid"})
	assert.Error(t, err)
}

func TestParse_RejectsNonNumericUID(t *testing.T) {
	_, err := Parse([]string{"-minuid", "abc", "-maxuid", "1005"})
	assert.Error(t, err)
}

func TestParse_RejectsMissingRequiredFlags(t *testing.T) {
	_, err := Parse([]string{"-lockpath", "/var/lock/x"})
	assert.Error(t, err)
}

func TestParse_AcceptsCustomLockPath(t *testing.T) {
	cfg, err := Parse([]string{"-minuid", "1001", "-maxuid", "1005", "-lockpath", "/srv/lockdir"})
	require.NoError(t, err)
	assert.Equal(t, "/srv/lockdir", cfg.LockPath)
}

func TestParse_RejectsRelativeLockPath(t *testing.T) {
	_, err := Parse([]string{"-minuid", "1001", "-maxuid", "1005", "-lockpath", "relative/path"})
	assert.Error(t, err)
}

func TestParse_TrailingCharactersWarnRatherThanFail(t *testing.T) {
	cfg, err := Parse([]string{"-minuidx", "1001", "-maxuid", "1005"})
	require.NoError(t, err)
	assert.Equal(t, 1001, cfg.Range.Min)
	require.Len(t, cfg.Warnings, 1)
	assert.Contains(t, cfg.Warnings[0], "-minuidx")
}

func TestLoadOverlay_ParsesExcludeAccountsAndLogLevel(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "overlay.yaml")
	require.NoError(t, os.WriteFile(path, []byte("excludeAccounts:\n  - \"svc-*\"\nlogLevel: debug\n"), 0o644))

	ov, err := LoadOverlay(path)
	require.NoError(t, err)
	assert.Equal(t, "debug", ov.LogLevel)
	require.Len(t, ov.ExcludeAccounts, 1)
	assert.True(t, ov.ExcludeAccounts[0].Match("svc-batch"))
	assert.False(t, ov.ExcludeAccounts[0].Match("poolacct01"))
}

func TestLoadOverlay_DefaultsLogLevelWhenAbsent(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "overlay.yaml")
	require.NoError(t, os.WriteFile(path, []byte("excludeAccounts: []\n"), 0o644))

	ov, err := LoadOverlay(path)
	require.NoError(t, err)
	assert.Equal(t, "info", ov.LogLevel)
}

func TestLoadOverlay_RejectsBadGlobPattern(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "overlay.yaml")
	require.NoError(t, os.WriteFile(path, []byte("excludeAccounts:\n  - \"[\"\n"), 0o644))

	_, err := LoadOverlay(path)
	assert.Error(t, err)
}

func TestLoadOverlay_MissingFileIsError(t *testing.T) {
	_, err := LoadOverlay(filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	assert.Error(t, err)
}
