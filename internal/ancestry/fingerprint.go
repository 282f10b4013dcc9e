package ancestry

import (
	"fmt"
	"strconv"
	"strings"
)

// Fingerprint is the tamper-evident-only triple that identifies a
// batch job: the PID and PPID either side of its last real-UID
// transition, plus the child's start timestamp. The textual form is
// part of the on-disk contract — changing it breaks cross-version
// coexistence during rolling upgrades, so it stays exactly
// "<pid>:<ppid>:<timestamp>".
type Fingerprint struct {
	PID       int
	PPID      int
	StartTime int64
}

// String renders the fingerprint in its on-disk form.
func (f Fingerprint) String() string {
	return fmt.Sprintf("%d:%d:%d", f.PID, f.PPID, f.StartTime)
}

// Equal compares two fingerprints for exact equality of all three
// integer components.
func (f Fingerprint) Equal(other Fingerprint) bool {
	return f.PID == other.PID && f.PPID == other.PPID && f.StartTime == other.StartTime
}

// ParseFingerprint parses the first three colon-separated integers out
// of raw. Readers must tolerate empty files and files whose first
// three fields parse even if trailing bytes are present, so this
// only looks at the prefix and ignores anything after the third field.
func ParseFingerprint(raw string) (Fingerprint, error) {
	parts := strings.SplitN(raw, ":", 4)
	if len(parts) < 3 {
		return Fingerprint{}, &FingerprintParseError{Raw: raw, Err: fmt.Errorf("expected 3 colon-separated fields, got %d", len(parts))}
	}

	pid, err := strconv.Atoi(parts[0])
	if err != nil {
		return Fingerprint{}, &FingerprintParseError{Raw: raw, Err: fmt.Errorf("pid: %w", err)}
	}
	ppid, err := strconv.Atoi(parts[1])
	if err != nil {
		return Fingerprint{}, &FingerprintParseError{Raw: raw, Err: fmt.Errorf("ppid: %w", err)}
	}
	// Any fourth colon-delimited chunk lands in parts[3], but the third
	// field can still carry trailing non-colon bytes (e.g. a newline);
	// trim anything past the integer itself by parsing only the leading
	// digits.
	third := parts[2]
	end := len(third)
	for i, r := range third {
		if i == 0 && (r == '-' || r == '+') {
			continue
		}
		if r < '0' || r > '9' {
			end = i
			break
		}
	}
	ts, err := strconv.ParseInt(third[:end], 10, 64)
	if err != nil {
		return Fingerprint{}, &FingerprintParseError{Raw: raw, Err: fmt.Errorf("timestamp: %w", err)}
	}

	return Fingerprint{PID: pid, PPID: ppid, StartTime: ts}, nil
}
