package ancestry

import "github.com/bbockelm/lcmaps-plugins-anonymous-accounts/internal/procfs"

// Chain walks parent links in snap starting at pid, appending the
// current PID and following PID->PPID, until it reaches PID 1 or a
// parent lookup misses. The walk is defensively capped at the
// snapshot's PID count: a consistent snapshot cannot contain a cycle,
// but an implementation should not spin forever on an inconsistent one.
func Chain(snap *procfs.Snapshot, pid int) ([]int, error) {
	chain := []int{pid}
	cur := pid
	limit := snap.Len() + 1

	for cur != 1 {
		if len(chain) > limit {
			return nil, &CycleDetectedError{Origin: pid, Steps: len(chain)}
		}

		proc, ok := snap.Lookup(cur)
		if !ok {
			return nil, &BrokenChainError{PID: cur, Origin: pid}
		}
		cur = proc.PPID
		chain = append(chain, cur)
	}

	return chain, nil
}
