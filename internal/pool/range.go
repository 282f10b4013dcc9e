package pool

import "fmt"

// Range is an inclusive band of UIDs to try, in ascending order.
type Range struct {
	Min int
	Max int
}

// Validate rejects an empty or inverted range.
func (r Range) Validate() error {
	if r.Min > r.Max {
		return fmt.Errorf("pool: range [%d, %d] is empty or inverted", r.Min, r.Max)
	}
	return nil
}
