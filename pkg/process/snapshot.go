//go:build linux

package process

import "fmt"

// Snapshot is one process at one sampling instant, the ps-aux row shape.
// Records are constructed fresh on every enumeration pass, carry no
// mutable state, and are discarded at the next refresh.
type Snapshot struct {
	Owner      string
	PID        int
	CPUPercent float64
	MemPercent float64
	VSZKB      uint64
	RSSKB      uint64
	TTY        string
	Stat       string
	Nice       int
	Started    string
	CPUTime    string
	Command    string
}

// Validate enforces the record invariants: non-negative pid, percentages
// within [0,100]. The list builder drops any record that fails.
func (s Snapshot) Validate() error {
	if s.PID < 0 {
		return fmt.Errorf("%w: pid %d", ErrInvalidSnapshot, s.PID)
	}
	if s.CPUPercent < 0 || s.CPUPercent > 100 {
		return fmt.Errorf("%w: cpu percent %.2f", ErrInvalidSnapshot, s.CPUPercent)
	}
	if s.MemPercent < 0 || s.MemPercent > 100 {
		return fmt.Errorf("%w: mem percent %.2f", ErrInvalidSnapshot, s.MemPercent)
	}
	return nil
}
