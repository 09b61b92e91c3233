package process

import "errors"

var (
	// ErrMalformedStat indicates a per-process stat line without the
	// ") " comm terminator or with too few fields.
	ErrMalformedStat = errors.New("process: malformed stat line")

	// ErrInvalidSnapshot indicates a snapshot violating a record
	// invariant (negative pid, percentage outside [0,100]).
	ErrInvalidSnapshot = errors.New("process: invalid snapshot")
)
