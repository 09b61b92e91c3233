package control

import "errors"

// Guard violations. Each is a complete, user-displayable reason; no
// syscall is attempted when one of these is returned.
var (
	// ErrSelf indicates the target is the calling process.
	ErrSelf = errors.New("operation would affect the current process")

	// ErrAlreadyDead indicates the target is a zombie: it has exited
	// and only awaits reaping, so signals are pointless.
	ErrAlreadyDead = errors.New("process is already dead (zombie)")

	// ErrAlreadyStopped indicates a suspend on a stopped process.
	ErrAlreadyStopped = errors.New("process is already stopped")

	// ErrNotStopped indicates a resume on a process that is not stopped.
	ErrNotStopped = errors.New("process is not stopped")

	// ErrCritical indicates the target matches the critical-process
	// policy and the operation refuses to touch it.
	ErrCritical = errors.New("refusing to touch critical process")

	// ErrConfirmRequired indicates a terminate on a critical process:
	// the request is parked and must be repeated to take effect.
	ErrConfirmRequired = errors.New("critical process: confirmation required")

	// ErrNiceRange indicates a reprioritize value outside [-20, 19].
	ErrNiceRange = errors.New("nice value must be between -20 and 19")

	// ErrNicePermission indicates an attempt to raise priority (lower
	// the nice value) without sufficient privilege.
	ErrNicePermission = errors.New("raising priority requires elevated privileges")
)
