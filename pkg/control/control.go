//go:build linux

package control

import (
	"fmt"
	"os"
	"sync"
	"time"

	"golang.org/x/sys/unix"

	"github.com/procsight/procsight/pkg/process"
)

// killDelay is the pause between the graceful-termination signal and the
// liveness probe that decides whether to escalate to a forceful kill.
const killDelay = 100 * time.Millisecond

// confirmWindow bounds how long a parked critical-process terminate stays
// confirmable. A stale pending kill must not fire minutes later.
const confirmWindow = 30 * time.Second

// Nice value bounds, highest priority to lowest.
const (
	NiceMin = -20
	NiceMax = 19
)

// Controller performs guarded process-control operations. Guard
// violations come back as the sentinel errors in errs.go before any
// syscall is attempted; OS failures are wrapped into displayable errors.
// The critical-process confirmation is a small state machine: idle, or
// awaiting confirmation for exactly one pid.
type Controller struct {
	policy Policy
	self   int

	mu        sync.Mutex
	pendingID int
	pendingAt time.Time

	// Syscalls and attribute lookups as fields so tests never signal
	// real processes.
	kill        func(pid int, sig unix.Signal) error
	setpriority func(pid, nice int) error
	state       func(pid int) byte
	command     func(pid int) string
	nice        func(pid int) int
	euid        func() int
	sleep       func(time.Duration)
}

// New wires a Controller over the given builder's decoders, guarding
// with the given policy.
func New(b *process.Builder, policy Policy) *Controller {
	return &Controller{
		policy:      policy,
		self:        os.Getpid(),
		kill:        func(pid int, sig unix.Signal) error { return unix.Kill(pid, sig) },
		setpriority: func(pid, nice int) error { return unix.Setpriority(unix.PRIO_PROCESS, pid, nice) },
		state:       b.Stat().StateChar,
		command:     b.Resolver().Command,
		nice:        b.Resolver().Nice,
		euid:        os.Geteuid,
		sleep:       time.Sleep,
	}
}

// Pending reports the pid awaiting terminate confirmation, if any.
func (c *Controller) Pending() (int, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.pendingID == 0 || time.Since(c.pendingAt) > confirmWindow {
		return 0, false
	}
	return c.pendingID, true
}

// Cancel drops a parked critical-process terminate.
func (c *Controller) Cancel() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pendingID = 0
}

// Terminate ends a process: graceful-termination signal, a short pause,
// a zero-effect liveness probe, then a forceful kill if still alive.
//
// A critical target (policy match or pid 1) is not killed on the first
// call: the request is parked and ErrConfirmRequired returned; repeating
// the call for the same pid within the confirmation window executes it.
func (c *Controller) Terminate(pid int) error {
	if pid == c.self {
		return ErrSelf
	}
	if c.state(pid) == 'Z' {
		return ErrAlreadyDead
	}
	if c.policy.Critical(pid, c.command(pid)) && !c.confirmed(pid) {
		return ErrConfirmRequired
	}

	if err := c.kill(pid, unix.SIGTERM); err != nil {
		return fmt.Errorf("terminate pid %d: %w", pid, err)
	}
	c.sleep(killDelay)
	// Probe with the null signal; escalation failures are moot (the
	// process either died meanwhile or we lack permission either way).
	if c.kill(pid, 0) == nil {
		_ = c.kill(pid, unix.SIGKILL)
	}
	return nil
}

// confirmed consumes a matching pending confirmation, or parks pid.
func (c *Controller) confirmed(pid int) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.pendingID == pid && time.Since(c.pendingAt) <= confirmWindow {
		c.pendingID = 0
		return true
	}
	c.pendingID = pid
	c.pendingAt = time.Now()
	return false
}

// Suspend stops a process with the stop signal.
func (c *Controller) Suspend(pid int) error {
	if pid == c.self {
		return ErrSelf
	}
	switch c.state(pid) {
	case 'Z':
		return ErrAlreadyDead
	case 'T', 't':
		return ErrAlreadyStopped
	}
	if c.policy.Critical(pid, c.command(pid)) {
		return ErrCritical
	}
	if err := c.kill(pid, unix.SIGSTOP); err != nil {
		return fmt.Errorf("suspend pid %d: %w", pid, err)
	}
	return nil
}

// Resume continues a stopped process.
func (c *Controller) Resume(pid int) error {
	if pid == c.self {
		return ErrSelf
	}
	switch c.state(pid) {
	case 'Z':
		return ErrAlreadyDead
	case 'T', 't':
	default:
		return ErrNotStopped
	}
	if err := c.kill(pid, unix.SIGCONT); err != nil {
		return fmt.Errorf("resume pid %d: %w", pid, err)
	}
	return nil
}

// Reprioritize adjusts a process's nice value. Values outside
// [NiceMin, NiceMax] are rejected before any syscall, as is lowering the
// nice value (raising priority) without elevated privilege — the kernel
// would refuse anyway, but the refusal here is a clear, displayable
// reason instead of an EACCES.
func (c *Controller) Reprioritize(pid, value int) error {
	if value < NiceMin || value > NiceMax {
		return ErrNiceRange
	}
	if c.state(pid) == 'Z' {
		return ErrAlreadyDead
	}
	if value < c.nice(pid) && c.euid() != 0 {
		return ErrNicePermission
	}
	if err := c.setpriority(pid, value); err != nil {
		return fmt.Errorf("renice pid %d: %w", pid, err)
	}
	return nil
}

// CurrentNice reports a process's current nice value from its stat line.
func (c *Controller) CurrentNice(pid int) int {
	return c.nice(pid)
}
