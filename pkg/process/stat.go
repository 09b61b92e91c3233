//go:build linux

package process

import (
	"sync"

	"golang.org/x/sys/unix"

	"github.com/procsight/procsight/pkg/system/procfs"
)

// DefaultStat is reported when the state cannot be read or the kernel
// reports a code this decoder does not know.
const DefaultStat = "?"

// Kernel process state codes, as reported in the stat line.
var stateCodes = map[byte]bool{
	'R': true, // running
	'S': true, // sleeping
	'D': true, // uninterruptible disk sleep
	'Z': true, // zombie
	'T': true, // stopped
	't': true, // tracing stop
	'X': true, // dead
	'x': true, // dead (should not appear normally)
	'K': true, // wakekill
	'W': true, // waking
	'I': true, // idle kernel thread
}

var stateNames = map[byte]string{
	'R': "Running",
	'S': "Sleeping",
	'D': "Disk Sleep",
	'Z': "Zombie",
	'T': "Stopped",
	't': "Tracing Stop",
	'X': "Dead",
	'x': "Dead",
	'K': "Wakekill",
	'W': "Waking",
	'I': "Idle",
}

// Flag characters appended after the base state, in fixed order.
const (
	flagSessionLeader = "s"
	flagHighPriority  = "<"
	flagLowPriority   = "N"
	flagLocked        = "L"
	flagMultiThreaded = "l"
	flagForeground    = "+"
)

// Decoder composes ps-style STAT strings: one base state character plus
// derived flags. It owns a per-pid cache of prior composites, reused for
// states that rarely need a fresh flag recomputation; the foreground flag
// in particular opens the terminal device and queries its process group,
// which is expensive next to a stat read.
type Decoder struct {
	fs procfs.FS

	mu    sync.Mutex
	cache map[int]string

	// fgGroup queries the foreground process group of a terminal
	// device path. Replaced in tests; opening real tty devices needs
	// a controlling terminal.
	fgGroup func(tty string) (int, error)
}

// NewDecoder returns a Decoder reading from fs.
func NewDecoder(fs procfs.FS) *Decoder {
	return &Decoder{
		fs:      fs,
		cache:   make(map[int]string),
		fgGroup: foregroundGroup,
	}
}

// foregroundGroup opens the terminal read-only and asks for its
// foreground process group.
func foregroundGroup(tty string) (int, error) {
	fd, err := unix.Open(tty, unix.O_RDONLY|unix.O_NOCTTY, 0)
	if err != nil {
		return 0, err
	}
	defer unix.Close(fd)
	return unix.IoctlGetInt(fd, unix.TIOCGPGRP)
}

// StateChar returns the live base state character for pid, '?' when the
// stat line cannot be read.
func (d *Decoder) StateChar(pid int) byte {
	fields, err := statFields(d.fs, pid)
	if err != nil || len(fields[fieldState]) == 0 {
		return '?'
	}
	c := fields[fieldState][0]
	if !stateCodes[c] {
		return '?'
	}
	return c
}

// Compose returns the composite STAT string for pid.
//
// Cache shortcut: sleeping, disk-wait and zombie processes keep their
// prior flags and only the base character is substituted. Anything else
// recomputes every flag; the foreground flag is evaluated only for the
// Running state.
func (d *Decoder) Compose(pid int) string {
	fields, err := statFields(d.fs, pid)
	if err != nil {
		return DefaultStat
	}

	base := DefaultStat
	if len(fields[fieldState]) > 0 && stateCodes[fields[fieldState][0]] {
		base = fields[fieldState][:1]
	}

	if base == "S" || base == "D" || base == "Z" {
		d.mu.Lock()
		cached, ok := d.cache[pid]
		d.mu.Unlock()
		if ok {
			return base + cached[1:]
		}
	}

	stat := base +
		d.sessionLeaderFlag(fields, pid) +
		priorityFlag(fields) +
		lockedFlag(fields) +
		multiThreadedFlag(fields)
	if base == "R" {
		stat += d.foregroundFlag(fields)
	}

	d.mu.Lock()
	d.cache[pid] = stat
	d.mu.Unlock()
	return stat
}

// StateName maps a composite STAT string to a display name.
func StateName(stat string) string {
	if stat == "" {
		return "Unknown"
	}
	if name, ok := stateNames[stat[0]]; ok {
		return name
	}
	return "Unknown"
}

func (d *Decoder) sessionLeaderFlag(fields []string, pid int) string {
	sid, ok := intField(fields, fieldSession)
	if ok && sid == int64(pid) {
		return flagSessionLeader
	}
	return ""
}

func priorityFlag(fields []string) string {
	nice, ok := intField(fields, fieldNice)
	if !ok {
		return ""
	}
	switch {
	case nice < 0:
		return flagHighPriority
	case nice > 0:
		return flagLowPriority
	default:
		return ""
	}
}

func lockedFlag(fields []string) string {
	locked, ok := intField(fields, fieldLocked)
	if ok && locked > 0 {
		return flagLocked
	}
	return ""
}

func multiThreadedFlag(fields []string) string {
	threads, ok := intField(fields, fieldNumThreads)
	if ok && threads > 1 {
		return flagMultiThreaded
	}
	return ""
}

// foregroundFlag reports whether the process group owns the foreground of
// its controlling terminal. Evaluated only for Running processes; any
// failure (no terminal, inaccessible device) yields no flag.
func (d *Decoder) foregroundFlag(fields []string) string {
	nr, ok := intField(fields, fieldTTYNr)
	if !ok || nr <= 0 {
		return ""
	}
	name := TTYName(nr)
	if name == DefaultTTY {
		return ""
	}
	fg, err := d.fgGroup("/dev/" + name)
	if err != nil {
		return ""
	}
	pgrp, ok := intField(fields, fieldPGrp)
	if ok && int64(fg) == pgrp {
		return flagForeground
	}
	return ""
}

// Reset clears the composite cache.
func (d *Decoder) Reset() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.cache = make(map[int]string)
}

// Reconcile drops cached composites for pids no longer alive.
func (d *Decoder) Reconcile(live []int) {
	alive := make(map[int]struct{}, len(live))
	for _, pid := range live {
		alive[pid] = struct{}{}
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	for pid := range d.cache {
		if _, ok := alive[pid]; !ok {
			delete(d.cache, pid)
		}
	}
}
