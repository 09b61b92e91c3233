//go:build linux

package process

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sys/unix"

	"github.com/procsight/procsight/pkg/system/mem"
	"github.com/procsight/procsight/pkg/system/procfs"
	"github.com/procsight/procsight/pkg/system/util"
)

// DefaultPasswd is the system account database used to map owner ids to
// names.
const DefaultPasswd = "/etc/passwd"

// UnknownOwner is reported when the owning account cannot be resolved.
const UnknownOwner = "?"

// Command-line placeholders for the unreadable cases. Distinct strings so
// the display can tell a vanished process from a protected one.
const (
	cmdNotFound   = "[pid not found]"
	cmdPermission = "[permission denied]"
	cmdReadError  = "[unreadable]"
)

// Resolver decodes per-process attributes, one pseudo-file per call.
// Every method degrades to a typed default when its source is absent or
// malformed.
type Resolver struct {
	fs     procfs.FS
	passwd string
	mem    *mem.Sampler

	clockTicks int
	pageSize   int
	now        func() time.Time
}

// NewResolver returns a Resolver reading process attributes from fs and
// account names from the passwd file (DefaultPasswd when empty).
func NewResolver(fs procfs.FS, passwd string) *Resolver {
	if passwd == "" {
		passwd = DefaultPasswd
	}
	return &Resolver{
		fs:         fs,
		passwd:     passwd,
		mem:        mem.New(fs),
		clockTicks: procfs.ClockTicks(),
		pageSize:   procfs.PageSize(),
		now:        time.Now,
	}
}

// Owner resolves the name of the account owning pid: the uid of the
// process directory, mapped through the colon-delimited account file.
// First matching uid wins.
func (r *Resolver) Owner(pid int) string {
	var st unix.Stat_t
	if err := unix.Stat(r.fs.Pid(pid), &st); err != nil {
		return UnknownOwner
	}
	return r.userName(st.Uid)
}

func (r *Resolver) userName(uid uint32) string {
	data, err := os.ReadFile(r.passwd)
	if err != nil {
		return UnknownOwner
	}
	want := strconv.FormatUint(uint64(uid), 10)
	for _, line := range strings.Split(string(data), "\n") {
		parts := strings.Split(line, ":")
		if len(parts) > 2 && parts[2] == want {
			return parts[0]
		}
	}
	return UnknownOwner
}

// VirtualSizeKB returns the process virtual memory size in KB from the
// vsize stat field (bytes in the kernel's accounting).
func (r *Resolver) VirtualSizeKB(pid int) uint64 {
	fields, err := statFields(r.fs, pid)
	if err != nil {
		return 0
	}
	vsz, ok := uintField(fields, fieldVSize)
	if !ok {
		return 0
	}
	return vsz / 1024
}

// ResidentSizeKB returns the resident set size in KB: the page count from
// the statm summary multiplied by the system page size.
func (r *Resolver) ResidentSizeKB(pid int) uint64 {
	s, ok := r.fs.Read(strconv.Itoa(pid), "statm")
	if !ok {
		return 0
	}
	fields := strings.Fields(s)
	if len(fields) < 2 {
		return 0
	}
	pages, err := strconv.ParseUint(fields[1], 10, 64)
	if err != nil {
		return 0
	}
	return pages * uint64(r.pageSize) / 1024
}

// MemPercent returns the process RSS as a share of total system memory,
// rounded to two decimals. 0 when MemTotal is unreadable or zero.
func (r *Resolver) MemPercent(pid int) float64 {
	totalKB := r.mem.TotalKB()
	if totalKB == 0 {
		return 0
	}
	pct := float64(r.ResidentSizeKB(pid)) / float64(totalKB) * 100
	return util.RoundTo(util.ClampPercent(pct), 2)
}

// Terminal returns the controlling terminal name decoded from the packed
// device number in the stat line.
func (r *Resolver) Terminal(pid int) string {
	fields, err := statFields(r.fs, pid)
	if err != nil {
		return DefaultTTY
	}
	nr, ok := intField(fields, fieldTTYNr)
	if !ok {
		return DefaultTTY
	}
	return TTYName(nr)
}

// Nice returns the scheduling nice value, 0 on any failure.
func (r *Resolver) Nice(pid int) int {
	fields, err := statFields(r.fs, pid)
	if err != nil {
		return 0
	}
	n, ok := intField(fields, fieldNice)
	if !ok {
		return 0
	}
	return int(n)
}

// StartTime converts the "ticks since boot" start field into a ps-style
// START column: "HH:MM" for processes started today, "MonDD" within the
// current year, the bare year otherwise.
func (r *Resolver) StartTime(pid int) string {
	fields, err := statFields(r.fs, pid)
	if err != nil {
		return "?"
	}
	ticks, ok := uintField(fields, fieldStartTime)
	if !ok {
		return "?"
	}
	uptime := r.fs.Uptime()
	if uptime <= 0 {
		return "?"
	}

	now := r.now()
	started := now.Add(-time.Duration((uptime - float64(ticks)/float64(r.clockTicks)) * float64(time.Second)))
	return formatStart(started, now)
}

func formatStart(started, now time.Time) string {
	sy, sm, sd := started.Date()
	ny, nm, nd := now.Date()
	switch {
	case sy == ny && sm == nm && sd == nd:
		return started.Format("15:04")
	case sy == ny:
		return started.Format("Jan02")
	default:
		return strconv.Itoa(sy)
	}
}

// CPUTime returns accumulated CPU time (user+system) as a ps-style TIME
// column: M:SS under an hour, H:MM:SS under a day, D-HH:MM:SS beyond.
func (r *Resolver) CPUTime(pid int) string {
	fields, err := statFields(r.fs, pid)
	if err != nil {
		return "0:00"
	}
	utime, ok1 := uintField(fields, fieldUTime)
	stime, ok2 := uintField(fields, fieldSTime)
	if !ok1 || !ok2 {
		return "0:00"
	}
	return formatCPUTime(int64((utime + stime) / uint64(r.clockTicks)))
}

func formatCPUTime(totalSeconds int64) string {
	days := totalSeconds / 86400
	rem := totalSeconds % 86400
	hours := rem / 3600
	rem %= 3600
	minutes := rem / 60
	seconds := rem % 60

	switch {
	case days > 0:
		return fmt.Sprintf("%d-%02d:%02d:%02d", days, hours, minutes, seconds)
	case hours > 0:
		return fmt.Sprintf("%d:%02d:%02d", hours, minutes, seconds)
	default:
		return fmt.Sprintf("%d:%02d", minutes, seconds)
	}
}

// Comm returns the short executable name, empty when unreadable.
func (r *Resolver) Comm(pid int) string {
	return comm(r.fs, pid)
}

// Command returns the command line: the null-separated argument vector
// with nulls replaced by spaces. An empty vector (kernel threads,
// zombies) falls back to the short name in brackets, or a zombie marker
// when the state says so. Unreadable sources map to distinct placeholder
// strings for diagnostic display.
func (r *Resolver) Command(pid int) string {
	raw, err := r.fs.ReadFile(strconv.Itoa(pid), "cmdline")
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return cmdNotFound
	case errors.Is(err, fs.ErrPermission):
		return cmdPermission
	case err != nil:
		return cmdReadError
	}

	cmdline := strings.TrimSpace(strings.ReplaceAll(raw, "\x00", " "))
	if cmdline != "" {
		return cmdline
	}
	return r.emptyCommandFallback(pid)
}

func (r *Resolver) emptyCommandFallback(pid int) string {
	fields, err := statFields(r.fs, pid)
	if err == nil && len(fields[fieldState]) > 0 && fields[fieldState][0] == 'Z' {
		return "[zombie]"
	}
	if name := comm(r.fs, pid); name != "" {
		return "[" + name + "]"
	}
	return cmdReadError
}
