//go:build linux

package procfs

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"unicode/utf8"
)

// FS is a handle to a proc pseudo-filesystem mount. The zero value is not
// usable; construct with New. Every reader in this module takes an FS so
// tests can point at a fixture tree instead of the live /proc.
type FS struct {
	root string
}

// DefaultRoot is the canonical proc mount point.
const DefaultRoot = "/proc"

// New returns an FS rooted at the given mount point. An empty root selects
// DefaultRoot.
func New(root string) FS {
	if root == "" {
		root = DefaultRoot
	}
	return FS{root: root}
}

// Root returns the mount point this FS reads from.
func (fs FS) Root() string { return fs.root }

// Path joins path elements under the mount point.
func (fs FS) Path(elem ...string) string {
	return filepath.Join(append([]string{fs.root}, elem...)...)
}

// Pid joins path elements under the per-process directory for pid.
func (fs FS) Pid(pid int, elem ...string) string {
	return fs.Path(append([]string{strconv.Itoa(pid)}, elem...)...)
}

// ReadFile performs a single open/read-to-EOF/close of a pseudo-file and
// returns its contents. Invalid UTF-8 sequences are replaced rather than
// rejected; proc files occasionally carry raw bytes (cmdline, comm of
// processes with odd names). The error is preserved so callers that need
// to distinguish not-found from permission-denied can classify it.
func (fs FS) ReadFile(elem ...string) (string, error) {
	b, err := os.ReadFile(fs.Path(elem...))
	if err != nil {
		return "", err
	}
	s := string(b)
	if !utf8.ValidString(s) {
		s = strings.ToValidUTF8(s, "�")
	}
	return s, nil
}

// Read is the absent-value form of ReadFile: the boolean reports whether
// the file could be read at all. Downstream decoders treat false as
// "unknown", never as a program error.
func (fs FS) Read(elem ...string) (string, bool) {
	s, err := fs.ReadFile(elem...)
	return s, err == nil
}

// ReadLines reads a pseudo-file and splits it into lines.
func (fs FS) ReadLines(elem ...string) ([]string, bool) {
	s, ok := fs.Read(elem...)
	if !ok {
		return nil, false
	}
	return strings.Split(strings.TrimRight(s, "\n"), "\n"), true
}

// Exists reports whether pid currently has a directory under the mount.
func (fs FS) Exists(pid int) bool {
	_, err := os.Stat(fs.Path(strconv.Itoa(pid)))
	return err == nil
}

// Pids enumerates the numeric entries under the mount point in directory
// order. A mount that cannot be listed yields an empty slice.
func (fs FS) Pids() []int {
	entries, err := os.ReadDir(fs.root)
	if err != nil {
		return nil
	}
	pids := make([]int, 0, len(entries))
	for _, e := range entries {
		pid, err := strconv.Atoi(e.Name())
		if err != nil || pid < 0 {
			continue
		}
		pids = append(pids, pid)
	}
	return pids
}

// Uptime returns the system uptime in seconds from the uptime pseudo-file,
// or 0 when it cannot be read.
func (fs FS) Uptime() float64 {
	s, ok := fs.Read("uptime")
	if !ok {
		return 0
	}
	f := strings.Fields(s)
	if len(f) == 0 {
		return 0
	}
	up, err := strconv.ParseFloat(f[0], 64)
	if err != nil {
		return 0
	}
	return up
}

// ClockTicks returns the number of jiffies (clock ticks) per second.
// It first checks the env var CLK_TCK (useful for testing), otherwise
// falls back to 100 (common default).
//
// Note: On real systems, the authoritative way is `sysconf(_SC_CLK_TCK)`,
// but calling that requires cgo. For portability in a pure-Go module,
// this simplified approach is acceptable.
func ClockTicks() int {
	v, _ := strconv.Atoi(os.Getenv("CLK_TCK"))
	if v > 0 {
		return v
	}
	return 100
}

// PageSize returns the system memory page size in bytes.
// Like ClockTicks, it first checks an env override (PAGE_SIZE)
// to ease testing, then falls back to os.Getpagesize().
func PageSize() int {
	if ps := os.Getenv("PAGE_SIZE"); ps != "" {
		if v, _ := strconv.Atoi(ps); v > 0 {
			return v
		}
	}
	return os.Getpagesize()
}
