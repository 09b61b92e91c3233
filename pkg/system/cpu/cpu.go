//go:build linux

package cpu

import (
	"runtime"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/procsight/procsight/pkg/system/procfs"
	"github.com/procsight/procsight/pkg/system/util"
)

// DefaultInterval is the blocking pause between the two system-wide
// samples. It is the only intentional sleep in the engine.
const DefaultInterval = 100 * time.Millisecond

// Sampler computes system-wide and per-process CPU utilization from the
// jiffy counters in the stat pseudo-files. It owns the per-PID jiffy
// caches used by the differential per-process algorithm; all cache access
// goes through one mutex so a Sampler is safe for concurrent use.
type Sampler struct {
	fs       procfs.FS
	interval time.Duration
	nproc    int

	mu        sync.Mutex
	prevProc  map[int]uint64 // utime+stime per pid
	prevTotal map[int]uint64 // total system jiffies at that pid's last sample
}

// New returns a Sampler reading from fs. A non-positive interval selects
// DefaultInterval.
func New(fs procfs.FS, interval time.Duration) *Sampler {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Sampler{
		fs:        fs,
		interval:  interval,
		nproc:     runtime.NumCPU(),
		prevProc:  make(map[int]uint64),
		prevTotal: make(map[int]uint64),
	}
}

type coreSample struct {
	total uint64
	idle  uint64
}

// coreTotals reads the per-core lines of the stat pseudo-file. For each
// core: total = sum of every time-category field, idle = idle + iowait.
func (s *Sampler) coreTotals() []coreSample {
	lines, ok := s.fs.ReadLines("stat")
	if !ok {
		return nil
	}
	var out []coreSample
	for _, line := range lines {
		if !strings.HasPrefix(line, "cpu") || strings.HasPrefix(line, "cpu ") {
			continue
		}
		fields := strings.Fields(line)
		var cs coreSample
		for i, f := range fields[1:] {
			v, err := strconv.ParseUint(f, 10, 64)
			if err != nil {
				continue
			}
			cs.total += v
			if i == 3 || i == 4 { // idle, iowait
				cs.idle += v
			}
		}
		out = append(out, cs)
	}
	return out
}

// percentFromDeltas converts two core sample sets into utilization
// percentages. A core whose total did not advance reads as 0.0 rather
// than an error; counters cannot decrease, so no-signal is the only
// sane interpretation.
func percentFromDeltas(before, after []coreSample) (float64, []float64) {
	n := len(before)
	if len(after) < n {
		n = len(after)
	}
	perCore := make([]float64, 0, n)
	for i := 0; i < n; i++ {
		dTotal := util.DeltaU64(after[i].total, before[i].total)
		dIdle := util.DeltaU64(after[i].idle, before[i].idle)
		if dTotal == 0 {
			perCore = append(perCore, 0.0)
			continue
		}
		usage := 100 * (1 - float64(dIdle)/float64(dTotal))
		perCore = append(perCore, util.RoundTo(util.ClampPercent(usage), 1))
	}
	var sum float64
	for _, p := range perCore {
		sum += p
	}
	overall := 0.0
	if len(perCore) > 0 {
		overall = util.RoundTo(sum/float64(len(perCore)), 1)
	}
	return overall, perCore
}

// SystemPercent measures system-wide utilization: one sample, a fixed
// blocking pause, a second sample. Returns the overall percentage and one
// value per logical core, each rounded to one decimal.
func (s *Sampler) SystemPercent() (float64, []float64) {
	before := s.coreTotals()
	time.Sleep(s.interval)
	after := s.coreTotals()
	return percentFromDeltas(before, after)
}

// totalJiffies sums the user, nice, system and idle fields of the
// aggregate cpu line. Unreadable or malformed input reads as 0.
func (s *Sampler) totalJiffies() uint64 {
	lines, ok := s.fs.ReadLines("stat")
	if !ok || len(lines) == 0 || !strings.HasPrefix(lines[0], "cpu ") {
		return 0
	}
	fields := strings.Fields(lines[0])
	if len(fields) < 5 {
		return 0
	}
	var total uint64
	for _, f := range fields[1:5] {
		v, err := strconv.ParseUint(f, 10, 64)
		if err != nil {
			return 0
		}
		total += v
	}
	return total
}

// processJiffies returns utime+stime for pid, 0 when unreadable.
func (s *Sampler) processJiffies(pid int) uint64 {
	content, ok := s.fs.Read(strconv.Itoa(pid), "stat")
	if !ok {
		return 0
	}
	// Everything before ") " is pid + comm; comm may contain spaces.
	i := strings.LastIndex(content, ") ")
	if i < 0 {
		return 0
	}
	fields := strings.Fields(content[i+2:])
	if len(fields) <= statSTime {
		return 0
	}
	utime, err1 := strconv.ParseUint(fields[statUTime], 10, 64)
	stime, err2 := strconv.ParseUint(fields[statSTime], 10, 64)
	if err1 != nil || err2 != nil {
		return 0
	}
	return utime + stime
}

// Field offsets relative to the token after ") " in the per-process stat
// line (state is offset 0).
const (
	statUTime = 11
	statSTime = 12
)

// ProcessPercent computes pid's share of CPU since the previous call for
// the same pid, normalized by the logical core count, clamped to [0,100]
// and rounded to two decimals.
//
// The first call for any pid only seeds the cache and returns 0.0; the
// cache is always updated after computing (or declining to compute) a
// result, so a later call measures from this instant.
func (s *Sampler) ProcessPercent(pid int) float64 {
	proc := s.processJiffies(pid)
	total := s.totalJiffies()

	s.mu.Lock()
	defer s.mu.Unlock()

	percent := 0.0
	prevProc, seenProc := s.prevProc[pid]
	prevTotal, seenTotal := s.prevTotal[pid]
	if seenProc && seenTotal {
		dProc := util.DeltaU64(proc, prevProc)
		dTotal := util.DeltaU64(total, prevTotal)
		if dTotal > 0 {
			percent = float64(dProc) / float64(dTotal) * 100 / float64(s.nproc)
			percent = util.RoundTo(util.ClampPercent(percent), 2)
		}
	}

	s.prevProc[pid] = proc
	s.prevTotal[pid] = total
	return percent
}

// Reset clears both jiffy caches.
func (s *Sampler) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prevProc = make(map[int]uint64)
	s.prevTotal = make(map[int]uint64)
}

// Reconcile drops cache entries for pids that are no longer alive. The
// list builder calls this after every enumeration pass so exited pids do
// not accumulate.
func (s *Sampler) Reconcile(live []int) {
	alive := make(map[int]struct{}, len(live))
	for _, pid := range live {
		alive[pid] = struct{}{}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for pid := range s.prevProc {
		if _, ok := alive[pid]; !ok {
			delete(s.prevProc, pid)
			delete(s.prevTotal, pid)
		}
	}
}
