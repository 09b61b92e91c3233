//go:build linux

package mem

import (
	"strconv"
	"strings"

	"github.com/procsight/procsight/pkg/system/procfs"
	"github.com/procsight/procsight/pkg/system/util"
	"github.com/procsight/procsight/pkg/types"
)

// swapPageSize converts the vmstat swap counters (pages) to bytes.
const swapPageSize = 4096

// VirtualStats is a point-in-time snapshot of system virtual memory,
// computed fresh on every call; nothing is cached.
type VirtualStats struct {
	Total     types.Bytes
	Available types.Bytes
	Percent   float64
	Used      types.Bytes
	Free      types.Bytes
	Active    types.Bytes
	Inactive  types.Bytes
	Buffers   types.Bytes
	Cached    types.Bytes
	Shared    types.Bytes
	Slab      types.Bytes
}

// SwapStats is a point-in-time snapshot of swap usage and swap I/O.
type SwapStats struct {
	Total   types.Bytes
	Used    types.Bytes
	Free    types.Bytes
	Percent float64
	In      types.Bytes // pages swapped in, as bytes
	Out     types.Bytes // pages swapped out, as bytes
}

// Sampler reads the meminfo and vmstat pseudo-files. Missing or malformed
// data yields zeroed structures, never an error.
type Sampler struct {
	fs procfs.FS
}

// New returns a Sampler reading from fs.
func New(fs procfs.FS) *Sampler {
	return &Sampler{fs: fs}
}

// parseMeminfo maps each "Label:  <int> kB" line to a byte count.
func (s *Sampler) parseMeminfo() map[string]types.Bytes {
	lines, ok := s.fs.ReadLines("meminfo")
	if !ok {
		return nil
	}
	info := make(map[string]types.Bytes, len(lines))
	for _, line := range lines {
		key, rest, found := strings.Cut(line, ":")
		if !found {
			continue
		}
		fields := strings.Fields(rest)
		if len(fields) == 0 {
			continue
		}
		v, err := strconv.ParseUint(fields[0], 10, 64)
		if err != nil {
			continue
		}
		info[key] = types.Bytes(v * 1024)
	}
	return info
}

// VirtualMemory computes virtual memory statistics. Available prefers the
// kernel's MemAvailable estimate and falls back to
// free+buffers+cached+reclaimable when absent (older kernels).
func (s *Sampler) VirtualMemory() VirtualStats {
	info := s.parseMeminfo()

	total := info["MemTotal"]
	free := info["MemFree"]
	buffers := info["Buffers"]
	cached := info["Cached"]

	available, ok := info["MemAvailable"]
	if !ok {
		available = free + buffers + cached + info["SReclaimable"]
	}
	used := types.Bytes(0)
	if total > available {
		used = total - available
	}

	return VirtualStats{
		Total:     total,
		Available: available,
		Percent:   usagePercent(used, total),
		Used:      used,
		Free:      free,
		Active:    info["Active"],
		Inactive:  info["Inactive"],
		Buffers:   buffers,
		Cached:    cached,
		Shared:    info["Shmem"],
		Slab:      info["Slab"],
	}
}

// SwapMemory computes swap statistics. The swap-in/out counters come from
// the vmstat pseudo-file and are page counts, converted here to bytes.
func (s *Sampler) SwapMemory() SwapStats {
	info := s.parseMeminfo()

	total := info["SwapTotal"]
	free := info["SwapFree"]
	used := types.Bytes(0)
	if total > free {
		used = total - free
	}

	st := SwapStats{
		Total:   total,
		Used:    used,
		Free:    free,
		Percent: usagePercent(used, total),
	}

	lines, ok := s.fs.ReadLines("vmstat")
	if !ok {
		return st
	}
	for _, line := range lines {
		fields := strings.Fields(line)
		if len(fields) < 2 {
			continue
		}
		v, err := strconv.ParseUint(fields[1], 10, 64)
		if err != nil {
			continue
		}
		switch fields[0] {
		case "pswpin":
			st.In = types.Bytes(v * swapPageSize)
		case "pswpout":
			st.Out = types.Bytes(v * swapPageSize)
		}
	}
	return st
}

// TotalKB returns MemTotal in kilobytes, the denominator for per-process
// memory percentages. 0 when meminfo is unreadable.
func (s *Sampler) TotalKB() uint64 {
	return s.parseMeminfo()["MemTotal"].WholeKB()
}

func usagePercent(used, total types.Bytes) float64 {
	return util.ClampPercent(util.SafeDiv(float64(used), float64(total)) * 100)
}
