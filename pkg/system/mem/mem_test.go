//go:build linux

package mem

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/procsight/procsight/pkg/system/procfs"
	"github.com/procsight/procsight/pkg/types"
)

func newFixture(t *testing.T, meminfo, vmstat string) *Sampler {
	t.Helper()
	root := t.TempDir()
	if meminfo != "" {
		require.NoError(t, os.WriteFile(filepath.Join(root, "meminfo"), []byte(meminfo), 0o644))
	}
	if vmstat != "" {
		require.NoError(t, os.WriteFile(filepath.Join(root, "vmstat"), []byte(vmstat), 0o644))
	}
	return New(procfs.New(root))
}

const sampleMeminfo = `MemTotal:        8000 kB
MemFree:         2000 kB
MemAvailable:    4000 kB
Buffers:          500 kB
Cached:          1000 kB
SReclaimable:     250 kB
Shmem:            100 kB
Active:          3000 kB
Inactive:        1500 kB
Slab:             400 kB
SwapTotal:       1000 kB
SwapFree:         750 kB
`

func TestVirtualMemory(t *testing.T) {
	t.Run("fields_converted_to_bytes", func(t *testing.T) {
		s := newFixture(t, sampleMeminfo, "")
		vm := s.VirtualMemory()

		assert.Equal(t, types.Bytes(8000*1024), vm.Total)
		assert.Equal(t, types.Bytes(4000*1024), vm.Available)
		assert.Equal(t, types.Bytes(4000*1024), vm.Used)
		assert.Equal(t, types.Bytes(2000*1024), vm.Free)
		assert.Equal(t, types.Bytes(500*1024), vm.Buffers)
		assert.Equal(t, types.Bytes(1000*1024), vm.Cached)
		assert.Equal(t, types.Bytes(100*1024), vm.Shared)
		assert.Equal(t, types.Bytes(3000*1024), vm.Active)
		assert.Equal(t, types.Bytes(1500*1024), vm.Inactive)
		assert.Equal(t, types.Bytes(400*1024), vm.Slab)
		assert.InDelta(t, 50.0, vm.Percent, 1e-9)
	})

	t.Run("available_fallback_without_memavailable", func(t *testing.T) {
		s := newFixture(t, "MemTotal: 8000 kB\nMemFree: 2000 kB\nBuffers: 500 kB\nCached: 1000 kB\nSReclaimable: 250 kB\n", "")
		vm := s.VirtualMemory()
		assert.Equal(t, types.Bytes(3750*1024), vm.Available)
	})

	t.Run("zero_total_has_zero_percent", func(t *testing.T) {
		s := newFixture(t, "MemTotal: 0 kB\nMemFree: 0 kB\n", "")
		vm := s.VirtualMemory()
		assert.Equal(t, 0.0, vm.Percent)
	})

	t.Run("missing_meminfo_is_zeroed", func(t *testing.T) {
		s := newFixture(t, "", "")
		vm := s.VirtualMemory()
		assert.Equal(t, VirtualStats{}, vm)
	})

	t.Run("malformed_lines_skipped", func(t *testing.T) {
		s := newFixture(t, "garbage line\nMemTotal: abc kB\nMemFree: 100 kB\n", "")
		vm := s.VirtualMemory()
		assert.Equal(t, types.Bytes(0), vm.Total)
		assert.Equal(t, types.Bytes(100*1024), vm.Free)
	})
}

func TestSwapMemory(t *testing.T) {
	t.Run("usage_and_io", func(t *testing.T) {
		s := newFixture(t, sampleMeminfo, "pswpin 3\npswpout 5\n")
		sw := s.SwapMemory()

		assert.Equal(t, types.Bytes(1000*1024), sw.Total)
		assert.Equal(t, types.Bytes(750*1024), sw.Free)
		assert.Equal(t, types.Bytes(250*1024), sw.Used)
		assert.InDelta(t, 25.0, sw.Percent, 1e-9)
		assert.Equal(t, types.Bytes(3*4096), sw.In)
		assert.Equal(t, types.Bytes(5*4096), sw.Out)
	})

	t.Run("zero_total_has_zero_percent", func(t *testing.T) {
		s := newFixture(t, "SwapTotal: 0 kB\nSwapFree: 0 kB\n", "")
		sw := s.SwapMemory()
		assert.Equal(t, 0.0, sw.Percent)
	})

	t.Run("missing_vmstat_keeps_zero_io", func(t *testing.T) {
		s := newFixture(t, sampleMeminfo, "")
		sw := s.SwapMemory()
		assert.Equal(t, types.Bytes(0), sw.In)
		assert.Equal(t, types.Bytes(0), sw.Out)
	})
}

func TestTotalKB(t *testing.T) {
	s := newFixture(t, sampleMeminfo, "")
	assert.Equal(t, uint64(8000), s.TotalKB())

	assert.Zero(t, newFixture(t, "", "").TotalKB())
}
