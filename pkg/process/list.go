//go:build linux

package process

import (
	"sort"
	"strings"

	"github.com/procsight/procsight/pkg/system/cpu"
	"github.com/procsight/procsight/pkg/system/procfs"
)

// Builder enumerates the proc mount and assembles one Snapshot per live
// process. It owns the CPU sampler and the STAT decoder so their per-pid
// caches survive across refresh passes and get reconciled against the
// live pid set after each pass.
type Builder struct {
	fs   procfs.FS
	res  *Resolver
	cpu  *cpu.Sampler
	stat *Decoder
}

// NewBuilder wires a Builder over fs, resolving account names from the
// passwd file (DefaultPasswd when empty).
func NewBuilder(fs procfs.FS, passwd string) *Builder {
	return &Builder{
		fs:   fs,
		res:  NewResolver(fs, passwd),
		cpu:  cpu.New(fs, 0),
		stat: NewDecoder(fs),
	}
}

// Resolver exposes the attribute resolvers for callers that need a single
// attribute outside a full pass.
func (b *Builder) Resolver() *Resolver { return b.res }

// CPU exposes the per-process CPU sampler.
func (b *Builder) CPU() *cpu.Sampler { return b.cpu }

// Stat exposes the STAT decoder.
func (b *Builder) Stat() *Decoder { return b.stat }

// Pids lists the numeric entries of the proc mount in enumeration order.
func (b *Builder) Pids() []int { return b.fs.Pids() }

// Snapshots performs one enumeration pass. A pid that vanishes between
// the directory listing and its reads is dropped silently and the pass
// continues. Output order is enumeration order; callers sort as needed.
//
// After the pass both per-pid caches are reconciled against the live pid
// set, so entries for exited processes do not accumulate.
func (b *Builder) Snapshots() []Snapshot {
	pids := b.Pids()
	out := make([]Snapshot, 0, len(pids))
	for _, pid := range pids {
		snap, err := b.build(pid)
		if err != nil {
			continue
		}
		out = append(out, snap)
	}
	b.cpu.Reconcile(pids)
	b.stat.Reconcile(pids)
	return out
}

// build assembles one snapshot. The stat line is the required read: when
// it is gone the process exited mid-pass and the record is dropped.
// Every other attribute degrades to its typed default.
func (b *Builder) build(pid int) (Snapshot, error) {
	if _, err := statFields(b.fs, pid); err != nil {
		return Snapshot{}, err
	}

	snap := Snapshot{
		Owner:      b.res.Owner(pid),
		PID:        pid,
		CPUPercent: b.cpu.ProcessPercent(pid),
		MemPercent: b.res.MemPercent(pid),
		VSZKB:      b.res.VirtualSizeKB(pid),
		RSSKB:      b.res.ResidentSizeKB(pid),
		TTY:        b.res.Terminal(pid),
		Stat:       b.stat.Compose(pid),
		Nice:       b.res.Nice(pid),
		Started:    b.res.StartTime(pid),
		CPUTime:    b.res.CPUTime(pid),
		Command:    b.res.Command(pid),
	}
	if err := snap.Validate(); err != nil {
		return Snapshot{}, err
	}
	return snap, nil
}

// Sort modes accepted by SortBy.
const (
	SortCPU     = "cpu"
	SortMem     = "mem"
	SortPID     = "pid"
	SortOwner   = "user"
	SortCommand = "command"
	SortNice    = "nice"
)

// SortBy orders snapshots in place: cpu and mem descending (the hot
// processes first), everything else ascending. Unknown modes fall back
// to cpu.
func SortBy(snaps []Snapshot, mode string) {
	less := func(i, j int) bool { return snaps[i].CPUPercent > snaps[j].CPUPercent }
	switch mode {
	case SortMem:
		less = func(i, j int) bool { return snaps[i].MemPercent > snaps[j].MemPercent }
	case SortPID:
		less = func(i, j int) bool { return snaps[i].PID < snaps[j].PID }
	case SortOwner:
		less = func(i, j int) bool { return snaps[i].Owner < snaps[j].Owner }
	case SortCommand:
		less = func(i, j int) bool {
			return strings.ToLower(snaps[i].Command) < strings.ToLower(snaps[j].Command)
		}
	case SortNice:
		less = func(i, j int) bool { return snaps[i].Nice < snaps[j].Nice }
	}
	sort.SliceStable(snaps, less)
}
