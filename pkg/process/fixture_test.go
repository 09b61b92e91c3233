//go:build linux

package process

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/procsight/procsight/pkg/system/procfs"
)

// statSpec describes the numeric stat fields a fixture needs; everything
// unspecified is zero.
type statSpec struct {
	state     string
	ppid      int64
	pgrp      int64
	session   int64
	ttyNr     int64
	utime     uint64
	stime     uint64
	nice      int64
	threads   int64
	startTime uint64
	vsize     uint64
	rssPages  uint64
	locked    int64
}

// line renders a stat pseudo-file line with 35 fields after the comm,
// enough to cover the highest offset the decoder reads.
func (s statSpec) line(pid int, comm string) string {
	f := make([]string, fieldLocked+1)
	for i := range f {
		f[i] = "0"
	}
	state := s.state
	if state == "" {
		state = "S"
	}
	f[fieldState] = state
	f[fieldPPid] = strconv.FormatInt(s.ppid, 10)
	f[fieldPGrp] = strconv.FormatInt(s.pgrp, 10)
	f[fieldSession] = strconv.FormatInt(s.session, 10)
	f[fieldTTYNr] = strconv.FormatInt(s.ttyNr, 10)
	f[fieldUTime] = strconv.FormatUint(s.utime, 10)
	f[fieldSTime] = strconv.FormatUint(s.stime, 10)
	f[fieldNice] = strconv.FormatInt(s.nice, 10)
	f[fieldNumThreads] = strconv.FormatInt(s.threads, 10)
	f[fieldStartTime] = strconv.FormatUint(s.startTime, 10)
	f[fieldVSize] = strconv.FormatUint(s.vsize, 10)
	f[fieldRSSPages] = strconv.FormatUint(s.rssPages, 10)
	f[fieldLocked] = strconv.FormatInt(s.locked, 10)
	return fmt.Sprintf("%d (%s) %s\n", pid, comm, strings.Join(f, " "))
}

type fixture struct {
	t    *testing.T
	root string
	fs   procfs.FS
}

func newProcFixture(t *testing.T) *fixture {
	t.Helper()
	root := t.TempDir()
	return &fixture{t: t, root: root, fs: procfs.New(root)}
}

func (f *fixture) write(rel, content string) {
	f.t.Helper()
	path := filepath.Join(f.root, rel)
	require.NoError(f.t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(f.t, os.WriteFile(path, []byte(content), 0o644))
}

func (f *fixture) writePid(pid int, name, content string) {
	f.write(filepath.Join(strconv.Itoa(pid), name), content)
}

func (f *fixture) addProcess(pid int, comm string, spec statSpec) {
	f.writePid(pid, "stat", spec.line(pid, comm))
	f.writePid(pid, "comm", comm+"\n")
}

func (f *fixture) removeProcess(pid int) {
	f.t.Helper()
	require.NoError(f.t, os.RemoveAll(filepath.Join(f.root, strconv.Itoa(pid))))
}
