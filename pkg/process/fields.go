//go:build linux

package process

import (
	"strconv"
	"strings"

	"github.com/procsight/procsight/pkg/system/procfs"
)

// Offsets of the numeric stat fields relative to the first token after
// the ") " comm terminator. The comm field may itself contain spaces and
// parentheses, so indices are only stable after cutting at the last ") ".
const (
	fieldState      = 0
	fieldPPid       = 1
	fieldPGrp       = 2
	fieldSession    = 3
	fieldTTYNr      = 4
	fieldUTime      = 11
	fieldSTime      = 12
	fieldNice       = 16
	fieldNumThreads = 17
	fieldStartTime  = 19
	fieldVSize      = 20
	fieldRSSPages   = 21
	fieldLocked     = 34
)

// statFields reads the per-process stat line and tokenizes everything
// after the comm. The returned error is the drop signal used by the list
// builder: a pid whose stat line is gone has exited mid-enumeration.
func statFields(fs procfs.FS, pid int) ([]string, error) {
	content, err := fs.ReadFile(strconv.Itoa(pid), "stat")
	if err != nil {
		return nil, err
	}
	i := strings.LastIndex(content, ") ")
	if i < 0 {
		return nil, ErrMalformedStat
	}
	fields := strings.Fields(content[i+2:])
	if len(fields) <= fieldSTime {
		return nil, ErrMalformedStat
	}
	return fields, nil
}

// intField parses fields[idx] as int64, returning ok=false when the index
// is out of range or the token is not numeric.
func intField(fields []string, idx int) (int64, bool) {
	if idx < 0 || idx >= len(fields) {
		return 0, false
	}
	v, err := strconv.ParseInt(fields[idx], 10, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// uintField is intField for counters that cannot be negative.
func uintField(fields []string, idx int) (uint64, bool) {
	if idx < 0 || idx >= len(fields) {
		return 0, false
	}
	v, err := strconv.ParseUint(fields[idx], 10, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// comm reads the short executable name from the comm pseudo-file.
func comm(fs procfs.FS, pid int) string {
	s, ok := fs.Read(strconv.Itoa(pid), "comm")
	if !ok {
		return ""
	}
	return strings.TrimSpace(s)
}
