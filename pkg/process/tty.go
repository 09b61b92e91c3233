//go:build linux

package process

import "strconv"

// DefaultTTY is reported for processes without a controlling terminal or
// with a device number this decoder does not recognize.
const DefaultTTY = "?"

// Character device majors for virtual consoles and pseudo-terminals.
const (
	majorVirtualConsole = 4
	majorPTS            = 136
)

// TTYName decodes the packed terminal device number from the stat line
// into a name. The minor number is split across the low byte and the
// high bits above the 12-bit major:
//
//	major = (nr >> 8) & 0xFFF
//	minor = (nr & 0xFF) | ((nr >> 12) & 0xFFF00)
func TTYName(nr int64) string {
	if nr <= 0 {
		return DefaultTTY
	}
	major := (nr >> 8) & 0xFFF
	minor := (nr & 0xFF) | ((nr >> 12) & 0xFFF00)

	switch major {
	case majorVirtualConsole:
		return "tty" + strconv.FormatInt(minor, 10)
	case majorPTS:
		return "pts/" + strconv.FormatInt(minor, 10)
	default:
		return DefaultTTY
	}
}
