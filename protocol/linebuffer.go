package protocol

// Realtime command bytes (§6 "EXTERNAL INTERFACES"). These are intercepted
// out of band from the NC-program line buffer and acted on immediately,
// regardless of what line is currently being accumulated.
const (
	CmdSoftReset      byte = 0x18
	CmdStatusReport   byte = '?'
	CmdCycleStart     byte = '~'
	CmdFeedHold       byte = '!'
	CmdSafetyDoor     byte = 0x84
	CmdJogCancel      byte = 0x85
	CmdOverrideRangeLo byte = 0x90
	CmdOverrideRangeHi byte = 0x9F
)

// Feed/rapid/spindle override and coolant-toggle realtime bytes (§6). The
// table in spec.md assigns 0x90-0x97 to feed/rapid overrides and 0x99-0x9F
// to spindle overrides and coolant toggles, leaving 0x98 unassigned; that
// gap is used here for the spindle start/stop toggle, which mirrors where
// grbl itself places an otherwise-unused override byte.
const (
	CmdOverrideFeedReset        byte = 0x90
	CmdOverrideFeedCoarsePlus   byte = 0x91
	CmdOverrideFeedCoarseMinus  byte = 0x92
	CmdOverrideFeedFinePlus     byte = 0x93
	CmdOverrideFeedFineMinus    byte = 0x94
	CmdOverrideRapidFull        byte = 0x95
	CmdOverrideRapidMedium      byte = 0x96
	CmdOverrideRapidLow         byte = 0x97
	CmdOverrideSpindleStop      byte = 0x98
	CmdOverrideSpindleReset     byte = 0x99
	CmdOverrideSpindleCoarsePlus  byte = 0x9A
	CmdOverrideSpindleCoarseMinus byte = 0x9B
	CmdOverrideSpindleFinePlus    byte = 0x9C
	CmdOverrideSpindleFineMinus   byte = 0x9D
	CmdOverrideCoolantFlood    byte = 0x9E
	CmdOverrideCoolantMist     byte = 0x9F
)

// IsRealtimeByte reports whether b is intercepted out of band rather than
// accumulated into the NC-program line buffer.
func IsRealtimeByte(b byte) bool {
	switch b {
	case CmdSoftReset, CmdStatusReport, CmdCycleStart, CmdFeedHold, CmdSafetyDoor, CmdJogCancel:
		return true
	}
	return b >= CmdOverrideRangeLo && b <= CmdOverrideRangeHi
}

// LineBuffer accumulates non-realtime bytes into one NC-program line at a
// time, up to LineMax, dispatching on '\n' or '\r'.
type LineBuffer struct {
	buf      [LineMax]byte
	n        int
	overflow bool
}

// PushByte feeds one non-realtime byte in. When b completes a line (LF or
// CR), it returns the accumulated line (sans terminator) and ready=true,
// resetting the buffer for the next line. Overflow discards excess bytes
// rather than growing or corrupting the buffer; the caller should surface
// it as a line-overflow error once the line completes.
func (l *LineBuffer) PushByte(b byte) (line []byte, ready bool) {
	if b == '\n' || b == '\r' {
		if l.n == 0 && !l.overflow {
			return nil, false
		}
		out := make([]byte, l.n)
		copy(out, l.buf[:l.n])
		l.n = 0
		l.overflow = false
		return out, true
	}
	if l.n >= len(l.buf) {
		l.overflow = true
		return nil, false
	}
	l.buf[l.n] = b
	l.n++
	return nil, false
}

// Overflow reports whether the line in progress has exceeded LineMax.
func (l *LineBuffer) Overflow() bool { return l.overflow }

// Reset discards any partially accumulated line.
func (l *LineBuffer) Reset() {
	l.n = 0
	l.overflow = false
}
