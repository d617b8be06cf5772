package realtime

import (
	"fmt"
	"strings"

	"gogrbl/protocol"
)

// Report builds one '<...>' real-time status frame (§4.4 "status_report"),
// bounded by protocol.MessageMax. Only the machine position (MPos) is
// reported; the frame carries no WPos or WCO field.
func (sv *Supervisor) Report() string {
	var b strings.Builder
	b.WriteByte('<')
	b.WriteString(sv.Sys.State().String())

	pos := sv.Step.SysPositionSteps()
	b.WriteString("|MPos:")
	for i, s := range pos {
		if i > 0 {
			b.WriteByte(',')
		}
		mm := float64(s) / sv.cfg.Axes[i].StepsPerMM
		fmt.Fprintf(&b, "%.3f", mm)
	}

	fmt.Fprintf(&b, "|FS:%.0f,%.0f", sv.Prep.CurrentRate(), sv.Prep.CurrentSpindleSpeed())

	fmt.Fprintf(&b, "|Ov:%d,%d,%d", sv.Sys.FeedOverride(), sv.Sys.RapidOverride(), sv.Sys.SpindleOverride())

	if a := sv.Sys.Alarm(); a != AlarmNone {
		fmt.Fprintf(&b, "|A:%d", a)
	}

	b.WriteByte('>')
	out := b.String()
	if len(out) > protocol.MessageMax {
		out = out[:protocol.MessageMax]
	}
	return out
}

// VersionFrame builds the '[VER:...]' startup banner line.
func VersionFrame() string {
	return "[VER:" + protocol.Version + ":gogrbl]"
}

// MessageFrame wraps text in the '[MSG:...]' frame used for non-report
// informational lines.
func MessageFrame(text string) string {
	return "[MSG:" + text + "]"
}

// AlarmFrame builds the 'ALARM:<code>' line sent once when a.SetAlarm
// latches a new code.
func AlarmFrame(code AlarmCode) string {
	return fmt.Sprintf("ALARM:%d", code)
}
