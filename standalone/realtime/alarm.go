package realtime

// AlarmCode identifies why the machine entered StateAlarm (§7).
type AlarmCode uint8

const (
	AlarmNone AlarmCode = iota
	AlarmHardLimit
	AlarmSoftLimit
	AlarmHomingFailReset
	AlarmHomingFailDoor
	AlarmHomingFailPulloff
	AlarmHomingFailApproach
	AlarmAbortCycle
	AlarmProbeFailInitial
	AlarmProbeFailContact
)

func (a AlarmCode) String() string {
	switch a {
	case AlarmNone:
		return ""
	case AlarmHardLimit:
		return "Hard limit triggered"
	case AlarmSoftLimit:
		return "Soft limit alarm"
	case AlarmHomingFailReset:
		return "Homing fail, reset during cycle"
	case AlarmHomingFailDoor:
		return "Homing fail, safety door was opened"
	case AlarmHomingFailPulloff:
		return "Homing fail, pull off failed to clear limit switch"
	case AlarmHomingFailApproach:
		return "Homing fail, could not find limit switch"
	case AlarmAbortCycle:
		return "Abort during cycle"
	case AlarmProbeFailInitial:
		return "Probe fail, probe already triggered"
	case AlarmProbeFailContact:
		return "Probe fail, no contact made"
	default:
		return "Unknown alarm"
	}
}
