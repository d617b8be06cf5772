package realtime

import (
	"errors"

	"gogrbl/core"
	"gogrbl/standalone"
)

// CheckSoftLimits validates a commanded target against the configured
// travel envelope before it ever reaches Planner.Enqueue (§4.4 "soft limit
// checks... before every mc_line"). A violation raises AlarmSoftLimit and
// forces a reset rather than letting the motion queue.
func (sv *Supervisor) CheckSoftLimits(target standalone.Position) error {
	if err := sv.kin.CheckTravel(target); err != nil {
		sv.Sys.SetAlarm(AlarmSoftLimit)
		sv.Sys.SetExec(ExecReset)
		return errors.New("realtime: soft limit: " + err.Error())
	}
	return nil
}

// WireHardLimits registers the limit driver's change callback so a switch
// trip during normal running triggers an unconditional stop-and-alarm
// (§4.4 "hard limit handling"). It must be called once during startup,
// after the driver is configured via core.SetLimitDriver.
func (sv *Supervisor) WireHardLimits() {
	core.MustLimits().OnChange(func(state core.LimitMask) {
		sv.onHardLimit(state)
	})
}

// onHardLimit fires from the platform's pin-change interrupt. During
// homing, trips are expected and handled by serviceHoming/pollSeek instead;
// everywhere else, any trip is an unconditional fault.
func (sv *Supervisor) onHardLimit(state core.LimitMask) {
	if sv.Sys.state == StateHoming {
		return
	}
	if state == 0 {
		return
	}
	sv.Sys.SetAlarm(AlarmHardLimit)
	sv.Sys.SetExec(ExecReset)
}
