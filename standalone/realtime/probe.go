package realtime

import (
	"math"

	"gogrbl/core"
	"gogrbl/standalone"
)

// probeCycle drives one call to Probe to completion across repeated
// Supervisor.Service() ticks (§4.4 "Probe(target, parser_flags)").
type probeCycle struct {
	target  standalone.Position
	away    bool // G38.4/.5: expect the probe to de-trigger, not trigger
	noFault bool // G38.3/.5: a move that completes with no contact isn't an alarm
}

// Probe queues a straight probing move toward target, arms the stepper
// core's probe sampling, and leaves the machine in StateCycle until the
// probe triggers or the move completes without contact (§4.3 step 6,
// §4.4 "probe_fail_initial"/"probe_fail_contact"). awayFromSwitch selects
// G38.4/.5 (expect de-trigger) over G38.2/.3; noFault selects G38.3/.5,
// which tolerate the move completing with no contact.
func (sv *Supervisor) Probe(target standalone.Position, awayFromSwitch, noFault bool) bool {
	if sv.Sys.state != StateIdle {
		return false
	}
	triggered := core.MustProbe().GetState()
	expectTrigger := !awayFromSwitch
	if triggered == expectTrigger {
		// Already in the state the move is meant to detect, before the
		// move even starts.
		sv.Sys.SetAlarm(AlarmProbeFailInitial)
		sv.Sys.SetState(StateAlarm)
		return false
	}

	cur := sv.currentCartesian()
	delta := target.Sub(cur)

	var unit standalone.Position
	mm := 0.0
	for _, d := range delta {
		mm += d * d
	}
	mm = math.Sqrt(mm)
	if mm < 1e-9 {
		return false
	}
	for i := range unit {
		unit[i] = delta[i] / mm
	}

	rate, accel := sv.kin.Limits(unit)

	motor := sv.kin.ToMotor(target)
	curSteps := sv.Step.SysPositionSteps()
	var steps [standalone.NumAxis]uint32
	var dirBits uint8
	for i := 0; i < standalone.NumAxis; i++ {
		targetSteps := int32(math.Round(motor[i] * sv.cfg.Axes[i].StepsPerMM))
		d := targetSteps - curSteps[i]
		negative := d < 0
		if sv.cfg.Axes[i].InvertDir {
			negative = !negative
		}
		if negative {
			dirBits |= 1 << uint(i)
		}
		steps[i] = uint32(iabs32(d))
	}

	sv.probe = &probeCycle{target: target, away: awayFromSwitch, noFault: noFault}
	sv.Sys.SetProbeSucceeded(false)
	sv.Step.ArmProbe()
	sv.Step.OnProbeTrigger = sv.onProbeTrigger

	sv.Plan.LoadSystemMotion(unit, mm, accel, rate*rate, dirBits, steps)
	sv.Sys.SetState(StateCycle)
	sv.Step.Start()
	return true
}

func iabs32(v int32) int32 {
	if v < 0 {
		return -v
	}
	return v
}

// currentCartesian reconstructs the live Cartesian position from the
// stepper core's tracked step position.
func (sv *Supervisor) currentCartesian() standalone.Position {
	steps := sv.Step.SysPositionSteps()
	var motor standalone.Position
	for i := 0; i < standalone.NumAxis; i++ {
		motor[i] = float64(steps[i]) / sv.cfg.Axes[i].StepsPerMM
	}
	return sv.kin.ToCartesian(motor)
}

// onProbeTrigger is invoked from the stepper ISR the tick the probe input
// confirms contact (§4.3 step 6).
func (sv *Supervisor) onProbeTrigger() {
	if sv.probe == nil {
		return
	}
	sv.Sys.SetProbeSucceeded(!sv.probe.away)
	sv.Step.DisarmProbe()
	sv.Step.Stop()
	sv.Prep.Reset()
	sv.Sys.SetState(StateIdle)
	sv.probe = nil
}

// serviceProbe watches for the probing move finishing without contact,
// which is a fault for G38.2/G38.4 but not for G38.3/G38.5.
func (sv *Supervisor) serviceProbe() {
	p := sv.probe
	if p == nil {
		return
	}
	if sv.Plan.SystemMotionBlock().Live() {
		return
	}
	// The system-motion block drained with no probe trigger.
	sv.Step.DisarmProbe()
	sv.probe = nil
	if !p.noFault {
		sv.Sys.SetAlarm(AlarmProbeFailContact)
		sv.Sys.SetState(StateAlarm)
		return
	}
	sv.Sys.SetState(StateIdle)
}
