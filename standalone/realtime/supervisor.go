package realtime

import (
	"gogrbl/core"
	"gogrbl/standalone"
	"gogrbl/standalone/kinematics"
	"gogrbl/standalone/planner"
	"gogrbl/standalone/segment"
	"gogrbl/standalone/stepgen"
)

// Supervisor owns the machine-wide System state and drives the
// planner/preparer/stepper pipeline in response to realtime events (§4.4).
// It is the only thing in the controller that changes MachineState.
type Supervisor struct {
	Sys  *System
	cfg  *standalone.MachineConfig
	kin  kinematics.Kinematics
	Plan *planner.Planner
	Prep *segment.Preparer
	Step *stepgen.Core

	homing *homingCycle
	probe  *probeCycle
}

// NewSupervisor wires a fresh System to an already-constructed pipeline and
// registers the stepper core's cycle-stop/probe-trigger callbacks.
func NewSupervisor(cfg *standalone.MachineConfig, kin kinematics.Kinematics, plan *planner.Planner, prep *segment.Preparer, step *stepgen.Core) *Supervisor {
	sv := &Supervisor{
		Sys:  NewSystem(),
		cfg:  cfg,
		kin:  kin,
		Plan: plan,
		Prep: prep,
		Step: step,
	}
	step.OnCycleStop = sv.onCycleStop
	return sv
}

// Service is called once per main-loop iteration. It drains the realtime
// flag word set by ISR/byte-stream producers, runs the preparer, and applies
// any state transition the flags demand (§4.4).
func (sv *Supervisor) Service() {
	if sv.Sys.TestAndClearExec(ExecReset) {
		sv.doReset()
		return
	}

	if sv.Sys.state == StateAlarm {
		return
	}

	if sv.Sys.TestAndClearExec(ExecSafetyDoor) {
		sv.doSafetyDoor()
	}
	if sv.Sys.TestAndClearExec(ExecFeedHold) {
		sv.doFeedHold()
	}
	if sv.Sys.TestAndClearExec(ExecCycleStart) {
		sv.doCycleStart()
	}
	if sv.Sys.TestAndClearExec(ExecMotionCancel) {
		sv.doMotionCancel()
	}
	if sv.Sys.TestAndClearExec(ExecSleep) {
		sv.doSleep()
	}

	sv.applyOverrides()

	switch sv.Sys.state {
	case StateCycle, StateHold, StateHoming, StateJog, StateSafetyDoor:
		sv.Prep.Run()
		if !sv.Step.Running() {
			sv.Step.Start()
		}
	}

	if sv.Sys.state == StateHoming {
		sv.serviceHoming()
	}
	if sv.probe != nil {
		sv.serviceProbe()
	}
}

// applyOverrides drains the feed/rapid/spindle/coolant override bits and
// forwards the resulting percentages to the preparer (§4.4 "Override
// events").
func (sv *Supervisor) applyOverrides() {
	s := sv.Sys
	changed := false

	if s.TestAndClearMotionOverride(OverrideFeedReset) {
		s.feedOverride = 100
		changed = true
	}
	if s.TestAndClearMotionOverride(OverrideFeedCoarsePlus) {
		s.AdjustFeedOverride(10)
		changed = true
	}
	if s.TestAndClearMotionOverride(OverrideFeedCoarseMinus) {
		s.AdjustFeedOverride(-10)
		changed = true
	}
	if s.TestAndClearMotionOverride(OverrideFeedFinePlus) {
		s.AdjustFeedOverride(1)
		changed = true
	}
	if s.TestAndClearMotionOverride(OverrideFeedFineMinus) {
		s.AdjustFeedOverride(-1)
		changed = true
	}
	if s.TestAndClearMotionOverride(OverrideRapidFull) {
		s.SetRapidOverride(100)
		changed = true
	}
	if s.TestAndClearMotionOverride(OverrideRapidMedium) {
		s.SetRapidOverride(50)
		changed = true
	}
	if s.TestAndClearMotionOverride(OverrideRapidLow) {
		s.SetRapidOverride(25)
		changed = true
	}

	if s.TestAndClearAccessoryOverride(OverrideSpindleReset) {
		s.spindleOverride = 100
		changed = true
	}
	if s.TestAndClearAccessoryOverride(OverrideSpindleCoarsePlus) {
		s.AdjustSpindleOverride(10)
		changed = true
	}
	if s.TestAndClearAccessoryOverride(OverrideSpindleCoarseMinus) {
		s.AdjustSpindleOverride(-10)
		changed = true
	}
	if s.TestAndClearAccessoryOverride(OverrideSpindleFinePlus) {
		s.AdjustSpindleOverride(1)
		changed = true
	}
	if s.TestAndClearAccessoryOverride(OverrideSpindleFineMinus) {
		s.AdjustSpindleOverride(-1)
		changed = true
	}

	if s.TestAndClearAccessoryOverride(OverrideSpindleStopToggle) {
		spindle := core.MustSpindle()
		if spindle.GetState().Enabled {
			_ = spindle.Stop()
		} else {
			_ = spindle.Start(sv.Prep.CurrentSpindleSpeed() >= 0)
		}
	}
	if s.TestAndClearAccessoryOverride(OverrideCoolantFloodToggle) {
		coolant := core.MustCoolant()
		flood, _ := coolant.GetState()
		if flood {
			_ = coolant.StopFlood()
		} else {
			_ = coolant.StartFlood()
		}
	}
	if s.TestAndClearAccessoryOverride(OverrideCoolantMistToggle) {
		coolant := core.MustCoolant()
		_, mist := coolant.GetState()
		if mist {
			_ = coolant.StopMist()
		} else {
			_ = coolant.StartMist()
		}
	}

	if changed {
		sv.Prep.SetOverrides(s.feedOverride, s.rapidOverride, s.spindleOverride)
	}
}

// doReset implements §4.4 "reset": unconditional, from any state. It halts
// the stepper, drops every queued block and segment, and returns to Idle
// unless a latched alarm demands StateAlarm instead.
func (sv *Supervisor) doReset() {
	sv.Sys.SetAbort(true)
	sv.Step.Stop()
	sv.Step.DisarmProbe()
	sv.Prep.Reset()
	sv.Plan.Reset()
	sv.Sys.ClearSuspend(0xFF)
	sv.Sys.ClearStepControl(0xFF)

	if sv.Sys.Alarm() != AlarmNone {
		sv.Sys.SetState(StateAlarm)
	} else {
		sv.Sys.SetState(StateIdle)
	}
	sv.Sys.SetAbort(false)
}

// doFeedHold implements §4.4 "feed_hold": Cycle or Jog only, sets the
// preparer's hold request, latches SuspendHold and switches the state to
// Hold at once, without waiting for the pipeline to come to a stop.
func (sv *Supervisor) doFeedHold() {
	switch sv.Sys.state {
	case StateCycle, StateJog:
		sv.Prep.SetHold(true)
		sv.Sys.SetSuspend(SuspendHold)
		sv.Sys.SetState(StateHold)
	}
}

// doSafetyDoor implements §4.4 "safety_door": like feed_hold, but also
// disables the spindle/coolant outputs and latches door-ajar so cycle_start
// cannot resume until the door is confirmed closed.
func (sv *Supervisor) doSafetyDoor() {
	switch sv.Sys.state {
	case StateCycle, StateJog, StateHold:
		sv.Prep.SetHold(true)
		sv.Sys.SetSuspend(SuspendHold | SuspendSafetyDoorAjar)
		sv.Sys.SetState(StateSafetyDoor)
		_ = core.MustSpindle().Stop()
		_ = core.MustCoolant().StopFlood()
		_ = core.MustCoolant().StopMist()
	}
}

// doCycleStart implements §4.4 "cycle_start": resumes from Hold or the door,
// or starts a freshly-queued Idle program.
func (sv *Supervisor) doCycleStart() {
	switch sv.Sys.state {
	case StateHold:
		sv.Prep.SetHold(false)
		sv.Sys.ClearSuspend(SuspendHold)
		sv.Sys.SetState(StateCycle)
	case StateSafetyDoor:
		if sv.Sys.Suspend()&SuspendSafetyDoorAjar != 0 {
			return // door still open; ignored per §4.4
		}
		sv.Prep.SetHold(false)
		sv.Sys.ClearSuspend(SuspendHold)
		sv.Sys.SetState(StateCycle)
	case StateIdle:
		if !sv.Plan.Empty() {
			sv.Sys.SetState(StateCycle)
		}
	}
}

// doMotionCancel implements §4.4 "motion_cancel": used to abandon a jog
// in flight without treating it as a feed hold.
func (sv *Supervisor) doMotionCancel() {
	if sv.Sys.state == StateJog {
		sv.Prep.SetHold(true)
		sv.Sys.SetSuspend(SuspendMotionCancel | SuspendJogCancel)
		sv.Sys.SetState(StateHold)
	}
}

// doSleep implements §4.4 "sleep": only reachable once the pipeline has
// come to rest; disables the drivers and accessories.
func (sv *Supervisor) doSleep() {
	if sv.Sys.state != StateIdle && sv.Sys.state != StateAlarm {
		return
	}
	sv.Sys.SetState(StateSleep)
	_ = core.MustSpindle().Stop()
	_ = core.MustCoolant().StopFlood()
	_ = core.MustCoolant().StopMist()
	sv.Step.Stop()
	sv.Step.DisableDrivers()
}

// onCycleStop is invoked by the stepper core (§4.4 "cycle_stop") when the
// segment ring has drained with nothing left to replay.
func (sv *Supervisor) onCycleStop() {
	switch sv.Sys.state {
	case StateCycle:
		if sv.Plan.Empty() {
			sv.Sys.SetState(StateIdle)
		}
	case StateHold:
		if sv.Sys.Suspend()&SuspendJogCancel != 0 {
			sv.Sys.ClearSuspend(SuspendMotionCancel | SuspendJogCancel)
			sv.Sys.SetState(StateIdle)
		}
	case StateSafetyDoor:
		// Stay parked until the door closes and cycle_start is re-issued.
	case StateHoming:
		sv.Sys.SetState(StateIdle)
	}
}
