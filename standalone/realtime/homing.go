package realtime

import (
	"math"

	"gogrbl/core"
	"gogrbl/standalone"
)

// homingPhase is one step of the per-axis-group homing cycle (§4.4 step 1).
type homingPhase uint8

const (
	homingSeek homingPhase = iota
	homingPulloff
	homingLocate
	homingLocatePulloff
)

// homingCycle drives one call to HomingGo to completion across repeated
// Supervisor.Service() ticks; it owns the axis TriggerGroup and Debouncer
// used to confirm each switch trip against contact bounce.
type homingCycle struct {
	mask  AxisMask
	phase homingPhase

	group core.TriggerGroup
	deb   core.Debouncer

	locateCyclesLeft uint8
}

// HomingGo runs the homing cycle for the axes set in cycleMask (bit i = axis
// i), per §4.4 "HomingGo(cycle_mask)". It must be called from Idle or Alarm;
// it blocks the caller's state in StateHoming until Service() has driven the
// cycle to completion or failure.
func (sv *Supervisor) HomingGo(cycleMask AxisMask) {
	if sv.Sys.state != StateIdle && sv.Sys.state != StateAlarm {
		return
	}

	sv.Sys.SetState(StateHoming)
	sv.Sys.SetAlarm(AlarmNone)
	sv.Step.EnableDrivers()

	h := &homingCycle{mask: cycleMask}
	h.group.Arm(cycleMask)
	h.deb = core.Debouncer{SampleTicks: core.TimerFromUS(1000), SampleCount: 3, RestTicks: core.TimerFromUS(1000)}
	h.deb.Reset()
	h.locateCyclesLeft = sv.cfg.HomingLocateCycles
	if h.locateCyclesLeft == 0 {
		h.locateCyclesLeft = 1
	}
	sv.homing = h

	sv.startHomingSeek(h)
}

// startHomingSeek loads a long system-motion move toward the limit switches
// for every axis still pending in h.group, at each axis's configured seek
// rate (§4.4 step 1a).
func (sv *Supervisor) startHomingSeek(h *homingCycle) {
	h.phase = homingSeek
	sv.loadHomingMove(h, false, false)
}

// startHomingPulloff loads a short retract move away from the switches,
// common to both the post-seek quick pull-off and the post-locate pull-off
// (§4.4 steps 1b/1d).
func (sv *Supervisor) startHomingPulloff(h *homingCycle, afterLocate bool) {
	if afterLocate {
		h.phase = homingLocatePulloff
	} else {
		h.phase = homingPulloff
	}
	sv.loadHomingMove(h, true, true)
}

// startHomingLocate loads a slow re-approach at HomingFeedRate used to
// confirm the switch position with less overtravel than the seek (§4.4 step 1c).
func (sv *Supervisor) startHomingLocate(h *homingCycle) {
	h.phase = homingLocate
	h.group.Arm(h.mask)
	h.deb.Reset()
	sv.loadHomingMove(h, false, false)
}

// loadHomingMove builds a synthetic straight line covering every axis still
// pending in h.group (or h.mask, for a pull-off), in the configured homing
// direction (or reversed, for a pull-off), and hands it to the planner's
// system-motion slot.
func (sv *Supervisor) loadHomingMove(h *homingCycle, pulloff, useMask bool) {
	axes := h.group.Remaining()
	if useMask {
		axes = h.mask
	}

	var unit standalone.Position
	var steps [standalone.NumAxis]uint32
	var dirBits uint8
	maxAccel := 0.0
	rate := 0.0
	count := 0

	for i := 0; i < standalone.NumAxis; i++ {
		if axes&(AxisMask(1)<<uint(i)) == 0 {
			continue
		}
		ax := sv.cfg.Axes[i]
		dir := ax.HomingDir
		dist := ax.MaxTravel
		if pulloff {
			dir = -dir
			dist = ax.HomingPulloff
			if dist <= 0 {
				continue
			}
		}
		unit[i] = float64(dir)
		s := dist * ax.StepsPerMM
		if s <= 0 {
			s = 1
		}
		steps[i] = uint32(math.Round(s))

		negative := dir < 0
		if ax.InvertDir {
			negative = !negative
		}
		if negative {
			dirBits |= 1 << uint(i)
		}

		if ax.MaxAccel > maxAccel {
			maxAccel = ax.MaxAccel
		}
		r := ax.HomingSeekRate
		if pulloff || h.phase == homingLocate {
			r = ax.HomingFeedRate
		}
		if r > rate {
			rate = r
		}
		count++
	}

	if count == 0 || rate <= 0 {
		sv.finishHoming(h, false)
		return
	}

	norm := 0.0
	for _, u := range unit {
		norm += u * u
	}
	norm = math.Sqrt(norm)
	if norm > 0 {
		for i := range unit {
			unit[i] /= norm
		}
	}

	mm := 0.0
	for i := 0; i < standalone.NumAxis; i++ {
		if steps[i] == 0 {
			continue
		}
		d := float64(steps[i]) / sv.cfg.Axes[i].StepsPerMM
		mm += d * d
	}
	mm = math.Sqrt(mm)

	entrySqr := rate * rate
	sv.Plan.LoadSystemMotion(unit, mm, maxAccel, entrySqr, dirBits, steps)
	sv.Step.Start()
}

// serviceHoming is called every Supervisor.Service() tick while
// state == StateHoming. It watches the limit switches via the debouncer,
// advancing the phase state machine on confirmed trips.
func (sv *Supervisor) serviceHoming() {
	h := sv.homing
	if h == nil {
		return
	}

	state := core.MustLimits().GetState()

	switch h.phase {
	case homingSeek, homingLocate:
		sv.pollSeek(h, state)
	case homingPulloff, homingLocatePulloff:
		if !sv.Plan.SystemMotionBlock().Live() {
			if h.phase == homingPulloff {
				sv.startHomingLocate(h)
			} else {
				h.locateCyclesLeft--
				if h.locateCyclesLeft > 0 {
					sv.startHomingSeek(h)
				} else {
					sv.finishHoming(h, true)
				}
			}
		}
	}
}

// pollSeek debounces each pending axis's limit input and, once every axis in
// the group has confirmed, halts motion and advances to the pull-off phase.
func (sv *Supervisor) pollSeek(h *homingCycle, state core.LimitMask) {
	remaining := h.group.Remaining()
	if remaining == 0 {
		return
	}

	for i := 0; i < standalone.NumAxis; i++ {
		if remaining&(AxisMask(1)<<uint(i)) == 0 {
			continue
		}
		tripped := state&(core.LimitMask(1)<<uint(i)) != 0
		confirmed, _ := h.deb.Sample(tripped)
		if confirmed {
			h.group.Trip(uint8(i))
		}
	}

	locked := h.group.Tripped()
	sv.Step.SetHomingAxisLock(uint8(locked))

	if h.group.Remaining() == 0 {
		sv.Step.Stop()
		sv.Step.SetHomingAxisLock(0)
		if h.phase == homingSeek {
			sv.startHomingPulloff(h, false)
		} else {
			sv.startHomingPulloff(h, true)
		}
	}
}

// finishHoming completes the cycle: on success it zeros sys_position (or
// the configured pull-off offset) for every homed axis and resyncs the
// planner; on failure it raises AlarmHomingFailApproach.
func (sv *Supervisor) finishHoming(h *homingCycle, ok bool) {
	sv.homing = nil
	sv.Step.Stop()
	sv.Step.SetHomingAxisLock(0)

	if !ok {
		sv.Sys.SetAlarm(AlarmHomingFailApproach)
		sv.Sys.SetState(StateAlarm)
		return
	}

	pos := sv.Step.SysPositionSteps()
	for i := 0; i < standalone.NumAxis; i++ {
		if h.mask&(AxisMask(1)<<uint(i)) == 0 {
			continue
		}
		if sv.cfg.HomingForceSetOrigin {
			pos[i] = 0
		} else {
			pos[i] = int32(math.Round(sv.cfg.Axes[i].HomingPulloff * sv.cfg.Axes[i].StepsPerMM))
			if sv.cfg.Axes[i].HomingDir > 0 {
				pos[i] = -pos[i]
			}
		}
	}
	sv.Step.SetSysPositionSteps(pos)
	sv.Plan.SyncPosition(pos)
	sv.Sys.SetState(StateIdle)
}
