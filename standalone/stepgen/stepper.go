// Package stepgen implements the stepper core (§4.3): two interrupt-level
// timers that replay segments via a multi-axis Bresenham line algorithm with
// AMASS oversampling, synchronizing sys_position with every step pulse.
package stepgen

import (
	"gogrbl/core"
	"gogrbl/standalone"
	"gogrbl/standalone/segment"
)

// Core drives the base and pulse timers. All its exported methods other
// than the constructor and the accessors are meant to run at interrupt
// priority; callers must not hold the main loop's attention while they run.
type Core struct {
	cfg  *standalone.MachineConfig
	segs *segment.Ring

	busy bool

	loaded         bool
	blockIndex     uint8
	haveBlockIndex bool
	block          *segment.StepperBlock
	counter        [standalone.NumAxis]uint32
	stepEventCount uint32
	dirBits        uint8
	// steps holds this segment's working per-tick Bresenham increments:
	// block.Steps[i] >> seg.AmassLevel, re-derived every segment load
	// (never just on a block-index change) so AMASS recovers the correct
	// per-tick rate at every oversampling band (§9 AMASS).
	steps [standalone.NumAxis]uint32

	pendingDirBits  uint8 // direction bits computed last tick, committed this tick
	pendingStepBits uint8 // step bits computed last tick, raised this tick

	stepsRemaining uint16
	cyclesPerTick  uint16

	homingAxisLock uint8 // bit i set = axis i frozen (its switch has tripped)

	probeArmed     bool
	probeTriggered bool

	sysPosition   [standalone.NumAxis]int32
	probePosition [standalone.NumAxis]int32

	running bool

	// OnCycleStop is invoked (from the base-timer context) when the segment
	// ring drains with nothing left to replay (§4.2 step 5 / §4.4 cycle_stop).
	OnCycleStop func()
	// OnProbeTrigger is invoked the tick the probe input confirms a trigger,
	// after ProbePositionSteps has been latched (§4.3 step 6).
	OnProbeTrigger func()
}

// NewCore builds a stepper core bound to a segment ring and machine config.
func NewCore(cfg *standalone.MachineConfig, segs *segment.Ring) *Core {
	return &Core{cfg: cfg, segs: segs}
}

// ArmProbe enables probe sampling on subsequent base ticks.
func (c *Core) ArmProbe() {
	c.probeArmed = true
	c.probeTriggered = false
}

// DisarmProbe disables probe sampling (PROBE_OFF).
func (c *Core) DisarmProbe() {
	c.probeArmed = false
}

// ProbeTriggered reports whether the probe has latched since it was armed.
func (c *Core) ProbeTriggered() bool { return c.probeTriggered }

// SetHomingAxisLock freezes the given axes: their Bresenham step bits are
// masked out of every subsequent tick until cleared (§4.3 step 8).
func (c *Core) SetHomingAxisLock(mask uint8) {
	c.homingAxisLock = mask
}

// SysPositionSteps returns the live integer machine position.
func (c *Core) SysPositionSteps() [standalone.NumAxis]int32 {
	return c.sysPosition
}

// SetSysPositionSteps overwrites the tracked machine position (homing
// origin-set, post-probe resync).
func (c *Core) SetSysPositionSteps(pos [standalone.NumAxis]int32) {
	c.sysPosition = pos
}

// ProbePositionSteps returns the position latched at the tick the probe
// triggered.
func (c *Core) ProbePositionSteps() [standalone.NumAxis]int32 {
	return c.probePosition
}

// Start arms the base timer for its first tick; call once the segment ring
// has at least one segment published.
func (c *Core) Start() {
	if c.running {
		return
	}
	c.running = true
	c.scheduleBase(core.GetTime())
}

// Running reports whether the base timer is currently armed.
func (c *Core) Running() bool { return c.running }

// Stop idles the stepper core without touching sys_position; used by reset.
func (c *Core) Stop() {
	c.running = false
	c.loaded = false
	c.haveBlockIndex = false
	c.pendingStepBits = 0
	c.pendingDirBits = 0
}

func (c *Core) scheduleBase(at uint32) {
	t := &core.Timer{WakeTime: at, Handler: c.baseTick}
	core.ScheduleTimer(t)
}

// baseTick implements the base-timer behavior of §4.3.
func (c *Core) baseTick(t *core.Timer) uint8 {
	if !c.running {
		return core.SF_DONE
	}
	if c.busy {
		return core.SF_DONE
	}
	c.busy = true
	defer func() { c.busy = false }()

	gpio := core.MustGPIO()

	c.commitDirections(gpio, c.pendingDirBits)
	c.raiseSteps(gpio, c.pendingStepBits)
	c.armPulse(t.WakeTime)

	if !c.loaded {
		seg := c.segs.Peek()
		if seg == nil {
			c.idle()
			if c.OnCycleStop != nil {
				c.OnCycleStop()
			}
			c.running = false
			return core.SF_DONE
		}

		c.cyclesPerTick = seg.CyclesPerTick
		c.stepsRemaining = seg.NStep

		if !c.haveBlockIndex || seg.BlockIndex != c.blockIndex {
			c.swapBlock(seg.BlockIndex)
		}
		for i := 0; i < standalone.NumAxis; i++ {
			c.steps[i] = c.block.Steps[i] >> seg.AmassLevel
		}

		if c.cfg.Spindle.MaxRPM > 0 {
			_ = core.MustSpindle().SetPWM(seg.SpindlePWM)
		}

		c.segs.Consume()
		c.loaded = true
	}

	if c.probeArmed && !c.probeTriggered {
		if core.MustProbe().GetState() {
			c.probePosition = c.sysPosition
			c.probeTriggered = true
			c.probeArmed = false
			if c.OnProbeTrigger != nil {
				c.OnProbeTrigger()
			}
		}
	}

	stepBits := c.bresenham()
	stepBits &^= c.homingAxisLock
	c.pendingStepBits = stepBits
	c.pendingDirBits = c.dirBits

	c.stepsRemaining--
	if c.stepsRemaining == 0 {
		c.loaded = false
	}

	t.WakeTime += uint32(c.cyclesPerTick)
	return core.SF_RESCHEDULE
}

// pulseTick implements the pulse-timer behavior: drop the step lines after
// settings.pulse_microseconds.
func (c *Core) pulseTick(t *core.Timer) uint8 {
	gpio := core.MustGPIO()
	for i := 0; i < standalone.NumAxis; i++ {
		gpio.SetPin(core.GPIOPin(c.cfg.Axes[i].StepPin), false)
	}
	return core.SF_DONE
}

func (c *Core) armPulse(baseTickTime uint32) {
	pulseTicks := core.TimerFromUS(uint32(c.cfg.PulseMicroseconds))
	t := &core.Timer{WakeTime: baseTickTime + pulseTicks, Handler: c.pulseTick}
	core.ScheduleTimer(t)
}

func (c *Core) commitDirections(gpio core.GPIODriver, bits uint8) {
	for i := 0; i < standalone.NumAxis; i++ {
		negative := bits&(1<<uint(i)) != 0
		gpio.SetPin(core.GPIOPin(c.cfg.Axes[i].DirPin), negative)
	}
}

func (c *Core) raiseSteps(gpio core.GPIODriver, bits uint8) {
	for i := 0; i < standalone.NumAxis; i++ {
		if bits&(1<<uint(i)) != 0 {
			gpio.SetPin(core.GPIOPin(c.cfg.Axes[i].StepPin), true)
		}
	}
}

// swapBlock loads a new stepper-local block copy, resetting Bresenham
// counters to half the step-event count (§4.3 step 5).
func (c *Core) swapBlock(idx uint8) {
	c.blockIndex = idx
	c.haveBlockIndex = true
	c.block = c.segs.StepperBlockAt(idx)
	c.stepEventCount = c.block.StepEventCount
	c.dirBits = c.block.DirectionBits
	half := c.stepEventCount / 2
	for i := range c.counter {
		c.counter[i] = half
	}
}

// bresenham advances one tick of the multi-axis Bresenham line and updates
// sys_position synchronously with each step it emits (§4.3 step 7).
func (c *Core) bresenham() uint8 {
	var bits uint8
	if c.block == nil {
		return 0
	}
	for i := 0; i < standalone.NumAxis; i++ {
		c.counter[i] += c.steps[i]
		if c.counter[i] > c.stepEventCount {
			bits |= 1 << uint(i)
			c.counter[i] -= c.stepEventCount
			if c.homingAxisLock&(1<<uint(i)) != 0 {
				continue // masked out of the emitted step bits by baseTick
			}
			if c.dirBits&(1<<uint(i)) != 0 {
				c.sysPosition[i]--
			} else {
				c.sysPosition[i]++
			}
		}
	}
	return bits
}

// idle disables the timers (by simply not rescheduling) and, unless
// stepper_idle_lock_time is 0xFFFF ("never deassert"), schedules driver
// disable after the configured settling delay.
func (c *Core) idle() {
	if c.cfg.StepperIdleLockTime == 0xFFFF {
		return
	}
	if c.cfg.StepperIdleLockTime == 0 {
		c.disableDrivers()
		return
	}
	delay := core.TimerFromUS(uint32(c.cfg.StepperIdleLockTime) * 1000)
	t := &core.Timer{
		WakeTime: core.GetTime() + delay,
		Handler: func(*core.Timer) uint8 {
			c.disableDrivers()
			return core.SF_DONE
		},
	}
	core.ScheduleTimer(t)
}

func (c *Core) disableDrivers() {
	gpio := core.MustGPIO()
	for i := 0; i < standalone.NumAxis; i++ {
		ax := c.cfg.Axes[i]
		if !ax.HasEnable {
			continue
		}
		gpio.SetPin(core.GPIOPin(ax.EnablePin), ax.InvertEnable)
	}
}

// DisableDrivers deasserts the enable line on every axis that has one,
// bypassing the idle-lock settling delay (§4.4 sleep).
func (c *Core) DisableDrivers() {
	c.disableDrivers()
}

// EnableDrivers asserts the enable line on every axis that has one; called
// before starting a new cycle.
func (c *Core) EnableDrivers() {
	gpio := core.MustGPIO()
	for i := 0; i < standalone.NumAxis; i++ {
		ax := c.cfg.Axes[i]
		if !ax.HasEnable {
			continue
		}
		gpio.SetPin(core.GPIOPin(ax.EnablePin), !ax.InvertEnable)
	}
}
