package segment

import (
	"math"

	"gogrbl/standalone"
	"gogrbl/standalone/planner"
)

// accelerationTicksPerSecond controls DT_SEGMENT (§4.2 step 3); each segment
// spans at most one such tick of simulated time.
const accelerationTicksPerSecond = 100

// dtSegment is the maximum duration of one segment, in minutes.
const dtSegment = 1.0 / (accelerationTicksPerSecond * 60.0)

// reqMMIncrementScalar scales step_per_mm into the minimum mm increment the
// ramp loop is willing to resolve before forcing a step (§4.2 step 1).
const reqMMIncrementScalar = 1.25

// RampType classifies which part of the trapezoidal profile a segment falls
// in (§3 "Preparer state").
type RampType uint8

const (
	RampAccel RampType = iota
	RampCruise
	RampDecel
	RampDecelOverride
)

// amassBand thresholds, in raw timer cycles per step (§9 AMASS).
const (
	amassLevel1Threshold = 1 << 16
	amassLevel2Threshold = 1 << 17
	amassLevel3Threshold = 1 << 18
)

// Preparer repeatedly slices the planner's head block into segments (§4.2).
type Preparer struct {
	plan *planner.Planner
	segs *Ring
	cfg  *standalone.MachineConfig

	blockLoaded       bool
	usingSystemMotion bool
	block             *planner.Block
	stepperBlockIndex uint8

	rampType        RampType
	currentSpeed    float64
	maximumSpeed    float64
	exitSpeed       float64
	accelerateUntil float64
	decelerateAfter float64
	mmComplete      float64
	stepPerMM       float64
	reqMMIncrement  float64
	dtRemainder     float64

	mmRemaining        float64
	lastStepsRemaining float64

	feedOverride    uint8
	rapidOverride   uint8
	spindleOverride uint8

	holdActive       bool
	endMotion        bool
	updateSpindlePWM bool
}

// NewPreparer builds a preparer bound to a planner and its segment ring.
// Segments always use AMASS oversampling (§4.2 step 5, §9 AMASS); this
// target carries a timer fast enough that the fixed-prescaler fallback the
// reference firmware used for slower MCUs has no HAL path to drive here.
func NewPreparer(plan *planner.Planner, segs *Ring, cfg *standalone.MachineConfig) *Preparer {
	return &Preparer{
		plan:            plan,
		segs:            segs,
		cfg:             cfg,
		feedOverride:    100,
		rapidOverride:   100,
		spindleOverride: 100,
	}
}

// SetHold requests forced deceleration on the currently (or next) loaded
// block (§4.4 feed_hold/safety_door/motion_cancel).
func (p *Preparer) SetHold(active bool) {
	p.holdActive = active
}

// EndMotion reports whether the last Run() forced a termination (END_MOTION).
func (p *Preparer) EndMotion() bool { return p.endMotion }

// CurrentRate returns the live feed rate of the block in progress, mm/min,
// for status reporting.
func (p *Preparer) CurrentRate() float64 {
	if !p.blockLoaded {
		return 0
	}
	return p.currentSpeed
}

// CurrentSpindleSpeed returns the programmed RPM of the block in progress,
// for status reporting.
func (p *Preparer) CurrentSpindleSpeed() float64 {
	if !p.blockLoaded || p.block == nil {
		return 0
	}
	return p.block.SpindleSpeed
}

// ConsumeUpdateSpindlePWM reports and clears the UPDATE_SPINDLE_PWM flag.
func (p *Preparer) ConsumeUpdateSpindlePWM() bool {
	v := p.updateSpindlePWM
	p.updateSpindlePWM = false
	return v
}

// SetOverrides updates the feed/rapid/spindle override percentages applied
// to subsequent profile computations.
func (p *Preparer) SetOverrides(feed, rapid, spindle uint8) {
	p.feedOverride, p.rapidOverride, p.spindleOverride = feed, rapid, spindle
}

// Reset drops any partially prepared block and clears the segment ring,
// called by the realtime supervisor's reset handler.
func (p *Preparer) Reset() {
	p.blockLoaded = false
	p.usingSystemMotion = false
	p.block = nil
	p.holdActive = false
	p.endMotion = false
	p.updateSpindlePWM = false
	p.segs.Reset()
}

// Run drains as many segments as fit in the ring from the live planner
// block, per the §4.2 algorithm. It returns the number of segments
// published.
func (p *Preparer) Run() int {
	published := 0
	for !p.segs.Full() {
		if !p.blockLoaded {
			if !p.loadBlock() {
				return published
			}
			p.computeProfile()
		}
		if !p.rollSegment() {
			return published
		}
		published++
	}
	return published
}

// loadBlock fetches the planner's head block (or the system-motion slot) and
// materializes the stepper-local copy (§4.2 step 1).
func (p *Preparer) loadBlock() bool {
	var b *planner.Block
	system := false

	if sm := p.plan.SystemMotionBlock(); sm.Live() {
		b = sm
		system = true
	} else if cur := p.plan.CurrentBlock(); cur != nil {
		b = cur
	} else {
		return false
	}

	p.block = b
	p.usingSystemMotion = system
	p.blockLoaded = true
	p.mmRemaining = b.Millimeters
	p.lastStepsRemaining = 0
	p.dtRemainder = 0

	// Pre-shift the stepper-local copy by the AMASS ceiling, once, so the
	// ISR never divides: every segment later recovers its own per-tick
	// rate by shifting back down by that segment's own AmassLevel (§9
	// AMASS). Using the block-lifetime-constant MaxAmassLevel here (rather
	// than a level picked from this block's own step-event count) mirrors
	// the reference stepper's unconditional `<< MAX_AMASS_LEVEL`.
	const shift = MaxAmassLevel

	var steps [standalone.NumAxis]uint32
	for i, s := range b.Steps {
		steps[i] = s << shift
	}
	stepEventCount := b.StepEventCount << shift

	sb := StepperBlock{
		Steps:             steps,
		StepEventCount:    stepEventCount,
		DirectionBits:     b.DirectionBits,
		IsPWMRateAdjusted: p.cfg.Spindle.LaserMode && b.Condition&standalone.CondSpindleCW != 0,
		SpindleSpeed:      b.SpindleSpeed,
	}
	p.stepperBlockIndex = p.segs.PushStepperBlock(sb)

	p.stepPerMM = float64(b.StepEventCount) / b.Millimeters
	p.reqMMIncrement = reqMMIncrementScalar / p.stepPerMM
	return true
}

// computeProfile classifies the ramp shape of the currently loaded block
// (§4.2 step 2).
func (p *Preparer) computeProfile() {
	b := p.block
	a := b.Acceleration
	mm := b.Millimeters
	p.mmComplete = 0

	if p.holdActive {
		p.rampType = RampDecelOverride
		p.currentSpeed = math.Sqrt(p.currentSpeedSqr())
		stopDist := p.currentSpeed * p.currentSpeed / (2 * a)
		if stopDist > mm {
			stopDist = mm
		}
		p.decelerateAfter = mm - stopDist
		p.accelerateUntil = 0
		p.maximumSpeed = p.currentSpeed
		p.exitSpeed = 0
		p.mmComplete = mm - stopDist
		return
	}

	entry2 := b.EntrySpeedSqr
	exit2 := p.plan.GetExecBlockExitSpeedSqr()
	if p.usingSystemMotion {
		exit2 = 0
	}

	nominal := p.plan.ComputeProfileNominalSpeed(b, p.feedOverride, p.rapidOverride)
	nominal2 := nominal * nominal

	intersect := 0.5 * (mm + (entry2-exit2)/(2*a))

	switch {
	case intersect <= 0:
		p.rampType = RampDecel
		p.accelerateUntil = mm
		p.decelerateAfter = mm
		p.maximumSpeed = math.Sqrt(entry2)
	case intersect >= mm:
		p.rampType = RampAccel
		p.accelerateUntil = 0
		p.decelerateAfter = 0
		p.maximumSpeed = math.Sqrt(exit2)
	default:
		accelDist := (nominal2 - entry2) / (2 * a)
		decelDist := (nominal2 - exit2) / (2 * a)
		if accelDist+decelDist >= mm {
			// Triangle: never reaches nominal speed.
			peak2 := a*mm + (entry2+exit2)/2
			p.rampType = RampAccel
			p.maximumSpeed = math.Sqrt(peak2)
			p.accelerateUntil = mm - (peak2-entry2)/(2*a)
			p.decelerateAfter = p.accelerateUntil
		} else {
			p.rampType = RampCruise
			p.maximumSpeed = nominal
			p.accelerateUntil = mm - accelDist
			p.decelerateAfter = decelDist
		}
	}

	p.currentSpeed = math.Sqrt(entry2)
	p.exitSpeed = math.Sqrt(exit2)
}

func (p *Preparer) currentSpeedSqr() float64 {
	return p.currentSpeed * p.currentSpeed
}

// rollSegment advances the ramp by at most DT_SEGMENT minutes of simulated
// time and publishes one segment (§4.2 steps 3-7). It returns false if
// nothing could be published this call (block just finished, no steps yet).
//
// accelerateUntil/decelerateAfter are remaining-mm thresholds: the ramp is
// in ACCEL while mmRemaining > accelerateUntil, CRUISE while it's between
// decelerateAfter and accelerateUntil, and DECEL below decelerateAfter. The
// loop below walks through at most those three phases within one segment,
// re-deriving the elapsed time on each transition (§4.2 step 3).
func (p *Preparer) rollSegment() bool {
	b := p.block
	a := b.Acceleration

	mmRemaining := p.mmRemaining
	speed := p.currentSpeed
	floor := 0.0
	if p.holdActive {
		floor = p.mmComplete
	}

	remainingDt := dtSegment
	for phase := 0; phase < 4 && remainingDt > 1e-12 && mmRemaining > floor+1e-12; phase++ {
		var boundary float64
		var rt RampType
		switch {
		case mmRemaining > p.accelerateUntil:
			rt = RampAccel
			boundary = p.accelerateUntil
		case mmRemaining > p.decelerateAfter:
			rt = RampCruise
			boundary = p.decelerateAfter
		default:
			rt = RampDecel
			boundary = floor
		}

		var dv, dmm, dt float64
		switch rt {
		case RampAccel:
			dt = remainingDt
			dv = a * dt
			dmm = (speed + dv/2) * dt
		case RampCruise:
			speed = p.maximumSpeed
			dt = remainingDt
			dmm = speed * dt
		case RampDecel:
			dt = remainingDt
			dv = a * dt
			dmm = (speed - dv/2) * dt
		}

		avail := mmRemaining - boundary
		if dmm > avail {
			// Clip to the phase boundary and re-derive the time actually
			// spent, continuing into the next phase with what's left.
			if dmm > 1e-15 {
				dt *= avail / dmm
			}
			dmm = avail
			if rt == RampAccel {
				dv = a * dt
			} else if rt == RampDecel {
				dv = a * dt
			}
		}

		switch rt {
		case RampAccel:
			speed += dv
		case RampDecel:
			speed -= dv
			if speed < p.exitSpeed {
				speed = p.exitSpeed
			}
		}

		mmRemaining -= dmm
		remainingDt -= dt
	}

	mmRemainingNew := mmRemaining
	if mmRemainingNew < floor {
		mmRemainingNew = floor
	}

	stepsRemaining := mmRemainingNew * p.stepPerMM
	nStep := int64(math.Ceil(p.lastStepsRemaining) - math.Ceil(stepsRemaining))
	if nStep <= 0 {
		if p.holdActive && mmRemainingNew <= p.mmComplete+1e-9 {
			p.endMotion = true
			p.blockLoaded = false
			return false
		}
		if mmRemainingNew <= 1e-9 {
			p.finishBlock()
			return false
		}
		// Not enough distance yet to yield a whole step: extend and retry
		// on the next Run() call rather than spin here.
		p.mmRemaining = mmRemainingNew
		p.currentSpeed = speed
		p.lastStepsRemaining = stepsRemaining
		return false
	}

	elapsedMinutes := dtSegment
	cyclesPerStep := uint32(elapsedMinutes * 60 * float64(timerFreqHz) / float64(nStep))

	seg := Segment{BlockIndex: p.stepperBlockIndex}
	level, cycles := amassShift(cyclesPerStep)
	seg.AmassLevel = level
	seg.CyclesPerTick = cycles
	seg.NStep = uint16(nStep << level)
	if seg.NStep == 0 {
		seg.NStep = 1
	}

	if p.cfg.Spindle.MaxRPM > 0 {
		seg.SpindlePWM = p.computeSpindlePWM(speed)
		p.updateSpindlePWM = true
	}

	p.segs.PublishSegment(seg)

	p.mmRemaining = mmRemainingNew
	p.currentSpeed = speed
	p.lastStepsRemaining = stepsRemaining
	b.Millimeters = mmRemainingNew

	if mmRemainingNew <= 1e-9 {
		p.finishBlock()
	}
	return true
}

// finishBlock releases the block that just reached zero remaining distance.
func (p *Preparer) finishBlock() {
	if p.usingSystemMotion {
		p.block.Clear()
	} else {
		p.plan.Discard()
	}
	p.blockLoaded = false
}

// computeSpindlePWM maps the live feed speed (laser/rate-adjusted mode) or
// the block's programmed spindle speed into an 8-bit PWM duty (§4.2 step 6).
func (p *Preparer) computeSpindlePWM(currentSpeed float64) uint8 {
	sc := p.cfg.Spindle
	rpm := p.block.SpindleSpeed * float64(p.spindleOverride) / 100

	sb := p.segs.StepperBlockAt(p.stepperBlockIndex)
	if sb.IsPWMRateAdjusted && p.maximumSpeed > 0 {
		rpm = rpm * currentSpeed / p.maximumSpeed
	}

	if rpm <= 0 {
		return sc.PWMOffValue
	}
	if rpm < sc.MinRPM {
		rpm = sc.MinRPM
	}
	if rpm > sc.MaxRPM {
		rpm = sc.MaxRPM
	}
	span := sc.MaxRPM - sc.MinRPM
	if span <= 0 {
		return 255
	}
	return uint8((rpm - sc.MinRPM) / span * 255)
}

// timerFreqHz is the stepper base-timer tick frequency used to convert a
// segment's elapsed time into a timer reload value.
const timerFreqHz = 12000000

// amassShift picks the smallest AMASS band whose shifted cycle count fits a
// 16-bit timer reload (§9 AMASS, §4.2 step 5).
func amassShift(cycles uint32) (level uint8, shifted uint16) {
	switch {
	case cycles < amassLevel1Threshold:
		return 0, clamp16(cycles)
	case cycles < amassLevel2Threshold:
		return 1, clamp16(cycles >> 1)
	case cycles < amassLevel3Threshold:
		return 2, clamp16(cycles >> 2)
	default:
		return MaxAmassLevel, clamp16(cycles >> MaxAmassLevel)
	}
}

func clamp16(v uint32) uint16 {
	if v > 0xFFFF {
		return 0xFFFF
	}
	return uint16(v)
}
