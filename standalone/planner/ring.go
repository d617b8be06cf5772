package planner

import (
	"math"

	"gogrbl/standalone"
	"gogrbl/standalone/kinematics"
)

// Ring is the planner's circular block buffer plus the single private
// "system motion" slot used for homing, parking, and jog-cancel deceleration
// (§3 "Planner ring", §4.1 current_block/system_motion_block).
//
// tail is the next block to execute, head is the next free slot, and next is
// the slot after head: a block is only made visible to readers by advancing
// head to next once it is fully written (§9 dual-producer/single-consumer
// ring discipline), even though here the planner ring has only one producer
// and one (indirect, via Discard) consumer — both on the main loop.
type Ring struct {
	blocks [BlockBufferSize]Block
	tail   uint8
	head   uint8
	next   uint8

	cfg *standalone.MachineConfig
	kin kinematics.Kinematics

	positionSteps [standalone.NumAxis]int32
	lastUnit      standalone.Position
	haveLast      bool

	systemMotion Block
}

// NewRing builds an empty planner ring for the given machine configuration
// and kinematics transform.
func NewRing(cfg *standalone.MachineConfig, kin kinematics.Kinematics) *Ring {
	return &Ring{cfg: cfg, kin: kin, next: 1}
}

// Empty reports head == tail (§3 invariant).
func (r *Ring) Empty() bool { return r.head == r.tail }

// full reports next == tail (§3 invariant).
func (r *Ring) full() bool { return r.next == r.tail }

func (r *Ring) advance(i uint8) uint8 {
	i++
	if i == BlockBufferSize {
		i = 0
	}
	return i
}

// Enqueue appends one linear motion targeting the absolute machine position
// target (mm), per §4.1.
func (r *Ring) Enqueue(target standalone.Position, data EnqueueData) EnqueueResult {
	if r.full() {
		return Full
	}

	motor := r.kin.ToMotor(target)

	var steps [standalone.NumAxis]uint32
	var dirBits uint8
	var deltaMM standalone.Position
	var stepEventCount uint32
	var newPositionSteps [standalone.NumAxis]int32

	for i := 0; i < standalone.NumAxis; i++ {
		spm := r.cfg.Axes[i].StepsPerMM
		targetSteps := int32(math.Round(motor[i] * spm))
		newPositionSteps[i] = targetSteps
		delta := targetSteps - r.positionSteps[i]

		negative := delta < 0
		if r.cfg.Axes[i].InvertDir {
			negative = !negative
		}
		if negative {
			dirBits |= 1 << uint(i)
		}

		s := uint32(iabs(delta))
		steps[i] = s
		if s > stepEventCount {
			stepEventCount = s
		}
		deltaMM[i] = float64(delta) / spm
	}

	if stepEventCount == 0 {
		return EmptyBlock
	}

	mm := 0.0
	for _, d := range deltaMM {
		mm += d * d
	}
	mm = math.Sqrt(mm)

	var unit standalone.Position
	for i := range unit {
		unit[i] = deltaMM[i] / mm
	}

	rate, accel := r.kin.Limits(unit)

	b := Block{
		Steps:          steps,
		StepEventCount: stepEventCount,
		DirectionBits:  dirBits,
		Condition:      data.Condition,
		Acceleration:   accel,
		Millimeters:    mm,
		RapidRate:      rate,
		SpindleSpeed:   data.SpindleSpeed,
		LineNumber:     data.LineNumber,
		unit:           unit,
		live:           true,
	}

	programmed := data.FeedRate
	if programmed <= 0 || programmed > rate {
		programmed = rate
	}
	b.ProgrammedRate = programmed

	if data.Condition&standalone.CondRapid != 0 {
		b.nominal = rate
	} else {
		b.nominal = programmed
	}

	b.MaxJunctionSpeedSqr = r.junctionSpeedSqr(unit, b.nominal)
	b.MaxEntrySpeedSqr = b.MaxJunctionSpeedSqr
	if nom2 := b.nominal * b.nominal; nom2 < b.MaxEntrySpeedSqr {
		b.MaxEntrySpeedSqr = nom2
	}
	b.EntrySpeedSqr = b.MaxEntrySpeedSqr

	r.blocks[r.head] = b
	r.head = r.next
	r.next = r.advance(r.next)

	r.positionSteps = newPositionSteps
	r.lastUnit = unit
	r.haveLast = true

	r.Recompute()
	return Ok
}

// junctionSpeedSqr computes v_junction^2 from the half-angle between the
// previous and current unit travel vectors (§4.1).
func (r *Ring) junctionSpeedSqr(unit standalone.Position, nominal float64) float64 {
	if !r.haveLast {
		return nominal * nominal
	}

	minSqr := r.cfg.MinFeedRate * r.cfg.MinFeedRate

	// cosTurn is -dot(prevUnit, unit): +1 at a dead-stop reversal (the two
	// travel vectors point opposite ways), -1 for an uninterrupted straight
	// line (the vectors point the same way).
	cosTurn := 0.0
	for i := range unit {
		cosTurn -= r.lastUnit[i] * unit[i]
	}
	if cosTurn > 0.999999 {
		// Near-complete reversal: the corner can't be carried at speed.
		return minSqr
	}
	if cosTurn < -0.999999 {
		cosTurn = -0.999999 // avoid a divide-by-zero on an exact straight continuation
	}

	sinHalf := math.Sqrt(0.5 * (1 - cosTurn))

	accel := 0.0
	for i := 0; i < standalone.NumAxis; i++ {
		c := math.Abs(unit[i])
		if c < 1e-12 {
			continue
		}
		if a := r.cfg.Axes[i].MaxAccel / c; accel == 0 || a < accel {
			accel = a
		}
	}

	v2 := accel * r.cfg.JunctionDeviation * sinHalf / (1 - sinHalf)
	if v2 < minSqr {
		v2 = minSqr
	}
	if max := nominal * nominal; v2 > max {
		v2 = max
	}
	return v2
}

// Recompute performs the reverse then forward junction-speed pass (§4.1).
func (r *Ring) Recompute() {
	idx := r.indices()
	if len(idx) == 0 {
		return
	}

	exitSqr := 0.0
	for k := len(idx) - 1; k >= 0; k-- {
		b := &r.blocks[idx[k]]
		if b.Condition&standalone.CondNoFeedOverride != 0 && k == len(idx)-1 {
			exitSqr = b.nominal * b.nominal
		}
		entry := b.MaxEntrySpeedSqr
		if cand := exitSqr + 2*b.Acceleration*b.Millimeters; cand < entry {
			entry = cand
		}
		b.EntrySpeedSqr = entry
		exitSqr = entry
	}

	prevExitSqr := 0.0
	for k := 0; k < len(idx); k++ {
		b := &r.blocks[idx[k]]
		if k > 0 {
			if prevExitSqr < b.EntrySpeedSqr {
				b.EntrySpeedSqr = prevExitSqr
			}
		}
		prevExitSqr = b.EntrySpeedSqr + 2*b.Acceleration*b.Millimeters
	}
}

// indices returns the ring slot indices from tail to head-1, in order.
func (r *Ring) indices() []uint8 {
	if r.Empty() {
		return nil
	}
	out := make([]uint8, 0, BlockBufferSize)
	for i := r.tail; i != r.head; i = r.advance(i) {
		out = append(out, i)
	}
	return out
}

// CurrentBlock returns the executing (tail) block, or nil if the ring is empty.
func (r *Ring) CurrentBlock() *Block {
	if r.Empty() {
		return nil
	}
	return &r.blocks[r.tail]
}

// SystemMotionBlock returns the private slot used by homing/parking/jog-cancel
// deceleration, bypassing the ring entirely.
func (r *Ring) SystemMotionBlock() *Block {
	return &r.systemMotion
}

// LoadSystemMotion populates the system-motion slot with a synthetic block
// travelling unit at speed^2 entrySqr, accelerating/decelerating at accel.
func (r *Ring) LoadSystemMotion(unit standalone.Position, mm, accel, entrySqr float64, dirBits uint8, steps [standalone.NumAxis]uint32) {
	stepEventCount := uint32(0)
	for _, s := range steps {
		if s > stepEventCount {
			stepEventCount = s
		}
	}
	r.systemMotion = Block{
		Steps:            steps,
		StepEventCount:   stepEventCount,
		DirectionBits:    dirBits,
		Condition:        standalone.CondSystemMotion,
		Acceleration:     accel,
		Millimeters:      mm,
		EntrySpeedSqr:    entrySqr,
		MaxEntrySpeedSqr: entrySqr,
		unit:             unit,
		nominal:          math.Sqrt(entrySqr),
		live:             true,
	}
}

// Discard advances tail, releasing the block the preparer just finished
// (§4.1 discard, called when millimeters reaches 0).
func (r *Ring) Discard() {
	if !r.Empty() {
		r.tail = r.advance(r.tail)
	}
}

// SyncPosition snaps the planner's tracked step position to the machine's
// current step position, used post-homing and post-probe (§4.1).
func (r *Ring) SyncPosition(steps [standalone.NumAxis]int32) {
	r.positionSteps = steps
	r.haveLast = false
}

// GetExecBlockExitSpeedSqr returns the exit^2 of the currently executing
// tail block, used by the preparer (§4.1).
func (r *Ring) GetExecBlockExitSpeedSqr() float64 {
	cur := r.CurrentBlock()
	if cur == nil {
		return 0
	}
	idx := r.indices()
	if len(idx) < 2 {
		return 0
	}
	next := &r.blocks[idx[1]]
	return next.EntrySpeedSqr
}

// ComputeProfileNominalSpeed applies feed/rapid overrides to the block's
// programmed rate, clamped to its rapid-rate ceiling (§4.1).
func (r *Ring) ComputeProfileNominalSpeed(b *Block, feedOverridePct, rapidOverridePct uint8) float64 {
	var v float64
	if b.Condition&standalone.CondRapid != 0 {
		v = b.RapidRate * float64(rapidOverridePct) / 100
	} else {
		v = b.ProgrammedRate
		if b.Condition&standalone.CondNoFeedOverride == 0 {
			v = v * float64(feedOverridePct) / 100
		}
	}
	if v > b.RapidRate {
		v = b.RapidRate
	}
	return v
}

// Full reports whether the ring has no free slot.
func (r *Ring) Full() bool { return r.full() }

// Len returns the number of live blocks currently queued.
func (r *Ring) Len() int {
	n := int(r.head) - int(r.tail)
	if n < 0 {
		n += BlockBufferSize
	}
	return n
}

func iabs(v int32) int32 {
	if v < 0 {
		return -v
	}
	return v
}
