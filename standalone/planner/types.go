package planner

import "gogrbl/standalone"

// BlockBufferSize is the planner ring capacity (§3: BLOCK_BUFFER_SIZE, default 16).
const BlockBufferSize = 16

// Block is one linear motion in planner coordinates (§3 "Planner block").
type Block struct {
	Steps          [standalone.NumAxis]uint32 // unsigned step counts per axis
	StepEventCount uint32                     // max(Steps); the Bresenham denominator
	DirectionBits  uint8                      // per-axis sign bitmask, bit i set = negative

	Condition standalone.ConditionFlags

	EntrySpeedSqr    float64 // mm/min squared at block entry; mutable by replanner
	MaxEntrySpeedSqr float64

	Acceleration float64 // mm/min^2, after axis-limit projection

	Millimeters float64 // remaining distance; decremented by the preparer as segments are emitted

	MaxJunctionSpeedSqr float64 // junction cap from direction-vector deviation

	RapidRate      float64 // axis-limit-projected rapid rate, mm/min
	ProgrammedRate float64 // axis-limit-projected programmed feed rate, mm/min

	SpindleSpeed float64 // target RPM when spindle modulation is active

	LineNumber int

	unit      standalone.Position // unit travel vector, used only for junction recompute
	nominal   float64             // cached nominal speed (mm/min) for overrides/recompute
	live      bool                // true once published into the ring and not yet discarded
}

// DirBit returns true if axis i moves in the negative direction.
func (b *Block) DirBit(axis int) bool {
	return b.DirectionBits&(1<<uint(axis)) != 0
}

// NominalSpeed returns the block's un-overridden target speed, mm/min.
func (b *Block) NominalSpeed() float64 {
	return b.nominal
}

// Live reports whether the block holds a real motion (as opposed to a
// zeroed-out, never-loaded system-motion slot).
func (b *Block) Live() bool {
	return b.live
}

// Clear marks the block as no longer holding a live motion.
func (b *Block) Clear() {
	b.live = false
}

// EnqueueData carries the parameters of one commanded linear motion, supplied
// by the external gcode parser alongside the absolute target position.
type EnqueueData struct {
	FeedRate     float64
	SpindleSpeed float64
	Condition    standalone.ConditionFlags
	LineNumber   int
}

// EnqueueResult is the soft outcome of Ring.Enqueue.
type EnqueueResult uint8

const (
	// Ok means one block was appended to the ring.
	Ok EnqueueResult = iota
	// EmptyBlock means step_event_count came out zero; no ring slot was consumed.
	EmptyBlock
	// Full means the ring had no free slot; no ring slot was consumed.
	Full
)
