// Package segment implements the segment preparer (§4.2): it slices the
// planner's head block into short constant-rate segments matching the live
// velocity profile, publishing them into a small ring the stepper core
// drains at interrupt priority.
package segment

import "gogrbl/standalone"

// SegmentBufferSize is the segment ring capacity (§3, default 6).
const SegmentBufferSize = 6

// StepperBlockBufferSize sizes the stepper-local block-copy ring at
// SegmentBufferSize-1, so the planner can release a block the preparer has
// finished with while the stepper core may still be replaying segments that
// reference an older copy (§3 "Stepper-local block copy").
const StepperBlockBufferSize = SegmentBufferSize - 1

// MaxAmassLevel bounds the AMASS oversampling shift (§9 AMASS).
const MaxAmassLevel = 3

// Segment is a plan-free, constant-step-rate execution unit (§3).
type Segment struct {
	NStep         uint16 // step count for the segment
	CyclesPerTick uint16 // timer reload
	BlockIndex    uint8  // which stepper-local block copy this references
	SpindlePWM    uint8  // PWM duty to apply at segment entry
	AmassLevel    uint8  // 0..MaxAmassLevel, applied to StepperBlock.Steps at consumption time
}

// StepperBlock is the immutable-during-execution snapshot the stepper core
// replays (§3). Steps and StepEventCount are pre-shifted by MaxAmassLevel
// when the block is loaded; the stepper core shifts Steps back down by each
// segment's AmassLevel, so the ISR never divides at runtime (§9).
type StepperBlock struct {
	Steps             [standalone.NumAxis]uint32
	StepEventCount    uint32
	DirectionBits     uint8
	IsPWMRateAdjusted bool
	SpindleSpeed      float64 // programmed RPM, used for rate-adjusted PWM
}

// Ring is the segment ring: tail is consumed by the stepper ISR, head/next
// are written only by the preparer on the main loop (§3 "Segment ring").
type Ring struct {
	segs [SegmentBufferSize]Segment
	// tail is the only cross-context index: written by the stepper ISR,
	// read by the preparer to decide if a slot is free.
	tail uint8
	head uint8
	next uint8

	blocks    [StepperBlockBufferSize]StepperBlock
	blockHead uint8
}

// NewRing builds an empty segment ring.
func NewRing() *Ring {
	return &Ring{next: 1}
}

func (r *Ring) advance(i uint8) uint8 {
	i++
	if i == SegmentBufferSize {
		i = 0
	}
	return i
}

// Empty reports head == tail, read by the ISR.
func (r *Ring) Empty() bool { return r.head == r.tail }

// Full reports next == tail, read by the preparer.
func (r *Ring) Full() bool { return r.next == r.tail }

// Reset empties the ring; called by the realtime supervisor's reset handler.
func (r *Ring) Reset() {
	r.tail, r.head, r.next = 0, 0, 1
	r.blockHead = 0
}

// PushStepperBlock stores a new stepper-local block copy and returns its
// ring index for use as a Segment.BlockIndex.
func (r *Ring) PushStepperBlock(b StepperBlock) uint8 {
	idx := r.blockHead
	r.blocks[idx] = b
	r.blockHead++
	if r.blockHead == StepperBlockBufferSize {
		r.blockHead = 0
	}
	return idx
}

// StepperBlockAt returns the stepper-local block copy at idx.
func (r *Ring) StepperBlockAt(idx uint8) *StepperBlock {
	return &r.blocks[idx]
}

// PublishSegment writes seg into the next free slot and makes it visible
// (§9: "the producer publishes by writing head = next_head after the
// payload"). Caller must have checked Full() first.
func (r *Ring) PublishSegment(seg Segment) {
	r.segs[r.head] = seg
	r.head = r.next
	r.next = r.advance(r.next)
}

// Peek returns the segment at tail without consuming it, or nil if empty.
// Called from the stepper ISR.
func (r *Ring) Peek() *Segment {
	if r.Empty() {
		return nil
	}
	return &r.segs[r.tail]
}

// Consume advances tail, releasing the segment the stepper core just
// finished replaying. Called from the stepper ISR only.
func (r *Ring) Consume() {
	if !r.Empty() {
		r.tail = r.advance(r.tail)
	}
}
