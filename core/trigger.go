// Trigger debouncing and multi-axis synchronization for homing and probing.
// Adapted from the endstop oversampling state machine and the trigger-sync
// broadcast list of a Klipper-oid based design, generalized to the fixed
// axis-bitmask model this controller uses instead of per-object IDs.
package core

// Debouncer confirms a GPIO transition by requiring SampleCount consecutive
// matching reads spaced SampleTicks apart before declaring a trigger. It is
// driven by repeated calls to Sample from a Timer handler; callers own the
// Timer and its WakeTime bookkeeping.
type Debouncer struct {
	SampleTicks  uint32 // ticks between samples
	SampleCount  uint8  // consecutive matching samples required
	RestTicks    uint32 // ticks between trigger-check cycles while unarmed

	count uint8 // remaining confirmations needed
}

// Reset rearms the debouncer for a fresh trigger search.
func (d *Debouncer) Reset() {
	d.count = d.SampleCount
}

// Sample feeds one read of the watched condition. It returns:
//   confirmed = true once SampleCount consecutive matching samples land
//   wake      = the tick offset (relative, in timer ticks) to schedule the
//               next Sample call
func (d *Debouncer) Sample(match bool) (confirmed bool, wake uint32) {
	if d.count == 0 {
		d.Reset()
	}
	if !match {
		d.count = d.SampleCount
		return false, d.RestTicks
	}
	d.count--
	if d.count == 0 {
		return true, 0
	}
	return false, d.SampleTicks
}

// TriggerGroup coordinates homing across several axes that must each
// independently confirm a limit trip before the group is considered
// complete; axes that have already tripped are masked out of further
// Bresenham stepping by the caller (see §4.3 step 8 / §4.4 step 1).
type TriggerGroup struct {
	pending AxisMask
	done    AxisMask
}

// AxisMask is a per-axis bitmask, one bit per logical axis (bit i = axis i).
type AxisMask uint8

// Arm starts a new group awaiting triggers from the given axes.
func (g *TriggerGroup) Arm(axes AxisMask) {
	g.pending = axes
	g.done = 0
}

// Trip marks one axis as having confirmed its trigger. It returns true once
// every armed axis has tripped.
func (g *TriggerGroup) Trip(axis uint8) bool {
	bit := AxisMask(1) << axis
	if g.pending&bit == 0 {
		return g.pending == 0
	}
	g.done |= bit
	g.pending &^= bit
	return g.pending == 0
}

// Remaining returns the axes that have not yet tripped.
func (g *TriggerGroup) Remaining() AxisMask {
	return g.pending
}

// Tripped returns the axes that have confirmed a trigger so far.
func (g *TriggerGroup) Tripped() AxisMask {
	return g.done
}
