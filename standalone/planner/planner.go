// Package planner implements the look-ahead motion planner: a ring buffer of
// linear motion blocks that is continuously recomputed, backwards then
// forwards, for optimal junction entry velocities under acceleration and
// junction-deviation constraints.
package planner

import (
	"gogrbl/standalone"
	"gogrbl/standalone/kinematics"
)

// Planner is the public entry point the gcode interpreter and realtime
// supervisor call into (§4.1).
type Planner struct {
	*Ring
}

// NewPlanner builds a planner for the given machine configuration and
// kinematics transform.
func NewPlanner(cfg *standalone.MachineConfig, kin kinematics.Kinematics) *Planner {
	return &Planner{Ring: NewRing(cfg, kin)}
}

// Reset empties the ring and clears the tracked junction state, used by the
// realtime supervisor's reset handler.
func (p *Planner) Reset() {
	p.Ring.tail = 0
	p.Ring.head = 0
	p.Ring.next = 1
	p.Ring.haveLast = false
}
