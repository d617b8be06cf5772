// Package kinematics converts between the machine's Cartesian work position
// and the motor-space coordinates the planner and stepper core step in, and
// projects the per-axis rate/accel/travel limits of standalone.MachineConfig
// onto an arbitrary unit travel vector.
package kinematics

import (
	"errors"
	"math"

	"gogrbl/standalone"
)

// Kinematics converts Cartesian <-> motor space and derives the per-block
// kinematic limits (§3, §4.1) a travel vector is allowed to run at.
type Kinematics interface {
	// ToMotor converts a Cartesian position to motor-space coordinates.
	ToMotor(pos standalone.Position) standalone.Position

	// ToCartesian converts motor-space coordinates back to Cartesian.
	ToCartesian(motor standalone.Position) standalone.Position

	// CheckTravel reports whether a Cartesian position lies within the
	// configured soft-limit envelope.
	CheckTravel(pos standalone.Position) error

	// Limits projects the per-axis rate/accel ceilings onto unit, the
	// unit travel vector of a commanded move, returning the move's
	// rapid-rate ceiling (mm/min) and acceleration ceiling (mm/min^2).
	Limits(unit standalone.Position) (rate, accel float64)
}

// New builds the Kinematics implementation named by cfg.Kinematics.
func New(cfg *standalone.MachineConfig) (Kinematics, error) {
	switch cfg.Kinematics {
	case "", "cartesian":
		return &cartesian{cfg: cfg}, nil
	case "corexy":
		return &coreXY{cfg: cfg}, nil
	default:
		return nil, errors.New("kinematics: unknown type " + cfg.Kinematics)
	}
}

// projectLimits implements the standard Grbl per-axis limit projection: the
// move's rate/accel ceiling is the minimum, over every axis with a nonzero
// component, of that axis's own ceiling divided by its unit-vector
// component. An axis that isn't moving imposes no constraint.
func projectLimits(cfg *standalone.MachineConfig, unit standalone.Position) (rate, accel float64) {
	rate = math.MaxFloat64
	accel = math.MaxFloat64
	for i := 0; i < standalone.NumAxis; i++ {
		c := math.Abs(unit[i])
		if c < 1e-12 {
			continue
		}
		if r := cfg.Axes[i].MaxRate / c; r < rate {
			rate = r
		}
		if a := cfg.Axes[i].MaxAccel / c; a < accel {
			accel = a
		}
	}
	return rate, accel
}
