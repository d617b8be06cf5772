package kinematics

import "gogrbl/standalone"

// cartesian is a direct 1:1 mapping between Cartesian and motor space.
type cartesian struct {
	cfg *standalone.MachineConfig
}

func (k *cartesian) ToMotor(pos standalone.Position) standalone.Position     { return pos }
func (k *cartesian) ToCartesian(motor standalone.Position) standalone.Position { return motor }

func (k *cartesian) CheckTravel(pos standalone.Position) error {
	for i := 0; i < standalone.NumAxis; i++ {
		max := k.cfg.Axes[i].MaxTravel
		if pos[i] > 0 || pos[i] < -max {
			return errTravel
		}
	}
	return nil
}

func (k *cartesian) Limits(unit standalone.Position) (rate, accel float64) {
	return projectLimits(k.cfg, unit)
}

var errTravel = travelError{}

type travelError struct{}

func (travelError) Error() string { return "kinematics: target exceeds soft travel limit" }
