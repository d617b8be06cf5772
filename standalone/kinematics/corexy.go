package kinematics

import "gogrbl/standalone"

// coreXY implements the belt-coupled H-bot/CoreXY transform: motor A and B
// each move a combination of Cartesian X and Y, while Z stays direct-drive.
// A = X + Y, B = X - Y (and their inverse), matching the mapping used by
// the reference planner's optional kinematics hook.
type coreXY struct {
	cfg *standalone.MachineConfig
}

func (k *coreXY) ToMotor(pos standalone.Position) standalone.Position {
	var m standalone.Position
	m[standalone.AxisX] = pos[standalone.AxisX] + pos[standalone.AxisY]
	m[standalone.AxisY] = pos[standalone.AxisX] - pos[standalone.AxisY]
	m[standalone.AxisZ] = pos[standalone.AxisZ]
	return m
}

func (k *coreXY) ToCartesian(motor standalone.Position) standalone.Position {
	var p standalone.Position
	p[standalone.AxisX] = (motor[standalone.AxisX] + motor[standalone.AxisY]) / 2
	p[standalone.AxisY] = (motor[standalone.AxisX] - motor[standalone.AxisY]) / 2
	p[standalone.AxisZ] = motor[standalone.AxisZ]
	return p
}

func (k *coreXY) CheckTravel(pos standalone.Position) error {
	for i := 0; i < standalone.NumAxis; i++ {
		max := k.cfg.Axes[i].MaxTravel
		if pos[i] > 0 || pos[i] < -max {
			return errTravel
		}
	}
	return nil
}

// Limits projects the configured per-axis ceilings onto the Cartesian unit
// vector, same as direct-drive. The belt-coupling penalty on combined X+Y
// moves is left to the caller's acceleration tuning rather than modeled
// here, matching the teacher's reference cartesian-only projection.
func (k *coreXY) Limits(unit standalone.Position) (rate, accel float64) {
	return projectLimits(k.cfg, unit)
}
