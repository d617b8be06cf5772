package gcode

import (
	"errors"

	"gogrbl/core"
	"gogrbl/standalone"
	"gogrbl/standalone/planner"
	"gogrbl/standalone/realtime"
	"gogrbl/standalone/settings"
)

// Interpreter walks parsed NC-program lines, tracks modal state (absolute/
// relative, active work coordinate system), and turns G0/G1/G4/G28/
// G38.2/G92/M3-M9 into calls against the planner and realtime supervisor.
type Interpreter struct {
	cfg  *standalone.MachineConfig
	plan *planner.Planner
	sv   *realtime.Supervisor

	position     standalone.Position // last commanded target, machine mm
	absoluteMode bool
	feedRate     float64
	spindleSpeed float64
	spindleCW    bool

	coordOffset standalone.Position // active work coordinate system offset
	lineNumber  int
}

// NewInterpreter builds an interpreter bound to the planner and supervisor
// of one machine.
func NewInterpreter(cfg *standalone.MachineConfig, plan *planner.Planner, sv *realtime.Supervisor) *Interpreter {
	return &Interpreter{
		cfg:          cfg,
		plan:         plan,
		sv:           sv,
		absoluteMode: true,
		feedRate:     cfg.DefaultFeedRate,
	}
}

// Execute applies one parsed command, queuing motion or driving the
// realtime supervisor as appropriate.
func (interp *Interpreter) Execute(cmd *standalone.GCodeCommand) error {
	if cmd == nil {
		return nil
	}
	interp.lineNumber = cmd.LineNumber

	switch cmd.Type {
	case 'G':
		return interp.executeG(cmd)
	case 'M':
		return interp.executeM(cmd)
	}
	return nil
}

func (interp *Interpreter) executeG(cmd *standalone.GCodeCommand) error {
	switch cmd.Number {
	case 0:
		return interp.doLinearMove(cmd, true)
	case 1:
		return interp.doLinearMove(cmd, false)
	case 4:
		// Dwell: handled by the caller's scheduling loop via DwellSeconds;
		// the interpreter itself holds no timer.
		return nil
	case 28:
		return interp.doHome(cmd)
	case 382, 383, 384, 385:
		return interp.doProbe(cmd)
	case 90:
		interp.absoluteMode = true
	case 91:
		interp.absoluteMode = false
	case 92:
		return interp.doSetPosition(cmd)
	case 54, 55, 56, 57, 58, 59, 591, 592, 593:
		return interp.doSelectCoordSystem(cmd)
	}
	return nil
}

func (interp *Interpreter) executeM(cmd *standalone.GCodeCommand) error {
	switch cmd.Number {
	case 3: // M3 - spindle on, clockwise
		return interp.doSpindle(cmd, true)
	case 4: // M4 - spindle on, counterclockwise
		return interp.doSpindle(cmd, false)
	case 5: // M5 - spindle off
		interp.spindleSpeed = 0
		return core.MustSpindle().Stop()
	case 7: // M7 - mist coolant on
		return core.MustCoolant().StartMist()
	case 8: // M8 - flood coolant on
		return core.MustCoolant().StartFlood()
	case 9: // M9 - coolant off
		if err := core.MustCoolant().StopFlood(); err != nil {
			return err
		}
		return core.MustCoolant().StopMist()
	}
	return nil
}

// DwellSeconds returns the dwell duration of a G4 command, or 0 if cmd
// isn't a dwell. Exposed separately since dwelling blocks the caller's
// line-feed loop rather than the planner.
func DwellSeconds(cmd *standalone.GCodeCommand) float64 {
	if cmd == nil || cmd.Type != 'G' || cmd.Number != 4 {
		return 0
	}
	return cmd.GetParameter('P', 0)
}

func (interp *Interpreter) doSpindle(cmd *standalone.GCodeCommand, cw bool) error {
	interp.spindleCW = cw
	if cmd.HasParameter('S') {
		interp.spindleSpeed = cmd.GetParameter('S', 0)
	}
	return core.MustSpindle().Start(cw)
}

func (interp *Interpreter) targetFromParams(cmd *standalone.GCodeCommand) standalone.Position {
	target := interp.position
	for axis, letter := range [standalone.NumAxis]byte{standalone.AxisX: 'X', standalone.AxisY: 'Y', standalone.AxisZ: 'Z'} {
		if !cmd.HasParameter(letter) {
			continue
		}
		v := cmd.GetParameter(letter, 0)
		if interp.absoluteMode {
			target[axis] = v + interp.coordOffset[axis]
		} else {
			target[axis] = interp.position[axis] + v
		}
	}
	return target
}

func (interp *Interpreter) doLinearMove(cmd *standalone.GCodeCommand, rapid bool) error {
	target := interp.targetFromParams(cmd)

	if cmd.HasParameter('F') {
		interp.feedRate = cmd.GetParameter('F', interp.feedRate)
	}

	if err := interp.sv.CheckSoftLimits(target); err != nil {
		return err
	}

	cond := standalone.ConditionFlags(0)
	if rapid {
		cond |= standalone.CondRapid
	}
	if interp.spindleSpeed > 0 {
		if interp.spindleCW {
			cond |= standalone.CondSpindleCW
		} else {
			cond |= standalone.CondSpindleCCW
		}
	}

	result := interp.plan.Enqueue(target, planner.EnqueueData{
		FeedRate:     interp.feedRate,
		SpindleSpeed: interp.spindleSpeed,
		Condition:    cond,
		LineNumber:   interp.lineNumber,
	})
	switch result {
	case planner.Full:
		return errors.New("gcode: planner buffer full")
	case planner.EmptyBlock:
		return nil
	}

	interp.position = target
	return nil
}

func (interp *Interpreter) doSetPosition(cmd *standalone.GCodeCommand) error {
	for axis, letter := range [standalone.NumAxis]byte{standalone.AxisX: 'X', standalone.AxisY: 'Y', standalone.AxisZ: 'Z'} {
		if cmd.HasParameter(letter) {
			interp.position[axis] = cmd.GetParameter(letter, 0)
		}
	}
	return nil
}

// coordSystemIndex maps a G54-G59.3 command number to its store slot.
// The parser folds a sub-code decimal digit into cmd.Number (G59.1 -> 591),
// so G54..G59 land on 54..59 and G59.1..G59.3 land on 591..593.
func coordSystemIndex(number int) (int, bool) {
	switch {
	case number >= 54 && number <= 59:
		return number - 54, true
	case number >= 591 && number <= 593:
		return 6 + (number - 591), true
	}
	return 0, false
}

func (interp *Interpreter) doSelectCoordSystem(cmd *standalone.GCodeCommand) error {
	idx, ok := coordSystemIndex(cmd.Number)
	if !ok {
		return errors.New("gcode: unknown coordinate system")
	}
	offset, err := settings.LoadCoordOffset(idx)
	if err != nil {
		return err
	}
	interp.coordOffset = offset
	return nil
}

// doHome dispatches G28 to the realtime supervisor's homing cycle. With no
// axis words, every configured axis is homed.
func (interp *Interpreter) doHome(cmd *standalone.GCodeCommand) error {
	var mask realtime.AxisMask
	any := false
	for axis, letter := range [standalone.NumAxis]byte{standalone.AxisX: 'X', standalone.AxisY: 'Y', standalone.AxisZ: 'Z'} {
		if cmd.HasParameter(letter) {
			mask |= realtime.AxisMask(1) << uint(axis)
			any = true
		}
	}
	if !any {
		mask = (realtime.AxisMask(1) << uint(standalone.NumAxis)) - 1
	}
	interp.sv.HomingGo(mask)
	interp.position = standalone.Position{}
	return nil
}

// doProbe dispatches G38.2/G38.3/G38.4/G38.5 to the realtime supervisor's
// probe cycle. The parser folds the sub-code into cmd.Number (382..385).
// Sub-codes 2 and 4 fault if contact isn't made; 3 and 5 don't. Sub-codes
// 4 and 5 probe away from the switch instead of toward it.
func (interp *Interpreter) doProbe(cmd *standalone.GCodeCommand) error {
	away := cmd.Number == 384 || cmd.Number == 385
	noFault := cmd.Number == 383 || cmd.Number == 385

	target := interp.targetFromParams(cmd)
	if !interp.sv.Probe(target, away, noFault) {
		return errors.New("gcode: probe cycle rejected")
	}
	if interp.sv.Sys.ProbeSucceeded() {
		interp.position = target
	}
	return nil
}
