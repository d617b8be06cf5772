// Package controller assembles the planner/preparer/stepper pipeline and the
// realtime supervisor into one Controller: the top-level standalone-mode
// machine a serial HAL or test harness feeds bytes into (§6 "EXTERNAL
// INTERFACES"). It lives outside package standalone itself because every
// pipeline stage (gcode, planner, segment, stepgen, realtime, config)
// imports standalone for the shared MachineConfig/Position/GCodeCommand
// types; a Controller built from all of them can't live in that same
// package without an import cycle.
package controller

import (
	"strconv"
	"strings"

	"gogrbl/core"
	"gogrbl/protocol"
	"gogrbl/standalone"
	"gogrbl/standalone/config"
	"gogrbl/standalone/gcode"
	"gogrbl/standalone/kinematics"
	"gogrbl/standalone/planner"
	"gogrbl/standalone/realtime"
	"gogrbl/standalone/segment"
	"gogrbl/standalone/stepgen"
)

// dwellPhase tracks a G4 dwell in flight across Service() calls, mirroring
// the two steps of the reference mc_dwell: first sync (wait for the
// pipeline to drain), then hold for the requested duration.
type dwellPhase uint8

const (
	dwellIdle dwellPhase = iota
	dwellSyncing
	dwellCounting
)

// Controller is the top-level standalone-mode machine. It owns the full
// planner/preparer/stepper pipeline and the realtime supervisor.
type Controller struct {
	cfg    *standalone.MachineConfig
	kin    kinematics.Kinematics
	plan   *planner.Planner
	prep   *segment.Preparer
	step   *stepgen.Core
	sv     *realtime.Supervisor
	parser *gcode.Parser
	interp *gcode.Interpreter

	line protocol.LineBuffer
	out  []byte

	lastAlarm realtime.AlarmCode

	dwell         dwellPhase
	dwellSeconds  float64
	dwellDeadline uint32
	pendingLine   string
	hasPending    bool
}

// NewController parses configData (§5 machine-configuration document) and
// builds a fresh Controller around it.
func NewController(configData []byte) (*Controller, error) {
	cfg, err := config.Load(configData)
	if err != nil {
		return nil, err
	}
	return NewControllerWithConfig(cfg)
}

// NewControllerWithConfig builds a Controller around an already-loaded
// configuration, wiring kinematics through to the planner, preparer,
// stepper core, and realtime supervisor exactly as §4 lays the pipeline
// out: planner ring -> segment preparer -> stepper core, supervised by
// realtime.Supervisor.
func NewControllerWithConfig(cfg *standalone.MachineConfig) (*Controller, error) {
	kin, err := kinematics.New(cfg)
	if err != nil {
		return nil, err
	}

	plan := planner.NewPlanner(cfg, kin)
	segs := segment.NewRing()
	prep := segment.NewPreparer(plan, segs, cfg)
	step := stepgen.NewCore(cfg, segs)
	sv := realtime.NewSupervisor(cfg, kin, plan, prep, step)
	sv.WireHardLimits()
	interp := gcode.NewInterpreter(cfg, plan, sv)

	return &Controller{
		cfg:    cfg,
		kin:    kin,
		plan:   plan,
		prep:   prep,
		step:   step,
		sv:     sv,
		parser: gcode.NewParser(),
		interp: interp,
		out:    make([]byte, 0, 256),
	}, nil
}

// Feed accepts one byte of the incoming serial stream. Realtime bytes
// (§6's interception table) are dispatched immediately against the
// supervisor's flag words; every other byte accumulates into the 80-byte
// line buffer and is parsed/executed once a line terminator arrives.
func (c *Controller) Feed(b byte) {
	if protocol.IsRealtimeByte(b) {
		c.feedRealtime(b)
		return
	}

	line, ready := c.line.PushByte(b)
	if !ready {
		return
	}
	if c.line.Overflow() {
		c.writeLine("error:overflow")
		return
	}

	text := strings.TrimRight(string(line), " \t")
	if c.dwell != dwellIdle {
		// Mirrors the reference firmware not reading its next line until
		// mc_dwell returns: the host's next line sits buffered until this
		// dwell completes.
		c.pendingLine = text
		c.hasPending = true
		return
	}
	c.processLine(text)
}

// feedRealtime dispatches one intercepted realtime byte to the System's
// flag words (§4.4 / §6). It never touches the line buffer.
func (c *Controller) feedRealtime(b byte) {
	sys := c.sv.Sys
	switch b {
	case protocol.CmdSoftReset:
		sys.SetExec(realtime.ExecReset)
	case protocol.CmdStatusReport:
		sys.SetExec(realtime.ExecStatusReport)
	case protocol.CmdCycleStart:
		sys.SetExec(realtime.ExecCycleStart)
	case protocol.CmdFeedHold:
		sys.SetExec(realtime.ExecFeedHold)
	case protocol.CmdSafetyDoor:
		sys.SetExec(realtime.ExecSafetyDoor)
	case protocol.CmdJogCancel:
		sys.SetExec(realtime.ExecMotionCancel)

	case protocol.CmdOverrideFeedReset:
		sys.SetMotionOverride(realtime.OverrideFeedReset)
	case protocol.CmdOverrideFeedCoarsePlus:
		sys.SetMotionOverride(realtime.OverrideFeedCoarsePlus)
	case protocol.CmdOverrideFeedCoarseMinus:
		sys.SetMotionOverride(realtime.OverrideFeedCoarseMinus)
	case protocol.CmdOverrideFeedFinePlus:
		sys.SetMotionOverride(realtime.OverrideFeedFinePlus)
	case protocol.CmdOverrideFeedFineMinus:
		sys.SetMotionOverride(realtime.OverrideFeedFineMinus)
	case protocol.CmdOverrideRapidFull:
		sys.SetMotionOverride(realtime.OverrideRapidFull)
	case protocol.CmdOverrideRapidMedium:
		sys.SetMotionOverride(realtime.OverrideRapidMedium)
	case protocol.CmdOverrideRapidLow:
		sys.SetMotionOverride(realtime.OverrideRapidLow)

	case protocol.CmdOverrideSpindleStop:
		sys.SetAccessoryOverride(realtime.OverrideSpindleStopToggle)
	case protocol.CmdOverrideSpindleReset:
		sys.SetAccessoryOverride(realtime.OverrideSpindleReset)
	case protocol.CmdOverrideSpindleCoarsePlus:
		sys.SetAccessoryOverride(realtime.OverrideSpindleCoarsePlus)
	case protocol.CmdOverrideSpindleCoarseMinus:
		sys.SetAccessoryOverride(realtime.OverrideSpindleCoarseMinus)
	case protocol.CmdOverrideSpindleFinePlus:
		sys.SetAccessoryOverride(realtime.OverrideSpindleFinePlus)
	case protocol.CmdOverrideSpindleFineMinus:
		sys.SetAccessoryOverride(realtime.OverrideSpindleFineMinus)
	case protocol.CmdOverrideCoolantFlood:
		sys.SetAccessoryOverride(realtime.OverrideCoolantFloodToggle)
	case protocol.CmdOverrideCoolantMist:
		sys.SetAccessoryOverride(realtime.OverrideCoolantMistToggle)
	}
}

// processLine parses and executes one complete NC-program line, framing
// the outbound "ok"/"error:<n>" response per §6.
func (c *Controller) processLine(line string) {
	if line == "" {
		c.writeLine("ok")
		return
	}

	cmd, err := c.parser.ParseLine(line)
	if err != nil {
		c.writeLine("error:" + strconv.Itoa(errorCode(err)))
		return
	}
	if cmd == nil {
		c.writeLine("ok")
		return
	}

	if dwell := gcode.DwellSeconds(cmd); dwell > 0 {
		// mc_dwell (§6 G4): sync the pipeline first, then hold for the
		// requested duration before acking. serviceDwell() drives both
		// phases from Service(); the "ok" is deferred until it completes.
		c.dwellSeconds = dwell
		c.dwell = dwellSyncing
		return
	}

	if err := c.interp.Execute(cmd); err != nil {
		c.writeLine("error:" + strconv.Itoa(errorCode(err)))
		return
	}
	c.writeLine("ok")
}

// Service runs one iteration of the realtime supervisor (§4.4) and appends
// a status report or alarm frame to the outbound buffer if one is due.
// Callers drive this once per main-loop iteration, independent of Feed.
func (c *Controller) Service() {
	c.sv.Service()
	c.serviceDwell()

	if c.sv.Sys.TestAndClearExec(realtime.ExecStatusReport) {
		c.writeLine(c.sv.Report())
	}

	if alarm := c.sv.Sys.Alarm(); alarm != c.lastAlarm {
		c.lastAlarm = alarm
		if alarm != realtime.AlarmNone {
			c.writeLine(realtime.AlarmFrame(alarm))
		}
	}
}

// Output returns any bytes queued for the host and clears the buffer.
func (c *Controller) Output() []byte {
	if len(c.out) == 0 {
		return nil
	}
	out := make([]byte, len(c.out))
	copy(out, c.out)
	c.out = c.out[:0]
	return out
}

// Greeting returns the power-on banner (§6 "[VER:...]").
func (c *Controller) Greeting() string {
	return realtime.VersionFrame()
}

func (c *Controller) writeLine(s string) {
	c.out = append(c.out, s...)
	c.out = append(c.out, '\r', '\n')
}

// serviceDwell advances a G4 dwell in progress (§6, mc_dwell). The sync
// phase waits for the planner and stepper core to drain exactly as
// protocol_buffer_synchronize does; once drained, it arms a deadline and
// switches to counting. On expiry it acks the line that requested the
// dwell and resumes whatever line the host sent while it was waiting.
func (c *Controller) serviceDwell() {
	switch c.dwell {
	case dwellSyncing:
		if !c.plan.Empty() || c.step.Running() {
			return
		}
		us := c.dwellSeconds * 1e6
		if us > float64(^uint32(0)) {
			us = float64(^uint32(0))
		}
		c.dwellDeadline = core.GetTime() + core.TimerFromUS(uint32(us))
		c.dwell = dwellCounting
	case dwellCounting:
		if int32(core.GetTime()-c.dwellDeadline) < 0 {
			return
		}
		c.dwell = dwellIdle
		c.writeLine("ok")
		if c.hasPending {
			c.hasPending = false
			line := c.pendingLine
			c.pendingLine = ""
			c.processLine(line)
		}
	}
}

// errorCode classifies an error returned by the parser or interpreter into
// a numeric code for the "error:<n>\r\n" frame. This is deliberately a
// small, coarse table rather than a full reimplementation of every error
// grbl enumerates; unrecognized errors fall back to a generic code.
func errorCode(err error) int {
	msg := err.Error()
	switch {
	case strings.Contains(msg, "planner buffer full"):
		return 9
	case strings.Contains(msg, "soft limit"):
		return 10
	case strings.Contains(msg, "unknown coordinate system"):
		return 59
	case strings.Contains(msg, "probe cycle rejected"):
		return 11
	case strings.Contains(msg, "unsupported"):
		return 3
	default:
		return 1
	}
}

// Sys exposes the realtime System for callers (e.g. a host bridge) that
// need direct read access to machine state outside of Feed/Service.
func (c *Controller) Sys() *realtime.System { return c.sv.Sys }
