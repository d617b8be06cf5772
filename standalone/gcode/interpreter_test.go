package gcode

import (
	"testing"

	"gogrbl/core"
	"gogrbl/standalone"
	"gogrbl/standalone/kinematics"
	"gogrbl/standalone/planner"
	"gogrbl/standalone/realtime"
	"gogrbl/standalone/segment"
	"gogrbl/standalone/settings"
	"gogrbl/standalone/stepgen"
)

type mockGPIO struct{ pins map[core.GPIOPin]bool }

func (m *mockGPIO) ConfigureOutput(pin core.GPIOPin) error        { return nil }
func (m *mockGPIO) ConfigureInputPullUp(pin core.GPIOPin) error   { return nil }
func (m *mockGPIO) ConfigureInputPullDown(pin core.GPIOPin) error { return nil }
func (m *mockGPIO) SetPin(pin core.GPIOPin, v bool) error         { m.pins[pin] = v; return nil }
func (m *mockGPIO) GetPin(pin core.GPIOPin) (bool, error)         { return m.pins[pin], nil }
func (m *mockGPIO) ReadPin(pin core.GPIOPin) bool                 { return m.pins[pin] }

type mockSpindle struct{ state core.SpindleState }

func (m *mockSpindle) Init(mode core.SpindleMode) error { return nil }
func (m *mockSpindle) Start(cw bool) error {
	m.state.Enabled = true
	m.state.CW = cw
	return nil
}
func (m *mockSpindle) Stop() error                { m.state.Enabled = false; return nil }
func (m *mockSpindle) SetPWM(duty uint8) error     { m.state.PWM = duty; return nil }
func (m *mockSpindle) GetState() core.SpindleState { return m.state }

type mockCoolant struct{ flood, mist bool }

func (m *mockCoolant) Init() error            { return nil }
func (m *mockCoolant) StartFlood() error      { m.flood = true; return nil }
func (m *mockCoolant) StartMist() error       { m.mist = true; return nil }
func (m *mockCoolant) StopFlood() error       { m.flood = false; return nil }
func (m *mockCoolant) StopMist() error        { m.mist = false; return nil }
func (m *mockCoolant) GetState() (bool, bool) { return m.flood, m.mist }

type mockLimit struct {
	state core.LimitMask
	cb    func(core.LimitMask)
}

func (m *mockLimit) Init() error                      { return nil }
func (m *mockLimit) SetEnabled(on bool) error          { return nil }
func (m *mockLimit) GetState() core.LimitMask          { return m.state }
func (m *mockLimit) OnChange(cb func(core.LimitMask)) { m.cb = cb }

type mockProbe struct{ triggered bool }

func (m *mockProbe) Init() error    { return nil }
func (m *mockProbe) GetState() bool { return m.triggered }

type mockStore struct{ mem map[uint32]byte }

func (m *mockStore) Init() error { return nil }
func (m *mockStore) ReadByte(addr uint32) (byte, error) { return m.mem[addr], nil }
func (m *mockStore) WriteByte(addr uint32, val byte) error {
	m.mem[addr] = val
	return nil
}

func testConfig() *standalone.MachineConfig {
	cfg := &standalone.MachineConfig{
		Kinematics:          "cartesian",
		JunctionDeviation:   0.01,
		DefaultFeedRate:     500,
		MinFeedRate:         1,
		PulseMicroseconds:   4,
		StepperIdleLockTime: 25,
		HomingLocateCycles:  1,
	}
	for i := range cfg.Axes {
		cfg.Axes[i] = standalone.AxisConfig{
			StepsPerMM:     80,
			MaxRate:        3000,
			MaxAccel:       100,
			MaxTravel:      300,
			HomingSeekRate: 1000,
			HomingFeedRate: 100,
			HomingPulloff:  5,
			HomingDir:      -1,
		}
	}
	return cfg
}

func newTestInterpreter(t *testing.T) (*Interpreter, *mockSpindle, *mockCoolant) {
	t.Helper()
	core.SetGPIODriver(&mockGPIO{pins: make(map[core.GPIOPin]bool)})
	spindle := &mockSpindle{}
	core.SetSpindleDriver(spindle)
	coolant := &mockCoolant{}
	core.SetCoolantDriver(coolant)
	core.SetLimitDriver(&mockLimit{})
	core.SetProbeDriver(&mockProbe{})
	core.SetStoreDriver(&mockStore{mem: make(map[uint32]byte)})

	cfg := testConfig()
	kin, err := kinematics.New(cfg)
	if err != nil {
		t.Fatalf("kinematics.New: %v", err)
	}
	plan := planner.NewPlanner(cfg, kin)
	segs := segment.NewRing()
	prep := segment.NewPreparer(plan, segs, cfg)
	step := stepgen.NewCore(cfg, segs)
	sv := realtime.NewSupervisor(cfg, kin, plan, prep, step)

	return NewInterpreter(cfg, plan, sv), spindle, coolant
}

func mustParse(t *testing.T, p *Parser, line string) *standalone.GCodeCommand {
	t.Helper()
	cmd, err := p.ParseLine(line)
	if err != nil {
		t.Fatalf("ParseLine(%q): %v", line, err)
	}
	if cmd == nil {
		t.Fatalf("ParseLine(%q): nil command", line)
	}
	return cmd
}

func TestRapidMoveQueuesBlockAndAdvancesPosition(t *testing.T) {
	interp, _, _ := newTestInterpreter(t)
	p := NewParser()

	cmd := mustParse(t, p, "G0 X-10 Y-20 Z-5")
	if err := interp.Execute(cmd); err != nil {
		t.Fatalf("Execute: %v", err)
	}

	want := standalone.Position{-10, -20, -5}
	if interp.position != want {
		t.Errorf("got %v want %v", interp.position, want)
	}
}

func TestRelativeModeAccumulatesFromLastPosition(t *testing.T) {
	interp, _, _ := newTestInterpreter(t)
	p := NewParser()

	interp.Execute(mustParse(t, p, "G91"))
	interp.Execute(mustParse(t, p, "G1 X-10 F100"))
	interp.Execute(mustParse(t, p, "G1 X-10 F100"))

	if interp.position[standalone.AxisX] != -20 {
		t.Errorf("got %v want -20", interp.position[standalone.AxisX])
	}
}

func TestSoftLimitRejectsMoveBeyondTravel(t *testing.T) {
	interp, _, _ := newTestInterpreter(t)
	p := NewParser()

	err := interp.Execute(mustParse(t, p, "G1 X1000 F100"))
	if err == nil {
		t.Fatalf("expected a soft-limit rejection")
	}
}

func TestG92SetsPositionWithoutQueuingMotion(t *testing.T) {
	interp, _, _ := newTestInterpreter(t)
	p := NewParser()

	interp.Execute(mustParse(t, p, "G92 X0 Y0 Z0"))
	if interp.position != (standalone.Position{}) {
		t.Errorf("expected zero position after G92, got %v", interp.position)
	}
}

func TestSpindleOnOffCommands(t *testing.T) {
	interp, spindle, _ := newTestInterpreter(t)
	p := NewParser()

	interp.Execute(mustParse(t, p, "M3 S12000"))
	if !spindle.state.Enabled || !spindle.state.CW {
		t.Errorf("M3 should start the spindle clockwise")
	}

	interp.Execute(mustParse(t, p, "M5"))
	if spindle.state.Enabled {
		t.Errorf("M5 should stop the spindle")
	}
}

func TestCoolantCommands(t *testing.T) {
	interp, _, coolant := newTestInterpreter(t)
	p := NewParser()

	interp.Execute(mustParse(t, p, "M8"))
	if !coolant.flood {
		t.Errorf("M8 should start flood coolant")
	}

	interp.Execute(mustParse(t, p, "M9"))
	if coolant.flood {
		t.Errorf("M9 should stop flood coolant")
	}
}

func TestDwellSecondsOnlyAppliesToG4(t *testing.T) {
	p := NewParser()

	dwell := mustParse(t, p, "G4 P1.5")
	if got := DwellSeconds(dwell); got != 1.5 {
		t.Errorf("got %v want 1.5", got)
	}

	move := mustParse(t, p, "G1 X10 F100")
	if got := DwellSeconds(move); got != 0 {
		t.Errorf("DwellSeconds on a non-dwell command should be 0, got %v", got)
	}
}

func TestHomeWithNoAxisWordsHomesEverything(t *testing.T) {
	interp, _, _ := newTestInterpreter(t)
	p := NewParser()

	interp.Execute(mustParse(t, p, "G28"))

	if interp.sv.Sys.State() != realtime.StateHoming {
		t.Errorf("G28 should enter the homing cycle, got %v", interp.sv.Sys.State())
	}
	if interp.position != (standalone.Position{}) {
		t.Errorf("expected position reset after G28, got %v", interp.position)
	}
}

func TestHomeWithAxisWordHomesOnlyThatAxis(t *testing.T) {
	interp, _, _ := newTestInterpreter(t)
	p := NewParser()

	interp.Execute(mustParse(t, p, "G28 X0"))

	if interp.sv.Sys.State() != realtime.StateHoming {
		t.Errorf("G28 X0 should enter the homing cycle, got %v", interp.sv.Sys.State())
	}
}

func TestProbeTowardFaultsOnRejection(t *testing.T) {
	interp, _, _ := newTestInterpreter(t)
	p := NewParser()
	core.SetProbeDriver(&mockProbe{triggered: true}) // already triggered: G38.2 rejects

	err := interp.Execute(mustParse(t, p, "G38.2 Z-10 F50"))
	if err == nil {
		t.Fatalf("expected the probe cycle to be rejected")
	}
}

// Selecting a work coordinate system must load its persisted offset and
// apply it to subsequent absolute moves.
func TestCoordSystemSelectLoadsPersistedOffset(t *testing.T) {
	interp, _, _ := newTestInterpreter(t)
	p := NewParser()

	if err := settings.SaveCoordOffset(1, standalone.Position{-5, -10, 0}); err != nil {
		t.Fatalf("SaveCoordOffset: %v", err)
	}

	if err := interp.Execute(mustParse(t, p, "G55")); err != nil {
		t.Fatalf("G55: %v", err)
	}
	if interp.coordOffset != (standalone.Position{-5, -10, 0}) {
		t.Errorf("coordOffset after G55: got %v want {-5 -10 0}", interp.coordOffset)
	}

	interp.Execute(mustParse(t, p, "G1 X0 Y0 F100"))
	if interp.position != (standalone.Position{-5, -10, 0}) {
		t.Errorf("absolute move to X0 Y0 under G55 offset: got %v want {-5 -10 0}", interp.position)
	}
}

// G59.1/.2/.3 sub-codes must select distinct coordinate systems from
// G54..G59, not alias onto them.
func TestCoordSystemSelectG59SubCodes(t *testing.T) {
	interp, _, _ := newTestInterpreter(t)
	p := NewParser()

	if err := settings.SaveCoordOffset(6, standalone.Position{1, 0, 0}); err != nil {
		t.Fatalf("SaveCoordOffset: %v", err)
	}
	if err := settings.SaveCoordOffset(8, standalone.Position{0, 0, 3}); err != nil {
		t.Fatalf("SaveCoordOffset: %v", err)
	}

	if err := interp.Execute(mustParse(t, p, "G59.1")); err != nil {
		t.Fatalf("G59.1: %v", err)
	}
	if interp.coordOffset != (standalone.Position{1, 0, 0}) {
		t.Errorf("coordOffset after G59.1: got %v want {1 0 0}", interp.coordOffset)
	}

	if err := interp.Execute(mustParse(t, p, "G59.3")); err != nil {
		t.Fatalf("G59.3: %v", err)
	}
	if interp.coordOffset != (standalone.Position{0, 0, 3}) {
		t.Errorf("coordOffset after G59.3: got %v want {0 0 3}", interp.coordOffset)
	}
}

// An unset coordinate system (no prior Save) must default to the machine
// origin rather than erroring.
func TestCoordSystemSelectDefaultsToOriginWhenUnset(t *testing.T) {
	interp, _, _ := newTestInterpreter(t)
	p := NewParser()

	if err := interp.Execute(mustParse(t, p, "G54")); err != nil {
		t.Fatalf("G54: %v", err)
	}
	if interp.coordOffset != (standalone.Position{}) {
		t.Errorf("coordOffset for a virgin G54: got %v want zero", interp.coordOffset)
	}
}

func TestProbeAwayAcceptsWhenTriggered(t *testing.T) {
	interp, _, _ := newTestInterpreter(t)
	p := NewParser()
	core.SetProbeDriver(&mockProbe{triggered: true}) // away-probe expects triggered at the start

	err := interp.Execute(mustParse(t, p, "G38.4 Z10 F50"))
	if err != nil {
		t.Fatalf("G38.4 should be accepted when the probe starts triggered: %v", err)
	}
	if interp.sv.Sys.State() != realtime.StateCycle {
		t.Errorf("got %v want Cycle", interp.sv.Sys.State())
	}
}
