package controller

import (
	"strings"
	"testing"

	"gogrbl/core"
	"gogrbl/standalone"
	"gogrbl/standalone/realtime"
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
func (m *mockSpindle) Start(cw bool) error              { m.state.Enabled = true; m.state.CW = cw; return nil }
func (m *mockSpindle) Stop() error                      { m.state.Enabled = false; return nil }
func (m *mockSpindle) SetPWM(duty uint8) error          { m.state.PWM = duty; return nil }
func (m *mockSpindle) GetState() core.SpindleState      { return m.state }

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
func (m *mockLimit) SetEnabled(on bool) error         { return nil }
func (m *mockLimit) GetState() core.LimitMask         { return m.state }
func (m *mockLimit) OnChange(cb func(core.LimitMask)) { m.cb = cb }

type mockProbe struct{ triggered bool }

func (m *mockProbe) Init() error    { return nil }
func (m *mockProbe) GetState() bool { return m.triggered }

type mockStore struct{ mem map[uint32]byte }

func (m *mockStore) Init() error                        { return nil }
func (m *mockStore) ReadByte(addr uint32) (byte, error)  { return m.mem[addr], nil }
func (m *mockStore) WriteByte(addr uint32, v byte) error { m.mem[addr] = v; return nil }

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

func newTestController(t *testing.T) *Controller {
	t.Helper()
	core.SetGPIODriver(&mockGPIO{pins: make(map[core.GPIOPin]bool)})
	core.SetSpindleDriver(&mockSpindle{})
	core.SetCoolantDriver(&mockCoolant{})
	core.SetLimitDriver(&mockLimit{})
	core.SetProbeDriver(&mockProbe{})
	core.SetStoreDriver(&mockStore{mem: make(map[uint32]byte)})
	core.SetTime(0)

	c, err := NewControllerWithConfig(testConfig())
	if err != nil {
		t.Fatalf("NewControllerWithConfig: %v", err)
	}
	return c
}

func feedLine(c *Controller, line string) {
	for i := 0; i < len(line); i++ {
		c.Feed(line[i])
	}
	c.Feed('\n')
}

func TestFeedLineReturnsOkOnSuccess(t *testing.T) {
	c := newTestController(t)
	feedLine(c, "G1 X-10 F100")

	out := string(c.Output())
	if !strings.Contains(out, "ok\r\n") {
		t.Errorf("expected an ok response, got %q", out)
	}
}

func TestFeedLineReturnsErrorOnSoftLimitViolation(t *testing.T) {
	c := newTestController(t)
	feedLine(c, "G1 X-10000 F100")

	out := string(c.Output())
	if !strings.Contains(out, "error:") {
		t.Errorf("expected an error response, got %q", out)
	}
}

// A realtime byte arriving mid-line must be acted on immediately without
// being folded into the line under construction.
func TestRealtimeByteMidLineDoesNotCorruptTheLine(t *testing.T) {
	c := newTestController(t)
	c.Feed('G')
	c.Feed('1')
	c.Feed(' ')
	c.Feed('?') // status report, intercepted out of band
	c.Feed('X')
	c.Feed('0')
	c.Feed('\n')

	out := string(c.Output())
	if !strings.Contains(out, "ok\r\n") {
		t.Errorf("the line G1 X0 should still parse and execute cleanly, got %q", out)
	}
}

func TestSoftResetByteSetsExecReset(t *testing.T) {
	c := newTestController(t)
	c.Feed(0x18)
	if !c.sv.Sys.TestAndClearExec(realtime.ExecReset) {
		t.Errorf("soft-reset byte 0x18 should set ExecReset")
	}
}

func TestStatusReportByteQueuesAReportFrame(t *testing.T) {
	c := newTestController(t)
	c.Feed('?')
	c.Service()

	out := string(c.Output())
	if !strings.HasPrefix(out, "<") {
		t.Errorf("expected a status report frame, got %q", out)
	}
}

// Feed hold (!) followed by cycle start (~) must take the machine from
// Cycle to Hold and back to Cycle.
func TestFeedHoldThenCycleStartResumes(t *testing.T) {
	c := newTestController(t)
	feedLine(c, "G1 X-10 F500")
	c.Output()
	c.sv.Sys.SetState(realtime.StateCycle)

	c.Feed('!')
	c.Service()
	if c.sv.Sys.State() != realtime.StateHold {
		t.Fatalf("feed hold should enter Hold, got %v", c.sv.Sys.State())
	}

	c.Feed('~')
	c.Service()
	if c.sv.Sys.State() != realtime.StateCycle {
		t.Errorf("cycle start should resume Cycle, got %v", c.sv.Sys.State())
	}
}

func TestSpindleStopToggleByteStopsRunningSpindle(t *testing.T) {
	c := newTestController(t)
	spindle := &mockSpindle{}
	core.SetSpindleDriver(spindle)
	spindle.state.Enabled = true

	c.Feed(0x98)
	c.Service()

	if spindle.state.Enabled {
		t.Errorf("0x98 should toggle a running spindle off")
	}
}

func TestCoolantToggleBytesFlipIndependently(t *testing.T) {
	c := newTestController(t)
	coolant := &mockCoolant{}
	core.SetCoolantDriver(coolant)

	c.Feed(0x9E)
	c.Service()
	if !coolant.flood {
		t.Errorf("0x9E should toggle flood coolant on")
	}

	c.Feed(0x9F)
	c.Service()
	if !coolant.mist {
		t.Errorf("0x9F should toggle mist coolant on")
	}
}

// G4 must actually hold the line's "ok" until the requested duration has
// elapsed, and must not process a line fed in while the dwell is pending
// until the dwell completes.
func TestG4DwellDefersAckUntilDurationElapses(t *testing.T) {
	c := newTestController(t)
	feedLine(c, "G4 P0.001") // 1ms dwell

	if out := c.Output(); len(out) != 0 {
		t.Fatalf("dwell must not ack immediately, got %q", out)
	}

	c.Service() // sync phase: planner/stepper already idle, arms the deadline
	if out := c.Output(); len(out) != 0 {
		t.Fatalf("dwell must not ack before its deadline, got %q", out)
	}

	feedLine(c, "G1 X-1 F100") // queued behind the dwell; must not run yet
	if out := c.Output(); len(out) != 0 {
		t.Fatalf("a line fed mid-dwell must not be processed yet, got %q", out)
	}

	core.SetTime(core.GetTime() + core.TimerFromUS(2000)) // past the 1ms deadline
	c.Service()

	out := string(c.Output())
	if !strings.Contains(out, "ok\r\n") {
		t.Fatalf("expected the dwell's ok once the deadline passed, got %q", out)
	}
}

func TestGreetingReportsVersionFrame(t *testing.T) {
	c := newTestController(t)
	if g := c.Greeting(); !strings.HasPrefix(g, "[VER:") {
		t.Errorf("Greeting: got %q", g)
	}
}
