package kinematics

import (
	"math"
	"testing"

	"gogrbl/standalone"
)

func testConfig(kind string) *standalone.MachineConfig {
	cfg := &standalone.MachineConfig{Kinematics: kind}
	for i := range cfg.Axes {
		cfg.Axes[i] = standalone.AxisConfig{
			StepsPerMM: 80,
			MaxRate:    3000,
			MaxAccel:   100,
			MaxTravel:  300,
		}
	}
	return cfg
}

func TestNewRejectsUnknownKinematics(t *testing.T) {
	_, err := New(&standalone.MachineConfig{Kinematics: "delta"})
	if err == nil {
		t.Fatalf("expected an error for an unrecognized kinematics name")
	}
}

func TestNewDefaultsEmptyNameToCartesian(t *testing.T) {
	k, err := New(testConfig(""))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, ok := k.(*cartesian); !ok {
		t.Errorf("empty Kinematics name should select cartesian, got %T", k)
	}
}

func TestCartesianToMotorIsIdentity(t *testing.T) {
	k, _ := New(testConfig("cartesian"))
	pos := standalone.Position{-10, -20, -5}
	if got := k.ToMotor(pos); got != pos {
		t.Errorf("ToMotor: got %v want %v", got, pos)
	}
	if got := k.ToCartesian(pos); got != pos {
		t.Errorf("ToCartesian: got %v want %v", got, pos)
	}
}

func TestCartesianCheckTravelEnvelope(t *testing.T) {
	k, _ := New(testConfig("cartesian"))

	if err := k.CheckTravel(standalone.Position{-100, -100, -100}); err != nil {
		t.Errorf("position within envelope should be accepted: %v", err)
	}
	if err := k.CheckTravel(standalone.Position{1, 0, 0}); err == nil {
		t.Errorf("a positive position is outside the [-MaxTravel, 0] envelope and should be rejected")
	}
	if err := k.CheckTravel(standalone.Position{-301, 0, 0}); err == nil {
		t.Errorf("a position beyond -MaxTravel should be rejected")
	}
	if err := k.CheckTravel(standalone.Position{-300, 0, 0}); err != nil {
		t.Errorf("the envelope boundary -MaxTravel should be accepted: %v", err)
	}
	if err := k.CheckTravel(standalone.Position{0, 0, 0}); err != nil {
		t.Errorf("the envelope boundary 0 should be accepted: %v", err)
	}
}

func TestCartesianLimitsPicksMostRestrictiveAxis(t *testing.T) {
	cfg := testConfig("cartesian")
	cfg.Axes[standalone.AxisX].MaxRate = 3000
	cfg.Axes[standalone.AxisY].MaxRate = 1000 // the tighter axis on a diagonal move
	k, _ := New(cfg)

	unit := standalone.Position{0.7071, 0.7071, 0}
	rate, _ := k.Limits(unit)
	want := 1000 / 0.7071
	if math.Abs(rate-want) > 1 {
		t.Errorf("Limits rate: got %v want ~%v", rate, want)
	}
}

func TestCartesianLimitsIgnoresStationaryAxes(t *testing.T) {
	k, _ := New(testConfig("cartesian"))
	unit := standalone.Position{1, 0, 0}
	rate, accel := k.Limits(unit)
	if rate != 3000 {
		t.Errorf("rate: got %v want 3000", rate)
	}
	if accel != 100 {
		t.Errorf("accel: got %v want 100", accel)
	}
}

func TestCoreXYMotorRoundTrip(t *testing.T) {
	k, _ := New(testConfig("corexy"))
	pos := standalone.Position{10, -4, 7}

	motor := k.ToMotor(pos)
	back := k.ToCartesian(motor)
	if math.Abs(back[standalone.AxisX]-pos[standalone.AxisX]) > 1e-9 ||
		math.Abs(back[standalone.AxisY]-pos[standalone.AxisY]) > 1e-9 ||
		math.Abs(back[standalone.AxisZ]-pos[standalone.AxisZ]) > 1e-9 {
		t.Errorf("ToCartesian(ToMotor(pos)) round trip: got %v want %v", back, pos)
	}
}

func TestCoreXYPureXMoveDrivesBothMotorsEqually(t *testing.T) {
	k, _ := New(testConfig("corexy"))
	motor := k.ToMotor(standalone.Position{10, 0, 0})
	if motor[standalone.AxisX] != 10 || motor[standalone.AxisY] != 10 {
		t.Errorf("a pure X move should drive both belt motors by the same amount, got %v", motor)
	}
}

func TestCoreXYPureYMoveDrivesMotorsOpposite(t *testing.T) {
	k, _ := New(testConfig("corexy"))
	motor := k.ToMotor(standalone.Position{0, 10, 0})
	if motor[standalone.AxisX] != 10 || motor[standalone.AxisY] != -10 {
		t.Errorf("a pure Y move should drive the belt motors oppositely, got %v", motor)
	}
}
