package settings

import (
	"testing"

	"gogrbl/core"
	"gogrbl/standalone"
)

// memStore is a flat byte array standing in for EEPROM/flash during tests.
type memStore struct {
	data [2048]byte
}

func (m *memStore) Init() error { return nil }

func (m *memStore) ReadByte(addr uint32) (byte, error) {
	return m.data[addr], nil
}

func (m *memStore) WriteByte(addr uint32, val byte) error {
	m.data[addr] = val
	return nil
}

func newTestConfig() *standalone.MachineConfig {
	cfg := &standalone.MachineConfig{
		Kinematics:           "cartesian",
		JunctionDeviation:    0.01,
		ArcTolerance:         0.002,
		DefaultFeedRate:      1000,
		MinFeedRate:          1,
		PulseMicroseconds:    10,
		StepperIdleLockTime:  255,
		HomingLocateCycles:   2,
		HomingForceSetOrigin: true,
	}
	for i := range cfg.Axes {
		cfg.Axes[i] = standalone.AxisConfig{
			StepsPerMM:     80,
			MaxRate:        5000,
			MaxAccel:       200,
			MaxTravel:      300,
			HomingSeekRate: 1000,
			HomingFeedRate: 100,
			HomingPulloff:  5,
			HomingDir:      -1,
		}
	}
	cfg.Spindle = standalone.SpindleConfig{
		MinRPM:      1000,
		MaxRPM:      24000,
		PWMOffValue: 0,
		LaserMode:   true,
	}
	return cfg
}

func TestChecksumDetectsCorruption(t *testing.T) {
	a := checksum([]byte("hello"))
	b := checksum([]byte("hellp"))
	if a == b {
		t.Fatalf("checksum collided on a single-byte change")
	}
}

func TestGlobalRoundTrip(t *testing.T) {
	core.SetStoreDriver(&memStore{})
	cfg := newTestConfig()

	if err := SaveGlobal(cfg); err != nil {
		t.Fatalf("SaveGlobal: %v", err)
	}

	loaded := &standalone.MachineConfig{}
	if err := LoadGlobal(loaded); err != nil {
		t.Fatalf("LoadGlobal: %v", err)
	}

	if loaded.Axes[0].StepsPerMM != cfg.Axes[0].StepsPerMM {
		t.Errorf("StepsPerMM: got %v want %v", loaded.Axes[0].StepsPerMM, cfg.Axes[0].StepsPerMM)
	}
	if loaded.Axes[2].HomingDir != cfg.Axes[2].HomingDir {
		t.Errorf("HomingDir: got %v want %v", loaded.Axes[2].HomingDir, cfg.Axes[2].HomingDir)
	}
	if loaded.JunctionDeviation != cfg.JunctionDeviation {
		t.Errorf("JunctionDeviation: got %v want %v", loaded.JunctionDeviation, cfg.JunctionDeviation)
	}
	if loaded.PulseMicroseconds != cfg.PulseMicroseconds {
		t.Errorf("PulseMicroseconds: got %v want %v", loaded.PulseMicroseconds, cfg.PulseMicroseconds)
	}
	if loaded.HomingLocateCycles != cfg.HomingLocateCycles {
		t.Errorf("HomingLocateCycles: got %v want %v", loaded.HomingLocateCycles, cfg.HomingLocateCycles)
	}
	if !loaded.HomingForceSetOrigin {
		t.Errorf("HomingForceSetOrigin not round-tripped")
	}
	if !loaded.Spindle.LaserMode {
		t.Errorf("Spindle.LaserMode not round-tripped")
	}
}

func TestGlobalLoadRejectsCorruptRecord(t *testing.T) {
	core.SetStoreDriver(&memStore{})
	cfg := newTestConfig()
	if err := SaveGlobal(cfg); err != nil {
		t.Fatalf("SaveGlobal: %v", err)
	}

	// Flip one byte in the middle of the record without touching the checksum.
	if err := core.MustStore().WriteByte(AddrGlobal+4, 0xFF); err != nil {
		t.Fatalf("WriteByte: %v", err)
	}

	loaded := &standalone.MachineConfig{}
	if err := LoadGlobal(loaded); err == nil {
		t.Fatalf("expected checksum mismatch error, got nil")
	}
}

func TestCoordOffsetRoundTrip(t *testing.T) {
	core.SetStoreDriver(&memStore{})
	offset := standalone.Position{1.5, -2.25, 10}

	if err := SaveCoordOffset(3, offset); err != nil {
		t.Fatalf("SaveCoordOffset: %v", err)
	}
	got, err := LoadCoordOffset(3)
	if err != nil {
		t.Fatalf("LoadCoordOffset: %v", err)
	}
	if got != offset {
		t.Errorf("got %v want %v", got, offset)
	}
}

func TestCoordOffsetVirginReadsZero(t *testing.T) {
	core.SetStoreDriver(&memStore{})
	got, err := LoadCoordOffset(5)
	if err != nil {
		t.Fatalf("LoadCoordOffset: %v", err)
	}
	if got != (standalone.Position{}) {
		t.Errorf("expected zero offset on virgin store, got %v", got)
	}
}

func TestCoordOffsetIndexBounds(t *testing.T) {
	core.SetStoreDriver(&memStore{})
	if err := SaveCoordOffset(-1, standalone.Position{}); err == nil {
		t.Errorf("expected error for negative index")
	}
	if err := SaveCoordOffset(NumCoordSystems, standalone.Position{}); err == nil {
		t.Errorf("expected error for out-of-range index")
	}
}

func TestStartupLineRoundTrip(t *testing.T) {
	core.SetStoreDriver(&memStore{})
	const line = "G21 G90 G54"

	if err := SaveStartupLine(0, line); err != nil {
		t.Fatalf("SaveStartupLine: %v", err)
	}
	got, err := LoadStartupLine(0)
	if err != nil {
		t.Fatalf("LoadStartupLine: %v", err)
	}
	if got != line {
		t.Errorf("got %q want %q", got, line)
	}
}

func TestStartupLineVirginReadsEmpty(t *testing.T) {
	core.SetStoreDriver(&memStore{})
	got, err := LoadStartupLine(1)
	if err != nil {
		t.Fatalf("LoadStartupLine: %v", err)
	}
	if got != "" {
		t.Errorf("expected empty line on virgin store, got %q", got)
	}
}

func TestBuildInfoRoundTrip(t *testing.T) {
	core.SetStoreDriver(&memStore{})
	const info = "gogrbl-1.0-test"

	if err := SaveBuildInfo(info); err != nil {
		t.Fatalf("SaveBuildInfo: %v", err)
	}
	got, err := LoadBuildInfo()
	if err != nil {
		t.Fatalf("LoadBuildInfo: %v", err)
	}
	if got != info {
		t.Errorf("got %q want %q", got, info)
	}
}

func TestVersionRoundTrip(t *testing.T) {
	core.SetStoreDriver(&memStore{})
	if err := SaveVersion(); err != nil {
		t.Fatalf("SaveVersion: %v", err)
	}
	v, err := LoadVersion()
	if err != nil {
		t.Fatalf("LoadVersion: %v", err)
	}
	if v != CurrentVersion {
		t.Errorf("got %d want %d", v, CurrentVersion)
	}
}

func TestLoadOrDefaultFallsBackOnVirginStore(t *testing.T) {
	core.SetStoreDriver(&memStore{})
	cfg := newTestConfig()

	if err := LoadOrDefault(cfg); err != nil {
		t.Fatalf("LoadOrDefault: %v", err)
	}

	v, err := LoadVersion()
	if err != nil {
		t.Fatalf("LoadVersion: %v", err)
	}
	if v != CurrentVersion {
		t.Errorf("LoadOrDefault did not persist a fresh store: version=%d", v)
	}
}

func TestLoadOrDefaultReadsBackExistingStore(t *testing.T) {
	core.SetStoreDriver(&memStore{})
	cfg := newTestConfig()
	if err := SaveAll(cfg); err != nil {
		t.Fatalf("SaveAll: %v", err)
	}

	loaded := &standalone.MachineConfig{}
	if err := LoadOrDefault(loaded); err != nil {
		t.Fatalf("LoadOrDefault: %v", err)
	}
	if loaded.Axes[1].MaxAccel != cfg.Axes[1].MaxAccel {
		t.Errorf("got %v want %v", loaded.Axes[1].MaxAccel, cfg.Axes[1].MaxAccel)
	}
}
