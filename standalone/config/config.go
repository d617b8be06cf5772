// Package config loads the JSON machine configuration consumed by
// standalone.MachineConfig, applying the same kind of sensible per-axis
// defaults the teacher's config loader did.
package config

import (
	"encoding/json"
	"fmt"

	"gogrbl/standalone"
)

// axisJSON mirrors standalone.AxisConfig with JSON tags; kept separate so
// MachineConfig's hot-path array stays plain Go without struct tags.
type axisJSON struct {
	StepPin        uint32  `json:"step_pin"`
	DirPin         uint32  `json:"dir_pin"`
	EnablePin      uint32  `json:"enable_pin"`
	HasEnable      bool    `json:"has_enable"`
	InvertDir      bool    `json:"invert_dir"`
	InvertEnable   bool    `json:"invert_enable"`
	StepsPerMM     float64 `json:"steps_per_mm"`
	MaxRate        float64 `json:"max_rate"`
	MaxAccel       float64 `json:"max_accel"`
	MaxTravel      float64 `json:"max_travel"`
	HomingSeekRate float64 `json:"homing_seek_rate"`
	HomingFeedRate float64 `json:"homing_feed_rate"`
	HomingPulloff  float64 `json:"homing_pulloff"`
	HomingDir      int8    `json:"homing_dir"`

	LimitPin    uint32 `json:"limit_pin"`
	HasLimit    bool   `json:"has_limit"`
	InvertLimit bool   `json:"invert_limit"`
}

type spindleJSON struct {
	PWMPin      uint32  `json:"pwm_pin"`
	DirPin      uint32  `json:"dir_pin"`
	HasDirPin   bool    `json:"has_dir_pin"`
	MinRPM      float64 `json:"min_rpm"`
	MaxRPM      float64 `json:"max_rpm"`
	PWMOffValue uint8   `json:"pwm_off_value"`
	LaserMode   bool    `json:"laser_mode"`
}

type coolantJSON struct {
	FloodPin uint32 `json:"flood_pin"`
	MistPin  uint32 `json:"mist_pin"`
	HasFlood bool   `json:"has_flood"`
	HasMist  bool   `json:"has_mist"`
}

type probeJSON struct {
	Pin         uint32 `json:"pin"`
	HasProbe    bool   `json:"has_probe"`
	InvertProbe bool   `json:"invert_probe"`
}

type machineJSON struct {
	Mode              string      `json:"mode"`
	Kinematics        string      `json:"kinematics"`
	Axes              [3]axisJSON `json:"axes"`
	Spindle           spindleJSON `json:"spindle"`
	Coolant           coolantJSON `json:"coolant"`
	Probe             probeJSON   `json:"probe"`
	JunctionDeviation float64     `json:"junction_deviation"`
	ArcTolerance      float64     `json:"arc_tolerance"`
	DefaultFeedRate   float64     `json:"default_feed_rate"`
	MinFeedRate       float64     `json:"min_feed_rate"`

	PulseMicroseconds    uint16 `json:"pulse_microseconds"`
	StepperIdleLockTime  uint16 `json:"stepper_idle_lock_time"`
	HomingLocateCycles   uint8  `json:"homing_locate_cycles"`
	HomingForceSetOrigin bool   `json:"homing_force_set_origin"`
	StatusReportMask     uint8  `json:"status_report_mask"`
}

// Load parses a JSON configuration document into a standalone.MachineConfig,
// applying defaults to the zero-valued fields applyDefaults covers (mode,
// kinematics, junction deviation, feed rates, pulse width, idle lock,
// homing locate cycles, every per-axis motion and homing field, spindle
// MaxRPM). ArcTolerance, StatusReportMask and the remaining spindle,
// coolant and probe fields are kept exactly as given.
func Load(data []byte) (*standalone.MachineConfig, error) {
	var doc machineJSON
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("config: parse: %w", err)
	}

	cfg := &standalone.MachineConfig{
		Mode:                 doc.Mode,
		Kinematics:           doc.Kinematics,
		JunctionDeviation:    doc.JunctionDeviation,
		ArcTolerance:         doc.ArcTolerance,
		DefaultFeedRate:      doc.DefaultFeedRate,
		MinFeedRate:          doc.MinFeedRate,
		PulseMicroseconds:    doc.PulseMicroseconds,
		StepperIdleLockTime:  doc.StepperIdleLockTime,
		HomingLocateCycles:   doc.HomingLocateCycles,
		HomingForceSetOrigin: doc.HomingForceSetOrigin,
		StatusReportMask:     doc.StatusReportMask,
		Spindle: standalone.SpindleConfig{
			PWMPin:      doc.Spindle.PWMPin,
			DirPin:      doc.Spindle.DirPin,
			HasDirPin:   doc.Spindle.HasDirPin,
			MinRPM:      doc.Spindle.MinRPM,
			MaxRPM:      doc.Spindle.MaxRPM,
			PWMOffValue: doc.Spindle.PWMOffValue,
			LaserMode:   doc.Spindle.LaserMode,
		},
		Coolant: standalone.CoolantConfig{
			FloodPin: doc.Coolant.FloodPin,
			MistPin:  doc.Coolant.MistPin,
			HasFlood: doc.Coolant.HasFlood,
			HasMist:  doc.Coolant.HasMist,
		},
		Probe: standalone.ProbeConfig{
			Pin:         doc.Probe.Pin,
			HasProbe:    doc.Probe.HasProbe,
			InvertProbe: doc.Probe.InvertProbe,
		},
	}

	for i := 0; i < standalone.NumAxis; i++ {
		a := doc.Axes[i]
		cfg.Axes[i] = standalone.AxisConfig{
			StepPin:        a.StepPin,
			DirPin:         a.DirPin,
			EnablePin:      a.EnablePin,
			HasEnable:      a.HasEnable,
			InvertDir:      a.InvertDir,
			InvertEnable:   a.InvertEnable,
			LimitPin:       a.LimitPin,
			HasLimit:       a.HasLimit,
			InvertLimit:    a.InvertLimit,
			StepsPerMM:     a.StepsPerMM,
			MaxRate:        a.MaxRate,
			MaxAccel:       a.MaxAccel,
			MaxTravel:      a.MaxTravel,
			HomingSeekRate: a.HomingSeekRate,
			HomingFeedRate: a.HomingFeedRate,
			HomingPulloff:  a.HomingPulloff,
			HomingDir:      a.HomingDir,
		}
	}

	applyDefaults(cfg)
	return cfg, nil
}

func applyDefaults(cfg *standalone.MachineConfig) {
	if cfg.Mode == "" {
		cfg.Mode = "standalone"
	}
	if cfg.Kinematics == "" {
		cfg.Kinematics = "cartesian"
	}
	if cfg.JunctionDeviation == 0 {
		cfg.JunctionDeviation = 0.01 // mm
	}
	if cfg.DefaultFeedRate == 0 {
		cfg.DefaultFeedRate = 1000.0 // mm/min
	}
	if cfg.MinFeedRate == 0 {
		cfg.MinFeedRate = 1.0 // mm/min
	}
	if cfg.PulseMicroseconds == 0 {
		cfg.PulseMicroseconds = 10
	}
	if cfg.StepperIdleLockTime == 0 {
		cfg.StepperIdleLockTime = 25
	}
	if cfg.HomingLocateCycles == 0 {
		cfg.HomingLocateCycles = 1
	}

	for i := range cfg.Axes {
		a := &cfg.Axes[i]
		if a.StepsPerMM == 0 {
			a.StepsPerMM = 250.0
		}
		if a.MaxRate == 0 {
			a.MaxRate = 500.0
		}
		if a.MaxAccel == 0 {
			a.MaxAccel = 10.0 * 60 * 60 // mm/min^2
		}
		if a.MaxTravel == 0 {
			a.MaxTravel = 200.0
		}
		if a.HomingSeekRate == 0 {
			a.HomingSeekRate = 500.0
		}
		if a.HomingFeedRate == 0 {
			a.HomingFeedRate = 25.0
		}
		if a.HomingPulloff == 0 {
			a.HomingPulloff = 1.0
		}
		if a.HomingDir == 0 {
			a.HomingDir = -1
		}
	}

	if cfg.Spindle.MaxRPM == 0 {
		cfg.Spindle.MaxRPM = 1000.0
	}
}

// DefaultCartesianConfig returns a reasonable default 3-axis configuration,
// used by the bench CLI and tests when no config file is supplied.
func DefaultCartesianConfig() *standalone.MachineConfig {
	cfg := &standalone.MachineConfig{
		Mode:       "standalone",
		Kinematics: "cartesian",
		Axes: [3]standalone.AxisConfig{
			{StepPin: 0, DirPin: 1, StepsPerMM: 80, MaxRate: 6000, MaxAccel: 360000, MaxTravel: 220, HomingSeekRate: 1000, HomingFeedRate: 50, HomingPulloff: 2, HomingDir: -1, LimitPin: 6, HasLimit: true},
			{StepPin: 2, DirPin: 3, StepsPerMM: 80, MaxRate: 6000, MaxAccel: 360000, MaxTravel: 220, HomingSeekRate: 1000, HomingFeedRate: 50, HomingPulloff: 2, HomingDir: -1, LimitPin: 7, HasLimit: true},
			{StepPin: 4, DirPin: 5, StepsPerMM: 400, MaxRate: 600, MaxAccel: 36000, MaxTravel: 200, HomingSeekRate: 300, HomingFeedRate: 25, HomingPulloff: 2, HomingDir: 1, LimitPin: 8, HasLimit: true},
		},
		Spindle:           standalone.SpindleConfig{PWMPin: 10, MaxRPM: 1000},
		Coolant:           standalone.CoolantConfig{FloodPin: 11, HasFlood: true, MistPin: 12, HasMist: true},
		Probe:             standalone.ProbeConfig{Pin: 13, HasProbe: true},
		JunctionDeviation: 0.01,
		DefaultFeedRate:   1000,
		MinFeedRate:       1,
	}
	applyDefaults(cfg)
	return cfg
}
