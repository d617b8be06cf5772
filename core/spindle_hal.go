package core

// SpindleMode selects between an on/off relay spindle and a PWM-modulated one.
type SpindleMode uint8

const (
	SpindleModeDiscrete SpindleMode = iota
	SpindleModePWM
)

// SpindleState reports direction and duty for status reporting.
type SpindleState struct {
	Enabled bool
	CW      bool
	PWM     uint8 // 0..255, only meaningful in SpindleModePWM
}

// SpindleDriver is the abstract spindle interface that core code uses.
// Platform-specific implementations drive a relay, an H-bridge, or a PWM pin.
type SpindleDriver interface {
	// Init configures the backend for discrete on/off or PWM operation.
	Init(mode SpindleMode) error

	// Start energizes the spindle in the given direction.
	Start(cw bool) error

	// Stop de-energizes the spindle.
	Stop() error

	// SetPWM sets duty cycle 0..255; only valid in SpindleModePWM.
	SetPWM(duty uint8) error

	// GetState returns the last commanded state.
	GetState() SpindleState
}

var spindleDriver SpindleDriver

// SetSpindleDriver is called by target-specific code to register its driver.
func SetSpindleDriver(d SpindleDriver) {
	spindleDriver = d
}

// MustSpindle returns the configured driver or panics if missing.
func MustSpindle() SpindleDriver {
	if spindleDriver == nil {
		panic("spindle driver not configured")
	}
	return spindleDriver
}
