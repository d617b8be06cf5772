package core

// CoolantDriver is the abstract coolant interface that core code uses.
// Platform-specific implementations toggle flood/mist relay outputs.
type CoolantDriver interface {
	Init() error

	// Start energizes flood or mist coolant.
	StartFlood() error
	StartMist() error

	// Stop de-energizes flood or mist coolant.
	StopFlood() error
	StopMist() error

	// GetState reports current flood/mist state.
	GetState() (flood bool, mist bool)
}

var coolantDriver CoolantDriver

// SetCoolantDriver is called by target-specific code to register its driver.
func SetCoolantDriver(d CoolantDriver) {
	coolantDriver = d
}

// MustCoolant returns the configured driver or panics if missing.
func MustCoolant() CoolantDriver {
	if coolantDriver == nil {
		panic("coolant driver not configured")
	}
	return coolantDriver
}
