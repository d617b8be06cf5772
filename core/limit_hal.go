package core

// LimitMask is a per-axis bitmask (bit i = axis i).
type LimitMask uint8

// LimitDriver is the abstract hard-limit/homing-switch interface.
// Implementations wire N_AXIS GPIO inputs (or a shared interrupt pin) and
// report a live bitmask plus edge-triggered change notification.
type LimitDriver interface {
	Init() error

	// SetEnabled arms or disarms the limit inputs (disarmed during jog with
	// soft limits only, or while limits are intentionally bypassed).
	SetEnabled(on bool) error

	// GetState returns the live trigger bitmask, one bit per axis.
	GetState() LimitMask

	// OnChange registers a callback invoked from the platform's pin-change
	// interrupt; the callback must be allocation-free and fast.
	OnChange(cb func(state LimitMask))
}

var limitDriver LimitDriver

// SetLimitDriver is called by target-specific code to register its driver.
func SetLimitDriver(d LimitDriver) {
	limitDriver = d
}

// MustLimits returns the configured driver or panics if missing.
func MustLimits() LimitDriver {
	if limitDriver == nil {
		panic("limit driver not configured")
	}
	return limitDriver
}
