package core

// SerialDriver is the abstract serial transport interface (§6). RX delivery
// is push-based: the backend calls the registered callback as bytes arrive.
type SerialDriver interface {
	Init(baud uint32) error

	// WriteByte enqueues one byte for transmission; busy-waits on hardware
	// that has no TX buffering, aborting early if abort() returns true.
	WriteByte(b byte, abort func() bool) error

	// StopTX discards any buffered, not-yet-sent output.
	StopTX()

	// OnReceive registers the callback invoked with each arriving chunk.
	OnReceive(cb func(data []byte))
}

var serialDriver SerialDriver

// SetSerialDriver is called by target-specific code to register its driver.
func SetSerialDriver(d SerialDriver) {
	serialDriver = d
}

// MustSerial returns the configured driver or panics if missing.
func MustSerial() SerialDriver {
	if serialDriver == nil {
		panic("serial driver not configured")
	}
	return serialDriver
}
